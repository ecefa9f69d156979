package css

import (
	"fmt"
	"io"
	"strings"
)

// DefaultFontsPrefix is location of downloaded fonts relative to generated
// stylesheet.
const DefaultFontsPrefix = "./fonts/"

// FontFace represents single @font-face declaration together with the comment
// preceding it. Empty optional values mean property was absent.
type FontFace struct {
	Comment      string // subset marker, e.g. "latin", "cyrillic-ext"
	Family       string // font-family value without quotes
	Style        string // font-style: normal, italic
	Weight       string // font-weight: 400, 600, "100 900"
	Stretch      string // font-stretch
	Display      string // font-display: swap, fallback, ...
	UnicodeRange string // unicode-range, verbatim
	URL          string // first url() in declaration body

	LocalFileName string // human readable name of downloaded file
}

// Stylesheet is a result of parsing Google Fonts stylesheet: all font faces
// in source order and the rest of the original text which is carried over
// unchanged.
type Stylesheet struct {
	FontFaces   []FontFace
	Rest        string
	FontsPrefix string
}

// Collisions returns local file names used by more than one font face, in
// order of their first appearance.
func (s *Stylesheet) Collisions() []string {
	seen := make(map[string]int, len(s.FontFaces))
	var names []string
	for _, ff := range s.FontFaces {
		seen[ff.LocalFileName]++
		if seen[ff.LocalFileName] == 2 {
			names = append(names, ff.LocalFileName)
		}
	}
	return names
}

// WriteTo writes rewritten stylesheet to w, implementing io.WriterTo. Every
// font face references its local file, properties are written in fixed order
// and only when present.
func (s *Stylesheet) WriteTo(w io.Writer) (int64, error) {
	prefix := s.FontsPrefix
	if len(prefix) == 0 {
		prefix = DefaultFontsPrefix
	}

	var total int64
	for i := range s.FontFaces {
		n, err := writeFontFace(w, &s.FontFaces[i], prefix)
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	n, err := io.WriteString(w, s.Rest)
	total += int64(n)
	return total, err
}

// String returns the CSS text of the rewritten stylesheet.
func (s *Stylesheet) String() string {
	var sb strings.Builder
	s.WriteTo(&sb) //nolint:errcheck
	return sb.String()
}

// Render returns stylesheet text for font faces followed by rest.
func Render(faces []FontFace, rest, fontsPrefix string) string {
	s := Stylesheet{FontFaces: faces, Rest: rest, FontsPrefix: fontsPrefix}
	return s.String()
}

func writeFontFace(w io.Writer, ff *FontFace, prefix string) (int, error) {
	var sb strings.Builder

	fmt.Fprintf(&sb, "/* %s */\n", ff.Comment)
	sb.WriteString("@font-face {\n")
	fmt.Fprintf(&sb, "  font-family: '%s';\n", ff.Family)
	writeOptional(&sb, "font-style", ff.Style)
	writeOptional(&sb, "font-weight", ff.Weight)
	writeOptional(&sb, "font-stretch", ff.Stretch)
	writeOptional(&sb, "font-display", ff.Display)
	fmt.Fprintf(&sb, "  src: url(%s%s) format('woff2');\n", prefix, ff.LocalFileName)
	writeOptional(&sb, "unicode-range", ff.UnicodeRange)
	sb.WriteString("}\n")

	return io.WriteString(w, sb.String())
}

func writeOptional(sb *strings.Builder, name, value string) {
	if len(value) == 0 {
		return
	}
	fmt.Fprintf(sb, "  %s: %s;\n", name, value)
}
