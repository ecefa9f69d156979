package css

import (
	"fmt"
	"regexp"
	"strings"

	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// DefaultRestMarker starts the part of Google Fonts stylesheet which follows
// @font-face blocks and is copied verbatim.
const DefaultRestMarker = "body {"

// fontFacePattern matches "/* comment */ @font-face { declarations }". Comment
// may not contain "*/" and declarations may not contain "}", so every match
// stops at the first terminator.
var fontFacePattern = regexp.MustCompile(`/\*((?:[^*]|\*+[^*/])*)\*+/\s*@font-face\s*\{([^}]*)\}`)

// MissingURLError is returned when @font-face block has no url() to download.
type MissingURLError struct {
	Comment string
	Family  string
}

func (e *MissingURLError) Error() string {
	return fmt.Sprintf("@font-face for family '%s' (/* %s */) has no url()", e.Family, e.Comment)
}

// Parser extracts @font-face blocks from Google Fonts stylesheets.
type Parser struct {
	log         *zap.Logger
	restMarker  string
	fontsPrefix string
}

// Option configures Parser.
type Option func(*Parser)

// WithRestMarker sets text which starts the part of stylesheet copied
// verbatim. Empty marker disables copying.
func WithRestMarker(marker string) Option {
	return func(p *Parser) {
		p.restMarker = marker
	}
}

// WithFontsPrefix sets location of downloaded fonts used in rewritten
// stylesheet.
func WithFontsPrefix(prefix string) Option {
	return func(p *Parser) {
		p.fontsPrefix = prefix
	}
}

// NewParser creates a new font-face parser.
func NewParser(log *zap.Logger, opts ...Option) *Parser {
	if log == nil {
		log = zap.NewNop()
	}
	p := &Parser{
		log:         log.Named("css-parser"),
		restMarker:  DefaultRestMarker,
		fontsPrefix: DefaultFontsPrefix,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse scans stylesheet text and returns font faces in source order. Any
// @font-face block without url() makes the whole stylesheet unusable - all
// such blocks are reported in returned error.
func (p *Parser) Parse(text string) (*Stylesheet, error) {
	sheet := &Stylesheet{
		FontFaces:   make([]FontFace, 0),
		Rest:        p.rest(text),
		FontsPrefix: p.fontsPrefix,
	}

	var errs error
	for _, m := range fontFacePattern.FindAllStringSubmatch(text, -1) {
		ff, err := p.parseFontFace(strings.TrimSpace(m[1]), m[2])
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		p.log.Debug("Parsed @font-face",
			zap.String("comment", ff.Comment),
			zap.String("family", ff.Family),
			zap.String("style", ff.Style),
			zap.String("weight", ff.Weight),
			zap.String("url", ff.URL),
			zap.String("name", ff.LocalFileName))
		sheet.FontFaces = append(sheet.FontFaces, ff)
	}
	if errs != nil {
		return nil, errs
	}

	for _, name := range sheet.Collisions() {
		p.log.Warn("Several font faces share the same file name, only one of them will be kept", zap.String("name", name))
	}
	return sheet, nil
}

// rest returns everything from the first occurrence of rest marker to the
// end of the text.
func (p *Parser) rest(text string) string {
	if len(p.restMarker) == 0 {
		return ""
	}
	if i := strings.Index(text, p.restMarker); i >= 0 {
		return text[i:]
	}
	return ""
}

// parseFontFace builds FontFace from declaration block body.
func (p *Parser) parseFontFace(comment, body string) (FontFace, error) {
	decls, url := scanDeclarations(body)

	ff := FontFace{
		Comment:      comment,
		Family:       "font",
		Style:        decls["font-style"],
		Weight:       decls["font-weight"],
		Stretch:      decls["font-stretch"],
		Display:      decls["font-display"],
		UnicodeRange: decls["unicode-range"],
		URL:          url,
	}
	if family, ok := decls["font-family"]; ok {
		ff.Family = unquote(family)
	}
	if len(ff.URL) == 0 {
		return FontFace{}, &MissingURLError{Comment: ff.Comment, Family: ff.Family}
	}
	ff.LocalFileName = FileName(ff.Family, ff.Style, ff.Weight, ff.Comment)
	return ff, nil
}

// scanDeclarations walks "name: value;" pairs of declaration block body.
// Values are kept as they were written (trimmed), first occurrence of a
// property wins. It also returns the first url() found anywhere in the body.
func scanDeclarations(body string) (map[string]string, string) {
	decls := make(map[string]string)

	var (
		url        string
		name       string
		value      strings.Builder
		depth      int
		inVal      bool
		pendingURL bool
	)

	finish := func() {
		if inVal && len(name) > 0 {
			if _, exists := decls[name]; !exists {
				decls[name] = strings.TrimSpace(value.String())
			}
		}
		name, inVal, depth = "", false, 0
		value.Reset()
	}

	l := css.NewLexer(parse.NewInputString(body))
	for {
		tt, data := l.Next()
		if tt == css.ErrorToken {
			// end of input, last declaration may be missing semicolon
			finish()
			return decls, url
		}

		// url(x) is a single token, url("x") is a function with string argument
		switch {
		case len(url) > 0:
		case tt == css.URLToken:
			url = urlValue(string(data))
		case tt == css.FunctionToken && strings.EqualFold(string(data), "url("):
			pendingURL = true
		case pendingURL && tt == css.StringToken:
			url = unquote(string(data))
			pendingURL = false
		case tt != css.WhitespaceToken:
			pendingURL = false
		}

		switch {
		case inVal && tt == css.SemicolonToken && depth == 0:
			finish()
		case inVal:
			switch tt {
			case css.FunctionToken, css.LeftParenthesisToken:
				depth++
			case css.RightParenthesisToken:
				if depth > 0 {
					depth--
				}
			}
			value.Write(data)
		case tt == css.IdentToken && len(name) == 0:
			name = strings.ToLower(string(data))
		case tt == css.ColonToken && len(name) > 0:
			inVal = true
		case tt == css.SemicolonToken:
			// stray semicolon or broken declaration
			finish()
		}
	}
}

// urlValue extracts location from url(...) token.
func urlValue(s string) string {
	if len(s) >= 4 && strings.EqualFold(s[:4], "url(") {
		s = s[4:]
	}
	s = strings.TrimSuffix(s, ")")
	return unquote(s)
}

// unquote removes surrounding quotes from a string.
func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return s
	}
	if (s[0] == '"' && s[len(s)-1] == '"') ||
		(s[0] == '\'' && s[len(s)-1] == '\'') {
		return s[1 : len(s)-1]
	}
	return s
}
