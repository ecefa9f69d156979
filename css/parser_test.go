package css_test

import (
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"fontdl/css"
)

const twoFacesCSS = `/* latin */
@font-face {
  font-family: 'Fira Sans';
  font-style: normal;
  font-weight: 400;
  src: url(https://x/a.woff2);
}
/* latin-ext */
@font-face {
  font-family: 'Fira Sans';
  font-style: italic;
  font-weight: 600;
  src: url(https://x/b.woff2);
}
body { font-family: 'Fira Sans'; }
`

// googleCSS is what fonts.googleapis.com/css2 returns for modern browsers.
const googleCSS = `/* cyrillic-ext */
@font-face {
  font-family: 'Fira Sans';
  font-style: italic;
  font-weight: 400;
  font-display: swap;
  src: url(https://fonts.gstatic.com/s/firasans/v17/va9C4kDNxMZdWfMOD5VvkrjEYTLHdQ.woff2) format('woff2');
  unicode-range: U+0460-052F, U+1C80-1C88, U+20B4, U+2DE0-2DFF, U+A640-A69F, U+FE2E-FE2F;
}
/* latin */
@font-face {
  font-family: 'Fira Sans';
  font-style: normal;
  font-weight: 600;
  font-stretch: 100%;
  font-display: swap;
  src: url(https://fonts.gstatic.com/s/firasans/v17/va9B4kDNxMZdWfMOD5VnSKzeRhf6.woff2) format('woff2');
  unicode-range: U+0000-00FF, U+0131, U+0152-0153, U+02BB-02BC, U+02C6, U+02DA, U+02DC, U+0304, U+0308, U+0329, U+2000-206F, U+2074, U+20AC, U+2122, U+2191, U+2193, U+2212, U+2215, U+FEFF, U+FFFD;
}
`

func TestParser_TwoFaces(t *testing.T) {
	p := css.NewParser(zaptest.NewLogger(t))

	sheet, err := p.Parse(twoFacesCSS)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(sheet.FontFaces) != 2 {
		t.Fatalf("expected 2 font faces, got %d", len(sheet.FontFaces))
	}

	want := []css.FontFace{
		{
			Comment: "latin", Family: "Fira Sans", Style: "normal", Weight: "400",
			URL: "https://x/a.woff2", LocalFileName: "fira-sans.woff2",
		},
		{
			Comment: "latin-ext", Family: "Fira Sans", Style: "italic", Weight: "600",
			URL: "https://x/b.woff2", LocalFileName: "fira-sans-latin-ext-italic-600.woff2",
		},
	}
	for i, ff := range sheet.FontFaces {
		if ff != want[i] {
			t.Errorf("font face %d = %+v, want %+v", i, ff, want[i])
		}
	}

	if sheet.Rest != "body { font-family: 'Fira Sans'; }\n" {
		t.Errorf("Rest = %q", sheet.Rest)
	}
}

func TestParser_GoogleFontsOutput(t *testing.T) {
	p := css.NewParser(zap.NewNop())

	sheet, err := p.Parse(googleCSS)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(sheet.FontFaces) != 2 {
		t.Fatalf("expected 2 font faces, got %d", len(sheet.FontFaces))
	}

	ff := sheet.FontFaces[0]
	if ff.Comment != "cyrillic-ext" {
		t.Errorf("Comment = %q", ff.Comment)
	}
	if ff.Display != "swap" {
		t.Errorf("Display = %q, want swap", ff.Display)
	}
	if ff.Stretch != "" {
		t.Errorf("Stretch = %q, want absent", ff.Stretch)
	}
	if ff.URL != "https://fonts.gstatic.com/s/firasans/v17/va9C4kDNxMZdWfMOD5VvkrjEYTLHdQ.woff2" {
		t.Errorf("URL = %q", ff.URL)
	}
	if ff.UnicodeRange != "U+0460-052F, U+1C80-1C88, U+20B4, U+2DE0-2DFF, U+A640-A69F, U+FE2E-FE2F" {
		t.Errorf("UnicodeRange = %q", ff.UnicodeRange)
	}
	if ff.LocalFileName != "fira-sans-cyrillic-ext-italic.woff2" {
		t.Errorf("LocalFileName = %q", ff.LocalFileName)
	}

	ff = sheet.FontFaces[1]
	if ff.Stretch != "100%" {
		t.Errorf("Stretch = %q, want 100%%", ff.Stretch)
	}
	if ff.LocalFileName != "fira-sans-600.woff2" {
		t.Errorf("LocalFileName = %q", ff.LocalFileName)
	}
	if !strings.HasPrefix(ff.UnicodeRange, "U+0000-00FF, U+0131, ") || !strings.HasSuffix(ff.UnicodeRange, "U+FFFD") {
		t.Errorf("UnicodeRange = %q", ff.UnicodeRange)
	}

	if sheet.Rest != "" {
		t.Errorf("Rest = %q, want empty without body rule", sheet.Rest)
	}
}

func TestParser_OrderPreserved(t *testing.T) {
	subsets := []string{"cyrillic-ext", "cyrillic", "greek", "vietnamese", "latin-ext", "latin"}

	var sb strings.Builder
	for _, s := range subsets {
		sb.WriteString("/* " + s + " */\n@font-face {\n  font-family: 'Roboto';\n  src: url(https://x/" + s + ".woff2);\n}\n")
	}

	sheet, err := css.NewParser(nil).Parse(sb.String())
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(sheet.FontFaces) != len(subsets) {
		t.Fatalf("expected %d font faces, got %d", len(subsets), len(sheet.FontFaces))
	}
	for i, s := range subsets {
		if sheet.FontFaces[i].Comment != s {
			t.Errorf("font face %d comment = %q, want %q", i, sheet.FontFaces[i].Comment, s)
		}
		if sheet.FontFaces[i].URL != "https://x/"+s+".woff2" {
			t.Errorf("font face %d URL = %q", i, sheet.FontFaces[i].URL)
		}
	}
}

func TestParser_MissingURL(t *testing.T) {
	input := `/* latin */
@font-face {
  font-family: 'Fira Sans';
  src: url(https://x/a.woff2);
}
/* greek */
@font-face {
  font-family: 'Fira Sans';
  font-style: normal;
}
`
	sheet, err := css.NewParser(zap.NewNop()).Parse(input)
	if err == nil {
		t.Fatal("expected error for @font-face without url()")
	}
	if sheet != nil {
		t.Error("no stylesheet should be returned on error")
	}

	var mue *css.MissingURLError
	if !errors.As(err, &mue) {
		t.Fatalf("expected MissingURLError, got %T: %v", err, err)
	}
	if mue.Comment != "greek" || mue.Family != "Fira Sans" {
		t.Errorf("MissingURLError = %+v", mue)
	}
	if !strings.Contains(err.Error(), "greek") || !strings.Contains(err.Error(), "Fira Sans") {
		t.Errorf("error message should name comment and family: %v", err)
	}
}

func TestParser_Defaults(t *testing.T) {
	input := `/* latin */ @font-face { src: url(https://x/a.woff2); }`

	sheet, err := css.NewParser(nil).Parse(input)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(sheet.FontFaces) != 1 {
		t.Fatalf("expected 1 font face, got %d", len(sheet.FontFaces))
	}
	ff := sheet.FontFaces[0]
	if ff.Family != "font" {
		t.Errorf("Family = %q, want fallback 'font'", ff.Family)
	}
	if ff.Style != "" || ff.Weight != "" || ff.Stretch != "" || ff.Display != "" || ff.UnicodeRange != "" {
		t.Errorf("optional properties should be absent: %+v", ff)
	}
	if ff.LocalFileName != "font.woff2" {
		t.Errorf("LocalFileName = %q, want font.woff2", ff.LocalFileName)
	}
}

func TestParser_URLForms(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"unquoted", `url(https://x/a.woff2) format('woff2')`, "https://x/a.woff2"},
		{"single quoted", `url('https://x/a.woff2') format('woff2')`, "https://x/a.woff2"},
		{"double quoted", `url("https://x/a.woff2")`, "https://x/a.woff2"},
		{"first of several", `url(https://x/a.woff2) format('woff2'), url(https://x/a.woff) format('woff')`, "https://x/a.woff2"},
		{"after local()", `local('Fira Sans'), url(https://x/a.woff2)`, "https://x/a.woff2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := "/* latin */\n@font-face {\n  font-family: 'Fira Sans';\n  src: " + tt.src + ";\n}\n"
			sheet, err := css.NewParser(nil).Parse(input)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if len(sheet.FontFaces) != 1 {
				t.Fatalf("expected 1 font face, got %d", len(sheet.FontFaces))
			}
			if got := sheet.FontFaces[0].URL; got != tt.want {
				t.Errorf("URL = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParser_FamilyQuoting(t *testing.T) {
	tests := []struct {
		name   string
		family string
		want   string
		file   string
	}{
		{"single quoted", `'Fira Sans'`, "Fira Sans", "fira-sans.woff2"},
		{"double quoted", `"Fira Sans"`, "Fira Sans", "fira-sans.woff2"},
		{"unquoted", `Roboto`, "Roboto", "roboto.woff2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := "/* latin */\n@font-face {\n  font-family: " + tt.family + ";\n  src: url(https://x/a.woff2);\n}\n"
			sheet, err := css.NewParser(nil).Parse(input)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			ff := sheet.FontFaces[0]
			if ff.Family != tt.want {
				t.Errorf("Family = %q, want %q", ff.Family, tt.want)
			}
			if ff.LocalFileName != tt.file {
				t.Errorf("LocalFileName = %q, want %q", ff.LocalFileName, tt.file)
			}
		})
	}
}

func TestParser_FirstOccurrenceWins(t *testing.T) {
	input := `/* latin */ @font-face { font-family: 'A'; font-weight: 300; font-weight: 700; src: url(https://x/a.woff2); }`

	sheet, err := css.NewParser(nil).Parse(input)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got := sheet.FontFaces[0].Weight; got != "300" {
		t.Errorf("Weight = %q, want 300", got)
	}
}

func TestParser_BlocksWithoutComment(t *testing.T) {
	input := `@font-face { font-family: 'A'; src: url(https://x/a.woff2); }
/* latin */
@font-face { font-family: 'B'; src: url(https://x/b.woff2); }
`
	sheet, err := css.NewParser(nil).Parse(input)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(sheet.FontFaces) != 1 {
		t.Fatalf("expected only commented block, got %d", len(sheet.FontFaces))
	}
	if sheet.FontFaces[0].Family != "B" {
		t.Errorf("Family = %q, want B", sheet.FontFaces[0].Family)
	}
}

func TestParser_CommentDoesNotSpanRules(t *testing.T) {
	input := `/* header */ .x { color: red; }
/* latin */ @font-face { font-family: 'A'; src: url(https://x/a.woff2); }`

	sheet, err := css.NewParser(nil).Parse(input)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(sheet.FontFaces) != 1 {
		t.Fatalf("expected 1 font face, got %d", len(sheet.FontFaces))
	}
	if sheet.FontFaces[0].Comment != "latin" {
		t.Errorf("Comment = %q, want latin", sheet.FontFaces[0].Comment)
	}
}

func TestParser_Empty(t *testing.T) {
	sheet, err := css.NewParser(nil).Parse("body { margin: 0; }")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(sheet.FontFaces) != 0 {
		t.Errorf("expected no font faces, got %d", len(sheet.FontFaces))
	}
	if sheet.String() != "body { margin: 0; }" {
		t.Errorf("String() = %q", sheet.String())
	}
}

func TestParser_Rest(t *testing.T) {
	tests := []struct {
		name  string
		opts  []css.Option
		input string
		want  string
	}{
		{"no marker", nil, "/* latin */ @font-face { src: url(a); }\n.x { color: red; }", ""},
		{"marker present", nil, "/* latin */ @font-face { src: url(a); }\nbody {\n  font-family: 'A';\n}\n", "body {\n  font-family: 'A';\n}\n"},
		{"first marker", nil, "body { a: b; }\nbody { c: d; }", "body { a: b; }\nbody { c: d; }"},
		{"custom marker", []css.Option{css.WithRestMarker(".font {")}, "x\n.font { font-family: 'A'; }", ".font { font-family: 'A'; }"},
		{"disabled", []css.Option{css.WithRestMarker("")}, "body { a: b; }", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sheet, err := css.NewParser(nil, tt.opts...).Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if sheet.Rest != tt.want {
				t.Errorf("Rest = %q, want %q", sheet.Rest, tt.want)
			}
		})
	}
}

func TestParser_Collisions(t *testing.T) {
	input := `/* latin */ @font-face { font-family: 'A'; src: url(https://x/1.woff2); }
/* latin */ @font-face { font-family: 'A'; src: url(https://x/2.woff2); }
/* latin */ @font-face { font-family: 'A'; src: url(https://x/3.woff2); }
/* greek */ @font-face { font-family: 'A'; src: url(https://x/4.woff2); }
`
	sheet, err := css.NewParser(nil).Parse(input)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	// nothing is deduplicated
	if len(sheet.FontFaces) != 4 {
		t.Fatalf("expected 4 font faces, got %d", len(sheet.FontFaces))
	}
	got := sheet.Collisions()
	if len(got) != 1 || got[0] != "a.woff2" {
		t.Errorf("Collisions() = %v, want [a.woff2]", got)
	}
}
