package css

import (
	"regexp"
	"strings"
)

var (
	camelBoundary = regexp.MustCompile(`([a-z])([A-Z])`)
	separators    = regexp.MustCompile(`[\s\v\p{Z}\x{FEFF}_]+`)
)

// KebabCase converts "Fira Sans", "FiraSans" and "fira_sans" to "fira-sans".
func KebabCase(s string) string {
	s = camelBoundary.ReplaceAllString(s, "$1-$2")
	s = separators.ReplaceAllString(s, "-")
	return strings.ToLower(s)
}

// FileName derives human readable name for downloaded font file. Defaults
// are omitted: style "normal", weight "400" and subset "latin", so regular
// latin face gets the plain family name.
//
// Order of parts: family, subset, style, weight.
func FileName(family, style, weight, comment string) string {
	var sb strings.Builder

	sb.WriteString(KebabCase(family))
	if comment != "latin" {
		sb.WriteString("-" + comment)
	}
	if len(style) > 0 && style != "normal" {
		sb.WriteString("-" + style)
	}
	if len(weight) > 0 && weight != "400" {
		sb.WriteString("-" + KebabCase(weight))
	}
	sb.WriteString(".woff2")
	return sb.String()
}
