package rules

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Use codes and labels vary across data loads ("RES_UNI", "res_unifamiliar",
// "Residencial Unifamiliar (Casa)"), so residential detection matches both
// code prefixes and accent-folded label words.

var foldAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

func normLabel(s string) string {
	out, _, err := transform.String(foldAccents, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.TrimSpace(out))
}

// IsSingleFamily reports whether the use is single-family residential.
func IsSingleFamily(code, label string) bool {
	c := strings.ToUpper(strings.TrimSpace(code))
	if strings.HasPrefix(c, "RES_UNI") || c == "RESUNI" || c == "RES_UNIF" || c == "RES_UNIFAMILIAR" {
		return true
	}
	if strings.HasPrefix(c, "RES") && strings.Contains(c, "UNI") {
		return true
	}
	l := normLabel(label)
	if strings.Contains(l, "unifamiliar") {
		return true
	}
	return strings.Contains(l, "casa") && strings.Contains(l, "res")
}

// IsMultiFamily reports whether the use is multi-family residential.
func IsMultiFamily(code, label string) bool {
	c := strings.ToUpper(strings.TrimSpace(code))
	if strings.HasPrefix(c, "RES_MULTI") || c == "RESMULTI" || c == "RES_MF" || c == "RES_MULTIFAMILIAR" {
		return true
	}
	if strings.HasPrefix(c, "RES") && (strings.Contains(c, "MULTI") || strings.Contains(c, "MF")) {
		return true
	}
	l := normLabel(label)
	if strings.Contains(l, "multifamiliar") || strings.Contains(l, "predio") {
		return true
	}
	return strings.Contains(l, "apartamento") && strings.Contains(l, "res")
}

// IsResidential reports whether the use is residential of either kind.
func IsResidential(code, label string) bool {
	return IsSingleFamily(code, label) || IsMultiFamily(code, label)
}
