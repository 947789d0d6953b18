// Package slug builds URL-safe identifiers from category names.
package slug

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	// nonAlphanumeric matches every run of characters outside [a-z0-9].
	nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)
	// valid is the canonical shape of a normalized slug.
	valid = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
)

// Normalizar lower-cases s, strips diacritics, collapses every run of
// non-alphanumeric characters into one hyphen and trims hyphens at both ends.
// "Motores Eléctricos!" → "motores-electricos"
func Normalizar(s string) string {
	result := strings.ToLower(strings.TrimSpace(SinDiacriticos(s)))
	result = nonAlphanumeric.ReplaceAllString(result, "-")
	return strings.Trim(result, "-")
}

// SinDiacriticos decomposes s (NFD), drops combining marks and recomposes.
func SinDiacriticos(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Valido reports whether s already has the normalized slug shape.
func Valido(s string) bool {
	return valid.MatchString(s)
}

// ConSufijo appends the numeric collision suffix n to base ("motos", 2 → "motos-2").
func ConSufijo(base string, n int) string {
	return base + "-" + strconv.Itoa(n)
}

// EsDerivado reports whether s equals base or base followed by a numeric
// collision suffix ("motos", "motos-1", "motos-12").
func EsDerivado(s, base string) bool {
	if s == base {
		return true
	}
	rest, ok := strings.CutPrefix(s, base+"-")
	if !ok || rest == "" {
		return false
	}
	for _, r := range rest {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
