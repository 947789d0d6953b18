// Package codigo builds the human-readable category codes (PREFIX-YEARSEQ).
package codigo

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"sigir/internal/slug"
)

const (
	LongitudPrefijo = 3
	PrefijoDefault  = "CAT"
	AnchoDefault    = 3

	// MaxDigitosSecuencia bounds the sequence part of a code. Hand-entered
	// codes with a longer numeric tail are not treated as sequences.
	MaxDigitosSecuencia = 9
)

// formato is the accepted shape of a user-supplied code.
var formato = regexp.MustCompile(`^[A-Z0-9-]+$`)

// Prefijo keeps the first three letters of nombre (diacritics stripped),
// upper-cased. Names with fewer than three letters get fallback instead.
func Prefijo(nombre, fallback string) string {
	var b strings.Builder
	for _, r := range slug.SinDiacriticos(nombre) {
		if r > unicode.MaxASCII || !unicode.IsLetter(r) {
			continue
		}
		b.WriteRune(unicode.ToUpper(r))
		if b.Len() == LongitudPrefijo {
			return b.String()
		}
	}
	if fallback == "" {
		return PrefijoDefault
	}
	return fallback
}

// Base is the shared part of every code for a prefix and a year: "MOT-2025".
func Base(prefijo string, anio int) string {
	return fmt.Sprintf("%s-%04d", prefijo, anio)
}

// Formatear renders a full code. Sequences wider than ancho are not truncated.
func Formatear(prefijo string, anio, secuencia, ancho int) string {
	if ancho <= 0 {
		ancho = AnchoDefault
	}
	return fmt.Sprintf("%s%0*d", Base(prefijo, anio), ancho, secuencia)
}

// Secuencia extracts the numeric sequence that follows base in code.
// ok is false when code does not start with base or the remainder is not a
// number of at most MaxDigitosSecuencia digits.
func Secuencia(code, base string) (n int, ok bool) {
	rest, found := strings.CutPrefix(code, base)
	if !found || rest == "" || len(rest) > MaxDigitosSecuencia {
		return 0, false
	}
	for _, r := range rest {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(rest)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Siguiente returns max(sequence)+1 over the codes sharing base, or 1.
func Siguiente(codes []string, base string) int {
	maxSeq := 0
	for _, c := range codes {
		if n, ok := Secuencia(c, base); ok && n > maxSeq {
			maxSeq = n
		}
	}
	return maxSeq + 1
}

// Normalizar trims and upper-cases a user-supplied code.
func Normalizar(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Valido reports whether code matches ^[A-Z0-9-]+$.
func Valido(code string) bool {
	return formato.MatchString(code)
}
