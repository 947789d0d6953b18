package service

import (
	"context"

	"sigir/internal/codigo"
	"sigir/internal/repository"
	"sigir/internal/slug"

	"github.com/google/uuid"
)

// slugFallback is the slug base used when a name has no [a-z0-9] characters.
const slugFallback = "categoria"

// generador derives codes and slugs from category names. The uniqueness
// checks are an optimization: two concurrent creates can still race, and the
// unique constraints on codigo/slug settle it (see Crear's retry).
type generador struct {
	prefijoDefault string
	ancho          int
}

// codigo returns PREFIX-YEARSEQ where SEQ follows the highest sequence already
// used for PREFIX-YEAR, trashed rows included.
func (g generador) codigo(ctx context.Context, repo repository.CategoriaRepository, nombre string, anio int) (string, error) {
	prefijo := codigo.Prefijo(nombre, g.prefijoDefault)
	base := codigo.Base(prefijo, anio)
	existentes, err := repo.CodigosConBase(ctx, base)
	if err != nil {
		return "", err
	}
	return codigo.Formatear(prefijo, anio, codigo.Siguiente(existentes, base), g.ancho), nil
}

// slug normalizes nombre and appends -1, -2, … until no other non-purged row
// (excluir aside) holds the candidate.
func (g generador) slug(ctx context.Context, repo repository.CategoriaRepository, nombre string, excluir uuid.UUID) (string, error) {
	base := slug.Normalizar(nombre)
	if base == "" {
		base = slugFallback
	}
	candidato := base
	for n := 1; ; n++ {
		existe, err := repo.SlugExiste(ctx, candidato, excluir)
		if err != nil {
			return "", err
		}
		if !existe {
			return candidato, nil
		}
		candidato = slug.ConSufijo(base, n)
	}
}

// slugPersonalizado reports whether slugAnterior was hand-edited, i.e. it is
// neither the auto slug of nombreAnterior nor that slug plus a collision suffix.
func slugPersonalizado(nombreAnterior, slugAnterior string) bool {
	base := slug.Normalizar(nombreAnterior)
	if base == "" {
		base = slugFallback
	}
	return !slug.EsDerivado(slugAnterior, base)
}
