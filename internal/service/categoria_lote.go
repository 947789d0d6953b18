package service

import (
	"context"

	"sigir/internal/dto"
	"sigir/internal/model"
	"sigir/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type accionLote int

const (
	aplicar accionLote = iota
	rechazar
)

// operacionLote describes one bulk lifecycle command. clasificar decides per
// row whether it takes part; ejecutar runs a single statement over the
// accepted ids.
type operacionLote struct {
	nombre     string
	evento     string
	detalle    string
	clasificar func(c model.Categoria) (accionLote, string)
	ejecutar   func(ctx context.Context, repo repository.CategoriaRepository, ids []uuid.UUID) (int64, error)
}

// lote loads every requested row, filters it through op.clasificar and applies
// op.ejecutar to the accepted ids inside one transaction. Rejected and unknown
// ids never abort the batch; they are reported in the per-id results.
func (s *categoriaService) lote(ctx context.Context, op operacionLote, ids []uuid.UUID) (*dto.ResultadoLote, error) {
	ids = sinDuplicados(ids)
	if len(ids) == 0 {
		return nil, s.registrar(op.nombre, ErrLoteVacio)
	}

	res := &dto.ResultadoLote{Solicitados: len(ids)}
	var aceptados []uuid.UUID

	err := s.repo.WithTx(ctx, func(repo repository.CategoriaRepository) error {
		res.Resultados = make([]dto.ResultadoItem, 0, len(ids))
		aceptados = aceptados[:0]

		filas, err := repo.BuscarPorIDs(ctx, ids, repository.Todas)
		if err != nil {
			return err
		}
		porID := make(map[uuid.UUID]model.Categoria, len(filas))
		for _, f := range filas {
			porID[f.ID] = f
		}

		for _, id := range ids {
			fila, ok := porID[id]
			if !ok {
				res.Resultados = append(res.Resultados, dto.ResultadoItem{ID: id, Error: ErrCategoriaNoEncontrada.Error()})
				continue
			}
			if accion, motivo := op.clasificar(fila); accion == rechazar {
				res.Resultados = append(res.Resultados, dto.ResultadoItem{ID: id, Error: motivo})
				continue
			}
			aceptados = append(aceptados, id)
			res.Resultados = append(res.Resultados, dto.ResultadoItem{ID: id, OK: true})
		}

		if len(aceptados) == 0 {
			return nil
		}
		_, err = op.ejecutar(ctx, repo, aceptados)
		return err
	})
	if err != nil {
		return nil, s.registrar(op.nombre, err, ids...)
	}

	res.Procesados = len(aceptados)
	res.Fallidos = res.Solicitados - res.Procesados
	for _, item := range res.Resultados {
		if !item.OK {
			log.Warn().
				Str("operacion", op.nombre).
				Str("id", item.ID.String()).
				Str("motivo", item.Error).
				Msg("categoría omitida en operación por lote")
		}
	}

	if len(aceptados) > 0 {
		s.despuesDeMutar(ctx, op.evento, aceptados, op.detalle)
	}
	s.registrar(op.nombre, nil)
	return res, nil
}

func sinDuplicados(ids []uuid.UUID) []uuid.UUID {
	vistos := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := vistos[id]; ok {
			continue
		}
		vistos[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
