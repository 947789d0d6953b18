package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"sigir/internal/codigo"
	"sigir/internal/dto"
	"sigir/internal/model"
	"sigir/internal/repository"
	"sigir/internal/slug"
	"sigir/internal/worker"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

var operacionesCategoria = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "categoria_operaciones_total",
		Help: "Category service operations partitioned by result",
	},
	[]string{"operacion", "resultado"},
)

// CategoriaService defines business operations for product categories:
// identifier generation on create/rename and the soft-delete lifecycle.
type CategoriaService interface {
	Crear(ctx context.Context, req dto.CrearCategoriaRequest) (*dto.CategoriaResponse, error)
	ObtenerPorID(ctx context.Context, id uuid.UUID) (*dto.CategoriaResponse, error)
	Listar(ctx context.Context, filter dto.CategoriaFilter) (*dto.CategoriaListResponse, error)
	ListarPapelera(ctx context.Context) ([]dto.CategoriaResponse, error)
	Actualizar(ctx context.Context, id uuid.UUID, req dto.ActualizarCategoriaRequest) (*dto.CategoriaResponse, error)
	AlternarEstado(ctx context.Context, id uuid.UUID) (*dto.CategoriaResponse, error)
	EstablecerEstadoLote(ctx context.Context, ids []uuid.UUID, activo bool) (*dto.ResultadoLote, error)
	Eliminar(ctx context.Context, id uuid.UUID) error
	EliminarLote(ctx context.Context, ids []uuid.UUID) (*dto.ResultadoLote, error)
	Restaurar(ctx context.Context, id uuid.UUID) error
	RestaurarLote(ctx context.Context, ids []uuid.UUID) (*dto.ResultadoLote, error)
	Purgar(ctx context.Context, id uuid.UUID) error
	PurgarLote(ctx context.Context, ids []uuid.UUID) (*dto.ResultadoLote, error)
}

// ListaCache stores rendered list pages. Obtener returns the cache version it
// read; Guardar stores under that version, so a page built across an
// Invalidar is never served. Invalidar drops every cached page.
type ListaCache interface {
	Obtener(ctx context.Context, clave string, dest any) (int64, bool)
	Guardar(ctx context.Context, version int64, clave string, valor any)
	Invalidar(ctx context.Context)
}

// Publicador receives committed lifecycle events (implemented by worker.Dispatcher).
type Publicador interface {
	EnqueueEvento(ctx context.Context, ev worker.EventoCategoria) error
}

// CategoriaOptions carries the tunables and optional collaborators of the service.
type CategoriaOptions struct {
	PrefijoDefault string
	AnchoSecuencia int
	Cache          ListaCache
	Eventos        Publicador
	Now            func() time.Time
}

type categoriaService struct {
	repo    repository.CategoriaRepository
	gen     generador
	cache   ListaCache
	eventos Publicador
	now     func() time.Time
}

func NewCategoriaService(repo repository.CategoriaRepository, opts CategoriaOptions) CategoriaService {
	if opts.PrefijoDefault == "" {
		opts.PrefijoDefault = codigo.PrefijoDefault
	}
	if opts.AnchoSecuencia <= 0 {
		opts.AnchoSecuencia = codigo.AnchoDefault
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &categoriaService{
		repo:    repo,
		gen:     generador{prefijoDefault: opts.PrefijoDefault, ancho: opts.AnchoSecuencia},
		cache:   opts.Cache,
		eventos: opts.Eventos,
		now:     opts.Now,
	}
}

// mapCategoria converts a model to a DTO response.
func mapCategoria(c model.Categoria) dto.CategoriaResponse {
	resp := dto.CategoriaResponse{
		ID:          c.ID,
		Codigo:      c.Codigo,
		Nombre:      c.Nombre,
		Slug:        c.Slug,
		Descripcion: c.Descripcion,
		Estado:      dto.EstadoInactivo,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
	if c.Activo {
		resp.Estado = dto.EstadoActivo
		resp.EstadoNum = 1
	}
	if c.DeletedAt.Valid {
		t := c.DeletedAt.Time
		resp.DeletedAt = &t
	}
	return resp
}

func mapLista(list []model.Categoria) []dto.CategoriaResponse {
	result := make([]dto.CategoriaResponse, 0, len(list))
	for _, c := range list {
		result = append(result, mapCategoria(c))
	}
	return result
}

// ── Crear ─────────────────────────────────────────────────────────────────────

// Crear generates codigo and slug (unless supplied) and inserts the row in one
// transaction. A unique violation on generated values is retried once with
// fresh identifiers before surfacing ErrConflicto.
func (s *categoriaService) Crear(ctx context.Context, req dto.CrearCategoriaRequest) (*dto.CategoriaResponse, error) {
	nombre := strings.TrimSpace(req.Nombre)
	if utf8.RuneCountInString(nombre) < 3 {
		return nil, s.registrar("crear", validacion("nombre", "debe tener al menos 3 caracteres"))
	}

	codigoManual := ""
	if req.Codigo != nil && strings.TrimSpace(*req.Codigo) != "" {
		codigoManual = codigo.Normalizar(*req.Codigo)
		if !codigo.Valido(codigoManual) {
			return nil, s.registrar("crear", validacion("codigo", "solo se permiten letras mayúsculas, números y guiones"))
		}
	}
	slugManual := ""
	if req.Slug != nil && strings.TrimSpace(*req.Slug) != "" {
		slugManual = slug.Normalizar(*req.Slug)
		if !slug.Valido(slugManual) {
			return nil, s.registrar("crear", validacion("slug", "formato de slug inválido"))
		}
	}

	activo := true
	if req.Activo != nil {
		activo = *req.Activo
	}

	var c *model.Categoria
	var err error
	for intento := 1; intento <= 2; intento++ {
		c = &model.Categoria{
			ID:          uuid.New(),
			Nombre:      nombre,
			Descripcion: limpiarDescripcion(req.Descripcion),
			Activo:      activo,
		}
		err = s.repo.WithTx(ctx, func(repo repository.CategoriaRepository) error {
			if err := s.asignarCodigo(ctx, repo, c, codigoManual); err != nil {
				return err
			}
			if err := s.asignarSlug(ctx, repo, c, slugManual); err != nil {
				return err
			}
			return repo.Crear(ctx, c)
		})
		if !errors.Is(err, gorm.ErrDuplicatedKey) || (codigoManual != "" && slugManual != "") {
			break
		}
		log.Warn().
			Int("intento", intento).
			Str("nombre", nombre).
			Str("codigo", c.Codigo).
			Str("slug", c.Slug).
			Msg("colisión de identificador al crear categoría")
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		err = ErrConflicto
	}
	if err != nil {
		return nil, s.registrar("crear", err)
	}

	s.despuesDeMutar(ctx, worker.EventoCreada, []uuid.UUID{c.ID}, c.Codigo)
	s.registrar("crear", nil)
	resp := mapCategoria(*c)
	return &resp, nil
}

func (s *categoriaService) asignarCodigo(ctx context.Context, repo repository.CategoriaRepository, c *model.Categoria, manual string) error {
	if manual == "" {
		generado, err := s.gen.codigo(ctx, repo, c.Nombre, s.now().Year())
		if err != nil {
			return err
		}
		c.Codigo = generado
		return nil
	}
	existe, err := repo.CodigoExiste(ctx, manual)
	if err != nil {
		return err
	}
	if existe {
		return validacion("codigo", "ya existe una categoría con ese código")
	}
	c.Codigo = manual
	return nil
}

func (s *categoriaService) asignarSlug(ctx context.Context, repo repository.CategoriaRepository, c *model.Categoria, manual string) error {
	if manual == "" {
		generado, err := s.gen.slug(ctx, repo, c.Nombre, c.ID)
		if err != nil {
			return err
		}
		c.Slug = generado
		return nil
	}
	existe, err := repo.SlugExiste(ctx, manual, c.ID)
	if err != nil {
		return err
	}
	if existe {
		return validacion("slug", "ya existe una categoría con ese slug")
	}
	c.Slug = manual
	return nil
}

// ── Consultas ─────────────────────────────────────────────────────────────────

func (s *categoriaService) ObtenerPorID(ctx context.Context, id uuid.UUID) (*dto.CategoriaResponse, error) {
	c, err := s.repo.ObtenerPorID(ctx, id, repository.Todas)
	if err != nil {
		return nil, noEncontrada(err)
	}
	resp := mapCategoria(*c)
	return &resp, nil
}

func (s *categoriaService) Listar(ctx context.Context, filter dto.CategoriaFilter) (*dto.CategoriaListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 20
	}

	clave := fmt.Sprintf("p%d:l%d:e%s:n%s", filter.Page, filter.Limit, filter.Estado, strings.ToLower(filter.Nombre))
	var version int64
	if s.cache != nil {
		var cached dto.CategoriaListResponse
		var ok bool
		if version, ok = s.cache.Obtener(ctx, clave, &cached); ok {
			return &cached, nil
		}
	}

	list, total, err := s.repo.Listar(ctx, filter)
	if err != nil {
		return nil, err
	}
	papelera, err := s.repo.ContarPapelera(ctx)
	if err != nil {
		return nil, err
	}

	resp := &dto.CategoriaListResponse{
		Data:       mapLista(list),
		Total:      total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: int(math.Ceil(float64(total) / float64(filter.Limit))),
		Papelera:   papelera,
	}
	if s.cache != nil {
		s.cache.Guardar(ctx, version, clave, resp)
	}
	return resp, nil
}

func (s *categoriaService) ListarPapelera(ctx context.Context) ([]dto.CategoriaResponse, error) {
	list, err := s.repo.ListarPapelera(ctx)
	if err != nil {
		return nil, err
	}
	return mapLista(list), nil
}

// ── Actualizar ────────────────────────────────────────────────────────────────

// Actualizar applies the patch to a live or trashed row. On rename the slug is
// regenerated from the new name unless it was customized before or is being
// set in this same request; a customized slug is only re-normalized. An empty
// slug in the request asks for regeneration from the current name.
func (s *categoriaService) Actualizar(ctx context.Context, id uuid.UUID, req dto.ActualizarCategoriaRequest) (*dto.CategoriaResponse, error) {
	var c *model.Categoria
	err := s.repo.WithTx(ctx, func(repo repository.CategoriaRepository) error {
		var err error
		c, err = repo.ObtenerPorID(ctx, id, repository.Todas)
		if err != nil {
			return noEncontrada(err)
		}
		nombreAnterior, slugAnterior := c.Nombre, c.Slug

		if req.Nombre != nil {
			nombre := strings.TrimSpace(*req.Nombre)
			if utf8.RuneCountInString(nombre) < 3 {
				return validacion("nombre", "debe tener al menos 3 caracteres")
			}
			c.Nombre = nombre
		}
		if req.Descripcion != nil {
			c.Descripcion = limpiarDescripcion(req.Descripcion)
		}
		if req.Activo != nil {
			c.Activo = *req.Activo
		}

		regenerar := false
		switch {
		case req.Slug != nil && strings.TrimSpace(*req.Slug) == "":
			regenerar = true
		case req.Slug != nil:
			c.Slug = slug.Normalizar(*req.Slug)
			if !slug.Valido(c.Slug) {
				return validacion("slug", "formato de slug inválido")
			}
		case c.Nombre != nombreAnterior && !slugPersonalizado(nombreAnterior, slugAnterior):
			regenerar = true
		default:
			c.Slug = slug.Normalizar(c.Slug)
		}

		if regenerar {
			if c.Slug, err = s.gen.slug(ctx, repo, c.Nombre, c.ID); err != nil {
				return err
			}
		} else if c.Slug != slugAnterior {
			existe, err := repo.SlugExiste(ctx, c.Slug, c.ID)
			if err != nil {
				return err
			}
			if existe {
				return validacion("slug", "ya existe una categoría con ese slug")
			}
		}
		return repo.Actualizar(ctx, c)
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		err = ErrConflicto
	}
	if err != nil {
		return nil, s.registrar("actualizar", err, id)
	}

	s.despuesDeMutar(ctx, worker.EventoActualizada, []uuid.UUID{id}, "")
	s.registrar("actualizar", nil)
	resp := mapCategoria(*c)
	return &resp, nil
}

// ── Estado ────────────────────────────────────────────────────────────────────

// AlternarEstado flips activo; trashed rows can be toggled too.
func (s *categoriaService) AlternarEstado(ctx context.Context, id uuid.UUID) (*dto.CategoriaResponse, error) {
	n, err := s.repo.AlternarEstado(ctx, id)
	if err == nil && n == 0 {
		err = ErrCategoriaNoEncontrada
	}
	if err != nil {
		return nil, s.registrar("alternar_estado", err, id)
	}
	c, err := s.repo.ObtenerPorID(ctx, id, repository.Todas)
	if err != nil {
		return nil, s.registrar("alternar_estado", noEncontrada(err), id)
	}

	s.despuesDeMutar(ctx, worker.EventoEstado, []uuid.UUID{id}, c.Codigo)
	s.registrar("alternar_estado", nil)
	resp := mapCategoria(*c)
	return &resp, nil
}

// EstablecerEstadoLote sets activo on every live id; unknown or trashed ids are
// skipped and reported in the per-id results.
func (s *categoriaService) EstablecerEstadoLote(ctx context.Context, ids []uuid.UUID, activo bool) (*dto.ResultadoLote, error) {
	detalle := "activo=false"
	if activo {
		detalle = "activo=true"
	}
	return s.lote(ctx, operacionLote{
		nombre:  "estado_lote",
		evento:  worker.EventoEstado,
		detalle: detalle,
		clasificar: func(c model.Categoria) (accionLote, string) {
			if c.EnPapelera() {
				return rechazar, "está en la papelera"
			}
			return aplicar, ""
		},
		ejecutar: func(ctx context.Context, repo repository.CategoriaRepository, ids []uuid.UUID) (int64, error) {
			return repo.EstablecerEstado(ctx, ids, activo)
		},
	}, ids)
}

// ── Papelera ──────────────────────────────────────────────────────────────────

// Eliminar moves a live row to the trash.
func (s *categoriaService) Eliminar(ctx context.Context, id uuid.UUID) error {
	c, err := s.mutarUna(ctx, id, func(c *model.Categoria) error {
		if c.EnPapelera() {
			return ErrCategoriaEnPapelera
		}
		return nil
	}, func(repo repository.CategoriaRepository) (int64, error) {
		return repo.EliminarSuave(ctx, []uuid.UUID{id})
	})
	if err != nil {
		return s.registrar("eliminar", err, id)
	}
	s.despuesDeMutar(ctx, worker.EventoEliminada, []uuid.UUID{id}, c.Codigo)
	s.registrar("eliminar", nil)
	return nil
}

func (s *categoriaService) EliminarLote(ctx context.Context, ids []uuid.UUID) (*dto.ResultadoLote, error) {
	return s.lote(ctx, operacionLote{
		nombre: "eliminar_lote",
		evento: worker.EventoEliminada,
		clasificar: func(c model.Categoria) (accionLote, string) {
			if c.EnPapelera() {
				return rechazar, ErrCategoriaEnPapelera.Error()
			}
			return aplicar, ""
		},
		ejecutar: func(ctx context.Context, repo repository.CategoriaRepository, ids []uuid.UUID) (int64, error) {
			return repo.EliminarSuave(ctx, ids)
		},
	}, ids)
}

// Restaurar clears deleted_at; activo keeps the value it had before trashing.
func (s *categoriaService) Restaurar(ctx context.Context, id uuid.UUID) error {
	c, err := s.mutarUna(ctx, id, func(c *model.Categoria) error {
		if !c.EnPapelera() {
			return ErrCategoriaNoEnPapelera
		}
		return nil
	}, func(repo repository.CategoriaRepository) (int64, error) {
		return repo.Restaurar(ctx, []uuid.UUID{id})
	})
	if err != nil {
		return s.registrar("restaurar", err, id)
	}
	s.despuesDeMutar(ctx, worker.EventoRestaurada, []uuid.UUID{id}, c.Codigo)
	s.registrar("restaurar", nil)
	return nil
}

func (s *categoriaService) RestaurarLote(ctx context.Context, ids []uuid.UUID) (*dto.ResultadoLote, error) {
	return s.lote(ctx, operacionLote{
		nombre: "restaurar_lote",
		evento: worker.EventoRestaurada,
		clasificar: func(c model.Categoria) (accionLote, string) {
			if !c.EnPapelera() {
				return rechazar, ErrCategoriaNoEnPapelera.Error()
			}
			return aplicar, ""
		},
		ejecutar: func(ctx context.Context, repo repository.CategoriaRepository, ids []uuid.UUID) (int64, error) {
			return repo.Restaurar(ctx, ids)
		},
	}, ids)
}

// Purgar permanently removes a row in any state. Irreversible.
func (s *categoriaService) Purgar(ctx context.Context, id uuid.UUID) error {
	c, err := s.mutarUna(ctx, id, nil, func(repo repository.CategoriaRepository) (int64, error) {
		return repo.Purgar(ctx, []uuid.UUID{id})
	})
	if err != nil {
		return s.registrar("purgar", err, id)
	}
	s.despuesDeMutar(ctx, worker.EventoPurgada, []uuid.UUID{id}, c.Codigo)
	s.registrar("purgar", nil)
	return nil
}

// PurgarLote permanently removes trashed rows; live ids are refused.
func (s *categoriaService) PurgarLote(ctx context.Context, ids []uuid.UUID) (*dto.ResultadoLote, error) {
	return s.lote(ctx, operacionLote{
		nombre: "purgar_lote",
		evento: worker.EventoPurgada,
		clasificar: func(c model.Categoria) (accionLote, string) {
			if !c.EnPapelera() {
				return rechazar, ErrCategoriaNoEnPapelera.Error()
			}
			return aplicar, ""
		},
		ejecutar: func(ctx context.Context, repo repository.CategoriaRepository, ids []uuid.UUID) (int64, error) {
			return repo.Purgar(ctx, ids)
		},
	}, ids)
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// mutarUna loads id, lets verificar refuse the current state and runs ejecutar,
// all in one transaction. A statement that touches no row means the category
// disappeared in between and is reported as not found.
func (s *categoriaService) mutarUna(
	ctx context.Context,
	id uuid.UUID,
	verificar func(c *model.Categoria) error,
	ejecutar func(repo repository.CategoriaRepository) (int64, error),
) (*model.Categoria, error) {
	var c *model.Categoria
	err := s.repo.WithTx(ctx, func(repo repository.CategoriaRepository) error {
		var err error
		c, err = repo.ObtenerPorID(ctx, id, repository.Todas)
		if err != nil {
			return noEncontrada(err)
		}
		if verificar != nil {
			if err := verificar(c); err != nil {
				return err
			}
		}
		n, err := ejecutar(repo)
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrCategoriaNoEncontrada
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func limpiarDescripcion(d *string) *string {
	if d == nil {
		return nil
	}
	v := strings.TrimSpace(*d)
	if v == "" {
		return nil
	}
	return &v
}

func noEncontrada(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrCategoriaNoEncontrada
	}
	return err
}

// despuesDeMutar drops cached pages and publishes the audit event. Both are
// best effort: the change is already committed.
func (s *categoriaService) despuesDeMutar(ctx context.Context, tipo string, ids []uuid.UUID, detalle string) {
	if s.cache != nil {
		s.cache.Invalidar(ctx)
	}
	if s.eventos == nil || len(ids) == 0 {
		return
	}
	ev := worker.EventoCategoria{
		Tipo:      tipo,
		IDs:       ids,
		Ocurrido:  s.now().UTC(),
		Detalle:   detalle,
		Actor:     actorFromContext(ctx),
		RequestID: requestIDFromContext(ctx),
	}
	if err := s.eventos.EnqueueEvento(ctx, ev); err != nil {
		log.Warn().Err(err).Str("tipo", tipo).Msg("no se pudo encolar evento de categoría")
	}
}

// registrar counts the outcome and logs failures with the ids involved.
// It returns err unchanged so callers can `return s.registrar(...)`.
func (s *categoriaService) registrar(op string, err error, ids ...uuid.UUID) error {
	if err == nil {
		operacionesCategoria.WithLabelValues(op, "ok").Inc()
		return nil
	}
	operacionesCategoria.WithLabelValues(op, "error").Inc()

	ev := log.Warn()
	var verr *ErrValidacion
	switch {
	case errors.As(err, &verr),
		errors.Is(err, ErrCategoriaNoEncontrada),
		errors.Is(err, ErrCategoriaNoEnPapelera),
		errors.Is(err, ErrCategoriaEnPapelera),
		errors.Is(err, ErrConflicto),
		errors.Is(err, ErrLoteVacio):
	default:
		ev = log.Error()
	}
	strs := make([]string, 0, len(ids))
	for _, id := range ids {
		strs = append(strs, id.String())
	}
	ev.Err(err).Str("operacion", op).Strs("ids", strs).Msg("operación de categoría fallida")
	return err
}
