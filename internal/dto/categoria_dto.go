package dto

import (
	"time"

	"github.com/google/uuid"
)

// ── Request DTOs ──────────────────────────────────────────────────────────────

type CrearCategoriaRequest struct {
	Nombre      string  `json:"nombre"      validate:"required,min=3,max=255"`
	Descripcion *string `json:"descripcion" validate:"omitempty,max=1000"`
	Activo      *bool   `json:"activo"`
	Slug        *string `json:"slug"        validate:"omitempty,max=255"`
	Codigo      *string `json:"codigo"      validate:"omitempty,max=50"`
}

type ActualizarCategoriaRequest struct {
	Nombre      *string `json:"nombre"      validate:"omitempty,min=3,max=255"`
	Descripcion *string `json:"descripcion" validate:"omitempty,max=1000"`
	Activo      *bool   `json:"activo"`
	Slug        *string `json:"slug"        validate:"omitempty,max=255"`
}

// LoteRequest carries the id set of a bulk command.
type LoteRequest struct {
	IDs []uuid.UUID `json:"ids" validate:"required,min=1"`
}

type LoteEstadoRequest struct {
	IDs    []uuid.UUID `json:"ids"    validate:"required,min=1"`
	Estado *bool       `json:"estado" validate:"required"`
}

// ─── Filter / Pagination ─────────────────────────────────────────────────────

type CategoriaFilter struct {
	Nombre string `form:"nombre"`
	Estado string `form:"estado" validate:"omitempty,oneof=activo inactivo all"`
	Page   int    `form:"page,default=1"   validate:"min=1"`
	Limit  int    `form:"limit,default=20" validate:"min=1,max=100"`
}

// ── Response DTOs ─────────────────────────────────────────────────────────────

const (
	EstadoActivo   = "Activo"
	EstadoInactivo = "Inactivo"
)

type CategoriaResponse struct {
	ID          uuid.UUID  `json:"id"`
	Codigo      string     `json:"codigo"`
	Nombre      string     `json:"nombre"`
	Slug        string     `json:"slug"`
	Descripcion *string    `json:"descripcion"`
	Estado      string     `json:"estado"`
	EstadoNum   int        `json:"estado_num"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at"`
}

type CategoriaListResponse struct {
	Data       []CategoriaResponse `json:"data"`
	Total      int64               `json:"total"`
	Page       int                 `json:"page"`
	Limit      int                 `json:"limit"`
	TotalPages int                 `json:"total_pages"`
	Papelera   int64               `json:"papelera"`
}

// ResultadoItem is the outcome of a bulk command for one id.
type ResultadoItem struct {
	ID    uuid.UUID `json:"id"`
	OK    bool      `json:"ok"`
	Error string    `json:"error,omitempty"`
}

type ResultadoLote struct {
	Solicitados int             `json:"solicitados"`
	Procesados  int             `json:"procesados"`
	Fallidos    int             `json:"fallidos"`
	Resultados  []ResultadoItem `json:"resultados"`
}
