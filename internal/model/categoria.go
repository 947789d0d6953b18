package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Categoria is a node of the product taxonomy. A non-null DeletedAt means the
// row sits in the trash (papelera); purged rows no longer exist.
type Categoria struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey"`
	Codigo      string         `gorm:"size:50;uniqueIndex;not null"`
	Nombre      string         `gorm:"size:255;not null"`
	Slug        string         `gorm:"size:255;uniqueIndex;not null"`
	Descripcion *string        `gorm:"size:1000"`
	Activo      bool           `gorm:"not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   gorm.DeletedAt `gorm:"index"`
}

// TableName overrides GORM's default singular → plural logic for Spanish names.
func (Categoria) TableName() string { return "categorias" }

// EnPapelera reports whether the row is soft-deleted.
func (c Categoria) EnPapelera() bool { return c.DeletedAt.Valid }
