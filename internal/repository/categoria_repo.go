package repository

import (
	"context"
	"strings"

	"sigir/internal/dto"
	"sigir/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Alcance selects which rows a lookup sees with respect to soft deletion.
type Alcance int

const (
	SoloVivas    Alcance = iota // deleted_at IS NULL (GORM default scope)
	SoloPapelera                // deleted_at IS NOT NULL
	Todas                       // live and trashed; purged rows are gone by definition
)

// CategoriaRepository defines the data access contract for categories.
// Services depend on this interface, not on the concrete GORM implementation.
type CategoriaRepository interface {
	Crear(ctx context.Context, c *model.Categoria) error
	ObtenerPorID(ctx context.Context, id uuid.UUID, alcance Alcance) (*model.Categoria, error)
	BuscarPorIDs(ctx context.Context, ids []uuid.UUID, alcance Alcance) ([]model.Categoria, error)
	Listar(ctx context.Context, filter dto.CategoriaFilter) ([]model.Categoria, int64, error)
	ListarPapelera(ctx context.Context) ([]model.Categoria, error)
	ContarPapelera(ctx context.Context) (int64, error)
	Actualizar(ctx context.Context, c *model.Categoria) error

	// Identifier lookups span live and trashed rows.
	CodigosConBase(ctx context.Context, base string) ([]string, error)
	CodigoExiste(ctx context.Context, codigo string) (bool, error)
	SlugExiste(ctx context.Context, slug string, excluir uuid.UUID) (bool, error)

	// Lifecycle statements return the number of rows they touched.
	AlternarEstado(ctx context.Context, id uuid.UUID) (int64, error)
	EstablecerEstado(ctx context.Context, ids []uuid.UUID, activo bool) (int64, error)
	EliminarSuave(ctx context.Context, ids []uuid.UUID) (int64, error)
	Restaurar(ctx context.Context, ids []uuid.UUID) (int64, error)
	Purgar(ctx context.Context, ids []uuid.UUID) (int64, error)

	// WithTx runs fn against a repository bound to a single transaction.
	WithTx(ctx context.Context, fn func(repo CategoriaRepository) error) error
}

type categoriaRepository struct{ db *gorm.DB }

func NewCategoriaRepository(db *gorm.DB) CategoriaRepository {
	return &categoriaRepository{db: db}
}

func (r *categoriaRepository) scoped(ctx context.Context, alcance Alcance) *gorm.DB {
	q := r.db.WithContext(ctx)
	switch alcance {
	case SoloPapelera:
		q = q.Unscoped().Where("deleted_at IS NOT NULL")
	case Todas:
		q = q.Unscoped()
	}
	return q
}

func (r *categoriaRepository) Crear(ctx context.Context, c *model.Categoria) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *categoriaRepository) ObtenerPorID(ctx context.Context, id uuid.UUID, alcance Alcance) (*model.Categoria, error) {
	var c model.Categoria
	err := r.scoped(ctx, alcance).Where("id = ?", id).First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *categoriaRepository) BuscarPorIDs(ctx context.Context, ids []uuid.UUID, alcance Alcance) ([]model.Categoria, error) {
	var list []model.Categoria
	if len(ids) == 0 {
		return list, nil
	}
	err := r.scoped(ctx, alcance).Where("id IN ?", ids).Find(&list).Error
	return list, err
}

func (r *categoriaRepository) Listar(ctx context.Context, filter dto.CategoriaFilter) ([]model.Categoria, int64, error) {
	var list []model.Categoria
	var total int64

	q := r.db.WithContext(ctx).Model(&model.Categoria{})

	switch filter.Estado {
	case "activo":
		q = q.Where("activo = true")
	case "inactivo":
		q = q.Where("activo = false")
	}
	if filter.Nombre != "" {
		q = q.Where("nombre ILIKE ?", "%"+escaparLike(filter.Nombre)+"%")
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.Limit > 0 {
		page := max(filter.Page, 1)
		q = q.Limit(filter.Limit).Offset((page - 1) * filter.Limit)
	}
	err := q.Order("created_at DESC").Find(&list).Error
	return list, total, err
}

func (r *categoriaRepository) ListarPapelera(ctx context.Context) ([]model.Categoria, error) {
	var list []model.Categoria
	err := r.scoped(ctx, SoloPapelera).Order("deleted_at DESC").Find(&list).Error
	return list, err
}

func (r *categoriaRepository) ContarPapelera(ctx context.Context) (int64, error) {
	var n int64
	err := r.scoped(ctx, SoloPapelera).Model(&model.Categoria{}).Count(&n).Error
	return n, err
}

// Actualizar saves every column. Unscoped so trashed rows can be edited too;
// DeletedAt is written back unchanged.
func (r *categoriaRepository) Actualizar(ctx context.Context, c *model.Categoria) error {
	return r.db.WithContext(ctx).Unscoped().Save(c).Error
}

func (r *categoriaRepository) CodigosConBase(ctx context.Context, base string) ([]string, error) {
	var codes []string
	err := r.scoped(ctx, Todas).Model(&model.Categoria{}).
		Where("codigo LIKE ?", escaparLike(base)+"%").
		Pluck("codigo", &codes).Error
	return codes, err
}

func (r *categoriaRepository) CodigoExiste(ctx context.Context, codigo string) (bool, error) {
	var n int64
	err := r.scoped(ctx, Todas).Model(&model.Categoria{}).Where("codigo = ?", codigo).Count(&n).Error
	return n > 0, err
}

func (r *categoriaRepository) SlugExiste(ctx context.Context, slug string, excluir uuid.UUID) (bool, error) {
	var n int64
	q := r.scoped(ctx, Todas).Model(&model.Categoria{}).Where("slug = ?", slug)
	if excluir != uuid.Nil {
		q = q.Where("id <> ?", excluir)
	}
	err := q.Count(&n).Error
	return n > 0, err
}

func (r *categoriaRepository) AlternarEstado(ctx context.Context, id uuid.UUID) (int64, error) {
	res := r.scoped(ctx, Todas).Model(&model.Categoria{}).
		Where("id = ?", id).
		Update("activo", gorm.Expr("NOT activo"))
	return res.RowsAffected, res.Error
}

// EstablecerEstado only touches live rows; unknown or trashed ids are ignored.
func (r *categoriaRepository) EstablecerEstado(ctx context.Context, ids []uuid.UUID, activo bool) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.Categoria{}).
		Where("id IN ?", ids).
		Update("activo", activo)
	return res.RowsAffected, res.Error
}

// EliminarSuave stamps deleted_at and updated_at on live rows. The default
// scope keeps already-trashed rows untouched.
func (r *categoriaRepository) EliminarSuave(ctx context.Context, ids []uuid.UUID) (int64, error) {
	now := r.db.NowFunc()
	res := r.db.WithContext(ctx).Model(&model.Categoria{}).
		Where("id IN ?", ids).
		Updates(map[string]any{"deleted_at": now, "updated_at": now})
	return res.RowsAffected, res.Error
}

func (r *categoriaRepository) Restaurar(ctx context.Context, ids []uuid.UUID) (int64, error) {
	res := r.scoped(ctx, SoloPapelera).Model(&model.Categoria{}).
		Where("id IN ?", ids).
		Update("deleted_at", nil)
	return res.RowsAffected, res.Error
}

func (r *categoriaRepository) Purgar(ctx context.Context, ids []uuid.UUID) (int64, error) {
	res := r.scoped(ctx, Todas).Where("id IN ?", ids).Delete(&model.Categoria{})
	return res.RowsAffected, res.Error
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// escaparLike makes s match literally inside a LIKE pattern (backslash is
// the default escape character in Postgres).
func escaparLike(s string) string {
	return likeEscaper.Replace(s)
}

func (r *categoriaRepository) WithTx(ctx context.Context, fn func(repo CategoriaRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&categoriaRepository{db: tx})
	})
}
