package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"testing"
	"time"

	"sigir/internal/dto"
	"sigir/internal/model"
	"sigir/internal/repository"
	"sigir/internal/worker"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// ── In-memory CategoriaRepository stub ───────────────────────────────────────

type stubCategoriaRepo struct {
	filas map[uuid.UUID]*model.Categoria
	now   time.Time

	// duplicados makes the next N Crear calls fail with gorm.ErrDuplicatedKey.
	duplicados    int
	crearLlamadas int

	// despuesDeListar runs once Listar has read its rows; antesDeMutar runs
	// before the soft-delete, restore and purge statements.
	despuesDeListar func()
	antesDeMutar    func()
}

var _ repository.CategoriaRepository = (*stubCategoriaRepo)(nil)

func newStubCategoriaRepo() *stubCategoriaRepo {
	return &stubCategoriaRepo{
		filas: make(map[uuid.UUID]*model.Categoria),
		now:   time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC),
	}
}

func (r *stubCategoriaRepo) visible(c *model.Categoria, alcance repository.Alcance) bool {
	switch alcance {
	case repository.SoloVivas:
		return !c.DeletedAt.Valid
	case repository.SoloPapelera:
		return c.DeletedAt.Valid
	}
	return true
}

func (r *stubCategoriaRepo) Crear(_ context.Context, c *model.Categoria) error {
	r.crearLlamadas++
	if r.duplicados > 0 {
		r.duplicados--
		return gorm.ErrDuplicatedKey
	}
	for _, f := range r.filas {
		if f.Codigo == c.Codigo || f.Slug == c.Slug {
			return gorm.ErrDuplicatedKey
		}
	}
	r.now = r.now.Add(time.Second)
	c.CreatedAt, c.UpdatedAt = r.now, r.now
	cp := *c
	r.filas[c.ID] = &cp
	return nil
}

func (r *stubCategoriaRepo) ObtenerPorID(_ context.Context, id uuid.UUID, alcance repository.Alcance) (*model.Categoria, error) {
	c, ok := r.filas[id]
	if !ok || !r.visible(c, alcance) {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *stubCategoriaRepo) BuscarPorIDs(_ context.Context, ids []uuid.UUID, alcance repository.Alcance) ([]model.Categoria, error) {
	var out []model.Categoria
	for _, id := range ids {
		if c, ok := r.filas[id]; ok && r.visible(c, alcance) {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (r *stubCategoriaRepo) Listar(_ context.Context, filter dto.CategoriaFilter) ([]model.Categoria, int64, error) {
	var out []model.Categoria
	for _, c := range r.filas {
		if c.DeletedAt.Valid {
			continue
		}
		if filter.Estado == "activo" && !c.Activo || filter.Estado == "inactivo" && c.Activo {
			continue
		}
		if filter.Nombre != "" && !strings.Contains(strings.ToLower(c.Nombre), strings.ToLower(filter.Nombre)) {
			continue
		}
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if r.despuesDeListar != nil {
		r.despuesDeListar()
	}
	return out, int64(len(out)), nil
}

func (r *stubCategoriaRepo) ListarPapelera(_ context.Context) ([]model.Categoria, error) {
	var out []model.Categoria
	for _, c := range r.filas {
		if c.DeletedAt.Valid {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (r *stubCategoriaRepo) ContarPapelera(ctx context.Context) (int64, error) {
	l, _ := r.ListarPapelera(ctx)
	return int64(len(l)), nil
}

func (r *stubCategoriaRepo) Actualizar(_ context.Context, c *model.Categoria) error {
	if _, ok := r.filas[c.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *c
	r.filas[c.ID] = &cp
	return nil
}

func (r *stubCategoriaRepo) CodigosConBase(_ context.Context, base string) ([]string, error) {
	var out []string
	for _, c := range r.filas {
		if strings.HasPrefix(c.Codigo, base) {
			out = append(out, c.Codigo)
		}
	}
	return out, nil
}

func (r *stubCategoriaRepo) CodigoExiste(_ context.Context, codigo string) (bool, error) {
	for _, c := range r.filas {
		if c.Codigo == codigo {
			return true, nil
		}
	}
	return false, nil
}

func (r *stubCategoriaRepo) SlugExiste(_ context.Context, slug string, excluir uuid.UUID) (bool, error) {
	for _, c := range r.filas {
		if c.Slug == slug && c.ID != excluir {
			return true, nil
		}
	}
	return false, nil
}

func (r *stubCategoriaRepo) AlternarEstado(_ context.Context, id uuid.UUID) (int64, error) {
	c, ok := r.filas[id]
	if !ok {
		return 0, nil
	}
	c.Activo = !c.Activo
	return 1, nil
}

func (r *stubCategoriaRepo) EstablecerEstado(_ context.Context, ids []uuid.UUID, activo bool) (int64, error) {
	var n int64
	for _, id := range ids {
		if c, ok := r.filas[id]; ok && !c.DeletedAt.Valid {
			c.Activo = activo
			n++
		}
	}
	return n, nil
}

func (r *stubCategoriaRepo) mutando() {
	if r.antesDeMutar != nil {
		r.antesDeMutar()
	}
}

func (r *stubCategoriaRepo) EliminarSuave(_ context.Context, ids []uuid.UUID) (int64, error) {
	r.mutando()
	var n int64
	for _, id := range ids {
		if c, ok := r.filas[id]; ok && !c.DeletedAt.Valid {
			c.DeletedAt = gorm.DeletedAt{Time: r.now, Valid: true}
			n++
		}
	}
	return n, nil
}

func (r *stubCategoriaRepo) Restaurar(_ context.Context, ids []uuid.UUID) (int64, error) {
	r.mutando()
	var n int64
	for _, id := range ids {
		if c, ok := r.filas[id]; ok && c.DeletedAt.Valid {
			c.DeletedAt = gorm.DeletedAt{}
			n++
		}
	}
	return n, nil
}

func (r *stubCategoriaRepo) Purgar(_ context.Context, ids []uuid.UUID) (int64, error) {
	r.mutando()
	var n int64
	for _, id := range ids {
		if _, ok := r.filas[id]; ok {
			delete(r.filas, id)
			n++
		}
	}
	return n, nil
}

func (r *stubCategoriaRepo) WithTx(_ context.Context, fn func(repo repository.CategoriaRepository) error) error {
	return fn(r)
}

// ── Collaborator stubs ───────────────────────────────────────────────────────

type stubPublicador struct{ eventos []worker.EventoCategoria }

func (p *stubPublicador) EnqueueEvento(_ context.Context, ev worker.EventoCategoria) error {
	p.eventos = append(p.eventos, ev)
	return nil
}

// stubCache keys pages by version like infra.ListaCache: Invalidar only bumps
// the version, older pages stay in the map but are never read again.
type stubCache struct {
	version        int64
	paginas        map[string]dto.CategoriaListResponse
	invalidaciones int
}

func newStubCache() *stubCache {
	return &stubCache{paginas: make(map[string]dto.CategoriaListResponse)}
}

func (c *stubCache) key(version int64, clave string) string {
	return fmt.Sprintf("v%d:%s", version, clave)
}

func (c *stubCache) Obtener(_ context.Context, clave string, dest any) (int64, bool) {
	v, ok := c.paginas[c.key(c.version, clave)]
	if ok {
		*(dest.(*dto.CategoriaListResponse)) = v
	}
	return c.version, ok
}

func (c *stubCache) Guardar(_ context.Context, version int64, clave string, valor any) {
	c.paginas[c.key(version, clave)] = *(valor.(*dto.CategoriaListResponse))
}

func (c *stubCache) Invalidar(_ context.Context) {
	c.invalidaciones++
	c.version++
}

// ── Helpers ──────────────────────────────────────────────────────────────────

func newTestService(repo *stubCategoriaRepo, opts CategoriaOptions) CategoriaService {
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC) }
	}
	return NewCategoriaService(repo, opts)
}

func ptr[T any](v T) *T { return &v }

func crear(t *testing.T, svc CategoriaService, nombre string) *dto.CategoriaResponse {
	t.Helper()
	resp, err := svc.Crear(context.Background(), dto.CrearCategoriaRequest{Nombre: nombre})
	require.NoError(t, err)
	return resp
}

// ── Crear ────────────────────────────────────────────────────────────────────

func TestCrear_SecuenciaYSlug(t *testing.T) {
	svc := newTestService(newStubCategoriaRepo(), CategoriaOptions{})

	motores := crear(t, svc, "Motores")
	assert.Equal(t, "MOT-2025001", motores.Codigo)
	assert.Equal(t, "motores", motores.Slug)
	assert.Equal(t, dto.EstadoActivo, motores.Estado)
	assert.Equal(t, 1, motores.EstadoNum)

	motos := crear(t, svc, "Motos")
	assert.Equal(t, "MOT-2025002", motos.Codigo)
	assert.Equal(t, "motos", motos.Slug)

	otraVez := crear(t, svc, "Motos")
	assert.Equal(t, "MOT-2025003", otraVez.Codigo)
	assert.Equal(t, "motos-1", otraVez.Slug)

	yOtra := crear(t, svc, "motos")
	assert.Equal(t, "motos-2", yOtra.Slug)
}

func TestCrear_PrefijoFallback(t *testing.T) {
	svc := newTestService(newStubCategoriaRepo(), CategoriaOptions{PrefijoDefault: "GEN"})

	resp := crear(t, svc, "A-1 2")
	assert.Equal(t, "GEN-2025001", resp.Codigo)
	assert.Equal(t, "a-1-2", resp.Slug)
}

func TestCrear_SlugVacioUsaFallback(t *testing.T) {
	svc := newTestService(newStubCategoriaRepo(), CategoriaOptions{})

	resp := crear(t, svc, "¡¡¡!!!")
	assert.Equal(t, "categoria", resp.Slug)
	assert.Equal(t, "CAT-2025001", resp.Codigo)
}

func TestCrear_SecuenciaContinuaConPapelera(t *testing.T) {
	svc := newTestService(newStubCategoriaRepo(), CategoriaOptions{})
	ctx := context.Background()

	first := crear(t, svc, "Frenos")
	require.NoError(t, svc.Eliminar(ctx, first.ID))

	second := crear(t, svc, "Frenos")
	assert.Equal(t, "FRE-2025002", second.Codigo)
	assert.Equal(t, "frenos-1", second.Slug, "trashed rows keep their slug")
}

func TestCrear_AnchoConfigurable(t *testing.T) {
	svc := newTestService(newStubCategoriaRepo(), CategoriaOptions{AnchoSecuencia: 5})

	resp := crear(t, svc, "Lubricantes")
	assert.Equal(t, "LUB-202500001", resp.Codigo)
}

func TestCrear_InactivoYDescripcion(t *testing.T) {
	svc := newTestService(newStubCategoriaRepo(), CategoriaOptions{})

	resp, err := svc.Crear(context.Background(), dto.CrearCategoriaRequest{
		Nombre:      "  Cascos  ",
		Descripcion: ptr("  Cascos integrales  "),
		Activo:      ptr(false),
	})
	require.NoError(t, err)
	assert.Equal(t, "Cascos", resp.Nombre)
	assert.Equal(t, dto.EstadoInactivo, resp.Estado)
	assert.Equal(t, 0, resp.EstadoNum)
	require.NotNil(t, resp.Descripcion)
	assert.Equal(t, "Cascos integrales", *resp.Descripcion)
}

func TestCrear_NombreCorto(t *testing.T) {
	svc := newTestService(newStubCategoriaRepo(), CategoriaOptions{})

	_, err := svc.Crear(context.Background(), dto.CrearCategoriaRequest{Nombre: " ab "})
	var verr *ErrValidacion
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "nombre", verr.Campo)
}

func TestCrear_CodigoYSlugManuales(t *testing.T) {
	svc := newTestService(newStubCategoriaRepo(), CategoriaOptions{})
	ctx := context.Background()

	resp, err := svc.Crear(ctx, dto.CrearCategoriaRequest{
		Nombre: "Neumáticos",
		Codigo: ptr(" neu-especial "),
		Slug:   ptr("Cubiertas Premium"),
	})
	require.NoError(t, err)
	assert.Equal(t, "NEU-ESPECIAL", resp.Codigo)
	assert.Equal(t, "cubiertas-premium", resp.Slug)

	_, err = svc.Crear(ctx, dto.CrearCategoriaRequest{Nombre: "Otra cosa", Codigo: ptr("NEU-ESPECIAL")})
	var verr *ErrValidacion
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "codigo", verr.Campo)

	_, err = svc.Crear(ctx, dto.CrearCategoriaRequest{Nombre: "Otra cosa", Slug: ptr("cubiertas-premium")})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "slug", verr.Campo)

	_, err = svc.Crear(ctx, dto.CrearCategoriaRequest{Nombre: "Otra cosa", Codigo: ptr("NEU_01")})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "codigo", verr.Campo)
}

func TestCrear_CodigoManualFueraDeRangoNoDesbordaSecuencia(t *testing.T) {
	svc := newTestService(newStubCategoriaRepo(), CategoriaOptions{})

	_, err := svc.Crear(context.Background(), dto.CrearCategoriaRequest{
		Nombre: "Motores importados",
		Codigo: ptr("MOT-20259223372036854775807"),
	})
	require.NoError(t, err)

	resp := crear(t, svc, "Motos")
	assert.Equal(t, "MOT-2025001", resp.Codigo)
}

func TestCrear_ReintentaUnaVezAnteDuplicado(t *testing.T) {
	repo := newStubCategoriaRepo()
	repo.duplicados = 1
	svc := newTestService(repo, CategoriaOptions{})

	resp, err := svc.Crear(context.Background(), dto.CrearCategoriaRequest{Nombre: "Escapes"})
	require.NoError(t, err)
	assert.Equal(t, "ESC-2025001", resp.Codigo)
	assert.Equal(t, 2, repo.crearLlamadas)
}

func TestCrear_ConflictoTrasReintento(t *testing.T) {
	repo := newStubCategoriaRepo()
	repo.duplicados = 2
	svc := newTestService(repo, CategoriaOptions{})

	_, err := svc.Crear(context.Background(), dto.CrearCategoriaRequest{Nombre: "Escapes"})
	assert.ErrorIs(t, err, ErrConflicto)
	assert.Equal(t, 2, repo.crearLlamadas)
	assert.Empty(t, repo.filas)
}

// ── Actualizar ───────────────────────────────────────────────────────────────

func TestActualizar_RenombrarRegeneraSlug(t *testing.T) {
	svc := newTestService(newStubCategoriaRepo(), CategoriaOptions{})
	ctx := context.Background()
	c := crear(t, svc, "Motores")

	resp, err := svc.Actualizar(ctx, c.ID, dto.ActualizarCategoriaRequest{Nombre: ptr("Motores Eléctricos")})
	require.NoError(t, err)
	assert.Equal(t, "motores-electricos", resp.Slug)
	assert.Equal(t, c.Codigo, resp.Codigo, "code never changes on rename")
}

func TestActualizar_RenombrarConSufijoRegenera(t *testing.T) {
	svc := newTestService(newStubCategoriaRepo(), CategoriaOptions{})
	ctx := context.Background()
	crear(t, svc, "Motos")
	dup := crear(t, svc, "Motos")
	require.Equal(t, "motos-1", dup.Slug)

	resp, err := svc.Actualizar(ctx, dup.ID, dto.ActualizarCategoriaRequest{Nombre: ptr("Motos Clásicas")})
	require.NoError(t, err)
	assert.Equal(t, "motos-clasicas", resp.Slug)
}

func TestActualizar_SlugPersonalizadoSeConserva(t *testing.T) {
	svc := newTestService(newStubCategoriaRepo(), CategoriaOptions{})
	ctx := context.Background()
	c := crear(t, svc, "Motores")

	resp, err := svc.Actualizar(ctx, c.ID, dto.ActualizarCategoriaRequest{Slug: ptr("Repuestos Motor")})
	require.NoError(t, err)
	require.Equal(t, "repuestos-motor", resp.Slug)

	resp, err = svc.Actualizar(ctx, c.ID, dto.ActualizarCategoriaRequest{Nombre: ptr("Motores Diesel")})
	require.NoError(t, err)
	assert.Equal(t, "repuestos-motor", resp.Slug)
	assert.Equal(t, "Motores Diesel", resp.Nombre)
}

func TestActualizar_SlugEditadoEnMismaPeticion(t *testing.T) {
	svc := newTestService(newStubCategoriaRepo(), CategoriaOptions{})
	c := crear(t, svc, "Motores")

	resp, err := svc.Actualizar(context.Background(), c.ID, dto.ActualizarCategoriaRequest{
		Nombre: ptr("Transmisión"),
		Slug:   ptr("cajas DE cambio"),
	})
	require.NoError(t, err)
	assert.Equal(t, "cajas-de-cambio", resp.Slug)
}

func TestActualizar_SlugVacioRegenera(t *testing.T) {
	svc := newTestService(newStubCategoriaRepo(), CategoriaOptions{})
	ctx := context.Background()
	c := crear(t, svc, "Motores")
	_, err := svc.Actualizar(ctx, c.ID, dto.ActualizarCategoriaRequest{Slug: ptr("custom")})
	require.NoError(t, err)

	resp, err := svc.Actualizar(ctx, c.ID, dto.ActualizarCategoriaRequest{Slug: ptr("  ")})
	require.NoError(t, err)
	assert.Equal(t, "motores", resp.Slug)
}

func TestActualizar_SlugDuplicado(t *testing.T) {
	svc := newTestService(newStubCategoriaRepo(), CategoriaOptions{})
	ctx := context.Background()
	crear(t, svc, "Motores")
	otra := crear(t, svc, "Frenos")

	_, err := svc.Actualizar(ctx, otra.ID, dto.ActualizarCategoriaRequest{Slug: ptr("motores")})
	var verr *ErrValidacion
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "slug", verr.Campo)
}

func TestActualizar_NoEncontrada(t *testing.T) {
	svc := newTestService(newStubCategoriaRepo(), CategoriaOptions{})

	_, err := svc.Actualizar(context.Background(), uuid.New(), dto.ActualizarCategoriaRequest{Nombre: ptr("Algo nuevo")})
	assert.ErrorIs(t, err, ErrCategoriaNoEncontrada)
}

func TestActualizar_EnPapelera(t *testing.T) {
	svc := newTestService(newStubCategoriaRepo(), CategoriaOptions{})
	ctx := context.Background()
	c := crear(t, svc, "Motores")
	require.NoError(t, svc.Eliminar(ctx, c.ID))

	resp, err := svc.Actualizar(ctx, c.ID, dto.ActualizarCategoriaRequest{Descripcion: ptr("archivada")})
	require.NoError(t, err)
	require.NotNil(t, resp.DeletedAt)
	assert.Equal(t, "archivada", *resp.Descripcion)
}

// ── Estado ───────────────────────────────────────────────────────────────────

func TestAlternarEstado(t *testing.T) {
	svc := newTestService(newStubCategoriaRepo(), CategoriaOptions{})
	ctx := context.Background()
	c := crear(t, svc, "Motores")

	resp, err := svc.AlternarEstado(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, dto.EstadoInactivo, resp.Estado)

	resp, err = svc.AlternarEstado(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, dto.EstadoActivo, resp.Estado)

	_, err = svc.AlternarEstado(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrCategoriaNoEncontrada)
}

func TestEstablecerEstadoLote(t *testing.T) {
	svc := newTestService(newStubCategoriaRepo(), CategoriaOptions{})
	ctx := context.Background()
	a := crear(t, svc, "Motores")
	b := crear(t, svc, "Frenos")
	trashed := crear(t, svc, "Escapes")
	require.NoError(t, svc.Eliminar(ctx, trashed.ID))
	desconocido := uuid.New()

	res, err := svc.EstablecerEstadoLote(ctx, []uuid.UUID{a.ID, b.ID, trashed.ID, desconocido, a.ID}, false)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Solicitados)
	assert.Equal(t, 2, res.Procesados)
	assert.Equal(t, 2, res.Fallidos)
	require.Len(t, res.Resultados, 4)
	assert.False(t, res.Resultados[2].OK)
	assert.Equal(t, ErrCategoriaNoEncontrada.Error(), res.Resultados[3].Error)

	for _, id := range []uuid.UUID{a.ID, b.ID} {
		got, err := svc.ObtenerPorID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, dto.EstadoInactivo, got.Estado)
	}
	got, err := svc.ObtenerPorID(ctx, trashed.ID)
	require.NoError(t, err)
	assert.Equal(t, dto.EstadoActivo, got.Estado, "trashed rows are not touched")
}

func TestLoteVacio(t *testing.T) {
	svc := newTestService(newStubCategoriaRepo(), CategoriaOptions{})

	_, err := svc.EliminarLote(context.Background(), nil)
	assert.ErrorIs(t, err, ErrLoteVacio)
	_, err = svc.PurgarLote(context.Background(), []uuid.UUID{uuid.Nil})
	assert.ErrorIs(t, err, ErrLoteVacio)
}

// ── Papelera ─────────────────────────────────────────────────────────────────

func TestEliminarYRestaurar_ConservaEstado(t *testing.T) {
	svc := newTestService(newStubCategoriaRepo(), CategoriaOptions{})
	ctx := context.Background()
	inactiva, err := svc.Crear(ctx, dto.CrearCategoriaRequest{Nombre: "Motores", Activo: ptr(false)})
	require.NoError(t, err)

	require.NoError(t, svc.Eliminar(ctx, inactiva.ID))
	papelera, err := svc.ListarPapelera(ctx)
	require.NoError(t, err)
	require.Len(t, papelera, 1)
	assert.NotNil(t, papelera[0].DeletedAt)

	assert.ErrorIs(t, svc.Eliminar(ctx, inactiva.ID), ErrCategoriaEnPapelera)

	require.NoError(t, svc.Restaurar(ctx, inactiva.ID))
	got, err := svc.ObtenerPorID(ctx, inactiva.ID)
	require.NoError(t, err)
	assert.Nil(t, got.DeletedAt)
	assert.Equal(t, dto.EstadoInactivo, got.Estado)

	assert.ErrorIs(t, svc.Restaurar(ctx, inactiva.ID), ErrCategoriaNoEnPapelera)
	assert.ErrorIs(t, svc.Restaurar(ctx, uuid.New()), ErrCategoriaNoEncontrada)
}

func TestEliminarLoteYRestaurarLote(t *testing.T) {
	svc := newTestService(newStubCategoriaRepo(), CategoriaOptions{})
	ctx := context.Background()
	a := crear(t, svc, "Motores")
	b, err := svc.Crear(ctx, dto.CrearCategoriaRequest{Nombre: "Frenos", Activo: ptr(false)})
	require.NoError(t, err)

	res, err := svc.EliminarLote(ctx, []uuid.UUID{a.ID, b.ID})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Procesados)
	assert.Zero(t, res.Fallidos)

	lista, err := svc.Listar(ctx, dto.CategoriaFilter{})
	require.NoError(t, err)
	assert.Empty(t, lista.Data)
	assert.EqualValues(t, 2, lista.Papelera)

	res, err = svc.RestaurarLote(ctx, []uuid.UUID{a.ID, b.ID})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Procesados)

	gotA, _ := svc.ObtenerPorID(ctx, a.ID)
	gotB, _ := svc.ObtenerPorID(ctx, b.ID)
	assert.Equal(t, dto.EstadoActivo, gotA.Estado)
	assert.Equal(t, dto.EstadoInactivo, gotB.Estado)

	res, err = svc.RestaurarLote(ctx, []uuid.UUID{a.ID})
	require.NoError(t, err)
	assert.Zero(t, res.Procesados)
	assert.Equal(t, ErrCategoriaNoEnPapelera.Error(), res.Resultados[0].Error)
}

func TestPurgar(t *testing.T) {
	svc := newTestService(newStubCategoriaRepo(), CategoriaOptions{})
	ctx := context.Background()
	viva := crear(t, svc, "Motores")

	require.NoError(t, svc.Purgar(ctx, viva.ID))
	_, err := svc.ObtenerPorID(ctx, viva.ID)
	assert.ErrorIs(t, err, ErrCategoriaNoEncontrada)
	assert.ErrorIs(t, svc.Purgar(ctx, viva.ID), ErrCategoriaNoEncontrada)
}

func TestPurgarLote_SoloPapelera(t *testing.T) {
	svc := newTestService(newStubCategoriaRepo(), CategoriaOptions{})
	ctx := context.Background()
	viva := crear(t, svc, "Motores")
	trashed := crear(t, svc, "Frenos")
	require.NoError(t, svc.Eliminar(ctx, trashed.ID))

	res, err := svc.PurgarLote(ctx, []uuid.UUID{viva.ID, trashed.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Procesados)
	assert.False(t, res.Resultados[0].OK)
	assert.True(t, res.Resultados[1].OK)

	_, err = svc.ObtenerPorID(ctx, trashed.ID)
	assert.ErrorIs(t, err, ErrCategoriaNoEncontrada)
	_, err = svc.ObtenerPorID(ctx, viva.ID)
	assert.NoError(t, err)
}

func TestMutacionSobreFilaPurgadaEnParalelo(t *testing.T) {
	tests := []struct {
		name     string
		preparar func(t *testing.T, svc CategoriaService, id uuid.UUID)
		mutar    func(svc CategoriaService, id uuid.UUID) error
	}{
		{
			name:     "eliminar",
			preparar: func(*testing.T, CategoriaService, uuid.UUID) {},
			mutar:    func(svc CategoriaService, id uuid.UUID) error { return svc.Eliminar(context.Background(), id) },
		},
		{
			name: "restaurar",
			preparar: func(t *testing.T, svc CategoriaService, id uuid.UUID) {
				require.NoError(t, svc.Eliminar(context.Background(), id))
			},
			mutar: func(svc CategoriaService, id uuid.UUID) error { return svc.Restaurar(context.Background(), id) },
		},
		{
			name:     "purgar",
			preparar: func(*testing.T, CategoriaService, uuid.UUID) {},
			mutar:    func(svc CategoriaService, id uuid.UUID) error { return svc.Purgar(context.Background(), id) },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newStubCategoriaRepo()
			pub := &stubPublicador{}
			svc := newTestService(repo, CategoriaOptions{Eventos: pub})
			c := crear(t, svc, "Motores")
			tt.preparar(t, svc, c.ID)
			pub.eventos = nil

			// another request purges the row between the state check and the statement
			repo.antesDeMutar = func() { delete(repo.filas, c.ID) }

			assert.ErrorIs(t, tt.mutar(svc, c.ID), ErrCategoriaNoEncontrada)
			assert.Empty(t, pub.eventos)
		})
	}
}

// ── Listar ───────────────────────────────────────────────────────────────────

func TestListar_FiltrosYPaginado(t *testing.T) {
	svc := newTestService(newStubCategoriaRepo(), CategoriaOptions{})
	ctx := context.Background()
	crear(t, svc, "Motores")
	crear(t, svc, "Motos")
	_, err := svc.Crear(ctx, dto.CrearCategoriaRequest{Nombre: "Frenos", Activo: ptr(false)})
	require.NoError(t, err)

	all, err := svc.Listar(ctx, dto.CategoriaFilter{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, all.Total)
	assert.Equal(t, 2, all.TotalPages)
	assert.Equal(t, "Frenos", all.Data[0].Nombre, "newest first")

	activos, err := svc.Listar(ctx, dto.CategoriaFilter{Estado: "activo"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, activos.Total)

	mot, err := svc.Listar(ctx, dto.CategoriaFilter{Nombre: "mot"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, mot.Total)
}

func TestListar_CacheSeInvalidaAlMutar(t *testing.T) {
	cache := newStubCache()
	svc := newTestService(newStubCategoriaRepo(), CategoriaOptions{Cache: cache})
	ctx := context.Background()
	crear(t, svc, "Motores")

	first, err := svc.Listar(ctx, dto.CategoriaFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, first.Total)
	assert.Len(t, cache.paginas, 1)

	again, err := svc.Listar(ctx, dto.CategoriaFilter{})
	require.NoError(t, err)
	assert.Equal(t, first, again)
	assert.Len(t, cache.paginas, 1, "second read is a hit")

	crear(t, svc, "Frenos")

	second, err := svc.Listar(ctx, dto.CategoriaFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, second.Total)
	assert.Equal(t, 2, cache.invalidaciones)
}

func TestListar_MutacionDuranteLecturaNoQuedaEnCache(t *testing.T) {
	cache := newStubCache()
	repo := newStubCategoriaRepo()
	svc := newTestService(repo, CategoriaOptions{Cache: cache})
	ctx := context.Background()
	c := crear(t, svc, "Motores")

	// trash the row after Listar has read it but before the page is stored
	repo.despuesDeListar = func() {
		repo.despuesDeListar = nil
		require.NoError(t, svc.Eliminar(ctx, c.ID))
	}
	first, err := svc.Listar(ctx, dto.CategoriaFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, first.Total)

	second, err := svc.Listar(ctx, dto.CategoriaFilter{})
	require.NoError(t, err)
	assert.Zero(t, second.Total, "trashed row must not be served from cache")
	assert.Empty(t, second.Data)
	assert.EqualValues(t, 1, second.Papelera)
}

// ── Eventos ──────────────────────────────────────────────────────────────────

func TestEventosPublicados(t *testing.T) {
	pub := &stubPublicador{}
	svc := newTestService(newStubCategoriaRepo(), CategoriaOptions{Eventos: pub})
	ctx := ConAuditoria(context.Background(), "admin@example.com", "req-1")

	c, err := svc.Crear(ctx, dto.CrearCategoriaRequest{Nombre: "Motores"})
	require.NoError(t, err)
	require.NoError(t, svc.Eliminar(ctx, c.ID))
	_, err = svc.RestaurarLote(ctx, []uuid.UUID{c.ID, uuid.New()})
	require.NoError(t, err)

	require.Len(t, pub.eventos, 3)
	assert.Equal(t, worker.EventoCreada, pub.eventos[0].Tipo)
	assert.Equal(t, "MOT-2025001", pub.eventos[0].Detalle)
	assert.Equal(t, "admin@example.com", pub.eventos[0].Actor)
	assert.Equal(t, "req-1", pub.eventos[0].RequestID)
	assert.Equal(t, worker.EventoEliminada, pub.eventos[1].Tipo)
	assert.Equal(t, worker.EventoRestaurada, pub.eventos[2].Tipo)
	assert.Equal(t, []uuid.UUID{c.ID}, pub.eventos[2].IDs)
}

func TestEventosNoSePublicanEnFallo(t *testing.T) {
	pub := &stubPublicador{}
	svc := newTestService(newStubCategoriaRepo(), CategoriaOptions{Eventos: pub})

	err := svc.Purgar(context.Background(), uuid.New())
	require.True(t, errors.Is(err, ErrCategoriaNoEncontrada))
	assert.Empty(t, pub.eventos)
}

func newCategoriaFixture(id uuid.UUID, codigo, slug string) *model.Categoria {
	return &model.Categoria{ID: id, Codigo: codigo, Nombre: codigo, Slug: slug, Activo: true}
}
