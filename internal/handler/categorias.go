package handler

import (
	"context"
	"net/http"

	"sigir/internal/apierror"
	"sigir/internal/dto"
	"sigir/internal/middleware"
	"sigir/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type CategoriasHandler struct{ svc service.CategoriaService }

func NewCategoriasHandler(svc service.CategoriaService) *CategoriasHandler {
	return &CategoriasHandler{svc: svc}
}

// ctx carries the acting user and request id down to the lifecycle events.
func (h *CategoriasHandler) ctx(c *gin.Context) context.Context {
	actor := ""
	if v, ok := c.Get(middleware.ClaimsKey); ok {
		if claims, ok := v.(*middleware.JWTClaims); ok {
			actor = claims.Username
		}
	}
	return service.ConAuditoria(c.Request.Context(), actor, c.GetString(middleware.RequestIDKey))
}

// Crear godoc
// @Summary      Crear categoría
// @Description  Genera código PREFIJO-AÑOSECUENCIA y slug único a partir del nombre, salvo que se envíen explícitamente.
// @Tags         categorias
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body     dto.CrearCategoriaRequest true "Categoría"
// @Success      201  {object} dto.CategoriaResponse
// @Failure      409  {object} apierror.APIError
// @Failure      422  {object} apierror.ValidationError
// @Router       /v1/categorias [post]
func (h *CategoriasHandler) Crear(c *gin.Context) {
	var req dto.CrearCategoriaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Crear(h.ctx(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Listar godoc
// @Summary      Listar categorías
// @Description  Lista paginada de categorías vivas, más recientes primero. Incluye la cantidad en papelera.
// @Tags         categorias
// @Produce      json
// @Security     BearerAuth
// @Param        nombre query string false "Filtro por nombre (contiene)"
// @Param        estado query string false "activo | inactivo | all"
// @Param        page   query int    false "Página" default(1)
// @Param        limit  query int    false "Tamaño de página" default(20)
// @Success      200  {object} dto.CategoriaListResponse
// @Router       /v1/categorias [get]
func (h *CategoriasHandler) Listar(c *gin.Context) {
	var filter dto.CategoriaFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
		return
	}
	if !validateStruct(c, &filter) {
		return
	}
	resp, err := h.svc.Listar(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ListarPapelera godoc
// @Summary      Listar papelera
// @Tags         categorias
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array} dto.CategoriaResponse
// @Router       /v1/categorias/papelera [get]
func (h *CategoriasHandler) ListarPapelera(c *gin.Context) {
	resp, err := h.svc.ListarPapelera(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ObtenerPorID godoc
// @Summary      Obtener categoría
// @Description  Devuelve la categoría aunque esté en la papelera.
// @Tags         categorias
// @Produce      json
// @Security     BearerAuth
// @Param        id  path     string true "UUID de la categoría"
// @Success      200 {object} dto.CategoriaResponse
// @Failure      404 {object} apierror.APIError
// @Router       /v1/categorias/{id} [get]
func (h *CategoriasHandler) ObtenerPorID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	resp, err := h.svc.ObtenerPorID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Actualizar godoc
// @Summary      Actualizar categoría
// @Description  Al renombrar se regenera el slug, salvo que haya sido personalizado.
// @Tags         categorias
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path     string                         true "UUID de la categoría"
// @Param        body body     dto.ActualizarCategoriaRequest true "Campos a modificar"
// @Success      200  {object} dto.CategoriaResponse
// @Failure      404  {object} apierror.APIError
// @Failure      422  {object} apierror.ValidationError
// @Router       /v1/categorias/{id} [put]
func (h *CategoriasHandler) Actualizar(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req dto.ActualizarCategoriaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Actualizar(h.ctx(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// AlternarEstado godoc
// @Summary      Activar / desactivar categoría
// @Tags         categorias
// @Produce      json
// @Security     BearerAuth
// @Param        id  path     string true "UUID de la categoría"
// @Success      200 {object} dto.CategoriaResponse
// @Failure      404 {object} apierror.APIError
// @Router       /v1/categorias/{id}/estado [patch]
func (h *CategoriasHandler) AlternarEstado(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	resp, err := h.svc.AlternarEstado(h.ctx(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Eliminar godoc
// @Summary      Enviar categoría a la papelera
// @Tags         categorias
// @Security     BearerAuth
// @Param        id  path string true "UUID de la categoría"
// @Success      204
// @Failure      404 {object} apierror.APIError
// @Failure      409 {object} apierror.APIError
// @Router       /v1/categorias/{id} [delete]
func (h *CategoriasHandler) Eliminar(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.svc.Eliminar(h.ctx(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Restaurar godoc
// @Summary      Restaurar categoría desde la papelera
// @Tags         categorias
// @Security     BearerAuth
// @Param        id  path string true "UUID de la categoría"
// @Success      204
// @Failure      404 {object} apierror.APIError
// @Failure      409 {object} apierror.APIError
// @Router       /v1/categorias/{id}/restaurar [post]
func (h *CategoriasHandler) Restaurar(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.svc.Restaurar(h.ctx(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Purgar godoc
// @Summary      Eliminar categoría definitivamente
// @Description  Borrado físico e irreversible, en cualquier estado.
// @Tags         categorias
// @Security     BearerAuth
// @Param        id  path string true "UUID de la categoría"
// @Success      204
// @Failure      404 {object} apierror.APIError
// @Router       /v1/categorias/{id}/definitivo [delete]
func (h *CategoriasHandler) Purgar(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.svc.Purgar(h.ctx(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// EstadoLote godoc
// @Summary      Cambiar estado en lote
// @Description  Solo afecta categorías vivas; las demás se informan por id.
// @Tags         categorias
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body     dto.LoteEstadoRequest true "IDs y estado"
// @Success      200  {object} dto.ResultadoLote
// @Failure      422  {object} apierror.ValidationError
// @Router       /v1/categorias/lote/estado [post]
func (h *CategoriasHandler) EstadoLote(c *gin.Context) {
	var req dto.LoteEstadoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.EstablecerEstadoLote(h.ctx(c), req.IDs, *req.Estado)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// EliminarLote godoc
// @Summary      Enviar a la papelera en lote
// @Tags         categorias
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body     dto.LoteRequest true "IDs"
// @Success      200  {object} dto.ResultadoLote
// @Router       /v1/categorias/lote/eliminar [post]
func (h *CategoriasHandler) EliminarLote(c *gin.Context) {
	h.lote(c, h.svc.EliminarLote)
}

// RestaurarLote godoc
// @Summary      Restaurar en lote
// @Tags         categorias
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body     dto.LoteRequest true "IDs"
// @Success      200  {object} dto.ResultadoLote
// @Router       /v1/categorias/lote/restaurar [post]
func (h *CategoriasHandler) RestaurarLote(c *gin.Context) {
	h.lote(c, h.svc.RestaurarLote)
}

// PurgarLote godoc
// @Summary      Eliminar definitivamente en lote
// @Description  Solo categorías que ya están en la papelera.
// @Tags         categorias
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body     dto.LoteRequest true "IDs"
// @Success      200  {object} dto.ResultadoLote
// @Router       /v1/categorias/lote/purgar [post]
func (h *CategoriasHandler) PurgarLote(c *gin.Context) {
	h.lote(c, h.svc.PurgarLote)
}

func (h *CategoriasHandler) lote(c *gin.Context, op func(context.Context, []uuid.UUID) (*dto.ResultadoLote, error)) {
	var req dto.LoteRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := op(h.ctx(c), req.IDs)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
