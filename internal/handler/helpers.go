package handler

import (
	"errors"
	"net/http"

	"sigir/internal/apierror"
	"sigir/internal/middleware"
	"sigir/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// bindAndValidate binds JSON body and runs go-playground/validator tags.
// On false the error response is already written and the caller must return.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(apierror.MsgJSONInvalido+err.Error()))
		return false
	}
	return validateStruct(c, req)
}

func validateStruct(c *gin.Context, req interface{}) bool {
	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
			return false
		}
		fields := make(map[string]string)
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
		c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(fields))
		return false
	}
	return true
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(apierror.MsgIDInvalido))
		return uuid.Nil, false
	}
	return id, true
}

// respondError maps service errors to HTTP statuses. Unknown errors are
// logged and answered with an opaque 500.
func respondError(c *gin.Context, err error) {
	var verr *service.ErrValidacion
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusUnprocessableEntity, apierror.Campo(verr.Campo, verr.Mensaje))
	case errors.Is(err, service.ErrCategoriaNoEncontrada):
		c.JSON(http.StatusNotFound, apierror.New(err.Error()))
	case errors.Is(err, service.ErrCategoriaNoEnPapelera),
		errors.Is(err, service.ErrCategoriaEnPapelera),
		errors.Is(err, service.ErrConflicto):
		c.JSON(http.StatusConflict, apierror.New(err.Error()))
	case errors.Is(err, service.ErrLoteVacio):
		c.JSON(http.StatusUnprocessableEntity, apierror.Campo("ids", err.Error()))
	default:
		log.Error().
			Str("request_id", c.GetString(middleware.RequestIDKey)).
			Str("path", c.FullPath()).
			Err(err).
			Msg("categorias: error interno")
		c.JSON(http.StatusInternalServerError, apierror.Interno())
	}
}
