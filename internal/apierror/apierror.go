// Package apierror holds the JSON envelopes every 4xx/5xx response uses.
// Internal errors never reach the client; handlers map them to one of these.
package apierror

// Shared messages for responses produced outside the category handlers.
const (
	MsgInterno        = "Error interno del servidor"
	MsgValidacion     = "Error de validacion"
	MsgSinToken       = "Autenticacion requerida"
	MsgTokenInvalido  = "Token invalido o expirado"
	MsgSinPermiso     = "Permisos insuficientes"
	MsgLimiteExcedido = "Demasiadas solicitudes. Intente nuevamente en un momento."
	MsgIDInvalido     = "ID invalido"
	MsgJSONInvalido   = "JSON invalido: "
)

// APIError is the envelope for errors without per-field detail.
type APIError struct {
	Detail string `json:"detail"`
}

func New(msg string) *APIError {
	return &APIError{Detail: msg}
}

// Interno is the opaque 500 body.
func Interno() *APIError {
	return New(MsgInterno)
}

// ValidationError carries one message per offending field.
type ValidationError struct {
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Detail: MsgValidacion, Fields: fields}
}

// Campo builds a ValidationError for a single field.
func Campo(campo, mensaje string) *ValidationError {
	return NewValidation(map[string]string{campo: mensaje})
}
