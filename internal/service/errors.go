package service

import (
	"errors"
	"fmt"
)

var (
	ErrCategoriaNoEncontrada = errors.New("categoría no encontrada")
	ErrCategoriaNoEnPapelera = errors.New("la categoría no está en la papelera")
	ErrCategoriaEnPapelera   = errors.New("la categoría ya está en la papelera")
	ErrConflicto             = errors.New("el código o slug generado ya existe, intente nuevamente")
	ErrLoteVacio             = errors.New("debe indicar al menos un id")
)

// ErrValidacion is a field-level rejection raised by checks the validator
// tags cannot express (uniqueness, post-normalization format).
type ErrValidacion struct {
	Campo   string
	Mensaje string
}

func (e *ErrValidacion) Error() string {
	return fmt.Sprintf("%s: %s", e.Campo, e.Mensaje)
}

func validacion(campo, mensaje string) error {
	return &ErrValidacion{Campo: campo, Mensaje: mensaje}
}
