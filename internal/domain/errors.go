package domain

import (
	"errors"
	"fmt"
)

// Tipos de error de entrada. Se comparan con errors.Is.
var (
	// ErrMissingInput: no hay snapshot o serie disponible.
	ErrMissingInput = errors.New("missing input")
	// ErrMalformedInput: hay snapshot pero no se puede convertir al modelo.
	ErrMalformedInput = errors.New("malformed input")
)

// InputError lleva el tipo de fallo, el instrumento afectado (vacío si afecta
// al snapshot entero) y la causa.
type InputError struct {
	Kind       error
	Instrument string
	Err        error
}

func (e *InputError) Error() string {
	msg := e.Kind.Error()
	if e.Instrument != "" {
		msg += " (" + e.Instrument + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap permite errors.Is tanto contra el tipo como contra la causa.
func (e *InputError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// MissingInput crea un InputError de tipo ErrMissingInput.
func MissingInput(instrument, format string, args ...any) error {
	return &InputError{Kind: ErrMissingInput, Instrument: instrument, Err: fmt.Errorf(format, args...)}
}

// MalformedInput envuelve la causa como ErrMalformedInput.
func MalformedInput(instrument string, cause error) error {
	return &InputError{Kind: ErrMalformedInput, Instrument: instrument, Err: cause}
}

// ErrorCode devuelve un código estable para el error, útil en la API y en la
// notificación.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMissingInput):
		return "MISSING_INPUT"
	case errors.Is(err, ErrMalformedInput):
		return "MALFORMED_INPUT"
	default:
		return "INTERNAL_ERROR"
	}
}
