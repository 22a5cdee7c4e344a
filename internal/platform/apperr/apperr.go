// Package apperr clasifica errores de dominio en tipos (juju/errors) y los
// traduce a HTTP. Los servicios devuelven estos errores; los handlers solo
// llaman WriteError.
package apperr

import (
	"encoding/json"
	"fmt"
	"net/http"

	"pet-health-api/internal/platform/logger"

	"github.com/juju/errors"
)

// Conflict no existe en juju/errors; lo definimos con el mismo patrón.
const Conflict = errors.ConstError("conflict")

type conflictError struct {
	msg string
}

func (e *conflictError) Error() string        { return e.msg }
func (e *conflictError) Is(target error) bool { return target == Conflict }

// Usamos los New* de juju (no los *f) para que el mensaje quede tal cual,
// sin sufijos tipo " not found".
func Unauthenticated(msg string) error { return errors.NewUnauthorized(nil, msg) }
func Forbidden(msg string) error       { return errors.NewForbidden(nil, msg) }
func Invalid(msg string) error         { return errors.NewNotValid(nil, msg) }
func NotFound(msg string) error        { return errors.NewNotFound(nil, msg) }
func AlreadyExists(msg string) error   { return errors.NewAlreadyExists(nil, msg) }

func Unauthenticatedf(format string, args ...any) error {
	return Unauthenticated(fmt.Sprintf(format, args...))
}

func Forbiddenf(format string, args ...any) error {
	return Forbidden(fmt.Sprintf(format, args...))
}

func Invalidf(format string, args ...any) error {
	return Invalid(fmt.Sprintf(format, args...))
}

func NotFoundf(format string, args ...any) error {
	return NotFound(fmt.Sprintf(format, args...))
}

func Conflictf(format string, args ...any) error {
	return &conflictError{msg: fmt.Sprintf(format, args...)}
}

func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, errors.Unauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, errors.Forbidden):
		return http.StatusForbidden
	case errors.Is(err, errors.NotValid), errors.Is(err, errors.BadRequest):
		return http.StatusBadRequest
	case errors.Is(err, errors.NotFound):
		return http.StatusNotFound
	case errors.Is(err, errors.AlreadyExists), errors.Is(err, Conflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage no filtra detalles internos en 5xx.
func PublicMessage(err error) string {
	if HTTPStatus(err) >= http.StatusInternalServerError {
		return "internal error"
	}
	return err.Error()
}

type errorBody struct {
	Error string `json:"error"`
}

// WriteError escribe {"error": "..."} con el status que corresponda.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status := HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logger.FromContext(r.Context()).Error("request failed", map[string]any{
			"err":    err,
			"path":   r.URL.Path,
			"method": r.Method,
		})
	}
	WriteStatus(w, status, PublicMessage(err))
}

// WriteStatus para errores que nacen en la capa HTTP (json inválido, etc).
func WriteStatus(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Error: msg})
}
