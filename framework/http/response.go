package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/km-arc/go-injector/framework/container"
)

// ── Response ─────────────────────────────────────────────────────────────────

// Response wraps http.ResponseWriter with JSON helpers.
type Response struct {
	w http.ResponseWriter
}

// NewResponse wraps a ResponseWriter.
func NewResponse(w http.ResponseWriter) *Response {
	return &Response{w: w}
}

// Raw returns the underlying ResponseWriter.
func (res *Response) Raw() http.ResponseWriter { return res.w }

// ── JSON responses ────────────────────────────────────────────────────────────

// JSON sends a JSON response.
//
//	res.JSON(http.StatusOK, map[string]any{"message": "ok"})
func (res *Response) JSON(status int, data any) {
	res.w.Header().Set("Content-Type", "application/json")
	res.w.WriteHeader(status)
	_ = json.NewEncoder(res.w).Encode(data)
}

// Success sends 200 JSON: {"data": v}
func (res *Response) Success(v any) {
	res.JSON(http.StatusOK, envelope{"data": v})
}

// Created sends 201 JSON: {"data": v}
func (res *Response) Created(v any) {
	res.JSON(http.StatusCreated, envelope{"data": v})
}

// NoContent sends 204 with no body.
func (res *Response) NoContent() {
	res.w.WriteHeader(http.StatusNoContent)
}

// Error sends a JSON error response.
//
//	res.Error(http.StatusNotFound, "Resource not found")
func (res *Response) Error(status int, message string) {
	res.JSON(status, envelope{"message": message})
}

// NotFound sends 404.
func (res *Response) NotFound(message ...string) {
	msg := first(message, "Not found.")
	res.JSON(http.StatusNotFound, envelope{"message": msg})
}

// ServerError sends 500.
func (res *Response) ServerError(message ...string) {
	msg := first(message, "Server Error.")
	res.JSON(http.StatusInternalServerError, envelope{"message": msg})
}

// ResolutionError reports a failed container resolution. Requests nothing is
// registered for are 404s; anything else is a server error.
//
//	v, err := app.Resolve(types.String, name)
//	if err != nil {
//	    res.ResolutionError(err)
//	    return
//	}
func (res *Response) ResolutionError(err error) {
	var missing *container.MissingDependencyError
	if errors.As(err, &missing) {
		res.JSON(http.StatusNotFound, envelope{"message": err.Error(), "kind": "missing"})
		return
	}

	kind := "internal"
	var (
		ambiguous *container.AmbiguousDependencyError
		cyclic    *container.CyclicDependencyError
		unbound   *container.UnboundTypeError
	)
	switch {
	case errors.As(err, &ambiguous):
		kind = "ambiguous"
	case errors.As(err, &cyclic):
		kind = "cyclic"
	case errors.As(err, &unbound):
		kind = "unbound"
	}
	res.JSON(http.StatusInternalServerError, envelope{"message": err.Error(), "kind": kind})
}

// ── Helpers ──────────────────────────────────────────────────────────────────

type envelope map[string]any

func first(ss []string, fallback string) string {
	if len(ss) > 0 && ss[0] != "" {
		return ss[0]
	}
	return fallback
}
