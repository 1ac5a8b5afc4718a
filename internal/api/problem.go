package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hyperengineering/crm/internal/crm"
	"github.com/hyperengineering/crm/internal/objectstore"
	"github.com/hyperengineering/crm/internal/store"
	"github.com/hyperengineering/crm/internal/validation"
)

// problemBaseURI prefixes every RFC 7807 type URI this API emits.
const problemBaseURI = "https://crm.hyperengineering.dev/errors/"

// Problem represents an RFC 7807 Problem Details response.
type Problem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail"`
	Instance string `json:"instance,omitempty"`
}

type problemType struct {
	typeURI string
	title   string
}

// problemTypes maps HTTP status codes to RFC 7807 type URIs and titles.
var problemTypes = map[int]problemType{
	http.StatusBadRequest:            {problemBaseURI + "bad-request", "Bad Request"},
	http.StatusUnauthorized:          {problemBaseURI + "unauthorized", "Unauthorized"},
	http.StatusNotFound:              {problemBaseURI + "not-found", "Not Found"},
	http.StatusConflict:              {problemBaseURI + "conflict", "Conflict"},
	http.StatusRequestEntityTooLarge: {problemBaseURI + "payload-too-large", "Payload Too Large"},
	http.StatusUnsupportedMediaType:  {problemBaseURI + "unsupported-media-type", "Unsupported Media Type"},
	http.StatusUnprocessableEntity:   {problemBaseURI + "validation-error", "Validation Error"},
	http.StatusTooManyRequests:       {problemBaseURI + "rate-limit", "Too Many Requests"},
	http.StatusInternalServerError:   {problemBaseURI + "internal-error", "Internal Server Error"},
	http.StatusServiceUnavailable:    {problemBaseURI + "service-unavailable", "Service Unavailable"},
}

func lookupProblemType(status int) problemType {
	if pt, ok := problemTypes[status]; ok {
		return pt
	}
	return problemType{typeURI: problemBaseURI + "unknown", title: http.StatusText(status)}
}

// WriteProblem writes an RFC 7807 Problem Details response.
func WriteProblem(w http.ResponseWriter, r *http.Request, status int, detail string) {
	pt := lookupProblemType(status)
	writeProblemBody(w, status, Problem{
		Type:     pt.typeURI,
		Title:    pt.title,
		Status:   status,
		Detail:   detail,
		Instance: r.URL.Path,
	})
}

// ProblemWithErrors extends Problem with validation error details.
type ProblemWithErrors struct {
	Problem
	Errors []validation.ValidationError `json:"errors,omitempty"`
}

// WriteProblemWithErrors writes a 422 Problem Details response with field errors.
func WriteProblemWithErrors(w http.ResponseWriter, r *http.Request, detail string, errs []validation.ValidationError) {
	pt := problemTypes[http.StatusUnprocessableEntity]
	writeProblemBody(w, http.StatusUnprocessableEntity, ProblemWithErrors{
		Problem: Problem{
			Type:     pt.typeURI,
			Title:    pt.title,
			Status:   http.StatusUnprocessableEntity,
			Detail:   detail,
			Instance: r.URL.Path,
		},
		Errors: errs,
	})
}

func writeProblemBody(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode problem response", "error", err)
	}
}

// MapError converts service errors to Problem Details responses.
func MapError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *crm.ValidationError
	switch {
	case errors.As(err, &verr):
		WriteProblemWithErrors(w, r, "Request contains invalid fields", verr.Errors)
	case errors.Is(err, store.ErrNotFound):
		WriteProblem(w, r, http.StatusNotFound, "Resource not found")
	case errors.Is(err, store.ErrSiteTypeInUse):
		WriteProblem(w, r, http.StatusConflict, "Site type is referenced by closed projects")
	case errors.Is(err, crm.ErrUnsupportedMedia):
		WriteProblem(w, r, http.StatusUnsupportedMediaType, "Logo must be a PNG, JPEG, GIF, WebP or SVG image")
	case errors.Is(err, objectstore.ErrNotConfigured):
		WriteProblem(w, r, http.StatusServiceUnavailable, "Object storage is not configured")
	default:
		// Never expose internal error details to client
		slog.Error("request failed",
			"error", err,
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", GetRequestID(r.Context()),
			"actor", ActorFromContext(r.Context()),
		)
		WriteProblem(w, r, http.StatusInternalServerError, "Internal Server Error")
	}
}
