package api

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/felixgeelhaar/taskhub/internal/records"
	"github.com/felixgeelhaar/taskhub/internal/store"
)

// RecordService is the resource behavior a ResourceHandler exposes.
type RecordService interface {
	Collection() string
	Label() string
	List(ctx context.Context, params url.Values) (records.ListResult, error)
	Create(ctx context.Context, in records.Input) (store.Document, error)
	Get(ctx context.Context, id string) (store.Document, error)
	Replace(ctx context.Context, current store.Document, in records.Input) (store.Document, error)
	Delete(ctx context.Context, id string) error
}

// ResourceHandler maps one collection onto HTTP.
//
//	GET    /{collection}       list; where, select, sort, skip, limit, count
//	POST   /{collection}       create
//	GET    /{collection}/{id}  fetch
//	PUT    /{collection}/{id}  full replace: omitted optional fields reset to defaults
//	DELETE /{collection}/{id}  delete
//
// Every response is a {message, data} envelope.
type ResourceHandler struct {
	service RecordService
	policy  StatusPolicy
	logger  *slog.Logger
}

// ResourceHandlerConfig holds dependencies for the resource handler.
type ResourceHandlerConfig struct {
	Service RecordService
	Policy  StatusPolicy
	Logger  *slog.Logger
}

// NewResourceHandler creates a new resource handler.
func NewResourceHandler(cfg ResourceHandlerConfig) *ResourceHandler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Policy == "" {
		cfg.Policy = StatusStandard
	}
	return &ResourceHandler{
		service: cfg.Service,
		policy:  cfg.Policy,
		logger:  cfg.Logger,
	}
}

// Collection is the path segment the handler is mounted at.
func (h *ResourceHandler) Collection() string {
	return h.service.Collection()
}

// List handles GET /{collection}
func (h *ResourceHandler) List(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.List(r.Context(), r.URL.Query())
	if err != nil {
		h.fail(w, err)
		return
	}
	if res.Counted {
		writeEnvelope(w, http.StatusOK, msgOK, res.Count)
		return
	}
	writeEnvelope(w, http.StatusOK, msgOK, res.Records)
}

// Create handles POST /{collection}
func (h *ResourceHandler) Create(w http.ResponseWriter, r *http.Request) {
	in, err := decodeBody(w, r)
	if err != nil {
		h.fail(w, err)
		return
	}

	doc, err := h.service.Create(r.Context(), in)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeEnvelope(w, http.StatusCreated, h.service.Label()+" added", doc)
}

// Get handles GET /{collection}/{id}
func (h *ResourceHandler) Get(w http.ResponseWriter, r *http.Request) {
	doc, err := h.service.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeEnvelope(w, http.StatusOK, msgOK, doc)
}

// Update handles PUT /{collection}/{id}. An unknown id is reported before
// the body is validated.
func (h *ResourceHandler) Update(w http.ResponseWriter, r *http.Request) {
	current, err := h.service.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, err)
		return
	}

	in, err := decodeBody(w, r)
	if err != nil {
		h.fail(w, err)
		return
	}

	doc, err := h.service.Replace(r.Context(), current, in)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeEnvelope(w, http.StatusOK, h.service.Label()+" updated", doc)
}

// Delete handles DELETE /{collection}/{id}
func (h *ResourceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), r.PathValue("id")); err != nil {
		h.fail(w, err)
		return
	}
	writeEnvelope(w, http.StatusOK, h.service.Label()+" deleted", nil)
}

// fail writes the envelope for err. Store failures were logged by the
// service and are answered generically.
func (h *ResourceHandler) fail(w http.ResponseWriter, err error) {
	status := h.policy.Status(err)
	switch {
	case status == http.StatusNotFound:
		writeEnvelope(w, status, h.service.Label()+" not found", nil)
	default:
		if ve, ok := records.IsValidation(err); ok {
			writeEnvelope(w, status, ve.Message, nil)
			return
		}
		writeEnvelope(w, status, msgUnknownFailure, nil)
	}
}
