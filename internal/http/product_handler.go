package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/fjod/filecart/internal/domain"
	"github.com/fjod/filecart/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
)

type ProductManager interface {
	List(ctx context.Context) ([]domain.Product, error)
	Get(ctx context.Context, id string) (domain.Product, error)
	Create(ctx context.Context, in domain.ProductInput) (domain.Product, error)
	Update(ctx context.Context, id string, in domain.ProductInput) (domain.Product, error)
	Patch(ctx context.Context, id string, in domain.ProductInput) (domain.Product, error)
	Delete(ctx context.Context, id string) error
}

type ProductHandler struct {
	products ProductManager
	timeout  time.Duration
}

func NewProductHandler(products ProductManager, timeout time.Duration) *ProductHandler {
	return &ProductHandler{
		products: products,
		timeout:  timeout,
	}
}

type DeleteResponse struct {
	Deleted string `json:"deleted"`
}

func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	products, err := h.products.List(ctx)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, products)
}

func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	product, err := h.products.Get(ctx, chi.URLParam(r, "pid"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, product)
}

func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	in, ok := decodeProductInput(w, r)
	if !ok {
		return
	}

	product, err := h.products.Create(ctx, in)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusCreated, product)
}

func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	in, ok := decodeProductInput(w, r)
	if !ok {
		return
	}

	product, err := h.products.Update(ctx, chi.URLParam(r, "pid"), in)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, product)
}

func (h *ProductHandler) Patch(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	in, ok := decodeProductInput(w, r)
	if !ok {
		return
	}

	product, err := h.products.Patch(ctx, chi.URLParam(r, "pid"), in)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, product)
}

func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id := chi.URLParam(r, "pid")
	if err := h.products.Delete(ctx, id); err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, DeleteResponse{Deleted: id})
}

func decodeProductInput(w http.ResponseWriter, r *http.Request) (domain.ProductInput, bool) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, r, http.StatusRequestEntityTooLarge, "body_too_large", "request body too large")
			return domain.ProductInput{}, false
		}
		respondError(w, r, http.StatusBadRequest, "invalid_request", "unreadable body")
		return domain.ProductInput{}, false
	}

	var in domain.ProductInput
	if err := json.Unmarshal(body, &in); err != nil {
		if field := mistypedField(body); field != "" {
			handleServiceError(w, r, &service.ValidationError{Field: field, Reason: "has the wrong type"})
			return domain.ProductInput{}, false
		}
		respondError(w, r, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return domain.ProductInput{}, false
	}
	return in, true
}

var productInputFields = []string{
	"title", "description", "code", "price", "status", "stock", "category", "thumbnails",
}

// mistypedField names the first product field whose value cannot be decoded
// into its type. It returns "" when body is not a well-formed JSON object.
func mistypedField(body []byte) string {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return ""
	}
	for _, name := range productInputFields {
		value, ok := raw[name]
		if !ok {
			continue
		}
		var single domain.ProductInput
		if err := json.Unmarshal([]byte(`{"`+name+`":`+string(value)+`}`), &single); err != nil {
			return name
		}
	}
	return ""
}
