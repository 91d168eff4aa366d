package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fjod/filecart/internal/domain"
	"github.com/fjod/filecart/internal/service"
	"github.com/fjod/filecart/internal/store"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ProductsMock struct {
	product  domain.Product
	products []domain.Product
	err      error
	lastID   string
	lastIn   domain.ProductInput
}

func (m *ProductsMock) List(context.Context) ([]domain.Product, error) {
	return m.products, m.err
}

func (m *ProductsMock) Get(_ context.Context, id string) (domain.Product, error) {
	m.lastID = id
	return m.product, m.err
}

func (m *ProductsMock) Create(_ context.Context, in domain.ProductInput) (domain.Product, error) {
	m.lastIn = in
	return m.product, m.err
}

func (m *ProductsMock) Update(_ context.Context, id string, in domain.ProductInput) (domain.Product, error) {
	m.lastID, m.lastIn = id, in
	return m.product, m.err
}

func (m *ProductsMock) Patch(_ context.Context, id string, in domain.ProductInput) (domain.Product, error) {
	m.lastID, m.lastIn = id, in
	return m.product, m.err
}

func (m *ProductsMock) Delete(_ context.Context, id string) error {
	m.lastID = id
	return m.err
}

type CartsMock struct {
	cart   domain.Cart
	err    error
	lastID string
	lastPI string
}

func (m *CartsMock) CreateCart(context.Context) (domain.Cart, error) {
	return m.cart, m.err
}

func (m *CartsMock) GetCartItems(_ context.Context, id string) ([]domain.CartItem, error) {
	m.lastID = id
	return m.cart.Items, m.err
}

func (m *CartsMock) AddProduct(_ context.Context, cartID, productID string) (domain.Cart, error) {
	m.lastID, m.lastPI = cartID, productID
	return m.cart, m.err
}

func newTestRouter(products ProductManager, carts CartManager) http.Handler {
	return NewRouter(RouterConfig{
		RequestTimeout: 5 * time.Second,
		MaxBodyBytes:   1 << 10,
		CORSOrigins:    []string{"*"},
	}, products, carts)
}

func doRequest(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	h.ServeHTTP(recorder, req)
	return recorder
}

func decodeError(t *testing.T, recorder *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&resp))
	return resp
}

func TestGetProduct_Success(t *testing.T) {
	products := &ProductsMock{product: domain.Product{ID: "p1", Title: "Mouse", Thumbnails: []string{}}}
	h := newTestRouter(products, &CartsMock{})

	recorder := doRequest(t, h, http.MethodGet, "/api/products/p1", "")

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "p1", products.lastID)
	var got domain.Product
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&got))
	assert.Equal(t, "Mouse", got.Title)
}

func TestGetProduct_NotFound(t *testing.T) {
	h := newTestRouter(&ProductsMock{err: service.ErrProductNotFound}, &CartsMock{})

	recorder := doRequest(t, h, http.MethodGet, "/api/products/nope", "")

	assert.Equal(t, http.StatusNotFound, recorder.Code)
	assert.Equal(t, "not_found", decodeError(t, recorder).Code)
}

func TestListProducts_StoreUnavailable(t *testing.T) {
	h := newTestRouter(&ProductsMock{err: store.ErrCorrupt}, &CartsMock{})

	recorder := doRequest(t, h, http.MethodGet, "/api/products", "")

	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
	assert.Equal(t, "store_unavailable", decodeError(t, recorder).Code)
}

func TestListProducts_LockTimeoutIsRetryable(t *testing.T) {
	h := newTestRouter(&ProductsMock{err: store.ErrLockTimeout}, &CartsMock{})

	recorder := doRequest(t, h, http.MethodGet, "/api/products", "")

	assert.Equal(t, http.StatusServiceUnavailable, recorder.Code)
	assert.Equal(t, "1", recorder.Header().Get("Retry-After"))
	assert.Equal(t, "store_busy", decodeError(t, recorder).Code)
}

func TestCreateProduct_InvalidJSON(t *testing.T) {
	h := newTestRouter(&ProductsMock{}, &CartsMock{})

	recorder := doRequest(t, h, http.MethodPost, "/api/products", `{"title":`)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Equal(t, "invalid_request", decodeError(t, recorder).Code)
}

func TestCreateProduct_BodyTooLarge(t *testing.T) {
	h := newTestRouter(&ProductsMock{}, &CartsMock{})
	body := `{"title":"` + strings.Repeat("x", 2048) + `"}`

	recorder := doRequest(t, h, http.MethodPost, "/api/products", body)

	assert.Equal(t, http.StatusRequestEntityTooLarge, recorder.Code)
}

func TestCreateProduct_ValidationError(t *testing.T) {
	products := &ProductsMock{err: &service.ValidationError{Field: "code", Reason: "is required"}}
	h := newTestRouter(products, &CartsMock{})

	recorder := doRequest(t, h, http.MethodPost, "/api/products", `{"title":"Mouse"}`)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	resp := decodeError(t, recorder)
	assert.Equal(t, "validation_error", resp.Code)
	assert.Equal(t, "code", resp.Field)
	require.NotNil(t, products.lastIn.Title)
	assert.Equal(t, "Mouse", *products.lastIn.Title)
	assert.Nil(t, products.lastIn.Code)
}

func TestUpdateProduct_PassesPathID(t *testing.T) {
	products := &ProductsMock{product: domain.Product{ID: "p9"}}
	h := newTestRouter(products, &CartsMock{})

	recorder := doRequest(t, h, http.MethodPut, "/api/products/p9", `{"id":"other","title":"T"}`)

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "p9", products.lastID)
}

func TestDeleteProduct_Confirms(t *testing.T) {
	products := &ProductsMock{}
	h := newTestRouter(products, &CartsMock{})

	recorder := doRequest(t, h, http.MethodDelete, "/api/products/p3", "")

	assert.Equal(t, http.StatusOK, recorder.Code)
	var resp DeleteResponse
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&resp))
	assert.Equal(t, "p3", resp.Deleted)
}

func TestAddProduct_RoutesIDs(t *testing.T) {
	carts := &CartsMock{cart: domain.Cart{ID: "c1", Items: []domain.CartItem{{ProductID: "p1", Quantity: 1}}}}
	h := newTestRouter(&ProductsMock{}, carts)

	recorder := doRequest(t, h, http.MethodPost, "/api/carts/c1/product/p1", "")

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "c1", carts.lastID)
	assert.Equal(t, "p1", carts.lastPI)
}

func TestGetCartItems_NotFound(t *testing.T) {
	h := newTestRouter(&ProductsMock{}, &CartsMock{err: service.ErrCartNotFound})

	recorder := doRequest(t, h, http.MethodGet, "/api/carts/ghost", "")

	assert.Equal(t, http.StatusNotFound, recorder.Code)
	assert.Equal(t, "cart not found", decodeError(t, recorder).Error)
}

func TestHealth(t *testing.T) {
	h := newTestRouter(&ProductsMock{}, &CartsMock{})

	recorder := doRequest(t, h, http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.NotEmpty(t, recorder.Header().Get("X-Request-Id"))
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestRouter(&ProductsMock{}, &CartsMock{})
	doRequest(t, h, http.MethodGet, "/health", "")

	recorder := doRequest(t, h, http.MethodGet, "/metrics", "")

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "filecart_http_requests_total")
}

func TestRateLimit(t *testing.T) {
	h := NewRouter(RouterConfig{RequestTimeout: time.Second, RateLimit: 2}, &ProductsMock{}, &CartsMock{})

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, doRequest(t, h, http.MethodGet, "/health", "").Code)
	}
	assert.Equal(t, http.StatusTooManyRequests, doRequest(t, h, http.MethodGet, "/health", "").Code)
}

// newFileRouter serves the real managers over a file store in a temp dir.
func newFileRouter(t *testing.T) http.Handler {
	t.Helper()
	backend, err := store.NewFileBackend(t.TempDir())
	require.NoError(t, err)
	s := store.New(backend)
	ctx := context.Background()

	products := store.NewCollection[domain.Product](s, service.ProductsCollection)
	carts := store.NewCollection[domain.Cart](s, service.CartsCollection)
	require.NoError(t, products.Ensure(ctx))
	require.NoError(t, carts.Ensure(ctx))

	return newTestRouter(service.NewProductService(products), service.NewCartService(carts))
}

const mouseBody = `{"title":"Mouse","description":"wireless","code":"M1","price":20,` +
	`"status":true,"stock":5,"category":"peripherals","thumbnails":[]}`

func withField(body, field string) string {
	return strings.TrimSuffix(body, "}") + "," + field + "}"
}

func TestCreateProduct_BodyIDIsIgnored(t *testing.T) {
	h := newFileRouter(t)

	for _, id := range []string{`7`, `"client-chosen"`, `null`} {
		recorder := doRequest(t, h, http.MethodPost, "/api/products", withField(mouseBody, `"id":`+id))
		require.Equal(t, http.StatusCreated, recorder.Code, recorder.Body.String())

		var created domain.Product
		require.NoError(t, json.NewDecoder(recorder.Body).Decode(&created))
		assert.NotEmpty(t, created.ID)
		assert.NotEqual(t, "7", created.ID)
		assert.NotEqual(t, "client-chosen", created.ID)
		assert.Equal(t, "Mouse", created.Title)
	}

	recorder := doRequest(t, h, http.MethodGet, "/api/products", "")
	var all []domain.Product
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&all))
	assert.Len(t, all, 3)
}

func TestUpdateAndPatchProduct_BodyIDIsIgnored(t *testing.T) {
	h := newFileRouter(t)

	recorder := doRequest(t, h, http.MethodPost, "/api/products", mouseBody)
	require.Equal(t, http.StatusCreated, recorder.Code)
	var mouse domain.Product
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&mouse))

	recorder = doRequest(t, h, http.MethodPut, "/api/products/"+mouse.ID,
		withField(strings.Replace(mouseBody, `"Mouse"`, `"Trackball"`, 1), `"id":7`))
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())
	var updated domain.Product
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&updated))
	assert.Equal(t, mouse.ID, updated.ID)
	assert.Equal(t, "Trackball", updated.Title)

	recorder = doRequest(t, h, http.MethodPatch, "/api/products/"+mouse.ID, `{"id":7,"stock":42}`)
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())
	var patched domain.Product
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&patched))
	assert.Equal(t, mouse.ID, patched.ID)
	assert.Equal(t, int64(42), patched.Stock)
	assert.Equal(t, "Trackball", patched.Title)

	recorder = doRequest(t, h, http.MethodGet, "/api/products/7", "")
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestCreateProduct_WrongFieldTypeIsNamed(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"string price", strings.Replace(mouseBody, `"price":20`, `"price":"20"`, 1), "price"},
		{"numeric title", strings.Replace(mouseBody, `"title":"Mouse"`, `"title":5`, 1), "title"},
		{"string status", strings.Replace(mouseBody, `"status":true`, `"status":"yes"`, 1), "status"},
		{"numeric thumbnail", strings.Replace(mouseBody, `"thumbnails":[]`, `"thumbnails":[1]`, 1), "thumbnails"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			products := &ProductsMock{}
			h := newTestRouter(products, &CartsMock{})

			recorder := doRequest(t, h, http.MethodPost, "/api/products", tt.body)

			assert.Equal(t, http.StatusBadRequest, recorder.Code)
			resp := decodeError(t, recorder)
			assert.Equal(t, "validation_error", resp.Code)
			assert.Equal(t, tt.field, resp.Field)
			assert.Nil(t, products.lastIn.Title, "manager must not be called")
		})
	}
}

func TestCreateProduct_NonObjectBody(t *testing.T) {
	h := newTestRouter(&ProductsMock{}, &CartsMock{})

	recorder := doRequest(t, h, http.MethodPost, "/api/products", `[1,2]`)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Equal(t, "invalid_request", decodeError(t, recorder).Code)
}

func TestPatchProduct_PassesPathIDAndBody(t *testing.T) {
	products := &ProductsMock{product: domain.Product{ID: "p4", Stock: 42}}
	h := newTestRouter(products, &CartsMock{})

	recorder := doRequest(t, h, http.MethodPatch, "/api/products/p4", `{"stock":42}`)

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "p4", products.lastID)
	require.NotNil(t, products.lastIn.Stock)
	assert.Equal(t, int64(42), *products.lastIn.Stock)
	assert.Nil(t, products.lastIn.Title)

	var got domain.Product
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&got))
	assert.Equal(t, int64(42), got.Stock)
}

func TestPatchProduct_NotFound(t *testing.T) {
	h := newTestRouter(&ProductsMock{err: service.ErrProductNotFound}, &CartsMock{})

	recorder := doRequest(t, h, http.MethodPatch, "/api/products/ghost", `{"stock":1}`)

	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

// TestMouseScenario drives the real managers over a file store.
func TestMouseScenario(t *testing.T) {
	h := newFileRouter(t)

	body, err := json.Marshal(map[string]any{
		"title": "Mouse", "description": "wireless", "code": "M1", "price": 20,
		"status": true, "stock": 5, "category": "peripherals", "thumbnails": []string{},
	})
	require.NoError(t, err)

	recorder := doRequest(t, h, http.MethodPost, "/api/products", string(body))
	require.Equal(t, http.StatusCreated, recorder.Code)
	var mouse domain.Product
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&mouse))
	require.NotEmpty(t, mouse.ID)

	recorder = doRequest(t, h, http.MethodPost, "/api/carts", "")
	require.Equal(t, http.StatusCreated, recorder.Code)
	var cart domain.Cart
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&cart))
	require.NotEmpty(t, cart.ID)
	require.Empty(t, cart.Items)

	for i := 0; i < 2; i++ {
		recorder = doRequest(t, h, http.MethodPost, "/api/carts/"+cart.ID+"/product/"+mouse.ID, "")
		require.Equal(t, http.StatusOK, recorder.Code)
	}

	recorder = doRequest(t, h, http.MethodGet, "/api/carts/"+cart.ID, "")
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.JSONEq(t, `[{"productId":"`+mouse.ID+`","quantity":2}]`, recorder.Body.String())

	recorder = doRequest(t, h, http.MethodPost, "/api/products", `{"title":"Keyboard"}`)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Equal(t, "description", decodeError(t, recorder).Field)

	recorder = doRequest(t, h, http.MethodDelete, "/api/products/"+mouse.ID, "")
	assert.Equal(t, http.StatusOK, recorder.Code)
	recorder = doRequest(t, h, http.MethodGet, "/api/products/"+mouse.ID, "")
	assert.Equal(t, http.StatusNotFound, recorder.Code)
	recorder = doRequest(t, h, http.MethodGet, "/api/products", "")
	assert.JSONEq(t, `[]`, recorder.Body.String())
}

func TestCreateCart_Empty(t *testing.T) {
	carts := &CartsMock{cart: domain.Cart{ID: "c1", Items: []domain.CartItem{}}}
	h := newTestRouter(&ProductsMock{}, carts)

	recorder := doRequest(t, h, http.MethodPost, "/api/carts", "")

	assert.Equal(t, http.StatusCreated, recorder.Code)
	assert.JSONEq(t, `{"id":"c1","items":[]}`, strings.TrimSpace(recorder.Body.String()))
}
