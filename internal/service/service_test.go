package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/fjod/filecart/internal/domain"
	"github.com/fjod/filecart/internal/store"
	"github.com/stretchr/testify/require"
)

func setupStore(t *testing.T) *store.Store {
	backend, err := store.NewFileBackend(t.TempDir())
	require.NoError(t, err)
	s := store.New(backend)
	t.Cleanup(func() { s.Close() })
	return s
}

func setupProductService(t *testing.T) (*ProductService, *store.Collection[domain.Product]) {
	products := store.NewCollection[domain.Product](setupStore(t), ProductsCollection)
	require.NoError(t, products.Ensure(context.Background()))
	return NewProductService(products), products
}

func setupCartService(t *testing.T, opts ...CartOption) (*CartService, *store.Collection[domain.Cart]) {
	carts := store.NewCollection[domain.Cart](setupStore(t), CartsCollection)
	require.NoError(t, carts.Ensure(context.Background()))
	return NewCartService(carts, opts...), carts
}

// failingRepo returns err from every call.
type failingRepo[T any] struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (f *failingRepo[T]) Load(context.Context) ([]T, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return nil, f.err
}

func (f *failingRepo[T]) Update(context.Context, func([]T) ([]T, error)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.err
}

var errDisk = errors.New("disk on fire")

func ptr[T any](v T) *T {
	return &v
}

func mouseInput() domain.ProductInput {
	return domain.ProductInput{
		Title:       ptr("Mouse"),
		Description: ptr("wireless"),
		Code:        ptr("M1"),
		Price:       ptr(20.0),
		Status:      ptr(true),
		Stock:       ptr(int64(5)),
		Category:    ptr("peripherals"),
		Thumbnails:  []string{},
	}
}
