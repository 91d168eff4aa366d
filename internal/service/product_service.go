package service

import (
	"context"
	"errors"

	"github.com/fjod/filecart/internal/domain"
	"github.com/fjod/filecart/internal/logging"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

const ProductsCollection = "products"

// ProductRepository is the slice of the document store the catalog needs.
type ProductRepository interface {
	Load(ctx context.Context) ([]domain.Product, error)
	Update(ctx context.Context, fn func([]domain.Product) ([]domain.Product, error)) error
}

// ProductService manages the catalog. Every call re-reads the whole
// collection; nothing is cached between calls.
type ProductService struct {
	repo  ProductRepository
	newID func() string
}

func NewProductService(repo ProductRepository) *ProductService {
	return &ProductService{
		repo:  repo,
		newID: func() string { return uuid.New().String() },
	}
}

func (s *ProductService) List(ctx context.Context) (products []domain.Product, err error) {
	ctx, span := startSpan(ctx, "ProductService.List")
	defer func() { endSpan(span, err) }()

	products, err = s.repo.Load(ctx)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("load products failed")
		return nil, err
	}
	return products, nil
}

// Get returns ErrProductNotFound when no product has the id.
func (s *ProductService) Get(ctx context.Context, id string) (domain.Product, error) {
	products, err := s.List(ctx)
	if err != nil {
		return domain.Product{}, err
	}
	if i := productIndex(products, id); i >= 0 {
		return products[i], nil
	}
	return domain.Product{}, ErrProductNotFound
}

// Exists reports whether the catalog holds id.
func (s *ProductService) Exists(ctx context.Context, id string) (bool, error) {
	_, err := s.Get(ctx, id)
	if errors.Is(err, ErrProductNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (s *ProductService) Create(ctx context.Context, in domain.ProductInput) (created domain.Product, err error) {
	ctx, span := startSpan(ctx, "ProductService.Create")
	defer func() { endSpan(span, err) }()

	if err := validateComplete(in); err != nil {
		return domain.Product{}, err
	}

	err = s.repo.Update(ctx, func(products []domain.Product) ([]domain.Product, error) {
		id := s.newID()
		for productIndex(products, id) >= 0 {
			id = s.newID()
		}
		created = domain.Product{ID: id}
		in.Apply(&created)
		return append(products, created), nil
	})
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("create product failed")
		return domain.Product{}, err
	}

	logging.Ctx(ctx).Info().Str("product_id", created.ID).Msg("product created")
	return created, nil
}

// Update replaces every mutable field of the product. All fields are
// required, as on create; an id in the input is ignored.
func (s *ProductService) Update(ctx context.Context, id string, in domain.ProductInput) (updated domain.Product, err error) {
	ctx, span := startSpan(ctx, "ProductService.Update", attribute.String("product.id", id))
	defer func() { endSpan(span, err) }()

	if err := validateComplete(in); err != nil {
		return domain.Product{}, err
	}

	err = s.repo.Update(ctx, func(products []domain.Product) ([]domain.Product, error) {
		i := productIndex(products, id)
		if i < 0 {
			return nil, ErrProductNotFound
		}
		updated = domain.Product{ID: products[i].ID}
		in.Apply(&updated)
		products[i] = updated
		return products, nil
	})
	if err != nil {
		return domain.Product{}, s.logFailure(ctx, err, "update product failed")
	}
	return updated, nil
}

// Patch changes only the supplied fields.
func (s *ProductService) Patch(ctx context.Context, id string, in domain.ProductInput) (patched domain.Product, err error) {
	ctx, span := startSpan(ctx, "ProductService.Patch", attribute.String("product.id", id))
	defer func() { endSpan(span, err) }()

	if err := validatePartial(in); err != nil {
		return domain.Product{}, err
	}

	err = s.repo.Update(ctx, func(products []domain.Product) ([]domain.Product, error) {
		i := productIndex(products, id)
		if i < 0 {
			return nil, ErrProductNotFound
		}
		in.Apply(&products[i])
		patched = products[i]
		return products, nil
	})
	if err != nil {
		return domain.Product{}, s.logFailure(ctx, err, "patch product failed")
	}
	return patched, nil
}

func (s *ProductService) Delete(ctx context.Context, id string) (err error) {
	ctx, span := startSpan(ctx, "ProductService.Delete", attribute.String("product.id", id))
	defer func() { endSpan(span, err) }()

	err = s.repo.Update(ctx, func(products []domain.Product) ([]domain.Product, error) {
		i := productIndex(products, id)
		if i < 0 {
			return nil, ErrProductNotFound
		}
		return append(products[:i], products[i+1:]...), nil
	})
	if err != nil {
		return s.logFailure(ctx, err, "delete product failed")
	}

	logging.Ctx(ctx).Info().Str("product_id", id).Msg("product deleted")
	return nil
}

// logFailure logs store failures; a missing product is an expected outcome.
func (s *ProductService) logFailure(ctx context.Context, err error, msg string) error {
	if !errors.Is(err, ErrProductNotFound) {
		logging.Ctx(ctx).Error().Err(err).Msg(msg)
	}
	return err
}

func productIndex(products []domain.Product, id string) int {
	for i := range products {
		if products[i].ID == id {
			return i
		}
	}
	return -1
}
