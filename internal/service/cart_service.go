package service

import (
	"context"
	"errors"

	"github.com/fjod/filecart/internal/domain"
	"github.com/fjod/filecart/internal/logging"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

const CartsCollection = "carts"

type CartRepository interface {
	Load(ctx context.Context) ([]domain.Cart, error)
	Update(ctx context.Context, fn func([]domain.Cart) ([]domain.Cart, error)) error
}

// ProductLookup is the optional catalog check used by AddProduct.
type ProductLookup interface {
	Exists(ctx context.Context, id string) (bool, error)
}

type CartService struct {
	repo     CartRepository
	products ProductLookup
	newID    func() string
}

type CartOption func(*CartService)

// WithProductLookup makes AddProduct reject product ids the lookup does not
// know. Without it carts hold bare ids and the catalog is never consulted.
func WithProductLookup(l ProductLookup) CartOption {
	return func(s *CartService) {
		s.products = l
	}
}

func NewCartService(repo CartRepository, opts ...CartOption) *CartService {
	s := &CartService{
		repo:  repo,
		newID: func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *CartService) CreateCart(ctx context.Context) (cart domain.Cart, err error) {
	ctx, span := startSpan(ctx, "CartService.CreateCart")
	defer func() { endSpan(span, err) }()

	err = s.repo.Update(ctx, func(carts []domain.Cart) ([]domain.Cart, error) {
		id := s.newID()
		for cartIndex(carts, id) >= 0 {
			id = s.newID()
		}
		cart = domain.Cart{ID: id, Items: []domain.CartItem{}}
		return append(carts, cart), nil
	})
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("create cart failed")
		return domain.Cart{}, err
	}

	logging.Ctx(ctx).Info().Str("cart_id", cart.ID).Msg("cart created")
	return cart, nil
}

func (s *CartService) GetCart(ctx context.Context, cartID string) (cart domain.Cart, err error) {
	ctx, span := startSpan(ctx, "CartService.GetCart", attribute.String("cart.id", cartID))
	defer func() { endSpan(span, err) }()

	carts, err := s.repo.Load(ctx)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("load carts failed")
		return domain.Cart{}, err
	}
	i := cartIndex(carts, cartID)
	if i < 0 {
		return domain.Cart{}, ErrCartNotFound
	}
	return normalize(carts[i]), nil
}

func (s *CartService) GetCartItems(ctx context.Context, cartID string) ([]domain.CartItem, error) {
	cart, err := s.GetCart(ctx, cartID)
	if err != nil {
		return nil, err
	}
	return cart.Items, nil
}

// AddProduct adds one unit of productID to the cart: a new line with
// quantity 1, or +1 on the existing line. A cart never holds two lines for
// the same product.
func (s *CartService) AddProduct(ctx context.Context, cartID, productID string) (cart domain.Cart, err error) {
	ctx, span := startSpan(ctx, "CartService.AddProduct",
		attribute.String("cart.id", cartID), attribute.String("product.id", productID))
	defer func() { endSpan(span, err) }()

	if productID == "" {
		return domain.Cart{}, &ValidationError{Field: "productId", Reason: "is required"}
	}

	if s.products != nil {
		ok, err := s.products.Exists(ctx, productID)
		if err != nil {
			return domain.Cart{}, err
		}
		if !ok {
			return domain.Cart{}, ErrProductNotFound
		}
	}

	err = s.repo.Update(ctx, func(carts []domain.Cart) ([]domain.Cart, error) {
		i := cartIndex(carts, cartID)
		if i < 0 {
			return nil, ErrCartNotFound
		}
		c := &carts[i]
		if j := c.ItemIndex(productID); j >= 0 {
			c.Items[j].Quantity++
		} else {
			c.Items = append(c.Items, domain.CartItem{ProductID: productID, Quantity: 1})
		}
		cart = normalize(*c)
		return carts, nil
	})
	if err != nil {
		if !errors.Is(err, ErrCartNotFound) {
			logging.Ctx(ctx).Error().Err(err).Msg("add product to cart failed")
		}
		return domain.Cart{}, err
	}
	return cart, nil
}

func normalize(c domain.Cart) domain.Cart {
	if c.Items == nil {
		c.Items = []domain.CartItem{}
	}
	return c
}

func cartIndex(carts []domain.Cart, id string) int {
	for i := range carts {
		if carts[i].ID == id {
			return i
		}
	}
	return -1
}
