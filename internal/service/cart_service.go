package service

import (
	"context"
	"fmt"

	"marketplace/internal/model"
	"marketplace/internal/pricing"
	"marketplace/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// cartService implements CartService.
type cartService struct {
	carts    repository.CartRepository
	products repository.ProductRepository
	pricing  *pricing.Engine
	logger   zerolog.Logger
}

// NewCartService creates a new cart service.
func NewCartService(carts repository.CartRepository, products repository.ProductRepository, engine *pricing.Engine, logger zerolog.Logger) CartService {
	return &cartService{
		carts:    carts,
		products: products,
		pricing:  engine,
		logger:   logger.With().Str("service", "cart").Logger(),
	}
}

// Get returns the cart with a quote computed from current catalogue prices.
func (s *cartService) Get(ctx context.Context, userID uuid.UUID) (*CartView, error) {
	cart, err := s.carts.Get(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID.String()).Msg("failed to get cart")
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}
	if cart.IsEmpty() {
		return &CartView{Cart: cart}, nil
	}

	lines := cart.Lines()
	products, err := s.products.GetByIDs(ctx, productIDs(lines))
	if err != nil {
		return nil, fmt.Errorf("failed to get products: %w", err)
	}
	quote, err := s.pricing.Quote(products, lines)
	if err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID.String()).Msg("cart references unavailable catalogue data")
		return nil, err
	}

	for i := range cart.Items {
		product := products[cart.Items[i].ProductID]
		for v := range cart.Items[i].Variants {
			if variant, ok := product.Variant(cart.Items[i].Variants[v].VariantID); ok {
				cart.Items[i].Variants[v].Attributes = variant.Attributes
			}
		}
	}

	return &CartView{Cart: cart, Quote: quote}, nil
}

// AddItem adds quantity of a variant to the cart.
func (s *cartService) AddItem(ctx context.Context, userID uuid.UUID, line model.CartLine) (*CartView, error) {
	if line.Quantity <= 0 {
		return nil, model.ErrInvalidQuantity
	}
	if err := s.checkVariant(ctx, line); err != nil {
		return nil, err
	}
	if err := s.carts.AddQuantity(ctx, line, userID); err != nil {
		return nil, fmt.Errorf("failed to add cart item: %w", err)
	}

	s.logger.Debug().
		Str("user_id", userID.String()).
		Str("variant_id", line.VariantID.String()).
		Int("quantity", line.Quantity).
		Msg("cart item added")
	return s.Get(ctx, userID)
}

// UpdateItem replaces a line's quantity; zero removes it.
func (s *cartService) UpdateItem(ctx context.Context, userID uuid.UUID, line model.CartLine) (*CartView, error) {
	if line.Quantity < 0 {
		return nil, model.ErrInvalidQuantity
	}
	if line.Quantity > 0 {
		if err := s.checkVariant(ctx, line); err != nil {
			return nil, err
		}
	}
	if err := s.carts.SetQuantity(ctx, line, userID); err != nil {
		return nil, fmt.Errorf("failed to update cart item: %w", err)
	}
	return s.Get(ctx, userID)
}

// checkVariant requires the variant to exist under the named product.
func (s *cartService) checkVariant(ctx context.Context, line model.CartLine) error {
	product, err := s.products.GetByID(ctx, line.ProductID)
	if err != nil {
		return fmt.Errorf("failed to get product: %w", err)
	}
	if product == nil {
		return model.ErrProductNotFound
	}
	if _, ok := product.Variant(line.VariantID); !ok {
		return model.ErrVariantNotFound
	}
	return nil
}
