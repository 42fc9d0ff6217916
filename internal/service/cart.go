package service

import (
	"context"
	"time"

	"github.com/Skotchmaster/storefront/internal/cart"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/mykafka"
)

// CartService keeps one cart engine per browsing session. Carts live in process
// memory only.
type CartService struct {
	Carts     *cart.Registry
	Publisher Publisher
}

func NewCartService(p Publisher) *CartService {
	return &CartService{Carts: cart.NewRegistry(), Publisher: p}
}

func (s *CartService) View(cartID string) cart.View {
	var v cart.View
	_ = s.Carts.Do(cartID, func(e *cart.Engine) error {
		v = e.Render()
		return nil
	})
	return v
}

// Open renders the cart and marks the checkout view open.
func (s *CartService) Open(ctx context.Context, cartID string, userID uint) cart.View {
	var v cart.View
	_ = s.Carts.Do(cartID, func(e *cart.Engine) error {
		v = e.OpenCheckout()
		return nil
	})
	s.checkoutOpened(ctx, userID, v)
	return v
}

// AddItem appends a line item parsed from the displayed price text. On a bad
// price the cart is left as it was and its current view is returned with the error.
func (s *CartService) AddItem(ctx context.Context, cartID string, userID uint, title, priceText string) (cart.View, error) {
	var v cart.View
	err := s.Carts.Do(cartID, func(e *cart.Engine) error {
		var err error
		v, err = e.AddItem(title, priceText)
		return err
	})
	if err != nil {
		logging.FromContext(ctx).Warn("cart_add_rejected", "title", title, "price", priceText, "error", err)
		return v, err
	}
	s.checkoutOpened(ctx, userID, v)
	return v, nil
}

func (s *CartService) RemoveItem(cartID, itemID string) (cart.View, error) {
	var v cart.View
	err := s.Carts.Do(cartID, func(e *cart.Engine) error {
		var err error
		v, err = e.RemoveItem(itemID)
		return err
	})
	return v, err
}

func (s *CartService) Clear(cartID string) cart.View {
	var v cart.View
	_ = s.Carts.Do(cartID, func(e *cart.Engine) error {
		v = e.Clear()
		return nil
	})
	return v
}

// Drop forgets the cart, used when its session ends.
func (s *CartService) Drop(cartID string) {
	if cartID != "" {
		s.Carts.Drop(cartID)
	}
}

func (s *CartService) Prune(idle time.Duration) int {
	return s.Carts.Prune(idle)
}

// Len is the number of live carts.
func (s *CartService) Len() int { return s.Carts.Len() }

func (s *CartService) checkoutOpened(ctx context.Context, userID uint, v cart.View) {
	publish(ctx, s.Publisher, mykafka.TopicCartEvents, userID, map[string]any{
		"type":   "cart_checkout_opened",
		"userID": userID,
		"items":  len(v.Items),
		"total":  v.Total,
	})
}
