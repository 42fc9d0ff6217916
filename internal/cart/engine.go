package cart

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

const EmptyPlaceholder = "You haven't added anything to your cart."

var ErrItemNotFound = errors.New("cart item not found")

type LineItem struct {
	ID        string
	Title     string
	UnitPrice int64
}

type ItemView struct {
	ID        string `json:"id"`
	Index     int    `json:"index"`
	Title     string `json:"title"`
	UnitPrice int64  `json:"unitPrice"`
	PriceText string `json:"priceText"`
}

// View is everything the checkout summary shows after a mutation. Open asks the
// client to present the checkout.
type View struct {
	Items         []ItemView `json:"items"`
	Total         int64      `json:"total"`
	TotalText     string     `json:"totalText"`
	Empty         bool       `json:"empty"`
	Placeholder   string     `json:"placeholder,omitempty"`
	FooterVisible bool       `json:"footerVisible"`
	Open          bool       `json:"open"`
}

// Engine is the cart of one browsing session. It is not safe for concurrent
// use; Registry serialises access per cart.
type Engine struct {
	items []LineItem
	newID func() string
}

func New() *Engine {
	return &Engine{newID: uuid.NewString}
}

// AddItem appends a line item parsed from the displayed title and price and
// opens the checkout. A price without digits is rejected and the cart is left
// untouched.
func (e *Engine) AddItem(title, priceText string) (View, error) {
	price, err := ParsePrice(priceText)
	if err != nil {
		return e.Render(), err
	}
	e.items = append(e.items, LineItem{
		ID:        e.newID(),
		Title:     strings.TrimSpace(title),
		UnitPrice: price,
	})
	return e.OpenCheckout(), nil
}

func (e *Engine) RemoveItem(id string) (View, error) {
	for i, it := range e.items {
		if it.ID == id {
			e.items = append(e.items[:i], e.items[i+1:]...)
			return e.Render(), nil
		}
	}
	return e.Render(), ErrItemNotFound
}

// RemoveAt deletes by rendered position.
func (e *Engine) RemoveAt(index int) (View, error) {
	if index < 0 || index >= len(e.items) {
		return e.Render(), ErrItemNotFound
	}
	e.items = append(e.items[:index], e.items[index+1:]...)
	return e.Render(), nil
}

func (e *Engine) Clear() View {
	e.items = nil
	return e.Render()
}

func (e *Engine) Render() View {
	if len(e.items) == 0 {
		return View{
			Items:       []ItemView{},
			TotalText:   FormatRupiah(0),
			Empty:       true,
			Placeholder: EmptyPlaceholder,
		}
	}

	v := View{Items: make([]ItemView, 0, len(e.items)), FooterVisible: true}
	for i, it := range e.items {
		v.Total += it.UnitPrice
		v.Items = append(v.Items, ItemView{
			ID:        it.ID,
			Index:     i,
			Title:     it.Title,
			UnitPrice: it.UnitPrice,
			PriceText: FormatRupiah(it.UnitPrice),
		})
	}
	v.TotalText = FormatRupiah(v.Total)
	return v
}

func (e *Engine) OpenCheckout() View {
	v := e.Render()
	v.Open = true
	return v
}
