package menu

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

var ErrItemNotFound = errors.New("menu item not found")

type Item struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	CategoryID string          `json:"category_id"`
	Active     bool            `json:"active"`
}

type Category struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Position int    `json:"position"`
}

// Source fetches a restaurant's catalog from the menu service.
type Source interface {
	Items(ctx context.Context, restaurantID string) ([]Item, error)
	Categories(ctx context.Context, restaurantID string) ([]Category, error)
}
