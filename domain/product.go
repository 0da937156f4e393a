// Package domain defines core business types and interfaces.
package domain

import (
	"context"
)

// Listing defaults applied at controller initialization and on reset.
const (
	DefaultPage    = 1
	DefaultPerPage = 12
)

// Product represents a storefront product as returned by the API
type Product struct {
	ID            int     `json:"id" validate:"required"`
	Name          string  `json:"name" validate:"required"`
	Description   string  `json:"description"`
	Price         float64 `json:"price" validate:"gte=0"`
	Category      string  `json:"category"`
	Brand         string  `json:"brand"`
	StockQuantity int     `json:"stock_quantity"`
	ImageURL      string  `json:"image_url,omitempty"`
	Rating        float64 `json:"rating"`
	Features      string  `json:"features,omitempty"`
	CreatedAt     string  `json:"created_at,omitempty"`
	UpdatedAt     string  `json:"updated_at,omitempty"`
}

// FilterCriteria is the full set of listing parameters. Empty strings and nil
// price bounds mean "no constraint".
type FilterCriteria struct {
	Query    string
	Category string
	Brand    string
	MinPrice *float64
	MaxPrice *float64
	Page     int
	PerPage  int
}

// DefaultCriteria returns page 1 of 12 with no constraints
func DefaultCriteria() FilterCriteria {
	return FilterCriteria{Page: DefaultPage, PerPage: DefaultPerPage}
}

// HasQuery reports whether the criteria carry a free-text query. Any
// non-empty text counts, whitespace included.
func (c FilterCriteria) HasQuery() bool {
	return c.Query != ""
}

// Clone returns a copy that shares no pointers with c
func (c FilterCriteria) Clone() FilterCriteria {
	out := c
	if c.MinPrice != nil {
		v := *c.MinPrice
		out.MinPrice = &v
	}
	if c.MaxPrice != nil {
		v := *c.MaxPrice
		out.MaxPrice = &v
	}
	return out
}

// Apply merges patch onto a copy of c and resets the page to 1
func (c FilterCriteria) Apply(patch FilterPatch) FilterCriteria {
	out := c.Clone()
	if patch.Query != nil {
		out.Query = *patch.Query
	}
	if patch.Category != nil {
		out.Category = *patch.Category
	}
	if patch.Brand != nil {
		out.Brand = *patch.Brand
	}
	switch {
	case patch.ClearMinPrice:
		out.MinPrice = nil
	case patch.MinPrice != nil:
		v := *patch.MinPrice
		out.MinPrice = &v
	}
	switch {
	case patch.ClearMaxPrice:
		out.MaxPrice = nil
	case patch.MaxPrice != nil:
		v := *patch.MaxPrice
		out.MaxPrice = &v
	}
	if patch.PerPage != nil {
		out.PerPage = *patch.PerPage
	}
	out.Page = DefaultPage
	return out
}

// WithPage returns a copy of c with only the page replaced
func (c FilterCriteria) WithPage(page int) FilterCriteria {
	out := c.Clone()
	out.Page = page
	return out
}

// FilterPatch is a partial FilterCriteria. A nil field keeps the prior value;
// a pointer to "" clears a text constraint and the Clear flags drop a price bound.
type FilterPatch struct {
	Query         *string
	Category      *string
	Brand         *string
	MinPrice      *float64
	MaxPrice      *float64
	ClearMinPrice bool
	ClearMaxPrice bool
	PerPage       *int
}

// ListingResult is one page of products as reported by the Listing Service
type ListingResult struct {
	Items       []Product
	Total       int
	TotalPages  int
	CurrentPage int
	PerPage     int
}

// ListingService is the external product listing backend
type ListingService interface {
	List(ctx context.Context, criteria FilterCriteria) (ListingResult, error)
	Search(ctx context.Context, criteria FilterCriteria) (ListingResult, error)
	Categories(ctx context.Context) ([]string, error)
	Brands(ctx context.Context) ([]string, error)
}

// ProductCatalog extends ListingService with single-product lookup
type ProductCatalog interface {
	ListingService
	GetProduct(ctx context.Context, id int) (Product, error)
}

// SessionStore persists small client-side values such as the chat session id
// and the auth token across process restarts.
type SessionStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Well-known SessionStore keys.
const (
	KeyChatSessionID = "chatSessionId"
	KeyAuthToken     = "authToken"
	KeyUser          = "user"
)
