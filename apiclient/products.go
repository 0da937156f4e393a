package apiclient

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"shopassist/domain"
)

type productPage struct {
	Products    []domain.Product `json:"products" validate:"required,dive"`
	Total       int              `json:"total" validate:"gte=0"`
	Pages       int              `json:"pages" validate:"gte=0"`
	CurrentPage int              `json:"current_page" validate:"gte=1"`
	PerPage     int              `json:"per_page" validate:"gte=0"`
	Query       string           `json:"query,omitempty"`
}

type categoryList struct {
	Categories []string `json:"categories" validate:"required"`
}

type brandList struct {
	Brands []string `json:"brands" validate:"required"`
}

// criteriaQuery encodes criteria the way the API expects them. Absent
// constraints are omitted rather than sent empty.
func criteriaQuery(c domain.FilterCriteria) url.Values {
	q := url.Values{}
	if c.Query != "" {
		q.Set("q", c.Query)
	}
	if c.Category != "" {
		q.Set("category", c.Category)
	}
	if c.Brand != "" {
		q.Set("brand", c.Brand)
	}
	if c.MinPrice != nil {
		q.Set("min_price", strconv.FormatFloat(*c.MinPrice, 'f', -1, 64))
	}
	if c.MaxPrice != nil {
		q.Set("max_price", strconv.FormatFloat(*c.MaxPrice, 'f', -1, 64))
	}
	if c.Page != 0 {
		q.Set("page", strconv.Itoa(c.Page))
	}
	if c.PerPage != 0 {
		q.Set("per_page", strconv.Itoa(c.PerPage))
	}
	return q
}

func (p productPage) result() domain.ListingResult {
	return domain.ListingResult{
		Items:       p.Products,
		Total:       p.Total,
		TotalPages:  p.Pages,
		CurrentPage: p.CurrentPage,
		PerPage:     p.PerPage,
	}
}

// List returns one page of products in the default order.
func (c *Client) List(ctx context.Context, criteria domain.FilterCriteria) (domain.ListingResult, error) {
	var page productPage
	if err := c.do(ctx, "list", http.MethodGet, "/api/products/", criteriaQuery(criteria), nil, &page); err != nil {
		return domain.ListingResult{}, err
	}
	return page.result(), nil
}

// Search returns one page of products ranked by relevance to criteria.Query.
func (c *Client) Search(ctx context.Context, criteria domain.FilterCriteria) (domain.ListingResult, error) {
	var page productPage
	if err := c.do(ctx, "search", http.MethodGet, "/api/products/search", criteriaQuery(criteria), nil, &page); err != nil {
		return domain.ListingResult{}, err
	}
	return page.result(), nil
}

// GetProduct fetches a single product.
func (c *Client) GetProduct(ctx context.Context, id int) (domain.Product, error) {
	var p domain.Product
	err := c.do(ctx, "get_product", http.MethodGet, "/api/products/"+strconv.Itoa(id), nil, nil, &p)
	var te *domain.TransportError
	if errors.As(err, &te) && te.StatusCode == http.StatusNotFound {
		return domain.Product{}, domain.NewProductNotFoundError(id)
	}
	if err != nil {
		return domain.Product{}, err
	}
	return p, nil
}

// Categories returns the category names available for filtering.
func (c *Client) Categories(ctx context.Context) ([]string, error) {
	var out categoryList
	if err := c.do(ctx, "categories", http.MethodGet, "/api/products/categories", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Categories, nil
}

// Brands returns the brand names available for filtering.
func (c *Client) Brands(ctx context.Context) ([]string, error) {
	var out brandList
	if err := c.do(ctx, "brands", http.MethodGet, "/api/products/brands", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Brands, nil
}
