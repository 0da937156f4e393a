package storefronttest

import (
	"fmt"

	"shopassist/domain"
)

type seedLine struct {
	category string
	brand    string
	noun     string
	price    float64
}

var seedLines = []seedLine{
	{"Electronics", "Dell", "Laptop", 899},
	{"Electronics", "Apple", "Laptop", 1299},
	{"Electronics", "Sony", "Headphones", 199},
	{"Electronics", "Samsung", "Smartphone", 799},
	{"Books", "Penguin", "Novel", 15},
	{"Books", "O'Reilly", "Programming Guide", 45},
	{"Clothing", "Nike", "Running Shoes", 120},
	{"Clothing", "Adidas", "Hoodie", 60},
	{"Home", "IKEA", "Desk Lamp", 35},
	{"Sports", "Wilson", "Tennis Racket", 150},
}

// SampleProducts returns n deterministic products cycling through a fixed
// set of categories, brands and price points.
func SampleProducts(n int) []domain.Product {
	out := make([]domain.Product, 0, n)
	for i := 0; i < n; i++ {
		line := seedLines[i%len(seedLines)]
		series := i/len(seedLines) + 1
		out = append(out, domain.Product{
			ID:            i + 1,
			Name:          fmt.Sprintf("%s %s %d", line.brand, line.noun, series),
			Description:   fmt.Sprintf("A %s from %s.", line.noun, line.brand),
			Price:         line.price + float64(series-1)*10,
			Category:      line.category,
			Brand:         line.brand,
			StockQuantity: 10 + i%7,
			Rating:        3.5 + float64(i%3)*0.5,
		})
	}
	return out
}
