package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"shopassist/domain"
	"shopassist/listing"
)

func printJSON(v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}

func printProducts(products []domain.Product) {
	for _, p := range products {
		fmt.Printf("%d | %s | %.2f | %s | %s\n",
			p.ID, p.Name, p.Price, p.Category, p.Brand)
	}
}

// formatWindow renders page buttons as "< 1 [2] 3 >". The arrows only
// appear when that direction is enabled.
func formatWindow(w listing.Window, current int) string {
	parts := make([]string, 0, len(w.Pages)+2)
	if w.HasPrev {
		parts = append(parts, "<")
	}
	for _, p := range w.Pages {
		if p == current {
			parts = append(parts, fmt.Sprintf("[%d]", p))
		} else {
			parts = append(parts, fmt.Sprint(p))
		}
	}
	if w.HasNext {
		parts = append(parts, ">")
	}
	return strings.Join(parts, " ")
}

// printListing writes the outcome of a listing request. A failed request
// becomes an error carrying the user-facing reason.
func printListing(st listing.State, windowSize int, output string) error {
	switch st.Status.Kind {
	case domain.StatusFailed:
		return fmt.Errorf("%s", st.Status.Reason)
	case domain.StatusSuccess:
	default:
		fmt.Println(st.Status.Kind)
		return nil
	}

	res := st.Status.Result
	if output == "json" {
		printJSON(map[string]any{
			"products":     res.Items,
			"total":        res.Total,
			"pages":        res.TotalPages,
			"current_page": res.CurrentPage,
			"per_page":     res.PerPage,
		})
		return nil
	}

	if len(res.Items) == 0 {
		fmt.Println("no products found")
	}
	printProducts(res.Items)
	w := listing.PageWindow(res.CurrentPage, res.TotalPages, windowSize)
	fmt.Printf("page %d of %d (%d products)  %s\n",
		res.CurrentPage, res.TotalPages, res.Total, formatWindow(w, res.CurrentPage))
	return nil
}
