package catalog

import "github.com/fjod/go_cart/storefront/internal/domain"

// FilterByCategory keeps products whose category equals selected. An empty
// selection or AllCategories keeps everything.
func FilterByCategory(products []domain.Product, selected string) []domain.Product {
	if selected == "" || selected == AllCategories {
		return products
	}
	out := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if p.Category == selected {
			out = append(out, p)
		}
	}
	return out
}
