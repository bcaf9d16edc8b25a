package shop

import "roombook/internal/apperr"

// Product is a purchasable item. Identity is the id; two products with
// the same id are the same product.
type Product struct {
	ID    string
	Name  string
	Price float64
}

func NewProduct(id, name string, price float64) (Product, error) {
	if id == "" {
		return Product{}, apperr.InvalidArgument("product id cannot be empty")
	}
	if name == "" {
		return Product{}, apperr.InvalidArgument("product name cannot be empty")
	}
	if price <= 0 {
		return Product{}, apperr.InvalidArgument("product price must be positive")
	}
	return Product{ID: id, Name: name, Price: price}, nil
}
