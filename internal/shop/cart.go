package shop

import (
	"fmt"
	"sync"

	"roombook/internal/apperr"
)

// Line is one cart entry: a product and how many of it.
type Line struct {
	Product  Product
	Quantity int
}

// Cart accumulates products and computes totals. Quantities are summed
// when the same product is added twice; removing more than present is
// an error, removing an absent product is a no-op.
type Cart struct {
	mu    sync.Mutex
	lines map[string]Line
	total int
}

func NewCart() *Cart {
	return &Cart{lines: make(map[string]Line)}
}

func (c *Cart) AddProduct(p Product, quantity int) error {
	if quantity < 0 {
		return apperr.InvalidArgument("quantity cannot be negative")
	}
	if quantity == 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	line := c.lines[p.ID]
	line.Product = p
	line.Quantity += quantity
	c.lines[p.ID] = line
	c.total += quantity
	return nil
}

func (c *Cart) RemoveProduct(p Product, quantity int) error {
	if quantity < 0 {
		return apperr.InvalidArgument("quantity cannot be negative")
	}
	if quantity == 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	line, ok := c.lines[p.ID]
	if !ok {
		return nil
	}
	if quantity > line.Quantity {
		return apperr.InvalidArgument(fmt.Sprintf(
			"cannot remove more products than are in the cart: have %d, attempted %d", line.Quantity, quantity))
	}

	line.Quantity -= quantity
	if line.Quantity <= 0 {
		delete(c.lines, p.ID)
	} else {
		c.lines[p.ID] = line
	}
	c.total -= quantity
	return nil
}

// UpdateProductQuantity sets the absolute quantity for a product;
// zero removes it from the cart.
func (c *Cart) UpdateProductQuantity(p Product, newQuantity int) error {
	if newQuantity < 0 {
		return apperr.InvalidArgument("quantity cannot be negative")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	current := c.lines[p.ID].Quantity
	if newQuantity == 0 {
		delete(c.lines, p.ID)
	} else {
		c.lines[p.ID] = Line{Product: p, Quantity: newQuantity}
	}
	c.total += newQuantity - current
	return nil
}

func (c *Cart) TotalQuantity() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.total
}

// Lines returns a copy of the cart contents.
func (c *Cart) Lines() []Line {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Line, 0, len(c.lines))
	for _, line := range c.lines {
		out = append(out, line)
	}
	return out
}

func (c *Cart) TotalPrice() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totalPriceLocked()
}

func (c *Cart) totalPriceLocked() float64 {
	total := 0.0
	for _, line := range c.lines {
		total += line.Product.Price * float64(line.Quantity)
	}
	return total
}

// ApplyPercentageDiscount returns the total after discounting by the
// given percentage. The cart itself is not mutated.
func (c *Cart) ApplyPercentageDiscount(percentage float64) (float64, error) {
	if percentage < 0 || percentage > 100 {
		return 0, apperr.InvalidArgument("discount percentage must be between 0 and 100")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	total := c.totalPriceLocked()
	if total == 0 {
		return 0, nil
	}

	discounted := total - total*(percentage/100.0)
	if discounted < 0 {
		discounted = 0
	}
	return discounted, nil
}

func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = make(map[string]Line)
	c.total = 0
}
