package sales

import (
	"fmt"
	"strings"

	"github.com/fairyhunter13/inventory-pos-service/internal/model"
)

// ItemPolicy decides what happens to line items with a missing product id or
// a non-positive quantity. Any present id, negative ones included, is looked
// up and fails the batch with NotFound when unknown.
type ItemPolicy int

const (
	// PolicyLenient drops malformed items and processes the rest.
	PolicyLenient ItemPolicy = iota
	// PolicyStrict rejects the whole batch on the first malformed item.
	PolicyStrict
)

func (p ItemPolicy) String() string {
	if p == PolicyStrict {
		return "strict"
	}
	return "lenient"
}

// ParseItemPolicy maps a configuration value to an ItemPolicy.
func ParseItemPolicy(s string) (ItemPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "lenient":
		return PolicyLenient, nil
	case "strict":
		return PolicyStrict, nil
	default:
		return PolicyLenient, fmt.Errorf("unknown sale item policy %q", s)
	}
}

// screen returns the items that will be processed, in input order.
func (p ItemPolicy) screen(items []model.LineItem) ([]model.LineItem, int, error) {
	accepted := make([]model.LineItem, 0, len(items))
	skipped := 0
	for i, it := range items {
		if it.ProductID != 0 && it.Quantity > 0 {
			accepted = append(accepted, it)
			continue
		}
		if p == PolicyStrict {
			return nil, 0, &ValidationError{Message: fmt.Sprintf("item %d: product_id and a positive quantity are required", i)}
		}
		skipped++
	}
	return accepted, skipped, nil
}
