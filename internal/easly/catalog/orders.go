package catalog

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopeasly/easly/internal/easly/docstore"
)

// OrderInput describes a new order. The product may be given by inventory ID,
// SKU or name; free text that matches nothing is kept as the product name.
type OrderInput struct {
	CustomerName string
	Product      string
	ProductID    string
	ProductSKU   string
	Quantity     int
	Price        *float64
	Status       string
	Notes        string
}

// OrderNumber returns the next ORD-YYYYMMDD-NNNN number for day, given the
// existing orders. The sequence restarts every day.
func OrderNumber(day time.Time, existing []Order) string {
	prefix := "ORD-" + day.Format("20060102") + "-"
	maxSeq := 0
	for _, o := range existing {
		suffix, ok := strings.CutPrefix(o.OrderNumber, prefix)
		if !ok {
			continue
		}
		if n, err := strconv.Atoi(suffix); err == nil && n > maxSeq {
			maxSeq = n
		}
	}
	return fmt.Sprintf("%s%04d", prefix, maxSeq+1)
}

// CreateOrder validates in and stores a new order with a generated order
// number.
func (c *Catalog) CreateOrder(ctx context.Context, in OrderInput) (*Order, error) {
	customer := strings.TrimSpace(in.CustomerName)
	if customer == "" {
		return nil, invalid("customerName", "is required")
	}
	if in.Quantity < 1 {
		return nil, invalid("quantity", "must be at least 1")
	}
	if in.Price != nil && *in.Price < 0 {
		return nil, invalid("price", "must be a non-negative number")
	}
	status := StatusPending
	if in.Status != "" {
		s, ok := NormalizeStatus(in.Status)
		if !ok {
			return nil, invalid("status", "must be one of Pending, Processing, Shipped, Delivered")
		}
		status = s
	}

	items, err := c.Inventory(ctx)
	if err != nil {
		return nil, err
	}
	product, err := resolveProduct(items, in)
	if err != nil {
		return nil, err
	}

	orders, err := c.Orders(ctx, 0)
	if err != nil {
		return nil, err
	}
	now := c.now()
	o := Order{
		OrderNumber:  OrderNumber(now, orders),
		CustomerName: customer,
		Quantity:     in.Quantity,
		Status:       status,
		Notes:        strings.TrimSpace(in.Notes),
		Date:         now.Format("2006-01-02"),
		CreatedAt:    now.UTC(),
	}
	switch {
	case product != nil:
		o.Product = product.Name
		o.ProductID = product.ID
		o.ProductSKU = product.SKU
		o.Price = product.Price
	default:
		o.Product = firstNonEmpty(in.Product, in.ProductSKU, in.ProductID, "Custom Item")
	}
	if in.Price != nil {
		o.Price = *in.Price
	}

	id, err := c.docs.Create(ctx, docstore.CollectionOrders, o)
	if err != nil {
		return nil, fmt.Errorf("catalog: create order: %w", err)
	}
	o.ID = id
	return &o, nil
}

// resolveProduct looks the order's product up by ID, then SKU, then exact
// name. A reference that matches nothing is accepted as free text, except an
// explicit product ID or SKU, which must exist.
func resolveProduct(items []InventoryItem, in OrderInput) (*InventoryItem, error) {
	id := strings.TrimSpace(in.ProductID)
	sku := strings.TrimSpace(in.ProductSKU)
	name := strings.TrimSpace(in.Product)

	find := func(ok func(InventoryItem) bool) *InventoryItem {
		for i := range items {
			if ok(items[i]) {
				return &items[i]
			}
		}
		return nil
	}

	var match *InventoryItem
	if id != "" {
		match = find(func(it InventoryItem) bool { return it.ID == id })
	}
	if match == nil && sku != "" {
		match = find(func(it InventoryItem) bool { return strings.EqualFold(it.SKU, sku) })
	}
	if match == nil && name != "" {
		match = find(func(it InventoryItem) bool { return it.ID == name })
		if match == nil {
			match = find(func(it InventoryItem) bool { return strings.EqualFold(it.SKU, name) })
		}
		if match == nil {
			match = find(func(it InventoryItem) bool { return strings.EqualFold(it.Name, name) })
		}
	}

	if match == nil {
		switch {
		case id != "":
			return nil, &NotFoundError{Kind: "product", Ref: id}
		case sku != "":
			return nil, &NotFoundError{Kind: "product", Ref: strings.ToUpper(sku)}
		}
		return nil, nil
	}
	if IsMaterialsCategory(match.Category) || IsPackingCategory(match.Category) {
		return nil, invalid("product", "must be a finished product (not Materials or Packing Materials)")
	}
	return match, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
