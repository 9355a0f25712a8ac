package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/expr-lang/expr/vm"

	"github.com/shopeasly/easly/internal/easly/docstore"
)

// Catalog is the inventory and order repository.
type Catalog struct {
	docs   docstore.Store
	now    func() time.Time
	suffix func(n int) string
	alert  *vm.Program
}

// Option configures a Catalog.
type Option func(*Catalog) error

// WithClock overrides the time source used for dates, order numbers and SKU
// fallbacks.
func WithClock(now func() time.Time) Option {
	return func(c *Catalog) error {
		c.now = now
		return nil
	}
}

// WithSuffix overrides the random SKU suffix generator.
func WithSuffix(fn func(n int) string) Option {
	return func(c *Catalog) error {
		c.suffix = fn
		return nil
	}
}

// WithAlertExpr sets the packing alert predicate. See CompileAlertExpr.
func WithAlertExpr(src string) Option {
	return func(c *Catalog) error {
		prog, err := CompileAlertExpr(src)
		if err != nil {
			return err
		}
		c.alert = prog
		return nil
	}
}

// New returns a Catalog over docs.
func New(docs docstore.Store, opts ...Option) (*Catalog, error) {
	c := &Catalog{
		docs:   docs,
		now:    time.Now,
		suffix: RandomSuffix,
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, fmt.Errorf("catalog: %w", err)
		}
	}
	if c.alert == nil {
		prog, err := CompileAlertExpr(DefaultAlertExpr)
		if err != nil {
			return nil, fmt.Errorf("catalog: %w", err)
		}
		c.alert = prog
	}
	return c, nil
}

// Now returns the catalog clock's current time.
func (c *Catalog) Now() time.Time { return c.now() }

// Suffix returns n random SKU suffix characters.
func (c *Catalog) Suffix(n int) string { return c.suffix(n) }

func (c *Catalog) today() string { return c.now().Format("2006-01-02") }

// --- inventory ---

// Inventory loads all inventory items in insertion order.
func (c *Catalog) Inventory(ctx context.Context) ([]InventoryItem, error) {
	docs, err := c.docs.List(ctx, docstore.CollectionInventory, 0)
	if err != nil {
		return nil, fmt.Errorf("catalog: list inventory: %w", err)
	}
	slices.Reverse(docs)
	return decodeAll[InventoryItem](docs, func(it *InventoryItem, id string) { it.ID = id })
}

// Item loads one inventory item by document ID.
func (c *Catalog) Item(ctx context.Context, id string) (*InventoryItem, error) {
	doc, err := c.docs.Get(ctx, docstore.CollectionInventory, id)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, &NotFoundError{Kind: "inventory item", Ref: id}
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: get item %s: %w", id, err)
	}
	var it InventoryItem
	if err := json.Unmarshal(doc.Data, &it); err != nil {
		return nil, fmt.Errorf("catalog: decode item %s: %w", id, err)
	}
	it.ID = doc.ID
	return &it, nil
}

// ItemBySKU finds an item by case-insensitive SKU.
func (c *Catalog) ItemBySKU(ctx context.Context, sku string) (*InventoryItem, error) {
	items, err := c.Inventory(ctx)
	if err != nil {
		return nil, err
	}
	for i := range items {
		if strings.EqualFold(items[i].SKU, sku) {
			return &items[i], nil
		}
	}
	return nil, &NotFoundError{Kind: "SKU", Ref: strings.ToUpper(sku)}
}

// CreateItem stores it as a new inventory item and returns it with its ID.
// The caller is responsible for defaults; only the name is required here.
func (c *Catalog) CreateItem(ctx context.Context, it InventoryItem) (*InventoryItem, error) {
	it.Name = strings.TrimSpace(it.Name)
	if it.Name == "" {
		return nil, invalid("name", "is required")
	}
	if it.Stock < 0 {
		return nil, invalid("stock", "must be a non-negative integer")
	}
	if it.Price < 0 {
		return nil, invalid("price", "must be a non-negative number")
	}
	if it.Status == "" {
		it.Status = "active"
	}
	if it.Category == "" {
		it.Category = CategoryGeneral
	}
	if it.DateAdded == "" {
		it.DateAdded = c.today()
	}
	it.ID = ""

	id, err := c.docs.Create(ctx, docstore.CollectionInventory, it)
	if err != nil {
		return nil, fmt.Errorf("catalog: create item: %w", err)
	}
	it.ID = id
	return &it, nil
}

// UpdateItem merges fields into an existing item.
func (c *Catalog) UpdateItem(ctx context.Context, id string, fields map[string]any) error {
	if len(fields) == 0 {
		return invalid("", "no fields to update")
	}
	err := c.docs.Update(ctx, docstore.CollectionInventory, id, fields)
	if errors.Is(err, docstore.ErrNotFound) {
		return &NotFoundError{Kind: "inventory item", Ref: id}
	}
	if err != nil {
		return fmt.Errorf("catalog: update item %s: %w", id, err)
	}
	return nil
}

// SetStock overwrites an item's stock level.
func (c *Catalog) SetStock(ctx context.Context, id string, stock int) error {
	if stock < 0 {
		return invalid("stock", "must be a non-negative integer")
	}
	return c.UpdateItem(ctx, id, map[string]any{"stock": stock})
}

// AdjustStock adds delta to an item's stock and returns the item after the
// change. The result never goes below zero.
func (c *Catalog) AdjustStock(ctx context.Context, id string, delta int) (*InventoryItem, error) {
	it, err := c.Item(ctx, id)
	if err != nil {
		return nil, err
	}
	it.Stock = max(0, it.Stock+delta)
	if err := c.UpdateItem(ctx, id, map[string]any{"stock": it.Stock}); err != nil {
		return nil, err
	}
	return it, nil
}

// DeleteItem removes an inventory item.
func (c *Catalog) DeleteItem(ctx context.Context, id string) error {
	err := c.docs.Delete(ctx, docstore.CollectionInventory, id)
	if errors.Is(err, docstore.ErrNotFound) {
		return &NotFoundError{Kind: "inventory item", Ref: id}
	}
	if err != nil {
		return fmt.Errorf("catalog: delete item %s: %w", id, err)
	}
	return nil
}

// MatchByName returns items whose name or SKU contains term
// (case-insensitive).
func MatchByName(items []InventoryItem, term string) []InventoryItem {
	t := strings.ToLower(strings.TrimSpace(term))
	var out []InventoryItem
	for _, it := range items {
		if strings.Contains(strings.ToLower(it.Name), t) || strings.Contains(strings.ToLower(it.SKU), t) {
			out = append(out, it)
		}
	}
	return out
}

// MaxComponentMatches caps candidate lists for product component lookups.
const MaxComponentMatches = 7

// FindComponents returns up to MaxComponentMatches items whose name contains
// term and whose category satisfies keep.
func FindComponents(items []InventoryItem, term string, keep func(category string) bool) []InventoryItem {
	t := strings.ToLower(strings.TrimSpace(term))
	var out []InventoryItem
	for _, it := range items {
		if !keep(it.Category) || !strings.Contains(strings.ToLower(it.Name), t) {
			continue
		}
		out = append(out, it)
		if len(out) == MaxComponentMatches {
			break
		}
	}
	return out
}

// ExactName returns the first item whose name equals name ignoring case.
func ExactName(items []InventoryItem, name string) *InventoryItem {
	for i := range items {
		if strings.EqualFold(strings.TrimSpace(items[i].Name), strings.TrimSpace(name)) {
			return &items[i]
		}
	}
	return nil
}

// --- orders ---

// Orders loads orders newest first. limit <= 0 loads every order.
func (c *Catalog) Orders(ctx context.Context, limit int) ([]Order, error) {
	docs, err := c.docs.List(ctx, docstore.CollectionOrders, limit)
	if err != nil {
		return nil, fmt.Errorf("catalog: list orders: %w", err)
	}
	return decodeAll[Order](docs, func(o *Order, id string) { o.ID = id })
}

// FindOrder resolves ref against order numbers first, then document IDs,
// case-insensitively.
func (c *Catalog) FindOrder(ctx context.Context, ref string) (*Order, error) {
	orders, err := c.Orders(ctx, 0)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		if orders[i].OrderNumber != "" && strings.EqualFold(orders[i].OrderNumber, ref) {
			return &orders[i], nil
		}
	}
	for i := range orders {
		if strings.EqualFold(orders[i].ID, ref) {
			return &orders[i], nil
		}
	}
	return nil, &NotFoundError{Kind: "order", Ref: strings.ToUpper(ref)}
}

// UpdateOrderStatus sets an order's status. status is matched
// case-insensitively against OrderStatuses.
func (c *Catalog) UpdateOrderStatus(ctx context.Context, id, status string) (string, error) {
	canonical, ok := NormalizeStatus(status)
	if !ok {
		return "", invalid("status", "must be one of Pending, Processing, Shipped, Delivered")
	}
	err := c.docs.Update(ctx, docstore.CollectionOrders, id, map[string]any{"status": canonical})
	if errors.Is(err, docstore.ErrNotFound) {
		return "", &NotFoundError{Kind: "order", Ref: id}
	}
	if err != nil {
		return "", fmt.Errorf("catalog: update order %s: %w", id, err)
	}
	return canonical, nil
}

// DeleteOrder removes an order.
func (c *Catalog) DeleteOrder(ctx context.Context, id string) error {
	err := c.docs.Delete(ctx, docstore.CollectionOrders, id)
	if errors.Is(err, docstore.ErrNotFound) {
		return &NotFoundError{Kind: "order", Ref: id}
	}
	if err != nil {
		return fmt.Errorf("catalog: delete order %s: %w", id, err)
	}
	return nil
}

func decodeAll[T any](docs []docstore.Document, setID func(*T, string)) ([]T, error) {
	out := make([]T, 0, len(docs))
	for _, d := range docs {
		var v T
		if err := json.Unmarshal(d.Data, &v); err != nil {
			return nil, fmt.Errorf("catalog: decode %s: %w", d.ID, err)
		}
		setID(&v, d.ID)
		out = append(out, v)
	}
	return out, nil
}
