package catalog

import (
	"context"
	"fmt"
	"strings"
)

// ProductInput describes a finished product assembled from materials and an
// optional packaging item.
type ProductInput struct {
	Name        string
	Price       float64
	Quantity    int
	MaterialIDs []string
	PackagingID string
	Category    string
	SKU         string
	ImageURL    string
}

// CreateProduct validates the component references and stores the product.
// Every material ID must point at a Materials item and the packaging ID, when
// set, at a Packing Materials item.
func (c *Catalog) CreateProduct(ctx context.Context, in ProductInput) (*InventoryItem, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, invalid("name", "is required")
	}
	if in.Quantity < 0 {
		return nil, invalid("quantity", "must be a non-negative integer")
	}
	if in.Price < 0 {
		return nil, invalid("price", "must be a non-negative number")
	}

	items, err := c.Inventory(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]InventoryItem, len(items))
	for _, it := range items {
		byID[it.ID] = it
	}

	var materials []string
	seen := map[string]bool{}
	for _, id := range in.MaterialIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		it, ok := byID[id]
		if !ok || !IsMaterialsCategory(it.Category) {
			return nil, invalid("materialsIds", "contains an ID that is not a material")
		}
		materials = append(materials, id)
	}

	if in.PackagingID != "" {
		it, ok := byID[in.PackagingID]
		if !ok || !IsPackingCategory(it.Category) {
			return nil, invalid("packagingId", "is not a packing material")
		}
	}

	base := SKUFromName(name)
	if s := strings.TrimSpace(in.SKU); s != "" {
		base = strings.ToUpper(s)
	}
	category := strings.TrimSpace(in.Category)
	if category == "" {
		category = CategoryProducts
	}

	return c.CreateItem(ctx, InventoryItem{
		Name:        name,
		SKU:         UniqueSKU(base, items, c.now()),
		Stock:       in.Quantity,
		Price:       in.Price,
		Threshold:   5,
		Category:    category,
		Materials:   materials,
		PackagingID: in.PackagingID,
		ImageURL:    in.ImageURL,
	})
}

// MaterialInput describes a raw material or packing material.
type MaterialInput struct {
	Name        string
	Stock       int
	Price       *float64
	Threshold   *int
	SKU         string
	Dimensions  string
	Unit        string
	Description string
}

// AddMaterial stores a raw material item.
func (c *Catalog) AddMaterial(ctx context.Context, in MaterialInput) (*InventoryItem, error) {
	return c.addComponent(ctx, in, CategoryMaterials, SKUFromName(in.Name))
}

// AddPackingMaterial stores a packing material item. Dimensions are required.
func (c *Catalog) AddPackingMaterial(ctx context.Context, in MaterialInput) (*InventoryItem, error) {
	if strings.TrimSpace(in.Dimensions) == "" {
		return nil, invalid("dimensions", "is required")
	}
	return c.addComponent(ctx, in, CategoryPacking, PackingSKUFromName(in.Name))
}

func (c *Catalog) addComponent(ctx context.Context, in MaterialInput, category, skuBase string) (*InventoryItem, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, invalid("name", "is required")
	}
	if in.Stock < 0 {
		return nil, invalid("stock", "must be a non-negative integer")
	}
	items, err := c.Inventory(ctx)
	if err != nil {
		return nil, err
	}
	if s := strings.TrimSpace(in.SKU); s != "" {
		skuBase = strings.ToUpper(s)
	}

	it := InventoryItem{
		Name:        in.Name,
		SKU:         UniqueSKU(skuBase, items, c.now()),
		Stock:       in.Stock,
		Threshold:   5,
		Category:    category,
		Dimensions:  strings.TrimSpace(in.Dimensions),
		Unit:        in.Unit,
		Description: in.Description,
	}
	if in.Price != nil && *in.Price >= 0 {
		it.Price = *in.Price
	}
	if in.Threshold != nil && *in.Threshold >= 0 {
		it.Threshold = *in.Threshold
	}
	return c.CreateItem(ctx, it)
}

// ItemDraft is a partially specified inventory item. Nil or empty fields are
// filled by ApplyDefaults.
type ItemDraft struct {
	Name      string
	Stock     int
	Price     *float64
	Threshold *int
	Category  string
	SKU       string
}

// Defaults records which values ApplyDefaults derived.
type Defaults struct {
	SKU       bool
	Price     bool
	Category  bool
	Threshold bool
}

// Any reports whether at least one default was applied.
func (d Defaults) Any() bool { return d.SKU || d.Price || d.Category || d.Threshold }

// Describe renders the applied defaults for a reply, e.g.
// "(Defaults applied: SKU APP-BLACK-TEE-7K2Q, $15.00, category Apparel, threshold 3)".
func (d Defaults) Describe(it InventoryItem) string {
	if !d.Any() {
		return ""
	}
	var parts []string
	if d.SKU {
		parts = append(parts, "SKU "+it.SKU)
	}
	if d.Price {
		parts = append(parts, fmt.Sprintf("$%.2f", it.Price))
	}
	if d.Category {
		parts = append(parts, "category "+it.Category)
	}
	if d.Threshold {
		parts = append(parts, fmt.Sprintf("threshold %d", it.Threshold))
	}
	return "(Defaults applied: " + strings.Join(parts, ", ") + ")"
}

// ApplyDefaults completes a draft with heuristic values and a SKU unique
// against existing. The generated SKU uses the guessed-category layout when
// the category was guessed and the category-prefix layout otherwise.
func (c *Catalog) ApplyDefaults(d ItemDraft, existing []InventoryItem) (InventoryItem, Defaults) {
	var applied Defaults
	it := InventoryItem{
		Name:     strings.TrimSpace(d.Name),
		Stock:    d.Stock,
		Category: strings.TrimSpace(d.Category),
		Status:   "active",
	}

	if it.Category == "" {
		it.Category = GuessCategory(it.Name)
		applied.Category = true
	}
	if d.Price != nil {
		it.Price = *d.Price
	} else {
		it.Price = GuessPrice(it.Name)
		applied.Price = true
	}
	if d.Threshold != nil {
		it.Threshold = *d.Threshold
	} else {
		it.Threshold = GuessThreshold(it.Stock)
		applied.Threshold = true
	}

	base := strings.ToUpper(strings.TrimSpace(d.SKU))
	if base == "" {
		applied.SKU = true
		if applied.Category {
			base = GuessSKU(it.Name, c.suffix(4))
		} else {
			base = SKUFromCategory(it.Name, it.Category, c.suffix(3))
		}
	}
	it.SKU = UniqueSKU(base, existing, c.now())
	return it, applied
}

// DraftItem completes d with ApplyDefaults against the current inventory.
func (c *Catalog) DraftItem(ctx context.Context, d ItemDraft) (InventoryItem, Defaults, error) {
	items, err := c.Inventory(ctx)
	if err != nil {
		return InventoryItem{}, Defaults{}, err
	}
	it, applied := c.ApplyDefaults(d, items)
	return it, applied, nil
}

// BulkResult summarises a bulk import.
type BulkResult struct {
	Created []InventoryItem `json:"created"`
	Failed  []BulkFailure   `json:"failed,omitempty"`
}

// BulkFailure is one rejected row of a bulk import.
type BulkFailure struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
	Error string `json:"error"`
}

// BulkImport creates every draft with heuristic defaults. defaultCategory is
// used for drafts without a category. Rows that fail validation are reported
// and skipped; storage errors abort the import.
func (c *Catalog) BulkImport(ctx context.Context, drafts []ItemDraft, defaultCategory string) (*BulkResult, error) {
	existing, err := c.Inventory(ctx)
	if err != nil {
		return nil, err
	}
	res := &BulkResult{}
	for i, d := range drafts {
		if d.Category == "" {
			d.Category = defaultCategory
		}
		it, _ := c.ApplyDefaults(d, existing)
		created, err := c.CreateItem(ctx, it)
		if err != nil {
			if IsUserError(err) {
				res.Failed = append(res.Failed, BulkFailure{Index: i, Name: d.Name, Error: err.Error()})
				continue
			}
			return nil, err
		}
		existing = append(existing, *created)
		res.Created = append(res.Created, *created)
	}
	return res, nil
}
