// Package catalog is the typed inventory and order repository used by the
// assistant. It sits on top of a docstore.Store and owns the business rules
// that are shared between direct commands, agent tools and the REST API:
// heuristic defaults, SKU and order-number generation, product assembly,
// packing alerts and usage reporting.
package catalog

import (
	"regexp"
	"strings"
	"time"
)

// Category names with special meaning.
const (
	CategoryMaterials = "Materials"
	CategoryPacking   = "Packing Materials"
	CategoryProducts  = "Products"
	CategoryGeneral   = "General"
)

// Order statuses. Anything else is rejected.
const (
	StatusPending    = "Pending"
	StatusProcessing = "Processing"
	StatusShipped    = "Shipped"
	StatusDelivered  = "Delivered"
)

// OrderStatuses lists the valid statuses in lifecycle order.
var OrderStatuses = []string{StatusPending, StatusProcessing, StatusShipped, StatusDelivered}

// InventoryItem is a stocked product, raw material or packing material.
type InventoryItem struct {
	ID                string   `json:"id,omitempty"`
	Name              string   `json:"name"`
	SKU               string   `json:"sku"`
	Stock             int      `json:"stock"`
	Price             float64  `json:"price"`
	Threshold         int      `json:"threshold"`
	Category          string   `json:"category"`
	Status            string   `json:"status,omitempty"`
	Description       string   `json:"description,omitempty"`
	Materials         []string `json:"materials,omitempty"`
	PackagingID       string   `json:"packagingId,omitempty"`
	Dimensions        string   `json:"dimensions,omitempty"`
	Unit              string   `json:"unit,omitempty"`
	ImageURL          string   `json:"imageUrl,omitempty"`
	Color             string   `json:"color,omitempty"`
	NinjaTransferLink string   `json:"ninjatransferLink,omitempty"`
	DateAdded         string   `json:"dateAdded,omitempty"`
}

// Label is the short human reference used in replies: the SKU when there is
// one, the name otherwise.
func (i InventoryItem) Label() string {
	if i.SKU != "" {
		return i.SKU
	}
	return i.Name
}

// Order is a customer order.
type Order struct {
	ID           string    `json:"id,omitempty"`
	OrderNumber  string    `json:"orderNumber"`
	CustomerName string    `json:"customerName"`
	Product      string    `json:"product"`
	ProductID    string    `json:"productId,omitempty"`
	ProductSKU   string    `json:"productSku,omitempty"`
	Quantity     int       `json:"quantity"`
	Price        float64   `json:"price"`
	Status       string    `json:"status"`
	Notes        string    `json:"notes,omitempty"`
	Date         string    `json:"date"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Ref returns the order number, or the document ID for legacy orders that
// never got one.
func (o Order) Ref() string {
	if o.OrderNumber != "" {
		return o.OrderNumber
	}
	return o.ID
}

var (
	materialsCategoryRe = regexp.MustCompile(`(?i)^(materials|raw\s*materials?)$`)
	packingCategoryRe   = regexp.MustCompile(`(?i)^packing\s*materials?$`)
)

// IsMaterialsCategory reports whether c names the raw materials category.
func IsMaterialsCategory(c string) bool {
	return materialsCategoryRe.MatchString(strings.TrimSpace(c))
}

// IsPackingCategory reports whether c names the packing materials category.
func IsPackingCategory(c string) bool {
	return packingCategoryRe.MatchString(strings.TrimSpace(c))
}

// NormalizeStatus maps a case-insensitive status to its canonical spelling.
// ok is false when s is not a known status.
func NormalizeStatus(s string) (status string, ok bool) {
	for _, st := range OrderStatuses {
		if strings.EqualFold(strings.TrimSpace(s), st) {
			return st, true
		}
	}
	return "", false
}
