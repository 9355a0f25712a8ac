// Package actions validates and applies mutation requests against the
// catalog. An Action is built by the intent rules, the disambiguation flow,
// the agent tools or the REST API, and consumed exactly once by an Executor.
package actions

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopeasly/easly/internal/easly/catalog"
)

// Type names a mutation.
type Type string

const (
	IncrementInventoryStock Type = "increment_inventory_stock"
	UpdateInventoryStock    Type = "update_inventory_stock"
	CreateInventory         Type = "create_inventory"
	UpdateInventoryFields   Type = "update_inventory_fields"
	DeleteInventory         Type = "delete_inventory"
	UpdateOrderStatus       Type = "update_order_status"
	CreateOrder             Type = "create_order"
	DeleteOrder             Type = "delete_order"
	CreateProduct           Type = "create_product"
	AddMaterial             Type = "add_material"
	AddPackingMaterial      Type = "add_packing_material"
)

// Destructive reports whether t removes a record.
func (t Type) Destructive() bool {
	return t == DeleteInventory || t == DeleteOrder
}

// Action is a self-describing mutation request. Endpoint and Method name the
// equivalent REST call and are echoed back to the caller.
type Action struct {
	Type     Type           `json:"type"`
	Payload  map[string]any `json:"payload"`
	Endpoint string         `json:"endpoint"`
	Method   string         `json:"method"`
}

// Target returns the payload's "id" when present.
func (a Action) Target() string {
	if id, ok := a.Payload["id"].(string); ok {
		return id
	}
	return ""
}

// --- payloads ---

type stockDelta struct {
	ID    string `json:"id"`
	Delta int    `json:"delta"`
	SKU   string `json:"sku,omitempty"`
}

type stockLevel struct {
	ID    string `json:"id"`
	SKU   string `json:"sku,omitempty"`
	Stock *int   `json:"stock"`
}

type itemFields struct {
	ID     string         `json:"id"`
	Label  string         `json:"label,omitempty"`
	Fields map[string]any `json:"fields"`
}

type itemRef struct {
	ID  string `json:"id"`
	SKU string `json:"sku,omitempty"`
}

type orderStatus struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type orderRef struct {
	ID          string `json:"id"`
	OrderNumber string `json:"orderNumber,omitempty"`
}

type newOrder struct {
	CustomerName string   `json:"customerName"`
	Product      string   `json:"product,omitempty"`
	ProductID    string   `json:"productId,omitempty"`
	ProductSKU   string   `json:"productSku,omitempty"`
	Quantity     int      `json:"quantity"`
	Price        *float64 `json:"price,omitempty"`
	Status       string   `json:"status,omitempty"`
	Notes        string   `json:"notes,omitempty"`
}

type newProduct struct {
	Name        string   `json:"name"`
	Price       *float64 `json:"price"`
	Quantity    int      `json:"quantity"`
	MaterialIDs []string `json:"materialsIds,omitempty"`
	PackagingID string   `json:"packagingId,omitempty"`
	Category    string   `json:"category,omitempty"`
	SKU         string   `json:"sku,omitempty"`
	ImageURL    string   `json:"imageUrl,omitempty"`
}

type newMaterial struct {
	Name        string   `json:"name"`
	Stock       int      `json:"stock"`
	Price       *float64 `json:"price,omitempty"`
	Threshold   *int     `json:"threshold,omitempty"`
	SKU         string   `json:"sku,omitempty"`
	Dimensions  string   `json:"dimensions,omitempty"`
	Unit        string   `json:"unit,omitempty"`
	Description string   `json:"description,omitempty"`
}

func (m newMaterial) input() catalog.MaterialInput {
	return catalog.MaterialInput{
		Name:        m.Name,
		Stock:       m.Stock,
		Price:       m.Price,
		Threshold:   m.Threshold,
		SKU:         m.SKU,
		Dimensions:  m.Dimensions,
		Unit:        m.Unit,
		Description: m.Description,
	}
}

// toPayload flattens v into a JSON-shaped map.
func toPayload(v any) map[string]any {
	raw, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("actions: payload %T is not JSON-encodable: %v", v, err))
	}
	var m map[string]any
	_ = json.Unmarshal(raw, &m)
	return m
}

// decode converts a payload map into the typed payload for its action.
func decode(payload map[string]any, out any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return &catalog.ValidationError{Field: "payload", Message: "is not valid JSON"}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return &catalog.ValidationError{Field: typeErr.Field, Message: "must be a " + jsonKind(typeErr.Type.Kind().String())}
		}
		return &catalog.ValidationError{Field: "payload", Message: "is malformed"}
	}
	return nil
}

func jsonKind(goKind string) string {
	switch goKind {
	case "int", "int64", "float64":
		return "number"
	case "slice":
		return "list"
	case "map", "struct":
		return "object"
	default:
		return goKind
	}
}

// --- constructors ---

func inventoryPath(id string) string { return "/inventory/api/" + id }
func orderPath(id string) string     { return "/orders/api/" + id }

// NewIncrementStock adds delta to an item's stock.
func NewIncrementStock(id, sku string, delta int) Action {
	return Action{
		Type:     IncrementInventoryStock,
		Payload:  toPayload(stockDelta{ID: id, Delta: delta, SKU: sku}),
		Endpoint: inventoryPath(id),
		Method:   "PUT",
	}
}

// NewUpdateStock sets an item's stock.
func NewUpdateStock(id, sku string, stock int) Action {
	return Action{
		Type:     UpdateInventoryStock,
		Payload:  toPayload(stockLevel{ID: id, SKU: sku, Stock: &stock}),
		Endpoint: inventoryPath(id),
		Method:   "PUT",
	}
}

// NewCreateInventory stores a fully specified item.
func NewCreateInventory(it catalog.InventoryItem) Action {
	it.ID = ""
	return Action{
		Type:     CreateInventory,
		Payload:  toPayload(it),
		Endpoint: "/inventory/api",
		Method:   "POST",
	}
}

// NewUpdateFields merges fields into an item. label, when set, is how the
// item is named in the reply.
func NewUpdateFields(id, label string, fields map[string]any) Action {
	return Action{
		Type:     UpdateInventoryFields,
		Payload:  toPayload(itemFields{ID: id, Label: label, Fields: fields}),
		Endpoint: inventoryPath(id),
		Method:   "PUT",
	}
}

// NewDeleteInventory removes an item.
func NewDeleteInventory(id, sku string) Action {
	return Action{
		Type:     DeleteInventory,
		Payload:  toPayload(itemRef{ID: id, SKU: sku}),
		Endpoint: inventoryPath(id),
		Method:   "DELETE",
	}
}

// NewUpdateOrderStatus moves an order to status.
func NewUpdateOrderStatus(id, status string) Action {
	return Action{
		Type:     UpdateOrderStatus,
		Payload:  toPayload(orderStatus{ID: id, Status: status}),
		Endpoint: orderPath(id),
		Method:   "PATCH",
	}
}

// NewCreateOrder stores a new order.
func NewCreateOrder(in catalog.OrderInput) Action {
	return Action{
		Type: CreateOrder,
		Payload: toPayload(newOrder{
			CustomerName: in.CustomerName,
			Product:      in.Product,
			ProductID:    in.ProductID,
			ProductSKU:   in.ProductSKU,
			Quantity:     in.Quantity,
			Price:        in.Price,
			Status:       in.Status,
			Notes:        in.Notes,
		}),
		Endpoint: "/orders/api",
		Method:   "POST",
	}
}

// NewDeleteOrder removes an order.
func NewDeleteOrder(id, orderNumber string) Action {
	return Action{
		Type:     DeleteOrder,
		Payload:  toPayload(orderRef{ID: id, OrderNumber: orderNumber}),
		Endpoint: orderPath(id),
		Method:   "DELETE",
	}
}

// NewCreateProduct assembles a finished product from components.
func NewCreateProduct(in catalog.ProductInput) Action {
	price := in.Price
	return Action{
		Type: CreateProduct,
		Payload: toPayload(newProduct{
			Name:        in.Name,
			Price:       &price,
			Quantity:    in.Quantity,
			MaterialIDs: in.MaterialIDs,
			PackagingID: in.PackagingID,
			Category:    in.Category,
			SKU:         in.SKU,
			ImageURL:    in.ImageURL,
		}),
		Endpoint: "/inventory/api/products",
		Method:   "POST",
	}
}

// NewAddMaterial stores a raw material.
func NewAddMaterial(in catalog.MaterialInput) Action {
	return Action{
		Type:     AddMaterial,
		Payload:  toPayload(materialPayload(in)),
		Endpoint: "/inventory/api/materials",
		Method:   "POST",
	}
}

// NewAddPackingMaterial stores a packing material; dimensions are required.
func NewAddPackingMaterial(in catalog.MaterialInput) Action {
	return Action{
		Type:     AddPackingMaterial,
		Payload:  toPayload(materialPayload(in)),
		Endpoint: "/inventory/api/packing",
		Method:   "POST",
	}
}

func materialPayload(in catalog.MaterialInput) newMaterial {
	return newMaterial{
		Name:        in.Name,
		Stock:       in.Stock,
		Price:       in.Price,
		Threshold:   in.Threshold,
		SKU:         in.SKU,
		Dimensions:  in.Dimensions,
		Unit:        in.Unit,
		Description: in.Description,
	}
}
