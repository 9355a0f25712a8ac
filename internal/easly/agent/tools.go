package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopeasly/easly/internal/easly/actions"
	"github.com/shopeasly/easly/internal/easly/catalog"
)

// Tool names of the shop catalog.
const (
	ToolInventorySummary  = "getInventorySummary"
	ToolCreateItem        = "createInventoryItem"
	ToolUpdateStock       = "updateInventoryStock"
	ToolListOrders        = "listOrders"
	ToolUpdateOrderStatus = "updateOrderStatus"
	ToolCreateOrder       = "createOrder"
	ToolCreateProduct     = "initiateProductCreation"
	ToolPackingAlerts     = "getPackingAlerts"
	ToolUsageReport       = "inventoryUsageReport"
	ToolBulkImport        = "bulkImportInventory"
	ToolDeleteItem        = "deleteInventoryItem"
	ToolDeleteOrder       = "deleteOrder"
)

const (
	defaultOrderLimit     = 20
	defaultAlertThreshold = 5
)

// ConfirmToken is the token a destructive tool requires for id.
func ConfirmToken(id string) string { return "CONFIRM DELETE " + id }

// PendingConfirmation is returned by a destructive tool called without a
// matching confirmToken. Nothing has been changed.
type PendingConfirmation struct {
	PendingConfirmation bool   `json:"pendingConfirmation"`
	Message             string `json:"message"`
	ConfirmToken        string `json:"confirmToken"`
}

func pending(what, id string) *PendingConfirmation {
	token := ConfirmToken(id)
	return &PendingConfirmation{
		PendingConfirmation: true,
		Message:             fmt.Sprintf("⚠️ Deleting %s cannot be undone. Reply with %q to proceed.", what, token),
		ConfirmToken:        token,
	}
}

type shopTools struct {
	exec *actions.Executor
	cat  *catalog.Catalog
}

// ShopTools returns the shop tool catalog. Mutating tools go through exec so
// they are validated and audited like direct commands.
func ShopTools(exec *actions.Executor) *Registry {
	s := &shopTools{exec: exec, cat: exec.Catalog()}
	r := NewRegistry()
	r.Register(NewTool(ToolInventorySummary,
		"List every inventory item with stock, price and category.",
		`{"type":"object","properties":{}}`,
		s.inventorySummary))
	r.Register(NewTool(ToolCreateItem,
		"Create an inventory item. Missing price, category, threshold and sku get heuristic defaults.",
		`{"type":"object","required":["name"],"properties":{
			"name":{"type":"string","minLength":1},
			"price":{"type":"number","minimum":0},
			"stock":{"type":"integer","minimum":0},
			"threshold":{"type":"integer","minimum":0},
			"category":{"type":"string"},
			"sku":{"type":"string"}}}`,
		s.createItem))
	r.Register(NewTool(ToolUpdateStock,
		"Set the absolute stock level of an inventory item by id or SKU.",
		`{"type":"object","required":["id","stock"],"properties":{
			"id":{"type":"string","minLength":1},
			"stock":{"type":"integer","minimum":0}}}`,
		s.updateStock))
	r.Register(NewTool(ToolListOrders,
		"List recent orders.",
		`{"type":"object","properties":{"limit":{"type":"integer","minimum":1,"maximum":200}}}`,
		s.listOrders))
	r.Register(NewTool(ToolUpdateOrderStatus,
		"Set an order's status. id may be the order number.",
		`{"type":"object","required":["id","status"],"properties":{
			"id":{"type":"string","minLength":1},
			"status":{"type":"string","minLength":1}}}`,
		s.updateOrderStatus))
	r.Register(NewTool(ToolCreateOrder,
		"Create an order for a product referenced by name, id or SKU.",
		`{"type":"object","required":["customerName","quantity"],
		  "anyOf":[{"required":["product"]},{"required":["productId"]},{"required":["productSku"]}],
		  "properties":{
			"customerName":{"type":"string","minLength":1},
			"product":{"type":"string"},
			"productId":{"type":"string"},
			"productSku":{"type":"string"},
			"quantity":{"type":"integer","minimum":1},
			"price":{"type":"number","minimum":0},
			"notes":{"type":"string"}}}`,
		s.createOrder))
	r.Register(NewTool(ToolCreateProduct,
		"Create a finished product from material and packaging inventory ids.",
		`{"type":"object","required":["name","price","quantity"],"properties":{
			"name":{"type":"string","minLength":1},
			"price":{"type":"number","minimum":0},
			"quantity":{"type":"integer","minimum":0},
			"materialsIds":{"type":"array","items":{"type":"string"}},
			"packagingId":{"type":"string"},
			"sku":{"type":"string"},
			"imageUrl":{"type":"string"}}}`,
		s.createProduct))
	r.Register(NewTool(ToolPackingAlerts,
		"Report packing materials that are out of stock or at their threshold.",
		`{"type":"object","properties":{"threshold":{"type":"integer","minimum":0}}}`,
		s.packingAlerts))
	r.Register(NewTool(ToolUsageReport,
		"Aggregate orders between two dates (YYYY-MM-DD, inclusive) per product with packaging usage.",
		`{"type":"object","required":["start","end"],"properties":{
			"start":{"type":"string","pattern":"^\\d{4}-\\d{2}-\\d{2}$"},
			"end":{"type":"string","pattern":"^\\d{4}-\\d{2}-\\d{2}$"}}}`,
		s.usageReport))
	r.Register(NewTool(ToolBulkImport,
		"Create many inventory items at once with heuristic defaults.",
		`{"type":"object","required":["items"],"properties":{
			"defaultCategory":{"type":"string"},
			"items":{"type":"array","minItems":1,"maxItems":500,"items":{
				"type":"object","required":["name"],"properties":{
					"name":{"type":"string","minLength":1},
					"stock":{"type":"integer","minimum":0},
					"price":{"type":"number","minimum":0},
					"threshold":{"type":"integer","minimum":0},
					"category":{"type":"string"},
					"sku":{"type":"string"}}}}}}`,
		s.bulkImport))
	r.Register(NewTool(ToolDeleteItem,
		`Delete an inventory item. Requires confirmToken "CONFIRM DELETE <id>".`,
		`{"type":"object","required":["id"],"properties":{
			"id":{"type":"string","minLength":1},
			"confirmToken":{"type":"string"}}}`,
		s.deleteItem))
	r.Register(NewTool(ToolDeleteOrder,
		`Delete an order. Requires confirmToken "CONFIRM DELETE <id>".`,
		`{"type":"object","required":["id"],"properties":{
			"id":{"type":"string","minLength":1},
			"confirmToken":{"type":"string"}}}`,
		s.deleteOrder))
	return r
}

// run executes a and turns an unsuccessful result into an error carrying
// its message.
func (s *shopTools) run(ctx context.Context, clientID string, a actions.Action) (any, error) {
	res := s.exec.Execute(ctx, clientID, a)
	if !res.Success {
		return nil, errors.New(res.Message)
	}
	return res, nil
}

// item resolves an inventory reference given as document ID or SKU.
func (s *shopTools) item(ctx context.Context, ref string) (*catalog.InventoryItem, error) {
	it, err := s.cat.Item(ctx, ref)
	var nf *catalog.NotFoundError
	if errors.As(err, &nf) {
		return s.cat.ItemBySKU(ctx, ref)
	}
	return it, err
}

func (s *shopTools) inventorySummary(ctx context.Context, _ string, _ map[string]any) (any, error) {
	items, err := s.cat.Inventory(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]any{"count": len(items), "items": items}, nil
}

type itemArgs struct {
	Name      string   `json:"name"`
	Price     *float64 `json:"price"`
	Stock     int      `json:"stock"`
	Threshold *int     `json:"threshold"`
	Category  string   `json:"category"`
	SKU       string   `json:"sku"`
}

func (a itemArgs) draft() catalog.ItemDraft {
	return catalog.ItemDraft{
		Name:      a.Name,
		Stock:     a.Stock,
		Price:     a.Price,
		Threshold: a.Threshold,
		Category:  a.Category,
		SKU:       a.SKU,
	}
}

func (s *shopTools) createItem(ctx context.Context, clientID string, args map[string]any) (any, error) {
	var p itemArgs
	if err := bind(args, &p); err != nil {
		return nil, err
	}
	it, applied, err := s.cat.DraftItem(ctx, p.draft())
	if err != nil {
		return nil, err
	}
	res := s.exec.Execute(ctx, clientID, actions.NewCreateInventory(it))
	if !res.Success {
		return nil, errors.New(res.Message)
	}
	if applied.Any() {
		res.Message += " " + applied.Describe(it)
	}
	return res, nil
}

func (s *shopTools) updateStock(ctx context.Context, clientID string, args map[string]any) (any, error) {
	var p struct {
		ID    string `json:"id"`
		Stock int    `json:"stock"`
	}
	if err := bind(args, &p); err != nil {
		return nil, err
	}
	it, err := s.item(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, clientID, actions.NewUpdateStock(it.ID, it.SKU, p.Stock))
}

func (s *shopTools) listOrders(ctx context.Context, _ string, args map[string]any) (any, error) {
	var p struct {
		Limit int `json:"limit"`
	}
	if err := bind(args, &p); err != nil {
		return nil, err
	}
	if p.Limit <= 0 {
		p.Limit = defaultOrderLimit
	}
	orders, err := s.cat.Orders(ctx, p.Limit)
	if err != nil {
		return nil, err
	}
	return map[string]any{"count": len(orders), "orders": orders}, nil
}

func (s *shopTools) updateOrderStatus(ctx context.Context, clientID string, args map[string]any) (any, error) {
	var p struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := bind(args, &p); err != nil {
		return nil, err
	}
	o, err := s.cat.FindOrder(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, clientID, actions.NewUpdateOrderStatus(o.ID, p.Status))
}

func (s *shopTools) createOrder(ctx context.Context, clientID string, args map[string]any) (any, error) {
	var p struct {
		CustomerName string   `json:"customerName"`
		Product      string   `json:"product"`
		ProductID    string   `json:"productId"`
		ProductSKU   string   `json:"productSku"`
		Quantity     int      `json:"quantity"`
		Price        *float64 `json:"price"`
		Notes        string   `json:"notes"`
	}
	if err := bind(args, &p); err != nil {
		return nil, err
	}
	return s.run(ctx, clientID, actions.NewCreateOrder(catalog.OrderInput{
		CustomerName: p.CustomerName,
		Product:      p.Product,
		ProductID:    p.ProductID,
		ProductSKU:   p.ProductSKU,
		Quantity:     p.Quantity,
		Price:        p.Price,
		Notes:        p.Notes,
	}))
}

func (s *shopTools) createProduct(ctx context.Context, clientID string, args map[string]any) (any, error) {
	var p struct {
		Name        string   `json:"name"`
		Price       float64  `json:"price"`
		Quantity    int      `json:"quantity"`
		MaterialIDs []string `json:"materialsIds"`
		PackagingID string   `json:"packagingId"`
		SKU         string   `json:"sku"`
		ImageURL    string   `json:"imageUrl"`
	}
	if err := bind(args, &p); err != nil {
		return nil, err
	}
	return s.run(ctx, clientID, actions.NewCreateProduct(catalog.ProductInput{
		Name:        p.Name,
		Price:       p.Price,
		Quantity:    p.Quantity,
		MaterialIDs: p.MaterialIDs,
		PackagingID: p.PackagingID,
		Category:    catalog.CategoryProducts,
		SKU:         p.SKU,
		ImageURL:    p.ImageURL,
	}))
}

func (s *shopTools) packingAlerts(ctx context.Context, _ string, args map[string]any) (any, error) {
	p := struct {
		Threshold *int `json:"threshold"`
	}{}
	if err := bind(args, &p); err != nil {
		return nil, err
	}
	threshold := defaultAlertThreshold
	if p.Threshold != nil {
		threshold = *p.Threshold
	}
	return s.cat.PackingAlerts(ctx, threshold)
}

func (s *shopTools) usageReport(ctx context.Context, _ string, args map[string]any) (any, error) {
	var p struct {
		Start string `json:"start"`
		End   string `json:"end"`
	}
	if err := bind(args, &p); err != nil {
		return nil, err
	}
	return s.cat.UsageReport(ctx, p.Start, p.End)
}

func (s *shopTools) bulkImport(ctx context.Context, _ string, args map[string]any) (any, error) {
	var p struct {
		Items           []itemArgs `json:"items"`
		DefaultCategory string     `json:"defaultCategory"`
	}
	if err := bind(args, &p); err != nil {
		return nil, err
	}
	drafts := make([]catalog.ItemDraft, len(p.Items))
	for i, it := range p.Items {
		drafts[i] = it.draft()
	}
	return s.cat.BulkImport(ctx, drafts, strings.TrimSpace(p.DefaultCategory))
}

type deleteArgs struct {
	ID           string `json:"id"`
	ConfirmToken string `json:"confirmToken"`
}

func (d deleteArgs) confirmed() bool {
	return strings.TrimSpace(d.ConfirmToken) == ConfirmToken(d.ID)
}

func (s *shopTools) deleteItem(ctx context.Context, clientID string, args map[string]any) (any, error) {
	var p deleteArgs
	if err := bind(args, &p); err != nil {
		return nil, err
	}
	if !p.confirmed() {
		return pending("inventory item "+p.ID, p.ID), nil
	}
	it, err := s.item(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, clientID, actions.NewDeleteInventory(it.ID, it.SKU))
}

func (s *shopTools) deleteOrder(ctx context.Context, clientID string, args map[string]any) (any, error) {
	var p deleteArgs
	if err := bind(args, &p); err != nil {
		return nil, err
	}
	if !p.confirmed() {
		return pending("order "+p.ID, p.ID), nil
	}
	o, err := s.cat.FindOrder(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, clientID, actions.NewDeleteOrder(o.ID, o.OrderNumber))
}
