package actions

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/shopeasly/easly/common/redact"
	"github.com/shopeasly/easly/common/trace"
	"github.com/shopeasly/easly/internal/easly/catalog"
	"github.com/shopeasly/easly/internal/easly/session"
	"github.com/shopeasly/easly/internal/easly/store"
)

// Result is the outcome of one Execute call.
type Result struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	ID          string `json:"id,omitempty"`
	SKU         string `json:"sku,omitempty"`
	OrderNumber string `json:"orderNumber,omitempty"`
	Data        any    `json:"data,omitempty"`
}

// Auditor records executed actions.
type Auditor interface {
	WriteAudit(ctx context.Context, traceID, actor, action, target, result string, payload store.AuditPayload, errorMsg string) error
}

// outcome is what a handler reports back to Execute.
type outcome struct {
	result  Result
	touched *session.ItemRef
	// forget clears lastInventory when it points at this ID.
	forget string
}

type handler func(ctx context.Context, payload map[string]any) (outcome, error)

// Executor validates actions and applies them to the catalog. Every call is
// audited, and successful inventory writes update the client's lastInventory.
type Executor struct {
	cat      *catalog.Catalog
	sessions *session.Manager
	audit    Auditor
	handlers map[Type]handler

	// OnExecute, when set, is called after every action with its outcome.
	OnExecute func(t Type, success bool)
}

// NewExecutor returns an Executor. sessions and audit may be nil.
func NewExecutor(cat *catalog.Catalog, sessions *session.Manager, audit Auditor) *Executor {
	e := &Executor{cat: cat, sessions: sessions, audit: audit}
	e.handlers = map[Type]handler{
		IncrementInventoryStock: e.incrementStock,
		UpdateInventoryStock:    e.updateStock,
		CreateInventory:         e.createInventory,
		UpdateInventoryFields:   e.updateFields,
		DeleteInventory:         e.deleteInventory,
		UpdateOrderStatus:       e.updateOrderStatus,
		CreateOrder:             e.createOrder,
		DeleteOrder:             e.deleteOrder,
		CreateProduct:           e.createProduct,
		AddMaterial:             e.addMaterial,
		AddPackingMaterial:      e.addPackingMaterial,
	}
	return e
}

// Catalog returns the catalog the executor writes to.
func (e *Executor) Catalog() *catalog.Catalog { return e.cat }

// failurePrefix is prepended to user-facing error messages.
var failurePrefix = map[Type]string{
	CreateProduct:      "❌ Failed to create product: ",
	AddMaterial:        "❌ Failed to add material: ",
	AddPackingMaterial: "❌ Failed to add packing material: ",
}

// Execute applies a. It never returns an error: validation and lookup
// failures become unsuccessful results carrying the message, and unexpected
// failures are logged and reported generically.
func (e *Executor) Execute(ctx context.Context, clientID string, a Action) Result {
	return e.execute(ctx, clientID, a, true)
}

// ExecuteAs applies a on behalf of a non-chat actor such as the REST API.
// The call is audited under actor and no session state is written.
func (e *Executor) ExecuteAs(ctx context.Context, actor string, a Action) Result {
	return e.execute(ctx, actor, a, false)
}

func (e *Executor) execute(ctx context.Context, clientID string, a Action, remember bool) Result {
	h, ok := e.handlers[a.Type]
	if !ok {
		res := Result{Message: fmt.Sprintf("❌ Unknown action: %s", a.Type)}
		e.record(ctx, clientID, a, store.AuditDenied, res.Message)
		return res
	}

	out, err := h(ctx, a.Payload)
	if err != nil {
		prefix, ok := failurePrefix[a.Type]
		if !ok {
			prefix = "❌ "
		}
		msg := err.Error()
		if !catalog.IsUserError(err) {
			slog.Error("action failed", "action", a.Type, "client", clientID, "err", err)
			prefix = "❌ Error executing action: "
		}
		res := Result{Message: prefix + msg}
		e.record(ctx, clientID, a, store.AuditError, msg)
		e.notify(a.Type, false)
		return res
	}

	out.result.Success = true
	e.record(ctx, clientID, a, store.AuditSuccess, "")
	if remember {
		e.remember(ctx, clientID, out)
	}
	e.notify(a.Type, true)
	return out.result
}

func (e *Executor) record(ctx context.Context, clientID string, a Action, result, errMsg string) {
	if e.audit == nil {
		return
	}
	target := a.Target()
	if err := e.audit.WriteAudit(ctx, trace.FromContext(ctx), clientID, string(a.Type), target, result,
		store.AuditPayload(redact.Map(a.Payload)), errMsg); err != nil {
		slog.Warn("audit write failed", "op", a.Type, "err", err)
	}
}

func (e *Executor) remember(ctx context.Context, clientID string, out outcome) {
	if e.sessions == nil || clientID == "" {
		return
	}
	if out.touched != nil {
		if err := e.sessions.Set(ctx, clientID, session.Patch{LastInventory: out.touched}); err != nil {
			slog.Warn("session update failed", "client", clientID, "err", err)
		}
		return
	}
	if out.forget == "" {
		return
	}
	s, err := e.sessions.Get(ctx, clientID)
	if err != nil || s == nil || s.LastInventory == nil || s.LastInventory.ID != out.forget {
		return
	}
	if err := e.sessions.Clear(ctx, clientID, session.KeyLastInventory); err != nil {
		slog.Warn("session update failed", "client", clientID, "err", err)
	}
}

func (e *Executor) notify(t Type, ok bool) {
	if e.OnExecute != nil {
		e.OnExecute(t, ok)
	}
}

func refOf(it *catalog.InventoryItem) *session.ItemRef {
	return &session.ItemRef{ID: it.ID, Name: it.Name, SKU: it.SKU}
}

func requireID(id string) error {
	if strings.TrimSpace(id) == "" {
		return &catalog.ValidationError{Field: "id", Message: "is required"}
	}
	return nil
}

// --- inventory ---

func (e *Executor) incrementStock(ctx context.Context, payload map[string]any) (outcome, error) {
	var p stockDelta
	if err := decode(payload, &p); err != nil {
		return outcome{}, err
	}
	if err := requireID(p.ID); err != nil {
		return outcome{}, err
	}
	it, err := e.cat.AdjustStock(ctx, p.ID, p.Delta)
	if err != nil {
		return outcome{}, err
	}
	sign := "+"
	if p.Delta < 0 {
		sign = ""
	}
	return outcome{
		result: Result{
			Message: fmt.Sprintf("✅ Added %s%d to %s. New stock: %d", sign, p.Delta, it.Label(), it.Stock),
			ID:      it.ID,
			SKU:     it.SKU,
			Data:    map[string]any{"stock": it.Stock},
		},
		touched: refOf(it),
	}, nil
}

func (e *Executor) updateStock(ctx context.Context, payload map[string]any) (outcome, error) {
	var p stockLevel
	if err := decode(payload, &p); err != nil {
		return outcome{}, err
	}
	if err := requireID(p.ID); err != nil {
		return outcome{}, err
	}
	if p.Stock == nil {
		return outcome{}, &catalog.ValidationError{Field: "stock", Message: "is required"}
	}
	it, err := e.cat.Item(ctx, p.ID)
	if err != nil {
		return outcome{}, err
	}
	if err := e.cat.SetStock(ctx, p.ID, *p.Stock); err != nil {
		return outcome{}, err
	}
	label := p.SKU
	if label == "" {
		label = it.Label()
	}
	return outcome{
		result:  Result{Message: fmt.Sprintf("✅ Updated %s stock to %d", label, *p.Stock), ID: it.ID, SKU: it.SKU},
		touched: refOf(it),
	}, nil
}

func (e *Executor) createInventory(ctx context.Context, payload map[string]any) (outcome, error) {
	var it catalog.InventoryItem
	if err := decode(payload, &it); err != nil {
		return outcome{}, err
	}
	it.SKU = strings.ToUpper(strings.TrimSpace(it.SKU))
	if it.SKU == "" {
		return outcome{}, &catalog.ValidationError{Field: "sku", Message: "is required"}
	}
	created, err := e.cat.CreateItem(ctx, it)
	if err != nil {
		return outcome{}, err
	}
	return outcome{
		result: Result{
			Message: fmt.Sprintf("✅ Created inventory item: %s (%s) with %d units", created.Name, created.SKU, created.Stock),
			ID:      created.ID,
			SKU:     created.SKU,
		},
		touched: refOf(created),
	}, nil
}

func (e *Executor) updateFields(ctx context.Context, payload map[string]any) (outcome, error) {
	var p itemFields
	if err := decode(payload, &p); err != nil {
		return outcome{}, err
	}
	if err := requireID(p.ID); err != nil {
		return outcome{}, err
	}
	fields, err := cleanFields(p.Fields)
	if err != nil {
		return outcome{}, err
	}
	it, err := e.cat.Item(ctx, p.ID)
	if err != nil {
		return outcome{}, err
	}
	if err := e.cat.UpdateItem(ctx, p.ID, fields); err != nil {
		return outcome{}, err
	}

	label := p.Label
	if label == "" {
		label = it.Label()
	}
	ref := refOf(it)
	if v, ok := fields["name"].(string); ok {
		ref.Name = v
	}
	if v, ok := fields["sku"].(string); ok {
		ref.SKU = v
	}
	return outcome{
		result:  Result{Message: fieldsMessage(label, fields), ID: it.ID, SKU: ref.SKU},
		touched: ref,
	}, nil
}

// editable lists the fields update_inventory_fields may change and the
// JSON kind each must have.
var editable = map[string]string{
	"name":              "string",
	"sku":               "string",
	"category":          "string",
	"color":             "string",
	"description":       "string",
	"status":            "string",
	"dimensions":        "string",
	"unit":              "string",
	"imageUrl":          "string",
	"ninjatransferLink": "string",
	"price":             "number",
	"threshold":         "integer",
	"stock":             "integer",
}

func cleanFields(in map[string]any) (map[string]any, error) {
	if len(in) == 0 {
		return nil, &catalog.ValidationError{Field: "fields", Message: "must name at least one field"}
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		kind, ok := editable[k]
		if !ok {
			return nil, &catalog.ValidationError{Field: k, Message: "cannot be edited"}
		}
		switch kind {
		case "string":
			s, ok := v.(string)
			if !ok {
				return nil, &catalog.ValidationError{Field: k, Message: "must be a string"}
			}
			s = strings.TrimSpace(s)
			if k == "sku" {
				s = strings.ToUpper(s)
			}
			if s == "" && (k == "name" || k == "sku") {
				return nil, &catalog.ValidationError{Field: k, Message: "must not be empty"}
			}
			out[k] = s
		case "number", "integer":
			f, ok := v.(float64)
			if !ok || f < 0 {
				return nil, &catalog.ValidationError{Field: k, Message: "must be a non-negative number"}
			}
			if kind == "integer" {
				if f != float64(int(f)) {
					return nil, &catalog.ValidationError{Field: k, Message: "must be a whole number"}
				}
				out[k] = int(f)
				continue
			}
			out[k] = f
		}
	}
	return out, nil
}

func fieldsMessage(label string, fields map[string]any) string {
	if len(fields) == 1 {
		for k, v := range fields {
			switch k {
			case "price":
				return fmt.Sprintf("✅ Updated price for %s to $%.2f.", label, v)
			case "sku":
				return fmt.Sprintf("✅ Updated SKU to %s.", v)
			case "name":
				return fmt.Sprintf("✅ Renamed item to %q.", v)
			case "color":
				return fmt.Sprintf("✅ Set color to %s.", v)
			case "category":
				return fmt.Sprintf("✅ Category set to %s.", v)
			case "imageUrl":
				return fmt.Sprintf("✅ Attached image to %s.", label)
			case "ninjatransferLink":
				return fmt.Sprintf("🔗 Added NinjaTransfer link to %s.", label)
			}
		}
	}
	names := make([]string, 0, len(fields))
	for k := range fields {
		names = append(names, k)
	}
	sort.Strings(names)
	return fmt.Sprintf("✅ Updated %s: %s.", label, strings.Join(names, ", "))
}

func (e *Executor) deleteInventory(ctx context.Context, payload map[string]any) (outcome, error) {
	var p itemRef
	if err := decode(payload, &p); err != nil {
		return outcome{}, err
	}
	if err := requireID(p.ID); err != nil {
		return outcome{}, err
	}
	if err := e.cat.DeleteItem(ctx, p.ID); err != nil {
		return outcome{}, err
	}
	label := p.SKU
	if label == "" {
		label = p.ID
	}
	return outcome{
		result: Result{Message: "✅ Deleted inventory item: " + label, ID: p.ID, SKU: p.SKU},
		forget: p.ID,
	}, nil
}

// --- orders ---

func (e *Executor) updateOrderStatus(ctx context.Context, payload map[string]any) (outcome, error) {
	var p orderStatus
	if err := decode(payload, &p); err != nil {
		return outcome{}, err
	}
	if err := requireID(p.ID); err != nil {
		return outcome{}, err
	}
	status, err := e.cat.UpdateOrderStatus(ctx, p.ID, p.Status)
	if err != nil {
		return outcome{}, err
	}
	return outcome{result: Result{Message: "✅ Updated order status to " + status, ID: p.ID}}, nil
}

func (e *Executor) createOrder(ctx context.Context, payload map[string]any) (outcome, error) {
	var p newOrder
	if err := decode(payload, &p); err != nil {
		return outcome{}, err
	}
	o, err := e.cat.CreateOrder(ctx, catalog.OrderInput{
		CustomerName: p.CustomerName,
		Product:      p.Product,
		ProductID:    p.ProductID,
		ProductSKU:   p.ProductSKU,
		Quantity:     p.Quantity,
		Price:        p.Price,
		Status:       p.Status,
		Notes:        p.Notes,
	})
	if err != nil {
		return outcome{}, err
	}
	return outcome{result: Result{
		Message:     fmt.Sprintf("✅ Created order %s for %s", o.OrderNumber, o.CustomerName),
		ID:          o.ID,
		OrderNumber: o.OrderNumber,
		Data:        o,
	}}, nil
}

func (e *Executor) deleteOrder(ctx context.Context, payload map[string]any) (outcome, error) {
	var p orderRef
	if err := decode(payload, &p); err != nil {
		return outcome{}, err
	}
	if err := requireID(p.ID); err != nil {
		return outcome{}, err
	}
	if err := e.cat.DeleteOrder(ctx, p.ID); err != nil {
		return outcome{}, err
	}
	ref := p.OrderNumber
	if ref == "" {
		ref = p.ID
	}
	return outcome{result: Result{Message: "✅ Deleted order: " + ref, ID: p.ID, OrderNumber: p.OrderNumber}}, nil
}

// --- products and components ---

func (e *Executor) createProduct(ctx context.Context, payload map[string]any) (outcome, error) {
	var p newProduct
	if err := decode(payload, &p); err != nil {
		return outcome{}, err
	}
	if p.Price == nil {
		return outcome{}, &catalog.ValidationError{Field: "price", Message: "is required for product creation"}
	}
	created, err := e.cat.CreateProduct(ctx, catalog.ProductInput{
		Name:        p.Name,
		Price:       *p.Price,
		Quantity:    p.Quantity,
		MaterialIDs: p.MaterialIDs,
		PackagingID: p.PackagingID,
		Category:    p.Category,
		SKU:         p.SKU,
		ImageURL:    p.ImageURL,
	})
	if err != nil {
		return outcome{}, err
	}

	var parts []string
	if n := len(created.Materials); n > 0 {
		parts = append(parts, fmt.Sprintf("%d material(s)", n))
	}
	if created.PackagingID != "" {
		parts = append(parts, "packaging attached")
	}
	if created.ImageURL != "" {
		parts = append(parts, "image linked")
	}
	extras := ""
	if len(parts) > 0 {
		extras = " (" + strings.Join(parts, ", ") + ")"
	}
	return outcome{
		result: Result{
			Message: fmt.Sprintf("✅ Created product %q (SKU %s) qty %d at $%.2f%s.",
				created.Name, created.SKU, created.Stock, created.Price, extras),
			ID:   created.ID,
			SKU:  created.SKU,
			Data: map[string]any{"id": created.ID, "sku": created.SKU},
		},
		touched: refOf(created),
	}, nil
}

func (e *Executor) addMaterial(ctx context.Context, payload map[string]any) (outcome, error) {
	var p newMaterial
	if err := decode(payload, &p); err != nil {
		return outcome{}, err
	}
	created, err := e.cat.AddMaterial(ctx, p.input())
	if err != nil {
		return outcome{}, err
	}
	return outcome{
		result: Result{
			Message: fmt.Sprintf("🧩 Added material %q (%s) with stock %d.", created.Name, created.SKU, created.Stock),
			ID:      created.ID,
			SKU:     created.SKU,
			Data:    map[string]any{"id": created.ID, "sku": created.SKU},
		},
		touched: refOf(created),
	}, nil
}

func (e *Executor) addPackingMaterial(ctx context.Context, payload map[string]any) (outcome, error) {
	var p newMaterial
	if err := decode(payload, &p); err != nil {
		return outcome{}, err
	}
	created, err := e.cat.AddPackingMaterial(ctx, p.input())
	if err != nil {
		return outcome{}, err
	}
	return outcome{
		result: Result{
			Message: fmt.Sprintf("📦 Added packing material %q (%s) — %s, stock %d.",
				created.Name, created.SKU, created.Dimensions, created.Stock),
			ID:   created.ID,
			SKU:  created.SKU,
			Data: map[string]any{"id": created.ID, "sku": created.SKU},
		},
		touched: refOf(created),
	}, nil
}
