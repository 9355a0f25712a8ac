package agent_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopeasly/easly/internal/easly/actions"
	"github.com/shopeasly/easly/internal/easly/agent"
	"github.com/shopeasly/easly/internal/easly/catalog"
)

func TestShopTools_Catalog(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, []string{
		"getInventorySummary", "createInventoryItem", "updateInventoryStock", "listOrders",
		"updateOrderStatus", "createOrder", "initiateProductCreation", "getPackingAlerts",
		"inventoryUsageReport", "bulkImportInventory", "deleteInventoryItem", "deleteOrder",
	}, f.tools.Names())
	assert.False(t, f.tools.Has("shell"))
}

func TestRegistry_DuplicatePanics(t *testing.T) {
	r := agent.NewRegistry()
	noop := func(context.Context, string, map[string]any) (any, error) { return nil, nil }
	r.Register(agent.NewTool("ping", "", `{"type":"object"}`, noop))
	assert.Panics(t, func() { r.Register(agent.NewTool("ping", "", `{"type":"object"}`, noop)) })
}

func TestRegistry_UnknownTool(t *testing.T) {
	f := newFixture(t)
	_, err := f.tools.Call(context.Background(), "c1", "shell", nil)
	assert.ErrorIs(t, err, agent.ErrUnknownTool)
}

func TestCreateInventoryItem_NamesDefaults(t *testing.T) {
	f := newFixture(t)
	out, err := f.tools.Call(context.Background(), "c1", agent.ToolCreateItem, map[string]any{"name": "Black Hoodie", "stock": 40.0})
	require.NoError(t, err)
	res := out.(actions.Result)
	assert.Equal(t,
		"✅ Created inventory item: Black Hoodie (APP-BLACK-HOODIE-ZZZZ) with 40 units "+
			"(Defaults applied: SKU APP-BLACK-HOODIE-ZZZZ, $35.00, category Apparel, threshold 4)",
		res.Message)

	it, err := f.cat.ItemBySKU(context.Background(), "APP-BLACK-HOODIE-ZZZZ")
	require.NoError(t, err)
	assert.Equal(t, 35.0, it.Price)
	assert.Equal(t, 4, it.Threshold)
}

func TestCreateInventoryItem_SKUCollisionGetsSuffix(t *testing.T) {
	f := newFixture(t)
	f.add(t, catalog.InventoryItem{Name: "Old Hoodie", SKU: "APP-BLACK-HOODIE-ZZZZ"})

	out, err := f.tools.Call(context.Background(), "c1", agent.ToolCreateItem, map[string]any{"name": "Black Hoodie"})
	require.NoError(t, err)
	assert.Equal(t, "APP-BLACK-HOODIE-ZZZZ-001", out.(actions.Result).SKU)
}

func TestToolArguments(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		tool string
		args map[string]any
		want string
	}{
		{agent.ToolUpdateStock, map[string]any{"id": "X"}, "missing properties: 'stock'"},
		{agent.ToolUpdateStock, map[string]any{"id": "X", "stock": -1.0}, "stock: "},
		{agent.ToolCreateOrder, map[string]any{"customerName": "Ana", "quantity": 1.0}, "invalid arguments for createOrder"},
		{agent.ToolCreateOrder, map[string]any{"customerName": "Ana", "product": "Tee", "quantity": 0.0}, "quantity: "},
		{agent.ToolUsageReport, map[string]any{"start": "09/01/2025", "end": "2025-09-30"}, "start: "},
		{agent.ToolBulkImport, map[string]any{"items": []any{}}, "items: "},
	}
	for _, tt := range tests {
		t.Run(tt.tool+" "+tt.want, func(t *testing.T) {
			_, err := f.tools.Call(context.Background(), "c1", tt.tool, tt.args)
			var ae *agent.ArgumentError
			require.ErrorAs(t, err, &ae)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestOrderTools(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	out, err := f.tools.Call(ctx, "c1", agent.ToolCreateOrder, map[string]any{"customerName": "Ana", "product": "Sunset Tee", "quantity": 2.0, "price": 20.0})
	require.NoError(t, err)
	created := out.(actions.Result)
	assert.Equal(t, "ORD-20250916-0001", created.OrderNumber)

	_, err = f.tools.Call(ctx, "c1", agent.ToolUpdateOrderStatus, map[string]any{"id": "ord-20250916-0001", "status": "shipped"})
	require.NoError(t, err)

	out, err = f.tools.Call(ctx, "c1", agent.ToolListOrders, map[string]any{})
	require.NoError(t, err)
	listed := out.(map[string]any)
	assert.Equal(t, 1, listed["count"])
	assert.Equal(t, catalog.StatusShipped, listed["orders"].([]catalog.Order)[0].Status)

	out, err = f.tools.Call(ctx, "c1", agent.ToolDeleteOrder, map[string]any{"id": "ORD-20250916-0001", "confirmToken": "yes"})
	require.NoError(t, err)
	assert.IsType(t, &agent.PendingConfirmation{}, out)

	_, err = f.tools.Call(ctx, "c1", agent.ToolDeleteOrder, map[string]any{"id": "ORD-20250916-0001", "confirmToken": "CONFIRM DELETE ORD-20250916-0001"})
	require.NoError(t, err)
	orders, err := f.cat.Orders(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestListOrders_ReturnsMostRecent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, name := range []string{"Alice", "Bob", "Carol"} {
		_, err := f.cat.CreateOrder(ctx, catalog.OrderInput{CustomerName: name, Product: "Sunset Tee", Quantity: 1})
		require.NoError(t, err)
	}

	out, err := f.tools.Call(ctx, "c1", agent.ToolListOrders, map[string]any{"limit": 1.0})
	require.NoError(t, err)
	orders := out.(map[string]any)["orders"].([]catalog.Order)
	require.Len(t, orders, 1)
	assert.Equal(t, "Carol", orders[0].CustomerName)
	assert.Equal(t, "ORD-20250916-0003", orders[0].OrderNumber)
}

func TestPackingAlertsAndBulkImport(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	out, err := f.tools.Call(ctx, "c1", agent.ToolBulkImport, map[string]any{
		"defaultCategory": catalog.CategoryPacking,
		"items": []any{
			map[string]any{"name": "Poly Mailer", "stock": 2.0},
			map[string]any{"name": "Kraft Box", "stock": 0.0},
			map[string]any{"name": "Tape Roll", "stock": 50.0, "threshold": 5.0},
		},
	})
	require.NoError(t, err)
	bulk := out.(*catalog.BulkResult)
	assert.Len(t, bulk.Created, 3)
	assert.Empty(t, bulk.Failed)

	out, err = f.tools.Call(ctx, "c1", agent.ToolPackingAlerts, map[string]any{})
	require.NoError(t, err)
	alerts := out.(*catalog.PackingAlerts)
	assert.Equal(t, 3, alerts.Counts.TotalPacking)
	require.Len(t, alerts.Out, 1)
	assert.Equal(t, "Kraft Box", alerts.Out[0].Name)
	require.Len(t, alerts.Low, 1)
	assert.Equal(t, "Poly Mailer", alerts.Low[0].Name)
}
