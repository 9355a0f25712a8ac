package actions_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopeasly/easly/common/trace"
	"github.com/shopeasly/easly/internal/easly/actions"
	"github.com/shopeasly/easly/internal/easly/catalog"
	"github.com/shopeasly/easly/internal/easly/docstore"
	"github.com/shopeasly/easly/internal/easly/session"
	"github.com/shopeasly/easly/internal/easly/store"
)

var fixedNow = time.Date(2025, 9, 16, 14, 30, 0, 0, time.UTC)

type auditRow struct {
	traceID, actor, action, target, result, errMsg string
	payload                                        store.AuditPayload
}

type fakeAuditor struct {
	mu   sync.Mutex
	rows []auditRow
}

func (f *fakeAuditor) WriteAudit(_ context.Context, traceID, actor, action, target, result string, payload store.AuditPayload, errorMsg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = append(f.rows, auditRow{traceID, actor, action, target, result, errorMsg, payload})
	return nil
}

type fixture struct {
	cat      *catalog.Catalog
	sessions *session.Manager
	audit    *fakeAuditor
	exec     *actions.Executor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cat, err := catalog.New(docstore.NewMemory(),
		catalog.WithClock(func() time.Time { return fixedNow }),
		catalog.WithSuffix(func(n int) string { return strings.Repeat("Z", n) }),
	)
	require.NoError(t, err)
	sessions := session.NewManager(session.NewMemoryKV(), 0)
	audit := &fakeAuditor{}
	return &fixture{cat: cat, sessions: sessions, audit: audit, exec: actions.NewExecutor(cat, sessions, audit)}
}

func (f *fixture) item(t *testing.T, it catalog.InventoryItem) *catalog.InventoryItem {
	t.Helper()
	created, err := f.cat.CreateItem(context.Background(), it)
	require.NoError(t, err)
	return created
}

func TestExecute_IncrementStock(t *testing.T) {
	f := newFixture(t)
	ctx := trace.WithTraceID(context.Background(), "trace-1")
	tee := f.item(t, catalog.InventoryItem{Name: "Black Tee", SKU: "APP-BLACK-TEE", Stock: 4, Price: 15})

	res := f.exec.Execute(ctx, "client-a", actions.NewIncrementStock(tee.ID, tee.SKU, 10))
	require.True(t, res.Success, res.Message)
	assert.Equal(t, "✅ Added +10 to APP-BLACK-TEE. New stock: 14", res.Message)

	s, err := f.sessions.Get(ctx, "client-a")
	require.NoError(t, err)
	require.NotNil(t, s.LastInventory)
	assert.Equal(t, tee.ID, s.LastInventory.ID)

	require.Len(t, f.audit.rows, 1)
	row := f.audit.rows[0]
	assert.Equal(t, "trace-1", row.traceID)
	assert.Equal(t, "client-a", row.actor)
	assert.Equal(t, "increment_inventory_stock", row.action)
	assert.Equal(t, tee.ID, row.target)
	assert.Equal(t, store.AuditSuccess, row.result)
}

func TestExecuteAs_LeavesSessionsAlone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tee := f.item(t, catalog.InventoryItem{Name: "Black Tee", SKU: "APP-BLACK-TEE", Stock: 4})

	res := f.exec.ExecuteAs(ctx, "rest", actions.NewIncrementStock(tee.ID, tee.SKU, 2))
	require.True(t, res.Success, res.Message)

	s, err := f.sessions.Get(ctx, "rest")
	require.NoError(t, err)
	assert.Nil(t, s, "non-chat actors get no session")
	require.Len(t, f.audit.rows, 1)
	assert.Equal(t, "rest", f.audit.rows[0].actor)
}

func TestExecute_UpdateStockRejectsNonNumeric(t *testing.T) {
	f := newFixture(t)
	tee := f.item(t, catalog.InventoryItem{Name: "Black Tee", SKU: "APP-BLACK-TEE", Stock: 4})

	a := actions.NewUpdateStock(tee.ID, tee.SKU, 0)
	a.Payload["stock"] = "lots"
	res := f.exec.Execute(context.Background(), "c", a)
	assert.False(t, res.Success)
	assert.Equal(t, "❌ stock must be a number", res.Message)

	got, err := f.cat.Item(context.Background(), tee.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, got.Stock, "stock unchanged after rejected update")
	require.Len(t, f.audit.rows, 1)
	assert.Equal(t, store.AuditError, f.audit.rows[0].result)
}

func TestExecute_UpdateStock(t *testing.T) {
	f := newFixture(t)
	tee := f.item(t, catalog.InventoryItem{Name: "Black Tee", SKU: "APP-BLACK-TEE", Stock: 4})

	res := f.exec.Execute(context.Background(), "c", actions.NewUpdateStock(tee.ID, tee.SKU, 25))
	require.True(t, res.Success, res.Message)
	assert.Equal(t, "✅ Updated APP-BLACK-TEE stock to 25", res.Message)
}

func TestExecute_CreateOrdersNumbersSequentially(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.exec.Execute(ctx, "c", actions.NewCreateOrder(catalog.OrderInput{CustomerName: "Ana", Product: "Custom Item", Quantity: 1}))
	second := f.exec.Execute(ctx, "c", actions.NewCreateOrder(catalog.OrderInput{CustomerName: "Ben", Product: "Mug", Quantity: 2}))
	require.True(t, first.Success, first.Message)
	require.True(t, second.Success, second.Message)

	assert.Equal(t, "ORD-20250916-0001", first.OrderNumber)
	assert.Equal(t, "ORD-20250916-0002", second.OrderNumber)
	assert.Equal(t, "✅ Created order ORD-20250916-0002 for Ben", second.Message)
}

func TestExecute_OrderStatusAndDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := f.exec.Execute(ctx, "c", actions.NewCreateOrder(catalog.OrderInput{CustomerName: "Ana", Quantity: 1}))
	require.True(t, created.Success)

	res := f.exec.Execute(ctx, "c", actions.NewUpdateOrderStatus(created.ID, "shipped"))
	require.True(t, res.Success, res.Message)
	assert.Equal(t, "✅ Updated order status to Shipped", res.Message)

	res = f.exec.Execute(ctx, "c", actions.NewUpdateOrderStatus(created.ID, "lost"))
	assert.False(t, res.Success)
	assert.True(t, strings.HasPrefix(res.Message, "❌ status"), res.Message)

	res = f.exec.Execute(ctx, "c", actions.NewDeleteOrder(created.ID, created.OrderNumber))
	require.True(t, res.Success, res.Message)
	assert.Equal(t, "✅ Deleted order: "+created.OrderNumber, res.Message)

	_, err := f.cat.FindOrder(ctx, created.OrderNumber)
	var nf *catalog.NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestExecute_DeleteInventoryForgetsLastItem(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tee := f.item(t, catalog.InventoryItem{Name: "Black Tee", SKU: "APP-BLACK-TEE", Stock: 4})

	require.True(t, f.exec.Execute(ctx, "c", actions.NewIncrementStock(tee.ID, tee.SKU, 1)).Success)
	res := f.exec.Execute(ctx, "c", actions.NewDeleteInventory(tee.ID, tee.SKU))
	require.True(t, res.Success, res.Message)
	assert.Equal(t, "✅ Deleted inventory item: APP-BLACK-TEE", res.Message)

	s, err := f.sessions.Get(ctx, "c")
	require.NoError(t, err)
	if s != nil {
		assert.Nil(t, s.LastInventory)
	}

	res = f.exec.Execute(ctx, "c", actions.NewDeleteInventory(tee.ID, tee.SKU))
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "not found")
}

func TestExecute_UpdateFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tee := f.item(t, catalog.InventoryItem{Name: "Black Tee", SKU: "APP-BLACK-TEE", Stock: 4, Price: 15})

	tests := []struct {
		name    string
		fields  map[string]any
		ok      bool
		message string
	}{
		{"price", map[string]any{"price": 25.0}, true, "✅ Updated price for APP-BLACK-TEE to $25.00."},
		{"sku upper-cased", map[string]any{"sku": "tee-blk"}, true, "✅ Updated SKU to TEE-BLK."},
		{"rename", map[string]any{"name": "Midnight Tee"}, true, `✅ Renamed item to "Midnight Tee".`},
		{"several", map[string]any{"color": "black", "threshold": 3.0}, true, "✅ Updated APP-BLACK-TEE: color, threshold."},
		{"unknown field", map[string]any{"owner": "me"}, false, "❌ owner cannot be edited"},
		{"negative price", map[string]any{"price": -1.0}, false, "❌ price must be a non-negative number"},
		{"empty", map[string]any{}, false, "❌ fields must name at least one field"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := f.exec.Execute(ctx, "c", actions.NewUpdateFields(tee.ID, tee.SKU, tt.fields))
			assert.Equal(t, tt.ok, res.Success)
			assert.Equal(t, tt.message, res.Message)
		})
	}

	got, err := f.cat.Item(ctx, tee.ID)
	require.NoError(t, err)
	assert.Equal(t, "Midnight Tee", got.Name)
	assert.Equal(t, "TEE-BLK", got.SKU)
	assert.Equal(t, 25.0, got.Price)

	s, err := f.sessions.Get(ctx, "c")
	require.NoError(t, err)
	require.NotNil(t, s.LastInventory)
	assert.Equal(t, "TEE-BLK", s.LastInventory.SKU)
}

func TestExecute_CreateProduct(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	blank := f.item(t, catalog.InventoryItem{Name: "Blank Tee", SKU: "MAT-BLANK-TEE", Stock: 50, Category: catalog.CategoryMaterials})
	box := f.item(t, catalog.InventoryItem{Name: "Mailer Box", SKU: "PKG-MAILER", Stock: 20, Category: catalog.CategoryPacking, Dimensions: "10x8x2"})

	res := f.exec.Execute(ctx, "c", actions.NewCreateProduct(catalog.ProductInput{
		Name:        "Sunset Tee",
		Price:       25,
		Quantity:    3,
		MaterialIDs: []string{blank.ID},
		PackagingID: box.ID,
	}))
	require.True(t, res.Success, res.Message)
	assert.True(t, strings.HasPrefix(res.Message, `✅ Created product "Sunset Tee" (SKU `), res.Message)
	assert.True(t, strings.HasSuffix(res.Message, "qty 3 at $25.00 (1 material(s), packaging attached)."), res.Message)

	a := actions.NewCreateProduct(catalog.ProductInput{Name: "No Price"})
	delete(a.Payload, "price")
	res = f.exec.Execute(ctx, "c", a)
	assert.False(t, res.Success)
	assert.Equal(t, "❌ Failed to create product: price is required for product creation", res.Message)
}

func TestExecute_AddMaterials(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res := f.exec.Execute(ctx, "c", actions.NewAddMaterial(catalog.MaterialInput{Name: "Cotton Blank", Stock: 40}))
	require.True(t, res.Success, res.Message)
	assert.True(t, strings.HasPrefix(res.Message, `🧩 Added material "Cotton Blank"`), res.Message)

	res = f.exec.Execute(ctx, "c", actions.NewAddPackingMaterial(catalog.MaterialInput{Name: "Poly Mailer", Stock: 10}))
	assert.False(t, res.Success)
	assert.True(t, strings.HasPrefix(res.Message, "❌ Failed to add packing material: "), res.Message)
}

func TestExecute_UnknownAction(t *testing.T) {
	f := newFixture(t)
	var seen []actions.Type
	f.exec.OnExecute = func(t actions.Type, _ bool) { seen = append(seen, t) }

	res := f.exec.Execute(context.Background(), "c", actions.Action{Type: "launch_rocket"})
	assert.False(t, res.Success)
	assert.Equal(t, "❌ Unknown action: launch_rocket", res.Message)
	assert.Empty(t, seen)
	require.Len(t, f.audit.rows, 1)
	assert.Equal(t, store.AuditDenied, f.audit.rows[0].result)
}

func TestTypeDestructive(t *testing.T) {
	assert.True(t, actions.DeleteInventory.Destructive())
	assert.True(t, actions.DeleteOrder.Destructive())
	assert.False(t, actions.CreateOrder.Destructive())
}
