package intent_test

import (
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopeasly/easly/internal/easly/actions"
	"github.com/shopeasly/easly/internal/easly/catalog"
	"github.com/shopeasly/easly/internal/easly/disambiguation"
	"github.com/shopeasly/easly/internal/easly/docstore"
	"github.com/shopeasly/easly/internal/easly/intent"
	"github.com/shopeasly/easly/internal/easly/reply"
	"github.com/shopeasly/easly/internal/easly/session"
)

type fixture struct {
	cat      *catalog.Catalog
	sessions *session.Manager
	resolver *disambiguation.Resolver
	matcher  *intent.Matcher
	exec     *actions.Executor
	uploads  string
}

func newFixture(t *testing.T, opts ...intent.Option) *fixture {
	t.Helper()
	cat, err := catalog.New(docstore.NewMemory(),
		catalog.WithClock(func() time.Time { return time.Date(2025, 9, 16, 10, 0, 0, 0, time.UTC) }),
		catalog.WithSuffix(func(n int) string { return strings.Repeat("Z", n) }),
	)
	require.NoError(t, err)
	sessions := session.NewManager(session.NewMemoryKV(), 0)
	resolver := disambiguation.New(cat, sessions)
	dir := t.TempDir()
	opts = append([]intent.Option{intent.WithUploads(intent.NewUploads(dir, ""))}, opts...)
	return &fixture{
		cat:      cat,
		sessions: sessions,
		resolver: resolver,
		matcher:  intent.New(cat, sessions, resolver, opts...),
		exec:     actions.NewExecutor(cat, sessions, nil),
		uploads:  dir,
	}
}

func (f *fixture) add(t *testing.T, it catalog.InventoryItem) *catalog.InventoryItem {
	t.Helper()
	created, err := f.cat.CreateItem(context.Background(), it)
	require.NoError(t, err)
	return created
}

func (f *fixture) match(t *testing.T, clientID, text string) (reply.Reply, string) {
	t.Helper()
	s, err := f.sessions.Get(context.Background(), clientID)
	require.NoError(t, err)
	rep, rule, matched, err := f.matcher.Match(context.Background(), intent.Input{ClientID: clientID, Text: text, Session: s})
	require.NoError(t, err)
	if !matched {
		return rep, ""
	}
	return rep, rule
}

func TestAddTShirtsThenPickSecond(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.add(t, catalog.InventoryItem{Name: "Black T-Shirt S", SKU: "APP-BLK-S", Stock: 2, Category: "Apparel"})
	medium := f.add(t, catalog.InventoryItem{Name: "Black T-Shirt M", SKU: "APP-BLK-M", Stock: 5, Category: "Apparel"})

	rep, rule := f.match(t, "c", "add 10 black t-shirts")
	assert.Equal(t, "restock_by_name", rule)
	assert.Equal(t, reply.AwaitingChoice, rep.Awaiting)
	assert.Contains(t, rep.Text, "1. Black T-Shirt S (APP-BLK-S) — stock 2")
	assert.Contains(t, rep.Text, "2. Black T-Shirt M (APP-BLK-M) — stock 5")
	assert.Nil(t, rep.Action)

	s, err := f.sessions.Get(ctx, "c")
	require.NoError(t, err)
	require.NotNil(t, s.PendingChoice)
	assert.Equal(t, session.ChoiceRestockByName, s.PendingChoice.Type)
	assert.Equal(t, 10, s.PendingChoice.Delta)

	rep, handled, err := f.resolver.Resolve(ctx, "c", "2", s)
	require.NoError(t, err)
	require.True(t, handled)
	require.NotNil(t, rep.Action)
	res := f.exec.Execute(ctx, "c", *rep.Action)
	require.True(t, res.Success, res.Message)
	assert.Equal(t, "✅ Added +10 to APP-BLK-M. New stock: 15", res.Message)

	got, err := f.cat.Item(ctx, medium.ID)
	require.NoError(t, err)
	assert.Equal(t, 15, got.Stock)

	s, err = f.sessions.Get(ctx, "c")
	require.NoError(t, err)
	assert.Nil(t, s.PendingChoice)
	require.NotNil(t, s.LastInventory)
	assert.Equal(t, medium.ID, s.LastInventory.ID)
}

func TestRouting(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.add(t, catalog.InventoryItem{Name: "Black Tee", SKU: "SKU-TEE-1", Stock: 4, Price: 15, Category: "Apparel"})
	f.add(t, catalog.InventoryItem{Name: "Coffee Mug", SKU: "SKU-MUG-1", Stock: 0, Price: 12, Category: "Drinkware"})
	_, err := f.cat.CreateOrder(ctx, catalog.OrderInput{CustomerName: "Ana", Product: "Coffee Mug", Quantity: 1})
	require.NoError(t, err)

	tests := []struct {
		text     string
		rule     string
		action   actions.Type
		executes bool
	}{
		{"inventory summary", "inventory_summary", "", false},
		{"show pending orders", "orders_overview", "", false},
		{"How many mugs do we have?", "stock_query", "", false},
		{"add packing material Poly Mailer dimensions 6x9 in stock 250 price 0.12", "add_packing_material", actions.AddPackingMaterial, true},
		{"add material DTF film stock 200 price 0.45", "add_material", actions.AddMaterial, true},
		{"create product Space Tee price 25 qty 10", "create_product", actions.CreateProduct, true},
		{"restock 5 sku-tee-1", "restock_by_sku", actions.IncrementInventoryStock, true},
		{"add 5 to SKU-TEE-1", "restock_by_sku", actions.IncrementInventoryStock, true},
		{"add 3 coffee mugs", "restock_by_name", actions.IncrementInventoryStock, true},
		{"set stock for sku-mug-1 to 12", "set_stock", actions.UpdateInventoryStock, true},
		{"add 20 vinyl sheets at $1.25", "add_item", actions.CreateInventory, true},
		{"add Black Tee", "add_item", actions.IncrementInventoryStock, true},
		{"delete sku-mug-1", "delete_item", actions.DeleteInventory, false},
		{"delete sku-mug-1 confirm", "delete_item", actions.DeleteInventory, true},
		{"mark order ORD-20250916-0001 as shipped", "order_status", actions.UpdateOrderStatus, true},
		{"make a logo for summer fest", "generate_design", "", false},
		{"attach image https://cdn.test/Tee.png for sku-tee-1", "attach_image", actions.UpdateInventoryFields, true},
		{"add image https://cdn.test/Tee.png for sku-tee-1", "attach_image", actions.UpdateInventoryFields, true},
		{"set ninjatransfer link https://ninja.test/x for sku-tee-1", "ninjatransfer_link", actions.UpdateInventoryFields, true},
		{"create order for Ana Lopez product Coffee Mug qty 2 price 12.5", "create_order", actions.CreateOrder, true},
		{"cancel order ORD-20250916-0001", "delete_order", actions.DeleteOrder, false},
		{"confirm", "bare_confirm", "", false},
		{"what's the weather like", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			rep, rule := f.match(t, "c", tt.text)
			assert.Equal(t, tt.rule, rule)
			if tt.action == "" {
				assert.Nil(t, rep.Action)
				return
			}
			require.NotNil(t, rep.Action)
			assert.Equal(t, tt.action, rep.Action.Type)
			assert.Equal(t, tt.executes, rep.Execute)
		})
	}
}

func TestSingular(t *testing.T) {
	tests := map[string]string{
		"boxes":     "box",
		"dresses":   "dress",
		"benches":   "bench",
		"brushes":   "brush",
		"mugs":      "mug",
		"stickers":  "sticker",
		"batteries": "battery",
		"glass":     "glass",
		"tee":       "tee",
		"shoes":     "shoe",
		"gas":       "gas",
	}
	for in, want := range tests {
		assert.Equal(t, want, intent.Singular(in), in)
	}
}

func TestRestockByName_EsPlurals(t *testing.T) {
	f := newFixture(t)
	box := f.add(t, catalog.InventoryItem{Name: "Kraft Box", SKU: "PKG-BOX-1", Stock: 3, Category: catalog.CategoryPacking})
	dress := f.add(t, catalog.InventoryItem{Name: "Linen Dress", SKU: "APP-DRS-1", Stock: 1, Category: "Apparel"})

	tests := []struct {
		text string
		id   string
	}{
		{"add 5 kraft boxes", box.ID},
		{"add 2 linen dresses", dress.ID},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			rep, rule := f.match(t, "c", tt.text)
			assert.Equal(t, "restock_by_name", rule)
			require.NotNil(t, rep.Action)
			assert.Equal(t, actions.IncrementInventoryStock, rep.Action.Type)
			assert.Equal(t, tt.id, rep.Action.Target())
		})
	}
}

func TestExtraction(t *testing.T) {
	f := newFixture(t)
	f.add(t, catalog.InventoryItem{Name: "Black Tee", SKU: "SKU-TEE-1", Stock: 4, Price: 15, Category: "Apparel"})

	rep, _ := f.match(t, "c", "add packing material Poly Mailer dimensions 6x9 in stock 250 price 0.12")
	assert.Equal(t, "Poly Mailer", rep.Action.Payload["name"])
	assert.Equal(t, "6x9 in", rep.Action.Payload["dimensions"])
	assert.EqualValues(t, 250, rep.Action.Payload["stock"])
	assert.Equal(t, 0.12, rep.Action.Payload["price"])

	rep, _ = f.match(t, "c", "create order for Ana Lopez product Coffee Mug qty 2 price 12.5")
	assert.Equal(t, "Ana Lopez", rep.Action.Payload["customerName"])
	assert.Equal(t, "Coffee Mug", rep.Action.Payload["product"])
	assert.EqualValues(t, 2, rep.Action.Payload["quantity"])
	assert.Equal(t, 12.5, rep.Action.Payload["price"])

	rep, _ = f.match(t, "c", "create order for Ben")
	assert.Equal(t, "Custom Item", rep.Action.Payload["product"])
	assert.EqualValues(t, 1, rep.Action.Payload["quantity"])

	rep, _ = f.match(t, "c", "attach image https://cdn.test/Tee.png for sku-tee-1")
	assert.Equal(t, map[string]any{"imageUrl": "https://cdn.test/Tee.png"}, rep.Action.Payload["fields"])
	assert.Equal(t, "Black Tee (SKU-TEE-1)", rep.Action.Payload["label"])
}

func TestAddItemDefaultsAndMerge(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tee := f.add(t, catalog.InventoryItem{Name: "Black Tee", SKU: "SKU-TEE-1", Stock: 4, Price: 15, Category: "Apparel"})

	rep, _ := f.match(t, "c", "add 20 vinyl sheets at $1.25")
	require.NotNil(t, rep.Action)
	assert.Equal(t, "vinyl sheets", rep.Action.Payload["name"])
	assert.EqualValues(t, 20, rep.Action.Payload["stock"])
	assert.Equal(t, 1.25, rep.Action.Payload["price"])
	assert.EqualValues(t, 3, rep.Action.Payload["threshold"])
	assert.Contains(t, rep.Note, "(Defaults applied: SKU ")
	assert.Contains(t, rep.Note, "threshold 3")
	assert.NotContains(t, rep.Note, "$1.25", "explicit price is not a default")

	rep, _ = f.match(t, "c", "add 50 bubble wrap rolls")
	assert.Equal(t, catalog.CategoryPacking, rep.Action.Payload["category"])

	rep, _ = f.match(t, "c", "add 5 kraft paper as raw materials")
	assert.Equal(t, catalog.CategoryMaterials, rep.Action.Payload["category"])
	assert.Equal(t, "kraft paper", rep.Action.Payload["name"])

	rep, _ = f.match(t, "c", "add Black Tee")
	require.Equal(t, actions.IncrementInventoryStock, rep.Action.Type)
	assert.Equal(t, " (Merged with existing item SKU-TEE-1)", rep.Note)
	res := f.exec.Execute(ctx, "c", *rep.Action)
	require.True(t, res.Success)
	assert.Equal(t, "✅ Added +1 to SKU-TEE-1. New stock: 5", res.Message)

	rep, _ = f.match(t, "c", "add new Black Tee")
	require.Equal(t, actions.CreateInventory, rep.Action.Type)
	assert.Equal(t, "Black Tee", rep.Action.Payload["name"])
	assert.NotEqual(t, tee.SKU, rep.Action.Payload["sku"])
}

func TestFollowUps(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tee := f.add(t, catalog.InventoryItem{Name: "Black Tee", SKU: "SKU-TEE-1", Stock: 4})
	f.add(t, catalog.InventoryItem{Name: "Coffee Mug", SKU: "SKU-MUG-1", Stock: 1})
	_, err := f.cat.CreateOrder(ctx, catalog.OrderInput{CustomerName: "Ana", Quantity: 1})
	require.NoError(t, err)
	require.NoError(t, f.sessions.Set(ctx, "c", session.Patch{
		LastInventory: &session.ItemRef{ID: tee.ID, Name: tee.Name, SKU: tee.SKU},
	}))

	tests := []struct {
		text   string
		rule   string
		fields map[string]any
	}{
		{"price 30", "followup_price", map[string]any{"price": 30.0}},
		{"set price to $12.50", "followup_price", map[string]any{"price": 12.5}},
		{"change sku to tee-blk", "followup_sku", map[string]any{"sku": "TEE-BLK"}},
		{"rename it to Midnight Tee", "followup_rename", map[string]any{"name": "Midnight Tee"}},
		{"set category to Drinkware", "followup_category", map[string]any{"category": "Drinkware"}},
		{"make it red", "followup_color", map[string]any{"color": "red"}},
		{"set color to Blue", "followup_color", map[string]any{"color": "blue"}},
		{"set stock for sku-mug-1 to 3", "set_stock", nil},
		{"set order ORD-20250916-0001 to delivered", "order_status", nil},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			rep, rule := f.match(t, "c", tt.text)
			assert.Equal(t, tt.rule, rule)
			if tt.fields == nil {
				return
			}
			require.NotNil(t, rep.Action)
			assert.Equal(t, tee.ID, rep.Action.Target())
			assert.Equal(t, tt.fields, rep.Action.Payload["fields"])
		})
	}

	_, rule := f.match(t, "other-client", "price 30")
	assert.Empty(t, rule, "follow-ups need a last item")
}

func TestRuleOrder(t *testing.T) {
	f := newFixture(t)
	index := map[string]int{}
	for i, r := range f.matcher.Rules() {
		_, dup := index[r.Name]
		require.False(t, dup, "duplicate rule %s", r.Name)
		index[r.Name] = i
	}
	before := [][2]string{
		{"followup_price", "inventory_summary"},
		{"add_packing_material", "add_material"},
		{"add_material", "create_product"},
		{"restock_by_sku", "restock_by_name"},
		{"restock_by_name", "add_item"},
		{"add_item", "delete_item"},
		{"order_status", "generate_design"},
		{"ninjatransfer_link", "create_order"},
		{"delete_order", "bare_confirm"},
	}
	for _, p := range before {
		assert.Less(t, index[p[0]], index[p[1]], "%s should precede %s", p[0], p[1])
	}

	// Both restock patterns match; the SKU form wins.
	f.add(t, catalog.InventoryItem{Name: "Sku Tee", SKU: "SKU-TEE-1"})
	_, rule := f.match(t, "c", "add 5 sku-tee-1")
	assert.Equal(t, "restock_by_sku", rule)
}

func TestNotFoundReplies(t *testing.T) {
	f := newFixture(t)
	rep, _ := f.match(t, "c", "restock 5 sku-nope")
	assert.Equal(t, "❌ I couldn't find SKU SKU-NOPE in inventory.", rep.Text)
	rep, _ = f.match(t, "c", "mark order ord-1 delivered")
	assert.Equal(t, "❌ I couldn't find order ORD-1.", rep.Text)
	rep, _ = f.match(t, "c", "attach image https://cdn.test/a.png")
	assert.Equal(t, `❌ Please specify which item. Include a SKU like "for SKU-123" or add the item first.`, rep.Text)
}

func TestDeleteOrderProposal(t *testing.T) {
	f := newFixture(t)
	o, err := f.cat.CreateOrder(context.Background(), catalog.OrderInput{CustomerName: "Ana", Quantity: 1})
	require.NoError(t, err)

	rep, _ := f.match(t, "c", "delete order "+o.OrderNumber)
	assert.Equal(t, reply.AwaitingConfirmation, rep.Awaiting)
	assert.False(t, rep.Execute)
	assert.Equal(t, "🗑️ I can delete order **ORD-20250916-0001** for Ana. This action cannot be undone. Say \"execute\" or \"confirm\" to delete.", rep.Text)

	rep, _ = f.match(t, "c", "delete order "+o.OrderNumber+" do it")
	assert.True(t, rep.Execute)
}

type fakeDesigns struct{ prompt string }

func (d *fakeDesigns) Generate(_ context.Context, prompt string) (string, error) {
	d.prompt = prompt
	return "/images/designs/sunset.png", nil
}

func TestDesignThenProductFromLastDesign(t *testing.T) {
	designs := &fakeDesigns{}
	f := newFixture(t, intent.WithDesigns(designs))
	ctx := context.Background()

	rep, rule := f.match(t, "c", "generate a design for Sunset Waves.")
	assert.Equal(t, "generate_design", rule)
	assert.Equal(t, "🖼️ Generated design for \"Sunset Waves\": /images/designs/sunset.png\nThis is saved locally and ready for printing or upload to NinjaTransfer.", rep.Text)
	assert.Contains(t, designs.prompt, "Sunset Waves")

	s, err := f.sessions.Get(ctx, "c")
	require.NoError(t, err)
	require.NotNil(t, s.LastDesign)

	rep, rule = f.match(t, "c", "create product from last design price 25")
	assert.Equal(t, "create_product", rule)
	require.NotNil(t, rep.Action)
	assert.Equal(t, "Sunset Waves", rep.Action.Payload["name"])
	assert.Equal(t, "/images/designs/sunset.png", rep.Action.Payload["imageUrl"])
	assert.Equal(t, 25.0, rep.Action.Payload["price"])
}

func TestAttachUploadedImage(t *testing.T) {
	f := newFixture(t)
	f.add(t, catalog.InventoryItem{Name: "Black Tee", SKU: "SKU-TEE-1"})
	png := base64.StdEncoding.EncodeToString([]byte("\x89PNG fake"))

	rep, rule, matched, err := f.matcher.Match(context.Background(), intent.Input{
		ClientID:   "c",
		Text:       "attach image to sku-tee-1",
		Attachment: "data:image/png;base64," + png,
	})
	require.NoError(t, err)
	require.True(t, matched)
	assert.Equal(t, "attach_image", rule)
	require.NotNil(t, rep.Action)

	fields := rep.Action.Payload["fields"].(map[string]any)
	url := fields["imageUrl"].(string)
	require.True(t, strings.HasPrefix(url, "/images/uploads/upload-"), url)
	data, err := os.ReadFile(filepath.Join(f.uploads, strings.TrimPrefix(url, "/images/uploads/")))
	require.NoError(t, err)
	assert.Equal(t, "\x89PNG fake", string(data))
}
