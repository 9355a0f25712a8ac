package disambiguation_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopeasly/easly/internal/easly/actions"
	"github.com/shopeasly/easly/internal/easly/catalog"
	"github.com/shopeasly/easly/internal/easly/disambiguation"
	"github.com/shopeasly/easly/internal/easly/docstore"
	"github.com/shopeasly/easly/internal/easly/reply"
	"github.com/shopeasly/easly/internal/easly/session"
)

type fixture struct {
	cat      *catalog.Catalog
	sessions *session.Manager
	res      *disambiguation.Resolver
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cat, err := catalog.New(docstore.NewMemory(),
		catalog.WithClock(func() time.Time { return time.Date(2025, 9, 16, 0, 0, 0, 0, time.UTC) }),
		catalog.WithSuffix(func(n int) string { return strings.Repeat("Z", n) }),
	)
	require.NoError(t, err)
	sessions := session.NewManager(session.NewMemoryKV(), 0)
	return &fixture{cat: cat, sessions: sessions, res: disambiguation.New(cat, sessions)}
}

func (f *fixture) add(t *testing.T, it catalog.InventoryItem) catalog.InventoryItem {
	t.Helper()
	created, err := f.cat.CreateItem(context.Background(), it)
	require.NoError(t, err)
	return *created
}

func (f *fixture) session(t *testing.T, clientID string) *session.Session {
	t.Helper()
	s, err := f.sessions.Get(context.Background(), clientID)
	require.NoError(t, err)
	return s
}

func (f *fixture) resolve(t *testing.T, clientID, text string) reply.Reply {
	t.Helper()
	rep, handled, err := f.res.Resolve(context.Background(), clientID, text, f.session(t, clientID))
	require.NoError(t, err)
	require.True(t, handled, "turn %q not handled", text)
	return rep
}

func TestResolve_NothingPending(t *testing.T) {
	f := newFixture(t)
	_, handled, err := f.res.Resolve(context.Background(), "c", "2", nil)
	require.NoError(t, err)
	assert.False(t, handled)
}

func TestRestockChoice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	small := f.add(t, catalog.InventoryItem{Name: "Black T-Shirt S", SKU: "APP-BLK-S", Stock: 2})
	medium := f.add(t, catalog.InventoryItem{Name: "Black T-Shirt M", SKU: "APP-BLK-M", Stock: 5})

	rep, err := f.res.AskRestock(ctx, "c", "black t-shirt", 10, []catalog.InventoryItem{small, medium})
	require.NoError(t, err)
	assert.Equal(t, reply.AwaitingChoice, rep.Awaiting)
	assert.Equal(t, "I found multiple items matching \"black t-shirt\". Please choose:\n"+
		"1. Black T-Shirt S (APP-BLK-S) — stock 2\n"+
		"2. Black T-Shirt M (APP-BLK-M) — stock 5", rep.Text)
	require.Len(t, rep.Options, 2)
	assert.Equal(t, reply.Option{Label: "Black T-Shirt M (APP-BLK-M) — 5", Send: "2"}, rep.Options[1])

	s := f.session(t, "c")
	require.NotNil(t, s.PendingChoice)
	assert.Equal(t, session.ChoiceRestockByName, s.PendingChoice.Type)
	assert.Equal(t, 10, s.PendingChoice.Delta)

	rep = f.resolve(t, "c", "2")
	require.NotNil(t, rep.Action)
	assert.True(t, rep.Execute)
	assert.Equal(t, actions.IncrementInventoryStock, rep.Action.Type)
	assert.Equal(t, medium.ID, rep.Action.Target())
	assert.EqualValues(t, 10, rep.Action.Payload["delta"])

	s = f.session(t, "c")
	require.NotNil(t, s)
	assert.Nil(t, s.PendingChoice)
}

func TestRestockChoice_UnresolvedReprompts(t *testing.T) {
	f := newFixture(t)
	a := f.add(t, catalog.InventoryItem{Name: "Mug White", SKU: "DRK-MUG-W", Stock: 1})
	b := f.add(t, catalog.InventoryItem{Name: "Mug Black", SKU: "", Stock: 0})
	_, err := f.res.AskRestock(context.Background(), "c", "mug", 3, []catalog.InventoryItem{a, b})
	require.NoError(t, err)

	for _, text := range []string{"7", "the green one", "sku-nope"} {
		rep := f.resolve(t, "c", text)
		assert.Nil(t, rep.Action, text)
		assert.Equal(t, "Please choose an option by number or SKU:\n"+
			"1. Mug White (DRK-MUG-W) — stock 1\n"+
			"2. Mug Black (N/A) — stock 0", rep.Text)
		require.NotNil(t, f.session(t, "c").PendingChoice, "state unchanged after %q", text)
	}
}

func TestCancel(t *testing.T) {
	f := newFixture(t)
	a := f.add(t, catalog.InventoryItem{Name: "Mug White", SKU: "DRK-MUG-W"})
	b := f.add(t, catalog.InventoryItem{Name: "Mug Black", SKU: "DRK-MUG-B"})
	_, err := f.res.AskRestock(context.Background(), "c", "mug", 3, []catalog.InventoryItem{a, b})
	require.NoError(t, err)

	rep := f.resolve(t, "c", "never mind")
	assert.Equal(t, disambiguation.CancelledMessage, rep.Text)
	assert.Nil(t, rep.Action)
	s := f.session(t, "c")
	assert.Nil(t, s.PendingChoice)
	assert.Nil(t, s.PendingCreateProduct)
}

func TestSelect(t *testing.T) {
	cands := []session.Candidate{
		{ID: "1", Name: "Black T-Shirt S", SKU: "SKU-BLK-S"},
		{ID: "2", Name: "Black T-Shirt M", SKU: "SKU-BLK-M"},
		{ID: "3", Name: "Navy Hoodie", SKU: ""},
	}
	tests := []struct {
		text string
		want int
	}{
		{"1", 0},
		{"option 3", 2},
		{" 2 please", 1},
		{"4", -1},
		{"0", -1},
		{"sku-blk-m", 1},
		{"SKU BLK-S", -1},
		{"hoodie", 2},
		{"black", 0},
		{"", -1},
		{"something else", -1},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, disambiguation.Select(cands, tt.text))
		})
	}
}

func TestIsCancel(t *testing.T) {
	for _, s := range []string{"cancel", "Never mind", "nevermind", "stop", "abort that"} {
		assert.True(t, disambiguation.IsCancel(s), s)
	}
	for _, s := range []string{"2", "restock", "unstoppable mug"} {
		assert.False(t, disambiguation.IsCancel(s), s)
	}
}

func ptr[T any](v T) *T { return &v }

func TestProductDraft_WalksMaterialsThenPackaging(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.add(t, catalog.InventoryItem{Name: "DTF Film A3", SKU: "MAT-FILM-A3", Category: catalog.CategoryMaterials, Stock: 9})
	film2 := f.add(t, catalog.InventoryItem{Name: "DTF Film A4", SKU: "MAT-FILM-A4", Category: catalog.CategoryMaterials, Stock: 4})
	shirt := f.add(t, catalog.InventoryItem{Name: "Black Shirt Blank", SKU: "MAT-SHIRT", Category: catalog.CategoryMaterials, Stock: 30})
	f.add(t, catalog.InventoryItem{Name: "Poly Mailer 6x9", SKU: "PKG-POLY-69", Category: catalog.CategoryPacking, Stock: 50})
	big := f.add(t, catalog.InventoryItem{Name: "Poly Mailer 10x13", SKU: "PKG-POLY-1013", Category: catalog.CategoryPacking, Stock: 20})
	// A product named like a material is never offered as one.
	f.add(t, catalog.InventoryItem{Name: "DTF Film Sticker", SKU: "STK-FILM", Category: "Stickers"})

	rep, err := f.res.StartProduct(ctx, "c", session.ProductDraft{
		Name:          "Space Tee",
		Price:         ptr(25.0),
		Quantity:      10,
		MaterialTerms: []string{"film", "black shirt"},
		PackagingTerm: "poly mailer",
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(rep.Text, `Multiple materials match "film". Please choose:`), rep.Text)
	require.Len(t, rep.Options, 2)
	assert.Equal(t, "DTF Film A3 (MAT-FILM-A3) — 9", rep.Options[0].Label)

	s := f.session(t, "c")
	require.NotNil(t, s.PendingCreateProduct)
	assert.Equal(t, session.DraftAwaitingMaterials, s.PendingCreateProduct.State)
	assert.Equal(t, session.ChoiceMaterialForProduct, s.PendingChoice.Type)

	rep = f.resolve(t, "c", "2")
	assert.True(t, strings.HasPrefix(rep.Text, `Multiple packaging items match "poly mailer". Please choose:`), rep.Text)
	s = f.session(t, "c")
	assert.Equal(t, session.DraftAwaitingPackaging, s.PendingCreateProduct.State)
	assert.Equal(t, []string{film2.ID, shirt.ID}, s.PendingCreateProduct.ResolvedMaterialIDs)

	rep = f.resolve(t, "c", "pkg-poly-1013")
	require.NotNil(t, rep.Action)
	assert.True(t, rep.Execute)
	assert.Equal(t, actions.CreateProduct, rep.Action.Type)
	assert.Equal(t, big.ID, rep.Action.Payload["packagingId"])
	assert.Equal(t, []any{film2.ID, shirt.ID}, rep.Action.Payload["materialsIds"])
	assert.Equal(t, "Space Tee", rep.Action.Payload["name"])

	s = f.session(t, "c")
	assert.Nil(t, s.PendingChoice)
	assert.Nil(t, s.PendingCreateProduct)
}

func TestProductDraft_NoAmbiguityRunsImmediately(t *testing.T) {
	f := newFixture(t)
	film := f.add(t, catalog.InventoryItem{Name: "DTF Film", SKU: "MAT-FILM", Category: catalog.CategoryMaterials})

	rep, err := f.res.StartProduct(context.Background(), "c", session.ProductDraft{
		Name:          "Sticker Pack",
		Price:         ptr(5.0),
		MaterialTerms: []string{"film", "glitter"},
	})
	require.NoError(t, err)
	require.NotNil(t, rep.Action)
	assert.Equal(t, []any{film.ID}, rep.Action.Payload["materialsIds"], "unknown terms are skipped")
	assert.Nil(t, f.session(t, "c"))
}

func TestProductDraft_MissingPrice(t *testing.T) {
	f := newFixture(t)
	f.add(t, catalog.InventoryItem{Name: "Film A", SKU: "MAT-A", Category: catalog.CategoryMaterials})
	f.add(t, catalog.InventoryItem{Name: "Film B", SKU: "MAT-B", Category: catalog.CategoryMaterials})

	rep, err := f.res.StartProduct(context.Background(), "direct", session.ProductDraft{Name: "Tee"})
	require.NoError(t, err)
	assert.Equal(t, "❌ Failed to create product: price is required for product creation", rep.Text)

	_, err = f.res.StartProduct(context.Background(), "c", session.ProductDraft{Name: "Tee", MaterialTerms: []string{"film"}})
	require.NoError(t, err)
	rep = f.resolve(t, "c", "1")
	assert.Equal(t, disambiguation.MissingPriceMessage, rep.Text)
	assert.Nil(t, rep.Action)
	assert.Nil(t, f.session(t, "c").PendingChoice)
}
