package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopeasly/easly/internal/easly/actions"
	"github.com/shopeasly/easly/internal/easly/assistant"
	"github.com/shopeasly/easly/internal/easly/catalog"
	"github.com/shopeasly/easly/internal/easly/disambiguation"
	"github.com/shopeasly/easly/internal/easly/httpapi"
	"github.com/shopeasly/easly/internal/easly/intent"
	"github.com/shopeasly/easly/internal/easly/metrics"
	"github.com/shopeasly/easly/internal/easly/ratelimit"
	"github.com/shopeasly/easly/internal/easly/session"
	"github.com/shopeasly/easly/internal/easly/store"
)

type fixture struct {
	srv     *httpapi.Server
	cat     *catalog.Catalog
	db      *store.Store
	limiter *ratelimit.Limiter
	uploads string
}

type deadDB struct{}

func (deadDB) Ping(context.Context) error { return errors.New("database is closed") }

func newFixture(t *testing.T, mutate ...func(*httpapi.Deps)) *fixture {
	t.Helper()
	db, err := store.New(filepath.Join(t.TempDir(), "easly.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cat, err := catalog.New(db.Documents(),
		catalog.WithClock(func() time.Time { return time.Date(2025, 9, 16, 10, 0, 0, 0, time.UTC) }),
	)
	require.NoError(t, err)
	sessions := session.NewManager(db.Sessions(), 0)
	resolver := disambiguation.New(cat, sessions)
	exec := actions.NewExecutor(cat, sessions, db)

	m := metrics.New()
	limiter := ratelimit.New(ratelimit.NewMemoryStore(), 60, 5*time.Minute)
	limiter.OnLimited = m.Limited
	uploads := t.TempDir()

	deps := httpapi.Deps{
		Assistant: assistant.New(assistant.Deps{
			Sessions: sessions,
			Resolver: resolver,
			Matcher:  intent.New(cat, sessions, resolver),
			Executor: exec,
			History:  db,
			Audit:    db,
		}),
		Catalog:    cat,
		Executor:   exec,
		Limiter:    limiter,
		Metrics:    m.Handler(),
		DB:         db,
		Providers:  []string{"gemini", "local"},
		UploadsDir: uploads,
	}
	for _, fn := range mutate {
		fn(&deps)
	}
	return &fixture{srv: httpapi.New(deps), cat: cat, db: db, limiter: limiter, uploads: uploads}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.srv.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v), "body: %s", rec.Body.String())
	return v
}

func TestAI_Validation(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		name string
		body any
		want string
	}{
		{"missing text", map[string]string{"clientId": "c1"}, "Missing text"},
		{"blank text", map[string]string{"text": "  ", "clientId": "c1"}, "Missing text"},
		{"malformed body", "{not json", "Invalid JSON body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/api/ai", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.want, decode[map[string]string](t, rec)["error"])
		})
	}
}

func TestAI_DirectAnswer(t *testing.T) {
	f := newFixture(t)
	_, err := f.cat.CreateItem(context.Background(), catalog.InventoryItem{Name: "Sunset Tee", SKU: "APP-SUN-1", Stock: 3, Threshold: 5})
	require.NoError(t, err)

	rec := f.do(t, http.MethodPost, "/api/ai", map[string]string{"text": "add 4 to sku-app-sun-1", "clientId": "c1"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(httpapi.TraceHeader))

	got := decode[assistant.Response](t, rec)
	assert.Equal(t, assistant.SourceDirect, got.Source)
	assert.True(t, got.Executed)
	assert.Equal(t, "✅ Added +4 to APP-SUN-1. New stock: 7", got.Text)
}

func TestAI_OfflineWithoutAgent(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/api/ai", map[string]string{"text": "what should I focus on this week?", "clientId": "c1"})
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[assistant.Response](t, rec)
	assert.Equal(t, assistant.SourceOffline, got.Source)
	assert.Equal(t, assistant.OfflineMessage, got.Text)
}

func TestAI_RateLimit(t *testing.T) {
	f := newFixture(t)
	now := time.Date(2025, 9, 16, 10, 0, 0, 0, time.UTC)
	f.limiter.SetClock(func() time.Time { return now })

	body := map[string]string{"text": "inventory summary", "clientId": "c1"}
	for i := 0; i < 60; i++ {
		rec := f.do(t, http.MethodPost, "/api/ai", body)
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i+1)
	}

	rec := f.do(t, http.MethodPost, "/api/ai", body)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, ratelimit.TooManyRequestsMessage, decode[map[string]string](t, rec)["error"])

	// Only the assistant endpoint is limited.
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/health", nil).Code)

	metricsRec := f.do(t, http.MethodGet, "/metrics", nil)
	assert.Contains(t, metricsRec.Body.String(), "easly_rate_limited_total 1")

	now = now.Add(5*time.Minute + time.Second)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/api/ai", body).Code)
}

func TestInventoryCRUD(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/inventory/api", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]catalog.InventoryItem](t, rec))

	rec = f.do(t, http.MethodPost, "/inventory/api", catalog.InventoryItem{Name: "Kraft Box", SKU: "pkg-box-1", Stock: 12, Category: catalog.CategoryPacking})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[actions.Result](t, rec)
	assert.True(t, created.Success)
	assert.Equal(t, "PKG-BOX-1", created.SKU)
	require.NotEmpty(t, created.ID)

	rec = f.do(t, http.MethodPut, "/inventory/api/"+created.ID, map[string]any{"stock": 20})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodGet, "/inventory/api", nil)
	items := decode[[]catalog.InventoryItem](t, rec)
	require.Len(t, items, 1)
	want := catalog.InventoryItem{Name: "Kraft Box", SKU: "PKG-BOX-1", Stock: 20, Price: 9.99, Threshold: 3, Category: catalog.CategoryPacking, Status: "active"}
	if diff := cmp.Diff(want, items[0], cmpopts.IgnoreFields(catalog.InventoryItem{}, "ID", "DateAdded")); diff != "" {
		t.Fatalf("item mismatch (-want +got):\n%s", diff)
	}

	rec = f.do(t, http.MethodDelete, "/inventory/api/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodDelete, "/inventory/api/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	entries, err := f.db.GetAuditLog(context.Background(), 10)
	require.NoError(t, err)
	var restWrites int
	for _, e := range entries {
		if e.Actor == "rest" {
			restWrites++
		}
	}
	assert.Equal(t, 3, restWrites)

	raw, err := f.db.Sessions().Get(context.Background(), "rest")
	require.NoError(t, err)
	assert.Nil(t, raw, "REST writes do not create a session")
}

func TestInventoryCreate_AppliesDefaults(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/inventory/api", map[string]any{"name": "Black Hoodie", "stock": 40})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	res := decode[actions.Result](t, rec)
	assert.True(t, res.Success)
	assert.True(t, strings.HasPrefix(res.SKU, "APP-BLACK-HOODIE-"), res.SKU)
	assert.Contains(t, res.Message, "(Defaults applied: SKU "+res.SKU+", $35.00, category Apparel, threshold 4)")

	it, err := f.cat.Item(context.Background(), res.ID)
	require.NoError(t, err)
	assert.Equal(t, 35.0, it.Price)
	assert.Equal(t, 4, it.Threshold)
	assert.Equal(t, "Apparel", it.Category)

	rec = f.do(t, http.MethodPost, "/inventory/api", map[string]any{"name": "Sticker Sheet", "sku": "stk-1", "price": 0, "threshold": 0})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	explicit, err := f.cat.ItemBySKU(context.Background(), "STK-1")
	require.NoError(t, err)
	assert.Zero(t, explicit.Price, "an explicit zero price is kept")
	assert.Zero(t, explicit.Threshold)
}

func TestInventoryCreate_RequiresName(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/inventory/api", map[string]any{"sku": "gen-1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	res := decode[actions.Result](t, rec)
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "name")
}

func TestOrders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, name := range []string{"Ana", "Ben", "Cleo"} {
		_, err := f.cat.CreateOrder(ctx, catalog.OrderInput{CustomerName: name, Product: "Sunset Tee", Quantity: 1})
		require.NoError(t, err)
	}

	rec := f.do(t, http.MethodGet, "/orders/api", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]catalog.Order](t, rec), 3)

	rec = f.do(t, http.MethodGet, "/orders/api?limit=2", nil)
	assert.Len(t, decode[[]catalog.Order](t, rec), 2)

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/orders/api?limit=x", nil).Code)
}

func TestHealthAndStatus(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode[map[string]any](t, rec)["status"])

	rec = f.do(t, http.MethodGet, "/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	st := decode[map[string]any](t, rec)
	assert.Equal(t, "ok", st["database"])
	assert.Equal(t, []any{"gemini", "local"}, st["providers"])
	assert.Equal(t, true, st["ai_enabled"])

	degraded := newFixture(t, func(d *httpapi.Deps) { d.DB = deadDB{} })
	rec = degraded.do(t, http.MethodGet, "/status", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "degraded", decode[map[string]any](t, rec)["status"])
}

func TestUploadsAreServed(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.WriteFile(filepath.Join(f.uploads, "upload-1.png"), []byte("png-bytes"), 0o644))

	rec := f.do(t, http.MethodGet, "/images/uploads/upload-1.png", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "png-bytes", strings.TrimSpace(rec.Body.String()))
}

func TestTraceHeaderIsEchoed(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(httpapi.TraceHeader, "t_fromcaller")
	rec := httptest.NewRecorder()
	f.srv.ServeHTTP(rec, req)
	assert.Equal(t, "t_fromcaller", rec.Header().Get(httpapi.TraceHeader))
}
