package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/shopeasly/easly/common/version"
	"github.com/shopeasly/easly/internal/easly/actions"
	"github.com/shopeasly/easly/internal/easly/assistant"
	"github.com/shopeasly/easly/internal/easly/catalog"
	"github.com/shopeasly/easly/internal/easly/observability"
	"github.com/shopeasly/easly/internal/easly/ratelimit"
)

// restActor is the audit actor for writes made through the REST endpoints.
const restActor = "rest"

type aiRequest struct {
	Text            string `json:"text"`
	ClientID        string `json:"clientId"`
	ImageAttachment string `json:"imageAttachment,omitempty"`
}

func (s *Server) handleAI(w http.ResponseWriter, r *http.Request) {
	var req aiRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "Missing text")
		return
	}
	clientID := strings.TrimSpace(req.ClientID)
	if clientID == "" {
		clientID = ratelimit.ClientIP(r)
	}

	resp, err := s.deps.Assistant.Handle(r.Context(), assistant.Request{
		ClientID:   clientID,
		Text:       req.Text,
		Attachment: req.ImageAttachment,
	})
	switch {
	case errors.Is(err, assistant.ErrEmptyText):
		writeError(w, http.StatusBadRequest, "Missing text")
	case err != nil:
		observability.WithTrace(r.Context()).Error("ai request failed", "client", clientID, "err", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	default:
		writeJSON(w, http.StatusOK, resp)
	}
}

// --- inventory ---

func (s *Server) listInventory(w http.ResponseWriter, r *http.Request) {
	items, err := s.deps.Catalog.Inventory(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if items == nil {
		items = []catalog.InventoryItem{}
	}
	writeJSON(w, http.StatusOK, items)
}

// inventoryRequest is a create body. Price and threshold are pointers so an
// omitted value gets the same heuristic default as chat-created items.
type inventoryRequest struct {
	catalog.InventoryItem
	Price     *float64 `json:"price"`
	Threshold *int     `json:"threshold"`
}

func (s *Server) createInventory(w http.ResponseWriter, r *http.Request) {
	var req inventoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	it, applied, err := s.deps.Catalog.DraftItem(r.Context(), catalog.ItemDraft{
		Name:      req.Name,
		Stock:     req.Stock,
		Price:     req.Price,
		Threshold: req.Threshold,
		Category:  req.Category,
		SKU:       req.SKU,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if req.Status != "" {
		it.Status = req.Status
	}
	it.Description = req.Description
	it.Materials = req.Materials
	it.PackagingID = req.PackagingID
	it.Dimensions = req.Dimensions
	it.Unit = req.Unit
	it.ImageURL = req.ImageURL
	it.Color = req.Color
	it.NinjaTransferLink = req.NinjaTransferLink
	it.DateAdded = req.DateAdded

	res := s.deps.Executor.ExecuteAs(r.Context(), restActor, actions.NewCreateInventory(it))
	if !res.Success {
		writeJSON(w, http.StatusBadRequest, res)
		return
	}
	if applied.Any() {
		res.Message += " " + applied.Describe(it)
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) updateInventory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var fields map[string]any
	if err := decodeJSON(w, r, &fields); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	delete(fields, "id")
	it, err := s.deps.Catalog.Item(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.execute(w, r, http.StatusOK, actions.NewUpdateFields(it.ID, it.Label(), fields))
}

func (s *Server) deleteInventory(w http.ResponseWriter, r *http.Request) {
	it, err := s.deps.Catalog.Item(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.execute(w, r, http.StatusOK, actions.NewDeleteInventory(it.ID, it.SKU))
}

// execute runs a through the executor so REST writes are validated and
// audited like assistant writes. A failed action is a client error.
func (s *Server) execute(w http.ResponseWriter, r *http.Request, okCode int, a actions.Action) {
	res := s.deps.Executor.ExecuteAs(r.Context(), restActor, a)
	if !res.Success {
		writeJSON(w, http.StatusBadRequest, res)
		return
	}
	writeJSON(w, okCode, res)
}

// --- orders ---

func (s *Server) listOrders(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	orders, err := s.deps.Catalog.Orders(r.Context(), limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if orders == nil {
		orders = []catalog.Order{}
	}
	writeJSON(w, http.StatusOK, orders)
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	var nf *catalog.NotFoundError
	var ve *catalog.ValidationError
	switch {
	case errors.As(err, &nf):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &ve):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		observability.WithTrace(r.Context()).Error("request failed", "path", r.URL.Path, "err", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// --- health ---

type healthResponse struct {
	Status string `json:"status"`
	version.Build
}

type statusResponse struct {
	Status string `json:"status"`
	version.Build
	StartedAt  string   `json:"started_at"`
	UptimeSecs float64  `json:"uptime_seconds"`
	Database   string   `json:"database"`
	Providers  []string `json:"providers"`
	AIEnabled  bool     `json:"ai_enabled"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Build: version.Current()})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		Status:     "ok",
		Build:      version.Current(),
		StartedAt:  s.startedAt.UTC().Format(time.RFC3339),
		UptimeSecs: time.Since(s.startedAt).Seconds(),
		Database:   "unknown",
		Providers:  s.deps.Providers,
		AIEnabled:  len(s.deps.Providers) > 0,
	}
	if resp.Providers == nil {
		resp.Providers = []string{}
	}
	code := http.StatusOK
	if s.deps.DB != nil {
		if err := s.deps.DB.Ping(r.Context()); err != nil {
			resp.Status, resp.Database = "degraded", "error"
			code = http.StatusServiceUnavailable
		} else {
			resp.Database = "ok"
		}
	}
	writeJSON(w, code, resp)
}
