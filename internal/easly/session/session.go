// Package session keeps short-lived conversational state per client: a
// pending disambiguation choice, a product being assembled across turns, and
// the last inventory item or design the client touched.
//
// Sessions are stored whole behind a KV. Every write is a read-modify-write
// of the full record and the last write wins; two turns from the same client
// racing each other may drop one of their patches, but a reader never sees a
// half-written record.
package session

import (
	"context"
	"time"
)

// DefaultTTL is how long conversational state survives without a write.
const DefaultTTL = 10 * time.Minute

// ChoiceType identifies what a pending choice will be used for.
type ChoiceType string

const (
	ChoiceRestockByName       ChoiceType = "restock_by_name"
	ChoiceMaterialForProduct  ChoiceType = "material_for_product"
	ChoicePackagingForProduct ChoiceType = "packaging_for_product"
)

// Candidate is one option offered to the operator.
type Candidate struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	SKU   string `json:"sku"`
	Stock int    `json:"stock"`
}

// PendingChoice is an ambiguous reference awaiting the operator's pick.
// Candidates is never empty.
type PendingChoice struct {
	Type       ChoiceType  `json:"type"`
	Term       string      `json:"term,omitempty"`
	Candidates []Candidate `json:"candidates"`
	Delta      int         `json:"delta,omitempty"`
}

// DraftState is the product-creation sub-state.
type DraftState string

const (
	DraftAwaitingMaterials DraftState = "awaiting_materials"
	DraftAwaitingPackaging DraftState = "awaiting_packaging"
	DraftReady             DraftState = "ready"
)

// ProductDraft is a product being assembled across several turns. Materials
// are resolved in order; ResolvedMaterialIDs[i] belongs to MaterialTerms[i]
// and MaterialCursor is the index of the next unresolved term.
type ProductDraft struct {
	State               DraftState `json:"state"`
	Name                string     `json:"name"`
	Price               *float64   `json:"price,omitempty"`
	Quantity            int        `json:"quantity"`
	MaterialTerms       []string   `json:"materialTerms,omitempty"`
	ResolvedMaterialIDs []string   `json:"resolvedMaterialIds,omitempty"`
	MaterialCursor      int        `json:"materialCursor"`
	PackagingTerm       string     `json:"packagingTerm,omitempty"`
	PackagingID         string     `json:"packagingId,omitempty"`
	ImageURL            string     `json:"imageUrl,omitempty"`
}

// ItemRef points at the inventory item most recently created or edited.
type ItemRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	SKU  string `json:"sku"`
}

// Label returns the SKU, or the name when there is no SKU.
func (r ItemRef) Label() string {
	if r.SKU != "" {
		return r.SKU
	}
	return r.Name
}

// Design is the last generated design image.
type Design struct {
	URL     string `json:"url"`
	Subject string `json:"subject"`
}

// Session is the persisted record. ExpiresAt is epoch milliseconds.
type Session struct {
	ClientID             string         `json:"clientId"`
	PendingChoice        *PendingChoice `json:"pendingChoice,omitempty"`
	PendingCreateProduct *ProductDraft  `json:"pendingCreateProduct,omitempty"`
	LastInventory        *ItemRef       `json:"lastInventory,omitempty"`
	LastDesign           *Design        `json:"lastDesign,omitempty"`
	ExpiresAt            int64          `json:"expiresAt"`
	UpdatedAt            time.Time      `json:"updatedAt"`
}

// Patch lists the fields to overwrite. Nil fields are left untouched; use
// Clear to remove a field.
type Patch struct {
	PendingChoice        *PendingChoice
	PendingCreateProduct *ProductDraft
	LastInventory        *ItemRef
	LastDesign           *Design
}

// Key names a clearable session field.
type Key string

const (
	KeyPendingChoice        Key = "pendingChoice"
	KeyPendingCreateProduct Key = "pendingCreateProduct"
	KeyLastInventory        Key = "lastInventory"
	KeyLastDesign           Key = "lastDesign"
)

// KV stores opaque session records. Get returns (nil, nil) when the client
// has no record. Put replaces the whole record atomically.
type KV interface {
	Get(ctx context.Context, clientID string) ([]byte, error)
	Put(ctx context.Context, clientID string, data []byte, expiresAt time.Time) error
	Delete(ctx context.Context, clientID string) error
}
