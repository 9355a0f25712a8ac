// Package scope keeps the assistant on shop-admin topics. Classify decides
// whether a request belongs to the domain before any model sees it, and
// IsFabricatedReport catches model output that pretends to be a live report.
package scope

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Verdict is the outcome of Classify.
type Verdict int

const (
	// Unknown matched neither list. Callers treat it as in scope.
	Unknown Verdict = iota
	InScope
	OutOfScope
)

func (v Verdict) String() string {
	switch v {
	case InScope:
		return "in_scope"
	case OutOfScope:
		return "out_of_scope"
	default:
		return "unknown"
	}
}

// OutOfScopeMessage is the reply for requests the filter rejects.
const OutOfScopeMessage = "I can only help with your shop: inventory, orders, materials, packaging, products and designs. Try something like \"inventory summary\" or \"add 10 black t-shirts\"."

// RedirectMessage replaces model output that imitates a live report.
const RedirectMessage = `I can pull live numbers from your database. Ask for "inventory summary" or "order status", or specify an item name/SKU (e.g., "how many black shirts do we have?").`

var fabricatedReport = regexp.MustCompile(`(?i)(Inventory Summary|Orders Overview|Total SKUs|Units in stock|Low stock items|Out of stock|Top pending orders|Pending:|Processing:|Delivered:)`)

// IsFabricatedReport reports whether model text contains report headers that
// may only come from live data.
func IsFabricatedReport(text string) bool {
	return fabricatedReport.MatchString(text)
}

// Keywords is the on-disk shape of the keyword lists.
type Keywords struct {
	Allow []string `yaml:"allow"`
	Block []string `yaml:"block"`
}

//go:embed defaults.yaml
var defaultKeywords []byte

// Filter classifies request text against compiled keyword lists.
type Filter struct {
	allow *regexp.Regexp
	block *regexp.Regexp
}

// Default returns the filter built from the embedded keyword lists.
func Default() *Filter {
	f, err := Parse(defaultKeywords)
	if err != nil {
		panic(fmt.Sprintf("scope: embedded keywords: %v", err))
	}
	return f
}

// Load reads keyword lists from a YAML file. An empty path returns Default.
func Load(path string) (*Filter, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("scope: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse builds a Filter from a YAML document.
func Parse(data []byte) (*Filter, error) {
	var kw Keywords
	if err := yaml.Unmarshal(data, &kw); err != nil {
		return nil, fmt.Errorf("scope: parse keywords: %w", err)
	}
	return New(kw)
}

// New compiles kw into a Filter. The allow list must not be empty.
func New(kw Keywords) (*Filter, error) {
	if len(kw.Allow) == 0 {
		return nil, errors.New("scope: allow list is empty")
	}
	f := &Filter{allow: compile(kw.Allow)}
	if len(kw.Block) > 0 {
		f.block = compile(kw.Block)
	}
	return f, nil
}

func compile(words []string) *regexp.Regexp {
	quoted := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.TrimSpace(strings.ToLower(w))
		if w == "" {
			continue
		}
		quoted = append(quoted, regexp.QuoteMeta(w))
	}
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)(?:e?s)?\b`)
}

// Classify returns InScope when any allowed keyword appears, OutOfScope when
// only blocked keywords appear, and Unknown otherwise.
func (f *Filter) Classify(text string) Verdict {
	if f.allow.MatchString(text) {
		return InScope
	}
	if f.block != nil && f.block.MatchString(text) {
		return OutOfScope
	}
	return Unknown
}

// AllowAll returns a Filter that classifies every message as in scope.
func AllowAll() *Filter {
	return &Filter{allow: regexp.MustCompile(``)}
}

// Allowed reports whether text may proceed to normal processing.
func (f *Filter) Allowed(text string) bool {
	return f.Classify(text) != OutOfScope
}
