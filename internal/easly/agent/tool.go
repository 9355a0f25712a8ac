package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Definition is the model-facing description of a tool. Parameters is a JSON
// Schema object for the tool's arguments.
type Definition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

// Tool is one entry of the agent's allow-listed catalog.
type Tool interface {
	Definition() Definition

	// Execute runs the tool for clientID with arguments that already
	// passed schema validation. The returned outcome must be JSON-encodable.
	Execute(ctx context.Context, clientID string, args map[string]any) (any, error)
}

// ErrUnknownTool is returned by Registry.Call for names outside the catalog.
var ErrUnknownTool = errors.New("agent: unknown tool")

// ArgumentError reports arguments rejected by a tool's schema.
type ArgumentError struct {
	Tool   string
	Detail string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("invalid arguments for %s: %s", e.Tool, e.Detail)
}

type entry struct {
	tool   Tool
	schema *jsonschema.Schema
}

// Registry holds the tool catalog in registration order. Populate it before
// serving requests; it is not safe to Register concurrently with lookups.
type Registry struct {
	tools map[string]entry
	order []string
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]entry)}
}

// Register adds t. It panics on a duplicate name or an invalid schema, both
// of which are programming errors.
func (r *Registry) Register(t Tool) {
	def := t.Definition()
	if _, dup := r.tools[def.Name]; dup {
		panic("agent: duplicate tool registration: " + def.Name)
	}
	schema, err := jsonschema.CompileString(def.Name+".json", string(def.Parameters))
	if err != nil {
		panic(fmt.Sprintf("agent: tool %s: invalid schema: %v", def.Name, err))
	}
	r.tools[def.Name] = entry{tool: t, schema: schema}
	r.order = append(r.order, def.Name)
}

// Has reports whether name is in the catalog.
func (r *Registry) Has(name string) bool {
	_, ok := r.tools[name]
	return ok
}

// Names returns tool names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Definitions returns tool definitions in registration order.
func (r *Registry) Definitions() []Definition {
	defs := make([]Definition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.tools[name].tool.Definition())
	}
	return defs
}

// Call validates args against the tool's schema and runs it.
func (r *Registry) Call(ctx context.Context, clientID, name string, args map[string]any) (any, error) {
	e, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	if args == nil {
		args = map[string]any{}
	}
	if err := e.schema.Validate(args); err != nil {
		return nil, &ArgumentError{Tool: name, Detail: describe(err)}
	}
	return e.tool.Execute(ctx, clientID, args)
}

// describe reduces a schema validation error to its first leaf cause.
func describe(err error) string {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return err.Error()
	}
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	loc := strings.TrimPrefix(ve.InstanceLocation, "/")
	if loc == "" {
		return ve.Message
	}
	return loc + ": " + ve.Message
}

// funcTool adapts a function to Tool.
type funcTool struct {
	def Definition
	fn  func(ctx context.Context, clientID string, args map[string]any) (any, error)
}

func (t funcTool) Definition() Definition { return t.def }

func (t funcTool) Execute(ctx context.Context, clientID string, args map[string]any) (any, error) {
	return t.fn(ctx, clientID, args)
}

// NewTool returns a Tool backed by fn. schema is the JSON Schema of the
// arguments.
func NewTool(name, description, schema string, fn func(ctx context.Context, clientID string, args map[string]any) (any, error)) Tool {
	return funcTool{
		def: Definition{Name: name, Description: description, Parameters: json.RawMessage(schema)},
		fn:  fn,
	}
}

// bind decodes validated arguments into a typed struct.
func bind(args map[string]any, out any) error {
	raw, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode arguments: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode arguments: %w", err)
	}
	return nil
}
