package widget

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/GriffinCanCode/EcoAssist/backend/internal/shared/utils"
)

//go:embed schema.json
var schemaDocument []byte

const schemaURL = "https://schemas.ecoassist.local/widget.schema.json"

// Limits bound untrusted JSON before schema validation
type Limits struct {
	MaxBytes int
	MaxDepth int
}

// DefaultLimits returns the limits used for agent supplied widgets
func DefaultLimits() Limits {
	return Limits{
		MaxBytes: utils.MaxWidgetSize,
		MaxDepth: utils.MaxWidgetDepth,
	}
}

// Registry validates untrusted payloads against the closed widget union.
// Compiled schemas are immutable, so a Registry is safe for concurrent use.
type Registry struct {
	variants map[Type]*jsonschema.Schema
	limits   Limits
}

var (
	defaultRegistry *Registry
	defaultOnce     sync.Once
)

// Default returns the process-wide registry with default limits
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry = MustNewRegistry(DefaultLimits())
	})
	return defaultRegistry
}

// NewRegistry compiles the embedded widget schemas
func NewRegistry(limits Limits) (*Registry, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	c.AssertFormat = true
	if err := c.AddResource(schemaURL, bytes.NewReader(schemaDocument)); err != nil {
		return nil, fmt.Errorf("widget schema load failed: %w", err)
	}

	variants := make(map[Type]*jsonschema.Schema, len(Types))
	for _, t := range Types {
		compiled, err := c.Compile(schemaURL + "#/$defs/" + string(t))
		if err != nil {
			return nil, fmt.Errorf("widget schema compile failed for %s: %w", t, err)
		}
		variants[t] = compiled
	}

	if limits.MaxBytes <= 0 {
		limits.MaxBytes = utils.MaxWidgetSize
	}
	if limits.MaxDepth <= 0 {
		limits.MaxDepth = utils.MaxWidgetDepth
	}

	return &Registry{variants: variants, limits: limits}, nil
}

// MustNewRegistry is like NewRegistry but panics on a broken embedded schema
func MustNewRegistry(limits Limits) *Registry {
	r, err := NewRegistry(limits)
	if err != nil {
		panic(err)
	}
	return r
}

// Schema returns the JSON Schema advertised to the agent as tool parameters
func (r *Registry) Schema() json.RawMessage {
	out := make([]byte, len(schemaDocument))
	copy(out, schemaDocument)
	return out
}

// Validate checks raw against the widget union and returns the typed payload.
// raw may be a decoded JSON value, JSON bytes, or any marshalable Go value.
// A failure is always a *ValidationError.
func (r *Registry) Validate(raw any) (Payload, error) {
	return r.validate(raw, "")
}

// ValidateAs is Validate restricted to a single variant
func (r *Registry) ValidateAs(raw any, want Type) (Payload, error) {
	return r.validate(raw, want)
}

// ValidateJSON enforces size and syntax limits before validating data
func (r *Registry) ValidateJSON(data []byte) (Payload, error) {
	if err := utils.NewJSONSizeValidator(r.limits.MaxBytes).ValidateJSON(data); err != nil {
		return nil, &ValidationError{Reason: err.Error()}
	}
	return r.Validate(data)
}

func (r *Registry) validate(raw any, want Type) (payload Payload, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			payload = nil
			err = &ValidationError{Type: want, Reason: fmt.Sprintf("unexpected validation failure: %v", rec)}
		}
	}()

	doc, verr := r.normalize(raw)
	if verr != nil {
		return nil, verr
	}

	obj, ok := doc.(map[string]any)
	if !ok {
		return nil, &ValidationError{Reason: "expected object, got " + jsonKind(doc)}
	}

	t, verr := discriminator(obj)
	if verr != nil {
		return nil, verr
	}
	if want != "" && t != want {
		return nil, &ValidationError{Type: t, Path: "/type", Reason: fmt.Sprintf("expected %q", want)}
	}

	if err := r.variants[t].Validate(obj); err != nil {
		return nil, fromSchemaError(t, err)
	}

	applyDefaults(t, obj)
	return decode(t, obj)
}

// normalize converts raw into the value model the schema validator expects
func (r *Registry) normalize(raw any) (any, *ValidationError) {
	var data []byte
	switch v := raw.(type) {
	case nil:
		return nil, &ValidationError{Reason: "payload is empty"}
	case []byte:
		data = v
	case json.RawMessage:
		data = v
	default:
		encoded, err := sonic.ConfigStd.Marshal(v)
		if err != nil {
			return nil, &ValidationError{Reason: "payload is not JSON-encodable: " + err.Error()}
		}
		data = encoded
	}

	if err := utils.NewJSONSizeValidator(r.limits.MaxBytes).ValidateSize(data); err != nil {
		return nil, &ValidationError{Reason: err.Error()}
	}

	var doc any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, &ValidationError{Reason: "malformed JSON: " + err.Error()}
	}
	if err := utils.ValidateJSONDepth(doc, r.limits.MaxDepth); err != nil {
		return nil, &ValidationError{Reason: err.Error()}
	}
	return doc, nil
}

func discriminator(obj map[string]any) (Type, *ValidationError) {
	value, ok := obj["type"]
	if !ok {
		return "", &ValidationError{Path: "/type", Reason: "missing widget type"}
	}
	s, ok := value.(string)
	if !ok {
		return "", &ValidationError{Path: "/type", Reason: "widget type must be a string, got " + jsonKind(value)}
	}
	t := Type(s)
	if !t.Known() {
		return "", &ValidationError{Path: "/type", Reason: fmt.Sprintf("unknown widget type %q", s)}
	}
	return t, nil
}

// fromSchemaError reports the leaf cause with the smallest instance location
// so that the same input always yields the same error
func fromSchemaError(t Type, err error) *ValidationError {
	serr, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return &ValidationError{Type: t, Reason: err.Error()}
	}

	var leaves []*jsonschema.ValidationError
	collectLeaves(serr, &leaves)
	sort.SliceStable(leaves, func(i, j int) bool {
		if leaves[i].InstanceLocation != leaves[j].InstanceLocation {
			return leaves[i].InstanceLocation < leaves[j].InstanceLocation
		}
		return leaves[i].KeywordLocation < leaves[j].KeywordLocation
	})

	leaf := leaves[0]
	return &ValidationError{Type: t, Path: leaf.InstanceLocation, Reason: leaf.Message}
}

func collectLeaves(err *jsonschema.ValidationError, out *[]*jsonschema.ValidationError) {
	if len(err.Causes) == 0 {
		*out = append(*out, err)
		return
	}
	for _, cause := range err.Causes {
		collectLeaves(cause, out)
	}
}

// applyDefaults fills the optional fields that carry a default value
func applyDefaults(t Type, obj map[string]any) {
	switch t {
	case TypeTransactionTable:
		for _, chip := range objects(obj["filterChips"]) {
			setDefault(chip, "selected", false)
		}
	case TypeTicketForm:
		setDefault(obj, "submitLabel", "Submit")
		for _, field := range objects(obj["fields"]) {
			switch field["kind"] {
			case string(FieldSelect), string(FieldTextarea):
				setDefault(field, "required", true)
			case string(FieldAttachment):
				setDefault(field, "maxItems", json.Number("3"))
			}
		}
	case TypeConfirmationDialog:
		setDefault(obj, "severity", string(SeverityInfo))
		setDefault(obj, "confirmLabel", "Confirm")
		setDefault(obj, "cancelLabel", "Cancel")
	}
}

func setDefault(obj map[string]any, key string, value any) {
	if _, ok := obj[key]; !ok {
		obj[key] = value
	}
}

func objects(v any) []map[string]any {
	items, _ := v.([]any)
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

func decode(t Type, obj map[string]any) (Payload, error) {
	var payload Payload
	switch t {
	case TypeBalanceCard:
		payload = &BalanceCard{}
	case TypeTransactionTable:
		payload = &TransactionTable{}
	case TypeTicketForm:
		payload = &TicketForm{}
	case TypeConfirmationDialog:
		payload = &ConfirmationDialog{}
	case TypeTicketStatusBoard:
		payload = &TicketStatusBoard{}
	}

	data, err := sonic.ConfigStd.Marshal(obj)
	if err != nil {
		return nil, &ValidationError{Type: t, Reason: "re-encode failed: " + err.Error()}
	}
	if err := sonic.ConfigStd.Unmarshal(data, payload); err != nil {
		if verr, ok := AsValidationError(err); ok {
			return nil, verr
		}
		return nil, &ValidationError{Type: t, Reason: "decode failed: " + err.Error()}
	}
	return payload, nil
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case json.Number, float64:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return strings.ToLower(fmt.Sprintf("%T", v))
	}
}
