// Package catalog holds the ordered, immutable list of capabilities advertised
// to the model, with their parameter schemas and argument validation.
package catalog

import (
	"encoding/json"
	"fmt"
	"log/slog"

	invopop "github.com/invopop/jsonschema"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

const logPrefix = "catalog:catalog"

// Entry declares one capability: its description and a zero value of its argument struct.
type Entry struct {
	Capability  Capability
	Description string
	Arguments   interface{}
}

// Descriptor is a capability as advertised to the model.
type Descriptor struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

// Capability returns the typed capability of the descriptor.
func (d Descriptor) Capability() Capability { return Capability(d.Name) }

// Catalog is safe for concurrent use; nothing mutates it after New.
type Catalog struct {
	descriptors []Descriptor
	index       map[string]int
	validators  map[string]*jsonschema.Schema
}

// New builds a catalog from entries, reflecting and compiling each argument schema.
func New(entries []Entry) (*Catalog, error) {
	c := &Catalog{
		descriptors: make([]Descriptor, 0, len(entries)),
		index:       make(map[string]int, len(entries)),
		validators:  make(map[string]*jsonschema.Schema, len(entries)),
	}
	for _, e := range entries {
		name := string(e.Capability)
		if _, ok := Parse(name); !ok {
			return nil, fmt.Errorf("%s - unknown capability %q", logPrefix, name)
		}
		if _, dup := c.index[name]; dup {
			return nil, fmt.Errorf("%s - duplicate capability %q", logPrefix, name)
		}
		if e.Arguments == nil {
			return nil, fmt.Errorf("%s - capability %q has no argument type", logPrefix, name)
		}

		raw, params, err := reflectParameters(e.Arguments)
		if err != nil {
			return nil, fmt.Errorf("%s - schema for %q: %w", logPrefix, name, err)
		}
		compiled, err := jsonschema.CompileString(name+".json", raw)
		if err != nil {
			return nil, fmt.Errorf("%s - compile schema for %q: %w", logPrefix, name, err)
		}

		c.index[name] = len(c.descriptors)
		c.descriptors = append(c.descriptors, Descriptor{
			Name:        name,
			Description: e.Description,
			Parameters:  params,
		})
		c.validators[name] = compiled
	}
	slog.Debug(fmt.Sprintf("%s - built catalog with %d capabilities", logPrefix, len(c.descriptors)))
	return c, nil
}

// List returns the descriptors in catalog order. The slice is a copy.
func (c *Catalog) List() []Descriptor {
	out := make([]Descriptor, len(c.descriptors))
	copy(out, c.descriptors)
	return out
}

// Lookup returns the descriptor for name.
func (c *Catalog) Lookup(name string) (Descriptor, bool) {
	i, ok := c.index[name]
	if !ok {
		return Descriptor{}, false
	}
	return c.descriptors[i], true
}

// Has reports whether name is advertised.
func (c *Catalog) Has(name string) bool {
	_, ok := c.index[name]
	return ok
}

// Len returns the number of capabilities.
func (c *Catalog) Len() int { return len(c.descriptors) }

// Validate checks args against the parameter schema of name.
func (c *Catalog) Validate(name string, args json.RawMessage) error {
	schema, ok := c.validators[name]
	if !ok {
		return fmt.Errorf("unknown capability %q", name)
	}
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}
	var v interface{}
	if err := json.Unmarshal(args, &v); err != nil {
		return fmt.Errorf("arguments are not valid JSON: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("arguments do not match schema: %w", err)
	}
	return nil
}

// reflectParameters returns the schema of args as a JSON string and as a generic object
// suitable for provider tool definitions.
func reflectParameters(args interface{}) (string, map[string]interface{}, error) {
	reflector := invopop.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	schema := reflector.Reflect(args)
	// Provider tool schemas are plain objects without meta keywords.
	schema.Version = ""
	schema.ID = ""

	b, err := json.Marshal(schema)
	if err != nil {
		return "", nil, err
	}
	var params map[string]interface{}
	if err := json.Unmarshal(b, &params); err != nil {
		return "", nil, err
	}
	if _, ok := params["properties"]; !ok {
		params["properties"] = map[string]interface{}{}
	}
	if _, ok := params["required"]; !ok {
		params["required"] = []string{}
	}
	return string(b), params, nil
}
