package tool

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/xeipuuv/gojsonschema"

	contractx "github.com/tanpawarit/Chative-Callcenter-Agent/agent/contract"
)

const (
	RouteToSpecialist    = "route_to_specialist"
	GetUserInfo          = "get_user_info"
	GetAvailablePackages = "get_available_packages"
	ChangePackage        = "change_package"
	GetBillingInfo       = "get_billing_info"
	GetUsageStats        = "get_usage_stats"
	PayBill              = "pay_bill"

	ParamCustomerID = "customer_id"
	ParamSpecialist = "specialist"
)

//go:embed catalog.toml
var catalogRaw []byte

type Param struct {
	Name        string   `toml:"name"`
	Type        string   `toml:"type"`
	Description string   `toml:"description"`
	Required    bool     `toml:"required"`
	Enum        []string `toml:"enum"`
	Pattern     string   `toml:"pattern"`
	Minimum     *float64 `toml:"minimum"`
}

type Definition struct {
	Name        string  `toml:"name"`
	Description string  `toml:"description"`
	Params      []Param `toml:"params"`

	schema *gojsonschema.Schema
}

// Expects reports whether the tool declares the named parameter.
func (d Definition) Expects(name string) bool {
	_, ok := d.Param(name)
	return ok
}

func (d Definition) Param(name string) (Param, bool) {
	for _, p := range d.Params {
		if p.Name == name {
			return p, true
		}
	}
	return Param{}, false
}

// Schema is the compiled JSON schema of the parameter object.
func (d Definition) Schema() *gojsonschema.Schema {
	return d.schema
}

type Specialist struct {
	ID          string   `toml:"id"`
	Name        string   `toml:"name"`
	Description string   `toml:"description"`
	Tools       []string `toml:"tools"`
}

func (s Specialist) Allows(tool string) bool {
	for _, name := range s.Tools {
		if name == tool {
			return true
		}
	}
	return false
}

type catalog struct {
	RoutingTool string       `toml:"routing_tool"`
	Tools       []Definition `toml:"tools"`
	Specialists []Specialist `toml:"specialists"`
}

// Registry is the immutable tool and specialist catalog. It is safe to share
// between sessions.
type Registry struct {
	routingTool string
	tools       map[string]Definition
	toolOrder   []string
	specialists []Specialist
	byID        map[string]int
}

// LoadRegistry parses the embedded catalog.
func LoadRegistry() (*Registry, error) {
	return ParseRegistry(catalogRaw)
}

func MustLoadRegistry() *Registry {
	reg, err := LoadRegistry()
	if err != nil {
		panic(err)
	}
	return reg
}

func ParseRegistry(raw []byte) (*Registry, error) {
	var cat catalog
	if err := toml.Unmarshal(raw, &cat); err != nil {
		return nil, fmt.Errorf("%w: %v", contractx.ErrCatalog, err)
	}
	return newRegistry(cat)
}

func newRegistry(cat catalog) (*Registry, error) {
	reg := &Registry{
		routingTool: strings.TrimSpace(cat.RoutingTool),
		tools:       make(map[string]Definition, len(cat.Tools)),
		byID:        make(map[string]int, len(cat.Specialists)),
	}
	if reg.routingTool == "" {
		reg.routingTool = RouteToSpecialist
	}

	for _, def := range cat.Tools {
		def.Name = strings.TrimSpace(def.Name)
		if def.Name == "" {
			return nil, fmt.Errorf("%w: tool without name", contractx.ErrCatalog)
		}
		if _, dup := reg.tools[def.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate tool %q", contractx.ErrCatalog, def.Name)
		}
		compiled, err := compileSchema(def)
		if err != nil {
			return nil, fmt.Errorf("%w: tool %q: %v", contractx.ErrCatalog, def.Name, err)
		}
		def.schema = compiled
		reg.tools[def.Name] = def
		reg.toolOrder = append(reg.toolOrder, def.Name)
	}

	routing, ok := reg.tools[reg.routingTool]
	if !ok {
		return nil, fmt.Errorf("%w: routing tool %q is not defined", contractx.ErrCatalog, reg.routingTool)
	}
	if routing.Expects(ParamCustomerID) {
		return nil, fmt.Errorf("%w: routing tool must not take %s", contractx.ErrCatalog, ParamCustomerID)
	}

	for _, spec := range cat.Specialists {
		spec.ID = strings.TrimSpace(spec.ID)
		if spec.ID == "" {
			return nil, fmt.Errorf("%w: specialist without id", contractx.ErrCatalog)
		}
		if _, dup := reg.byID[spec.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate specialist %q", contractx.ErrCatalog, spec.ID)
		}
		for _, name := range spec.Tools {
			if _, ok := reg.tools[name]; !ok {
				return nil, fmt.Errorf("%w: specialist %q references unknown tool %q", contractx.ErrCatalog, spec.ID, name)
			}
		}
		if !spec.Allows(reg.routingTool) {
			return nil, fmt.Errorf("%w: specialist %q must allow %s", contractx.ErrCatalog, spec.ID, reg.routingTool)
		}
		spec.Description = strings.TrimSpace(spec.Description)
		reg.byID[spec.ID] = len(reg.specialists)
		reg.specialists = append(reg.specialists, spec)
	}
	if len(reg.specialists) == 0 {
		return nil, fmt.Errorf("%w: no specialists defined", contractx.ErrCatalog)
	}

	return reg, nil
}

func (r *Registry) RoutingTool() string {
	return r.routingTool
}

func (r *Registry) Tool(name string) (Definition, bool) {
	def, ok := r.tools[name]
	return def, ok
}

func (r *Registry) Specialist(id string) (Specialist, bool) {
	idx, ok := r.byID[id]
	if !ok {
		return Specialist{}, false
	}
	return r.specialists[idx], true
}

// HasSpecialist satisfies state.SpecialistCatalog.
func (r *Registry) HasSpecialist(id string) bool {
	_, ok := r.byID[id]
	return ok
}

// Specialists returns the catalog order. The slice is a copy.
func (r *Registry) Specialists() []Specialist {
	out := make([]Specialist, len(r.specialists))
	copy(out, r.specialists)
	return out
}

// ToolsFor returns the definitions a specialist may call, in its declared order.
func (r *Registry) ToolsFor(specialistID string) []Definition {
	spec, ok := r.Specialist(specialistID)
	if !ok {
		return nil
	}
	defs := make([]Definition, 0, len(spec.Tools))
	for _, name := range spec.Tools {
		defs = append(defs, r.tools[name])
	}
	return defs
}

func compileSchema(def Definition) (*gojsonschema.Schema, error) {
	properties := make(map[string]any, len(def.Params))
	required := []string{}

	for _, p := range def.Params {
		switch p.Type {
		case "string", "number", "integer", "boolean":
		default:
			return nil, fmt.Errorf("parameter %q has unsupported type %q", p.Name, p.Type)
		}

		prop := map[string]any{
			"type":        p.Type,
			"description": p.Description,
		}
		if len(p.Enum) > 0 {
			enum := make([]any, len(p.Enum))
			for i, v := range p.Enum {
				enum[i] = v
			}
			prop["enum"] = enum
		}
		if p.Pattern != "" {
			prop["pattern"] = p.Pattern
		}
		if p.Minimum != nil {
			prop["minimum"] = *p.Minimum
		}
		properties[p.Name] = prop

		if p.Required {
			required = append(required, p.Name)
		}
	}

	schemaMap := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schemaMap["required"] = required
	}

	return gojsonschema.NewSchema(gojsonschema.NewGoLoader(schemaMap))
}
