// Package catalog loads the niche registry and the agent catalog. Both are
// static configuration: loaded once, never modified, and handed out as
// copies.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

type FieldType string

const (
	FieldString  FieldType = "string"
	FieldNumber  FieldType = "number"
	FieldBoolean FieldType = "boolean"
)

// Route names a local chain the orchestrator can dispatch to.
type Route string

const (
	RouteNone            Route = ""
	RouteIntent          Route = "intent"
	RouteUnifiedPipeline Route = "unified_pipeline"
)

// Field is one extractable attribute of a niche.
type Field struct {
	Name       string    `yaml:"name" json:"name"`
	Label      string    `yaml:"label" json:"label"`
	Type       FieldType `yaml:"type" json:"type"`
	Required   bool      `yaml:"required" json:"required"`
	Searchable bool      `yaml:"searchable" json:"searchable"`
}

// Niche is a vertical market with its own field set. Inactive niches stay in
// the registry but are never offered to the interpreter.
type Niche struct {
	ID          string  `yaml:"id" json:"id"`
	Name        string  `yaml:"name" json:"name"`
	Description string  `yaml:"description" json:"description"`
	Active      bool    `yaml:"active" json:"active"`
	Fields      []Field `yaml:"fields" json:"fields"`
}

// UnmarshalYAML defaults active to true when the key is absent.
func (n *Niche) UnmarshalYAML(value *yaml.Node) error {
	type plain Niche
	if err := value.Decode((*plain)(n)); err != nil {
		return err
	}
	var raw struct {
		Active *bool `yaml:"active"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	n.Active = raw.Active == nil || *raw.Active
	return nil
}

// Agent is one of the conceptual sub-agents the orchestrator reports on.
type Agent struct {
	ID    string `yaml:"id" json:"id"`
	Name  string `yaml:"name" json:"name"`
	Role  string `yaml:"role" json:"role"`
	Route Route  `yaml:"route,omitempty" json:"route,omitempty"`
}

type document struct {
	Niches []Niche `yaml:"niches"`
	Agents []Agent `yaml:"agents"`
}

type Catalog struct {
	niches      []Niche
	nicheIndex  map[string]int
	agents      []Agent
	agentByName map[string]int
	agentByID   map[string]int
}

// Default returns the catalog compiled into the binary.
func Default() (*Catalog, error) {
	return Load(defaultCatalog)
}

// LoadFile reads a catalog from a YAML file.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Load(data)
}

// Load parses and validates a YAML catalog.
func Load(data []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return build(doc)
}

func build(doc document) (*Catalog, error) {
	if len(doc.Niches) == 0 {
		return nil, errors.New("catalog: no niches defined")
	}

	c := &Catalog{
		nicheIndex:  make(map[string]int, len(doc.Niches)),
		agentByName: make(map[string]int, len(doc.Agents)),
		agentByID:   make(map[string]int, len(doc.Agents)),
	}

	fieldTypes := make(map[string]FieldType)
	active := 0
	for _, n := range doc.Niches {
		if n.ID == "" {
			return nil, errors.New("catalog: niche without id")
		}
		if _, dup := c.nicheIndex[n.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate niche %q", n.ID)
		}
		if len(n.Fields) == 0 {
			return nil, fmt.Errorf("catalog: niche %q has no fields", n.ID)
		}
		seen := make(map[string]bool, len(n.Fields))
		for _, f := range n.Fields {
			if f.Name == "" {
				return nil, fmt.Errorf("catalog: niche %q has a field without name", n.ID)
			}
			if seen[f.Name] {
				return nil, fmt.Errorf("catalog: niche %q declares %q twice", n.ID, f.Name)
			}
			seen[f.Name] = true
			switch f.Type {
			case FieldString, FieldNumber, FieldBoolean:
			default:
				return nil, fmt.Errorf("catalog: niche %q field %q has unknown type %q", n.ID, f.Name, f.Type)
			}
			// extracted_data is one schema across niches, so a name has one type.
			if t, ok := fieldTypes[f.Name]; ok && t != f.Type {
				return nil, fmt.Errorf("catalog: niche %q field %q is %s but another niche declares it %s", n.ID, f.Name, f.Type, t)
			}
			fieldTypes[f.Name] = f.Type
		}
		if n.Active {
			active++
		}
		c.nicheIndex[n.ID] = len(c.niches)
		c.niches = append(c.niches, cloneNiche(n))
	}

	if active == 0 {
		return nil, errors.New("catalog: no active niches")
	}

	agentIDs := make(map[string]bool, len(doc.Agents))
	for _, a := range doc.Agents {
		if a.ID == "" || strings.TrimSpace(a.Name) == "" {
			return nil, errors.New("catalog: agent requires id and name")
		}
		if agentIDs[a.ID] {
			return nil, fmt.Errorf("catalog: duplicate agent id %q", a.ID)
		}
		if _, dup := c.agentByName[a.Name]; dup {
			return nil, fmt.Errorf("catalog: duplicate agent name %q", a.Name)
		}
		switch a.Route {
		case RouteNone, RouteIntent, RouteUnifiedPipeline:
		default:
			return nil, fmt.Errorf("catalog: agent %q has unknown route %q", a.ID, a.Route)
		}
		agentIDs[a.ID] = true
		c.agentByName[a.Name] = len(c.agents)
		c.agentByID[a.ID] = len(c.agents)
		c.agents = append(c.agents, a)
	}

	return c, nil
}

// Niche returns the niche with the given id.
func (c *Catalog) Niche(id string) (Niche, bool) {
	i, ok := c.nicheIndex[id]
	if !ok {
		return Niche{}, false
	}
	return cloneNiche(c.niches[i]), true
}

// Niches returns every niche in declaration order.
func (c *Catalog) Niches() []Niche {
	out := make([]Niche, len(c.niches))
	for i, n := range c.niches {
		out[i] = cloneNiche(n)
	}
	return out
}

func (c *Catalog) NicheIDs() []string {
	ids := make([]string, len(c.niches))
	for i, n := range c.niches {
		ids[i] = n.ID
	}
	return ids
}

// ActiveNiches returns the niches the interpreter may classify into, in
// declaration order.
func (c *Catalog) ActiveNiches() []Niche {
	var out []Niche
	for _, n := range c.niches {
		if n.Active {
			out = append(out, cloneNiche(n))
		}
	}
	return out
}

func (c *Catalog) ActiveNicheIDs() []string {
	var ids []string
	for _, n := range c.niches {
		if n.Active {
			ids = append(ids, n.ID)
		}
	}
	return ids
}

// Agents returns every agent in declaration order.
func (c *Catalog) Agents() []Agent {
	return append([]Agent(nil), c.agents...)
}

func (c *Catalog) AgentByName(name string) (Agent, bool) {
	i, ok := c.agentByName[name]
	if !ok {
		return Agent{}, false
	}
	return c.agents[i], true
}

// Agent returns the agent with the given id.
func (c *Catalog) Agent(id string) (Agent, bool) {
	i, ok := c.agentByID[id]
	if !ok {
		return Agent{}, false
	}
	return c.agents[i], true
}

func (c *Catalog) AgentNames() []string {
	names := make([]string, len(c.agents))
	for i, a := range c.agents {
		names[i] = a.Name
	}
	return names
}

func cloneNiche(n Niche) Niche {
	n.Fields = append([]Field(nil), n.Fields...)
	return n
}
