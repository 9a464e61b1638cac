package suites

import (
	"fmt"

	"github.com/copyleftdev/uiverify/internal/scenario"
)

// Registry resolves scenario names to definitions. Loaded scenarios
// override built-ins of the same name.
type Registry struct {
	byName map[string]*scenario.Scenario
	order  []string
}

// NewRegistry starts from the built-ins and adds the given scenarios.
func NewRegistry(extra ...*scenario.Scenario) (*Registry, error) {
	r := &Registry{byName: make(map[string]*scenario.Scenario)}
	for _, sc := range Builtin() {
		r.put(sc)
	}
	for _, sc := range extra {
		if err := sc.Validate(); err != nil {
			return nil, err
		}
		r.put(sc)
	}
	return r, nil
}

// LoadRegistry builds a registry from the built-ins plus every scenario file under paths.
func LoadRegistry(paths []string) (*Registry, error) {
	var extra []*scenario.Scenario
	for _, p := range paths {
		loaded, err := scenario.LoadPath(p)
		if err != nil {
			return nil, fmt.Errorf("load scenarios from %s: %w", p, err)
		}
		extra = append(extra, loaded...)
	}
	return NewRegistry(extra...)
}

func (r *Registry) put(sc *scenario.Scenario) {
	if _, exists := r.byName[sc.Name]; !exists {
		r.order = append(r.order, sc.Name)
	}
	r.byName[sc.Name] = sc
}

// Lookup returns a copy of the named scenario.
func (r *Registry) Lookup(name string) (*scenario.Scenario, error) {
	sc, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", scenario.ErrUnknownScenario, name)
	}
	return clone(sc), nil
}

// Names lists scenario names, built-ins first, in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// All returns copies of every scenario in registration order.
func (r *Registry) All() []*scenario.Scenario {
	out := make([]*scenario.Scenario, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, clone(r.byName[name]))
	}
	return out
}

func clone(sc *scenario.Scenario) *scenario.Scenario {
	c := *sc
	c.Steps = append([]scenario.Step(nil), sc.Steps...)
	c.Routes = make([]scenario.Route, len(sc.Routes))
	for i, r := range sc.Routes {
		c.Routes[i] = r
		if r.Headers != nil {
			c.Routes[i].Headers = make(map[string]string, len(r.Headers))
			for k, v := range r.Headers {
				c.Routes[i].Headers[k] = v
			}
		}
	}
	return &c
}
