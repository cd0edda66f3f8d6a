package problems

import (
	"fmt"
	"sort"

	"github.com/san-kum/equilib/internal/loadstep"
	"github.com/san-kum/equilib/internal/objective"
	"github.com/san-kum/equilib/internal/rootfind"
)

const (
	LoadIndex  = 0
	StateIndex = 1
)

// Problem is a load-stepped problem over objective.Params.
type Problem = loadstep.Problem[objective.Params]

// Options tune a problem at construction. Zero values keep the defaults.
type Options struct {
	Elements     int  `yaml:"elements,omitempty" json:"elements,omitempty"`
	Precondition bool `yaml:"precondition,omitempty" json:"precondition,omitempty"`
	// ReturnMap overrides the rtsafe settings of path-dependent problems
	// when MaxIters is positive.
	ReturnMap rootfind.Settings `yaml:"-" json:"-"`
}

type entry struct {
	description string
	build       func(Options) Problem
}

type Registry struct {
	problems map[string]entry
}

func NewRegistry() *Registry {
	r := &Registry{problems: make(map[string]entry)}

	r.problems["hyperelastic_bar"] = entry{
		description: "tapered neo-Hookean bar, prescribed end displacement",
		build: func(o Options) Problem {
			b := NewHyperelasticBar(o.Elements)
			b.Precondition = o.Precondition
			return b
		},
	}
	r.problems["plastic_bar"] = entry{
		description: "elastoplastic bar with Voce hardening, end force",
		build: func(o Options) Problem {
			b := NewPlasticBar(o.Elements)
			b.Precondition = o.Precondition
			if o.ReturnMap.MaxIters > 0 {
				b.ReturnMap = o.ReturnMap
			}
			return b
		},
	}
	r.problems["shallow_arch"] = entry{
		description: "von Mises two-bar arch under apex load, snap-through",
		build: func(o Options) Problem {
			a := NewShallowArch()
			a.Precondition = o.Precondition
			return a
		},
	}
	return r
}

func (r *Registry) Get(name string, opts Options) (Problem, error) {
	e, ok := r.problems[name]
	if !ok {
		return nil, fmt.Errorf("unknown problem: %s", name)
	}
	return e.build(opts), nil
}

func (r *Registry) Describe(name string) string {
	return r.problems[name].description
}

func (r *Registry) List() []string {
	names := make([]string, 0, len(r.problems))
	for name := range r.problems {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func withLoad(p objective.Params, load float64) objective.Params {
	return p.With(LoadIndex, load)
}

func precondOption(on bool) []objective.Option[objective.Params] {
	if !on {
		return nil
	}
	return []objective.Option[objective.Params]{objective.WithPreconditioner[objective.Params]()}
}
