// Package pipeline manages named sequences of atomic plane operations over a
// source slice, caching each labeled result and recording what was applied.
// Branches hold independent pipelines over the same source so alternative
// preprocessing routes can be compared side by side.
package pipeline

import (
	"fmt"

	"bioimagelab/pkg/ops"
	"bioimagelab/pkg/tensor"
)

// Step records one executed operation: the label the result was stored
// under, the operation kind and its parameters.
type Step struct {
	Label     string
	Operation string
	Params    map[string]any
}

// Pipeline applies operations to one source plane and keeps every labeled
// result. Operations always run against the original source, not the
// previous result; chaining is expressed by branching.
type Pipeline struct {
	source  *tensor.Plane[uint16]
	results map[string]*tensor.Plane[uint16]
	steps   []Step
}

// New builds a pipeline over a deep copy of source.
func New(source *tensor.Plane[uint16]) *Pipeline {
	return &Pipeline{
		source:  source.Clone(),
		results: make(map[string]*tensor.Plane[uint16]),
	}
}

// Run applies op to the source plane, stores the result under label
// (replacing any previous result with that label) and returns a deep copy.
func (p *Pipeline) Run(label string, op ops.Operation) *tensor.Plane[uint16] {
	result := op.Apply(p.source)
	p.results[label] = result
	p.steps = append(p.steps, Step{
		Label:     label,
		Operation: op.Name(),
		Params:    op.Params(),
	})
	return result.Clone()
}

// Result returns a deep copy of a labeled result.
func (p *Pipeline) Result(label string) (*tensor.Plane[uint16], bool) {
	r, ok := p.results[label]
	if !ok {
		return nil, false
	}
	return r.Clone(), true
}

// Steps returns the record of executed operations in order.
func (p *Pipeline) Steps() []Step {
	out := make([]Step, len(p.steps))
	copy(out, p.steps)
	return out
}

// Branches manages independent pipelines over one shared source plane.
type Branches struct {
	source   *tensor.Plane[uint16]
	branches map[string]*Pipeline
}

// NewBranches builds a branch manager over a deep copy of source.
func NewBranches(source *tensor.Plane[uint16]) *Branches {
	return &Branches{
		source:   source.Clone(),
		branches: make(map[string]*Pipeline),
	}
}

// Branch returns the named pipeline, creating it on first use.
func (b *Branches) Branch(name string) *Pipeline {
	if p, ok := b.branches[name]; ok {
		return p
	}
	p := New(b.source)
	b.branches[name] = p
	return p
}

// Run applies op on the named branch. The branch must already exist or is
// created implicitly by Branch semantics; label collisions overwrite as in
// Pipeline.Run.
func (b *Branches) Run(branch, label string, op ops.Operation) *tensor.Plane[uint16] {
	return b.Branch(branch).Run(label, op)
}

// Names lists the existing branches.
func (b *Branches) Names() []string {
	out := make([]string, 0, len(b.branches))
	for name := range b.branches {
		out = append(out, name)
	}
	return out
}

// Result fetches a labeled result from a named branch.
func (b *Branches) Result(branch, label string) (*tensor.Plane[uint16], error) {
	p, ok := b.branches[branch]
	if !ok {
		return nil, fmt.Errorf("unknown branch %q", branch)
	}
	r, ok := p.Result(label)
	if !ok {
		return nil, fmt.Errorf("branch %q has no result %q", branch, label)
	}
	return r, nil
}
