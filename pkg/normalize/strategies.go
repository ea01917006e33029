package normalize

import "fmt"

// Strategy is the closed set of normalization scopes. It selects which
// sub-tensor's statistic governs the rescaling of a channel; the Method
// defines what is done with that statistic. The interface is sealed so the
// engine's dispatch stays exhaustive over these five variants.
type Strategy interface {
	fmt.Stringer
	isStrategy()
}

// Global computes one statistic over the entire channel.
type Global struct{}

func (Global) isStrategy()    {}
func (Global) String() string { return "global" }

// ZReference computes the statistic over the single z-stack Z and applies
// the derived transform to the whole channel, all z-stacks included.
type ZReference struct {
	Z int
}

func (ZReference) isStrategy() {}
func (s ZReference) String() string {
	return fmt.Sprintf("z-reference(%d)", s.Z)
}

// ZPerSlice normalizes every z-stack independently by its own statistic.
// Nothing leaks between z-stacks.
type ZPerSlice struct{}

func (ZPerSlice) isStrategy()    {}
func (ZPerSlice) String() string { return "z-per-slice" }

// TReference computes the statistic over the single timepoint T and applies
// the derived transform to the whole channel.
type TReference struct {
	T int
}

func (TReference) isStrategy() {}
func (s TReference) String() string {
	return fmt.Sprintf("t-reference(%d)", s.T)
}

// TPerSlice normalizes every timepoint independently. A timepoint's
// statistic is computed over its whole (Z, Y, X) block, so it affects all of
// that timepoint's z-stacks uniformly.
type TPerSlice struct{}

func (TPerSlice) isStrategy()    {}
func (TPerSlice) String() string { return "t-per-slice" }

// ParseStrategy resolves a strategy by name. zRef and tRef feed the
// reference variants and are ignored by the others.
func ParseStrategy(name string, zRef, tRef int) (Strategy, error) {
	switch name {
	case "global":
		return Global{}, nil
	case "zref", "z-reference":
		return ZReference{Z: zRef}, nil
	case "zslice", "z-per-slice":
		return ZPerSlice{}, nil
	case "tref", "t-reference":
		return TReference{T: tRef}, nil
	case "tslice", "t-per-slice":
		return TPerSlice{}, nil
	default:
		return nil, fmt.Errorf("unknown normalization strategy %q (global, zref, zslice, tref, tslice)", name)
	}
}
