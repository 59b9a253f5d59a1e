package network

import (
	"fmt"
	"slices"
	"strings"
)

// CoreColors is the fiber color code in strand order. Cores 13-24 repeat the
// base sequence with a black tracer.
var CoreColors = []string{
	"Blue", "Orange", "Green", "Brown", "Slate", "White",
	"Red", "Black", "Yellow", "Violet", "Rose", "Aqua",
	"Blue-Black", "Orange-Black", "Green-Black", "Brown-Black", "Slate-Black", "White-Black",
	"Red-Black", "Black-White", "Yellow-Black", "Violet-Black", "Rose-Black", "Aqua-Black",
}

// CoreCounts are the cable sizes offered when drawing a new element.
var CoreCounts = []int{2, 4, 8, 12, 16, 24}

// SplitterRatios are the supported 1/N splitter types.
var SplitterRatios = []int{2, 4, 8, 16, 32}

var OltTypes = []string{"epon", "gpon"}

// coreOwner is the element whose children hold the core assignments for e.
func (e Element) coreOwner() Element {
	if e.Kind == KindLocalFiber && e.MainLocalFiber != nil {
		return *e.MainLocalFiber
	}
	return e
}

// Capacity is the number of cores children may claim.
func (e Element) Capacity() int {
	if e.TotalCore > 0 {
		return e.TotalCore
	}
	if e.Kind == KindSplitter {
		return e.SplitterLimit
	}
	return 0
}

// UnusedCoreColors lists the colors within capacity not yet claimed by a child.
func (e Element) UnusedCoreColors() []string {
	limit := min(e.Capacity(), len(CoreColors))
	if limit <= 0 {
		return []string{}
	}
	children := e.coreOwner().Children

	out := make([]string, 0, limit)
	for _, c := range CoreColors[:limit] {
		if slices.ContainsFunc(children, func(ch Child) bool { return strings.EqualFold(ch.Color, c) }) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// ValidateCoreColor checks that a new child may take color on e.
func (e Element) ValidateCoreColor(color string) error {
	owner := e.coreOwner()
	if len(owner.Children) >= e.Capacity() {
		return fmt.Errorf("all %d cores of %s are in use", e.Capacity(), e.Kind)
	}
	for _, c := range e.UnusedCoreColors() {
		if strings.EqualFold(c, color) {
			return nil
		}
	}
	return fmt.Errorf("core color %q is not available on %s", color, e.Kind)
}

// CheckFreeCore reports an error when e cannot take another child: its core
// records are inconsistent or every core is already claimed. An element with
// no known capacity is not checked.
func (e Element) CheckFreeCore() error {
	owner := e.coreOwner()
	if err := owner.ValidateChildren(); err != nil {
		return err
	}
	if c := e.Capacity(); c > 0 && len(owner.Children) >= c {
		return fmt.Errorf("all %d cores of %s are in use", c, e.Kind)
	}
	return nil
}

// ValidateChildren reports a violation of the per-element core invariants.
func (e Element) ValidateChildren() error {
	capacity := e.Capacity()
	if capacity > 0 && len(e.Children) > capacity {
		return fmt.Errorf("%d children exceed %d cores", len(e.Children), capacity)
	}
	seen := make(map[string]struct{}, len(e.Children))
	for _, ch := range e.Children {
		key := strings.ToLower(ch.Color)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			return fmt.Errorf("core color %q claimed twice", ch.Color)
		}
		seen[key] = struct{}{}
	}
	return nil
}
