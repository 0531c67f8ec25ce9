// Package cleaner prunes entries from a target tree that a reference tree
// no longer contains, limited to the nodes a selector reaches.
package cleaner

import (
	"errors"
	"fmt"

	"github.com/moamenhredeen/oasrec/internal/selector"
	"github.com/moamenhredeen/oasrec/internal/tree"
)

// ErrIncompatibleArrayCleanup is returned when an array cleanup selector
// reaches something other than a sequence
var ErrIncompatibleArrayCleanup = errors.New("array cleanup on non-sequence")

// CleanupField returns a copy of target without the selector-matched nodes
// whose path does not exist in reference. Only existence is compared.
// Emptied ancestors are kept.
func CleanupField(target, reference *tree.Node, sel selector.Selector) *tree.Node {
	out := target.Clone()
	matched := sel.MatchedPaths(out)
	var stale []tree.Path
	for _, p := range matched {
		if _, ok := reference.At(p); !ok {
			stale = append(stale, p)
		}
	}
	// last first, so earlier sequence indices stay valid
	for i := len(stale) - 1; i >= 0; i-- {
		out.DeleteAt(stale[i])
	}
	return out
}

// CleanupArray returns a copy of target in which every sequence reached by
// sel keeps only the elements that have an equivalent element in the
// reference sequence at the same path. Without compareKeys elements must
// be equal; with compareKeys only the listed keys are compared, and the
// kept element is retained whole. Order of kept elements is preserved.
//
// A sequence whose path is absent from reference is left as is.
func CleanupArray(target, reference *tree.Node, sel selector.Selector, compareKeys []string) (*tree.Node, error) {
	out := target.Clone()
	for _, p := range sel.MatchedPaths(out) {
		got, _ := out.At(p)
		if !got.IsSeq() {
			return nil, fmt.Errorf("%w: target %s is %s", ErrIncompatibleArrayCleanup, p, got.Kind)
		}
		ref, ok := reference.At(p)
		if !ok {
			continue
		}
		if !ref.IsSeq() {
			return nil, fmt.Errorf("%w: reference %s is %s", ErrIncompatibleArrayCleanup, p, ref.Kind)
		}
		kept := make([]*tree.Node, 0, len(got.Items))
		for _, item := range got.Items {
			if containsEquivalent(ref.Items, item, compareKeys) {
				kept = append(kept, item)
			}
		}
		got.Items = kept
	}
	return out, nil
}

func containsEquivalent(items []*tree.Node, want *tree.Node, compareKeys []string) bool {
	for _, item := range items {
		if Equivalent(item, want, compareKeys) {
			return true
		}
	}
	return false
}

// Equivalent compares a and b on compareKeys, or entirely when no keys are
// given or either side is not a map. A key missing on both sides matches.
func Equivalent(a, b *tree.Node, compareKeys []string) bool {
	if len(compareKeys) == 0 || !a.IsMap() || !b.IsMap() {
		return tree.Equal(a, b)
	}
	for _, k := range compareKeys {
		av, aok := a.Get(k)
		bv, bok := b.Get(k)
		if aok != bok {
			return false
		}
		if aok && !tree.Equal(av, bv) {
			return false
		}
	}
	return true
}
