package curriculum

import (
	"context"
	"errors"
	"fmt"
)

// ValidateList checks that every entry of a proposed curriculum is a
// well-formed reference and returns the decoded list in the same order.
// Ordering is owned by the caller (drag-and-drop in the editing surface);
// the composer only preserves it.
func ValidateList(refs []string) ([]ItemRef, error) {
	out := make([]ItemRef, 0, len(refs))
	for i, s := range refs {
		r, err := Parse(s)
		if err != nil {
			return nil, fmt.Errorf("curriculum entry %d: %w", i, err)
		}
		out = append(out, r)
	}
	return out, nil
}

// Contains reports whether ref appears in the list.
func Contains(refs []string, ref string) bool {
	for _, s := range refs {
		if s == ref {
			return true
		}
	}
	return false
}

// Remove returns the list with every occurrence of ref removed, preserving
// the order of the remaining entries. Removing an absent ref is a no-op, so
// a retried cleanup pass is safe.
func Remove(refs []string, ref string) []string {
	out := make([]string, 0, len(refs))
	for _, s := range refs {
		if s != ref {
			out = append(out, s)
		}
	}
	return out
}

// Resolver answers whether a reference points at a live (not soft-deleted)
// item. Implemented by the content repository.
type Resolver interface {
	ResolveItem(ctx context.Context, ref ItemRef) (bool, error)
}

// ResolveRef parses a persisted reference and checks that it points at a
// live item. The failure is ErrMalformedRef or ErrStaleRef; any other error
// is the resolver's.
func ResolveRef(ctx context.Context, s string, resolver Resolver) (ItemRef, error) {
	r, err := Parse(s)
	if err != nil {
		return ItemRef{}, err
	}
	ok, err := resolver.ResolveItem(ctx, r)
	if err != nil {
		return ItemRef{}, fmt.Errorf("resolve %q: %w", s, err)
	}
	if !ok {
		return ItemRef{}, fmt.Errorf("%w: %s", ErrStaleRef, s)
	}
	return r, nil
}

// Audit resolves every entry of a curriculum and returns the references that
// are malformed or dangling. It never repairs anything; cleanup owns that.
func Audit(ctx context.Context, refs []string, resolver Resolver) ([]string, error) {
	var dangling []string
	for _, s := range refs {
		_, err := ResolveRef(ctx, s, resolver)
		switch {
		case err == nil:
		case errors.Is(err, ErrMalformedRef), errors.Is(err, ErrStaleRef):
			dangling = append(dangling, s)
		default:
			return nil, err
		}
	}
	return dangling, nil
}
