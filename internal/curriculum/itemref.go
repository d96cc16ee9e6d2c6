// Package curriculum defines the ordered item-reference model that courses
// are composed of. A reference is persisted as a "{kind}-{id}" string so a
// single ordered list can interleave lessons and quizzes from the global
// library and a brand's private library; internally it is the ItemRef union.
package curriculum

import (
	"errors"
	"fmt"
	"strings"
)

// Kind identifies what a curriculum entry points at and which tier it lives in.
type Kind string

const (
	KindLesson      Kind = "lesson"
	KindQuiz        Kind = "quiz"
	KindBrandLesson Kind = "brandLesson"
	KindBrandQuiz   Kind = "brandQuiz"
)

// ErrMalformedRef reports a reference string that does not follow the
// "{kind}-{id}" form or names an unknown kind.
var ErrMalformedRef = errors.New("malformed curriculum reference")

// ErrStaleRef reports a well-formed reference that no longer resolves to a
// live item. Readers skip these; the cleanup pass removes them.
var ErrStaleRef = errors.New("stale curriculum reference")

// Valid reports whether k is one of the four reference kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindLesson, KindQuiz, KindBrandLesson, KindBrandQuiz:
		return true
	}
	return false
}

// BrandScoped reports whether the kind belongs to a brand's private library.
func (k Kind) BrandScoped() bool {
	return k == KindBrandLesson || k == KindBrandQuiz
}

// IsQuiz reports whether the kind points at a quiz in either tier.
func (k Kind) IsQuiz() bool {
	return k == KindQuiz || k == KindBrandQuiz
}

// ItemRef is the internal form of one curriculum entry.
type ItemRef struct {
	Kind Kind
	ID   string
}

// String renders the persisted "{kind}-{id}" form. This is the wire format
// shared with the course player and dashboards; do not change it.
func (r ItemRef) String() string {
	return string(r.Kind) + "-" + r.ID
}

// Parse decodes a persisted reference string. The kind never contains a
// hyphen, so the split is on the first one; item IDs may contain hyphens.
func Parse(s string) (ItemRef, error) {
	kind, id, ok := strings.Cut(s, "-")
	if !ok || id == "" {
		return ItemRef{}, fmt.Errorf("%w: %q", ErrMalformedRef, s)
	}
	k := Kind(kind)
	if !k.Valid() {
		return ItemRef{}, fmt.Errorf("%w: unknown kind in %q", ErrMalformedRef, s)
	}
	return ItemRef{Kind: k, ID: id}, nil
}
