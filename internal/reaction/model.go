// Package reaction provides the emoji counters attached to a comment and the
// counter that keeps them in sync with the remote store.
package reaction

import (
	"fmt"

	"github.com/evcraddock/commentbox/internal/apperr"
)

// Kind names one of the four counters.
type Kind string

// Valid reaction kinds.
const (
	Like  Kind = "like"
	Love  Kind = "love"
	Laugh Kind = "laugh"
	Angry Kind = "angry"
)

// Kinds lists every kind in display order.
var Kinds = []Kind{Like, Love, Laugh, Angry}

// Emoji returns the glyph shown for k.
func (k Kind) Emoji() string {
	switch k {
	case Like:
		return "👍"
	case Love:
		return "❤️"
	case Laugh:
		return "😂"
	case Angry:
		return "😡"
	default:
		return "?"
	}
}

// Valid reports whether k is one of the four kinds.
func (k Kind) Valid() bool {
	switch k {
	case Like, Love, Laugh, Angry:
		return true
	}
	return false
}

// ParseKind validates s as a reaction kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.Valid() {
		return "", apperr.Invalid("kind", fmt.Sprintf("unknown reaction %q", s))
	}
	return k, nil
}

// Set holds the four counters. All keys are always present on the wire;
// a key missing from a decoded document reads as 0.
type Set struct {
	Like  int64 `json:"like"`
	Love  int64 `json:"love"`
	Laugh int64 `json:"laugh"`
	Angry int64 `json:"angry"`
}

// Get returns the counter for k.
func (s Set) Get(k Kind) int64 {
	switch k {
	case Like:
		return s.Like
	case Love:
		return s.Love
	case Laugh:
		return s.Laugh
	case Angry:
		return s.Angry
	}
	return 0
}

// Total is the sum of all counters.
func (s Set) Total() int64 {
	return s.Like + s.Love + s.Laugh + s.Angry
}

// Increment returns a copy of s with the counter for k raised by one.
// Every other counter is unchanged.
func Increment(s Set, k Kind) (Set, error) {
	switch k {
	case Like:
		s.Like++
	case Love:
		s.Love++
	case Laugh:
		s.Laugh++
	case Angry:
		s.Angry++
	default:
		return s, apperr.Invalid("kind", fmt.Sprintf("unknown reaction %q", k))
	}
	return s, nil
}
