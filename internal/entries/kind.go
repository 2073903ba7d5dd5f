package entries

import (
	"fmt"
	"strings"
)

type Kind string

const (
	KindWeight   Kind = "weight"
	KindExercise Kind = "exercise"
	KindJournal  Kind = "journal"
)

// Kinds lists every entry kind in a fixed order.
var Kinds = []Kind{KindWeight, KindExercise, KindJournal}

const (
	CollectionWeight   = "weightEntries"
	CollectionExercise = "exerciseEntries"
	CollectionJournal  = "journalEntries"
)

func ParseKind(s string) (Kind, error) {
	kind := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !kind.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
	return kind, nil
}

func (k Kind) String() string {
	return string(k)
}

func (k Kind) IsValid() bool {
	switch k {
	case KindWeight, KindExercise, KindJournal:
		return true
	default:
		return false
	}
}

// Collection is the store collection holding entries of this kind.
func (k Kind) Collection() string {
	switch k {
	case KindWeight:
		return CollectionWeight
	case KindExercise:
		return CollectionExercise
	case KindJournal:
		return CollectionJournal
	default:
		return ""
	}
}
