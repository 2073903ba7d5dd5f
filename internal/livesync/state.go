package livesync

import (
	"github.com/2beens/bodylog/internal/entries"
)

// Phase is the lifecycle of one kind's live subscription.
type Phase string

const (
	PhaseUninitialized Phase = "uninitialized"
	PhaseSubscribing   Phase = "subscribing"
	PhaseLive          Phase = "live"
	PhaseUnsubscribed  Phase = "unsubscribed"
	PhaseError         Phase = "error"
)

const (
	MsgLoadFailed = "Failed to load data"
)

// State is a read-only copy of everything the synchronizer knows.
// Every list is ordered newest first.
type State struct {
	Weight   []entries.WeightEntry   `json:"weight"`
	Exercise []entries.ExerciseEntry `json:"exercise"`
	Journal  []entries.JournalEntry  `json:"journal"`
	Loading  bool                    `json:"loading"`
	Error    *string                 `json:"error"` // latest user facing error, nil when none
	Fatal    bool                    `json:"fatal"`
	Phases   map[entries.Kind]Phase  `json:"phases"`
}

// EntriesOf returns the list of the given kind as generic entries.
func (s State) EntriesOf(kind entries.Kind) []entries.Entry {
	var list []entries.Entry
	switch kind {
	case entries.KindWeight:
		list = toEntries(s.Weight)
	case entries.KindExercise:
		list = toEntries(s.Exercise)
	case entries.KindJournal:
		list = toEntries(s.Journal)
	}
	if list == nil {
		list = []entries.Entry{}
	}
	return list
}

func toEntries[T entries.Entry](records []T) []entries.Entry {
	list := make([]entries.Entry, 0, len(records))
	for _, r := range records {
		list = append(list, r)
	}
	return list
}
