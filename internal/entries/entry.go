package entries

import (
	"fmt"
	"math"
	"strings"
	"time"
)

type Entry interface {
	EntryKind() Kind
	EntryID() string
	EntryDate() time.Time
	Validate() error
}

var (
	_ Entry = WeightEntry{}
	_ Entry = ExerciseEntry{}
	_ Entry = JournalEntry{}
)

type WeightEntry struct {
	ID     string    `json:"id"`
	Date   time.Time `json:"date"`
	Weight float64   `json:"weight"` // kg
}

func (e WeightEntry) EntryKind() Kind      { return KindWeight }
func (e WeightEntry) EntryID() string      { return e.ID }
func (e WeightEntry) EntryDate() time.Time { return e.Date }

func (e WeightEntry) Validate() error {
	if e.Date.IsZero() {
		return fmt.Errorf("%w: date missing", ErrInvalidEntry)
	}
	if !(e.Weight > 0) || math.IsInf(e.Weight, 1) {
		return fmt.Errorf("%w: weight must be a positive number", ErrInvalidEntry)
	}
	return nil
}

type ExerciseEntry struct {
	ID          string    `json:"id"`
	Date        time.Time `json:"date"`
	Description string    `json:"description"`
	// Duration in minutes, nil when not recorded.
	Duration *int `json:"duration,omitempty"`
}

func (e ExerciseEntry) EntryKind() Kind      { return KindExercise }
func (e ExerciseEntry) EntryID() string      { return e.ID }
func (e ExerciseEntry) EntryDate() time.Time { return e.Date }

func (e ExerciseEntry) Validate() error {
	if e.Date.IsZero() {
		return fmt.Errorf("%w: date missing", ErrInvalidEntry)
	}
	if strings.TrimSpace(e.Description) == "" {
		return fmt.Errorf("%w: description missing", ErrInvalidEntry)
	}
	if e.Duration != nil && *e.Duration < 0 {
		return fmt.Errorf("%w: duration cannot be negative", ErrInvalidEntry)
	}
	return nil
}

type JournalEntry struct {
	ID      string    `json:"id"`
	Date    time.Time `json:"date"`
	Title   string    `json:"title,omitempty"`
	Content string    `json:"content"`
}

func (e JournalEntry) EntryKind() Kind      { return KindJournal }
func (e JournalEntry) EntryID() string      { return e.ID }
func (e JournalEntry) EntryDate() time.Time { return e.Date }

func (e JournalEntry) Validate() error {
	if e.Date.IsZero() {
		return fmt.Errorf("%w: date missing", ErrInvalidEntry)
	}
	if strings.TrimSpace(e.Content) == "" {
		return fmt.Errorf("%w: content missing", ErrInvalidEntry)
	}
	return nil
}
