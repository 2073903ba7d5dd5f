package tracker

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/2beens/bodylog/internal/entries"
)

const maxRequestBodyBytes = 1 << 20

// The date is decoded loosely: RFC 3339, a plain yyyy-mm-dd day or epoch millis.
type weightRequest struct {
	Date   any     `json:"date"`
	Weight float64 `json:"weight"`
}

type exerciseRequest struct {
	Date        any    `json:"date"`
	Description string `json:"description"`
	Duration    *int   `json:"duration"`
}

type journalRequest struct {
	Date    any    `json:"date"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// decodeEntry reads the request body into the entry of the given kind and validates it.
func decodeEntry(kind entries.Kind, id string, body io.Reader) (entries.Entry, error) {
	dec := json.NewDecoder(io.LimitReader(body, maxRequestBodyBytes))
	dec.UseNumber()

	var entry entries.Entry
	switch kind {
	case entries.KindWeight:
		var req weightRequest
		if err := dec.Decode(&req); err != nil {
			return nil, fmt.Errorf("%w: %s", entries.ErrInvalidEntry, err)
		}
		entry = entries.WeightEntry{ID: id, Date: entries.DecodeTime(req.Date), Weight: req.Weight}
	case entries.KindExercise:
		var req exerciseRequest
		if err := dec.Decode(&req); err != nil {
			return nil, fmt.Errorf("%w: %s", entries.ErrInvalidEntry, err)
		}
		entry = entries.ExerciseEntry{
			ID:          id,
			Date:        entries.DecodeTime(req.Date),
			Description: strings.TrimSpace(req.Description),
			Duration:    req.Duration,
		}
	case entries.KindJournal:
		var req journalRequest
		if err := dec.Decode(&req); err != nil {
			return nil, fmt.Errorf("%w: %s", entries.ErrInvalidEntry, err)
		}
		entry = entries.JournalEntry{
			ID:      id,
			Date:    entries.DecodeTime(req.Date),
			Title:   strings.TrimSpace(req.Title),
			Content: req.Content,
		}
	default:
		return nil, fmt.Errorf("%w: %q", entries.ErrUnknownKind, kind)
	}

	if err := entry.Validate(); err != nil {
		return nil, err
	}
	return entry, nil
}
