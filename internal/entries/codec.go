package entries

import (
	"fmt"
	"math"

	log "github.com/sirupsen/logrus"
)

// Document field names.
const (
	FieldDate        = "date"
	FieldCreatedAt   = "createdAt"
	FieldWeight      = "weight"
	FieldDescription = "description"
	FieldDuration    = "duration"
	FieldTitle       = "title"
	FieldContent     = "content"
)

// Codec translates between a typed record and the store's field map.
// The id never travels inside the field map.
type Codec[T Entry] interface {
	Kind() Kind
	Encode(record T) map[string]any
	Decode(id string, data map[string]any) T
}

type WeightCodec struct{}

func (WeightCodec) Kind() Kind { return KindWeight }

func (WeightCodec) Encode(record WeightEntry) map[string]any {
	return map[string]any{
		FieldDate:   record.Date,
		FieldWeight: record.Weight,
	}
}

func (WeightCodec) Decode(id string, data map[string]any) WeightEntry {
	weight, ok := toFloat64(data[FieldWeight])
	if !ok && data[FieldWeight] != nil {
		log.Debugf("weight entry %s: cannot decode weight [%T]", id, data[FieldWeight])
	}
	return WeightEntry{
		ID:     id,
		Date:   DecodeTime(data[FieldDate]),
		Weight: weight,
	}
}

type ExerciseCodec struct{}

func (ExerciseCodec) Kind() Kind { return KindExercise }

// Encode always writes the duration field, so an update can clear it.
func (ExerciseCodec) Encode(record ExerciseEntry) map[string]any {
	var duration any
	if record.Duration != nil {
		duration = int64(*record.Duration)
	}
	return map[string]any{
		FieldDate:        record.Date,
		FieldDescription: record.Description,
		FieldDuration:    duration,
	}
}

func (ExerciseCodec) Decode(id string, data map[string]any) ExerciseEntry {
	entry := ExerciseEntry{
		ID:          id,
		Date:        DecodeTime(data[FieldDate]),
		Description: toString(data[FieldDescription]),
	}
	if minutes, ok := toFloat64(data[FieldDuration]); ok && minutes <= math.MaxInt32 && minutes >= math.MinInt32 {
		duration := int(minutes)
		entry.Duration = &duration
	}
	return entry
}

type JournalCodec struct{}

func (JournalCodec) Kind() Kind { return KindJournal }

func (JournalCodec) Encode(record JournalEntry) map[string]any {
	return map[string]any{
		FieldDate:    record.Date,
		FieldTitle:   record.Title,
		FieldContent: record.Content,
	}
}

func (JournalCodec) Decode(id string, data map[string]any) JournalEntry {
	return JournalEntry{
		ID:      id,
		Date:    DecodeTime(data[FieldDate]),
		Title:   toString(data[FieldTitle]),
		Content: toString(data[FieldContent]),
	}
}

func toString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case fmt.Stringer:
		return s.String()
	default:
		return fmt.Sprint(s)
	}
}
