package store

import (
	"cmp"
	"encoding/json"
	"slices"
	"strings"
	"time"
)

const (
	rankMissing = iota
	rankNumber
	rankTime
	rankString
)

// SortDocuments orders docs by the given field, descending. Documents with an equal
// (or missing) value keep their relative order. Value ranks follow Firestore:
// missing < number < timestamp < string.
func SortDocuments(docs []Document, field string) {
	slices.SortStableFunc(docs, func(a, b Document) int {
		return compareValues(b.Data[field], a.Data[field])
	})
}

func compareValues(a, b any) int {
	rankA, timeA, numA, strA := orderValue(a)
	rankB, timeB, numB, strB := orderValue(b)
	if rankA != rankB {
		return cmp.Compare(rankA, rankB)
	}

	switch rankA {
	case rankNumber:
		return cmp.Compare(numA, numB)
	case rankTime:
		return timeA.Compare(timeB)
	case rankString:
		return strings.Compare(strA, strB)
	default:
		return 0
	}
}

func orderValue(v any) (int, time.Time, float64, string) {
	switch val := v.(type) {
	case nil:
		return rankMissing, time.Time{}, 0, ""
	case time.Time:
		return rankTime, val, 0, ""
	case *time.Time:
		if val == nil {
			return rankMissing, time.Time{}, 0, ""
		}
		return rankTime, *val, 0, ""
	case interface{ AsTime() time.Time }:
		return rankTime, val.AsTime(), 0, ""
	case string:
		if t, err := time.Parse(time.RFC3339Nano, val); err == nil {
			return rankTime, t, 0, ""
		}
		return rankString, time.Time{}, 0, val
	case int:
		return rankNumber, time.Time{}, float64(val), ""
	case int64:
		return rankNumber, time.Time{}, float64(val), ""
	case float64:
		return rankNumber, time.Time{}, val, ""
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return rankString, time.Time{}, 0, val.String()
		}
		return rankNumber, time.Time{}, f, ""
	default:
		return rankMissing, time.Time{}, 0, ""
	}
}

// CopyData deep copies nested maps and slices of a document field map.
func CopyData(data map[string]any) map[string]any {
	if data == nil {
		return nil
	}
	copied := make(map[string]any, len(data))
	for k, v := range data {
		copied[k] = copyValue(v)
	}
	return copied
}

func copyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return CopyData(val)
	case []any:
		copied := make([]any, len(val))
		for i := range val {
			copied[i] = copyValue(val[i])
		}
		return copied
	default:
		return val
	}
}
