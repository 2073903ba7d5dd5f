package entries

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	// javascript Date.prototype.toString(), without the trailing zone name
	"Mon Jan 02 2006 15:04:05 GMT-0700",
	time.RFC1123Z,
	time.RFC1123,
}

// DecodeTime converts a stored date value to a time.Time. Unknown or malformed
// values decode to the zero time, so a single bad document never fails a whole list.
func DecodeTime(raw any) time.Time {
	switch v := raw.(type) {
	case nil:
		return time.Time{}
	case time.Time:
		return v
	case *time.Time:
		if v == nil {
			return time.Time{}
		}
		return *v
	case interface{ AsTime() time.Time }:
		return v.AsTime()
	case string:
		return parseTimeString(v)
	case int:
		return time.UnixMilli(int64(v))
	case int64:
		return time.UnixMilli(v)
	case float64:
		return fromFloatMillis(v)
	case json.Number:
		if ms, err := v.Int64(); err == nil {
			return time.UnixMilli(ms)
		}
		if ms, err := v.Float64(); err == nil {
			return fromFloatMillis(ms)
		}
	case map[string]any:
		if t, ok := fromSecondsMap(v); ok {
			return t
		}
	}

	log.Debugf("cannot decode time from [%T] %v", raw, raw)
	return time.Time{}
}

func parseTimeString(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}

	// "Sun Jun 15 2025 00:00:00 GMT+0200 (Central European Summer Time)"
	if i := strings.Index(s, " ("); i > 0 {
		s = s[:i]
	}

	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}

	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms)
	}

	log.Debugf("cannot parse time string %q", s)
	return time.Time{}
}

func fromFloatMillis(ms float64) time.Time {
	if math.IsNaN(ms) || math.IsInf(ms, 0) {
		return time.Time{}
	}
	return time.UnixMicro(int64(ms * 1000))
}

// fromSecondsMap handles {seconds, nanoseconds} maps, with or without the leading
// underscore Firestore uses in its JSON exports.
func fromSecondsMap(m map[string]any) (time.Time, bool) {
	secRaw, ok := m["seconds"]
	if !ok {
		secRaw, ok = m["_seconds"]
	}
	if !ok {
		return time.Time{}, false
	}

	sec, ok := toInt64(secRaw)
	if !ok {
		return time.Time{}, false
	}

	nsecRaw, ok := m["nanoseconds"]
	if !ok {
		nsecRaw = m["_nanoseconds"]
	}
	nsec, _ := toInt64(nsecRaw)

	return time.Unix(sec, nsec), true
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return int64(n), true
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		if f, err := n.Float64(); err == nil {
			return int64(f), true
		}
	}
	return 0, false
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		if f, err := n.Float64(); err == nil {
			return f, true
		}
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
			return f, true
		}
	}
	return 0, false
}
