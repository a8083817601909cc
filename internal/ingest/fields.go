package ingest

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/pbaille/ods/internal/domain"
)

// Record is one decoded row keyed by column or field name
type Record map[string]any

// Candidate field names, highest priority first
var (
	TextKeys  = []string{"textos", "text", "Texto", "Comentario"}
	LabelKeys = []string{"labels", "ODS", "Clasificacion"}
)

// NormalizeRecord extracts a TrainingRecord from a decoded row.
// The first candidate key holding a truthy value wins; a label of 0 under
// "labels" therefore falls through to "ODS".
func NormalizeRecord(rec Record) domain.TrainingRecord {
	var out domain.TrainingRecord

	if v, ok := firstTruthy(rec, TextKeys); ok {
		out.Textos = norm.NFC.String(textValue(v))
	}
	if v, ok := firstTruthy(rec, LabelKeys); ok {
		out.Labels = coerceLabel(v)
	}
	return out
}

func firstTruthy(rec Record, keys []string) (any, bool) {
	for _, k := range keys {
		if v, ok := rec[k]; ok && truthy(v) {
			return v, true
		}
	}
	return nil, false
}

// truthy treats absent, null, "", 0, NaN and false as empty
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case bool:
		return t
	case json.Number:
		f, err := t.Float64()
		return err != nil || f != 0
	case float64:
		return t != 0 && !math.IsNaN(t)
	case int:
		return t != 0
	case int64:
		return t != 0
	default:
		return true
	}
}

func textValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// coerceLabel parses a leading integer the way a lenient form field would:
// "3" -> 3, " 12abc" -> 12, 3.9 -> 3, "abc" -> 0. Negative values map to 0.
func coerceLabel(v any) int {
	var s string
	switch t := v.(type) {
	case string:
		s = t
	case json.Number:
		// a JSON number is already a value, "1e1" is 10
		f, err := t.Float64()
		if err != nil {
			return 0
		}
		s = strconv.FormatFloat(f, 'f', -1, 64)
	case float64:
		s = strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		s = strconv.Itoa(t)
	case int64:
		s = strconv.FormatInt(t, 10)
	default:
		return 0
	}

	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	negative := false
	if s != "" && (s[0] == '+' || s[0] == '-') {
		negative = s[0] == '-'
		s = s[1:]
	}

	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 || negative {
		return 0
	}

	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return n
}
