package resolution

import (
	"encoding/json"
	"math"
	"strings"
	"time"
)

// ============================================================================
// Property Similarity
// ============================================================================

// ValueSimilarity scores how alike two property values are, from 0 to 1.
// Strings that both parse as timestamps compare as dates, numbers by relative
// difference, arrays by overlap and objects by their common keys.
func ValueSimilarity(a, b interface{}) float64 {
	if af, aok := asFloat(a); aok {
		if bf, bok := asFloat(b); bok {
			return NumberSimilarity(af, bf)
		}
		return 0
	}

	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		if !ok {
			return 0
		}
		if at, aok := parseDate(av); aok {
			if bt, bok := parseDate(bv); bok {
				return DateSimilarity(at, bt)
			}
		}
		if objA, aok := decodeObjectString(av); aok {
			if objB, bok := decodeObjectString(bv); bok {
				return ValueSimilarity(objA, objB)
			}
		}
		return StringSimilarity(av, bv)
	case bool:
		if bv, ok := b.(bool); ok && av == bv {
			return 1
		}
		return 0
	case time.Time:
		if bv, ok := b.(time.Time); ok {
			return DateSimilarity(av, bv)
		}
		return 0
	case []interface{}:
		if bv, ok := b.([]interface{}); ok {
			return ArraySimilarity(av, bv)
		}
		return 0
	case map[string]interface{}:
		if bv, ok := b.(map[string]interface{}); ok {
			return objectSimilarity(av, bv)
		}
		return 0
	}

	if a == b {
		return 1
	}
	return 0
}

// StringSimilarity scores two strings by normalized Levenshtein distance,
// with a containment shortcut: a string containing the other scores at least
// 0.7.
func StringSimilarity(a, b string) float64 {
	s1 := strings.ToLower(strings.TrimSpace(a))
	s2 := strings.ToLower(strings.TrimSpace(b))

	if s1 == s2 {
		return 1
	}
	if s1 == "" || s2 == "" {
		return 0
	}

	if strings.Contains(s1, s2) || strings.Contains(s2, s1) {
		containment := float64(min(len(s1), len(s2))) / float64(max(len(s1), len(s2)))
		return math.Max(0.7, containment)
	}

	distance := levenshtein(s1, s2)
	return 1 - float64(distance)/float64(max(len(s1), len(s2)))
}

// NumberSimilarity scores two numbers by their relative difference.
func NumberSimilarity(a, b float64) float64 {
	maxAbs := math.Max(math.Abs(a), math.Abs(b))
	if maxAbs == 0 {
		return 1
	}
	return 1 - math.Abs(a-b)/maxAbs
}

// DateSimilarity buckets two dates by how far apart they are: under a day
// 0.9, under a week 0.7, under a month 0.5, otherwise 0.1.
func DateSimilarity(a, b time.Time) float64 {
	if a.Equal(b) {
		return 1
	}
	diffDays := math.Abs(a.Sub(b).Hours()) / 24
	switch {
	case diffDays < 1:
		return 0.9
	case diffDays < 7:
		return 0.7
	case diffDays < 30:
		return 0.5
	default:
		return 0.1
	}
}

// ArraySimilarity is the Jaccard overlap of two arrays, counting elements
// with similarity above 0.8 as shared.
func ArraySimilarity(a, b []interface{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	common := 0
	for _, itemA := range a {
		for _, itemB := range b {
			if ValueSimilarity(itemA, itemB) > 0.8 {
				common++
				break
			}
		}
	}
	return float64(common) / float64(len(a)+len(b)-common)
}

// objectSimilarity averages the similarity of values under common keys.
// JSON-encoded object strings are decoded first.
func objectSimilarity(a, b map[string]interface{}) float64 {
	total := 0.0
	common := 0
	for key, valueA := range a {
		valueB, ok := b[key]
		if !ok {
			continue
		}
		common++
		total += ValueSimilarity(valueA, valueB)
	}
	if common == 0 {
		return 0
	}
	return total / float64(common)
}

// decodeObjectString decodes a JSON object stored as a string property, the
// form nested maps take in the graph database.
func decodeObjectString(value interface{}) (interface{}, bool) {
	s, ok := value.(string)
	if !ok || len(s) == 0 {
		return nil, false
	}
	if s[0] != '{' && s[0] != '[' {
		return nil, false
	}
	var decoded interface{}
	if err := json.Unmarshal([]byte(s), &decoded); err != nil {
		return nil, false
	}
	return decoded, true
}

func levenshtein(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, min(curr[j-1]+1, prev[j-1]+cost))
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func parseDate(s string) (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

func asFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}
