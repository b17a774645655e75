package database

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NormalizeIdentity canonicalizes an email used as a correlation key.
func NormalizeIdentity(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// RemoveDiacritics removes diacritical marks from a string (e.g., "João" -> "Joao").
func RemoveDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// NormalizeName normalizes a member name for comparison (lowercase, no
// diacritics, collapsed whitespace).
func NormalizeName(name string) string {
	name = RemoveDiacritics(name)
	name = strings.ToLower(name)
	return strings.Join(strings.Fields(name), " ")
}

// DecodeDescriptor parses a face descriptor from its JSON form into a flat
// vector. Enrollment clients have historically sent descriptors either as a
// plain array or as an index-keyed object ({"0": ..., "1": ...}); both are
// accepted here so nothing past this boundary has to branch on
// representation.
func DecodeDescriptor(raw json.RawMessage) ([]float32, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty face descriptor")
	}

	var arr []float32
	if err := json.Unmarshal(raw, &arr); err == nil {
		if len(arr) == 0 {
			return nil, fmt.Errorf("empty face descriptor")
		}
		return arr, nil
	}

	var keyed map[string]float32
	if err := json.Unmarshal(raw, &keyed); err != nil {
		return nil, fmt.Errorf("face descriptor is neither an array nor an index-keyed object")
	}
	if len(keyed) == 0 {
		return nil, fmt.Errorf("empty face descriptor")
	}

	indexes := make([]int, 0, len(keyed))
	for k := range keyed {
		i, err := strconv.Atoi(k)
		if err != nil || i < 0 {
			return nil, fmt.Errorf("face descriptor has non-numeric key %q", k)
		}
		indexes = append(indexes, i)
	}
	sort.Ints(indexes)

	// Keys must form a contiguous 0..n-1 range, otherwise positions would
	// silently shift and the vector would be garbage.
	vec := make([]float32, len(indexes))
	for pos, i := range indexes {
		if i != pos {
			return nil, fmt.Errorf("face descriptor keys are not contiguous (missing index %d)", pos)
		}
		vec[pos] = keyed[strconv.Itoa(i)]
	}

	return vec, nil
}
