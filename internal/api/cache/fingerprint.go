package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

const fingerprintLength = 16

// Fingerprint hashes a canonical form of fields: map keys sorted, strings
// trimmed and case-folded. Slices keep their order.
func Fingerprint(fields map[string]any) string {
	normalized := canonicalize(fields)
	canonical, err := json.Marshal(normalized)
	if err != nil {
		// fmt prints maps with sorted keys as well.
		canonical = []byte(fmt.Sprintf("%v", normalized))
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:])[:fingerprintLength]
}

func canonicalize(v any) any {
	switch t := v.(type) {
	case string:
		return normalizeText(t)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[normalizeText(k)] = canonicalize(val)
		}
		return out
	case map[string]string:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[normalizeText(k)] = normalizeText(val)
		}
		return out
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = normalizeText(s)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = canonicalize(item)
		}
		return out
	default:
		return v
	}
}

func normalizeText(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

var volatileTokens = map[string]struct{}{
	"date":     {},
	"heure":    {},
	"time":     {},
	"datetime": {},
}

// IsVolatileSlot reports whether a slot holds wall-clock data (date,
// heure, date_heure, time and similar composites).
func IsVolatileSlot(name string) bool {
	parts := strings.FieldsFunc(strings.ToLower(name), func(r rune) bool { return r == '_' || r == '-' })
	if len(parts) == 0 {
		return false
	}
	for _, p := range parts {
		if _, ok := volatileTokens[p]; !ok {
			return false
		}
	}
	return true
}

// StableSlots returns a copy of slots without the volatile ones.
func StableSlots(slots map[string]string) map[string]string {
	out := make(map[string]string, len(slots))
	for k, v := range slots {
		if IsVolatileSlot(k) {
			continue
		}
		out[k] = v
	}
	return out
}
