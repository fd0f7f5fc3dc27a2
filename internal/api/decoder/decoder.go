// Package decoder turns free-form provider output into a flat slot mapping.
package decoder

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/FACorreiaa/alpine-guide/internal/types"
)

var (
	errNoObject = errors.New("no JSON object found")
	errNotFlat  = errors.New("nested value in flat object")
)

// Result is either Ok with a mapping or a ParseError.
type Result struct {
	values map[string]string
	err    error
}

func Ok(values map[string]string) Result {
	if values == nil {
		values = map[string]string{}
	}
	return Result{values: values}
}

func ParseError(err error) Result {
	return Result{err: fmt.Errorf("%w: %v", types.ErrParseFailure, err)}
}

func (r Result) IsOk() bool { return r.err == nil }

func (r Result) Values() map[string]string { return r.values }

func (r Result) Err() error { return r.err }

// Decode accepts text that should contain a single flat JSON object. Code
// fences and surrounding prose are tolerated. Null and blank values are
// dropped, scalars are stringified, arrays of scalars are joined with ", ".
func Decode(text string) Result {
	raw := cleanJSONResponse(text)
	if raw == "" || !strings.HasPrefix(raw, "{") {
		return ParseError(errNoObject)
	}
	if !gjson.Valid(raw) {
		return ParseError(fmt.Errorf("invalid JSON: %.80q", raw))
	}
	parsed := gjson.Parse(raw)
	if !parsed.IsObject() {
		return ParseError(errNoObject)
	}

	out := make(map[string]string)
	var walkErr error
	parsed.ForEach(func(key, value gjson.Result) bool {
		name := strings.TrimSpace(key.String())
		if name == "" {
			return true
		}
		v, err := flatten(value)
		if err != nil {
			walkErr = fmt.Errorf("key %q: %w", name, err)
			return false
		}
		if v != "" {
			out[name] = v
		}
		return true
	})
	if walkErr != nil {
		return ParseError(walkErr)
	}
	return Ok(out)
}

func flatten(v gjson.Result) (string, error) {
	switch {
	case v.Type == gjson.Null:
		return "", nil
	case v.IsObject():
		return "", errNotFlat
	case v.IsArray():
		var parts []string
		for _, item := range v.Array() {
			if item.IsObject() || item.IsArray() {
				return "", errNotFlat
			}
			if s := strings.TrimSpace(item.String()); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", "), nil
	default:
		s := strings.TrimSpace(v.String())
		if strings.EqualFold(s, "null") {
			return "", nil
		}
		return s, nil
	}
}

// cleanJSONResponse strips markdown fences and keeps the outermost braces.
func cleanJSONResponse(response string) string {
	response = strings.TrimSpace(response)

	if strings.HasPrefix(response, "```json") {
		response = strings.TrimPrefix(response, "```json")
	} else if strings.HasPrefix(response, "```") {
		response = strings.TrimPrefix(response, "```")
	}
	response = strings.TrimSuffix(strings.TrimSpace(response), "```")
	response = strings.TrimSpace(response)

	firstBrace := strings.Index(response, "{")
	if firstBrace == -1 {
		return response
	}
	lastBrace := strings.LastIndex(response, "}")
	if lastBrace <= firstBrace {
		return response
	}
	return strings.TrimSpace(response[firstBrace : lastBrace+1])
}
