package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"unicode/utf16"

	"golang.org/x/text/unicode/norm"
)

// MarshalStatus produces canonical JSON for a status mapping.
//
// Identical mappings always serialize to identical bytes:
//  1. Keys sorted by UTF-16 code units (RFC 8785 ordering)
//  2. Keys NFC normalized
//  3. No HTML escaping
//  4. No insignificant whitespace
//
// A nil mapping serializes as "{}".
func MarshalStatus(s Status) ([]byte, error) {
	normalized := make(map[string]bool, len(s))
	for k, v := range s {
		nk := norm.NFC.String(k)
		// Two spellings of the same name collapse; executed wins.
		normalized[nk] = normalized[nk] || v
	}

	keys := make([]string, 0, len(normalized))
	for k := range normalized {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return lessUTF16(keys[i], keys[j])
	})

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := marshalCanonicalString(k)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.WriteString(strconv.FormatBool(normalized[k]))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalStatus decodes a stored status mapping.
//
// Empty input decodes to an empty mapping. Values are read with loose
// truthiness so mappings written by other tools still load: true, non-zero
// numbers and strings other than "", "0" and "false" count as executed.
func UnmarshalStatus(data []byte) (Status, error) {
	out := Status{}
	if len(bytes.TrimSpace(data)) == 0 {
		return out, nil
	}

	var raw map[string]any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode status: %w", err)
	}
	for k, v := range raw {
		out[k] = truthy(v)
	}
	return out, nil
}

func truthy(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case json.Number:
		f, err := val.Float64()
		return err == nil && f != 0
	case string:
		return val != "" && val != "0" && val != "false"
	case []any:
		return len(val) > 0
	case map[string]any:
		return len(val) > 0
	default:
		return false
	}
}

// marshalCanonicalString produces a JSON string with NFC normalization and
// without HTML escaping. U+2028 and U+2029 stay literal.
func marshalCanonicalString(s string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(norm.NFC.String(s)); err != nil {
		return nil, err
	}
	out := bytes.TrimSuffix(buf.Bytes(), []byte{'\n'})
	return unescapeLineSeparators(out), nil
}

// unescapeLineSeparators turns \u2028 and \u2029 escapes back into literal
// characters, leaving \\u2028 (escaped backslash + text) untouched.
func unescapeLineSeparators(data []byte) []byte {
	if !bytes.Contains(data, []byte(`\u202`)) {
		return data
	}

	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		if data[i] == '\\' && i+5 < len(data) && string(data[i+1:i+5]) == "u202" &&
			(data[i+5] == '8' || data[i+5] == '9') {
			backslashes := 0
			for j := len(out) - 1; j >= 0 && out[j] == '\\'; j-- {
				backslashes++
			}
			if backslashes%2 == 0 {
				if data[i+5] == '8' {
					out = append(out, "\u2028"...)
				} else {
					out = append(out, "\u2029"...)
				}
				i += 5
				continue
			}
		}
		out = append(out, data[i])
	}
	return out
}

// lessUTF16 orders strings by UTF-16 code units.
func lessUTF16(a, b string) bool {
	ua := utf16.Encode([]rune(a))
	ub := utf16.Encode([]rune(b))
	for i := 0; i < len(ua) && i < len(ub); i++ {
		if ua[i] != ub[i] {
			return ua[i] < ub[i]
		}
	}
	return len(ua) < len(ub)
}
