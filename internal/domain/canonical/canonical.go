// Package canonical produces the deterministic byte representations that get
// signed. The output must be byte-exact regardless of input key order:
// canonical strings are HMAC inputs, so any instability here breaks
// authentication for well-behaved clients.
package canonical

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Query builds the canonical query string: keys sorted by code point, each
// key and value percent-encoded, joined as key=value pairs with '&'.
// Callers omit absent parameters; empty values are kept as provided.
func Query(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(percentEncode(k))
		b.WriteByte('=')
		b.WriteString(percentEncode(params[k]))
	}
	return b.String()
}

// Decode parses raw JSON preserving number literals, so re-encoding does not
// reformat values (1e3 stays 1e3, 10 stays 10).
func Decode(raw []byte) (interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	// Reject trailing garbage after the first value.
	if dec.More() {
		return nil, fmt.Errorf("decode json: trailing data")
	}
	return v, nil
}

// Encode serializes a decoded value compactly with object keys in sorted
// order at every nesting level. Arrays keep their element order.
func Encode(v interface{}) string {
	var b bytes.Buffer
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	// encoding/json emits map keys sorted by code point and adds no
	// whitespace, which is exactly the canonical form.
	_ = enc.Encode(v)
	return strings.TrimSuffix(b.String(), "\n")
}

// JSON canonicalizes a raw JSON document in one step.
func JSON(raw []byte) (string, error) {
	v, err := Decode(raw)
	if err != nil {
		return "", err
	}
	return Encode(v), nil
}

// percentEncode escapes like encodeURIComponent: unreserved characters plus
// !'()*~ pass through, everything else becomes %XX per UTF-8 byte.
func percentEncode(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnescaped(c) {
			b.WriteByte(c)
		} else {
			b.WriteString(fmt.Sprintf("%%%02X", c))
		}
	}
	return b.String()
}

func isUnescaped(c byte) bool {
	switch {
	case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		return true
	}
	switch c {
	case '-', '_', '.', '~', '!', '*', '\'', '(', ')':
		return true
	}
	return false
}
