// Package codec stores ordered string lists in a single text column.
//
// The column grammar is a JSON array whose elements are all JSON strings,
// which is also what earlier versions of the store wrote. Escaping follows
// RFC 8259, so any valid UTF-8 string survives a round trip.
package codec

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"
)

// EmptyList is the encoding of an empty or nil list.
const EmptyList = "[]"

// EncodeList serializes items. A nil slice encodes the same as an empty one.
func EncodeList(items []string) string {
	if len(items) == 0 {
		return EmptyList
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	// Templates and job ads are full of <, > and &; keep them readable in the column.
	enc.SetEscapeHTML(false)
	if err := enc.Encode(items); err != nil {
		// []string always marshals; unreachable.
		return EmptyList
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

// DecodeList parses a stored column value. Absent, blank or malformed text, and
// arrays holding anything other than strings, decode to an empty list.
func DecodeList(text string) []string {
	items := []string{}

	text = strings.TrimSpace(text)
	if text == "" || !gjson.Valid(text) {
		return items
	}

	parsed := gjson.Parse(text)
	if !parsed.IsArray() {
		return items
	}

	ok := true
	parsed.ForEach(func(_, value gjson.Result) bool {
		if value.Type != gjson.String {
			ok = false
			return false
		}
		items = append(items, value.Str)
		return true
	})
	if !ok {
		return []string{}
	}
	return items
}
