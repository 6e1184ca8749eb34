// Package coerce converts values between source driver types and the text
// form used by staging artifacts.
//
// The staged representation is lossy by design: the original type tag is
// discarded, binary data is reinterpreted as UTF-8 text, and numeric
// formatting is whatever the canonical Go conversion yields. Rows travel as
// text and land in wide text columns; no semantic type mapping happens.
package coerce

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// timeLayout is the staged form for temporal values. Fractional seconds are
// kept only when present.
const timeLayout = "2006-01-02 15:04:05.999999"

// ToText converts one scanned source value to its staged text form.
// SQL NULL becomes the empty string.
func ToText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		// Invalid byte sequences are replaced rather than failing the
		// whole chunk.
		return strings.ToValidUTF8(string(x), "�")
	case time.Time:
		return x.Format(timeLayout)
	case bool:
		return strconv.FormatBool(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

// RowToText converts a scanned row in place-order to staged text fields.
func RowToText(row []any) []string {
	out := make([]string, len(row))
	for i, v := range row {
		out[i] = ToText(v)
	}
	return out
}

// Params converts staged text fields to insert parameters. An empty field
// is restored to SQL NULL; everything else is bound as its literal text.
// Since ToText maps both NULL and "" to the empty field, both land as NULL.
func Params(fields []string) []any {
	out := make([]any, len(fields))
	for i, f := range fields {
		if f == "" {
			out[i] = nil
		} else {
			out[i] = f
		}
	}
	return out
}
