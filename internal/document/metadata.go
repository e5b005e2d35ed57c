package document

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ListSeparator joins list values when metadata is flattened.
const ListSeparator = ", "

// Flatten converts decoded front matter into string values suitable for
// vector store metadata. Lists are joined with ListSeparator in their
// original order. The conversion is one way.
func Flatten(meta map[string]any) map[string]string {
	out := make(map[string]string, len(meta))
	for k, v := range meta {
		out[k] = formatValue(v)
	}
	return out
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []any:
		items := make([]string, len(val))
		for i, item := range val {
			items[i] = formatValue(item)
		}
		return strings.Join(items, ListSeparator)
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case uint64:
		return strconv.FormatUint(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case time.Time:
		// YAML dates without a time component decode to midnight UTC
		if val.Hour() == 0 && val.Minute() == 0 && val.Second() == 0 && val.Nanosecond() == 0 {
			return val.Format(time.DateOnly)
		}
		return val.Format(time.RFC3339)
	default:
		return fmt.Sprint(val)
	}
}
