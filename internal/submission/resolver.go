package submission

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Kind is the type a raw submission value is coerced into
type Kind int

const (
	KindString Kind = iota
	KindBool
	KindInt
	KindFloat
	KindDate
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "boolean"
	case KindInt:
		return "integer"
	case KindFloat:
		return "float"
	case KindDate:
		return "date"
	default:
		return "string"
	}
}

// dateLayouts are tried in order; US style comes first
var dateLayouts = []string{"01/02/2006", "2006-01-02"}

var (
	trueWords  = map[string]bool{"true": true, "on": true, "yes": true, "1": true}
	falseWords = map[string]bool{"false": true, "off": true, "no": true, "0": true}
)

// coerce converts a raw JSON value to the Go type of kind: string, bool, int,
// float64 or *time.Time
func coerce(raw interface{}, kind Kind) (interface{}, error) {
	switch kind {
	case KindBool:
		return toBool(raw), nil
	case KindInt:
		return toInt(raw)
	case KindFloat:
		return toFloat(raw)
	case KindDate:
		return toDate(raw)
	default:
		return toString(raw), nil
	}
}

func toString(raw interface{}) string {
	switch v := raw.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func toBool(raw interface{}) bool {
	switch v := raw.(type) {
	case bool:
		return v
	case string:
		lower := strings.ToLower(strings.TrimSpace(v))
		if trueWords[lower] {
			return true
		}
		if falseWords[lower] {
			return false
		}
		return v != ""
	case float64:
		return v != 0
	case map[string]interface{}:
		return len(v) > 0
	case []interface{}:
		return len(v) > 0
	default:
		return raw != nil
	}
}

func toInt(raw interface{}) (int, error) {
	switch v := raw.(type) {
	case float64:
		return int(v), nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, fmt.Errorf("not an integer: %q", v)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("cannot convert %T to integer", raw)
	}
}

func toFloat(raw interface{}) (float64, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("not a number: %q", v)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("cannot convert %T to float", raw)
	}
}

func toDate(raw interface{}) (*time.Time, error) {
	switch v := raw.(type) {
	case time.Time:
		d := time.Date(v.Year(), v.Month(), v.Day(), 0, 0, 0, 0, time.UTC)
		return &d, nil
	case string:
		s := strings.TrimSpace(v)
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return &t, nil
			}
		}
		return nil, fmt.Errorf("unsupported date %q, expected MM/DD/YYYY or YYYY-MM-DD", v)
	default:
		return nil, fmt.Errorf("cannot convert %T to date", raw)
	}
}
