package scoring

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrNoJSON = errors.New("no JSON value found")

// DecodeFirstJSON decodes the first JSON object or array in s into out.
// Text around the value, like markdown fences, is ignored.
func DecodeFirstJSON(s string, out any) error {
	var lastErr error
	for start := 0; start < len(s); {
		i := strings.IndexAny(s[start:], "{[")
		if i < 0 {
			break
		}
		start += i

		dec := json.NewDecoder(strings.NewReader(s[start:]))
		if err := dec.Decode(out); err == nil {
			return nil
		} else {
			lastErr = err
		}
		start++
	}

	if lastErr != nil {
		return fmt.Errorf("%w: %w", ErrNoJSON, lastErr)
	}
	return ErrNoJSON
}

// binary accepts the different ways a judge writes a yes/no verdict:
// 1, "1", true, "yes".
type binary int

func (b *binary) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}

	switch val := v.(type) {
	case float64:
		*b = toBinary(val != 0)
	case bool:
		*b = toBinary(val)
	case string:
		s := strings.ToLower(strings.TrimSpace(val))
		switch s {
		case "yes", "true", "y":
			*b = 1
		case "no", "false", "n":
			*b = 0
		default:
			f, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return fmt.Errorf("invalid verdict %q", val)
			}
			*b = toBinary(f != 0)
		}
	case nil:
		return errors.New("missing verdict")
	default:
		return fmt.Errorf("invalid verdict %v", val)
	}
	return nil
}

func toBinary(ok bool) binary {
	if ok {
		return 1
	}
	return 0
}
