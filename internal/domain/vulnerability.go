package domain

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// VulnerabilityFlag marks a device that enrichment reported findings for.
//
// Older snapshots stored the list of findings itself, so decoding accepts
// any of: missing, null, the string "None", a list, a boolean, a number or
// a string, and reduces it to "at least one finding / truthy value".
// Encoding always writes a plain boolean.
type VulnerabilityFlag bool

// UnmarshalJSON coerces legacy shapes into the boolean form
func (v *VulnerabilityFlag) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*v = false
		return nil
	}

	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*v = VulnerabilityFlag(truthy(raw))
	return nil
}

// MarshalJSON writes the flag as a boolean
func (v VulnerabilityFlag) MarshalJSON() ([]byte, error) {
	return json.Marshal(bool(v))
}

func truthy(raw any) bool {
	switch val := raw.(type) {
	case nil:
		return false
	case bool:
		return val
	case []any:
		return len(val) > 0
	case map[string]any:
		return len(val) > 0
	case float64:
		return val != 0
	case string:
		s := strings.TrimSpace(val)
		if s == "" || s == "None" {
			return false
		}
		if b, err := strconv.ParseBool(s); err == nil {
			return b
		}
		return true
	default:
		return false
	}
}
