package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// legacyTimeLayouts are accepted for snapshots written without a zone offset
var legacyTimeLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// UnmarshalJSON decodes a device entry, accepting zone-less timestamps and a
// null address list from older snapshots.
func (d *Device) UnmarshalJSON(data []byte) error {
	type alias Device
	aux := struct {
		*alias
		FirstSeen *string `json:"first_seen"`
		LastSeen  *string `json:"last_seen"`
	}{alias: (*alias)(d)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	var err error
	if d.FirstSeen, err = parseTimestamp(aux.FirstSeen); err != nil {
		return fmt.Errorf("first_seen: %w", err)
	}
	if d.LastSeen, err = parseTimestamp(aux.LastSeen); err != nil {
		return fmt.Errorf("last_seen: %w", err)
	}
	if d.IPAddresses == nil {
		d.IPAddresses = []string{}
	}
	return nil
}

func parseTimestamp(s *string) (time.Time, error) {
	if s == nil || *s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, *s); err == nil {
		return t, nil
	}
	for _, layout := range legacyTimeLayouts {
		if t, err := time.ParseInLocation(layout, *s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", *s)
}
