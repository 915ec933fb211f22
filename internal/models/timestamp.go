package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Timestamp is a unix time in seconds. The backend is not consistent about
// sending numbers or strings, so both are accepted on decode.
type Timestamp int64

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)

	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = 0
		return nil
	}

	if data[0] != '"' {
		var value json.Number
		if err := json.Unmarshal(data, &value); err != nil {
			return fmt.Errorf("invalid timestamp %s: %w", data, err)
		}
		seconds, err := value.Float64()
		if err != nil {
			return fmt.Errorf("invalid timestamp %s: %w", data, err)
		}
		*t = Timestamp(seconds)
		return nil
	}

	var value string
	if err := json.Unmarshal(data, &value); err != nil {
		return err
	}

	if len(value) == 0 {
		*t = 0
		return nil
	}

	if seconds, err := strconv.ParseInt(value, 10, 64); err == nil {
		*t = Timestamp(seconds)
		return nil
	}

	for _, layout := range []string{time.RFC3339, time.DateTime} {
		if parsed, err := time.Parse(layout, value); err == nil {
			*t = Timestamp(parsed.Unix())
			return nil
		}
	}

	return fmt.Errorf("invalid timestamp: %q", value)
}

func (t Timestamp) Time() time.Time {
	return time.Unix(int64(t), 0).UTC()
}

func (t Timestamp) IsZero() bool {
	return t <= 0
}
