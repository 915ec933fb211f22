package v2board

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Status is the optional status flag of a response envelope. Depending on
// the backend version it is sent as "success"/"fail" or as a boolean.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFail    Status = "fail"
)

func (s *Status) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)

	switch {
	case bytes.Equal(data, []byte("null")):
		*s = ""
	case bytes.Equal(data, []byte("true")):
		*s = StatusSuccess
	case bytes.Equal(data, []byte("false")):
		*s = StatusFail
	default:
		var value string
		if err := json.Unmarshal(data, &value); err != nil {
			// numbers and other shapes carry no status
			*s = ""
			return nil
		}
		*s = Status(strings.ToLower(value))
	}

	return nil
}

// envelope is the wire shape shared by every endpoint.
type envelope struct {
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Status  Status          `json:"status"`
	Code    int             `json:"code"`
}

// Response is a parsed response envelope. Data holds the decoded payload
// when it matched T; RawData always holds the payload as sent.
type Response[T any] struct {
	Data    T               `json:"data"`
	Message string          `json:"message"`
	Status  Status          `json:"status,omitempty"`
	Code    int             `json:"code,omitempty"`
	RawData json.RawMessage `json:"-"`
}

// IsSuccess applies the backend-agnostic success test used by every
// operation that has no structural payload to check.
func (r *Response[T]) IsSuccess() bool {
	if r == nil {
		return false
	}
	return r.Status == StatusSuccess ||
		r.Code == 200 ||
		bytes.Equal(bytes.TrimSpace(r.RawData), []byte("true")) ||
		strings.EqualFold(r.Message, "ok")
}

func (r *Response[T]) HasData() bool {
	if r == nil {
		return false
	}
	data := bytes.TrimSpace(r.RawData)
	return len(data) > 0 && !bytes.Equal(data, []byte("null"))
}
