package provider

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// field decodes any JSON scalar as its text form. Panels are inconsistent
// about quoting ids and amounts, so "123" and 123 decode the same way.
// Objects and arrays keep their raw JSON. null leaves the field unset.
type field struct {
	value string
	set   bool
}

func (f *field) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		f.value = strings.TrimSpace(s)
	} else {
		f.value = string(b)
	}
	f.set = true
	return nil
}

// or returns the value, or def when the field was absent or blank.
func (f field) or(def string) string {
	if !f.set || f.value == "" {
		return def
	}
	return f.value
}

func (f field) present() bool {
	return f.set && f.value != ""
}

func (f field) int() int {
	n, err := strconv.Atoi(f.value)
	if err != nil {
		return 0
	}
	return n
}

func (f field) bool() bool {
	switch strings.ToLower(f.value) {
	case "true", "1", "yes":
		return true
	}
	return false
}

type serviceResponse struct {
	Service  field `json:"service"`
	Name     field `json:"name"`
	Type     field `json:"type"`
	Category field `json:"category"`
	Rate     field `json:"rate"`
	Min      field `json:"min"`
	Max      field `json:"max"`
	Refill   field `json:"refill"`
}

type errorResponse struct {
	Error field `json:"error"`
}

type addResponse struct {
	errorResponse
	Order field `json:"order"`
}

type statusResponse struct {
	errorResponse
	Charge     field `json:"charge"`
	StartCount field `json:"start_count"`
	Status     field `json:"status"`
	Remains    field `json:"remains"`
	Currency   field `json:"currency"`
}

type refillResponse struct {
	errorResponse
	Refill field `json:"refill"`
}

type refillStatusResponse struct {
	errorResponse
	Status field `json:"status"`
}

type balanceResponse struct {
	errorResponse
	Balance  field `json:"balance"`
	Currency field `json:"currency"`
}

// shape returns the first significant byte of a JSON document.
func shape(body []byte) byte {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return 0
	}
	return body[0]
}
