package usecase

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/kirillkom/order-status-assistant/internal/core/domain"
)

var errNoJSONObject = errors.New("no json object in model response")

// aiExtraction mirrors the JSON object the model is asked to return.
// Models drift on key names and value types, so the fields are tolerant.
type aiExtraction struct {
	MobileNumber    looseString `json:"mobile_number"`
	OrderID         looseString `json:"order_id"`
	CustomerName    looseString `json:"customer_name"`
	Name            looseString `json:"name"`
	Topic           looseString `json:"topic"`
	Intent          looseString `json:"intent"`
	OutOfContext    *looseBool  `json:"out_of_context"`
	OutOfContextAlt *looseBool  `json:"OutOfContext"`
	OutOfTheContext *looseBool  `json:"OutOfTheContext"`
}

func (a aiExtraction) outOfContext() bool {
	for _, flag := range []*looseBool{a.OutOfContext, a.OutOfContextAlt, a.OutOfTheContext} {
		if flag != nil {
			return bool(*flag)
		}
	}
	return false
}

type looseString string

func (s *looseString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = looseString(v)
		return nil
	}
	// Numbers (a mobile number sent unquoted) and booleans keep their literal text.
	*s = looseString(string(data))
	return nil
}

func (s looseString) value() (string, bool) {
	v := strings.TrimSpace(string(s))
	switch strings.ToLower(v) {
	case "", "null", "none", "n/a", "na", "not provided", "unknown", "false":
		return "", false
	}
	return v, true
}

type looseBool bool

func (b *looseBool) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*b = false
		return nil
	}
	raw := string(data)
	if data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
	}
	parsed, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		switch strings.ToLower(strings.TrimSpace(raw)) {
		case "yes", "y":
			parsed = true
		case "no", "n", "":
			parsed = false
		default:
			return fmt.Errorf("parse bool %q: %w", raw, err)
		}
	}
	*b = looseBool(parsed)
	return nil
}

// parseAIExtraction decodes the first well-formed JSON object in a model reply.
// Prose or code fences around the object are ignored.
func parseAIExtraction(raw string) (aiExtraction, error) {
	object, err := firstJSONObject(raw)
	if err != nil {
		return aiExtraction{}, err
	}
	var out aiExtraction
	if err := json.Unmarshal(object, &out); err != nil {
		return aiExtraction{}, fmt.Errorf("unmarshal extraction json: %w", err)
	}
	return out, nil
}

func firstJSONObject(raw string) ([]byte, error) {
	for offset := 0; offset < len(raw); {
		idx := strings.IndexByte(raw[offset:], '{')
		if idx < 0 {
			break
		}
		start := offset + idx
		var candidate json.RawMessage
		dec := json.NewDecoder(strings.NewReader(raw[start:]))
		if err := dec.Decode(&candidate); err == nil {
			return candidate, nil
		}
		offset = start + 1
	}
	return nil, errNoJSONObject
}

// normalized converts the tolerant model answer into an ExtractionResult,
// dropping values that break the field invariants.
func (a aiExtraction) normalized() domain.ExtractionResult {
	out := domain.ExtractionResult{
		OutOfContext: a.outOfContext(),
		Source:       domain.ExtractionSourceAI,
	}
	if v, ok := a.MobileNumber.value(); ok {
		if digits := domain.NormalizeMobile(v); len(digits) == domain.MobileNumberLength {
			out.MobileNumber = domain.StringPtr(digits)
		}
	}
	if v, ok := a.OrderID.value(); ok {
		if id := domain.NormalizeOrderID(v); len(id) >= minOrderIDLength && isAlnumString(id) {
			out.OrderID = domain.StringPtr(id)
		}
	}
	name, ok := a.CustomerName.value()
	if !ok {
		name, ok = a.Name.value()
	}
	if ok {
		out.CustomerName = domain.StringPtr(name)
	}
	if v, ok := a.Topic.value(); ok {
		out.Topic = v
	}
	if v, ok := a.Intent.value(); ok {
		out.Intent = v
	}
	return out
}

func isAlnumString(s string) bool {
	for i := 0; i < len(s); i++ {
		if !isAlnum(s[i]) {
			return false
		}
	}
	return s != ""
}

func buildExtractionPrompt(transcript string) string {
	const maxTranscript = 4000
	if len(transcript) > maxTranscript {
		transcript = transcript[:maxTranscript]
	}

	return `You extract order lookup details from a customer support transcript.
Return one JSON object with keys:
mobile_number (string, Indian 10-digit mobile number or ""),
order_id (string, 2-4 letters followed by 4-6 digits such as AMZ12345, or ""),
customer_name (string, only if clearly mentioned, or ""),
topic (string, e.g. "Order Status Inquiry"),
intent (string, e.g. "check_status", "delivery_inquiry", "complaint"),
out_of_context (boolean, true only when the transcript is not about an order at all).
Numbers may be spoken as words ("nine eight seven..."); convert them to digits.
No markdown, no extra keys.

Transcript:
` + transcript
}
