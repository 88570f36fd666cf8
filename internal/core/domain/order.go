package domain

import "time"

const UnknownOrderStatus = "Unknown"

// OrderRecord is one normalized row of the order record store.
type OrderRecord struct {
	MobileNumber string `json:"mobile_number"`
	OrderID      string `json:"order_id"`
	CustomerName string `json:"customer_name"`
	OrderStatus  string `json:"order_status"`
	DeliveryDate string `json:"delivery_date"`
	LastUpdate   string `json:"last_update"`
}

type ExtractionSource string

const (
	ExtractionSourceAI      ExtractionSource = "ai"
	ExtractionSourceAIRegex ExtractionSource = "ai+regex"
	ExtractionSourceRegex   ExtractionSource = "regex"
	ExtractionSourceDirect  ExtractionSource = "direct"
)

// ExtractionResult holds the fields recovered from a transcript.
// A nil field means the extractor found nothing for it.
type ExtractionResult struct {
	MobileNumber   *string          `json:"mobile_number"`
	OrderID        *string          `json:"order_id"`
	CustomerName   *string          `json:"customer_name"`
	Topic          string           `json:"topic"`
	Intent         string           `json:"intent"`
	OutOfContext   bool             `json:"out_of_context"`
	Source         ExtractionSource `json:"source"`
	FallbackReason string           `json:"fallback_reason,omitempty"`
}

func (r ExtractionResult) Mobile() (string, bool) {
	return deref(r.MobileNumber)
}

func (r ExtractionResult) Order() (string, bool) {
	return deref(r.OrderID)
}

func (r ExtractionResult) Name() (string, bool) {
	return deref(r.CustomerName)
}

type NotFoundReason string

const (
	ReasonNoSourceData        NotFoundReason = "no_source_data"
	ReasonMissingField        NotFoundReason = "missing_field"
	ReasonInvalidMobileFormat NotFoundReason = "invalid_mobile_format"
	ReasonNoMatch             NotFoundReason = "no_match"
)

// LookupOutcome is either Found with a record or NotFound with a reason.
// The zero value means no lookup was attempted.
type LookupOutcome struct {
	Found  bool           `json:"found"`
	Record OrderRecord    `json:"record"`
	Reason NotFoundReason `json:"reason,omitempty"`
}

func Found(record OrderRecord) LookupOutcome {
	return LookupOutcome{Found: true, Record: record}
}

func NotFound(reason NotFoundReason) LookupOutcome {
	return LookupOutcome{Reason: reason}
}

func (o LookupOutcome) Attempted() bool {
	return o.Found || o.Reason != ""
}

type ComposedResponse struct {
	Text      string `json:"response_text"`
	VoiceText string `json:"response_voice_text"`
}

type OrderStatusView struct {
	Status       string `json:"status"`
	DeliveryDate string `json:"delivery_date"`
	LastUpdate   string `json:"last_update"`
}

// StatusReport is the payload returned to callers for one processed transcript.
type StatusReport struct {
	Transcript        string           `json:"transcript"`
	MobileNumber      *string          `json:"mobile_number"`
	OrderID           *string          `json:"order_id"`
	CustomerName      *string          `json:"customer_name"`
	Topic             string           `json:"topic"`
	Intent            string           `json:"intent"`
	StatusFound       bool             `json:"status_found"`
	OrderStatus       OrderStatusView  `json:"order_status"`
	ResponseText      string           `json:"response_text"`
	ResponseVoiceText string           `json:"response_voice_text"`
	OutOfContext      bool             `json:"out_of_context"`
	Reason            NotFoundReason   `json:"reason,omitempty"`
	ExtractionSource  ExtractionSource `json:"extraction_source,omitempty"`
	AudioURL          *string          `json:"audio_url"`
	Error             string           `json:"error,omitempty"`
}

// LookupEvent is published after every completed lookup.
type LookupEvent struct {
	RequestID        string           `json:"request_id,omitempty"`
	MaskedMobile     string           `json:"masked_mobile,omitempty"`
	OrderID          string           `json:"order_id,omitempty"`
	StatusFound      bool             `json:"status_found"`
	Reason           NotFoundReason   `json:"reason,omitempty"`
	OutOfContext     bool             `json:"out_of_context"`
	ExtractionSource ExtractionSource `json:"extraction_source"`
	OccurredAt       time.Time        `json:"occurred_at"`
}

func StringPtr(v string) *string {
	return &v
}

func deref(v *string) (string, bool) {
	if v == nil {
		return "", false
	}
	return *v, true
}
