package usecase

import (
	"fmt"
	"strings"
	"time"

	"github.com/kirillkom/order-status-assistant/internal/core/domain"
)

const OutOfContextMessage = "We are extremely sorry, but we provide only the order related details."

const voiceOrderSuffixLength = 3

var spokenDateLayouts = []string{"2006-01-02", "2006/01/02", "02-01-2006", "02/01/2006"}

// ComposeResponse renders the display text and the shorter voice text for one
// lookup. It is pure: the same inputs always give the same output.
func ComposeResponse(extraction domain.ExtractionResult, outcome domain.LookupOutcome) domain.ComposedResponse {
	if extraction.OutOfContext {
		return domain.ComposedResponse{Text: OutOfContextMessage, VoiceText: OutOfContextMessage}
	}
	if outcome.Found {
		return composeFound(outcome.Record)
	}

	mobile, hasMobile := extraction.Mobile()
	orderID, hasOrder := extraction.Order()

	switch outcome.Reason {
	case domain.ReasonMissingField, "":
		return composeMissing(mobile, hasMobile, orderID, hasOrder)
	case domain.ReasonInvalidMobileFormat:
		return domain.ComposedResponse{
			Text: fmt.Sprintf(
				"We are sorry, but we couldn't find any order for %s. Please provide a valid 10-digit mobile number.",
				suppliedIdentifiers(mobile, hasMobile, orderID, hasOrder),
			),
			VoiceText: "Sorry, that mobile number does not look right. Please say your 10-digit mobile number.",
		}
	case domain.ReasonNoSourceData:
		return domain.ComposedResponse{
			Text: fmt.Sprintf(
				"We are sorry, but order records are not available right now, so we couldn't check %s. Please try again later.",
				suppliedIdentifiers(mobile, hasMobile, orderID, hasOrder),
			),
			VoiceText: "Sorry, order records are not available right now. Please try again later.",
		}
	default:
		return domain.ComposedResponse{
			Text: fmt.Sprintf(
				"We are sorry, but we couldn't find any order for %s in our records. Please verify your mobile number and order ID are correct.",
				suppliedIdentifiers(mobile, hasMobile, orderID, hasOrder),
			),
			VoiceText: "Sorry, I could not find any order linked with that mobile number and order ID.",
		}
	}
}

func composeMissing(mobile string, hasMobile bool, orderID string, hasOrder bool) domain.ComposedResponse {
	switch {
	case !hasMobile && !hasOrder:
		return domain.ComposedResponse{
			Text:      "I could not find a mobile number or order ID in your message. Please provide both your mobile number and order ID to check the status.",
			VoiceText: "Please tell me your mobile number and order ID.",
		}
	case !hasMobile:
		return domain.ComposedResponse{
			Text:      fmt.Sprintf("I found order ID %s, but I need your mobile number as well to check the order status. Please provide your 10-digit mobile number.", orderID),
			VoiceText: "Please tell me your 10-digit mobile number.",
		}
	default:
		return domain.ComposedResponse{
			Text:      fmt.Sprintf("I found mobile number %s, but I need your order ID as well to check the order status. Please provide your order ID.", mobile),
			VoiceText: "Please tell me your order ID.",
		}
	}
}

func suppliedIdentifiers(mobile string, hasMobile bool, orderID string, hasOrder bool) string {
	switch {
	case hasMobile && hasOrder:
		return fmt.Sprintf("order ID %s with mobile number %s", orderID, mobile)
	case hasOrder:
		return "order ID " + orderID
	case hasMobile:
		return "mobile number " + mobile
	default:
		return "the details you provided"
	}
}

func composeFound(rec domain.OrderRecord) domain.ComposedResponse {
	status := strings.TrimSpace(rec.OrderStatus)
	if status == "" {
		status = domain.UnknownOrderStatus
	}
	name := strings.TrimSpace(rec.CustomerName)
	delivery := strings.TrimSpace(rec.DeliveryDate)
	lastUpdate := strings.TrimSpace(rec.LastUpdate)

	var text strings.Builder
	if name != "" {
		fmt.Fprintf(&text, "Hello %s, your order %s is currently %s.", name, rec.OrderID, status)
	} else {
		fmt.Fprintf(&text, "Your order %s is currently %s.", rec.OrderID, status)
	}
	if delivery != "" {
		fmt.Fprintf(&text, " Expected delivery date is %s.", delivery)
	}
	if lastUpdate != "" {
		fmt.Fprintf(&text, " Last updated on %s.", lastUpdate)
	}

	var voice strings.Builder
	if name != "" {
		fmt.Fprintf(&voice, "Hello %s, ", name)
		fmt.Fprintf(&voice, "your order ending %s is %s.", spokenOrderID(rec.OrderID), status)
	} else {
		fmt.Fprintf(&voice, "Your order ending %s is %s.", spokenOrderID(rec.OrderID), status)
	}
	if delivery != "" {
		fmt.Fprintf(&voice, " Expected by %s.", speakDate(delivery))
	}

	return domain.ComposedResponse{Text: text.String(), VoiceText: voice.String()}
}

func spokenOrderID(orderID string) string {
	if len(orderID) <= voiceOrderSuffixLength {
		return orderID
	}
	return orderID[len(orderID)-voiceOrderSuffixLength:]
}

// speakDate turns a parseable date into "20 Nov"; anything else is spoken as given.
func speakDate(raw string) string {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return raw
	}
	for _, layout := range spokenDateLayouts {
		if parsed, err := time.Parse(layout, fields[0]); err == nil {
			return parsed.Format("2 Jan")
		}
	}
	return raw
}
