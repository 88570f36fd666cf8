package usecase

import (
	"strings"
	"testing"

	"github.com/kirillkom/order-status-assistant/internal/core/domain"
)

func TestComposeFoundResponse(t *testing.T) {
	extraction := domain.ExtractionResult{
		MobileNumber: domain.StringPtr("9876543210"),
		OrderID:      domain.StringPtr("AMZ12345"),
	}
	got := ComposeResponse(extraction, domain.Found(sampleRecords()[0]))

	for _, want := range []string{"Hello Rahul Sharma,", "AMZ12345", "Shipped", "2025-11-20", "2025-11-15"} {
		if !strings.Contains(got.Text, want) {
			t.Fatalf("response text %q does not contain %q", got.Text, want)
		}
	}
	wantVoice := "Hello Rahul Sharma, your order ending 345 is Shipped. Expected by 20 Nov."
	if got.VoiceText != wantVoice {
		t.Fatalf("voice text: got %q want %q", got.VoiceText, wantVoice)
	}
}

func TestComposeFoundWithoutOptionalFields(t *testing.T) {
	rec := domain.OrderRecord{MobileNumber: "9123456780", OrderID: "FLP45678", OrderStatus: "Delivered"}
	got := ComposeResponse(domain.ExtractionResult{}, domain.Found(rec))

	if got.Text != "Your order FLP45678 is currently Delivered." {
		t.Fatalf("unexpected text: %q", got.Text)
	}
	if got.VoiceText != "Your order ending 678 is Delivered." {
		t.Fatalf("unexpected voice: %q", got.VoiceText)
	}
}

func TestComposeOutOfContext(t *testing.T) {
	got := ComposeResponse(domain.ExtractionResult{OutOfContext: true}, domain.LookupOutcome{})
	if got.Text != OutOfContextMessage || got.VoiceText != OutOfContextMessage {
		t.Fatalf("unexpected out of context response: %+v", got)
	}
}

func TestComposeMissingField(t *testing.T) {
	tests := []struct {
		name       string
		extraction domain.ExtractionResult
		contains   []string
	}{
		{
			name:       "both missing",
			extraction: domain.ExtractionResult{},
			contains:   []string{"mobile number", "order ID", "provide both"},
		},
		{
			name:       "order missing",
			extraction: domain.ExtractionResult{MobileNumber: domain.StringPtr("9876543210")},
			contains:   []string{"9876543210", "Please provide your order ID"},
		},
		{
			name:       "mobile missing",
			extraction: domain.ExtractionResult{OrderID: domain.StringPtr("AMZ12345")},
			contains:   []string{"AMZ12345", "10-digit mobile number"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ComposeResponse(tc.extraction, domain.NotFound(domain.ReasonMissingField))
			for _, want := range tc.contains {
				if !strings.Contains(got.Text, want) {
					t.Fatalf("text %q does not contain %q", got.Text, want)
				}
			}
			if got.VoiceText == "" {
				t.Fatalf("voice text must not be empty")
			}
		})
	}
}

func TestComposeNotFoundReasonsAreDistinct(t *testing.T) {
	extraction := domain.ExtractionResult{
		MobileNumber: domain.StringPtr("9900112233"),
		OrderID:      domain.StringPtr("XYZ9999"),
	}
	seen := map[string]domain.NotFoundReason{}
	for _, reason := range []domain.NotFoundReason{domain.ReasonNoMatch, domain.ReasonInvalidMobileFormat, domain.ReasonNoSourceData} {
		got := ComposeResponse(extraction, domain.NotFound(reason))
		if !strings.Contains(got.Text, "XYZ9999") {
			t.Fatalf("%s: text %q does not reference the order id", reason, got.Text)
		}
		if got.Text == OutOfContextMessage {
			t.Fatalf("%s: not-found text must differ from the out of context message", reason)
		}
		if prev, ok := seen[got.Text]; ok {
			t.Fatalf("%s and %s share the same text", prev, reason)
		}
		seen[got.Text] = reason
	}
}

func TestComposeIsDeterministic(t *testing.T) {
	extraction := domain.ExtractionResult{MobileNumber: domain.StringPtr("9876543210"), OrderID: domain.StringPtr("AMZ12345")}
	outcome := domain.Found(sampleRecords()[0])
	if ComposeResponse(extraction, outcome) != ComposeResponse(extraction, outcome) {
		t.Fatalf("compose must be deterministic")
	}
}

func TestSpeakDate(t *testing.T) {
	tests := map[string]string{
		"2025-11-20":          "20 Nov",
		"2025/11/05 10:00:00": "5 Nov",
		"20-11-2025":          "20 Nov",
		"01/02/2025":          "1 Feb",
		"next tuesday":        "next tuesday",
		"2025-13-40":          "2025-13-40",
	}
	for in, want := range tests {
		if got := speakDate(in); got != want {
			t.Fatalf("speakDate(%q): got %q want %q", in, got, want)
		}
	}
}
