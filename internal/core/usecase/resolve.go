package usecase

import "github.com/kirillkom/order-status-assistant/internal/core/domain"

// ResolveOrder looks a mobile/order-id pair up in the record snapshot.
// Both identifiers are required; a single matching field never discloses a record.
func ResolveOrder(records []domain.OrderRecord, mobileNumber, orderID *string) domain.LookupOutcome {
	if len(records) == 0 {
		return domain.NotFound(domain.ReasonNoSourceData)
	}
	if mobileNumber == nil || orderID == nil {
		return domain.NotFound(domain.ReasonMissingField)
	}

	mobile := domain.NormalizeMobile(*mobileNumber)
	if len(mobile) != domain.MobileNumberLength {
		return domain.NotFound(domain.ReasonInvalidMobileFormat)
	}
	order := domain.NormalizeOrderID(*orderID)

	for _, rec := range records {
		if domain.NormalizeMobile(rec.MobileNumber) != mobile {
			continue
		}
		if domain.NormalizeOrderID(rec.OrderID) != order {
			continue
		}
		return domain.Found(rec)
	}
	return domain.NotFound(domain.ReasonNoMatch)
}
