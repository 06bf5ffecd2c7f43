package domain

import "errors"

var (
	ErrPurchaseNotFound    = errors.New("purchase not found")
	ErrInvalidID           = errors.New("invalid_id")
	ErrInvalidTokens       = errors.New("invalid_total_tokens")
	ErrInvalidPayment      = errors.New("invalid_total_payment")
	ErrInvalidMeterReading = errors.New("invalid_meter_reading")
	ErrInvalidDate         = errors.New("invalid_purchase_date")
	ErrInvalidPageToken    = errors.New("invalid_page_token")
)
