package domain

import "errors"

var (
	ErrMeterReadingNotFound = errors.New("meter reading not found")
	ErrInvalidID            = errors.New("invalid_id")
	ErrInvalidReading       = errors.New("invalid_reading")
	ErrInvalidDate          = errors.New("invalid_reading_date")
	ErrInvalidPageToken     = errors.New("invalid_page_token")
)
