package domain

import "errors"

var (
	ErrContributionNotFound = errors.New("contribution not found")
	ErrDuplicate            = errors.New("purchase already has a contribution")
	ErrInvalidID            = errors.New("invalid_id")
	ErrInvalidAmount        = errors.New("invalid_contribution_amount")
	ErrInvalidMeterReading  = errors.New("invalid_meter_reading")
	ErrInvalidPageToken     = errors.New("invalid_page_token")
)
