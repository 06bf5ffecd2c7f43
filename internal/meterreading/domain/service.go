package domain

import (
	"context"
	"time"

	authdomain "github.com/wattshare/wattshare/internal/auth/domain"
	"github.com/wattshare/wattshare/pkg/db/pagination"
)

type Service interface {
	Create(ctx context.Context, actor authdomain.Actor, req CreateMeterReadingRequest) (*MeterReading, error)
	Get(ctx context.Context, id string) (*MeterReading, error)
	List(ctx context.Context, req ListMeterReadingRequest) (ListMeterReadingResponse, error)
	Update(ctx context.Context, actor authdomain.Actor, req UpdateMeterReadingRequest) (*MeterReading, error)
	Delete(ctx context.Context, actor authdomain.Actor, id string) error
}

type CreateMeterReadingRequest struct {
	Reading     float64   `json:"reading"`
	ReadingDate time.Time `json:"reading_date"`
	Notes       string    `json:"notes"`
}

type UpdateMeterReadingRequest struct {
	ID          string     `json:"-"`
	Reading     *float64   `json:"reading,omitempty"`
	ReadingDate *time.Time `json:"reading_date,omitempty"`
	Notes       *string    `json:"notes,omitempty"`
}

type ListMeterReadingRequest struct {
	pagination.Pagination
	StartDate *time.Time
	EndDate   *time.Time
}

type ListMeterReadingResponse struct {
	pagination.PageInfo
	MeterReadings []MeterReading `json:"meter_readings"`
}
