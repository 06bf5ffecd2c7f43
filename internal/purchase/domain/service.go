package domain

import (
	"context"
	"time"

	authdomain "github.com/wattshare/wattshare/internal/auth/domain"
	"github.com/wattshare/wattshare/pkg/db/pagination"
)

type Service interface {
	Create(ctx context.Context, actor authdomain.Actor, req CreatePurchaseRequest) (*Purchase, error)
	Get(ctx context.Context, id string) (*Purchase, error)
	List(ctx context.Context, req ListPurchaseRequest) (ListPurchaseResponse, error)
	Update(ctx context.Context, actor authdomain.Actor, req UpdatePurchaseRequest) (*Purchase, error)
	Delete(ctx context.Context, actor authdomain.Actor, id string) error
}

type CreatePurchaseRequest struct {
	TotalTokens  float64   `json:"total_tokens"`
	TotalPayment float64   `json:"total_payment"`
	MeterReading float64   `json:"meter_reading"`
	PurchaseDate time.Time `json:"purchase_date"`
	IsEmergency  bool      `json:"is_emergency"`
}

type UpdatePurchaseRequest struct {
	ID           string     `json:"-"`
	TotalTokens  *float64   `json:"total_tokens,omitempty"`
	TotalPayment *float64   `json:"total_payment,omitempty"`
	MeterReading *float64   `json:"meter_reading,omitempty"`
	PurchaseDate *time.Time `json:"purchase_date,omitempty"`
	IsEmergency  *bool      `json:"is_emergency,omitempty"`
}

type ListPurchaseRequest struct {
	pagination.Pagination
	StartDate *time.Time
	EndDate   *time.Time
}

type ListPurchaseResponse struct {
	pagination.PageInfo
	Purchases []Purchase `json:"purchases"`
}
