package domain

import (
	"context"
	"time"

	authdomain "github.com/wattshare/wattshare/internal/auth/domain"
	"github.com/wattshare/wattshare/pkg/db/pagination"
)

type Service interface {
	Create(ctx context.Context, actor authdomain.Actor, req CreateContributionRequest) (*Contribution, error)
	Get(ctx context.Context, id string) (*Contribution, error)
	List(ctx context.Context, req ListContributionRequest) (ListContributionResponse, error)
	Update(ctx context.Context, actor authdomain.Actor, req UpdateContributionRequest) (*Contribution, error)
	Delete(ctx context.Context, actor authdomain.Actor, id string) error
}

type CreateContributionRequest struct {
	PurchaseID         string  `json:"purchase_id"`
	ContributionAmount float64 `json:"contribution_amount"`
	MeterReading       float64 `json:"meter_reading"`
}

type UpdateContributionRequest struct {
	ID                 string   `json:"-"`
	ContributionAmount *float64 `json:"contribution_amount,omitempty"`
}

type ListContributionRequest struct {
	pagination.Pagination
	UserID    string
	StartDate *time.Time
	EndDate   *time.Time
}

type ListContributionResponse struct {
	pagination.PageInfo
	Contributions []Contribution `json:"contributions"`
}
