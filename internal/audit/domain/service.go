package domain

import (
	"context"
	"errors"
	"time"

	"github.com/wattshare/wattshare/pkg/db/pagination"
	"gorm.io/gorm"
)

// Entry is the write-side shape of an audit record. Old and new values
// capture the row before and after a mutation.
type Entry struct {
	ActorID    *string
	Action     string
	TargetType string
	TargetID   *string
	OldValues  map[string]any
	NewValues  map[string]any
}

type ListAuditLogRequest struct {
	pagination.Pagination
	Action     string
	TargetType string
	TargetID   string
	ActorID    string
	StartAt    *time.Time
	EndAt      *time.Time
}

type ListAuditLogResponse struct {
	pagination.PageInfo
	AuditLogs []AuditLog `json:"audit_logs"`
}

type Service interface {
	Record(ctx context.Context, entry Entry) error
	// RecordWithDB writes the entry through a caller-supplied handle so the
	// audit row commits or rolls back with the mutation it describes.
	RecordWithDB(ctx context.Context, db *gorm.DB, entry Entry) error
	List(ctx context.Context, req ListAuditLogRequest) (ListAuditLogResponse, error)
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *AuditLog) error
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*AuditLog, error)
}

var (
	ErrInvalidPageToken = errors.New("invalid_page_token")
	ErrInvalidTimeRange = errors.New("invalid_time_range")
	ErrInvalidAction    = errors.New("invalid_action")
)
