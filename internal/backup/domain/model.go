// Package domain contains the backup document format. Snapshots are flat,
// field-for-field copies with foreign keys as plain id strings, so a dump
// stays readable and diffable outside the service.
package domain

import (
	"context"
	"errors"
	"time"
)

const TypeFull = "full"

// Metadata identifies one backup document.
type Metadata struct {
	ID           string         `json:"id"`
	Timestamp    time.Time      `json:"timestamp"`
	Type         string         `json:"type"`
	RecordCounts map[string]int `json:"recordCounts"`
}

type UserSnapshot struct {
	ID                  string     `json:"id"`
	Email               string     `json:"email"`
	DisplayName         string     `json:"displayName"`
	PasswordHash        *string    `json:"passwordHash,omitempty"`
	Role                string     `json:"role"`
	Permissions         map[string]any `json:"permissions,omitempty"`
	Active              bool       `json:"active"`
	Locked              bool       `json:"locked"`
	FailedLoginAttempts int        `json:"failedLoginAttempts"`
	LastLoginAt         *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt           time.Time  `json:"createdAt"`
	UpdatedAt           time.Time  `json:"updatedAt"`
}

type PurchaseSnapshot struct {
	ID           string    `json:"id"`
	TotalTokens  float64   `json:"totalTokens"`
	TotalPayment float64   `json:"totalPayment"`
	MeterReading float64   `json:"meterReading"`
	PurchaseDate time.Time `json:"purchaseDate"`
	IsEmergency  bool      `json:"isEmergency"`
	CreatedBy    string    `json:"createdBy"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type ContributionSnapshot struct {
	ID                 string    `json:"id"`
	PurchaseID         string    `json:"purchaseId"`
	UserID             string    `json:"userId"`
	ContributionAmount float64   `json:"contributionAmount"`
	MeterReading       float64   `json:"meterReading"`
	TokensConsumed     float64   `json:"tokensConsumed"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

type MeterReadingSnapshot struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Reading     float64   `json:"reading"`
	ReadingDate time.Time `json:"readingDate"`
	Notes       string    `json:"notes,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type ReceiptSnapshot struct {
	ID          string    `json:"id"`
	PurchaseID  string    `json:"purchaseId"`
	FileName    string    `json:"fileName"`
	MimeType    string    `json:"mimeType"`
	TotalAmount float64   `json:"totalAmount"`
	UploadedBy  string    `json:"uploadedBy"`
	CreatedAt   time.Time `json:"createdAt"`
}

type SessionSnapshot struct {
	ID               string     `json:"id"`
	UserID           string     `json:"userId"`
	SessionTokenHash string     `json:"sessionTokenHash"`
	UserAgent        string     `json:"userAgent,omitempty"`
	IPAddress        string     `json:"ipAddress,omitempty"`
	ExpiresAt        time.Time  `json:"expiresAt"`
	RevokedAt        *time.Time `json:"revokedAt,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	LastSeenAt       time.Time  `json:"lastSeenAt"`
}

// Document is a full household snapshot. Accounts and verification tokens
// are always empty; the fields exist for compatibility with the historical
// dump format, which kept credentials in separate tables.
type Document struct {
	Metadata           Metadata               `json:"metadata"`
	Users              []UserSnapshot         `json:"users"`
	TokenPurchases     []PurchaseSnapshot     `json:"tokenPurchases"`
	UserContributions  []ContributionSnapshot `json:"userContributions"`
	MeterReadings      []MeterReadingSnapshot `json:"meterReadings"`
	ReceiptData        []ReceiptSnapshot      `json:"receiptData"`
	Accounts           []map[string]any       `json:"accounts"`
	Sessions           []SessionSnapshot      `json:"sessions"`
	VerificationTokens []map[string]any       `json:"verificationTokens"`
}

type ExportOptions struct {
	Compress bool
}

type Service interface {
	Export(ctx context.Context) (*Document, error)
	// Encode serializes a document, optionally snappy-compressed.
	Encode(doc *Document, opts ExportOptions) ([]byte, error)
	// Decode accepts plain or snappy-compressed payloads.
	Decode(raw []byte) (*Document, error)
	Restore(ctx context.Context, doc *Document) error
}

var (
	ErrInvalidDocument = errors.New("invalid backup document")
	ErrInvalidType     = errors.New("unsupported backup type")
)
