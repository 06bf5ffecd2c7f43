// Package domain contains the reporting surface: CSV exports and the PDF
// household statement.
package domain

import (
	"context"
	"errors"
	"io"
)

const (
	TablePurchases     = "purchases"
	TableContributions = "contributions"
	TableMeterReadings = "meter_readings"
)

type Service interface {
	// ExportCSV streams one table as CSV.
	ExportCSV(ctx context.Context, table string, w io.Writer) error
	// SettlementCSV streams the combined settlement view: one line per
	// purchase with its contribution, fair share and running balance.
	SettlementCSV(ctx context.Context, w io.Writer) error
	// StatementPDF renders the household statement.
	StatementPDF(ctx context.Context) (io.Reader, error)
}

var ErrUnknownTable = errors.New("unknown export table")
