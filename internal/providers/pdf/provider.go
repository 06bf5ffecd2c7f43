// Package pdf renders household statements with maroto.
package pdf

import (
	"context"
	"io"
)

type StatementLine struct {
	PurchaseDate    string
	Tokens          string
	Payment         string
	MeterReading    string
	ContributorName string
	Contribution    string
	TokensConsumed  string
	FairShare       string
}

type MemberLine struct {
	Name        string
	Contributed string
	FairShare   string
	Balance     string
}

type StatementData struct {
	HouseholdName string
	Period        string
	GeneratedAt   string
	EnergyUnit    string

	Lines   []StatementLine
	Members []MemberLine

	GlobalBalance string
}

type Provider interface {
	GenerateStatement(ctx context.Context, data StatementData) (io.Reader, error)
}
