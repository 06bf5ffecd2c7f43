// Package domain contains the contribution-gate decision types. A denial is
// an ordinary value, never an error; only query failures surface as errors.
package domain

import (
	"github.com/bwmarrin/snowflake"
	purchasedomain "github.com/wattshare/wattshare/internal/purchase/domain"
)

// Reason codes carried on denials. Clients branch on these, not on the
// human-readable message.
const (
	ReasonSequentialContributionRequired     = "SEQUENTIAL_CONTRIBUTION_REQUIRED"
	ReasonPreviousPurchaseUnfunded           = "PREVIOUS_PURCHASE_UNFUNDED"
	ReasonGlobalLatestContributionOnly       = "GLOBAL_LATEST_CONTRIBUTION_ONLY"
	ReasonPreventMultipleUnconsumedPurchases = "PREVENT_MULTIPLE_UNCONSUMED_PURCHASES"
	ReasonPurchaseAlreadyFunded              = "PURCHASE_ALREADY_FUNDED"
)

// Status describes the head of the funding queue.
type Status struct {
	Purchase                 *purchasedomain.Purchase `json:"purchase,omitempty"`
	CountWithoutContribution int                      `json:"count_without_contribution"`
	AllSatisfied             bool                     `json:"all_satisfied"`
}

// Decision is the outcome of a gate check.
type Decision struct {
	Allowed                 bool          `json:"allowed"`
	Reason                  string        `json:"reason,omitempty"`
	ReasonCode              string        `json:"reason_code,omitempty"`
	BlockingPurchaseID      *snowflake.ID `json:"blocking_purchase_id,omitempty"`
	NextAvailablePurchaseID *snowflake.ID `json:"next_available_purchase_id,omitempty"`
}

// Allow is the passing decision.
func Allow() Decision { return Decision{Allowed: true} }

// DeniedError adapts a denial into an error for callers that must abort a
// mutation on it. The decision rides along for HTTP mapping.
type DeniedError struct {
	Decision Decision
}

func (e *DeniedError) Error() string {
	if e.Decision.Reason != "" {
		return e.Decision.Reason
	}
	return "denied by contribution gate"
}

// Deny wraps a denial as an error.
func Deny(d Decision) error { return &DeniedError{Decision: d} }
