package series

import (
	"time"
)

type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusRejected  Status = "REJECTED"
	StatusUpcoming  Status = "upcoming"
	StatusAccepting Status = "accepting"
	StatusActive    Status = "active"
	StatusMatured   Status = "matured"
)

// Series is a named debenture offering. Date fields keep the string the
// admin entered (DD/MM/YYYY or YYYY-MM-DD); they are parsed on demand.
type Series struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Status Status `json:"status"`

	IssueDate             string `json:"issueDate"`
	MaturityDate          string `json:"maturityDate"`
	SubscriptionStartDate string `json:"subscriptionStartDate"`
	SubscriptionEndDate   string `json:"subscriptionEndDate"`
	LockInDate            string `json:"lockInDate,omitempty"`
	ReleaseDate           string `json:"releaseDate,omitempty"`

	FaceValue          float64 `json:"faceValue"`
	MinInvestment      float64 `json:"minInvestment"`
	TargetAmount       float64 `json:"targetAmount"`
	TotalIssueSize     float64 `json:"totalIssueSize"`
	InterestRate       float64 `json:"interestRate"`      // percent per annum
	InterestFrequency  string  `json:"interestFrequency"` // display only; payouts are monthly
	InterestPaymentDay int     `json:"interestPaymentDay"`
	LockInMonths       int     `json:"lockInMonths,omitempty"`
	TenureMonths       int     `json:"tenureMonths,omitempty"`

	// SeedAmount is money raised before investor tracking existed; it is
	// added to FundsRaised on every recalculation.
	SeedAmount float64 `json:"seedAmount,omitempty"`

	// Derived, recomputed from the investor list. Never trusted as input.
	Investors   int       `json:"investors"`
	FundsRaised float64   `json:"fundsRaised"`
	LastUpdated time.Time `json:"lastUpdated"`

	CreatedAt       time.Time  `json:"createdAt"`
	ApprovedAt      *time.Time `json:"approvedAt,omitempty"`
	RejectedAt      *time.Time `json:"rejectedAt,omitempty"`
	RejectionReason string     `json:"rejectionReason,omitempty"`
}

// Deletable reports whether a series in status st may be removed.
func Deletable(st Status) bool {
	return st == StatusDraft || st == StatusUpcoming
}

// Open reports whether new money can be booked against a series in st.
func Open(st Status) bool {
	return st == StatusAccepting || st == StatusActive
}
