package series

import (
	domain "ncd-admin-backend/internal/domain/series"
)

type CreateInput struct {
	Name                  string
	IssueDate             string
	MaturityDate          string
	SubscriptionStartDate string
	SubscriptionEndDate   string
	LockInDate            string

	FaceValue          float64
	MinInvestment      float64
	TargetAmount       float64
	TotalIssueSize     float64
	InterestRate       float64
	InterestFrequency  string
	InterestPaymentDay int
	LockInMonths       int
	TenureMonths       int
	SeedAmount         float64
}

// UpdateInput carries only the fields being edited; nil means unchanged.
// Derived fields (investors, funds raised, status) cannot be set.
type UpdateInput struct {
	Name                  *string
	IssueDate             *string
	MaturityDate          *string
	SubscriptionStartDate *string
	SubscriptionEndDate   *string
	LockInDate            *string

	FaceValue          *float64
	MinInvestment      *float64
	TargetAmount       *float64
	TotalIssueSize     *float64
	InterestRate       *float64
	InterestFrequency  *string
	InterestPaymentDay *int
	LockInMonths       *int
	TenureMonths       *int
}

// ApproveInput opens a draft. Issue and maturity dates are optional
// overrides of what the draft already carries.
type ApproveInput struct {
	SubscriptionStartDate string
	SubscriptionEndDate   string
	IssueDate             string
	MaturityDate          string
}

// Holder is one investor's position in a series.
type Holder struct {
	InvestorID string  `json:"investorId"`
	Name       string  `json:"name"`
	Amount     float64 `json:"amount"`
}

type Detail struct {
	domain.Series
	Holders []Holder `json:"holders"`
}
