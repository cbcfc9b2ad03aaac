package investor

import (
	domain "ncd-admin-backend/internal/domain/investor"
)

type InvestmentInput struct {
	SeriesID int64
	Amount   float64
	Date     string // defaults to today
}

type CreateInput struct {
	InvestorID  string
	Name        string
	Email       string
	Phone       string
	PAN         string
	KYCStatus   domain.KYCStatus
	Investments []InvestmentInput
}

// UpdateInput edits profile and KYC fields; nil means unchanged.
type UpdateInput struct {
	Name      *string
	Email     *string
	Phone     *string
	PAN       *string
	KYCStatus *domain.KYCStatus
}

// Holding is an investor's position in one series, joined with its name.
type Holding struct {
	SeriesID   int64   `json:"seriesId"`
	SeriesName string  `json:"seriesName"`
	Amount     float64 `json:"amount"`
}

type Detail struct {
	domain.Investor
	Holdings []Holding `json:"holdings"`
}
