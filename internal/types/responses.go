package types

import (
	"time"

	"github.com/Rhymond/go-money"
)

// PositionResponse is the API shape of a position, with amounts rendered
// as display strings alongside the raw minor-unit values.
type PositionResponse struct {
	AccountID     string    `json:"account_id"`
	InstrumentID  string    `json:"instrument_id"`
	Quantity      int64     `json:"quantity"`
	BookValue     int64     `json:"book_value"`
	CurrentValue  int64     `json:"current_value"`
	Growth        int64     `json:"growth"`
	GrowthPercent float64   `json:"growth_percent"`
	Currency      string    `json:"currency"`
	BookValueText string    `json:"book_value_display"`
	CurrentText   string    `json:"current_value_display"`
	GrowthText    string    `json:"growth_display"`
	LastUpdated   time.Time `json:"last_updated"`
}

// NewPositionResponse converts a stored position into its API shape.
func NewPositionResponse(p *Position) PositionResponse {
	return PositionResponse{
		AccountID:     p.AccountID,
		InstrumentID:  p.InstrumentID,
		Quantity:      p.Quantity,
		BookValue:     p.BookValue,
		CurrentValue:  p.CurrentValue,
		Growth:        p.Growth,
		GrowthPercent: p.GrowthPercent,
		Currency:      p.Currency,
		BookValueText: money.New(p.BookValue, p.Currency).Display(),
		CurrentText:   money.New(p.CurrentValue, p.Currency).Display(),
		GrowthText:    money.New(p.Growth, p.Currency).Display(),
		LastUpdated:   p.LastUpdated,
	}
}
