package services

import (
	"math"
	"time"
)

// maxRentalDays bounds a single contract to ten years
const maxRentalDays = 3650

// QuoteInput is everything needed to price a rental
type QuoteInput struct {
	StartDate      time.Time
	DurationDays   int
	Fees           float64
	DailyRate      float64
	AddOnDaily     float64
	InsuranceDaily float64
}

// Quote is the priced rental period
type Quote struct {
	StartDate       Date    `json:"start_date"`
	EndDate         Date    `json:"end_date"`
	DurationDays    int     `json:"duration_days"`
	DailyRate       float64 `json:"daily_rate"`
	AddOnDailyTotal float64 `json:"add_on_daily_total"`
	InsuranceDaily  float64 `json:"insurance_daily_rate"`
	DailyTotal      float64 `json:"daily_total"`
	TotalAmount     float64 `json:"total_amount"`
}

func toCents(v float64) int64 {
	return int64(math.Round(v * 100))
}

func fromCents(c int64) float64 {
	return float64(c) / 100
}

// DaysForFees is the number of whole days the fees pay for, rounded up
func DaysForFees(fees, dailyRate float64) (int, error) {
	rate := toCents(dailyRate)
	if rate <= 0 {
		return 0, badRequest("daily_rate must be greater than 0 to derive the duration from fees")
	}
	amount := toCents(fees)
	if amount <= 0 {
		return 0, badRequest("fees must be greater than 0")
	}
	days := (amount + rate - 1) / rate
	if days > maxRentalDays {
		return 0, badRequest("fees cover more than the maximum rental period")
	}
	return int(days), nil
}

// ComputeQuote prices a rental. An explicit duration wins over fees.
func ComputeQuote(in QuoteInput) (Quote, error) {
	if in.StartDate.IsZero() {
		return Quote{}, badRequest("start_date is required")
	}
	if in.DailyRate < 0 || in.AddOnDaily < 0 || in.InsuranceDaily < 0 {
		return Quote{}, badRequest("rates must not be negative")
	}

	days := in.DurationDays
	switch {
	case days < 0:
		return Quote{}, badRequest("duration_days must not be negative")
	case days == 0 && in.Fees > 0:
		var err error
		if days, err = DaysForFees(in.Fees, in.DailyRate); err != nil {
			return Quote{}, err
		}
	case days == 0:
		return Quote{}, badRequest("duration_days or fees is required")
	case days > maxRentalDays:
		return Quote{}, badRequest("duration_days exceeds the maximum rental period")
	}

	daily := toCents(in.DailyRate) + toCents(in.AddOnDaily) + toCents(in.InsuranceDaily)
	start := in.StartDate
	return Quote{
		StartDate:       Date{start},
		EndDate:         Date{start.AddDate(0, 0, days)},
		DurationDays:    days,
		DailyRate:       fromCents(toCents(in.DailyRate)),
		AddOnDailyTotal: fromCents(toCents(in.AddOnDaily)),
		InsuranceDaily:  fromCents(toCents(in.InsuranceDaily)),
		DailyTotal:      fromCents(daily),
		TotalAmount:     fromCents(daily * int64(days)),
	}, nil
}
