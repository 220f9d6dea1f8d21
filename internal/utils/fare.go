package utils

import "railticket/internal/domain/models"

// Seat classes by seat number.
const (
	SeatClassVIP      = "vip"
	SeatClassFirst    = "first"
	SeatClassStandard = "standard"
)

// SeatClass returns the class of a seat: 1-20 VIP, 21-40 first class, the rest standard.
func SeatClass(seat int) string {
	switch {
	case seat >= 1 && seat <= 20:
		return SeatClassVIP
	case seat >= 21 && seat <= 40:
		return SeatClassFirst
	default:
		return SeatClassStandard
	}
}

// SeatMultiplier is the fare multiplier of the seat's class.
func SeatMultiplier(seat int) float64 {
	switch SeatClass(seat) {
	case SeatClassVIP:
		return 2
	case SeatClassFirst:
		return 1.5
	default:
		return 1
	}
}

// ComputeSeatFare returns the charged price of one seat for a segment priced at base.
func ComputeSeatFare(base models.Money, seat int) models.Money {
	return base.Scale(SeatMultiplier(seat))
}

// RefundDeductionPercent is 25 when the departure is at most 24 hours away, otherwise 10.
func RefundDeductionPercent(hoursToDeparture float64) int {
	if hoursToDeparture <= 24 {
		return 25
	}
	return 10
}

// ComputeRefund applies the deduction to the paid price.
func ComputeRefund(paid models.Money, deductionPercent int) models.Money {
	return paid.Scale(float64(100-deductionPercent) / 100)
}
