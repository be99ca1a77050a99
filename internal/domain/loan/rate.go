package loan

import (
	"fmt"
	"loan-engine/internal/pkg/apperrors"

	"github.com/shopspring/decimal"
)

const (
	// PeriodicRateScale is the number of decimal places kept on the monthly rate.
	PeriodicRateScale = 6
	// AnnualRateScale matches the annual_rate column, NUMERIC(9,4).
	AnnualRateScale = 4
)

var percentMonthsPerYear = decimal.NewFromInt(1200)

// ToPeriodicRate converts a nominal annual percentage into a monthly rate,
// e.g. 12 becomes 0.010000.
func ToPeriodicRate(annualRatePercent decimal.Decimal) (decimal.Decimal, error) {
	if annualRatePercent.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: annual rate must not be negative, got %s", apperrors.ErrInvalidRate, annualRatePercent)
	}
	if !annualRatePercent.Equal(annualRatePercent.Truncate(AnnualRateScale)) {
		return decimal.Zero, fmt.Errorf("%w: annual rate allows at most %d decimal places, got %s",
			apperrors.ErrInvalidRate, AnnualRateScale, annualRatePercent)
	}
	return annualRatePercent.DivRound(percentMonthsPerYear, PeriodicRateScale), nil
}
