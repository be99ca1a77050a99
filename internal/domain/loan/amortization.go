package loan

import (
	"fmt"
	"loan-engine/internal/pkg/apperrors"
	"time"

	"github.com/shopspring/decimal"
)

// CurrencyScale is the number of decimal places kept on money amounts.
const CurrencyScale = 2

var one = decimal.NewFromInt(1)

// ComputeInstallment returns the fixed payment P·r·(1+r)^n / ((1+r)^n − 1),
// or P/n when the rate is zero, rounded half-up to cents.
func ComputeInstallment(principal, periodicRate decimal.Decimal, termMonths int) (decimal.Decimal, error) {
	if err := validateTerms(principal, periodicRate, termMonths); err != nil {
		return decimal.Zero, err
	}

	n := decimal.NewFromInt(int64(termMonths))
	if periodicRate.IsZero() {
		return principal.DivRound(n, CurrencyScale), nil
	}

	factor := pow(one.Add(periodicRate), termMonths)
	numerator := principal.Mul(periodicRate).Mul(factor)
	denominator := factor.Sub(one)

	return numerator.DivRound(denominator, CurrencyScale), nil
}

// GenerateSchedule splits the loan into TermMonths installments of the
// loan's PeriodicInstallment, computing it first when unset. The last
// installment takes whatever principal remains so the portions sum to the
// principal exactly.
func GenerateSchedule(l *Loan) ([]Installment, error) {
	periodicRate, err := ToPeriodicRate(l.AnnualRate)
	if err != nil {
		return nil, err
	}

	installment, err := ComputeInstallment(l.Principal, periodicRate, l.TermMonths)
	if err != nil {
		return nil, err
	}
	if l.PeriodicInstallment.IsPositive() {
		installment = l.PeriodicInstallment
	}

	schedule := make([]Installment, 0, l.TermMonths)
	remaining := l.Principal
	principalSum := decimal.Zero

	for seq := 1; seq <= l.TermMonths; seq++ {
		interest := remaining.Mul(periodicRate).Round(CurrencyScale)

		principalPart := installment.Sub(interest)
		if seq == l.TermMonths || principalPart.GreaterThan(remaining) {
			principalPart = remaining
		}
		if principalPart.IsNegative() {
			return nil, fmt.Errorf("%w: installment %d does not cover its interest (%s < %s)",
				apperrors.ErrInternalServer, seq, installment, interest)
		}

		remaining = remaining.Sub(principalPart)
		principalSum = principalSum.Add(principalPart)

		schedule = append(schedule, Installment{
			LoanID:           l.ID,
			SequenceNumber:   seq,
			DueDate:          addMonths(l.StartDate, seq),
			InterestPortion:  interest,
			PrincipalPortion: principalPart,
		})
	}

	if !principalSum.Equal(l.Principal) {
		return nil, fmt.Errorf("%w: schedule generation failed sanity check - principal sum %s != principal %s",
			apperrors.ErrInternalServer, principalSum, l.Principal)
	}

	return schedule, nil
}

// Quote is a schedule preview for terms that have not been persisted.
type Quote struct {
	PeriodicRate  decimal.Decimal
	Installment   decimal.Decimal
	TotalInterest decimal.Decimal
	TotalPayment  decimal.Decimal
	Schedule      []Installment
}

func NewQuote(principal, annualRate decimal.Decimal, termMonths int, startDate time.Time) (*Quote, error) {
	periodicRate, err := ToPeriodicRate(annualRate)
	if err != nil {
		return nil, err
	}

	if startDate.IsZero() {
		startDate = time.Now().UTC()
	}

	preview := &Loan{
		Principal:  principal,
		AnnualRate: annualRate,
		TermMonths: termMonths,
		StartDate:  truncateToDay(startDate),
	}

	installment, err := ComputeInstallment(principal, periodicRate, termMonths)
	if err != nil {
		return nil, err
	}

	schedule, err := GenerateSchedule(preview)
	if err != nil {
		return nil, err
	}
	preview.Installments = schedule

	totalInterest := preview.TotalInterest()
	return &Quote{
		PeriodicRate:  periodicRate,
		Installment:   installment,
		TotalInterest: totalInterest,
		TotalPayment:  principal.Add(totalInterest),
		Schedule:      schedule,
	}, nil
}

func validateTerms(principal, periodicRate decimal.Decimal, termMonths int) error {
	if !principal.IsPositive() {
		return fmt.Errorf("%w: principal must be greater than zero, got %s", apperrors.ErrInvalidPrincipal, principal)
	}
	if !principal.Equal(principal.Truncate(CurrencyScale)) {
		return fmt.Errorf("%w: principal allows at most %d decimal places, got %s",
			apperrors.ErrInvalidPrincipal, CurrencyScale, principal)
	}
	if termMonths <= 0 || termMonths > MaxTermMonths {
		return fmt.Errorf("%w: term must be between 1 and %d months, got %d", apperrors.ErrInvalidTerm, MaxTermMonths, termMonths)
	}
	if periodicRate.IsNegative() {
		return fmt.Errorf("%w: rate must not be negative, got %s", apperrors.ErrInvalidRate, periodicRate)
	}
	return nil
}

// pow raises base to a non-negative integer power without losing precision.
func pow(base decimal.Decimal, exp int) decimal.Decimal {
	result := one
	for exp > 0 {
		if exp&1 == 1 {
			result = result.Mul(base)
		}
		base = base.Mul(base)
		exp >>= 1
	}
	return result
}

// addMonths moves t forward by months, clamping to the last day of the target
// month: Jan 31 + 1 month is Feb 28 (or 29).
func addMonths(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	lastDay := first.AddDate(0, 1, -1).Day()
	if d > lastDay {
		d = lastDay
	}
	return time.Date(first.Year(), first.Month(), d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}
