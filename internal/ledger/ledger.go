// Package ledger splits monetary totals into installment schedules.
//
// Amounts are exact decimals with two fractional digits. Every schedule
// produced here sums to the requested total, so callers can persist the
// result without further rounding.
package ledger

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidCount = errors.New("installment count must be at least 1")
	ErrInvalidStep  = errors.New("schedule step must be at least one month")
	ErrInvalidScale = errors.New("amount must have at most two decimal places")
	ErrSumMismatch  = errors.New("installment amounts do not sum to the total")
)

var cent = decimal.New(1, -2)

// Slice is one scheduled installment of a total.
type Slice struct {
	Sequence int
	DueDate  time.Time
	Amount   decimal.Decimal
}

// Split divides total into count monthly installments starting at firstDue.
func Split(total decimal.Decimal, count int, firstDue time.Time) ([]Slice, error) {
	return Schedule(total, count, firstDue, 1)
}

// Schedule divides total into count installments spaced stepMonths apart.
// Due dates are always derived from firstDue, so a 31st start keeps landing
// on the last day of shorter months instead of drifting.
func Schedule(total decimal.Decimal, count int, firstDue time.Time, stepMonths int) ([]Slice, error) {
	if count < 1 {
		return nil, ErrInvalidCount
	}
	if stepMonths < 1 {
		return nil, ErrInvalidStep
	}
	if !IsCents(total) {
		return nil, ErrInvalidScale
	}

	amounts := Amounts(total, count)
	slices := make([]Slice, count)
	for i, amount := range amounts {
		slices[i] = Slice{
			Sequence: i + 1,
			DueDate:  AddMonths(firstDue, i*stepMonths),
			Amount:   amount,
		}
	}

	if err := Verify(total, amounts); err != nil {
		return nil, err
	}
	return slices, nil
}

// Amounts returns the per-installment amounts for total split count ways.
// Each amount is the rounded nominal share; the rounding remainder is moved
// one cent at a time onto the last installments.
func Amounts(total decimal.Decimal, count int) []decimal.Decimal {
	n := decimal.NewFromInt(int64(count))
	base := Average(total, count)

	remainder := total.Sub(base.Mul(n)).Shift(2).IntPart()
	step := cent
	if remainder < 0 {
		step = cent.Neg()
		remainder = -remainder
	}

	amounts := make([]decimal.Decimal, count)
	for i := range amounts {
		amounts[i] = base
		if int64(count-i) <= remainder {
			amounts[i] = base.Add(step)
		}
	}
	return amounts
}

// Average returns total divided by count, rounded half-to-even to cents.
func Average(total decimal.Decimal, count int) decimal.Decimal {
	if count < 1 {
		return decimal.Zero
	}
	return total.Div(decimal.NewFromInt(int64(count))).RoundBank(2)
}

// Sum adds amounts exactly.
func Sum(amounts []decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

// Verify reports ErrSumMismatch when amounts do not add up to total.
func Verify(total decimal.Decimal, amounts []decimal.Decimal) error {
	if sum := Sum(amounts); !sum.Equal(total) {
		return fmt.Errorf("%w: sum %s, total %s", ErrSumMismatch, sum.StringFixed(2), total.StringFixed(2))
	}
	return nil
}

// MaxAmount is the exclusive magnitude bound of a stored amount (numeric(14,2)).
var MaxAmount = decimal.New(1, 12)

// InRange reports whether d fits a stored amount column.
func InRange(d decimal.Decimal) bool {
	return d.Abs().LessThan(MaxAmount)
}

// IsCents reports whether d has no more than two significant fractional digits.
func IsCents(d decimal.Decimal) bool {
	return d.Equal(d.Round(2))
}
