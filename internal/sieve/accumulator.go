package sieve

import (
	"math/big"
	"math/bits"
	"strconv"

	"github.com/cockroachdb/apd/v3"
)

// DefaultDigits is the decimal precision used when none is configured.
// Matches the release computation.
const DefaultDigits = 50

// Precision selects the arithmetic mode for harmonic accumulation.
// The variants are a sealed set; dispatch sites switch exhaustively.
type Precision interface {
	precisionMode() string
}

// Exact accumulates reduced rationals with no precision loss.
type Exact struct{}

func (Exact) precisionMode() string { return "exact" }

// Decimal accumulates fixed-precision decimals with ceiling rounding at
// every step. Digits 0 means DefaultDigits.
type Decimal struct {
	Digits uint32
}

func (Decimal) precisionMode() string { return "decimal" }

// ModeName returns the stable name of a precision mode ("exact"|"decimal").
func ModeName(p Precision) string {
	return p.precisionMode()
}

// Digits returns the effective decimal precision for a mode.
// Exact mode reports 0.
func Digits(p Precision) uint32 {
	switch m := p.(type) {
	case Exact:
		return 0
	case Decimal:
		if m.Digits == 0 {
			return DefaultDigits
		}
		return m.Digits
	default:
		return DefaultDigits
	}
}

// Accumulator folds harmonic terms 1/(q*phi(q)) into a running sum.
//
// Add returns the rendered term so streaming callers emit exactly the value
// that was accumulated. Seed restores a previously emitted cumulative value
// for resumable streams; accumulation from a seeded state is byte-identical
// to an unbroken run.
type Accumulator interface {
	Add(q, phi uint64) (term string, err error)
	Cumulative() string
	Seed(cumulative string) error
}

// NewAccumulator creates an accumulator for the given precision mode.
func NewAccumulator(p Precision) (Accumulator, error) {
	switch m := p.(type) {
	case Exact:
		return newExactAccumulator(), nil
	case Decimal:
		return newDecimalAccumulator(Digits(m)), nil
	default:
		return nil, NewDomainError("precision", ModeName(p), "must be exact or decimal")
	}
}

// ExactAccumulator keeps the running sum as a reduced big.Rat.
type ExactAccumulator struct {
	sum  *big.Rat
	term *big.Rat
	den  *big.Int
}

func newExactAccumulator() *ExactAccumulator {
	return &ExactAccumulator{
		sum:  new(big.Rat),
		term: new(big.Rat),
		den:  new(big.Int),
	}
}

// Add folds 1/(q*phi) into the sum and returns the term as "1/<q*phi>".
func (a *ExactAccumulator) Add(q, phi uint64) (string, error) {
	if q < 1 || phi < 1 {
		return "", NewDomainError("q*phi", denomString(q, phi), "q and phi must be >= 1")
	}
	a.den.SetUint64(q)
	a.den.Mul(a.den, new(big.Int).SetUint64(phi))
	a.term.SetFrac(big.NewInt(1), a.den)
	a.sum.Add(a.sum, a.term)
	return a.term.RatString(), nil
}

// Cumulative returns the reduced rational sum as "num/den".
func (a *ExactAccumulator) Cumulative() string {
	return a.sum.RatString()
}

// Seed restores the sum from a previously emitted cumulative value.
func (a *ExactAccumulator) Seed(cumulative string) error {
	if _, ok := a.sum.SetString(cumulative); !ok {
		return NewDomainError("cumulative", cumulative, "must be a rational number")
	}
	return nil
}

// Rat returns a copy of the exact running sum.
func (a *ExactAccumulator) Rat() *big.Rat {
	return new(big.Rat).Set(a.sum)
}

// DecimalAccumulator keeps the running sum as an apd decimal, rounding up
// (toward +inf) at every division and addition. The reported sum is
// therefore never less than the true sum.
type DecimalAccumulator struct {
	actx *apd.Context
	sum  *apd.Decimal
	term *apd.Decimal
	den  *apd.Decimal
	one  *apd.Decimal
}

func newDecimalAccumulator(digits uint32) *DecimalAccumulator {
	actx := apd.BaseContext.WithPrecision(digits)
	actx.Rounding = apd.RoundCeiling
	return &DecimalAccumulator{
		actx: actx,
		sum:  new(apd.Decimal),
		term: new(apd.Decimal),
		den:  new(apd.Decimal),
		one:  apd.New(1, 0),
	}
}

// Add folds 1/(q*phi) into the sum and returns the ceiling-rounded term.
func (a *DecimalAccumulator) Add(q, phi uint64) (string, error) {
	if q < 1 || phi < 1 {
		return "", NewDomainError("q*phi", denomString(q, phi), "q and phi must be >= 1")
	}
	if _, _, err := a.den.SetString(denomString(q, phi)); err != nil {
		return "", err
	}
	res, err := a.actx.Quo(a.term, a.one, a.den)
	if err != nil {
		return "", err
	}
	// Quo pads exact quotients to the working precision; an exact term
	// carries no trailing zeros.
	if res&apd.Inexact == 0 {
		a.term.Reduce(a.term)
	}
	if _, err := a.actx.Add(a.sum, a.sum, a.term); err != nil {
		return "", err
	}
	return a.term.String(), nil
}

// Cumulative returns the decimal sum string.
func (a *DecimalAccumulator) Cumulative() string {
	return a.sum.String()
}

// Seed restores the sum from a previously emitted cumulative value.
func (a *DecimalAccumulator) Seed(cumulative string) error {
	if _, _, err := a.sum.SetString(cumulative); err != nil {
		return NewDomainError("cumulative", cumulative, "must be a decimal number")
	}
	return nil
}

// Decimal returns a copy of the decimal running sum.
func (a *DecimalAccumulator) Decimal() *apd.Decimal {
	return new(apd.Decimal).Set(a.sum)
}

// denomString renders q*phi, falling back to big.Int when the product would
// overflow uint64.
func denomString(q, phi uint64) string {
	hi, lo := bits.Mul64(q, phi)
	if hi == 0 {
		return strconv.FormatUint(lo, 10)
	}
	d := new(big.Int).SetUint64(q)
	d.Mul(d, new(big.Int).SetUint64(phi))
	return d.String()
}
