package verify

import (
	"math/big"
	"strconv"
	"strings"

	"github.com/cockroachdb/apd/v3"

	"tailcheck/internal/envelope"
	"tailcheck/internal/sieve"
)

// Params are the inputs to one tail inequality check.
type Params struct {
	// N is the even-integer scale, as an integer or scientific-notation
	// literal of arbitrary magnitude ("4e18", "4000000000000000000").
	N string

	// Q is the harmonic cutoff. 0 derives floor(N^(1/5)).
	Q int64

	// Qcap caps the moduli actually summed. 0 means no cap (use Q);
	// negative values are a domain error.
	Qcap int64

	// K is the safety factor, as a decimal literal. Must be > 0.
	K string

	// SFloor is the proved singular-series lower bound. Must be > 0.
	SFloor string

	// Wsup is the supremum weighting factor. Must be > 0.
	Wsup string

	// CW is the window constant. Empty derives the release convention
	// C_W = 2*Wsup.
	CW string

	// Rexp is the exponent of the major/minor-arc split radius R = N^Rexp.
	// Must be > 0; the canonical value is 0.6.
	Rexp string

	// Precision selects exact or decimal arithmetic. Nil means
	// Decimal{DefaultDigits}.
	Precision sieve.Precision

	// Model is the envelope model. Nil means Uniform.
	Model envelope.Model
}

// CanonicalRexp is the published major/minor-arc split exponent, 3/5.
const CanonicalRexp = "0.6"

// ParseN parses an integer or scientific-notation literal into a big
// integer, truncating any fractional part.
func ParseN(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, &DomainError{Param: "N", Value: s, Constraint: "must not be empty"}
	}
	if n, ok := new(big.Int).SetString(s, 10); ok {
		return n, nil
	}

	// Scientific notation: parse the decimal exactly and scale the integer
	// coefficient by the power of ten. No floating-point intermediate, so
	// the result is exact at any magnitude.
	d, _, err := apd.NewFromString(s)
	if err != nil || d.Form != apd.Finite {
		return nil, &DomainError{Param: "N", Value: s, Constraint: "must be an integer or scientific-notation number"}
	}
	n := new(big.Int).Set(d.Coeff.MathBigInt())
	if d.Negative {
		n.Neg(n)
	}
	switch {
	case d.Exponent > 0:
		n.Mul(n, new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(d.Exponent)), nil))
	case d.Exponent < 0:
		// Truncate any fractional part toward zero.
		n.Quo(n, new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(-d.Exponent)), nil))
	}
	return n, nil
}

// NthRootFloor returns floor(n^(1/k)) for n >= 0, k >= 1.
func NthRootFloor(n *big.Int, k int64) (*big.Int, error) {
	if n.Sign() < 0 || k < 1 {
		return nil, &DomainError{Param: "root", Value: strconv.FormatInt(k, 10), Constraint: "n must be >= 0 and k >= 1"}
	}
	if n.Cmp(big.NewInt(2)) < 0 {
		return new(big.Int).Set(n), nil
	}
	kk := big.NewInt(k)
	lo := big.NewInt(0)
	hi := big.NewInt(1)
	for new(big.Int).Exp(hi, kk, nil).Cmp(n) <= 0 {
		hi.Lsh(hi, 1)
	}
	one := big.NewInt(1)
	for new(big.Int).Sub(hi, lo).Cmp(one) > 0 {
		mid := new(big.Int).Add(lo, hi)
		mid.Rsh(mid, 1)
		if new(big.Int).Exp(mid, kk, nil).Cmp(n) <= 0 {
			lo = mid
		} else {
			hi = mid
		}
	}
	return lo, nil
}

// parsePositive parses a decimal literal and requires it to be > 0.
func parsePositive(param, value string) (*apd.Decimal, error) {
	d, _, err := apd.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return nil, &DomainError{Param: param, Value: value, Constraint: "must be a decimal number"}
	}
	if d.Sign() <= 0 {
		return nil, &DomainError{Param: param, Value: value, Constraint: "must be > 0"}
	}
	return d, nil
}
