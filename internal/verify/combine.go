package verify

import (
	"github.com/cockroachdb/apd/v3"
)

// Combine folds the ledger constants and the envelope contribution into the
// major-arc bound: major = (C_W / R) * contribution, where contribution is
// E(N)*S(Qcap) for scale-uniform models or the per-modulus fold
// sum E_q/(q*phi(q)).
//
// Combine is pure: it validates K > 0, S_floor > 0 and C_W > 0 even though
// only C_W enters the product, because the same constants feed the
// threshold and a nonsensical ledger must fail before any verdict is
// rendered. The resulting margin scales linearly with K and C_W and
// inversely with S_floor through Threshold.
func Combine(actx *apd.Context, k, sFloor, cw, contribution, r *apd.Decimal) (*apd.Decimal, error) {
	if err := requirePositive("K", k); err != nil {
		return nil, err
	}
	if err := requirePositive("S_floor", sFloor); err != nil {
		return nil, err
	}
	if err := requirePositive("C_W", cw); err != nil {
		return nil, err
	}
	major := new(apd.Decimal)
	if _, err := actx.Mul(major, cw, contribution); err != nil {
		return nil, err
	}
	res, err := actx.Quo(major, major, r)
	if err != nil {
		return nil, err
	}
	reduceExact(major, res)
	return major, nil
}

// Threshold computes the allowed major-arc share,
// (S_floor / (8K)) * N / (ln N)^2.
func Threshold(actx *apd.Context, k, sFloor, n, logN *apd.Decimal) (*apd.Decimal, error) {
	if err := requirePositive("K", k); err != nil {
		return nil, err
	}
	if err := requirePositive("S_floor", sFloor); err != nil {
		return nil, err
	}
	threshold := new(apd.Decimal)
	t := new(apd.Decimal)
	l2 := new(apd.Decimal)
	if _, err := actx.Mul(t, apd.New(8, 0), k); err != nil {
		return nil, err
	}
	res, err := actx.Quo(threshold, sFloor, t)
	if err != nil {
		return nil, err
	}
	reduceExact(threshold, res)
	if _, err := actx.Mul(l2, logN, logN); err != nil {
		return nil, err
	}
	res, err = actx.Quo(t, n, l2)
	if err != nil {
		return nil, err
	}
	reduceExact(t, res)
	if _, err := actx.Mul(threshold, threshold, t); err != nil {
		return nil, err
	}
	return threshold, nil
}

// reduceExact strips the trailing zeros Quo pads onto exact quotients.
// Inexact results keep their full working-precision coefficient.
func reduceExact(d *apd.Decimal, res apd.Condition) {
	if res&apd.Inexact == 0 {
		d.Reduce(d)
	}
}

func requirePositive(param string, d *apd.Decimal) error {
	if d == nil || d.Sign() <= 0 {
		value := "nil"
		if d != nil {
			value = d.String()
		}
		return &DomainError{Param: param, Value: value, Constraint: "must be > 0"}
	}
	return nil
}
