package verify

import (
	"context"
	"math/big"
	"strconv"

	"github.com/cockroachdb/apd/v3"

	"tailcheck/internal/envelope"
	"tailcheck/internal/sieve"
)

// Verdict is the outcome of a tail inequality check.
type Verdict string

const (
	// VerdictPass means total_bound < threshold is proved at the working
	// precision.
	VerdictPass Verdict = "PASS"

	// VerdictFail means total_bound >= threshold is proved, or (exact mode
	// only) the strict inequality could not be proved at the escalation
	// limit.
	VerdictFail Verdict = "FAIL"

	// VerdictIndeterminate means the decimal precision cannot resolve the
	// sign of the margin. Rerun in exact mode; assume neither direction.
	VerdictIndeterminate Verdict = "INDETERMINATE"
)

// displayDigits is the significant-digit count used for reported scalars.
// Working precision is far higher; reported values are roundings.
const displayDigits = 12

// Exact-mode escalation bounds.
const (
	exactStartDigits = 60
	exactMaxDigits   = 960
)

// opSlackUlps is the flat per-evaluation error allowance on top of the one
// ulp charged per harmonic accumulation step. It covers the fixed chain of
// multiplications, divisions, Ln and Pow calls in one evaluation.
const opSlackUlps = 64

// Result reports one tail inequality check. Scalars are decimal strings
// rounded to displayDigits significant digits; HarmonicSumExact carries the
// full reduced rational in exact mode.
type Result struct {
	N                string  `json:"n"`
	Mode             string  `json:"mode"`
	Precision        uint32  `json:"precision"`
	Model            string  `json:"model"`
	Q                int64   `json:"q"`
	Qcap             int64   `json:"qcap"`
	LogN             string  `json:"log_n"`
	R                string  `json:"r"`
	HarmonicSum      string  `json:"harmonic_sum"`
	HarmonicSumExact string  `json:"harmonic_sum_exact,omitempty"`
	MajorBound       string  `json:"major_bound"`
	MinorBound       string  `json:"minor_bound"`
	TotalBound       string  `json:"total_bound"`
	Threshold        string  `json:"threshold"`
	Margin           string  `json:"margin"`
	Ratio            string  `json:"ratio"`
	FallbackCount    int64   `json:"fallback_count"`
	Verdict          Verdict `json:"verdict"`
	Note             string  `json:"note,omitempty"`
}

// PrecisionErr returns a PrecisionError when the verdict is Indeterminate,
// nil otherwise. It lets callers that want error plumbing surface the
// outcome without ever mistaking it for Pass.
func (r *Result) PrecisionErr() error {
	if r.Verdict != VerdictIndeterminate {
		return nil
	}
	return &PrecisionError{Precision: r.Precision, Threshold: r.Threshold, Total: r.TotalBound}
}

// Check evaluates the tail inequality for the given parameters.
func Check(ctx context.Context, p Params) (*Result, error) {
	c, err := newChecker(p)
	if err != nil {
		return nil, err
	}

	switch mode := c.precision.(type) {
	case sieve.Decimal:
		digits := sieve.Digits(mode)
		ev, err := c.evaluate(ctx, digits)
		if err != nil {
			return nil, err
		}
		verdict := ev.decide()
		return c.result(ev, digits, verdict, ""), nil

	case sieve.Exact:
		if err := c.computeExactSum(ctx); err != nil {
			return nil, err
		}
		var last *evaluation
		for digits := uint32(exactStartDigits); digits <= exactMaxDigits; digits *= 2 {
			ev, err := c.evaluate(ctx, digits)
			if err != nil {
				return nil, err
			}
			last = ev
			if verdict := ev.decide(); verdict != VerdictIndeterminate {
				return c.result(ev, digits, verdict, ""), nil
			}
		}
		// The strict inequality could not be separated from equality even
		// at the escalation limit. Declaring Pass would be unsound.
		return c.result(last, exactMaxDigits, VerdictFail,
			"margin indistinguishable from zero at escalation limit; strict inequality unproven"), nil

	default:
		return nil, &DomainError{Param: "precision", Value: sieve.ModeName(c.precision), Constraint: "must be exact or decimal"}
	}
}

// checker holds validated, parsed parameters for one check.
type checker struct {
	nInt      *big.Int
	nStr      string
	q         int64
	qeff      int64
	k         *apd.Decimal
	sFloor    *apd.Decimal
	wsup      *apd.Decimal
	cw        *apd.Decimal
	rexp      *apd.Decimal
	precision sieve.Precision
	model     envelope.Model

	// exact-mode harmonic sum, computed once
	exactSum *big.Rat
}

func newChecker(p Params) (*checker, error) {
	c := &checker{precision: p.Precision, model: p.Model}
	if c.precision == nil {
		c.precision = sieve.Decimal{}
	}
	if c.model == nil {
		c.model = envelope.Uniform{}
	}

	n, err := ParseN(p.N)
	if err != nil {
		return nil, err
	}
	if n.Cmp(big.NewInt(1)) <= 0 {
		return nil, &DomainError{Param: "N", Value: p.N, Constraint: "must be > 1"}
	}
	c.nInt = n
	c.nStr = n.String()

	if c.k, err = parsePositive("K", p.K); err != nil {
		return nil, err
	}
	if c.sFloor, err = parsePositive("S_floor", p.SFloor); err != nil {
		return nil, err
	}
	if c.wsup, err = parsePositive("Wsup", p.Wsup); err != nil {
		return nil, err
	}
	if c.rexp, err = parsePositive("Rexp", p.Rexp); err != nil {
		return nil, err
	}
	if p.CW == "" {
		// Release convention: C_W = 2*Wsup.
		c.cw = new(apd.Decimal)
		actx := apd.BaseContext.WithPrecision(sieve.DefaultDigits)
		if _, err := actx.Mul(c.cw, apd.New(2, 0), c.wsup); err != nil {
			return nil, err
		}
	} else if c.cw, err = parsePositive("C_W", p.CW); err != nil {
		return nil, err
	}

	switch {
	case p.Q < 0:
		return nil, &DomainError{Param: "Q", Value: strconv.FormatInt(p.Q, 10), Constraint: "must be > 0"}
	case p.Q == 0:
		root, err := NthRootFloor(c.nInt, 5)
		if err != nil {
			return nil, err
		}
		if !root.IsInt64() {
			return nil, &DomainError{Param: "N", Value: p.N, Constraint: "derived cutoff floor(N^(1/5)) exceeds int64"}
		}
		c.q = root.Int64()
	default:
		c.q = p.Q
	}

	switch {
	case p.Qcap < 0:
		return nil, &DomainError{Param: "Qcap", Value: strconv.FormatInt(p.Qcap, 10), Constraint: "must be > 0"}
	case p.Qcap == 0 || p.Qcap > c.q:
		c.qeff = c.q
	default:
		c.qeff = p.Qcap
	}
	return c, nil
}

// computeExactSum streams the exact rational S(qeff) once; escalations
// reuse it.
func (c *checker) computeExactSum(ctx context.Context) error {
	acc, err := sieve.HarmonicSum(ctx, uint64(c.qeff), sieve.Exact{})
	if err != nil {
		return err
	}
	c.exactSum = acc.(*sieve.ExactAccumulator).Rat()
	return nil
}

// evaluation carries every scalar of one evaluated check plus its sound
// bracketing.
type evaluation struct {
	actx        *apd.Context
	logN        *apd.Decimal
	r           *apd.Decimal
	harmonic    *apd.Decimal
	major       *apd.Decimal
	minor       *apd.Decimal
	total       *apd.Decimal
	threshold   *apd.Decimal
	margin      *apd.Decimal
	ratio       *apd.Decimal
	totalHi     *apd.Decimal
	totalLo     *apd.Decimal
	thresholdHi *apd.Decimal
	thresholdLo *apd.Decimal
	fallbacks   int64
}

// evaluate computes every scalar at the given working precision.
func (c *checker) evaluate(ctx context.Context, digits uint32) (*evaluation, error) {
	actx := apd.BaseContext.WithPrecision(digits)
	ev := &evaluation{actx: actx}

	n, _, err := apd.NewFromString(c.nStr)
	if err != nil {
		return nil, err
	}

	env, err := envelope.NewEvaluator(actx, c.model, n)
	if err != nil {
		return nil, err
	}
	ev.logN = env.LogN()

	ed := apd.MakeErrDecimal(actx)
	ev.r = new(apd.Decimal)
	ed.Pow(ev.r, n, c.rexp)
	if err := ed.Err(); err != nil {
		return nil, err
	}

	contribution, err := c.contribution(ctx, ev, env, digits)
	if err != nil {
		return nil, err
	}
	ev.fallbacks = env.Fallbacks()

	if ev.major, err = Combine(actx, c.k, c.sFloor, c.cw, contribution, ev.r); err != nil {
		return nil, err
	}

	// Minor-arc bound: the uniform envelope at scale R, weighted by Wsup.
	ev.minor = new(apd.Decimal)
	lnR := new(apd.Decimal)
	ed.Ln(lnR, ev.r)
	ed.Mul(ev.minor, apd.New(160, 0), lnR)
	ed.Quo(ev.minor, ev.r, ev.minor)
	ed.Mul(ev.minor, ev.minor, c.wsup)

	ev.total = new(apd.Decimal)
	ed.Add(ev.total, ev.major, ev.minor)
	if err := ed.Err(); err != nil {
		return nil, err
	}

	if ev.threshold, err = Threshold(actx, c.k, c.sFloor, n, ev.logN); err != nil {
		return nil, err
	}

	ev.margin = new(apd.Decimal)
	ev.ratio = new(apd.Decimal)
	ed.Sub(ev.margin, ev.threshold, ev.total)
	ed.Quo(ev.ratio, ev.total, ev.threshold)

	// Sound bracketing: one ulp per accumulation step plus a flat allowance
	// for the fixed operation chain, applied as a relative slack.
	slack := new(apd.Decimal)
	one := apd.New(1, 0)
	up := new(apd.Decimal)
	down := new(apd.Decimal)
	ed.Mul(slack, apd.New(c.qeff+opSlackUlps, 0), apd.New(1, 1-int32(digits)))
	ed.Add(up, one, slack)
	ed.Sub(down, one, slack)
	ev.totalHi = new(apd.Decimal)
	ev.totalLo = new(apd.Decimal)
	ev.thresholdHi = new(apd.Decimal)
	ev.thresholdLo = new(apd.Decimal)
	ed.Mul(ev.totalHi, ev.total, up)
	ed.Mul(ev.totalLo, ev.total, down)
	ed.Mul(ev.thresholdHi, ev.threshold, up)
	ed.Mul(ev.thresholdLo, ev.threshold, down)
	if err := ed.Err(); err != nil {
		return nil, err
	}
	return ev, nil
}

// contribution computes the envelope contribution folded with the harmonic
// terms, and fills ev.harmonic with S(qeff) as a side effect.
func (c *checker) contribution(ctx context.Context, ev *evaluation, env *envelope.Evaluator, digits uint32) (*apd.Decimal, error) {
	switch c.model.(type) {
	case envelope.PerModulus:
		return c.perModulusContribution(ctx, ev, env, digits)
	default:
		// Scale-uniform models: contribution = E(N) * S(qeff).
		if err := c.harmonicSum(ctx, ev, digits); err != nil {
			return nil, err
		}
		e, _, err := env.At(0)
		if err != nil {
			return nil, err
		}
		contribution := new(apd.Decimal)
		if _, err := ev.actx.Mul(contribution, e, ev.harmonic); err != nil {
			return nil, err
		}
		return contribution, nil
	}
}

// harmonicSum fills ev.harmonic with S(qeff) in the working precision.
func (c *checker) harmonicSum(ctx context.Context, ev *evaluation, digits uint32) error {
	switch c.precision.(type) {
	case sieve.Exact:
		num, _, err := apd.NewFromString(c.exactSum.Num().String())
		if err != nil {
			return err
		}
		den, _, err := apd.NewFromString(c.exactSum.Denom().String())
		if err != nil {
			return err
		}
		ev.harmonic = new(apd.Decimal)
		res, err := ev.actx.Quo(ev.harmonic, num, den)
		if err != nil {
			return err
		}
		reduceExact(ev.harmonic, res)
		return nil
	default:
		acc, err := sieve.HarmonicSum(ctx, uint64(c.qeff), sieve.Decimal{Digits: digits})
		if err != nil {
			return err
		}
		ev.harmonic = acc.(*sieve.DecimalAccumulator).Decimal()
		return nil
	}
}

// perModulusContribution streams moduli once, folding E_q/(q*phi(q)) with
// ceiling rounding while the stream's own accumulator produces S(qeff).
func (c *checker) perModulusContribution(ctx context.Context, ev *evaluation, env *envelope.Evaluator, digits uint32) (*apd.Decimal, error) {
	cctx := apd.BaseContext.WithPrecision(digits)
	cctx.Rounding = apd.RoundCeiling
	contribution := new(apd.Decimal)
	term := new(apd.Decimal)
	qphi := new(apd.Decimal)
	phi := new(apd.Decimal)

	streamPrec := c.precision
	if _, exact := streamPrec.(sieve.Exact); !exact {
		streamPrec = sieve.Decimal{Digits: digits}
	}

	acc, err := sieve.Stream(ctx, sieve.StreamConfig{UpTo: uint64(c.qeff), Precision: streamPrec}, func(row sieve.Row) error {
		e, _, err := env.At(row.Q)
		if err != nil {
			return err
		}
		ed := apd.MakeErrDecimal(cctx)
		qphi.SetInt64(int64(row.Q))
		phi.SetInt64(int64(row.Phi))
		ed.Mul(qphi, qphi, phi)
		ed.Quo(term, e, qphi)
		ed.Add(contribution, contribution, term)
		return ed.Err()
	})
	if err != nil {
		return nil, err
	}

	switch a := acc.(type) {
	case *sieve.ExactAccumulator:
		// Report the exact sum at working precision.
		c.exactSum = a.Rat()
		if err := c.harmonicSum(ctx, ev, digits); err != nil {
			return nil, err
		}
	case *sieve.DecimalAccumulator:
		ev.harmonic = a.Decimal()
	}
	return contribution, nil
}

// decide renders the verdict from the sound bracketing.
func (ev *evaluation) decide() Verdict {
	if ev.totalHi.Cmp(ev.thresholdLo) < 0 {
		return VerdictPass
	}
	if ev.totalLo.Cmp(ev.thresholdHi) >= 0 {
		return VerdictFail
	}
	return VerdictIndeterminate
}

// result renders an evaluation at display precision.
func (c *checker) result(ev *evaluation, digits uint32, verdict Verdict, note string) *Result {
	res := &Result{
		N:             c.nStr,
		Mode:          sieve.ModeName(c.precision),
		Precision:     digits,
		Model:         envelope.ModelName(c.model),
		Q:             c.q,
		Qcap:          c.qeff,
		LogN:          render(ev.logN),
		R:             render(ev.r),
		HarmonicSum:   render(ev.harmonic),
		MajorBound:    render(ev.major),
		MinorBound:    render(ev.minor),
		TotalBound:    render(ev.total),
		Threshold:     render(ev.threshold),
		Margin:        render(ev.margin),
		Ratio:         render(ev.ratio),
		FallbackCount: ev.fallbacks,
		Verdict:       verdict,
		Note:          note,
	}
	if _, exact := c.precision.(sieve.Exact); exact && c.exactSum != nil {
		res.HarmonicSumExact = c.exactSum.RatString()
	}
	return res
}

// render rounds a scalar to displayDigits significant digits.
func render(d *apd.Decimal) string {
	rctx := apd.BaseContext.WithPrecision(displayDigits)
	out := new(apd.Decimal)
	if _, err := rctx.Round(out, d); err != nil {
		return d.String()
	}
	return out.String()
}
