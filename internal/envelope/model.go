package envelope

import (
	"github.com/cockroachdb/apd/v3"
)

// Model selects the envelope used for per-modulus major-arc error bounds.
// The variant set is sealed; Evaluator.At switches over it exhaustively.
type Model interface {
	modelName() string
}

// Uniform is the closed-form bound N/(160 ln N), valid for every modulus.
type Uniform struct{}

func (Uniform) modelName() string { return "uniform" }

// Trivial is the no-information bound N ln N + N. It is never tight; it
// exists so diagnostics can report how much the uniform bound buys.
type Trivial struct{}

func (Trivial) modelName() string { return "trivial" }

// PerModulus looks bounds up in a table of proved modulus-specific
// constants. Missing entries are governed by the fallback policy.
type PerModulus struct {
	Table    *Table
	Fallback FallbackPolicy
}

func (PerModulus) modelName() string { return "per_modulus" }

// ModelName returns the stable name of a model.
func ModelName(m Model) string {
	return m.modelName()
}

// FallbackPolicy governs per-modulus table misses.
type FallbackPolicy int

const (
	// FallbackUseUniform substitutes the uniform bound and marks the row.
	FallbackUseUniform FallbackPolicy = iota

	// FallbackError fails with a MissingDataError naming the modulus.
	FallbackError
)

// String returns the policy's flag spelling.
func (p FallbackPolicy) String() string {
	switch p {
	case FallbackUseUniform:
		return "uniform"
	case FallbackError:
		return "error"
	default:
		return "unknown"
	}
}

// Evaluator evaluates an envelope model at a fixed scale N.
//
// ln N, the uniform value, and the trivial value are computed once at
// construction; At only performs table lookups and per-entry arithmetic.
// The evaluator is not safe for concurrent use (it counts fallbacks).
type Evaluator struct {
	actx      *apd.Context
	model     Model
	n         *apd.Decimal
	logN      *apd.Decimal
	uniform   *apd.Decimal
	trivial   *apd.Decimal
	fallbacks int64
}

// NewEvaluator computes the envelope scale quantities for N under actx.
// N must exceed e so that ln N > 1.
func NewEvaluator(actx *apd.Context, model Model, n *apd.Decimal) (*Evaluator, error) {
	if model == nil {
		return nil, &DomainError{Param: "model", Value: "nil", Constraint: "an envelope model is required"}
	}
	e := &Evaluator{
		actx:    actx,
		model:   model,
		n:       new(apd.Decimal).Set(n),
		logN:    new(apd.Decimal),
		uniform: new(apd.Decimal),
		trivial: new(apd.Decimal),
	}
	ed := apd.MakeErrDecimal(actx)
	ed.Ln(e.logN, e.n)
	if err := ed.Err(); err != nil {
		return nil, &DomainError{Param: "N", Value: n.String(), Constraint: "must be a positive number"}
	}
	if e.logN.Cmp(apd.New(1, 0)) <= 0 {
		return nil, &DomainError{Param: "N", Value: n.String(), Constraint: "must exceed e so that ln N > 1"}
	}

	c160 := apd.New(160, 0)
	denom := new(apd.Decimal)
	ed.Mul(denom, c160, e.logN)
	ed.Quo(e.uniform, e.n, denom)

	ed.Mul(e.trivial, e.n, e.logN)
	ed.Add(e.trivial, e.trivial, e.n)
	if err := ed.Err(); err != nil {
		return nil, err
	}
	return e, nil
}

// LogN returns a copy of ln N as computed under the evaluator's context.
func (e *Evaluator) LogN() *apd.Decimal {
	return new(apd.Decimal).Set(e.logN)
}

// UniformValue returns a copy of N/(160 ln N).
func (e *Evaluator) UniformValue() *apd.Decimal {
	return new(apd.Decimal).Set(e.uniform)
}

// Fallbacks returns how many At calls substituted the uniform bound.
func (e *Evaluator) Fallbacks() int64 {
	return e.fallbacks
}

// At returns the envelope bound for modulus q and whether the uniform
// fallback was substituted for a missing table entry.
func (e *Evaluator) At(q uint64) (*apd.Decimal, bool, error) {
	switch m := e.model.(type) {
	case Uniform:
		return new(apd.Decimal).Set(e.uniform), false, nil
	case Trivial:
		return new(apd.Decimal).Set(e.trivial), false, nil
	case PerModulus:
		if m.Table != nil {
			if entry, ok := m.Table.Lookup(q); ok {
				v, err := e.evalEntry(entry)
				return v, false, err
			}
		}
		switch m.Fallback {
		case FallbackUseUniform:
			e.fallbacks++
			return new(apd.Decimal).Set(e.uniform), true, nil
		case FallbackError:
			return nil, false, &MissingDataError{Q: q}
		default:
			return nil, false, &DomainError{Param: "fallback", Value: m.Fallback.String(), Constraint: "must be uniform or error"}
		}
	default:
		return nil, false, &DomainError{Param: "model", Value: ModelName(e.model), Constraint: "unhandled envelope model"}
	}
}

// evalEntry evaluates one table entry at the evaluator's scale.
func (e *Evaluator) evalEntry(entry Entry) (*apd.Decimal, error) {
	ed := apd.MakeErrDecimal(e.actx)
	v := new(apd.Decimal)
	switch entry.Form {
	case FormCNOverLog:
		ed.Mul(v, entry.C1, e.n)
		ed.Quo(v, v, e.logN)
	case FormCNLog:
		ed.Mul(v, entry.C1, e.n)
		ed.Mul(v, v, e.logN)
	case FormAffine:
		t := new(apd.Decimal)
		ed.Mul(v, entry.C1, e.n)
		ed.Mul(v, v, e.logN)
		ed.Mul(t, entry.C2, e.n)
		ed.Add(v, v, t)
	default:
		return nil, &DomainError{Param: "form", Value: string(entry.Form), Constraint: "must be cNoverlog, cNlog or affine"}
	}
	if err := ed.Err(); err != nil {
		return nil, err
	}
	return v, nil
}
