package sieve

import (
	"context"
	"runtime"
	"strconv"

	"golang.org/x/sync/errgroup"
)

// Row is one streamed modulus with its totient, harmonic term, and the
// cumulative sum after folding the term in.
type Row struct {
	Q          uint64
	Phi        uint64
	Term       string
	Cumulative string
}

// RowFunc receives rows in strictly ascending modulus order.
type RowFunc func(Row) error

// StreamConfig configures a harmonic stream over [From, UpTo].
type StreamConfig struct {
	// From is the first modulus emitted. Values below 2 are clamped to 2;
	// the sum S(Q) starts at q=2 (see the package doc).
	From uint64

	// UpTo is the last modulus emitted, inclusive. Must be >= 1.
	UpTo uint64

	// Precision selects exact or decimal accumulation. Nil means
	// Decimal{DefaultDigits}.
	Precision Precision

	// SeedCumulative, when non-empty, resumes the running sum from a
	// previously emitted cumulative value at From-1.
	SeedCumulative string

	// BlockSize is the segment length. 0 means 16384.
	BlockSize uint64

	// Workers bounds parallel block sieving. 0 means GOMAXPROCS.
	// The emitted stream is identical for any worker count.
	Workers int
}

func (c *StreamConfig) normalize() error {
	if c.UpTo < 1 {
		return NewDomainError("upTo", strconv.FormatUint(c.UpTo, 10), "must be >= 1")
	}
	if c.From < 2 {
		c.From = 2
	}
	if c.Precision == nil {
		c.Precision = Decimal{}
	}
	if c.BlockSize == 0 {
		c.BlockSize = 16384
	}
	if c.Workers <= 0 {
		c.Workers = runtime.GOMAXPROCS(0)
	}
	return nil
}

// Stream emits one Row per modulus in [From, UpTo] in ascending order and
// returns the accumulator holding the final cumulative sum. Block totients
// are sieved in parallel; rows are folded and emitted by the calling
// goroutine only, so fn never runs concurrently.
//
// fn may be nil when only the final sum is wanted.
func Stream(ctx context.Context, cfg StreamConfig, fn RowFunc) (Accumulator, error) {
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	acc, err := NewAccumulator(cfg.Precision)
	if err != nil {
		return nil, err
	}
	if cfg.SeedCumulative != "" {
		if err := acc.Seed(cfg.SeedCumulative); err != nil {
			return nil, err
		}
	}
	if cfg.From > cfg.UpTo {
		return acc, nil // nothing left to emit
	}

	primes := primesUpTo(isqrt(cfg.UpTo))

	type block struct {
		lo, hi uint64
	}
	var blocks []block
	for lo := cfg.From; lo <= cfg.UpTo; lo += cfg.BlockSize {
		hi := lo + cfg.BlockSize - 1
		if hi > cfg.UpTo {
			hi = cfg.UpTo
		}
		blocks = append(blocks, block{lo: lo, hi: hi})
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	// Fan out: workers pull block indices and sieve independently. Each
	// result channel is buffered for its single send, so no worker ever
	// blocks on a consumer that has bailed out.
	results := make([]chan []uint64, len(blocks))
	for i := range results {
		results[i] = make(chan []uint64, 1)
	}
	indexes := make(chan int)
	g.Go(func() error {
		defer close(indexes)
		for i := range blocks {
			select {
			case indexes <- i:
			case <-gctx.Done():
				return nil
			}
		}
		return nil
	})
	for w := 0; w < cfg.Workers; w++ {
		g.Go(func() error {
			for i := range indexes {
				if gctx.Err() != nil {
					return nil
				}
				results[i] <- totientSegment(blocks[i].lo, blocks[i].hi, primes)
			}
			return nil
		})
	}

	// Fan in: the ordered prefix fold runs only on this goroutine.
	var foldErr error
fold:
	for i, b := range blocks {
		var phis []uint64
		select {
		case phis = <-results[i]:
		case <-gctx.Done():
			foldErr = gctx.Err()
			break fold
		}
		for q := b.lo; q <= b.hi; q++ {
			term, err := acc.Add(q, phis[q-b.lo])
			if err != nil {
				foldErr = err
				break fold
			}
			if fn == nil {
				continue
			}
			if err := fn(Row{Q: q, Phi: phis[q-b.lo], Term: term, Cumulative: acc.Cumulative()}); err != nil {
				foldErr = err
				break fold
			}
		}
	}
	if foldErr != nil {
		cancel()
	}
	if err := g.Wait(); err != nil && foldErr == nil {
		foldErr = err
	}
	if foldErr != nil {
		return nil, foldErr
	}
	return acc, nil
}
