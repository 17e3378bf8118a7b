package ledger

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueyaml "cuelang.org/go/encoding/yaml"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaSrc string

// Release constants, as published. The cached sum is the release value of
// S(5253) at 12 significant digits.
const (
	ReleaseN         = "4000000000000000000" // N* = 4e18
	ReleaseTolerance = "1e-10"
)

// Constants is the immutable constant record for one verification run.
type Constants struct {
	Q                 int64   `yaml:"Q"`
	SFloor            float64 `yaml:"S_floor"`
	K                 float64 `yaml:"K"`
	CW                float64 `yaml:"C_W"`
	CachedHarmonicSum string  `yaml:"cached_harmonic_sum_at_Q"`
}

// Release returns the canonical release configuration.
func Release() Constants {
	return Constants{
		Q:                 5253,
		SFloor:            1.2,
		K:                 10,
		CW:                2.0,
		CachedHarmonicSum: "1.20348665358",
	}
}

// Validate checks positivity of every constant.
func (c Constants) Validate() error {
	if c.Q <= 0 {
		return &DomainError{Param: "Q", Value: strconv.FormatInt(c.Q, 10), Constraint: "must be > 0"}
	}
	if !(c.SFloor > 0) {
		return &DomainError{Param: "S_floor", Value: formatFloat(c.SFloor), Constraint: "must be > 0"}
	}
	if !(c.K > 0) {
		return &DomainError{Param: "K", Value: formatFloat(c.K), Constraint: "must be > 0"}
	}
	if !(c.CW > 0) {
		return &DomainError{Param: "C_W", Value: formatFloat(c.CW), Constraint: "must be > 0"}
	}
	if c.CachedHarmonicSum == "" {
		return &DomainError{Param: "cached_harmonic_sum_at_Q", Value: "", Constraint: "must not be empty"}
	}
	return nil
}

// SFloorString returns S_floor as a shortest-round-trip decimal string.
func (c Constants) SFloorString() string { return formatFloat(c.SFloor) }

// KString returns K as a shortest-round-trip decimal string.
func (c Constants) KString() string { return formatFloat(c.K) }

// CWString returns C_W as a shortest-round-trip decimal string.
func (c Constants) CWString() string { return formatFloat(c.CW) }

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// Load reads a YAML ledger file, validates it against the embedded CUE
// schema, and decodes it. Schema violations surface with their CUE error
// detail; they are never silently defaulted.
func Load(path string) (Constants, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Constants{}, fmt.Errorf("read ledger: %w", err)
	}

	if err := validateSchema(path, data); err != nil {
		return Constants{}, err
	}

	var c Constants
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Constants{}, fmt.Errorf("decode ledger: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Constants{}, err
	}
	return c, nil
}

// Save writes the constants as a YAML ledger file.
func Save(path string, c Constants) error {
	if err := c.Validate(); err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write ledger: %w", err)
	}
	return nil
}

// validateSchema unifies the YAML document with #Constants and requires a
// fully concrete result.
func validateSchema(path string, data []byte) error {
	cctx := cuecontext.New()
	schema := cctx.CompileString(schemaSrc)
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile ledger schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Constants"))
	if err := def.Err(); err != nil {
		return fmt.Errorf("lookup ledger schema: %w", err)
	}

	file, err := cueyaml.Extract(path, data)
	if err != nil {
		return &DomainError{Param: "ledger", Value: path, Constraint: fmt.Sprintf("must be valid YAML: %v", err)}
	}
	doc := cctx.BuildFile(file)
	if err := doc.Err(); err != nil {
		return &DomainError{Param: "ledger", Value: path, Constraint: fmt.Sprintf("must be valid YAML: %v", err)}
	}

	unified := def.Unify(doc)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return &DomainError{Param: "ledger", Value: path, Constraint: fmt.Sprintf("must satisfy the constants schema: %v", err)}
	}
	return nil
}
