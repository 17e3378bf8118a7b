package envelope

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/cockroachdb/apd/v3"
)

// Form names the closed form of a per-modulus table entry.
type Form string

const (
	// FormCNOverLog is c1*N/ln N.
	FormCNOverLog Form = "cNoverlog"

	// FormCNLog is c1*N*ln N.
	FormCNLog Form = "cNlog"

	// FormAffine is c1*N*ln N + c2*N.
	FormAffine Form = "affine"
)

// Entry is one proved per-modulus bound.
type Entry struct {
	Q    uint64
	Form Form
	C1   *apd.Decimal
	C2   *apd.Decimal
}

// Table maps moduli to proved bounds.
type Table struct {
	entries map[uint64]Entry
}

// Lookup returns the entry for q, if present.
func (t *Table) Lookup(q uint64) (Entry, bool) {
	e, ok := t.entries[q]
	return e, ok
}

// Len returns the number of entries.
func (t *Table) Len() int {
	return len(t.entries)
}

// LoadTable parses a per-modulus constants table from CSV with the header
// q,form,c1,c2. Constants are kept as decimal strings, never floats, so a
// table round-trips bit-for-bit. Unknown forms and malformed rows are
// rejected at load time rather than at evaluation time.
func LoadTable(r io.Reader) (*Table, error) {
	rd := csv.NewReader(r)
	rd.FieldsPerRecord = 4

	header, err := rd.Read()
	if err != nil {
		return nil, fmt.Errorf("read table header: %w", err)
	}
	if header[0] != "q" || header[1] != "form" || header[2] != "c1" || header[3] != "c2" {
		return nil, &DomainError{
			Param:      "header",
			Value:      fmt.Sprintf("%v", header),
			Constraint: "must be q,form,c1,c2",
		}
	}

	entries := make(map[uint64]Entry)
	for line := 2; ; line++ {
		record, err := rd.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read table row %d: %w", line, err)
		}
		entry, err := parseEntry(record)
		if err != nil {
			return nil, fmt.Errorf("table row %d: %w", line, err)
		}
		if _, dup := entries[entry.Q]; dup {
			return nil, &DomainError{
				Param:      "q",
				Value:      strconv.FormatUint(entry.Q, 10),
				Constraint: "duplicate table entry",
			}
		}
		entries[entry.Q] = entry
	}
	return &Table{entries: entries}, nil
}

func parseEntry(record []string) (Entry, error) {
	q, err := strconv.ParseUint(record[0], 10, 64)
	if err != nil || q < 1 {
		return Entry{}, &DomainError{Param: "q", Value: record[0], Constraint: "must be a positive integer"}
	}

	form := Form(record[1])
	switch form {
	case FormCNOverLog, FormCNLog, FormAffine:
	default:
		return Entry{}, &DomainError{Param: "form", Value: record[1], Constraint: "must be cNoverlog, cNlog or affine"}
	}

	c1, _, err := apd.NewFromString(record[2])
	if err != nil {
		return Entry{}, &DomainError{Param: "c1", Value: record[2], Constraint: "must be a decimal number"}
	}
	c2, _, err := apd.NewFromString(record[3])
	if err != nil {
		return Entry{}, &DomainError{Param: "c2", Value: record[3], Constraint: "must be a decimal number"}
	}
	return Entry{Q: q, Form: form, C1: c1, C2: c2}, nil
}
