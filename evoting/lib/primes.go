package lib

import (
	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/kyber/v3/suites"

	"go.dedis.ch/ccrnode"
)

// MaxSelections is the largest number of selectable voting options a
// verification card set may have.
const MaxSelections = 120

// PrimesMappingTableEntry links a voting option to its group encoding and
// to the question it belongs to.
type PrimesMappingTableEntry struct {
	ActualVotingOption string
	Encoding           kyber.Point
	// CorrectnessInformation identifies the question of the option.
	CorrectnessInformation string
	// Blank marks the blank option of a question. There is exactly one per
	// selection the voter has to make.
	Blank bool
}

// PrimesMappingTable lists the voting options of a verification card set.
type PrimesMappingTable struct {
	Entries []PrimesMappingTableEntry
}

// EncodeVotingOption returns the group element representing an option.
func EncodeVotingOption(suite suites.Suite, option string) (kyber.Point, error) {
	return HashToPoint(suite, "VotingOption", option)
}

// NewPrimesMappingTable checks the entries and returns the table.
func NewPrimesMappingTable(entries []PrimesMappingTableEntry) (*PrimesMappingTable, error) {
	t := &PrimesMappingTable{Entries: entries}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Validate checks that options and encodings are unique and that the
// number of selections is within bounds.
func (t *PrimesMappingTable) Validate() error {
	if t == nil || len(t.Entries) == 0 {
		return ccrnode.ErrInvalidInput.Wrapf("empty primes mapping table")
	}
	options := make(map[string]bool)
	for i, e := range t.Entries {
		if e.Encoding == nil || e.ActualVotingOption == "" || e.CorrectnessInformation == "" {
			return ccrnode.ErrInvalidInput.Wrapf("incomplete primes mapping table entry %d", i)
		}
		if options[e.ActualVotingOption] {
			return ccrnode.ErrInvalidInput.Wrapf("voting option %s appears twice", e.ActualVotingOption)
		}
		options[e.ActualVotingOption] = true
		for _, other := range t.Entries[:i] {
			if other.Encoding.Equal(e.Encoding) {
				return ccrnode.ErrInvalidInput.Wrapf("encoding of %s is not unique", e.ActualVotingOption)
			}
		}
	}
	psi := t.Psi()
	if psi < 1 || psi > MaxSelections {
		return ccrnode.ErrInvalidInput.Wrapf("number of selections %d not in [1, %d]", psi, MaxSelections)
	}
	return nil
}

// Size returns the number of voting options.
func (t *PrimesMappingTable) Size() int {
	return len(t.Entries)
}

// Psi returns the number of selectable voting options.
func (t *PrimesMappingTable) Psi() int {
	psi := 0
	for _, e := range t.Entries {
		if e.Blank {
			psi++
		}
	}
	return psi
}

// BlankCorrectnessInformation returns the correctness information of the
// blank options, in table order.
func (t *PrimesMappingTable) BlankCorrectnessInformation() []string {
	var ci []string
	for _, e := range t.Entries {
		if e.Blank {
			ci = append(ci, e.CorrectnessInformation)
		}
	}
	return ci
}

// Entry returns the entry at index i.
func (t *PrimesMappingTable) Entry(i int) (PrimesMappingTableEntry, error) {
	if i < 0 || i >= len(t.Entries) {
		return PrimesMappingTableEntry{}, ccrnode.ErrInvalidInput.Wrapf("no voting option at index %d", i)
	}
	return t.Entries[i], nil
}

// Encodings returns the encodings of the options at the given indices.
func (t *PrimesMappingTable) Encodings(indices []int) ([]kyber.Point, error) {
	encodings := make([]kyber.Point, len(indices))
	for i, idx := range indices {
		e, err := t.Entry(idx)
		if err != nil {
			return nil, err
		}
		encodings[i] = e.Encoding
	}
	return encodings, nil
}
