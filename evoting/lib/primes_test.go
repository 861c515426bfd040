package lib

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

// testTable builds three questions of three options plus a blank one.
func testTable(t *testing.T) *PrimesMappingTable {
	var entries []PrimesMappingTableEntry
	for q := 0; q < 3; q++ {
		for o := 0; o < 4; o++ {
			option := fmt.Sprintf("q%d-o%d", q, o)
			enc, err := EncodeVotingOption(tSuite, option)
			require.NoError(t, err)
			entries = append(entries, PrimesMappingTableEntry{
				ActualVotingOption:     option,
				Encoding:               enc,
				CorrectnessInformation: fmt.Sprintf("question-%d", q),
				Blank:                  o == 3,
			})
		}
	}
	table, err := NewPrimesMappingTable(entries)
	require.NoError(t, err)
	return table
}

func TestPrimesMappingTable(t *testing.T) {
	table := testTable(t)
	require.Equal(t, 12, table.Size())
	require.Equal(t, 3, table.Psi())
	require.Equal(t, []string{"question-0", "question-1", "question-2"},
		table.BlankCorrectnessInformation())

	enc, err := table.Encodings([]int{0, 4, 8})
	require.NoError(t, err)
	require.Len(t, enc, 3)
	require.True(t, enc[1].Equal(table.Entries[4].Encoding))

	_, err = table.Encodings([]int{12})
	require.Error(t, err)
}

func TestPrimesMappingTable_Validate(t *testing.T) {
	_, err := NewPrimesMappingTable(nil)
	require.Error(t, err)

	table := testTable(t)
	entries := append([]PrimesMappingTableEntry{}, table.Entries...)
	entries[1].ActualVotingOption = entries[0].ActualVotingOption
	_, err = NewPrimesMappingTable(entries)
	require.Error(t, err)

	entries = append([]PrimesMappingTableEntry{}, table.Entries...)
	entries[1].Encoding = entries[0].Encoding
	_, err = NewPrimesMappingTable(entries)
	require.Error(t, err)

	// No blank option means nothing to select.
	entries = append([]PrimesMappingTableEntry{}, table.Entries[:3]...)
	_, err = NewPrimesMappingTable(entries)
	require.Error(t, err)
}

func TestHashAndSquare(t *testing.T) {
	p := randomPoints(1)[0]
	h1, err := HashAndSquare(tSuite, p)
	require.NoError(t, err)
	h2, err := HashAndSquare(tSuite, p.Clone())
	require.NoError(t, err)
	require.True(t, h1.Equal(h2))

	other, err := HashAndSquare(tSuite, randomPoints(1)[0])
	require.NoError(t, err)
	require.False(t, h1.Equal(other))
}

func TestAllowListEntry(t *testing.T) {
	p := randomPoints(1)[0]
	e1, err := AllowListEntry(tSuite, p, "vc", "ee", "question-0")
	require.NoError(t, err)
	e2, err := AllowListEntry(tSuite, p, "vc", "ee", "question-1")
	require.NoError(t, err)
	require.NotEqual(t, e1, e2)
}

func TestDeriveKey(t *testing.T) {
	secret := tSuite.Scalar().Pick(tSuite.RandomStream())
	k1, err := DeriveKey(tSuite, secret, VoterChoiceReturnCodeGeneration, "ee", "vcs", "vc1")
	require.NoError(t, err)
	k2, err := DeriveKey(tSuite, secret, VoterChoiceReturnCodeGeneration, "ee", "vcs", "vc1")
	require.NoError(t, err)
	k3, err := DeriveKey(tSuite, secret, VoterChoiceReturnCodeGeneration, "ee", "vcs", "vc2")
	require.NoError(t, err)
	require.True(t, k1.Equal(k2))
	require.False(t, k1.Equal(k3))

	_, err = DeriveKey(tSuite, nil, "x")
	require.Error(t, err)
}
