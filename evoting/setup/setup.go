// Package setup generates what the out-of-band configuration phase hands
// to the control components before voting opens: node keys, the election
// event context, verification cards and the partial choice return codes
// allow lists. It only covers what the nodes read, it is used by the tests
// and the simulator.
package setup

import (
	"crypto/cipher"
	"fmt"

	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/kyber/v3/suites"
	"go.dedis.ch/kyber/v3/util/key"
	"go.dedis.ch/onet/v3/log"
	"golang.org/x/xerrors"

	"go.dedis.ch/ccrnode/evoting/lib"
)

// NodeKeys are the secrets of one control component.
type NodeKeys struct {
	NodeID int
	// Signing is the identity key pair used to sign payloads.
	Signing *key.Pair
	// CcrSecretKey decrypts its share of the partial choice return codes.
	CcrSecretKey lib.SecretKey
	// ReturnCodesGenerationSecretKey derives the per-voter keys of the long
	// choice return codes shares.
	ReturnCodesGenerationSecretKey kyber.Scalar
}

// GenerateNodeKeys creates the keys of a node able to serve verification
// card sets with up to size selections.
func GenerateNodeKeys(suite suites.Suite, nodeID, size int, rand cipher.Stream) (*NodeKeys, error) {
	if err := lib.ValidateNodeID(nodeID); err != nil {
		return nil, err
	}
	if size < 1 || size > lib.MaxSelections {
		return nil, xerrors.Errorf("key size %d not in [1, %d]", size, lib.MaxSelections)
	}
	ccrSk, _ := lib.GenKeyPair(suite, size, rand)
	priv := suite.Scalar().Pick(rand)
	return &NodeKeys{
		NodeID:                         nodeID,
		Signing:                        &key.Pair{Public: suite.Point().Mul(priv, nil), Private: priv},
		CcrSecretKey:                   ccrSk,
		ReturnCodesGenerationSecretKey: suite.Scalar().Pick(rand),
	}, nil
}

// CcrPublicKey returns the public part of the CCR key.
func (k *NodeKeys) CcrPublicKey(suite suites.Suite) lib.PublicKey {
	return k.CcrSecretKey.PublicKey(suite)
}

// Params describe the election event to generate. Every verification card
// set gets the same questions.
type Params struct {
	Questions          int
	OptionsPerQuestion int // OptionsPerQuestion without the blank option.
	WriteInsPlusOne    int
	Voters             int // Voters per verification card set.
	Sets               int
	StartTime          int64
	FinishTime         int64
	GracePeriod        int64
}

// Card is a generated verification card with its voter secret.
type Card struct {
	Ids       lib.ContextIds
	SecretKey kyber.Scalar
	PublicKey kyber.Point
}

// Election is the generated election event.
type Election struct {
	Context           *lib.ElectionEventContext
	ElectionSecretKey lib.SecretKey
	Sets              []*lib.VerificationCardSet
	Cards             []*Card
	// AllowLists maps a verification card set id to its allow list.
	AllowLists map[string][]string
}

// NewElection generates an election event for the four nodes whose CCR
// public keys are given, ordered by node id.
func NewElection(suite suites.Suite, p Params, ccrPublicKeys []lib.PublicKey,
	gen lib.IDGenerator, rand cipher.Stream) (*Election, error) {
	if len(ccrPublicKeys) != lib.NumberOfNodes {
		return nil, xerrors.Errorf("need %d CCR public keys, got %d", lib.NumberOfNodes, len(ccrPublicKeys))
	}
	if p.Questions < 1 || p.OptionsPerQuestion < 1 || p.Voters < 1 || p.Sets < 1 || p.WriteInsPlusOne < 1 {
		return nil, xerrors.New("parameters must all be positive")
	}

	table, err := primesMappingTable(suite, p.Questions, p.OptionsPerQuestion)
	if err != nil {
		return nil, err
	}
	psi := table.Psi()
	for i, pk := range ccrPublicKeys {
		if len(pk) < psi {
			return nil, xerrors.Errorf("CCR public key of node %d has %d elements for %d selections",
				i+1, len(pk), psi)
		}
	}
	combined, err := lib.CombinePublicKeys(suite, ccrPublicKeys...)
	if err != nil {
		return nil, err
	}
	if len(combined) < psi {
		return nil, xerrors.Errorf("combined CCR public key has %d elements for %d selections",
			len(combined), psi)
	}
	elSk, elPk := lib.GenKeyPair(suite, p.WriteInsPlusOne, rand)

	e := &Election{
		Context: &lib.ElectionEventContext{
			ElectionEventID:                      gen.NewID(),
			ElectionPublicKey:                    elPk,
			ChoiceReturnCodesEncryptionPublicKey: combined[:psi],
			StartTime:                            p.StartTime,
			FinishTime:                           p.FinishTime,
		},
		ElectionSecretKey: elSk,
		AllowLists:        make(map[string][]string),
	}
	for i, pk := range ccrPublicKeys {
		e.Context.CcrPublicKeys = append(e.Context.CcrPublicKeys,
			lib.NodeCcrPublicKey{NodeID: i + 1, PublicKey: pk})
	}

	for s := 0; s < p.Sets; s++ {
		vcs := lib.VerificationCardSetContext{
			VerificationCardSetID:   gen.NewID(),
			BallotBoxID:             gen.NewID(),
			StartTime:               p.StartTime,
			FinishTime:              p.FinishTime,
			GracePeriod:             p.GracePeriod,
			NumberOfEligibleVoters:  p.Voters,
			NumberOfWriteInsPlusOne: p.WriteInsPlusOne,
			PrimesMappingTable:      table,
		}
		e.Context.VerificationCardSetContexts = append(e.Context.VerificationCardSetContexts, vcs)
		e.Sets = append(e.Sets, &lib.VerificationCardSet{
			ID:              vcs.VerificationCardSetID,
			ElectionEventID: e.Context.ElectionEventID,
			BallotBoxID:     vcs.BallotBoxID,
		})

		for v := 0; v < p.Voters; v++ {
			k := suite.Scalar().Pick(rand)
			card := &Card{
				Ids: lib.ContextIds{
					ElectionEventID:       e.Context.ElectionEventID,
					VerificationCardSetID: vcs.VerificationCardSetID,
					VerificationCardID:    gen.NewID(),
				},
				SecretKey: k,
				PublicKey: suite.Point().Mul(k, nil),
			}
			entries, err := allowListEntries(suite, table, card)
			if err != nil {
				return nil, err
			}
			e.Cards = append(e.Cards, card)
			e.AllowLists[vcs.VerificationCardSetID] = append(e.AllowLists[vcs.VerificationCardSetID], entries...)
		}
	}
	if err := e.Context.Validate(); err != nil {
		return nil, xerrors.Errorf("generated context is invalid: %v", err)
	}
	log.Lvlf2("Generated election event %s with %d cards", e.Context.ElectionEventID, len(e.Cards))
	return e, nil
}

// VerificationCards returns the stored records of the generated cards.
func (e *Election) VerificationCards() []*lib.VerificationCard {
	cards := make([]*lib.VerificationCard, len(e.Cards))
	for i, c := range e.Cards {
		cards[i] = &lib.VerificationCard{
			ID:                    c.Ids.VerificationCardID,
			VerificationCardSetID: c.Ids.VerificationCardSetID,
			State:                 lib.CardInitial,
			PublicKey:             c.PublicKey,
		}
	}
	return cards
}

// primesMappingTable lists per question the options followed by the blank
// option. The correctness information of an option is its question.
func primesMappingTable(suite suites.Suite, questions, options int) (*lib.PrimesMappingTable, error) {
	var entries []lib.PrimesMappingTableEntry
	for q := 0; q < questions; q++ {
		for o := 0; o <= options; o++ {
			option := fmt.Sprintf("question-%d|option-%d", q, o)
			if o == options {
				option = fmt.Sprintf("question-%d|blank", q)
			}
			enc, err := lib.EncodeVotingOption(suite, option)
			if err != nil {
				return nil, err
			}
			entries = append(entries, lib.PrimesMappingTableEntry{
				ActualVotingOption:     option,
				Encoding:               enc,
				CorrectnessInformation: fmt.Sprintf("question-%d", q),
				Blank:                  o == options,
			})
		}
	}
	return lib.NewPrimesMappingTable(entries)
}

// allowListEntries returns the entry of every option of the card: the
// voter may pick any option for the question it belongs to.
func allowListEntries(suite suites.Suite, table *lib.PrimesMappingTable, card *Card) ([]string, error) {
	entries := make([]string, 0, table.Size())
	for _, option := range table.Entries {
		pCC := suite.Point().Mul(card.SecretKey, option.Encoding)
		hpCC, err := lib.HashAndSquare(suite, pCC)
		if err != nil {
			return nil, err
		}
		entry, err := lib.AllowListEntry(suite, hpCC, card.Ids.VerificationCardID,
			card.Ids.ElectionEventID, option.CorrectnessInformation)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
