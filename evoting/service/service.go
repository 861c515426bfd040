// Package service is the control component node. It consumes the votes
// sent by the voting server, runs the partial decryption and the long
// choice return codes share creation on them, and answers with signed
// payloads. Every failure is reported with the identifiers of the card so
// that the logs of the four nodes can be correlated.
package service

import (
	"crypto/cipher"
	"strings"
	"time"

	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/kyber/v3/suites"
	"go.dedis.ch/kyber/v3/util/random"
	"go.dedis.ch/onet/v3/log"
	"golang.org/x/xerrors"

	"go.dedis.ch/ccrnode"
	"go.dedis.ch/ccrnode/evoting"
	"go.dedis.ch/ccrnode/evoting/contexthash"
	"go.dedis.ch/ccrnode/evoting/lib"
	"go.dedis.ch/ccrnode/evoting/protocol"
	"go.dedis.ch/ccrnode/evoting/setup"
	"go.dedis.ch/ccrnode/evoting/store"
	"go.dedis.ch/ccrnode/evoting/zkp"
)

// Node is one control component.
type Node struct {
	suite       suites.Suite
	keys        *setup.NodeKeys
	signingKeys map[int]kyber.Point
	store       *store.Store
	hashes      *contexthash.Provider
	verifier    zkp.Verifier
	metrics     *Metrics
	sign        func(payload interface{}, sc lib.SignatureContext) ([]byte, error)

	// Rand must be safe for concurrent use.
	Rand cipher.Stream
	// Now returns the time the ballot box windows are checked against.
	Now func() time.Time
}

// NewNode returns the node holding keys. signingKeys maps every node id,
// this node included, to its signing public key. If metrics is nil,
// nothing is counted.
func NewNode(suite suites.Suite, keys *setup.NodeKeys, signingKeys map[int]kyber.Point,
	st *store.Store, metrics *Metrics) (*Node, error) {
	if err := lib.ValidateNodeID(keys.NodeID); err != nil {
		return nil, err
	}
	for id := 1; id <= lib.NumberOfNodes; id++ {
		if signingKeys[id] == nil {
			return nil, ccrnode.ErrInvalidInput.Wrapf("missing signing key of node %d", id)
		}
	}
	if !signingKeys[keys.NodeID].Equal(keys.Signing.Public) {
		return nil, ccrnode.ErrInvalidInput.Wrapf("signing key of node %d does not match", keys.NodeID)
	}
	hashes, err := contexthash.NewProvider(st, suite, contexthash.DefaultCacheSize)
	if err != nil {
		return nil, err
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	n := &Node{
		suite:       suite,
		keys:        keys,
		signingKeys: signingKeys,
		store:       st,
		hashes:      hashes,
		verifier:    zkp.NewVerifier(suite),
		metrics:     metrics,
		Rand:        random.New(),
		Now:         time.Now,
	}
	n.sign = n.signPayload
	return n, nil
}

func (n *Node) signPayload(payload interface{}, sc lib.SignatureContext) ([]byte, error) {
	return lib.SignPayload(n.suite, n.keys.Signing.Private, payload, sc)
}

// ID returns the node id.
func (n *Node) ID() int {
	return n.keys.NodeID
}

// ValidateContextIds checks the format of the identifiers and that the
// card belongs to the set and the set to the election event.
func (n *Node) ValidateContextIds(ids lib.ContextIds) (*lib.VerificationCardSet, *lib.VerificationCard, error) {
	if err := ids.Validate(); err != nil {
		return nil, nil, err
	}
	vcs, err := n.store.VerificationCardSet(ids.VerificationCardSetID)
	if err != nil {
		return nil, nil, err
	}
	if !strings.EqualFold(vcs.ElectionEventID, ids.ElectionEventID) {
		return nil, nil, ccrnode.ErrInconsistentIdentifiers.Wrapf(
			"verification card set %s belongs to election event %s, not %s",
			ids.VerificationCardSetID, vcs.ElectionEventID, ids.ElectionEventID)
	}
	card, err := n.store.VerificationCard(ids.VerificationCardID)
	if err != nil {
		return nil, nil, err
	}
	if !strings.EqualFold(card.VerificationCardSetID, ids.VerificationCardSetID) {
		return nil, nil, ccrnode.ErrInconsistentIdentifiers.Wrapf(
			"verification card %s belongs to verification card set %s, not %s",
			ids.VerificationCardID, card.VerificationCardSetID, ids.VerificationCardSetID)
	}
	return vcs, card, nil
}

// ConfigureElectionEvent stores what the setup hands to the node before
// voting opens: the election event context, the verification cards and
// the allow lists by verification card set. An election event is
// configured once.
func (n *Node) ConfigureElectionEvent(ctx *lib.ElectionEventContext, cards []*lib.VerificationCard,
	allowLists map[string][]string) error {
	if err := ctx.Validate(); err != nil {
		return err
	}
	own, err := ctx.CcrPublicKey(n.ID())
	if err != nil {
		return err
	}
	if !own.Equal(n.keys.CcrPublicKey(n.suite)) {
		return ccrnode.ErrInvalidInput.Wrapf("election event %s holds another CCR public key for node %d",
			ctx.ElectionEventID, n.ID())
	}
	for _, card := range cards {
		if _, err := ctx.VerificationCardSet(card.VerificationCardSetID); err != nil {
			return xerrors.Errorf("verification card %s: %w", card.ID, err)
		}
	}
	for vcs := range allowLists {
		if _, err := ctx.VerificationCardSet(vcs); err != nil {
			return xerrors.Errorf("allow list: %w", err)
		}
	}

	if err := n.store.ConfigureElectionEvent(ctx); err != nil {
		return err
	}
	if err := n.store.PutVerificationCards(cards); err != nil {
		return err
	}
	for vcs, entries := range allowLists {
		if err := n.store.PutAllowList(vcs, entries); err != nil {
			return err
		}
	}
	log.Lvlf1("Node %d configured election event %s with %d verification cards", n.ID(),
		ctx.ElectionEventID, len(cards))
	return nil
}

// request is what both rounds need to know about the card.
type request struct {
	ids         lib.ContextIds
	vcs         *lib.VerificationCardSet
	card        *lib.VerificationCard
	context     *lib.ElectionEventContext
	vcsContext  *lib.VerificationCardSetContext
	contextHash string
}

// prepare runs the checks common to both rounds: identifiers, election
// event state and ballot box window. Nothing is computed before they pass.
func (n *Node) prepare(ids lib.ContextIds) (*request, error) {
	vcs, card, err := n.ValidateContextIds(ids)
	if err != nil {
		return nil, err
	}
	state, err := n.store.ElectionEventState(ids.ElectionEventID)
	if err != nil {
		return nil, err
	}
	if state != lib.ElectionEventConfigured {
		return nil, ccrnode.ErrElectionNotConfigured.Wrapf("election event %s is %v", ids.ElectionEventID, state)
	}
	box, err := n.store.BallotBox(vcs.BallotBoxID)
	if err != nil {
		return nil, err
	}
	if err := lib.ValidateVoteIsAllowed(ids.ElectionEventID, vcs.BallotBoxID, n.Now(), box); err != nil {
		return nil, err
	}
	ctx, err := n.store.ElectionEventContext(ids.ElectionEventID)
	if err != nil {
		return nil, err
	}
	vcsContext, err := ctx.VerificationCardSet(ids.VerificationCardSetID)
	if err != nil {
		return nil, err
	}
	hash, err := n.hashes.GetHashElectionEventContext(ids.ElectionEventID)
	if err != nil {
		return nil, err
	}
	return &request{
		ids:         ids,
		vcs:         vcs,
		card:        card,
		context:     ctx,
		vcsContext:  vcsContext,
		contextHash: hash,
	}, nil
}

// verifyBallot returns ErrBallotVerificationFailed if the proofs of the
// voting client do not verify.
func (n *Node) verifyBallot(req *request, vote *lib.EncryptedVerifiableVote) error {
	ctx, err := protocol.NewVerifyBallotCCRContext(n.suite, req.ids, req.vcsContext.PrimesMappingTable,
		req.vcsContext.NumberOfWriteInsPlusOne, req.contextHash, req.card.PublicKey,
		req.context.ElectionPublicKey, req.context.ChoiceReturnCodesEncryptionPublicKey)
	if err != nil {
		return err
	}
	in, err := protocol.NewVerifyBallotCCRInput(n.suite, vote)
	if err != nil {
		return err
	}
	ok, err := protocol.VerifyBallotCCR(ctx, in, n.verifier)
	if err != nil {
		return err
	}
	if !ok {
		return ccrnode.ErrBallotVerificationFailed.Wrapf("node %d %v", n.ID(), req.ids)
	}
	return nil
}

// HandlePartialDecrypt verifies the vote and returns the signed partial
// decryption of this node. A card is partially decrypted at most once.
func (n *Node) HandlePartialDecrypt(req *evoting.PartialDecryptRequest) (
	*evoting.PartiallyDecryptedEncryptedPCCPayload, error) {
	if req == nil || req.Vote == nil {
		return nil, ccrnode.ErrInvalidInput.Wrapf("missing vote")
	}
	vote := req.Vote
	if err := vote.Check(); err != nil {
		return nil, n.fail(lib.ContextIds{}, "", err)
	}
	ids := vote.ContextIds
	r, err := n.prepare(ids)
	if err != nil {
		return nil, n.fail(ids, "", err)
	}
	if err := n.verifyBallot(r, vote); err != nil {
		return nil, n.fail(ids, r.vcs.BallotBoxID, err)
	}

	ccrPublicKey, err := r.context.CcrPublicKey(n.ID())
	if err != nil {
		return nil, n.fail(ids, r.vcs.BallotBoxID, err)
	}
	ctx, err := protocol.NewPartialDecryptPCCContext(n.suite, n.ID(), ids, r.vcsContext.Psi(),
		r.vcsContext.NumberOfWriteInsPlusOne, r.contextHash)
	if err != nil {
		return nil, n.fail(ids, r.vcs.BallotBoxID, err)
	}
	in, err := protocol.NewPartialDecryptPCCInput(n.suite, vote, ccrPublicKey, n.keys.CcrSecretKey)
	if err != nil {
		return nil, n.fail(ids, r.vcs.BallotBoxID, err)
	}
	pd, err := protocol.PartialDecryptPCC(ctx, in, n.store, n.Rand)
	if err != nil {
		return nil, n.fail(ids, r.vcs.BallotBoxID, err)
	}

	// The card is partially decrypted from here on.
	payload := &evoting.PartiallyDecryptedEncryptedPCCPayload{PartiallyDecryptedEncryptedPCC: pd}
	payload.Signature, err = n.sign(pd, payload.SignatureContext())
	if err != nil {
		return nil, n.fail(ids, r.vcs.BallotBoxID,
			ccrnode.ErrCommitted.Wrapf("signing the partial decryption: %v", err))
	}
	log.Lvlf2("Node %d partially decrypted %v", n.ID(), ids)
	return payload, nil
}

// HandleCombined verifies the partial decryptions of all nodes, decrypts
// the partial choice return codes and returns the signed long choice
// return codes share of this node. A card gets at most one share.
func (n *Node) HandleCombined(combined *evoting.CombinedControlComponentPartialDecryptPayload) (
	*evoting.LongChoiceReturnCodesSharePayload, error) {
	if err := combined.Validate(); err != nil {
		return nil, n.fail(lib.ContextIds{}, "", err)
	}
	ids := combined.ContextIds()
	for _, p := range combined.Payloads {
		err := lib.VerifyPayload(n.suite, n.signingKeys[p.PartiallyDecryptedEncryptedPCC.NodeID],
			p.PartiallyDecryptedEncryptedPCC, p.SignatureContext(), p.Signature)
		if err != nil {
			return nil, n.fail(ids, "", err)
		}
	}
	r, err := n.prepare(ids)
	if err != nil {
		return nil, n.fail(ids, "", err)
	}
	boxID := r.vcs.BallotBoxID
	if !r.card.State.IsPartiallyDecrypted() {
		return nil, n.fail(ids, boxID, ccrnode.ErrNotYetPartiallyDecrypted.Wrapf("card is %v", r.card.State))
	}
	vote, err := n.store.Vote(ids.VerificationCardID)
	if err != nil {
		return nil, n.fail(ids, boxID, err)
	}
	own, err := n.store.PartialDecryption(ids.VerificationCardID)
	if err != nil {
		return nil, n.fail(ids, boxID, err)
	}
	if !equalPoints(own.ExponentiatedGammas, combined.Contribution(n.ID()).ExponentiatedGammas) {
		return nil, n.fail(ids, boxID, ccrnode.ErrOwnContributionMismatch.Wrapf("node %d", n.ID()))
	}

	pCC, err := n.decryptPCC(r, vote, combined)
	if err != nil {
		return nil, n.fail(ids, boxID, err)
	}
	if err := n.verifyBallot(r, vote); err != nil {
		return nil, n.fail(ids, boxID, err)
	}
	share, err := n.createShare(r, pCC)
	if err != nil {
		return nil, n.fail(ids, boxID, err)
	}

	// The card is sent from here on.
	payload := &evoting.LongChoiceReturnCodesSharePayload{Share: share}
	payload.Signature, err = n.sign(share, payload.SignatureContext())
	if err != nil {
		return nil, n.fail(ids, boxID, ccrnode.ErrCommitted.Wrapf("signing the share: %v", err))
	}
	log.Lvlf2("Node %d created the long choice return codes share of %v", n.ID(), ids)
	return payload, nil
}

func (n *Node) decryptPCC(r *request, vote *lib.EncryptedVerifiableVote,
	combined *evoting.CombinedControlComponentPartialDecryptPayload) ([]kyber.Point, error) {
	var keys []lib.PublicKey
	var gammas [][]kyber.Point
	var proofs [][]*zkp.ExponentiationProof
	for _, peer := range lib.PeerNodeIDs(n.ID()) {
		pk, err := r.context.CcrPublicKey(peer)
		if err != nil {
			return nil, err
		}
		pd := combined.Contribution(peer)
		keys = append(keys, pk)
		gammas = append(gammas, pd.ExponentiatedGammas)
		proofs = append(proofs, pd.ExponentiationProofs)
	}
	ctx, err := protocol.NewDecryptPCCContext(n.suite, n.ID(), r.ids, r.vcsContext.Psi(),
		r.vcsContext.NumberOfWriteInsPlusOne, r.contextHash, keys)
	if err != nil {
		return nil, err
	}
	in, err := protocol.NewDecryptPCCInput(n.suite, combined.Contribution(n.ID()).ExponentiatedGammas,
		gammas, proofs, vote.EncryptedVote, vote.ExponentiatedEncryptedVote,
		vote.EncryptedPartialChoiceReturnCodes)
	if err != nil {
		return nil, err
	}
	return protocol.DecryptPCC(ctx, in, n.verifier)
}

func (n *Node) createShare(r *request, pCC []kyber.Point) (*lib.LongChoiceReturnCodesShare, error) {
	ctx, err := protocol.NewCreateLCCShareContext(n.suite, n.ID(), r.ids,
		r.vcsContext.PrimesMappingTable.BlankCorrectnessInformation(), r.contextHash)
	if err != nil {
		return nil, err
	}
	in, err := protocol.NewCreateLCCShareInput(n.suite, n.store.AllowList(r.ids.VerificationCardSetID),
		pCC, n.keys.ReturnCodesGenerationSecretKey)
	if err != nil {
		return nil, err
	}
	return protocol.CreateLCCShare(ctx, in, n.store, n.Rand)
}

func equalPoints(a, b []kyber.Point) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

// fail logs the failure and returns it with the identifiers of the card.
func (n *Node) fail(ids lib.ContextIds, ballotBoxID string, err error) error {
	ferr := &FailureError{
		err:                err,
		ElectionEventID:    ids.ElectionEventID,
		BallotBoxID:        ballotBoxID,
		VerificationCardID: ids.VerificationCardID,
	}
	kind := ccrnode.KindOf(err)
	switch {
	case kind == ccrnode.KindStateGuardViolation && !xerrors.Is(err, ccrnode.ErrCommitted):
		log.Warnf("Node %d: %v", n.ID(), ferr)
	default:
		log.Errorf("Node %d (%v): %v", n.ID(), kind, ferr)
	}
	return ferr
}

// FailureError is the failure of a request, with the identifiers of the
// card it concerns.
type FailureError struct {
	err                error
	ElectionEventID    string
	BallotBoxID        string
	VerificationCardID string
}

func (e *FailureError) Error() string {
	return e.err.Error() + ". [electionEventId: " + e.ElectionEventID + ", ballotBoxId: " +
		e.BallotBoxID + ", verificationCardId: " + e.VerificationCardID + "]"
}

// Unwrap returns the cause.
func (e *FailureError) Unwrap() error {
	return e.err
}
