package lib

import (
	"time"

	"go.dedis.ch/ccrnode"
)

// BallotBox collects the votes of one verification card set. Times are unix
// seconds, GracePeriod is in seconds.
type BallotBox struct {
	ID                     string
	VerificationCardSetID  string
	StartTime              int64
	FinishTime             int64
	GracePeriod            int64
	Mixed                  bool
	TestBallotBox          bool
	NumberOfEligibleVoters int
}

// Opens returns the first instant at which votes are accepted.
func (b *BallotBox) Opens() time.Time {
	return time.Unix(b.StartTime-b.GracePeriod, 0)
}

// Closes returns the last instant at which votes are accepted.
func (b *BallotBox) Closes() time.Time {
	return time.Unix(b.FinishTime+b.GracePeriod, 0)
}

// ValidateVoteIsAllowed returns ErrVotingNotAllowed unless now lies in
// [start - grace, finish + grace], bounds included, and the ballot box has
// not been mixed yet.
func ValidateVoteIsAllowed(electionEventID, ballotBoxID string, now time.Time, box *BallotBox) error {
	if box == nil {
		return ccrnode.ErrNotFound.Wrapf("ballot box %s of election event %s", ballotBoxID, electionEventID)
	}
	if box.Mixed {
		return ccrnode.ErrVotingNotAllowed.Wrapf("ballot box already mixed [electionEventId: %s, ballotBoxId: %s]",
			electionEventID, ballotBoxID)
	}
	if now.Before(box.Opens()) || now.After(box.Closes()) {
		return ccrnode.ErrVotingNotAllowed.Wrapf("outside of the voting period %v - %v [electionEventId: %s, ballotBoxId: %s]",
			box.Opens().UTC(), box.Closes().UTC(), electionEventID, ballotBoxID)
	}
	return nil
}
