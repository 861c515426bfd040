/*
Package protocol implements the four algorithms a control component runs on
every vote.

PartialDecryptPCC: the node multiplies the ephemeral key of the encrypted
partial choice return codes with its CCR secret key and proves it did so.
The verification card is marked as partially decrypted in the same step;
a node never partially decrypts a vote twice.

DecryptPCC: the node verifies the proofs of the three other nodes and
removes all four contributions, which yields the partial choice return
codes. Its own contribution is trusted.

VerifyBallotCCR: the node verifies the two proofs of the voting client.

CreateLCCShare: the node checks every partial choice return code against
the allow list of the verification card set and derives its share of the
long choice return codes. A node releases at most one share per vote.

Schema (one vote, seen from node j):

	       [PartialDecryptPCC]        [DecryptPCC, VerifyBallotCCR, CreateLCCShare]
	vote ----------------------> e2' ---------------------------------------------> lCC_j
	                              ^  combined with the contributions of the others

Every algorithm takes a context, holding the configuration, and an input,
holding the data of the vote. Both are built by constructors that reject
inconsistent values.
*/
package protocol
