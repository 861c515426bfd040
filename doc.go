/*
Package ccrnode holds the pieces shared by every package of a
return-code control component (CCR): the cryptographic suite and the error
taxonomy.

Four independent control components take part in the processing of every
vote. Each of them partially decrypts the encrypted partial choice return
codes of the vote, verifies the partial decryptions of the three others,
verifies the proofs of the voting client and finally releases its long
choice return code share. No single node learns the partial choice return
codes on its own.

The node itself lives in evoting/service, the algorithms in
evoting/protocol and the binary in evoting/ccrnode.
*/
package ccrnode
