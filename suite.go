package ccrnode

import (
	"go.dedis.ch/kyber/v3/suites"
)

// Suite is the group every control component computes in. All points and
// scalars exchanged between nodes, voting clients and the voting server
// belong to it.
var Suite = suites.MustFind("Ed25519")
