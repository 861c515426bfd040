package lib

// Labels of the proofs, bound into their auxiliary data.
const (
	LabelCreateVote        = "CreateVote"
	LabelPartialDecryptPCC = "PartialDecryptPCC"
	LabelCreateLCCShare    = "CreateLCCShare"
)

// VoteAuxiliaryData is bound into the proofs of the voting client.
func VoteAuxiliaryData(contextHash string, ids ContextIds) []interface{} {
	return []interface{}{contextHash, LabelCreateVote, ids.ElectionEventID,
		ids.VerificationCardSetID, ids.VerificationCardID}
}

// PartialDecryptionAuxiliaryData is bound into the exponentiation proofs
// of the partial decryption of node nodeID.
func PartialDecryptionAuxiliaryData(contextHash string, ids ContextIds, nodeID int) []interface{} {
	return []interface{}{contextHash, LabelPartialDecryptPCC, ids.ElectionEventID,
		ids.VerificationCardSetID, ids.VerificationCardID, nodeID}
}

// LCCShareAuxiliaryData is bound into the proof of the long choice return
// codes share of node nodeID.
func LCCShareAuxiliaryData(contextHash string, ids ContextIds, nodeID int) []interface{} {
	return []interface{}{contextHash, LabelCreateLCCShare, ids.ElectionEventID,
		ids.VerificationCardSetID, ids.VerificationCardID, nodeID}
}
