// Package zkp implements the non-interactive zero-knowledge proofs the
// control components and the voting client exchange: the exponentiation
// proof (equality of discrete logarithms over any number of bases) and the
// plaintext-equality proof between two ElGamal ciphertexts.
//
// Both are Fiat-Shamir transformed Sigma protocols. The challenge hashes the
// statement, the commitment and auxiliary data, which binds every proof to
// one election context and one purpose.
//
// The group is written additively: an "exponentiation" g^x is the scalar
// multiplication x·g.
package zkp
