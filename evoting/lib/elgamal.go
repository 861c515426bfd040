package lib

import (
	"crypto/cipher"

	"go.dedis.ch/kyber/v3"
	"golang.org/x/xerrors"

	"go.dedis.ch/ccrnode"
)

// PublicKey is a multi-recipient ElGamal public key, one point per message
// element.
type PublicKey []kyber.Point

// SecretKey is the multi-recipient ElGamal secret key matching a PublicKey.
type SecretKey []kyber.Scalar

// Ciphertext is a multi-recipient ElGamal ciphertext: one shared ephemeral
// key Gamma and one blinded message element per public key element.
type Ciphertext struct {
	Gamma kyber.Point
	Phis  []kyber.Point
}

// GenKeyPair creates a key pair of the given size.
func GenKeyPair(group kyber.Group, size int, rand cipher.Stream) (SecretKey, PublicKey) {
	sk := make(SecretKey, size)
	for i := range sk {
		sk[i] = group.Scalar().Pick(rand)
	}
	return sk, sk.PublicKey(group)
}

// PublicKey derives the public key.
func (sk SecretKey) PublicKey(group kyber.Group) PublicKey {
	pk := make(PublicKey, len(sk))
	for i, x := range sk {
		pk[i] = group.Point().Mul(x, nil)
	}
	return pk
}

// Sum returns the sum of the first n elements of the key, which is the key
// a compressed ciphertext of n elements decrypts under.
func (pk PublicKey) Sum(group kyber.Group, n int) kyber.Point {
	sum := group.Point().Null()
	for i := 0; i < n && i < len(pk); i++ {
		sum.Add(sum, pk[i])
	}
	return sum
}

// Equal compares the keys element by element.
func (pk PublicKey) Equal(other PublicKey) bool {
	if len(pk) != len(other) {
		return false
	}
	for i := range pk {
		if !pk[i].Equal(other[i]) {
			return false
		}
	}
	return true
}

// CombinePublicKeys adds the keys of several parties element-wise. The
// matching secret key is the element-wise sum of their secret keys.
func CombinePublicKeys(group kyber.Group, keys ...PublicKey) (PublicKey, error) {
	if len(keys) == 0 {
		return nil, xerrors.New("no key to combine")
	}
	size := len(keys[0])
	combined := make(PublicKey, size)
	for i := range combined {
		combined[i] = group.Point().Null()
	}
	for _, key := range keys {
		if len(key) != size {
			return nil, xerrors.Errorf("cannot combine keys of sizes %d and %d", size, len(key))
		}
		for i := range key {
			combined[i].Add(combined[i], key[i])
		}
	}
	return combined, nil
}

// Encrypt performs the multi-recipient ElGamal encryption of messages with
// the randomness r. Only the first len(messages) elements of the key are
// used.
func Encrypt(group kyber.Group, messages []kyber.Point, r kyber.Scalar, pk PublicKey) (*Ciphertext, error) {
	if len(messages) == 0 {
		return nil, ccrnode.ErrInvalidInput.Wrapf("nothing to encrypt")
	}
	if len(messages) > len(pk) {
		return nil, ccrnode.ErrInvalidInput.Wrapf("%d messages for a key of size %d", len(messages), len(pk))
	}
	c := &Ciphertext{
		Gamma: group.Point().Mul(r, nil),
		Phis:  make([]kyber.Point, len(messages)),
	}
	for i, m := range messages {
		S := group.Point().Mul(r, pk[i])
		c.Phis[i] = S.Add(S, m)
	}
	return c, nil
}

// Size returns the number of message elements.
func (c *Ciphertext) Size() int {
	if c == nil {
		return 0
	}
	return len(c.Phis)
}

// Exponentiate multiplies every component of the ciphertext by k. The
// result encrypts k times the original messages.
func (c *Ciphertext) Exponentiate(group kyber.Group, k kyber.Scalar) *Ciphertext {
	e := &Ciphertext{
		Gamma: group.Point().Mul(k, c.Gamma),
		Phis:  make([]kyber.Point, len(c.Phis)),
	}
	for i, phi := range c.Phis {
		e.Phis[i] = group.Point().Mul(k, phi)
	}
	return e
}

// Head returns the single-element ciphertext made of Gamma and the first
// message element.
func (c *Ciphertext) Head() *Ciphertext {
	return &Ciphertext{Gamma: c.Gamma, Phis: []kyber.Point{c.Phis[0]}}
}

// Compress returns the single-element ciphertext (Gamma, sum of Phis). It
// encrypts the sum of the messages under the sum of the key elements.
func (c *Ciphertext) Compress(group kyber.Group) *Ciphertext {
	sum := group.Point().Null()
	for _, phi := range c.Phis {
		sum.Add(sum, phi)
	}
	return &Ciphertext{Gamma: c.Gamma, Phis: []kyber.Point{sum}}
}

// Decrypt removes the blinding with the secret key.
func (c *Ciphertext) Decrypt(group kyber.Group, sk SecretKey) ([]kyber.Point, error) {
	if len(sk) < len(c.Phis) {
		return nil, ccrnode.ErrInvalidInput.Wrapf("key of size %d for a ciphertext of size %d",
			len(sk), len(c.Phis))
	}
	messages := make([]kyber.Point, len(c.Phis))
	for i, phi := range c.Phis {
		S := group.Point().Mul(sk[i], c.Gamma) // regenerate shared secret
		messages[i] = group.Point().Sub(phi, S)
	}
	return messages, nil
}

// Equal returns true if both ciphertexts have the same components.
func (c *Ciphertext) Equal(other *Ciphertext) bool {
	if c == nil || other == nil {
		return c == other
	}
	if !c.Gamma.Equal(other.Gamma) || len(c.Phis) != len(other.Phis) {
		return false
	}
	for i := range c.Phis {
		if !c.Phis[i].Equal(other.Phis[i]) {
			return false
		}
	}
	return true
}

// Check returns an error if an element of the ciphertext is missing.
func (c *Ciphertext) Check() error {
	if c == nil || c.Gamma == nil || len(c.Phis) == 0 {
		return ccrnode.ErrInvalidInput.Wrapf("incomplete ciphertext")
	}
	for i, phi := range c.Phis {
		if phi == nil {
			return ccrnode.ErrInvalidInput.Wrapf("missing ciphertext element %d", i)
		}
	}
	return nil
}
