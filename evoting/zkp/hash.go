package zkp

import (
	"encoding/binary"
	"hash"

	"go.dedis.ch/kyber/v3"
	"golang.org/x/xerrors"
)

// Tags keep the encoding of the different value types apart.
const (
	tagBytes byte = iota + 1
	tagString
	tagInt
	tagPoint
	tagScalar
	tagList
)

// RecursiveHash hashes an ordered list of values. Every value is tagged with
// its type and prefixed with its length, lists are hashed recursively, so
// two different lists never produce the same input to the hash function.
//
// Supported values are []byte, string, int, kyber.Point, kyber.Scalar,
// slices of those and []interface{} for nested lists.
func RecursiveHash(suite kyber.HashFactory, values ...interface{}) ([]byte, error) {
	h := suite.Hash()
	for _, v := range values {
		if err := writeValue(suite, h, v); err != nil {
			return nil, err
		}
	}
	return h.Sum(nil), nil
}

func writeValue(suite kyber.HashFactory, h hash.Hash, v interface{}) error {
	switch val := v.(type) {
	case []byte:
		writeTagged(h, tagBytes, val)
	case string:
		writeTagged(h, tagString, []byte(val))
	case int:
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, uint64(val))
		writeTagged(h, tagInt, buf)
	case kyber.Point:
		if val == nil {
			return xerrors.New("cannot hash a nil point")
		}
		buf, err := val.MarshalBinary()
		if err != nil {
			return xerrors.Errorf("marshaling point: %v", err)
		}
		writeTagged(h, tagPoint, buf)
	case kyber.Scalar:
		if val == nil {
			return xerrors.New("cannot hash a nil scalar")
		}
		buf, err := val.MarshalBinary()
		if err != nil {
			return xerrors.Errorf("marshaling scalar: %v", err)
		}
		writeTagged(h, tagScalar, buf)
	case []kyber.Point:
		list := make([]interface{}, len(val))
		for i := range val {
			list[i] = val[i]
		}
		return writeList(suite, h, list)
	case []kyber.Scalar:
		list := make([]interface{}, len(val))
		for i := range val {
			list[i] = val[i]
		}
		return writeList(suite, h, list)
	case []string:
		list := make([]interface{}, len(val))
		for i := range val {
			list[i] = val[i]
		}
		return writeList(suite, h, list)
	case []interface{}:
		return writeList(suite, h, val)
	default:
		return xerrors.Errorf("cannot hash value of type %T", v)
	}
	return nil
}

func writeList(suite kyber.HashFactory, h hash.Hash, list []interface{}) error {
	sub, err := RecursiveHash(suite, list...)
	if err != nil {
		return err
	}
	writeTagged(h, tagList, sub)
	return nil
}

func writeTagged(h hash.Hash, tag byte, buf []byte) {
	length := make([]byte, 4)
	binary.BigEndian.PutUint32(length, uint32(len(buf)))
	h.Write([]byte{tag})
	h.Write(length)
	h.Write(buf)
}

// challenge hashes the values into a scalar of the group.
func challenge(suite Suite, values ...interface{}) (kyber.Scalar, error) {
	buf, err := RecursiveHash(suite, values...)
	if err != nil {
		return nil, err
	}
	return suite.Scalar().SetBytes(buf), nil
}
