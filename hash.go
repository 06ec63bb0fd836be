package chatlai

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
)

// Hash returns a stable hex SHA-256 digest of the key, suitable for external
// key names. Fields are length-prefixed so that no two distinct keys collide
// by concatenation, and an unset source hashes differently from every code.
func (k Key) Hash() string {
	h := sha256.New()
	writeField := func(s string) {
		var n [8]byte
		binary.BigEndian.PutUint64(n[:], uint64(len(s)))
		h.Write(n[:])
		h.Write([]byte(s))
	}

	writeField(k.Text)
	if code, ok := k.Source.Get(); ok {
		h.Write([]byte{1})
		writeField(code)
	} else {
		h.Write([]byte{0})
	}
	writeField(k.Target)

	return hex.EncodeToString(h.Sum(nil))
}
