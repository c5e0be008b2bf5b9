package vectorindex

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"

	"github.com/secmon-lab/madoguchi/pkg/domain/model"
)

// Fingerprint summarizes corpus content in order. Any change to an id,
// question, answer or category, or to record order, changes the result.
func Fingerprint(records []*model.QARecord) string {
	h := sha256.New()
	writeField := func(h hash.Hash, s string) {
		var n [8]byte
		binary.LittleEndian.PutUint64(n[:], uint64(len(s)))
		_, _ = h.Write(n[:])
		_, _ = h.Write([]byte(s))
	}
	for _, r := range records {
		writeField(h, r.ID.String())
		writeField(h, r.Question)
		writeField(h, r.Answer)
		writeField(h, r.Category)
	}
	return "sha256:" + hex.EncodeToString(h.Sum(nil))
}
