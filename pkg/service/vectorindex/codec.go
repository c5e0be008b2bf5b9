package vectorindex

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"encoding/json"
	"io"
	"math"

	"github.com/m-mizutani/goerr/v2"
)

// Persisted layout, all integers little endian:
//
//	magic     [8]byte "MDGCIDX1"
//	manifest  uint32 length + JSON
//	count     uint32
//	entries   count x (uint32 length + JSON)
//	vectors   count x dim x float32
var magic = [8]byte{'M', 'D', 'G', 'C', 'I', 'D', 'X', '1'}

// maxBlock bounds a single length-prefixed block to reject corrupt lengths early
const maxBlock = 64 << 20

// Encode serializes the index
func Encode(x *Index) ([]byte, error) {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)

	if _, err := w.Write(magic[:]); err != nil {
		return nil, goerr.Wrap(err, "failed to write magic")
	}
	manifest, err := json.Marshal(x.manifest)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to marshal manifest")
	}
	if err := writeBlock(w, manifest); err != nil {
		return nil, err
	}

	if err := binary.Write(w, binary.LittleEndian, uint32(len(x.entries))); err != nil {
		return nil, goerr.Wrap(err, "failed to write entry count")
	}
	for _, e := range x.entries {
		raw, err := json.Marshal(e)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to marshal entry", goerr.V("id", e.ID))
		}
		if err := writeBlock(w, raw); err != nil {
			return nil, err
		}
	}
	for _, e := range x.entries {
		if err := binary.Write(w, binary.LittleEndian, e.Vector); err != nil {
			return nil, goerr.Wrap(err, "failed to write vector", goerr.V("id", e.ID))
		}
	}

	if err := w.Flush(); err != nil {
		return nil, goerr.Wrap(err, "failed to flush index")
	}
	return buf.Bytes(), nil
}

// Decode restores an index written by Encode. Unknown format versions,
// foreign metrics and truncated data are ErrProtocol.
func Decode(data []byte) (*Index, error) {
	r := bytes.NewReader(data)

	var head [8]byte
	if _, err := io.ReadFull(r, head[:]); err != nil || head != magic {
		return nil, goerr.Wrap(ErrProtocol, "not an index file")
	}

	rawManifest, err := readBlock(r)
	if err != nil {
		return nil, err
	}
	var manifest Manifest
	if err := json.Unmarshal(rawManifest, &manifest); err != nil {
		return nil, goerr.Wrap(ErrProtocol, "invalid manifest", goerr.V("error", err.Error()))
	}
	if err := checkManifest(manifest); err != nil {
		return nil, err
	}

	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, goerr.Wrap(ErrProtocol, "missing entry count")
	}
	if int(count) != manifest.Count {
		return nil, goerr.Wrap(ErrProtocol, "entry count differs from manifest",
			goerr.V("manifest", manifest.Count), goerr.V("actual", count))
	}

	entries := make([]Entry, count)
	for i := range entries {
		raw, err := readBlock(r)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &entries[i]); err != nil {
			return nil, goerr.Wrap(ErrProtocol, "invalid entry", goerr.V("position", i), goerr.V("error", err.Error()))
		}
	}

	want := int64(count) * int64(manifest.Dim) * 4
	if int64(r.Len()) != want {
		return nil, goerr.Wrap(ErrProtocol, "vector block size mismatch",
			goerr.V("expected", want), goerr.V("actual", r.Len()))
	}
	for i := range entries {
		v := make([]float32, manifest.Dim)
		if err := binary.Read(r, binary.LittleEndian, v); err != nil {
			return nil, goerr.Wrap(ErrProtocol, "truncated vector", goerr.V("position", i))
		}
		for _, f := range v {
			if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
				return nil, goerr.Wrap(ErrProtocol, "non-finite vector value", goerr.V("id", entries[i].ID))
			}
		}
		entries[i].Vector = v
	}

	return assemble(manifest, entries)
}

// checkManifest rejects indexes this build cannot interpret
func checkManifest(m Manifest) error {
	if m.FormatVersion != FormatVersion {
		return goerr.Wrap(ErrProtocol, "unsupported index format version",
			goerr.V("expected", FormatVersion), goerr.V("actual", m.FormatVersion))
	}
	if m.Metric != MetricCosine01 {
		return goerr.Wrap(ErrProtocol, "index built with another similarity metric",
			goerr.V("expected", MetricCosine01), goerr.V("actual", m.Metric))
	}
	if m.Count < 0 || (m.Count > 0 && m.Dim <= 0) {
		return goerr.Wrap(ErrProtocol, "invalid manifest dimensions", goerr.V("count", m.Count), goerr.V("dim", m.Dim))
	}
	return nil
}

func writeBlock(w io.Writer, b []byte) error {
	if len(b) > maxBlock {
		return goerr.New("block too large", goerr.V("size", len(b)))
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(b))); err != nil {
		return goerr.Wrap(err, "failed to write block length")
	}
	if _, err := w.Write(b); err != nil {
		return goerr.Wrap(err, "failed to write block")
	}
	return nil
}

func readBlock(r io.Reader) ([]byte, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, goerr.Wrap(ErrProtocol, "truncated block length")
	}
	if n > maxBlock {
		return nil, goerr.Wrap(ErrProtocol, "block length out of range", goerr.V("length", n))
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, goerr.Wrap(ErrProtocol, "truncated block")
	}
	return b, nil
}
