package predictor

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// ErrCorruptBlob reports a parameter blob that cannot be decoded.
var ErrCorruptBlob = errors.New("corrupt predictor blob")

var magic = [4]byte{'B', 'R', 'G', 'N'}

const formatVersion uint16 = 1

const paramCount = InputSize*HiddenSize + HiddenSize + HiddenSize + 1

// header: magic, format, input size, hidden size, snapshot version
const headerSize = 4 + 2 + 2 + 2 + 8

// Encode serialises a snapshot. Arrays are written in the fixed order
// W1 (row-major), W2, B1, B2 as little-endian float64 bits.
func Encode(s *Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(headerSize + paramCount*8)

	buf.Write(magic[:])
	le := binary.LittleEndian
	for _, v := range []uint16{formatVersion, InputSize, HiddenSize} {
		if err := binary.Write(&buf, le, v); err != nil {
			return nil, err
		}
	}
	if err := binary.Write(&buf, le, s.Version); err != nil {
		return nil, err
	}

	for _, f := range flatten(&s.Params) {
		if err := binary.Write(&buf, le, math.Float64bits(f)); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func Decode(blob []byte) (*Snapshot, error) {
	if len(blob) != headerSize+paramCount*8 {
		return nil, fmt.Errorf("%w: unexpected length %d", ErrCorruptBlob, len(blob))
	}
	if !bytes.Equal(blob[:4], magic[:]) {
		return nil, fmt.Errorf("%w: bad magic", ErrCorruptBlob)
	}

	le := binary.LittleEndian
	if v := le.Uint16(blob[4:6]); v != formatVersion {
		return nil, fmt.Errorf("%w: unsupported format %d", ErrCorruptBlob, v)
	}
	if in, hid := le.Uint16(blob[6:8]), le.Uint16(blob[8:10]); in != InputSize || hid != HiddenSize {
		return nil, fmt.Errorf("%w: shape %dx%d, want %dx%d", ErrCorruptBlob, in, hid, InputSize, HiddenSize)
	}

	s := &Snapshot{Version: le.Uint64(blob[10:18])}
	values := make([]float64, paramCount)
	body := blob[headerSize:]
	for i := range values {
		f := math.Float64frombits(le.Uint64(body[i*8:]))
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("%w: non-finite parameter at %d", ErrCorruptBlob, i)
		}
		values[i] = f
	}
	unflatten(values, &s.Params)
	return s, nil
}

func flatten(p *Params) []float64 {
	out := make([]float64, 0, paramCount)
	for i := 0; i < InputSize; i++ {
		out = append(out, p.W1[i][:]...)
	}
	out = append(out, p.W2[:]...)
	out = append(out, p.B1[:]...)
	return append(out, p.B2)
}

func unflatten(v []float64, p *Params) {
	k := 0
	for i := 0; i < InputSize; i++ {
		k += copy(p.W1[i][:], v[k:k+HiddenSize])
	}
	k += copy(p.W2[:], v[k:k+HiddenSize])
	k += copy(p.B1[:], v[k:k+HiddenSize])
	p.B2 = v[k]
}
