package engine

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"

	"spock/internal/config"
	"spock/internal/vectorspace"
)

// loadOrCreateTruth implements spec.md §3/§6's Truth lifecycle: on first
// start it generates a fresh random unit vector and writes it to
// <workingFolder>/truth.bin as a raw little-endian dump sized exactly
// dim*bytesPerElement; on later starts it loads that file back verbatim
// so every trace produced against this working folder stays comparable.
// A dimension mismatch (the file was written under a different
// configuration) regenerates and overwrites the file rather than
// failing, since there is no caller-visible state yet to preserve.
func loadOrCreateTruth(path string, space *vectorspace.Space, cfg *config.Config) (vectorspace.Vector, error) {
	if data, err := os.ReadFile(path); err == nil {
		if v, ok := decodeTruth(data, cfg); ok {
			return v, nil
		}
	} else if !os.IsNotExist(err) {
		return vectorspace.Vector{}, fmt.Errorf("%w: %v", ErrFolderAccess, err)
	}

	truth := vectorspace.Normalise(space.CreateRandom())
	if err := writeTruth(path, truth, cfg); err != nil {
		return vectorspace.Vector{}, err
	}
	// Return the values the file now holds, so the first start uses the
	// same element values every later start decodes from truth.bin.
	if v, ok := decodeTruth(encodeTruth(truth, cfg), cfg); ok {
		return v, nil
	}
	return truth, nil
}

func writeTruth(path string, v vectorspace.Vector, cfg *config.Config) error {
	data := encodeTruth(v, cfg)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("%w: %v", ErrFolderAccess, err)
	}
	return nil
}

func encodeTruth(v vectorspace.Vector, cfg *config.Config) []byte {
	bpe := cfg.BytesPerElement()
	out := make([]byte, bpe*len(v.Data))
	for i, x := range v.Data {
		putElement(out[i*bpe:(i+1)*bpe], x, cfg.NumericType)
	}
	return out
}

func decodeTruth(data []byte, cfg *config.Config) (vectorspace.Vector, bool) {
	bpe := cfg.BytesPerElement()
	if bpe == 0 || len(data) != cfg.Dimensions*bpe {
		return vectorspace.Vector{}, false
	}
	out := make([]float64, cfg.Dimensions)
	for i := range out {
		out[i] = getElement(data[i*bpe:(i+1)*bpe], cfg.NumericType)
	}
	return vectorspace.Vector{Data: out, Type: cfg.NumericType}, true
}

func putElement(b []byte, x float64, t config.NumericType) {
	switch t {
	case config.Int8:
		b[0] = byte(int8(x))
	case config.Uint8:
		b[0] = byte(uint8(x))
	case config.Int16:
		binary.LittleEndian.PutUint16(b, uint16(int16(x)))
	case config.Uint16:
		binary.LittleEndian.PutUint16(b, uint16(x))
	case config.Int32:
		binary.LittleEndian.PutUint32(b, uint32(int32(x)))
	case config.Uint32:
		binary.LittleEndian.PutUint32(b, uint32(x))
	case config.Float32:
		binary.LittleEndian.PutUint32(b, math.Float32bits(float32(x)))
	default: // Float64
		binary.LittleEndian.PutUint64(b, math.Float64bits(x))
	}
}

func getElement(b []byte, t config.NumericType) float64 {
	switch t {
	case config.Int8:
		return float64(int8(b[0]))
	case config.Uint8:
		return float64(uint8(b[0]))
	case config.Int16:
		return float64(int16(binary.LittleEndian.Uint16(b)))
	case config.Uint16:
		return float64(binary.LittleEndian.Uint16(b))
	case config.Int32:
		return float64(int32(binary.LittleEndian.Uint32(b)))
	case config.Uint32:
		return float64(binary.LittleEndian.Uint32(b))
	case config.Float32:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
	default: // Float64
		return math.Float64frombits(binary.LittleEndian.Uint64(b))
	}
}
