package database

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// ErrInvalidEmbedding is returned when an embedding blob cannot be decoded.
var ErrInvalidEmbedding = errors.New("invalid embedding data")

// EncodeEmbedding serializes a vector as little-endian float32 values.
func EncodeEmbedding(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(x))
	}
	return buf
}

// DecodeEmbedding parses a blob written by EncodeEmbedding.
func DecodeEmbedding(data []byte) ([]float32, error) {
	if len(data) == 0 || len(data)%4 != 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidEmbedding, len(data))
	}
	v := make([]float32, len(data)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[4*i:]))
	}
	return v, nil
}
