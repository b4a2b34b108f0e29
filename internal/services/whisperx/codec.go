package whisperx

import (
	"encoding/binary"
	"math"

	"github.com/klauspost/compress/zstd"
)

// AudioEncoding names the sample wire format.
const AudioEncoding = "f32le+zstd"

var (
	encoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	decoder, _ = zstd.NewReader(nil)
)

// EncodeAudio packs samples as little-endian float32 and compresses them.
func EncodeAudio(samples []float32) []byte {
	raw := make([]byte, 4*len(samples))
	for i, s := range samples {
		binary.LittleEndian.PutUint32(raw[4*i:], math.Float32bits(s))
	}
	return encoder.EncodeAll(raw, nil)
}

// DecodeAudio reverses EncodeAudio.
func DecodeAudio(data []byte) ([]float32, error) {
	raw, err := decoder.DecodeAll(data, nil)
	if err != nil {
		return nil, err
	}
	out := make([]float32, len(raw)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[4*i:]))
	}
	return out, nil
}
