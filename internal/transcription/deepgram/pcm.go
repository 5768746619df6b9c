package deepgram

import "encoding/binary"

// pcm16le converts float32 samples in [-1, 1] to 16-bit signed little-endian
// PCM. Negative samples scale by 0x8000 and positive by 0x7fff so both ends
// of the range saturate without overflow.
func pcm16le(frame []float32) []byte {
	out := make([]byte, len(frame)*2)
	for i, sample := range frame {
		if sample < -1 {
			sample = -1
		}
		if sample > 1 {
			sample = 1
		}
		var value int16
		if sample < 0 {
			value = int16(sample * 0x8000)
		} else {
			value = int16(sample * 0x7fff)
		}
		binary.LittleEndian.PutUint16(out[i*2:], uint16(value))
	}
	return out
}
