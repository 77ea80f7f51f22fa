package xep

import (
	"encoding/binary"
	"math"
)

// Samples is one decoded radar frame. Exactly one of the two slices is
// populated: Real when the down-converter is disabled, IQ when it is
// enabled. The decode mode is a property of the session at read time,
// not of the payload bytes.
type Samples struct {
	Real []float32
	IQ   []complex64
}

// Complex reports whether the frame decoded as down-converted I/Q
// pairs.
func (s Samples) Complex() bool { return s.IQ != nil }

// Len returns the number of samples in the frame.
func (s Samples) Len() int {
	if s.IQ != nil {
		return len(s.IQ)
	}
	return len(s.Real)
}

const floatSize = 4

// decodeSamples reinterprets a frame payload as IEEE-754 float32
// elements. The device and every supported host are little-endian, so
// no byte swapping happens. With the down-converter enabled,
// consecutive element pairs become the real and imaginary parts of one
// complex sample, halving the sample count.
func decodeSamples(payload []byte, downConverter bool) (Samples, error) {
	if downConverter {
		if len(payload)%(2*floatSize) != 0 {
			return Samples{}, &DecodeError{Length: len(payload), ElemSize: 2 * floatSize}
		}
		iq := make([]complex64, len(payload)/(2*floatSize))
		for i := range iq {
			iq[i] = complex(float32At(payload, 2*i), float32At(payload, 2*i+1))
		}
		return Samples{IQ: iq}, nil
	}

	if len(payload)%floatSize != 0 {
		return Samples{}, &DecodeError{Length: len(payload), ElemSize: floatSize}
	}
	out := make([]float32, len(payload)/floatSize)
	for i := range out {
		out[i] = float32At(payload, i)
	}
	return Samples{Real: out}, nil
}

func float32At(p []byte, i int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(p[i*floatSize:]))
}
