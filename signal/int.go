package signal

import "math"

const (
	// BitDepth8 is 8 bit depth.
	BitDepth8 = BitDepth(8)
	// BitDepth16 is 16 bit depth.
	BitDepth16 = BitDepth(16)
	// BitDepth32 is 32 bit depth.
	BitDepth32 = BitDepth(32)
)

// InterInt is an interleaved int signal.
type InterInt struct {
	Data        []int
	NumChannels int
	BitDepth
}

// BitDepth contains values required for int-to-float and backward conversion.
type BitDepth int

// devider is used when int to float conversion is done.
func (bitDepth BitDepth) devider() int {
	switch bitDepth {
	case BitDepth8:
		return math.MaxInt8
	case BitDepth16:
		return math.MaxInt16
	case BitDepth32:
		return math.MaxInt32
	default:
		return 1
	}
}

// multiplier is used when float to int conversion is done.
func (bitDepth BitDepth) multiplier() int {
	switch bitDepth {
	case BitDepth8:
		return math.MaxInt8 - 1
	case BitDepth16:
		return math.MaxInt16 - 1
	case BitDepth32:
		return math.MaxInt32 - 1
	default:
		return 1
	}
}

// AsBuffer converts interleaved int signal to planar float buffer.
func (ints InterInt) AsBuffer(sampleRate int) *Buffer {
	if ints.Data == nil || ints.NumChannels == 0 {
		return NewBuffer(0, 0, sampleRate)
	}
	length := int(math.Ceil(float64(len(ints.Data)) / float64(ints.NumChannels)))
	b := NewBuffer(ints.NumChannels, length, sampleRate)

	devider := float64(ints.BitDepth.devider())
	for c := range b.data {
		pos := 0
		for j := c; j < len(ints.Data); j = j + ints.NumChannels {
			b.data[c][pos] = float64(ints.Data[j]) / devider
			pos++
		}
	}
	return b
}

// AsInterInt converts buffer to interleaved int. Samples out of [-1, 1]
// range are clipped.
func (b *Buffer) AsInterInt(bitDepth BitDepth) InterInt {
	numChannels := b.NumChannels()
	multiplier := float64(bitDepth.multiplier())
	ints := make([]int, b.Len()*numChannels)
	for c, ch := range b.data {
		for i, v := range ch {
			if v > 1 {
				v = 1
			} else if v < -1 {
				v = -1
			}
			ints[i*numChannels+c] = int(v * multiplier)
		}
	}
	return InterInt{
		Data:        ints,
		NumChannels: numChannels,
		BitDepth:    bitDepth,
	}
}
