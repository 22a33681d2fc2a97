// Package audio normalizes captured PCM buffers and reads and writes the
// files handed to the transcoder.
//
// A capture arrives either tagged with its sample rate or as a bare buffer.
// Buffers follow the numpy layout used by capture front-ends: 1-D for mono
// samples, 2-D for frames × channels, with frame-major (interleaved) data.
package audio

// DefaultSampleRate is assumed for captures that carry no rate.
const DefaultSampleRate = 44100

// Buffer is a signed 16-bit PCM sample buffer with numpy-style dimensions.
type Buffer struct {
	Data []int16
	Dims []int
}

// Mono builds a 1-D buffer.
func Mono(samples []int16) Buffer {
	return Buffer{Data: samples, Dims: []int{len(samples)}}
}

// Interleaved builds a 2-D frames × channels buffer from interleaved data.
func Interleaved(data []int16, channels int) Buffer {
	frames := 0
	if channels > 0 {
		frames = len(data) / channels
	}
	return Buffer{Data: data, Dims: []int{frames, channels}}
}

// NDim returns the number of dimensions.
func (b Buffer) NDim() int { return len(b.Dims) }

// Channels returns the channel count: 1 for 1-D buffers, the second
// dimension for 2-D buffers, and 0 for anything else.
func (b Buffer) Channels() int {
	switch b.NDim() {
	case 1:
		return 1
	case 2:
		return b.Dims[1]
	default:
		return 0
	}
}

// Input is a raw capture: either a Tagged pair or a bare Buffer.
type Input interface {
	raw() (buf Buffer, rate int, tagged bool)
}

// Tagged is a capture that carries its own sample rate.
type Tagged struct {
	SampleRate int
	Samples    Buffer
}

func (t Tagged) raw() (Buffer, int, bool) { return t.Samples, t.SampleRate, true }

func (b Buffer) raw() (Buffer, int, bool) { return b, 0, false }

// Normalize extracts the buffer and sample rate from a capture and reshapes
// 1-D buffers to a single-channel 2-D buffer. Sample values are not
// validated; a buffer whose Dims do not describe its Data fails in WriteWAV.
func Normalize(in Input) (Buffer, int) {
	buf, rate, tagged := in.raw()
	if !tagged {
		rate = DefaultSampleRate
	}
	if buf.NDim() == 1 {
		buf = Buffer{Data: buf.Data, Dims: []int{buf.Dims[0], 1}}
	}
	return buf, rate
}
