package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// DecodeCapture reads an uploaded capture. WAV streams are detected by their
// RIFF header and carry their own rate. Anything else is raw signed 16-bit
// little-endian PCM with the given channel count; it is tagged with rate when
// rate is positive and returned bare otherwise. An empty stream yields nil.
func DecodeCapture(r io.ReadSeeker, rate, channels int) (Input, error) {
	head := make([]byte, 4)
	n, _ := io.ReadFull(r, head)
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewinding capture: %w", err)
	}
	if n == 0 {
		return nil, nil
	}
	if n == 4 && bytes.Equal(head, []byte("RIFF")) {
		tagged, err := DecodeWAV(r)
		if err != nil {
			return nil, err
		}
		return tagged, nil
	}

	if channels <= 0 {
		return nil, fmt.Errorf("decoding pcm: invalid channel count %d", channels)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("decoding pcm: %w", err)
	}
	samples := DecodePCM(data, channels)

	buf := Mono(samples)
	if channels > 1 {
		buf = Interleaved(samples, channels)
	}
	if rate <= 0 {
		return buf, nil
	}
	return Tagged{SampleRate: rate, Samples: buf}, nil
}

// DecodePCM converts little-endian s16 bytes to samples, dropping any
// trailing partial frame.
func DecodePCM(data []byte, channels int) []int16 {
	if channels <= 0 {
		channels = 1
	}
	frames := len(data) / 2 / channels
	samples := make([]int16, frames*channels)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(data[2*i:]))
	}
	return samples
}
