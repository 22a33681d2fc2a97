package audio

import (
	"fmt"
	"io"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const pcmFormat = 1

// WriteWAV encodes a normalized 2-D buffer as 16-bit PCM WAV at path.
func WriteWAV(path string, buf Buffer, sampleRate int) error {
	if buf.NDim() != 2 {
		return fmt.Errorf("encoding wav: expected 2-D buffer, got %d dimensions", buf.NDim())
	}
	frames, channels := buf.Dims[0], buf.Dims[1]
	if channels <= 0 {
		return fmt.Errorf("encoding wav: invalid channel count %d", channels)
	}
	if frames*channels != len(buf.Data) {
		return fmt.Errorf("encoding wav: shape %v does not match %d samples", buf.Dims, len(buf.Data))
	}
	if sampleRate <= 0 {
		return fmt.Errorf("encoding wav: sample rate must be positive, got %d", sampleRate)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating wav file: %w", err)
	}
	defer f.Close()

	data := make([]int, len(buf.Data))
	for i, s := range buf.Data {
		data[i] = int(s)
	}

	enc := wav.NewEncoder(f, sampleRate, 16, channels, pcmFormat)
	err = enc.Write(&goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	})
	if err != nil {
		return fmt.Errorf("encoding wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("finalizing wav: %w", err)
	}
	return f.Close()
}

// DecodeWAV reads a PCM WAV stream into a tagged capture. Mono files become
// 1-D buffers; multichannel files become frames × channels. Samples of other
// bit depths are rescaled to 16 bits.
func DecodeWAV(r io.ReadSeeker) (Tagged, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return Tagged{}, fmt.Errorf("decoding wav: not a valid PCM wav stream")
	}

	pcm, err := dec.FullPCMBuffer()
	if err != nil {
		return Tagged{}, fmt.Errorf("decoding wav: %w", err)
	}

	depth := int(dec.BitDepth)
	samples := make([]int16, len(pcm.Data))
	for i, s := range pcm.Data {
		samples[i] = toInt16(s, depth)
	}

	channels := int(dec.NumChans)
	buf := Interleaved(samples, channels)
	if channels == 1 {
		buf = Mono(samples)
	}

	return Tagged{SampleRate: int(dec.SampleRate), Samples: buf}, nil
}

func toInt16(s, depth int) int16 {
	switch {
	case depth == 8:
		// 8-bit WAV is unsigned.
		return int16((s - 128) << 8)
	case depth > 16:
		return int16(s >> (depth - 16))
	default:
		return int16(s)
	}
}
