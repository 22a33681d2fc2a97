package audio

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func sine(n int) []int16 {
	out := make([]int16, n)
	for i := range out {
		out[i] = int16(8000 * math.Sin(2*math.Pi*440*float64(i)/16000))
	}
	return out
}

func TestNormalizeMonoBecomesSingleChannel(t *testing.T) {
	inputs := []struct {
		name string
		in   Input
	}{
		{name: "bare mono", in: Mono(sine(160))},
		{name: "tagged mono", in: Tagged{SampleRate: 16000, Samples: Mono(sine(320))}},
		{name: "empty mono", in: Mono(nil)},
	}

	for _, tt := range inputs {
		t.Run(tt.name, func(t *testing.T) {
			buf, _ := Normalize(tt.in)
			if buf.NDim() != 2 {
				t.Fatalf("Expected 2-D buffer, got %d dimensions", buf.NDim())
			}
			if buf.Dims[1] != 1 {
				t.Errorf("Expected exactly one channel, got %d", buf.Dims[1])
			}
			if buf.Dims[0] != len(buf.Data) {
				t.Errorf("Expected %d frames, got %d", len(buf.Data), buf.Dims[0])
			}
		})
	}
}

func TestNormalizeSampleRate(t *testing.T) {
	for _, rate := range []int{8000, 16000, 22050, 48000, 0} {
		_, got := Normalize(Tagged{SampleRate: rate, Samples: Mono(sine(10))})
		if got != rate {
			t.Errorf("Expected tagged rate %d to be kept, got %d", rate, got)
		}
	}

	_, got := Normalize(Interleaved(sine(20), 2))
	if got != DefaultSampleRate {
		t.Errorf("Expected bare buffer rate %d, got %d", DefaultSampleRate, got)
	}
}

func TestNormalizeKeepsMultichannelShape(t *testing.T) {
	in := Interleaved(sine(200), 2)
	buf, _ := Normalize(in)
	if buf.Dims[0] != 100 || buf.Dims[1] != 2 {
		t.Errorf("Expected shape [100 2], got %v", buf.Dims)
	}
	if buf.Channels() != 2 {
		t.Errorf("Expected 2 channels, got %d", buf.Channels())
	}
}

func TestWriteWAVAndDecode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.wav")
	samples := sine(1600)

	buf, rate := Normalize(Tagged{SampleRate: 16000, Samples: Mono(samples)})
	if err := WriteWAV(path, buf, rate); err != nil {
		t.Fatalf("WriteWAV failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if want := int64(44 + len(samples)*2); info.Size() != want {
		t.Errorf("Expected file size %d, got %d", want, info.Size())
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer f.Close()

	decoded, err := DecodeWAV(f)
	if err != nil {
		t.Fatalf("DecodeWAV failed: %v", err)
	}
	if decoded.SampleRate != 16000 {
		t.Errorf("Expected sample rate 16000, got %d", decoded.SampleRate)
	}
	if decoded.Samples.NDim() != 1 {
		t.Errorf("Expected mono wav to decode as 1-D, got %v", decoded.Samples.Dims)
	}
	for i := range samples {
		if decoded.Samples.Data[i] != samples[i] {
			t.Fatalf("Sample %d mismatch: expected %d, got %d", i, samples[i], decoded.Samples.Data[i])
		}
	}
}

func TestWriteWAVRejectsMalformedBuffers(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		buf  Buffer
		rate int
	}{
		{name: "one dimension", buf: Mono(sine(10)), rate: 16000},
		{name: "shape mismatch", buf: Buffer{Data: sine(10), Dims: []int{4, 2}}, rate: 16000},
		{name: "zero channels", buf: Buffer{Data: nil, Dims: []int{0, 0}}, rate: 16000},
		{name: "zero rate", buf: Interleaved(sine(10), 1), rate: 0},
		{name: "three dimensions", buf: Buffer{Data: sine(8), Dims: []int{2, 2, 2}}, rate: 16000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := WriteWAV(filepath.Join(dir, "bad.wav"), tt.buf, tt.rate); err == nil {
				t.Error("Expected error for malformed buffer")
			}
		})
	}
}

func TestToInt16(t *testing.T) {
	tests := []struct {
		sample, depth int
		want          int16
	}{
		{sample: 128, depth: 8, want: 0},
		{sample: 255, depth: 8, want: 127 << 8},
		{sample: 0, depth: 8, want: -128 << 8},
		{sample: -1234, depth: 16, want: -1234},
		{sample: 0x7FFF00, depth: 24, want: 0x7FFF},
		{sample: -(1 << 31), depth: 32, want: -(1 << 15)},
	}

	for _, tt := range tests {
		if got := toInt16(tt.sample, tt.depth); got != tt.want {
			t.Errorf("toInt16(%d, %d) = %d, want %d", tt.sample, tt.depth, got, tt.want)
		}
	}
}

func TestProbeMP3RejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "not.mp3")
	if err := os.WriteFile(path, []byte("definitely not an mp3"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if _, err := ProbeMP3(path); err == nil {
		t.Error("Expected error probing a non-mp3 file")
	}
}

func TestDecodeCapture(t *testing.T) {
	pcm := []byte{1, 0, 2, 0, 3, 0, 4, 0, 5}

	in, err := DecodeCapture(bytes.NewReader(pcm), 0, 2)
	if err != nil {
		t.Fatalf("DecodeCapture failed: %v", err)
	}
	buf, ok := in.(Buffer)
	if !ok {
		t.Fatalf("Expected bare buffer, got %T", in)
	}
	if buf.Dims[0] != 2 || buf.Dims[1] != 2 || buf.Data[3] != 4 {
		t.Errorf("Unexpected buffer %+v", buf)
	}

	in, err = DecodeCapture(bytes.NewReader(pcm), 8000, 1)
	if err != nil {
		t.Fatalf("DecodeCapture failed: %v", err)
	}
	tagged, ok := in.(Tagged)
	if !ok || tagged.SampleRate != 8000 || tagged.Samples.NDim() != 1 || len(tagged.Samples.Data) != 4 {
		t.Errorf("Unexpected tagged capture %+v", in)
	}

	if in, err := DecodeCapture(bytes.NewReader(nil), 8000, 1); err != nil || in != nil {
		t.Errorf("Expected nil capture for empty input, got %v %v", in, err)
	}
	if _, err := DecodeCapture(bytes.NewReader(pcm), 8000, 0); err == nil {
		t.Error("Expected error for zero channels")
	}
}
