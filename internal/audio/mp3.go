package audio

import (
	"fmt"
	"os"
	"time"

	"github.com/hajimehoshi/go-mp3"
)

// MP3Info describes a decoded MP3 file.
type MP3Info struct {
	SampleRate int
	Duration   time.Duration
}

// ProbeMP3 decodes the MP3 headers at path and reports its sample rate and
// playback duration.
func ProbeMP3(path string) (MP3Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return MP3Info{}, fmt.Errorf("opening mp3: %w", err)
	}
	defer f.Close()

	dec, err := mp3.NewDecoder(f)
	if err != nil {
		return MP3Info{}, fmt.Errorf("decoding mp3: %w", err)
	}

	info := MP3Info{SampleRate: dec.SampleRate()}
	// go-mp3 always decodes to 16-bit stereo: 4 bytes per frame.
	if n := dec.Length(); n > 0 && info.SampleRate > 0 {
		frames := n / 4
		info.Duration = time.Duration(frames) * time.Second / time.Duration(info.SampleRate)
	}
	return info, nil
}
