package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nadzzz/aidoctor/internal/audio"
	"github.com/nadzzz/aidoctor/internal/message"
)

var (
	consultAudio    string
	consultPCM      string
	consultRate     int
	consultChannels int
	consultImage    string
)

var consultCmd = &cobra.Command{
	Use:   "consult",
	Short: "Run one consultation from local files and print the result as JSON",
	Long: `Run one consultation from local files. Progress goes to stderr and the
result bundle is printed to stdout. Produced audio is kept in the artifact
directory until it expires.

Audio can be a WAV file (--audio) or raw signed 16-bit little-endian PCM
(--pcm). Raw PCM without --rate is assumed to be 44100 Hz.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if consultAudio != "" && consultPCM != "" {
			return errors.New("--audio and --pcm are mutually exclusive")
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		c, err := build(cfg)
		if err != nil {
			return err
		}

		req := &message.Consultation{ImagePath: consultImage}
		switch {
		case consultAudio != "":
			req.Audio, err = readCapture(consultAudio, 0, 1)
		case consultPCM != "":
			req.Audio, err = readCapture(consultPCM, consultRate, consultChannels)
		}
		if err != nil {
			return err
		}

		ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		stderr := cmd.ErrOrStderr()
		bundle := c.coordinator.Run(ctx, req, func(fraction float64, label string) {
			fmt.Fprintf(stderr, "[%3.0f%%] %s\n", fraction*100, label)
		})

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(bundle); err != nil {
			return err
		}
		if bundle.Failed() {
			return errors.New("consultation failed")
		}
		return nil
	},
}

func init() {
	consultCmd.Flags().StringVar(&consultAudio, "audio", "", "WAV file with the patient's speech")
	consultCmd.Flags().StringVar(&consultPCM, "pcm", "", "raw s16le PCM file with the patient's speech")
	consultCmd.Flags().IntVar(&consultRate, "rate", 0, "sample rate of --pcm (default 44100)")
	consultCmd.Flags().IntVar(&consultChannels, "channels", 1, "channel count of --pcm")
	consultCmd.Flags().StringVar(&consultImage, "image", "", "image file to analyze")
}

func readCapture(path string, rate, channels int) (audio.Input, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening audio: %w", err)
	}
	defer f.Close()
	return audio.DecodeCapture(f, rate, channels)
}
