// Aidoctor is a multilingual voice and image consultation service. It
// transcribes a patient's speech, asks a vision model about their image in
// the patient's language, and speaks the reply back.
//
// Usage:
//
//	aidoctor serve [--config aidoctor.yaml]
//	aidoctor consult --audio speech.wav --image rash.jpg
//	aidoctor version
//
// @title       aidoctor API
// @version     1.0
// @description Multilingual voice and image consultation pipeline.
// @BasePath    /
package main

import (
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	configFile string
	envFile    string
)

var rootCmd = &cobra.Command{
	Use:   "aidoctor",
	Short: "Voice and image consultations with an AI doctor",
	Long: `aidoctor transcribes a patient's spoken symptoms, analyzes a medical image
with a vision model in the patient's language, and replies with synthesized speech.

Examples:
  # Run the HTTP (and optional gRPC) service
  aidoctor serve --config configs/aidoctor.yaml

  # One-off consultation from files
  aidoctor consult --audio knee.wav --image knee.jpg

  # Raw 16-bit PCM capture
  aidoctor consult --pcm capture.raw --rate 48000 --channels 2
`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to config file (default: search ./aidoctor.yaml, ./configs, /etc/aidoctor)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the environment is read")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(consultCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
