package main

import (
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/nadzzz/aidoctor/internal/artifact"
	"github.com/nadzzz/aidoctor/internal/config"
	"github.com/nadzzz/aidoctor/internal/langdetect"
	"github.com/nadzzz/aidoctor/internal/metrics"
	"github.com/nadzzz/aidoctor/internal/pipeline"
	"github.com/nadzzz/aidoctor/internal/reasoner"
	openaireasoner "github.com/nadzzz/aidoctor/internal/reasoner/openai"
	"github.com/nadzzz/aidoctor/internal/transcode"
	"github.com/nadzzz/aidoctor/internal/transcriber"
	"github.com/nadzzz/aidoctor/internal/transcriber/assemblyai"
	googletranslator "github.com/nadzzz/aidoctor/internal/translator/google"
	"github.com/nadzzz/aidoctor/internal/tts"
	"github.com/nadzzz/aidoctor/internal/tts/elevenlabs"
	"github.com/nadzzz/aidoctor/internal/tts/gtts"
	"github.com/nadzzz/aidoctor/internal/tts/piper"
)

// components are the long-lived objects shared by the commands.
type components struct {
	registry    *prometheus.Registry
	artifacts   *artifact.Store
	coordinator *pipeline.Coordinator
}

// build wires the pipeline from configuration. Missing credentials do not
// fail here; the stage that needs them reports the error per consultation.
func build(cfg *config.Config) (*components, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	store, err := artifact.New(cfg.Artifacts.Dir, cfg.Artifacts.TTL)
	if err != nil {
		return nil, err
	}

	tc := transcode.New(cfg.Transcoder)

	var stt transcriber.Transcriber = assemblyai.New(cfg.Transcription.AssemblyAI)
	if cfg.Transcription.Corroborate {
		stt = transcriber.Corroborate(stt, langdetect.New(0))
	}
	if cfg.Transcription.AssemblyAI.APIKey == "" {
		slog.Warn("no AssemblyAI api key configured, consultations with audio will fail")
	}

	var rsn reasoner.Reasoner
	if r, err := openaireasoner.New(cfg.Reasoning); err != nil {
		slog.Warn("reasoning engine disabled, consultations with an image will fail", "error", err)
	} else {
		rsn = r
		slog.Info("using reasoning engine", "base_url", cfg.Reasoning.BaseURL, "model", cfg.Reasoning.Model)
	}

	var primary tts.Synthesizer
	if cfg.TTS.ElevenLabs.APIKey != "" {
		primary = elevenlabs.New(cfg.TTS.ElevenLabs)
	} else {
		slog.Info("no ElevenLabs api key configured, speech uses the fallback engine")
	}

	var secondary tts.Synthesizer
	switch cfg.TTS.Fallback {
	case "piper":
		secondary = piper.New(cfg.TTS.Piper, tc)
	case "gtts":
		secondary = gtts.New(cfg.TTS.GTTS)
	default:
		return nil, fmt.Errorf("unknown tts fallback %q", cfg.TTS.Fallback)
	}
	slog.Info("using tts fallback", "engine", cfg.TTS.Fallback)

	synth := tts.NewFallback(primary, secondary).OnFallback(func(error) {
		m.Fallback(string(pipeline.StageSynthesize))
	})

	coord := pipeline.New(pipeline.Deps{
		Transcoder:  tc,
		Transcriber: stt,
		Translator:  googletranslator.New(cfg.Translation),
		Reasoner:    rsn,
		Synthesizer: synth,
		Artifacts:   store,
		Metrics:     m,
		ScratchDir:  cfg.Server.ScratchDir,
	})

	return &components{registry: reg, artifacts: store, coordinator: coord}, nil
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configFile, envFile)
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	config.SetupLogging(cfg.Logging)
	return cfg, nil
}
