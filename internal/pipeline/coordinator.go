// Package pipeline implements the consultation coordinator.
//
// A consultation runs sequentially: the patient's capture is normalized,
// transcoded and transcribed; the doctor instructions are translated into
// the detected language; the reply is produced by the reasoning model (or a
// local response when there is no image) and spoken back. Translation and
// primary speech synthesis degrade to fallbacks. Every other failure, panics
// included, ends the consultation with an error bundle; Run never returns an
// error or panics.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"github.com/nadzzz/aidoctor/internal/audio"
	"github.com/nadzzz/aidoctor/internal/message"
	"github.com/nadzzz/aidoctor/internal/metrics"
	"github.com/nadzzz/aidoctor/internal/reasoner"
	"github.com/nadzzz/aidoctor/internal/transcode"
	"github.com/nadzzz/aidoctor/internal/transcriber"
	"github.com/nadzzz/aidoctor/internal/translator"
	"github.com/nadzzz/aidoctor/internal/tts"
)

// BaseInstructions is the English doctor prompt. It is sent unchanged when
// translation fails.
const BaseInstructions = "You have to act as a professional doctor, i know you are not but this is for learning purpose. \n" +
	"What's in this image?. Do you find anything wrong with it medically? \n" +
	"If you make a differential, suggest some remedies for them. Donot add any numbers or special characters in \n" +
	"your response. Your response should be in one long paragraph. Also always answer as if you are answering to a real person.\n" +
	"Donot say 'In the image I see' but say 'With what I see, I think you have ....'\n" +
	"Dont respond as an AI model in markdown, your answer should mimic that of an actual doctor not an AI bot, \n" +
	"Keep your answer concise (max 2 sentences). No preamble, start your answer right away please"

// NoSpeechTranscript is reported in place of an empty transcript.
const NoSpeechTranscript = "No speech provided."

// Artifact file names inside a consultation's artifact directory.
const (
	PatientVoiceFile = "patient.mp3"
	DoctorVoiceFile  = "doctor.mp3"
)

var (
	errNoReasoner       = errors.New("reasoning engine is not configured")
	errEmptyTranslation = errors.New("translation returned empty text")
	errNoArtifacts      = errors.New("artifact store is not configured")
)

// ArtifactStore owns the per-consultation output directories.
type ArtifactStore interface {
	Reserve(id string) (string, error)
	Discard(id string) error
}

// Deps are the collaborators of a Coordinator. Transcriber and Reasoner may
// be nil; consultations that need them then fail. Without Artifacts every
// consultation fails. A nil Translator always
// falls back to BaseInstructions.
type Deps struct {
	Transcoder  transcode.Transcoder
	Transcriber transcriber.Transcriber
	Translator  translator.Translator
	Reasoner    reasoner.Reasoner
	Synthesizer tts.Synthesizer
	Artifacts   ArtifactStore
	Metrics     *metrics.Metrics

	// ScratchDir is the parent of per-consultation scratch directories.
	// Empty means os.TempDir().
	ScratchDir string
}

// Coordinator runs consultations.
type Coordinator struct {
	transcoder  transcode.Transcoder
	transcriber transcriber.Transcriber
	translator  translator.Translator
	reasoner    reasoner.Reasoner
	synthesizer tts.Synthesizer
	artifacts   ArtifactStore
	metrics     *metrics.Metrics
	scratchDir  string
}

// New creates a Coordinator.
func New(d Deps) *Coordinator {
	return &Coordinator{
		transcoder:  d.Transcoder,
		transcriber: d.Transcriber,
		translator:  d.Translator,
		reasoner:    d.Reasoner,
		synthesizer: d.Synthesizer,
		artifacts:   d.Artifacts,
		metrics:     d.Metrics,
		scratchDir:  d.ScratchDir,
	}
}

// Run processes one consultation. It assigns req.ID when empty. The returned
// bundle is never nil; on failure it is message.ErrorBundle and the
// consultation's artifacts are discarded.
func (c *Coordinator) Run(ctx context.Context, req *message.Consultation, progress Reporter) (bundle *message.ResultBundle) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	start := time.Now()
	logger := slog.With("request_id", req.ID)
	logger.Info("consultation started", "audio", req.HasAudio(), "image", req.HasImage())

	done := c.metrics.Begin()
	defer func() {
		if r := recover(); r != nil {
			logger.Error("consultation panicked", "panic", r, "stack", string(debug.Stack()))
			bundle = message.ErrorBundle(req.ID, fmt.Errorf("%v", r))
		}
		if bundle.Failed() {
			if c.artifacts != nil {
				if err := c.artifacts.Discard(req.ID); err != nil {
					logger.Warn("failed to discard artifacts", "error", err)
				}
			}
			done("error")
			return
		}
		done("ok")
		logger.Info("consultation complete", "duration", time.Since(start), "language", bundle.Language)
	}()

	bundle, err := c.run(ctx, req, progress, logger)
	if err != nil {
		var se *StageError
		if errors.As(err, &se) {
			logger.Error("consultation failed", "stage", se.Stage, "error", se.Err, "stack", string(se.Stack))
		} else {
			logger.Error("consultation failed", "error", err)
		}
		return message.ErrorBundle(req.ID, err)
	}
	return bundle
}

func (c *Coordinator) run(ctx context.Context, req *message.Consultation, progress Reporter, logger *slog.Logger) (*message.ResultBundle, error) {
	if c.artifacts == nil {
		return nil, &StageError{Stage: StagePrepare, Err: errNoArtifacts}
	}
	outDir, err := c.artifacts.Reserve(req.ID)
	if err != nil {
		return nil, &StageError{Stage: StagePrepare, Err: err}
	}
	ws, err := newWorkspace(c.scratchDir, req.ID)
	if err != nil {
		return nil, &StageError{Stage: StagePrepare, Err: err}
	}
	defer func() {
		if err := ws.Close(); err != nil {
			logger.Warn("failed to remove scratch dir", "dir", ws.dir, "error", err)
		}
	}()

	result := &message.ResultBundle{RequestID: req.ID}

	// Speech.
	var (
		transcript string
		lang       = transcriber.DefaultLanguage
	)
	if req.HasAudio() {
		patientVoice := filepath.Join(outDir, PatientVoiceFile)
		res, err := c.listen(ctx, req.Audio, ws, patientVoice, progress, logger)
		if err != nil {
			return nil, err
		}
		transcript = res.Text
		if res.Language != "" {
			lang = res.Language
		}
		result.PatientVoicePath = patientVoice
		logger.Info("transcription complete", "text_length", len(transcript), "language", lang)
	} else {
		logger.Info("no patient voice provided")
	}

	// Instructions.
	progress.report(logger, progressTranslate, fmt.Sprintf("Preparing doctor instructions in %s...", lang))
	instructions := attempt(ctx, c, StageTranslate, func(ctx context.Context) (string, error) {
		if c.translator == nil {
			return "", errors.New("translator is not configured")
		}
		text, err := c.translator.Translate(ctx, BaseInstructions, lang)
		if err == nil && text == "" {
			err = errEmptyTranslation
		}
		return text, err
	}).Recover(BaseInstructions, func(se *StageError) {
		logger.Warn("translation failed, using English instructions", "language", lang, "error", se.Err)
		c.metrics.Fallback(string(StageTranslate))
	})

	// Reply.
	progress.report(logger, progressReason, "Doctor is analyzing...")
	q := message.NewQuery(instructions, transcript, lang, req.ImagePath)
	response := q.LocalResponse()
	if q.Kind == message.QueryImage {
		response, err = attempt(ctx, c, StageReason, func(ctx context.Context) (string, error) {
			return c.reason(ctx, q)
		}).Get()
		if err != nil {
			return nil, err
		}
	}
	logger.Info("doctor response ready", "query", q.Kind.String(), "response_length", len(response))

	// Voice. A consultation without any input gets no spoken reply.
	if response != "" && (req.HasAudio() || req.HasImage()) {
		progress.report(logger, progressSynthesize, "Converting doctor's reply to speech...")
		path, err := attempt(ctx, c, StageSynthesize, func(ctx context.Context) (string, error) {
			return c.synthesizer.Synthesize(ctx, response, tts.SynthesizeOpts{
				Language:   lang,
				OutputPath: filepath.Join(outDir, DoctorVoiceFile),
			})
		}).Get()
		if err != nil {
			return nil, err
		}
		result.DoctorVoicePath = path
	}

	progress.report(logger, progressDone, "Done")

	result.Transcript = transcript
	if result.Transcript == "" {
		result.Transcript = NoSpeechTranscript
	}
	result.Language = lang
	result.Response = response
	return result, nil
}

// listen turns the capture into the patient's playback copy and a
// transcription.
func (c *Coordinator) listen(ctx context.Context, in audio.Input, ws *workspace, patientVoice string, progress Reporter, logger *slog.Logger) (transcriber.Result, error) {
	capture := ws.path("capture.wav")
	speech := ws.path("speech.wav")

	err := step(ctx, c, StageNormalize, func(context.Context) error {
		buf, rate := audio.Normalize(in)
		logger.Debug("normalized capture", "sample_rate", rate, "dims", buf.Dims)
		return audio.WriteWAV(capture, buf, rate)
	})
	if err != nil {
		return transcriber.Result{}, err
	}

	err = step(ctx, c, StageTranscode, func(ctx context.Context) error {
		if err := c.transcoder.Transcode(ctx, capture, patientVoice, transcode.Playback); err != nil {
			return err
		}
		return c.transcoder.Transcode(ctx, capture, speech, transcode.Transcription)
	})
	if err != nil {
		return transcriber.Result{}, err
	}

	if info, err := audio.ProbeMP3(patientVoice); err != nil {
		logger.Debug("could not probe patient voice", "error", err)
	} else {
		logger.Info("patient voice converted", "path", patientVoice, "sample_rate", info.SampleRate, "duration", info.Duration)
	}

	progress.report(logger, progressTranscribe, "Transcribing speech...")
	return attempt(ctx, c, StageTranscribe, func(ctx context.Context) (transcriber.Result, error) {
		if c.transcriber == nil {
			return transcriber.Result{}, transcriber.ErrMissingAPIKey
		}
		return c.transcriber.Transcribe(ctx, speech)
	}).Get()
}

func (c *Coordinator) reason(ctx context.Context, q message.Query) (string, error) {
	if c.reasoner == nil {
		return "", errNoReasoner
	}
	img, err := reasoner.EncodeImage(q.ImagePath)
	if err != nil {
		return "", err
	}
	return c.reasoner.Infer(ctx, q.Text(), img)
}
