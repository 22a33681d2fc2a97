// Package message defines the core data types flowing through the aidoctor pipeline.
package message

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nadzzz/aidoctor/internal/audio"
)

// Consultation is one request from any transport: an optional voice capture
// and an optional image.
type Consultation struct {
	// ID is a unique identifier for this consultation (UUID). It names the
	// artifact directory holding the produced audio.
	ID string `json:"id"`

	// Audio is the patient's capture. Nil when no speech was recorded.
	Audio audio.Input `json:"-"`

	// ImagePath points at the uploaded image. Empty when none was supplied.
	ImagePath string `json:"image_path,omitempty"`

	// ReceivedAt is when the consultation reached the transport.
	ReceivedAt time.Time `json:"received_at"`
}

// HasAudio reports whether a capture is attached.
func (c *Consultation) HasAudio() bool { return c.Audio != nil }

// HasImage reports whether an image is attached.
func (c *Consultation) HasImage() bool { return c.ImagePath != "" }

// ResultBundle is the five-element outcome of a consultation. Empty voice
// paths mean the audio was not produced and encode as JSON null.
type ResultBundle struct {
	// RequestID is the consultation ID. Not part of the tuple.
	RequestID string

	// Transcript is the recognized speech, or "No speech provided.".
	Transcript string

	// Language is the ISO-639-1 code the reply was produced in, or "error".
	Language string

	// Response is the doctor's reply text.
	Response string

	// PatientVoicePath is the playback copy of the patient's capture.
	PatientVoicePath string

	// DoctorVoicePath is the synthesized reply.
	DoctorVoicePath string
}

// ErrorLanguage marks the language and response fields of a failed consultation.
const ErrorLanguage = "error"

// ErrorBundle is the degraded bundle returned when a stage without a
// fallback fails.
func ErrorBundle(id string, err error) *ResultBundle {
	return &ResultBundle{
		RequestID:  id,
		Transcript: fmt.Sprintf("Pipeline error: %v", err),
		Language:   ErrorLanguage,
		Response:   ErrorLanguage,
	}
}

// Failed reports whether the bundle is an error bundle.
func (r *ResultBundle) Failed() bool { return r.Language == ErrorLanguage }

// Tuple returns the five elements in order: transcript, language, response,
// patient voice path, doctor voice path. Absent paths are nil.
func (r *ResultBundle) Tuple() (string, string, string, *string, *string) {
	return r.Transcript, r.Language, r.Response, optional(r.PatientVoicePath), optional(r.DoctorVoicePath)
}

// MarshalJSON implements json.Marshaler.
func (r *ResultBundle) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		RequestID    string  `json:"request_id,omitempty"`
		Transcript   string  `json:"transcript"`
		Language     string  `json:"language"`
		Response     string  `json:"response"`
		PatientVoice *string `json:"patient_voice"`
		DoctorVoice  *string `json:"doctor_voice"`
	}{
		RequestID:    r.RequestID,
		Transcript:   r.Transcript,
		Language:     r.Language,
		Response:     r.Response,
		PatientVoice: optional(r.PatientVoicePath),
		DoctorVoice:  optional(r.DoctorVoicePath),
	})
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// QueryKind selects how the doctor's reply is produced.
type QueryKind int

const (
	// QueryEmpty has neither speech nor image; the reply is a fixed notice.
	QueryEmpty QueryKind = iota

	// QuerySpeechOnly has speech but no image; the reply echoes the speech.
	QuerySpeechOnly

	// QueryImage has an image and optionally speech; the reasoning model answers.
	QueryImage
)

func (k QueryKind) String() string {
	switch k {
	case QueryImage:
		return "image"
	case QuerySpeechOnly:
		return "speech_only"
	default:
		return "empty"
	}
}

// NoInputResponse is the reply when neither speech nor image was supplied.
const NoInputResponse = "No input provided (neither speech nor image)."

// Query is the input of the reasoning stage.
type Query struct {
	Kind         QueryKind
	Instructions string
	Transcript   string
	Language     string
	ImagePath    string
}

// NewQuery classifies the available inputs.
func NewQuery(instructions, transcript, language, imagePath string) Query {
	q := Query{
		Instructions: instructions,
		Transcript:   transcript,
		Language:     language,
		ImagePath:    imagePath,
	}
	switch {
	case imagePath != "":
		q.Kind = QueryImage
	case transcript != "":
		q.Kind = QuerySpeechOnly
	default:
		q.Kind = QueryEmpty
	}
	return q
}

// Text is the prompt sent to the reasoning model for QueryImage.
func (q Query) Text() string {
	text := q.Instructions + "\n\n"
	if q.Transcript != "" {
		return text + fmt.Sprintf("The patient spoke in %s. Patient said: %s", q.Language, q.Transcript)
	}
	return text + "No speech provided, please analyze only the image."
}

// LocalResponse is the reply for queries answered without the reasoning
// model. It is empty for QueryImage.
func (q Query) LocalResponse() string {
	switch q.Kind {
	case QuerySpeechOnly:
		return fmt.Sprintf("I heard you say: %s. But no image was provided for analysis.", q.Transcript)
	case QueryEmpty:
		return NoInputResponse
	default:
		return ""
	}
}
