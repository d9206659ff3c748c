// Package message defines the core data types flowing through the shouldi pipeline.
package message

import (
	"fmt"
	"strings"

	apperrors "github.com/nadzzz/shouldi/internal/errors"
)

// GenerationParams is the sampling bundle forwarded to the language model.
type GenerationParams struct {
	Temperature   float64 `json:"temperature,omitempty" mapstructure:"temperature"`
	MaxTokens     int     `json:"max_tokens,omitempty" mapstructure:"max_tokens"`
	TopP          float64 `json:"top_p,omitempty" mapstructure:"top_p"`
	TopK          int     `json:"top_k,omitempty" mapstructure:"top_k"`
	RepeatPenalty float64 `json:"repeat_penalty,omitempty" mapstructure:"repeat_penalty"`
}

// Merge returns p with every non-zero field of override applied on top.
func (p GenerationParams) Merge(override GenerationParams) GenerationParams {
	if override.Temperature != 0 {
		p.Temperature = override.Temperature
	}
	if override.MaxTokens != 0 {
		p.MaxTokens = override.MaxTokens
	}
	if override.TopP != 0 {
		p.TopP = override.TopP
	}
	if override.TopK != 0 {
		p.TopK = override.TopK
	}
	if override.RepeatPenalty != 0 {
		p.RepeatPenalty = override.RepeatPenalty
	}
	return p
}

// Validate checks every parameter against the range the model backends accept.
func (p GenerationParams) Validate() error {
	switch {
	case p.Temperature <= 0 || p.Temperature > 4:
		return fmt.Errorf("temperature %v must be in (0, 4]", p.Temperature)
	case p.MaxTokens < 1 || p.MaxTokens > 8192:
		return fmt.Errorf("max_tokens %d must be in [1, 8192]", p.MaxTokens)
	case p.TopP <= 0 || p.TopP > 1:
		return fmt.Errorf("top_p %v must be in (0, 1]", p.TopP)
	case p.TopK < 1:
		return fmt.Errorf("top_k %d must be at least 1", p.TopK)
	case p.RepeatPenalty <= 0 || p.RepeatPenalty > 2:
		return fmt.Errorf("repeat_penalty %v must be in (0, 2]", p.RepeatPenalty)
	}
	return nil
}

// Rate is the speaking rate requested from the synthesizer.
type Rate string

const (
	RateSlow   Rate = "slow"
	RateNormal Rate = "normal"
	RateFast   Rate = "fast"
)

// Valid reports whether r is a known rate. The empty rate is valid and means "default".
func (r Rate) Valid() bool {
	switch r {
	case "", RateSlow, RateNormal, RateFast:
		return true
	}
	return false
}

// Gender selects between voice families when a backend offers several.
type Gender string

const (
	GenderFemale Gender = "female"
	GenderMale   Gender = "male"
)

// VoiceParams controls speech synthesis. Backends honor the knobs they
// support and ignore the rest.
type VoiceParams struct {
	Rate    Rate    `json:"rate,omitempty" mapstructure:"rate"`
	Gender  Gender  `json:"gender,omitempty" mapstructure:"gender"`
	Pitch   int     `json:"pitch,omitempty" mapstructure:"pitch"`     // relative pitch in Hz
	Volume  int     `json:"volume,omitempty" mapstructure:"volume"`   // relative volume in percent
	Emotion string  `json:"emotion,omitempty" mapstructure:"emotion"` // e.g. "neutral", "happy"
	Quality float64 `json:"quality,omitempty" mapstructure:"quality"` // 0..1, backend specific
}

// Merge returns v with every non-zero field of override applied on top.
func (v VoiceParams) Merge(override VoiceParams) VoiceParams {
	if override.Rate != "" {
		v.Rate = override.Rate
	}
	if override.Gender != "" {
		v.Gender = override.Gender
	}
	if override.Pitch != 0 {
		v.Pitch = override.Pitch
	}
	if override.Volume != 0 {
		v.Volume = override.Volume
	}
	if override.Emotion != "" {
		v.Emotion = override.Emotion
	}
	if override.Quality != 0 {
		v.Quality = override.Quality
	}
	return v
}

// Validate checks the enumerated knobs and the numeric ranges.
func (v VoiceParams) Validate() error {
	switch {
	case !v.Rate.Valid():
		return fmt.Errorf("unknown rate %q", v.Rate)
	case v.Gender != "" && v.Gender != GenderFemale && v.Gender != GenderMale:
		return fmt.Errorf("unknown gender %q", v.Gender)
	case v.Pitch < -100 || v.Pitch > 100:
		return fmt.Errorf("pitch %d must be in [-100, 100]", v.Pitch)
	case v.Volume < -100 || v.Volume > 100:
		return fmt.Errorf("volume %d must be in [-100, 100]", v.Volume)
	case v.Quality < 0 || v.Quality > 1:
		return fmt.Errorf("quality %v must be in [0, 1]", v.Quality)
	}
	return nil
}

// Request is a single analysis invocation from a presentation shell.
type Request struct {
	// ID is a unique identifier for this request (UUID). Assigned by the pipeline when empty.
	ID string `json:"id,omitempty"`

	// Question is the user's yes/no question. Optional when Image or Audio is present.
	Question string `json:"question,omitempty"`

	// Image is the raw image payload (base64 in JSON).
	Image []byte `json:"image,omitempty"`

	// Audio is a spoken question (base64 in JSON). It is transcribed into
	// Question when Question is blank.
	Audio []byte `json:"audio,omitempty"`

	// AudioFormat is the MIME type of Audio (e.g. "audio/wav").
	AudioFormat string `json:"audio_format,omitempty"`

	// Language is the locale tag (e.g. "en", "zh-CN") used for speech output.
	Language string `json:"language,omitempty"`

	// Generation overrides the configured sampling parameters (zero fields keep the default).
	Generation GenerationParams `json:"generation,omitempty"`

	// Voice overrides the configured voice parameters (zero fields keep the default).
	Voice VoiceParams `json:"voice,omitempty"`

	// SkipSearch disables search augmentation for this request.
	SkipSearch bool `json:"skip_search,omitempty"`
}

// HasImage returns true if the request carries an image payload.
func (r *Request) HasImage() bool {
	return len(r.Image) > 0
}

// HasAudio returns true if the request carries a voice recording.
func (r *Request) HasAudio() bool {
	return len(r.Audio) > 0
}

// HasQuestion returns true if the request carries a non-blank question.
func (r *Request) HasQuestion() bool {
	return strings.TrimSpace(r.Question) != ""
}

// Validate rejects requests with no question, image or recording.
func (r *Request) Validate() error {
	if !r.HasQuestion() && !r.HasImage() && !r.HasAudio() {
		return apperrors.Invalid("request has no question, image or audio", nil)
	}
	return nil
}

// Role is the author of a prompt message.
type Role string

const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
)

// PromptMessage is one entry of the chat sent to the model.
type PromptMessage struct {
	Role    Role     `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"` // base64-encoded image bytes
}

// Prompt is the fixed two-message conversation: one system instruction
// followed by one user turn.
type Prompt struct {
	System PromptMessage
	User   PromptMessage
}

// Messages returns the prompt in wire order.
func (p Prompt) Messages() []PromptMessage {
	return []PromptMessage{p.System, p.User}
}

// ModelReply is the raw payload returned by a model gateway backend.
type ModelReply struct {
	// Envelope names the response schema of Body ("ollama" or "openai").
	Envelope string

	// Body is the unmodified response body.
	Body []byte
}

// Verdict is the yes/no label derived from a probability.
type Verdict string

const (
	VerdictYes Verdict = "yes"
	VerdictNo  Verdict = "no"
)

// VerdictThreshold is the smallest probability that yields a "yes" verdict.
const VerdictThreshold = 50

// VerdictFor returns the verdict for a probability in [0, 100].
func VerdictFor(probability int) Verdict {
	if probability >= VerdictThreshold {
		return VerdictYes
	}
	return VerdictNo
}

// Result is the outcome of one analysis. Probability, Reason and Audio are
// independently optional. A failed request has Failure set, Probability nil,
// Audio nil and a human-readable message in Reason.
type Result struct {
	// RequestID echoes Request.ID.
	RequestID string `json:"request_id,omitempty"`

	// Probability of an affirmative recommendation, in [0, 100]. Nil when absent.
	Probability *int `json:"probability"`

	// Verdict is derived from Probability. Empty when Probability is nil.
	Verdict Verdict `json:"verdict,omitempty"`

	// Transcript is the question heard in a voice recording, when one was sent.
	Transcript string `json:"transcript,omitempty"`

	// Reason is the model's justification, or the error message for failed requests.
	Reason string `json:"reason,omitempty"`

	// Audio is the spoken reason (base64 in JSON). Nil when synthesis was skipped or failed.
	Audio []byte `json:"audio,omitempty"`

	// AudioFormat is the MIME type of Audio (e.g. "audio/mpeg", "audio/wav").
	AudioFormat string `json:"audio_format,omitempty"`

	// AudioSeconds is the playback length of Audio when known.
	AudioSeconds float64 `json:"audio_seconds,omitempty"`

	// Failure is set when a fatal stage failed.
	Failure apperrors.Kind `json:"failure,omitempty"`

	// Warnings lists non-fatal degradations (search or synthesis).
	Warnings []string `json:"warnings,omitempty"`
}

// Audio is a synthesized clip attached to a result.
type Audio struct {
	Data    []byte
	Format  string
	Seconds float64
}

// NewResult builds a successful result. The verdict is derived from probability.
func NewResult(probability *int, reason string, audio *Audio, warnings []string) Result {
	r := Result{
		Reason:   reason,
		Warnings: warnings,
	}
	if probability != nil {
		p := *probability
		r.Probability = &p
		r.Verdict = VerdictFor(p)
	}
	if audio != nil && len(audio.Data) > 0 {
		r.Audio = audio.Data
		r.AudioFormat = audio.Format
		r.AudioSeconds = audio.Seconds
	}
	return r
}

// Failed builds the sentinel result for a fatal failure of the given kind.
func Failed(kind apperrors.Kind, warnings []string) Result {
	return Result{
		Reason:   apperrors.UserMessage(kind),
		Failure:  kind,
		Warnings: warnings,
	}
}

// OK reports whether the result carries a probability.
func (r Result) OK() bool {
	return r.Probability != nil
}

// Int returns a pointer to v.
func Int(v int) *int {
	return &v
}
