package domain

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Tone selects the voice the generated script is written in.
type Tone string

const (
	ToneCasual       Tone = "casual"
	ToneProfessional Tone = "professional"
	ToneHumorous     Tone = "humorous"
	ToneDramatic     Tone = "dramatic"
)

// Valid reports whether t is a known tone.
func (t Tone) Valid() bool {
	switch t {
	case ToneCasual, ToneProfessional, ToneHumorous, ToneDramatic:
		return true
	}
	return false
}

// LengthTier selects how long the generated script should be.
type LengthTier string

const (
	LengthShort    LengthTier = "short"
	LengthDefault  LengthTier = "default"
	LengthExtended LengthTier = "extended"
)

// Valid reports whether l is a known length tier.
func (l LengthTier) Valid() bool {
	switch l {
	case LengthShort, LengthDefault, LengthExtended:
		return true
	}
	return false
}

// TokenBudget returns the upstream max_tokens budget for this tier.
func (l LengthTier) TokenBudget() int {
	switch l {
	case LengthShort:
		return 600
	case LengthExtended:
		return 2000
	default:
		return 1000
	}
}

// WordCeiling returns the approximate word count the prompt asks for.
func (l LengthTier) WordCeiling() int {
	switch l {
	case LengthShort:
		return 150
	case LengthExtended:
		return 600
	default:
		return 300
	}
}

// ScriptMode selects the script format.
type ScriptMode string

const (
	ModeDialogOnly     ScriptMode = "dialog-only"
	ModeVoiceover      ScriptMode = "voiceover"
	ModeShootingScript ScriptMode = "shooting-script"
)

// Valid reports whether m is a known script mode.
func (m ScriptMode) Valid() bool {
	switch m {
	case ModeDialogOnly, ModeVoiceover, ModeShootingScript:
		return true
	}
	return false
}

// Field limits for ScriptRequest validation.
const (
	minGenreLen    = 2
	maxGenreLen    = 30
	maxKeywordsLen = 500
	maxCharacters  = 10
)

// ScriptRequest is the creative brief for a script generation.
type ScriptRequest struct {
	Genre      string     `json:"genre"`
	Keywords   string     `json:"keywords,omitempty"`
	Characters []string   `json:"characters,omitempty"`
	Tone       Tone       `json:"tone,omitempty"`
	Length     LengthTier `json:"maxLength,omitempty"`
	Mode       ScriptMode `json:"mode,omitempty"`
	Platform   string     `json:"platform,omitempty"`
}

// Normalize fills in defaults for omitted optional fields and trims
// surrounding whitespace.
func (r *ScriptRequest) Normalize() {
	r.Genre = strings.TrimSpace(r.Genre)
	r.Keywords = strings.TrimSpace(r.Keywords)
	r.Platform = strings.TrimSpace(r.Platform)
	if r.Length == "" {
		r.Length = LengthDefault
	}
	if r.Mode == "" {
		r.Mode = ModeVoiceover
	}
}

// Validate checks field constraints. Callers should Normalize first.
func (r *ScriptRequest) Validate() error {
	if n := utf8.RuneCountInString(r.Genre); n < minGenreLen || n > maxGenreLen {
		return fmt.Errorf("%w: genre must be %d-%d characters, got %d",
			ErrInvalidInput, minGenreLen, maxGenreLen, n)
	}
	if utf8.RuneCountInString(r.Keywords) > maxKeywordsLen {
		return fmt.Errorf("%w: keywords exceed %d characters", ErrInvalidInput, maxKeywordsLen)
	}
	if r.Characters == nil {
		return fmt.Errorf("%w: characters list is required", ErrInvalidInput)
	}
	if len(r.Characters) > maxCharacters {
		return fmt.Errorf("%w: at most %d characters allowed, got %d",
			ErrInvalidInput, maxCharacters, len(r.Characters))
	}
	for _, c := range r.Characters {
		if strings.TrimSpace(c) == "" {
			return fmt.Errorf("%w: character names must not be blank", ErrInvalidInput)
		}
	}
	if r.Tone == "" {
		return fmt.Errorf("%w: tone is required", ErrInvalidInput)
	}
	if !r.Tone.Valid() {
		return fmt.Errorf("%w: unknown tone %q", ErrInvalidInput, r.Tone)
	}
	if !r.Length.Valid() {
		return fmt.Errorf("%w: unknown length tier %q", ErrInvalidInput, r.Length)
	}
	if !r.Mode.Valid() {
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidInput, r.Mode)
	}
	return nil
}
