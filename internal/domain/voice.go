package domain

import (
	"strings"

	"github.com/fairyhunter13/ai-voice-studio/pkg/textx"
)

// Voice names a provider voice.
type Voice string

const (
	VoiceAlloy   Voice = "alloy"
	VoiceAsh     Voice = "ash"
	VoiceBallad  Voice = "ballad"
	VoiceCoral   Voice = "coral"
	VoiceEcho    Voice = "echo"
	VoiceSage    Voice = "sage"
	VoiceShimmer Voice = "shimmer"
	VoiceVerse   Voice = "verse"

	DefaultVoice = VoiceAlloy
)

var voices = []Voice{VoiceAlloy, VoiceAsh, VoiceBallad, VoiceCoral, VoiceEcho, VoiceSage, VoiceShimmer, VoiceVerse}

// Voices returns the supported voices in display order.
func Voices() []Voice {
	out := make([]Voice, len(voices))
	copy(out, voices)
	return out
}

var voiceInfo = map[Voice][2]string{
	VoiceAlloy:   {"Alloy", "Neutral and balanced"},
	VoiceAsh:     {"Ash", "Warm and friendly"},
	VoiceBallad:  {"Ballad", "Expressive and emotional"},
	VoiceCoral:   {"Coral", "Clear and articulate"},
	VoiceEcho:    {"Echo", "Smooth and calming"},
	VoiceSage:    {"Sage", "Wise and authoritative"},
	VoiceShimmer: {"Shimmer", "Bright and energetic"},
	VoiceVerse:   {"Verse", "Dynamic and versatile"},
}

// Label returns the display name of v.
func (v Voice) Label() string { return voiceInfo[v][0] }

// Description returns a short characterization of how v sounds.
func (v Voice) Description() string { return voiceInfo[v][1] }

// Valid reports whether v is a supported voice.
func (v Voice) Valid() bool {
	for _, known := range voices {
		if v == known {
			return true
		}
	}
	return false
}

// ParseVoice returns the voice named s. An empty name selects DefaultVoice.
func ParseVoice(s string) (Voice, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return DefaultVoice, true
	}
	v := Voice(s)
	return v, v.Valid()
}

// AudioFormat is the container requested from the provider.
type AudioFormat string

const (
	FormatMP3 AudioFormat = "mp3"
	FormatWAV AudioFormat = "wav"
)

// ContentType returns the MIME type served for f.
func (f AudioFormat) ContentType() string {
	if f == FormatWAV {
		return "audio/wav"
	}
	return "audio/mpeg"
}

// FormatFromContentType maps a MIME type to a format, defaulting to mp3.
func FormatFromContentType(ct string) AudioFormat {
	ct = strings.ToLower(ct)
	if strings.Contains(ct, "wav") {
		return FormatWAV
	}
	return FormatMP3
}

// FormatForUserAgent picks wav for Blink-based browsers and mp3 otherwise.
func FormatForUserAgent(ua string) AudioFormat {
	if strings.Contains(ua, "Firefox/") {
		return FormatMP3
	}
	for _, marker := range []string{"Chrome/", "Chromium/", "Edg/"} {
		if strings.Contains(ua, marker) {
			return FormatWAV
		}
	}
	return FormatMP3
}

// VoiceDirection describes how a voice should sound. CustomInstructions,
// when set, replaces every structured field.
type VoiceDirection struct {
	VoiceAffect        string `json:"voiceAffect,omitempty" yaml:"voiceAffect"`
	Tone               string `json:"tone,omitempty" yaml:"tone"`
	Emotion            string `json:"emotion,omitempty" yaml:"emotion"`
	Pacing             string `json:"pacing,omitempty" yaml:"pacing"`
	Pronunciation      string `json:"pronunciation,omitempty" yaml:"pronunciation"`
	Pauses             string `json:"pauses,omitempty" yaml:"pauses"`
	Personality        string `json:"personality,omitempty" yaml:"personality"`
	Delivery           string `json:"delivery,omitempty" yaml:"delivery"`
	CustomInstructions string `json:"customInstructions,omitempty" yaml:"customInstructions"`
}

// Instructions renders the direction as provider instructions before
// sanitization.
func (d VoiceDirection) Instructions() string {
	if strings.TrimSpace(d.CustomInstructions) != "" {
		return d.CustomInstructions
	}
	return textx.BuildPromptInstructions(textx.PromptFields{
		VoiceAffect:   d.VoiceAffect,
		Tone:          d.Tone,
		Emotion:       d.Emotion,
		Pacing:        d.Pacing,
		Pronunciation: d.Pronunciation,
		Pauses:        d.Pauses,
		Personality:   d.Personality,
		Delivery:      d.Delivery,
	})
}
