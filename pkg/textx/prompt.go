package textx

import "strings"

// PromptFields are the structured voice-direction controls offered to the
// user. Empty fields are omitted from the built instructions.
type PromptFields struct {
	VoiceAffect   string
	Tone          string
	Emotion       string
	Pacing        string
	Pronunciation string
	Pauses        string
	Personality   string
	Delivery      string
}

// BuildPromptInstructions renders the non-empty fields as "Label: value"
// paragraphs separated by a blank line.
func BuildPromptInstructions(f PromptFields) string {
	parts := make([]string, 0, 8)
	add := func(label, v string) {
		if v = strings.TrimSpace(v); v != "" {
			parts = append(parts, label+": "+v)
		}
	}
	add("Voice Affect", f.VoiceAffect)
	add("Tone", f.Tone)
	add("Emotion", f.Emotion)
	add("Pacing", f.Pacing)
	add("Pronunciation", f.Pronunciation)
	add("Pauses", f.Pauses)
	add("Personality", f.Personality)
	add("Delivery", f.Delivery)
	return strings.Join(parts, "\n\n")
}
