package tts

// Voices maps friendly preset names to ElevenLabs voice IDs, so config
// can say "rachel" instead of a 20-character ID.
var Voices = map[string]string{
	"rachel":    "21m00Tcm4TlvDq8ikWAM", // American female, calm
	"charlotte": "XB0fDUnXU5powFXDhCwa", // British female, warm
	"sarah":     "EXAVITQu4vr4xnSDxMaL", // American female, soft
	"josh":      "TxGEqnHWrfWFTfGW9XjX", // American male, deep
	"adam":      "pNInz6obpgDQGcFmaJgB", // American male, deep
}

// DefaultVoice is the preset used when no voice is configured. Calm
// reads well over kitchen noise.
const DefaultVoice = "rachel"

// ResolveVoice returns the voice ID for a preset name, or the input
// unchanged when it is already a raw voice ID.
func ResolveVoice(name string) string {
	if name == "" {
		name = DefaultVoice
	}
	if id, ok := Voices[name]; ok {
		return id
	}
	return name
}
