// Package command classifies raw recognized utterances into valid
// commands, duplicates, and kitchen noise before they reach the
// orchestrator.
package command

import (
	"strings"
)

// Verdict is the result of classifying an utterance.
type Verdict int

const (
	// Noise means the text is empty, too short, or does not look like
	// an intentional command. Dropped silently.
	Noise Verdict = iota
	// Duplicate means the exact text was seen very recently.
	Duplicate
	// Valid means the text should be forwarded as a command.
	Valid
)

func (v Verdict) String() string {
	switch v {
	case Noise:
		return "noise"
	case Duplicate:
		return "duplicate"
	case Valid:
		return "valid"
	default:
		return "unknown"
	}
}

// interruptWords pre-empt an in-progress spoken response.
var interruptWords = []string{"stop", "skip", "quiet", "silence"}

// emergencyWords always get through, speaking or not. Kitchen
// disasters cannot wait for the assistant to finish a sentence.
var emergencyWords = []string{"dropped", "fell", "disaster", "mess", "fire", "burn", "emergency"}

// commandWords are the ordinary kitchen vocabulary.
var commandWords = []string{
	"start", "begin", "next", "done", "ready", "continue",
	"pause", "wait", "help", "repeat", "again", "back",
	"resume", "quit", "exit", "hey", "assistant", "kitchen", "cooking",
}

const minLength = 2

// Filter classifies utterances. It owns a small recent-utterance
// buffer for duplicate suppression and is confined to the capture
// goroutine, so it needs no locking.
type Filter struct {
	wakePhrase string
	recent     *RecentBuffer
}

// NewFilter creates a filter with the given wake phrase (may be empty)
// and a duplicate-suppression window of recentSize utterances.
func NewFilter(wakePhrase string, recentSize int) *Filter {
	return &Filter{
		wakePhrase: strings.ToLower(strings.TrimSpace(wakePhrase)),
		recent:     NewRecentBuffer(recentSize),
	}
}

// Classify decides what to do with a recognized utterance.
// currentlySpeaking narrows acceptance to interrupt and emergency
// words while the assistant is talking; everything else heard during
// playback is suspect (likely echo) and treated as noise.
func (f *Filter) Classify(text string, currentlySpeaking bool) Verdict {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) < minLength {
		return Noise
	}

	lower := strings.ToLower(trimmed)

	// Interrupt and emergency words pre-empt regardless of output state.
	if containsAny(lower, interruptWords) || containsAny(lower, emergencyWords) ||
		(f.wakePhrase != "" && strings.Contains(lower, f.wakePhrase)) {
		return f.accept(trimmed)
	}

	if currentlySpeaking {
		return Noise
	}

	// Known command words, or a multi-token utterance: longer phrases
	// are more likely intentional speech than stray noise.
	if containsAny(lower, commandWords) || len(strings.Fields(lower)) >= 2 {
		return f.accept(trimmed)
	}

	return Noise
}

// accept records the utterance unless it was just heard.
func (f *Filter) accept(text string) Verdict {
	if f.recent.Contains(text) {
		return Duplicate
	}
	f.recent.Add(text)
	return Valid
}

// IsEmergency reports whether the text mentions a kitchen emergency.
func IsEmergency(text string) bool {
	return containsAny(strings.ToLower(text), emergencyWords)
}

// IsInterrupt reports whether the text is a barge-in request.
func IsInterrupt(text string) bool {
	return containsAny(strings.ToLower(text), interruptWords)
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}
