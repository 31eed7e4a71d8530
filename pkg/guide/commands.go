package guide

import "strings"

// command classifies a transcribed utterance that should be consumed
// locally instead of reaching the agent.
type command int

const (
	cmdNone command = iota
	cmdDisconnect
	cmdCancelNavigation
)

// disconnectWords tear the whole session down.
var disconnectWords = map[string]struct{}{
	"stop":       {},
	"quit":       {},
	"exit":       {},
	"disconnect": {},
}

// cancelPhrases cancel navigation only, keeping the session open.
var cancelPhrases = map[string]struct{}{
	"cancel":            {},
	"cancel navigation": {},
	"stop navigation":   {},
	"cancel route":      {},
	"stop route":        {},
}

// cancelSubstrings catch cancellation intents embedded in longer speech.
var cancelSubstrings = []string{
	"cancel navigation",
	"stop navigating",
	"cancel the route",
}

// matchCommand normalizes a transcript and checks it against the voice
// command shortcuts. Matches are short-circuits: the utterance is consumed
// and never treated as conversational input.
func matchCommand(transcript string) command {
	normalized := normalizeTranscript(transcript)
	if normalized == "" {
		return cmdNone
	}

	if _, ok := disconnectWords[normalized]; ok {
		return cmdDisconnect
	}
	if _, ok := cancelPhrases[normalized]; ok {
		return cmdCancelNavigation
	}
	for _, sub := range cancelSubstrings {
		if strings.Contains(normalized, sub) {
			return cmdCancelNavigation
		}
	}
	return cmdNone
}

// normalizeTranscript lowercases and strips terminal punctuation.
func normalizeTranscript(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.TrimRight(s, ".,!?;: ")
}
