// Package mood derives per-message sentiment labels from fixed keyword lists.
// It is a deterministic classifier, not a model: a message scores +1 on the
// first positive cue it contains, -1 on the first negative cue, 0 otherwise.
package mood

import "strings"

var positiveCues = []string{
	"happy", "great", "good", "awesome", "love", "nice", "excellent", "fantastic", "amazing",
}

var negativeCues = []string{
	"sad", "bad", "angry", "hate", "terrible", "awful", "upset", "horrible", "worst",
}

// Score classifies a single message. Matching is case-insensitive substring
// matching; only the first matching category counts, and the positive list is
// checked first, so a message containing cues of both kinds scores +1.
func Score(message string) int {
	text := strings.ToLower(message)
	for _, cue := range positiveCues {
		if strings.Contains(text, cue) {
			return 1
		}
	}
	for _, cue := range negativeCues {
		if strings.Contains(text, cue) {
			return -1
		}
	}
	return 0
}

// Average returns the arithmetic mean of the scores, 0 for an empty slice.
func Average(scores []int) float64 {
	if len(scores) == 0 {
		return 0
	}
	total := 0
	for _, s := range scores {
		total += s
	}
	return float64(total) / float64(len(scores))
}
