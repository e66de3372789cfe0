package engine

import (
	"fmt"
	"strings"

	"github.com/thinkbotapp/thinkbot/internal/history"
)

const memoryPreamble = "You have access to the following summary of the user's past conversations. " +
	"Use this summary as your memory and context. Do NOT say you have no memory or that you are a new instance. " +
	"Instead, use the summary to provide helpful, context-aware responses."

// replyPrompt embeds the rolling summary around the user's message so the
// stateless provider can answer with continuity.
func replyPrompt(summary, message string) string {
	return fmt.Sprintf("%s\n\nSummary:\n%s\n\nUser: %s", memoryPreamble, summary, message)
}

// summaryPrompt asks the provider to synthesize, not transcribe, the
// bounded conversation window.
func summaryPrompt(username, transcript string) string {
	return fmt.Sprintf("You are an expert conversation summarizer. The user's username is: %s. "+
		"Read the following full conversation between this user and an AI assistant. "+
		"Write a concise summary that captures the main points, topics discussed, and any key decisions or facts mentioned. "+
		"The summary should be clear, informative, and suitable for use as context in future conversations. "+
		"Do NOT simply repeat the conversation line by line. "+
		"Instead, synthesize the main ideas, topics, and any key decisions or facts mentioned. "+
		"This summary will be used as context for future conversations, so make it as informative and clear as possible."+
		"\n\n%s\n\nSummary:", username, transcript)
}

// renderTranscript joins turns as "speaker: message" lines, oldest first.
func renderTranscript(turns []history.Turn) string {
	lines := make([]string, 0, len(turns))
	for _, t := range turns {
		lines = append(lines, t.Speaker+": "+t.Message)
	}
	return strings.Join(lines, "\n")
}
