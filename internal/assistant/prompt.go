package assistant

import "strings"

// RefusalPhrase is returned verbatim by the model when the transcript does not
// contain the answer. Callers may match on it byte-for-byte.
const RefusalPhrase = "I'm sorry, that information is not available in the meeting transcript."

const (
	transcriptBeginMarker = "--- TRANSCRIPT ---"
	transcriptEndMarker   = "--- END TRANSCRIPT ---"
	questionBeginMarker   = "--- QUESTION ---"
	questionEndMarker     = "--- END QUESTION ---"
	answerCue             = "Answer:"
)

var promptInstructions = []string{
	"You are a helpful, comprehensive, and precise meeting assistant.",
	"Your task is to answer questions based ONLY on the provided meeting transcript.",
	"- Provide a complete and detailed answer, including all relevant information mentioned in the transcript.",
	"- SPECIAL INSTRUCTION FOR SUMMARIZATION: To identify the main topic or purpose of the meeting, first identify the core problem being discussed, then list the proposed solutions. The main topic is the core problem itself. Synthesize this into a concise answer.",
	`- If the answer cannot be found in the transcript, you must respond with "` + RefusalPhrase + `"`,
}

// BuildPrompt assembles the instruction, transcript and question into one prompt.
// The transcript and question are embedded verbatim between their markers.
func BuildPrompt(transcript, question string) string {
	var b strings.Builder
	b.Grow(len(transcript) + len(question) + 1024)

	b.WriteString("\n")
	for _, line := range promptInstructions {
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	writeBlock(&b, transcriptBeginMarker, transcript, transcriptEndMarker)
	b.WriteString("\n")
	writeBlock(&b, questionBeginMarker, question, questionEndMarker)
	b.WriteString("\n")
	b.WriteString(answerCue)
	b.WriteString("\n")
	return b.String()
}

func writeBlock(b *strings.Builder, begin, body, end string) {
	b.WriteString(begin)
	b.WriteString("\n")
	b.WriteString(body)
	b.WriteString("\n")
	b.WriteString(end)
	b.WriteString("\n")
}
