package usecase

import "terminal-ai-chat/internal/domain/ports/adapter"

// Fixed wire text used by the orchestrator. Kept in one place so the
// assembler, the streaming handler and the summarizer agree on wording.
const (
	// memoryPromptTemplate wraps the rolling memory when it is re-injected
	// as a system message ahead of the transcript.
	memoryPromptTemplate = "This is a summary of the earlier conversation between the assistant and the user, given as a recap: %s"

	// topicInstruction is appended to the full history when asking the model
	// to label a session.
	topicInstruction = "Summarize the conversation above as a topic title of five words or fewer. Reply with the title only, without punctuation or quotation marks."

	// compressInstruction is appended to the unsummarized slice when asking
	// the model to fold it into the rolling memory.
	compressInstruction = "Condense the conversation above into a brief summary of at most 200 words, keeping the facts needed to continue the conversation."

	unauthorizedNotice = "Unauthorized: the provider rejected the request. Check the configured API key."
	errorSuffix        = "\n\n[request failed, please try again]"
	cancelNotice       = "\n\n[generation stopped]"

	// topicMinChars is the cumulative transcript length below which topic
	// summarization is not attempted.
	topicMinChars = 50

	// topicMaxRunes bounds the accepted topic label.
	topicMaxRunes = 30
)

// fewShotExamples is a fixed, configuration-independent block of priming
// exchanges sent with every request to bias the answer style. It is not
// session data and is never persisted.
var fewShotExamples = []adapter.Message{
	{Role: "user", Content: "How do I check which process is listening on port 8080?"},
	{Role: "assistant", Content: "Run `lsof -i :8080` (or `ss -ltnp | grep 8080` on Linux). The last column shows the owning process and PID."},
	{Role: "user", Content: "Give me a one-line summary of what a bloom filter is."},
	{Role: "assistant", Content: "A bloom filter is a compact probabilistic set that can say \"definitely not present\" or \"probably present\", trading a small false-positive rate for very low memory."},
}
