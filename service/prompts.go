package service

import "fmt"

const answerSystemPrompt = `You are a helpful assistant answering questions about a PDF document.
Answer only from the provided context and the conversation so far.
When the context contains page markers such as [Page 3], cite the page the answer came from.
If the answer is not in the context, say that the document does not contain it.`

const emptyContextNote = "(no relevant passages were found in the document)"

func contextOrNote(pdfContext string) string {
	if pdfContext == "" {
		return emptyContextNote
	}
	return pdfContext
}

// answerPrompt is the final user turn of a streamed chat answer.
func answerPrompt(pdfContext, question string) string {
	return fmt.Sprintf("Context from PDF:\n%s\n\n---\n\nQuestion: \"%s\"\n\n"+
		"Analyze the context and extract the answer. Look for direct quotes, numbers, names, and facts. Be thorough.",
		contextOrNote(pdfContext), question)
}

// queryPrompt is used by the single completion API.
func queryPrompt(documentName, pdfContext, question string) string {
	return fmt.Sprintf("Context from PDF \"%s\":\n%s\n\n---\n\nQuestion: \"%s\"\n\n"+
		"Provide a clear, accurate answer based on the context above. If the answer cannot be found in the context, say so.",
		documentName, contextOrNote(pdfContext), question)
}
