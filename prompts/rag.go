package prompts

// defaultDocumentQATemplate instructs the model to answer strictly from the
// retrieved document context.
const defaultDocumentQATemplate = `You are a helpful assistant answering questions about a document.
Use only the context below to answer. If the context does not contain the
answer, say that the document does not cover it. Do not invent information.

Context:
{{.context}}

Question: {{.query}}

Answer:`

// NewDocumentQAPrompt returns the prompt template used for grounded
// question answering over retrieved document chunks.
func NewDocumentQAPrompt() PromptTemplate {
	return NewPromptTemplate(defaultDocumentQATemplate, []string{"context", "query"})
}
