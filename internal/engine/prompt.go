package engine

import (
	"fmt"
	"strings"

	"github.com/codescout-ai/codescout/internal/llm"
	"github.com/codescout-ai/codescout/internal/models"
)

const systemPrompt = `You are a senior engineer answering questions about a specific codebase.
Ground every statement in the code excerpts provided below. If the excerpts do
not contain enough information to answer, say so instead of guessing.
Reference files by name when you cite them.`

// buildMessages assembles the chat transcript sent to the generation provider:
// system prompt with retrieved code, prior conversation turns, then the question.
func buildMessages(question string, chunks []models.RetrievedChunk, history []models.ConversationTurn) []llm.Message {
	var ctx strings.Builder
	ctx.WriteString(systemPrompt)
	ctx.WriteString("\n\nRelevant code from the project:\n")
	for _, c := range chunks {
		fmt.Fprintf(&ctx, "\n--- %s (similarity %.2f) ---\n", c.FileName, c.Similarity)
		if c.Summary != "" {
			fmt.Fprintf(&ctx, "Summary: %s\n", c.Summary)
		}
		ctx.WriteString(c.SourceCode)
		ctx.WriteString("\n")
	}

	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: "system", Content: ctx.String()})
	for _, turn := range history {
		role := turn.Role
		if role != "assistant" {
			role = "user"
		}
		messages = append(messages, llm.Message{Role: role, Content: turn.Content})
	}
	messages = append(messages, llm.Message{Role: "user", Content: question})
	return messages
}
