// Package prompt assembles the two-message chat sent to the language model.
package prompt

import (
	"encoding/base64"
	"strings"

	"github.com/nadzzz/shouldi/internal/message"
)

// SystemInstruction directs the model to answer with a flat JSON object
// holding "probability" and "reason".
const SystemInstruction = `You are an expert analyst. Analyze the given information and question.
Provide a response in JSON format with the following keys:

- "probability": A percentage (0-100) indicating the likelihood of "yes" (should do/buy) vs. "no" (should not do/buy).
  Higher percentage means "yes", lower percentage means "no".
- "reason": A concise explanation of your analysis and reasoning, citing sources if applicable.

Return only the JSON object, with no other keys and no nesting.

Example:
{"probability": 75, "reason": "Based on the current market trends and expert opinions, the stock shows strong potential for growth."}
`

// DefaultImageInstruction replaces the question for image-only requests.
const DefaultImageInstruction = "Please analyze the photo."

// contextLabel introduces the search augmentation in the user turn.
const contextLabel = "Relevant information:"

// Build assembles the prompt for a question, optional search context and optional image.
func Build(question, searchContext string, image []byte) message.Prompt {
	content := strings.TrimSpace(question)
	if content == "" && len(image) > 0 {
		content = DefaultImageInstruction
	}
	if ctx := strings.TrimSpace(searchContext); ctx != "" {
		content += "\n\n" + contextLabel + "\n" + ctx
	}

	user := message.PromptMessage{Role: message.RoleUser, Content: content}
	if len(image) > 0 {
		user.Images = []string{base64.StdEncoding.EncodeToString(image)}
	}

	return message.Prompt{
		System: message.PromptMessage{Role: message.RoleSystem, Content: SystemInstruction},
		User:   user,
	}
}
