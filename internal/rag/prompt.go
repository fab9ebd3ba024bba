// internal/rag/prompt.go
package rag

import (
	"fmt"
	"strings"

	"github.com/mwiater/mmrag/internal/content"
	"github.com/mwiater/mmrag/internal/providers"
)

const answerPrompt = "You are an AI scientist tasking with providing factual answers.\n" +
	"You will be given a mixed of text, tables, and image(s) usually of charts or graphs.\n" +
	"Use this information to provide answers related to the user question. \n" +
	"User-provided question: %s\n\n" +
	"Text and / or tables:\n" +
	"%s"

// BuildMessage renders the single user message sent to the multimodal model:
// the instruction text with the question and joined texts, then one image part
// per context image.
func BuildMessage(question string, mc MultimodalContext) providers.Message {
	parts := []providers.Part{{
		Type: providers.PartText,
		Text: fmt.Sprintf(answerPrompt, question, strings.Join(mc.Texts, "\n")),
	}}
	for _, img := range mc.Images {
		parts = append(parts, providers.Part{
			Type:     providers.PartImageURL,
			ImageURL: providers.DataURI(content.ImageMIME(img), img),
		})
	}
	return providers.Message{Role: "user", Parts: parts}
}
