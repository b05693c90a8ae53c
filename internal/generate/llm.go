package generate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"edupdf/pkg/ai"
)

// LLMGenerator produces study material by prompting a text model for strict
// JSON. Responses that do not decode are reported as errors so callers can
// surface them instead of persisting garbage.
type LLMGenerator struct {
	model ai.TextGenerator
}

// NewLLMGenerator wraps a TextGenerator.
func NewLLMGenerator(model ai.TextGenerator) *LLMGenerator {
	return &LLMGenerator{model: model}
}

const quizSystemPrompt = `You are a study-material generator. Reply with JSON only, no prose and no markdown fences.`

// Quiz implements ContentGenerator.
func (g *LLMGenerator) Quiz(ctx context.Context, text string, numQuestions int) ([]QuizItem, error) {
	userPrompt := fmt.Sprintf(
		"Write %d multiple-choice questions about the following document. "+
			"Reply with a JSON array where each element has fields "+
			"\"question\" (string), \"options\" (array of 4 strings) and "+
			"\"correct_answer\" (0-based index into options).\n\nDocument:\n%s",
		numQuestions, clipText(text))
	raw, err := g.model.GenerateText(ctx, quizSystemPrompt, userPrompt)
	if err != nil {
		return nil, fmt.Errorf("generate quiz: %w", err)
	}
	var items []QuizItem
	if err := json.Unmarshal([]byte(stripFences(raw)), &items); err != nil {
		return nil, fmt.Errorf("decode quiz response: %w", err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("model returned no questions")
	}
	return items, nil
}

// Flashcards implements ContentGenerator.
func (g *LLMGenerator) Flashcards(ctx context.Context, text string, numCards int) ([]CardItem, error) {
	userPrompt := fmt.Sprintf(
		"Write %d flashcards about the following document. Reply with a JSON "+
			"array where each element has fields \"front\" (a term or question) "+
			"and \"back\" (the answer).\n\nDocument:\n%s",
		numCards, clipText(text))
	raw, err := g.model.GenerateText(ctx, quizSystemPrompt, userPrompt)
	if err != nil {
		return nil, fmt.Errorf("generate flashcards: %w", err)
	}
	var cards []CardItem
	if err := json.Unmarshal([]byte(stripFences(raw)), &cards); err != nil {
		return nil, fmt.Errorf("decode flashcard response: %w", err)
	}
	if len(cards) == 0 {
		return nil, fmt.Errorf("model returned no flashcards")
	}
	return cards, nil
}

// Summary implements ContentGenerator.
func (g *LLMGenerator) Summary(ctx context.Context, text string, maxLength int) (string, error) {
	userPrompt := fmt.Sprintf(
		"Summarize the following document in at most %d characters. Reply "+
			"with the summary text only.\n\nDocument:\n%s",
		maxLength, clipText(text))
	raw, err := g.model.GenerateText(ctx, "You are a concise technical summarizer.", userPrompt)
	if err != nil {
		return "", fmt.Errorf("generate summary: %w", err)
	}
	out := strings.TrimSpace(stripFences(raw))
	if out == "" {
		return "", fmt.Errorf("model returned an empty summary")
	}
	if len(out) > maxLength {
		out = strings.TrimSpace(out[:maxLength])
	}
	return out, nil
}

// maxPromptChars keeps prompts inside typical context windows.
const maxPromptChars = 24000

func clipText(text string) string {
	if len(text) <= maxPromptChars {
		return text
	}
	return text[:maxPromptChars]
}

// stripFences removes a single markdown code fence wrapper, which chat
// models add around JSON no matter how firmly the prompt forbids it.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.Index(s, "\n"); idx >= 0 {
		s = s[idx+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
