package generate

import (
	"context"
	"fmt"
	"strings"
	"unicode"
)

// HeuristicGenerator builds study material with deterministic extractive
// rules instead of a language model. It is the default generator so the
// service works without any LLM running, and tests rely on its determinism.
type HeuristicGenerator struct{}

// NewHeuristicGenerator returns the rule-based generator.
func NewHeuristicGenerator() *HeuristicGenerator { return &HeuristicGenerator{} }

const minSentenceLen = 20

var fillerOptions = []string{"none of the above", "not mentioned in the text", "all of the above"}

var stopwords = map[string]bool{
	"about": true, "after": true, "also": true, "because": true, "been": true,
	"before": true, "being": true, "between": true, "both": true, "could": true,
	"does": true, "each": true, "from": true, "have": true, "into": true,
	"more": true, "most": true, "other": true, "over": true, "same": true,
	"should": true, "some": true, "such": true, "than": true, "that": true,
	"their": true, "them": true, "then": true, "there": true, "these": true,
	"they": true, "this": true, "those": true, "through": true, "under": true,
	"very": true, "were": true, "what": true, "when": true, "where": true,
	"which": true, "while": true, "with": true, "would": true, "your": true,
}

// Quiz picks key terms out of the text's sentences and turns each into a
// fill-in-the-blank question with distractors drawn from the other sentences.
func (g *HeuristicGenerator) Quiz(ctx context.Context, text string, numQuestions int) ([]QuizItem, error) {
	sentences := splitSentences(text)
	type candidate struct {
		sentence string
		term     string
	}
	candidates := make([]candidate, 0, len(sentences))
	terms := make([]string, 0, len(sentences))
	seen := make(map[string]bool)
	for _, s := range sentences {
		term := keyTerm(s)
		if term == "" || seen[strings.ToLower(term)] {
			continue
		}
		seen[strings.ToLower(term)] = true
		candidates = append(candidates, candidate{sentence: s, term: term})
		terms = append(terms, term)
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("text has no usable sentences")
	}
	if numQuestions > len(candidates) {
		numQuestions = len(candidates)
	}

	items := make([]QuizItem, 0, numQuestions)
	for i := 0; i < numQuestions; i++ {
		c := candidates[i]
		question := blankOut(c.sentence, c.term)

		// Distractors come from the other candidates' key terms, walking
		// the list from a different starting point per question. Short
		// texts fall back to generic fillers so every question still has
		// enough options.
		options := make([]string, 0, 4)
		for j := 1; len(options) < 3 && j <= len(terms); j++ {
			distractor := terms[(i+j)%len(terms)]
			if strings.EqualFold(distractor, c.term) {
				continue
			}
			options = append(options, distractor)
		}
		for _, filler := range fillerOptions {
			if len(options) >= 3 {
				break
			}
			options = append(options, filler)
		}
		correct := i % (len(options) + 1)
		options = append(options[:correct], append([]string{c.term}, options[correct:]...)...)
		items = append(items, QuizItem{
			Question:      question,
			Options:       options,
			CorrectAnswer: correct,
		})
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("text has too few distinct terms for a quiz")
	}
	return items, nil
}

// Flashcards pairs each sentence's key term with the sentence that defines it.
func (g *HeuristicGenerator) Flashcards(ctx context.Context, text string, numCards int) ([]CardItem, error) {
	sentences := splitSentences(text)
	cards := make([]CardItem, 0, numCards)
	seen := make(map[string]bool)
	for _, s := range sentences {
		if len(cards) >= numCards {
			break
		}
		term := keyTerm(s)
		if term == "" || seen[strings.ToLower(term)] {
			continue
		}
		seen[strings.ToLower(term)] = true
		cards = append(cards, CardItem{Front: term, Back: s})
	}
	if len(cards) == 0 {
		return nil, fmt.Errorf("text has no usable sentences")
	}
	return cards, nil
}

// Summary takes leading sentences until the length budget runs out.
func (g *HeuristicGenerator) Summary(ctx context.Context, text string, maxLength int) (string, error) {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return "", fmt.Errorf("text has no usable sentences")
	}
	var b strings.Builder
	for _, s := range sentences {
		if b.Len() > 0 && b.Len()+len(s)+1 > maxLength {
			break
		}
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		b.WriteString(s)
		if b.Len() >= maxLength {
			break
		}
	}
	out := b.String()
	if len(out) > maxLength {
		out = strings.TrimSpace(out[:maxLength])
	}
	return out, nil
}

func splitSentences(text string) []string {
	text = strings.Join(strings.Fields(text), " ")
	var out []string
	start := 0
	for i, r := range text {
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		s := strings.TrimSpace(text[start : i+1])
		start = i + 1
		if len(s) >= minSentenceLen {
			out = append(out, s)
		}
	}
	if s := strings.TrimSpace(text[start:]); len(s) >= minSentenceLen {
		out = append(out, s)
	}
	return out
}

// keyTerm returns the longest word of at least four letters that is not a
// stopword, keeping the earliest one on ties.
func keyTerm(sentence string) string {
	best := ""
	for _, w := range strings.Fields(sentence) {
		w = strings.TrimFunc(w, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if len(w) < 4 || stopwords[strings.ToLower(w)] {
			continue
		}
		if len(w) > len(best) {
			best = w
		}
	}
	return best
}

func blankOut(sentence, term string) string {
	return strings.Replace(sentence, term, "_____", 1)
}
