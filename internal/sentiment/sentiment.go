// Package sentiment implements a deterministic lexical classifier over
// curated term sets. It is a triage signal for moderators, not an NLP model:
// classification never blocks or rejects content on its own.
package sentiment

import (
	"math"
	"strings"
	"unicode"
)

const (
	Positive = "positive"
	Neutral  = "neutral"
	Negative = "negative"
)

// Result is the classification of a single text. Identical input always
// yields an identical Result.
type Result struct {
	Sentiment string
	Score     float64
	Urgent    bool
	PosCount  int
	NegCount  int
}

// Lexicon is the swappable data the classifier matches against. Terms may be
// single words, multi-word phrases or emoji; phrases and emoji are matched as
// substrings, plain words as tokens.
type Lexicon struct {
	Positive []string
	Negative []string
	Urgent   []string
}

// Classifier is a pure function over its lexicon; safe for concurrent use.
type Classifier struct {
	positive []string
	negative []string
	urgent   []string
}

func NewClassifier(lex Lexicon) *Classifier {
	lower := func(terms []string) []string {
		out := make([]string, len(terms))
		for i, t := range terms {
			out[i] = strings.ToLower(t)
		}
		return out
	}
	return &Classifier{
		positive: lower(lex.Positive),
		negative: lower(lex.Negative),
		urgent:   lower(lex.Urgent),
	}
}

// Default returns a classifier over the built-in Russian lexicon.
func Default() *Classifier {
	return NewClassifier(DefaultLexicon())
}

func tokenize(text string) map[string]struct{} {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	tokens := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		tokens[f] = struct{}{}
	}
	return tokens
}

// countMatches counts lexicon terms present as tokens, plus terms present as
// substrings of the raw text that the tokenizer did not surface (multi-word
// phrases, emoji, punctuation-attached terms).
func countMatches(terms []string, tokens map[string]struct{}, raw string) int {
	count := 0
	for _, term := range terms {
		if _, ok := tokens[term]; ok {
			count++
			continue
		}
		if strings.Contains(raw, term) {
			count++
		}
	}
	return count
}

// Classify scores the text against the lexicon. Empty input is neutral and
// not urgent.
func (c *Classifier) Classify(text string) Result {
	if text == "" {
		return Result{Sentiment: Neutral}
	}

	raw := strings.ToLower(text)
	tokens := tokenize(raw)

	urgent := countMatches(c.urgent, tokens, raw) > 0
	posCount := countMatches(c.positive, tokens, raw)
	negCount := countMatches(c.negative, tokens, raw)

	total := posCount + negCount
	if total == 0 {
		return Result{Sentiment: Neutral, Urgent: urgent}
	}

	score := float64(posCount-negCount) / float64(total)
	score = math.Round(score*100) / 100

	sentiment := Neutral
	switch {
	case score > 0.2:
		sentiment = Positive
	case score < -0.2:
		sentiment = Negative
	}

	return Result{
		Sentiment: sentiment,
		Score:     score,
		Urgent:    urgent,
		PosCount:  posCount,
		NegCount:  negCount,
	}
}
