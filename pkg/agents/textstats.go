package agents

import (
	"math"
	"regexp"
	"strings"
	"unicode/utf8"
)

var sentenceBoundary = regexp.MustCompile(`[.!?]+`)

// ComplexityScore grades how hard text is to read on a 1 to 10 scale, rounded to
// one decimal. It combines the average sentence length with the share of words
// longer than six runes, punctuation included. Empty text scores 1.
func ComplexityScore(text string) float64 {
	words := strings.Fields(text)

	sentences := 0
	for _, s := range sentenceBoundary.Split(text, -1) {
		if strings.TrimSpace(s) != "" {
			sentences++
		}
	}
	sentences = max(1, sentences)

	long := 0
	for _, w := range words {
		if utf8.RuneCountInString(w) > 6 {
			long++
		}
	}

	avgSentenceLength := float64(len(words)) / float64(sentences)
	longWordPct := float64(long) / float64(max(1, len(words)))

	score := avgSentenceLength*0.5 + longWordPct*10
	score = math.Min(10, math.Max(1, score))
	return math.Round(score*10) / 10
}

// ExtractKeyPoints picks up to n representative sentences from text.
// Sentences of ten characters or fewer are ignored. When more than n remain they are
// sampled at a fixed stride starting with the first, preserving order.
func ExtractKeyPoints(text string, n int) []string {
	if n <= 0 {
		return nil
	}

	var sentences []string
	for _, s := range sentenceBoundary.Split(text, -1) {
		s = strings.TrimSpace(s)
		if utf8.RuneCountInString(s) > 10 {
			sentences = append(sentences, s)
		}
	}
	if len(sentences) <= n {
		return sentences
	}

	stride := len(sentences) / n
	points := make([]string, 0, n)
	for i := range n {
		idx := i * stride
		if idx >= len(sentences) {
			continue
		}
		points = append(points, sentences[idx])
	}
	return points
}
