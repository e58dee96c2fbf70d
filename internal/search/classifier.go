package search

import (
	"regexp"
	"strings"
	"unicode"
)

var generalPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^\s*what\s+(is|are|was|were)\s+(a|an|the)?\s*\w+`),
	regexp.MustCompile(`(?i)^\s*(who|when|where)\s+(is|was|were|did)\b`),
	regexp.MustCompile(`(?i)^\s*how\s+(does|do|did|can|to)\b.*\b(work|works|happen|make|made)\b`),
	regexp.MustCompile(`(?i)^\s*(define|explain|describe)\b`),
	regexp.MustCompile(`(?i)^\s*tell\s+me\s+about\b`),
	regexp.MustCompile(`(?i)\b(definition|meaning)\s+of\b`),
	regexp.MustCompile(`(?i)\bdifference\s+between\b`),
	regexp.MustCompile(`(?i)^\s*why\s+(is|are|do|does|did)\b`),
}

var genericStarts = []string{
	"what", "who", "when", "where", "why", "how", "which",
	"is", "are", "can", "does", "do", "explain", "define", "describe", "tell me",
}

var personalTerms = map[string]bool{
	"my": true, "i": true, "me": true, "mine": true, "i'm": true, "i've": true,
	"resume": true, "cv": true, "document": true, "documents": true,
	"file": true, "files": true, "pdf": true, "uploaded": true,
}

// Classifier decides whether a query is a general-knowledge question rather
// than one about the caller's own documents.
type Classifier struct {
	personal map[string]bool
}

// NewClassifier treats each word of ownerNames as a personal term.
func NewClassifier(ownerNames ...string) *Classifier {
	c := &Classifier{personal: make(map[string]bool, len(personalTerms))}
	for k := range personalTerms {
		c.personal[k] = true
	}
	for _, name := range ownerNames {
		for _, w := range words(name) {
			c.personal[w] = true
		}
	}
	return c
}

// IsGeneralKnowledge is true when a fixed pattern matches, or when the query
// opens like a generic question and mentions nothing personal.
func (c *Classifier) IsGeneralKnowledge(query string) bool {
	for _, re := range generalPatterns {
		if re.MatchString(query) {
			return true
		}
	}
	return startsGeneric(query) && !c.mentionsPersonal(query)
}

func (c *Classifier) mentionsPersonal(query string) bool {
	for _, w := range words(query) {
		if c.personal[w] {
			return true
		}
	}
	return false
}

func startsGeneric(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	for _, s := range genericStarts {
		if q == s || strings.HasPrefix(q, s+" ") {
			return true
		}
	}
	return false
}

func words(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
}

// QueryTerms are the lowercase words longer than two characters.
func QueryTerms(query string) []string {
	var terms []string
	seen := make(map[string]bool)
	for _, w := range words(query) {
		w = strings.Trim(w, "'")
		if len(w) > 2 && !seen[w] {
			seen[w] = true
			terms = append(terms, w)
		}
	}
	return terms
}
