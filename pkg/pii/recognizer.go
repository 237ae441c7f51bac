package pii

import "regexp"

// Recognizer finds named entities in text. Implementations may wrap an
// external NER model; the detector only requires labeled spans back.
type Recognizer interface {
	Recognize(text string) []Entity
}

// EntityConfidence is assigned to every recognizer match. Entity recognition
// is heuristic, so its matches never outrank a pattern match when spans
// overlap.
const EntityConfidence = 0.8

// DefaultLabels is the set of entity labels considered PII-relevant.
// Labels follow the common NER convention (GPE is a geopolitical entity).
func DefaultLabels() map[string]Category {
	return map[string]Category{
		"PERSON": CategoryPerson,
		"ORG":    CategoryOrganization,
		"GPE":    CategoryLocation,
		"LOC":    CategoryLocation,
		"MONEY":  CategoryMoney,
	}
}

// heuristicRecognizer is the built-in lexical recognizer. It trades recall
// for precision: it only emits entities anchored by an explicit cue
// (honorific, corporate suffix, location preposition, currency marker), so
// its matches stay useful at the fixed heuristic confidence.
type heuristicRecognizer struct {
	rules []entityRule
}

type entityRule struct {
	label   string
	pattern *regexp.Regexp
	// group selects the capture group holding the entity span; 0 means the
	// whole match.
	group int
}

// NewHeuristicRecognizer returns the built-in rule-based recognizer.
func NewHeuristicRecognizer() Recognizer {
	return &heuristicRecognizer{
		rules: []entityRule{
			// Honorific followed by one or two capitalized words.
			{"PERSON", regexp.MustCompile(`\b(?:Mr|Mrs|Ms|Dr|Prof)\.?\s+([A-Z][a-z]+(?:\s+[A-Z][a-z]+)?)`), 1},
			// Introductions: "my name is Jane Doe", "I am John Smith".
			{"PERSON", regexp.MustCompile(`(?i)\b(?:my name is|i am|i'm|this is|contact|regards,?)\s+([A-Z][a-z]+\s+[A-Z][a-z]+)`), 1},
			// Capitalized name with a corporate suffix.
			{"ORG", regexp.MustCompile(`\b([A-Z][A-Za-z&]+(?:\s+[A-Z][A-Za-z&]+)*[,]?\s+(?:Inc|LLC|Ltd|Corp|GmbH|Co)\.?)\b`), 1},
			// "in Berlin", "from New York", "based in San Francisco".
			{"GPE", regexp.MustCompile(`\b(?:in|from|at|near)\s+([A-Z][a-z]+(?:\s+[A-Z][a-z]+){0,2})\b`), 1},
			// Currency amounts: $1,234.56 or "1200 dollars/USD/EUR".
			{"MONEY", regexp.MustCompile(`[$€£]\s?\d[\d,]*(?:\.\d{1,2})?|\b\d[\d,]*(?:\.\d{1,2})?\s?(?:dollars|euros|pounds|USD|EUR|GBP)\b`), 0},
		},
	}
}

// Recognize applies each rule in order and returns every labeled span.
// Overlap handling is the detector's job, not the recognizer's.
func (r *heuristicRecognizer) Recognize(text string) []Entity {
	var entities []Entity
	for _, rule := range r.rules {
		for _, idx := range rule.pattern.FindAllStringSubmatchIndex(text, -1) {
			start, end := idx[2*rule.group], idx[2*rule.group+1]
			if start < 0 || end <= start {
				continue
			}
			entities = append(entities, Entity{
				Start: start,
				End:   end,
				Text:  text[start:end],
				Label: rule.label,
			})
		}
	}
	return entities
}
