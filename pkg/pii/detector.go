package pii

import "sort"

// residualThreshold is the confidence above which a match surviving masking
// counts as residual PII. Entity matches sit exactly at 0.8, so only
// deterministic pattern matches trip the check.
const residualThreshold = 0.8

// Detector scans text for PII spans. It is safe for concurrent use: the
// pattern table and label set are never mutated after construction.
type Detector struct {
	patterns   []Pattern
	recognizer Recognizer
	labels     map[string]Category
}

// DetectorOption configures a Detector.
type DetectorOption func(*Detector)

// WithPatterns replaces the default pattern library.
func WithPatterns(patterns []Pattern) DetectorOption {
	return func(d *Detector) {
		d.patterns = patterns
	}
}

// WithRecognizer replaces the built-in heuristic recognizer, e.g. with a
// client for an external NER model.
func WithRecognizer(r Recognizer) DetectorOption {
	return func(d *Detector) {
		d.recognizer = r
	}
}

// WithLabels replaces the PII-relevant entity label set.
func WithLabels(labels map[string]Category) DetectorOption {
	return func(d *Detector) {
		d.labels = labels
	}
}

// NewDetector creates a detector with the default pattern library and the
// built-in heuristic recognizer.
func NewDetector(opts ...DetectorOption) *Detector {
	d := &Detector{
		patterns:   DefaultPatterns(),
		recognizer: NewHeuristicRecognizer(),
		labels:     DefaultLabels(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Detect returns the finalized match list for text: pattern matches at
// confidence 1.0 merged with recognizer matches at confidence 0.8, sorted by
// Start ascending with no overlapping spans.
func (d *Detector) Detect(text string) []Match {
	if text == "" {
		return nil
	}

	candidates := d.patternMatches(text)
	candidates = append(candidates, d.entityMatches(text)...)
	if len(candidates) == 0 {
		return nil
	}

	// Sort by Start ascending; ties prefer higher confidence, then earlier
	// registration order (the slice is already in registration order and the
	// sort is stable).
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Start != candidates[j].Start {
			return candidates[i].Start < candidates[j].Start
		}
		return candidates[i].Confidence > candidates[j].Confidence
	})

	return resolveOverlaps(candidates)
}

// HasResidualPII re-runs detection on masked text and reports whether any
// high-confidence match survived masking.
func (d *Detector) HasResidualPII(originalText, maskedText string) bool {
	for _, m := range d.Detect(maskedText) {
		if m.Confidence > residualThreshold {
			return true
		}
	}
	return false
}

func (d *Detector) patternMatches(text string) []Match {
	var matches []Match
	for _, p := range d.patterns {
		for _, idx := range p.Regexp.FindAllStringIndex(text, -1) {
			matches = append(matches, Match{
				Start:      idx[0],
				End:        idx[1],
				Text:       text[idx[0]:idx[1]],
				Category:   p.Category,
				Confidence: PatternConfidence,
				Source:     SourcePattern,
			})
		}
	}
	return matches
}

func (d *Detector) entityMatches(text string) []Match {
	if d.recognizer == nil {
		return nil
	}
	var matches []Match
	for _, ent := range d.recognizer.Recognize(text) {
		category, ok := d.labels[ent.Label]
		if !ok {
			continue
		}
		matches = append(matches, Match{
			Start:      ent.Start,
			End:        ent.End,
			Text:       ent.Text,
			Category:   category,
			Confidence: EntityConfidence,
			Source:     SourceEntity,
		})
	}
	return matches
}

// resolveOverlaps walks candidates in sorted order and keeps a
// non-overlapping subset: a candidate overlapping the last accepted match
// replaces it only when its confidence is strictly greater.
func resolveOverlaps(candidates []Match) []Match {
	result := candidates[:1:1]
	for _, cand := range candidates[1:] {
		last := result[len(result)-1]
		if cand.Overlaps(last) {
			if cand.Confidence > last.Confidence {
				result[len(result)-1] = cand
			}
			continue
		}
		result = append(result, cand)
	}
	return result
}
