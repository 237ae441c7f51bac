package pii

import "regexp"

// Pattern is one compiled detection pattern in the static pattern library.
// Pattern matches always carry PatternConfidence.
type Pattern struct {
	Category Category
	Regexp   *regexp.Regexp
}

// PatternConfidence is assigned to every regex match. Pattern matches are
// deterministic, so the detector treats them as certain relative to
// heuristic entity matches.
const PatternConfidence = 1.0

// DefaultPatterns returns the built-in pattern library. Order is significant:
// when two candidates start at the same offset with equal confidence, the
// earlier-registered pattern wins.
//
// Every pattern here can produce false positives: a 13-16 digit run is not
// necessarily a credit card, and a dotted quad is not necessarily a real
// host. That is an accepted trade-off: the masker errs toward masking too
// much rather than leaking, so no checksum or semantic validation is applied.
func DefaultPatterns() []Pattern {
	return []Pattern{
		{CategoryEmail, regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)},
		{CategorySSN, regexp.MustCompile(`\b\d{3}-?\d{2}-?\d{4}\b`)},
		{CategoryCreditCard, regexp.MustCompile(`\b(?:\d[ -]?){13,16}\b`)},
		{CategoryPhone, regexp.MustCompile(`\+?\d{1,4}[-.\s]?\(?\d{1,3}\)?[-.\s]?\d{3,4}[-.\s]?\d{4}\b`)},
		{CategoryIPAddress, regexp.MustCompile(`\b\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}\b`)},
		{CategoryURL, regexp.MustCompile(`https?://(?:[-\w.]|%[\da-fA-F]{2})+(?:/[^\s]*)?`)},
		{CategoryDateOfBirth, regexp.MustCompile(`\b\d{1,2}[-/]\d{1,2}[-/]\d{2,4}\b`)},
	}
}
