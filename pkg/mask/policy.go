// Package mask converts detected PII spans into redacted text under
// per-category masking policies, and renders mask-location diffs for safe
// audit logging.
package mask

import "github.com/chatguard-ai/chatguard/pkg/pii"

// Strategy defines how a matched value is rewritten.
type Strategy string

const (
	// StrategyFixedToken replaces the value with a short bracketed category
	// label, e.g. [EMAIL]. The replacement length is unrelated to the
	// original length.
	StrategyFixedToken Strategy = "fixed-token"

	// StrategyLengthPreserving replaces the value with MaskChar repeated so
	// the masked segment keeps the original segment's length, preserving
	// KeepPrefix/KeepSuffix characters verbatim.
	StrategyLengthPreserving Strategy = "length-preserving"

	// StrategyHashDigest replaces the value with a short deterministic
	// digest: identical values map to identical tokens, which keeps masked
	// data usable for analytics without recovering the value.
	StrategyHashDigest Strategy = "hash-digest"
)

// Policy is the per-category masking configuration.
//
// If KeepPrefix+KeepSuffix meets or exceeds the matched text's length the
// match is returned unmodified: a misconfigured policy fails safe (toward
// readability), not blocking.
type Policy struct {
	Strategy   Strategy `yaml:"strategy" json:"strategy"`
	KeepPrefix int      `yaml:"keep_prefix" json:"keep_prefix"`
	KeepSuffix int      `yaml:"keep_suffix" json:"keep_suffix"`
	MaskChar   rune     `yaml:"-" json:"-"`
}

// DefaultPolicies returns the built-in policy table. Every category the
// detector can emit has an entry; DefaultPolicy covers custom categories.
func DefaultPolicies() map[pii.Category]Policy {
	return map[pii.Category]Policy{
		// Keep the first characters and the domain-ish tail readable.
		pii.CategoryEmail:       {Strategy: StrategyFixedToken, KeepPrefix: 2, KeepSuffix: 4, MaskChar: '*'},
		pii.CategoryPhone:       {Strategy: StrategyLengthPreserving, KeepPrefix: 2, KeepSuffix: 2, MaskChar: '*'},
		pii.CategoryCreditCard:  {Strategy: StrategyLengthPreserving, KeepSuffix: 4, MaskChar: '*'},
		pii.CategorySSN:         {Strategy: StrategyLengthPreserving, KeepSuffix: 4, MaskChar: '*'},
		pii.CategoryIPAddress:   {Strategy: StrategyLengthPreserving, MaskChar: '*'},
		pii.CategoryURL:         {Strategy: StrategyFixedToken, MaskChar: '*'},
		pii.CategoryDateOfBirth: {Strategy: StrategyLengthPreserving, MaskChar: '*'},
		// Hash people so repeated mentions of the same name stay correlated.
		pii.CategoryPerson:       {Strategy: StrategyHashDigest, MaskChar: '*'},
		pii.CategoryOrganization: {Strategy: StrategyFixedToken, MaskChar: '*'},
		pii.CategoryLocation:     {Strategy: StrategyFixedToken, MaskChar: '*'},
		pii.CategoryMoney:        {Strategy: StrategyLengthPreserving, MaskChar: '*'},
	}
}

// DefaultPolicy is applied to categories without a table entry.
var DefaultPolicy = Policy{Strategy: StrategyLengthPreserving, MaskChar: '*'}
