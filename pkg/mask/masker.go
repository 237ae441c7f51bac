package mask

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/chatguard-ai/chatguard/pkg/pii"
)

// digestLen is the number of hex characters kept from the SHA-256 digest in
// hash-digest masking.
const digestLen = 8

// Masker rewrites detected PII spans according to per-category policies.
// It is a deterministic, total transformation: well-formed input never
// produces an error, and an empty match list returns the text unchanged.
type Masker struct {
	policies map[pii.Category]Policy
	fallback Policy
}

// MaskerOption configures a Masker.
type MaskerOption func(*Masker)

// WithPolicy overrides the policy for a single category.
func WithPolicy(category pii.Category, policy Policy) MaskerOption {
	return func(m *Masker) {
		m.policies[category] = policy
	}
}

// WithFallbackPolicy overrides the policy used for categories without a
// table entry.
func WithFallbackPolicy(policy Policy) MaskerOption {
	return func(m *Masker) {
		m.fallback = policy
	}
}

// NewMasker creates a masker with the default policy table.
func NewMasker(opts ...MaskerOption) *Masker {
	m := &Masker{
		policies: DefaultPolicies(),
		fallback: DefaultPolicy,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Mask replaces every match span in text with its masked form. Matches are
// consumed in reverse Start order so earlier replacements cannot invalidate
// later offsets.
func (m *Masker) Mask(text string, matches []pii.Match) string {
	if len(matches) == 0 {
		return text
	}

	ordered := make([]pii.Match, len(matches))
	copy(ordered, matches)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].Start > ordered[j].Start
	})

	result := text
	for _, match := range ordered {
		if match.Start < 0 || match.End > len(result) || match.Start >= match.End {
			continue
		}
		replacement := m.maskValue(result[match.Start:match.End], match.Category)
		result = result[:match.Start] + replacement + result[match.End:]
	}
	return result
}

// maskValue rewrites one value under its category policy.
func (m *Masker) maskValue(value string, category Category) string {
	policy, ok := m.policies[category]
	if !ok {
		policy = m.fallback
	}

	keepPrefix := policy.KeepPrefix
	keepSuffix := policy.KeepSuffix
	if keepPrefix < 0 {
		keepPrefix = 0
	}
	if keepSuffix < 0 {
		keepSuffix = 0
	}

	// Fail-safe: a policy that preserves the whole value leaves it alone.
	if keepPrefix+keepSuffix >= len(value) {
		return value
	}

	prefix := value[:keepPrefix]
	suffix := value[len(value)-keepSuffix:]

	maskChar := policy.MaskChar
	if maskChar == 0 {
		maskChar = '*'
	}

	switch policy.Strategy {
	case StrategyFixedToken:
		return prefix + fixedToken(category) + suffix
	case StrategyHashDigest:
		return prefix + digest(value) + suffix
	case StrategyLengthPreserving:
		fallthrough
	default:
		masked := len(value) - keepPrefix - keepSuffix
		return prefix + strings.Repeat(string(maskChar), masked) + suffix
	}
}

// fixedToken builds the bracketed category marker, e.g. [CREDIT_CARD].
func fixedToken(category Category) string {
	return "[" + strings.ToUpper(string(category)) + "]"
}

// digest returns a short deterministic token for a value. Identical values
// always map to the same token.
func digest(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])[:digestLen]
}

// Category is an alias kept local to policy lookups.
type Category = pii.Category

// RenderForLogging produces an audit-safe rendering that marks where masking
// occurred without reproducing the original or the full masked payload.
// Contiguous runs where the masked and original texts differ become a single
// [MASKED:<n>] marker annotated with the run length; the shared (unmasked)
// characters are kept verbatim.
//
// The comparison walks the shorter of the two strings; a trailing remainder
// on either side is reported as one additional masked run.
func RenderForLogging(maskedText, originalText string) string {
	masked := []rune(maskedText)
	original := []rune(originalText)

	limit := len(masked)
	if len(original) < limit {
		limit = len(original)
	}

	var b strings.Builder
	runLen := 0
	flush := func() {
		if runLen > 0 {
			fmt.Fprintf(&b, "[MASKED:%d]", runLen)
			runLen = 0
		}
	}

	for i := 0; i < limit; i++ {
		if masked[i] != original[i] {
			runLen++
			continue
		}
		flush()
		b.WriteRune(masked[i])
	}

	// Length drift from non-length-preserving strategies counts as one run.
	if tail := len(masked) - limit + len(original) - limit; tail > 0 {
		runLen += tail
	}
	flush()

	return b.String()
}
