// Package pii provides detection of personally identifiable information in
// text using compiled regex patterns and pluggable entity recognition.
package pii

// Category identifies the kind of sensitive data a match represents.
type Category string

const (
	CategoryEmail        Category = "email"
	CategoryPhone        Category = "phone"
	CategorySSN          Category = "ssn"
	CategoryCreditCard   Category = "credit_card"
	CategoryIPAddress    Category = "ip_address"
	CategoryURL          Category = "url"
	CategoryDateOfBirth  Category = "date_of_birth"
	CategoryPerson       Category = "person"
	CategoryOrganization Category = "organization"
	CategoryLocation     Category = "location"
	CategoryMoney        Category = "money"
)

// Source records which detection stage produced a match. Pattern matches are
// deterministic; entity matches are heuristic.
type Source string

const (
	SourcePattern Source = "pattern"
	SourceEntity  Source = "entity"
)

// Match is one detected span of sensitive data. Offsets are half-open byte
// offsets into the scanned text: 0 <= Start < End <= len(text).
//
// A finalized match list (as returned by Detector.Detect) contains no
// overlapping spans and is sorted by Start ascending.
type Match struct {
	Start      int      `json:"start"`
	End        int      `json:"end"`
	Text       string   `json:"text"`
	Category   Category `json:"category"`
	Confidence float64  `json:"confidence"`
	Source     Source   `json:"source"`
}

// Overlaps reports whether two spans share at least one character.
func (m Match) Overlaps(other Match) bool {
	return m.Start < other.End && other.Start < m.End
}

// Entity is a labeled span produced by an entity recognizer, before its label
// has been filtered against the PII-relevant label set.
type Entity struct {
	Start int
	End   int
	Text  string
	Label string
}
