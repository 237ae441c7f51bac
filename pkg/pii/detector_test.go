package pii

import (
	"strings"
	"testing"
)

// fakeRecognizer returns a fixed entity list regardless of input.
type fakeRecognizer struct {
	entities []Entity
}

func (f *fakeRecognizer) Recognize(text string) []Entity {
	return f.entities
}

// TestDetector_Patterns verifies that each built-in pattern finds its
// category in realistic text.
func TestDetector_Patterns(t *testing.T) {
	detector := NewDetector()

	tests := []struct {
		name         string
		text         string
		wantCategory Category
		wantText     string
	}{
		{
			name:         "email address",
			text:         "reach me at john.doe@example.com today",
			wantCategory: CategoryEmail,
			wantText:     "john.doe@example.com",
		},
		{
			name:         "social security number",
			text:         "my ssn is 123-45-6789",
			wantCategory: CategorySSN,
			wantText:     "123-45-6789",
		},
		{
			name:         "credit card number",
			text:         "card: 4111 1111 1111 1111",
			wantCategory: CategoryCreditCard,
			wantText:     "4111 1111 1111 1111",
		},
		{
			name:         "phone number",
			text:         "call +1 (555) 123-4567 anytime",
			wantCategory: CategoryPhone,
			wantText:     "+1 (555) 123-4567",
		},
		{
			name:         "ip address",
			text:         "server 10.0.0.1 is down",
			wantCategory: CategoryIPAddress,
			wantText:     "10.0.0.1",
		},
		{
			name:         "url",
			text:         "see https://example.com/docs please",
			wantCategory: CategoryURL,
			wantText:     "https://example.com/docs",
		},
		{
			name:         "date of birth",
			text:         "born 01/15/1990",
			wantCategory: CategoryDateOfBirth,
			wantText:     "01/15/1990",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matches := detector.Detect(tt.text)
			if len(matches) != 1 {
				t.Fatalf("Detect(%q) returned %d matches, want 1: %+v", tt.text, len(matches), matches)
			}
			m := matches[0]
			if m.Category != tt.wantCategory {
				t.Errorf("category = %q, want %q", m.Category, tt.wantCategory)
			}
			if m.Text != tt.wantText {
				t.Errorf("text = %q, want %q", m.Text, tt.wantText)
			}
			if m.Confidence != PatternConfidence {
				t.Errorf("confidence = %v, want %v", m.Confidence, PatternConfidence)
			}
			if m.Source != SourcePattern {
				t.Errorf("source = %q, want %q", m.Source, SourcePattern)
			}
			if got := tt.text[m.Start:m.End]; got != m.Text {
				t.Errorf("offsets [%d:%d] select %q, want %q", m.Start, m.End, got, m.Text)
			}
		})
	}
}

// TestDetector_SortedNonOverlapping verifies the two structural invariants
// of a finalized match list.
func TestDetector_SortedNonOverlapping(t *testing.T) {
	detector := NewDetector()

	text := "email a@bcd.com or ssn 123-45-6789 or host 192.168.1.1"
	matches := detector.Detect(text)
	if len(matches) != 3 {
		t.Fatalf("Detect returned %d matches, want 3: %+v", len(matches), matches)
	}

	for i := 1; i < len(matches); i++ {
		if matches[i-1].Start > matches[i].Start {
			t.Errorf("matches not sorted by start: %+v before %+v", matches[i-1], matches[i])
		}
		if matches[i-1].End > matches[i].Start {
			t.Errorf("matches overlap: %+v and %+v", matches[i-1], matches[i])
		}
	}
}

// TestDetector_PatternBeatsEntity verifies that an entity match overlapping
// a pattern match never displaces it: replacement requires strictly greater
// confidence.
func TestDetector_PatternBeatsEntity(t *testing.T) {
	text := "mail bob@corp.com now"
	start := strings.Index(text, "bob@corp.com")
	recognizer := &fakeRecognizer{entities: []Entity{
		{Start: start, End: start + len("bob@corp.com"), Text: "bob@corp.com", Label: "PERSON"},
	}}

	detector := NewDetector(WithRecognizer(recognizer))
	matches := detector.Detect(text)
	if len(matches) != 1 {
		t.Fatalf("Detect returned %d matches, want 1: %+v", len(matches), matches)
	}
	if matches[0].Category != CategoryEmail {
		t.Errorf("category = %q, want %q", matches[0].Category, CategoryEmail)
	}
	if matches[0].Source != SourcePattern {
		t.Errorf("source = %q, want %q", matches[0].Source, SourcePattern)
	}
}

// TestDetector_EntityMatch verifies that a non-overlapping entity match is
// kept at the heuristic confidence with its mapped category.
func TestDetector_EntityMatch(t *testing.T) {
	text := "please escalate this ticket"
	recognizer := &fakeRecognizer{entities: []Entity{
		{Start: 7, End: 15, Text: "escalate", Label: "PERSON"},
	}}

	detector := NewDetector(WithRecognizer(recognizer))
	matches := detector.Detect(text)
	if len(matches) != 1 {
		t.Fatalf("Detect returned %d matches, want 1: %+v", len(matches), matches)
	}
	if matches[0].Category != CategoryPerson {
		t.Errorf("category = %q, want %q", matches[0].Category, CategoryPerson)
	}
	if matches[0].Confidence != EntityConfidence {
		t.Errorf("confidence = %v, want %v", matches[0].Confidence, EntityConfidence)
	}
}

// TestDetector_UnknownLabelIgnored verifies that entity labels outside the
// PII-relevant set are dropped.
func TestDetector_UnknownLabelIgnored(t *testing.T) {
	recognizer := &fakeRecognizer{entities: []Entity{
		{Start: 0, End: 6, Text: "Widget", Label: "PRODUCT"},
	}}

	detector := NewDetector(WithRecognizer(recognizer))
	if matches := detector.Detect("Widget assembly notes"); len(matches) != 0 {
		t.Errorf("Detect returned %+v, want none", matches)
	}
}

// TestDetector_EmptyText verifies that empty input yields no matches.
func TestDetector_EmptyText(t *testing.T) {
	if matches := NewDetector().Detect(""); matches != nil {
		t.Errorf("Detect(\"\") = %+v, want nil", matches)
	}
}

// TestDetector_HasResidualPII verifies the post-masking leak check: only
// matches above the heuristic confidence count as residual.
func TestDetector_HasResidualPII(t *testing.T) {
	detector := NewDetector()

	tests := []struct {
		name   string
		masked string
		want   bool
	}{
		{
			name:   "fully masked",
			masked: "my ssn is ***-**-****",
			want:   false,
		},
		{
			name:   "pattern match survives",
			masked: "my ssn is ***-**-**** but backup is 987-65-4321",
			want:   true,
		},
		{
			name:   "entity-level match does not count",
			masked: "I am John Smith",
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := detector.HasResidualPII("original", tt.masked); got != tt.want {
				t.Errorf("HasResidualPII(%q) = %v, want %v", tt.masked, got, tt.want)
			}
		})
	}
}
