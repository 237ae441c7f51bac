package pii

import "testing"

// TestHeuristicRecognizer verifies the cue-anchored entity rules.
func TestHeuristicRecognizer(t *testing.T) {
	recognizer := NewHeuristicRecognizer()

	tests := []struct {
		name      string
		text      string
		wantLabel string
		wantText  string
	}{
		{
			name:      "honorific person",
			text:      "Please ask Dr. Alice Johnson tomorrow",
			wantLabel: "PERSON",
			wantText:  "Alice Johnson",
		},
		{
			name:      "introduction person",
			text:      "hello, my name is Jane Doe",
			wantLabel: "PERSON",
			wantText:  "Jane Doe",
		},
		{
			name:      "organization with corporate suffix",
			text:      "Acme Corp announced a new product",
			wantLabel: "ORG",
			wantText:  "Acme Corp",
		},
		{
			name:      "location after preposition",
			text:      "she flew from New York yesterday",
			wantLabel: "GPE",
			wantText:  "New York",
		},
		{
			name:      "currency symbol amount",
			text:      "the invoice totals $1,234.56 this month",
			wantLabel: "MONEY",
			wantText:  "$1,234.56",
		},
		{
			name:      "currency word amount",
			text:      "it costs 1200 dollars per seat",
			wantLabel: "MONEY",
			wantText:  "1200 dollars",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entities := recognizer.Recognize(tt.text)
			if len(entities) == 0 {
				t.Fatalf("Recognize(%q) found nothing", tt.text)
			}

			found := false
			for _, ent := range entities {
				if ent.Label == tt.wantLabel && ent.Text == tt.wantText {
					found = true
					if got := tt.text[ent.Start:ent.End]; got != ent.Text {
						t.Errorf("offsets [%d:%d] select %q, want %q", ent.Start, ent.End, got, ent.Text)
					}
				}
			}
			if !found {
				t.Errorf("Recognize(%q) = %+v, want %s %q", tt.text, entities, tt.wantLabel, tt.wantText)
			}
		})
	}
}

// TestHeuristicRecognizer_CleanText verifies that text without cues yields
// no entities.
func TestHeuristicRecognizer_CleanText(t *testing.T) {
	if entities := NewHeuristicRecognizer().Recognize("nothing interesting happened today"); len(entities) != 0 {
		t.Errorf("Recognize returned %+v, want none", entities)
	}
}
