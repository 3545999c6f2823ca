package lexicon

import (
	"strings"
	"testing"
)

func TestFindTermsOrdering(t *testing.T) {
	idx := New()

	text := "Check your dosage before you consult a physician about side effects."
	matches := idx.FindTerms(text)

	if len(matches) < 3 {
		t.Fatalf("expected at least 3 matches, got %d", len(matches))
	}

	// First occurrence in the text comes first in the result.
	if matches[0].Term != "dosage" {
		t.Errorf("expected first match to be dosage, got %q", matches[0].Term)
	}

	lastPos := -1
	for _, m := range matches {
		pos := strings.Index(strings.ToLower(text), m.Term)
		if pos < lastPos {
			t.Errorf("match %q out of source order", m.Term)
		}
		lastPos = pos
	}
}

func TestFindTermsDeduplicates(t *testing.T) {
	idx := New()

	matches := idx.FindTerms("Take the dose now. Another dose later. One more dose at night.")

	count := 0
	for _, m := range matches {
		if m.Term == "dose" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("expected one match for repeated term, got %d", count)
	}
}

func TestFindTermsCaseInsensitive(t *testing.T) {
	idx := New()

	matches := idx.FindTerms("DOSAGE instructions: consult your Physician.")

	found := map[string]bool{}
	for _, m := range matches {
		found[m.Term] = true
	}
	if !found["dosage"] || !found["physician"] {
		t.Errorf("expected case-insensitive matches, got %v", matches)
	}
}

func TestFindTermsWordBoundary(t *testing.T) {
	idx := NewWithEntries(map[string]Entry{
		"dose": {Definition: "one amount of medicine", Weight: 0.4},
	})

	if matches := idx.FindTerms("The patient dozed off, overdosed on nothing."); len(matches) != 0 {
		t.Errorf("expected no matches inside larger words, got %v", matches)
	}
	if matches := idx.FindTerms("Take one dose."); len(matches) != 1 {
		t.Errorf("expected exactly one match, got %v", matches)
	}
}

func TestFindTermsEmpty(t *testing.T) {
	idx := New()
	if matches := idx.FindTerms(""); matches != nil {
		t.Errorf("expected nil for empty input, got %v", matches)
	}
}

func TestGloss(t *testing.T) {
	idx := New()

	gloss := idx.Gloss("hypertension")
	if gloss != "hypertension (high blood pressure)" {
		t.Errorf("unexpected gloss: %q", gloss)
	}

	// Unknown terms pass through untouched.
	if got := idx.Gloss("widget"); got != "widget" {
		t.Errorf("expected passthrough for unknown term, got %q", got)
	}
}

func TestLookup(t *testing.T) {
	idx := New()

	entry, ok := idx.Lookup("tablets")
	if !ok {
		t.Fatal("expected tablets to be in the lexicon")
	}
	if entry.Definition == "" {
		t.Error("definition should not be empty")
	}
	if entry.Weight <= 0 || entry.Weight > 1 {
		t.Errorf("weight out of range: %f", entry.Weight)
	}

	if _, ok := idx.Lookup("widget"); ok {
		t.Error("expected lookup miss for unknown term")
	}
}

func TestMultiWordTerm(t *testing.T) {
	idx := New()

	matches := idx.FindTerms("Watch for side effects after the first week.")

	found := false
	for _, m := range matches {
		if m.Term == "side effects" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected multi-word term match, got %v", matches)
	}
}
