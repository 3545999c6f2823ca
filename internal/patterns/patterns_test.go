package patterns

import "testing"

func TestDetectEmpty(t *testing.T) {
	ind := Detect("")
	if ind.ReversalDensity != 0 || ind.TranspositionDensity != 0 ||
		ind.WordRarity != 0 || ind.SentenceVariance != 0 {
		t.Errorf("expected all zeros for empty input, got %+v", ind)
	}
}

func TestReversalDensity(t *testing.T) {
	// "bed" and "quip" contain mirror-image letters, "ran" and "low" do not.
	ind := Detect("bed quip ran low")
	if ind.ReversalDensity != 0.5 {
		t.Errorf("expected reversal density 0.5, got %f", ind.ReversalDensity)
	}
}

func TestTranspositionDensity(t *testing.T) {
	// Only words of four or more letters count; "burn" and "eight"
	// contain transposition-prone clusters, "salt" does not.
	ind := Detect("burn eight salt to it")
	want := 2.0 / 3.0
	if diff := ind.TranspositionDensity - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("expected transposition density %f, got %f", want, ind.TranspositionDensity)
	}
}

func TestWordRarityOrdering(t *testing.T) {
	simple := Detect("the cat sat on the mat")
	complex := Detect("contraindication anticoagulant administration")

	if simple.WordRarity >= complex.WordRarity {
		t.Errorf("expected polysyllabic text to score rarer: simple=%f complex=%f",
			simple.WordRarity, complex.WordRarity)
	}
}

func TestSentenceVariance(t *testing.T) {
	uniform := Detect("One two three. Four five six. Seven eight nine.")
	if uniform.SentenceVariance != 0 {
		t.Errorf("expected zero variance for uniform sentences, got %f", uniform.SentenceVariance)
	}

	uneven := Detect("Go. This one sentence stretches on for a considerable number of words indeed.")
	if uneven.SentenceVariance <= 0 {
		t.Errorf("expected positive variance for uneven sentences, got %f", uneven.SentenceVariance)
	}

	single := Detect("Just one sentence here.")
	if single.SentenceVariance != 0 {
		t.Errorf("expected zero variance for a single sentence, got %f", single.SentenceVariance)
	}
}

func TestIndicatorsInRange(t *testing.T) {
	ind := Detect("Warning: discontinue immediately and consult your physician if palpitations persist or worsen.")

	for name, v := range map[string]float64{
		"reversal":      ind.ReversalDensity,
		"transposition": ind.TranspositionDensity,
		"rarity":        ind.WordRarity,
		"variance":      ind.SentenceVariance,
	} {
		if v < 0 || v > 1 {
			t.Errorf("%s indicator out of [0,1]: %f", name, v)
		}
	}

	composite := ind.Composite()
	if composite < 0 || composite > 1 {
		t.Errorf("composite out of [0,1]: %f", composite)
	}
}

func TestCountSyllables(t *testing.T) {
	tests := []struct {
		word     string
		expected int
	}{
		{"cat", 1},
		{"table", 1},
		{"medicine", 3},
		{"contraindication", 5},
		{"a", 1},
		{"rhythm", 1},
	}

	for _, tt := range tests {
		t.Run(tt.word, func(t *testing.T) {
			if got := countSyllables(tt.word); got != tt.expected {
				t.Errorf("countSyllables(%q) = %d, want %d", tt.word, got, tt.expected)
			}
		})
	}
}
