package textstats

import (
	"math"
	"reflect"
	"testing"
)

func TestWords(t *testing.T) {
	got := Words("It was the best of times, it wasn't the WORST… 1999")
	want := []string{"it", "was", "the", "best", "of", "times", "it", "wasn't", "the", "worst"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Words = %v, want %v", got, want)
	}
	if Words("  \n\t ") != nil {
		t.Fatal("blank input should yield no words")
	}
}

func TestSentences(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"One. Two.", []string{"One.", "Two."}},
		{"Wait... what?!  Fine", []string{"Wait...", "what?!", "Fine"}},
		{"He said \"Go.\"\nThen left.", []string{"He said \"Go.\"", "Then left."}},
		{"...", []string{}},
		{"", []string{}},
	}
	for _, tc := range cases {
		if got := Sentences(tc.in); !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("Sentences(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestJaccard(t *testing.T) {
	cases := []struct {
		a, b string
		want float64
	}{
		{"the fog", "the fog", 1},
		{"The fog.", "fog THE", 1},
		{"fog river", "fog marsh", 1.0 / 3},
		{"fog", "rain", 0},
		{"", "", 0},
		{"fog", "", 0},
	}
	for _, tc := range cases {
		if got := Jaccard(tc.a, tc.b); math.Abs(got-tc.want) > 1e-9 {
			t.Fatalf("Jaccard(%q, %q) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestMTLD(t *testing.T) {
	if MTLD(nil) != 0 {
		t.Fatal("empty input should yield 0")
	}
	if got := MTLD([]string{"a", "b", "c"}); got != 3 {
		t.Fatalf("all-distinct short run = %v, want 3", got)
	}
	if got := MTLD([]string{"a", "a", "a", "a"}); got != 2 {
		t.Fatalf("repetitive run = %v, want 2", got)
	}

	diverse := Words("Fog everywhere. Fog up the river, where it flows among green aits and meadows.")
	repetitive := Words("Fog fog fog. Fog fog the fog, fog fog fog fog fog fog fog fog.")
	if MTLD(diverse) <= MTLD(repetitive) {
		t.Fatalf("diverse text should score higher: %v vs %v", MTLD(diverse), MTLD(repetitive))
	}
}

func TestMeasure(t *testing.T) {
	m := Measure("One. Two three.")
	if m.SentenceLengthAvg != 1.5 || m.SentenceLengthVariance != 0.25 {
		t.Fatalf("sentence stats = %+v", m)
	}
	if m.MTLD != 3 {
		t.Fatalf("mtld = %v", m.MTLD)
	}
	if m.DependencyDistance != 0 || m.AdjVerbRatio != 0 {
		t.Fatalf("parser-only metrics must stay zero: %+v", m)
	}

	if z := Measure("   "); z.SentenceLengthAvg != 0 || z.MTLD != 0 {
		t.Fatalf("blank text should measure zero: %+v", z)
	}
}
