// Package textstats computes surface stylometry for passages and attempts:
// sentence lengths, lexical diversity (MTLD) and vocabulary overlap.
//
// Tokenization is Unicode-aware and deterministic. Features that need a
// syntactic parser (dependency distance, part-of-speech ratios) are not
// computed here and are left at zero.
package textstats

import (
	"math"
	"regexp"
	"strings"

	"github.com/Mts-Potter/literary-forge/internal/domain"
)

// mtldThreshold is the type-token ratio at which an MTLD factor closes.
const mtldThreshold = 0.72

var (
	wordRE     = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*\p{N}*`)
	sentenceRE = regexp.MustCompile(`[^.!?…]+(?:[.!?…]+["'”’)\]]*|$)`)
)

// Words returns the lower-cased word tokens of s in order.
func Words(s string) []string {
	return wordRE.FindAllString(strings.ToLower(s), -1)
}

// Sentences splits s on terminal punctuation. Fragments without words are
// dropped.
func Sentences(s string) []string {
	s = normalizeWhitespace(s)
	chunks := sentenceRE.FindAllString(s, -1)
	out := make([]string, 0, len(chunks))
	for _, c := range chunks {
		c = strings.TrimSpace(c)
		if c != "" && wordRE.MatchString(c) {
			out = append(out, c)
		}
	}
	return out
}

// Vocabulary returns the set of distinct word tokens in s.
func Vocabulary(s string) map[string]struct{} {
	words := Words(s)
	if len(words) == 0 {
		return nil
	}
	out := make(map[string]struct{}, len(words))
	for _, w := range words {
		out[w] = struct{}{}
	}
	return out
}

// Jaccard returns |A ∩ B| / |A ∪ B| over the vocabularies of a and b.
// Two empty texts score 0.
func Jaccard(a, b string) float64 {
	va, vb := Vocabulary(a), Vocabulary(b)
	over := overlap(va, vb)
	union := len(va) + len(vb) - over
	if union <= 0 {
		return 0
	}
	return float64(over) / float64(union)
}

// Measure computes the style metrics derivable from the text alone.
func Measure(s string) domain.StyleMetrics {
	var m domain.StyleMetrics
	sents := Sentences(s)
	if len(sents) == 0 {
		return m
	}

	lengths := make([]float64, len(sents))
	var sum float64
	for i, sent := range sents {
		lengths[i] = float64(len(Words(sent)))
		sum += lengths[i]
	}
	mean := sum / float64(len(lengths))
	var sq float64
	for _, l := range lengths {
		sq += (l - mean) * (l - mean)
	}

	m.SentenceLengthAvg = round2(mean)
	m.SentenceLengthVariance = round2(sq / float64(len(lengths)))
	m.MTLD = round2(MTLD(Words(s)))
	return m
}

// MTLD is the measure of textual lexical diversity: the mean length of
// word runs that keep the type-token ratio above the threshold, averaged
// over a forward and a backward pass. Empty input yields 0.
func MTLD(words []string) float64 {
	if len(words) == 0 {
		return 0
	}
	fwd := mtldPass(words)
	rev := make([]string, len(words))
	for i, w := range words {
		rev[len(words)-1-i] = w
	}
	return (fwd + mtldPass(rev)) / 2
}

func mtldPass(words []string) float64 {
	var factors float64
	types := make(map[string]struct{})
	tokens := 0
	ttr := 1.0
	for _, w := range words {
		tokens++
		types[w] = struct{}{}
		ttr = float64(len(types)) / float64(tokens)
		if ttr <= mtldThreshold {
			factors++
			types = make(map[string]struct{})
			tokens = 0
			ttr = 1.0
		}
	}
	if tokens > 0 {
		factors += (1 - ttr) / (1 - mtldThreshold)
	}
	if factors == 0 {
		return float64(len(words))
	}
	return float64(len(words)) / factors
}

func overlap(a, b map[string]struct{}) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	if len(a) > len(b) {
		a, b = b, a
	}
	n := 0
	for k := range a {
		if _, ok := b[k]; ok {
			n++
		}
	}
	return n
}

func normalizeWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevSpace := false
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\r' || r == '\n' {
			if !prevSpace {
				b.WriteByte(' ')
				prevSpace = true
			}
			continue
		}
		prevSpace = false
		b.WriteRune(r)
	}
	return b.String()
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
