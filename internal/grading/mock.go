package grading

import (
	"context"
	"math"

	"github.com/Mts-Potter/literary-forge/internal/domain"
	"github.com/Mts-Potter/literary-forge/internal/textstats"
)

// MockGrader is a deterministic, offline grader for local development.
// Scores compare surface stylometry of the attempt with the original:
// sentence count, mean sentence length, lexical diversity and shared
// vocabulary.
type MockGrader struct{}

// NewMock returns a MockGrader.
func NewMock() *MockGrader { return &MockGrader{} }

// Grade implements Grader.
func (MockGrader) Grade(ctx context.Context, req Request) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	orig, cand := textstats.Measure(req.OriginalText), textstats.Measure(req.CandidateText)
	sentenceScore := closeness(float64(len(textstats.Sentences(req.CandidateText))), float64(len(textstats.Sentences(req.OriginalText))))
	lengthScore := closeness(cand.SentenceLengthAvg, orig.SentenceLengthAvg)
	diversityScore := closeness(cand.MTLD, orig.MTLD)
	shared := 100 * textstats.Jaccard(req.CandidateText, req.OriginalText)

	var sub domain.SubScores
	sub.Structure = round1(sentenceScore)
	sub.Vocabulary = round1(0.7*diversityScore + 0.3*shared)
	sub.Rhythm = round1(lengthScore)
	sub.Tone = round1((sentenceScore + lengthScore + diversityScore) / 3)

	acc := round1((sub.Structure + sub.Vocabulary + sub.Rhythm + sub.Tone) / 4)
	return Result{
		Accuracy:    acc,
		SubScores:   sub,
		Feedback:    "Offline grading: scores reflect sentence shape and word variety only.",
		Suggestions: suggestions(orig, cand),
	}, nil
}

func suggestions(orig, cand domain.StyleMetrics) []string {
	var out []string
	switch {
	case cand.SentenceLengthAvg > orig.SentenceLengthAvg*1.25:
		out = append(out, "Shorten your sentences toward the original's length.")
	case cand.SentenceLengthAvg < orig.SentenceLengthAvg*0.75:
		out = append(out, "Let your sentences run longer, as the original does.")
	}
	if cand.MTLD < orig.MTLD*0.75 {
		out = append(out, "Vary your word choice more.")
	}
	if len(out) == 0 {
		out = append(out, "Keep the same cadence on the next passage.")
	}
	return out
}

// closeness returns 100 for equal values, falling linearly to 0 at a 2x ratio.
func closeness(a, b float64) float64 {
	if a == 0 && b == 0 {
		return 100
	}
	if a == 0 || b == 0 {
		return 0
	}
	ratio := math.Max(a, b) / math.Min(a, b)
	return math.Max(0, 100-(ratio-1)*100)
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
