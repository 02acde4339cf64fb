package grading

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Mts-Potter/literary-forge/internal/domain"
)

const systemPrompt = "You are a literary critic evaluating stylistic imitation exercises. " +
	"You answer with a single JSON object and nothing else."

// buildPrompt renders the user message for one grading request.
func buildPrompt(req Request) string {
	var b strings.Builder
	b.WriteString("ORIGINAL TEXT:\n")
	b.WriteString(req.OriginalText)
	b.WriteString("\n\nUSER ATTEMPT:\n")
	b.WriteString(req.CandidateText)
	b.WriteString("\n\nTARGET STYLE METRICS:\n")

	m := req.Metrics
	if m.SentenceLengthAvg == 0 && m.DependencyDistance == 0 && m.AdjVerbRatio == 0 && m.SentenceLengthVariance == 0 {
		b.WriteString("No metrics available\n")
	} else {
		fmt.Fprintf(&b, "- Avg Sentence Length: %s\n", metric(m.SentenceLengthAvg))
		fmt.Fprintf(&b, "- Dependency Distance: %s\n", metric(m.DependencyDistance))
		fmt.Fprintf(&b, "- Adj/Verb Ratio: %s\n", metric(m.AdjVerbRatio))
		fmt.Fprintf(&b, "- Sentence Variance: %s\n", metric(m.SentenceLengthVariance))
		if m.MTLD > 0 {
			fmt.Fprintf(&b, "- Lexical Diversity (MTLD): %s\n", metric(m.MTLD))
		}
	}

	b.WriteString(`
Evaluate the attempt on these criteria (score each 0-100):
1. Structure: does the sentence rhythm and complexity match the original (parataxis vs. hypotaxis)?
2. Vocabulary: is the word choice appropriate (register, formality, time period)?
3. Rhythm: does the cadence and flow match the original's pace?
4. Tone: is the emotional atmosphere and voice preserved?

Give constructive, specific feedback explaining what works and what does not,
and up to three short suggestions for the next attempt.

Output ONLY this JSON:
{
  "feedback": "...",
  "scores": {"structure": 0-100, "vocabulary": 0-100, "rhythm": 0-100, "tone": 0-100},
  "overall_accuracy": 0-100,
  "suggestions": ["..."]
}`)
	return b.String()
}

func metric(v float64) string {
	if v == 0 {
		return "N/A"
	}
	return fmt.Sprintf("%.2f", v)
}

// parseResult decodes model output into a validated Result. Code fences and
// prose around the JSON object are tolerated.
func parseResult(text string) (Result, error) {
	cleaned := extractJSON(stripCodeFences(text))
	if cleaned == "" {
		return Result{}, fmt.Errorf("%w: no JSON object in response", ErrFormat)
	}

	var w wireResult
	if err := json.Unmarshal([]byte(cleaned), &w); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	res, err := w.result()
	if err != nil {
		return Result{}, err
	}
	if err := res.Validate(); err != nil {
		return Result{}, err
	}
	return res, nil
}

// wireResult mirrors the JSON the model is asked for. Pointers tell a
// missing field apart from an explicit zero.
type wireResult struct {
	Feedback string `json:"feedback"`
	Scores   *struct {
		Structure  *float64 `json:"structure"`
		Vocabulary *float64 `json:"vocabulary"`
		Rhythm     *float64 `json:"rhythm"`
		Tone       *float64 `json:"tone"`
	} `json:"scores"`
	Accuracy    *float64 `json:"overall_accuracy"`
	Suggestions []string `json:"suggestions"`
}

func (w wireResult) result() (Result, error) {
	if w.Accuracy == nil {
		return Result{}, fmt.Errorf("%w: missing overall_accuracy", ErrFormat)
	}
	if w.Scores == nil {
		return Result{}, fmt.Errorf("%w: missing scores", ErrFormat)
	}
	for _, f := range []struct {
		name string
		v    *float64
	}{
		{"structure", w.Scores.Structure},
		{"vocabulary", w.Scores.Vocabulary},
		{"rhythm", w.Scores.Rhythm},
		{"tone", w.Scores.Tone},
	} {
		if f.v == nil {
			return Result{}, fmt.Errorf("%w: missing scores.%s", ErrFormat, f.name)
		}
	}
	return Result{
		Accuracy: *w.Accuracy,
		SubScores: domain.SubScores{
			Structure:  *w.Scores.Structure,
			Vocabulary: *w.Scores.Vocabulary,
			Rhythm:     *w.Scores.Rhythm,
			Tone:       *w.Scores.Tone,
		},
		Feedback:    w.Feedback,
		Suggestions: w.Suggestions,
	}, nil
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```json") {
		s = strings.TrimSpace(strings.TrimPrefix(s, "```json"))
	} else if strings.HasPrefix(s, "```") {
		s = strings.TrimSpace(strings.TrimPrefix(s, "```"))
	}
	if strings.HasSuffix(s, "```") {
		s = strings.TrimSpace(strings.TrimSuffix(s, "```"))
	}
	return s
}

// extractJSON returns the span from the first '{' to the last '}'.
func extractJSON(s string) string {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}
