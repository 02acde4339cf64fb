package srs

import "math"

// minRecallGrowth is the smallest stability multiplier applied on a
// successful grade; same-day Hard reviews would otherwise shrink stability.
const minRecallGrowth = 1.05

// algo holds precomputed constants derived from the 21 FSRS parameters.
type algo struct {
	w      [21]float64
	decay  float64 // -w[20]
	factor float64 // 0.9^(1/decay) - 1
}

// newAlgo creates an algo with precomputed decay and factor.
func newAlgo(p [21]float64) algo {
	decay := -p[20]
	factor := math.Pow(0.9, 1.0/decay) - 1.0
	return algo{w: p, decay: decay, factor: factor}
}

// retrievability computes R(t, S) = (1 + FACTOR * t / S) ^ DECAY.
func (a *algo) retrievability(elapsedDays, stability float64) float64 {
	if stability <= 0 {
		return 0
	}
	return math.Pow(1+a.factor*elapsedDays/stability, a.decay)
}

// initStability returns S₀(G) = clamp_s(w[G-1]).
func (a *algo) initStability(g Grade) float64 {
	return clampS(a.w[g-1])
}

// initDifficulty returns D₀(G) = w[4] - e^(w[5] * (G - 1)) + 1.
func (a *algo) initDifficulty(g Grade, clamp bool) float64 {
	d := a.w[4] - math.Exp(a.w[5]*float64(g-1)) + 1
	if clamp {
		return clampD(d)
	}
	return d
}

// nextInterval computes I(r, S) = round((S / FACTOR) * (r^(1/DECAY) - 1)),
// clamped to [1, maxIvl].
func (a *algo) nextInterval(stability, retention float64, maxIvl int) int {
	ivl := stability / a.factor * (math.Pow(retention, 1.0/a.decay) - 1)
	rounded := int(math.Round(ivl))
	if rounded < 1 {
		rounded = 1
	}
	if rounded > maxIvl {
		rounded = maxIvl
	}
	return rounded
}

// shortTermStability computes the stability for a review on the same day
// as the previous one.
// SInc = e^(w[17] * (G - 3 + w[18])) * S^(-w[19])
func (a *algo) shortTermStability(stability float64, g Grade) float64 {
	sInc := math.Exp(a.w[17]*(float64(g)-3+a.w[18])) * math.Pow(stability, -a.w[19])
	if g == Good || g == Easy {
		sInc = math.Max(sInc, 1.0)
	}
	return clampS(stability * sInc)
}

// nextDifficulty applies linear damping and mean reversion towards D₀(Easy).
func (a *algo) nextDifficulty(difficulty float64, g Grade) float64 {
	deltaD := -a.w[6] * (float64(g) - 3)
	dPrime := difficulty + (10-difficulty)*deltaD/9
	d0Easy := a.initDifficulty(Easy, false)
	return clampD(a.w[7]*d0Easy + (1-a.w[7])*dPrime)
}

// nextStability returns the post-review stability for a card that already
// has memory state. Successful grades never decrease stability.
func (a *algo) nextStability(d, s, elapsedDays float64, g Grade) float64 {
	var next float64
	switch {
	case elapsedDays < 1:
		next = a.shortTermStability(s, g)
	case g == Again:
		next = a.nextForgetStability(d, s, a.retrievability(elapsedDays, s))
	default:
		next = a.nextRecallStability(d, s, a.retrievability(elapsedDays, s), g)
	}
	if g != Again && next <= s {
		next = s * minRecallGrowth
	}
	return clampS(next)
}

// nextRecallStability computes stability after a successful recall.
// S'_r = S * (1 + e^w[8] * (11-D) * S^(-w[9]) * (e^((1-R)*w[10]) - 1) * hardPenalty * easyBonus)
func (a *algo) nextRecallStability(d, s, r float64, g Grade) float64 {
	hardPenalty := 1.0
	if g == Hard {
		hardPenalty = a.w[15]
	}
	easyBonus := 1.0
	if g == Easy {
		easyBonus = a.w[16]
	}
	return s * (1 + math.Exp(a.w[8])*
		(11-d)*
		math.Pow(s, -a.w[9])*
		(math.Exp((1-r)*a.w[10])-1)*
		hardPenalty*easyBonus)
}

// nextForgetStability computes stability after a lapse.
// S'_f = min(w[11] * D^(-w[12]) * ((S+1)^w[13] - 1) * e^((1-R)*w[14]), S / e^(w[17] * w[18]))
func (a *algo) nextForgetStability(d, s, r float64) float64 {
	long := a.w[11] *
		math.Pow(d, -a.w[12]) *
		(math.Pow(s+1, a.w[13]) - 1) *
		math.Exp((1-r)*a.w[14])
	short := s / math.Exp(a.w[17]*a.w[18])
	return math.Min(long, short)
}

// clampS clamps stability to a minimum of 0.001.
func clampS(s float64) float64 {
	return math.Max(s, 0.001)
}

// clampD clamps difficulty to [1, 10].
func clampD(d float64) float64 {
	return math.Min(math.Max(d, 1), 10)
}
