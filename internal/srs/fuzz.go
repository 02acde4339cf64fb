package srs

import (
	"encoding/binary"
	"hash/fnv"
	"math"
	"math/rand"
	"time"
)

type fuzzEntry struct {
	start, end float64
	factor     float64
}

var fuzzRanges = []fuzzEntry{
	{2.5, 7.0, 0.15},
	{7.0, 20.0, 0.10},
	{20.0, math.Inf(1), 0.05},
}

// fuzzDelta computes the fuzz range delta for a given interval.
// delta = 1.0 + Σ(factor * max(min(interval, end) - start, 0))
func fuzzDelta(interval float64) float64 {
	delta := 1.0
	for _, r := range fuzzRanges {
		delta += r.factor * math.Max(math.Min(interval, r.end)-r.start, 0)
	}
	return delta
}

// fuzzSeed derives a seed from the review inputs so that identical
// inputs always produce the same jitter.
func fuzzSeed(reviewTime time.Time, c Card) int64 {
	h := fnv.New64a()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(reviewTime.UnixNano()))
	h.Write(buf[:])
	binary.LittleEndian.PutUint64(buf[:], uint64(c.Reps))
	h.Write(buf[:])
	binary.LittleEndian.PutUint64(buf[:], math.Float64bits(c.Stability))
	h.Write(buf[:])
	binary.LittleEndian.PutUint64(buf[:], math.Float64bits(c.Difficulty))
	h.Write(buf[:])
	return int64(h.Sum64())
}

// applyFuzz spreads the interval inside [ivl-delta, ivl+delta] to prevent
// review clustering. Intervals below 2.5 days are returned unchanged.
func applyFuzz(interval, maxIvl int, rng *rand.Rand) int {
	if float64(interval) < 2.5 {
		return interval
	}

	ivl := float64(interval)
	delta := fuzzDelta(ivl)

	minIvl := max(2, int(math.Round(ivl-delta)))
	maxFuzzIvl := min(int(math.Round(ivl+delta)), maxIvl)
	minIvl = min(minIvl, maxFuzzIvl)

	return minIvl + rng.Intn(maxFuzzIvl-minIvl+1)
}
