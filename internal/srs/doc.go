// Package srs implements the review scheduler used to decide when a passage
// should be presented to a learner again.
//
// The scheduler follows the FSRS-6 memory model at day granularity: every
// graded attempt updates a card's stability and difficulty, and the next
// interval is the number of days until predicted recall falls to the target
// retention. All functions in this package are pure; the same inputs always
// produce the same card, including the fuzz jitter.
//
// Basic usage:
//
//	s, err := srs.NewScheduler(srs.Config{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	grade, _ := srs.MapToGrade(83)
//	res, err := s.Schedule(srs.NewCard(), grade, time.Now())
package srs
