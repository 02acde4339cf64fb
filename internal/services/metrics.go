package services

import "github.com/prometheus/client_golang/prometheus"

var (
	// submissionsTotal counts Submit calls by outcome
	// (graded, replayed, cancelled, failed).
	submissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forge_submissions_total",
			Help: "Submissions handled, by outcome.",
		},
		[]string{"outcome"},
	)

	// graderCalls counts individual grader attempts by result.
	graderCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forge_grader_calls_total",
			Help: "Grader attempts, by result.",
		},
		[]string{"result"},
	)

	// commitConflicts counts lost compare-and-set races during commit.
	commitConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "forge_commit_conflicts_total",
			Help: "Submission commits that lost a concurrent race.",
		},
	)

	// selectionsTotal counts selector results by kind.
	selectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forge_selections_total",
			Help: "Next-item selections, by kind.",
		},
		[]string{"kind"},
	)
)

func init() {
	prometheus.MustRegister(submissionsTotal, graderCalls, commitConflicts, selectionsTotal)
}
