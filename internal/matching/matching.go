// Package matching computes the deterministic job/candidate match score.
package matching

import (
	"math"
	"strings"
)

// DefaultThreshold is the score cutoff above which a candidate is flagged
// for interview.
const DefaultThreshold = 70.0

// Score returns the word-overlap similarity between a job requirements
// summary and a candidate summary on a 0-100 scale, rounded to two decimals.
//
// Both summaries are lower-cased and tokenized on whitespace into word sets;
// the score is |intersection| / |job words| * 100. The denominator is the
// job's word count on purpose: the score measures coverage of the job
// requirements, not a symmetric similarity. An empty job word set scores 0.
func Score(jobSummary, candidateSummary string) float64 {
	jobWords := wordSet(jobSummary)
	if len(jobWords) == 0 {
		return 0.0
	}

	common := 0
	for word := range wordSet(candidateSummary) {
		if _, ok := jobWords[word]; ok {
			common++
		}
	}

	score := float64(common) / float64(len(jobWords)) * 100
	return math.Round(score*100) / 100
}

// Shortlisted reports whether the score meets the threshold.
func Shortlisted(score, threshold float64) bool {
	return score >= threshold
}

func wordSet(s string) map[string]struct{} {
	words := strings.Fields(strings.ToLower(s))
	set := make(map[string]struct{}, len(words))
	for _, word := range words {
		set[word] = struct{}{}
	}

	return set
}
