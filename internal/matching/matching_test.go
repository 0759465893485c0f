package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScore(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		job       string
		candidate string
		expect    float64
	}{
		{
			name:      "identical summaries",
			job:       "python django",
			candidate: "python django",
			expect:    100.0,
		},
		{
			name:      "disjoint summaries",
			job:       "java ruby",
			candidate: "python",
			expect:    0.0,
		},
		{
			name:      "empty job summary",
			job:       "",
			candidate: "python django",
			expect:    0.0,
		},
		{
			name:      "empty candidate summary",
			job:       "python django",
			candidate: "",
			expect:    0.0,
		},
		{
			name:      "case insensitive",
			job:       "Python Django",
			candidate: "python DJANGO",
			expect:    100.0,
		},
		{
			name:      "partial overlap rounded",
			job:       "python django postgres",
			candidate: "python",
			expect:    33.33,
		},
		{
			name:      "duplicate words collapse into a set",
			job:       "go go go sql",
			candidate: "go",
			expect:    50.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.expect, Score(tt.job, tt.candidate), 0.001)
		})
	}
}

// The denominator is the job's word count, so swapping arguments changes the
// result whenever the word-set sizes differ.
func TestScoreIsAsymmetric(t *testing.T) {
	t.Parallel()

	job := "python django"
	candidate := "python django rest celery"

	forward := Score(job, candidate)
	backward := Score(candidate, job)

	assert.InDelta(t, 100.0, forward, 0.001)
	assert.InDelta(t, 50.0, backward, 0.001)
	assert.NotEqual(t, forward, backward)
}

func TestScoreWordOverlapEndToEnd(t *testing.T) {
	t.Parallel()

	job := "Python, 3 years, B.Tech"
	candidate := "Python, Django, 3 years experience"

	assert.Greater(t, Score(job, candidate), 0.0)
}

func TestShortlistedBoundary(t *testing.T) {
	t.Parallel()

	assert.False(t, Shortlisted(69.99, DefaultThreshold))
	assert.True(t, Shortlisted(70.0, DefaultThreshold))
	assert.True(t, Shortlisted(70.01, DefaultThreshold))
}
