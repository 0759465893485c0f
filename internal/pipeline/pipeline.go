// Package pipeline sequences JD extraction, per-candidate CV extraction,
// scoring and the shortlist decision for one run.
//
// The pipeline returns data only: persistence and notifications are invoked
// by the caller with the returned results.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/cv-shortlister/internal/document"
	"github.com/spigell/cv-shortlister/internal/extraction"
	"github.com/spigell/cv-shortlister/internal/matching"
)

var (
	// ErrJobUnusable halts a run before any candidate is processed.
	ErrJobUnusable = errors.New("job description could not be processed")

	// ErrNoCandidates marks a run in which not a single CV produced a result.
	ErrNoCandidates = errors.New("no valid candidates processed")
)

// Extractor is the slice of the extraction service the pipeline uses.
type Extractor interface {
	Job(ctx context.Context, doc document.Document) (*extraction.Job, extraction.Cause)
	Candidate(ctx context.Context, doc document.Document) (*extraction.Candidate, extraction.Cause)
}

// Result is the scored outcome for one candidate. Immutable once computed.
type Result struct {
	Name        string  `json:"name"`
	Email       string  `json:"email"`
	Source      string  `json:"source"`
	Summary     string  `json:"summary"`
	Score       float64 `json:"score"`
	Shortlisted bool    `json:"shortlisted"`
}

// Skip records a candidate document dropped from the batch and why.
type Skip struct {
	Source string           `json:"source"`
	Cause  extraction.Cause `json:"cause"`
}

// Report is the full outcome of one run.
type Report struct {
	RunID    uuid.UUID `json:"run_id"`
	JobTitle string    `json:"job_title"`
	Results  []Result  `json:"results"`
	Skipped  []Skip    `json:"skipped,omitempty"`
}

// Shortlisted returns the results that met the threshold.
func (r *Report) Shortlisted() []Result {
	shortlisted := make([]Result, 0, len(r.Results))
	for _, result := range r.Results {
		if result.Shortlisted {
			shortlisted = append(shortlisted, result)
		}
	}

	return shortlisted
}

// DumpToTmpFile writes the report as indented JSON to a temporary file and
// returns its name.
func (r *Report) DumpToTmpFile() (string, error) {
	file, err := os.CreateTemp("", "cv-shortlister-report-*.json")
	if err != nil {
		return "", err
	}
	defer file.Close()

	pretty, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", err
	}

	if _, err := file.Write(pretty); err != nil {
		return "", err
	}

	return file.Name(), nil
}

// Pipeline runs one shortlisting batch. Safe for a single Run call at a time;
// no state survives between runs.
type Pipeline struct {
	extractor Extractor
	threshold float64
	workers   int
	logger    *zap.Logger
}

// New builds a pipeline. A non-positive threshold selects the default (70.0);
// workers caps concurrent CV extractions and defaults to sequential
// processing, which keeps a run inside the provider's shared rate limit.
func New(extractor Extractor, threshold float64, workers int, log *zap.Logger) *Pipeline {
	if threshold <= 0 {
		threshold = matching.DefaultThreshold
	}
	if workers <= 0 {
		workers = 1
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Pipeline{
		extractor: extractor,
		threshold: threshold,
		workers:   workers,
		logger:    log,
	}
}

// Run extracts the job, then every candidate independently, scores each
// usable candidate and decides the shortlist. A failing candidate never
// affects another; a failing job aborts the run before any candidate is
// touched.
func (p *Pipeline) Run(ctx context.Context, jd document.Document, cvs []document.Document) (*Report, error) {
	job, cause := p.extractor.Job(ctx, jd)
	if cause != extraction.CauseNone {
		return nil, fmt.Errorf("%w: %s", ErrJobUnusable, cause)
	}
	if !job.Usable() {
		return nil, fmt.Errorf("%w: %s", ErrJobUnusable, extraction.CauseIncompleteRecord)
	}

	report := &Report{
		RunID:    uuid.New(),
		JobTitle: job.Title,
	}

	p.logger.Info("job description processed",
		zap.String("run_id", report.RunID.String()),
		zap.String("job_title", job.Title),
		zap.Int("candidates", len(cvs)),
	)

	var mu sync.Mutex
	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(p.workers)

	for _, cv := range cvs {
		group.Go(func() error {
			result, skip := p.processCandidate(ctx, job, cv)

			mu.Lock()
			defer mu.Unlock()
			if skip != nil {
				report.Skipped = append(report.Skipped, *skip)
				return nil
			}
			report.Results = append(report.Results, *result)
			return nil
		})
	}

	// Workers never return an error; candidate failures are recorded as skips.
	_ = group.Wait()

	if len(report.Results) == 0 {
		return nil, fmt.Errorf("%w: %d documents skipped", ErrNoCandidates, len(report.Skipped))
	}

	// Ordering is irrelevant to correctness; sort for display.
	slices.SortFunc(report.Results, func(a, b Result) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		default:
			return 0
		}
	})

	p.logger.Info("run completed",
		zap.String("run_id", report.RunID.String()),
		zap.Int("scored", len(report.Results)),
		zap.Int("skipped", len(report.Skipped)),
		zap.Int("shortlisted", len(report.Shortlisted())),
	)

	return report, nil
}

func (p *Pipeline) processCandidate(ctx context.Context, job *extraction.Job, cv document.Document) (*Result, *Skip) {
	candidate, cause := p.extractor.Candidate(ctx, cv)
	if cause != extraction.CauseNone {
		p.logger.Warn("skipping candidate",
			zap.String("document", cv.Name),
			zap.String("cause", string(cause)),
		)
		return nil, &Skip{Source: cv.Name, Cause: cause}
	}

	if !candidate.Usable() {
		p.logger.Warn("skipping candidate with incomplete record",
			zap.String("document", cv.Name),
		)
		return nil, &Skip{Source: cv.Name, Cause: extraction.CauseIncompleteRecord}
	}

	score := matching.Score(job.Summary, candidate.Summary)

	result := &Result{
		Name:        candidate.Name,
		Email:       candidate.Email,
		Source:      cv.Name,
		Summary:     candidate.Summary,
		Score:       score,
		Shortlisted: matching.Shortlisted(score, p.threshold),
	}

	p.logger.Info("candidate scored",
		zap.String("document", cv.Name),
		zap.String("name", result.Name),
		zap.Float64("score", result.Score),
		zap.Bool("shortlisted", result.Shortlisted),
	)

	return result, nil
}
