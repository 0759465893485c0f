package extraction

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spigell/cv-shortlister/internal/ai"
	"github.com/spigell/cv-shortlister/internal/document"
)

type fakeGateway struct {
	keyValid   bool
	response   string
	err        error
	lastPrompt string
	calls      int
}

func (f *fakeGateway) ValidateKey(context.Context) bool { return f.keyValid }

func (f *fakeGateway) ResolveModel(context.Context) string { return "fake-model" }

func (f *fakeGateway) GenerateContent(_ context.Context, prompt string) (string, error) {
	f.calls++
	f.lastPrompt = prompt
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func cvDoc(text string) document.Document {
	return document.Document{Name: "cv.txt", Data: []byte(text)}
}

func TestCandidateHappyPath(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{
		keyValid: true,
		response: `{"name": "John Doe", "email": "john@example.com", "summary": "Skills: Python, Django"}`,
	}
	svc := NewService(gw, 0, 0, zap.NewNop())

	candidate, cause := svc.Candidate(context.Background(), cvDoc("John Doe\njohn@example.com\nPython developer"))
	require.Equal(t, CauseNone, cause)
	require.NotNil(t, candidate)

	assert.Equal(t, "John Doe", candidate.Name)
	assert.Equal(t, "john@example.com", candidate.Email)
	assert.Equal(t, "Skills: Python, Django", candidate.Summary)
	assert.True(t, candidate.Usable())
	assert.Contains(t, gw.lastPrompt, "Python developer")
}

func TestCandidateFencedSingleQuotedResponse(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{
		keyValid: true,
		response: "```json\n{'name': 'Jane Roe', 'email': 'jane@example.com', 'summary': 'Go, Kubernetes'}\n```",
	}
	svc := NewService(gw, 0, 0, zap.NewNop())

	candidate, cause := svc.Candidate(context.Background(), cvDoc("Jane Roe resume text"))
	require.Equal(t, CauseNone, cause)
	assert.Equal(t, "Jane Roe", candidate.Name)
	assert.Equal(t, "jane@example.com", candidate.Email)
}

func TestCandidateEmailBackfilledFromRawText(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{
		keyValid: true,
		response: `{"name": "John Doe", "summary": "Python"}`,
	}
	svc := NewService(gw, 0, 0, zap.NewNop())

	candidate, cause := svc.Candidate(context.Background(), cvDoc("John Doe, reach me at john.doe@example.com"))
	require.Equal(t, CauseNone, cause)
	assert.Equal(t, "john.doe@example.com", candidate.Email)
	assert.True(t, candidate.Usable())
}

func TestCandidateBlankDocument(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{keyValid: true}
	svc := NewService(gw, 0, 0, zap.NewNop())

	candidate, cause := svc.Candidate(context.Background(), cvDoc("   \n\n"))
	assert.Nil(t, candidate)
	assert.Equal(t, CauseNoText, cause)
	assert.Zero(t, gw.calls, "gateway must not be invoked for empty documents")
}

func TestCandidateInvalidCredentials(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{keyValid: false}
	svc := NewService(gw, 0, 0, zap.NewNop())

	candidate, cause := svc.Candidate(context.Background(), cvDoc("some resume"))
	assert.Nil(t, candidate)
	assert.Equal(t, CauseBadCredentials, cause)
	assert.Zero(t, gw.calls)
}

func TestCandidateQuotaExhausted(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{keyValid: true, err: fmt.Errorf("%w: 3 attempts", ai.ErrQuotaExceeded)}
	svc := NewService(gw, 0, 0, zap.NewNop())

	candidate, cause := svc.Candidate(context.Background(), cvDoc("some resume"))
	assert.Nil(t, candidate)
	assert.Equal(t, CauseQuotaExceeded, cause)
}

func TestCandidateProviderError(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{keyValid: true, err: errors.New("backend unavailable")}
	svc := NewService(gw, 0, 0, zap.NewNop())

	candidate, cause := svc.Candidate(context.Background(), cvDoc("some resume"))
	assert.Nil(t, candidate)
	assert.Equal(t, CauseProviderError, cause)
}

func TestCandidateMalformedResponse(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{keyValid: true, response: "I could not parse this resume, sorry."}
	svc := NewService(gw, 0, 0, zap.NewNop())

	candidate, cause := svc.Candidate(context.Background(), cvDoc("some resume"))
	assert.Nil(t, candidate)
	assert.Equal(t, CauseMalformedResponse, cause)
}

func TestCandidateIncompleteRecordStillReturned(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{keyValid: true, response: `{"summary": "Python"}`}
	svc := NewService(gw, 0, 0, zap.NewNop())

	candidate, cause := svc.Candidate(context.Background(), cvDoc("anonymous resume"))
	require.Equal(t, CauseNone, cause)
	require.NotNil(t, candidate)
	assert.False(t, candidate.Usable())
}

func TestCandidatePromptTruncation(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{
		keyValid: true,
		response: `{"name": "A", "email": "a@example.com", "summary": "x"}`,
	}
	svc := NewService(gw, 100, 0, zap.NewNop())

	long := strings.Repeat("word ", 200)
	_, cause := svc.Candidate(context.Background(), cvDoc(long))
	require.Equal(t, CauseNone, cause)

	// The prompt embeds at most 100 runes of document text.
	assert.Less(t, len(gw.lastPrompt), len(candidatePrompt)+120)
}

func TestJobHappyPath(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{
		keyValid: true,
		response: `{"job_title": "Software Engineer", "summary": "Skills: Python, Django; Experience: 3+ years"}`,
	}
	svc := NewService(gw, 0, 0, zap.NewNop())

	job, cause := svc.Job(context.Background(), document.Document{Name: "jd.txt", Data: []byte("We are hiring a software engineer")})
	require.Equal(t, CauseNone, cause)
	require.NotNil(t, job)

	assert.Equal(t, "Software Engineer", job.Title)
	assert.True(t, job.Usable())
}

func TestJobMissingSummaryUnusable(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{keyValid: true, response: `{"job_title": "Engineer"}`}
	svc := NewService(gw, 0, 0, zap.NewNop())

	job, cause := svc.Job(context.Background(), document.Document{Name: "jd.txt", Data: []byte("vague posting")})
	require.Equal(t, CauseNone, cause)
	assert.False(t, job.Usable())
}

func TestUsableNilReceivers(t *testing.T) {
	t.Parallel()

	var candidate *Candidate
	var job *Job

	assert.False(t, candidate.Usable())
	assert.False(t, job.Usable())
}
