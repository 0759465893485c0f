// Package extraction turns raw JD and CV documents into structured records
// using the AI gateway.
//
// Both entry points deliberately never return a Go error: every internal
// failure degrades to a nil record with an explicit cause, so one bad
// document cannot abort a batch.
package extraction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"

	"github.com/spigell/cv-shortlister/internal/ai"
	"github.com/spigell/cv-shortlister/internal/document"
	"github.com/spigell/cv-shortlister/internal/jsonrepair"
	"github.com/spigell/cv-shortlister/internal/logger"
)

const (
	// DefaultMaxPromptRunes bounds how much document text is embedded into
	// a prompt.
	DefaultMaxPromptRunes = 4000

	defaultMaxLogLength = 200
)

const candidatePrompt = "Extract the following from this CV in a structured format: " +
	"Name, Email, Skills, Experience, Education, Certifications. " +
	"Return as a valid JSON object without markdown wrappers. " +
	"Ensure all string values use double quotes and escape any single quotes within strings. Example: " +
	`{"name": "John Doe", "email": "john.doe@example.com", "summary": "Skills: Python, Django; Experience: 3 years as a developer; Education: B.Tech in CS; Certifications: AWS Certified Developer"} ` +
	"CV text: %s"

const jobPrompt = "Summarize this job description into a concise string of key requirements and extract the job title. " +
	"Return as a valid JSON object without markdown wrappers. " +
	"Ensure all string values use double quotes and escape any single quotes within strings. Example: " +
	`{"job_title": "Software Engineer", "summary": "Skills: Python, Django; Experience: 3+ years; Qualifications: B.Tech; Responsibilities: Develop web applications"} ` +
	"Job description: %s"

// Cause explains why an extraction produced no usable record.
type Cause string

const (
	CauseNone              Cause = ""
	CauseNoText            Cause = "no_text"
	CauseBadCredentials    Cause = "bad_credentials"
	CauseQuotaExceeded     Cause = "quota_exceeded"
	CauseProviderError     Cause = "provider_error"
	CauseMalformedResponse Cause = "malformed_response"
	CauseIncompleteRecord  Cause = "incomplete_record"
)

// Candidate is the structured record extracted from a CV.
type Candidate struct {
	Name    string `json:"name" mapstructure:"name"`
	Email   string `json:"email" mapstructure:"email"`
	Summary string `json:"summary" mapstructure:"summary"`
}

// Usable reports whether the record carries the fields required downstream.
func (c *Candidate) Usable() bool {
	return c != nil && strings.TrimSpace(c.Name) != "" && strings.TrimSpace(c.Email) != ""
}

// Job is the structured record extracted from a job description.
type Job struct {
	Title   string `json:"job_title" mapstructure:"job_title"`
	Summary string `json:"summary" mapstructure:"summary"`
}

// Usable reports whether the summary is present; without it no candidate can
// be scored.
func (j *Job) Usable() bool {
	return j != nil && strings.TrimSpace(j.Summary) != ""
}

// Service orchestrates text extraction, the AI gateway and response repair.
type Service struct {
	gateway        ai.Gateway
	maxPromptRunes int
	maxLogLen      int
	logger         *zap.Logger
}

// NewService builds an extraction service. Non-positive limits select the
// defaults (4000 prompt runes, 200 logged runes).
func NewService(gateway ai.Gateway, maxPromptRunes, maxLogLength int, log *zap.Logger) *Service {
	if maxPromptRunes <= 0 {
		maxPromptRunes = DefaultMaxPromptRunes
	}
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Service{
		gateway:        gateway,
		maxPromptRunes: maxPromptRunes,
		maxLogLen:      maxLogLength,
		logger:         log,
	}
}

// Candidate extracts a structured candidate record from a CV document. A nil
// record is always accompanied by a cause. The returned record may still miss
// required fields; the caller validates usability.
func (s *Service) Candidate(ctx context.Context, doc document.Document) (*Candidate, Cause) {
	log := s.logger.With(zap.String("document", doc.Name))

	text, cause := s.text(doc, log)
	if cause != CauseNone {
		return nil, cause
	}

	// Independent fallback in case the model omits the email field.
	fallbackEmail := document.FindEmail(text)

	raw, cause := s.invoke(ctx, fmt.Sprintf(candidatePrompt, s.truncate(text)), log)
	if cause != CauseNone {
		return nil, cause
	}

	var candidate Candidate
	if !s.parse(raw, &candidate, log) {
		return nil, CauseMalformedResponse
	}

	if candidate.Email == "" && fallbackEmail != "" {
		log.Debug("backfilling candidate email from raw text", zap.String("email", fallbackEmail))
		candidate.Email = fallbackEmail
	}

	return &candidate, CauseNone
}

// Job extracts a structured job record from a JD document. Same shape as
// Candidate without the email step.
func (s *Service) Job(ctx context.Context, doc document.Document) (*Job, Cause) {
	log := s.logger.With(zap.String("document", doc.Name))

	text, cause := s.text(doc, log)
	if cause != CauseNone {
		return nil, cause
	}

	raw, cause := s.invoke(ctx, fmt.Sprintf(jobPrompt, s.truncate(text)), log)
	if cause != CauseNone {
		return nil, cause
	}

	var job Job
	if !s.parse(raw, &job, log) {
		return nil, CauseMalformedResponse
	}

	return &job, CauseNone
}

func (s *Service) text(doc document.Document, log *zap.Logger) (string, Cause) {
	text, err := document.Text(doc)
	if err != nil {
		if !errors.Is(err, document.ErrNoText) {
			log.Warn("text extraction failed", zap.Error(err))
		} else {
			log.Warn("no text extracted from document")
		}
		return "", CauseNoText
	}

	log.Debug("extracted document text",
		zap.Int("length", len(text)),
		zap.String("preview", logger.TruncateForLog(text, s.maxLogLen)),
	)

	return text, CauseNone
}

func (s *Service) invoke(ctx context.Context, prompt string, log *zap.Logger) (string, Cause) {
	if !s.gateway.ValidateKey(ctx) {
		log.Error("api key validation failed, skipping extraction")
		return "", CauseBadCredentials
	}

	raw, err := s.gateway.GenerateContent(ctx, prompt)
	if err != nil {
		if errors.Is(err, ai.ErrQuotaExceeded) {
			log.Error("quota exceeded after retries", zap.Error(err))
			return "", CauseQuotaExceeded
		}
		log.Error("generation failed", zap.Error(err))
		return "", CauseProviderError
	}

	log.Debug("model response", zap.String("preview", logger.TruncateForLog(raw, s.maxLogLen)))
	return raw, CauseNone
}

// parse repairs near-JSON output and decodes it into the record. The
// intermediate map keeps decoding tolerant of extra keys and mistyped values.
func (s *Service) parse(raw string, out any, log *zap.Logger) bool {
	repaired := jsonrepair.Repair(raw)

	var data map[string]any
	if err := json.Unmarshal([]byte(repaired), &data); err != nil {
		log.Error("model returned invalid json",
			zap.Error(err),
			zap.String("raw", logger.TruncateForLog(raw, s.maxLogLen)),
			zap.String("repaired", logger.TruncateForLog(repaired, s.maxLogLen)),
		)
		return false
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		log.Error("building record decoder", zap.Error(err))
		return false
	}

	if err := decoder.Decode(data); err != nil {
		log.Error("decoding model response into record",
			zap.Error(err),
			zap.String("repaired", logger.TruncateForLog(repaired, s.maxLogLen)),
		)
		return false
	}

	return true
}

func (s *Service) truncate(text string) string {
	runes := []rune(text)
	if len(runes) <= s.maxPromptRunes {
		return text
	}

	return string(runes[:s.maxPromptRunes])
}
