package report

import (
	"time"
)

// Failure describes a statement or a row that could not be applied.
type Failure struct {
	Key    string `yaml:"key" dynamodbav:"Key"`
	Reason string `yaml:"reason" dynamodbav:"Reason"`
}

// StageResult aggregates per-row outcomes of one pipeline stage.
//
// Every row ends up in exactly one of the counters: an attempted row either succeeded or failed,
// a skipped row was filtered out before any statement was issued.
type StageResult struct {
	Stage string `yaml:"stage" dynamodbav:"Stage"`

	Attempted int `yaml:"attempted" dynamodbav:"Attempted"`
	Succeeded int `yaml:"succeeded" dynamodbav:"Succeeded"`
	Failed    int `yaml:"failed" dynamodbav:"Failed"`
	Skipped   int `yaml:"skipped" dynamodbav:"Skipped"`

	// Failures keeps at most maxFailures first failures, the rest are only counted.
	Failures []Failure `yaml:"failures,omitempty" dynamodbav:"Failures,omitempty"`

	StartedAt  time.Time `yaml:"started_at" dynamodbav:"StartedAt"`
	FinishedAt time.Time `yaml:"finished_at" dynamodbav:"FinishedAt"`

	maxFailures int
}

func NewStage(name string, maxFailures int) *StageResult {
	return &StageResult{
		Stage:       name,
		StartedAt:   time.Now(),
		maxFailures: maxFailures,
	}
}

func (s *StageResult) Succeed() {
	s.Attempted++
	s.Succeeded++
}

func (s *StageResult) Fail(key string, err error) {
	s.Attempted++
	s.Failed++

	if len(s.Failures) < s.maxFailures {
		s.Failures = append(s.Failures, Failure{Key: key, Reason: err.Error()})
	}
}

// Skip counts a row that was filtered out without an insert attempt.
func (s *StageResult) Skip() {
	s.Skipped++
}

// Record counts the outcome of one attempted statement.
func (s *StageResult) Record(key string, err error) {
	if err != nil {
		s.Fail(key, err)
		return
	}

	s.Succeed()
}

func (s *StageResult) Finish() {
	s.FinishedAt = time.Now()
}

func (s *StageResult) Duration() time.Duration {
	if s.FinishedAt.IsZero() {
		return time.Since(s.StartedAt)
	}

	return s.FinishedAt.Sub(s.StartedAt)
}

// OK reports whether every attempted row succeeded.
func (s *StageResult) OK() bool {
	return s.Failed == 0
}
