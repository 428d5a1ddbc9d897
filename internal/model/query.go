package model

import (
	"strings"
	"time"
)

// User is the authenticated account as reported by the backend
type User struct {
	ID       int    `json:"id" yaml:"id"`
	Email    string `json:"email" yaml:"email"`
	IsActive bool   `json:"is_active" yaml:"is_active"`
}

// SimilarExample is the reference question/SQL pair the generator used
type SimilarExample struct {
	Question string  `json:"question"`
	SQL      string  `json:"sql"`
	Score    float64 `json:"score"`
}

// SQLResult is the outcome of a SQL generation request
type SQLResult struct {
	Question       string          `json:"question"`
	SQL            string          `json:"generated_sql"`
	IsExecutable   bool            `json:"is_executable"`
	ErrorMessage   string          `json:"error_message,omitempty"`
	AttemptsCount  int             `json:"attempts_count"`
	SimilarExample *SimilarExample `json:"similar_example,omitempty"`
}

// Outcome classifies a SQL validation
type Outcome string

const (
	OutcomeInvalid       Outcome = "invalid"        // Syntax error
	OutcomeNotExecutable Outcome = "not_executable" // Parses but fails against the database
	OutcomeExecutable    Outcome = "executable"     // Parses and runs
)

// Validation is the outcome of a "check SQL" request
type Validation struct {
	SQL            string   `json:"sql_query"`
	IsValid        bool     `json:"is_valid"`
	IsExecutable   bool     `json:"is_executable"`
	SyntaxError    string   `json:"syntax_error,omitempty"`
	ExecutionError string   `json:"execution_error,omitempty"`
	ExecutionTime  *float64 `json:"execution_time,omitempty"` // seconds
	RowCount       *int     `json:"row_count,omitempty"`
}

// Outcome derives the tri-state result from the validity flags
func (v Validation) Outcome() Outcome {
	switch {
	case !v.IsValid:
		return OutcomeInvalid
	case !v.IsExecutable:
		return OutcomeNotExecutable
	default:
		return OutcomeExecutable
	}
}

// Detail returns the most relevant error text, if any
func (v Validation) Detail() string {
	if v.SyntaxError != "" {
		return v.SyntaxError
	}
	return v.ExecutionError
}

// QuerySummary is one entry of the history list
type QuerySummary struct {
	ID            int       `json:"id"`
	Title         string    `json:"title,omitempty"`
	Question      string    `json:"question"`
	IsExecutable  bool      `json:"is_executable"`
	AttemptsCount int       `json:"attempts_count"`
	Timestamp     Timestamp `json:"timestamp"`
}

// QueryDetail is a full history record
type QueryDetail struct {
	QuerySummary
	MedicalTerms   []string `json:"medical_terms,omitempty"`
	GeneratedSQL   string   `json:"generated_sql,omitempty"`
	ErrorMessage   string   `json:"error_message,omitempty"`
	ProcessingTime *float64 `json:"processing_time,omitempty"` // seconds
}

// Timestamp accepts both RFC 3339 and the zone-less ISO format the backend emits
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// UnmarshalJSON parses the first layout that matches; zone-less values are UTC
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	if raw == "" || raw == "null" {
		t.Time = time.Time{}
		return nil
	}

	var lastErr error
	for _, layout := range timestampLayouts {
		parsed, err := time.Parse(layout, raw)
		if err == nil {
			t.Time = parsed.UTC()
			return nil
		}
		lastErr = err
	}
	return lastErr
}

// MarshalJSON always emits RFC 3339
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + t.UTC().Format(time.RFC3339) + `"`), nil
}
