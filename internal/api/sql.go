package api

import (
	"context"
	"net/http"

	"github.com/Unaiigartua/PFG-INF-CORTEX/internal/model"
)

type generateRequest struct {
	Question     string           `json:"question"`
	MedicalTerms []model.TermPair `json:"medical_terms"`
}

// GenerateSQL asks the backend to turn question into SQL using the confirmed terms
func (c *Client) GenerateSQL(ctx context.Context, question string, terms []model.TermPair) (*model.SQLResult, error) {
	if terms == nil {
		terms = []model.TermPair{}
	}

	var result model.SQLResult
	err := c.do(ctx, request{
		method: http.MethodPost,
		base:   c.baseURL,
		path:   "/sql-generation/",
		json:   generateRequest{Question: question, MedicalTerms: terms},
		auth:   true,
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

type validateRequest struct {
	SQL      string `json:"sql_query"`
	Question string `json:"question"`
}

// ValidateSQL checks syntax and executability of sql against the clinical database
func (c *Client) ValidateSQL(ctx context.Context, sql, question string) (*model.Validation, error) {
	var v model.Validation
	err := c.do(ctx, request{
		method: http.MethodPost,
		base:   c.baseURL,
		path:   "/sql-generation/validate",
		json:   validateRequest{SQL: sql, Question: question},
		auth:   true,
	}, &v)
	if err != nil {
		return nil, err
	}
	if v.SQL == "" {
		v.SQL = sql
	}
	return &v, nil
}

// Health is the SQL generation service status
type Health struct {
	Status  string         `json:"status"`
	Details map[string]any `json:"-"`
}

// Health reports whether the SQL generation service and its dependencies are up
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var raw map[string]any
	err := c.do(ctx, request{
		method: http.MethodGet,
		base:   c.baseURL,
		path:   "/sql-generation/health",
	}, &raw)
	if err != nil {
		return nil, err
	}

	h := &Health{Details: raw}
	if s, ok := raw["status"].(string); ok {
		h.Status = s
	}
	delete(h.Details, "status")
	return h, nil
}
