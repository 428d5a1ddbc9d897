package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"github.com/Unaiigartua/PFG-INF-CORTEX/internal/i18n"
	"github.com/Unaiigartua/PFG-INF-CORTEX/internal/model"
)

type extractResponse struct {
	Entities []model.Entity `json:"entities"`
}

// Extract detects medical entities in text with the model for lang
func (c *Client) Extract(ctx context.Context, text string, lang i18n.Language) ([]model.Entity, error) {
	path := "/extract"
	if lang == i18n.Spanish {
		path = "/extractEs"
	}

	var resp extractResponse
	err := c.do(ctx, request{
		method: http.MethodPost,
		base:   c.medicalURL,
		path:   path,
		json:   map[string]string{"text": text},
	}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Entities, nil
}

// similarItem mirrors the wire format; concept_id arrives as a string or a number
type similarItem struct {
	Term          string          `json:"term"`
	PreferredTerm string          `json:"preferred_term"`
	ConceptID     json.RawMessage `json:"concept_id"`
	Similarity    float64         `json:"similarity"`
	SemanticTag   string          `json:"semantic_tag"`
}

type similarResponse struct {
	Results []similarItem `json:"results"`
}

// Similar returns terminology candidates for term, best first as ranked by the backend
func (c *Client) Similar(ctx context.Context, term string) ([]model.TerminologyMatch, error) {
	var resp similarResponse
	err := c.do(ctx, request{
		method: http.MethodPost,
		base:   c.medicalURL,
		path:   "/similar_db",
		json:   map[string]string{"term": term},
	}, &resp)
	if err != nil {
		return nil, err
	}

	matches := make([]model.TerminologyMatch, 0, len(resp.Results))
	for _, r := range resp.Results {
		code, ok := conceptID(r.ConceptID)
		if !ok {
			c.log.Debug().Str("term", r.Term).RawJSON("concept_id", nonEmpty(r.ConceptID)).Msg("Skipping candidate without a concept id")
			continue
		}
		matches = append(matches, model.TerminologyMatch{
			Term:       r.Term,
			Code:       code,
			Label:      r.PreferredTerm,
			Category:   r.SemanticTag,
			Similarity: r.Similarity,
		})
	}
	return matches, nil
}

// conceptID decodes a JSON string or number. Null, empty and other JSON
// types yield ok == false.
func conceptID(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "", false
	}

	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil || s == "" {
			return "", false
		}
		return s, true
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", false
	}
	return n.String(), true
}

func nonEmpty(raw json.RawMessage) json.RawMessage {
	if len(bytes.TrimSpace(raw)) == 0 {
		return json.RawMessage("null")
	}
	return raw
}
