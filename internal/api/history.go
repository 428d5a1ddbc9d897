package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Unaiigartua/PFG-INF-CORTEX/internal/model"
)

// History lists the caller's past queries, newest first
func (c *Client) History(ctx context.Context, skip, limit int) ([]model.QuerySummary, error) {
	q := url.Values{}
	if skip > 0 {
		q.Set("skip", strconv.Itoa(skip))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	var items []model.QuerySummary
	err := c.do(ctx, request{
		method: http.MethodGet,
		base:   c.baseURL,
		path:   "/queries/history",
		query:  q,
		auth:   true,
	}, &items)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []model.QuerySummary{}
	}
	return items, nil
}

// Query returns one history record
func (c *Client) Query(ctx context.Context, id int) (*model.QueryDetail, error) {
	var detail model.QueryDetail
	err := c.do(ctx, request{
		method: http.MethodGet,
		base:   c.baseURL,
		path:   "/queries/" + strconv.Itoa(id),
		auth:   true,
	}, &detail)
	if err != nil {
		return nil, err
	}
	return &detail, nil
}

// DeleteQuery removes one history record
func (c *Client) DeleteQuery(ctx context.Context, id int) error {
	return c.do(ctx, request{
		method: http.MethodDelete,
		base:   c.baseURL,
		path:   "/queries/" + strconv.Itoa(id),
		auth:   true,
	}, nil)
}

// LogQuery records a submitted question in the caller's history
func (c *Client) LogQuery(ctx context.Context, text string) error {
	return c.do(ctx, request{
		method: http.MethodPost,
		base:   c.baseURL,
		path:   "/queries/",
		json:   map[string]string{"query_text": text},
		auth:   true,
	}, nil)
}
