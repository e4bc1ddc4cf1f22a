package supabase

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/okian/locapi/internal/domain/model"
)

// Select reads every column of the rows in table matching all filters.
func (c *Client) Select(ctx context.Context, table string, filters ...model.Filter) ([]model.Record, error) {
	q := filterQuery(filters)
	q.Set("select", "*")

	var rows []model.Record
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   tablePath(table),
		query:  q,
		bearer: c.accessToken(ctx),
		out:    &rows,
	})
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []model.Record{}
	}
	return rows, nil
}

// Insert writes rec into table. Rows come back only with WithReturnRows.
func (c *Client) Insert(ctx context.Context, table string, rec model.Record) ([]model.Record, error) {
	return c.write(ctx, http.MethodPost, table, rec, nil)
}

// Update applies rec to the rows in table matching all filters.
func (c *Client) Update(ctx context.Context, table string, rec model.Record, filters ...model.Filter) ([]model.Record, error) {
	if len(filters) == 0 {
		return nil, ErrNoFilter
	}
	return c.write(ctx, http.MethodPatch, table, rec, filters)
}

// Delete removes the rows in table matching all filters.
func (c *Client) Delete(ctx context.Context, table string, filters ...model.Filter) ([]model.Record, error) {
	if len(filters) == 0 {
		return nil, ErrNoFilter
	}
	return c.write(ctx, http.MethodDelete, table, nil, filters)
}

func (c *Client) write(ctx context.Context, method, table string, rec model.Record, filters []model.Filter) ([]model.Record, error) {
	prefer := "return=minimal"
	var rows []model.Record
	var out any
	if c.returnRows {
		prefer = "return=representation"
		out = &rows
	}

	var body any
	if rec != nil {
		body = rec
	}
	err := c.do(ctx, request{
		method:  method,
		path:    tablePath(table),
		query:   filterQuery(filters),
		body:    body,
		headers: map[string]string{"Prefer": prefer},
		bearer:  c.accessToken(ctx),
		out:     out,
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func tablePath(table string) string {
	return "/rest/v1/" + url.PathEscape(table)
}

func filterQuery(filters []model.Filter) url.Values {
	q := url.Values{}
	for _, f := range filters {
		q.Add(f.Column, fmt.Sprintf("eq.%s", f.Value))
	}
	return q
}
