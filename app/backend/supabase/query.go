package supabase

import (
	"context"
	"net/http"
	"net/url"

	"golang.org/x/oauth2"
)

// Query builds one PostgREST request against a table.
//
//	err := c.From("Task").Select("*").Order("created_at", true).Execute(ctx, &rows)
type Query struct {
	c      *Client
	table  string
	method string
	body   any
	params url.Values
	filter bool
	ret    bool
	single bool
	token  oauth2.TokenSource
}

// From starts a query on table. Without another verb it selects.
func (c *Client) From(table string) *Query {
	return &Query{c: c, table: table, method: http.MethodGet, params: url.Values{}}
}

// Select picks the returned columns. After Insert, Update or Delete it asks
// PostgREST to return the affected rows.
func (q *Query) Select(columns string) *Query {
	if columns == "" {
		columns = "*"
	}
	q.params.Set("select", columns)
	if q.method != http.MethodGet {
		q.ret = true
	}
	return q
}

// Insert adds one row or a slice of rows.
func (q *Query) Insert(v any) *Query {
	q.method = http.MethodPost
	q.body = v
	if q.params.Has("select") {
		q.ret = true
	}
	return q
}

// Update sets the given columns on every row that matches the filters.
func (q *Query) Update(v any) *Query {
	q.method = http.MethodPatch
	q.body = v
	if q.params.Has("select") {
		q.ret = true
	}
	return q
}

// Delete removes every row that matches the filters.
func (q *Query) Delete() *Query {
	q.method = http.MethodDelete
	if q.params.Has("select") {
		q.ret = true
	}
	return q
}

// Eq keeps rows whose column equals value.
func (q *Query) Eq(column, value string) *Query {
	q.params.Add(column, "eq."+value)
	q.filter = true
	return q
}

// Order sorts the result by column.
func (q *Query) Order(column string, ascending bool) *Query {
	dir := "desc"
	if ascending {
		dir = "asc"
	}
	q.params.Add("order", column+"."+dir)
	return q
}

// Single expects exactly one row and decodes it as an object.
func (q *Query) Single() *Query {
	q.single = true
	return q
}

// WithToken runs the query as the owner of the token instead of anon.
func (q *Query) WithToken(ts oauth2.TokenSource) *Query {
	q.token = ts
	return q
}

// Execute sends the query and decodes the rows into into, which may be nil.
func (q *Query) Execute(ctx context.Context, into any) error {
	if (q.method == http.MethodPatch || q.method == http.MethodDelete) && !q.filter {
		return &APIError{StatusCode: http.StatusBadRequest, Code: "missing_filter", Message: "update and delete need a filter"}
	}

	header := http.Header{}
	if q.method != http.MethodGet {
		if q.ret {
			header.Set("Prefer", "return=representation")
		} else {
			header.Set("Prefer", "return=minimal")
		}
	}
	if q.single {
		header.Set("Accept", "application/vnd.pgrst.object+json")
	}

	return q.c.do(ctx, request{
		method: q.method,
		path:   "/rest/v1/" + url.PathEscape(q.table),
		query:  q.params,
		body:   q.body,
		header: header,
		token:  q.token,
	}, into)
}
