package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	apperrors "slotkeeper/pkg/errors"
)

const DateLayout = "2006-01-02"

// QueryParams reads typed query parameters and remembers the first failure,
// so handlers can read every parameter and check Err once.
type QueryParams struct {
	values map[string][]string
	err    error
}

func NewQueryParams(r *http.Request) *QueryParams {
	return &QueryParams{values: r.URL.Query()}
}

func (q *QueryParams) Err() error {
	return q.err
}

func (q *QueryParams) get(name string) string {
	if v, ok := q.values[name]; ok && len(v) > 0 {
		return strings.TrimSpace(v[0])
	}
	return ""
}

func (q *QueryParams) fail(err error) {
	if q.err == nil {
		q.err = err
	}
}

func (q *QueryParams) String(name string, required bool) string {
	v := q.get(name)
	if v == "" && required {
		q.fail(apperrors.InvalidInput("missing required parameter: " + name))
	}
	return v
}

// Time parses an RFC 3339 timestamp and normalizes it to UTC.
func (q *QueryParams) Time(name string, required bool) time.Time {
	v := q.String(name, required)
	if v == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		q.fail(apperrors.InvalidInput("invalid " + name + " parameter, expected RFC3339: " + v))
		return time.Time{}
	}
	return t.UTC()
}

// Date validates a YYYY-MM-DD value and returns it unchanged.
func (q *QueryParams) Date(name string, required bool) string {
	v := q.String(name, required)
	if v == "" {
		return ""
	}
	if _, err := time.Parse(DateLayout, v); err != nil {
		q.fail(apperrors.InvalidInput("invalid " + name + " parameter, expected YYYY-MM-DD: " + v))
		return ""
	}
	return v
}

func (q *QueryParams) Int(name string, fallback int) int {
	v := q.get(name)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		q.fail(apperrors.InvalidInput("invalid " + name + " parameter: " + v))
		return fallback
	}
	return n
}
