package crm

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Query builds OData system query options. Filters added with Filter are joined with "and".
type Query struct {
	selects []string
	filters []string
	orderBy []string
	top     int
}

func NewQuery() *Query {
	return &Query{}
}

func (q *Query) Select(fields ...string) *Query {
	q.selects = append(q.selects, fields...)
	return q
}

func (q *Query) Filter(expr string) *Query {
	if expr != "" {
		q.filters = append(q.filters, expr)
	}
	return q
}

func (q *Query) OrderBy(field string, desc bool) *Query {
	if desc {
		field += " desc"
	} else {
		field += " asc"
	}
	q.orderBy = append(q.orderBy, field)
	return q
}

func (q *Query) Top(n int) *Query {
	q.top = n
	return q
}

// Encode renders the options as a query string. Spaces are encoded as %20, which the
// platform requires inside $filter.
func (q *Query) Encode() string {
	if q == nil {
		return ""
	}

	var parts []string
	add := func(key, value string) {
		parts = append(parts, key+"="+strings.ReplaceAll(url.QueryEscape(value), "+", "%20"))
	}

	if len(q.selects) > 0 {
		add("$select", strings.Join(q.selects, ","))
	}
	if len(q.filters) > 0 {
		add("$filter", strings.Join(q.filters, " and "))
	}
	if len(q.orderBy) > 0 {
		add("$orderby", strings.Join(q.orderBy, ","))
	}
	if q.top > 0 {
		add("$top", strconv.Itoa(q.top))
	}

	return strings.Join(parts, "&")
}

// Quote renders s as an OData string literal.
func Quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// Eq is "field eq 'value'".
func Eq(field, value string) string {
	return field + " eq " + Quote(value)
}

// EqID compares a lookup or key column against a GUID literal, which is not quoted.
// Anything that is not a GUID falls back to a quoted string.
func EqID(field, id string) string {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return Eq(field, id)
	}
	return field + " eq " + parsed.String()
}

// Date renders the calendar date of t as an OData date literal.
func Date(t time.Time) string {
	return t.Format("2006-01-02")
}

// Or joins expressions with "or" inside parentheses.
func Or(exprs ...string) string {
	if len(exprs) == 0 {
		return ""
	}
	return "(" + strings.Join(exprs, " or ") + ")"
}
