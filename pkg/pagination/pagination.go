package pagination

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Params is a page window over an ordered listing.
type Params struct {
	Limit  int
	Offset int
}

// FromContext reads limit and offset from the query string. A 1-based page
// parameter is accepted in place of offset.
func FromContext(c echo.Context) Params {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	if offset <= 0 {
		page, _ := strconv.Atoi(c.QueryParam("page"))
		return ForPage(page, limit)
	}
	return Params{Limit: limit, Offset: offset}.normalized()
}

// ForPage builds the window for a 1-based page number.
func ForPage(page, limit int) Params {
	p := Params{Limit: limit}.normalized()
	if page > 1 {
		p.Offset = (page - 1) * p.Limit
	}
	return p
}

func (p Params) normalized() Params {
	switch {
	case p.Limit <= 0:
		p.Limit = DefaultLimit
	case p.Limit > MaxLimit:
		p.Limit = MaxLimit
	}
	p.Offset = max(p.Offset, 0)
	return p
}

// Page returns the 1-based page number of the current offset.
func (p Params) Page() int {
	p = p.normalized()
	return p.Offset/p.Limit + 1
}

// HasNext reports whether results remain after the current page.
func (p Params) HasNext(total int) bool {
	p = p.normalized()
	return p.Offset+p.Limit < total
}

// Window returns the part of items that falls inside p. The result shares
// storage with items.
func Window[T any](items []T, p Params) []T {
	p = p.normalized()
	if p.Offset >= len(items) {
		return []T{}
	}
	return items[p.Offset:min(p.Offset+p.Limit, len(items))]
}

// Response is one page of a listing. Data is never null on the wire.
type Response[T any] struct {
	Data    []T  `json:"data"`
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	Page    int  `json:"page"`
	HasMore bool `json:"has_more"`
}

func NewResponse[T any](data []T, total int, p Params) *Response[T] {
	p = p.normalized()
	if data == nil {
		data = []T{}
	}
	return &Response[T]{
		Data:    data,
		Total:   total,
		Limit:   p.Limit,
		Offset:  p.Offset,
		Page:    p.Page(),
		HasMore: p.HasNext(total),
	}
}
