package model

import (
	"net/url"
	"strconv"
)

// Backend paging bounds for list endpoints.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// PageParams returns the query parameters selecting one page of a list.
func PageParams(page, size int) url.Values {
	v := url.Values{}
	if page > 0 {
		v.Set("page", strconv.Itoa(page))
	}
	if size > 0 {
		v.Set("page_size", strconv.Itoa(size))
	}
	return v
}

// LimitParams asks list endpoints for the newest n rows instead of a page.
func LimitParams(n int) url.Values {
	v := url.Values{}
	v.Set("limit", strconv.Itoa(n))
	return v
}
