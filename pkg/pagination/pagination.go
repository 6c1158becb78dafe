package pagination

import (
	"fmt"
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

// Params holds offset pagination parameters extracted from a request.
type Params struct {
	Skip  int `json:"skip"`
	Limit int `json:"limit"`
}

// Default returns the parameters used when a request names none.
func Default() Params {
	return Params{Skip: 0, Limit: DefaultLimit}
}

// Validate enforces skip >= 0 and 1 <= limit <= MaxLimit.
func (p Params) Validate() error {
	if p.Skip < 0 {
		return fmt.Errorf("skip must be >= 0, got %d", p.Skip)
	}
	if p.Limit < 1 || p.Limit > MaxLimit {
		return fmt.Errorf("limit must be between 1 and %d, got %d", MaxLimit, p.Limit)
	}
	return nil
}

// FromContext extracts skip/limit from the echo context. Missing values take
// their defaults; malformed or out-of-range values are reported as an error
// rather than clamped.
func FromContext(c echo.Context) (Params, error) {
	p := Default()

	if raw := c.QueryParam("skip"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return p, fmt.Errorf("skip must be an integer: %q", raw)
		}
		p.Skip = v
	}
	if raw := c.QueryParam("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return p, fmt.Errorf("limit must be an integer: %q", raw)
		}
		p.Limit = v
	}

	if err := p.Validate(); err != nil {
		return p, err
	}
	return p, nil
}

// Response wraps a paginated API response.
type Response struct {
	Data    interface{} `json:"data"`
	Total   int         `json:"total"`
	Skip    int         `json:"skip"`
	Limit   int         `json:"limit"`
	HasMore bool        `json:"has_more"`
}

func NewResponse(data interface{}, total int, p Params) *Response {
	return &Response{
		Data:    data,
		Total:   total,
		Skip:    p.Skip,
		Limit:   p.Limit,
		HasMore: p.Skip+p.Limit < total,
	}
}

// HasNext returns true if there are more results after the current page.
func (p Params) HasNext(total int) bool {
	return p.Skip+p.Limit < total
}

// Next returns the parameters for the following page.
func (p Params) Next() Params {
	return Params{Skip: p.Skip + p.Limit, Limit: p.Limit}
}

// Window applies the params to an in-memory slice length and returns the
// [start, end) bounds to slice with.
func (p Params) Window(n int) (int, int) {
	start := p.Skip
	if start < 0 {
		start = 0
	}
	if start > n {
		start = n
	}
	end := start + p.Limit
	if end > n {
		end = n
	}
	return start, end
}
