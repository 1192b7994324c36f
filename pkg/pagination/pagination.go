package pagination

import (
	"math"
	"net/url"
	"strconv"
	"strings"
)

const (
	DefaultPage = 1
	DefaultSize = 20
	MinSize     = 1
	MaxSize     = 100

	// MaxPage keeps (page-1)*size within a 32-bit signed offset.
	MaxPage = math.MaxInt32 / MaxSize
)

// Params holds normalized pagination parameters.
type Params struct {
	Page   int `json:"page"`
	Size   int `json:"size"`
	Offset int `json:"-"`
}

// DefaultParams returns page 1 of 20.
func DefaultParams() Params {
	return Clamp(DefaultPage, DefaultSize)
}

// Clamp forces page into [1, MaxPage] and size into [MinSize, MaxSize] and
// computes the offset.
func Clamp(page, size int) Params {
	if page < 1 {
		page = 1
	}
	if page > MaxPage {
		page = MaxPage
	}
	if size < MinSize {
		size = MinSize
	}
	if size > MaxSize {
		size = MaxSize
	}
	return Params{
		Page:   page,
		Size:   size,
		Offset: (page - 1) * size,
	}
}

// FromValues reads "page" and "size" from a query string. Absent or non-numeric
// values fall back to the defaults; numeric values are clamped.
func FromValues(q url.Values) Params {
	page := parseInt(q.Get("page"), DefaultPage)
	size := parseInt(q.Get("size"), DefaultSize)
	return Clamp(page, size)
}

func parseInt(raw string, fallback int) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
