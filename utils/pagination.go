package utils

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
)

const (
	DefaultPage    = 1
	DefaultPerPage = 15
	MaxPerPage     = 100
	MaxPage        = 100000
)

type PageParams struct {
	Page    int
	PerPage int
}

func (p PageParams) Limit() int  { return p.PerPage }
func (p PageParams) Offset() int { return (p.Page - 1) * p.PerPage }

// ParsePage reads ?page= and ?per_page=, clamping both to sane bounds.
func ParsePage(c *fiber.Ctx) PageParams {
	page := atoiDefault(c.Query("page"), DefaultPage)
	if page < 1 {
		page = DefaultPage
	}
	if page > MaxPage {
		page = MaxPage
	}
	per := atoiDefault(c.Query("per_page"), DefaultPerPage)
	if per < 1 {
		per = DefaultPerPage
	}
	if per > MaxPerPage {
		per = MaxPerPage
	}
	return PageParams{Page: page, PerPage: per}
}

func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return n
}

type PageLinks struct {
	Prev *string `json:"prev"`
	Next *string `json:"next"`
}

type PageMeta struct {
	CurrentPage int   `json:"current_page"`
	From        *int  `json:"from"`
	LastPage    int   `json:"last_page"`
	PerPage     int   `json:"per_page"`
	To          *int  `json:"to"`
	Total       int64 `json:"total"`
}

type Page struct {
	Data  interface{} `json:"data"`
	Links PageLinks   `json:"links"`
	Meta  PageMeta    `json:"meta"`
}

// NewPage builds the list envelope. From and To are 1-based positions and null on an empty page.
func NewPage(c *fiber.Ctx, p PageParams, data interface{}, count int, total int64) Page {
	last := int((total + int64(p.PerPage) - 1) / int64(p.PerPage))
	if last < 1 {
		last = 1
	}

	meta := PageMeta{CurrentPage: p.Page, LastPage: last, PerPage: p.PerPage, Total: total}
	if count == 0 {
		data = []interface{}{}
	} else {
		from := p.Offset() + 1
		to := p.Offset() + count
		meta.From, meta.To = &from, &to
	}

	var links PageLinks
	if p.Page > 1 {
		prev := pageURL(c, p.Page-1, p.PerPage)
		links.Prev = &prev
	}
	if p.Page < last {
		next := pageURL(c, p.Page+1, p.PerPage)
		links.Next = &next
	}
	return Page{Data: data, Links: links, Meta: meta}
}

func pageURL(c *fiber.Ctx, page, perPage int) string {
	return fmt.Sprintf("%s%s?page=%d&per_page=%d", c.BaseURL(), c.Path(), page, perPage)
}
