package model

import (
	"time"

	"github.com/google/uuid"
)

// ArticleStatus is the publication state of an article.
type ArticleStatus string

const (
	ArticleStatusDraft     ArticleStatus = "draft"
	ArticleStatusPublished ArticleStatus = "published"
)

// Article is a piece of editorial content split into ordered pages.
type Article struct {
	Base
	Title       string        `json:"title" db:"title"`
	Slug        string        `json:"slug" db:"slug"`
	Summary     string        `json:"summary" db:"summary"`
	Language    string        `json:"language" db:"language"`
	Status      ArticleStatus `json:"status" db:"status"`
	PublishedAt *time.Time    `json:"published_at,omitempty" db:"published_at"`
	PageCount   int           `json:"page_count" db:"page_count"`
}

// ArticlePage is one page of an article's paginated content.
type ArticlePage struct {
	ID         uuid.UUID `json:"id" db:"id"`
	ArticleID  uuid.UUID `json:"article_id" db:"article_id"`
	PageNumber int       `json:"page_number" db:"page_number"`
	Body       string    `json:"body" db:"body"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// ArticleFilters narrows article listings.
type ArticleFilters struct {
	Status   ArticleStatus `form:"status"`
	Language string        `form:"language"`
	Search   string        `form:"search"`
	Pagination
}
