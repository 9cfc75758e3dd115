package article

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lettermill/lettermill/internal/model"
	"github.com/lettermill/lettermill/internal/repository"
	"github.com/lettermill/lettermill/pkg/errors"
)

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

type Service interface {
	Create(ctx context.Context, article *model.Article) error
	Get(ctx context.Context, id uuid.UUID) (*model.Article, error)
	GetBySlug(ctx context.Context, slug string) (*model.Article, error)
	Update(ctx context.Context, article *model.Article) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filters *model.ArticleFilters) ([]*model.Article, int, error)
	Publish(ctx context.Context, id uuid.UUID) (*model.Article, error)
	Unpublish(ctx context.Context, id uuid.UUID) (*model.Article, error)
	SavePage(ctx context.Context, articleID uuid.UUID, pageNumber int, body string) (*model.ArticlePage, error)
	GetPage(ctx context.Context, articleID uuid.UUID, pageNumber int) (*model.ArticlePage, error)
	ListPages(ctx context.Context, articleID uuid.UUID) ([]*model.ArticlePage, error)
	DeletePage(ctx context.Context, articleID uuid.UUID, pageNumber int) error
}

type service struct {
	repo repository.ArticleRepository
}

func NewService(repo repository.ArticleRepository) Service {
	return &service{repo: repo}
}

func (s *service) Create(ctx context.Context, article *model.Article) error {
	if article.Title == "" {
		return errors.BadRequest("article title is required", nil)
	}
	if !model.IsValidLanguage(article.Language) {
		return errors.BadRequest(fmt.Sprintf("unsupported language: %s", article.Language), nil)
	}

	article.ID = uuid.New()
	article.Status = model.ArticleStatusDraft
	if article.Slug == "" {
		article.Slug = Slugify(article.Title)
	}

	if err := s.repo.Create(ctx, article); err != nil {
		return errors.Internal(err)
	}
	return nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*model.Article, error) {
	article, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, errors.NotFound("article", err)
	}
	return article, nil
}

func (s *service) GetBySlug(ctx context.Context, slug string) (*model.Article, error) {
	article, err := s.repo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, errors.NotFound("article", err)
	}
	return article, nil
}

func (s *service) Update(ctx context.Context, article *model.Article) error {
	if article.Title == "" {
		return errors.BadRequest("article title is required", nil)
	}
	if err := s.repo.Update(ctx, article); err != nil {
		return errors.Internal(err)
	}
	return nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return errors.NotFound("article", err)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return errors.Internal(err)
	}
	return nil
}

func (s *service) List(ctx context.Context, filters *model.ArticleFilters) ([]*model.Article, int, error) {
	filters.Normalize()
	articles, total, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, 0, errors.Internal(err)
	}
	return articles, total, nil
}

// Publish requires at least one content page. Publishing an already
// published article is a no-op.
func (s *service) Publish(ctx context.Context, id uuid.UUID) (*model.Article, error) {
	article, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, errors.NotFound("article", err)
	}
	if article.Status == model.ArticleStatusPublished {
		return article, nil
	}
	if article.PageCount == 0 {
		return nil, errors.BadRequest("cannot publish an article without pages", nil)
	}

	now := time.Now()
	article.Status = model.ArticleStatusPublished
	article.PublishedAt = &now
	if err := s.repo.Update(ctx, article); err != nil {
		return nil, errors.Internal(err)
	}
	return article, nil
}

func (s *service) Unpublish(ctx context.Context, id uuid.UUID) (*model.Article, error) {
	article, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, errors.NotFound("article", err)
	}
	article.Status = model.ArticleStatusDraft
	article.PublishedAt = nil
	if err := s.repo.Update(ctx, article); err != nil {
		return nil, errors.Internal(err)
	}
	return article, nil
}

func (s *service) SavePage(ctx context.Context, articleID uuid.UUID, pageNumber int, body string) (*model.ArticlePage, error) {
	if pageNumber < 1 {
		return nil, errors.BadRequest("page number must be positive", nil)
	}
	if _, err := s.repo.Get(ctx, articleID); err != nil {
		return nil, errors.NotFound("article", err)
	}

	page := &model.ArticlePage{
		ID:         uuid.New(),
		ArticleID:  articleID,
		PageNumber: pageNumber,
		Body:       body,
	}
	if err := s.repo.UpsertPage(ctx, page); err != nil {
		return nil, errors.Internal(err)
	}
	return page, nil
}

func (s *service) GetPage(ctx context.Context, articleID uuid.UUID, pageNumber int) (*model.ArticlePage, error) {
	page, err := s.repo.GetPage(ctx, articleID, pageNumber)
	if err != nil {
		return nil, errors.NotFound("article page", err)
	}
	return page, nil
}

func (s *service) ListPages(ctx context.Context, articleID uuid.UUID) ([]*model.ArticlePage, error) {
	pages, err := s.repo.ListPages(ctx, articleID)
	if err != nil {
		return nil, errors.Internal(err)
	}
	return pages, nil
}

func (s *service) DeletePage(ctx context.Context, articleID uuid.UUID, pageNumber int) error {
	if err := s.repo.DeletePage(ctx, articleID, pageNumber); err != nil {
		return errors.Internal(err)
	}
	return nil
}

// Slugify lowercases a title and collapses non-alphanumeric runs to hyphens.
func Slugify(title string) string {
	slug := slugPattern.ReplaceAllString(strings.ToLower(title), "-")
	return strings.Trim(slug, "-")
}
