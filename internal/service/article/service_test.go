package article

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lettermill/lettermill/internal/model"
	"github.com/lettermill/lettermill/pkg/errors"
)

type fakeArticleRepo struct {
	articles map[uuid.UUID]*model.Article
	pages    map[uuid.UUID]map[int]*model.ArticlePage
}

func newFakeArticleRepo() *fakeArticleRepo {
	return &fakeArticleRepo{
		articles: make(map[uuid.UUID]*model.Article),
		pages:    make(map[uuid.UUID]map[int]*model.ArticlePage),
	}
}

func (r *fakeArticleRepo) Create(ctx context.Context, a *model.Article) error {
	cp := *a
	r.articles[a.ID] = &cp
	return nil
}

func (r *fakeArticleRepo) Get(ctx context.Context, id uuid.UUID) (*model.Article, error) {
	a, ok := r.articles[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *a
	cp.PageCount = len(r.pages[id])
	return &cp, nil
}

func (r *fakeArticleRepo) GetBySlug(ctx context.Context, slug string) (*model.Article, error) {
	for id, a := range r.articles {
		if a.Slug == slug {
			cp := *a
			cp.PageCount = len(r.pages[id])
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *fakeArticleRepo) Update(ctx context.Context, a *model.Article) error {
	if _, ok := r.articles[a.ID]; !ok {
		return sql.ErrNoRows
	}
	cp := *a
	r.articles[a.ID] = &cp
	return nil
}

func (r *fakeArticleRepo) Delete(ctx context.Context, id uuid.UUID) error {
	delete(r.articles, id)
	delete(r.pages, id)
	return nil
}

func (r *fakeArticleRepo) List(ctx context.Context, filters *model.ArticleFilters) ([]*model.Article, int, error) {
	var out []*model.Article
	for _, a := range r.articles {
		if filters.Status != "" && a.Status != filters.Status {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	return out, len(out), nil
}

func (r *fakeArticleRepo) UpsertPage(ctx context.Context, page *model.ArticlePage) error {
	if r.pages[page.ArticleID] == nil {
		r.pages[page.ArticleID] = make(map[int]*model.ArticlePage)
	}
	cp := *page
	r.pages[page.ArticleID][page.PageNumber] = &cp
	return nil
}

func (r *fakeArticleRepo) GetPage(ctx context.Context, articleID uuid.UUID, pageNumber int) (*model.ArticlePage, error) {
	page, ok := r.pages[articleID][pageNumber]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *page
	return &cp, nil
}

func (r *fakeArticleRepo) ListPages(ctx context.Context, articleID uuid.UUID) ([]*model.ArticlePage, error) {
	var out []*model.ArticlePage
	for _, p := range r.pages[articleID] {
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

func (r *fakeArticleRepo) DeletePage(ctx context.Context, articleID uuid.UUID, pageNumber int) error {
	delete(r.pages[articleID], pageNumber)
	return nil
}

func newTestArticle(t *testing.T, svc Service) *model.Article {
	t.Helper()
	a := &model.Article{Title: "A Winter Field Guide", Language: "en"}
	require.NoError(t, svc.Create(context.Background(), a))
	return a
}

func TestCreateGeneratesSlug(t *testing.T) {
	svc := NewService(newFakeArticleRepo())
	a := newTestArticle(t, svc)

	assert.Equal(t, "a-winter-field-guide", a.Slug)
	assert.Equal(t, model.ArticleStatusDraft, a.Status)
}

func TestCreateRejectsUnknownLanguage(t *testing.T) {
	svc := NewService(newFakeArticleRepo())

	err := svc.Create(context.Background(), &model.Article{Title: "Titel", Language: "de"})
	require.Error(t, err)
}

func TestPublishRequiresPages(t *testing.T) {
	svc := NewService(newFakeArticleRepo())
	a := newTestArticle(t, svc)

	_, err := svc.Publish(context.Background(), a.ID)
	require.Error(t, err)
	appErr, ok := err.(*errors.AppError)
	require.True(t, ok)
	assert.Equal(t, errors.ErrBadRequest, appErr.Code)
}

func TestPublishWithPages(t *testing.T) {
	svc := NewService(newFakeArticleRepo())
	a := newTestArticle(t, svc)
	ctx := context.Background()

	_, err := svc.SavePage(ctx, a.ID, 1, "First page body")
	require.NoError(t, err)

	published, err := svc.Publish(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ArticleStatusPublished, published.Status)
	require.NotNil(t, published.PublishedAt)

	// Publishing again is a no-op that keeps the original timestamp.
	again, err := svc.Publish(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, published.PublishedAt.Unix(), again.PublishedAt.Unix())
}

func TestUnpublishClearsTimestamp(t *testing.T) {
	svc := NewService(newFakeArticleRepo())
	a := newTestArticle(t, svc)
	ctx := context.Background()

	_, err := svc.SavePage(ctx, a.ID, 1, "body")
	require.NoError(t, err)
	_, err = svc.Publish(ctx, a.ID)
	require.NoError(t, err)

	draft, err := svc.Unpublish(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ArticleStatusDraft, draft.Status)
	assert.Nil(t, draft.PublishedAt)
}

func TestSavePageUpserts(t *testing.T) {
	svc := NewService(newFakeArticleRepo())
	a := newTestArticle(t, svc)
	ctx := context.Background()

	_, err := svc.SavePage(ctx, a.ID, 1, "original")
	require.NoError(t, err)
	_, err = svc.SavePage(ctx, a.ID, 1, "revised")
	require.NoError(t, err)

	page, err := svc.GetPage(ctx, a.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, "revised", page.Body)

	pages, err := svc.ListPages(ctx, a.ID)
	require.NoError(t, err)
	assert.Len(t, pages, 1)
}

func TestSavePageRejectsNonPositiveNumber(t *testing.T) {
	svc := NewService(newFakeArticleRepo())
	a := newTestArticle(t, svc)

	_, err := svc.SavePage(context.Background(), a.ID, 0, "body")
	require.Error(t, err)
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "hello-world", Slugify("Hello, World!"))
	assert.Equal(t, "field-notes-42", Slugify("Field Notes #42"))
	assert.Equal(t, "a-b", Slugify("--a  b--"))
}
