package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/lettermill/lettermill/internal/model"
	"github.com/lettermill/lettermill/internal/repository"
)

const articleColumns = `a.id, a.title, a.slug, a.summary, a.language, a.status,
	a.published_at, a.created_at, a.updated_at,
	(SELECT COUNT(*) FROM article_pages p WHERE p.article_id = a.id) AS page_count`

type articleRepository struct {
	db *sqlx.DB
}

func NewArticleRepository(db *sqlx.DB) repository.ArticleRepository {
	return &articleRepository{db: db}
}

func (r *articleRepository) Create(ctx context.Context, article *model.Article) error {
	query := `
		INSERT INTO articles (id, title, slug, summary, language, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	article.CreatedAt = time.Now()
	article.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		article.ID, article.Title, article.Slug, article.Summary,
		article.Language, article.Status, article.CreatedAt, article.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create article: %w", err)
	}
	return nil
}

func (r *articleRepository) Get(ctx context.Context, id uuid.UUID) (*model.Article, error) {
	query := fmt.Sprintf(`SELECT %s FROM articles a WHERE a.id = $1`, articleColumns)
	var article model.Article
	if err := r.db.GetContext(ctx, &article, query, id); err != nil {
		return nil, fmt.Errorf("failed to get article: %w", err)
	}
	return &article, nil
}

func (r *articleRepository) GetBySlug(ctx context.Context, slug string) (*model.Article, error) {
	query := fmt.Sprintf(`SELECT %s FROM articles a WHERE a.slug = $1`, articleColumns)
	var article model.Article
	if err := r.db.GetContext(ctx, &article, query, slug); err != nil {
		return nil, fmt.Errorf("failed to get article by slug: %w", err)
	}
	return &article, nil
}

func (r *articleRepository) Update(ctx context.Context, article *model.Article) error {
	query := `
		UPDATE articles
		SET title = $1, slug = $2, summary = $3, language = $4, status = $5,
			published_at = $6, updated_at = $7
		WHERE id = $8
	`
	article.UpdatedAt = time.Now()
	_, err := r.db.ExecContext(ctx, query,
		article.Title, article.Slug, article.Summary, article.Language,
		article.Status, article.PublishedAt, article.UpdatedAt, article.ID)
	if err != nil {
		return fmt.Errorf("failed to update article: %w", err)
	}
	return nil
}

func (r *articleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM articles WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete article: %w", err)
	}
	return nil
}

func (r *articleRepository) List(ctx context.Context, filters *model.ArticleFilters) ([]*model.Article, int, error) {
	var clauses []string
	var args []interface{}

	if filters.Status != "" {
		args = append(args, filters.Status)
		clauses = append(clauses, fmt.Sprintf("a.status = $%d", len(args)))
	}
	if filters.Language != "" {
		args = append(args, filters.Language)
		clauses = append(clauses, fmt.Sprintf("a.language = $%d", len(args)))
	}
	if filters.Search != "" {
		args = append(args, "%"+strings.ToLower(filters.Search)+"%")
		clauses = append(clauses, fmt.Sprintf("(LOWER(a.title) LIKE $%d OR LOWER(a.slug) LIKE $%d)", len(args), len(args)))
	}

	where := ""
	if len(clauses) > 0 {
		where = " WHERE " + strings.Join(clauses, " AND ")
	}

	countQuery := `SELECT COUNT(*) FROM articles a` + where
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count articles: %w", err)
	}

	query := fmt.Sprintf(
		`SELECT %s FROM articles a%s ORDER BY a.created_at DESC LIMIT $%d OFFSET $%d`,
		articleColumns, where, len(args)+1, len(args)+2,
	)
	args = append(args, filters.PageSize, filters.Offset())

	var articles []*model.Article
	if err := r.db.SelectContext(ctx, &articles, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list articles: %w", err)
	}
	return articles, total, nil
}

func (r *articleRepository) UpsertPage(ctx context.Context, page *model.ArticlePage) error {
	query := `
		INSERT INTO article_pages (id, article_id, page_number, body, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (article_id, page_number)
		DO UPDATE SET body = EXCLUDED.body, updated_at = EXCLUDED.updated_at
	`
	page.CreatedAt = time.Now()
	page.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		page.ID, page.ArticleID, page.PageNumber, page.Body, page.CreatedAt, page.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert article page: %w", err)
	}
	return nil
}

func (r *articleRepository) GetPage(ctx context.Context, articleID uuid.UUID, pageNumber int) (*model.ArticlePage, error) {
	query := `SELECT * FROM article_pages WHERE article_id = $1 AND page_number = $2`
	var page model.ArticlePage
	if err := r.db.GetContext(ctx, &page, query, articleID, pageNumber); err != nil {
		return nil, fmt.Errorf("failed to get article page: %w", err)
	}
	return &page, nil
}

func (r *articleRepository) ListPages(ctx context.Context, articleID uuid.UUID) ([]*model.ArticlePage, error) {
	query := `SELECT * FROM article_pages WHERE article_id = $1 ORDER BY page_number ASC`
	var pages []*model.ArticlePage
	if err := r.db.SelectContext(ctx, &pages, query, articleID); err != nil {
		return nil, fmt.Errorf("failed to list article pages: %w", err)
	}
	return pages, nil
}

func (r *articleRepository) DeletePage(ctx context.Context, articleID uuid.UUID, pageNumber int) error {
	query := `DELETE FROM article_pages WHERE article_id = $1 AND page_number = $2`
	_, err := r.db.ExecContext(ctx, query, articleID, pageNumber)
	if err != nil {
		return fmt.Errorf("failed to delete article page: %w", err)
	}
	return nil
}
