package articles

import (
	"context"
	"database/sql"
	"fmt"

	"harvest/internal/articles/db"
	"harvest/internal/ingest"
)

// Store persists articles keyed by their article id.
type Store struct {
	db  *sql.DB
	qry *db.Queries
}

func NewStore(database *sql.DB) *Store {
	return &Store{db: database, qry: db.New(database)}
}

func (s *Store) Exists(ctx context.Context, articleID string) (bool, error) {
	n, err := s.qry.ArticleExists(ctx, articleID)
	if err != nil {
		return false, err
	}
	return n != 0, nil
}

// Commit inserts a, an article that is already present is left untouched
// and reported with ingest.ErrAlreadyExists.
func (s *Store) Commit(ctx context.Context, a Article) error {
	n, err := s.qry.CreateArticle(ctx, db.CreateArticleParams{
		ArticleID:        a.ID,
		ArticleContent:   a.Content,
		AiSummaryContent: a.AISummary,
		GmtCreate:        a.CreatedAt,
		AuthorName:       a.Author,
	})
	if err != nil {
		return &ingest.PersistError{Key: a.ID, Err: err}
	}
	if n == 0 {
		return ingest.ErrAlreadyExists
	}
	return nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	n, err := s.qry.CountArticles(ctx)
	if err != nil {
		return 0, fmt.Errorf("count articles: %w", err)
	}
	return int(n), nil
}

type ListOptions struct {
	// Limit <= 0 lists everything.
	Limit int
	// Newest lists the most recently stored articles first, otherwise the
	// oldest come first.
	Newest bool
}

func (s *Store) List(ctx context.Context, opts ListOptions) ([]db.Article, error) {
	limit := int64(opts.Limit)
	if limit <= 0 {
		limit = -1
	}
	var rows []db.Article
	var err error
	if opts.Newest {
		rows, err = s.qry.ListArticlesNewest(ctx, limit)
	} else {
		rows, err = s.qry.ListArticlesOldest(ctx, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}
	return rows, nil
}

// Latest returns the n most recently stored articles.
func (s *Store) Latest(ctx context.Context, n int) ([]db.Article, error) {
	return s.List(ctx, ListOptions{Limit: n, Newest: true})
}
