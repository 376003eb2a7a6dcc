package articles

import (
	"context"
	"errors"
	"testing"

	"harvest/internal/articles/db"
	"harvest/internal/ingest"
	"harvest/lib/testutil"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(testutil.OpenDB(t, db.Schema))
}

func TestStoreCommitIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	a := Article{ID: "a1", Content: "c", AISummary: "s", CreatedAt: "2025-04-23 09:43:00", Author: "李四"}
	require.NoError(t, store.Commit(ctx, a))

	changed := a
	changed.Content = "changed"
	err := store.Commit(ctx, changed)
	require.ErrorIs(t, err, ingest.ErrAlreadyExists)

	exists, err := store.Exists(ctx, "a1")
	require.NoError(t, err)
	require.True(t, exists)
	exists, err = store.Exists(ctx, "a2")
	require.NoError(t, err)
	require.False(t, exists)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, count)

	rows, err := store.List(ctx, ListOptions{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "c", rows[0].ArticleContent)
	require.Equal(t, "李四", rows[0].AuthorName)
	require.NotEmpty(t, rows[0].CreatedAt)
}

func TestStoreListOrder(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	for _, id := range []string{"1", "2", "3", "4"} {
		require.NoError(t, store.Commit(ctx, Article{ID: id}))
	}

	ids := func(rows []db.Article) []string {
		var out []string
		for _, r := range rows {
			out = append(out, r.ArticleID)
		}
		return out
	}

	oldest, err := store.List(ctx, ListOptions{Limit: 3})
	require.NoError(t, err)
	require.Equal(t, []string{"1", "2", "3"}, ids(oldest))

	latest, err := store.Latest(ctx, 2)
	require.NoError(t, err)
	require.Equal(t, []string{"4", "3"}, ids(latest))

	all, err := store.List(ctx, ListOptions{Newest: true})
	require.NoError(t, err)
	require.Equal(t, []string{"4", "3", "2", "1"}, ids(all))
}

func TestStoreCommitPersistError(t *testing.T) {
	database, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer database.Close()

	mock.ExpectExec(`insert or ignore into articles`).
		WithArgs("a1", "", "", "", "").
		WillReturnError(errors.New("disk I/O error"))

	err = NewStore(database).Commit(context.Background(), Article{ID: "a1"})
	var persist *ingest.PersistError
	require.True(t, errors.As(err, &persist))
	require.Equal(t, "a1", persist.Key)
	require.False(t, ingest.IsSkip(err))
	require.NoError(t, mock.ExpectationsWereMet())
}
