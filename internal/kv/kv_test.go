package kv

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skufu/vitreos/internal/config"
)

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Set(ctx, "k", "v1"))
	require.NoError(t, s.Set(ctx, "k", "v2"))
	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v2", got)

	require.NoError(t, s.Delete(ctx, "k"))
	_, err = s.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)

	// deleting an absent key is not an error
	assert.NoError(t, s.Delete(ctx, "k"))
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestSQLiteStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data", "kv.db")

	s, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	exerciseStore(t, s)
	require.NoError(t, s.Set(ctx, "profile", `{"bg":"O+"}`))
	require.NoError(t, s.Close())

	reopened, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Get(ctx, "profile")
	require.NoError(t, err)
	assert.Equal(t, `{"bg":"O+"}`, got)
	assert.NoError(t, reopened.Ping(ctx))
}

func TestSQLStoreQueries(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewSQLStore(db)
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT value FROM kv_store WHERE key = ?`)).
		WithArgs("vitreos-hist").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(`[]`))
	mock.ExpectExec(`INSERT INTO kv_store`).
		WithArgs("vitreos-hist", `[{"bg":"A+"}]`, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM kv_store WHERE key = ?`)).
		WithArgs("vitreos-hist").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT value FROM kv_store`).
		WithArgs("vitreos-hist").
		WillReturnError(errors.New("disk I/O error"))

	got, err := store.Get(ctx, "vitreos-hist")
	require.NoError(t, err)
	assert.Equal(t, `[]`, got)
	require.NoError(t, store.Set(ctx, "vitreos-hist", `[{"bg":"A+"}]`))
	require.NoError(t, store.Delete(ctx, "vitreos-hist"))

	_, err = store.Get(ctx, "vitreos-hist")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

type fakeRow struct {
	value string
	err   error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*string)) = r.value
	return nil
}

type fakePgx struct {
	data  map[string]string
	execs []string
}

func (f *fakePgx) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.execs = append(f.execs, sql)
	key := args[0].(string)
	if len(args) == 2 {
		f.data[key] = args[1].(string)
		return pgconn.NewCommandTag("INSERT 0 1"), nil
	}
	delete(f.data, key)
	return pgconn.NewCommandTag("DELETE 1"), nil
}

func (f *fakePgx) QueryRow(_ context.Context, _ string, args ...any) pgx.Row {
	val, ok := f.data[args[0].(string)]
	if !ok {
		return fakeRow{err: pgx.ErrNoRows}
	}
	return fakeRow{value: val}
}

func TestPostgresStore(t *testing.T) {
	fake := &fakePgx{data: map[string]string{}}
	store := newPostgresStore(fake)
	exerciseStore(t, store)
	assert.NoError(t, store.Ping(context.Background()))
	assert.Len(t, fake.execs, 4)
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	s := NewRedisStore(NewRedisClient(addr, os.Getenv("REDIS_PASSWORD"), 0), "vitreos-test:")
	defer s.Close()
	require.NoError(t, s.Ping(context.Background()))
	exerciseStore(t, s)
}

func TestOpenMemoryAndUnknown(t *testing.T) {
	ctx := context.Background()
	s, closer, err := Open(ctx, &config.Config{StoreBackend: config.BackendMemory})
	require.NoError(t, err)
	defer closer()
	assert.IsType(t, &MemoryStore{}, s)

	_, _, err = Open(ctx, &config.Config{StoreBackend: "etcd"})
	assert.Error(t, err)
}

func TestOpenSQLiteBackend(t *testing.T) {
	cfg := &config.Config{
		StoreBackend: config.BackendSQLite,
		SQLitePath:   filepath.Join(t.TempDir(), "vitreos.db"),
	}
	s, closer, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	defer closer()
	_, ok := s.(HealthChecker)
	assert.True(t, ok)
}
