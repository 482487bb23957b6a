package repository

import (
	"context"
	"path/filepath"
	"regexp"
	"sync"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/noah-isme/certified-copy-api/internal/models"
	"github.com/noah-isme/certified-copy-api/pkg/config"
	"github.com/noah-isme/certified-copy-api/pkg/database"
)

func TestMemoryBackendCopiesValues(t *testing.T) {
	backend := NewMemoryBackend()
	ctx := context.Background()

	missing, err := backend.LoadAll(ctx, "absent")
	require.NoError(t, err)
	assert.Nil(t, missing)

	payload := []byte(`[1]`)
	require.NoError(t, backend.SaveAll(ctx, "k", payload))
	payload[0] = 'x'

	got, err := backend.LoadAll(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, `[1]`, string(got))
}

func TestFileBackendRoundTripAndLock(t *testing.T) {
	backend, err := NewFileBackend(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	missing, err := backend.LoadAll(ctx, ApplicationsKey)
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, backend.SaveAll(ctx, ApplicationsKey, []byte(`[]`)))
	got, err := backend.LoadAll(ctx, ApplicationsKey)
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(got))

	unlock, err := backend.Lock(ctx)
	require.NoError(t, err)
	require.NoError(t, unlock())
}

func TestFileBackendSharedAcrossStores(t *testing.T) {
	dir := t.TempDir()
	first, err := NewFileBackend(dir)
	require.NoError(t, err)
	second, err := NewFileBackend(dir)
	require.NoError(t, err)

	storeA := NewApplicationStore(first)
	storeB := NewApplicationStore(second)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		store := storeA
		if i%2 == 1 {
			store = storeB
		}
		go func() {
			defer wg.Done()
			_, err := store.Create(ctx, caseInput("alice"))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	apps, err := storeA.List(ctx, models.ApplicationFilter{})
	require.NoError(t, err)
	assert.Len(t, apps, 10)

	stats, err := storeB.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10, stats.TotalApplications)
}

func newMiniredisClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisBackendRoundTrip(t *testing.T) {
	mr, client := newMiniredisClient(t)
	backend := NewRedisBackend(client, "portal:")
	ctx := context.Background()

	missing, err := backend.LoadAll(ctx, StatisticsKey)
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, backend.SaveAll(ctx, StatisticsKey, []byte(`{"totalApplications":2}`)))
	raw, err := mr.Get("portal:" + StatisticsKey)
	require.NoError(t, err)
	assert.Equal(t, `{"totalApplications":2}`, raw)

	got, err := backend.LoadAll(ctx, StatisticsKey)
	require.NoError(t, err)
	assert.Equal(t, raw, string(got))
}

func TestRedisBackendLock(t *testing.T) {
	mr, client := newMiniredisClient(t)
	backend := NewRedisBackend(client, "portal:")

	unlock, err := backend.Lock(context.Background())
	require.NoError(t, err)
	assert.True(t, mr.Exists("portal:lock"))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err = backend.Lock(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, unlock())
	assert.False(t, mr.Exists("portal:lock"))
}

func TestRedisBackendServesStore(t *testing.T) {
	_, client := newMiniredisClient(t)
	store := NewApplicationStore(NewRedisBackend(client, "portal:"))
	ctx := context.Background()

	app, err := store.Create(ctx, caseInput("alice"))
	require.NoError(t, err)

	got, err := store.GetByID(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, app.ApplicantName, got.ApplicantName)
}

func newSQLMock(t *testing.T, driver string) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, driver), mock
}

func TestSQLBackendLoadAll(t *testing.T) {
	db, mock := newSQLMock(t, "sqlmock")
	backend := NewSQLBackend(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT payload FROM portal_store WHERE store_key = ?")).
		WithArgs(ApplicationsKey).
		WillReturnRows(sqlmock.NewRows([]string{"payload"}).AddRow([]byte(`[]`)))

	got, err := backend.LoadAll(context.Background(), ApplicationsKey)
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(got))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLBackendLoadAllMissing(t *testing.T) {
	db, mock := newSQLMock(t, "sqlmock")
	backend := NewSQLBackend(db)

	mock.ExpectQuery("SELECT payload FROM portal_store").
		WithArgs(StatisticsKey).
		WillReturnRows(sqlmock.NewRows([]string{"payload"}))

	got, err := backend.LoadAll(context.Background(), StatisticsKey)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLBackendSaveAllPostgres(t *testing.T) {
	db, mock := newSQLMock(t, "postgres")
	backend := NewSQLBackend(db)
	now := time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC)
	backend.now = func() time.Time { return now }

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO portal_store (store_key, payload, updated_at) VALUES ($1, $2, $3)")).
		WithArgs(ApplicationsKey, []byte(`[]`), now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, backend.SaveAll(context.Background(), ApplicationsKey, []byte(`[]`)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLBackendMigrateDialects(t *testing.T) {
	pg, pgMock := newSQLMock(t, "postgres")
	pgMock.ExpectExec("CREATE TABLE IF NOT EXISTS portal_store .*BYTEA.*TIMESTAMPTZ").
		WillReturnResult(sqlmock.NewResult(0, 0))
	pgMock.ExpectExec("CREATE TABLE IF NOT EXISTS portal_lock").
		WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, NewSQLBackend(pg).Migrate(context.Background()))
	assert.NoError(t, pgMock.ExpectationsWereMet())

	lite, liteMock := newSQLMock(t, "sqlite")
	liteMock.ExpectExec("CREATE TABLE IF NOT EXISTS portal_store .*BLOB.*TIMESTAMP").
		WillReturnResult(sqlmock.NewResult(0, 0))
	liteMock.ExpectExec("CREATE TABLE IF NOT EXISTS portal_lock").
		WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, NewSQLBackend(lite).Migrate(context.Background()))
	assert.NoError(t, liteMock.ExpectationsWereMet())
}

func TestSQLBackendLockWaitsForLease(t *testing.T) {
	db, mock := newSQLMock(t, "postgres")
	backend := NewSQLBackend(db)
	now := time.Date(2024, 3, 14, 9, 30, 0, 0, time.UTC)
	backend.now = func() time.Time { return now }
	expires := now.Add(leaseTTL).UnixMilli()

	acquire := "(?s)" + regexp.QuoteMeta("INSERT INTO portal_lock (name, holder, expires_at) VALUES ($1, $2, $3)") +
		".*WHERE portal_lock.expires_at < \\$4"
	mock.ExpectExec(acquire).
		WithArgs(storeLeaseName, sqlmock.AnyArg(), expires, now.UnixMilli()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(acquire).
		WithArgs(storeLeaseName, sqlmock.AnyArg(), expires, now.UnixMilli()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM portal_lock WHERE name = $1 AND holder = $2")).
		WithArgs(storeLeaseName, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	unlock, err := backend.Lock(context.Background())
	require.NoError(t, err)
	require.NoError(t, unlock())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLBackendLockHonoursContext(t *testing.T) {
	db, _ := newSQLMock(t, "postgres")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewSQLBackend(db).Lock(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

// slowSQLBackend widens the window between load and save the way a remote database does.
type slowSQLBackend struct {
	*SQLBackend
}

func (b slowSQLBackend) LoadAll(ctx context.Context, key string) ([]byte, error) {
	time.Sleep(2 * time.Millisecond)
	return b.SQLBackend.LoadAll(ctx, key)
}

func TestSQLiteBackendSharedAcrossStores(t *testing.T) {
	path := filepath.Join(t.TempDir(), "portal.db")
	ctx := context.Background()

	openStore := func() *ApplicationStore {
		db, err := database.NewSQLite(ctx, config.SQLiteConfig{Path: path})
		require.NoError(t, err)
		t.Cleanup(func() { _ = db.Close() })
		backend := NewSQLBackend(db)
		require.NoError(t, backend.Migrate(ctx))
		return NewApplicationStore(slowSQLBackend{backend})
	}
	storeA, storeB := openStore(), openStore()

	const creates = 40
	var wg sync.WaitGroup
	for i := 0; i < creates; i++ {
		wg.Add(1)
		store := storeA
		if i%2 == 1 {
			store = storeB
		}
		go func() {
			defer wg.Done()
			_, err := store.Create(ctx, caseInput("alice"))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	apps, err := storeB.List(ctx, models.ApplicationFilter{})
	require.NoError(t, err)
	assert.Len(t, apps, creates)

	stats, err := storeA.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, creates, stats.TotalApplications)
}

func TestMongoBackend(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("load existing", func(mt *mtest.T) {
		backend := NewMongoBackend(mt.Coll)
		mt.AddMockResponses(mtest.CreateCursorResponse(1, "db.portal_store", mtest.FirstBatch, bson.D{
			{Key: "_id", Value: StatisticsKey},
			{Key: "payload", Value: []byte(`{"totalApplications":3}`)},
		}))

		got, err := backend.LoadAll(context.Background(), StatisticsKey)
		require.NoError(mt, err)
		assert.Equal(mt, `{"totalApplications":3}`, string(got))
	})

	mt.Run("load missing", func(mt *mtest.T) {
		backend := NewMongoBackend(mt.Coll)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "db.portal_store", mtest.FirstBatch))

		got, err := backend.LoadAll(context.Background(), ApplicationsKey)
		require.NoError(mt, err)
		assert.Nil(mt, got)
	})

	mt.Run("save upserts", func(mt *mtest.T) {
		backend := NewMongoBackend(mt.Coll)
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1},
			bson.E{Key: "nModified", Value: 0},
			bson.E{Key: "upserted", Value: bson.A{bson.D{{Key: "index", Value: 0}, {Key: "_id", Value: ApplicationsKey}}}},
		))

		require.NoError(mt, backend.SaveAll(context.Background(), ApplicationsKey, []byte(`[]`)))
	})
}

func TestMongoBackendLock(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("acquire and release", func(mt *mtest.T) {
		backend := NewMongoBackend(mt.Coll)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}),
		)

		unlock, err := backend.Lock(context.Background())
		require.NoError(mt, err)
		require.NoError(mt, unlock())
	})

	mt.Run("retries while the lease is held", func(mt *mtest.T) {
		backend := NewMongoBackend(mt.Coll)
		mt.AddMockResponses(
			mtest.CreateWriteErrorsResponse(mtest.WriteError{Index: 0, Code: 11000, Message: "E11000 duplicate key error"}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}),
		)

		unlock, err := backend.Lock(context.Background())
		require.NoError(mt, err)
		require.NoError(mt, unlock())
	})

	mt.Run("other write errors fail", func(mt *mtest.T) {
		backend := NewMongoBackend(mt.Coll)
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 13, Message: "unauthorized", Name: "Unauthorized"}))

		_, err := backend.Lock(context.Background())
		require.Error(mt, err)
		assert.Contains(mt, err.Error(), "acquire store lease")
	})
}
