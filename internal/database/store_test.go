package database

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"ideon/internal/config"
)

func setupSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, Migrate(db))
	return db
}

// setupMockDB creates a GORM *gorm.DB backed by sqlmock for unit tests.
func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	return gormDB, mock
}

func TestStoreSQLiteRoundTrip(t *testing.T) {
	store := NewStore(setupSQLite(t), config.StorageSQLite)
	ctx := context.Background()

	_, ok, err := store.Get(ctx, "loggedInUserId")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set(ctx, "loggedInUserId", "u1"))
	require.NoError(t, store.Set(ctx, "loggedInUserId", "u2"))

	val, ok, err := store.Get(ctx, "loggedInUserId")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "u2", val)

	require.NoError(t, store.Delete(ctx, "loggedInUserId"))
	_, ok, err = store.Get(ctx, "loggedInUserId")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStorePropagatesDriverErrors(t *testing.T) {
	db, mock := setupMockDB(t)
	mock.ExpectQuery(`SELECT \* FROM "ideon_kv"`).WillReturnError(errors.New("connection reset"))

	_, _, err := NewStore(db, config.StoragePostgres).Get(context.Background(), "ideon_users_storage")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConnectRejectsNonSQLDriver(t *testing.T) {
	_, err := Connect(&config.Config{StorageDriver: config.StorageRedis})
	assert.Error(t, err)
}

func TestConnectSQLite(t *testing.T) {
	db, err := Connect(&config.Config{StorageDriver: config.StorageSQLite, SQLitePath: ":memory:"})
	require.NoError(t, err)
	assert.True(t, db.Migrator().HasTable(&Entry{}))
}
