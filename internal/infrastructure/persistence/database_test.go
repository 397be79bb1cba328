package persistence

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/liquorledger/backend/internal/domain/inventory"
	"github.com/liquorledger/backend/internal/domain/shared"
	"github.com/liquorledger/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// newMockDatabase creates a Database instance with a mocked PostgreSQL connection
func newMockDatabase(t *testing.T) (*Database, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
		TranslateError:         true,
	})
	require.NoError(t, err)

	return &Database{DB: gormDB, Driver: config.DriverPostgres}, mock, mockDB
}

func TestNewDatabase(t *testing.T) {
	t.Run("rejects unknown driver", func(t *testing.T) {
		_, err := NewDatabase(&config.DatabaseConfig{Driver: "oracle"}, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported database driver")
	})

	t.Run("opens sqlite with a single connection", func(t *testing.T) {
		db, err := NewDatabase(&config.DatabaseConfig{
			Driver:     config.DriverSQLite,
			SQLitePath: "file:" + uuid.NewString() + "?mode=memory&cache=shared",
		}, nil)
		require.NoError(t, err)
		defer db.Close()

		stats, err := db.Stats()
		require.NoError(t, err)
		assert.Equal(t, 1, stats.MaxOpenConnections)
		assert.NoError(t, db.Ping(context.Background()))
	})
}

func TestDatabase_Ping(t *testing.T) {
	db, mock, mockDB := newMockDatabase(t)
	defer mockDB.Close()

	mock.ExpectPing()
	assert.NoError(t, db.Ping(context.Background()))

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	assert.Error(t, db.Ping(context.Background()))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDatabase_Transaction(t *testing.T) {
	db, mock, mockDB := newMockDatabase(t)
	defer mockDB.Close()

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := db.Transaction(context.Background(), func(tx *gorm.DB) error {
		return errors.New("abort")
	})
	assert.EqualError(t, err, "abort")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormItemRepository_SaveWithLockConflicts(t *testing.T) {
	newItem := func() *inventory.Item {
		item, err := inventory.NewItem("SKU-1", "Item")
		require.NoError(t, err)
		item.Version = 3
		item.UpdatedAt = time.Now()
		return item
	}

	t.Run("zero rows affected is a concurrency conflict", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()
		repo := NewGormItemRepository(db.DB)
		item := newItem()

		mock.ExpectExec(`UPDATE "items" SET .* WHERE \(?id = \$\d+ AND version = \$\d+`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.SaveWithLock(context.Background(), item)
		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
		assert.Equal(t, 3, item.Version)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("serialization failure is a concurrency conflict", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()
		repo := NewGormItemRepository(db.DB)

		mock.ExpectExec(`UPDATE "items" SET`).
			WillReturnError(&pgconn.PgError{Code: "40001", Message: "could not serialize access"})

		err := repo.SaveWithLock(context.Background(), newItem())
		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
	})

	t.Run("success advances the version", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()
		repo := NewGormItemRepository(db.DB)
		item := newItem()

		mock.ExpectExec(`UPDATE "items" SET`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.SaveWithLock(context.Background(), item))
		assert.Equal(t, 4, item.Version)
	})
}

func TestGormItemRepository_FindByIDForUpdateLocksRow(t *testing.T) {
	db, mock, mockDB := newMockDatabase(t)
	defer mockDB.Close()
	repo := NewGormItemRepository(db.DB)
	id := uuid.New()

	mock.ExpectQuery(`SELECT \* FROM "items" WHERE .*id = \$1.* FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "sku", "name", "current_stock_units"}).
			AddRow(id.String(), "OM-750", "Old Monk 750ml", 8))

	item, err := repo.FindByIDForUpdate(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "OM-750", item.SKU)
	assert.Equal(t, 8, item.CurrentStockUnits)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTranslateError(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(t *testing.T, err error)
	}{
		{"nil stays nil", nil, func(t *testing.T, err error) { assert.NoError(t, err) }},
		{"record not found", gorm.ErrRecordNotFound, func(t *testing.T, err error) {
			assert.True(t, shared.IsNotFound(err))
		}},
		{"deadlock", &pgconn.PgError{Code: "40P01"}, func(t *testing.T, err error) {
			assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
		}},
		{"duplicate key", gorm.ErrDuplicatedKey, func(t *testing.T, err error) {
			assert.True(t, shared.IsConflict(err))
		}},
		{"domain error passes through", shared.NewValidationError("bad"), func(t *testing.T, err error) {
			assert.True(t, shared.IsValidation(err))
			assert.Equal(t, "bad", err.Error())
		}},
		{"other errors are wrapped", errors.New("disk full"), func(t *testing.T, err error) {
			assert.EqualError(t, err, "save item: disk full")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, translateError("save item", tt.err))
		})
	}
}
