package voucher

import (
	"regexp"
	"testing"

	"rental-backend/internal/testutil"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

func TestNextIsSequentialPerKindAndYear(t *testing.T) {
	db := testutil.NewDB(t)

	next := func(k Kind, year int) string {
		var out string
		require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
			var err error
			out, err = Next(tx, k, year)
			return err
		}))
		return out
	}

	assert.Equal(t, "PAY-2024-0001", next(Payment, 2024))
	assert.Equal(t, "PAY-2024-0002", next(Payment, 2024))
	assert.Equal(t, "EXP-2024-0001", next(Expense, 2024))
	assert.Equal(t, "PAY-2025-0001", next(Payment, 2025))
}

func TestNextRolledBackNumberIsReused(t *testing.T) {
	db := testutil.NewDB(t)

	_ = db.Transaction(func(tx *gorm.DB) error {
		n, err := Next(tx, Payment, 2024)
		require.NoError(t, err)
		assert.Equal(t, "PAY-2024-0001", n)
		return assert.AnError
	})

	var n string
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		var err error
		n, err = Next(tx, Payment, 2024)
		return err
	}))
	assert.Equal(t, "PAY-2024-0001", n)
}

func TestNextLocksSequenceRowOnPostgres(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FOR UPDATE`)).
		WillReturnRows(sqlmock.NewRows([]string{"kind", "year", "last"}).AddRow("payment", 2024, 7))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "voucher_sequences" SET "last"=$1`)).
		WithArgs(8, "payment", 2024).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	var got string
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		got, err = Next(tx, Payment, 2024)
		return err
	}))
	assert.Equal(t, "PAY-2024-0008", got)
	assert.NoError(t, mock.ExpectationsWereMet())
}
