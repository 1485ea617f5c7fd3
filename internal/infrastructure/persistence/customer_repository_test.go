package persistence

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/profilehub/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// newMockCustomerRepository creates a GormCustomerRepository with a mocked SQL connection
func newMockCustomerRepository(t *testing.T) (*GormCustomerRepository, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return NewGormCustomerRepository(gormDB), mock, mockDB
}

func customerRows(id, name, email string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "name", "email", "phone", "company", "status",
		"customer_since", "lifetime_value", "tags", "custom_fields",
		"created_at", "updated_at",
	}).AddRow(
		id, name, email, "", "", "active",
		now, decimal.NewFromInt(0), "", "",
		now, now,
	)
}

func TestGormCustomerRepository_FindByID(t *testing.T) {
	t.Run("finds existing customer", func(t *testing.T) {
		repo, mock, mockDB := newMockCustomerRepository(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT \* FROM "customers" WHERE id = \$1`).
			WithArgs("cust_1", 1).
			WillReturnRows(customerRows("cust_1", "Alice", "alice@example.com"))

		customer, err := repo.FindByID(context.Background(), "cust_1")

		assert.NoError(t, err)
		require.NotNil(t, customer)
		assert.Equal(t, "cust_1", customer.ID)
		assert.Equal(t, "alice@example.com", customer.Email)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns ErrNotFound for missing customer", func(t *testing.T) {
		repo, mock, mockDB := newMockCustomerRepository(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT \* FROM "customers" WHERE id = \$1`).
			WithArgs("cust_missing", 1).
			WillReturnError(gorm.ErrRecordNotFound)

		customer, err := repo.FindByID(context.Background(), "cust_missing")

		assert.Nil(t, customer)
		assert.Equal(t, shared.ErrNotFound, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormCustomerRepository_FindByEmail(t *testing.T) {
	t.Run("normalizes email before lookup", func(t *testing.T) {
		repo, mock, mockDB := newMockCustomerRepository(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT \* FROM "customers" WHERE email = \$1`).
			WithArgs("alice@example.com", 1).
			WillReturnRows(customerRows("cust_1", "Alice", "alice@example.com"))

		customer, err := repo.FindByEmail(context.Background(), "  Alice@Example.com ")

		assert.NoError(t, err)
		require.NotNil(t, customer)
		assert.Equal(t, "cust_1", customer.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects empty email", func(t *testing.T) {
		repo, _, mockDB := newMockCustomerRepository(t)
		defer mockDB.Close()

		customer, err := repo.FindByEmail(context.Background(), "")

		assert.Nil(t, customer)
		assert.Error(t, err)
	})
}

func TestGormCustomerRepository_IncrementLifetimeValue(t *testing.T) {
	t.Run("issues in-database increment", func(t *testing.T) {
		repo, mock, mockDB := newMockCustomerRepository(t)
		defer mockDB.Close()

		mock.ExpectExec(`UPDATE "customers" SET "lifetime_value"=lifetime_value \+ \$1,"updated_at"=\$2 WHERE id = \$3`).
			WithArgs(decimal.NewFromFloat(99.95), sqlmock.AnyArg(), "cust_1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.IncrementLifetimeValue(context.Background(), "cust_1", decimal.NewFromFloat(99.95))

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns ErrNotFound when no row matched", func(t *testing.T) {
		repo, mock, mockDB := newMockCustomerRepository(t)
		defer mockDB.Close()

		mock.ExpectExec(`UPDATE "customers" SET`).
			WithArgs(decimal.NewFromInt(10), sqlmock.AnyArg(), "cust_missing").
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.IncrementLifetimeValue(context.Background(), "cust_missing", decimal.NewFromInt(10))

		assert.Equal(t, shared.ErrNotFound, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
