package repository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/sjperalta/advance-portal/internal/models"
)

func mockPostgres(t *testing.T) (BorrowerRepository, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger:                 logger.Discard,
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	return NewBorrowerRepository(db), mock
}

func borrowerRow(id int64, appNo string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "application_no", "emp_id", "status"}).
		AddRow(id, appNo, "E1", models.BorrowerStatusActive)
}

func TestBorrowerRepository_LockingReadsForUpdate(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name  string
		query string
		call  func(repo BorrowerRepository) (*models.Borrower, error)
	}{
		{
			name:  "active by application number",
			query: `SELECT \* FROM "borrowers" WHERE \(?application_no = \$1 AND status = \$2\)?.* FOR UPDATE$`,
			call: func(repo BorrowerRepository) (*models.Borrower, error) {
				return repo.FindActiveByApplicationNoForUpdate(ctx, "APP000007")
			},
		},
		{
			name:  "oldest active of employee",
			query: `SELECT \* FROM "borrowers" WHERE \(?emp_id = \$1 AND status = \$2\)? ORDER BY created_at ASC,\s*id ASC.* FOR UPDATE$`,
			call: func(repo BorrowerRepository) (*models.Borrower, error) {
				return repo.FindOldestActiveByEmployeeForUpdate(ctx, "E1")
			},
		},
		{
			name:  "by id",
			query: `SELECT \* FROM "borrowers" WHERE "borrowers"\."id" = \$1.* FOR UPDATE$`,
			call: func(repo BorrowerRepository) (*models.Borrower, error) {
				return repo.FindByIDForUpdate(ctx, 7)
			},
		},
		{
			name:  "by application number",
			query: `SELECT \* FROM "borrowers" WHERE application_no = \$1.* FOR UPDATE$`,
			call: func(repo BorrowerRepository) (*models.Borrower, error) {
				return repo.FindByApplicationNoForUpdate(ctx, "APP000007")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := mockPostgres(t)
			mock.ExpectQuery(tt.query).WillReturnRows(borrowerRow(7, "APP000007"))

			borrower, err := tt.call(repo)
			require.NoError(t, err)
			assert.EqualValues(t, 7, borrower.ID)
			assert.Equal(t, "APP000007", borrower.ApplicationNo)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
