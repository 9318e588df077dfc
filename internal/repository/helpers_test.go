package repository

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	t.Cleanup(func() {
		_ = sqlxDB.Close()
	})
	return sqlxDB, mock
}

const (
	fixtureTestID     = "6f1c2a4e-3b0d-4c8a-9e57-1a2b3c4d5e6f"
	fixtureScheduleID = "0b7e9d2c-5a41-4f3e-8c6d-2e1f0a9b8c7d"
	fixtureBookingID  = "c3d4e5f6-a7b8-4c9d-8e0f-112233445566"
	fixtureMissingID  = "9a8b7c6d-5e4f-4a3b-9c2d-1e0f99887766"
)
