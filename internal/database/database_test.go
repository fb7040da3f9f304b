package database_test

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deskindex/deskindex/internal/database"
)

const regclassQuery = `SELECT to_regclass('activity_logs') IS NOT NULL`

func TestHealthCheckPassesWhenActivityTableExists(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(regclassQuery)).
		WillReturnRows(sqlmock.NewRows([]string{"present"}).AddRow(true))

	require.NoError(t, database.HealthCheck(context.Background(), db))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHealthCheckReportsMissingTable(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(regclassQuery)).
		WillReturnRows(sqlmock.NewRows([]string{"present"}).AddRow(false))

	assert.ErrorIs(t, database.HealthCheck(context.Background(), db), database.ErrActivityTableMissing)
}

func TestHealthCheckWrapsQueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	down := errors.New("connection refused")
	mock.ExpectQuery(regexp.QuoteMeta(regclassQuery)).WillReturnError(down)

	assert.ErrorIs(t, database.HealthCheck(context.Background(), db), down)
}

func TestOpenRequiresURL(t *testing.T) {
	_, err := database.Open(context.Background(), "")
	assert.Error(t, err)
}
