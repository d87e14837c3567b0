package persistence

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newPingableDatabase(t *testing.T) (*Database, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: conn, DriverName: "postgres"}),
		&gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	return &Database{DB: db}, mock
}

func TestDatabase_Ping(t *testing.T) {
	tests := []struct {
		name    string
		pingErr error
	}{
		{"database answers", nil},
		{"database down", assert.AnError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newPingableDatabase(t)
			mock.ExpectPing().WillReturnError(tt.pingErr)
			mock.ExpectClose()

			err := db.Ping(context.Background())
			if tt.pingErr != nil {
				assert.ErrorIs(t, err, tt.pingErr)
			} else {
				assert.NoError(t, err)
			}
			require.NoError(t, db.Close())
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestIsPostgres(t *testing.T) {
	db, _ := newPingableDatabase(t)

	assert.True(t, isPostgres(db.DB))
	assert.False(t, isPostgres(newSQLiteDB(t)))
}
