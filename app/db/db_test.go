package database

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/url"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/alpine-guide/config"
	"github.com/FACorreiaa/alpine-guide/internal/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWaitForDB(t *testing.T) {
	t.Run("ready after a failed ping", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()
		mock.ExpectPing().WillReturnError(errors.New("connection refused"))
		mock.ExpectPing()

		assert.True(t, WaitForDB(context.Background(), mock, testLogger()))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("gives up when cancelled", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()
		mock.ExpectPing().WillReturnError(errors.New("connection refused"))

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.False(t, WaitForDB(ctx, mock, testLogger()))
	})
}

func TestNewDatabaseConfig(t *testing.T) {
	var cfg config.Config
	_, err := NewDatabaseConfig(&cfg, testLogger())
	assert.ErrorIs(t, err, types.ErrConfiguration)

	cfg.Repositories.Postgres.Host = "db"
	cfg.Repositories.Postgres.Port = "5432"
	cfg.Repositories.Postgres.Username = "alpine"
	cfg.Repositories.Postgres.Password = "p@ss"
	cfg.Repositories.Postgres.DB = "alpine_guide"

	dbCfg, err := NewDatabaseConfig(&cfg, testLogger())
	require.NoError(t, err)
	u, err := url.Parse(dbCfg.ConnectionURL)
	require.NoError(t, err)
	assert.Equal(t, "postgresql", u.Scheme)
	assert.Equal(t, "db:5432", u.Host)
	assert.Equal(t, "disable", u.Query().Get("sslmode"))
	pw, _ := u.User.Password()
	assert.Equal(t, "p@ss", pw)
}

func TestRunMigrations_RejectsScheme(t *testing.T) {
	err := RunMigrations("mysql://localhost/db", testLogger())
	assert.ErrorIs(t, err, types.ErrConfiguration)
}
