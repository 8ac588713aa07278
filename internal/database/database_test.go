package database

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"cliqd/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestConnect_SQLite(t *testing.T) {
	cfg := &config.Config{
		StoreDriver: config.DriverSQLite,
		StorePath:   filepath.Join(t.TempDir(), "cliqd.db"),
		LogLevel:    "warn",
	}

	db, err := Connect(cfg)
	require.NoError(t, err)

	assert.True(t, db.Migrator().HasTable("kv_records"))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 1, sqlDB.Stats().MaxOpenConnections)
	assert.NoError(t, sqlDB.Close())
}

func TestConnect_RejectsNonSQLDriver(t *testing.T) {
	_, err := Connect(&config.Config{StoreDriver: config.DriverRedis})
	assert.Error(t, err)
}

func TestCustomGormLogger_Trace(t *testing.T) {
	tests := []struct {
		name     string
		level    logger.LogLevel
		err      error
		elapsed  time.Duration
		contains string
		empty    bool
	}{
		{"Query error", logger.Warn, errors.New("syntax error"), 0, "GORM query error", false},
		{"Record not found is ignored", logger.Warn, gorm.ErrRecordNotFound, 0, "", true},
		{"Slow query", logger.Warn, nil, time.Second, "GORM slow query", false},
		{"Info logs every query", logger.Info, nil, 0, "GORM query", false},
		{"Silent", logger.Silent, errors.New("boom"), 0, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			l := NewGormLogger(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})), tt.level)

			l.Trace(context.Background(), time.Now().Add(-tt.elapsed), func() (string, int64) {
				return "SELECT 1", 1
			}, tt.err)

			if tt.empty {
				assert.Empty(t, buf.String())
			} else {
				assert.Contains(t, buf.String(), tt.contains)
				assert.Contains(t, buf.String(), "SELECT 1")
			}
		})
	}
}
