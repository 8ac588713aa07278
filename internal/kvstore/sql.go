package kvstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Record is one row of the SQL-backed store.
type Record struct {
	Key       string    `gorm:"column:doc_key;primaryKey;size:255"`
	Payload   []byte    `gorm:"column:payload;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

// TableName specifies the table name for GORM
func (Record) TableName() string {
	return "kv_records"
}

// Migrate creates or updates the kv_records table.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&Record{}); err != nil {
		return fmt.Errorf("migrate kv_records: %w", err)
	}
	return nil
}

// SQLStore implements Store on a gorm connection (SQLite or PostgreSQL).
// Keys are stored with the namespace prefix so several stores can share a table.
type SQLStore struct {
	db        *gorm.DB
	namespace string
}

// NewSQLStore returns a store over db. The kv_records table must exist (see Migrate).
func NewSQLStore(db *gorm.DB, namespace string) *SQLStore {
	return &SQLStore{db: db, namespace: namespace}
}

func (s *SQLStore) Get(ctx context.Context, key string) ([]byte, error) {
	var rec Record
	err := s.db.WithContext(ctx).Where("doc_key = ?", s.namespace+key).Take(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrKeyNotFound
		}
		return nil, err
	}
	return rec.Payload, nil
}

func (s *SQLStore) Put(ctx context.Context, key string, value []byte) error {
	rec := Record{Key: s.namespace + key, Payload: value, UpdatedAt: time.Now().UTC()}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "doc_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
	}).Create(&rec).Error
}

func (s *SQLStore) Delete(ctx context.Context, key string) error {
	return s.db.WithContext(ctx).Where("doc_key = ?", s.namespace+key).Delete(&Record{}).Error
}

func (s *SQLStore) List(ctx context.Context) ([]string, error) {
	var raw []string
	if err := s.db.WithContext(ctx).Model(&Record{}).
		Where("doc_key LIKE ?", s.namespace+"%").
		Pluck("doc_key", &raw).Error; err != nil {
		return nil, err
	}
	// LIKE treats '_' as a wildcard, so filter on the exact prefix again.
	keys := make([]string, 0, len(raw))
	for _, k := range raw {
		if strings.HasPrefix(k, s.namespace) {
			keys = append(keys, strings.TrimPrefix(k, s.namespace))
		}
	}
	return keys, nil
}

func (s *SQLStore) Stats(ctx context.Context) (Stats, error) {
	var row struct {
		KeyCount  int
		ByteCount int
	}
	err := s.db.WithContext(ctx).Raw(
		"SELECT COUNT(*) AS key_count, COALESCE(SUM(LENGTH(payload)), 0) AS byte_count FROM kv_records WHERE doc_key LIKE ?",
		s.namespace+"%",
	).Scan(&row).Error
	if err != nil {
		return Stats{}, err
	}
	return Stats{Keys: row.KeyCount, Bytes: row.ByteCount}, nil
}

// Close closes the underlying database handle.
func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
