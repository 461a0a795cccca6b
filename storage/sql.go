package storage

import (
	"errors"
	"fmt"
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

type kvRecord struct {
	Key   []byte `gorm:"column:entry_key;primaryKey"`
	Value []byte `gorm:"column:entry_value;not null"`
}

func (kvRecord) TableName() string { return "registry_kv" }

// SQLDB keeps the key space in a single two-column table. Postgres DSNs
// (postgres:// or postgresql://) select the postgres driver; anything else is
// handed to the pure Go sqlite driver.
type SQLDB struct {
	db *gorm.DB
}

// NewSQLDB opens the database behind dsn and migrates the kv table.
func NewSQLDB(dsn string) (*SQLDB, error) {
	trimmed := strings.TrimSpace(dsn)
	if trimmed == "" {
		return nil, errors.New("storage: sql dsn required")
	}
	var dialector gorm.Dialector
	lower := strings.ToLower(trimmed)
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		dialector = postgres.Open(trimmed)
	} else {
		dialector = sqlite.Open(trimmed)
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("storage: open sql: %w", err)
	}
	if err := db.AutoMigrate(&kvRecord{}); err != nil {
		return nil, fmt.Errorf("storage: migrate sql: %w", err)
	}
	return &SQLDB{db: db}, nil
}

func upsert(tx *gorm.DB, key, value []byte) error {
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "entry_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"entry_value"}),
	}).Create(&kvRecord{Key: key, Value: value}).Error
}

func (s *SQLDB) Put(key []byte, value []byte) error {
	return upsert(s.db, key, value)
}

func (s *SQLDB) Get(key []byte) ([]byte, error) {
	var row kvRecord
	err := s.db.Where("entry_key = ?", key).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return row.Value, nil
}

func (s *SQLDB) Delete(key []byte) error {
	return s.db.Where("entry_key = ?", key).Delete(&kvRecord{}).Error
}

func (s *SQLDB) NewBatch() Batch {
	return &opBatch{apply: func(ops []batchOp) error {
		return s.db.Transaction(func(tx *gorm.DB) error {
			for _, op := range ops {
				if op.delete {
					if err := tx.Where("entry_key = ?", op.key).Delete(&kvRecord{}).Error; err != nil {
						return err
					}
					continue
				}
				if err := upsert(tx, op.key, op.value); err != nil {
					return err
				}
			}
			return nil
		})
	}}
}

func (s *SQLDB) Close() {
	if sqlDB, err := s.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
