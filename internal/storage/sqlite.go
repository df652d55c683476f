package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// slotRow is one slot in the kv_slots table. The postgres backend uses the
// same layout.
type slotRow struct {
	Key       string    `gorm:"column:slot_key;primaryKey"`
	Value     []byte    `gorm:"column:value;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (slotRow) TableName() string { return "kv_slots" }

// GormSlot stores the value in a kv_slots row through GORM.
type GormSlot struct {
	key string
	db  *gorm.DB
}

// OpenSQLite opens (creating if needed) a SQLite database and returns a slot
// stored in it. dsn is a file path or a SQLite URI such as
// "file::memory:?cache=shared".
func OpenSQLite(key, dsn string) (*GormSlot, error) {
	if !strings.HasPrefix(dsn, "file:") && dsn != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dsn, err)
	}
	return NewGormSlot(key, db)
}

// NewGormSlot returns a slot in an existing GORM database, migrating the
// kv_slots table.
func NewGormSlot(key string, db *gorm.DB) (*GormSlot, error) {
	if err := db.AutoMigrate(&slotRow{}); err != nil {
		return nil, fmt.Errorf("migrate kv_slots: %w", err)
	}
	return &GormSlot{key: key, db: db}, nil
}

func (g *GormSlot) Key() string { return g.key }

func (g *GormSlot) Read(ctx context.Context) ([]byte, error) {
	var row slotRow
	err := g.db.WithContext(ctx).Where("slot_key = ?", g.key).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSlotEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("read slot %s: %w", g.key, err)
	}
	return row.Value, nil
}

func (g *GormSlot) Write(ctx context.Context, data []byte) error {
	row := slotRow{Key: g.key, Value: data}
	err := g.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "slot_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("write slot %s: %w", g.key, err)
	}
	return nil
}

func (g *GormSlot) Close() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
