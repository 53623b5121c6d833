package kv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Document 一個 key 一筆資料
type Document struct {
	Key       string `gorm:"primaryKey;type:varchar(128)"`
	Value     []byte `gorm:"type:bytea;not null"`
	UpdatedAt time.Time
}

func (Document) TableName() string {
	return "kv_documents"
}

func GetDbConn(dbname, host, port, user, pas string) (*gorm.DB, error) {
	dsn := fmt.Sprintf("user=%s password=%s host=%s port=%s dbname=%s sslmode=disable", user, pas, host, port, dbname)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	return db, nil
}

type DBStore struct {
	*gorm.DB
}

var _ IStore = (*DBStore)(nil)

func NewDBStore(conn *gorm.DB) *DBStore {
	if conn == nil {
		panic("db conn is nil")
	}
	return &DBStore{DB: conn}
}

// 初始化db schema
// 冪等性
func (d *DBStore) InitMigrate() error {
	return d.AutoMigrate(&Document{})
}

func (d *DBStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if key == "" {
		return nil, false, ErrEmptyKey
	}
	var doc Document
	err := d.WithContext(ctx).Where("key = ?", key).First(&doc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("db get %s failed: %w", key, err)
	}
	return doc.Value, true, nil
}

// Set upsert，整份覆蓋
func (d *DBStore) Set(ctx context.Context, key string, value []byte) error {
	if key == "" {
		return ErrEmptyKey
	}
	doc := Document{Key: key, Value: value, UpdatedAt: time.Now()}
	err := d.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&doc).Error
	if err != nil {
		return fmt.Errorf("db set %s failed: %w", key, err)
	}
	return nil
}
