// Package testutil holds helpers shared by package tests.
package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"inmuebles_backend/internal/model"
)

// NewDB returns a migrated in-memory SQLite database. The pool is pinned to
// one connection because every :memory: connection is a separate database.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get database handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := db.AutoMigrate(model.All()...); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	return db
}

// PropertyOption customizes a property before it is inserted.
type PropertyOption func(*model.Property)

var seq int

// CreateProperty inserts a public sale listing priced at price, with
// distinct codes and increasing creation times.
func CreateProperty(t *testing.T, db *gorm.DB, price int64, opts ...PropertyOption) *model.Property {
	t.Helper()

	seq++
	p := &model.Property{
		CompanyID: 1,
		Name:      fmt.Sprintf("Propiedad %d", seq),
		Code:      fmt.Sprintf("INM-%04d", seq),
		Price:     decimal.NewFromInt(price),
		Operation: model.OperationSale,
		IsPublic:  true,
		CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(seq) * time.Minute),
	}
	for _, opt := range opts {
		opt(p)
	}
	if err := db.Create(p).Error; err != nil {
		t.Fatalf("Failed to create property: %v", err)
	}
	return p
}

func Int(v int) *int { return &v }

func Str(v string) *string { return &v }

func Uint(v uint) *uint { return &v }
