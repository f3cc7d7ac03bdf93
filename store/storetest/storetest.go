// Package storetest provides an in-memory SQLite store for tests.
package storetest

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/knowledgenexus/forum/models"
	"github.com/knowledgenexus/forum/store"
)

var seq atomic.Int64

// New opens a fresh, migrated in-memory database and closes it when the test ends.
// The pool holds a single connection, so code under test must use the tx it is given
// inside WithTx.
func New(t testing.TB) *store.GormStore {
	t.Helper()
	dsn := fmt.Sprintf("file:nexus_test_%d?mode=memory&cache=shared", seq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	s := store.NewGormStore(db)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// MustUser creates a user with the given name and role.
func MustUser(t testing.TB, s store.Store, username, role string) *models.User {
	t.Helper()
	u := &models.User{Username: username, Email: username + "@example.com", Role: role}
	if err := s.Users().Create(context.Background(), u); err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return u
}
