// Package testutil помощники для тестов клиента
package testutil

import (
	"context"
	"database/sql"
	"testing"

	"edusync/internal/app/client/localdb"
)

// PupilServerID серверный id ученика, которого засевает NewTestDB
const PupilServerID int64 = 42

// NewTestDB БД в памяти со схемой и единственным пользователем.
// Закрывается автоматически по завершении теста.
func NewTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db := NewEmptyDB(t)
	if err := localdb.SaveUser(context.Background(), db, localdb.User{
		ServerID: PupilServerID,
		FullName: "Test Pupil",
		Role:     "pupil",
	}); err != nil {
		t.Fatalf("failed to save user: %v", err)
	}
	return db
}

// NewEmptyDB БД в памяти со схемой, но без пользователя
func NewEmptyDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := localdb.Open(localdb.Memory)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})

	if err := localdb.Initialize(context.Background(), db, nil); err != nil {
		t.Fatalf("failed to initialize schema: %v", err)
	}
	return db
}
