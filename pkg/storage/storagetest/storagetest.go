// Package storagetest поднимает схему в SQLite в памяти для тестов.
package storagetest

import (
	"context"
	"testing"
	"time"

	"discuss_go/models"
	"discuss_go/pkg/storage"
)

// Epoch — время создания первых тестовых записей.
var Epoch = time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)

// Open возвращает мигрированную пустую базу. Закрывается в t.Cleanup.
func Open(t testing.TB) *storage.DB {
	t.Helper()
	ctx := context.Background()
	db, err := storage.Open(ctx, storage.DialectSQLite, ":memory:")
	if err != nil {
		t.Fatalf("не удалось открыть sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("миграция не прошла: %v", err)
	}
	return db
}

// User регистрирует пользователя с id и username, равными id.
func User(t testing.TB, db *storage.DB, id string) {
	t.Helper()
	if _, err := db.CreateUser(context.Background(), models.User{ID: id, Username: id, CreatedAt: Epoch}); err != nil {
		t.Fatalf("создание пользователя %s: %v", id, err)
	}
}

// Post создаёт пост вместе с рёбрами lineage. parent == 0 — корневой пост.
// minute задаёт время создания относительно Epoch.
func Post(t testing.TB, db *storage.DB, author string, parent int64, minute int) models.Post {
	t.Helper()
	p := models.Post{
		AuthorID:  author,
		Content:   "post",
		CreatedAt: Epoch.Add(time.Duration(minute) * time.Minute),
	}
	if parent != 0 {
		p.ParentID = &parent
	}
	var created *models.Post
	err := db.WithTx(context.Background(), func(q *storage.Queries) error {
		var err error
		if created, err = q.CreatePost(context.Background(), p); err != nil {
			return err
		}
		if parent != 0 {
			return q.InsertLineage(context.Background(), parent, created.ID)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("создание поста: %v", err)
	}
	return *created
}
