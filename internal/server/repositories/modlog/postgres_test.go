package modlog

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/anonrelay/internal/server/models"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func TestCreate_FillsIDAndCreatedAt(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	messageID := int64(9)
	entry := &models.ModLogEntry{
		ModeratorID: 1,
		Action:      models.ModActionApprove,
		MessageID:   &messageID,
	}

	created := time.Now()
	mock.ExpectQuery(`INSERT INTO mod_log`).
		WithArgs(entry.ModeratorID, entry.Action, messageID, nil, "").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(4), created))

	if err := repo.Create(context.Background(), entry); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if entry.ID != 4 {
		t.Fatalf("id mismatch: got %d", entry.ID)
	}
	if !entry.CreatedAt.Equal(created) {
		t.Fatalf("created_at mismatch: %v", entry.CreatedAt)
	}
}

func TestList_ScansNullableColumns(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"id", "moderator_id", "action", "message_id", "target_user_id", "details", "created_at"}).
		AddRow(int64(2), int64(1), "block", nil, int64(8), "until tomorrow", time.Now()).
		AddRow(int64(1), int64(1), "approve", int64(3), nil, "", time.Now())
	mock.ExpectQuery(`SELECT id, moderator_id, action, message_id, target_user_id, details, created_at FROM mod_log`).
		WithArgs(50).
		WillReturnRows(rows)

	entries, err := repo.List(context.Background(), 50)
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("want 2 entries, got %d", len(entries))
	}
	if entries[0].TargetUserID == nil || *entries[0].TargetUserID != 8 {
		t.Fatalf("target user mismatch: %+v", entries[0])
	}
	if entries[1].MessageID == nil || *entries[1].MessageID != 3 {
		t.Fatalf("message id mismatch: %+v", entries[1])
	}
}

func TestList_QueryError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT id, moderator_id, action`).
		WillReturnError(sql.ErrConnDone)

	if _, err := repo.List(context.Background(), 10); err == nil {
		t.Fatalf("expected error")
	}
}
