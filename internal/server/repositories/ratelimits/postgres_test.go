package ratelimits

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/anonrelay/internal/common"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func TestGet_NoRow(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT\s+user_id,\s*message_count,`).
		WithArgs(int64(1)).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), 1)
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("want common.ErrNotFound, got %v", err)
	}
}

func TestGet_BlockedRow(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	until := time.Now().Add(time.Hour)
	rows := sqlmock.NewRows([]string{"user_id", "message_count", "window_start", "is_blocked", "blocked_until"}).
		AddRow(int64(1), 5, time.Now(), true, until)
	mock.ExpectQuery(`SELECT\s+user_id,\s*message_count,`).
		WithArgs(int64(1)).
		WillReturnRows(rows)

	state, err := repo.Get(context.Background(), 1)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if !state.IsBlocked || state.BlockedUntil == nil {
		t.Fatalf("expected blocked state, got %+v", state)
	}
}

func TestIncrement_ReturnsNewCount(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`UPDATE\s+rate_limits\s+SET\s+message_count\s*=\s*message_count\s*\+\s*1.*RETURNING\s+message_count`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"message_count"}).AddRow(4))

	count, err := repo.Increment(context.Background(), 1)
	if err != nil {
		t.Fatalf("Increment error: %v", err)
	}
	if count != 4 {
		t.Fatalf("expected 4, got %d", count)
	}
}

func TestBlock_Upsert(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	until := time.Now().Add(24 * time.Hour)
	mock.ExpectExec(`INSERT\s+INTO\s+rate_limits.*ON\s+CONFLICT\s+\(user_id\)\s+DO\s+UPDATE`).
		WithArgs(int64(1), until).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Block(context.Background(), 1, until); err != nil {
		t.Fatalf("Block error: %v", err)
	}
}

func TestResetWindow_ClearsBlock(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	start := time.Now()
	mock.ExpectExec(`UPDATE\s+rate_limits\s+SET\s+message_count\s*=\s*1,\s*window_start\s*=\s*\$1,\s*is_blocked\s*=\s*FALSE`).
		WithArgs(start, int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.ResetWindow(context.Background(), 1, start); err != nil {
		t.Fatalf("ResetWindow error: %v", err)
	}
}

func TestUnblock(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE\s+rate_limits\s+SET\s+is_blocked\s*=\s*FALSE,\s*blocked_until\s*=\s*NULL`).
		WithArgs(int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Unblock(context.Background(), 1); err != nil {
		t.Fatalf("Unblock error: %v", err)
	}
}
