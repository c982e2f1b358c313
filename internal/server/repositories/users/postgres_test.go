package users

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/anonrelay/internal/common"
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

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^INSERT\s+INTO\s+users\s*\(external_id,\s*code,\s*display_name\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3\)\s*ON\s+CONFLICT\s*\(external_id\)\s+DO\s+NOTHING\s*RETURNING\s+id,\s*is_active,\s*created_at\s*$`

	rows := sqlmock.NewRows([]string{"id", "is_active", "created_at"}).AddRow(int64(42), true, time.Now())
	mock.ExpectQuery(q).
		WithArgs("tg:100", "Ab3dEf7h", "alice").
		WillReturnRows(rows)

	u := &models.User{ExternalID: "tg:100", Code: "Ab3dEf7h", DisplayName: "alice"}
	got, err := repo.Create(context.Background(), u)
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if got.ID != 42 || !got.Active {
		t.Fatalf("unexpected user: %+v", got)
	}
}

func TestCreate_LostRace(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"id", "is_active", "created_at"})
	mock.ExpectQuery(`(?s)INSERT\s+INTO\s+users.*ON\s+CONFLICT\s*\(external_id\)\s+DO\s+NOTHING`).
		WithArgs("tg:100", "Ab3dEf7h", "alice").
		WillReturnRows(rows)

	_, err := repo.Create(context.Background(), &models.User{ExternalID: "tg:100", Code: "Ab3dEf7h", DisplayName: "alice"})
	if !errors.Is(err, common.ErrAlreadyExists) {
		t.Fatalf("want common.ErrAlreadyExists, got %v", err)
	}
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`INSERT\s+INTO\s+users`).
		WithArgs("tg:100", "Ab3dEf7h", "alice").
		WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), &models.User{ExternalID: "tg:100", Code: "Ab3dEf7h", DisplayName: "alice"})
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestGetByExternalID_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"id", "external_id", "code", "display_name", "is_active", "created_at"}).
		AddRow(int64(1), "tg:100", "Ab3dEf7h", "alice", true, time.Now())
	mock.ExpectQuery(`SELECT\s+id,\s*external_id,\s*code,\s*display_name,\s*is_active,\s*created_at\s+FROM\s+users\s+WHERE\s+external_id\s*=\s*\$1`).
		WithArgs("tg:100").
		WillReturnRows(rows)

	got, err := repo.GetByExternalID(context.Background(), "tg:100")
	if err != nil {
		t.Fatalf("GetByExternalID error: %v", err)
	}
	if got.ID != 1 || got.Code != "Ab3dEf7h" {
		t.Fatalf("unexpected user: %+v", got)
	}
}

func TestGetByCode_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT\s+id,.*FROM\s+users\s+WHERE\s+code\s*=\s*\$1`).
		WithArgs("nope1234").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByCode(context.Background(), "nope1234")
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("want common.ErrNotFound, got %v", err)
	}
}

func TestUpdateDisplayName_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE\s+users\s+SET\s+display_name\s*=\s*\$1\s+WHERE\s+id\s*=\s*\$2`).
		WithArgs("bob", int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.UpdateDisplayName(context.Background(), 7, "bob"); err != nil {
		t.Fatalf("UpdateDisplayName error: %v", err)
	}
}

func TestCodeExists(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT\s+EXISTS`).
		WithArgs("Ab3dEf7h").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := repo.CodeExists(context.Background(), "Ab3dEf7h")
	if err != nil {
		t.Fatalf("CodeExists error: %v", err)
	}
	if !ok {
		t.Fatalf("expected true")
	}
}
