package postgres

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func newLikeRepoWithMock(t *testing.T) (*LikeRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return &LikeRepository{db: db}, mock, func() { _ = db.Close() }
}

func TestSaveLikeUsesConflictDoNothing(t *testing.T) {
	repo, mock, done := newLikeRepoWithMock(t)
	defer done()

	mock.ExpectExec("INSERT INTO watch_history").
		WithArgs(int64(10), int64(3), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.SaveLike(context.Background(), 10, 3); err != nil {
		t.Fatalf("SaveLike() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestDeleteLikeAbsentRowIsNoError(t *testing.T) {
	repo, mock, done := newLikeRepoWithMock(t)
	defer done()

	mock.ExpectExec("DELETE FROM watch_history").
		WithArgs(int64(10), int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.DeleteLike(context.Background(), 10, 3); err != nil {
		t.Fatalf("DeleteLike() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestListLikesScansPairs(t *testing.T) {
	repo, mock, done := newLikeRepoWithMock(t)
	defer done()

	rows := sqlmock.NewRows([]string{"user_id", "tmdb_id"}).
		AddRow(int64(10), int64(1)).
		AddRow(int64(20), int64(3))
	mock.ExpectQuery("SELECT user_id, tmdb_id").WillReturnRows(rows)

	likes, err := repo.ListLikes(context.Background())
	if err != nil {
		t.Fatalf("ListLikes() error = %v", err)
	}
	if len(likes) != 2 || likes[0].UserID != 10 || likes[1].MovieID != 3 {
		t.Fatalf("unexpected likes: %+v", likes)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
