package mysql_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-faker/faker/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sqlmock "gopkg.in/DATA-DOG/go-sqlmock.v1"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/Guyuepp/card-gallery-likes/domain"
	mysqlRepo "github.com/Guyuepp/card-gallery-likes/internal/repository/mysql"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(gormmysql.New(gormmysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	return db, mock
}

func fakeLike() domain.CardLike {
	return domain.CardLike{
		SessionID: faker.UUIDHyphenated(),
		CardPath:  "cards/" + faker.Word() + ".png",
	}
}

func TestCountByCard(t *testing.T) {
	db, mock := newMockDB(t)
	rows := sqlmock.NewRows([]string{"card_path", "count"}).
		AddRow("cards/pikachu.png", 3).
		AddRow("cards/eevee.png", 1)
	mock.ExpectQuery("SELECT card_path, COUNT\\(\\*\\) AS count FROM `card_likes`").WillReturnRows(rows)

	repo := mysqlRepo.NewCardLikeRepository(db)
	res, err := repo.CountByCard(context.TODO())
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"cards/pikachu.png": 3, "cards/eevee.png": 1}, res)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountByCardError(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery("SELECT card_path, COUNT\\(\\*\\) AS count FROM `card_likes`").
		WillReturnError(errors.New("connection refused"))

	repo := mysqlRepo.NewCardLikeRepository(db)
	_, err := repo.CountByCard(context.TODO())
	assert.Error(t, err)
}

func TestCountForCard(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `card_likes` WHERE card_path = \\?").
		WithArgs("cards/mew.png").
		WillReturnRows(sqlmock.NewRows([]string{"count(*)"}).AddRow(5))

	repo := mysqlRepo.NewCardLikeRepository(db)
	n, err := repo.CountForCard(context.TODO(), "cards/mew.png")
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFetchLikedCards(t *testing.T) {
	db, mock := newMockDB(t)
	like := fakeLike()
	mock.ExpectQuery("SELECT `card_path` FROM `card_likes` WHERE session_id = \\?").
		WithArgs(like.SessionID).
		WillReturnRows(sqlmock.NewRows([]string{"card_path"}).AddRow(like.CardPath).AddRow("cards/other.png"))

	repo := mysqlRepo.NewCardLikeRepository(db)
	res, err := repo.FetchLikedCards(context.TODO(), like.SessionID)
	require.NoError(t, err)
	assert.Equal(t, []string{like.CardPath, "cards/other.png"}, res)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountSince(t *testing.T) {
	db, mock := newMockDB(t)
	since := time.Now().Add(-domain.LikeWindow)
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `card_likes` WHERE session_id = \\? AND created_at > \\?").
		WithArgs("session-1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"count(*)"}).AddRow(4))

	repo := mysqlRepo.NewCardLikeRepository(db)
	n, err := repo.CountSince(context.TODO(), "session-1", since)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

const (
	lockSessionSQL = "INSERT INTO `card_like_sessions` .*ON DUPLICATE KEY UPDATE"
	existsSQL      = "SELECT count\\(\\*\\) FROM `card_likes` WHERE session_id = \\? AND card_path = \\?"
	countSinceSQL  = "SELECT count\\(\\*\\) FROM `card_likes` WHERE session_id = \\? AND created_at > \\?"
	insertLikeSQL  = "INSERT INTO `card_likes` .*ON DUPLICATE KEY UPDATE"
)

func TestInsertWithinLimit(t *testing.T) {
	since := time.Now().Add(-domain.LikeWindow)

	t.Run("new like", func(t *testing.T) {
		db, mock := newMockDB(t)
		like := fakeLike()
		mock.ExpectBegin()
		mock.ExpectExec(lockSessionSQL).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(existsSQL).
			WithArgs(like.SessionID, like.CardPath).
			WillReturnRows(sqlmock.NewRows([]string{"count(*)"}).AddRow(0))
		mock.ExpectQuery(countSinceSQL).
			WithArgs(like.SessionID, sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"count(*)"}).AddRow(3))
		mock.ExpectExec(insertLikeSQL).WillReturnResult(sqlmock.NewResult(12, 1))
		mock.ExpectCommit()

		repo := mysqlRepo.NewCardLikeRepository(db)
		inserted, err := repo.InsertWithinLimit(context.TODO(), like, since, domain.MaxUserLikesPerDay)
		require.NoError(t, err)
		assert.True(t, inserted)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("already liked skips the limit", func(t *testing.T) {
		db, mock := newMockDB(t)
		like := fakeLike()
		mock.ExpectBegin()
		mock.ExpectExec(lockSessionSQL).WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectQuery(existsSQL).
			WithArgs(like.SessionID, like.CardPath).
			WillReturnRows(sqlmock.NewRows([]string{"count(*)"}).AddRow(1))
		mock.ExpectCommit()

		repo := mysqlRepo.NewCardLikeRepository(db)
		inserted, err := repo.InsertWithinLimit(context.TODO(), like, since, domain.MaxUserLikesPerDay)
		require.NoError(t, err)
		assert.False(t, inserted)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("limit reached rolls back", func(t *testing.T) {
		db, mock := newMockDB(t)
		like := fakeLike()
		mock.ExpectBegin()
		mock.ExpectExec(lockSessionSQL).WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectQuery(existsSQL).
			WithArgs(like.SessionID, like.CardPath).
			WillReturnRows(sqlmock.NewRows([]string{"count(*)"}).AddRow(0))
		mock.ExpectQuery(countSinceSQL).
			WithArgs(like.SessionID, sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"count(*)"}).AddRow(domain.MaxUserLikesPerDay))
		mock.ExpectRollback()

		repo := mysqlRepo.NewCardLikeRepository(db)
		inserted, err := repo.InsertWithinLimit(context.TODO(), like, since, domain.MaxUserLikesPerDay)
		assert.ErrorIs(t, err, domain.ErrRateLimited)
		assert.False(t, inserted)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("storage error rolls back", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectBegin()
		mock.ExpectExec(lockSessionSQL).WillReturnError(errors.New("lock wait timeout"))
		mock.ExpectRollback()

		repo := mysqlRepo.NewCardLikeRepository(db)
		_, err := repo.InsertWithinLimit(context.TODO(), fakeLike(), since, domain.MaxUserLikesPerDay)
		assert.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDelete(t *testing.T) {
	db, mock := newMockDB(t)
	like := fakeLike()
	mock.ExpectExec("DELETE FROM `card_likes` WHERE session_id = \\? AND card_path = \\?").
		WithArgs(like.SessionID, like.CardPath).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM `card_likes` WHERE session_id = \\? AND card_path = \\?").
		WithArgs(like.SessionID, like.CardPath).
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := mysqlRepo.NewCardLikeRepository(db)
	removed, err := repo.Delete(context.TODO(), like)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = repo.Delete(context.TODO(), like)
	require.NoError(t, err)
	assert.False(t, removed)
	assert.NoError(t, mock.ExpectationsWereMet())
}
