package mysql

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Guyuepp/card-gallery-likes/domain"
	"github.com/Guyuepp/card-gallery-likes/internal/repository/mysql/model"
	"github.com/sirupsen/logrus"
)

type cardLikeRepository struct {
	DB *gorm.DB

	mu       sync.Mutex
	migrated bool
}

var _ domain.CardLikeRepository = (*cardLikeRepository)(nil)

// NewCardLikeRepository 创建点赞记录的数据库操作层
func NewCardLikeRepository(db *gorm.DB) *cardLikeRepository {
	return &cardLikeRepository{DB: db}
}

// EnsureSchema runs AutoMigrate once per process. A failed migration is retried
// on the next call.
func (m *cardLikeRepository) EnsureSchema(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.migrated {
		return nil
	}

	if err := m.DB.WithContext(ctx).AutoMigrate(&model.CardLike{}, &model.CardLikeSession{}); err != nil {
		return fmt.Errorf("migrate card_likes: %w", err)
	}
	m.migrated = true
	logrus.Info("card_likes schema is ready")
	return nil
}

type cardCount struct {
	CardPath string
	Count    int64
}

func (m *cardLikeRepository) CountByCard(ctx context.Context) (map[string]int64, error) {
	var rows []cardCount
	err := m.DB.WithContext(ctx).
		Model(&model.CardLike{}).
		Select("card_path, COUNT(*) AS count").
		Group("card_path").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	res := make(map[string]int64, len(rows))
	for _, row := range rows {
		res[row.CardPath] = row.Count
	}
	return res, nil
}

func (m *cardLikeRepository) CountForCard(ctx context.Context, cardPath string) (int64, error) {
	var count int64
	err := m.DB.WithContext(ctx).
		Model(&model.CardLike{}).
		Where("card_path = ?", cardPath).
		Count(&count).Error
	return count, err
}

func (m *cardLikeRepository) FetchLikedCards(ctx context.Context, sessionID string) ([]string, error) {
	var res []string
	err := m.DB.WithContext(ctx).
		Model(&model.CardLike{}).
		Where("session_id = ?", sessionID).
		Pluck("card_path", &res).Error
	return res, err
}

func (m *cardLikeRepository) CountSince(ctx context.Context, sessionID string, since time.Time) (int64, error) {
	var count int64
	err := m.DB.WithContext(ctx).
		Model(&model.CardLike{}).
		Where("session_id = ? AND created_at > ?", sessionID, since).
		Count(&count).Error
	return count, err
}

// InsertWithinLimit 在一个事务内完成 "是否已赞 / 24h 计数 / 插入".
// 先 upsert 会话行拿到行锁, 同一会话的并发点赞在此排队, 之后的读取能看到前一个事务的提交.
func (m *cardLikeRepository) InsertWithinLimit(ctx context.Context, like domain.CardLike, since time.Time, limit int64) (bool, error) {
	inserted := false
	err := m.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lock := model.CardLikeSession{SessionID: like.SessionID, UpdatedAt: like.CreatedAt}
		if err := tx.Clauses(clause.OnConflict{
			DoUpdates: clause.AssignmentColumns([]string{"updated_at"}),
		}).Create(&lock).Error; err != nil {
			return err
		}

		var exists int64
		if err := tx.Model(&model.CardLike{}).
			Where("session_id = ? AND card_path = ?", like.SessionID, like.CardPath).
			Count(&exists).Error; err != nil {
			return err
		}
		if exists > 0 {
			return nil
		}

		var recent int64
		if err := tx.Model(&model.CardLike{}).
			Where("session_id = ? AND created_at > ?", like.SessionID, since).
			Count(&recent).Error; err != nil {
			return err
		}
		if recent >= limit {
			return domain.ErrRateLimited
		}

		// 唯一索引兜底, 重复插入不报错
		row := model.NewCardLikeFromDomain(like)
		result := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
		if result.Error != nil {
			return result.Error
		}
		inserted = result.RowsAffected > 0
		return nil
	})
	if err != nil {
		return false, err
	}
	return inserted, nil
}

func (m *cardLikeRepository) Delete(ctx context.Context, like domain.CardLike) (bool, error) {
	result := m.DB.WithContext(ctx).
		Where("session_id = ? AND card_path = ?", like.SessionID, like.CardPath).
		Delete(&model.CardLike{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
