package model

import (
	"time"

	"github.com/Guyuepp/card-gallery-likes/domain"
)

// CardLike 唯一索引保证同一会话对同一卡片最多一条记录
type CardLike struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	SessionID string    `gorm:"column:session_id;type:varchar(128);not null;uniqueIndex:idx_session_card"`
	CardPath  string    `gorm:"column:card_path;type:varchar(255);not null;uniqueIndex:idx_session_card;index"`
	CreatedAt time.Time `gorm:"type:datetime;not null;default:CURRENT_TIMESTAMP"`
}

func (CardLike) TableName() string {
	return "card_likes"
}

func NewCardLikeFromDomain(cl domain.CardLike) CardLike {
	return CardLike{
		SessionID: cl.SessionID,
		CardPath:  cl.CardPath,
		CreatedAt: cl.CreatedAt,
	}
}

// CardLikeSession 每个会话一行, 点赞时加行锁使同一会话的点赞串行执行
type CardLikeSession struct {
	SessionID string    `gorm:"column:session_id;type:varchar(128);primaryKey"`
	UpdatedAt time.Time `gorm:"type:datetime;not null"`
}

func (CardLikeSession) TableName() string {
	return "card_like_sessions"
}
