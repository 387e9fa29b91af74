package request

import "github.com/Guyuepp/card-gallery-likes/domain"

type GetAll struct {
	SessionID string `json:"sessionId"` // empty means no prior likes
}

type Update struct {
	CardPath  string `json:"cardPath" binding:"required,notblank,max=255"`
	SessionID string `json:"sessionId" binding:"required,notblank,max=128"`
	Action    string `json:"action" binding:"required,oneof=like unlike"`
}

// ToDomain: Request -> Domain
func (r *Update) ToDomain() (domain.CardLike, domain.LikeAction, error) {
	action, err := domain.ParseLikeAction(r.Action)
	if err != nil {
		return domain.CardLike{}, 0, err
	}
	return domain.CardLike{
		SessionID: r.SessionID,
		CardPath:  r.CardPath,
	}, action, nil
}
