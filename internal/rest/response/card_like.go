package response

import (
	"github.com/Guyuepp/card-gallery-likes/domain"
)

type CardLike struct {
	Count     int64 `json:"count"`
	UserLiked bool  `json:"userLiked"`
}

type CardLikes struct {
	CardLikes     map[string]CardLike `json:"cardLikes"`
	UserLikeCount int64               `json:"userLikeCount"`
}

// NewCardLikesFromDomain always returns a non-nil map so the body is `{}` rather than `null`.
func NewCardLikesFromDomain(l domain.CardLikes) CardLikes {
	res := CardLikes{
		CardLikes:     make(map[string]CardLike, len(l.CardLikes)),
		UserLikeCount: max(l.UserLikeCount, 0),
	}
	for path, s := range l.CardLikes {
		res.CardLikes[path] = CardLike{Count: s.Count, UserLiked: s.UserLiked}
	}
	return res
}

type Update struct {
	Success  bool  `json:"success"`
	NewCount int64 `json:"newCount"`
}

type RankEntry struct {
	CardPath string `json:"cardPath"`
	Likes    int64  `json:"likes"`
}

func NewRankFromDomain(list []domain.RankEntry) []RankEntry {
	res := make([]RankEntry, len(list))
	for i, e := range list {
		res[i] = RankEntry{CardPath: e.CardPath, Likes: int64(e.Score)}
	}
	return res
}
