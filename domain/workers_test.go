package domain_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Guyuepp/card-gallery-likes/domain"
)

func TestParseLikeAction(t *testing.T) {
	action, err := domain.ParseLikeAction("like")
	assert.NoError(t, err)
	assert.Equal(t, domain.Like, action)

	action, err = domain.ParseLikeAction("unlike")
	assert.NoError(t, err)
	assert.Equal(t, domain.Unlike, action)

	for _, s := range []string{"", "LIKE", "dislike", " like"} {
		_, err := domain.ParseLikeAction(s)
		assert.True(t, errors.Is(err, domain.ErrBadParamInput), s)
	}
}

func TestLikeActionString(t *testing.T) {
	assert.Equal(t, "like", domain.Like.String())
	assert.Equal(t, "unlike", domain.Unlike.String())
	assert.Equal(t, "unknown", domain.LikeAction(0).String())
}
