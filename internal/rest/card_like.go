package rest

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Guyuepp/card-gallery-likes/domain"
	"github.com/Guyuepp/card-gallery-likes/internal/rest/request"
	"github.com/Guyuepp/card-gallery-likes/internal/rest/response"
)

// ResponseError represent the response error struct
type ResponseError struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// CardLikeHandler represent the httphandler for card likes
type CardLikeHandler struct {
	Service domain.CardLikeUsecase
	Events  domain.LikeEventSubscriber
}

const (
	DefaultRankLimit = 10
	RankMin          = 5
	RankMax          = 30

	sseEventName = "like"
)

func NewCardLikeHandler(svc domain.CardLikeUsecase, events domain.LikeEventSubscriber) *CardLikeHandler {
	return &CardLikeHandler{
		Service: svc,
		Events:  events,
	}
}

// GetAll will return the like state of every card for the given session
func (h *CardLikeHandler) GetAll(c *gin.Context) {
	var req request.GetAll
	// 空请求体等同于 {}
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
		return
	}

	likes, err := h.Service.GetAll(c.Request.Context(), req.SessionID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.NewCardLikesFromDomain(likes))
}

// Update will like or unlike a card for the given session
func (h *CardLikeHandler) Update(c *gin.Context) {
	var req request.Update
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
		return
	}
	like, action, err := req.ToDomain()
	if err != nil {
		writeError(c, err)
		return
	}

	newCount, err := h.Service.Update(c.Request.Context(), like, action)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Update{Success: true, NewCount: newCount})
}

func (h *CardLikeHandler) FetchRank(c *gin.Context) {
	limitS := c.Query("limit")
	limit, err := strconv.ParseInt(limitS, 10, 64)
	if err != nil || limit < RankMin || limit > RankMax {
		if limitS != "" {
			logrus.Errorf("Invalid param 'limit': %q", limitS)
		}
		limit = DefaultRankLimit
	}

	list, err := h.Service.FetchDailyRank(c.Request.Context(), limit)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.NewRankFromDomain(list))
}

// Stream relays like events of every server instance as Server-Sent Events
func (h *CardLikeHandler) Stream(c *gin.Context) {
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	events, err := h.Events.Subscribe(ctx)
	if err != nil {
		writeError(c, err)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			c.SSEvent(sseEventName, ev)
			c.Writer.Flush()
		}
	}
}

func writeError(c *gin.Context, err error) {
	code := getStatusCode(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		msg = domain.ErrInternalServerError.Error()
	}
	c.JSON(code, ResponseError{Message: msg})
}

// getStatusCode will get the code of the error from domain.CardLikeUsecase
func getStatusCode(err error) int {
	if err == nil {
		return http.StatusOK
	}

	logrus.Error(err)
	switch {
	case errors.Is(err, domain.ErrBadParamInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
