package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/iamasit07/sessionbridge/internal/domain"
	"github.com/iamasit07/sessionbridge/internal/service/ratelimit"
	"github.com/iamasit07/sessionbridge/internal/transport/http/middleware"
	"github.com/iamasit07/sessionbridge/pkg/logger"
	"github.com/iamasit07/sessionbridge/pkg/useragent"
	"github.com/sirupsen/logrus"
)

type HandoffService interface {
	Create(ctx context.Context, subjectID int64, accessToken, refreshToken string) (string, error)
	Redeem(ctx context.Context, code string) (*domain.Credentials, error)
}

type RateLimiter interface {
	Allow(ctx context.Context, subjectID, action string) error
	Policy(action string) (ratelimit.Policy, bool)
}

type HandoffHandler struct {
	Service    HandoffService
	Limiter    RateLimiter
	TrustProxy bool
	errors     *ErrorResponder
	log        *logrus.Entry
}

func NewHandoffHandler(svc HandoffService, limiter RateLimiter, trustProxy bool, log logrus.FieldLogger) *HandoffHandler {
	return &HandoffHandler{
		Service:    svc,
		Limiter:    limiter,
		TrustProxy: trustProxy,
		errors:     NewErrorResponder(log),
		log:        logger.Component(log, "handoff_http"),
	}
}

type createHandoffRequest struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type createHandoffResponse struct {
	Code string `json:"code"`
}

type redeemHandoffRequest struct {
	Code string `json:"code"`
}

// Create stores the caller's credential pair behind a fresh handoff code.
func (h *HandoffHandler) Create(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		h.errors.Write(c, domain.ErrUnauthenticated)
		return
	}

	var req createHandoffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errors.Write(c, fmt.Errorf("%w: request body must be JSON with accessToken and refreshToken", domain.ErrInvalidInput))
		return
	}
	if req.AccessToken == "" || req.RefreshToken == "" {
		h.errors.Write(c, fmt.Errorf("%w: accessToken and refreshToken are required", domain.ErrInvalidInput))
		return
	}

	code, err := h.Service.Create(c.Request.Context(), userID, req.AccessToken, req.RefreshToken)
	if err != nil {
		h.errors.Write(c, err)
		return
	}

	h.log.WithField("user_id", userID).Info("Issued handoff code")
	c.JSON(http.StatusOK, createHandoffResponse{Code: code})
}

// Redeem exchanges a handoff code for the credentials stored behind it.
// Attempts are throttled per client IP.
func (h *HandoffHandler) Redeem(c *gin.Context) {
	var req redeemHandoffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errors.Write(c, fmt.Errorf("%w: request body must be JSON with a code", domain.ErrInvalidInput))
		return
	}
	if req.Code == "" {
		h.errors.Write(c, fmt.Errorf("%w: code is required", domain.ErrInvalidInput))
		return
	}

	ip := useragent.ExtractIPAddress(c.Request, h.TrustProxy)
	if err := h.Limiter.Allow(c.Request.Context(), ip, ratelimit.ActionHandoffRedeem); err != nil {
		if errors.Is(err, domain.ErrRateLimited) {
			if p, ok := h.Limiter.Policy(ratelimit.ActionHandoffRedeem); ok {
				setRetryAfter(c, p.Window)
			}
		}
		h.errors.Write(c, err)
		return
	}

	creds, err := h.Service.Redeem(c.Request.Context(), req.Code)
	if err != nil {
		if kind := domain.KindOf(err); kind != domain.KindTransientStorage && kind != domain.KindInternal {
			h.log.WithFields(logrus.Fields{"client_ip": ip, "kind": kind}).Info("Handoff redemption refused")
		}
		h.errors.Write(c, err)
		return
	}

	c.JSON(http.StatusOK, creds)
}
