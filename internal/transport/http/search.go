package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/iamasit07/sessionbridge/internal/domain"
	"github.com/iamasit07/sessionbridge/internal/service/ratelimit"
	"github.com/iamasit07/sessionbridge/internal/transport/http/middleware"
)

type ProfileSearcher interface {
	SearchProfiles(ctx context.Context, query string, excludeUserID int64, limit int) ([]domain.Profile, error)
}

type SearchHandler struct {
	Profiles    ProfileSearcher
	Limiter     RateLimiter
	ResultLimit int
	errors      *ErrorResponder
}

func NewSearchHandler(profiles ProfileSearcher, limiter RateLimiter, resultLimit int, errs *ErrorResponder) *SearchHandler {
	return &SearchHandler{
		Profiles:    profiles,
		Limiter:     limiter,
		ResultLimit: resultLimit,
		errors:      errs,
	}
}

type searchRequest struct {
	Query string `json:"query"`
}

type searchResponse struct {
	Results []domain.Profile `json:"results"`
}

// Search looks up other players by username or name prefix. The query shape is
// checked first, then the caller's search budget, and only then the store.
func (h *SearchHandler) Search(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		h.errors.Write(c, domain.ErrUnauthenticated)
		return
	}

	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errors.Write(c, fmt.Errorf("%w: request body must be JSON with a query", domain.ErrInvalidInput))
		return
	}
	query := req.Query
	if err := domain.ValidateSearchQuery(query); err != nil {
		h.errors.Write(c, err)
		return
	}

	if err := h.Limiter.Allow(c.Request.Context(), strconv.FormatInt(userID, 10), ratelimit.ActionSearch); err != nil {
		if errors.Is(err, domain.ErrRateLimited) {
			if p, ok := h.Limiter.Policy(ratelimit.ActionSearch); ok {
				setRetryAfter(c, p.Window)
			}
		}
		h.errors.Write(c, err)
		return
	}

	results, err := h.Profiles.SearchProfiles(c.Request.Context(), query, userID, h.ResultLimit)
	if err != nil {
		h.errors.Write(c, fmt.Errorf("%w: %v", domain.ErrTransientStorage, err))
		return
	}
	if results == nil {
		results = []domain.Profile{}
	}
	c.JSON(http.StatusOK, searchResponse{Results: results})
}
