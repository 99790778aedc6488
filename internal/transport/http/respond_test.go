package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/iamasit07/sessionbridge/internal/domain"
	"github.com/iamasit07/sessionbridge/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorResponder_StatusMapping(t *testing.T) {
	cases := []struct {
		err     error
		status  int
		message string
	}{
		{fmt.Errorf("%w: query too short", domain.ErrInvalidInput), http.StatusBadRequest, "query too short"},
		{domain.ErrInvalidInput, http.StatusBadRequest, "Invalid input"},
		{domain.ErrUnauthenticated, http.StatusUnauthorized, "Authentication required"},
		{domain.ErrNotFound, http.StatusNotFound, "Handoff code not found"},
		{domain.ErrExpired, http.StatusGone, "Handoff code has expired"},
		{domain.ErrAlreadyUsed, http.StatusConflict, "Handoff code has already been used"},
		{domain.ErrRateLimited, http.StatusTooManyRequests, "Too many requests, try again later"},
		{fmt.Errorf("%w: dial tcp 10.0.0.3:5432: refused", domain.ErrTransientStorage), http.StatusInternalServerError, "Service temporarily unavailable"},
		{domain.ErrUpstreamFailure, http.StatusBadGateway, "Upstream service failed"},
		{fmt.Errorf("boom"), http.StatusInternalServerError, "Internal server error"},
	}

	r := NewErrorResponder(logger.Discard())
	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			r.Write(c, tc.err)

			assert.Equal(t, tc.status, w.Code)
			var resp errorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, domain.KindOf(tc.err), resp.Error.Kind)
			assert.Equal(t, tc.message, resp.Error.Message)
		})
	}
}

func TestSetRetryAfter(t *testing.T) {
	for d, want := range map[time.Duration]string{
		time.Minute:             "60",
		1500 * time.Millisecond: "2",
		0:                       "1",
	} {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		setRetryAfter(c, d)
		assert.Equal(t, want, w.Header().Get("Retry-After"))
	}
}
