package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/iamasit07/sessionbridge/internal/domain"
	"github.com/sirupsen/logrus"
)

type errorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

var kindStatus = map[string]int{
	domain.KindInvalidInput:     http.StatusBadRequest,
	domain.KindUnauthenticated:  http.StatusUnauthorized,
	domain.KindNotFound:         http.StatusNotFound,
	domain.KindExpired:          http.StatusGone,
	domain.KindAlreadyUsed:      http.StatusConflict,
	domain.KindRateLimited:      http.StatusTooManyRequests,
	domain.KindTransientStorage: http.StatusInternalServerError,
	domain.KindUpstreamFailure:  http.StatusBadGateway,
	domain.KindInternal:         http.StatusInternalServerError,
}

var kindMessage = map[string]string{
	domain.KindUnauthenticated:  "Authentication required",
	domain.KindNotFound:         "Handoff code not found",
	domain.KindExpired:          "Handoff code has expired",
	domain.KindAlreadyUsed:      "Handoff code has already been used",
	domain.KindRateLimited:      "Too many requests, try again later",
	domain.KindTransientStorage: "Service temporarily unavailable",
	domain.KindUpstreamFailure:  "Upstream service failed",
	domain.KindInternal:         "Internal server error",
}

// ErrorResponder maps domain errors onto the JSON error envelope. Only
// invalid-input messages are passed through; everything else gets a fixed
// message so storage errors never reach the caller.
type ErrorResponder struct {
	log logrus.FieldLogger
}

func NewErrorResponder(log logrus.FieldLogger) *ErrorResponder {
	return &ErrorResponder{log: log}
}

func (r *ErrorResponder) Write(c *gin.Context, err error) {
	kind := domain.KindOf(err)
	status := kindStatus[kind]

	message := kindMessage[kind]
	if kind == domain.KindInvalidInput {
		message = publicMessage(err)
	}

	if status >= http.StatusInternalServerError {
		r.log.WithError(err).WithFields(logrus.Fields{
			"kind":       kind,
			"path":       c.FullPath(),
			"request_id": c.GetString("request_id"),
		}).Error("Request failed")
	}

	c.JSON(status, errorResponse{Error: errorBody{Kind: kind, Message: message}})
}

// setRetryAfter advertises when the caller may try again, rounded up to whole seconds.
func setRetryAfter(c *gin.Context, d time.Duration) {
	secs := int((d + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	c.Header("Retry-After", strconv.Itoa(secs))
}

// publicMessage strips the sentinel prefix from "invalid input: <detail>".
func publicMessage(err error) string {
	msg := err.Error()
	if i := strings.Index(msg, ": "); i >= 0 && msg[:i] == string(domain.ErrInvalidInput) {
		msg = msg[i+2:]
	}
	if msg == "" || msg == string(domain.ErrInvalidInput) {
		return "Invalid input"
	}
	return msg
}
