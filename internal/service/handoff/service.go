package handoff

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iamasit07/sessionbridge/internal/domain"
	"github.com/iamasit07/sessionbridge/pkg/auth"
	"github.com/iamasit07/sessionbridge/pkg/clock"
	"github.com/iamasit07/sessionbridge/pkg/logger"
	"github.com/sirupsen/logrus"
)

// Repository is the durable handoff table. Consume must be a single
// conditional operation: it returns credentials only for the caller whose
// update flipped consumed_at, and (nil, nil) for everyone else.
type Repository interface {
	Insert(ctx context.Context, h *domain.HandoffCode) error
	Consume(ctx context.Context, code string, now time.Time) (*domain.Credentials, error)
	GetByCode(ctx context.Context, code string) (*domain.HandoffCode, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
	DeleteExpiredCode(ctx context.Context, code string, now time.Time) error
}

// CodeGenerator returns a random code of the given length.
type CodeGenerator func(length int) (string, error)

type Service struct {
	repo       Repository
	clock      clock.Clock
	sealer     auth.Sealer
	generate   CodeGenerator
	codeLength int
	maxRetries int
	log        *logrus.Entry
}

type Options struct {
	CodeLength int
	MaxRetries int
	Sealer     auth.Sealer
	Generator  CodeGenerator
}

func NewService(repo Repository, clk clock.Clock, opts Options, log logrus.FieldLogger) *Service {
	s := &Service{
		repo:       repo,
		clock:      clk,
		sealer:     opts.Sealer,
		generate:   opts.Generator,
		codeLength: opts.CodeLength,
		maxRetries: opts.MaxRetries,
		log:        logger.Component(log, "handoff"),
	}
	if s.sealer == nil {
		s.sealer = auth.PlainSealer{}
	}
	if s.generate == nil {
		s.generate = auth.GenerateCode
	}
	if s.codeLength < auth.MinCodeLength {
		s.codeLength = 8
	}
	if s.maxRetries < 1 {
		s.maxRetries = 5
	}
	return s
}

// CodeLength is the length of every code this service issues and accepts.
func (s *Service) CodeLength() int {
	return s.codeLength
}

// Create stores the credential pair under a fresh code valid for HandoffTTL.
// Expired rows are swept first; a failed sweep does not block creation.
func (s *Service) Create(ctx context.Context, subjectID int64, accessToken, refreshToken string) (string, error) {
	if subjectID == 0 {
		return "", fmt.Errorf("%w: missing subject", domain.ErrUnauthenticated)
	}
	if accessToken == "" || refreshToken == "" {
		return "", fmt.Errorf("%w: accessToken and refreshToken are required", domain.ErrInvalidInput)
	}

	now := s.clock.Now()
	if n, err := s.repo.DeleteExpired(ctx, now); err != nil {
		s.log.WithError(err).Warn("Failed to sweep expired handoff codes")
	} else if n > 0 {
		s.log.WithField("deleted", n).Debug("Swept expired handoff codes")
	}

	sealedAccess, err := s.sealer.Seal(accessToken)
	if err != nil {
		return "", fmt.Errorf("%w: failed to seal access token: %v", domain.ErrTransientStorage, err)
	}
	sealedRefresh, err := s.sealer.Seal(refreshToken)
	if err != nil {
		return "", fmt.Errorf("%w: failed to seal refresh token: %v", domain.ErrTransientStorage, err)
	}

	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		code, err := s.generate(s.codeLength)
		if err != nil {
			return "", fmt.Errorf("%w: failed to generate handoff code: %v", domain.ErrTransientStorage, err)
		}
		code = auth.NormalizeCode(code)

		err = s.repo.Insert(ctx, domain.NewHandoffCode(code, subjectID, sealedAccess, sealedRefresh, now))
		if err == nil {
			s.log.WithField("subject_id", subjectID).Info("Handoff code created")
			return code, nil
		}
		if !errors.Is(err, domain.ErrCodeCollision) {
			s.log.WithError(err).WithField("subject_id", subjectID).Error("Failed to store handoff code")
			return "", fmt.Errorf("%w: %v", domain.ErrTransientStorage, err)
		}
		s.log.WithField("attempt", attempt).Warn("Handoff code collision, regenerating")
	}

	return "", fmt.Errorf("%w: no free handoff code after %d attempts", domain.ErrTransientStorage, s.maxRetries)
}

// Redeem releases the stored credentials exactly once. Only the conditional
// consume decides success; the follow-up read only classifies the failure.
func (s *Service) Redeem(ctx context.Context, code string) (*domain.Credentials, error) {
	code = auth.NormalizeCode(code)
	if !auth.ValidCode(code, s.codeLength) {
		return nil, fmt.Errorf("%w: code must be %d letters or digits", domain.ErrInvalidInput, s.codeLength)
	}

	now := s.clock.Now()
	creds, err := s.repo.Consume(ctx, code, now)
	if err != nil {
		s.log.WithError(err).Error("Failed to consume handoff code")
		return nil, fmt.Errorf("%w: %v", domain.ErrTransientStorage, err)
	}
	if creds != nil {
		return s.open(creds)
	}

	row, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		s.log.WithError(err).Error("Failed to look up handoff code")
		return nil, fmt.Errorf("%w: %v", domain.ErrTransientStorage, err)
	}
	switch {
	case row == nil:
		return nil, domain.ErrNotFound
	case row.ConsumedAt != nil:
		return nil, domain.ErrAlreadyUsed
	case !now.Before(row.ExpiresAt):
		if err := s.repo.DeleteExpiredCode(ctx, code, now); err != nil {
			s.log.WithError(err).Warn("Failed to delete expired handoff code")
		}
		return nil, domain.ErrExpired
	default:
		// The row changed between the two statements.
		return nil, domain.ErrAlreadyUsed
	}
}

// Sweep deletes every expired row.
func (s *Service) Sweep(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteExpired(ctx, s.clock.Now())
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrTransientStorage, err)
	}
	return n, nil
}

func (s *Service) open(creds *domain.Credentials) (*domain.Credentials, error) {
	access, err := s.sealer.Open(creds.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open access token: %v", domain.ErrTransientStorage, err)
	}
	refresh, err := s.sealer.Open(creds.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open refresh token: %v", domain.ErrTransientStorage, err)
	}
	return &domain.Credentials{AccessToken: access, RefreshToken: refresh}, nil
}
