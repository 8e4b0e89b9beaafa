package notifications

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/google/uuid"
	"github.com/richxcame/gigmarket/pkg/logger"
	"github.com/richxcame/gigmarket/pkg/resilience"
	"github.com/richxcame/gigmarket/pkg/security"
)

const (
	channelEmail = "email"
	channelSMS   = "sms"
)

// ErrNoChannel is returned when a user has no reachable channel configured
var ErrNoChannel = errors.New("no notification channel available")

type Service struct {
	repo          RepositoryInterface
	twilioClient  TwilioClientInterface
	emailClient   EmailClientInterface
	twilioBreaker *resilience.CircuitBreaker
	emailBreaker  *resilience.CircuitBreaker
}

// NewService creates a notification service. Either client may be nil when
// the provider is not configured.
func NewService(repo RepositoryInterface, twilioClient TwilioClientInterface, emailClient EmailClientInterface) *Service {
	return &Service{
		repo:         repo,
		twilioClient: twilioClient,
		emailClient:  emailClient,
	}
}

// SetCircuitBreakers wires circuit breakers for downstream providers.
func (s *Service) SetCircuitBreakers(twilioBreaker, emailBreaker *resilience.CircuitBreaker) {
	s.twilioBreaker = twilioBreaker
	s.emailBreaker = emailBreaker
}

// NotifySuspension tells a user their account was suspended. Email is always
// attempted, SMS only for verified phone numbers. It fails only when every
// attempted channel failed.
func (s *Service) NotifySuspension(ctx context.Context, userID uuid.UUID, reason string) error {
	contact, err := s.repo.GetContact(ctx, userID)
	if err != nil {
		return err
	}

	log := logger.WithContext(ctx).With(zap.String("user_id", userID.String()))
	subject, plain, html := suspensionEmail(contact.Name, reason)

	attempted, failed := 0, 0
	var lastErr error

	if s.emailClient != nil && contact.Email != "" {
		attempted++
		err := s.executeWithBreaker(ctx, s.emailBreaker, channelEmail, func(ctx context.Context) error {
			return s.emailClient.SendEmail(ctx, contact.Name, contact.Email, subject, plain, html)
		})
		if err != nil {
			failed++
			lastErr = err
			log.Warn("Failed to send suspension email", zap.Error(err))
		}
	}

	if s.twilioClient != nil && contact.Phone != nil && *contact.Phone != "" && contact.Verified {
		attempted++
		phone := *contact.Phone
		err := s.executeWithBreaker(ctx, s.twilioBreaker, channelSMS, func(ctx context.Context) error {
			_, err := s.twilioClient.SendSMS(phone, suspensionSMS(reason))
			return err
		})
		if err != nil {
			failed++
			lastErr = err
			log.Warn("Failed to send suspension SMS", zap.Error(err))
		}
	}

	if attempted == 0 {
		return ErrNoChannel
	}
	if failed == attempted {
		return fmt.Errorf("notify suspension: %w", lastErr)
	}

	log.Info("Suspension notice sent", zap.Int("channels", attempted-failed))
	return nil
}

func (s *Service) executeWithBreaker(ctx context.Context, breaker *resilience.CircuitBreaker, channel string, operation func(ctx context.Context) error) error {
	var err error
	if breaker == nil {
		err = operation(ctx)
	} else {
		_, err = breaker.Execute(ctx, func(ctx context.Context) (interface{}, error) {
			return nil, operation(ctx)
		})
	}

	switch {
	case err == nil:
		sentTotal.WithLabelValues(channel, "sent").Inc()
	case errors.Is(err, resilience.ErrCircuitOpen):
		sentTotal.WithLabelValues(channel, "circuit_open").Inc()
	default:
		sentTotal.WithLabelValues(channel, "failed").Inc()
	}
	return err
}

func suspensionEmail(name, reason string) (subject, plain, html string) {
	subject = "Your account has been suspended"
	plain = fmt.Sprintf("Hi %s,\n\nYour account has been suspended.\nReason: %s\n\nIf you believe this is a mistake, reply to this email to request a review.", name, reason)
	html = fmt.Sprintf("<p>Hi %s,</p><p>Your account has been suspended.</p><p><strong>Reason:</strong> %s</p><p>If you believe this is a mistake, reply to this email to request a review.</p>",
		security.SanitizeHTML(name), security.SanitizeHTML(reason))
	return subject, plain, html
}

func suspensionSMS(reason string) string {
	return "Your account has been suspended: " + reason + ". Check your email for details."
}
