package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"golang.org/x/crypto/bcrypt"

	dErrors "credon/pkg/domain-errors"
	"credon/pkg/domain"
)

// ErrNoCode is returned by stores when no live code exists for the contact.
var ErrNoCode = errors.New("no active code")

// Sender delivers a one-time code to the address it belongs to.
type Sender interface {
	Send(ctx context.Context, email, code string) error
}

// Service issues and verifies one-time codes. Codes are six digits, stored
// bcrypt-hashed, single-use, and expire after the configured TTL.
type Service struct {
	store  Store
	sender Sender
	ttl    time.Duration
	logger *slog.Logger
}

// New creates an OTP Service.
func New(store Store, sender Sender, ttl time.Duration, logger *slog.Logger) *Service {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Service{store: store, sender: sender, ttl: ttl, logger: logger}
}

// Issue generates a fresh code for the email, stores its hash and sends it.
// Reissuing replaces any earlier code for the same contact.
func (s *Service) Issue(ctx context.Context, email string) error {
	code, err := generateCode()
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate code")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash code")
	}

	contactID := domain.HashContact(email)
	if err := s.store.Put(ctx, contactID, hash, s.ttl); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store code")
	}
	if err := s.sender.Send(ctx, email, code); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to send code")
	}
	s.logger.InfoContext(ctx, "one-time code issued", "contact_id", contactID.String())
	return nil
}

// Verify consumes the contact's code and checks it against the submitted
// value. The code is spent regardless of match, so a failed guess also
// invalidates it.
func (s *Service) Verify(ctx context.Context, contactID domain.ContactID, code string) error {
	hash, err := s.store.Consume(ctx, contactID)
	if err != nil {
		if errors.Is(err, ErrNoCode) {
			return dErrors.New(dErrors.CodeUnauthorized, "no active code for this contact")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load code")
	}
	if bcrypt.CompareHashAndPassword(hash, []byte(code)) != nil {
		return dErrors.New(dErrors.CodeUnauthorized, "code does not match")
	}
	return nil
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
