package usecase

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"net/url"
	"regexp"
	"sort"
	"time"

	"github.com/ErlanBelekov/ops-dashboard/internal/clock"
	"github.com/ErlanBelekov/ops-dashboard/internal/domain"
	"github.com/ErlanBelekov/ops-dashboard/internal/email"
	"github.com/ErlanBelekov/ops-dashboard/internal/metrics"
	"github.com/ErlanBelekov/ops-dashboard/internal/reaper"
	"github.com/ErlanBelekov/ops-dashboard/internal/repository"
)

const magicLinkPath = "/magic"

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type sweeper interface {
	Sweep() reaper.SweepResult
}

type eventPublisher interface {
	Publish(level domain.Level, message string) domain.LogEvent
}

type AuthConfig struct {
	// AllowedEmails is the allow-list; empty allows every address.
	AllowedEmails []string
	// ShowAllowlistError makes RequestSignIn return ErrNotRegistered for
	// addresses outside the allow-list instead of pretending to succeed.
	ShowAllowlistError bool
	// AppOrigin is the scheme and host the magic link points at.
	AppOrigin string
}

// UserStatus describes one known user for the dashboard.
type UserStatus struct {
	Email     string     `json:"email"`
	Active    bool       `json:"active"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

type AuthUsecase struct {
	tokens             repository.TokenRepository
	sessions           repository.SessionRepository
	sweeper            sweeper
	email              email.Sender
	events             eventPublisher
	clock              clock.Clock
	allowed            map[string]struct{}
	showAllowlistError bool
	appOrigin          string
	logger             *slog.Logger
}

func NewAuthUsecase(
	tokens repository.TokenRepository,
	sessions repository.SessionRepository,
	sw sweeper,
	emailSender email.Sender,
	events eventPublisher,
	c clock.Clock,
	cfg AuthConfig,
	logger *slog.Logger,
) *AuthUsecase {
	allowed := make(map[string]struct{}, len(cfg.AllowedEmails))
	for _, e := range cfg.AllowedEmails {
		if n := domain.NormalizeEmail(e); n != "" {
			allowed[n] = struct{}{}
		}
	}
	return &AuthUsecase{
		tokens:             tokens,
		sessions:           sessions,
		sweeper:            sw,
		email:              emailSender,
		events:             events,
		clock:              c,
		allowed:            allowed,
		showAllowlistError: cfg.ShowAllowlistError,
		appOrigin:          cfg.AppOrigin,
		logger:             logger.With("component", "auth"),
	}
}

// IsValidEmailSyntax accepts non-whitespace text with one @ and a dotted domain.
func IsValidEmailSyntax(s string) bool {
	return emailPattern.MatchString(s)
}

// IsAllowed reports allow-list membership, case-insensitively.
func (u *AuthUsecase) IsAllowed(emailAddr string) bool {
	if len(u.allowed) == 0 {
		return true
	}
	_, ok := u.allowed[domain.NormalizeEmail(emailAddr)]
	return ok
}

// RequestSignIn issues a magic token and mails the link. Malformed and
// unknown addresses succeed silently; the only error surfaced to callers is
// ErrNotRegistered, and only when ShowAllowlistError is set. Mail delivery
// failures are logged and swallowed.
func (u *AuthUsecase) RequestSignIn(ctx context.Context, rawEmail string) error {
	u.sweeper.Sweep()

	emailAddr := domain.NormalizeEmail(rawEmail)
	if emailAddr == "" || !IsValidEmailSyntax(emailAddr) {
		metrics.SignInRequestsTotal.WithLabelValues("invalid").Inc()
		return nil
	}

	if !u.IsAllowed(emailAddr) {
		metrics.SignInRequestsTotal.WithLabelValues("not_allowed").Inc()
		u.logger.InfoContext(ctx, "sign-in requested for address outside allow-list")
		if u.showAllowlistError {
			return domain.ErrNotRegistered
		}
		return nil
	}

	secret, err := u.tokens.Create(emailAddr)
	if err != nil {
		metrics.SignInRequestsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("create magic token: %w", err)
	}

	link, err := u.magicLink(secret)
	if err != nil {
		metrics.SignInRequestsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("build magic link: %w", err)
	}

	msg := email.Message{
		To:      emailAddr,
		Subject: "Your magic sign-in link",
		Text:    "Use this link to sign in: " + link,
		HTML: fmt.Sprintf(`<p>Use this link to sign in:</p><p><a href="%s">%s</a></p>`,
			html.EscapeString(link), html.EscapeString(link)),
	}
	if err := u.email.Send(ctx, msg); err != nil {
		metrics.MailSendFailuresTotal.Inc()
		u.logger.ErrorContext(ctx, "send magic link", "error", err)
		u.events.Publish(domain.LevelError, "[auth] failed to deliver sign-in link to "+emailAddr)
	} else {
		u.events.Publish(domain.LevelInfo, "[auth] sign-in link sent to "+emailAddr)
	}

	metrics.SignInRequestsTotal.WithLabelValues("issued").Inc()
	return nil
}

func (u *AuthUsecase) magicLink(secret string) (string, error) {
	base, err := url.Parse(u.appOrigin)
	if err != nil {
		return "", fmt.Errorf("parse app origin: %w", err)
	}
	link := base.ResolveReference(&url.URL{Path: magicLinkPath})
	q := link.Query()
	q.Set("token", secret)
	link.RawQuery = q.Encode()
	return link.String(), nil
}

// Verify consumes the magic token and opens a session. The token is gone
// after this call whatever the outcome.
func (u *AuthUsecase) Verify(ctx context.Context, secret string) (*domain.Session, error) {
	u.sweeper.Sweep()

	if secret == "" {
		metrics.VerificationsTotal.WithLabelValues("invalid").Inc()
		return nil, domain.ErrInvalidInput
	}

	mt, err := u.tokens.Consume(secret)
	if err != nil {
		metrics.VerificationsTotal.WithLabelValues("invalid").Inc()
		return nil, domain.ErrTokenInvalid
	}

	if !u.IsAllowed(mt.Email) {
		metrics.VerificationsTotal.WithLabelValues("forbidden").Inc()
		u.logger.WarnContext(ctx, "verified token for address no longer allowed")
		u.events.Publish(domain.LevelWarn, "[auth] rejected sign-in for "+mt.Email+": not on allow-list")
		return nil, domain.ErrForbidden
	}

	session, err := u.sessions.Create(mt.Email)
	if err != nil {
		metrics.VerificationsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("create session: %w", err)
	}

	metrics.VerificationsTotal.WithLabelValues("success").Inc()
	u.events.Publish(domain.LevelInfo, "[auth] "+mt.Email+" signed in")
	return session, nil
}

// CurrentUser resolves a session id. Sessions past their expiry are treated
// as absent even if the reaper has not removed them yet.
func (u *AuthUsecase) CurrentUser(_ context.Context, sessionID string) (*domain.Session, error) {
	u.sweeper.Sweep()

	if sessionID == "" {
		return nil, domain.ErrSessionNotFound
	}
	s, err := u.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	if clock.IsExpired(u.clock, s.ExpiresAt) {
		return nil, domain.ErrSessionNotFound
	}
	return s, nil
}

// Logout removes the session. Unknown ids are ignored.
func (u *AuthUsecase) Logout(_ context.Context, sessionID string) {
	if sessionID == "" {
		return
	}
	if s, ok := u.sessions.Delete(sessionID); ok {
		u.events.Publish(domain.LevelInfo, "[auth] "+s.Email+" signed out")
	}
}

// UserStatus lists the allow-listed addresses with their session state. In
// open mode, addresses holding a live session are listed instead.
func (u *AuthUsecase) UserStatus(_ context.Context) []UserStatus {
	u.sweeper.Sweep()

	latest := make(map[string]time.Time)
	for _, s := range u.sessions.List() {
		if clock.IsExpired(u.clock, s.ExpiresAt) {
			continue
		}
		if cur, ok := latest[s.Email]; !ok || s.ExpiresAt.After(cur) {
			latest[s.Email] = s.ExpiresAt
		}
	}

	emails := make([]string, 0, len(u.allowed))
	if len(u.allowed) == 0 {
		for e := range latest {
			emails = append(emails, e)
		}
	} else {
		for e := range u.allowed {
			emails = append(emails, e)
		}
	}
	sort.Strings(emails)

	out := make([]UserStatus, len(emails))
	for i, e := range emails {
		out[i] = UserStatus{Email: e}
		if exp, ok := latest[e]; ok {
			out[i].Active = true
			out[i].ExpiresAt = &exp
		}
	}
	return out
}
