package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ankunstudio/backoffice/internal/api/metrics"
	"github.com/ankunstudio/backoffice/internal/core/domain"
	"github.com/ankunstudio/backoffice/internal/core/ports"
)

const (
	defaultBackendTimeout = 5 * time.Second
	contentSourceTable    = "content_api"
)

// Options tunes the resolution chain.
type Options struct {
	// Demo is the demo account table. Nil selects DefaultDemoAccounts.
	Demo *DemoAccountRegistry
	// Audit receives one event per outcome. Optional.
	Audit ports.AuthEventRepository
	// AllowDemoLogin enables both the bypass accounts and the final demo fallback.
	AllowDemoLogin bool
	// StrictPersistence fails a registration that could not be written to the
	// primary database instead of reporting the in-memory identity.
	StrictPersistence bool
	// BackendTimeout bounds every backend call. Defaults to 5s.
	BackendTimeout time.Duration
	// ProbeInterval makes Run refresh the health state periodically. Zero disables it.
	ProbeInterval time.Duration
}

// CredentialService resolves logins and registrations against the primary
// database, the content API and the demo registry, in that order.
type CredentialService struct {
	store   ports.IdentityStore
	content ports.ContentProvider
	demo    *DemoAccountRegistry
	audit   ports.AuthEventRepository
	health  *HealthState
	opts    Options
	log     zerolog.Logger
	now     func() time.Time
	newID   func() string
}

var _ ports.CredentialService = (*CredentialService)(nil)

// NewCredentialService wires the chain. store and content may be nil when the
// backend is not configured; it is then treated as permanently unavailable.
func NewCredentialService(
	store ports.IdentityStore,
	content ports.ContentProvider,
	opts Options,
	log zerolog.Logger,
) *CredentialService {
	if opts.BackendTimeout <= 0 {
		opts.BackendTimeout = defaultBackendTimeout
	}
	demo := opts.Demo
	if demo == nil {
		demo = DefaultDemoAccounts()
	}
	return &CredentialService{
		store:   store,
		content: content,
		demo:    demo,
		audit:   opts.Audit,
		health:  &HealthState{},
		opts:    opts,
		log:     log,
		now:     time.Now,
		newID:   newIdentityID,
	}
}

// Authenticate resolves username/password to an identity. Backend failures
// fall through to the next source; the result is never an error.
func (s *CredentialService) Authenticate(ctx context.Context, username, password string) (res domain.AuthResult) {
	defer func() {
		if r := recover(); r != nil {
			res = s.recovered(r, domain.ActionLogin, username)
		}
		s.observe(ctx, domain.ActionLogin, username, res)
	}()
	ctx = ensureContext(ctx)

	if s.opts.AllowDemoLogin {
		if user, ok := s.demo.Bypass(username, password); ok {
			return succeed(user, domain.SourceDemoFallback, domain.MsgAuthenticated)
		}
	}

	status := s.ensureProbed(ctx)

	if status.PrimaryAvailable && s.store != nil {
		user, err := s.authenticatePrimary(ctx, username, password)
		switch {
		case err == nil:
			return succeed(user, domain.SourcePrimaryDatabase, domain.MsgAuthenticated)
		case !errors.Is(err, domain.ErrInvalidCredentials):
			s.log.Warn().Err(err).Str("username", username).Msg("primary database lookup failed, falling back")
		}
	}

	if status.ContentAPIAvailable && s.content != nil {
		user, err := s.authenticateContent(ctx, username, password)
		switch {
		case err == nil:
			return succeed(user, domain.SourceContentAPI, domain.MsgAuthenticated)
		case !errors.Is(err, domain.ErrInvalidCredentials):
			s.log.Warn().Err(err).Str("username", username).Msg("content API lookup failed, falling back")
		}
	}

	if s.opts.AllowDemoLogin {
		if user, ok := s.demo.Match(username, password); ok {
			return succeed(user, domain.SourceDemoFallback, domain.MsgAuthenticated)
		}
	}

	return domain.Fail(domain.MsgInvalidCredentials)
}

// Register builds a new identity and tries to persist it in the primary
// database. Whether a failed write fails the registration is decided by
// Options.StrictPersistence.
func (s *CredentialService) Register(ctx context.Context, user domain.NewUser, password string) (res domain.AuthResult) {
	defer func() {
		if r := recover(); r != nil {
			res = s.recovered(r, domain.ActionRegister, user.Username)
		}
		s.observe(ctx, domain.ActionRegister, user.Username, res)
	}()
	ctx = ensureContext(ctx)

	user.Normalize()
	if user.Username == "" || user.Email == "" || password == "" {
		return domain.Fail(domain.MsgRequiredFields)
	}
	if len(password) > domain.MaxPasswordBytes {
		return domain.Fail(domain.MsgPasswordTooLong)
	}

	identity := s.buildIdentity(user)
	status := s.ensureProbed(ctx)

	if !status.PrimaryAvailable || s.store == nil {
		metrics.RegistrationsTotal.WithLabelValues("skipped").Inc()
		if s.opts.StrictPersistence {
			return domain.AuthResult{Message: domain.MsgPersistenceFailed, Debug: domain.ErrBackendUnavailable.Error()}
		}
		s.log.Warn().Str("username", identity.Username).Msg("primary database unavailable, registration not persisted")
		return succeed(identity, "", domain.MsgRegisteredNotPersist)
	}

	persisted, err := s.persist(ctx, identity, password)
	switch {
	case err == nil:
		metrics.RegistrationsTotal.WithLabelValues("persisted").Inc()
		return succeed(persisted, domain.SourcePrimaryDatabase, domain.MsgRegistered)
	case errors.Is(err, domain.ErrUserExists):
		metrics.RegistrationsTotal.WithLabelValues("duplicate").Inc()
		return domain.Fail(domain.MsgUserExists)
	default:
		metrics.RegistrationsTotal.WithLabelValues("failed").Inc()
		s.log.Error().Err(err).Str("username", identity.Username).Msg("failed to persist registration")
		if s.opts.StrictPersistence {
			return domain.AuthResult{Message: domain.MsgPersistenceFailed, Debug: err.Error()}
		}
		return succeed(identity, "", domain.MsgRegisteredNotPersist)
	}
}

// Probe checks every configured backend once, concurrently, and records the
// result. It never fails; an unreachable backend is simply marked unavailable.
func (s *CredentialService) Probe(ctx context.Context) domain.Status {
	ctx = ensureContext(ctx)

	var primary, content bool
	var g errgroup.Group
	g.Go(func() error {
		primary = s.probeBackend(ctx, domain.SourcePrimaryDatabase)
		return nil
	})
	g.Go(func() error {
		content = s.probeBackend(ctx, domain.SourceContentAPI)
		return nil
	})
	_ = g.Wait()

	s.health.Set(primary, content, s.now().UTC())
	metrics.BackendAvailable.WithLabelValues(string(domain.SourcePrimaryDatabase)).Set(boolGauge(primary))
	metrics.BackendAvailable.WithLabelValues(string(domain.SourceContentAPI)).Set(boolGauge(content))

	s.log.Info().Bool("primary_database", primary).Bool("content_api", content).Msg("backend probe complete")
	return s.health.Snapshot()
}

// Status returns the last probe result without probing.
func (s *CredentialService) Status() domain.Status {
	return s.health.Snapshot()
}

// Run re-probes every ProbeInterval until ctx is cancelled. It returns
// immediately when no interval is configured.
func (s *CredentialService) Run(ctx context.Context) {
	if s.opts.ProbeInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.opts.ProbeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Probe(ctx)
		}
	}
}

func (s *CredentialService) ensureProbed(ctx context.Context) domain.Status {
	if s.health.Probed() {
		return s.health.Snapshot()
	}
	return s.Probe(ctx)
}

func (s *CredentialService) probeBackend(ctx context.Context, backend domain.CredentialSource) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Str("backend", string(backend)).Interface("panic", r).Msg("backend probe panicked")
			ok = false
		}
	}()

	var check func(context.Context) error
	switch backend {
	case domain.SourcePrimaryDatabase:
		if s.store == nil {
			return false
		}
		check = s.store.Ping
	case domain.SourceContentAPI:
		if s.content == nil {
			return false
		}
		check = s.content.Reachable
	default:
		return false
	}

	if err := s.call(ctx, backend, check); err != nil {
		s.log.Warn().Err(err).Str("backend", string(backend)).Msg("backend unreachable")
		return false
	}
	return true
}

// authenticatePrimary looks the user up in label_manager, then artist. A row
// whose password does not match is skipped, not treated as a failure.
func (s *CredentialService) authenticatePrimary(ctx context.Context, username, password string) (*domain.Identity, error) {
	for _, table := range []string{domain.TableLabelManager, domain.TableArtist} {
		var cred *domain.StoredCredential
		err := s.call(ctx, domain.SourcePrimaryDatabase, func(ctx context.Context) error {
			var err error
			cred, err = s.store.FindCredential(ctx, table, username)
			return err
		})
		if errors.Is(err, domain.ErrUserNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("lookup %s: %w", table, err)
		}
		if cred == nil || !MatchPassword(cred.Password, password) {
			continue
		}

		user := cred.Identity
		user.Role = roleForTable(table)
		user.SourceTable = table
		fillDefaults(&user)
		return &user, nil
	}
	return nil, domain.ErrInvalidCredentials
}

func (s *CredentialService) authenticateContent(ctx context.Context, username, password string) (*domain.Identity, error) {
	var user *domain.Identity
	err := s.call(ctx, domain.SourceContentAPI, func(ctx context.Context) error {
		var err error
		user, err = s.content.Authenticate(ctx, username, password)
		return err
	})
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("%w: content API returned no identity", domain.ErrUnexpected)
	}
	if user.SourceTable == "" {
		user.SourceTable = contentSourceTable
	}
	fillDefaults(user)
	return user, nil
}

func (s *CredentialService) persist(ctx context.Context, identity *domain.Identity, password string) (*domain.Identity, error) {
	var exists bool
	err := s.call(ctx, domain.SourcePrimaryDatabase, func(ctx context.Context) error {
		var err error
		exists, err = s.store.Exists(ctx, identity.Username, identity.Email)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("uniqueness check: %w", err)
	}
	if exists {
		return nil, domain.ErrUserExists
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	table := tableForRole(identity.Role)
	var created *domain.Identity
	err = s.call(ctx, domain.SourcePrimaryDatabase, func(ctx context.Context) error {
		var err error
		created, err = s.store.Create(ctx, table, domain.StoredCredential{Identity: *identity, Password: hash})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("insert into %s: %w", table, err)
	}
	if created == nil {
		created = identity
	}
	if created.Role == "" {
		created.Role = identity.Role
	}
	created.SourceTable = table
	fillDefaults(created)
	return created, nil
}

// call runs fn under the backend timeout. A deadline hit is reported as
// domain.ErrBackendUnavailable.
func (s *CredentialService) call(ctx context.Context, backend domain.CredentialSource, fn func(context.Context) error) error {
	callCtx, cancel := context.WithTimeout(ctx, s.opts.BackendTimeout)
	defer cancel()

	start := time.Now()
	err := fn(callCtx)
	metrics.BackendCallDuration.WithLabelValues(string(backend)).Observe(time.Since(start).Seconds())

	if err == nil || isOutcome(err) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		metrics.BackendErrorsTotal.WithLabelValues(string(backend), "timeout").Inc()
		return fmt.Errorf("%w: %s timed out after %s: %w", domain.ErrBackendUnavailable, backend, s.opts.BackendTimeout, err)
	}
	metrics.BackendErrorsTotal.WithLabelValues(string(backend), "error").Inc()
	return err
}

func (s *CredentialService) buildIdentity(user domain.NewUser) *domain.Identity {
	identity := &domain.Identity{
		ID:       s.newID(),
		Username: user.Username,
		Email:    user.Email,
		FullName: user.FullName,
		Role:     user.Role,
		Avatar:   user.Avatar,
	}
	switch identity.Role {
	case domain.RoleLabelManager, domain.RoleAdmin, domain.RoleArtist:
	default:
		identity.Role = domain.RoleArtist
	}
	fillDefaults(identity)
	return identity
}

func (s *CredentialService) recovered(r any, action, username string) domain.AuthResult {
	err := fmt.Errorf("%w: %v", domain.ErrUnexpected, r)
	s.log.Error().Err(err).Str("action", action).Str("username", username).Msg("credential resolution aborted")
	return domain.AuthResult{Message: domain.MsgServiceError, Debug: fmt.Sprint(r)}
}

// observe counts the outcome and hands it to the audit repository. Audit
// failures are logged and never change the result.
func (s *CredentialService) observe(ctx context.Context, action, username string, res domain.AuthResult) {
	source := string(res.Source)
	if source == "" {
		source = "none"
	}
	result := "failure"
	if res.Success {
		result = "success"
		s.log.Info().Str("action", action).Str("username", username).Str("source", source).Msg("credential resolution succeeded")
	} else {
		s.log.Debug().Str("action", action).Str("username", username).Str("message", res.Message).Msg("credential resolution failed")
	}
	metrics.AuthOutcomesTotal.WithLabelValues(action, source, result).Inc()

	if s.audit == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Interface("panic", r).Msg("audit insert panicked")
		}
	}()

	auditCtx, cancel := context.WithTimeout(context.WithoutCancel(ensureContext(ctx)), s.opts.BackendTimeout)
	defer cancel()
	event := &domain.AuthEvent{
		Username: username,
		Action:   action,
		Success:  res.Success,
		Source:   res.Source,
		Message:  res.Message,
		At:       s.now().UTC(),
	}
	if err := s.audit.InsertEvent(auditCtx, event); err != nil {
		s.log.Warn().Err(err).Str("action", action).Msg("failed to record auth event")
	}
}

func succeed(user *domain.Identity, source domain.CredentialSource, message string) domain.AuthResult {
	return domain.AuthResult{Success: true, User: user, Source: source, Message: message}
}

// isOutcome reports errors that are answers from a healthy backend.
func isOutcome(err error) bool {
	return errors.Is(err, domain.ErrUserNotFound) ||
		errors.Is(err, domain.ErrInvalidCredentials) ||
		errors.Is(err, domain.ErrUserExists)
}

func roleForTable(table string) string {
	if table == domain.TableLabelManager {
		return domain.RoleAdmin
	}
	return domain.RoleArtist
}

func tableForRole(role string) string {
	if domain.IsManagerRole(role) {
		return domain.TableLabelManager
	}
	return domain.TableArtist
}

func fillDefaults(user *domain.Identity) {
	if user.FullName == "" {
		user.FullName = user.Username
	}
	if user.Role == "" {
		user.Role = domain.RoleArtist
	}
	if user.Avatar == "" {
		user.Avatar = domain.DefaultAvatar
	}
}

func newIdentityID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func boolGauge(v bool) float64 {
	if v {
		return 1
	}
	return 0
}
