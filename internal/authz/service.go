package authz

import (
	"context"
	"log/slog"
	"time"
)

// Metric outcomes recorded per decision.
const (
	OutcomeAllow  = "allow"
	OutcomeDeny   = "deny"
	OutcomeBypass = "bypass"
	OutcomeError  = "error"
)

// Recorder receives engine metrics. Implementations must be safe for
// concurrent use; a nil Recorder disables recording.
type Recorder interface {
	AuthzDecision(outcome string)
	AuthzCacheLookup(hit bool)
	AuthzResolveDuration(d time.Duration)
}

// Service is the authorization facade. It is the single point where store
// failures become a conservative deny; pure evaluation never fails.
type Service struct {
	assignments AssignmentStore
	resolver    *Resolver
	cache       *Cache
	logger      *slog.Logger
	recorder    Recorder
	now         func() time.Time
}

// NewService wires the engine together. cache must not be shared with
// another Service using different stores.
func NewService(assignments AssignmentStore, resolver *Resolver, cache *Cache, logger *slog.Logger, recorder Recorder) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		assignments: assignments,
		resolver:    resolver,
		cache:       cache,
		logger:      logger,
		recorder:    recorder,
		now:         time.Now,
	}
}

// Cache exposes the service's cache for invalidation wiring.
func (s *Service) Cache() *Cache {
	return s.cache
}

// Authorized reports whether the request is allowed. Store failures return
// (false, err) so callers can log the cause while still denying.
func (s *Service) Authorized(ctx context.Context, req Request) (bool, error) {
	decision, err := s.Authorize(ctx, req)
	return decision.Allowed, err
}

// Authorize evaluates the request and returns the full decision, including
// the matched grant for diagnostics.
func (s *Service) Authorize(ctx context.Context, req Request) (Decision, error) {
	if req.Principal.ID == "" {
		s.record(OutcomeDeny)
		return Decision{}, ErrNoPrincipal
	}
	if req.Principal.IsPlatformSuperAdmin() {
		s.record(OutcomeBypass)
		return Decision{Allowed: true, Bypass: true}, nil
	}

	key := Key{PrincipalID: req.Principal.ID, OrgID: req.OrgID}
	_, hit := s.cache.Get(key)
	if s.recorder != nil {
		s.recorder.AuthzCacheLookup(hit)
	}

	perms, err := s.cache.GetOrLoad(ctx, key, func(ctx context.Context) ([]Permission, error) {
		return s.loadEffectivePermissions(ctx, key)
	})
	if err != nil {
		s.record(OutcomeError)
		s.logger.Error("authorization load failed, denying",
			slog.String("principal_id", req.Principal.ID),
			slog.String("org_id", req.OrgID),
			slog.Any("error", err))
		return Decision{}, err
	}

	for i := range perms {
		if Matches(perms[i], req) {
			s.record(OutcomeAllow)
			matched := perms[i]
			return Decision{Allowed: true, Matched: &matched}, nil
		}
	}
	s.record(OutcomeDeny)
	return Decision{}, nil
}

// loadEffectivePermissions resolves every live assignment for the key and
// unions the results, deduplicating across assignments.
func (s *Service) loadEffectivePermissions(ctx context.Context, key Key) ([]Permission, error) {
	start := s.now()
	assignments, err := s.assignments.ListAssignments(ctx, key.PrincipalID, key.OrgID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	seen := make(map[string]struct{})
	var effective []Permission
	for _, assignment := range assignments {
		if assignment.Expired(now) {
			continue
		}
		perms, err := s.resolver.Resolve(ctx, assignment)
		if err != nil {
			return nil, err
		}
		for _, p := range perms {
			k := p.key()
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			effective = append(effective, p)
		}
	}

	if s.recorder != nil {
		s.recorder.AuthzResolveDuration(time.Since(start))
	}
	return effective, nil
}

func (s *Service) record(outcome string) {
	if s.recorder != nil {
		s.recorder.AuthzDecision(outcome)
	}
}
