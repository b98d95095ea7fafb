package links

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"kwlnk/cmd/internal/clock"
)

// Service implements link management and resolution.
type Service struct {
	store Store
	gen   *KeyGenerator
	cache Cache
	pub   Publisher
	clock clock.Clock
	log   *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithCache puts c in front of the store on Resolve.
func WithCache(c Cache) Option { return func(s *Service) { s.cache = c } }

// WithPublisher sets the lifecycle event publisher.
func WithPublisher(p Publisher) Option { return func(s *Service) { s.pub = p } }

// WithClock sets the time source.
func WithClock(c clock.Clock) Option { return func(s *Service) { s.clock = c } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(s *Service) { s.log = l } }

// NewService constructs a Service.
func NewService(store Store, gen *KeyGenerator, opts ...Option) *Service {
	s := &Service{store: store, gen: gen}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.cache == nil {
		s.cache = NopCache{}
	}
	if s.pub == nil {
		s.pub = nopPublisher{}
	}
	s.clock = clock.OrSystem(s.clock)
	if s.log == nil {
		s.log = slog.Default()
	}
	return s
}

// CreateInput describes a new link. An empty Key asks for a generated one.
type CreateInput struct {
	Key       string
	URI       string
	ExpiresAt *time.Time
}

// UpdateInput describes a partial update. URI is applied when non-nil;
// ExpiresAt is applied when SetExpiry is true, nil clearing the expiry.
type UpdateInput struct {
	URI       *string
	SetExpiry bool
	ExpiresAt *time.Time
}

// Create validates in, picks a key and inserts the link attributed to actor.
//
// An insert that loses a uniqueness race is ErrKeyAlreadyExists for a caller
// supplied key; for a generated key it spends an attempt and draws again.
func (s *Service) Create(ctx context.Context, actor string, in CreateInput) (Link, error) {
	in.URI = strings.TrimSpace(in.URI)
	if err := ValidateURI(in.URI); err != nil {
		return Link{}, err
	}
	if in.Key != "" {
		if err := ValidateKey(in.Key); err != nil {
			return Link{}, err
		}
	}

	remaining := s.gen.Config().MaxAttempts
	for {
		key, used, err := s.gen.generate(ctx, in.Key, remaining)
		keygenAttempts.Add(float64(used))
		if err != nil {
			if errors.Is(err, ErrKeyGenerationExhausted) {
				keygenExhausted.Inc()
				s.log.Warn("links.create.exhausted", "attempts", s.gen.Config().MaxAttempts)
			}
			return Link{}, err
		}

		now := s.clock.Now()
		l := Link{Key: key, URI: in.URI, ExpiresAt: in.ExpiresAt}
		l.Stamp(now, actor)

		err = s.store.Insert(ctx, l)
		if err == nil {
			s.log.Info("links.create", "key", key, "actor", actor)
			s.publish(ctx, SubjectCreated, l, actor, now)
			return l, nil
		}
		if !errors.Is(err, ErrKeyAlreadyExists) {
			s.log.Error("links.create.fail", "key", key, "err", err)
			return Link{}, err
		}
		if in.Key != "" {
			return Link{}, ErrKeyAlreadyExists
		}
		remaining -= used
		if remaining <= 0 {
			keygenExhausted.Inc()
			s.log.Warn("links.create.exhausted", "attempts", s.gen.Config().MaxAttempts)
			return Link{}, ErrKeyGenerationExhausted
		}
	}
}

// Get loads a link regardless of expiry.
func (s *Service) Get(ctx context.Context, key string) (Link, error) {
	return s.store.Get(ctx, key)
}

// List returns a window of links ordered by key.
func (s *Service) List(ctx context.Context, opts ListOptions) ([]Link, error) {
	return s.store.List(ctx, opts)
}

// Count returns the number of links.
func (s *Service) Count(ctx context.Context) (int, error) {
	return s.store.Count(ctx)
}

// Update applies in to the link under key.
func (s *Service) Update(ctx context.Context, actor, key string, in UpdateInput) (Link, error) {
	l, err := s.store.Get(ctx, key)
	if err != nil {
		return Link{}, err
	}
	if in.URI != nil {
		uri := strings.TrimSpace(*in.URI)
		if err := ValidateURI(uri); err != nil {
			return Link{}, err
		}
		l.URI = uri
	}
	if in.SetExpiry {
		l.ExpiresAt = in.ExpiresAt
	}

	now := s.clock.Now()
	l.Touch(now, actor)
	if err := s.store.Update(ctx, l); err != nil {
		if !errors.Is(err, ErrLinkNotFound) {
			s.log.Error("links.update.fail", "key", key, "err", err)
		}
		return Link{}, err
	}
	s.invalidate(ctx, key)
	s.publish(ctx, SubjectUpdated, l, actor, now)
	return l, nil
}

// Delete removes the link under key.
func (s *Service) Delete(ctx context.Context, actor, key string) error {
	if err := s.store.Delete(ctx, key); err != nil {
		if !errors.Is(err, ErrLinkNotFound) {
			s.log.Error("links.delete.fail", "key", key, "err", err)
		}
		return err
	}
	s.invalidate(ctx, key)
	s.publish(ctx, SubjectDeleted, Link{Key: key}, actor, s.clock.Now())
	return nil
}

// Resolve returns the link to redirect to. Unknown keys give
// ErrLinkNotFound and expired links ErrLinkExpired.
func (s *Service) Resolve(ctx context.Context, key string) (Link, error) {
	now := s.clock.Now()

	if l, ok, err := s.cache.Get(ctx, key); err != nil {
		s.log.Warn("links.cache.get.fail", "key", key, "err", err)
	} else if ok {
		if l.IsExpired(now) {
			resolveTotal.WithLabelValues("expired").Inc()
			return Link{}, ErrLinkExpired
		}
		resolveTotal.WithLabelValues("cache_hit").Inc()
		return l, nil
	}

	l, err := s.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrLinkNotFound) {
			resolveTotal.WithLabelValues("not_found").Inc()
		}
		return Link{}, err
	}
	if l.IsExpired(now) {
		resolveTotal.WithLabelValues("expired").Inc()
		return Link{}, ErrLinkExpired
	}
	if err := s.cache.Set(ctx, l); err != nil {
		s.log.Warn("links.cache.set.fail", "key", key, "err", err)
	}
	resolveTotal.WithLabelValues("store").Inc()
	return l, nil
}

func (s *Service) invalidate(ctx context.Context, key string) {
	if err := s.cache.Delete(ctx, key); err != nil {
		s.log.Warn("links.cache.delete.fail", "key", key, "err", err)
	}
}

func (s *Service) publish(ctx context.Context, subject string, l Link, actor string, at time.Time) {
	ev := Event{Key: l.Key, URI: l.URI, ExpiresAt: l.ExpiresAt, Actor: actor, At: at}
	if err := s.pub.Publish(ctx, subject, ev); err != nil {
		s.log.Warn("links.event.publish.fail", "subject", subject, "key", l.Key, "err", err)
	}
}
