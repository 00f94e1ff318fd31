package github

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	apperrors "github.com/kbukum/repokit/errors"
	"github.com/kbukum/repokit/httpclient"
	"github.com/kbukum/repokit/logger"
	"github.com/kbukum/repokit/observability"
	"github.com/kbukum/repokit/repository"
	"github.com/kbukum/repokit/util"
)

// Service is the typed facade over the repository endpoints. It is safe
// for concurrent use.
type Service struct {
	adapter     *httpclient.Adapter
	tokens      *InstallationTokens
	owner       string
	concurrency int
	log         *logger.Logger

	mu      sync.RWMutex
	login   string
	lookups singleflight.Group
}

// NewService validates cfg and builds the shared adapter.
func NewService(cfg Config, opts ...httpclient.Option) (*Service, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	auth, err := cfg.Authorization(opts...)
	if err != nil {
		return nil, err
	}
	var tokens *InstallationTokens
	if t, ok := auth.(httpclient.TokenAuth); ok {
		tokens, _ = t.Source.(*InstallationTokens)
	}
	a, err := httpclient.New(cfg.httpConfig(auth), opts...)
	if err != nil {
		if tokens != nil {
			_ = tokens.Close(context.Background())
		}
		return nil, err
	}
	return &Service{
		adapter:     a,
		tokens:      tokens,
		owner:       cfg.Owner,
		concurrency: cfg.MaxConcurrency,
		log:         logger.WithComponent("github"),
	}, nil
}

// Adapter returns the shared adapter.
func (s *Service) Adapter() *httpclient.Adapter { return s.adapter }

// Close releases the idle connections of the adapter and of the token
// exchange, if any.
func (s *Service) Close(ctx context.Context) error {
	err := s.adapter.Close(ctx)
	if s.tokens != nil {
		err = errors.Join(err, s.tokens.Close(ctx))
	}
	return err
}

// List returns the repositories of the authenticated account in the order
// the host reports them.
func (s *Service) List(ctx context.Context) ([]repository.Repository, error) {
	repos, err := httpclient.Execute(ctx, s.adapter, listRepositories)
	if err != nil {
		return nil, err
	}
	s.log.Debug("listed repositories", logger.Fields(logger.FieldCount, len(repos)))
	return repos, nil
}

// Create validates p and creates it under the authenticated account.
func (s *Service) Create(ctx context.Context, p repository.Prototype) (repository.Repository, error) {
	cfg, err := createConfiguration(p)
	if err != nil {
		return repository.Repository{}, err
	}
	r, err := httpclient.Execute(ctx, s.adapter, cfg)
	if err != nil {
		return repository.Repository{}, err
	}
	s.log.Info("created repository", logger.Fields(
		logger.FieldRepository, r.Name,
		logger.FieldOwner, r.Owner,
	))
	return r, nil
}

func createConfiguration(p repository.Prototype) (httpclient.Configuration[repository.Repository], error) {
	if err := p.Validate(); err != nil {
		return httpclient.Configuration[repository.Repository]{}, err
	}
	body, err := repository.EncodePrototype(p)
	if err != nil {
		return httpclient.Configuration[repository.Repository]{}, apperrors.Internal(err)
	}
	return createRepository(body), nil
}

// Update is not supported yet; it always fails with NOT_IMPLEMENTED.
func (s *Service) Update(_ context.Context, r repository.Repository) (repository.Repository, error) {
	return repository.Repository{}, apperrors.NotImplemented("repository update").
		WithDetail(logger.FieldRepository, r.Name)
}

// Delete removes r. The target owner is r.Owner, else the configured owner,
// else the authenticated login.
func (s *Service) Delete(ctx context.Context, r repository.Repository) error {
	if r.Name == "" {
		return apperrors.MissingField("name")
	}
	owner, err := s.ownerOf(ctx, r)
	if err != nil {
		return err
	}
	if _, err := httpclient.Execute(ctx, s.adapter, deleteRepository(owner, r.Name)); err != nil {
		return err
	}
	s.log.Info("deleted repository", logger.Fields(
		logger.FieldRepository, r.Name,
		logger.FieldOwner, owner,
	))
	return nil
}

// DeleteAll deletes every repository concurrently and waits for all of
// them. Each delete is attempted exactly once regardless of the others'
// outcome; the first error is returned.
func (s *Service) DeleteAll(ctx context.Context, repos []repository.Repository) error {
	ctx, span := observability.StartSpan(ctx, "repos.delete_all")
	defer span.End()
	observability.SetSpanAttribute(ctx, "repos.count", len(repos))

	start := time.Now()
	var g errgroup.Group
	if s.concurrency > 0 {
		g.SetLimit(s.concurrency)
	}
	for _, r := range repos {
		g.Go(func() error {
			return s.Delete(ctx, r)
		})
	}
	err := g.Wait()

	fields := logger.DurationFields("repos.delete_all", time.Since(start))
	fields[logger.FieldCount] = len(repos)
	if err != nil {
		observability.SetSpanError(ctx, err)
		s.log.Debug("delete all finished with errors", logger.MergeWithError(fields, err))
		return err
	}
	s.log.Info("deleted repositories", fields)
	return nil
}

// Prune deletes every listed repository whose name contains substr and
// returns the ones it targeted.
func (s *Service) Prune(ctx context.Context, substr string) ([]repository.Repository, error) {
	if substr == "" {
		return nil, apperrors.InvalidInput("substr", "an empty filter would match every repository")
	}
	repos, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	matched := repository.Filter(repos, substr)
	if len(matched) == 0 {
		return matched, nil
	}
	return matched, s.DeleteAll(ctx, matched)
}

// CurrentUser returns the authenticated account. A successful lookup is
// cached for the life of the Service; failures are not. Concurrent first
// callers share one request.
func (s *Service) CurrentUser(ctx context.Context) (string, error) {
	if login := s.cachedLogin(); login != "" {
		return login, nil
	}

	v, err, _ := s.lookups.Do("user", func() (interface{}, error) {
		// A flight that finished after the check above has filled the cache.
		if login := s.cachedLogin(); login != "" {
			return login, nil
		}
		u, err := httpclient.Execute(ctx, s.adapter, currentUser)
		if err != nil {
			return "", err
		}
		if u.Login == "" {
			return "", httpclient.NewDecodeError("login", errors.New("empty login"))
		}
		s.mu.Lock()
		s.login = u.Login
		s.mu.Unlock()
		return u.Login, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (s *Service) cachedLogin() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.login
}

// Root fetches the API root document. It doubles as a reachability check.
func (s *Service) Root(ctx context.Context) (Root, error) {
	return httpclient.Execute(ctx, s.adapter, apiRoot)
}

func (s *Service) ownerOf(ctx context.Context, r repository.Repository) (string, error) {
	if owner := util.Coalesce(r.Owner, s.owner); owner != "" {
		return owner, nil
	}
	return s.CurrentUser(ctx)
}

// ListAsync runs List in the background. Exactly one callback runs unless
// ctx is cancelled first.
func (s *Service) ListAsync(ctx context.Context, onError func(error), onSuccess func([]repository.Repository)) {
	httpclient.Perform(ctx, s.adapter, listRepositories, onError, onSuccess)
}

// CreateAsync runs Create in the background with the same callback rules
// as ListAsync. Validation failures are reported through onError.
func (s *Service) CreateAsync(ctx context.Context, p repository.Prototype, onError func(error), onSuccess func(repository.Repository)) {
	cfg, err := createConfiguration(p)
	if err != nil {
		go onError(err)
		return
	}
	httpclient.Perform(ctx, s.adapter, cfg, onError, onSuccess)
}

// DeleteAsync runs Delete in the background with the same callback rules
// as ListAsync.
func (s *Service) DeleteAsync(ctx context.Context, r repository.Repository, onError func(error), onSuccess func()) {
	go func() {
		err := s.Delete(ctx, r)
		if errors.Is(ctx.Err(), context.Canceled) {
			return
		}
		if err != nil {
			onError(err)
			return
		}
		onSuccess()
	}()
}
