package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/rabbithole/configs"
	"github.com/Aman-CERP/rabbithole/internal/cache"
	"github.com/Aman-CERP/rabbithole/internal/config"
	"github.com/Aman-CERP/rabbithole/internal/errors"
	"github.com/Aman-CERP/rabbithole/internal/fetch"
	"github.com/Aman-CERP/rabbithole/internal/logging"
	"github.com/Aman-CERP/rabbithole/internal/pipeline"
	"github.com/Aman-CERP/rabbithole/internal/sources/medium"
	"github.com/Aman-CERP/rabbithole/internal/sources/reddit"
	"github.com/Aman-CERP/rabbithole/internal/sources/wikipedia"
	"github.com/Aman-CERP/rabbithole/internal/sources/youtube"
	"github.com/Aman-CERP/rabbithole/internal/telemetry"
)

// Source re-exports the source identifiers so callers never import
// internal packages.
type Source = pipeline.Source

// Candidate re-exports the normalized result type.
type Candidate = pipeline.Candidate

// Exported source identifiers.
const (
	SourceMedium    = pipeline.SourceMedium
	SourceReddit    = pipeline.SourceReddit
	SourceWikipedia = pipeline.SourceWikipedia
	SourceYouTube   = pipeline.SourceYouTube
)

// MaxQueryLength is the longest accepted query, in runes.
const MaxQueryLength = 500

// Service aggregates educational content from all supported sources.
type Service struct {
	cfg     *config.Config
	logger  *slog.Logger
	client  *fetch.Client
	metrics *telemetry.Collector

	fetchers     map[Source]pipeline.Fetcher
	closeLogging func()
}

// Option configures a Service.
type Option func(*serviceOptions)

type serviceOptions struct {
	cfg        *config.Config
	logger     *slog.Logger
	httpClient *http.Client
	clock      func() time.Time
}

// WithConfig supplies a prepared configuration. Without it the service
// loads the layered configuration (defaults → user → project → env).
func WithConfig(cfg *config.Config) Option {
	return func(o *serviceOptions) {
		o.cfg = cfg
	}
}

// WithLogger sets the service logger. Without it the service is silent.
func WithLogger(l *slog.Logger) Option {
	return func(o *serviceOptions) {
		o.logger = l
	}
}

// WithHTTPClient substitutes the underlying HTTP client (tests).
func WithHTTPClient(hc *http.Client) Option {
	return func(o *serviceOptions) {
		o.httpClient = hc
	}
}

// WithClock substitutes the time source used by time-windowed strategies.
func WithClock(now func() time.Time) Option {
	return func(o *serviceOptions) {
		o.clock = now
	}
}

// New builds a Service: configuration, shared HTTP client, and the four
// source pipelines (cache-wrapped when enabled).
func New(opts ...Option) (*Service, error) {
	var o serviceOptions
	for _, opt := range opts {
		opt(&o)
	}

	cfg := o.cfg
	if cfg == nil {
		loaded, err := config.Load("")
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := o.logger
	closeLogging := func() {}
	if logger == nil {
		built, cleanup, err := newLogger(cfg.Logging)
		if err != nil {
			return nil, err
		}
		logger = built
		closeLogging = cleanup
	}

	clientOpts := []fetch.ClientOption{fetch.WithClientLogger(logger)}
	if o.httpClient != nil {
		clientOpts = append(clientOpts, fetch.WithHTTPClient(o.httpClient))
	}
	client := fetch.NewClient(cfg.HTTP, clientOpts...)

	s := &Service{
		cfg:          cfg,
		logger:       logger,
		client:       client,
		metrics:      telemetry.NewCollector(),
		closeLogging: closeLogging,
	}

	var youtubeOpts []youtube.Option
	if o.clock != nil {
		youtubeOpts = append(youtubeOpts, youtube.WithClock(o.clock))
	}

	profiles := []pipeline.Profile{
		medium.New(cfg.Sources.Medium, cfg.Scoring.Medium, client, logger).Profile(),
		reddit.New(cfg.Sources.Reddit, cfg.Scoring.Reddit, client, logger).Profile(),
		wikipedia.New(cfg.Sources.Wikipedia, cfg.Scoring.Wikipedia, client, logger).Profile(),
		youtube.New(cfg.Sources.YouTube, cfg.Scoring.YouTube, client, logger, youtubeOpts...).Profile(),
	}

	s.fetchers = make(map[Source]pipeline.Fetcher, len(profiles))
	for _, profile := range profiles {
		runner := pipeline.NewRunner(
			pipeline.WithParallelism(cfg.Limits.Parallelism),
			pipeline.WithStrategyTimeout(cfg.HTTP.StrategyTimeout),
			pipeline.WithRunnerLogger(logger),
			pipeline.WithRunnerMetrics(s.metrics, profile.Source))

		var f pipeline.Fetcher = pipeline.NewAggregator(profile, runner,
			pipeline.WithLimits(cfg.Limits.DefaultLimit, cfg.Limits.MaxLimit),
			pipeline.WithOverallTimeout(cfg.HTTP.OverallTimeout),
			pipeline.WithLogger(logger),
			pipeline.WithMetrics(s.metrics))

		if cfg.Cache.IsEnabled() {
			f = cache.Wrap(f, cfg.Cache.Size, cfg.Cache.TTL,
				cache.WithMetrics(s.metrics),
				cache.WithLogger(logger))
		}
		s.fetchers[profile.Source] = f
	}

	return s, nil
}

// newLogger builds a logger from the logging section: a rotating log
// file when file_path is set, stderr JSON when to_stderr is set,
// otherwise silent. The cleanup closes the log file, if any.
func newLogger(cfg config.LoggingConfig) (*slog.Logger, func(), error) {
	if cfg.FilePath != "" {
		lc := logging.DefaultConfig()
		lc.Level = cfg.Level
		lc.FilePath = cfg.FilePath
		lc.WriteToStderr = cfg.ToStderr
		return logging.Setup(lc)
	}
	if cfg.ToStderr {
		handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level: logging.LevelFromString(cfg.Level),
		})
		return slog.New(handler), func() {}, nil
	}
	return logging.Discard(), func() {}, nil
}

// Close releases resources owned by the service. It closes the log file
// when the logger was built from configuration; loggers supplied through
// WithLogger stay open.
func (s *Service) Close() {
	if s.closeLogging != nil {
		s.closeLogging()
	}
}

// Search aggregates one source. The only errors are validation errors; a
// source that produced nothing returns its fallback placeholder.
func (s *Service) Search(ctx context.Context, source Source, query string, limit int) ([]Candidate, error) {
	if err := ValidateQuery(query); err != nil {
		return nil, err
	}
	f, ok := s.fetchers[source]
	if !ok {
		return nil, errors.New(errors.ErrCodeUnknownSource,
			fmt.Sprintf("unknown source %q", source), nil).
			WithSuggestion("Use one of: medium, reddit, wikipedia, youtube")
	}
	return f.Aggregate(ctx, query, limit), nil
}

// SearchMedium aggregates Medium articles.
func (s *Service) SearchMedium(ctx context.Context, query string, limit int) ([]Candidate, error) {
	return s.Search(ctx, SourceMedium, query, limit)
}

// SearchReddit aggregates Reddit discussions.
func (s *Service) SearchReddit(ctx context.Context, query string, limit int) ([]Candidate, error) {
	return s.Search(ctx, SourceReddit, query, limit)
}

// SearchWikipedia aggregates Wikipedia articles.
func (s *Service) SearchWikipedia(ctx context.Context, query string, limit int) ([]Candidate, error) {
	return s.Search(ctx, SourceWikipedia, query, limit)
}

// SearchYouTube aggregates YouTube videos.
func (s *Service) SearchYouTube(ctx context.Context, query string, limit int) ([]Candidate, error) {
	return s.Search(ctx, SourceYouTube, query, limit)
}

// SearchAll runs every source pipeline concurrently. Results stay grouped
// per source and are never merged into one ranked list; every source is
// present in the returned map.
func (s *Service) SearchAll(ctx context.Context, query string, limit int) (map[Source][]Candidate, error) {
	if err := ValidateQuery(query); err != nil {
		return nil, err
	}

	sources := pipeline.Sources()
	slots := make([][]Candidate, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	for i, source := range sources {
		i, source := i, source
		g.Go(func() error {
			slots[i] = s.fetchers[source].Aggregate(gctx, query, limit)
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[Source][]Candidate, len(sources))
	for i, source := range sources {
		out[source] = slots[i]
	}
	return out, nil
}

// Stats returns a point-in-time snapshot of per-source metrics.
func (s *Service) Stats() map[string]telemetry.SourceStats {
	return s.metrics.Snapshot()
}

// ResetStats clears accumulated metrics.
func (s *Service) ResetStats() {
	s.metrics.Reset()
}

// PurgeCache drops every cached result.
func (s *Service) PurgeCache() {
	for _, f := range s.fetchers {
		if c, ok := f.(*cache.Fetcher); ok {
			c.Purge()
		}
	}
}

// InitUserConfig writes the annotated user configuration template to the
// XDG config path, backing up any existing file. It returns the path
// written; edit it and the next New picks the values up.
func InitUserConfig() (string, error) {
	return config.InstallUserConfig([]byte(configs.UserConfigTemplate))
}

// SaveUserConfig persists cfg as the user configuration, backing up any
// existing file. It returns the path written.
func SaveUserConfig(cfg *config.Config) (string, error) {
	if err := cfg.Validate(); err != nil {
		return "", err
	}
	return config.SaveUserConfig(cfg)
}

// ValidateQuery rejects queries the pipelines cannot work with.
func ValidateQuery(query string) error {
	q := pipeline.NewQuery(query)
	if q.Empty() {
		return errors.New(errors.ErrCodeQueryEmpty, "query must not be empty", nil).
			WithSuggestion("Provide at least one search term")
	}
	if utf8.RuneCountInString(q.Raw) > MaxQueryLength {
		return errors.New(errors.ErrCodeQueryTooLong,
			fmt.Sprintf("query exceeds %d characters", MaxQueryLength), nil).
			WithSuggestion("Shorten the query to its key terms")
	}
	return nil
}
