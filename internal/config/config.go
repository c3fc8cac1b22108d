package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete RabbitHole configuration.
// Defaults are layered with user config, project config, and environment
// variables; see Load for precedence.
type Config struct {
	Version int           `yaml:"version" json:"version"`
	HTTP    HTTPConfig    `yaml:"http" json:"http"`
	Limits  LimitsConfig  `yaml:"limits" json:"limits"`
	Cache   CacheConfig   `yaml:"cache" json:"cache"`
	Scoring ScoringConfig `yaml:"scoring" json:"scoring"`
	Sources SourcesConfig `yaml:"sources" json:"sources"`
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// HTTPConfig configures the shared fetch client and pipeline timeouts.
type HTTPConfig struct {
	// Timeout bounds a single upstream HTTP call.
	Timeout time.Duration `yaml:"timeout" json:"timeout"`

	// StrategyTimeout bounds one strategy's full run (all of its calls).
	StrategyTimeout time.Duration `yaml:"strategy_timeout" json:"strategy_timeout"`

	// OverallTimeout bounds one aggregation call end to end.
	OverallTimeout time.Duration `yaml:"overall_timeout" json:"overall_timeout"`

	// UserAgent identifies the library to API-style endpoints.
	UserAgent string `yaml:"user_agent" json:"user_agent"`

	// BrowserUserAgent is sent to endpoints that reject non-browser agents.
	BrowserUserAgent string `yaml:"browser_user_agent" json:"browser_user_agent"`

	// RateLimit is the per-host request rate (requests per second).
	RateLimit float64 `yaml:"rate_limit" json:"rate_limit"`

	// RateBurst is the per-host rate limiter burst size.
	RateBurst int `yaml:"rate_burst" json:"rate_burst"`

	// RetryMax is the number of retries for retryable upstream failures.
	RetryMax int `yaml:"retry_max" json:"retry_max"`

	// RetryInitialDelay is the backoff before the first retry.
	RetryInitialDelay time.Duration `yaml:"retry_initial_delay" json:"retry_initial_delay"`

	// MaxBodyBytes caps the size of a fetched response body.
	MaxBodyBytes int64 `yaml:"max_body_bytes" json:"max_body_bytes"`

	// BreakerMaxFailures opens a host's circuit after this many consecutive failures.
	BreakerMaxFailures int `yaml:"breaker_max_failures" json:"breaker_max_failures"`

	// BreakerResetTimeout is how long an open circuit waits before a probe.
	BreakerResetTimeout time.Duration `yaml:"breaker_reset_timeout" json:"breaker_reset_timeout"`
}

// LimitsConfig configures result-count limits.
type LimitsConfig struct {
	// DefaultLimit is used when the caller passes limit <= 0.
	DefaultLimit int `yaml:"default_limit" json:"default_limit"`
	// MaxLimit clamps caller-requested limits.
	MaxLimit int `yaml:"max_limit" json:"max_limit"`
	// Parallelism bounds concurrent strategies within one aggregation call.
	Parallelism int `yaml:"parallelism" json:"parallelism"`
}

// CacheConfig configures the per-source result cache.
// Enabled is a pointer so `enabled: false` alone in a config file is
// distinguishable from the key being absent when layers merge.
type CacheConfig struct {
	Enabled *bool         `yaml:"enabled" json:"enabled"`
	Size    int           `yaml:"size" json:"size"`
	TTL     time.Duration `yaml:"ttl" json:"ttl"`
}

// IsEnabled reports whether the cache is switched on.
func (c CacheConfig) IsEnabled() bool {
	return c.Enabled != nil && *c.Enabled
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level    string `yaml:"level" json:"level"`
	FilePath string `yaml:"file_path" json:"file_path"`
	ToStderr bool   `yaml:"to_stderr" json:"to_stderr"`
}

// ScoringConfig carries every source's relevance weights and filter
// thresholds. The values are empirically tuned; they are exposed as
// configuration rather than corrected or re-derived.
type ScoringConfig struct {
	Medium    MediumScoring    `yaml:"medium" json:"medium"`
	Reddit    RedditScoring    `yaml:"reddit" json:"reddit"`
	Wikipedia WikipediaScoring `yaml:"wikipedia" json:"wikipedia"`
	YouTube   YouTubeScoring   `yaml:"youtube" json:"youtube"`
}

// MediumScoring configures the Medium filter and scorer.
type MediumScoring struct {
	TitleTokenWeight       int `yaml:"title_token_weight" json:"title_token_weight"`
	DescriptionTokenWeight int `yaml:"description_token_weight" json:"description_token_weight"`
	TitleKeywordWeight     int `yaml:"title_keyword_weight" json:"title_keyword_weight"`
	DescKeywordWeight      int `yaml:"desc_keyword_weight" json:"desc_keyword_weight"`
	LongTitleBonus         int `yaml:"long_title_bonus" json:"long_title_bonus"`
	LongTitleLength        int `yaml:"long_title_length" json:"long_title_length"`

	// Filter thresholds.
	MinTitleLength      int `yaml:"min_title_length" json:"min_title_length"`
	RelevantTitleLength int `yaml:"relevant_title_length" json:"relevant_title_length"`

	// TechnicalIndicators gate acceptance; TechnicalKeywords earn score.
	TechnicalIndicators []string `yaml:"technical_indicators" json:"technical_indicators"`
	TechnicalKeywords   []string `yaml:"technical_keywords" json:"technical_keywords"`
}

// RedditScoring configures the Reddit filter and scorer.
type RedditScoring struct {
	TitleTokenWeight int `yaml:"title_token_weight" json:"title_token_weight"`

	UpvoteTier1           int `yaml:"upvote_tier1" json:"upvote_tier1"`
	UpvoteTier1Bonus      int `yaml:"upvote_tier1_bonus" json:"upvote_tier1_bonus"`
	UpvoteTier2           int `yaml:"upvote_tier2" json:"upvote_tier2"`
	UpvoteTier2Bonus      int `yaml:"upvote_tier2_bonus" json:"upvote_tier2_bonus"`
	UpvoteTier3           int `yaml:"upvote_tier3" json:"upvote_tier3"`
	UpvoteTier3Bonus      int `yaml:"upvote_tier3_bonus" json:"upvote_tier3_bonus"`
	CommentTier1          int `yaml:"comment_tier1" json:"comment_tier1"`
	CommentTier1Bonus     int `yaml:"comment_tier1_bonus" json:"comment_tier1_bonus"`
	CommentTier2          int `yaml:"comment_tier2" json:"comment_tier2"`
	CommentTier2Bonus     int `yaml:"comment_tier2_bonus" json:"comment_tier2_bonus"`
	CommentTier3          int `yaml:"comment_tier3" json:"comment_tier3"`
	CommentTier3Bonus     int `yaml:"comment_tier3_bonus" json:"comment_tier3_bonus"`
	GildedBonus           int `yaml:"gilded_bonus" json:"gilded_bonus"`
	SelfPostBonus         int `yaml:"self_post_bonus" json:"self_post_bonus"`
	QualitySubredditBonus int `yaml:"quality_subreddit_bonus" json:"quality_subreddit_bonus"`

	// Engagement ratio is comments / max(upvotes, 1).
	EngagementHigh      float64 `yaml:"engagement_high" json:"engagement_high"`
	EngagementHighBonus int     `yaml:"engagement_high_bonus" json:"engagement_high_bonus"`
	EngagementLow       float64 `yaml:"engagement_low" json:"engagement_low"`
	EngagementLowBonus  int     `yaml:"engagement_low_bonus" json:"engagement_low_bonus"`

	// Filter thresholds.
	MinComments         int `yaml:"min_comments" json:"min_comments"`
	SelfPostCommentGate int `yaml:"self_post_comment_gate" json:"self_post_comment_gate"`
	CommentFloor        int `yaml:"comment_floor" json:"comment_floor"`
}

// WikipediaScoring configures the Wikipedia filter and scorer.
type WikipediaScoring struct {
	TitleTokenWeight       int `yaml:"title_token_weight" json:"title_token_weight"`
	DescriptionTokenWeight int `yaml:"description_token_weight" json:"description_token_weight"`

	ExtractTier1      int `yaml:"extract_tier1" json:"extract_tier1"`
	ExtractTier1Bonus int `yaml:"extract_tier1_bonus" json:"extract_tier1_bonus"`
	ExtractTier2      int `yaml:"extract_tier2" json:"extract_tier2"`
	ExtractTier2Bonus int `yaml:"extract_tier2_bonus" json:"extract_tier2_bonus"`
	ExtractTier3      int `yaml:"extract_tier3" json:"extract_tier3"`
	ExtractTier3Bonus int `yaml:"extract_tier3_bonus" json:"extract_tier3_bonus"`

	SectionTier1      int `yaml:"section_tier1" json:"section_tier1"`
	SectionTier1Bonus int `yaml:"section_tier1_bonus" json:"section_tier1_bonus"`
	SectionTier2      int `yaml:"section_tier2" json:"section_tier2"`
	SectionTier2Bonus int `yaml:"section_tier2_bonus" json:"section_tier2_bonus"`

	WordCountGate  int `yaml:"word_count_gate" json:"word_count_gate"`
	WordCountBonus int `yaml:"word_count_bonus" json:"word_count_bonus"`

	// Filter thresholds.
	MinExtractLength     int `yaml:"min_extract_length" json:"min_extract_length"`
	SectionGate          int `yaml:"section_gate" json:"section_gate"`
	DetailedExtractGate  int `yaml:"detailed_extract_gate" json:"detailed_extract_gate"`
	MinAcceptableExtract int `yaml:"min_acceptable_extract" json:"min_acceptable_extract"`
}

// YouTubeScoring configures the YouTube filter and scorer.
type YouTubeScoring struct {
	TitleTokenWeight        int `yaml:"title_token_weight" json:"title_token_weight"`
	EducationalKeywordBonus int `yaml:"educational_keyword_bonus" json:"educational_keyword_bonus"`

	ViewTier1      int `yaml:"view_tier1" json:"view_tier1"`
	ViewTier1Bonus int `yaml:"view_tier1_bonus" json:"view_tier1_bonus"`
	ViewTier2      int `yaml:"view_tier2" json:"view_tier2"`
	ViewTier2Bonus int `yaml:"view_tier2_bonus" json:"view_tier2_bonus"`

	// Filter thresholds.
	MinTitleLength int `yaml:"min_title_length" json:"min_title_length"`

	SpamIndicators        []string `yaml:"spam_indicators" json:"spam_indicators"`
	EducationalIndicators []string `yaml:"educational_indicators" json:"educational_indicators"`
	EducationalKeywords   []string `yaml:"educational_keywords" json:"educational_keywords"`
}

// SourcesConfig carries per-source endpoint and strategy configuration.
type SourcesConfig struct {
	Medium    MediumSource    `yaml:"medium" json:"medium"`
	Reddit    RedditSource    `yaml:"reddit" json:"reddit"`
	Wikipedia WikipediaSource `yaml:"wikipedia" json:"wikipedia"`
	YouTube   YouTubeSource   `yaml:"youtube" json:"youtube"`
}

// MediumSource configures the Medium adapter.
type MediumSource struct {
	// BaseURL is the Medium site root (overridable for tests).
	BaseURL string `yaml:"base_url" json:"base_url"`
	// GoogleBaseURL is the Google search root used by the tutorial strategy.
	GoogleBaseURL string `yaml:"google_base_url" json:"google_base_url"`

	// Publications is the curated publication slug list, searched in order.
	Publications    []string `yaml:"publications" json:"publications"`
	MaxPublications int      `yaml:"max_publications" json:"max_publications"`

	// BaseTags are always appended to generated RSS tag variations.
	BaseTags []string `yaml:"base_tags" json:"base_tags"`
	// TagExpansions maps a query substring to extra RSS tags.
	TagExpansions map[string][]string `yaml:"tag_expansions" json:"tag_expansions"`
}

// RedditSource configures the Reddit adapter.
type RedditSource struct {
	BaseURL string `yaml:"base_url" json:"base_url"`

	ProgrammingSubreddits []string `yaml:"programming_subreddits" json:"programming_subreddits"`
	LearningSubreddits    []string `yaml:"learning_subreddits" json:"learning_subreddits"`
	TechnicalSubreddits   []string `yaml:"technical_subreddits" json:"technical_subreddits"`

	// TopicSubreddits maps a topic to its dedicated subreddits; topics whose
	// words appear in the query contribute their subreddits.
	TopicSubreddits    map[string][]string `yaml:"topic_subreddits" json:"topic_subreddits"`
	MaxTopicSubreddits int                 `yaml:"max_topic_subreddits" json:"max_topic_subreddits"`

	// QualitySubreddits earn a scoring bonus.
	QualitySubreddits []string `yaml:"quality_subreddits" json:"quality_subreddits"`
}

// WikipediaSource configures the Wikipedia adapter.
type WikipediaSource struct {
	// APIURL is the MediaWiki action API endpoint.
	APIURL string `yaml:"api_url" json:"api_url"`
	// UserAgent overrides the client user agent for Wikipedia calls.
	UserAgent string `yaml:"user_agent" json:"user_agent"`
	// MaxRelatedQueries bounds the related-topics strategy.
	MaxRelatedQueries int `yaml:"max_related_queries" json:"max_related_queries"`
	// MaxSections bounds how many section titles are fetched per page.
	MaxSections int `yaml:"max_sections" json:"max_sections"`
}

// YouTubeSource configures the YouTube adapter.
type YouTubeSource struct {
	// APIKey enables the Data API strategies. Without it only the page
	// scrape strategy contributes.
	APIKey string `yaml:"api_key" json:"api_key"`
	// ScrapeBaseURL is the results-page root used by the scrape strategy.
	ScrapeBaseURL string `yaml:"scrape_base_url" json:"scrape_base_url"`
	// APIEndpoint overrides the Data API endpoint (tests only; empty = default).
	APIEndpoint string `yaml:"api_endpoint" json:"api_endpoint"`
	// MaxAPIQueries bounds rewrites per API strategy to protect quota.
	MaxAPIQueries int `yaml:"max_api_queries" json:"max_api_queries"`
	// MaxScrapeQueries bounds rewrites used by the scrape strategy.
	MaxScrapeQueries int `yaml:"max_scrape_queries" json:"max_scrape_queries"`
	// RecentWindow is how far back the recent strategy looks.
	RecentWindow time.Duration `yaml:"recent_window" json:"recent_window"`
}

// NewConfig creates a new Config with the tuned defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		HTTP: HTTPConfig{
			Timeout:             10 * time.Second,
			StrategyTimeout:     8 * time.Second,
			OverallTimeout:      30 * time.Second,
			UserAgent:           "RabbitHole Learning Platform (educational use)",
			BrowserUserAgent:    "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			RateLimit:           2.0,
			RateBurst:           4,
			RetryMax:            2,
			RetryInitialDelay:   500 * time.Millisecond,
			MaxBodyBytes:        4 << 20, // 4MB
			BreakerMaxFailures:  5,
			BreakerResetTimeout: 30 * time.Second,
		},
		Limits: LimitsConfig{
			DefaultLimit: 5,
			MaxLimit:     25,
			Parallelism:  4,
		},
		Cache: CacheConfig{
			Enabled: boolPtr(true),
			Size:    256,
			TTL:     15 * time.Minute,
		},
		Scoring: ScoringConfig{
			Medium:    defaultMediumScoring(),
			Reddit:    defaultRedditScoring(),
			Wikipedia: defaultWikipediaScoring(),
			YouTube:   defaultYouTubeScoring(),
		},
		Sources: SourcesConfig{
			Medium:    defaultMediumSource(),
			Reddit:    defaultRedditSource(),
			Wikipedia: defaultWikipediaSource(),
			YouTube:   defaultYouTubeSource(),
		},
		Logging: LoggingConfig{
			Level:    "info",
			FilePath: "",
			ToStderr: false,
		},
	}
}

func defaultMediumScoring() MediumScoring {
	return MediumScoring{
		TitleTokenWeight:       3,
		DescriptionTokenWeight: 1,
		TitleKeywordWeight:     2,
		DescKeywordWeight:      1,
		LongTitleBonus:         1,
		LongTitleLength:        40,
		MinTitleLength:         15,
		RelevantTitleLength:    30,
		TechnicalIndicators: []string{
			"guide", "tutorial", "how to", "explained", "deep dive",
			"complete", "comprehensive", "documentation", "best practices",
			"implementation", "architecture", "advanced", "mastering",
		},
		TechnicalKeywords: []string{
			"guide", "tutorial", "documentation", "deep dive",
			"complete", "comprehensive", "advanced", "mastering",
		},
	}
}

func defaultRedditScoring() RedditScoring {
	return RedditScoring{
		TitleTokenWeight:      2,
		UpvoteTier1:           10,
		UpvoteTier1Bonus:      2,
		UpvoteTier2:           50,
		UpvoteTier2Bonus:      2,
		UpvoteTier3:           100,
		UpvoteTier3Bonus:      3,
		CommentTier1:          5,
		CommentTier1Bonus:     3,
		CommentTier2:          15,
		CommentTier2Bonus:     3,
		CommentTier3:          30,
		CommentTier3Bonus:     4,
		GildedBonus:           5,
		SelfPostBonus:         2,
		QualitySubredditBonus: 2,
		EngagementHigh:        0.2,
		EngagementHighBonus:   3,
		EngagementLow:         0.1,
		EngagementLowBonus:    2,
		MinComments:           5,
		SelfPostCommentGate:   10,
		CommentFloor:          10,
	}
}

func defaultWikipediaScoring() WikipediaScoring {
	return WikipediaScoring{
		TitleTokenWeight:       3,
		DescriptionTokenWeight: 1,
		ExtractTier1:           2000,
		ExtractTier1Bonus:      3,
		ExtractTier2:           1000,
		ExtractTier2Bonus:      2,
		ExtractTier3:           500,
		ExtractTier3Bonus:      1,
		SectionTier1:           5,
		SectionTier1Bonus:      2,
		SectionTier2:           3,
		SectionTier2Bonus:      1,
		WordCountGate:          1000,
		WordCountBonus:         1,
		MinExtractLength:       200,
		SectionGate:            3,
		DetailedExtractGate:    1000,
		MinAcceptableExtract:   300,
	}
}

func defaultYouTubeScoring() YouTubeScoring {
	return YouTubeScoring{
		TitleTokenWeight:        2,
		EducationalKeywordBonus: 1,
		ViewTier1:               10000,
		ViewTier1Bonus:          1,
		ViewTier2:               100000,
		ViewTier2Bonus:          1,
		MinTitleLength:          15,
		SpamIndicators: []string{
			"subscribe", "smash that like", "notification bell",
			"click here", "download now", "free money",
			"you won't believe", "shocking", "gone wrong",
		},
		EducationalIndicators: []string{
			"tutorial", "course", "learn", "guide", "explained",
			"documentation", "fundamentals", "basics", "advanced",
			"programming", "coding", "development", "tech",
		},
		EducationalKeywords: []string{
			"tutorial", "course", "learn", "guide", "explained",
		},
	}
}

func defaultMediumSource() MediumSource {
	return MediumSource{
		BaseURL:       "https://medium.com",
		GoogleBaseURL: "https://www.google.com",
		Publications: []string{
			"better-programming",
			"javascript-in-plain-english",
			"towards-data-science",
			"the-startup",
			"levelup-gitconnected",
			"codeburst",
			"hackernoon",
			"medium-engineering",
			"netflix-techblog",
			"engineering-at-meta",
		},
		MaxPublications: 5,
		BaseTags:        []string{"programming", "software-engineering", "technology"},
		TagExpansions: map[string][]string{
			"javascript": {"javascript", "nodejs", "web-development"},
			"python":     {"python", "data-science", "machine-learning"},
			"react":      {"react", "frontend", "javascript"},
			"data":       {"data-science", "analytics", "big-data"},
		},
	}
}

func defaultRedditSource() RedditSource {
	return RedditSource{
		BaseURL: "https://www.reddit.com",
		ProgrammingSubreddits: []string{
			"learnprogramming", "programming", "coding", "AskProgramming",
			"webdev", "softwaredevelopment", "compsci", "algorithms",
		},
		LearningSubreddits: []string{
			"explainlikeimfive", "todayilearned", "YouShouldKnow",
			"learnmath", "askscience", "NoStupidQuestions",
		},
		TechnicalSubreddits: []string{
			"ExperiencedDevs", "cscareerquestions", "TrueReddit",
			"technology", "sysadmin", "programming",
		},
		TopicSubreddits: map[string][]string{
			"javascript":       {"javascript", "node", "reactjs", "vuejs", "angular"},
			"python":           {"python", "learnpython", "datascience", "MachineLearning"},
			"java":             {"learnjava", "java", "springframework"},
			"react":            {"reactjs", "frontend", "webdev"},
			"machine learning": {"MachineLearning", "datascience", "artificial"},
			"data science":     {"datascience", "analytics", "bigdata"},
			"web development":  {"webdev", "frontend", "backend"},
			"database":         {"database", "sql", "mongodb"},
			"mobile":           {"androiddev", "iOSProgramming", "reactnative"},
			"devops":           {"devops", "kubernetes", "docker"},
			"security":         {"netsec", "cybersecurity", "AskNetSec"},
		},
		MaxTopicSubreddits: 5,
		QualitySubreddits: []string{
			"askscience", "explainlikeimfive", "programming",
			"learnprogramming", "datascience", "experienceddevs",
		},
	}
}

func defaultWikipediaSource() WikipediaSource {
	return WikipediaSource{
		APIURL:            "https://en.wikipedia.org/w/api.php",
		UserAgent:         "RabbitHole Learning Platform (educational use)",
		MaxRelatedQueries: 3,
		MaxSections:       8,
	}
}

func defaultYouTubeSource() YouTubeSource {
	return YouTubeSource{
		APIKey:           "",
		ScrapeBaseURL:    "https://www.youtube.com",
		APIEndpoint:      "",
		MaxAPIQueries:    3,
		MaxScrapeQueries: 2,
		RecentWindow:     180 * 24 * time.Hour,
	}
}

// GetUserConfigPath returns the path to the user/global configuration file.
// It follows XDG Base Directory conventions:
//   - $XDG_CONFIG_HOME/rabbithole/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/rabbithole/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "rabbithole", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "rabbithole", "config.yaml")
	}
	return filepath.Join(home, ".config", "rabbithole", "config.yaml")
}

// GetUserConfigDir returns the directory containing the user configuration.
func GetUserConfigDir() string {
	return filepath.Dir(GetUserConfigPath())
}

// UserConfigExists returns true if the user configuration file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

// loadUserConfig loads the user/global configuration file if it exists.
// Returns nil config and nil error if the file doesn't exist.
func loadUserConfig() (*Config, error) {
	configPath := GetUserConfigPath()

	if !fileExists(configPath) {
		return nil, nil // No user config is fine
	}

	cfg := NewConfig()
	if err := cfg.loadYAML(configPath); err != nil {
		return nil, fmt.Errorf("failed to load user config from %s: %w", configPath, err)
	}

	return cfg, nil
}

// Load loads configuration from the specified directory.
// It applies configuration in order of increasing precedence:
//  1. Hardcoded defaults
//  2. User/global config (~/.config/rabbithole/config.yaml)
//  3. Project config (.rabbithole.yaml in the given directory)
//  4. Environment variables (RABBITHOLE_*)
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if userCfg, err := loadUserConfig(); err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	} else if userCfg != nil {
		cfg.mergeWith(userCfg)
	}

	if err := cfg.loadFromFile(dir); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadFromFile attempts to load configuration from .rabbithole.yaml or .rabbithole.yml.
func (c *Config) loadFromFile(dir string) error {
	yamlPath := filepath.Join(dir, ".rabbithole.yaml")
	if _, err := os.Stat(yamlPath); err == nil {
		return c.loadYAML(yamlPath)
	}

	ymlPath := filepath.Join(dir, ".rabbithole.yml")
	if _, err := os.Stat(ymlPath); err == nil {
		return c.loadYAML(ymlPath)
	}

	// No config file is fine - use defaults
	return nil
}

// loadYAML loads and merges configuration from a YAML file.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	c.mergeWith(&parsed)
	return nil
}

// mergeWith merges non-zero values from other into c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}

	// HTTP
	if other.HTTP.Timeout != 0 {
		c.HTTP.Timeout = other.HTTP.Timeout
	}
	if other.HTTP.StrategyTimeout != 0 {
		c.HTTP.StrategyTimeout = other.HTTP.StrategyTimeout
	}
	if other.HTTP.OverallTimeout != 0 {
		c.HTTP.OverallTimeout = other.HTTP.OverallTimeout
	}
	if other.HTTP.UserAgent != "" {
		c.HTTP.UserAgent = other.HTTP.UserAgent
	}
	if other.HTTP.BrowserUserAgent != "" {
		c.HTTP.BrowserUserAgent = other.HTTP.BrowserUserAgent
	}
	if other.HTTP.RateLimit != 0 {
		c.HTTP.RateLimit = other.HTTP.RateLimit
	}
	if other.HTTP.RateBurst != 0 {
		c.HTTP.RateBurst = other.HTTP.RateBurst
	}
	if other.HTTP.RetryMax != 0 {
		c.HTTP.RetryMax = other.HTTP.RetryMax
	}
	if other.HTTP.RetryInitialDelay != 0 {
		c.HTTP.RetryInitialDelay = other.HTTP.RetryInitialDelay
	}
	if other.HTTP.MaxBodyBytes != 0 {
		c.HTTP.MaxBodyBytes = other.HTTP.MaxBodyBytes
	}
	if other.HTTP.BreakerMaxFailures != 0 {
		c.HTTP.BreakerMaxFailures = other.HTTP.BreakerMaxFailures
	}
	if other.HTTP.BreakerResetTimeout != 0 {
		c.HTTP.BreakerResetTimeout = other.HTTP.BreakerResetTimeout
	}

	// Limits
	if other.Limits.DefaultLimit != 0 {
		c.Limits.DefaultLimit = other.Limits.DefaultLimit
	}
	if other.Limits.MaxLimit != 0 {
		c.Limits.MaxLimit = other.Limits.MaxLimit
	}
	if other.Limits.Parallelism != 0 {
		c.Limits.Parallelism = other.Limits.Parallelism
	}

	// Cache
	if other.Cache.Enabled != nil {
		c.Cache.Enabled = other.Cache.Enabled
	}
	if other.Cache.Size != 0 {
		c.Cache.Size = other.Cache.Size
	}
	if other.Cache.TTL != 0 {
		c.Cache.TTL = other.Cache.TTL
	}

	c.Scoring.mergeWith(&other.Scoring)
	c.Sources.mergeWith(&other.Sources)

	// Logging
	if other.Logging.Level != "" {
		c.Logging.Level = other.Logging.Level
	}
	if other.Logging.FilePath != "" {
		c.Logging.FilePath = other.Logging.FilePath
		c.Logging.ToStderr = other.Logging.ToStderr
	}
}

// mergeWith merges non-zero scoring values. Weight fields legitimately hold
// small integers, so zero means "not set" here, same rule as everywhere else.
func (s *ScoringConfig) mergeWith(other *ScoringConfig) {
	mergeKeywords := func(dst *[]string, src []string) {
		if len(src) > 0 {
			*dst = src
		}
	}

	// Medium
	if other.Medium.TitleTokenWeight != 0 {
		s.Medium.TitleTokenWeight = other.Medium.TitleTokenWeight
	}
	if other.Medium.DescriptionTokenWeight != 0 {
		s.Medium.DescriptionTokenWeight = other.Medium.DescriptionTokenWeight
	}
	if other.Medium.TitleKeywordWeight != 0 {
		s.Medium.TitleKeywordWeight = other.Medium.TitleKeywordWeight
	}
	if other.Medium.DescKeywordWeight != 0 {
		s.Medium.DescKeywordWeight = other.Medium.DescKeywordWeight
	}
	if other.Medium.LongTitleBonus != 0 {
		s.Medium.LongTitleBonus = other.Medium.LongTitleBonus
	}
	if other.Medium.LongTitleLength != 0 {
		s.Medium.LongTitleLength = other.Medium.LongTitleLength
	}
	if other.Medium.MinTitleLength != 0 {
		s.Medium.MinTitleLength = other.Medium.MinTitleLength
	}
	if other.Medium.RelevantTitleLength != 0 {
		s.Medium.RelevantTitleLength = other.Medium.RelevantTitleLength
	}
	mergeKeywords(&s.Medium.TechnicalIndicators, other.Medium.TechnicalIndicators)
	mergeKeywords(&s.Medium.TechnicalKeywords, other.Medium.TechnicalKeywords)

	// Reddit
	if other.Reddit.TitleTokenWeight != 0 {
		s.Reddit.TitleTokenWeight = other.Reddit.TitleTokenWeight
	}
	if other.Reddit.UpvoteTier1 != 0 {
		s.Reddit.UpvoteTier1 = other.Reddit.UpvoteTier1
		s.Reddit.UpvoteTier1Bonus = other.Reddit.UpvoteTier1Bonus
	}
	if other.Reddit.UpvoteTier2 != 0 {
		s.Reddit.UpvoteTier2 = other.Reddit.UpvoteTier2
		s.Reddit.UpvoteTier2Bonus = other.Reddit.UpvoteTier2Bonus
	}
	if other.Reddit.UpvoteTier3 != 0 {
		s.Reddit.UpvoteTier3 = other.Reddit.UpvoteTier3
		s.Reddit.UpvoteTier3Bonus = other.Reddit.UpvoteTier3Bonus
	}
	if other.Reddit.CommentTier1 != 0 {
		s.Reddit.CommentTier1 = other.Reddit.CommentTier1
		s.Reddit.CommentTier1Bonus = other.Reddit.CommentTier1Bonus
	}
	if other.Reddit.CommentTier2 != 0 {
		s.Reddit.CommentTier2 = other.Reddit.CommentTier2
		s.Reddit.CommentTier2Bonus = other.Reddit.CommentTier2Bonus
	}
	if other.Reddit.CommentTier3 != 0 {
		s.Reddit.CommentTier3 = other.Reddit.CommentTier3
		s.Reddit.CommentTier3Bonus = other.Reddit.CommentTier3Bonus
	}
	if other.Reddit.GildedBonus != 0 {
		s.Reddit.GildedBonus = other.Reddit.GildedBonus
	}
	if other.Reddit.SelfPostBonus != 0 {
		s.Reddit.SelfPostBonus = other.Reddit.SelfPostBonus
	}
	if other.Reddit.QualitySubredditBonus != 0 {
		s.Reddit.QualitySubredditBonus = other.Reddit.QualitySubredditBonus
	}
	if other.Reddit.EngagementHigh != 0 {
		s.Reddit.EngagementHigh = other.Reddit.EngagementHigh
		s.Reddit.EngagementHighBonus = other.Reddit.EngagementHighBonus
	}
	if other.Reddit.EngagementLow != 0 {
		s.Reddit.EngagementLow = other.Reddit.EngagementLow
		s.Reddit.EngagementLowBonus = other.Reddit.EngagementLowBonus
	}
	if other.Reddit.MinComments != 0 {
		s.Reddit.MinComments = other.Reddit.MinComments
	}
	if other.Reddit.SelfPostCommentGate != 0 {
		s.Reddit.SelfPostCommentGate = other.Reddit.SelfPostCommentGate
	}
	if other.Reddit.CommentFloor != 0 {
		s.Reddit.CommentFloor = other.Reddit.CommentFloor
	}

	// Wikipedia
	if other.Wikipedia.TitleTokenWeight != 0 {
		s.Wikipedia.TitleTokenWeight = other.Wikipedia.TitleTokenWeight
	}
	if other.Wikipedia.DescriptionTokenWeight != 0 {
		s.Wikipedia.DescriptionTokenWeight = other.Wikipedia.DescriptionTokenWeight
	}
	if other.Wikipedia.ExtractTier1 != 0 {
		s.Wikipedia.ExtractTier1 = other.Wikipedia.ExtractTier1
		s.Wikipedia.ExtractTier1Bonus = other.Wikipedia.ExtractTier1Bonus
	}
	if other.Wikipedia.ExtractTier2 != 0 {
		s.Wikipedia.ExtractTier2 = other.Wikipedia.ExtractTier2
		s.Wikipedia.ExtractTier2Bonus = other.Wikipedia.ExtractTier2Bonus
	}
	if other.Wikipedia.ExtractTier3 != 0 {
		s.Wikipedia.ExtractTier3 = other.Wikipedia.ExtractTier3
		s.Wikipedia.ExtractTier3Bonus = other.Wikipedia.ExtractTier3Bonus
	}
	if other.Wikipedia.SectionTier1 != 0 {
		s.Wikipedia.SectionTier1 = other.Wikipedia.SectionTier1
		s.Wikipedia.SectionTier1Bonus = other.Wikipedia.SectionTier1Bonus
	}
	if other.Wikipedia.SectionTier2 != 0 {
		s.Wikipedia.SectionTier2 = other.Wikipedia.SectionTier2
		s.Wikipedia.SectionTier2Bonus = other.Wikipedia.SectionTier2Bonus
	}
	if other.Wikipedia.WordCountGate != 0 {
		s.Wikipedia.WordCountGate = other.Wikipedia.WordCountGate
		s.Wikipedia.WordCountBonus = other.Wikipedia.WordCountBonus
	}
	if other.Wikipedia.MinExtractLength != 0 {
		s.Wikipedia.MinExtractLength = other.Wikipedia.MinExtractLength
	}
	if other.Wikipedia.SectionGate != 0 {
		s.Wikipedia.SectionGate = other.Wikipedia.SectionGate
	}
	if other.Wikipedia.DetailedExtractGate != 0 {
		s.Wikipedia.DetailedExtractGate = other.Wikipedia.DetailedExtractGate
	}
	if other.Wikipedia.MinAcceptableExtract != 0 {
		s.Wikipedia.MinAcceptableExtract = other.Wikipedia.MinAcceptableExtract
	}

	// YouTube
	if other.YouTube.TitleTokenWeight != 0 {
		s.YouTube.TitleTokenWeight = other.YouTube.TitleTokenWeight
	}
	if other.YouTube.EducationalKeywordBonus != 0 {
		s.YouTube.EducationalKeywordBonus = other.YouTube.EducationalKeywordBonus
	}
	if other.YouTube.ViewTier1 != 0 {
		s.YouTube.ViewTier1 = other.YouTube.ViewTier1
		s.YouTube.ViewTier1Bonus = other.YouTube.ViewTier1Bonus
	}
	if other.YouTube.ViewTier2 != 0 {
		s.YouTube.ViewTier2 = other.YouTube.ViewTier2
		s.YouTube.ViewTier2Bonus = other.YouTube.ViewTier2Bonus
	}
	if other.YouTube.MinTitleLength != 0 {
		s.YouTube.MinTitleLength = other.YouTube.MinTitleLength
	}
	mergeKeywords(&s.YouTube.SpamIndicators, other.YouTube.SpamIndicators)
	mergeKeywords(&s.YouTube.EducationalIndicators, other.YouTube.EducationalIndicators)
	mergeKeywords(&s.YouTube.EducationalKeywords, other.YouTube.EducationalKeywords)
}

// mergeWith merges non-zero source configuration values.
func (s *SourcesConfig) mergeWith(other *SourcesConfig) {
	// Medium
	if other.Medium.BaseURL != "" {
		s.Medium.BaseURL = other.Medium.BaseURL
	}
	if other.Medium.GoogleBaseURL != "" {
		s.Medium.GoogleBaseURL = other.Medium.GoogleBaseURL
	}
	if len(other.Medium.Publications) > 0 {
		s.Medium.Publications = other.Medium.Publications
	}
	if other.Medium.MaxPublications != 0 {
		s.Medium.MaxPublications = other.Medium.MaxPublications
	}
	if len(other.Medium.BaseTags) > 0 {
		s.Medium.BaseTags = other.Medium.BaseTags
	}
	if len(other.Medium.TagExpansions) > 0 {
		s.Medium.TagExpansions = other.Medium.TagExpansions
	}

	// Reddit
	if other.Reddit.BaseURL != "" {
		s.Reddit.BaseURL = other.Reddit.BaseURL
	}
	if len(other.Reddit.ProgrammingSubreddits) > 0 {
		s.Reddit.ProgrammingSubreddits = other.Reddit.ProgrammingSubreddits
	}
	if len(other.Reddit.LearningSubreddits) > 0 {
		s.Reddit.LearningSubreddits = other.Reddit.LearningSubreddits
	}
	if len(other.Reddit.TechnicalSubreddits) > 0 {
		s.Reddit.TechnicalSubreddits = other.Reddit.TechnicalSubreddits
	}
	if len(other.Reddit.TopicSubreddits) > 0 {
		s.Reddit.TopicSubreddits = other.Reddit.TopicSubreddits
	}
	if other.Reddit.MaxTopicSubreddits != 0 {
		s.Reddit.MaxTopicSubreddits = other.Reddit.MaxTopicSubreddits
	}
	if len(other.Reddit.QualitySubreddits) > 0 {
		s.Reddit.QualitySubreddits = other.Reddit.QualitySubreddits
	}

	// Wikipedia
	if other.Wikipedia.APIURL != "" {
		s.Wikipedia.APIURL = other.Wikipedia.APIURL
	}
	if other.Wikipedia.UserAgent != "" {
		s.Wikipedia.UserAgent = other.Wikipedia.UserAgent
	}
	if other.Wikipedia.MaxRelatedQueries != 0 {
		s.Wikipedia.MaxRelatedQueries = other.Wikipedia.MaxRelatedQueries
	}
	if other.Wikipedia.MaxSections != 0 {
		s.Wikipedia.MaxSections = other.Wikipedia.MaxSections
	}

	// YouTube
	if other.YouTube.APIKey != "" {
		s.YouTube.APIKey = other.YouTube.APIKey
	}
	if other.YouTube.ScrapeBaseURL != "" {
		s.YouTube.ScrapeBaseURL = other.YouTube.ScrapeBaseURL
	}
	if other.YouTube.APIEndpoint != "" {
		s.YouTube.APIEndpoint = other.YouTube.APIEndpoint
	}
	if other.YouTube.MaxAPIQueries != 0 {
		s.YouTube.MaxAPIQueries = other.YouTube.MaxAPIQueries
	}
	if other.YouTube.MaxScrapeQueries != 0 {
		s.YouTube.MaxScrapeQueries = other.YouTube.MaxScrapeQueries
	}
	if other.YouTube.RecentWindow != 0 {
		s.YouTube.RecentWindow = other.YouTube.RecentWindow
	}
}

// applyEnvOverrides applies RABBITHOLE_* environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("RABBITHOLE_YOUTUBE_API_KEY"); v != "" {
		c.Sources.YouTube.APIKey = v
	}
	if v := os.Getenv("RABBITHOLE_HTTP_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			c.HTTP.Timeout = d
		}
	}
	if v := os.Getenv("RABBITHOLE_STRATEGY_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			c.HTTP.StrategyTimeout = d
		}
	}
	if v := os.Getenv("RABBITHOLE_OVERALL_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			c.HTTP.OverallTimeout = d
		}
	}
	if v := os.Getenv("RABBITHOLE_USER_AGENT"); v != "" {
		c.HTTP.UserAgent = v
	}
	if v := os.Getenv("RABBITHOLE_DEFAULT_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Limits.DefaultLimit = n
		}
	}
	if v := os.Getenv("RABBITHOLE_MAX_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Limits.MaxLimit = n
		}
	}
	if v := os.Getenv("RABBITHOLE_CACHE_ENABLED"); v != "" {
		c.Cache.Enabled = boolPtr(strings.ToLower(v) == "true" || v == "1")
	}
	if v := os.Getenv("RABBITHOLE_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			c.Cache.TTL = d
		}
	}
	if v := os.Getenv("RABBITHOLE_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("RABBITHOLE_LOG_FILE"); v != "" {
		c.Logging.FilePath = v
	}
	if v := os.Getenv("RABBITHOLE_DEBUG"); v != "" {
		if strings.ToLower(v) == "true" || v == "1" {
			c.Logging.Level = "debug"
		}
	}
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if c.HTTP.Timeout <= 0 {
		return fmt.Errorf("http.timeout must be positive, got %s", c.HTTP.Timeout)
	}
	if c.HTTP.StrategyTimeout <= 0 {
		return fmt.Errorf("http.strategy_timeout must be positive, got %s", c.HTTP.StrategyTimeout)
	}
	if c.HTTP.OverallTimeout < c.HTTP.StrategyTimeout {
		return fmt.Errorf("http.overall_timeout (%s) must not be shorter than http.strategy_timeout (%s)",
			c.HTTP.OverallTimeout, c.HTTP.StrategyTimeout)
	}
	if c.HTTP.RateLimit <= 0 {
		return fmt.Errorf("http.rate_limit must be positive, got %f", c.HTTP.RateLimit)
	}
	if c.HTTP.MaxBodyBytes <= 0 {
		return fmt.Errorf("http.max_body_bytes must be positive, got %d", c.HTTP.MaxBodyBytes)
	}

	if c.Limits.DefaultLimit <= 0 {
		return fmt.Errorf("limits.default_limit must be positive, got %d", c.Limits.DefaultLimit)
	}
	if c.Limits.MaxLimit < c.Limits.DefaultLimit {
		return fmt.Errorf("limits.max_limit (%d) must not be below limits.default_limit (%d)",
			c.Limits.MaxLimit, c.Limits.DefaultLimit)
	}
	if c.Limits.Parallelism <= 0 {
		return fmt.Errorf("limits.parallelism must be positive, got %d", c.Limits.Parallelism)
	}

	if c.Cache.IsEnabled() {
		if c.Cache.Size <= 0 {
			return fmt.Errorf("cache.size must be positive when cache is enabled, got %d", c.Cache.Size)
		}
		if c.Cache.TTL <= 0 {
			return fmt.Errorf("cache.ttl must be positive when cache is enabled, got %s", c.Cache.TTL)
		}
	}

	if c.Scoring.Reddit.EngagementLow > c.Scoring.Reddit.EngagementHigh {
		return fmt.Errorf("scoring.reddit.engagement_low (%f) must not exceed engagement_high (%f)",
			c.Scoring.Reddit.EngagementLow, c.Scoring.Reddit.EngagementHigh)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("logging.level must be 'debug', 'info', 'warn', or 'error', got %s", c.Logging.Level)
	}

	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func boolPtr(b bool) *bool {
	return &b
}

// fileExists checks if a file exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
