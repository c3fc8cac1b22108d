// Package youtube implements the YouTube video source: three Data API
// strategies (key required) plus a results-page scrape that works without
// credentials.
package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"sync"
	"time"

	"google.golang.org/api/option"
	youtubeapi "google.golang.org/api/youtube/v3"

	"github.com/Aman-CERP/rabbithole/internal/config"
	"github.com/Aman-CERP/rabbithole/internal/errors"
	"github.com/Aman-CERP/rabbithole/internal/fetch"
	"github.com/Aman-CERP/rabbithole/internal/logging"
	"github.com/Aman-CERP/rabbithole/internal/pipeline"
)

// Adapter builds the YouTube pipeline profile.
type Adapter struct {
	cfg     config.YouTubeSource
	scoring config.YouTubeScoring
	client  *fetch.Client
	logger  *slog.Logger
	now     func() time.Time

	svcOnce sync.Once
	svc     *youtubeapi.Service
	svcErr  error
}

// Option configures the adapter.
type Option func(*Adapter)

// WithClock substitutes the time source used by the recent-content strategy.
func WithClock(now func() time.Time) Option {
	return func(a *Adapter) {
		a.now = now
	}
}

// New creates the YouTube adapter.
func New(cfg config.YouTubeSource, scoring config.YouTubeScoring, client *fetch.Client, logger *slog.Logger, opts ...Option) *Adapter {
	if logger == nil {
		logger = logging.Discard()
	}
	a := &Adapter{
		cfg:     cfg,
		scoring: scoring,
		client:  client,
		logger:  logger.With(slog.String("source", "youtube")),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Profile returns the pipeline profile for YouTube.
func (a *Adapter) Profile() pipeline.Profile {
	return pipeline.Profile{
		Source: pipeline.SourceYouTube,
		Strategies: []pipeline.Strategy{
			{Name: "educational", Fetch: a.fetchEducational},
			{Name: "tutorials", Fetch: a.fetchTutorials},
			{Name: "recent", Fetch: a.fetchRecent},
			{Name: "page-scrape", Fetch: a.fetchPageScrape},
		},
		Score:               a.Score,
		FallbackDescription: "No YouTube resources found for this specific topic",
	}
}

// service lazily builds the Data API client. Without a key the API
// strategies fail (and contribute nothing); the scrape strategy still runs.
func (a *Adapter) service(ctx context.Context) (*youtubeapi.Service, error) {
	if a.cfg.APIKey == "" {
		return nil, errors.New(errors.ErrCodeAPIKeyMissing, "youtube api key not configured", nil).
			WithSuggestion("Set RABBITHOLE_YOUTUBE_API_KEY or youtube.api_key in the config")
	}
	a.svcOnce.Do(func() {
		opts := []option.ClientOption{option.WithAPIKey(a.cfg.APIKey)}
		if a.cfg.APIEndpoint != "" {
			opts = append(opts, option.WithEndpoint(a.cfg.APIEndpoint))
		}
		a.svc, a.svcErr = youtubeapi.NewService(context.Background(), opts...)
	})
	return a.svc, a.svcErr
}

// rewrites generates the educational query shapes. API strategies consume
// the first few to protect quota.
func rewrites(q pipeline.Query) []string {
	return []string{
		q.Raw + " tutorial",
		q.Raw + " explained",
		q.Raw + " course",
		q.Raw + " fundamentals",
		q.Raw + " guide",
		"learn " + q.Raw,
		q.Raw + " documentation",
		q.Raw + " examples",
	}
}

func (a *Adapter) apiRewrites(q pipeline.Query) []string {
	rw := rewrites(q)
	if len(rw) > a.cfg.MaxAPIQueries {
		rw = rw[:a.cfg.MaxAPIQueries]
	}
	return rw
}

func (a *Adapter) fetchEducational(ctx context.Context, q pipeline.Query, hint int) ([]pipeline.Candidate, error) {
	svc, err := a.service(ctx)
	if err != nil {
		return nil, err
	}

	var out []pipeline.Candidate
	for _, rw := range a.apiRewrites(q) {
		call := svc.Search.List([]string{"snippet"}).
			Q(rw + " tutorial OR explained OR course").
			Type("video").
			MaxResults(int64(hint * 3)).
			Order("relevance").
			SafeSearch("moderate").
			VideoDuration("medium").
			VideoDefinition("high").
			RelevanceLanguage("en").
			Context(ctx)
		out = append(out, a.collectAPI(ctx, call, q, "educational")...)
	}
	return out, nil
}

func (a *Adapter) fetchTutorials(ctx context.Context, q pipeline.Query, hint int) ([]pipeline.Candidate, error) {
	svc, err := a.service(ctx)
	if err != nil {
		return nil, err
	}

	var out []pipeline.Candidate
	for _, rw := range a.apiRewrites(q) {
		call := svc.Search.List([]string{"snippet"}).
			Q(fmt.Sprintf("how to %s OR %s step by step OR %s guide", rw, rw, rw)).
			Type("video").
			MaxResults(int64(hint * 2)).
			Order("relevance").
			SafeSearch("moderate").
			RelevanceLanguage("en").
			Context(ctx)
		out = append(out, a.collectAPI(ctx, call, q, "tutorial")...)
	}
	return out, nil
}

func (a *Adapter) fetchRecent(ctx context.Context, q pipeline.Query, hint int) ([]pipeline.Candidate, error) {
	svc, err := a.service(ctx)
	if err != nil {
		return nil, err
	}

	publishedAfter := a.now().Add(-a.cfg.RecentWindow).UTC().Format(time.RFC3339)

	var out []pipeline.Candidate
	for _, rw := range a.apiRewrites(q) {
		call := svc.Search.List([]string{"snippet"}).
			Q(fmt.Sprintf("%s 2024 OR %s latest", rw, rw)).
			Type("video").
			MaxResults(int64(hint * 2)).
			Order("date").
			SafeSearch("moderate").
			PublishedAfter(publishedAfter).
			RelevanceLanguage("en").
			Context(ctx)
		out = append(out, a.collectAPI(ctx, call, q, "recent")...)
	}
	return out, nil
}

// collectAPI runs one search call and normalizes the accepted hits. Call
// failures are logged and yield nothing; sibling rewrites still run.
func (a *Adapter) collectAPI(ctx context.Context, call *youtubeapi.SearchListCall, q pipeline.Query, searchType string) []pipeline.Candidate {
	resp, err := call.Do()
	if err != nil {
		a.logger.Debug("api_search_failed",
			slog.String("search_type", searchType),
			slog.String("error", err.Error()))
		return nil
	}

	var out []pipeline.Candidate
	for _, item := range resp.Items {
		if item.Id == nil || item.Id.VideoId == "" || item.Snippet == nil {
			continue
		}
		title := item.Snippet.Title
		desc := item.Snippet.Description
		if !a.qualityVideo(title, desc, q) {
			continue
		}

		details := a.videoDetails(ctx, item.Id.VideoId)
		out = append(out, pipeline.Candidate{
			Title:       title,
			URL:         "https://www.youtube.com/watch?v=" + item.Id.VideoId,
			Description: fmt.Sprintf("%s • %s", item.Snippet.ChannelTitle, truncate(desc, 200)),
			Source:      pipeline.SourceYouTube,
			Metadata: map[string]any{
				"source":       "YouTube",
				"videoId":      item.Id.VideoId,
				"channelTitle": item.Snippet.ChannelTitle,
				"publishedAt":  item.Snippet.PublishedAt,
				"searchType":   searchType,
				"viewCount":    details.viewCount,
				"likeCount":    details.likeCount,
				"duration":     details.duration,
			},
		})
	}
	return out
}

type videoStats struct {
	viewCount int
	likeCount int
	duration  string
}

// videoDetails fetches statistics for one accepted video. Failures degrade
// to zero stats rather than dropping the hit.
func (a *Adapter) videoDetails(ctx context.Context, videoID string) videoStats {
	svc, err := a.service(ctx)
	if err != nil {
		return videoStats{}
	}

	resp, err := svc.Videos.List([]string{"statistics", "contentDetails"}).Id(videoID).Context(ctx).Do()
	if err != nil || len(resp.Items) == 0 {
		return videoStats{}
	}

	item := resp.Items[0]
	var stats videoStats
	if item.Statistics != nil {
		stats.viewCount = int(item.Statistics.ViewCount)
		stats.likeCount = int(item.Statistics.LikeCount)
	}
	if item.ContentDetails != nil {
		stats.duration = item.ContentDetails.Duration
	}
	return stats
}

// fetchPageScrape extracts videos from the public results page. This is the
// only strategy that works without an API key.
func (a *Adapter) fetchPageScrape(ctx context.Context, q pipeline.Query, hint int) ([]pipeline.Candidate, error) {
	scrapeQueries := []string{
		q.Raw + " tutorial",
		"learn " + q.Raw,
		q.Raw + " explained",
		q.Raw + " course",
	}
	if len(scrapeQueries) > a.cfg.MaxScrapeQueries {
		scrapeQueries = scrapeQueries[:a.cfg.MaxScrapeQueries]
	}

	var out []pipeline.Candidate
	for _, sq := range scrapeQueries {
		pageURL := fmt.Sprintf("%s/results?search_query=%s", a.cfg.ScrapeBaseURL, url.QueryEscape(sq))
		body, err := a.client.Get(ctx, pageURL, fetch.WithBrowserUA())
		if err != nil {
			a.logger.Debug("scrape_failed", slog.String("rewrite", sq), slog.String("error", err.Error()))
			continue
		}
		out = append(out, a.extractFromPage(string(body), q)...)
	}
	return out, nil
}

var initialDataPattern = regexp.MustCompile(`(?s)var ytInitialData = (\{.*?\});`)

// ytInitialData mirrors the slice of YouTube's embedded search state we
// walk for video renderers.
type ytInitialData struct {
	Contents struct {
		TwoColumnSearchResultsRenderer struct {
			PrimaryContents struct {
				SectionListRenderer struct {
					Contents []struct {
						ItemSectionRenderer struct {
							Contents []struct {
								VideoRenderer *videoRenderer `json:"videoRenderer"`
							} `json:"contents"`
						} `json:"itemSectionRenderer"`
					} `json:"contents"`
				} `json:"sectionListRenderer"`
			} `json:"primaryContents"`
		} `json:"twoColumnSearchResultsRenderer"`
	} `json:"contents"`
}

type videoRenderer struct {
	VideoID   string   `json:"videoId"`
	Title     textRuns `json:"title"`
	OwnerText textRuns `json:"ownerText"`
}

type textRuns struct {
	Runs []struct {
		Text string `json:"text"`
	} `json:"runs"`
}

func (r textRuns) first() string {
	if len(r.Runs) == 0 {
		return ""
	}
	return r.Runs[0].Text
}

// extractFromPage walks the embedded ytInitialData JSON; when that fails it
// falls back to pairing watch links with raw title runs. At most five
// videos per page.
func (a *Adapter) extractFromPage(html string, q pipeline.Query) []pipeline.Candidate {
	var out []pipeline.Candidate

	if m := initialDataPattern.FindStringSubmatch(html); m != nil {
		var data ytInitialData
		if err := json.Unmarshal([]byte(m[1]), &data); err == nil {
			for _, section := range data.Contents.TwoColumnSearchResultsRenderer.PrimaryContents.SectionListRenderer.Contents {
				for _, item := range section.ItemSectionRenderer.Contents {
					vr := item.VideoRenderer
					if vr == nil || vr.VideoID == "" {
						continue
					}
					if c, ok := a.scrapedCandidate(vr.Title.first(), vr.VideoID, vr.OwnerText.first(), q); ok {
						out = append(out, c)
					}
				}
			}
		}
	}

	if len(out) == 0 {
		out = a.extractFromHTML(html, q)
	}

	if len(out) > 5 {
		out = out[:5]
	}
	return out
}

var (
	watchPattern = regexp.MustCompile(`/watch\?v=([a-zA-Z0-9_-]{11})`)
	titlePattern = regexp.MustCompile(`"title":\{"runs":\[\{"text":"([^"]+)"\}`)
)

// extractFromHTML is the raw regex fallback: watch links paired with title
// runs by position.
func (a *Adapter) extractFromHTML(html string, q pipeline.Query) []pipeline.Candidate {
	ids := watchPattern.FindAllStringSubmatch(html, -1)
	titles := titlePattern.FindAllStringSubmatch(html, -1)

	seen := make(map[string]bool)
	var out []pipeline.Candidate
	for i, idMatch := range ids {
		if i >= len(titles) {
			break
		}
		id := idMatch[1]
		if seen[id] {
			continue
		}
		seen[id] = true
		if c, ok := a.scrapedCandidate(titles[i][1], id, "", q); ok {
			out = append(out, c)
		}
	}
	return out
}

func (a *Adapter) scrapedCandidate(title, videoID, channel string, q pipeline.Query) (pipeline.Candidate, bool) {
	if title == "" || !a.qualityVideo(title, "", q) {
		return pipeline.Candidate{}, false
	}
	return pipeline.Candidate{
		Title:       title,
		URL:         "https://www.youtube.com/watch?v=" + videoID,
		Description: "Educational video about " + q.Raw,
		Source:      pipeline.SourceYouTube,
		Metadata: map[string]any{
			"source":       "YouTube",
			"videoId":      videoID,
			"channelTitle": channel,
			"searchType":   "scrape",
		},
	}, true
}

// qualityVideo is the YouTube quality filter: on topic, not spammy, a real
// title, and educational in character.
func (a *Adapter) qualityVideo(title, description string, q pipeline.Query) bool {
	if !q.AnyTokenIn(title) {
		return false
	}
	if pipeline.ContainsAny(title, a.scoring.SpamIndicators) {
		return false
	}
	if len(title) < a.scoring.MinTitleLength {
		return false
	}
	return pipeline.ContainsAny(title+" "+description, a.scoring.EducationalIndicators)
}

// Score is the YouTube relevance scorer.
func (a *Adapter) Score(c pipeline.Candidate, q pipeline.Query) int {
	s := a.scoring

	score := 0
	score += q.CountTokensIn(c.Title) * s.TitleTokenWeight
	score += pipeline.CountKeywords(c.Title, s.EducationalKeywords) * s.EducationalKeywordBonus

	views := c.MetaInt("viewCount")
	if views > s.ViewTier1 {
		score += s.ViewTier1Bonus
	}
	if views > s.ViewTier2 {
		score += s.ViewTier2Bonus
	}

	return score
}

// truncate cuts s to n runes, appending an ellipsis when it was longer.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
