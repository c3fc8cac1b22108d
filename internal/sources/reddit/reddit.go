// Package reddit implements the Reddit discussion source: four subreddit
// families searched through the public search.json endpoint with layered
// sort approaches.
package reddit

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/Aman-CERP/rabbithole/internal/config"
	"github.com/Aman-CERP/rabbithole/internal/fetch"
	"github.com/Aman-CERP/rabbithole/internal/logging"
	"github.com/Aman-CERP/rabbithole/internal/pipeline"
)

// Adapter builds the Reddit pipeline profile.
type Adapter struct {
	cfg     config.RedditSource
	scoring config.RedditScoring
	client  *fetch.Client
	logger  *slog.Logger
}

// New creates the Reddit adapter.
func New(cfg config.RedditSource, scoring config.RedditScoring, client *fetch.Client, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Adapter{
		cfg:     cfg,
		scoring: scoring,
		client:  client,
		logger:  logger.With(slog.String("source", "reddit")),
	}
}

// Profile returns the pipeline profile for Reddit.
func (a *Adapter) Profile() pipeline.Profile {
	return pipeline.Profile{
		Source: pipeline.SourceReddit,
		Strategies: []pipeline.Strategy{
			{Name: "programming-subreddits", Fetch: a.familyFetch(func() []string { return a.cfg.ProgrammingSubreddits })},
			{Name: "topic-subreddits", Fetch: a.fetchTopicSubreddits},
			{Name: "learning-subreddits", Fetch: a.familyFetch(func() []string { return a.cfg.LearningSubreddits })},
			{Name: "technical-subreddits", Fetch: a.familyFetch(func() []string { return a.cfg.TechnicalSubreddits })},
		},
		Score:               a.Score,
		FallbackDescription: "No Reddit discussions found for this specific topic",
	}
}

// familyFetch adapts a fixed subreddit family into a strategy.
func (a *Adapter) familyFetch(subs func() []string) pipeline.FetchFunc {
	return func(ctx context.Context, q pipeline.Query, hint int) ([]pipeline.Candidate, error) {
		return a.searchFamily(ctx, subs(), q, hint), nil
	}
}

// fetchTopicSubreddits searches the subreddits mapped to topics the query
// mentions, capped at the configured maximum.
func (a *Adapter) fetchTopicSubreddits(ctx context.Context, q pipeline.Query, hint int) ([]pipeline.Candidate, error) {
	return a.searchFamily(ctx, a.topicSubreddits(q), q, hint), nil
}

// topicSubreddits resolves the topic mapping against the query. A topic
// matches when the whole topic or any of its words appears in the query.
func (a *Adapter) topicSubreddits(q pipeline.Query) []string {
	topics := make([]string, 0, len(a.cfg.TopicSubreddits))
	for topic := range a.cfg.TopicSubreddits {
		topics = append(topics, topic)
	}
	sort.Strings(topics)

	seen := make(map[string]bool)
	var subs []string
	for _, topic := range topics {
		if !topicMatches(topic, q) {
			continue
		}
		for _, sub := range a.cfg.TopicSubreddits[topic] {
			if seen[sub] {
				continue
			}
			seen[sub] = true
			subs = append(subs, sub)
		}
	}
	if len(subs) > a.cfg.MaxTopicSubreddits {
		subs = subs[:a.cfg.MaxTopicSubreddits]
	}
	return subs
}

func topicMatches(topic string, q pipeline.Query) bool {
	if strings.Contains(q.Lower, topic) {
		return true
	}
	for _, word := range strings.Fields(topic) {
		if strings.Contains(q.Lower, word) {
			return true
		}
	}
	return false
}

// approach is one sort/time combination for the search endpoint.
type approach struct {
	sort       string
	timeFilter string
}

var approaches = []approach{
	{"relevance", "all"},
	{"top", "year"},
	{"hot", ""},
	{"new", ""},
}

// searchFamily searches every subreddit in a family. Failures are
// per-subreddit; one dead subreddit never empties the family.
func (a *Adapter) searchFamily(ctx context.Context, subs []string, q pipeline.Query, hint int) []pipeline.Candidate {
	var out []pipeline.Candidate
	for _, sub := range subs {
		out = append(out, a.searchSubreddit(ctx, sub, q, hint)...)
	}
	return out
}

// searchSubreddit layers the sort approaches for one subreddit, stopping
// early once it has collected twice the requested hint.
func (a *Adapter) searchSubreddit(ctx context.Context, sub string, q pipeline.Query, hint int) []pipeline.Candidate {
	var out []pipeline.Candidate
	for _, ap := range approaches {
		batch, err := a.searchWithParams(ctx, sub, q, ap, hint)
		if err != nil {
			a.logger.Debug("subreddit_search_failed",
				slog.String("subreddit", sub),
				slog.String("sort", ap.sort),
				slog.String("error", err.Error()))
			continue
		}
		out = append(out, batch...)
		if len(out) >= hint*2 {
			break
		}
	}
	return out
}

// listing mirrors the slice of Reddit's search.json payload we consume.
type listing struct {
	Data struct {
		Children []struct {
			Data post `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type post struct {
	Title             string  `json:"title"`
	Permalink         string  `json:"permalink"`
	Score             int     `json:"score"`
	NumComments       int     `json:"num_comments"`
	Author            string  `json:"author"`
	CreatedUTC        float64 `json:"created_utc"`
	Gilded            int     `json:"gilded"`
	IsSelf            bool    `json:"is_self"`
	Stickied          bool    `json:"stickied"`
	Selftext          string  `json:"selftext"`
	RemovedByCategory string  `json:"removed_by_category"`
	BannedBy          any     `json:"banned_by"`
}

func (p post) removed() bool {
	if p.RemovedByCategory != "" {
		return true
	}
	switch v := p.BannedBy.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	default:
		return true
	}
}

func (a *Adapter) searchWithParams(ctx context.Context, sub string, q pipeline.Query, ap approach, hint int) ([]pipeline.Candidate, error) {
	perCall := hint * 3
	if perCall > 25 {
		perCall = 25
	}

	params := url.Values{}
	params.Set("q", q.Raw)
	params.Set("restrict_sr", "on")
	params.Set("sort", ap.sort)
	params.Set("limit", strconv.Itoa(perCall))
	params.Set("type", "link")
	if ap.timeFilter != "" {
		params.Set("t", ap.timeFilter)
	}
	searchURL := fmt.Sprintf("%s/r/%s/search.json?%s", a.cfg.BaseURL, sub, params.Encode())

	var body listing
	if err := a.client.GetJSON(ctx, searchURL, &body, fetch.WithBrowserUA()); err != nil {
		return nil, err
	}

	var out []pipeline.Candidate
	for _, child := range body.Data.Children {
		p := child.Data
		if !a.qualityPost(p, q) {
			continue
		}
		out = append(out, pipeline.Candidate{
			Title:       p.Title,
			URL:         a.cfg.BaseURL + p.Permalink,
			Description: a.describe(p, sub),
			Source:      pipeline.SourceReddit,
			Metadata: map[string]any{
				"source":       "Reddit",
				"subreddit":    sub,
				"score":        p.Score,
				"num_comments": p.NumComments,
				"author":       p.Author,
				"created_utc":  p.CreatedUTC,
				"gilded":       p.Gilded,
				"is_self":      p.IsSelf,
			},
		})
	}
	return out, nil
}

// qualityPost is the Reddit quality filter: enough discussion, not removed,
// on topic, and past at least one engagement gate.
func (a *Adapter) qualityPost(p post, q pipeline.Query) bool {
	if p.NumComments < a.scoring.MinComments {
		return false
	}
	if p.Score < 0 {
		return false
	}
	if !q.AnyTokenIn(p.Title) {
		return false
	}
	if p.Author == "[deleted]" || p.Author == "[removed]" {
		return false
	}
	if p.removed() {
		return false
	}

	if p.IsSelf && p.NumComments > a.scoring.SelfPostCommentGate {
		return true
	}
	if p.NumComments > 0 && p.Score > 0 {
		if engagementRatio(p.NumComments, p.Score) > a.scoring.EngagementLow {
			return true
		}
	}
	if p.Gilded > 0 {
		return true
	}
	return p.NumComments >= a.scoring.CommentFloor
}

func engagementRatio(comments, upvotes int) float64 {
	denom := upvotes
	if denom < 1 {
		denom = 1
	}
	return float64(comments) / float64(denom)
}

// describe builds the bullet-joined discussion summary.
func (a *Adapter) describe(p post, sub string) string {
	parts := []string{
		"r/" + sub,
		fmt.Sprintf("%d upvotes", p.Score),
		fmt.Sprintf("%d comments", p.NumComments),
	}
	if p.Gilded > 0 {
		parts = append(parts, fmt.Sprintf("🥇 %d gold", p.Gilded))
	}
	if p.IsSelf {
		parts = append(parts, "📝 Text post")
	}
	if p.Stickied {
		parts = append(parts, "📌 Pinned")
	}
	if p.NumComments > 20 {
		parts = append(parts, "🔥 Active discussion")
	} else if p.NumComments > 10 {
		parts = append(parts, "💬 Good discussion")
	}
	if text := strings.TrimSpace(p.Selftext); utf8.RuneCountInString(text) > 50 {
		preview := strings.TrimSpace(strings.ReplaceAll(text, "\n", " "))
		parts = append(parts, truncate(preview, 150))
	}
	return strings.Join(parts, " • ")
}

// Score is the Reddit quality scorer: community signals dominate, query
// relevance refines.
func (a *Adapter) Score(c pipeline.Candidate, q pipeline.Query) int {
	s := a.scoring
	upvotes := c.MetaInt("score")
	comments := c.MetaInt("num_comments")

	score := 0
	if upvotes > s.UpvoteTier1 {
		score += s.UpvoteTier1Bonus
	}
	if upvotes > s.UpvoteTier2 {
		score += s.UpvoteTier2Bonus
	}
	if upvotes > s.UpvoteTier3 {
		score += s.UpvoteTier3Bonus
	}

	if comments >= s.CommentTier1 {
		score += s.CommentTier1Bonus
	}
	if comments >= s.CommentTier2 {
		score += s.CommentTier2Bonus
	}
	if comments >= s.CommentTier3 {
		score += s.CommentTier3Bonus
	}

	if c.MetaInt("gilded") > 0 {
		score += s.GildedBonus
	}

	score += q.CountTokensIn(c.Title) * s.TitleTokenWeight

	if c.MetaBool("is_self") {
		score += s.SelfPostBonus
	}

	if comments > 0 && upvotes > 0 {
		switch ratio := engagementRatio(comments, upvotes); {
		case ratio > s.EngagementHigh:
			score += s.EngagementHighBonus
		case ratio > s.EngagementLow:
			score += s.EngagementLowBonus
		}
	}

	sub := strings.ToLower(c.MetaString("subreddit"))
	for _, quality := range a.cfg.QualitySubreddits {
		if sub == strings.ToLower(quality) {
			score += s.QualitySubredditBonus
			break
		}
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
