// Package medium implements the Medium article source: RSS tag feeds,
// curated publication search, on-site technical search, and Google-backed
// tutorial discovery.
package medium

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/Aman-CERP/rabbithole/internal/config"
	"github.com/Aman-CERP/rabbithole/internal/fetch"
	"github.com/Aman-CERP/rabbithole/internal/logging"
	"github.com/Aman-CERP/rabbithole/internal/pipeline"
)

// Adapter builds the Medium pipeline profile.
type Adapter struct {
	cfg     config.MediumSource
	scoring config.MediumScoring
	client  *fetch.Client
	parser  *gofeed.Parser
	logger  *slog.Logger
}

// New creates the Medium adapter.
func New(cfg config.MediumSource, scoring config.MediumScoring, client *fetch.Client, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Adapter{
		cfg:     cfg,
		scoring: scoring,
		client:  client,
		parser:  gofeed.NewParser(),
		logger:  logger.With(slog.String("source", "medium")),
	}
}

// Profile returns the pipeline profile for Medium.
func (a *Adapter) Profile() pipeline.Profile {
	return pipeline.Profile{
		Source: pipeline.SourceMedium,
		Strategies: []pipeline.Strategy{
			{Name: "rss-tags", Fetch: a.fetchRSSTags},
			{Name: "publications", Fetch: a.fetchPublications},
			{Name: "technical-search", Fetch: a.fetchTechnicalSearch},
			{Name: "google-tutorials", Fetch: a.fetchGoogleTutorials},
		},
		Score:               a.Score,
		FallbackDescription: "No Medium articles found for this specific topic",
	}
}

// fetchRSSTags pulls Medium's per-tag RSS feeds for every tag variation
// derived from the query.
func (a *Adapter) fetchRSSTags(ctx context.Context, q pipeline.Query, hint int) ([]pipeline.Candidate, error) {
	var out []pipeline.Candidate
	for _, tag := range a.tagVariations(q) {
		feedURL := fmt.Sprintf("%s/feed/tag/%s", a.cfg.BaseURL, url.PathEscape(tag))
		body, err := a.client.Get(ctx, feedURL, fetch.WithBrowserUA())
		if err != nil {
			a.logger.Debug("rss_tag_failed", slog.String("tag", tag), slog.String("error", err.Error()))
			continue
		}

		feed, err := a.parser.ParseString(string(body))
		if err != nil {
			a.logger.Debug("rss_parse_failed", slog.String("tag", tag), slog.String("error", err.Error()))
			continue
		}

		for _, item := range feed.Items {
			title := strings.TrimSpace(item.Title)
			link := strings.TrimSpace(item.Link)
			if title == "" || link == "" {
				continue
			}
			desc := cleanDescription(item.Description)
			if !a.relevant(title, desc, q) {
				continue
			}
			out = append(out, pipeline.Candidate{
				Title:       title,
				URL:         link,
				Description: fmt.Sprintf("%s • %s", itemAuthor(item), truncate(desc, 200)),
				Source:      pipeline.SourceMedium,
				Metadata: map[string]any{
					"source":   "Medium",
					"author":   itemAuthor(item),
					"platform": "Medium",
					"type":     "article",
				},
			})
		}
	}
	return out, nil
}

// fetchPublications searches the curated publication list.
func (a *Adapter) fetchPublications(ctx context.Context, q pipeline.Query, hint int) ([]pipeline.Candidate, error) {
	pubs := a.cfg.Publications
	if len(pubs) > a.cfg.MaxPublications {
		pubs = pubs[:a.cfg.MaxPublications]
	}

	var out []pipeline.Candidate
	for _, pub := range pubs {
		searchURL := fmt.Sprintf("%s/%s/search?q=%s", a.cfg.BaseURL, pub, url.QueryEscape(q.Raw))
		body, err := a.client.Get(ctx, searchURL, fetch.WithBrowserUA())
		if err != nil {
			a.logger.Debug("publication_failed", slog.String("publication", pub), slog.String("error", err.Error()))
			continue
		}

		doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
		if err != nil {
			continue
		}

		doc.Find("h3 a[href]").Each(func(_ int, sel *goquery.Selection) {
			href, _ := sel.Attr("href")
			title := strings.TrimSpace(sel.Text())
			if !strings.Contains(href, "medium.com") && !strings.HasPrefix(href, "/") {
				return
			}
			if title == "" || !a.relevant(title, "", q) {
				return
			}
			out = append(out, pipeline.Candidate{
				Title:       title,
				URL:         a.absoluteURL(href),
				Description: fmt.Sprintf("Medium publication • Technical article about %s", q.Raw),
				Source:      pipeline.SourceMedium,
				Metadata: map[string]any{
					"source":   "Medium",
					"platform": "Medium",
					"type":     "publication_article",
				},
			})
		})
	}
	return out, nil
}

// technicalRewrites are the query shapes that surface in-depth content.
func technicalRewrites(q pipeline.Query) []string {
	return []string{
		q.Raw + " deep dive",
		q.Raw + " complete guide",
		q.Raw + " documentation",
		q.Raw + " best practices",
		q.Raw + " architecture",
		q.Raw + " implementation",
		"mastering " + q.Raw,
		q.Raw + " advanced",
	}
}

// fetchTechnicalSearch runs Medium's own search over technical rewrites.
func (a *Adapter) fetchTechnicalSearch(ctx context.Context, q pipeline.Query, hint int) ([]pipeline.Candidate, error) {
	var out []pipeline.Candidate
	for _, rewrite := range technicalRewrites(q) {
		searchURL := fmt.Sprintf("%s/search?q=%s", a.cfg.BaseURL, url.QueryEscape(rewrite))
		body, err := a.client.Get(ctx, searchURL, fetch.WithBrowserUA(),
			fetch.WithHeader("Referer", a.cfg.BaseURL+"/"))
		if err != nil {
			a.logger.Debug("technical_search_failed", slog.String("rewrite", rewrite), slog.String("error", err.Error()))
			continue
		}

		doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
		if err != nil {
			continue
		}

		doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
			href, _ := sel.Attr("href")
			if !strings.Contains(href, "medium.com") && !strings.Contains(href, "/@") {
				return
			}
			title := strings.TrimSpace(sel.Text())
			if title == "" {
				title = strings.TrimSpace(sel.AttrOr("title", ""))
			}
			if len(title) <= 10 || !a.relevant(title, "", q) {
				return
			}
			out = append(out, pipeline.Candidate{
				Title:       title,
				URL:         a.absoluteURL(href),
				Description: fmt.Sprintf("Medium • Search result for %s", q.Raw),
				Source:      pipeline.SourceMedium,
				Metadata: map[string]any{
					"source":   "Medium",
					"platform": "Medium",
					"type":     "search_result",
				},
			})
		})
	}
	return out, nil
}

// tutorialRewrites are the query shapes that surface beginner content.
func tutorialRewrites(q pipeline.Query) []string {
	return []string{
		"how to " + q.Raw,
		q.Raw + " tutorial",
		q.Raw + " step by step",
		q.Raw + " for beginners",
		"learn " + q.Raw,
		q.Raw + " explained",
	}
}

// fetchGoogleTutorials discovers tutorial articles through a site-scoped
// Google search.
func (a *Adapter) fetchGoogleTutorials(ctx context.Context, q pipeline.Query, hint int) ([]pipeline.Candidate, error) {
	var out []pipeline.Candidate
	for _, rewrite := range tutorialRewrites(q) {
		params := url.Values{}
		params.Set("q", fmt.Sprintf("site:medium.com %q", rewrite))
		params.Set("num", "10")
		searchURL := fmt.Sprintf("%s/search?%s", a.cfg.GoogleBaseURL, params.Encode())

		body, err := a.client.Get(ctx, searchURL, fetch.WithBrowserUA())
		if err != nil {
			a.logger.Debug("google_search_failed", slog.String("rewrite", rewrite), slog.String("error", err.Error()))
			continue
		}

		doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
		if err != nil {
			continue
		}

		doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
			href, _ := sel.Attr("href")
			if !strings.Contains(href, "medium.com") {
				return
			}
			title := strings.TrimSpace(sel.Find("h3").First().Text())
			if title == "" || !a.relevant(title, "", q) {
				return
			}
			out = append(out, pipeline.Candidate{
				Title:       title,
				URL:         href,
				Description: fmt.Sprintf("Medium • Technical article about %s", q.Raw),
				Source:      pipeline.SourceMedium,
				Metadata: map[string]any{
					"source":   "Medium",
					"platform": "Medium",
					"type":     "google_search_result",
				},
			})
		})
	}
	return out, nil
}

// tagVariations derives the RSS tags for a query: the hyphenated and
// compacted query, topic expansions whose key appears in the query, and the
// always-on base tags. Order is deterministic with duplicates removed.
func (a *Adapter) tagVariations(q pipeline.Query) []string {
	var tags []string
	tags = append(tags,
		strings.ReplaceAll(q.Lower, " ", "-"),
		strings.ReplaceAll(q.Lower, " ", ""))

	for _, key := range sortedKeys(a.cfg.TagExpansions) {
		if strings.Contains(q.Lower, key) {
			tags = append(tags, a.cfg.TagExpansions[key]...)
		}
	}
	tags = append(tags, a.cfg.BaseTags...)

	seen := make(map[string]bool, len(tags))
	out := tags[:0]
	for _, t := range tags {
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// relevant is the Medium quality filter: the title must contain a query
// token, be a real title, and either read technical or be descriptive.
func (a *Adapter) relevant(title, description string, q pipeline.Query) bool {
	if !q.AnyTokenIn(title) {
		return false
	}
	if len(title) < a.scoring.MinTitleLength {
		return false
	}
	combined := title + " " + description
	if pipeline.ContainsAny(combined, a.scoring.TechnicalIndicators) {
		return true
	}
	return len(title) > a.scoring.RelevantTitleLength
}

// Score is the Medium relevance scorer.
func (a *Adapter) Score(c pipeline.Candidate, q pipeline.Query) int {
	score := 0
	score += q.CountTokensIn(c.Title) * a.scoring.TitleTokenWeight
	score += q.CountTokensIn(c.Description) * a.scoring.DescriptionTokenWeight
	score += pipeline.CountKeywords(c.Title, a.scoring.TechnicalKeywords) * a.scoring.TitleKeywordWeight
	score += pipeline.CountKeywords(c.Description, a.scoring.TechnicalKeywords) * a.scoring.DescKeywordWeight
	if len(c.Title) > a.scoring.LongTitleLength {
		score += a.scoring.LongTitleBonus
	}
	return score
}

func (a *Adapter) absoluteURL(href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	return a.cfg.BaseURL + href
}

func itemAuthor(item *gofeed.Item) string {
	if item.DublinCoreExt != nil && len(item.DublinCoreExt.Creator) > 0 {
		if c := strings.TrimSpace(item.DublinCoreExt.Creator[0]); c != "" {
			return c
		}
	}
	if len(item.Authors) > 0 && strings.TrimSpace(item.Authors[0].Name) != "" {
		return strings.TrimSpace(item.Authors[0].Name)
	}
	if item.Author != nil && strings.TrimSpace(item.Author.Name) != "" {
		return strings.TrimSpace(item.Author.Name)
	}
	return "Medium Author"
}

var (
	tagPattern        = regexp.MustCompile(`<[^>]+>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// cleanDescription strips markup and collapses whitespace in an RSS
// description.
func cleanDescription(s string) string {
	s = tagPattern.ReplaceAllString(s, " ")
	s = whitespacePattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// truncate cuts s to n runes, appending an ellipsis when it was longer.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}

// sortedKeys keeps tag expansion order stable across runs.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
