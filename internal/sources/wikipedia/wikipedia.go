// Package wikipedia implements the Wikipedia encyclopedia source against
// the MediaWiki action API: direct search, related-topic variations,
// technical term variations, and category browsing.
package wikipedia

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/Aman-CERP/rabbithole/internal/config"
	"github.com/Aman-CERP/rabbithole/internal/fetch"
	"github.com/Aman-CERP/rabbithole/internal/logging"
	"github.com/Aman-CERP/rabbithole/internal/pipeline"
)

// Adapter builds the Wikipedia pipeline profile.
type Adapter struct {
	cfg     config.WikipediaSource
	scoring config.WikipediaScoring
	client  *fetch.Client
	logger  *slog.Logger
}

// New creates the Wikipedia adapter.
func New(cfg config.WikipediaSource, scoring config.WikipediaScoring, client *fetch.Client, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Adapter{
		cfg:     cfg,
		scoring: scoring,
		client:  client,
		logger:  logger.With(slog.String("source", "wikipedia")),
	}
}

// Profile returns the pipeline profile for Wikipedia.
func (a *Adapter) Profile() pipeline.Profile {
	return pipeline.Profile{
		Source: pipeline.SourceWikipedia,
		Strategies: []pipeline.Strategy{
			{Name: "direct-search", Fetch: a.fetchDirect},
			{Name: "related-topics", Fetch: a.fetchRelated},
			{Name: "technical-content", Fetch: a.fetchTechnical},
			{Name: "categories", Fetch: a.fetchCategories},
		},
		Score:               a.Score,
		FallbackDescription: "No Wikipedia articles found for this specific topic",
	}
}

// searchHit is one entry of a list=search response.
type searchHit struct {
	Title     string `json:"title"`
	PageID    int    `json:"pageid"`
	Snippet   string `json:"snippet"`
	WordCount int    `json:"wordcount"`
}

type searchResponse struct {
	Query struct {
		Search []searchHit `json:"search"`
	} `json:"query"`
}

// pageDetails is the merged extracts|info + sections view of one page.
type pageDetails struct {
	PageID   int
	Title    string
	Extract  string
	FullURL  string
	Sections []string
}

// fetchDirect searches the query verbatim.
func (a *Adapter) fetchDirect(ctx context.Context, q pipeline.Query, hint int) ([]pipeline.Candidate, error) {
	hits, err := a.search(ctx, q.Raw, hint*2)
	if err != nil {
		return nil, err
	}
	return a.collect(ctx, hits, q, q.Raw, true), nil
}

// fetchRelated searches broadening variations of the query.
func (a *Adapter) fetchRelated(ctx context.Context, q pipeline.Query, hint int) ([]pipeline.Candidate, error) {
	related := relatedQueries(q)
	if len(related) > a.cfg.MaxRelatedQueries {
		related = related[:a.cfg.MaxRelatedQueries]
	}

	var out []pipeline.Candidate
	for _, rq := range related {
		hits, err := a.search(ctx, rq, 5)
		if err != nil {
			a.logger.Debug("related_search_failed", slog.String("rewrite", rq), slog.String("error", err.Error()))
			continue
		}
		out = append(out, a.collect(ctx, hits, q, rq, true)...)
	}
	return out, nil
}

// fetchTechnical searches technical term variations. The quality filter is
// intentionally not applied here; the scorer and rank gate still reject
// weak pages.
func (a *Adapter) fetchTechnical(ctx context.Context, q pipeline.Query, hint int) ([]pipeline.Candidate, error) {
	rewrites := []string{
		q.Raw + " (computer science)",
		q.Raw + " programming",
		q.Raw + " algorithm",
		q.Raw + " theory",
		q.Raw + " implementation",
		q.Raw + " methodology",
	}

	var out []pipeline.Candidate
	for _, rewrite := range rewrites {
		hits, err := a.search(ctx, rewrite, 3)
		if err != nil {
			a.logger.Debug("technical_search_failed", slog.String("rewrite", rewrite), slog.String("error", err.Error()))
			continue
		}
		out = append(out, a.collect(ctx, hits, q, rewrite, false)...)
	}
	return out, nil
}

// fetchCategories browses categories whose names start with the query.
func (a *Adapter) fetchCategories(ctx context.Context, q pipeline.Query, hint int) ([]pipeline.Candidate, error) {
	params := a.baseParams()
	params.Set("list", "allcategories")
	params.Set("acprefix", q.Raw)
	params.Set("aclimit", "5")

	var resp struct {
		Query struct {
			AllCategories []struct {
				Name string `json:"*"`
			} `json:"allcategories"`
		} `json:"query"`
	}
	if err := a.apiGet(ctx, params, &resp); err != nil {
		return nil, err
	}

	categories := resp.Query.AllCategories
	if len(categories) > 2 {
		categories = categories[:2]
	}

	var out []pipeline.Candidate
	for _, cat := range categories {
		members, err := a.categoryMembers(ctx, cat.Name)
		if err != nil {
			a.logger.Debug("category_members_failed", slog.String("category", cat.Name), slog.String("error", err.Error()))
			continue
		}
		if len(members) > 3 {
			members = members[:3]
		}
		for _, member := range members {
			details, err := a.pageDetails(ctx, member.PageID)
			if err != nil {
				continue
			}
			if !a.quality(details, q) {
				continue
			}
			out = append(out, a.buildCandidate(details, "From category: "+cat.Name, q.Raw))
		}
	}
	return out, nil
}

func (a *Adapter) categoryMembers(ctx context.Context, category string) ([]searchHit, error) {
	params := a.baseParams()
	params.Set("list", "categorymembers")
	params.Set("cmtitle", "Category:"+category)
	params.Set("cmlimit", "5")
	params.Set("cmtype", "page")

	var resp struct {
		Query struct {
			CategoryMembers []searchHit `json:"categorymembers"`
		} `json:"query"`
	}
	if err := a.apiGet(ctx, params, &resp); err != nil {
		return nil, err
	}
	return resp.Query.CategoryMembers, nil
}

// collect resolves search hits to page details and builds candidates,
// optionally applying the quality filter.
func (a *Adapter) collect(ctx context.Context, hits []searchHit, q pipeline.Query, searchQuery string, filtered bool) []pipeline.Candidate {
	var out []pipeline.Candidate
	for _, hit := range hits {
		details, err := a.pageDetails(ctx, hit.PageID)
		if err != nil {
			a.logger.Debug("page_details_failed", slog.Int("pageid", hit.PageID), slog.String("error", err.Error()))
			continue
		}
		if filtered && !a.quality(details, q) {
			continue
		}
		out = append(out, a.buildCandidate(details, cleanSnippet(hit.Snippet), searchQuery))
	}
	return out
}

func (a *Adapter) search(ctx context.Context, term string, limit int) ([]searchHit, error) {
	params := a.baseParams()
	params.Set("list", "search")
	params.Set("srsearch", term)
	params.Set("srlimit", strconv.Itoa(limit))
	params.Set("srprop", "snippet|titlesnippet|size|wordcount")

	var resp searchResponse
	if err := a.apiGet(ctx, params, &resp); err != nil {
		return nil, err
	}
	return resp.Query.Search, nil
}

// pageDetails fetches the intro extract plus canonical URL, then the first
// section titles through a separate parse call. A failing sections call
// degrades to an empty section list.
func (a *Adapter) pageDetails(ctx context.Context, pageID int) (pageDetails, error) {
	params := a.baseParams()
	params.Set("pageids", strconv.Itoa(pageID))
	params.Set("prop", "extracts|info")
	params.Set("exintro", "1")
	params.Set("exlimit", "1")
	params.Set("exsectionformat", "plain")
	params.Set("inprop", "url")

	var resp struct {
		Query struct {
			Pages map[string]struct {
				Title   string `json:"title"`
				Extract string `json:"extract"`
				FullURL string `json:"fullurl"`
			} `json:"pages"`
		} `json:"query"`
	}
	if err := a.apiGet(ctx, params, &resp); err != nil {
		return pageDetails{}, err
	}

	page, ok := resp.Query.Pages[strconv.Itoa(pageID)]
	if !ok {
		return pageDetails{}, fmt.Errorf("page %d missing from response", pageID)
	}

	return pageDetails{
		PageID:   pageID,
		Title:    page.Title,
		Extract:  page.Extract,
		FullURL:  page.FullURL,
		Sections: a.pageSections(ctx, pageID),
	}, nil
}

func (a *Adapter) pageSections(ctx context.Context, pageID int) []string {
	params := url.Values{}
	params.Set("action", "parse")
	params.Set("format", "json")
	params.Set("pageid", strconv.Itoa(pageID))
	params.Set("prop", "sections")

	var resp struct {
		Parse struct {
			Sections []struct {
				Line string `json:"line"`
			} `json:"sections"`
		} `json:"parse"`
	}
	if err := a.apiGet(ctx, params, &resp); err != nil {
		return nil
	}

	sections := resp.Parse.Sections
	if len(sections) > a.cfg.MaxSections {
		sections = sections[:a.cfg.MaxSections]
	}
	out := make([]string, 0, len(sections))
	for _, s := range sections {
		out = append(out, s.Line)
	}
	return out
}

func (a *Adapter) baseParams() url.Values {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("format", "json")
	return params
}

func (a *Adapter) apiGet(ctx context.Context, params url.Values, out any) error {
	return a.client.GetJSON(ctx, a.cfg.APIURL+"?"+params.Encode(), out,
		fetch.WithHeader("User-Agent", a.cfg.UserAgent))
}

// relatedQueries derives broadening search variations, with extra shapes
// for programming and data queries.
func relatedQueries(q pipeline.Query) []string {
	queries := []string{
		q.Raw + " overview",
		q.Raw + " introduction",
		q.Raw + " basics",
		q.Raw + " principles",
		q.Raw + " fundamentals",
	}
	if pipeline.ContainsAny(q.Lower, []string{"programming", "code", "software"}) {
		queries = append(queries,
			q.Raw+" language", q.Raw+" framework", q.Raw+" library", q.Raw+" development")
	}
	if pipeline.ContainsAny(q.Lower, []string{"data", "machine", "learning"}) {
		queries = append(queries,
			q.Raw+" science", q.Raw+" analysis", q.Raw+" statistics", q.Raw+" model")
	}
	return queries
}

// quality is the Wikipedia page filter: on topic, substantial, and not a
// navigation page.
func (a *Adapter) quality(d pageDetails, q pipeline.Query) bool {
	haystack := d.Title + " " + d.Extract
	if !q.AnyTokenIn(haystack) {
		return false
	}
	if len(d.Extract) < a.scoring.MinExtractLength {
		return false
	}
	titleLower := strings.ToLower(d.Title)
	if strings.Contains(titleLower, "disambiguation") || strings.HasPrefix(titleLower, "list of") {
		return false
	}

	if len(d.Sections) >= a.scoring.SectionGate {
		return true
	}
	if len(d.Extract) > a.scoring.DetailedExtractGate {
		return true
	}
	return len(d.Extract) > a.scoring.MinAcceptableExtract
}

// buildCandidate turns page details into the normalized candidate shape.
func (a *Adapter) buildCandidate(d pageDetails, snippet, searchQuery string) pipeline.Candidate {
	var parts []string
	switch {
	case snippet != "":
		parts = append(parts, truncate(snippet, 150))
	case d.Extract != "":
		parts = append(parts, truncate(d.Extract, 150))
	}

	if len(d.Sections) > 0 {
		preview := d.Sections
		if len(preview) > 4 {
			preview = preview[:4]
		}
		parts = append(parts, "Sections: "+strings.Join(preview, ", "))
	}

	if len(d.Extract) > 2000 {
		parts = append(parts, "📖 Comprehensive article")
	} else if len(d.Extract) > 1000 {
		parts = append(parts, "📄 Detailed content")
	}

	description := strings.Join(parts, " • ")
	if len(description) > 300 {
		description = truncate(description, 300)
	}

	return pipeline.Candidate{
		Title:       d.Title,
		URL:         d.FullURL,
		Description: description,
		Source:      pipeline.SourceWikipedia,
		Metadata: map[string]any{
			"source":         "Wikipedia",
			"pageid":         d.PageID,
			"wordcount":      len(strings.Fields(d.Extract)),
			"sections":       d.Sections,
			"search_query":   searchQuery,
			"content_length": len(d.Extract),
		},
	}
}

// Score is the Wikipedia relevance scorer: query match plus article depth.
func (a *Adapter) Score(c pipeline.Candidate, q pipeline.Query) int {
	s := a.scoring

	score := 0
	score += q.CountTokensIn(c.Title) * s.TitleTokenWeight
	score += q.CountTokensIn(c.Description) * s.DescriptionTokenWeight

	switch length := c.MetaInt("content_length"); {
	case length > s.ExtractTier1:
		score += s.ExtractTier1Bonus
	case length > s.ExtractTier2:
		score += s.ExtractTier2Bonus
	case length > s.ExtractTier3:
		score += s.ExtractTier3Bonus
	}

	switch sections := len(c.MetaStrings("sections")); {
	case sections > s.SectionTier1:
		score += s.SectionTier1Bonus
	case sections > s.SectionTier2:
		score += s.SectionTier2Bonus
	}

	if c.MetaInt("wordcount") > s.WordCountGate {
		score += s.WordCountBonus
	}

	return score
}

var snippetTagPattern = regexp.MustCompile(`<[^>]+>`)

// cleanSnippet strips the highlight markup MediaWiki embeds in snippets.
func cleanSnippet(s string) string {
	s = snippetTagPattern.ReplaceAllString(s, "")
	return strings.TrimSpace(html.UnescapeString(s))
}

// truncate cuts s to n runes, appending an ellipsis when it was longer.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
