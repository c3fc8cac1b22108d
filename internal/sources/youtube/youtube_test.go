package youtube

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/rabbithole/internal/config"
	"github.com/Aman-CERP/rabbithole/internal/errors"
	"github.com/Aman-CERP/rabbithole/internal/fetch"
	"github.com/Aman-CERP/rabbithole/internal/pipeline"
)

func newTestClient(t *testing.T) *fetch.Client {
	t.Helper()
	cfg := config.NewConfig().HTTP
	cfg.RateLimit = 1000
	cfg.RateBurst = 1000
	cfg.RetryMax = 0
	cfg.RetryInitialDelay = time.Millisecond
	return fetch.NewClient(cfg)
}

func apiFixtureServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.Contains(r.URL.Path, "/search"):
			_ = json.NewEncoder(w).Encode(map[string]any{
				"items": []map[string]any{
					{
						"id": map[string]any{"videoId": "dQw4w9WgXcQ"},
						"snippet": map[string]any{
							"title":        "React Hooks Tutorial for Working Developers",
							"channelTitle": "Code Academy",
							"description":  "A full course on react hooks with examples.",
							"publishedAt":  "2026-01-15T10:00:00Z",
						},
					},
					{
						"id": map[string]any{"videoId": "aaaaaaaaaaa"},
						"snippet": map[string]any{
							"title":        "Subscribe now!!! react is cool",
							"channelTitle": "Spam Channel",
							"description":  "",
							"publishedAt":  "2026-01-15T10:00:00Z",
						},
					},
				},
			})
		case strings.Contains(r.URL.Path, "/videos"):
			_ = json.NewEncoder(w).Encode(map[string]any{
				"items": []map[string]any{
					{
						"statistics":     map[string]any{"viewCount": "150000", "likeCount": "2300"},
						"contentDetails": map[string]any{"duration": "PT18M"},
					},
				},
			})
		default:
			http.NotFound(w, r)
		}
	}))
}

func newAPIAdapter(t *testing.T, endpoint string) *Adapter {
	t.Helper()
	cfg := config.NewConfig()
	src := cfg.Sources.YouTube
	src.APIKey = "test-key"
	src.APIEndpoint = endpoint
	return New(src, cfg.Scoring.YouTube, newTestClient(t), nil)
}

func TestFetchEducational(t *testing.T) {
	// Given: an API returning one educational and one spam video
	srv := apiFixtureServer(t)
	defer srv.Close()

	adapter := newAPIAdapter(t, srv.URL)

	// When
	out, err := adapter.fetchEducational(context.Background(), pipeline.NewQuery("react hooks"), 5)

	// Then: three rewrites each return the educational hit; spam is filtered
	require.NoError(t, err)
	require.Len(t, out, 3)
	for _, c := range out {
		assert.Equal(t, "React Hooks Tutorial for Working Developers", c.Title)
		assert.Equal(t, "https://www.youtube.com/watch?v=dQw4w9WgXcQ", c.URL)
		assert.Equal(t, "Code Academy", c.MetaString("channelTitle"))
		assert.Equal(t, "educational", c.MetaString("searchType"))
		assert.Equal(t, 150000, c.MetaInt("viewCount"))
		assert.Equal(t, "PT18M", c.MetaString("duration"))
		assert.True(t, strings.HasPrefix(c.Description, "Code Academy • "))
	}
}

func TestAPIStrategiesFailWithoutKey(t *testing.T) {
	cfg := config.NewConfig()
	adapter := New(cfg.Sources.YouTube, cfg.Scoring.YouTube, newTestClient(t), nil)

	for name, fetchFn := range map[string]pipeline.FetchFunc{
		"educational": adapter.fetchEducational,
		"tutorials":   adapter.fetchTutorials,
		"recent":      adapter.fetchRecent,
	} {
		t.Run(name, func(t *testing.T) {
			out, err := fetchFn(context.Background(), pipeline.NewQuery("react"), 5)
			require.Error(t, err)
			assert.Equal(t, errors.ErrCodeAPIKeyMissing, errors.GetCode(err))
			assert.Empty(t, out)
		})
	}
}

const scrapePage = `<html><body><script>
var ytInitialData = {"contents":{"twoColumnSearchResultsRenderer":{"primaryContents":{"sectionListRenderer":{"contents":[{"itemSectionRenderer":{"contents":[
{"videoRenderer":{"videoId":"abc123def45","title":{"runs":[{"text":"Learn React Hooks in One Sitting"}]},"ownerText":{"runs":[{"text":"Dev Channel"}]}}},
{"videoRenderer":{"videoId":"bbb222ccc33","title":{"runs":[{"text":"react"}]},"ownerText":{"runs":[{"text":"Short Title Channel"}]}}}
]}}]}}}}};
</script></body></html>`

func TestFetchPageScrape(t *testing.T) {
	// Given: a results page embedding ytInitialData
	var queries []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		queries = append(queries, r.URL.Query().Get("search_query"))
		_, _ = w.Write([]byte(scrapePage))
	}))
	defer srv.Close()

	cfg := config.NewConfig()
	src := cfg.Sources.YouTube
	src.ScrapeBaseURL = srv.URL
	adapter := New(src, cfg.Scoring.YouTube, newTestClient(t), nil)

	// When
	out, err := adapter.fetchPageScrape(context.Background(), pipeline.NewQuery("react hooks"), 5)

	// Then: two scrape rewrites run; only the substantial title survives
	require.NoError(t, err)
	assert.Equal(t, []string{"react hooks tutorial", "learn react hooks"}, queries)
	require.Len(t, out, 2)
	for _, c := range out {
		assert.Equal(t, "Learn React Hooks in One Sitting", c.Title)
		assert.Equal(t, "https://www.youtube.com/watch?v=abc123def45", c.URL)
		assert.Equal(t, "Educational video about react hooks", c.Description)
		assert.Equal(t, "scrape", c.MetaString("searchType"))
	}
}

func TestExtractFromHTML_RegexFallback(t *testing.T) {
	// Given: a page without parseable ytInitialData
	page := `<html>
<a href="/watch?v=xyz987uvw65">x</a>
"title":{"runs":[{"text":"React Hooks Explained with Diagrams"}]}
</html>`

	cfg := config.NewConfig()
	adapter := New(cfg.Sources.YouTube, cfg.Scoring.YouTube, newTestClient(t), nil)

	out := adapter.extractFromPage(page, pipeline.NewQuery("react hooks"))

	require.Len(t, out, 1)
	assert.Equal(t, "React Hooks Explained with Diagrams", out[0].Title)
	assert.Equal(t, "https://www.youtube.com/watch?v=xyz987uvw65", out[0].URL)
}

func TestQualityVideo(t *testing.T) {
	cfg := config.NewConfig()
	adapter := New(cfg.Sources.YouTube, cfg.Scoring.YouTube, newTestClient(t), nil)
	q := pipeline.NewQuery("react")

	tests := []struct {
		name        string
		title       string
		description string
		want        bool
	}{
		{"educational title", "React Server Components Tutorial", "", true},
		{"spam indicator", "Subscribe now!!! react is cool", "", false},
		{"off topic", "Vue composition API course for beginners", "", false},
		{"too short", "react tips", "", false},
		{"not educational", "My react conference vlog from Amsterdam", "", false},
		{"educational via description", "React state management in practice", "a complete course on stores", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, adapter.qualityVideo(tt.title, tt.description, q))
		})
	}
}

func TestScore(t *testing.T) {
	cfg := config.NewConfig()
	adapter := New(cfg.Sources.YouTube, cfg.Scoring.YouTube, newTestClient(t), nil)
	q := pipeline.NewQuery("react hooks")

	c := pipeline.Candidate{
		Title:    "React Hooks Tutorial: Learn useState", // 2 tokens (+4), tutorial+learn (+2)
		Metadata: map[string]any{"viewCount": 150000},    // both view tiers (+2)
	}
	assert.Equal(t, 8, adapter.Score(c, q))

	t.Run("view tiers independent", func(t *testing.T) {
		c := pipeline.Candidate{
			Title:    "react hooks summary and why they changed things",
			Metadata: map[string]any{"viewCount": 50000},
		}
		// 2 tokens (+4), no educational keyword, one view tier (+1)
		assert.Equal(t, 5, adapter.Score(c, q))
	})
}

func TestRewrites(t *testing.T) {
	got := rewrites(pipeline.NewQuery("go"))

	assert.Equal(t, []string{
		"go tutorial", "go explained", "go course", "go fundamentals",
		"go guide", "learn go", "go documentation", "go examples",
	}, got)
}

func TestProfile(t *testing.T) {
	cfg := config.NewConfig()
	adapter := New(cfg.Sources.YouTube, cfg.Scoring.YouTube, newTestClient(t), nil)

	profile := adapter.Profile()

	assert.Equal(t, pipeline.SourceYouTube, profile.Source)
	require.Len(t, profile.Strategies, 4)
	assert.Equal(t, "page-scrape", profile.Strategies[3].Name)
}
