package reddit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/rabbithole/internal/config"
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

func newTestAdapter(t *testing.T, baseURL string) *Adapter {
	t.Helper()
	cfg := config.NewConfig()
	src := cfg.Sources.Reddit
	src.BaseURL = baseURL
	return New(src, cfg.Scoring.Reddit, newTestClient(t), nil)
}

func listingWith(posts ...post) string {
	type child struct {
		Data post `json:"data"`
	}
	var children []child
	for _, p := range posts {
		children = append(children, child{Data: p})
	}
	payload := map[string]any{
		"data": map[string]any{"children": children},
	}
	b, _ := json.Marshal(payload)
	return string(b)
}

func goodPost(title string) post {
	return post{
		Title:       title,
		Permalink:   "/r/golang/comments/abc/" + strings.ReplaceAll(strings.ToLower(title), " ", "_") + "/",
		Score:       42,
		NumComments: 17,
		Author:      "grizzled_dev",
		IsSelf:      true,
	}
}

func TestSearchWithParams(t *testing.T) {
	// Given: a search endpoint returning one quality and one junk post
	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{}
		for k := range r.URL.Query() {
			gotQuery[k] = r.URL.Query().Get(k)
		}
		_, _ = w.Write([]byte(listingWith(
			goodPost("How do goroutines actually work under the hood"),
			post{Title: "goroutine question", NumComments: 1, Score: 3, Author: "lurker"},
		)))
	}))
	defer srv.Close()

	adapter := newTestAdapter(t, srv.URL)

	// When: running one approach
	out, err := adapter.searchWithParams(context.Background(), "golang",
		pipeline.NewQuery("goroutines"), approach{"top", "year"}, 5)

	// Then: the request carries the search contract and only the quality
	// post comes back
	require.NoError(t, err)
	assert.Equal(t, "goroutines", gotQuery["q"])
	assert.Equal(t, "on", gotQuery["restrict_sr"])
	assert.Equal(t, "top", gotQuery["sort"])
	assert.Equal(t, "year", gotQuery["t"])
	assert.Equal(t, "15", gotQuery["limit"])
	assert.Equal(t, "link", gotQuery["type"])

	require.Len(t, out, 1)
	c := out[0]
	assert.Equal(t, "How do goroutines actually work under the hood", c.Title)
	assert.True(t, strings.HasPrefix(c.URL, srv.URL+"/r/golang/comments/"))
	assert.Equal(t, "golang", c.MetaString("subreddit"))
	assert.Equal(t, 42, c.MetaInt("score"))
	assert.Equal(t, 17, c.MetaInt("num_comments"))
	assert.True(t, c.MetaBool("is_self"))
}

func TestSearchWithParams_LimitCap(t *testing.T) {
	var gotLimit string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotLimit = r.URL.Query().Get("limit")
		_, _ = w.Write([]byte(listingWith()))
	}))
	defer srv.Close()

	adapter := newTestAdapter(t, srv.URL)

	_, err := adapter.searchWithParams(context.Background(), "golang",
		pipeline.NewQuery("goroutines"), approach{"hot", ""}, 20)

	require.NoError(t, err)
	assert.Equal(t, "25", gotLimit)
}

func TestSearchSubreddit_EarlyStop(t *testing.T) {
	// Given: every approach yields five quality posts
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_, _ = w.Write([]byte(listingWith(
			goodPost("Goroutines explained part one in detail"),
			goodPost("Goroutines explained part two in detail"),
			goodPost("Goroutines explained part three in detail"),
			goodPost("Goroutines explained part four in detail"),
			goodPost("Goroutines explained part five in detail"),
		)))
	}))
	defer srv.Close()

	adapter := newTestAdapter(t, srv.URL)

	// When: searching with hint 2 (early stop at 4 collected)
	out := adapter.searchSubreddit(context.Background(), "golang", pipeline.NewQuery("goroutines"), 2)

	// Then: the first approach already satisfies the early stop
	assert.Equal(t, 1, calls)
	assert.Len(t, out, 5)
}

func TestSearchFamily_FailuresIsolatedPerSubreddit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "/r/deadsub/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(listingWith(goodPost("Goroutines and channels for newcomers"))))
	}))
	defer srv.Close()

	adapter := newTestAdapter(t, srv.URL)

	out := adapter.searchFamily(context.Background(), []string{"deadsub", "golang"},
		pipeline.NewQuery("goroutines"), 5)

	require.NotEmpty(t, out)
	for _, c := range out {
		assert.Equal(t, "golang", c.MetaString("subreddit"))
	}
}

func TestTopicSubreddits(t *testing.T) {
	cfg := config.NewConfig()
	adapter := New(cfg.Sources.Reddit, cfg.Scoring.Reddit, newTestClient(t), nil)

	t.Run("matching topic contributes its subreddits", func(t *testing.T) {
		subs := adapter.topicSubreddits(pipeline.NewQuery("python asyncio"))
		assert.Contains(t, subs, "python")
		assert.Contains(t, subs, "learnpython")
	})

	t.Run("capped at max", func(t *testing.T) {
		// "javascript react" matches several topics; the cap holds.
		subs := adapter.topicSubreddits(pipeline.NewQuery("javascript react"))
		assert.LessOrEqual(t, len(subs), cfg.Sources.Reddit.MaxTopicSubreddits)
	})

	t.Run("no topic match yields nothing", func(t *testing.T) {
		assert.Empty(t, adapter.topicSubreddits(pipeline.NewQuery("gardening")))
	})

	t.Run("deterministic order", func(t *testing.T) {
		first := adapter.topicSubreddits(pipeline.NewQuery("javascript react"))
		for i := 0; i < 5; i++ {
			assert.Equal(t, first, adapter.topicSubreddits(pipeline.NewQuery("javascript react")))
		}
	})
}

func TestQualityPost(t *testing.T) {
	cfg := config.NewConfig()
	adapter := New(cfg.Sources.Reddit, cfg.Scoring.Reddit, newTestClient(t), nil)
	q := pipeline.NewQuery("goroutines")

	base := post{
		Title:       "Understanding goroutines properly",
		Score:       40,
		NumComments: 12,
		Author:      "someone",
		IsSelf:      true,
	}

	tests := []struct {
		name   string
		mutate func(*post)
		want   bool
	}{
		{"accepted baseline", func(p *post) {}, true},
		{"too few comments", func(p *post) { p.NumComments = 4 }, false},
		{"negative score", func(p *post) { p.Score = -1 }, false},
		{"zero score allowed when floor reached", func(p *post) { p.Score = 0 }, true},
		{"off topic", func(p *post) { p.Title = "weekly hiring thread for contractors" }, false},
		{"deleted author", func(p *post) { p.Author = "[deleted]" }, false},
		{"removed author", func(p *post) { p.Author = "[removed]" }, false},
		{"moderator removed", func(p *post) { p.RemovedByCategory = "moderator" }, false},
		{"banned by string", func(p *post) { p.BannedBy = "automod" }, false},
		{"gilded passes gate", func(p *post) { p.NumComments = 5; p.Score = 200; p.IsSelf = false; p.Gilded = 1 }, true},
		{"engagement ratio passes gate", func(p *post) { p.NumComments = 6; p.Score = 20; p.IsSelf = false }, true},
		{"no gate satisfied", func(p *post) { p.NumComments = 5; p.Score = 200; p.IsSelf = false }, false},
		{"comment floor passes gate", func(p *post) { p.NumComments = 10; p.Score = 500; p.IsSelf = false }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := base
			tt.mutate(&p)
			assert.Equal(t, tt.want, adapter.qualityPost(p, q))
		})
	}
}

func TestDescribe(t *testing.T) {
	cfg := config.NewConfig()
	adapter := New(cfg.Sources.Reddit, cfg.Scoring.Reddit, newTestClient(t), nil)

	p := post{
		Score:       120,
		NumComments: 25,
		Gilded:      2,
		IsSelf:      true,
		Stickied:    true,
		Selftext:    strings.Repeat("An explanation of channel semantics. ", 10),
	}

	desc := adapter.describe(p, "golang")

	assert.True(t, strings.HasPrefix(desc, "r/golang • 120 upvotes • 25 comments"))
	assert.Contains(t, desc, "🥇 2 gold")
	assert.Contains(t, desc, "📝 Text post")
	assert.Contains(t, desc, "📌 Pinned")
	assert.Contains(t, desc, "🔥 Active discussion")
	assert.Contains(t, desc, "...")
}

func TestDescribe_MultibyteSelftextPreview(t *testing.T) {
	cfg := config.NewConfig()
	adapter := New(cfg.Sources.Reddit, cfg.Scoring.Reddit, newTestClient(t), nil)

	// Every rune is multibyte; a byte-indexed cut would split one apart.
	p := post{Score: 40, NumComments: 5, Selftext: strings.Repeat("併発性と並列性の違いを解説します。", 20)}

	desc := adapter.describe(p, "golang")

	assert.True(t, utf8.ValidString(desc), "preview must not split a rune")
	assert.Contains(t, desc, "...")
	preview := desc[strings.LastIndex(desc, " • ")+len(" • "):]
	assert.LessOrEqual(t, utf8.RuneCountInString(strings.TrimSuffix(preview, "...")), 150)
}

func TestDescribe_QuietPost(t *testing.T) {
	cfg := config.NewConfig()
	adapter := New(cfg.Sources.Reddit, cfg.Scoring.Reddit, newTestClient(t), nil)

	desc := adapter.describe(post{Score: 8, NumComments: 6}, "compsci")

	assert.Equal(t, "r/compsci • 8 upvotes • 6 comments", desc)
}

func TestScore(t *testing.T) {
	cfg := config.NewConfig()
	adapter := New(cfg.Sources.Reddit, cfg.Scoring.Reddit, newTestClient(t), nil)
	q := pipeline.NewQuery("goroutines")

	t.Run("gilded self post in quality subreddit", func(t *testing.T) {
		c := pipeline.Candidate{
			Title: "Goroutines scheduling deep dive",
			Metadata: map[string]any{
				"score":        120,           // +2 +2 +3
				"num_comments": 35,            // +3 +3 +4
				"gilded":       1,             // +5
				"is_self":      true,          // +2
				"subreddit":    "programming", // +2
			},
		}
		// + title token (+2), engagement 35/120 = 0.29 > 0.2 (+3)
		assert.Equal(t, 31, adapter.Score(c, q))
	})

	t.Run("sparse post scores low", func(t *testing.T) {
		c := pipeline.Candidate{
			Title: "goroutines help",
			Metadata: map[string]any{
				"score":        3,
				"num_comments": 5, // +3
				"subreddit":    "obscuresub",
			},
		}
		// token +2, engagement 5/3 = 1.67 > 0.2 → +3
		assert.Equal(t, 8, adapter.Score(c, q))
	})
}

func TestProfile(t *testing.T) {
	cfg := config.NewConfig()
	adapter := New(cfg.Sources.Reddit, cfg.Scoring.Reddit, newTestClient(t), nil)

	profile := adapter.Profile()

	assert.Equal(t, pipeline.SourceReddit, profile.Source)
	require.Len(t, profile.Strategies, 4)
	assert.Equal(t, "programming-subreddits", profile.Strategies[0].Name)
	assert.Equal(t, "topic-subreddits", profile.Strategies[1].Name)
	assert.NotEmpty(t, profile.FallbackDescription)
}
