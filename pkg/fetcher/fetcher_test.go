package fetcher

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/bernardodestefano/storyblok-fast-client/internal/testutil"
	"github.com/bernardodestefano/storyblok-fast-client/pkg/client"
	"github.com/bernardodestefano/storyblok-fast-client/pkg/retry"
)

func fastConfig() Config {
	cfg := DefaultConfig()
	cfg.PageRetry = retry.Config{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		Multiplier:   2,
	}
	cfg.Cooldown = 50 * time.Millisecond
	return cfg
}

func newTestFetcher(t *testing.T, mock *testutil.MockCMS, cfg Config) *Fetcher {
	t.Helper()

	clientCfg := client.DefaultConfig("test-token")
	clientCfg.BaseURL = mock.URL()
	c, err := client.New(clientCfg)
	if err != nil {
		t.Fatalf("client.New() error = %v", err)
	}
	return New(c, cfg)
}

func TestFetchAll_PaginationCompleteness(t *testing.T) {
	mock := testutil.NewMockCMS()
	defer mock.Close()
	mock.SetStories("de-de", testutil.MakeStories("de", 60))

	f := newTestFetcher(t, mock, fastConfig())

	result, err := f.FetchAll(context.Background(), "de-de", "1")
	if err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}

	if len(result.Stories) != 60 {
		t.Errorf("len(Stories) = %d, want 60", len(result.Stories))
	}
	if !result.Complete {
		t.Error("Complete = false, want true")
	}

	// Page-1 stories come first.
	for i := 0; i < 25; i++ {
		want := testutil.MakeStories("de", 25)[i].UUID
		if result.Stories[i].UUID != want {
			t.Fatalf("Stories[%d].UUID = %q, want %q (page 1 first)", i, result.Stories[i].UUID, want)
		}
	}

	// All 60 uuids present exactly once.
	seen := make(map[string]bool, 60)
	for _, s := range result.Stories {
		if seen[s.UUID] {
			t.Errorf("duplicate story %q", s.UUID)
		}
		seen[s.UUID] = true
	}
}

func TestFetchAll_SinglePage(t *testing.T) {
	mock := testutil.NewMockCMS()
	defer mock.Close()
	mock.SetStories("de-de", testutil.MakeStories("de", 10))

	f := newTestFetcher(t, mock, fastConfig())

	result, err := f.FetchAll(context.Background(), "de-de", "1")
	if err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}
	if len(result.Stories) != 10 {
		t.Errorf("len(Stories) = %d, want 10", len(result.Stories))
	}
	if got := mock.GetPageRequestCount("de-de", 2); got != 0 {
		t.Errorf("page 2 requested %d times, want 0", got)
	}
}

func TestFetchAll_MissingTotalHeaderTreatedAsSinglePage(t *testing.T) {
	mock := testutil.NewMockCMS()
	defer mock.Close()
	mock.SetStories("de-de", testutil.MakeStories("de", 60))
	mock.SuppressTotalHeader()

	f := newTestFetcher(t, mock, fastConfig())

	result, err := f.FetchAll(context.Background(), "de-de", "1")
	if err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}
	if len(result.Stories) != 25 {
		t.Errorf("len(Stories) = %d, want 25 (page 1 only)", len(result.Stories))
	}
	if !result.Complete {
		t.Error("Complete = false, want true for single-page fetch")
	}
}

func TestFetchAll_PermanentPageFailureDropped(t *testing.T) {
	mock := testutil.NewMockCMS()
	defer mock.Close()
	// 113 stories at 25 per page = 5 pages.
	mock.SetStories("de-de", testutil.MakeStories("de", 113))
	mock.FailPage("de-de", 3, -1)

	f := newTestFetcher(t, mock, fastConfig())

	result, err := f.FetchAll(context.Background(), "de-de", "1")
	if err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}

	// Pages 1,2,4,5 contribute 25+25+25+13 stories.
	if len(result.Stories) != 88 {
		t.Errorf("len(Stories) = %d, want 88 (page 3 dropped)", len(result.Stories))
	}
	if result.Complete {
		t.Error("Complete = true, want false")
	}
	if result.FailedPages != 1 {
		t.Errorf("FailedPages = %d, want 1", result.FailedPages)
	}
	for _, s := range result.Stories {
		for _, dropped := range testutil.MakeStories("de", 75)[50:] {
			if s.UUID == dropped.UUID {
				t.Errorf("story %q from failed page 3 present", s.UUID)
			}
		}
	}
}

func TestFetchAll_TransientPageFailureRecovered(t *testing.T) {
	mock := testutil.NewMockCMS()
	defer mock.Close()
	mock.SetStories("de-de", testutil.MakeStories("de", 60))
	mock.FailPage("de-de", 2, 2)

	f := newTestFetcher(t, mock, fastConfig())

	result, err := f.FetchAll(context.Background(), "de-de", "1")
	if err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}
	if !result.Complete {
		t.Error("Complete = false, want true after retries recovered page 2")
	}
	if len(result.Stories) != 60 {
		t.Errorf("len(Stories) = %d, want 60", len(result.Stories))
	}
	if got := mock.GetPageRequestCount("de-de", 2); got != 3 {
		t.Errorf("page 2 requested %d times, want 3", got)
	}
}

func TestFetchAll_FirstPageFailureFailsFetch(t *testing.T) {
	mock := testutil.NewMockCMS()
	defer mock.Close()
	mock.SetStories("de-de", testutil.MakeStories("de", 60))
	mock.FailPage("de-de", 1, -1)

	f := newTestFetcher(t, mock, fastConfig())

	_, err := f.FetchAll(context.Background(), "de-de", "1")
	if err == nil {
		t.Fatal("FetchAll() error = nil, want first-page failure")
	}
}

func TestFetchMarketStories_RetriesWholeMarket(t *testing.T) {
	mock := testutil.NewMockCMS()
	defer mock.Close()
	mock.SetStories("de-de", testutil.MakeStories("de", 10))
	mock.FailPage("de-de", 1, 2)

	f := newTestFetcher(t, mock, fastConfig())

	result, err := f.FetchMarketStories(context.Background(), "de-de")
	if err != nil {
		t.Fatalf("FetchMarketStories() error = %v", err)
	}
	if len(result.Stories) != 10 {
		t.Errorf("len(Stories) = %d, want 10", len(result.Stories))
	}
	if got := mock.GetPageRequestCount("de-de", 1); got != 3 {
		t.Errorf("page 1 requested %d times, want 3 (two failed attempts)", got)
	}
}

func TestFetchMarketStories_ExhaustionFatal(t *testing.T) {
	mock := testutil.NewMockCMS()
	defer mock.Close()
	mock.SetStories("de-de", testutil.MakeStories("de", 10))
	mock.FailPage("de-de", 1, -1)

	cfg := fastConfig()
	cfg.MaxAttempts = 3
	f := newTestFetcher(t, mock, cfg)

	_, err := f.FetchMarketStories(context.Background(), "de-de")
	if !errors.Is(err, ErrFetchFailed) {
		t.Errorf("error = %v, want ErrFetchFailed", err)
	}
	if got := mock.GetPageRequestCount("de-de", 1); got != 3 {
		t.Errorf("page 1 requested %d times, want 3 (MaxAttempts)", got)
	}
}

func TestFetchMarketStories_RateLimitCooldown(t *testing.T) {
	mock := testutil.NewMockCMS()
	defer mock.Close()
	mock.SetStories("de-de", testutil.MakeStories("de", 10))
	mock.SetFailStatus(http.StatusTooManyRequests)
	mock.FailPage("de-de", 1, 1)

	cfg := fastConfig()
	cfg.Cooldown = 100 * time.Millisecond
	f := newTestFetcher(t, mock, cfg)

	start := time.Now()
	result, err := f.FetchMarketStories(context.Background(), "de-de")
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("FetchMarketStories() error = %v", err)
	}
	if len(result.Stories) != 10 {
		t.Errorf("len(Stories) = %d, want 10", len(result.Stories))
	}
	if elapsed < 100*time.Millisecond {
		t.Errorf("elapsed = %v, want >= cooldown before the second attempt", elapsed)
	}
}

func TestFetchMarketStories_UsesSpaceVersion(t *testing.T) {
	mock := testutil.NewMockCMS()
	defer mock.Close()
	mock.SetStories("de-de", testutil.MakeStories("de", 5))
	mock.SetSpaceVersion(7777)

	f := newTestFetcher(t, mock, fastConfig())

	result, err := f.FetchMarketStories(context.Background(), "de-de")
	if err != nil {
		t.Fatalf("FetchMarketStories() error = %v", err)
	}
	if result.CacheVersion != "7777" {
		t.Errorf("CacheVersion = %q, want 7777", result.CacheVersion)
	}
}
