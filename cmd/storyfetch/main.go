// Command storyfetch pulls each configured market's story collection,
// resolves cross-story relations, and writes one self-contained JSON
// artifact per market.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/bernardodestefano/storyblok-fast-client/pkg/cache"
	"github.com/bernardodestefano/storyblok-fast-client/pkg/client"
	"github.com/bernardodestefano/storyblok-fast-client/pkg/fetcher"
	"github.com/bernardodestefano/storyblok-fast-client/pkg/logging"
	"github.com/bernardodestefano/storyblok-fast-client/pkg/resolver"
	"github.com/bernardodestefano/storyblok-fast-client/pkg/stories"
)

// defaultRelations declares which component fields hold resolvable
// story identifiers. Overridable via the RELATIONS env variable
// (JSON object: component name -> field list).
var defaultRelations = resolver.RelationSpec{
	"ModelTeaser":  {"model"},
	"ModelGrid":    {"models"},
	"ArticleLink":  {"article"},
	"RelatedPosts": {"posts"},
}

func main() {
	logging.Setup(logging.Config{
		Level:  logging.LogLevel(getEnv("LOG_LEVEL", "info")),
		Pretty: getEnv("LOG_PRETTY", "") == "true",
		Output: os.Stderr,
	})

	token := os.Getenv("STORYBLOK_TOKEN")
	if token == "" {
		log.Fatal().Msg("STORYBLOK_TOKEN is required")
	}

	markets := strings.Split(getEnv("MARKETS", "de-de,en-us,fr-fr"), ",")
	if override := os.Getenv("MARKET"); override != "" {
		markets = []string{override}
	}

	outputDir := getEnv("OUTPUT_DIR", "dist/stories")

	clientCfg := client.DefaultConfig(token)
	if baseURL := os.Getenv("STORYBLOK_API_URL"); baseURL != "" {
		clientCfg.BaseURL = baseURL
	}

	// Optional Redis page cache.
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: redisURL})
		ctx := context.Background()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Str("redis_url", redisURL).Msg("Redis unreachable, page cache disabled")
		} else {
			clientCfg.PageCache = cache.NewManager(redisClient, cache.DefaultTTL)
			defer redisClient.Close()
		}
	}

	cmsClient, err := client.New(clientCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create CMS client")
	}

	fetchCfg := fetcher.DefaultConfig()
	if raw := os.Getenv("MAX_RETRIES"); raw != "" {
		attempts, err := strconv.Atoi(raw)
		if err != nil || attempts <= 0 {
			log.Fatal().Str("max_retries", raw).Msg("MAX_RETRIES must be a positive integer")
		}
		fetchCfg.MaxAttempts = attempts
	}
	fetchCfg.FallbackLang = os.Getenv("FALLBACK_LANG")

	f := fetcher.New(cmsClient, fetchCfg)
	r := resolver.New(resolver.DefaultConfig(loadRelations()))

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		log.Fatal().Err(err).Str("dir", outputDir).Msg("Failed to create output directory")
	}

	ctx := context.Background()
	failed := 0
	for _, market := range markets {
		market = strings.TrimSpace(market)
		if market == "" {
			continue
		}
		if err := processMarket(ctx, f, r, market, outputDir); err != nil {
			log.Error().Err(err).Str("market", market).Msg("Market failed, continuing with next")
			failed++
		}
	}

	if failed > 0 {
		log.Error().Int("failed_markets", failed).Msg("Finished with failures")
		os.Exit(1)
	}
	log.Info().Int("markets", len(markets)).Msg("All markets written")
}

// processMarket runs the full pipeline for one market: fetch ->
// dictionary -> resolve -> artifact.
func processMarket(ctx context.Context, f *fetcher.Fetcher, r *resolver.Resolver, market, outputDir string) error {
	result, err := f.FetchMarketStories(ctx, market)
	if err != nil {
		return err
	}

	dict := stories.BuildDictionary(result.Stories)
	resolved := r.ResolveAll(result.Stories, dict)

	path := filepath.Join(outputDir, fmt.Sprintf("stories.%s.json", market))
	if err := writeArtifact(path, resolved); err != nil {
		return err
	}

	log.Info().
		Str("market", market).
		Str("path", path).
		Int("stories", len(resolved)).
		Bool("complete", result.Complete).
		Msg("Artifact written")
	return nil
}

// writeArtifact serializes the resolved collection to one file, shaped
// {"stories": [...]} like the upstream API responses.
func writeArtifact(path string, list []stories.Story) error {
	data, err := json.MarshalIndent(map[string]any{"stories": list}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal artifact: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}
	return nil
}

// loadRelations reads the relation table from the RELATIONS env
// variable, falling back to the built-in defaults.
func loadRelations() resolver.RelationSpec {
	raw := os.Getenv("RELATIONS")
	if raw == "" {
		return defaultRelations
	}

	var relations resolver.RelationSpec
	if err := json.Unmarshal([]byte(raw), &relations); err != nil {
		log.Fatal().Err(err).Msg("RELATIONS must be a JSON object mapping component names to field lists")
	}
	return relations
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
