package e2e

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/makeasinger/samples/internal/config"
	"github.com/makeasinger/samples/internal/handler"
	"github.com/makeasinger/samples/internal/middleware"
	"github.com/makeasinger/samples/internal/server"
	"github.com/makeasinger/samples/internal/service"
)

const (
	redisAddr = "localhost:6379"
	redisDB   = 15 // use DB 15 for tests to avoid collision
)

// testApp holds all components needed for testing
type testApp struct {
	app  *fiber.App
	jobs *service.IngestService
}

// setupApp builds the same routes as `samples serve` against a local Redis.
// The test is skipped when Redis is not reachable.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	redisClient := redis.NewClient(&redis.Options{
		Addr: redisAddr,
		DB:   redisDB,
	})
	t.Cleanup(func() { redisClient.Close() })
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		t.Skipf("redis not available at %s: %v", redisAddr, err)
	}

	asynqClient := asynq.NewClient(redisOpt())
	t.Cleanup(func() { asynqClient.Close() })

	jobs := service.NewIngestService(service.NewRedisJobStore(redisClient), asynqClient)

	cfg := &config.Config{
		Server:  config.ServerConfig{Port: "0", LogLevel: "info"},
		Gateway: config.GatewayConfig{Enabled: true},
		// Use a very high rate limit so tests don't get blocked
		RateLimit: config.RateLimitConfig{IngestPerHour: 10000},
		Storage:   config.StorageConfig{Backend: "r2"},
	}

	app := server.NewApp(cfg, server.Deps{
		Jobs:    jobs,
		Limiter: middleware.NewRateLimiter(redisClient),
		Health: map[string]handler.Checker{
			"redis": func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		},
	})

	return &testApp{app: app, jobs: jobs}
}

func redisOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: redisAddr, DB: redisDB}
}

// doRequest is a helper to perform HTTP requests against the test app.
func doRequest(app *fiber.App, method, path string, body string, headers map[string]string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != "" {
		bodyReader = strings.NewReader(body)
	}

	req, err := http.NewRequest(method, path, bodyReader)
	if err != nil {
		return nil, err
	}

	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return app.Test(req, -1)
}

// doAuthRequest performs a request carrying gateway identity headers.
func doAuthRequest(t *testing.T, app *fiber.App, method, path, body string) (*http.Response, error) {
	t.Helper()
	return doRequest(app, method, path, body, map[string]string{
		"X-User-Id":    "test-operator",
		"X-User-Email": "ops@example.com",
	})
}

// readBody reads and returns the response body as a string.
func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	return string(b)
}

// parseJSON parses response body into a map.
func parseJSON(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	body := readBody(t, resp)
	var result map[string]interface{}
	if err := json.Unmarshal([]byte(body), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, body)
	}
	return result
}

// assertStatus checks the HTTP status code.
func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("expected status %d, got %d", expected, resp.StatusCode)
	}
}
