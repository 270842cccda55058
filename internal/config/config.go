package config

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// readSecret reads a Docker secret from a file path specified by an env var
// with _FILE suffix. If FOO is already set directly, the file is skipped.
// If FOO_FILE is set, reads the file content and sets FOO.
func readSecret(envKey string) {
	if os.Getenv(envKey) != "" {
		return
	}
	fileKey := envKey + "_FILE"
	filePath := os.Getenv(fileKey)
	if filePath == "" {
		return
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return
	}
	val := strings.TrimSpace(string(data))
	os.Setenv(envKey, val)
}

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Redis     RedisConfig     `yaml:"redis"`
	RateLimit RateLimitConfig `yaml:"ratelimit"`
	Gateway   GatewayConfig   `yaml:"gateway"`
	R2        R2Config        `yaml:"r2"`
	Storage   StorageConfig   `yaml:"storage"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	FFmpeg    FFmpegConfig    `yaml:"ffmpeg"`
}

type ServerConfig struct {
	Port      string `yaml:"port" validate:"required"`
	Env       string `yaml:"env"`
	LogLevel  string `yaml:"log_level" validate:"oneof=trace debug info warn warning error fatal panic"`
	LogFormat string `yaml:"log_format" validate:"oneof=text json"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db" validate:"min=0"`
}

type RateLimitConfig struct {
	IngestPerHour int `yaml:"ingest_per_hour" validate:"min=0"`
}

// GatewayConfig enables header identity set by a fronting proxy (X-User-Id)
type GatewayConfig struct {
	Enabled bool `yaml:"enabled"`
}

type R2Config struct {
	AccountID       string `yaml:"account_id"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	BucketName      string `yaml:"bucket_name"`
	PublicURL       string `yaml:"public_url"`
	Endpoint        string `yaml:"endpoint"`
}

type StorageConfig struct {
	Backend          string  `yaml:"backend" validate:"oneof=r2 local"`
	LocalDir         string  `yaml:"local_dir" validate:"required_if=Backend local"`
	LocalBaseURL     string  `yaml:"local_base_url"`
	UploadsPerSecond float64 `yaml:"uploads_per_second" validate:"min=0"`
}

type CatalogConfig struct {
	Driver                string `yaml:"driver" validate:"oneof=sqlite mysql"`
	DSN                   string `yaml:"dsn" validate:"required"`
	ArtistCacheTTLSeconds int    `yaml:"artist_cache_ttl_seconds" validate:"min=0"`
}

type PipelineConfig struct {
	PreviewMaxSeconds  float64  `yaml:"preview_max_seconds" validate:"gt=0"`
	LongTrackSeconds   float64  `yaml:"long_track_seconds" validate:"gt=0"`
	PreviewOffsetRatio float64  `yaml:"preview_offset_ratio" validate:"gte=0,lt=1"`
	PeakCount          int      `yaml:"peak_count" validate:"min=1"`
	Concurrency        int      `yaml:"concurrency" validate:"min=1"`
	BatchDelayMs       int      `yaml:"batch_delay_ms" validate:"min=0"`
	BPMMin             int      `yaml:"bpm_min" validate:"min=1"`
	BPMMax             int      `yaml:"bpm_max" validate:"gtefield=BPMMin"`
	Extensions         []string `yaml:"extensions" validate:"min=1,dive,startswith=."`
	TempDir            string   `yaml:"temp_dir"`
	DefaultProducer    string   `yaml:"default_producer" validate:"required"`
	FailureLog         string   `yaml:"failure_log"`
}

// PreviewMax returns the preview cap as a duration
func (p PipelineConfig) PreviewMax() time.Duration {
	return time.Duration(p.PreviewMaxSeconds * float64(time.Second))
}

// LongTrack returns the threshold above which previews start at an offset
func (p PipelineConfig) LongTrack() time.Duration {
	return time.Duration(p.LongTrackSeconds * float64(time.Second))
}

// BatchDelay returns the pause between windows
func (p PipelineConfig) BatchDelay() time.Duration {
	return time.Duration(p.BatchDelayMs) * time.Millisecond
}

type FFmpegConfig struct {
	FFmpegPath         string `yaml:"ffmpeg_path" validate:"required"`
	FFprobePath        string `yaml:"ffprobe_path" validate:"required"`
	SampleRate         int    `yaml:"sample_rate" validate:"min=8000"`
	Channels           int    `yaml:"channels" validate:"min=1,max=2"`
	BitrateKbps        int    `yaml:"bitrate_kbps" validate:"min=32,max=320"`
	AnalysisSampleRate int    `yaml:"analysis_sample_rate" validate:"min=1000"`
}

func Load() (*Config, error) {
	// Read Docker Swarm secrets from _FILE env vars before Viper binds
	readSecret("REDIS_PASSWORD")
	readSecret("R2_ACCOUNT_ID")
	readSecret("R2_ACCESS_KEY_ID")
	readSecret("R2_SECRET_ACCESS_KEY")
	readSecret("CATALOG_DSN")

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// Environment variables
	v.AutomaticEnv()

	// Bind environment variables with underscores to nested config keys
	_ = v.BindEnv("server.port", "SERVER_PORT")
	_ = v.BindEnv("server.env", "SERVER_ENV")
	_ = v.BindEnv("server.log_level", "LOG_LEVEL")
	_ = v.BindEnv("server.log_format", "LOG_FORMAT")
	_ = v.BindEnv("redis.addr", "REDIS_ADDR")
	_ = v.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = v.BindEnv("redis.db", "REDIS_DB")
	_ = v.BindEnv("ratelimit.ingest_per_hour", "RATELIMIT_INGEST_PER_HOUR")
	_ = v.BindEnv("gateway.enabled", "GATEWAY_ENABLED")
	_ = v.BindEnv("r2.account_id", "R2_ACCOUNT_ID")
	_ = v.BindEnv("r2.access_key_id", "R2_ACCESS_KEY_ID")
	_ = v.BindEnv("r2.secret_access_key", "R2_SECRET_ACCESS_KEY")
	_ = v.BindEnv("r2.bucket_name", "R2_BUCKET_NAME")
	_ = v.BindEnv("r2.public_url", "R2_PUBLIC_URL")
	_ = v.BindEnv("r2.endpoint", "R2_ENDPOINT")
	_ = v.BindEnv("storage.backend", "STORAGE_BACKEND")
	_ = v.BindEnv("storage.local_dir", "STORAGE_LOCAL_DIR")
	_ = v.BindEnv("storage.local_base_url", "STORAGE_LOCAL_BASE_URL")
	_ = v.BindEnv("storage.uploads_per_second", "STORAGE_UPLOADS_PER_SECOND")
	_ = v.BindEnv("catalog.driver", "CATALOG_DRIVER")
	_ = v.BindEnv("catalog.dsn", "CATALOG_DSN")
	_ = v.BindEnv("catalog.artist_cache_ttl_seconds", "CATALOG_ARTIST_CACHE_TTL_SECONDS")
	_ = v.BindEnv("pipeline.preview_max_seconds", "PIPELINE_PREVIEW_MAX_SECONDS")
	_ = v.BindEnv("pipeline.long_track_seconds", "PIPELINE_LONG_TRACK_SECONDS")
	_ = v.BindEnv("pipeline.preview_offset_ratio", "PIPELINE_PREVIEW_OFFSET_RATIO")
	_ = v.BindEnv("pipeline.peak_count", "PIPELINE_PEAK_COUNT")
	_ = v.BindEnv("pipeline.concurrency", "PIPELINE_CONCURRENCY")
	_ = v.BindEnv("pipeline.batch_delay_ms", "PIPELINE_BATCH_DELAY_MS")
	_ = v.BindEnv("pipeline.bpm_min", "PIPELINE_BPM_MIN")
	_ = v.BindEnv("pipeline.bpm_max", "PIPELINE_BPM_MAX")
	_ = v.BindEnv("pipeline.extensions", "PIPELINE_EXTENSIONS")
	_ = v.BindEnv("pipeline.temp_dir", "PIPELINE_TEMP_DIR")
	_ = v.BindEnv("pipeline.default_producer", "PIPELINE_DEFAULT_PRODUCER")
	_ = v.BindEnv("pipeline.failure_log", "PIPELINE_FAILURE_LOG")
	_ = v.BindEnv("ffmpeg.ffmpeg_path", "FFMPEG_PATH")
	_ = v.BindEnv("ffmpeg.ffprobe_path", "FFPROBE_PATH")
	_ = v.BindEnv("ffmpeg.sample_rate", "FFMPEG_SAMPLE_RATE")
	_ = v.BindEnv("ffmpeg.channels", "FFMPEG_CHANNELS")
	_ = v.BindEnv("ffmpeg.bitrate_kbps", "FFMPEG_BITRATE_KBPS")
	_ = v.BindEnv("ffmpeg.analysis_sample_rate", "FFMPEG_ANALYSIS_SAMPLE_RATE")

	// Defaults
	v.SetDefault("server.port", "8000")
	v.SetDefault("server.env", "development")
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.log_format", "text")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("ratelimit.ingest_per_hour", 20)
	v.SetDefault("gateway.enabled", false)

	// Storage defaults
	v.SetDefault("storage.backend", "r2")
	v.SetDefault("storage.local_dir", "./data/artifacts")
	v.SetDefault("storage.local_base_url", "http://localhost:8000/artifacts")
	v.SetDefault("storage.uploads_per_second", 0)

	// Catalog defaults
	v.SetDefault("catalog.driver", "sqlite")
	v.SetDefault("catalog.dsn", "samples.db")
	v.SetDefault("catalog.artist_cache_ttl_seconds", 600)

	// Pipeline defaults
	v.SetDefault("pipeline.preview_max_seconds", 25)
	v.SetDefault("pipeline.long_track_seconds", 60)
	v.SetDefault("pipeline.preview_offset_ratio", 0.15)
	v.SetDefault("pipeline.peak_count", 100)
	v.SetDefault("pipeline.concurrency", 3)
	v.SetDefault("pipeline.batch_delay_ms", 500)
	v.SetDefault("pipeline.bpm_min", 60)
	v.SetDefault("pipeline.bpm_max", 200)
	v.SetDefault("pipeline.extensions", []string{".mp3", ".wav", ".m4a", ".flac"})
	v.SetDefault("pipeline.temp_dir", os.TempDir())
	v.SetDefault("pipeline.default_producer", "Samples")
	v.SetDefault("pipeline.failure_log", "failed-uploads.json")

	// FFmpeg defaults
	v.SetDefault("ffmpeg.ffmpeg_path", "ffmpeg")
	v.SetDefault("ffmpeg.ffprobe_path", "ffprobe")
	v.SetDefault("ffmpeg.sample_rate", 44100)
	v.SetDefault("ffmpeg.channels", 2)
	v.SetDefault("ffmpeg.bitrate_kbps", 128)
	v.SetDefault("ffmpeg.analysis_sample_rate", 22050)

	// Try to read config file (optional)
	_ = v.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port:      v.GetString("server.port"),
			Env:       v.GetString("server.env"),
			LogLevel:  v.GetString("server.log_level"),
			LogFormat: v.GetString("server.log_format"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		RateLimit: RateLimitConfig{
			IngestPerHour: v.GetInt("ratelimit.ingest_per_hour"),
		},
		Gateway: GatewayConfig{
			Enabled: v.GetBool("gateway.enabled"),
		},
		R2: R2Config{
			AccountID:       v.GetString("r2.account_id"),
			AccessKeyID:     v.GetString("r2.access_key_id"),
			SecretAccessKey: v.GetString("r2.secret_access_key"),
			BucketName:      v.GetString("r2.bucket_name"),
			PublicURL:       v.GetString("r2.public_url"),
			Endpoint:        v.GetString("r2.endpoint"),
		},
		Storage: StorageConfig{
			Backend:          v.GetString("storage.backend"),
			LocalDir:         v.GetString("storage.local_dir"),
			LocalBaseURL:     v.GetString("storage.local_base_url"),
			UploadsPerSecond: v.GetFloat64("storage.uploads_per_second"),
		},
		Catalog: CatalogConfig{
			Driver:                v.GetString("catalog.driver"),
			DSN:                   v.GetString("catalog.dsn"),
			ArtistCacheTTLSeconds: v.GetInt("catalog.artist_cache_ttl_seconds"),
		},
		Pipeline: PipelineConfig{
			PreviewMaxSeconds:  v.GetFloat64("pipeline.preview_max_seconds"),
			LongTrackSeconds:   v.GetFloat64("pipeline.long_track_seconds"),
			PreviewOffsetRatio: v.GetFloat64("pipeline.preview_offset_ratio"),
			PeakCount:          v.GetInt("pipeline.peak_count"),
			Concurrency:        v.GetInt("pipeline.concurrency"),
			BatchDelayMs:       v.GetInt("pipeline.batch_delay_ms"),
			BPMMin:             v.GetInt("pipeline.bpm_min"),
			BPMMax:             v.GetInt("pipeline.bpm_max"),
			Extensions:         normalizeExtensions(v.GetStringSlice("pipeline.extensions")),
			TempDir:            v.GetString("pipeline.temp_dir"),
			DefaultProducer:    v.GetString("pipeline.default_producer"),
			FailureLog:         v.GetString("pipeline.failure_log"),
		},
		FFmpeg: FFmpegConfig{
			FFmpegPath:         v.GetString("ffmpeg.ffmpeg_path"),
			FFprobePath:        v.GetString("ffmpeg.ffprobe_path"),
			SampleRate:         v.GetInt("ffmpeg.sample_rate"),
			Channels:           v.GetInt("ffmpeg.channels"),
			BitrateKbps:        v.GetInt("ffmpeg.bitrate_kbps"),
			AnalysisSampleRate: v.GetInt("ffmpeg.analysis_sample_rate"),
		},
	}

	return cfg, nil
}

// normalizeExtensions lowercases entries and makes sure each has a leading dot.
// Env values arrive as a single comma separated string.
func normalizeExtensions(in []string) []string {
	var out []string
	for _, raw := range in {
		for _, ext := range strings.Split(raw, ",") {
			ext = strings.ToLower(strings.TrimSpace(ext))
			if ext == "" {
				continue
			}
			if !strings.HasPrefix(ext, ".") {
				ext = "." + ext
			}
			out = append(out, ext)
		}
	}
	return out
}
