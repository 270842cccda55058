// Package catalog writes ingested samples to the relational store.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/makeasinger/samples/internal/config"
	"github.com/makeasinger/samples/internal/logging"
	"github.com/makeasinger/samples/internal/model"
)

var logger = logging.Zone("samples/catalog")

// Writer is the catalog collaborator used by the ingestion pipeline
type Writer interface {
	InsertSample(ctx context.Context, rec *model.CatalogRecord) (string, error)
	GetOrCreateArtist(ctx context.Context, name string) (string, error)
}

// GormWriter implements Writer on sqlite or mysql
type GormWriter struct {
	db      *gorm.DB
	artists *cache.Cache
	group   singleflight.Group
}

// Open connects to the configured database and migrates the schema
func Open(cfg config.CatalogConfig) (*GormWriter, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "mysql":
		dialector = mysql.Open(cfg.DSN)
	case "sqlite", "":
		if dir := filepath.Dir(cfg.DSN); dir != "." && !strings.HasPrefix(cfg.DSN, "file:") {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create catalog directory: %w", err)
			}
		}
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported catalog driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.New(logger, gormlogger.Config{
			SlowThreshold:             500 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect catalog: %w", err)
	}

	if cfg.Driver != "mysql" {
		// sqlite allows one writer at a time
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err := db.AutoMigrate(&Artist{}, &Sample{}); err != nil {
		return nil, fmt.Errorf("failed to migrate catalog: %w", err)
	}

	ttl := time.Duration(cfg.ArtistCacheTTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = cache.NoExpiration
	}
	return &GormWriter{
		db:      db,
		artists: cache.New(ttl, 10*time.Minute),
	}, nil
}

// Close releases the connection pool
func (w *GormWriter) Close() error {
	sqlDB, err := w.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks the database connection
func (w *GormWriter) Ping(ctx context.Context) error {
	sqlDB, err := w.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// GetOrCreateArtist returns the ID of the artist with this name, creating it
// on first use. Names differing only in case are the same artist; the first
// spelling seen is kept. Concurrent callers for the same name share one lookup.
func (w *GormWriter) GetOrCreateArtist(ctx context.Context, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("artist name is required")
	}
	lookup := strings.ToLower(name)
	if id, ok := w.artists.Get(lookup); ok {
		return id.(string), nil
	}

	v, err, _ := w.group.Do(lookup, func() (interface{}, error) {
		artist := Artist{ID: uuid.NewString(), Name: name, LookupName: lookup}
		err := w.db.WithContext(ctx).
			Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "lookup_name"}}, DoNothing: true}).
			Create(&artist).Error
		if err != nil {
			return "", fmt.Errorf("failed to create artist: %w", err)
		}

		var existing Artist
		if err := w.db.WithContext(ctx).Where("lookup_name = ?", lookup).First(&existing).Error; err != nil {
			return "", fmt.Errorf("failed to load artist: %w", err)
		}
		w.artists.SetDefault(lookup, existing.ID)
		return existing.ID, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// InsertSample stores rec and returns the new sample ID
func (w *GormWriter) InsertSample(ctx context.Context, rec *model.CatalogRecord) (string, error) {
	if rec == nil {
		return "", errors.New("nil catalog record")
	}
	if rec.Name == "" || rec.FullAudioURL == "" || rec.PreviewURL == "" {
		return "", errors.New("catalog record is missing name or artifact URLs")
	}

	row := Sample{
		ID:               uuid.NewString(),
		Name:             rec.Name,
		BPM:              rec.BPM,
		Key:              rec.Key,
		Genre:            rec.Genre,
		Tags:             rec.Tags,
		Producer:         rec.Producer,
		OriginalFilename: rec.OriginalFilename,
		FullAudioURL:     rec.FullAudioURL,
		PreviewURL:       rec.PreviewURL,
		WaveformPeaks:    rec.WaveformPeaks,
		FileSize:         rec.FileSize,
		PreviewDuration:  rec.PreviewDuration,
	}
	if rec.ArtistID != "" {
		row.ArtistID = &rec.ArtistID
	}

	if err := w.db.WithContext(ctx).Create(&row).Error; err != nil {
		return "", fmt.Errorf("failed to insert sample: %w", err)
	}
	return row.ID, nil
}
