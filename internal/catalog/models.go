package catalog

import "time"

// Artist owns samples uploaded under its name. LookupName is the lowercased
// name and is what makes artists unique.
type Artist struct {
	ID         string    `gorm:"primaryKey;size:36"`
	Name       string    `gorm:"size:200;not null"`
	LookupName string    `gorm:"size:200;not null;uniqueIndex"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
}

// Sample is the catalog row for one ingested file
type Sample struct {
	ID               string    `gorm:"primaryKey;size:36"`
	Name             string    `gorm:"size:200;not null"`
	ArtistID         *string   `gorm:"size:36;index"`
	BPM              *int      `gorm:"index"`
	Key              *string   `gorm:"column:musical_key;size:16;index"`
	Genre            string    `gorm:"size:50;index"`
	Tags             []string  `gorm:"serializer:json"`
	Producer         string    `gorm:"size:200"`
	OriginalFilename string    `gorm:"size:255"`
	FullAudioURL     string    `gorm:"size:1024;not null"`
	PreviewURL       string    `gorm:"size:1024;not null"`
	WaveformPeaks    []float64 `gorm:"serializer:json"`
	FileSize         int64
	PreviewDuration  float64
	CreatedAt        time.Time `gorm:"autoCreateTime"`
}
