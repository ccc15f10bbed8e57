// Package store persists the gallery's media records: where each file lives
// and what the vision model said about it.
//
// Two backends implement MediaStore. FileStore keeps every record in a single
// JSON document on local disk and suits a personal gallery. DynamoStore uses a
// DynamoDB table with one item per media record (PK=MEDIA#{id}, SK=META) for
// galleries shared between machines.
package store

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"
)

// ErrNotFound is returned by updates that target a media ID the store does not hold.
var ErrNotFound = errors.New("media not found")

// Media kinds.
const (
	KindImage = "image"
	KindVideo = "video"
)

// Media is one photo or video known to the gallery.
type Media struct {
	ID       string `json:"id" dynamodbav:"id"`
	Filename string `json:"filename" dynamodbav:"filename"`
	Path     string `json:"path" dynamodbav:"path"`
	Kind     string `json:"kind" dynamodbav:"kind"`

	SizeBytes   int64     `json:"sizeBytes,omitempty" dynamodbav:"sizeBytes,omitempty"`
	DateTaken   time.Time `json:"dateTaken,omitzero" dynamodbav:"dateTaken,omitempty,unixtime"`
	CameraMake  string    `json:"cameraMake,omitempty" dynamodbav:"cameraMake,omitempty"`
	CameraModel string    `json:"cameraModel,omitempty" dynamodbav:"cameraModel,omitempty"`

	Description string    `json:"description,omitempty" dynamodbav:"description,omitempty"`
	Tags        []string  `json:"tags,omitempty" dynamodbav:"tags,omitempty"`
	Analyzed    bool      `json:"analyzed" dynamodbav:"analyzed"`
	AnalyzedAt  time.Time `json:"analyzedAt,omitzero" dynamodbav:"analyzedAt,omitempty,unixtime"`

	CreatedAt time.Time `json:"createdAt" dynamodbav:"createdAt,unixtime"`
	UpdatedAt time.Time `json:"updatedAt" dynamodbav:"updatedAt,unixtime"`
}

// IsVideo reports whether the record is a video.
func (m *Media) IsVideo() bool { return m.Kind == KindVideo }

// MediaStore defines the persistence interface for media records.
// Each method is safe for concurrent use; implementations serialize their
// own writes.
//
// All Get/Find methods return (nil, nil) when the record does not exist.
type MediaStore interface {
	// PutMedia creates or replaces a media record. CreatedAt is set if zero.
	PutMedia(ctx context.Context, m *Media) error

	// GetMedia retrieves a media record by ID. Returns nil, nil if not found.
	GetMedia(ctx context.Context, id string) (*Media, error)

	// FindByPath retrieves the media record stored for a file path. Returns nil, nil if not found.
	FindByPath(ctx context.Context, path string) (*Media, error)

	// UpdateAnalysis stores the description and tags and marks the record analyzed.
	// Returns ErrNotFound if the ID is unknown.
	UpdateAnalysis(ctx context.Context, id, description string, tags []string) error

	// RenameMedia records a new path and filename after the file was renamed on disk.
	// Returns ErrNotFound if the ID is unknown.
	RenameMedia(ctx context.Context, id, newPath, newFilename string) error

	// ListUnanalyzed returns up to limit records not yet analyzed, oldest first.
	// limit <= 0 means no limit.
	ListUnanalyzed(ctx context.Context, limit int) ([]*Media, error)

	// ListMedia returns every record ordered by path.
	ListMedia(ctx context.Context) ([]*Media, error)
}

// sortByPath orders records by path, then ID.
func sortByPath(items []*Media) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].Path != items[j].Path {
			return items[i].Path < items[j].Path
		}
		return items[i].ID < items[j].ID
	})
}

// oldestUnanalyzed filters to unanalyzed records, oldest first, capped at limit.
func oldestUnanalyzed(items []*Media, limit int) []*Media {
	var out []*Media
	for _, m := range items {
		if !m.Analyzed {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return strings.Compare(out[i].Path, out[j].Path) < 0
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
