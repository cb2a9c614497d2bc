// Package models defines the records held in the local story store.
package models

import (
	"fmt"
	"strings"
	"time"
)

// OfflineIDPrefix marks story ids that were generated on this device
// while offline. Server-assigned ids never carry it.
const OfflineIDPrefix = "offline-"

// OfflineAuthorName is the placeholder author for stories created
// offline; the server fills in the real name once the story is synced.
const OfflineAuthorName = "Offline User"

// CachedStory is a server-authoritative story record mirrored into the
// local cache. The whole collection is replaced on every successful
// refresh, never merged.
type CachedStory struct {
	ID          string   `json:"id"`
	Description string   `json:"description"`
	Lat         *float64 `json:"lat,omitempty"`
	Lon         *float64 `json:"lon,omitempty"`
	CreatedAt   string   `json:"createdAt"`
	Name        string   `json:"name"`
	PhotoURL    string   `json:"photoUrl"`
}

// QueuedStory is a locally created story waiting to be synced. It is
// written once and only ever removed; the photo lives separately in the
// attachment store, referenced by PhotoBlobID.
type QueuedStory struct {
	ID          string
	Token       string
	Description string
	Lat         *float64
	Lon         *float64
	PhotoBlobID int64
	CreatedAt   string
	Name        string
}

// AttachmentBlob is raw photo data stored independently from the
// queued story that references it.
type AttachmentBlob struct {
	ID       int64
	Data     []byte
	MimeType string
}

// StoryDraft is the user-supplied content of a new story before it is
// either submitted or queued.
type StoryDraft struct {
	Description string
	Lat         *float64
	Lon         *float64
	Photo       []byte
	PhotoMime   string
}

// NewOfflineID returns a device-local story id embedding the creation
// time, so ids sort in insertion order.
func NewOfflineID(now time.Time) string {
	return fmt.Sprintf("%s%d", OfflineIDPrefix, now.UnixMilli())
}

// IsOfflineID reports whether id was generated locally.
func IsOfflineID(id string) bool {
	return strings.HasPrefix(id, OfflineIDPrefix)
}

// AsCached projects a queued story into the shape the feed renders,
// so cached and pending stories can be shown in one list.
func (q *QueuedStory) AsCached() CachedStory {
	return CachedStory{
		ID:          q.ID,
		Description: q.Description,
		Lat:         q.Lat,
		Lon:         q.Lon,
		CreatedAt:   q.CreatedAt,
		Name:        q.Name,
	}
}
