// Package transport defines the remote story API contract and its HTTP
// implementation.
package transport

import (
	"context"

	"github.com/yorgalore/storysync/internal/client/models"
)

// Submission is one outbound story: user content plus the bearer token
// captured when the story was created.
type Submission struct {
	Description string
	Lat         *float64
	Lon         *float64
	Photo       []byte
	PhotoMime   string
	Token       string
}

// Client is the remote transport consumed by the sync and feed layers.
// Implementations must distinguish "offline" from "rejected":
// ErrUnavailable for network failure, ErrRejected for a server-reported
// application error.
type Client interface {
	// SubmitStory uploads one story and returns the server-assigned id
	// (possibly empty when the server does not echo one).
	SubmitStory(ctx context.Context, sub Submission) (string, error)

	// FetchStories returns the server's current story list.
	FetchStories(ctx context.Context, token string) ([]models.CachedStory, error)

	// Ping probes server reachability.
	Ping(ctx context.Context) error
}
