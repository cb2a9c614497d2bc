package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"

	"github.com/yorgalore/storysync/internal/client/models"
)

// StoriesPath is the story collection endpoint, relative to the API base.
const StoriesPath = "/v1/stories"

// photoFileName is the synthetic file name used for photos that were
// queued offline; the original bytes carry no name of their own.
const photoFileName = "offline-photo.png"

// HTTPClient talks to the story API over HTTP. The underlying
// http.Client is injectable so a caching RoundTripper can sit beneath
// read requests.
type HTTPClient struct {
	baseURL string
	hc      *http.Client
}

// NewHTTPClient returns a client for the API rooted at baseURL. A nil
// hc falls back to http.DefaultClient.
func NewHTTPClient(baseURL string, hc *http.Client) *HTTPClient {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &HTTPClient{baseURL: strings.TrimRight(baseURL, "/"), hc: hc}
}

// envelope is the API's standard response wrapper.
type envelope struct {
	Error     bool                 `json:"error"`
	Message   string               `json:"message"`
	ListStory []models.CachedStory `json:"listStory"`
	StoryID   string               `json:"storyId"`
}

func (c *HTTPClient) SubmitStory(ctx context.Context, sub Submission) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	if err := mw.WriteField("description", sub.Description); err != nil {
		return "", fmt.Errorf("failed to build form: %w", err)
	}
	if sub.Lat != nil {
		if err := mw.WriteField("lat", strconv.FormatFloat(*sub.Lat, 'f', -1, 64)); err != nil {
			return "", fmt.Errorf("failed to build form: %w", err)
		}
	}
	if sub.Lon != nil {
		if err := mw.WriteField("lon", strconv.FormatFloat(*sub.Lon, 'f', -1, 64)); err != nil {
			return "", fmt.Errorf("failed to build form: %w", err)
		}
	}

	h := textproto.MIMEHeader{}
	h.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="photo"; filename="%s"`, photoFileName))
	mime := sub.PhotoMime
	if mime == "" {
		mime = "application/octet-stream"
	}
	h.Set("Content-Type", mime)
	part, err := mw.CreatePart(h)
	if err != nil {
		return "", fmt.Errorf("failed to build form: %w", err)
	}
	if _, err := part.Write(sub.Photo); err != nil {
		return "", fmt.Errorf("failed to build form: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("failed to build form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+StoriesPath, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+sub.Token)

	resp, err := c.hc.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	env, err := decodeEnvelope(resp)
	if err != nil {
		return "", err
	}
	return env.StoryID, nil
}

func (c *HTTPClient) FetchStories(ctx context.Context, token string) ([]models.CachedStory, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+StoriesPath, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	env, err := decodeEnvelope(resp)
	if err != nil {
		return nil, err
	}
	return env.ListStory, nil
}

// Ping probes the API base URL. Any HTTP response, including an error
// status, proves the network path works.
func (c *HTTPClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.baseURL+"/", nil)
	if err != nil {
		return err
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	return nil
}

// decodeEnvelope reads the response wrapper and maps server-reported
// failures to ErrRejected.
func decodeEnvelope(resp *http.Response) (*envelope, error) {
	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("%w: %s", ErrRejected, resp.Status)
		}
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if env.Error || resp.StatusCode >= 400 {
		msg := env.Message
		if msg == "" {
			msg = resp.Status
		}
		return nil, fmt.Errorf("%w: %s", ErrRejected, msg)
	}
	return &env, nil
}
