// Package cli wires the offline-first core into a small interactive
// client: it owns the terminal, while the core only emits events.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/yorgalore/storysync/internal/client/cache"
	"github.com/yorgalore/storysync/internal/client/config"
	"github.com/yorgalore/storysync/internal/client/connectivity"
	"github.com/yorgalore/storysync/internal/client/events"
	"github.com/yorgalore/storysync/internal/client/models"
	"github.com/yorgalore/storysync/internal/client/services"
	"github.com/yorgalore/storysync/internal/client/storage"
	"github.com/yorgalore/storysync/internal/client/transport"
	"github.com/yorgalore/storysync/internal/logging"

	_ "modernc.org/sqlite"
)

// App bundles the assembled core for the interactive client.
type App struct {
	config     *config.Config
	store      *storage.Store
	feed       services.StoryFeed
	submitter  services.Submitter
	reconciler *services.Reconciler
	watcher    *connectivity.Watcher
	bus        *events.Bus
	log        logging.Logger

	token  string
	reader *bufio.Reader
	out    io.Writer
}

// NewApp opens the local store and wires transport, cache, queue, and
// reconciler together.
func NewApp(ctx context.Context, c *config.Config, log logging.Logger) (*App, error) {
	store, err := storage.Open(ctx, c.DatabasePath)
	if err != nil {
		return nil, err
	}

	bus := events.NewBus()
	caching := cache.New(nil, store.Stories, bus, log)
	apiClient := transport.NewHTTPClient(c.APIBaseURL, &http.Client{Transport: caching})

	am := services.NewAttachmentManager(store.Attachments)
	queue := services.NewOfflineQueue(store.Queue, am, log)
	feed := services.NewStoryFeed(store.Stories, queue, log)
	submitter := services.NewSubmitter(apiClient, queue, log)
	reconciler := services.NewReconciler(queue, am, apiClient, bus, log)

	trigger := connectivity.WithBackoff(c.SyncBackoffBase, c.SyncBackoffCap, c.SyncMaxRetries,
		func(ctx context.Context) error {
			stats, err := reconciler.Sweep(ctx)
			if err != nil {
				return err
			}
			if stats.Failed > 0 {
				return connectivity.Retryable(fmt.Errorf("%d stories still queued", stats.Failed))
			}
			return nil
		})
	watcher := connectivity.NewWatcher(apiClient, c.OnlineCheckInterval, trigger, log)

	return &App{
		config:     c,
		store:      store,
		feed:       feed,
		submitter:  submitter,
		reconciler: reconciler,
		watcher:    watcher,
		bus:        bus,
		log:        log,
		reader:     bufio.NewReader(os.Stdin),
		out:        os.Stdout,
	}, nil
}

// Run drives the interactive loop until the user exits or ctx is done.
func (a *App) Run(ctx context.Context) error {
	defer a.store.Close()

	token, err := GetToken(a.out)
	if err != nil {
		return err
	}
	a.token = token

	go a.watcher.Run(ctx)
	go a.printNotifications(ctx)

	fmt.Fprintln(a.out, "commands: list [query] | add <photo-path> <description> | sync | exit")
	for {
		line, err := GetSimpleText(a.reader, "", a.out)
		if err != nil {
			return err
		}
		if done := a.dispatch(ctx, line); done {
			return nil
		}
	}
}

// printNotifications relays core events to the terminal.
func (a *App) printNotifications(ctx context.Context) {
	ch, cancel := a.bus.Subscribe()
	defer cancel()

	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return
			}
			switch e := ev.(type) {
			case events.QueueDrained:
				fmt.Fprintf(a.out, "\nsync: %d sent, %d pending, %d dropped\n> ", e.Synced, e.Failed, e.Dropped)
			case events.DataRefreshed:
				fmt.Fprintf(a.out, "\nstory list refreshed (%d stories)\n> ", e.Count)
			}
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) dispatch(ctx context.Context, line string) bool {
	cmd, rest, _ := strings.Cut(line, " ")
	switch cmd {
	case "exit", "quit":
		return true
	case "list":
		a.list(ctx, strings.TrimSpace(rest))
	case "add":
		a.add(ctx, rest)
	case "sync":
		if _, err := a.reconciler.Sweep(ctx); err != nil {
			fmt.Fprintf(a.out, "sync failed: %v\n", err)
		}
	case "":
	default:
		fmt.Fprintf(a.out, "unknown command: %s\n", cmd)
	}
	return false
}

func (a *App) list(ctx context.Context, query string) {
	visible, err := a.feed.VisibleStories(ctx)
	if err != nil {
		fmt.Fprintf(a.out, "cannot list stories: %v\n", err)
		return
	}
	for _, s := range services.FilterStories(visible, query) {
		marker := ""
		if models.IsOfflineID(s.ID) {
			marker = " (pending sync)"
		}
		fmt.Fprintf(a.out, "%s  %s — %s%s\n", s.CreatedAt, s.Name, s.Description, marker)
	}
}

func (a *App) add(ctx context.Context, rest string) {
	path, desc, ok := strings.Cut(strings.TrimSpace(rest), " ")
	if !ok || desc == "" {
		fmt.Fprintln(a.out, "usage: add <photo-path> <description>")
		return
	}

	photo, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(a.out, "cannot read photo: %v\n", err)
		return
	}

	out, err := a.submitter.Submit(ctx, models.StoryDraft{
		Description: desc,
		Photo:       photo,
		PhotoMime:   http.DetectContentType(photo),
	}, a.token)
	if err != nil {
		fmt.Fprintf(a.out, "add failed: %v\n", err)
		return
	}
	if out.Queued != nil {
		fmt.Fprintf(a.out, "you are offline; story %s will sync when the server is reachable\n", out.Queued.ID)
		return
	}
	fmt.Fprintln(a.out, "story added")
}
