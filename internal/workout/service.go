// Package workout implements the workout operations on top of the remote
// store: exercises, set logs, routines and workspace lookups.
package workout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/claude/wlog/internal/metrics"
	"github.com/claude/wlog/internal/models"
	"github.com/claude/wlog/internal/notion"
	"github.com/claude/wlog/internal/routine"
)

var (
	// ErrNotConfigured is returned by writes to a table the caller has not picked.
	ErrNotConfigured = errors.New("database not configured")
	// ErrInvalid is returned for requests missing required values.
	ErrInvalid = errors.New("invalid request")
)

// Remote is the part of the remote API the service uses.
// *notion.Client satisfies it.
type Remote interface {
	notion.DatabaseRetriever
	QueryDataSource(ctx context.Context, dataSourceID string, req notion.QueryRequest) ([]notion.Page, error)
	RetrieveDataSource(ctx context.Context, dataSourceID string) (*notion.DataSource, error)
	CreatePage(ctx context.Context, req notion.CreatePageRequest) (*notion.Page, error)
	UpdatePage(ctx context.Context, pageID string, req notion.UpdatePageRequest) (*notion.Page, error)
	Search(ctx context.Context, req notion.SearchRequest) ([]notion.DataSource, error)
	ListUsers(ctx context.Context) ([]notion.User, error)
}

// RemoteFactory returns a Remote authenticated with an access token.
type RemoteFactory func(token string) Remote

// ClientFactory binds tokens to copies of base.
func ClientFactory(base *notion.Client) RemoteFactory {
	return func(token string) Remote { return base.WithToken(token) }
}

const defaultLogConcurrency = 4

// Service holds dependencies for workout operations.
type Service struct {
	remote         RemoteFactory
	cache          *notion.DataSourceCache
	decoder        *routine.Decoder
	metrics        *metrics.Manager
	log            *slog.Logger
	logConcurrency int
}

// NewService creates a new Service. metrics may be nil.
func NewService(remote RemoteFactory, cache *notion.DataSourceCache, m *metrics.Manager, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	if cache == nil {
		cache = notion.NewDataSourceCache(0, log)
	}
	return &Service{
		remote:         remote,
		cache:          cache,
		decoder:        routine.NewDecoder(log),
		metrics:        m,
		log:            log,
		logConcurrency: defaultLogConcurrency,
	}
}

// SetLogConcurrency bounds the number of log pages created in parallel.
func (s *Service) SetLogConcurrency(n int) {
	if n > 0 {
		s.logConcurrency = n
	}
}

// Decoder returns the routine decoder used by ListRoutines.
func (s *Service) Decoder() *routine.Decoder {
	return s.decoder
}

// dataSource resolves a configured table id, failing with ErrNotConfigured
// when it is empty.
func (s *Service) dataSource(ctx context.Context, api Remote, id, table string) (string, error) {
	if id == "" {
		return "", fmt.Errorf("%w: %s", ErrNotConfigured, table)
	}
	return s.cache.Resolve(ctx, api, id), nil
}

// UserInfo returns the workspace member to greet. Remote failures fall back
// to a generic name.
func (s *Service) UserInfo(ctx context.Context, creds models.Credentials) models.UserInfo {
	info := models.UserInfo{Name: "User"}
	users, err := s.remote(creds.AccessToken).ListUsers(ctx)
	if err != nil {
		s.log.Warn("failed to fetch user info", "error", err)
		return info
	}
	if len(users) == 0 {
		return info
	}
	user := users[0]
	for _, u := range users {
		if u.Type == "person" {
			user = u
			break
		}
	}
	if user.Name != "" {
		info.Name = user.Name
	}
	info.AvatarURL = user.AvatarURL
	return info
}

// SearchDatabases lists the data sources the token can see, most recently
// edited first.
func (s *Service) SearchDatabases(ctx context.Context, creds models.Credentials) ([]models.DataSourceSummary, error) {
	results, err := s.remote(creds.AccessToken).Search(ctx, notion.SearchRequest{
		Filter: &notion.SearchFilter{Value: "data_source", Property: "object"},
		Sort:   &notion.Sort{Timestamp: "last_edited_time", Direction: "descending"},
	})
	if err != nil {
		return nil, fmt.Errorf("searching databases: %w", err)
	}

	out := make([]models.DataSourceSummary, 0, len(results))
	for _, ds := range results {
		sum := models.DataSourceSummary{ID: ds.ID, Title: ds.Name, Icon: "📄", URL: ds.URL}
		if sum.Title == "" && len(ds.Title) > 0 {
			sum.Title = notion.PlainText(ds.Title[:1])
		}
		if sum.Title == "" {
			sum.Title = "Untitled"
		}
		if ds.Icon != nil && ds.Icon.Emoji != "" {
			sum.Icon = ds.Icon.Emoji
		}
		out = append(out, sum)
	}
	return out, nil
}

// archive soft-deletes a page.
func archive(ctx context.Context, api Remote, id string) error {
	if id == "" {
		return fmt.Errorf("%w: missing page id", ErrInvalid)
	}
	archived := true
	_, err := api.UpdatePage(ctx, id, notion.UpdatePageRequest{Archived: &archived})
	return err
}

func titleOf(p notion.Page, prop string) string {
	return notion.PlainText(p.Properties[prop].Title)
}

func selectOf(p notion.Page, prop string) string {
	if sel := p.Properties[prop].Select; sel != nil {
		return sel.Name
	}
	return ""
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
