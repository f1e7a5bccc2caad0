package workout

import (
	"context"
	"fmt"
	"strings"

	"github.com/claude/wlog/internal/models"
	"github.com/claude/wlog/internal/notion"
	"github.com/claude/wlog/internal/routine"
)

const defaultRoutineLabel = "Untitled"

// SaveRoutine stores a routine as a new page and returns it with its id.
// The Exercises relation lists each exercise once; the Data column holds the
// ordered items in the current payload format.
func (s *Service) SaveRoutine(ctx context.Context, creds models.Credentials, name string, items []models.RoutineItem) (models.Routine, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Routine{}, fmt.Errorf("%w: routine name is required", ErrInvalid)
	}
	api := s.remote(creds.AccessToken)
	ds, err := s.dataSource(ctx, api, creds.Databases.RoutineDBID, "routine")
	if err != nil {
		return models.Routine{}, err
	}

	data, err := routine.Encode(items)
	if err != nil {
		return models.Routine{}, fmt.Errorf("encoding routine: %w", err)
	}
	ids := uniqueIDs(items)

	page, err := api.CreatePage(ctx, notion.CreatePageRequest{
		Parent: notion.Parent{DataSourceID: ds},
		Properties: map[string]notion.Property{
			"Name":      notion.TitleProperty(name),
			"Exercises": notion.RelationProperty(ids...),
			"Data":      notion.RichTextProperty(data),
		},
	})
	if err != nil {
		return models.Routine{}, fmt.Errorf("saving routine: %w", err)
	}
	return models.Routine{ID: page.ID, Label: name, Exercises: ids, Items: items}, nil
}

// ListRoutines returns every saved routine sorted by name, with its payload
// decoded into the current format. An unconfigured table yields an empty list.
func (s *Service) ListRoutines(ctx context.Context, creds models.Credentials) ([]models.Routine, error) {
	if creds.Databases.RoutineDBID == "" {
		return []models.Routine{}, nil
	}
	api := s.remote(creds.AccessToken)
	ds, err := s.dataSource(ctx, api, creds.Databases.RoutineDBID, "routine")
	if err != nil {
		return nil, err
	}

	pages, err := api.QueryDataSource(ctx, ds, notion.QueryRequest{Sorts: byNameAscending})
	if err != nil {
		return nil, fmt.Errorf("querying routines: %w", err)
	}

	routines := make([]models.Routine, 0, len(pages))
	for _, p := range pages {
		res := s.decoder.Decode(notion.PlainText(p.Properties["Data"].RichText))
		s.recordDecode(res)

		rel := p.Properties["Exercises"].Relation
		ids := make([]string, 0, len(rel))
		for _, r := range rel {
			ids = append(ids, r.ID)
		}
		routines = append(routines, models.Routine{
			ID:        p.ID,
			Label:     orDefault(titleOf(p, "Name"), defaultRoutineLabel),
			Exercises: ids,
			Items:     res.Items,
		})
	}
	return routines, nil
}

// DeleteRoutine archives a routine page.
func (s *Service) DeleteRoutine(ctx context.Context, creds models.Credentials, id string) error {
	if err := archive(ctx, s.remote(creds.AccessToken), id); err != nil {
		return fmt.Errorf("deleting routine: %w", err)
	}
	return nil
}

func (s *Service) recordDecode(res routine.Result) {
	if s.metrics == nil {
		return
	}
	s.metrics.CounterRoutineFormats.WithLabelValues(res.Format.String()).Inc()
	s.metrics.CounterRoutineItems.WithLabelValues("migrated").Add(float64(res.Migrated))
	s.metrics.CounterRoutineItems.WithLabelValues("opaque").Add(float64(res.Opaque))
	s.metrics.CounterRoutineItems.WithLabelValues("current").Add(float64(len(res.Items) - res.Migrated - res.Opaque))
}

func uniqueIDs(items []models.RoutineItem) []string {
	seen := make(map[string]bool, len(items))
	ids := make([]string, 0, len(items))
	for _, it := range items {
		if it.ID == "" || seen[it.ID] {
			continue
		}
		seen[it.ID] = true
		ids = append(ids, it.ID)
	}
	return ids
}
