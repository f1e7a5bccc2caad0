package workout

import (
	"context"
	"fmt"
	"strings"

	"github.com/claude/wlog/internal/models"
	"github.com/claude/wlog/internal/notion"
)

const (
	defaultExerciseName = "Untitled"
	defaultType         = "Strength"
	defaultTarget       = "Body"
)

var (
	defaultTypes    = []string{"Strength", "Cardio"}
	defaultTargets  = []string{"Body"}
	fallbackTargets = []string{"Body", "Chest", "Back", "Legs", "Shoulders", "Arms", "Core", "Full Body", "Cardio"}
	byNameAscending = []notion.Sort{{Property: "Name", Direction: "ascending"}}
)

// ListExercises returns the exercise table sorted by name. An unconfigured
// table yields an empty list.
func (s *Service) ListExercises(ctx context.Context, creds models.Credentials) ([]models.Exercise, error) {
	if creds.Databases.WorkoutDBID == "" {
		return []models.Exercise{}, nil
	}
	api := s.remote(creds.AccessToken)
	ds, err := s.dataSource(ctx, api, creds.Databases.WorkoutDBID, "exercises")
	if err != nil {
		return nil, err
	}

	pages, err := api.QueryDataSource(ctx, ds, notion.QueryRequest{Sorts: byNameAscending})
	if err != nil {
		return nil, fmt.Errorf("querying exercises: %w", err)
	}

	exercises := make([]models.Exercise, 0, len(pages))
	for _, p := range pages {
		exercises = append(exercises, models.Exercise{
			ID:     p.ID,
			Name:   orDefault(titleOf(p, "Name"), defaultExerciseName),
			Type:   orDefault(selectOf(p, "Type"), defaultType),
			Target: orDefault(selectOf(p, "Target"), defaultTarget),
		})
	}
	return exercises, nil
}

// ExerciseOptions reads the Type and Target choices from the exercise table
// schema. Remote failures fall back to built-in lists.
func (s *Service) ExerciseOptions(ctx context.Context, creds models.Credentials) models.PropertyOptions {
	if creds.Databases.WorkoutDBID == "" {
		return models.PropertyOptions{Types: []string{}, Targets: []string{}}
	}
	api := s.remote(creds.AccessToken)
	ds := s.cache.Resolve(ctx, api, creds.Databases.WorkoutDBID)

	schema, err := api.RetrieveDataSource(ctx, ds)
	if err != nil {
		s.log.Warn("failed to fetch property options", "data_source", ds, "error", err)
		return models.PropertyOptions{
			Types:   append([]string(nil), defaultTypes...),
			Targets: append([]string(nil), fallbackTargets...),
		}
	}
	return models.PropertyOptions{
		Types:   selectOptions(schema, "Type", defaultTypes),
		Targets: selectOptions(schema, "Target", defaultTargets),
	}
}

func selectOptions(ds *notion.DataSource, prop string, def []string) []string {
	p, ok := ds.Properties[prop]
	if !ok || p.Select == nil {
		return append([]string(nil), def...)
	}
	names := make([]string, 0, len(p.Select.Options))
	for _, o := range p.Select.Options {
		names = append(names, o.Name)
	}
	return names
}

// CreateExercise adds an exercise. An empty target defaults to Body.
func (s *Service) CreateExercise(ctx context.Context, creds models.Credentials, ex models.Exercise) (models.Exercise, error) {
	ex.Name = strings.TrimSpace(ex.Name)
	if ex.Name == "" {
		return ex, fmt.Errorf("%w: exercise name is required", ErrInvalid)
	}
	ex.Type = orDefault(ex.Type, defaultType)
	ex.Target = orDefault(ex.Target, defaultTarget)

	api := s.remote(creds.AccessToken)
	ds, err := s.dataSource(ctx, api, creds.Databases.WorkoutDBID, "exercises")
	if err != nil {
		return ex, err
	}
	page, err := api.CreatePage(ctx, notion.CreatePageRequest{
		Parent:     notion.Parent{DataSourceID: ds},
		Properties: exerciseProperties(ex),
	})
	if err != nil {
		return ex, fmt.Errorf("creating exercise: %w", err)
	}
	ex.ID = page.ID
	return ex, nil
}

// UpdateExercise rewrites the name, type and target of an exercise.
func (s *Service) UpdateExercise(ctx context.Context, creds models.Credentials, ex models.Exercise) error {
	ex.Name = strings.TrimSpace(ex.Name)
	if ex.ID == "" || ex.Name == "" {
		return fmt.Errorf("%w: exercise id and name are required", ErrInvalid)
	}
	ex.Type = orDefault(ex.Type, defaultType)
	ex.Target = orDefault(ex.Target, defaultTarget)

	if _, err := s.remote(creds.AccessToken).UpdatePage(ctx, ex.ID, notion.UpdatePageRequest{
		Properties: exerciseProperties(ex),
	}); err != nil {
		return fmt.Errorf("updating exercise: %w", err)
	}
	return nil
}

// DeleteExercise archives an exercise page.
func (s *Service) DeleteExercise(ctx context.Context, creds models.Credentials, id string) error {
	if err := archive(ctx, s.remote(creds.AccessToken), id); err != nil {
		return fmt.Errorf("deleting exercise: %w", err)
	}
	return nil
}

func exerciseProperties(ex models.Exercise) map[string]notion.Property {
	return map[string]notion.Property{
		"Name":   notion.TitleProperty(ex.Name),
		"Type":   notion.SelectProperty(ex.Type),
		"Target": notion.SelectProperty(ex.Target),
	}
}
