package workout

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/claude/wlog/internal/models"
	"github.com/claude/wlog/internal/notion"
	"golang.org/x/sync/errgroup"
)

// logRow is one set of one logged exercise.
type logRow struct {
	entry  models.LogEntry
	set    models.WorkoutSet
	number int
}

// SubmitLog writes one log page per set and returns the number written.
// Pages are created concurrently; the first failure cancels the rest.
func (s *Service) SubmitLog(ctx context.Context, creds models.Credentials, entries []models.LogEntry) (int, error) {
	api := s.remote(creds.AccessToken)
	ds, err := s.dataSource(ctx, api, creds.Databases.LogDBID, "log")
	if err != nil {
		return 0, err
	}

	var rows []logRow
	for _, e := range entries {
		if e.ExerciseID == "" {
			return 0, fmt.Errorf("%w: log entry without exercise id", ErrInvalid)
		}
		for i, set := range e.Sets {
			rows = append(rows, logRow{entry: e, set: set, number: i + 1})
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.logConcurrency)
	for _, row := range rows {
		g.Go(func() error {
			_, err := api.CreatePage(gctx, notion.CreatePageRequest{
				Parent:     notion.Parent{DataSourceID: ds},
				Properties: logProperties(row),
			})
			if err != nil {
				return fmt.Errorf("creating log for %s set %d: %w", row.entry.ExerciseName, row.number, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	s.log.Info("workout logged", "exercises", len(entries), "sets", len(rows))
	return len(rows), nil
}

func logProperties(row logRow) map[string]notion.Property {
	title := fmt.Sprintf("%s - Set %d - %s", row.entry.ExerciseName, row.number, displayDate(row.entry.Date))
	props := map[string]notion.Property{
		"Title":     notion.TitleProperty(title),
		"Date":      notion.DateProperty(row.entry.Date),
		"Exercises": notion.RelationProperty(row.entry.ExerciseID),
		"Set":       notion.NumberProperty(float64(row.number)),
		"Weight":    notion.NumberProperty(row.set.Weight.Float()),
		"Reps":      notion.NumberProperty(row.set.Reps.Float()),
	}

	positive := map[string]models.Amount{
		"Distance":   row.set.Distance,
		"Min":        row.set.Time,
		"Sec":        row.set.Sec,
		"Heart Rate": row.set.HeartRate,
		"Cadence":    row.set.Cadence,
	}
	for name, v := range positive {
		if v > 0 {
			props[name] = notion.NumberProperty(v.Float())
		}
	}
	return props
}

// displayDate renders an ISO date the way log titles show it (M/D/YYYY).
// Unparseable input is used as-is.
func displayDate(date string) string {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04", "2006-01-02"} {
		if t, err := time.Parse(layout, strings.TrimSpace(date)); err == nil {
			return t.Format("1/2/2006")
		}
	}
	return date
}
