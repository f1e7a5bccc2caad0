package mcp

import (
	"context"

	"github.com/claude/wlog/internal/models"
	"github.com/claude/wlog/internal/workout"
)

// DataSource abstracts where MCP tools read workout data from. Local talks
// to the remote workspace directly; HTTPClient goes through a running wlog
// server.
type DataSource interface {
	ListExercises(ctx context.Context) ([]models.Exercise, error)
	ExerciseOptions(ctx context.Context) (models.PropertyOptions, error)
	ListRoutines(ctx context.Context) ([]models.Routine, error)
	SearchDatabases(ctx context.Context) ([]models.DataSourceSummary, error)
}

// Local serves tools from a workout.Service using a fixed integration
// token and table ids.
type Local struct {
	svc   *workout.Service
	creds models.Credentials
}

var _ DataSource = (*Local)(nil)

// NewLocal returns a DataSource bound to creds.
func NewLocal(svc *workout.Service, creds models.Credentials) *Local {
	return &Local{svc: svc, creds: creds}
}

func (l *Local) ListExercises(ctx context.Context) ([]models.Exercise, error) {
	return l.svc.ListExercises(ctx, l.creds)
}

func (l *Local) ExerciseOptions(ctx context.Context) (models.PropertyOptions, error) {
	return l.svc.ExerciseOptions(ctx, l.creds), nil
}

func (l *Local) ListRoutines(ctx context.Context) ([]models.Routine, error) {
	return l.svc.ListRoutines(ctx, l.creds)
}

func (l *Local) SearchDatabases(ctx context.Context) ([]models.DataSourceSummary, error) {
	return l.svc.SearchDatabases(ctx, l.creds)
}
