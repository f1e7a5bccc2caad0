package models

// DatabaseConfig holds the three remote tables a user picked during setup.
type DatabaseConfig struct {
	WorkoutDBID string `json:"workoutDbId,omitempty"`
	LogDBID     string `json:"logDbId,omitempty"`
	RoutineDBID string `json:"routineDbId,omitempty"`
}

// IsConfigured reports whether all three tables are set.
func (c DatabaseConfig) IsConfigured() bool {
	return c.WorkoutDBID != "" && c.LogDBID != "" && c.RoutineDBID != ""
}

// Credentials is what a remote call needs on behalf of one user.
type Credentials struct {
	AccessToken string
	Databases   DatabaseConfig
}
