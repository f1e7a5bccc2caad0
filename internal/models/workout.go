package models

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Amount is a numeric set field. Payloads written by older clients carry
// numbers, numeric strings or empty strings; all of them decode, anything
// unparsable or non-finite ("NaN", "Inf") decodes to zero.
type Amount float64

func (a *Amount) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "" || s == "null" {
		*a = 0
		return nil
	}
	if s[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			*a = 0
			return nil
		}
		s = strings.TrimSpace(str)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		*a = 0
		return nil
	}
	*a = Amount(f)
	return nil
}

// Float returns the amount as a float64.
func (a Amount) Float() float64 { return float64(a) }

// WorkoutSet is one recorded or planned unit of exercise performance.
// Time is in minutes, Sec in seconds.
type WorkoutSet struct {
	ID        string `json:"id,omitempty"`
	Weight    Amount `json:"weight,omitempty"`
	Reps      Amount `json:"reps,omitempty"`
	Time      Amount `json:"time,omitempty"`
	Sec       Amount `json:"sec,omitempty"`
	Distance  Amount `json:"distance,omitempty"`
	HeartRate Amount `json:"heartRate,omitempty"`
	Cadence   Amount `json:"cadence,omitempty"`
	Completed bool   `json:"completed,omitempty"`
}

// UnmarshalJSON never fails: a numeric id is kept as its text, completed
// accepts booleans, "true"/"false" strings and numbers, and anything that
// is not an object decodes to an empty set.
func (s *WorkoutSet) UnmarshalJSON(data []byte) error {
	type plain WorkoutSet
	var aux struct {
		plain
		ID        json.RawMessage `json:"id"`
		Completed json.RawMessage `json:"completed"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		*s = WorkoutSet{}
		return nil
	}
	*s = WorkoutSet(aux.plain)
	s.ID = looseString(aux.ID)
	s.Completed = looseBool(aux.Completed)
	return nil
}

func looseString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}
	switch raw[0] {
	case '"':
		var str string
		if err := json.Unmarshal(raw, &str); err == nil {
			return str
		}
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		return string(raw)
	}
	return ""
}

func looseBool(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return false
	}
	switch raw[0] {
	case 't':
		return string(raw) == "true"
	case '"':
		var str string
		if err := json.Unmarshal(raw, &str); err != nil {
			return false
		}
		b, err := strconv.ParseBool(strings.TrimSpace(str))
		return err == nil && b
	}
	f, err := strconv.ParseFloat(string(raw), 64)
	return err == nil && f != 0
}

// RoutineItem pairs an exercise (owned by the exercises table) with its
// ordered planned sets.
//
// Raw holds the original JSON of an element the decoder could not classify.
// Such items are re-encoded verbatim, and decoding keeps Raw for any element
// whose "sets" is not an array, so a listed routine posted back unchanged
// saves the same payload.
type RoutineItem struct {
	ID   string          `json:"id"`
	Sets []WorkoutSet    `json:"sets"`
	Raw  json.RawMessage `json:"-"`
}

// MarshalJSON emits Raw unchanged for opaque items.
func (it RoutineItem) MarshalJSON() ([]byte, error) {
	if it.Sets == nil && len(it.Raw) > 0 {
		return it.Raw, nil
	}
	sets := it.Sets
	if sets == nil {
		sets = []WorkoutSet{}
	}
	return json.Marshal(struct {
		ID   string       `json:"id"`
		Sets []WorkoutSet `json:"sets"`
	}{it.ID, sets})
}

// UnmarshalJSON reads {id, sets} when "sets" is an array and keeps every
// other element verbatim in Raw. It never fails.
func (it *RoutineItem) UnmarshalJSON(data []byte) error {
	var aux struct {
		ID   json.RawMessage `json:"id"`
		Sets json.RawMessage `json:"sets"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		*it = RoutineItem{Raw: append(json.RawMessage(nil), data...)}
		return nil
	}
	*it = RoutineItem{ID: looseString(aux.ID)}
	sets := bytes.TrimSpace(aux.Sets)
	if len(sets) == 0 || sets[0] != '[' {
		it.Raw = append(json.RawMessage(nil), data...)
		return nil
	}
	// WorkoutSet decoding is tolerant, so only a malformed array fails here.
	if err := json.Unmarshal(sets, &it.Sets); err != nil || it.Sets == nil {
		it.Sets = []WorkoutSet{}
	}
	return nil
}

// Opaque reports whether the item is a pass-through of an unrecognised element.
func (it RoutineItem) Opaque() bool {
	return it.Sets == nil && len(it.Raw) > 0
}

// Routine is a named, reusable template of exercises and their planned sets.
// Items is authoritative; Exercises mirrors the remote relation column and
// is kept only for display in the remote store.
type Routine struct {
	ID        string        `json:"id"`
	Label     string        `json:"label"`
	Exercises []string      `json:"exercises"`
	Items     []RoutineItem `json:"items"`
}

// Exercise is a row of the exercises table.
type Exercise struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Type   string `json:"type"`
	Target string `json:"target"`
}

// LogEntry is one exercise's sets submitted at the end of a session.
type LogEntry struct {
	ExerciseID   string       `json:"exerciseId"`
	ExerciseName string       `json:"exerciseName"`
	Date         string       `json:"date"`
	Sets         []WorkoutSet `json:"sets"`
}

// PropertyOptions lists the select options of the exercises table.
type PropertyOptions struct {
	Types   []string `json:"types"`
	Targets []string `json:"targets"`
}

// DataSourceSummary is a remote table the user may pick during setup.
type DataSourceSummary struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Icon  string `json:"icon"`
	URL   string `json:"url"`
}

// UserInfo describes the signed-in remote user.
type UserInfo struct {
	Name      string  `json:"name"`
	AvatarURL *string `json:"avatarUrl"`
}
