// Package routine reads and writes the JSON payload a routine keeps in its
// remote rich-text column.
//
// The payload format changed three times without a migration over stored
// data, so every read must accept every historical write:
//
//	[{"id": "ex1", "sets": [{"id": "s1", "weight": 50, "reps": 10}]}]   current
//	[{"id": "ex1", "data": {"sets": 3, "weight": 50, "reps": 10}}]      legacy data
//	{"ex1": {"sets": 3, "weight": 50, "reps": 10}}                      legacy object
//
// A legacy count of N sets expands to N identical set records, capped at
// MaxExpandedSets; larger counts are truncated to the cap. Counts are
// floored and non-positive counts yield no sets.
//
// Decoding migrates in memory only; stored data is rewritten in the current
// format the next time the routine is saved.
//
// Legacy objects are read in document order. Nothing guarantees the old
// writer emitted keys in exercise order, so such routines may come back
// reordered.
package routine

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/claude/wlog/internal/models"
	"github.com/google/uuid"
)

// Result is the outcome of decoding one payload.
type Result struct {
	Items  []models.RoutineItem
	Format Format
	// Migrated counts elements rewritten from a legacy shape.
	Migrated int
	// Opaque counts elements passed through unrecognised.
	Opaque int
}

// Decoder turns stored routine payloads into canonical items.
// It is safe for concurrent use.
type Decoder struct {
	log   *slog.Logger
	newID func() string
}

// NewDecoder returns a Decoder that assigns uuid identity tokens to sets
// created by migration.
func NewDecoder(log *slog.Logger) *Decoder {
	if log == nil {
		log = slog.Default()
	}
	return &Decoder{log: log, newID: uuid.NewString}
}

// Decode never fails: absent or malformed input yields an empty item list.
func (d *Decoder) Decode(raw string) Result {
	p, err := parsePayload([]byte(raw))
	if err != nil {
		d.log.Warn("failed to parse routine data", "error", err, "bytes", len(raw))
	}

	res := Result{Format: p.format(), Items: p.items(d.newID)}
	switch v := p.(type) {
	case itemsPayload:
		for _, e := range v.elements {
			switch e.shape() {
			case ElementLegacyData:
				res.Migrated++
			case ElementOpaque:
				res.Opaque++
			}
		}
	case legacyObjectPayload:
		res.Migrated = len(res.Items)
	}
	return res
}

// Items is Decode without the bookkeeping.
func (d *Decoder) Items(raw string) []models.RoutineItem {
	return d.Decode(raw).Items
}

// Encode returns the current on-disk encoding of items.
func Encode(items []models.RoutineItem) (string, error) {
	if items == nil {
		items = []models.RoutineItem{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("encoding routine items: %w", err)
	}
	return string(b), nil
}

// Shapes classifies the elements of an items payload without migrating
// them. It returns nil for any other payload.
func Shapes(raw string) []ElementShape {
	p, err := parsePayload([]byte(raw))
	if err != nil {
		return nil
	}
	ip, ok := p.(itemsPayload)
	if !ok {
		return nil
	}
	out := make([]ElementShape, len(ip.elements))
	for i, e := range ip.elements {
		out[i] = e.shape()
	}
	return out
}
