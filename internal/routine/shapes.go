package routine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/buger/jsonparser"
	"github.com/claude/wlog/internal/models"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// MaxExpandedSets caps how many sets a legacy "N sets" count expands to.
const MaxExpandedSets = 100

// Format identifies the top-level encoding of a stored routine payload.
type Format int

const (
	FormatEmpty        Format = iota // absent, unparsable or a scalar
	FormatItems                      // [{"id": ..., "sets": [...]}, ...], possibly mixed with legacy elements
	FormatLegacyObject               // {"<exerciseId>": {"sets": 3, "weight": 50}, ...}
)

func (f Format) String() string {
	switch f {
	case FormatItems:
		return "items"
	case FormatLegacyObject:
		return "legacy_object"
	default:
		return "empty"
	}
}

// ElementShape describes one element of an items payload.
type ElementShape int

const (
	ElementCanonical  ElementShape = iota // "sets" is an array
	ElementLegacyData                     // "data" is an object
	ElementOpaque                         // anything else, passed through
)

// payload is one of the known top-level encodings.
type payload interface {
	format() Format
	items(newID func() string) []models.RoutineItem
}

// element is one of the known shapes of an items-payload element.
type element interface {
	shape() ElementShape
	item(newID func() string) models.RoutineItem
}

type emptyPayload struct{}

func (emptyPayload) format() Format { return FormatEmpty }

func (emptyPayload) items(func() string) []models.RoutineItem { return []models.RoutineItem{} }

type itemsPayload struct {
	elements []element
}

func (itemsPayload) format() Format { return FormatItems }

func (p itemsPayload) items(newID func() string) []models.RoutineItem {
	out := make([]models.RoutineItem, 0, len(p.elements))
	for _, e := range p.elements {
		out = append(out, e.item(newID))
	}
	return out
}

type legacyObjectPayload struct {
	entries *orderedmap.OrderedMap[string, json.RawMessage]
}

func (legacyObjectPayload) format() Format { return FormatLegacyObject }

func (p legacyObjectPayload) items(newID func() string) []models.RoutineItem {
	out := make([]models.RoutineItem, 0, p.entries.Len())
	for pair := p.entries.Oldest(); pair != nil; pair = pair.Next() {
		item := models.RoutineItem{ID: pair.Key, Sets: []models.WorkoutSet{}}
		if isObject(pair.Value) {
			if sets, ok := canonicalSets(pair.Value); ok {
				item.Sets = sets
			} else {
				item.Sets = parseLegacyData(pair.Value).sets(newID)
			}
		}
		out = append(out, item)
	}
	return out
}

type canonicalElement struct {
	id   string
	sets []models.WorkoutSet
}

func (canonicalElement) shape() ElementShape { return ElementCanonical }

func (e canonicalElement) item(func() string) models.RoutineItem {
	return models.RoutineItem{ID: e.id, Sets: e.sets}
}

type legacyDataElement struct {
	id   string
	data legacyData
}

func (legacyDataElement) shape() ElementShape { return ElementLegacyData }

func (e legacyDataElement) item(newID func() string) models.RoutineItem {
	return models.RoutineItem{ID: e.id, Sets: e.data.sets(newID)}
}

type opaqueElement struct {
	id  string
	raw json.RawMessage
}

func (opaqueElement) shape() ElementShape { return ElementOpaque }

func (e opaqueElement) item(func() string) models.RoutineItem {
	return models.RoutineItem{ID: e.id, Raw: e.raw}
}

// legacyData is the pre-array description of an exercise's sets: either a
// count of identical sets, or a single set.
type legacyData struct {
	count *float64
	set   models.WorkoutSet
}

func parseLegacyData(raw json.RawMessage) legacyData {
	var d legacyData
	// Unknown or malformed fields leave the set at its zero value.
	_ = json.Unmarshal(raw, &d.set)
	if v, typ, _, err := jsonparser.Get(raw, "sets"); err == nil && typ == jsonparser.Number {
		if f, err := strconv.ParseFloat(string(v), 64); err == nil {
			d.count = &f
		}
	}
	return d
}

func (d legacyData) sets(newID func() string) []models.WorkoutSet {
	if d.count == nil {
		s := d.set
		if s.ID == "" {
			s.ID = newID()
		}
		return []models.WorkoutSet{s}
	}
	n := expandCount(*d.count)
	out := make([]models.WorkoutSet, n)
	for i := range out {
		out[i] = models.WorkoutSet{
			ID:       newID(),
			Weight:   d.set.Weight,
			Reps:     d.set.Reps,
			Time:     d.set.Time,
			Distance: d.set.Distance,
			Sec:      d.set.Sec,
		}
	}
	return out
}

func expandCount(f float64) int {
	if math.IsNaN(f) || f <= 0 {
		return 0
	}
	if f > MaxExpandedSets {
		return MaxExpandedSets
	}
	return int(math.Floor(f))
}

// parsePayload classifies raw into one of the known encodings, trying the
// variants in a fixed order. Only invalid JSON is an error.
func parsePayload(raw []byte) (payload, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return emptyPayload{}, nil
	}
	if !json.Valid(raw) {
		return emptyPayload{}, fmt.Errorf("routine payload is not valid JSON")
	}

	switch raw[0] {
	case '[':
		var elems []json.RawMessage
		if err := json.Unmarshal(raw, &elems); err != nil {
			return emptyPayload{}, fmt.Errorf("decoding items payload: %w", err)
		}
		p := itemsPayload{elements: make([]element, 0, len(elems))}
		for _, e := range elems {
			p.elements = append(p.elements, classifyElement(e))
		}
		return p, nil
	case '{':
		entries := orderedmap.New[string, json.RawMessage]()
		if err := json.Unmarshal(raw, entries); err != nil {
			return emptyPayload{}, fmt.Errorf("decoding legacy object payload: %w", err)
		}
		return legacyObjectPayload{entries: entries}, nil
	default:
		return emptyPayload{}, nil
	}
}

// classifyElement inspects one element of an items payload. Elements are
// classified independently since a single routine may mix formats.
func classifyElement(raw json.RawMessage) element {
	if !isObject(raw) {
		return opaqueElement{raw: raw}
	}
	id := stringField(raw, "id")
	if sets, ok := canonicalSets(raw); ok {
		return canonicalElement{id: id, sets: sets}
	}
	if v, typ, _, err := jsonparser.Get(raw, "data"); err == nil && typ == jsonparser.Object {
		return legacyDataElement{id: id, data: parseLegacyData(v)}
	}
	return opaqueElement{id: id, raw: raw}
}

// canonicalSets returns the "sets" array of an object. Any array makes the
// element canonical; set records decode tolerantly, so a malformed record
// becomes an empty set rather than demoting the element.
func canonicalSets(raw json.RawMessage) ([]models.WorkoutSet, bool) {
	v, typ, _, err := jsonparser.Get(raw, "sets")
	if err != nil || typ != jsonparser.Array {
		return nil, false
	}
	var sets []models.WorkoutSet
	if err := json.Unmarshal(v, &sets); err != nil || sets == nil {
		sets = []models.WorkoutSet{}
	}
	return sets, true
}

func stringField(raw json.RawMessage, key string) string {
	v, typ, _, err := jsonparser.Get(raw, key)
	if err != nil {
		return ""
	}
	switch typ {
	case jsonparser.String:
		s, err := jsonparser.ParseString(v)
		if err != nil {
			return string(v)
		}
		return s
	case jsonparser.Number:
		return string(v)
	default:
		return ""
	}
}

func isObject(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '{'
}
