package notion

import (
	"fmt"
	"strings"
	"unicode/utf16"
)

// MaxRichTextLength is the remote limit on the content of one rich-text
// object, counted in UTF-16 code units.
const MaxRichTextLength = 2000

// Page is a row of a data source.
type Page struct {
	Object     string              `json:"object,omitempty"`
	ID         string              `json:"id"`
	URL        string              `json:"url,omitempty"`
	Archived   bool                `json:"archived,omitempty"`
	Properties map[string]Property `json:"properties"`
}

// Property is a page property value. Only the fields for its Type are set.
type Property struct {
	ID       string        `json:"id,omitempty"`
	Type     string        `json:"type,omitempty"`
	Title    []RichText    `json:"title,omitempty"`
	RichText []RichText    `json:"rich_text,omitempty"`
	Select   *SelectOption `json:"select,omitempty"`
	Number   *float64      `json:"number,omitempty"`
	Relation []Relation    `json:"relation,omitempty"`
	Date     *Date         `json:"date,omitempty"`
}

type RichText struct {
	Type      string `json:"type,omitempty"`
	Text      *Text  `json:"text,omitempty"`
	PlainText string `json:"plain_text,omitempty"`
}

type Text struct {
	Content string `json:"content"`
}

type SelectOption struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

type Relation struct {
	ID string `json:"id"`
}

type Date struct {
	Start string  `json:"start"`
	End   *string `json:"end,omitempty"`
}

// Icon is a page or data source icon; only emoji icons are read.
type Icon struct {
	Type  string `json:"type"`
	Emoji string `json:"emoji,omitempty"`
}

// DataSource is a queryable collection and its schema.
type DataSource struct {
	Object     string                    `json:"object,omitempty"`
	ID         string                    `json:"id"`
	Name       string                    `json:"name,omitempty"`
	Title      []RichText                `json:"title,omitempty"`
	Icon       *Icon                     `json:"icon,omitempty"`
	URL        string                    `json:"url,omitempty"`
	Properties map[string]SchemaProperty `json:"properties,omitempty"`
}

// SchemaProperty is a column definition of a data source.
type SchemaProperty struct {
	ID     string        `json:"id,omitempty"`
	Name   string        `json:"name,omitempty"`
	Type   string        `json:"type"`
	Select *SelectSchema `json:"select,omitempty"`
}

type SelectSchema struct {
	Options []SelectOption `json:"options"`
}

// Database is a container of one or more data sources.
type Database struct {
	ID          string          `json:"id"`
	DataSources []DataSourceRef `json:"data_sources"`
}

type DataSourceRef struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

type User struct {
	Object    string  `json:"object,omitempty"`
	ID        string  `json:"id"`
	Type      string  `json:"type"`
	Name      string  `json:"name"`
	AvatarURL *string `json:"avatar_url"`
}

type Sort struct {
	Property  string `json:"property,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Direction string `json:"direction"`
}

// QueryRequest is the body of a data source query. Cursors are managed by
// QueryDataSource.
type QueryRequest struct {
	Filter      any    `json:"filter,omitempty"`
	Sorts       []Sort `json:"sorts,omitempty"`
	StartCursor string `json:"start_cursor,omitempty"`
	PageSize    int    `json:"page_size,omitempty"`
}

type SearchFilter struct {
	Value    string `json:"value"`
	Property string `json:"property"`
}

type SearchRequest struct {
	Query       string        `json:"query,omitempty"`
	Filter      *SearchFilter `json:"filter,omitempty"`
	Sort        *Sort         `json:"sort,omitempty"`
	StartCursor string        `json:"start_cursor,omitempty"`
	PageSize    int           `json:"page_size,omitempty"`
}

type Parent struct {
	DataSourceID string `json:"data_source_id,omitempty"`
	DatabaseID   string `json:"database_id,omitempty"`
}

type CreatePageRequest struct {
	Parent     Parent              `json:"parent"`
	Properties map[string]Property `json:"properties"`
}

type UpdatePageRequest struct {
	Properties map[string]Property `json:"properties,omitempty"`
	Archived   *bool               `json:"archived,omitempty"`
}

type listResponse[T any] struct {
	Results    []T     `json:"results"`
	NextCursor *string `json:"next_cursor"`
	HasMore    bool    `json:"has_more"`
}

// APIError is an error response from the remote API.
type APIError struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("notion: status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("notion: %s (%d): %s", e.Code, e.Status, e.Message)
}

// PlainText concatenates the plain text of rich-text fragments.
func PlainText(rt []RichText) string {
	var b strings.Builder
	for _, r := range rt {
		if r.PlainText != "" {
			b.WriteString(r.PlainText)
		} else if r.Text != nil {
			b.WriteString(r.Text.Content)
		}
	}
	return b.String()
}

// TitleProperty builds a title property value.
func TitleProperty(s string) Property {
	return Property{Title: []RichText{{Text: &Text{Content: s}}}}
}

// RichTextProperty builds a rich-text property value, splitting s into
// fragments that fit MaxRichTextLength.
func RichTextProperty(s string) Property {
	return Property{RichText: splitRichText(s)}
}

func NumberProperty(f float64) Property {
	return Property{Number: &f}
}

func SelectProperty(name string) Property {
	return Property{Select: &SelectOption{Name: name}}
}

func DateProperty(start string) Property {
	return Property{Date: &Date{Start: start}}
}

func RelationProperty(ids ...string) Property {
	rel := make([]Relation, 0, len(ids))
	for _, id := range ids {
		rel = append(rel, Relation{ID: id})
	}
	return Property{Relation: rel}
}

func splitRichText(s string) []RichText {
	if s == "" {
		return []RichText{{Text: &Text{}}}
	}
	var out []RichText
	start, count := 0, 0
	for i, r := range s {
		n := utf16.RuneLen(r)
		if n < 0 {
			n = 1
		}
		if count+n > MaxRichTextLength {
			out = append(out, RichText{Text: &Text{Content: s[start:i]}})
			start, count = i, 0
		}
		count += n
	}
	return append(out, RichText{Text: &Text{Content: s[start:]}})
}
