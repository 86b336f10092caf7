// Package persistence holds what the memory and Postgres repositories share:
// the opaque list cursor and its calendar ordering.
package persistence

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/civil"

	"example.com/planner/internal/calendar"
	"example.com/planner/internal/domain"
)

// ErrInvalidCursor is returned for tokens EncodeCursor did not produce.
var ErrInvalidCursor = errors.New("invalid cursor")

// cursorToken is the JSON body of a cursor before base64 encoding.
type cursorToken struct {
	Date  civil.Date         `json:"d"`
	Start calendar.TimeOfDay `json:"s"`
	ID    string             `json:"id"`
}

// EncodeCursor returns an opaque URL-safe token for c, or "" for nil.
func EncodeCursor(c *domain.Cursor) string {
	if c == nil {
		return ""
	}
	raw, err := json.Marshal(cursorToken{Date: c.Date, Start: c.Start, ID: c.ID})
	if err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(raw)
}

// DecodeCursor parses a token from EncodeCursor. A blank token means
// "from the start" and yields nil.
func DecodeCursor(token string) (*domain.Cursor, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCursor, err)
	}
	var tok cursorToken
	if err := json.Unmarshal(raw, &tok); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCursor, err)
	}
	if tok.ID == "" || !tok.Date.IsValid() {
		return nil, ErrInvalidCursor
	}
	return &domain.Cursor{Date: tok.Date, Start: tok.Start, ID: tok.ID}, nil
}

// After reports whether a sorts strictly after c in the calendar's
// (date, start time, id) order. Everything is after a nil cursor.
func After(c *domain.Cursor, a domain.ActivityAggregate) bool {
	if c == nil {
		return true
	}
	if a.Date != c.Date {
		return a.Date.After(c.Date)
	}
	if cmp := a.StartTime.Compare(c.Start); cmp != 0 {
		return cmp > 0
	}
	return a.ID > c.ID
}
