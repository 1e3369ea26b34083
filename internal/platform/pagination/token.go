package pagination

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Cursor is the resume point of an order listing sorted by createdAt desc, id desc.
type Cursor struct {
	CreatedAt time.Time `json:"createdAt"`
	OrderID   string    `json:"orderId"`
}

// EncodeToken serialises the cursor into a base64 URL-safe page token.
func EncodeToken(cursor Cursor) string {
	if cursor.OrderID == "" {
		return ""
	}
	cursor.CreatedAt = cursor.CreatedAt.UTC()
	data, _ := json.Marshal(cursor)
	return base64.RawURLEncoding.EncodeToString(data)
}

// DecodeToken parses the page token produced by EncodeToken back into a cursor.
// An empty token yields a zero cursor.
func DecodeToken(token string) (Cursor, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Cursor{}, nil
	}
	decoded, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, fmt.Errorf("%w: %v", ErrInvalidPageToken, err)
	}
	var cursor Cursor
	if err := json.Unmarshal(decoded, &cursor); err != nil {
		return Cursor{}, fmt.Errorf("%w: %v", ErrInvalidPageToken, err)
	}
	if strings.TrimSpace(cursor.OrderID) == "" {
		return Cursor{}, fmt.Errorf("%w: missing order id", ErrInvalidPageToken)
	}
	return cursor, nil
}

// After reports whether an item with the given sort key sorts after the cursor
// in createdAt desc, id desc order.
func (c Cursor) After(createdAt time.Time, orderID string) bool {
	if c.OrderID == "" {
		return true
	}
	if !createdAt.Equal(c.CreatedAt) {
		return createdAt.Before(c.CreatedAt)
	}
	return orderID < c.OrderID
}
