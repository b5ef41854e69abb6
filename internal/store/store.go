// Package store persists level records with create-only semantics.
//
// Every backend addresses documents by a slash-separated path such as
// "water_sensor/AA:BB:CC:DD:EE:FF/readings/2026-01-01T12:00:00Z" and refuses
// to overwrite an existing document.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/sweeney/water-sensor/internal/logic"
)

var (
	// ErrExists is returned when a document already exists at the path.
	ErrExists = errors.New("store: document already exists")
	// ErrNotReady is returned when Create is called before Authenticate succeeded.
	ErrNotReady = errors.New("store: not ready")
	// ErrInvalidPath is returned for paths without a collection and document id.
	ErrInvalidPath = errors.New("store: invalid document path")
)

// DefaultTimeout bounds a single write.
const DefaultTimeout = 10 * time.Second

// Store is a create-only document store.
type Store interface {
	// Authenticate establishes the session (sign-in, connection, migration).
	Authenticate(ctx context.Context) error
	// Ready reports whether Authenticate has succeeded.
	Ready() bool
	// Create writes rec at path. It returns ErrExists if path is taken.
	Create(ctx context.Context, path string, rec logic.Record) error
	Close() error
}

// jsonRecord is the document body for backends without a native document model.
type jsonRecord struct {
	DeviceID   string `json:"device_id"`
	WaterLevel int    `json:"water_level"`
	State      string `json:"state"`
	Time       string `json:"time"`
}

// EncodeJSON returns the JSON document body for rec.
func EncodeJSON(rec logic.Record) ([]byte, error) {
	return json.Marshal(jsonRecord{
		DeviceID:   rec.DeviceID,
		WaterLevel: rec.Raw,
		State:      rec.State,
		Time:       rec.Timestamp,
	})
}

// DecodeJSON parses a document body written by EncodeJSON.
func DecodeJSON(data []byte) (logic.Record, error) {
	var jr jsonRecord
	if err := json.Unmarshal(data, &jr); err != nil {
		return logic.Record{}, err
	}
	return logic.Record{
		DeviceID:  jr.DeviceID,
		Raw:       jr.WaterLevel,
		State:     jr.State,
		Timestamp: jr.Time,
	}, nil
}

// SplitPath splits a document path into its parent collection and document id.
func SplitPath(path string) (collection, id string, err error) {
	i := strings.LastIndex(path, "/")
	if i <= 0 || i == len(path)-1 {
		return "", "", ErrInvalidPath
	}
	collection, id = path[:i], path[i+1:]
	for _, seg := range strings.Split(collection, "/") {
		if seg == "" {
			return "", "", ErrInvalidPath
		}
	}
	return collection, id, nil
}

// WithTimeout wraps s so that every Create runs under timeout d.
func WithTimeout(s Store, d time.Duration) Store {
	if d <= 0 {
		return s
	}
	return &timeoutStore{Store: s, timeout: d}
}

type timeoutStore struct {
	Store
	timeout time.Duration
}

func (t *timeoutStore) Create(ctx context.Context, path string, rec logic.Record) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.Store.Create(ctx, path, rec)
}
