package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// Set WATER_SENSOR_TEST_POSTGRES_URL to run against a real server.
func testPostgresURL(t *testing.T) string {
	url := os.Getenv("WATER_SENSOR_TEST_POSTGRES_URL")
	if url == "" {
		t.Skip("WATER_SENSOR_TEST_POSTGRES_URL not set")
	}
	return url
}

func TestPostgresCreateOnly(t *testing.T) {
	url := testPostgresURL(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	p := NewPostgres(url, zap.NewNop())
	defer p.Close()
	require.NoError(t, p.Authenticate(ctx))
	assert.True(t, p.Ready())

	path := "alerts/test-" + time.Now().UTC().Format(time.RFC3339Nano)
	require.NoError(t, p.Create(ctx, path, testRecord))
	assert.ErrorIs(t, p.Create(ctx, path, testRecord), ErrExists)
}

func TestPostgresNotReady(t *testing.T) {
	p := NewPostgres("postgres://localhost/none", zap.NewNop())
	assert.False(t, p.Ready())
	assert.ErrorIs(t, p.Create(context.Background(), testPath, testRecord), ErrNotReady)
}
