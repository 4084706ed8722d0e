package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPingsServer(t *testing.T) {
	srv := miniredis.RunT(t)

	client, err := New(context.Background(), srv.Addr(), "", 0)
	require.NoError(t, err)
	defer client.Close()

	assert.NoError(t, Ping(context.Background(), client))

	srv.Close()
	assert.Error(t, Ping(context.Background(), client))
}

func TestNewFailsOnUnreachableServer(t *testing.T) {
	srv := miniredis.RunT(t)
	addr := srv.Addr()
	srv.Close()

	_, err := New(context.Background(), addr, "", 0)
	assert.ErrorContains(t, err, "ping redis failed")
}
