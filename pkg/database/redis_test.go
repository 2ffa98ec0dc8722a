package database

import (
	"context"
	"strconv"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/ekaya-ask/pkg/config"
)

func TestNewRedisClient_NotConfigured(t *testing.T) {
	client, err := NewRedisClient(context.Background(), &config.RedisConfig{})
	require.NoError(t, err)
	assert.Nil(t, client)
}

func TestNewRedisClient_Connects(t *testing.T) {
	mr := miniredis.RunT(t)
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)

	client, err := NewRedisClient(context.Background(), &config.RedisConfig{Host: mr.Host(), Port: port})
	require.NoError(t, err)
	require.NotNil(t, client)
	defer client.Close()

	require.NoError(t, client.Set(context.Background(), "k", "v", 0).Err())
	got, err := mr.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)
}
