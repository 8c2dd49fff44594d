package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/jnv-alumni-api/pkg/config"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "jnv:directory:records", Key("directory", "records"))
	assert.Equal(t, "jnv:directory", Key(":directory:", "", " "))
	assert.Equal(t, "jnv", Key())
}

func TestNewRedisDisabled(t *testing.T) {
	client, err := NewRedis(context.Background(), config.RedisConfig{Enabled: false})
	require.NoError(t, err)
	assert.Nil(t, client)
}
