package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPoolConfig_Normalized(t *testing.T) {
	c := PoolConfig{MaxConns: 0, MinConns: 5}.normalized()
	assert.Equal(t, int32(1), c.MaxConns)
	assert.Equal(t, int32(1), c.MinConns)

	c = PoolConfig{MaxConns: 4, MinConns: -2}.normalized()
	assert.Equal(t, int32(0), c.MinConns)
}

func TestNewPool_BadURL(t *testing.T) {
	_, err := NewPool(context.Background(), "://not a url", DefaultPoolConfig())
	assert.Error(t, err)
}
