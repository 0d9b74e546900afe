package cache

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/PaddleBilling/internal/pkg/config"
)

func TestStoreReportsUnreachableServer(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client := NewClient(ctx, config.Cache{Host: "127.0.0.1", Port: "1"}, zerolog.Nop())
	require.NotNil(t, client)
	defer client.Close()

	store := NewStore(client)
	_, ok, err := store.Get(ctx, "paddle:customer:cus_1")
	assert.Error(t, err)
	assert.False(t, ok)
	assert.Error(t, store.Set(ctx, "paddle:customer:cus_1", "{}", time.Minute))
}
