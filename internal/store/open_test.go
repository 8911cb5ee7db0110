package store

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrKriegler/insurance-lifecycle/internal/platform/config"
)

func TestOpenMemory(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	repos, err := Open(ctx, &config.Config{DBType: "memory", StoreOpTimeoutMs: 500}, log)
	require.NoError(t, err)
	defer repos.Close(ctx)

	assert.NoError(t, repos.Ping(ctx))
	pkgs, err := repos.Packages.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, pkgs)
}

func TestOpenUnknownBackend(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	_, err := Open(context.Background(), &config.Config{DBType: "sqlite"}, log)
	assert.ErrorContains(t, err, "sqlite")
}
