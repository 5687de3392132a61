package startup

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cararth/marigold/pkg/logging"
)

func recorder(order *[]string, name string) func(ctx context.Context) error {
	return func(context.Context) error {
		*order = append(*order, name)
		return nil
	}
}

func TestStopReversesStartOrder(t *testing.T) {
	var started, stopped []string

	s := NewStartup(logging.NewNop(), 1)
	s.AddDependency(Func("database", nil, recorder(&started, "database"), recorder(&stopped, "database")))
	s.AddDependency(Func("migrations", []string{"database"}, recorder(&started, "migrations"), recorder(&stopped, "migrations")))
	s.AddDependency(Func("server", []string{"database", "migrations"}, recorder(&started, "server"), recorder(&stopped, "server")))

	ctx := context.Background()
	require.NoError(t, s.Start(ctx))
	require.NoError(t, s.Stop(ctx))

	require.Len(t, started, 3)
	assert.Equal(t, "server", started[2])

	reversed := make([]string, 0, len(started))
	for i := len(started) - 1; i >= 0; i-- {
		reversed = append(reversed, started[i])
	}
	assert.Equal(t, reversed, stopped)
	assert.Equal(t, "server", stopped[0])
	assert.Equal(t, "database", stopped[len(stopped)-1])
}

func TestStopSkipsNeverStartedDependencies(t *testing.T) {
	var stopped []string

	s := NewStartup(logging.NewNop(), 1)
	s.AddDependency(Func("database", nil, nil, recorder(&stopped, "database")))

	require.NoError(t, s.Stop(context.Background()))
	assert.Empty(t, stopped)
}
