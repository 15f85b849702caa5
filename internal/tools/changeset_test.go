package tools

import (
	"context"
	"testing"

	"github.com/agusespa/testscope/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticChangeSet(t *testing.T) {
	provider := NewStaticChangeSet([]string{"a.go", "", "b.go", "a.go"})

	cs, err := provider.ChangedFiles(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"a.go", "b.go"}, cs.Paths())
	for _, f := range cs.Files {
		assert.Equal(t, types.ChangeModified, f.Status)
		assert.Nil(t, f.Hunks)
	}
}

func TestStaticChangeSet_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewStaticChangeSet([]string{"a.go"}).ChangedFiles(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
