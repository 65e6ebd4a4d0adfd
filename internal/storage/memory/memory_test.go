package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/docindex/pkg/types"
)

func TestDedupStore(t *testing.T) {
	ctx := context.Background()
	s := NewDedupStore("aaa")

	h, err := s.Acquire(ctx)
	require.NoError(t, err)

	ok, err := h.Exists(ctx, "aaa")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, s.RegisterBatch(ctx, []string{"bbb"}))
	assert.True(t, s.Has("bbb"))
	assert.Equal(t, [][]string{{"bbb"}}, s.Batches())

	h.Release()
	h.Release()
	acquired, released := s.Handles()
	assert.Equal(t, 1, acquired)
	assert.Equal(t, 1, released)
}

func TestPageIndex_PingFailures(t *testing.T) {
	ctx := context.Background()
	p := NewPageIndex()
	p.PingErr = errors.New("connection refused")
	p.PingFailures = 2

	assert.Error(t, p.Ping(ctx))
	assert.Error(t, p.Ping(ctx))
	assert.NoError(t, p.Ping(ctx))
	assert.Equal(t, 3, p.Pings())

	p.PingFailures = -1
	assert.Error(t, p.Ping(ctx))
	assert.Error(t, p.Ping(ctx))
}

func TestPageIndex_UpsertAndSearch(t *testing.T) {
	ctx := context.Background()
	p := NewPageIndex()

	require.NoError(t, p.BulkUpsert(ctx, []types.IndexEntry{
		{ID: "h_1", Content: "Contrato de Locação", PageNumber: 1},
		{ID: "h_2", Content: "Anexo", PageNumber: 2},
	}))
	require.NoError(t, p.BulkUpsert(ctx, []types.IndexEntry{
		{ID: "h_2", Content: "Anexo contrato", PageNumber: 2},
	}))

	assert.Len(t, p.Entries(), 2)
	assert.Len(t, p.Calls(), 2)

	results, err := p.Search(ctx, "contrato", 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "h_1", results[0].EntryID)
	assert.Equal(t, 2, results[1].Rank)

	p.BulkErr = errors.New("index read-only")
	assert.Error(t, p.BulkUpsert(ctx, []types.IndexEntry{{ID: "x_1"}}))
	assert.Len(t, p.Calls(), 2)
}
