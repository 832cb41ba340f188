package sink

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectoryWritesAppendOnlyByDayKindNode(t *testing.T) {
	root := t.TempDir()
	d, err := NewDirectory(root)
	require.NoError(t, err)
	defer d.Close()

	ts := time.Date(2026, 7, 31, 10, 0, 0, 0, time.UTC)
	ctx := context.Background()

	require.NoError(t, d.Write(ctx, Record{Kind: KindSample, Node: "node01", Time: ts, Ext: "json", Payload: []byte(`{"a":1}`)}))
	require.NoError(t, d.Write(ctx, Record{Kind: KindSample, Node: "node01", Time: ts, Ext: "json", Payload: []byte(`{"a":2}`)}))

	dir := filepath.Join(root, "2026", "07", "31")
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "0+sample-node01.json", entries[0].Name())

	content, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)
	assert.Equal(t, "{\"a\":1}\n{\"a\":2}\n", string(content))
}

func TestDirectoryOrdinalAvoidsRestartCollision(t *testing.T) {
	root := t.TempDir()
	ts := time.Date(2026, 7, 31, 10, 0, 0, 0, time.UTC)

	d1, err := NewDirectory(root)
	require.NoError(t, err)
	require.NoError(t, d1.Write(context.Background(), Record{Kind: KindSysinfo, Node: "n1", Time: ts, Ext: "json", Payload: []byte("{}")}))
	require.NoError(t, d1.Close())

	d2, err := NewDirectory(root)
	require.NoError(t, err)
	defer d2.Close()
	require.NoError(t, d2.Write(context.Background(), Record{Kind: KindSysinfo, Node: "n1", Time: ts, Ext: "json", Payload: []byte("{}")}))

	dir := filepath.Join(root, "2026", "07", "31")
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "0+sysinfo-n1.json", entries[0].Name())
	assert.Equal(t, "1+sysinfo-n1.json", entries[1].Name())
}

func TestDirectoryKeepsDistinctNodesSeparate(t *testing.T) {
	root := t.TempDir()
	d, err := NewDirectory(root)
	require.NoError(t, err)
	defer d.Close()

	ts := time.Date(2026, 7, 31, 10, 0, 0, 0, time.UTC)
	require.NoError(t, d.Write(context.Background(), Record{Kind: KindJobs, Node: "n1", Time: ts, Ext: "json", Payload: []byte("{}")}))
	require.NoError(t, d.Write(context.Background(), Record{Kind: KindJobs, Node: "n2", Time: ts, Ext: "json", Payload: []byte("{}")}))

	dir := filepath.Join(root, "2026", "07", "31")
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)
}
