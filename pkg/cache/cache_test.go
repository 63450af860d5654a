package cache

import (
	"os"
	"path/filepath"
	"testing"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-pathbench/pkg/logging"
	"github.com/dd0wney/cluso-pathbench/pkg/metrics"
)

func TestFingerprint(t *testing.T) {
	a := NewHasher().Text("log", "abc").Text("quota", "aq=1").Sum()
	b := NewHasher().Text("log", "abc").Text("quota", "aq=1").Sum()
	assert.Equal(t, a, b)
	assert.Len(t, a.String(), 64)

	shifted := NewHasher().Text("log", "abcaq").Text("quota", "=1").Sum()
	assert.NotEqual(t, a, shifted, "part boundaries are part of the digest")

	listed := NewHasher().Strings("t", []string{"a", "b"}).Sum()
	joined := NewHasher().Strings("t", []string{"ab"}).Sum()
	assert.NotEqual(t, listed, joined)
}

func TestMemoryOnly(t *testing.T) {
	c, err := New("", 2)
	require.NoError(t, err)

	fp := NewHasher().Text("k", "1").Sum()
	_, ok := c.Get(fp)
	assert.False(t, ok)

	require.NoError(t, c.Put(fp, []byte("value")))
	got, ok := c.Get(fp)
	require.True(t, ok)
	assert.Equal(t, []byte("value"), got)

	for i := range 3 {
		require.NoError(t, c.Put(NewHasher().Text("k", string(rune('a'+i))).Sum(), nil))
	}
	assert.Equal(t, 2, c.Len())
	_, ok = c.Get(fp)
	assert.False(t, ok, "oldest entry is evicted")
}

func TestDiskRoundTrip(t *testing.T) {
	dir := t.TempDir()
	reg := metrics.NewRegistry()
	c, err := New(dir, 4, WithMetrics(reg), WithLogger(logging.NopLogger{}))
	require.NoError(t, err)

	fp := NewHasher().Text("log", "result.txt").Sum()
	type payload struct {
		Queries []string
	}
	require.NoError(t, c.PutJSON(fp, payload{Queries: []string{"q1", "q2"}}))

	_, err = os.Stat(filepath.Join(dir, fp.String()+".sz"))
	require.NoError(t, err)

	// A fresh cache over the same directory only has the disk copy.
	c2, err := New(dir, 4, WithMetrics(reg))
	require.NoError(t, err)
	var got payload
	require.True(t, c2.GetJSON(fp, &got))
	assert.Equal(t, []string{"q1", "q2"}, got.Queries)

	assert.Equal(t, 1.0, lookups(t, reg, "memory", "miss"))
	assert.Equal(t, 1.0, lookups(t, reg, "disk", "hit"))

	require.True(t, c2.GetJSON(fp, &got))
	assert.Equal(t, 1.0, lookups(t, reg, "memory", "hit"))

	c2.Purge()
	assert.Equal(t, 0, c2.Len())
	require.True(t, c2.GetJSON(fp, &got), "purge keeps disk entries")
	assert.Equal(t, 2.0, lookups(t, reg, "disk", "hit"))
}

func TestCorruptEntry(t *testing.T) {
	dir := t.TempDir()
	log := logging.NewCaptureLogger()
	c, err := New(dir, 4, WithLogger(log))
	require.NoError(t, err)

	fp := NewHasher().Text("k", "v").Sum()
	require.NoError(t, os.WriteFile(filepath.Join(dir, fp.String()+".sz"), []byte("not snappy"), 0o644))

	_, ok := c.Get(fp)
	assert.False(t, ok)
	assert.NotEmpty(t, log.Entries())
}

func TestUndecodableJSON(t *testing.T) {
	c, err := New("", 4)
	require.NoError(t, err)

	fp := NewHasher().Text("k", "v").Sum()
	require.NoError(t, c.Put(fp, []byte("{")))
	var v map[string]any
	assert.False(t, c.GetJSON(fp, &v))
	assert.Equal(t, 0, c.Len(), "bad entry is dropped from memory")
}

func lookups(t *testing.T, reg *metrics.Registry, tier, result string) float64 {
	t.Helper()
	m := &dto.Metric{}
	c, err := reg.CacheLookupsTotal.GetMetricWithLabelValues(tier, result)
	require.NoError(t, err)
	require.NoError(t, c.Write(m))
	return m.GetCounter().GetValue()
}
