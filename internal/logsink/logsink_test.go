package logsink

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSinkAppendsLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "heartbeat.txt")
	require.NoError(t, os.WriteFile(path, []byte("existing\n"), 0o644))

	reg := NewRegistry()
	t.Cleanup(func() { _ = reg.Close() })

	sink, err := reg.Open(path)
	require.NoError(t, err)
	require.NoError(t, sink.WriteLine("first"))
	require.NoError(t, sink.WriteLine("second\n"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "existing\nfirst\nsecond\n", string(data))
}

func TestRegistryReusesSinkPerPath(t *testing.T) {
	dir := t.TempDir()
	reg := NewRegistry()
	t.Cleanup(func() { _ = reg.Close() })

	a, err := reg.Open(filepath.Join(dir, "a.txt"))
	require.NoError(t, err)
	b, err := reg.Open(dir + "/./a.txt")
	require.NoError(t, err)
	assert.Same(t, a, b)

	_, err = reg.Open("  ")
	assert.Error(t, err)
}

func TestConcurrentWritersKeepWholeLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stock.txt")
	reg := NewRegistry()
	t.Cleanup(func() { _ = reg.Close() })

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sink, err := reg.Open(path)
			if !assert.NoError(t, err) {
				return
			}
			for j := 0; j < 25; j++ {
				assert.NoError(t, sink.WriteLine("product restocked"))
			}
		}()
	}
	wg.Wait()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	assert.Len(t, lines, 200)
	for _, line := range lines {
		assert.Equal(t, "product restocked", line)
	}
}
