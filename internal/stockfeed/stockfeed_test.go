package stockfeed

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	pgzip "github.com/klauspost/pgzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFeed(t *testing.T, dir, name string, lines ...string) string {
	t.Helper()
	path := filepath.Join(dir, name)

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	gz := pgzip.NewWriter(f)
	_, err = gz.Write([]byte(strings.Join(lines, "\n") + "\n"))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	return path
}

func TestRead(t *testing.T) {
	dir := t.TempDir()
	first := writeFeed(t, dir, "warehouse-a.gz",
		"# product;stock",
		"A;10",
		"B;5",
		"",
		"C;0",
	)
	second := writeFeed(t, dir, "warehouse-b.gz",
		"B;7",
		"D; 3 ",
	)

	res, err := Read(context.Background(), []string{first, second}, Options{})
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"A": 10, "B": 7, "C": 0, "D": 3}, res.Levels)
	assert.Equal(t, []string{"B"}, res.Duplicates)
	assert.Zero(t, res.Skipped)
}

func TestRead_LastFeedWins(t *testing.T) {
	dir := t.TempDir()
	a := writeFeed(t, dir, "a.gz", "X;1")
	b := writeFeed(t, dir, "b.gz", "X;2")

	res, err := Read(context.Background(), []string{a, b}, Options{ExpectedItems: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Levels["X"])

	res, err = Read(context.Background(), []string{b, a}, Options{ExpectedItems: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Levels["X"])
}

func TestRead_WithinFeedLastLineWins(t *testing.T) {
	dir := t.TempDir()
	a := writeFeed(t, dir, "a.gz", "X;1", "Y;4", "X;9")

	res, err := Read(context.Background(), []string{a}, Options{})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"X": 9, "Y": 4}, res.Levels)
	assert.Empty(t, res.Duplicates)
}

func TestRead_SkipsMalformedLines(t *testing.T) {
	dir := t.TempDir()
	a := writeFeed(t, dir, "a.gz",
		"A;1",
		"no separator",
		";4",
		"B;many",
		"C;-2",
		"D;2",
	)

	res, err := Read(context.Background(), []string{a}, Options{})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"A": 1, "D": 2}, res.Levels)
	assert.Equal(t, 4, res.Skipped)
}

func TestRead_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := Read(context.Background(), []string{filepath.Join(dir, "missing.gz")}, Options{})
	require.Error(t, err)

	plain := filepath.Join(dir, "plain.gz")
	require.NoError(t, os.WriteFile(plain, []byte("A;1\n"), 0o600))
	_, err = Read(context.Background(), []string{plain}, Options{})
	require.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	a := writeFeed(t, dir, "a.gz", "A;1")
	_, err = Read(ctx, []string{a}, Options{})
	require.ErrorIs(t, err, context.Canceled)
}

func TestParseLine(t *testing.T) {
	tests := []struct {
		line    string
		want    entry
		ok      bool
		wantErr bool
	}{
		{line: "A;1", want: entry{productID: "A", stock: 1}, ok: true},
		{line: "  A ; 12 ", want: entry{productID: "A", stock: 12}, ok: true},
		{line: ""},
		{line: "# comment"},
		{line: "A", wantErr: true},
		{line: "A;", wantErr: true},
		{line: "A;-1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, ok, err := parseLine(tt.line)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
