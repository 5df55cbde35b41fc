package parser

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestNewParser(t *testing.T) {
	parser := NewParser(4, nil)

	assert.NotNil(t, parser)
	assert.Equal(t, 4, parser.concurrency)
	assert.NotNil(t, parser.open)
	assert.Empty(t, parser.cache)

	assert.Equal(t, 1, NewParser(0, nil).concurrency)
}

func TestParserParseFile(t *testing.T) {
	parser := NewParser(1, nil)
	path := writeFile(t, t.TempDir(), "render.rsc", "0:D{\"name\":\"App\"}\n1:T3,yes2:[\"$\",\"div\",null,{}]\n")

	rows, err := parser.ParseFile(path)

	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "0", rows[0].ID)
	assert.Equal(t, byte('D'), rows[0].Tag)
	assert.Equal(t, "yes", string(rows[1].Payload))
	assert.True(t, rows[1].LengthPrefixed)
	assert.Equal(t, "2:[\"$\",\"div\",null,{}]\n", string(rows[2].Raw))
}

func TestParserParseFileFramingError(t *testing.T) {
	parser := NewParser(1, nil)
	path := writeFile(t, t.TempDir(), "broken.rsc", "0:\"a\"\n1:A4,ab")

	rows, err := parser.ParseFile(path)

	assert.ErrorIs(t, err, ErrTruncatedBinaryData)
	assert.Len(t, rows, 1, "rows before the failure are kept")
	assert.NotContains(t, parser.cache, path, "failed files are not cached")
}

func TestParserParseFileEmptyFile(t *testing.T) {
	parser := NewParser(1, nil)
	path := writeFile(t, t.TempDir(), "empty.rsc", "")

	rows, err := parser.ParseFile(path)

	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestParserParseFileNonExistent(t *testing.T) {
	parser := NewParser(1, nil)

	rows, err := parser.ParseFile(filepath.Join(t.TempDir(), "missing.rsc"))

	assert.Error(t, err)
	assert.Nil(t, rows)
}

func TestParserParseFileCache(t *testing.T) {
	var opens atomic.Int32
	parser := NewParser(1, func(path string) (io.ReadCloser, error) {
		opens.Add(1)
		return os.Open(path)
	})
	path := writeFile(t, t.TempDir(), "cached.rsc", "0:\"a\"\n")

	rows1, err := parser.ParseFile(path)
	require.NoError(t, err)
	rows2, err := parser.ParseFile(path)
	require.NoError(t, err)

	assert.Equal(t, rows1, rows2)
	assert.Equal(t, int32(1), opens.Load())
	assert.Contains(t, parser.cache, path)
}

func TestReadAllAcrossSmallReads(t *testing.T) {
	input := "0:T3,a\nb1:\"x\"\n\n2:o2,\x00\xff"

	rows, err := ReadAll(iotest.OneByteReader(strings.NewReader(input)))

	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "a\nb", string(rows[0].Payload))
	assert.Equal(t, "1", rows[1].ID)
	assert.Equal(t, []byte{0x00, 0xff}, rows[2].Payload)
}

func TestReadAllMissingTerminator(t *testing.T) {
	rows, err := ReadAll(strings.NewReader("0:\"a\"\n1:\"b\""))

	assert.ErrorIs(t, err, ErrMissingTerminator)
	assert.Len(t, rows, 1)
}

func TestParserParseFilesConcurrent(t *testing.T) {
	parser := NewParser(4, nil)
	tempDir := t.TempDir()

	var files []string
	for i := 0; i < 10; i++ {
		content := fmt.Sprintf("0:\"file %d\"\n1:T2,ok", i)
		files = append(files, writeFile(t, tempDir, fmt.Sprintf("file%d.rsc", i), content))
	}

	var allResults []ParseResult
	for result := range parser.ParseFiles(files) {
		allResults = append(allResults, result)
	}

	require.Len(t, allResults, 10)
	for _, result := range allResults {
		assert.NoError(t, result.Error)
		assert.Len(t, result.Rows, 2)
		assert.Contains(t, files, result.File)
	}
}

func TestParserParseFilesWithErrors(t *testing.T) {
	parser := NewParser(2, nil)
	tempDir := t.TempDir()

	validFile := writeFile(t, tempDir, "valid.rsc", "0:\"a\"\n")
	brokenFile := writeFile(t, tempDir, "broken.rsc", "0:\"a\"\nzz")
	missingFile := filepath.Join(tempDir, "missing.rsc")

	results := make(map[string]ParseResult)
	for result := range parser.ParseFiles([]string{validFile, brokenFile, missingFile}) {
		results[result.File] = result
	}

	require.Len(t, results, 3)
	assert.NoError(t, results[validFile].Error)
	assert.Len(t, results[validFile].Rows, 1)

	assert.ErrorIs(t, results[brokenFile].Error, ErrMalformedID)
	assert.Len(t, results[brokenFile].Rows, 1)

	assert.Error(t, results[missingFile].Error)
	assert.Nil(t, results[missingFile].Rows)
}

func TestParserParseFilesEmptyList(t *testing.T) {
	parser := NewParser(1, nil)

	var allResults []ParseResult
	for result := range parser.ParseFiles(nil) {
		allResults = append(allResults, result)
	}

	assert.Empty(t, allResults)
}

func TestParserSameFileConcurrently(t *testing.T) {
	parser := NewParser(3, nil)
	path := writeFile(t, t.TempDir(), "race.rsc", "0:\"a\"\n1:\"b\"\n")

	files := make([]string, 10)
	for i := range files {
		files[i] = path
	}

	count := 0
	for result := range parser.ParseFiles(files) {
		count++
		assert.NoError(t, result.Error)
		assert.Len(t, result.Rows, 2)
	}
	assert.Equal(t, 10, count)
}
