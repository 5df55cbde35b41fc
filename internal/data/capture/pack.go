package capture

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/penwyp/go-flight-stepper/internal/util"
)

// PackResult summarizes one Pack run.
type PackResult struct {
	Files       int
	BytesBefore int64
	BytesAfter  int64
}

// Pack compresses every uncompressed response of the capture in dir with
// zstd and writes a manifest pointing at the compressed files. When
// removeOriginals is set the plain files are deleted afterwards.
func Pack(dir string, level zstd.EncoderLevel, removeOriginals bool) (PackResult, error) {
	var result PackResult

	m, err := LoadManifest(dir)
	if err != nil {
		return result, err
	}

	packOne := func(rel string) (string, error) {
		if strings.HasSuffix(rel, zstdExt) {
			return rel, nil
		}
		before, after, err := compressFile(filepath.Join(dir, rel), filepath.Join(dir, rel+zstdExt), level)
		if err != nil {
			return "", err
		}
		result.Files++
		result.BytesBefore += before
		result.BytesAfter += after
		return rel + zstdExt, nil
	}

	var originals []string
	packed, err := packOne(m.Render)
	if err != nil {
		return result, err
	}
	if packed != m.Render {
		originals = append(originals, m.Render)
	}
	m.Render = packed

	for i, a := range m.Actions {
		packed, err := packOne(a.Response)
		if err != nil {
			return result, fmt.Errorf("action %q: %w", a.Name, err)
		}
		if packed != a.Response {
			originals = append(originals, a.Response)
		}
		m.Actions[i].Response = packed
	}

	if err := m.Save(dir); err != nil {
		return result, err
	}

	if removeOriginals {
		for _, rel := range originals {
			if err := os.Remove(filepath.Join(dir, rel)); err != nil {
				util.LogWarnf("remove packed original %s: %v", rel, err)
			}
		}
	}

	util.LogInfo("capture packed",
		util.F("dir", dir),
		util.F("files", result.Files),
		util.F("before", result.BytesBefore),
		util.F("after", result.BytesAfter))
	return result, nil
}

func compressFile(src, dst string, level zstd.EncoderLevel) (int64, int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, 0, fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return 0, 0, fmt.Errorf("create %s: %w", dst, err)
	}

	enc, err := zstd.NewWriter(out, zstd.WithEncoderLevel(level))
	if err != nil {
		out.Close()
		return 0, 0, fmt.Errorf("create zstd encoder: %w", err)
	}
	before, err := io.Copy(enc, in)
	if err != nil {
		enc.Close()
		out.Close()
		return 0, 0, fmt.Errorf("compress %s: %w", src, err)
	}
	if err := enc.Close(); err != nil {
		out.Close()
		return 0, 0, fmt.Errorf("flush %s: %w", dst, err)
	}
	if err := out.Close(); err != nil {
		return 0, 0, err
	}

	info, err := os.Stat(dst)
	if err != nil {
		return 0, 0, err
	}
	return before, info.Size(), nil
}
