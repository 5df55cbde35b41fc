package fixtures

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/penwyp/go-flight-stepper/internal/data/capture"
)

// TextRow frames a newline terminated row
func TextRow(id int, tag byte, payload string) string {
	if tag == 0 {
		return fmt.Sprintf("%x:%s\n", id, payload)
	}
	return fmt.Sprintf("%x:%c%s\n", id, tag, payload)
}

// LengthRow frames a length-prefixed row. data may contain newlines.
func LengthRow(id int, tag byte, data []byte) string {
	return fmt.Sprintf("%x:%c%x,%s", id, tag, len(data), data)
}

// ResponseBody generates n rows mixing model, text and binary rows. The
// same n always yields the same body.
func ResponseBody(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		switch i % 4 {
		case 0:
			b.WriteString(TextRow(i, 0, fmt.Sprintf(`["$","div",null,{"children":"item %d"}]`, i)))
		case 1:
			b.WriteString(TextRow(i, 'D', fmt.Sprintf(`{"name":"Item%d"}`, i)))
		case 2:
			b.WriteString(LengthRow(i, 'T', []byte(fmt.Sprintf("line %d\ncontinued", i))))
		default:
			b.WriteString(LengthRow(i, 'o', []byte{byte(i), 0x00, 0xff, '\n'}))
		}
	}
	return b.String()
}

// CaptureOptions describes a generated capture
type CaptureOptions struct {
	RenderRows int
	Actions    map[string]int // action name -> response rows
}

// CaptureGenerator writes capture directories for tests
type CaptureGenerator struct {
	baseDir string
}

// NewCaptureGenerator creates a generator writing below baseDir
func NewCaptureGenerator(baseDir string) *CaptureGenerator {
	return &CaptureGenerator{baseDir: baseDir}
}

// GenerateCapture writes a capture named name with a manifest and returns
// its directory.
func (g *CaptureGenerator) GenerateCapture(name string, opts CaptureOptions) (string, error) {
	dir := filepath.Join(g.baseDir, name)
	if err := os.MkdirAll(filepath.Join(dir, "actions"), 0755); err != nil {
		return "", err
	}

	m := capture.Manifest{Name: name, Render: "render.rsc"}
	if err := g.WriteResponse(dir, m.Render, ResponseBody(opts.RenderRows)); err != nil {
		return "", err
	}
	for action, rows := range opts.Actions {
		rel := filepath.Join("actions", action+".rsc")
		if err := g.WriteResponse(dir, rel, ResponseBody(rows)); err != nil {
			return "", err
		}
		m.Actions = append(m.Actions, capture.ActionRecord{Name: action, Response: rel})
	}
	if err := m.Save(dir); err != nil {
		return "", err
	}
	return dir, nil
}

// WriteResponse writes body to rel inside dir
func (g *CaptureGenerator) WriteResponse(dir, rel, body string) error {
	return os.WriteFile(filepath.Join(dir, rel), []byte(body), 0644)
}
