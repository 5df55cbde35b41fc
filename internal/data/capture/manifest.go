package capture

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// ManifestFile names the capture description inside a capture directory.
	ManifestFile = "capture.yaml"

	responseExt = ".rsc"
	zstdExt     = ".zst"
)

// ErrNoRender is returned when a capture has no render response.
var ErrNoRender = errors.New("capture has no render response")

// Manifest describes one recorded debugging session: the render response
// and the responses of the actions invoked afterwards.
type Manifest struct {
	Name    string         `yaml:"name"`
	Render  string         `yaml:"render"`
	Actions []ActionRecord `yaml:"actions,omitempty"`
}

// ActionRecord is one recorded action request/response pair.
type ActionRecord struct {
	Name     string `yaml:"name"`
	Args     string `yaml:"args,omitempty"`
	Response string `yaml:"response"`
}

// LoadManifest reads capture.yaml from dir. Without a manifest file the
// layout is inferred: render.rsc[.zst] plus actions/<name>.rsc[.zst].
func LoadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if errors.Is(err, os.ErrNotExist) {
		return inferManifest(dir)
	}
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse %s: %w", ManifestFile, err)
	}
	if m.Name == "" {
		m.Name = filepath.Base(dir)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks that the manifest names a render response and that
// every action has a name and a response file.
func (m *Manifest) Validate() error {
	if m.Render == "" {
		return ErrNoRender
	}
	for i, a := range m.Actions {
		if a.Name == "" {
			return fmt.Errorf("action %d: missing name", i)
		}
		if a.Response == "" {
			return fmt.Errorf("action %q: missing response file", a.Name)
		}
	}
	return nil
}

// Save writes the manifest to dir/capture.yaml.
func (m *Manifest) Save(dir string) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, ManifestFile), data, 0644)
}

// ActionNames returns the distinct recorded action names, sorted.
func (m *Manifest) ActionNames() []string {
	seen := make(map[string]bool, len(m.Actions))
	names := make([]string, 0, len(m.Actions))
	for _, a := range m.Actions {
		if !seen[a.Name] {
			seen[a.Name] = true
			names = append(names, a.Name)
		}
	}
	sort.Strings(names)
	return names
}

func inferManifest(dir string) (*Manifest, error) {
	m := &Manifest{Name: filepath.Base(dir)}

	for _, candidate := range []string{"render" + responseExt, "render" + responseExt + zstdExt} {
		if _, err := os.Stat(filepath.Join(dir, candidate)); err == nil {
			m.Render = candidate
			break
		}
	}
	if m.Render == "" {
		return nil, fmt.Errorf("%s: %w", dir, ErrNoRender)
	}

	entries, err := os.ReadDir(filepath.Join(dir, "actions"))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read actions: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || !isResponseFile(e.Name()) {
			continue
		}
		m.Actions = append(m.Actions, ActionRecord{
			Name:     responseName(e.Name()),
			Response: filepath.Join("actions", e.Name()),
		})
	}
	return m, nil
}

func isResponseFile(name string) bool {
	return strings.HasSuffix(name, responseExt) || strings.HasSuffix(name, responseExt+zstdExt)
}

// responseName strips response extensions: "like.rsc.zst" -> "like".
func responseName(file string) string {
	name := strings.TrimSuffix(file, zstdExt)
	return strings.TrimSuffix(name, responseExt)
}
