// Package manifest handles lox.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/dibashthapa/jsbytecode/pkg/driver"
)

// FileName is the name of the project configuration file.
const FileName = "lox.toml"

// Manifest represents a lox.toml project configuration.
type Manifest struct {
	Project Project     `toml:"project"`
	Run     RunConfig   `toml:"run"`
	Cache   CacheConfig `toml:"cache"`
	Log     LogConfig   `toml:"log"`

	// Dir is the directory containing the lox.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name  string `toml:"name"`
	Entry string `toml:"entry"`
}

// RunConfig selects how programs are executed.
type RunConfig struct {
	Backend string `toml:"backend"`
	Trace   bool   `toml:"trace"`
}

// CacheConfig configures the compile cache.
type CacheConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// LogConfig configures logging.
type LogConfig struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

// Default returns the configuration used when no lox.toml is found.
func Default(dir string) *Manifest {
	m := &Manifest{Dir: dir}
	m.applyDefaults(nil)
	return m
}

func (m *Manifest) applyDefaults(md *toml.MetaData) {
	if m.Run.Backend == "" {
		m.Run.Backend = string(driver.BackendInterpreter)
	}
	if md == nil || !md.IsDefined("cache", "enabled") {
		m.Cache.Enabled = true
	}
	if m.Cache.Path == "" {
		m.Cache.Path = filepath.Join(".lox", "cache.db")
	}
}

// Load parses a lox.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	md, err := toml.Decode(string(data), &m)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%s: unknown key %q", path, undecoded[0].String())
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	m.applyDefaults(&md)
	if _, err := m.Backend(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &m, nil
}

// FindAndLoad walks up from startDir to find a lox.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// Backend returns the configured execution backend.
func (m *Manifest) Backend() (driver.Backend, error) {
	return driver.ParseBackend(m.Run.Backend)
}

// CachePath returns the absolute path of the compile cache database.
func (m *Manifest) CachePath() string {
	return m.resolve(m.Cache.Path)
}

// LogFile returns the absolute path of the log file, or "" for stderr.
func (m *Manifest) LogFile() string {
	if m.Log.File == "" {
		return ""
	}
	return m.resolve(m.Log.File)
}

// EntryPath returns the absolute path of the entry script, or "" when none
// is configured.
func (m *Manifest) EntryPath() string {
	if m.Project.Entry == "" {
		return ""
	}
	return m.resolve(m.Project.Entry)
}

func (m *Manifest) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(m.Dir, p)
}
