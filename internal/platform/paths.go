package platform

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"time"
)

const (
	defaultAppName = "gauge"
	datasetDirName = "datasets"
	datasetStamp   = "20060102-150405"
)

// Paths lists where gauge keeps its config, its sqlite store and exported datasets.
type Paths struct {
	Stem       string
	ConfigPath string
	DataDir    string
	DBPath     string
	DatasetDir string
}

// Options selects the install: dev mode resolves to a separate "<app>-dev" tree.
type Options struct {
	AppName string
	DevMode bool
}

// dirName is the per-install directory and file stem.
func (o Options) dirName() string {
	name := strings.TrimSpace(o.AppName)
	if name == "" {
		name = defaultAppName
	}
	if o.DevMode {
		name += "-dev"
	}
	return name
}

// Bases are the user-level roots the install directories hang off.
type Bases struct {
	Config string
	Data   string
}

// envOverrides names the variables that relocate the config and data roots per OS.
var envOverrides = map[string]struct{ config, data string }{
	"linux":   {config: "XDG_CONFIG_HOME", data: "XDG_DATA_HOME"},
	"windows": {config: "APPDATA", data: "LOCALAPPDATA"},
}

// Resolve returns the paths for opts on the running machine.
func Resolve(opts Options) (Paths, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return Paths{}, fmt.Errorf("user config dir: %w", err)
	}
	bases := Bases{Config: configDir, Data: configDir}
	if runtime.GOOS == "linux" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Paths{}, fmt.Errorf("user home dir: %w", err)
		}
		bases.Data = filepath.Join(home, ".local", "share")
	}
	return ResolveFor(runtime.GOOS, os.Getenv, bases, opts)
}

// ResolveFor computes paths for goos from explicit bases. getenv may be nil.
func ResolveFor(goos string, getenv func(string) string, bases Bases, opts Options) (Paths, error) {
	if bases.Config == "" || bases.Data == "" {
		return Paths{}, fmt.Errorf("empty base dirs")
	}
	if getenv == nil {
		getenv = func(string) string { return "" }
	}
	if keys, ok := envOverrides[goos]; ok {
		if v := strings.TrimSpace(getenv(keys.config)); v != "" {
			bases.Config = v
		}
		if v := strings.TrimSpace(getenv(keys.data)); v != "" {
			bases.Data = v
		}
	}

	name := opts.dirName()
	dataDir := filepath.Join(bases.Data, name)
	dbPath := filepath.Join(dataDir, name+".db")
	return Paths{
		Stem:       name,
		ConfigPath: filepath.Join(bases.Config, name, "config.toml"),
		DataDir:    dataDir,
		DBPath:     dbPath,
		DatasetDir: DatasetDir(dbPath),
	}, nil
}

// DatasetDir is the export directory kept beside a database file, so a --db override
// carries its datasets with it.
func DatasetDir(dbPath string) string {
	return filepath.Join(filepath.Dir(dbPath), datasetDirName)
}

// DatasetFile names a timestamped export, e.g. <dir>/gauge-20260105-150000.yaml.
func DatasetFile(dir, stem string, at time.Time, ext string) string {
	stem = strings.TrimSpace(stem)
	if stem == "" {
		stem = defaultAppName
	}
	ext = strings.TrimPrefix(strings.TrimSpace(ext), ".")
	if ext == "" {
		ext = "json"
	}
	return filepath.Join(dir, fmt.Sprintf("%s-%s.%s", stem, at.UTC().Format(datasetStamp), ext))
}

// LatestDataset returns the newest JSON or YAML dataset in dir. Exports are timestamped,
// so the greatest file name wins. It wraps os.ErrNotExist when dir holds none.
func LatestDataset(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil && !os.IsNotExist(err) {
		return "", fmt.Errorf("read dataset dir: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".json", ".yaml", ".yml":
			names = append(names, entry.Name())
		}
	}
	if len(names) == 0 {
		return "", fmt.Errorf("no dataset in %s: %w", dir, os.ErrNotExist)
	}
	return filepath.Join(dir, slices.Max(names)), nil
}
