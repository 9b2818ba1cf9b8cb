package utils

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/charmbracelet/log"
)

// AppName names the per-user config directory.
const AppName = "wordexpand"

// PathResolver finds config and dictionary locations for the binaries.
type PathResolver struct {
	executableDir string
	homeDir       string
	configDir     string
}

// NewPathResolver creates a resolver anchored at the running executable.
func NewPathResolver() (*PathResolver, error) {
	execPath, err := os.Executable()
	if err != nil {
		return nil, err
	}
	execPath, err = filepath.EvalSymlinks(execPath)
	if err != nil {
		return nil, err
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Warnf("Could not determine home directory: %v", err)
		homeDir = os.TempDir()
	}

	pr := newPathResolver(filepath.Dir(execPath), homeDir, runtime.GOOS, os.Getenv)
	log.Debugf("PathResolver initialized: execDir=%s, configDir=%s", pr.executableDir, pr.configDir)
	return pr, nil
}

func newPathResolver(execDir, homeDir, goos string, getenv func(string) string) *PathResolver {
	return &PathResolver{
		executableDir: execDir,
		homeDir:       homeDir,
		configDir:     configDirFor(homeDir, goos, getenv),
	}
}

func configDirFor(homeDir, goos string, getenv func(string) string) string {
	switch goos {
	case "darwin":
		return filepath.Join(homeDir, ".config", AppName)
	case "linux":
		if xdg := getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, AppName)
		}
		return filepath.Join(homeDir, ".config", AppName)
	case "windows":
		if appData := getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, AppName)
		}
		return filepath.Join(homeDir, "AppData", "Roaming", AppName)
	default:
		return filepath.Join(homeDir, "."+AppName)
	}
}

// GetDataDir resolves the directory holding dict_*.bin chunks. Candidates
// are, in order: an absolute user path, the path relative to the
// executable, relative to the working directory, then the common data
// directories. The executable-relative path is returned when none hold
// chunks so callers can report or populate it.
func (pr *PathResolver) GetDataDir(userPath string) string {
	candidates := pr.dataDirCandidates(userPath)
	for _, path := range candidates {
		if IsDataDir(path) {
			log.Debugf("Found valid data directory: %s", path)
			return path
		}
		log.Debugf("Data directory candidate not valid: %s", path)
	}
	if filepath.IsAbs(userPath) {
		return userPath
	}
	return filepath.Join(pr.executableDir, userPath)
}

func (pr *PathResolver) dataDirCandidates(userPath string) []string {
	var candidates []string
	if filepath.IsAbs(userPath) {
		candidates = append(candidates, userPath)
	} else {
		candidates = append(candidates, filepath.Join(pr.executableDir, userPath))
		if cwd, err := os.Getwd(); err == nil {
			candidates = append(candidates, filepath.Join(cwd, userPath))
		}
	}
	return append(candidates,
		filepath.Join(pr.executableDir, "data"),
		filepath.Join(filepath.Dir(pr.executableDir), "data"),
		filepath.Join(pr.configDir, "data"),
	)
}

// IsDataDir reports whether path is a directory with at least one chunk.
func IsDataDir(path string) bool {
	if stat, err := os.Stat(path); err != nil || !stat.IsDir() {
		return false
	}
	matches, err := filepath.Glob(filepath.Join(path, "dict_*.bin"))
	return err == nil && len(matches) > 0
}

// GetConfigPath returns a writable location for filename, falling back
// from the config directory to ~/.wordexpand, the temp dir, and finally
// the executable's directory.
func (pr *PathResolver) GetConfigPath(filename string) string {
	dirs := []string{
		pr.configDir,
		filepath.Join(pr.homeDir, "."+AppName),
		filepath.Join(os.TempDir(), AppName),
		pr.executableDir,
	}
	for i, dir := range dirs {
		if WritableDir(dir) {
			path := filepath.Join(dir, filename)
			if i > 0 {
				log.Warnf("Using fallback config location: %s", path)
			}
			return path
		}
	}
	path := filepath.Join(os.TempDir(), filename)
	log.Warnf("Using temporary config file: %s", path)
	return path
}

// GetConfigDir returns the config directory
func (pr *PathResolver) GetConfigDir() string {
	return pr.configDir
}

// GetExecutableDir returns the directory containing the executable
func (pr *PathResolver) GetExecutableDir() string {
	return pr.executableDir
}
