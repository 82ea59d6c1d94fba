// Package config loads gitdesk settings from a YAML file and command-line
// flags, in that order of precedence from lowest to highest.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/thiagokokada/gitdesk/internal/git"
	"github.com/thiagokokada/gitdesk/internal/session"
	"github.com/thiagokokada/gitdesk/internal/watch"
)

type Config struct {
	Repo        string        `yaml:"repo"`
	Listen      string        `yaml:"listen"`
	Remote      string        `yaml:"remote"`
	StateDir    string        `yaml:"state_dir"`
	Session     string        `yaml:"session"`
	Debounce    time.Duration `yaml:"debounce"`
	CallTimeout time.Duration `yaml:"call_timeout"`
	DiffContext int           `yaml:"diff_context"`
	CommitLimit int           `yaml:"commit_limit"`
	Watch       bool          `yaml:"watch"`
	WatchDelay  time.Duration `yaml:"watch_delay"`
	AuthorName  string        `yaml:"author_name"`
	AuthorEmail string        `yaml:"author_email"`
	Verbose     bool          `yaml:"verbose"`
}

func Default() Config {
	return Config{
		Repo:        ".",
		Listen:      "127.0.0.1:7420",
		Session:     "default",
		Debounce:    session.DefaultDebounce,
		CallTimeout: 30 * time.Second,
		DiffContext: git.DefaultContextLines,
		CommitLimit: git.DefaultBatch,
		Watch:       true,
		WatchDelay:  watch.DefaultDelay,
	}
}

// DefaultPath is $XDG_CONFIG_HOME/gitdesk/config.yaml or the platform
// equivalent.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "gitdesk", "config.yaml")
}

// Load merges the file at path over the defaults. A missing file is not an
// error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.Repo == "" && c.Remote == "" {
		errs = append(errs, errors.New("either repo or remote must be set"))
	}
	if c.Debounce < 0 {
		errs = append(errs, fmt.Errorf("debounce must not be negative, got %s", c.Debounce))
	}
	if c.CallTimeout < 0 {
		errs = append(errs, fmt.Errorf("call_timeout must not be negative, got %s", c.CallTimeout))
	}
	if c.CommitLimit < 0 {
		errs = append(errs, fmt.Errorf("commit_limit must not be negative, got %d", c.CommitLimit))
	}
	return errors.Join(errs...)
}

// StatePath returns the directory used for the persisted session store.
func (c Config) StatePath() string {
	if c.StateDir != "" {
		return c.StateDir
	}
	dir, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "gitdesk", "state")
}

// RegisterFlags adds a flag for every setting, defaulting to Default().
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("listen", d.Listen, "address to serve the API and websocket feed on")
	fs.String("remote", d.Remote, "use the API of another gitdesk server instead of a local repository")
	fs.String("state-dir", d.StateDir, "directory for persisted session state (empty keeps the platform cache dir)")
	fs.String("session", d.Session, "logical session name")
	fs.Duration("debounce", d.Debounce, "quiet period before edits are written")
	fs.Duration("call-timeout", d.CallTimeout, "timeout for each repository call (0 disables)")
	fs.Int("diff-context", d.DiffContext, "context lines kept around changes (negative shows whole files)")
	fs.Int("limit", d.CommitLimit, "maximum number of commits to list")
	fs.Bool("watch", d.Watch, "refresh automatically when the repository changes")
	fs.Duration("watch-delay", d.WatchDelay, "quiet period before a repository change triggers a refresh")
	fs.String("author-name", d.AuthorName, "author name for commits")
	fs.String("author-email", d.AuthorEmail, "author email for commits")
	fs.BoolP("verbose", "v", d.Verbose, "enable verbose logging")
}

// ApplyFlags copies the flags set on the command line into c.
func (c *Config) ApplyFlags(fs *pflag.FlagSet) error {
	var errs []error
	str := func(name string, dst *string) {
		if fs.Changed(name) {
			v, err := fs.GetString(name)
			errs = append(errs, err)
			*dst = v
		}
	}
	dur := func(name string, dst *time.Duration) {
		if fs.Changed(name) {
			v, err := fs.GetDuration(name)
			errs = append(errs, err)
			*dst = v
		}
	}
	num := func(name string, dst *int) {
		if fs.Changed(name) {
			v, err := fs.GetInt(name)
			errs = append(errs, err)
			*dst = v
		}
	}
	flag := func(name string, dst *bool) {
		if fs.Changed(name) {
			v, err := fs.GetBool(name)
			errs = append(errs, err)
			*dst = v
		}
	}
	str("listen", &c.Listen)
	str("remote", &c.Remote)
	str("state-dir", &c.StateDir)
	str("session", &c.Session)
	dur("debounce", &c.Debounce)
	dur("call-timeout", &c.CallTimeout)
	num("diff-context", &c.DiffContext)
	num("limit", &c.CommitLimit)
	flag("watch", &c.Watch)
	dur("watch-delay", &c.WatchDelay)
	str("author-name", &c.AuthorName)
	str("author-email", &c.AuthorEmail)
	flag("verbose", &c.Verbose)
	return errors.Join(errs...)
}
