package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/jingkaihe/skillgraph/pkg/logger"
	"github.com/jingkaihe/skillgraph/pkg/presenter"
)

// WatchConfig holds configuration for the watch command
type WatchConfig struct {
	DebounceTime int
	Verbosity    string
}

// NewWatchConfig creates a new WatchConfig with default values
func NewWatchConfig() *WatchConfig {
	return &WatchConfig{
		DebounceTime: 500,
		Verbosity:    "normal",
	}
}

// Validate validates the WatchConfig and returns an error if invalid
func (c *WatchConfig) Validate() error {
	switch c.Verbosity {
	case "quiet", "normal", "verbose":
	default:
		return errors.Errorf("invalid verbosity level: %s, must be one of: quiet, normal, verbose", c.Verbosity)
	}
	if c.DebounceTime < 0 {
		return errors.Errorf("debounce time cannot be negative: %d", c.DebounceTime)
	}
	return nil
}

// FileEvent represents a file system event with additional metadata
type FileEvent struct {
	Path string
	Op   fsnotify.Op
	Time time.Time
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Rebuild the skill graph whenever SKILL.md files change",
	Long: `Watches the configured skill and plugin directories and rebuilds the
relationship graph after SKILL.md files are created, modified or removed.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		config := getWatchConfigFromFlags(cmd)
		if err := config.Validate(); err != nil {
			return err
		}
		presenter.SetQuiet(config.Verbosity == "quiet")

		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		return runWatchMode(ctx, config)
	},
}

func init() {
	defaults := NewWatchConfig()
	watchCmd.Flags().IntP("debounce", "d", defaults.DebounceTime, "Debounce time in milliseconds for file change events")
	watchCmd.Flags().StringP("verbosity", "v", defaults.Verbosity, "Verbosity level (quiet, normal, verbose)")
}

// getWatchConfigFromFlags extracts watch configuration from command flags
func getWatchConfigFromFlags(cmd *cobra.Command) *WatchConfig {
	config := NewWatchConfig()

	if debounceTime, err := cmd.Flags().GetInt("debounce"); err == nil {
		config.DebounceTime = debounceTime
	}
	if verbosity, err := cmd.Flags().GetString("verbosity"); err == nil {
		config.Verbosity = verbosity
	}

	return config
}

// watchRoots returns the existing directories to watch
func watchRoots() []string {
	var roots []string
	for _, dir := range append(append([]string{}, cfg.Skills.Dirs...), cfg.Skills.PluginDirs...) {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			roots = append(roots, dir)
		}
	}
	return roots
}

func runWatchMode(ctx context.Context, config *WatchConfig) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "failed to create file watcher")
	}
	defer watcher.Close()

	roots := watchRoots()
	if len(roots) == 0 {
		return errors.New("no skill directories exist to watch")
	}
	for _, root := range roots {
		if err := addRecursive(ctx, watcher, root); err != nil {
			return err
		}
	}

	a := newApp(ctx)
	defer a.Close()

	rebuild := func() {
		g, err := a.engine.Graph(ctx)
		if err != nil {
			presenter.Error(err, "failed to rebuild graph")
			return
		}
		presenter.Success(fmt.Sprintf("Graph rebuilt: %d edges, %d chains", g.Metrics.EdgeCount, len(g.Chains)))
		if config.Verbosity == "verbose" {
			presenter.Graph(g)
		}
	}
	rebuild()

	events := make(chan FileEvent)
	debounced := make(chan FileEvent)
	go debounceFileEvents(ctx, events, debounced, time.Duration(config.DebounceTime)*time.Millisecond)

	presenter.Info("Watching for skill changes... Press Ctrl+C to stop")
	logger.G(ctx).WithField("roots", roots).Info("skill watcher initialized")

	for {
		select {
		case <-ctx.Done():
			return nil
		case event := <-debounced:
			logger.G(ctx).WithFields(map[string]any{
				"file":      event.Path,
				"operation": event.Op.String(),
			}).Debug("skill change detected")
			if config.Verbosity != "quiet" {
				presenter.Info(fmt.Sprintf("Change detected: %s (%s)", event.Path, event.Op))
			}
			rebuild()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := addRecursive(ctx, watcher, event.Name); err != nil {
						logger.G(ctx).WithError(err).Warn("failed to watch new directory")
					}
				}
			}
			if !relevantEvent(event) {
				continue
			}
			select {
			case events <- FileEvent{Path: event.Name, Op: event.Op, Time: time.Now()}:
			case <-ctx.Done():
				return nil
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.G(ctx).WithError(err).Error("error watching files")
		}
	}
}

// relevantEvent reports whether an event can change the catalog
func relevantEvent(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	// removing or renaming a bundle directory drops its SKILL.md without an event for the file
	if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
		return true
	}
	return filepath.Base(event.Name) == "SKILL.md"
}

func addRecursive(ctx context.Context, watcher *fsnotify.Watcher, root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		if info.Name() == ".git" {
			return filepath.SkipDir
		}
		logger.G(ctx).WithField("directory", path).Debug("adding directory to watcher")
		return watcher.Add(path)
	})
}

// debounceFileEvents coalesces bursts of events into one, emitted after the
// input has been quiet for delay. The last event of a burst is forwarded.
// Input keeps draining while a ready event waits for the reader.
func debounceFileEvents(ctx context.Context, input <-chan FileEvent, output chan<- FileEvent, delay time.Duration) {
	var (
		timer   *time.Timer
		timerC  <-chan time.Time
		out     chan<- FileEvent
		pending FileEvent
	)
	stop := func() {
		if timer != nil {
			timer.Stop()
		}
	}

	for {
		select {
		case event, ok := <-input:
			if !ok {
				stop()
				return
			}
			pending = event
			out = nil
			stop()
			timer = time.NewTimer(delay)
			timerC = timer.C
		case <-timerC:
			timerC = nil
			out = output
		case out <- pending:
			out = nil
		case <-ctx.Done():
			stop()
			return
		}
	}
}
