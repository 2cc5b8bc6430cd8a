package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/leapstack-labs/leapmapper/internal/cli/config"
	"github.com/leapstack-labs/leapmapper/internal/cli/output"
	"github.com/leapstack-labs/leapmapper/pkg/builder"
	"github.com/leapstack-labs/leapmapper/pkg/core"
	"github.com/leapstack-labs/leapmapper/pkg/parsing"
	"github.com/leapstack-labs/leapmapper/pkg/resources"
	"github.com/leapstack-labs/leapmapper/pkg/session"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// watchExtensions are the file types a description and its mappers are made of.
var watchExtensions = []string{".xml", ".yaml", ".yml", ".properties", ".env", ".json"}

const watchDebounce = 100 * time.Millisecond

// NewCheckCommand creates the check command.
func NewCheckCommand() *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "check [description...]",
		Short: "Assemble a configuration description and report the result",
		Long: `Assemble a configuration description the way an application would at startup.

Every section is processed in order: properties, settings, type aliases,
plugins, factories, environments, type handlers and mappers. Failures are
reported with the section being parsed. On success a summary of what was
registered is printed.`,
		Example: `  # Check the description named in leapmapper.yaml
  leapmapper check

  # Check a specific description against the production environment
  leapmapper check conf/config.xml --env production

  # Check several descriptions at once
  leapmapper check conf/reporting.xml conf/billing.xml

  # Re-check whenever a description or mapper file changes
  leapmapper check --watch`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			cfgs := []*config.Config{cmdCtx.Cfg}
			if len(args) > 0 {
				f := cmd.Flags().Lookup("resources")
				keepResources := f != nil && f.Changed
				cfgs = cfgs[:0]
				for _, arg := range args {
					cfg := *cmdCtx.Cfg
					cfg.Description = arg
					if !keepResources {
						cfg.Resources = filepath.Dir(arg)
					}
					cfgs = append(cfgs, &cfg)
				}
			}
			if !watch {
				return checkAll(cmdCtx, cfgs)
			}
			return watchCheck(cmd.Context(), cmdCtx, cfgs...)
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Re-check when description or mapper files change")

	return cmd
}

// Summary is the report of an assembled configuration.
type Summary struct {
	Description  string            `json:"description"`
	Environment  string            `json:"environment,omitempty"`
	DatabaseID   string            `json:"databaseId,omitempty"`
	Settings     map[string]string `json:"settings"`
	Aliases      map[string]string `json:"aliases"`
	TypeHandlers [][]string        `json:"typeHandlers"`
	Interceptors []string          `json:"interceptors"`
	Statements   []StatementInfo   `json:"statements"`
	Resources    []string          `json:"resources"`
	Pending      int               `json:"pending"`
}

// StatementInfo describes one mapped statement.
type StatementInfo struct {
	ID         string `json:"id"`
	Command    string `json:"command"`
	Resource   string `json:"resource"`
	DatabaseID string `json:"databaseId,omitempty"`
}

// checkAll assembles every description concurrently, then reports them in
// argument order. Each assembly is independent; one failing does not stop
// the others.
func checkAll(cmdCtx *CommandContext, cfgs []*config.Config) error {
	r := cmdCtx.Renderer

	assembled := make([]*session.Configuration, len(cfgs))
	errs := make([]error, len(cfgs))

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, cfg := range cfgs {
		g.Go(func() error {
			assembled[i], errs[i] = assemble(cfg, cmdCtx.Logger)
			return nil
		})
	}
	_ = g.Wait()

	summaries := make([]*Summary, 0, len(cfgs))
	for i, cfg := range cfgs {
		if errs[i] != nil {
			r.Error(errs[i].Error())
			continue
		}
		summaries = append(summaries, summarize(cfg, assembled[i]))
		if err := assembled[i].Close(); err != nil {
			cmdCtx.Logger.Warn("closing data source", "description", cfg.Description, "error", err)
		}
	}

	switch {
	case r.EffectiveMode() != output.ModeJSON:
		for _, s := range summaries {
			renderSummary(r, s)
		}
	case len(cfgs) > 1:
		if err := r.JSON(summaries); err != nil {
			return err
		}
	case len(summaries) == 1:
		if err := r.JSON(summaries[0]); err != nil {
			return err
		}
	}
	return errors.Join(errs...)
}

// assemble builds the configuration named by cfg.
func assemble(cfg *config.Config, logger *slog.Logger) (*session.Configuration, error) {
	format, err := parsing.ParseFormat(cfg.Format)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(cfg.Description)
	if err != nil {
		return nil, fmt.Errorf("opening description: %w", err)
	}
	defer func() { _ = f.Close() }()

	opts := []builder.Option{
		builder.WithLoader(resources.NewLoader(resources.NewOSVFS(cfg.Resources))),
		builder.WithLogger(logger),
		builder.WithResource(cfg.Description),
		builder.WithVariables(core.Properties(cfg.Variables)),
		builder.WithFormat(format),
	}
	if cfg.Environment != "" {
		opts = append(opts, builder.WithEnvironment(cfg.Environment))
	}
	return builder.Build(f, opts...)
}

// summarize reports what assembled registered beyond a default configuration.
func summarize(cfg *config.Config, assembled *session.Configuration) *Summary {
	baseline := session.NewConfiguration(nil, nil)

	s := &Summary{
		Description:  cfg.Description,
		DatabaseID:   assembled.DatabaseID(),
		Settings:     make(map[string]string),
		Aliases:      make(map[string]string),
		TypeHandlers: [][]string{},
		Interceptors: []string{},
		Statements:   []StatementInfo{},
		Resources:    assembled.LoadedResources(),
		Pending:      assembled.PendingCount(),
	}
	if env := assembled.Environment(); env != nil {
		s.Environment = env.ID
	}

	defaults := session.DefaultSettings().Values()
	for k, v := range assembled.Settings.Values() {
		if defaults[k] != v {
			s.Settings[k] = v
		}
	}

	builtin := baseline.TypeAliases().Aliases()
	for alias, t := range assembled.TypeAliases().Aliases() {
		if b, ok := builtin[alias]; ok && b.Name == t.Name {
			continue
		}
		s.Aliases[alias] = t.Name
	}

	known := make(map[string]bool)
	for _, e := range baseline.TypeHandlers().Entries() {
		known[handlerKey(e.GoType, e.SQLType, e.Handler)] = true
	}
	for _, e := range assembled.TypeHandlers().Entries() {
		if known[handlerKey(e.GoType, e.SQLType, e.Handler)] {
			continue
		}
		goType := "<nil>"
		if e.GoType != nil {
			goType = e.GoType.String()
		}
		s.TypeHandlers = append(s.TypeHandlers, []string{goType, e.SQLType.String(), fmt.Sprintf("%T", e.Handler)})
	}
	sort.Slice(s.TypeHandlers, func(i, j int) bool {
		return slices.Compare(s.TypeHandlers[i], s.TypeHandlers[j]) < 0
	})

	for _, ic := range assembled.Interceptors() {
		s.Interceptors = append(s.Interceptors, fmt.Sprintf("%T", ic))
	}

	for _, ms := range assembled.MappedStatements() {
		s.Statements = append(s.Statements, StatementInfo{
			ID:         ms.ID,
			Command:    ms.Command.String(),
			Resource:   ms.Resource,
			DatabaseID: ms.DatabaseID,
		})
	}
	sort.Slice(s.Statements, func(i, j int) bool { return s.Statements[i].ID < s.Statements[j].ID })

	return s
}

func handlerKey(goType any, sqlType core.SQLType, h any) string {
	return fmt.Sprintf("%v|%s|%T", goType, sqlType, h)
}

func renderSummary(r *output.Renderer, s *Summary) {
	r.Header(1, "Configuration "+s.Description)

	env := s.Environment
	if env == "" {
		env = "(none)"
	}
	r.Table([]string{"Environment", "Database ID"}, [][]string{{env, s.DatabaseID}})

	r.Header(2, "Settings")
	r.Table([]string{"Setting", "Value"}, sortedPairs(s.Settings))

	r.Header(2, "Type aliases")
	r.Table([]string{"Alias", "Type"}, sortedPairs(s.Aliases))

	r.Header(2, "Type handlers")
	r.Table([]string{"Go type", "SQL type", "Handler"}, s.TypeHandlers)

	r.Header(2, "Interceptors")
	rows := make([][]string, 0, len(s.Interceptors))
	for i, name := range s.Interceptors {
		rows = append(rows, []string{fmt.Sprint(i + 1), name})
	}
	r.Table([]string{"#", "Interceptor"}, rows)

	r.Header(2, "Statements")
	rows = make([][]string, 0, len(s.Statements))
	for _, st := range s.Statements {
		rows = append(rows, []string{st.ID, st.Command, st.Resource, st.DatabaseID})
	}
	r.Table([]string{"ID", "Command", "Resource", "Database ID"}, rows)

	if s.Pending > 0 {
		r.Warning(fmt.Sprintf("%d statement(s) still waiting on unresolved references", s.Pending))
	}
	r.Success(fmt.Sprintf("%d statement(s) from %d resource(s)", len(s.Statements), len(s.Resources)))
}

func sortedPairs(m map[string]string) [][]string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	rows := make([][]string, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, []string{k, m[k]})
	}
	return rows
}

// watchCheck runs the check once and again after every relevant change
// until ctx is done.
func watchCheck(ctx context.Context, cmdCtx *CommandContext, cfgs ...*config.Config) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	var dirs []string
	for _, cfg := range cfgs {
		for _, dir := range []string{filepath.Dir(cfg.Description), cfg.Resources} {
			if dir != "" && !slices.Contains(dirs, dir) {
				dirs = append(dirs, dir)
			}
		}
	}
	for _, dir := range dirs {
		if err := watchDir(watcher, dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}

	// Failures are reported, not returned, so the loop keeps going.
	_ = checkAll(cmdCtx, cfgs)
	cmdCtx.Logger.Info("watching for changes", "dirs", dirs)

	rerun := make(chan string, 1)
	var debounceTimer *time.Timer

	for {
		select {
		case <-ctx.Done():
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if !slices.Contains(watchExtensions, filepath.Ext(event.Name)) {
				continue
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			name := event.Name
			debounceTimer = time.AfterFunc(watchDebounce, func() {
				select {
				case rerun <- name:
				default:
				}
			})
		case name := <-rerun:
			cmdCtx.Logger.Info("change detected", "file", filepath.Base(name))
			_ = checkAll(cmdCtx, cfgs)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			cmdCtx.Logger.Warn("watcher error", "error", err)
		}
	}
}

// watchDir recursively adds a directory to the watcher.
func watchDir(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && len(d.Name()) > 0 && d.Name()[0] == '.' {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}
