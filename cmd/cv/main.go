package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"golang.org/x/term"

	"github.com/vanderheijden86/catview/pkg/config"
	"github.com/vanderheijden86/catview/pkg/debug"
	"github.com/vanderheijden86/catview/pkg/export"
	"github.com/vanderheijden86/catview/pkg/forest"
	"github.com/vanderheijden86/catview/pkg/ui"
	"github.com/vanderheijden86/catview/pkg/version"
)

func main() {
	help := flag.Bool("help", false, "Show help")
	versionFlag := flag.Bool("version", false, "Show version")
	catalogPath := flag.String("catalog", "", "Catalog file or directory to load (default: nearest .catalog/)")
	configPath := flag.String("config", "", "Config file (default: ~/.config/catview/config.yaml)")
	robotRows := flag.Bool("robot-rows", false, "Output the visible table rows for AI agents")
	robotForest := flag.Bool("robot-forest", false, "Output the full hierarchy for AI agents")
	format := flag.String("format", export.FormatJSON, "Robot output format: json or toon")
	collapse := flag.String("collapse", "", "Comma-separated record names to collapse (robot and export modes)")
	adoptOrphans := flag.Bool("adopt-orphans", false, "Show records with a missing parent as roots")
	exportMD := flag.String("export-md", "", "Export the visible rows to a Markdown file (e.g., catalog.md)")
	printMD := flag.Bool("print-md", false, "Print the visible rows as rendered Markdown")
	exportSVG := flag.String("export-svg", "", "Export the forest as an SVG diagram")
	exportPNG := flag.String("export-png", "", "Export the forest as a PNG diagram")
	noWatch := flag.Bool("no-watch", false, "Disable live reload")
	flag.Parse()

	if *help {
		fmt.Println("Usage: cv [options]")
		fmt.Println("\nA TUI viewer for catalog hierarchies: a collapsible tree beside a table of the rows it shows.")
		flag.PrintDefaults()
		os.Exit(0)
	}

	if *versionFlag {
		fmt.Printf("cv %s\n", version.Version)
		os.Exit(0)
	}

	outFormat, err := export.ParseFormat(*format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *adoptOrphans {
		cfg.Tree.AdoptOrphans = true
	}
	if *noWatch {
		cfg.Watch.Disabled = true
	}

	headless := *robotRows || *robotForest || *exportMD != "" || *printMD || *exportSVG != "" || *exportPNG != ""

	path, ok := resolveCatalogPath(*catalogPath, cfg)
	if !ok && !headless && isTerminal() {
		path, err = promptCatalogPath(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		ok = path != ""
		if ok {
			rememberCatalog(cfg, path, *configPath)
		}
	}
	if !ok {
		fmt.Fprintln(os.Stderr, "Error: no catalog found.")
		fmt.Fprintf(os.Stderr, "Pass --catalog, set %s, or run inside a project with a %s/ directory.\n", config.EnvCatalogDir, config.CatalogDirName)
		os.Exit(1)
	}

	opts := ui.SnapshotOptions{AdoptOrphans: cfg.Tree.AdoptOrphans}
	snapshot, err := ui.LoadSnapshot(context.Background(), path, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading catalog %s: %v\n", path, err)
		if errors.Is(err, forest.ErrCycle) {
			fmt.Fprintln(os.Stderr, "Fix the parentName chain so every record leads to a root.")
		}
		os.Exit(1)
	}

	if headless {
		ho := ui.HeadlessOptions{
			Columns:      cfg.Columns,
			ColumnFields: cfg.Table.ColumnFields,
			ExpandDepth:  cfg.UI.ExpandDepth,
			Collapse:     splitNames(*collapse),
		}
		if err := runHeadless(os.Stdout, os.Stderr, snapshot, ho, headlessTargets{
			robotRows:   *robotRows,
			robotForest: *robotForest,
			format:      outFormat,
			exportMD:    *exportMD,
			printMD:     *printMD,
			exportSVG:   *exportSVG,
			exportPNG:   *exportPNG,
			title:       catalogTitle(path),
		}); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	if err := runTUI(path, snapshot, cfg); err != nil {
		fmt.Printf("Error running catalog viewer: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(path string) (config.Config, error) {
	if path != "" {
		return config.LoadFrom(path)
	}
	return config.Load()
}

// resolveCatalogPath picks the catalog in priority order: flag, nearest
// .catalog/ (or CATVIEW_DIR), then the configured catalog.
func resolveCatalogPath(flagPath string, cfg config.Config) (string, bool) {
	if p := strings.TrimSpace(flagPath); p != "" {
		return p, true
	}
	if dir, ok := config.DetectCatalogDir(); ok {
		return dir, true
	}
	if cfg.Catalog != "" {
		return cfg.Catalog, true
	}
	return "", false
}

func isTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

func newForm(groups ...*huh.Group) *huh.Form {
	form := huh.NewForm(groups...).WithTheme(huh.ThemeDracula())
	if !isTerminal() {
		form = form.WithAccessible(true)
	}
	return form
}

const enterPathOption = "\x00path"

// promptCatalogPath asks which catalog to open, offering discovered ones
// first and falling back to a free-form path.
func promptCatalogPath(cfg config.Config) (string, error) {
	var choice string
	if found := config.DiscoverCatalogs(cfg); len(found) > 0 {
		options := make([]huh.Option[string], 0, len(found)+1)
		for _, p := range found {
			entry := ui.CatalogEntry{Path: p}
			options = append(options, huh.NewOption(fmt.Sprintf("%s  (%s)", entry.Name(), p), p))
		}
		options = append(options, huh.NewOption("Enter a path...", enterPathOption))
		form := newForm(huh.NewGroup(
			huh.NewSelect[string]().
				Title("No catalog here. Open which one?").
				Options(options...).
				Value(&choice),
		))
		if err := form.Run(); err != nil {
			return "", err
		}
		if choice != enterPathOption {
			return choice, nil
		}
	}

	var path string
	form := newForm(huh.NewGroup(
		huh.NewInput().
			Title("Catalog file or directory").
			Placeholder("./.catalog").
			Value(&path).
			Validate(func(s string) error {
				if strings.TrimSpace(s) == "" {
					return errors.New("path is required")
				}
				if _, err := os.Stat(strings.TrimSpace(s)); err != nil {
					return fmt.Errorf("cannot open %s", s)
				}
				return nil
			}),
	))
	if err := form.Run(); err != nil {
		return "", err
	}
	return strings.TrimSpace(path), nil
}

// rememberCatalog offers to store a prompted path as the default catalog.
func rememberCatalog(cfg config.Config, path, configPath string) {
	remember := false
	form := newForm(huh.NewGroup(
		huh.NewConfirm().
			Title("Open this catalog by default?").
			Affirmative("Yes").
			Negative("No").
			Value(&remember),
	))
	if err := form.Run(); err != nil || !remember {
		return
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	cfg.Catalog = path
	save := config.Save
	if configPath != "" {
		save = func(c config.Config) error { return config.SaveTo(c, configPath) }
	}
	if err := save(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not save config: %v\n", err)
	}
}

func splitNames(s string) []string {
	var names []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			names = append(names, part)
		}
	}
	return names
}

// catalogTitle names a catalog after its project directory.
func catalogTitle(path string) string {
	return ui.CatalogEntry{Path: filepath.Clean(path)}.Name()
}

type headlessTargets struct {
	robotRows   bool
	robotForest bool
	format      string
	exportMD    string
	printMD     bool
	exportSVG   string
	exportPNG   string
	title       string
}

func runHeadless(stdout, stderr io.Writer, s *ui.CatalogSnapshot, ho ui.HeadlessOptions, t headlessTargets) error {
	debug.Section("headless")
	debug.Dump("options", ho)
	res := ui.RunHeadless(s, ho)
	for _, name := range res.Unknown {
		fmt.Fprintf(stderr, "Warning: no record named %q\n", name)
	}
	now := time.Now()

	if t.robotRows {
		out := export.RobotRows{
			GeneratedAt: export.Timestamp(now),
			DataHash:    s.DataHash,
			Sources:     s.Sources,
			Columns:     res.Columns,
			Visible:     res.Visible,
			Rows:        res.Rows,
			Unattached:  s.Forest.Unattached,
		}
		if err := export.WriteRobot(stdout, out, t.format); err != nil {
			return err
		}
	}

	if t.robotForest {
		out := export.NewRobotForest(s.Forest)
		out.GeneratedAt = export.Timestamp(now)
		out.DataHash = s.DataHash
		out.Sources = s.Sources
		if err := export.WriteRobot(stdout, out, t.format); err != nil {
			return err
		}
	}

	report := export.MarkdownReport{
		Title:    t.title,
		Columns:  res.Columns,
		Rows:     res.Rows,
		Forest:   s.Forest,
		DataHash: s.DataHash,
	}
	if t.exportMD != "" {
		if err := export.SaveMarkdownToFile(report, t.exportMD); err != nil {
			return fmt.Errorf("exporting markdown: %w", err)
		}
		fmt.Fprintf(stderr, "Wrote %s\n", t.exportMD)
	}
	if t.printMD {
		width := 100
		if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
			width = w
		}
		rendered, err := export.RenderMarkdown(export.GenerateMarkdown(report), width)
		if err != nil {
			return fmt.Errorf("rendering markdown: %w", err)
		}
		fmt.Fprint(stdout, rendered)
	}

	expanded := expansionRule(res.Visible)
	for _, target := range []struct{ path, format string }{{t.exportSVG, "svg"}, {t.exportPNG, "png"}} {
		if target.path == "" {
			continue
		}
		err := export.SaveForestSnapshot(export.ForestSnapshotOptions{
			Path:     target.path,
			Format:   target.format,
			Title:    t.title,
			Forest:   s.Forest,
			DataHash: s.DataHash,
			Expanded: expanded,
		})
		if err != nil {
			return fmt.Errorf("exporting %s: %w", target.path, err)
		}
		fmt.Fprintf(stderr, "Wrote %s\n", target.path)
	}
	return nil
}

// expansionRule reproduces the headless tree's state for diagrams: a node
// is drawn open when one of its children made it into the visible set.
func expansionRule(visibleIDs []string) func(*forest.Node) bool {
	shown := make(map[string]bool, len(visibleIDs))
	for _, id := range visibleIDs {
		shown[id] = true
	}
	return func(n *forest.Node) bool {
		if n.IsLeaf() {
			return false
		}
		return shown[n.Children[0].ID()]
	}
}

// programSender forwards worker messages once the program exists.
type programSender struct {
	p *tea.Program
}

func (s *programSender) Send(msg tea.Msg) {
	if s.p != nil {
		s.p.Send(msg)
	}
}

func runTUI(path string, snapshot *ui.CatalogSnapshot, cfg config.Config) error {
	if os.Getenv("CV_DEBUG") != "" {
		f, err := tea.LogToFile(filepath.Join(os.TempDir(), "cv-debug.log"), "cv")
		if err == nil {
			defer f.Close()
			debug.SetOutput(f)
		}
	} else {
		log.SetOutput(io.Discard)
	}

	debug.Section("tui")
	debug.Dump("config", cfg)

	sender := &programSender{}
	opts := ui.SnapshotOptions{AdoptOrphans: cfg.Tree.AdoptOrphans}

	newWorker := func(p, lastHash string) (*ui.BackgroundWorker, error) {
		if cfg.Watch.Disabled {
			return nil, nil
		}
		return ui.NewBackgroundWorker(ui.WorkerConfig{
			CatalogPath:   p,
			DebounceDelay: cfg.Watch.Debounce,
			ForcePoll:     cfg.Watch.ForcePoll,
			Options:       opts,
			Sender:        sender,
			LastHash:      lastHash,
		})
	}

	worker, err := newWorker(path, snapshot.DataHash)
	if err != nil {
		log.Printf("warning: live reload disabled: %v", err)
	}

	var catalogs []ui.CatalogEntry
	active := filepath.Clean(path)
	seenActive := false
	for _, p := range config.DiscoverCatalogs(cfg) {
		isActive := filepath.Clean(p) == active
		seenActive = seenActive || isActive
		catalogs = append(catalogs, ui.CatalogEntry{Path: p, IsActive: isActive})
	}
	if !seenActive {
		catalogs = append([]ui.CatalogEntry{{Path: path, IsActive: true}}, catalogs...)
	}

	depth := cfg.UI.ExpandDepth
	m := ui.NewModel(snapshot, ui.Options{
		Columns:      cfg.Columns,
		ColumnFields: cfg.Table.ColumnFields,
		ExpandDepth:  &depth,
		SplitRatio:   cfg.UI.SplitRatio,
		Worker:       worker,
		Catalogs:     catalogs,
		Open: func(ctx context.Context, p string) (*ui.CatalogSnapshot, *ui.BackgroundWorker, error) {
			s, err := ui.LoadSnapshot(ctx, p, opts)
			if err != nil {
				return nil, nil, err
			}
			w, err := newWorker(p, s.DataHash)
			if err != nil {
				log.Printf("warning: live reload disabled for %s: %v", p, err)
				return s, nil, nil
			}
			if w != nil {
				if err := w.Start(); err != nil {
					w.Stop()
					log.Printf("warning: live reload disabled for %s: %v", p, err)
					return s, nil, nil
				}
			}
			return s, w, nil
		},
	})

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithoutSignalHandler())
	sender.p = p
	if worker != nil {
		if err := worker.Start(); err != nil {
			log.Printf("warning: live reload disabled: %v", err)
		}
	}

	runDone := make(chan struct{})
	defer close(runDone)

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-runDone:
			return
		case <-sigCh:
		}

		p.Quit()

		select {
		case <-runDone:
			return
		case <-sigCh:
		case <-time.After(5 * time.Second):
		}

		p.Kill()
	}()

	final, err := p.Run()
	if fm, ok := final.(ui.Model); ok {
		fm.Close()
	} else {
		m.Close()
	}
	return err
}
