package main

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/handiism/moviedata/internal/archive"
	"github.com/handiism/moviedata/internal/collection"
	"github.com/handiism/moviedata/internal/config"
	"github.com/handiism/moviedata/internal/convert"
	"github.com/handiism/moviedata/internal/history"
	ioutils "github.com/handiism/moviedata/internal/io"
	"github.com/handiism/moviedata/internal/model"
	"github.com/urfave/cli/v2"
)

// app carries what every command needs once the global flags are parsed.
type app struct {
	settings *config.Settings
	logger   *slog.Logger
	verbose  bool
	cli      *cli.App
}

func newApp() *cli.App {
	a := &app{}
	a.cli = &cli.App{
		Name:  "movies",
		Usage: "Read, write and convert movie collection files",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file",
			},
			&cli.StringFlag{
				Name:  "data-dir",
				Usage: "Directory for the history and archive databases (overrides config)",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Show verbose output",
			},
		},
		Before: a.setup,
		Commands: []*cli.Command{
			{
				Name:      "list",
				Usage:     "Print the movies in a collection file",
				ArgsUsage: "FILE",
				Action:    a.list,
			},
			{
				Name:      "add",
				Usage:     "Add a movie to a collection file, creating it if needed",
				ArgsUsage: "FILE",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "title", Usage: "Movie title", Required: true},
					&cli.IntFlag{Name: "year", Usage: "Release year", Value: model.UnknownYear},
					&cli.IntFlag{Name: "minutes", Usage: "Running time in minutes", Value: model.UnknownMinutes},
					&cli.StringFlag{Name: "acquired", Usage: "Date acquired (yyyy-mm-dd), today if empty"},
					&cli.StringFlag{Name: "notes", Usage: "Free-form notes"},
				},
				Action: a.add,
			},
			{
				Name:      "convert",
				Usage:     "Convert collection files to another format",
				ArgsUsage: "SRC...",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "to", Usage: "Target extension, e.g. .mqt or .xml", Required: true},
					&cli.StringFlag{Name: "out", Usage: "Output directory (defaults to each source's directory)"},
				},
				Action: a.convert,
			},
			{
				Name:      "export-xml",
				Usage:     "Export a collection file as XML",
				ArgsUsage: "FILE [XML]",
				Action:    a.exportXML,
			},
			{
				Name:      "import-xml",
				Usage:     "Import an XML export into a collection file",
				ArgsUsage: "XML FILE",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "sax", Usage: "Use the streaming reader"},
				},
				Action: a.importXML,
			},
			{
				Name:  "archive",
				Usage: "Snapshot a collection into the SQLite archive",
				Subcommands: []*cli.Command{
					{
						Name:      "export",
						Usage:     "Replace the archived snapshot with FILE",
						ArgsUsage: "FILE",
						Action:    a.archiveExport,
					},
					{
						Name:      "import",
						Usage:     "Write the archived snapshot to FILE",
						ArgsUsage: "FILE",
						Action:    a.archiveImport,
					},
					{
						Name:   "info",
						Usage:  "Describe the archived snapshot",
						Action: a.archiveInfo,
					},
				},
			},
			{
				Name:   "recent",
				Usage:  "List recently opened and written collection files",
				Action: a.recent,
			},
			{
				Name:   "formats",
				Usage:  "List the supported file formats",
				Action: a.formats,
			},
		},
	}
	return a.cli
}

func (a *app) setup(c *cli.Context) error {
	path := c.String("config")
	if path == "" {
		if p, err := config.DefaultPath(); err == nil {
			path = p
		}
	}

	a.settings = config.DefaultSettings()
	if path != "" {
		settings, err := config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		a.settings = settings
	}
	if dir := c.String("data-dir"); dir != "" {
		a.settings.DataDir = dir
	}

	a.verbose = c.Bool("verbose")
	level := a.settings.SlogLevel()
	if a.verbose {
		level = slog.LevelDebug
	}
	a.logger = slog.New(slog.NewTextHandler(c.App.ErrWriter, &slog.HandlerOptions{Level: level}))
	return nil
}

// report prints one progress line, skipping verbose lines unless asked for.
func (a *app) report(level convert.ProgressLevel, message string) {
	if level == convert.LevelVerbose && !a.verbose {
		return
	}

	prefix := ""
	switch level {
	case convert.LevelError:
		prefix = "✗ "
	case convert.LevelWarning:
		prefix = "! "
	case convert.LevelSuccess:
		prefix = "✓ "
	case convert.LevelInfo:
		prefix = "› "
	default:
		prefix = "  "
	}
	fmt.Fprintln(a.cli.Writer, prefix+message)
}

func (a *app) newContainer() *collection.Container {
	return collection.New(collection.WithLogger(a.logger))
}

// open reads a collection file, or an XML export when path ends in .xml.
func (a *app) open(path string) (*collection.Container, error) {
	c := a.newContainer()
	var status string
	var err error
	if strings.EqualFold(filepath.Ext(path), ".xml") {
		status, err = c.ImportDOM(path)
	} else {
		status, err = c.Load(path)
	}
	if err != nil {
		return nil, err
	}
	a.report(convert.LevelVerbose, status)
	return c, nil
}

// remember records path in the recent-files history. Failures are only logged.
func (a *app) remember(path string, c *collection.Container) {
	store, err := history.Open(a.settings.HistoryFile(), a.settings.MaxRecentFiles)
	if err != nil {
		a.logger.Warn("history unavailable", "err", err)
		return
	}
	defer store.Close()

	format := ""
	if cd, err := c.Registry().Lookup(path); err == nil {
		format = cd.Name()
	}
	if err := store.Touch(path, format, c.Len(), time.Now()); err != nil {
		a.logger.Warn("recording history failed", "path", path, "err", err)
	}
}

func (a *app) openArchive() (*archive.Store, error) {
	return archive.Open(a.settings.ArchiveFile())
}

func requireArgs(c *cli.Context, n int) error {
	if c.NArg() < n {
		return fmt.Errorf("%s: expected %s", c.Command.Name, c.Command.ArgsUsage)
	}
	return nil
}

func (a *app) list(c *cli.Context) error {
	if err := requireArgs(c, 1); err != nil {
		return err
	}
	coll, err := a.open(c.Args().First())
	if err != nil {
		return err
	}

	w := a.cli.Writer
	for m := range coll.All() {
		year := ""
		if m.Year != model.UnknownYear {
			year = fmt.Sprint(m.Year)
		}
		minutes := ""
		if m.Minutes != model.UnknownMinutes {
			minutes = fmt.Sprintf("%d min", m.Minutes)
		}
		fmt.Fprintf(w, "%-40s %4s %8s  %s\n", m.Title, year, minutes, model.FormatDate(m.Acquired))
	}
	fmt.Fprintf(w, "%d movies\n", coll.Len())
	return nil
}

func (a *app) add(c *cli.Context) error {
	if err := requireArgs(c, 1); err != nil {
		return err
	}
	path := c.Args().First()

	coll := a.newContainer()
	exists, err := ioutils.Exists(path)
	if err != nil {
		return err
	}
	if exists {
		if _, err := coll.Load(path); err != nil {
			return err
		}
	}

	var acquired time.Time
	if s := c.String("acquired"); s != "" {
		if acquired, err = model.ParseDate(s); err != nil {
			return fmt.Errorf("invalid acquired date %q: %w", s, err)
		}
	}
	m := model.NewMovie(c.String("title"), c.Int("year"), c.Int("minutes"), acquired, c.String("notes"))
	if err := m.Validate(); err != nil {
		return err
	}
	coll.Add(m)

	status, err := coll.Save(path)
	if err != nil {
		return err
	}
	a.report(convert.LevelInfo, fmt.Sprintf("Added %s", m))
	a.report(convert.LevelSuccess, status)
	a.remember(path, coll)
	return nil
}

func (a *app) convert(c *cli.Context) error {
	if err := requireArgs(c, 1); err != nil {
		return err
	}

	jobs := make([]convert.Job, 0, c.NArg())
	for _, src := range c.Args().Slice() {
		jobs = append(jobs, convert.JobFor(src, c.String("out"), c.String("to")))
	}
	if dir := c.String("out"); dir != "" {
		if err := ioutils.EnsureDir(dir); err != nil {
			return err
		}
	}

	manager := convert.NewManager(a.settings, func(event convert.ProgressEvent) {
		a.report(event.Level, event.Message)
	}).WithLogger(a.logger)

	store, err := history.Open(a.settings.HistoryFile(), a.settings.MaxRecentFiles)
	if err != nil {
		a.logger.Warn("history unavailable", "err", err)
	} else {
		defer store.Close()
		manager.WithHistory(store)
	}

	err = manager.Convert(c.Context, jobs)
	done, failed, total := manager.Progress()
	fmt.Fprintf(a.cli.Writer, "Converted %d/%d files", done, total)
	if failed > 0 {
		fmt.Fprintf(a.cli.Writer, " (%d failed)", failed)
	}
	fmt.Fprintln(a.cli.Writer)
	return err
}

func (a *app) exportXML(c *cli.Context) error {
	if err := requireArgs(c, 1); err != nil {
		return err
	}
	coll, err := a.open(c.Args().Get(0))
	if err != nil {
		return err
	}
	status, err := coll.ExportXML(c.Args().Get(1))
	if err != nil {
		return err
	}
	a.report(convert.LevelSuccess, status)
	return nil
}

func (a *app) importXML(c *cli.Context) error {
	if err := requireArgs(c, 2); err != nil {
		return err
	}
	src, dst := c.Args().Get(0), c.Args().Get(1)

	coll := a.newContainer()
	read := coll.ImportDOM
	if c.Bool("sax") {
		read = coll.ImportSAX
	}
	status, err := read(src)
	if err != nil {
		return err
	}
	a.report(convert.LevelVerbose, status)

	if status, err = coll.Save(dst); err != nil {
		return err
	}
	a.report(convert.LevelSuccess, status)
	a.remember(dst, coll)
	return nil
}

func (a *app) archiveExport(c *cli.Context) error {
	if err := requireArgs(c, 1); err != nil {
		return err
	}
	coll, err := a.open(c.Args().First())
	if err != nil {
		return err
	}

	store, err := a.openArchive()
	if err != nil {
		return err
	}
	defer store.Close()

	status, err := store.Export(c.Context, coll)
	if err != nil {
		return err
	}
	a.report(convert.LevelSuccess, status)
	return nil
}

func (a *app) archiveImport(c *cli.Context) error {
	if err := requireArgs(c, 1); err != nil {
		return err
	}
	path := c.Args().First()

	store, err := a.openArchive()
	if err != nil {
		return err
	}
	defer store.Close()

	coll := a.newContainer()
	status, err := store.Import(c.Context, coll)
	if err != nil {
		return err
	}
	a.report(convert.LevelVerbose, status)

	if status, err = coll.Save(path); err != nil {
		return err
	}
	a.report(convert.LevelSuccess, status)
	a.remember(path, coll)
	return nil
}

func (a *app) archiveInfo(c *cli.Context) error {
	store, err := a.openArchive()
	if err != nil {
		return err
	}
	defer store.Close()

	snap, ok, err := store.Info(c.Context)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(a.cli.Writer, "Archive is empty")
		return nil
	}
	n, err := store.Count(c.Context)
	if err != nil {
		return err
	}
	source := snap.Source
	if source == "" {
		source = "(untitled)"
	}
	fmt.Fprintf(a.cli.Writer, "%d movies from %s, archived %s\n", n, source, snap.ArchivedAt.Local().Format(time.DateTime))
	return nil
}

func (a *app) recent(c *cli.Context) error {
	store, err := history.Open(a.settings.HistoryFile(), a.settings.MaxRecentFiles)
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.Recent()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(a.cli.Writer, "No recent files")
		return nil
	}
	for _, e := range entries {
		fmt.Fprintf(a.cli.Writer, "%s  %-15s %5d  %s\n", e.At.Local().Format("2006-01-02 15:04"), e.Format, e.Count, e.Path)
	}
	return nil
}

func (a *app) formats(c *cli.Context) error {
	registry := a.newContainer().Registry()
	for _, ext := range registry.Extensions() {
		cd, err := registry.Lookup("x" + ext)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.cli.Writer, "%-6s %s\n", ext, cd.Name())
	}
	fmt.Fprintf(a.cli.Writer, "%-6s %s\n", ".xml", "XML (export-xml, import-xml)")
	return nil
}
