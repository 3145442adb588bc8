package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nikbrunner/bookmarks/internal/engine"
	"github.com/nikbrunner/bookmarks/internal/exporter"
	"github.com/nikbrunner/bookmarks/internal/importer"
)

func (a *app) exportDir() string {
	if a.cfg.ExportDir != "" {
		return a.cfg.ExportDir
	}
	return exporter.DefaultExportDir()
}

func newExportCmd(a *app) *cobra.Command {
	var (
		format string
		out    string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export bookmarks as a JSON backup or a browser bookmark file",
		Long: `Export bookmarks. Without --out the file is written to the export
directory (default ~/Downloads) as bookmarks-backup-<date>.json or
bookmarks-<date>.html. Use --out - to write to stdout.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch strings.ToLower(format) {
			case "json":
				return a.exportJSON(out)
			case "html":
				return a.exportHTML(out)
			}
			return fmt.Errorf("unknown format %q (want json or html)", format)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "json", "json or html")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file, directory or - for stdout")
	return cmd
}

func (a *app) exportJSON(out string) error {
	switch {
	case out == "-":
		return a.eng.Export(a.out)
	case filepath.Ext(out) != "":
		f, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("create export file: %w", err)
		}
		if err := a.eng.Export(f); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Exported to %s\n", out)
		return nil
	}

	dir := out
	if dir == "" {
		dir = a.exportDir()
	}
	path, err := a.eng.ExportFile(dir)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Exported to %s\n", path)
	return nil
}

func (a *app) exportHTML(out string) error {
	doc, err := a.eng.Snapshot()
	if err != nil {
		return err
	}
	contents := exporter.ExportHTML(doc)

	if out == "-" {
		_, err := fmt.Fprint(a.out, contents)
		return err
	}
	path := out
	if filepath.Ext(out) == "" {
		dir := out
		if dir == "" {
			dir = a.exportDir()
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create export dir: %w", err)
		}
		path = filepath.Join(dir, exporter.HTMLFilename(time.Now()))
	}
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		return fmt.Errorf("write export file: %w", err)
	}
	fmt.Fprintf(a.out, "Exported %d bookmark(s), %d directory(ies) to %s\n", len(doc.Bookmarks), len(doc.Directories), path)
	return nil
}

func newImportCmd(a *app) *cobra.Command {
	var mode string

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import a JSON backup or a browser bookmark file",
		Long: `Import bookmarks from a JSON backup or a Netscape bookmark HTML file.
You are asked whether to merge with or replace the current bookmarks
unless --mode is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch strings.ToLower(mode) {
			case "":
			case "merge":
				a.importMode = engine.ImportMerge
			case "replace":
				a.importMode = engine.ImportReplace
			default:
				return fmt.Errorf("unknown import mode %q (want merge or replace)", mode)
			}
			defer func() { a.importMode = engine.ImportCancel }()

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read import file: %w", err)
			}
			doc, err := importer.Parse(args[0], data, time.Now())
			if err != nil {
				return err
			}

			result, err := a.eng.ImportDocument(cmd.Context(), doc)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Imported %d bookmark(s) (%s)", result.Imported, result.Mode)
			if result.Skipped > 0 {
				fmt.Fprintf(a.out, ", %d skipped", result.Skipped)
			}
			if result.Dropped > 0 {
				fmt.Fprintf(a.out, ", %d invalid", result.Dropped)
			}
			fmt.Fprintln(a.out, ".")
			return nil
		},
	}

	cmd.Flags().StringVarP(&mode, "mode", "m", "", "merge or replace without asking")
	return cmd
}
