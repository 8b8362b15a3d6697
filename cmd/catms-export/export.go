package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/margalk/catms/internal/config"
	"github.com/margalk/catms/internal/export"
	"github.com/margalk/catms/internal/exportlog"
	"github.com/margalk/catms/internal/platform/auth"
	"github.com/margalk/catms/internal/source"
)

type exportOptions struct {
	dataType string
	format   string
	input    string
	filename string
	title    string
	out      string
	role     string
	user     string
}

func exportCmd() *cobra.Command {
	var opts exportOptions
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write one export file to disk",
		Long: "Export rows of one data type as CSV or PDF. Rows are read from --input " +
			"(a JSON array or an object with a data array) or from the configured row source.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger := newLogger(cfg.Env)
			a, err := newApp(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()
			_, err = runExport(cmd.Context(), a, opts, cmd.OutOrStdout())
			return err
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.dataType, "type", "t", "", "data type to export (see the types command)")
	f.StringVarP(&opts.format, "format", "f", "csv", "output format: csv or pdf")
	f.StringVarP(&opts.input, "input", "i", "", "JSON file with the rows; reads the row source when empty")
	f.StringVar(&opts.filename, "filename", "", "base file name, without date or extension")
	f.StringVar(&opts.title, "title", "", "PDF report title")
	f.StringVarP(&opts.out, "out", "o", "", "output directory (default EXPORT_DIR)")
	f.StringVar(&opts.role, "role", "admin", "role the export is made as; checked against the export policy")
	f.StringVar(&opts.user, "user", "", "user recorded in the export history (default $USER)")
	_ = cmd.MarkFlagRequired("type")

	return cmd
}

// runExport produces one file and writes it into the output directory,
// returning the final path.
func runExport(ctx context.Context, a *app, opts exportOptions, w io.Writer) (string, error) {
	dt, err := export.ParseDataType(opts.dataType)
	if err != nil {
		return "", err
	}
	format, err := export.ParseFormat(opts.format)
	if err != nil {
		return "", err
	}

	user := opts.user
	if user == "" {
		user = os.Getenv("USER")
	}
	if user == "" {
		user = "cli"
	}
	if !auth.MayExport(&auth.User{ID: user, Role: opts.role}, a.policy.Allowed(dt)) {
		return "", fmt.Errorf("role %q may not export %s", opts.role, dt)
	}

	var fetcher export.RowFetcher = a.fetcher
	if opts.input != "" {
		fetcher = source.FileFetcher{Path: opts.input}
	}
	rows, err := fetcher.FetchRows(ctx, dt)
	if err != nil {
		return "", fmt.Errorf("load %s rows: %w", dt, err)
	}

	f, err := a.exporter.Export(export.Request{
		DataType: dt,
		Rows:     rows,
		Filename: opts.filename,
		Title:    opts.title,
	}, format)

	dir := opts.out
	if dir == "" {
		dir = a.cfg.ExportDir
	}
	var path string
	if err == nil {
		path, err = export.SaveToDir(dir, f)
	}

	entry := exportlog.NewEntry(string(dt), string(format), user, err)
	entry.Role = opts.role
	if f != nil {
		entry.FileName = f.Name
		entry.RowCount = f.RowCount
	}
	if herr := a.history.Record(ctx, entry); herr != nil {
		a.logger.Warn().Err(herr).Msg("record export history")
	}
	if err != nil {
		return "", err
	}

	fmt.Fprintf(w, "wrote %s (%d rows)\n", path, f.RowCount)
	return path, nil
}

func typesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "List exportable data types and the roles allowed to export them",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			a, err := newApp(cmd.Context(), cfg, newLogger(cfg.Env))
			if err != nil {
				return err
			}
			defer a.Close()
			printTypes(cmd.OutOrStdout(), a)
			return nil
		},
	}
}

func printTypes(w io.Writer, a *app) {
	fmt.Fprintf(w, "%-14s %-20s %-8s %s\n", "TYPE", "NAME", "COLUMNS", "ROLES")
	fmt.Fprintf(w, "%-14s %-20s %-8s %s\n", "----", "----", "-------", "-----")
	for _, ds := range a.exporter.Registry().Datasets() {
		roles := strings.Join(a.policy.Allowed(ds.Type), ",")
		if roles == "" {
			roles = "-"
		}
		fmt.Fprintf(w, "%-14s %-20s %-8d %s\n", ds.Type, ds.Name, len(ds.Columns), roles)
	}
}
