// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/alecthomas/kong"
	"github.com/hashicorp/unbox"
)

// CLI are the cli parameters for the unbox binary.
type CLI struct {
	Archive           string           `arg:"" name:"archive" help:"Path to archive. (\"-\" for STDIN)"`
	Destination       string           `arg:"" name:"destination" optional:"" default:"." help:"Output directory/file."`
	Analyze           bool             `short:"a" help:"Only report the detected format, do not extract."`
	CacheInMemory     bool             `help:"Cache spooled input in memory instead of a temporary file."`
	CreateDestination bool             `short:"c" default:"true" negatable:"" help:"Create destination directory if it does not exist."`
	DenySymlinks      bool             `short:"D" help:"Deny symlink extraction."`
	Format            string           `optional:"" help:"Skip detection and force a format (e.g. \"zip\", \"tar.gz\")."`
	ListFormats       bool             `help:"List the supported formats and exit."`
	MaxFiles          int64            `optional:"" default:"100000" help:"Maximum files that are extracted before stop. (disable check: -1)"`
	MaxExtractionSize int64            `optional:"" default:"1073741824" help:"Maximum extraction size allowed (in bytes). (disable check: -1)"`
	MaxExtractionTime int64            `optional:"" default:"-1" help:"Maximum time an extraction may take (in seconds). (disable check: -1)"`
	MaxInputSize      int64            `optional:"" default:"1073741824" help:"Maximum input size allowed (in bytes). (disable check: -1)"`
	NoUntar           bool             `help:"Do not unpack tar content found inside compressed input."`
	Overwrite         bool             `short:"O" help:"Overwrite if exist."`
	Report            bool             `short:"R" optional:"" default:"false" help:"Print the extraction report as JSON after extraction."`
	Workers           int              `short:"j" optional:"" default:"1" help:"Number of parallel workers for archives that support it."`
	Verbose           bool             `short:"v" optional:"" help:"Verbose logging."`
	Version           kong.VersionFlag `short:"V" optional:"" help:"Print release version information."`
}

// Run is the entrypoint into unbox as a cli tool.
func Run(version, commit, date string) {
	ctx := context.Background()
	var cli CLI
	kong.Parse(&cli,
		kong.Description("Extract an archive based on what it contains, not what it is named"),
		kong.UsageOnError(),
		kong.Vars{
			"version": fmt.Sprintf("%s (%s), commit %s, built at %s", filepath.Base(os.Args[0]), version, commit, date),
		},
	)

	if cli.ListFormats {
		for _, f := range unbox.Formats() {
			fmt.Printf("%-12s %s\n", f.Ext(), f)
		}
		return
	}

	logLevel := slog.LevelError
	if cli.Verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))

	archive, closeArchive, err := openArchive(cli.Archive)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer closeArchive()

	if cli.Analyze {
		format, _, err := unbox.Detect(archive)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("%s: %s\n", cli.Archive, format)
		return
	}

	opts := []unbox.ConfigOption{
		unbox.WithCacheInMemory(cli.CacheInMemory),
		unbox.WithCreateDestination(cli.CreateDestination),
		unbox.WithDenySymlinkExtraction(cli.DenySymlinks),
		unbox.WithLogger(logger),
		unbox.WithMaxExtractionSize(cli.MaxExtractionSize),
		unbox.WithMaxFiles(cli.MaxFiles),
		unbox.WithMaxInputSize(cli.MaxInputSize),
		unbox.WithNoUntarAfterDecompression(cli.NoUntar),
		unbox.WithOverwrite(cli.Overwrite),
		unbox.WithWorkers(cli.Workers),
	}
	if cli.Format != "" {
		format, err := unbox.ParseFormat(cli.Format)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		opts = append(opts, unbox.WithFormat(format))
	}
	cfg := unbox.NewConfig(opts...)

	if cli.MaxExtractionTime > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Second*time.Duration(cli.MaxExtractionTime))
		defer cancel()
	}

	report, err := unbox.Unpack(ctx, archive, cli.Destination, unbox.NewDisk(), cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error during extraction: %v\n", err)
		os.Exit(1)
	}

	// Skipped entries are not fatal, but they are not silent either.
	for _, s := range report.Skipped {
		fmt.Fprintf(os.Stderr, "skipped %s: %s\n", s.Name, s.Reason)
	}
	if cli.Report {
		fmt.Println(report)
	}
}

// openArchive opens the named archive, with "-" standing for stdin.
func openArchive(name string) (io.Reader, func() error, error) {
	if name == "-" {
		return bufio.NewReader(os.Stdin), func() error { return nil }, nil
	}
	f, err := os.Open(name)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot open archive: %w", err)
	}
	return f, f.Close, nil
}
