/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package processor

import (
	"context"
	stderrors "errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/suparena/objectstore/datastore/filestore"
	"github.com/suparena/objectstore/errors"
)

// ErrUsage reports a malformed command line.
var ErrUsage = stderrors.New("usage")

// Processor runs commands against object files.
type Processor struct {
	out    io.Writer
	logger *slog.Logger
}

// New creates a processor printing results to out.
func New(out io.Writer, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{out: out, logger: logger}
}

type command struct {
	args int
	run  func(p *Processor, ctx context.Context, format string, args []string) error
}

var commands = map[string]command{
	"list":      {args: 1, run: (*Processor).list},
	"get":       {args: 2, run: (*Processor).get},
	"check":     {args: 1, run: (*Processor).check},
	"normalize": {args: 1, run: (*Processor).normalize},
	"convert":   {args: 2, run: (*Processor).convert},
}

// Commands returns the command names, sorted.
func Commands() []string {
	return slices.Sorted(maps.Keys(commands))
}

// Run parses the arguments of one command, e.g. ["list", "-format", "xml", "Player.dat"].
func (p *Processor) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: missing command, one of %s", ErrUsage, strings.Join(Commands(), ", "))
	}
	name := args[0]
	cmd, ok := commands[name]
	if !ok {
		return fmt.Errorf("%w: unknown command %q", ErrUsage, name)
	}

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	format := fs.String("format", "", "file format (xml or yaml), default from the file extension")
	if err := fs.Parse(args[1:]); err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}
	if fs.NArg() != cmd.args {
		return fmt.Errorf("%w: %s takes %d argument(s), got %d", ErrUsage, name, cmd.args, fs.NArg())
	}

	p.logger.DebugContext(ctx, "running command", "command", name, "args", fs.Args())
	return cmd.run(p, ctx, *format, fs.Args())
}

// codecFor returns the codec named by format, or the one matching the
// extension of path.
func codecFor(format, path string) (filestore.Codec, error) {
	if format == "" {
		format = strings.TrimPrefix(filepath.Ext(path), ".")
	}
	return filestore.CodecFor(format)
}

func (p *Processor) read(format, path string) ([]filestore.Record, filestore.Codec, error) {
	codec, err := codecFor(format, path)
	if err != nil {
		return nil, nil, err
	}
	// ReadRecords treats a missing file as empty, which would hide a mistyped path.
	if _, err := os.Stat(path); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrUsage, err)
	}
	records, err := filestore.ReadRecords(path, codec)
	if err != nil {
		return nil, nil, err
	}
	return records, codec, nil
}

func (p *Processor) list(ctx context.Context, format string, args []string) error {
	records, _, err := p.read(format, args[0])
	if err != nil {
		return err
	}
	for _, rec := range records {
		fmt.Fprintln(p.out, formatRecord(rec))
	}
	p.logger.DebugContext(ctx, "listed objects", "path", args[0], "count", len(records))
	return nil
}

func (p *Processor) get(ctx context.Context, format string, args []string) error {
	key, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return errors.NewValidationError("key", fmt.Sprintf("invalid key %q", args[1]))
	}
	records, codec, err := p.read(format, args[0])
	if err != nil {
		return err
	}
	for _, rec := range records {
		if rec.HasID && rec.ID == key {
			return codec.Encode(p.out, []filestore.Record{rec})
		}
	}
	return errors.NewNotFoundError(filepath.Base(args[0]), key)
}

func (p *Processor) check(ctx context.Context, format string, args []string) error {
	records, _, err := p.read(format, args[0])
	if err != nil {
		return err
	}

	seen := make(map[int64]int, len(records))
	var problems []string
	for i, rec := range records {
		if !rec.HasID {
			problems = append(problems, fmt.Sprintf("object %d has no key", i+1))
			continue
		}
		if first, dup := seen[rec.ID]; dup {
			problems = append(problems, fmt.Sprintf("object %d repeats key %d of object %d", i+1, rec.ID, first))
			continue
		}
		seen[rec.ID] = i + 1
	}

	for _, line := range problems {
		fmt.Fprintln(p.out, line)
	}
	fmt.Fprintf(p.out, "%d object(s), %d problem(s)\n", len(records), len(problems))
	if len(problems) > 0 {
		return errors.NewMalformedStorageError(args[0], fmt.Errorf("%d problem(s) found", len(problems)))
	}
	return nil
}

func (p *Processor) normalize(ctx context.Context, format string, args []string) error {
	records, codec, err := p.read(format, args[0])
	if err != nil {
		return err
	}
	filestore.SortRecords(records)
	if err := filestore.WriteRecords(args[0], codec, records); err != nil {
		return err
	}
	p.logger.InfoContext(ctx, "normalized object file", "path", args[0], "count", len(records))
	return nil
}

func (p *Processor) convert(ctx context.Context, format string, args []string) error {
	records, from, err := p.read(format, args[0])
	if err != nil {
		return err
	}
	to, err := codecFor("", args[1])
	if err != nil {
		return err
	}
	if err := filestore.WriteRecords(args[1], to, records); err != nil {
		return err
	}
	p.logger.InfoContext(ctx, "converted object file",
		"from", args[0], "to", args[1], "fromFormat", from.Format(), "toFormat", to.Format(), "count", len(records))
	return nil
}

// formatRecord renders rec as "key name=value ...", "-" standing for a
// missing key.
func formatRecord(rec filestore.Record) string {
	var b strings.Builder
	if rec.HasID {
		b.WriteString(strconv.FormatInt(rec.ID, 10))
	} else {
		b.WriteString("-")
	}
	for _, name := range slices.Sorted(maps.Keys(rec.Attributes)) {
		if name == "id" {
			continue
		}
		fmt.Fprintf(&b, " %s=%q", name, rec.Attributes[name])
	}
	if n := len(rec.Children); n > 0 {
		fmt.Fprintf(&b, " (%d children)", n)
	}
	return b.String()
}
