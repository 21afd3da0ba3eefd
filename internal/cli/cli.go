// Package cli implements the command-line interface for the riegeli
// binary.
package cli

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/riegeli-go/riegeli/pkg/chunkenc"
	"github.com/riegeli-go/riegeli/pkg/compression"
	"github.com/riegeli-go/riegeli/pkg/humanfmt"
	"github.com/riegeli-go/riegeli/pkg/records"
	"github.com/riegeli-go/riegeli/pkg/rlog"
)

// Run executes the CLI with the given arguments.
func Run(args []string) error {
	if len(args) == 0 {
		return errors.New("usage: riegeli <command> [options]\ncommands: write, cat, info")
	}

	switch args[0] {
	case "write":
		return runWrite(args[1:])
	case "cat":
		return runCat(args[1:])
	case "info":
		return runInfo(args[1:])
	default:
		return fmt.Errorf("unknown command: %s", args[0])
	}
}

func runWrite(args []string) error {
	fs := flag.NewFlagSet("write", flag.ContinueOnError)
	out := fs.String("out", "", "output record file")
	transpose := fs.Bool("transpose", false, "use the transposed chunk codec")
	zstd := fs.Bool("zstd", false, "compress chunks with zstd instead of storing them uncompressed")
	maxRecords := fs.Int("max-records-per-chunk", 0, "close a chunk after this many buffered records")
	atomic := fs.Bool("atomic", false, "write to a temporary file and rename into place on success")
	tmpDir := fs.String("tmp", os.TempDir(), "temporary directory used with --atomic")
	debug := fs.Bool("debug", false, "enable debug logging")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *out == "" {
		return errors.New("--out is required")
	}
	rlog.Init(*debug, true)

	opts := records.WriterOptions{Transpose: *transpose, MaxRecordsPerChunk: *maxRecords}
	if *zstd {
		opts.Compression = compression.Options{Type: compression.Zstd}
	}

	lines, err := readStdinLines()
	if err != nil {
		return err
	}

	writeAll := func(w *records.Writer) error {
		for i, line := range lines {
			if err := w.WriteRecord(line); err != nil {
				return fmt.Errorf("write record %d: %w", i, err)
			}
		}
		return nil
	}

	if *atomic {
		if err := records.WriteFileAtomic(*tmpDir, *out, opts, writeAll); err != nil {
			return fmt.Errorf("write %s: %w", *out, err)
		}
	} else {
		f, err := os.Create(*out)
		if err != nil {
			return fmt.Errorf("create %s: %w", *out, err)
		}
		defer f.Close()

		w, err := records.NewWriter(f, opts)
		if err != nil {
			return fmt.Errorf("open writer: %w", err)
		}
		if err := writeAll(w); err != nil {
			return err
		}
		if err := w.Close(); err != nil {
			return fmt.Errorf("close writer: %w", err)
		}
	}

	rlog.L().Info().Int("records", len(lines)).Str("out", *out).Msg("wrote records")
	return nil
}

func readStdinLines() ([][]byte, error) {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	var lines [][]byte
	for scanner.Scan() {
		lines = append(lines, append([]byte(nil), scanner.Bytes()...))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read stdin: %w", err)
	}
	return lines, nil
}

func runCat(args []string) error {
	fs := flag.NewFlagSet("cat", flag.ContinueOnError)
	recoverFlag := fs.Bool("recover", false, "skip past corrupted chunks instead of stopping on the first error")
	debug := fs.Bool("debug", false, "enable debug logging")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: riegeli cat [--recover] <file>")
	}
	rlog.Init(*debug, true)

	f, err := os.Open(fs.Arg(0))
	if err != nil {
		return err
	}
	defer f.Close()

	r, err := records.NewReader(f, chunkenc.AllFields())
	if err != nil {
		return fmt.Errorf("open reader: %w", err)
	}

	w := bufio.NewWriter(os.Stdout)
	defer w.Flush()

	for {
		rec, _, err := r.ReadRecord()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			if !*recoverFlag {
				return err
			}
			if _, rerr := r.Recover(64 * chunkenc.BlockSize); rerr != nil {
				return fmt.Errorf("recover after %v: %w", err, rerr)
			}
			continue
		}
		w.Write(rec)
		w.WriteByte('\n')
	}
}

func runInfo(args []string) error {
	fs := flag.NewFlagSet("info", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: riegeli info <file>")
	}

	f, err := os.Open(fs.Arg(0))
	if err != nil {
		return err
	}
	defer f.Close()

	r, err := records.NewReader(f, chunkenc.AllFields())
	if err != nil {
		return fmt.Errorf("open reader: %w", err)
	}

	var n int
	var totalBytes int64
	for {
		rec, _, err := r.ReadRecord()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		n++
		totalBytes += int64(len(rec))
	}
	fmt.Printf("records: %d\n", n)
	fmt.Printf("record bytes: %s\n", humanfmt.Bytes(totalBytes))
	if r.RecordType != nil {
		fmt.Printf("record type: %d bytes (FileMetadata chunk present)\n", len(r.RecordType))
	}
	return nil
}
