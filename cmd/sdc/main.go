// sdc inspects, converts and stores SDC documents.
//
//	sdc [--verbose] dump [--format F] FILE
//	sdc [--verbose] convert --from F --to F IN OUT
//	sdc [--verbose] store --db PATH put KEY FILE
//	sdc [--verbose] store --db PATH get [--format F] KEY
//	sdc [--verbose] store --db PATH ls
//	sdc [--verbose] store --db PATH rm KEY
//
// Formats are sdc (the binary encoding), msgpack, cbor, json and yaml. Input
// files are memory-mapped; output files are synced to disk before exit.
// SDC_LOG_LEVEL (debug, info, warn, error) sets the log level when --verbose
// is not given.
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/andreyvit/sdc"
	"github.com/andreyvit/sdc/mmap"
	"github.com/andreyvit/sdc/store"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "sdc: %v\n", err)
		os.Exit(1)
	}
}

type app struct {
	stdout io.Writer
	stderr io.Writer
	logger *slog.Logger
}

func run(args []string, stdout, stderr io.Writer) error {
	var verbose bool
	fs := pflag.NewFlagSet("sdc", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.SetInterspersed(false)
	fs.BoolVarP(&verbose, "verbose", "v", false, "log decoding and storage details")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: sdc [--verbose] dump|convert|store ...\n\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}

	a := &app{
		stdout: stdout,
		stderr: stderr,
		logger: slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: logLevel(verbose)})),
	}

	rest := fs.Args()
	if len(rest) == 0 {
		fs.Usage()
		return errors.New("missing command")
	}
	cmd, rest := rest[0], rest[1:]
	switch cmd {
	case "dump":
		return a.dump(rest)
	case "convert":
		return a.convert(rest)
	case "store":
		return a.store(rest)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func logLevel(verbose bool) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	var level slog.Level
	if s := os.Getenv("SDC_LOG_LEVEL"); s != "" && level.UnmarshalText([]byte(s)) == nil {
		return level
	}
	return slog.LevelWarn
}

func (a *app) readerOptions() sdc.ReaderOptions {
	return sdc.ReaderOptions{Logger: a.logger}
}

func formatFlag(fs *pflag.FlagSet, name string, value *string, usage string) {
	fs.StringVar(value, name, sdc.Binary.String(), usage+" (sdc, msgpack, cbor, json, yaml)")
}

func (a *app) dump(args []string) error {
	var format string
	fs := pflag.NewFlagSet("dump", pflag.ContinueOnError)
	fs.SetOutput(a.stderr)
	formatFlag(fs, "format", &format, "input format")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: sdc dump [--format F] FILE")
	}
	f, err := sdc.ParseFormat(format)
	if err != nil {
		return err
	}

	r, err := a.load(fs.Arg(0), f)
	if err != nil {
		return err
	}
	return r.Dump(a.stdout)
}

func (a *app) convert(args []string) error {
	var from, to string
	fs := pflag.NewFlagSet("convert", pflag.ContinueOnError)
	fs.SetOutput(a.stderr)
	formatFlag(fs, "from", &from, "input format")
	formatFlag(fs, "to", &to, "output format")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return errors.New("usage: sdc convert --from F --to F IN OUT")
	}
	ff, err := sdc.ParseFormat(from)
	if err != nil {
		return err
	}
	tf, err := sdc.ParseFormat(to)
	if err != nil {
		return err
	}

	r, err := a.load(fs.Arg(0), ff)
	if err != nil {
		return err
	}
	data, err := sdc.MarshalDocument(tf, r.Serializer())
	if err != nil {
		return err
	}
	if err := writeFile(fs.Arg(1), data); err != nil {
		return err
	}
	a.logger.Debug("converted", "in", fs.Arg(0), "out", fs.Arg(1), "from", ff, "to", tf, "entries", r.Len(), "bytes", len(data))
	return nil
}

func (a *app) store(args []string) error {
	var dbPath, format string
	var timeout time.Duration
	fs := pflag.NewFlagSet("store", pflag.ContinueOnError)
	fs.SetOutput(a.stderr)
	fs.StringVar(&dbPath, "db", "", "path to the Bolt database (required)")
	fs.DurationVar(&timeout, "timeout", 5*time.Second, "how long to wait for the database lock")
	fs.StringVar(&format, "format", "", "file format for put (default sdc), output format for get (default: dump)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if dbPath == "" {
		return errors.New("--db is required")
	}
	if fs.NArg() == 0 {
		return errors.New("usage: sdc store --db PATH put|get|ls|rm ...")
	}
	cmd, rest := fs.Arg(0), fs.Args()[1:]

	st, err := store.Open(dbPath, store.Options{
		Timeout:  timeout,
		ReadOnly: cmd == "get" || cmd == "ls",
		Reader:   a.readerOptions(),
		Logger:   a.logger,
	})
	if err != nil {
		return err
	}
	defer st.Close()

	switch cmd {
	case "put":
		if len(rest) != 2 {
			return errors.New("usage: sdc store --db PATH put KEY FILE")
		}
		f := sdc.Binary
		if format != "" {
			if f, err = sdc.ParseFormat(format); err != nil {
				return err
			}
		}
		r, err := a.load(rest[1], f)
		if err != nil {
			return err
		}
		changed, err := st.Put(rest[0], r.Serializer())
		if err != nil {
			return err
		}
		if !changed {
			a.logger.Info("document unchanged", "key", rest[0])
		}
		return nil

	case "get":
		if len(rest) != 1 {
			return errors.New("usage: sdc store --db PATH get [--format F] KEY")
		}
		r, err := st.Get(rest[0])
		if err != nil {
			return err
		}
		if format == "" {
			return r.Dump(a.stdout)
		}
		f, err := sdc.ParseFormat(format)
		if err != nil {
			return err
		}
		data, err := sdc.MarshalDocument(f, r.Serializer())
		if err != nil {
			return err
		}
		_, err = a.stdout.Write(data)
		return err

	case "ls":
		keys, err := st.Keys()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			_, err = io.WriteString(a.stdout, strings.Join(keys, "\n")+"\n")
		}
		return err

	case "rm":
		if len(rest) != 1 {
			return errors.New("usage: sdc store --db PATH rm KEY")
		}
		existed, err := st.Delete(rest[0])
		if err != nil {
			return err
		}
		if !existed {
			return fmt.Errorf("%w: document %q", sdc.ErrNotFound, rest[0])
		}
		return nil

	default:
		return fmt.Errorf("unknown store command %q", cmd)
	}
}

// load decodes a file through a read-only mapping. Decoded entries own their
// data, so the mapping is released before returning.
func (a *app) load(path string, f sdc.Format) (*sdc.Reader, error) {
	m, err := mmap.Open(path, mmap.SequentialAccess)
	if err != nil {
		return nil, err
	}
	defer m.Close()

	r, err := sdc.UnmarshalDocument(f, m.Bytes(), a.readerOptions())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

func writeFile(path string, data []byte) error {
	m, err := mmap.Create(path, len(data))
	if err != nil {
		return err
	}
	copy(m.Bytes(), data)
	if err := m.Sync(); err != nil {
		m.Close()
		return fmt.Errorf("%s: %w", path, err)
	}
	return m.Close()
}
