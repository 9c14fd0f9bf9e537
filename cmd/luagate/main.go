// Package main is the entry point for the luagate script runner.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dshills/luagate/bind"
	"github.com/dshills/luagate/value"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	os.Exit(run())
}

type options struct {
	ConfigPath string
	Expr       string
	Timeout    time.Duration
	Files      []string
}

func run() int {
	opts := parseFlags()

	engOpts := bind.DefaultOptions()
	if opts.ConfigPath != "" {
		loaded, err := bind.LoadOptions(opts.ConfigPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		engOpts = loaded
	}

	eng, err := bind.New(
		bind.WithOptions(engOpts),
		bind.WithExecTimeout(opts.Timeout),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to initialize engine: %v\n", err)
		return 1
	}
	defer eng.Close()

	if err := jsonModule().Attach(eng); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to attach json module: %v\n", err)
		return 1
	}

	if opts.Expr != "" {
		if err := eng.DoString(opts.Expr); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
	}

	for _, file := range opts.Files {
		if err := eng.DoFile(file); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s: %v\n", file, err)
			return 1
		}
	}

	return 0
}

// jsonModule exposes JSON encode/decode helpers to scripts.
func jsonModule() *bind.Module {
	return bind.NewModule("json", "1.0.0").
		Function("json_decode", func(f *bind.Frame) error {
			s, err := f.Arg(0).AsString()
			if err != nil {
				return err
			}
			v, err := value.FromJSON(f.Engine().L, []byte(s))
			if err != nil {
				return err
			}
			return f.Return(v)
		}, bind.Arg{Name: "text"}).
		Function("json_encode", func(f *bind.Frame) error {
			data, err := f.Arg(0).ToJSON()
			if err != nil {
				return err
			}
			return f.Return(value.FromString(string(data)))
		}, bind.Arg{Name: "value"})
}

func parseFlags() options {
	var opts options
	var showVersion bool
	var showHelp bool

	flag.StringVar(&opts.ConfigPath, "config", "", "Path to TOML engine options file")
	flag.StringVar(&opts.ConfigPath, "c", "", "Path to TOML engine options file (shorthand)")
	flag.StringVar(&opts.Expr, "e", "", "Execute an inline chunk before any files")
	flag.DurationVar(&opts.Timeout, "timeout", 0, "Per-script execution limit (0 = none)")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&showVersion, "v", false, "Show version information (shorthand)")
	flag.BoolVar(&showHelp, "help", false, "Show help message")
	flag.BoolVar(&showHelp, "h", false, "Show help message (shorthand)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "luagate - sandboxed Lua script runner\n\n")
		fmt.Fprintf(os.Stderr, "Usage: luagate [options] [files...]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  luagate script.lua               Run a script\n")
		fmt.Fprintf(os.Stderr, "  luagate -e 'print(1+1)'          Run an inline chunk\n")
		fmt.Fprintf(os.Stderr, "  luagate -c engine.toml script.lua Run with engine options\n")
	}

	flag.Parse()

	if showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if showVersion {
		fmt.Printf("luagate %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", date)
		os.Exit(0)
	}

	opts.Files = flag.Args()
	return opts
}
