package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/dibashthapa/jsbytecode/compiler"
	"github.com/dibashthapa/jsbytecode/manifest"
	"github.com/dibashthapa/jsbytecode/pkg/bytecode"
	"github.com/dibashthapa/jsbytecode/pkg/cache"
	"github.com/dibashthapa/jsbytecode/pkg/driver"
	"github.com/dibashthapa/jsbytecode/pkg/runtime"
	"github.com/dibashthapa/jsbytecode/server"
)

const version = "0.1.0"

// Exit codes
const (
	exitOK      = 0
	exitUsage   = 64
	exitParse   = 65
	exitRuntime = 70
	exitIO      = 74
)

var log = commonlog.GetLogger("lox.cli")

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// verbosity is a repeatable -v flag.
type verbosity int

func (v *verbosity) String() string   { return strconv.Itoa(int(*v)) }
func (v *verbosity) IsBoolFlag() bool { return true }
func (v *verbosity) Set(s string) error {
	if s == "true" {
		*v++
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	*v = verbosity(n)
	return nil
}

type config struct {
	backend driver.Backend
	dump    string
	output  string
	trace   bool
	cache   bool
	lsp     bool
	file    string

	cachePath string
	verbosity int
	logFile   string
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("lox", flag.ContinueOnError)
	fs.SetOutput(stderr)

	backend := fs.String("backend", "", "Execution backend: interpreter or vm (default from lox.toml)")
	dump := fs.String("dump", "", "Print tokens, ast or bytecode instead of running")
	output := fs.String("o", "", "Compile to a .loxc file instead of running")
	trace := fs.Bool("trace", false, "Log every VM instruction")
	noCache := fs.Bool("no-cache", false, "Do not use the compile cache")
	lsp := fs.Bool("lsp", false, "Start the language server on stdio")
	logFile := fs.String("log", "", "Log file (default stderr)")
	var verbose verbosity
	fs.Var(&verbose, "v", "Increase log verbosity (repeatable)")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: lox [options] [file]\n\n")
		fmt.Fprintf(stderr, "Runs a Lox script, a compiled .loxc file, or an interactive REPL.\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  lox                       # Start REPL\n")
		fmt.Fprintf(stderr, "  lox script.lox            # Run on the configured backend\n")
		fmt.Fprintf(stderr, "  lox -backend vm a.lox     # Run on the register VM\n")
		fmt.Fprintf(stderr, "  lox -dump bytecode a.lox  # Show the compiled program\n")
		fmt.Fprintf(stderr, "  lox -o a.loxc a.lox       # Compile only\n")
		fmt.Fprintf(stderr, "  lox a.loxc                # Run a compiled program\n")
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}
	if fs.NArg() > 1 {
		fs.Usage()
		return exitUsage
	}
	switch driver.DumpKind(*dump) {
	case "", driver.DumpTokens, driver.DumpAST, driver.DumpBytecode:
	default:
		fmt.Fprintf(stderr, "Error: unknown dump kind %q (want tokens, ast or bytecode)\n", *dump)
		return exitUsage
	}

	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitIO
	}
	m, err := manifest.FindAndLoad(cwd)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}
	if m == nil {
		m = manifest.Default(cwd)
	}

	cfg := config{
		dump:      *dump,
		output:    *output,
		trace:     *trace || m.Run.Trace,
		cache:     m.Cache.Enabled && !*noCache,
		lsp:       *lsp,
		file:      fs.Arg(0),
		cachePath: m.CachePath(),
		verbosity: m.Log.Verbosity + int(verbose),
		logFile:   m.LogFile(),
	}
	if *logFile != "" {
		cfg.logFile = *logFile
	}
	if cfg.file == "" {
		cfg.file = m.EntryPath()
	}

	name := m.Run.Backend
	if *backend != "" {
		name = *backend
	}
	if cfg.backend, err = driver.ParseBackend(name); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}

	commonlog.Initialize(cfg.verbosity, cfg.logFile)
	if cfg.trace {
		commonlog.SetMaxLevel(commonlog.Debug, "lox", "vm")
	}

	if cfg.lsp {
		if err := server.NewLSP(version).Run(); err != nil {
			fmt.Fprintf(stderr, "Server error: %v\n", err)
			return exitIO
		}
		return exitOK
	}

	if cfg.file == "" {
		return runREPL(cfg, stdin, stdout, stderr)
	}
	return runFile(cfg, stdout, stderr)
}

// runFile runs, dumps or compiles one file.
func runFile(cfg config, stdout, stderr io.Writer) int {
	data, err := os.ReadFile(cfg.file)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitIO
	}

	if strings.EqualFold(filepath.Ext(cfg.file), ".loxc") {
		prog, err := bytecode.UnmarshalProgram(data)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %s: %v\n", cfg.file, err)
			return exitIO
		}
		if cfg.dump == string(driver.DumpBytecode) {
			fmt.Fprint(stdout, prog.DisassembleWithName(filepath.Base(cfg.file)))
			return exitOK
		}
		return report(driver.RunProgram(prog, driver.Options{Stdout: stdout, Trace: cfg.trace}), stderr)
	}

	src := string(data)

	if cfg.dump != "" {
		out, err := driver.Dump(src, driver.DumpKind(cfg.dump))
		fmt.Fprint(stdout, out)
		return report(err, stderr)
	}

	if cfg.output != "" {
		prog, err := driver.Compile(src)
		if err != nil {
			return report(err, stderr)
		}
		encoded, err := bytecode.MarshalProgram(prog)
		if err != nil {
			return report(err, stderr)
		}
		if err := os.WriteFile(cfg.output, encoded, 0644); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitIO
		}
		log.Infof("wrote %s (%d instructions)", cfg.output, prog.Len())
		return exitOK
	}

	opts := driver.Options{Backend: cfg.backend, Stdout: stdout, Trace: cfg.trace}
	if cfg.cache && cfg.backend == driver.BackendVM {
		c, err := cache.Open(cfg.cachePath)
		if err != nil {
			// Running without the cache is always possible.
			log.Warningf("compile cache disabled: %s", err)
		} else {
			defer c.Close()
			opts.Cache = c
		}
	}
	return report(driver.Run(src, opts), stderr)
}

// runREPL reads one line at a time and runs it against a shared session.
// An empty line or end of input exits.
func runREPL(cfg config, stdin io.Reader, stdout, stderr io.Writer) int {
	session, err := driver.NewSession(driver.Options{Backend: cfg.backend, Stdout: stdout, Trace: cfg.trace})
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}

	scanner := bufio.NewScanner(stdin)
	for {
		fmt.Fprint(stdout, "> ")
		if !scanner.Scan() {
			break
		}
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			break
		}

		if cfg.dump != "" {
			out, err := driver.Dump(line, driver.DumpKind(cfg.dump))
			fmt.Fprint(stdout, out)
			report(err, stderr)
			continue
		}
		report(session.Exec(line), stderr)
	}
	fmt.Fprintln(stdout)

	if err := scanner.Err(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitIO
	}
	return exitOK
}

// report prints err and maps it to an exit code.
func report(err error, stderr io.Writer) int {
	if err == nil {
		return exitOK
	}
	fmt.Fprintln(stderr, err)

	var perr *compiler.ParseError
	var rerr *runtime.RuntimeError
	switch {
	case errors.As(err, &perr):
		return exitParse
	case errors.As(err, &rerr):
		return exitRuntime
	}
	return exitIO
}
