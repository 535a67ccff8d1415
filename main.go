package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/lookbusy1344/z80asm/assembler"
	"github.com/lookbusy1344/z80asm/config"
	"github.com/lookbusy1344/z80asm/objfile"
)

// Version information - can be overridden at build time with:
// go build -ldflags "-X main.Version=v1.2.3"
var (
	Version = "dev"     // Version number (set by git tag at build time)
	Commit  = "unknown" // Git commit hash
	Date    = "unknown" // Build date
)

func main() {
	var (
		showVersion = flag.Bool("version", false, "Show version information")
		showHelp    = flag.Bool("help", false, "Show help information")
		verboseMode = flag.Bool("verbose", false, "Verbose output")
		listingOnly = flag.Bool("listing-only", false, "Suppress object-file output; write only the listing")
		objOut      = flag.String("o", "", "Object file output path (default: source path with the configured object extension)")
		listOut     = flag.String("l", "", "Listing file output path (default: source path with the configured listing extension)")
		configPath  = flag.String("config", "", "Path to an alternate TOML configuration file")
		saveConfig  = flag.Bool("save-config", false, "Write the active configuration to the config file and exit")
		logFile     = flag.String("log", "", "Write verbose diagnostics to a log file (default: z80asm.log under the platform log directory)")
	)

	flag.Parse()

	if *showVersion {
		fmt.Printf("z80asm %s\n", Version)
		if Commit != "unknown" {
			fmt.Printf("Commit: %s\n", Commit)
		}
		if Date != "unknown" {
			fmt.Printf("Built: %s\n", Date)
		}
		os.Exit(0)
	}

	if *showHelp {
		printHelp()
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "z80asm: exactly one source file argument is required")
		printHelp()
		os.Exit(1)
	}
	sourcePath := args[0]

	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.LoadFrom(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "z80asm: %v\n", err)
		os.Exit(1)
	}

	if *saveConfig {
		var saveErr error
		path := *configPath
		if path == "" {
			path = config.GetConfigPath()
			saveErr = cfg.Save()
		} else {
			saveErr = cfg.SaveTo(path)
		}
		if saveErr != nil {
			fmt.Fprintf(os.Stderr, "z80asm: cannot save config to %q: %v\n", path, saveErr)
			os.Exit(1)
		}
		fmt.Printf("z80asm: configuration written to %s\n", path)
		os.Exit(0)
	}

	objPath := *objOut
	if objPath == "" {
		objPath = replaceExt(sourcePath, cfg.Assembler.ObjectExtension)
	}
	listPath := *listOut
	if listPath == "" {
		listPath = replaceExt(sourcePath, cfg.Assembler.ListingExtension)
	}

	opts := assembler.Options{
		MaxErrorCount: cfg.Assembler.MaxErrorCount,
		MaxPasses:     cfg.Assembler.MaxPasses,
	}

	var logWriter io.Writer = io.Discard
	if *verboseMode {
		logPath := *logFile
		if logPath == "" {
			logPath = filepath.Join(config.GetLogPath(), "z80asm.log")
		}
		logf, err := os.OpenFile(logPath, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0600) // #nosec G304 -- platform log directory or user-supplied path
		if err != nil {
			fmt.Fprintf(os.Stderr, "z80asm: cannot open log file %q: %v\n", logPath, err)
			os.Exit(1)
		}
		defer func() {
			if closeErr := logf.Close(); closeErr != nil {
				fmt.Fprintf(os.Stderr, "z80asm: warning: failed to close log file: %v\n", closeErr)
			}
		}()
		logWriter = logf
		verbosef(logWriter, "assembling %s\n", sourcePath)
	}

	result, err := assembler.Assemble(sourcePath, os.ReadFile, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "z80asm: %v\n", err)
		os.Exit(1)
	}

	for _, e := range result.Errors.Errors {
		fmt.Fprintln(os.Stderr, e.Error())
	}

	if err := os.WriteFile(listPath, []byte(result.Listing.String()+"\n"), 0644); err != nil { // #nosec G306 -- listing is not sensitive
		fmt.Fprintf(os.Stderr, "z80asm: cannot write listing %q: %v\n", listPath, err)
		os.Exit(1)
	}

	if result.Errors.HasErrors() {
		fmt.Fprintf(os.Stderr, "z80asm: %d error(s), object file not written\n", result.Errors.Count())
		os.Exit(1)
	}

	if !*listingOnly {
		f, err := os.Create(objPath) // #nosec G304 -- path is user-supplied CLI input, same trust boundary as the source file
		if err != nil {
			fmt.Fprintf(os.Stderr, "z80asm: cannot create object file %q: %v\n", objPath, err)
			os.Exit(1)
		}
		writeErr := objfile.Write(f, result.Code, result.Data, result.Symbols, result.Fixups, result.Idents)
		if closeErr := f.Close(); closeErr != nil && writeErr == nil {
			writeErr = closeErr
		}
		if writeErr != nil {
			fmt.Fprintf(os.Stderr, "z80asm: cannot write object file %q: %v\n", objPath, writeErr)
			os.Exit(1)
		}
	}

	if *verboseMode {
		verbosef(logWriter, "%d pass(es), %d code byte(s), %d data byte(s)\n",
			result.Passes, len(result.Code.Bytes), len(result.Data.Bytes))
	}

	os.Exit(0)
}

// verbosef writes a verbose-mode diagnostic to stderr and to the
// verbose log file opened in main.
func verbosef(logWriter io.Writer, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintf(os.Stderr, "z80asm: %s", msg)
	fmt.Fprintf(logWriter, "z80asm: %s", msg)
}

// replaceExt swaps path's extension for ext, deriving the default
// object and listing output paths from the source path.
func replaceExt(path, ext string) string {
	if i := strings.LastIndexByte(path, '.'); i >= 0 && strings.LastIndexByte(path, '/') < i {
		return path[:i] + ext
	}
	return path + ext
}

func printHelp() {
	fmt.Printf(`z80asm %s

Usage: z80asm [options] <source-file>

A two-pass assembler for the Z80 microprocessor. Produces a relocatable
object file (default extension %s) and a listing file (default
extension %s) alongside the source.

Options:
  -help            Show this help message
  -version         Show version information
  -verbose         Enable verbose output
  -listing-only    Suppress object-file output; write only the listing
  -o FILE          Object file output path (default: derived from source path)
  -l FILE          Listing file output path (default: derived from source path)
  -config FILE     Path to an alternate TOML configuration file
  -save-config     Write the active configuration to the config file and exit
  -log FILE        Write verbose diagnostics to a log file (default: under the platform log directory)

Examples:
  z80asm hello.asm
  z80asm -o build/hello.o80 -l build/hello.lst hello.asm
  z80asm -listing-only -verbose hello.asm

Exit code is 0 on success, 1 on any failure (missing argument, open
failure, or a non-zero assembly error count).
`, Version, config.DefaultConfig().Assembler.ObjectExtension, config.DefaultConfig().Assembler.ListingExtension)
}
