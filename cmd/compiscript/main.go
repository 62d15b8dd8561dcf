// cmd/compiscript/main.go
package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/mattn/go-isatty"

	"compiscript/internal/ast"
	"compiscript/internal/cache"
	"compiscript/internal/frontend"
	"compiscript/internal/llvmir"
	"compiscript/internal/mips"
	"compiscript/internal/server"
	"compiscript/internal/tac"
)

const version = "1.0.0"

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	switch args[0] {
	case "--version", "-v", "version":
		fmt.Println("compiscript", version)
		return
	case "--help", "-h", "help":
		usage()
		return
	case "serve":
		runServe(args[1:])
		return
	}

	runCompile(args)
}

func usage() {
	fmt.Println(`compiscript <source.cps> [--emit-llvm] [--cache=<dsn>]
compiscript serve [--addr=:8080] [--cache=<dsn>]
compiscript version`)
}

// banner is the §6 stage-banner printer: ✓/✗/⚠ prefix, colorized only when
// stdout is a real terminal (mirroring the teacher's own coloring
// convention of never emitting ANSI codes into a piped/redirected stream).
type banner struct{ color bool }

func newBanner() banner {
	return banner{color: isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())}
}

func (b banner) ok(format string, args ...any) { b.line("✓", 32, format, args...) }
func (b banner) fail(format string, args ...any) { b.line("✗", 31, format, args...) }
func (b banner) warn(format string, args ...any) { b.line("⚠", 33, format, args...) }

func (b banner) line(symbol string, ansiColor int, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if b.color {
		fmt.Printf("\x1b[%dm%s\x1b[0m %s\n", ansiColor, symbol, msg)
		return
	}
	fmt.Printf("%s %s\n", symbol, msg)
}

func runCompile(args []string) {
	b := newBanner()
	var sourcePath, cacheDSN string
	emitLLVM := false
	for _, a := range args {
		switch {
		case a == "--emit-llvm":
			emitLLVM = true
		case strings.HasPrefix(a, "--cache="):
			cacheDSN = strings.TrimPrefix(a, "--cache=")
		case strings.HasPrefix(a, "-"):
			// unknown flag, ignore - this CLI has a small, fixed flag set
		default:
			sourcePath = a
		}
	}
	if sourcePath == "" {
		usage()
		os.Exit(1)
	}

	src, err := os.ReadFile(sourcePath)
	if err != nil {
		b.fail("read %s: %v", sourcePath, err)
		os.Exit(1)
	}

	var store *cache.Store
	if cacheDSN != "" {
		store, err = cache.Open(cacheDSN)
		if err != nil {
			b.warn("cache unavailable: %v", err)
		} else {
			defer store.Close()
		}
	}

	prog, err := frontend.Parse(string(src))
	if err != nil {
		b.fail("parse: %v", err)
		os.Exit(1)
	}
	b.ok("parsed %s", sourcePath)

	if err := os.WriteFile("ast.dot", []byte(ast.RenderDOT(prog)), 0o644); err != nil {
		b.warn("write ast.dot: %v", err)
	} else {
		b.ok("wrote ast.dot")
	}

	gen := tac.NewGenerator()
	code, err := gen.GenerateProgram(prog)
	if err != nil {
		b.fail("tac generation: %v", err)
		for _, w := range gen.ValidateTAC() {
			b.warn("%s", w)
		}
		os.Exit(1)
	}
	if err := os.WriteFile("output.tac", []byte(strings.Join(code, "\n")+"\n"), 0o644); err != nil {
		b.warn("write output.tac: %v", err)
	}
	stats := gen.GetCompleteStatistics()
	b.ok("generated TAC: %s instructions, %s temporaries, %s functions",
		humanize.Comma(int64(stats.InstructionCount)),
		humanize.Comma(int64(stats.TemporariesUsed)),
		humanize.Comma(int64(stats.FunctionsRegistered)))
	for _, w := range gen.ValidateTAC() {
		b.warn("%s", w)
	}

	if err := writeScopesJSON(gen.Instrs); err != nil {
		b.warn("write scopes.json: %v", err)
	} else {
		b.ok("wrote scopes.json")
	}

	mipsGen := mips.NewGenerator(gen.Instrs, gen.Classes)
	nodes, err := mipsGen.Generate()
	if err != nil {
		b.fail("mips generation: %v", err)
		os.Exit(1)
	}
	rendered := mips.RenderProgram(nodes)
	if err := os.WriteFile("output.s", []byte(strings.Join(rendered, "\n")+"\n"), 0o644); err != nil {
		b.warn("write output.s: %v", err)
	} else {
		b.ok("wrote output.s (%s lines)", humanize.Comma(int64(len(rendered))))
	}

	if emitLLVM {
		ir, err := llvmir.Render(gen.Instrs, gen.Classes)
		if err != nil {
			b.warn("llvm ir emission: %v", err)
		} else if err := os.WriteFile("output.ll", []byte(ir), 0o644); err != nil {
			b.warn("write output.ll: %v", err)
		} else {
			b.ok("wrote output.ll")
		}
	}

	if store != nil {
		key := cache.HashSource(string(src))
		_ = store.Put(key, &cache.Artifact{
			TACText: strings.Join(code, "\n"), MIPSText: strings.Join(rendered, "\n"),
			Stats: stats, CompileID: uuid.New(),
		}, time.Now())
		b.ok("cached under %s", key)
	}
}

func writeScopesJSON(instrs []tac.Instr) error {
	st := mips.BuildSymbolTable(instrs)
	out, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile("scopes.json", out, 0o644)
}

func runServe(args []string) {
	addr := ":8080"
	cacheDSN := ""
	for _, a := range args {
		switch {
		case strings.HasPrefix(a, "--addr="):
			addr = strings.TrimPrefix(a, "--addr=")
		case strings.HasPrefix(a, "--cache="):
			cacheDSN = strings.TrimPrefix(a, "--cache=")
		}
	}

	var store *cache.Store
	if cacheDSN != "" {
		s, err := cache.Open(cacheDSN)
		if err != nil {
			fmt.Fprintf(os.Stderr, "cache unavailable: %v\n", err)
		} else {
			store = s
			defer store.Close()
		}
	}

	srv := server.New(store)
	fmt.Println("compiscript analysis server listening on", addr)
	if err := http.ListenAndServe(addr, srv.Routes()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
