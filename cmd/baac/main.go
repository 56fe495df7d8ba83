// Command baac is the Baa compiler core's CLI driver (spec.md §6.4): a
// thin external collaborator around internal/textio, internal/ir/pipeline
// and internal/backend/x64, exposing exactly the flags the core consumes.
// It does not implement Baa's own lexer/parser/semantic analyzer — its
// input is text IR (spec.md §6.2), the one textual format this repository
// owns end to end.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/fatih/color"

	"github.com/OmarAglan/baa/internal/backend/x64"
	"github.com/OmarAglan/baa/internal/config"
	"github.com/OmarAglan/baa/internal/diag"
	"github.com/OmarAglan/baa/internal/ir/pipeline"
	"github.com/OmarAglan/baa/internal/textio"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run implements the driver and returns a process exit code, kept separate
// from main so tests (and any future host, e.g. a worker pool) can invoke
// it without an os.Exit in the way.
func run(args []string) int {
	fs := flag.NewFlagSet("baac", flag.ContinueOnError)
	optLevel := fs.Int("O", -1, "optimization level (0, 1, or 2); overrides baa.yml's optLevel")
	verifyIR := fs.Bool("verify-ir", false, "run the IR verifier after every pipeline iteration")
	verifySSA := fs.Bool("verify-ssa", false, "run the SSA verifier after every pipeline iteration")
	emitIRPath := fs.String("emit-ir", "", "write the optimized module as text IR to this path")
	outPath := fs.String("o", "", "write assembly output to this path (default: stdout)")
	configPath := fs.String("config", "", "path to baa.yml (default: look beside the input file)")
	verbose := fs.Bool("v", false, "print pass-manager progress")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: baac [flags] <input.ir>")
		fs.PrintDefaults()
		return 2
	}
	inputPath := fs.Arg(0)

	reporter := diag.NewReporter(os.Stderr)
	logger := diag.NewLogger(os.Stderr, *verbose)

	cfg, err := resolveConfig(inputPath, *configPath, *optLevel)
	if err != nil {
		reporter.Errorf(diag.ErrTextIOParse, inputPath, "%s", err)
		reporter.Flush()
		return 1
	}

	src, err := os.ReadFile(inputPath)
	if err != nil {
		reporter.Errorf(diag.ErrTextIOParse, inputPath, "%s", err)
		reporter.Flush()
		return 1
	}

	logger.Banner(reporter.RunID(), fmt.Sprintf("%d", *cfg.OptLevel))

	mod, err := textio.Read(string(src))
	if err != nil {
		reporter.Errorf(diag.ErrTextIOParse, inputPath, "%s", err)
		reporter.Flush()
		return 1
	}

	opts := cfg.PipelineOptions()
	// --verify-ir/--verify-ssa are independent of baa.yml's debugGate,
	// which gates both verifiers together; the CLI flags can ask for
	// either alone.
	opts.VerifyIR = opts.VerifyIR || *verifyIR
	opts.VerifySSA = opts.VerifySSA || *verifySSA

	for _, f := range mod.Functions {
		if f.External {
			continue
		}
		res, err := pipeline.Run(f, opts)
		if err != nil {
			reporter.Errorf(diag.ErrPassNoConverge, "func "+f.Name, "%s", err)
			reporter.Flush()
			return 1
		}
		logger.Iteration(res.Iterations, res.Converged)
		for _, p := range res.PassesRun {
			logger.PassRan(p, arabicPassName(p), true)
		}
	}

	if *emitIRPath != "" {
		if err := os.WriteFile(*emitIRPath, []byte(runIDComment(reporter.RunID())+textio.Write(mod)), 0o644); err != nil {
			reporter.Errorf(diag.ErrTextIOParse, *emitIRPath, "write emit-ir output: %s", err)
			reporter.Flush()
			return 1
		}
	}

	asm, err := x64.EmitModule(mod)
	if err != nil {
		reporter.Errorf(diag.ErrISelUnsupported, inputPath, "%s", err)
		reporter.Flush()
		return 1
	}

	if *outPath == "" {
		fmt.Print(asm)
		return 0
	}
	if err := os.WriteFile(*outPath, []byte(asm), 0o644); err != nil {
		reporter.Errorf(diag.ErrEmitSymbol, *outPath, "write assembly output: %s", err)
		reporter.Flush()
		return 1
	}
	color.Green("wrote %s", *outPath)
	return 0
}

// resolveConfig loads baa.yml (explicit --config, or discovered beside the
// input file) and overlays the -O flag, per §A.2's documented "CLI flags
// always override config file values".
func resolveConfig(inputPath, explicitConfigPath string, optLevel int) (config.Config, error) {
	base := config.Default()
	cfgPath := explicitConfigPath
	if cfgPath == "" {
		cfgPath = config.Find(inputPath)
	}
	if cfgPath != "" {
		loaded, err := config.Load(cfgPath)
		if err != nil {
			return config.Config{}, err
		}
		base = config.Merge(base, loaded)
	}

	var override config.Config
	if optLevel >= 0 {
		override.OptLevel = &optLevel
	}
	return config.Merge(base, override), nil
}

func runIDComment(runID string) string {
	return "; run " + runID + "\n"
}

// arabicPassNames mirrors each pass's registered Arabic identifier
// (internal/ir/passes), kept here rather than threading pass objects
// through pipeline.Result, which only reports names (spec.md §9 requires
// the Arabic identifiers to survive into user-facing diagnostics).
var arabicPassNames = map[string]string{
	"mem2reg":      "رفع_إلى_SSA",
	"canonicalize": "توحيد_الـIR",
	"constfold":    "طي_الثوابت",
	"copyprop":     "نشر_النسخ",
	"cse":          "حذف_المكرر",
	"dce":          "حذف_الميت",
	"cfgsimplify":  "تبسيط_CFG",
	"out_of_ssa":   "خروج_من_SSA",
}

func arabicPassName(englishName string) string { return arabicPassNames[englishName] }
