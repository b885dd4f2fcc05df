// Command outcome runs scenario-driven entity-component simulations
// (spec, whole document): it loads and resolves a scenario directory and
// its modules, creates an empty SimModel named after the scenario (module
// scripts are not compiled into it), and either runs a fixed number of
// ticks, validates the scenario loads cleanly, or dumps an entity's
// storage. Grounded on
// ailang's cmd/ailang/main.go flag-based subcommand dispatch and
// fatih/color usage for status output.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/fatih/color"
	"go.uber.org/zap"

	"github.com/outcome-engine/outcome/internal/distr"
	"github.com/outcome-engine/outcome/internal/model"
	"github.com/outcome-engine/outcome/internal/value"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "run":
		runCmd(os.Args[2:])
	case "check":
		checkCmd(os.Args[2:])
	case "dump-storage":
		dumpStorageCmd(os.Args[2:])
	case "-h", "--help", "help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "unknown subcommand %q\n\n", os.Args[1])
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `outcome — scenario simulation runner

Usage:
  outcome run <scenario-dir> [-mods=<dir>] [-ticks=N]
  outcome check <scenario-dir> [-mods=<dir>]
  outcome dump-storage <scenario-dir> [-mods=<dir>] -entity=<name>`)
}

func newLogger() *zap.Logger {
	cfg := zap.NewDevelopmentConfig()
	cfg.DisableStacktrace = true
	log, err := cfg.Build()
	if err != nil {
		log = zap.NewNop()
	}
	return log
}

func loadModel(scenarioDir, modsDir string, log *zap.Logger) (*model.SimModel, error) {
	scenario, err := model.FromDirAt(scenarioDir, modsDir)
	if err != nil {
		return nil, fmt.Errorf("loading scenario: %w", err)
	}
	log.Info("scenario loaded",
		zap.String("name", scenario.Manifest.Name),
		zap.Int("modules", len(scenario.Modules)))
	return model.NewSimModel(scenario.Manifest.Name), nil
}

func runCmd(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	mods := fs.String("mods", "mods", "directory containing this scenario's mods")
	ticks := fs.Int("ticks", 10, "number of ticks to run")
	fs.Parse(args)
	if fs.NArg() != 1 {
		usage()
		os.Exit(1)
	}
	scenarioDir := fs.Arg(0)

	log := newLogger()
	defer log.Sync()

	m, err := loadModel(scenarioDir, *mods, log)
	if err != nil {
		color.Red("error: %v", err)
		os.Exit(1)
	}

	sim := distr.New(m, log)
	for i := 0; i < *ticks; i++ {
		if err := sim.RunTick(); err != nil {
			color.Red("tick %d error: %v", i, err)
			os.Exit(1)
		}
	}
	color.Green("ran %d ticks", *ticks)
}

func checkCmd(args []string) {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	mods := fs.String("mods", "mods", "directory containing this scenario's mods")
	fs.Parse(args)
	if fs.NArg() != 1 {
		usage()
		os.Exit(1)
	}
	log := newLogger()
	defer log.Sync()
	if _, err := loadModel(fs.Arg(0), *mods, log); err != nil {
		color.Red("error: %v", err)
		os.Exit(1)
	}
	color.Green("scenario OK")
}

func dumpStorageCmd(args []string) {
	fs := flag.NewFlagSet("dump-storage", flag.ExitOnError)
	mods := fs.String("mods", "mods", "directory containing this scenario's mods")
	entity := fs.String("entity", "", "entity name to dump")
	fs.Parse(args)
	if fs.NArg() != 1 || *entity == "" {
		usage()
		os.Exit(1)
	}
	log := newLogger()
	defer log.Sync()

	m, err := loadModel(fs.Arg(0), *mods, log)
	if err != nil {
		color.Red("error: %v", err)
		os.Exit(1)
	}
	sim := distr.New(m, log)
	st, ok := sim.EntityStorageByName(value.NewStringID(*entity))
	if !ok {
		color.Red("no such entity %q", *entity)
		os.Exit(1)
	}
	for k, v := range st.GetAllCoerceToString() {
		fmt.Printf("%s = %s\n", k, v)
	}
}
