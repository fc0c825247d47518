/*
File    : miniscript-go/main/main.go

Package main is the command-line front end of the MiniScript
interpreter. It provides two modes of operation:
1. REPL mode (default): interactive read-eval-print loop
2. File mode: execute a MiniScript source file (.ms)
*/
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/miniscript-lang/miniscript-go/file"
	"github.com/miniscript-lang/miniscript-go/interp"
	"github.com/miniscript-lang/miniscript-go/repl"
	"github.com/miniscript-lang/miniscript-go/tac"
)

// BANNER is the text shown when the REPL starts.
var BANNER = `MiniScript — a clean, simple scripting language`

// Color definitions for file-execution output.
var (
	redColor = color.New(color.FgRed)
)

// timeLimit is the wall-clock budget in seconds for each run slice, set
// by the --time-limit flag (default 60).
var timeLimit float64

func main() {
	rootCmd := &cobra.Command{
		Use:     "miniscript [script.ms]",
		Short:   "MiniScript interpreter",
		Long:    "Run a MiniScript source file, or start an interactive REPL when no file is given.",
		Version: tac.LanguageVersion,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				startRepl()
				return nil
			}
			return runFile(args[0])
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().Float64Var(&timeLimit, "time-limit", 60,
		"seconds of wall-clock time per run slice")

	replCmd := &cobra.Command{
		Use:   "repl",
		Short: "Start the interactive REPL",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			startRepl()
		},
	}
	rootCmd.AddCommand(replCmd)

	if err := rootCmd.Execute(); err != nil {
		redColor.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

// startRepl launches the interactive session on stdin/stdout.
func startRepl() {
	r := repl.NewRepl(BANNER, tac.LanguageVersion)
	r.TimeLimit = timeLimit
	r.Start(os.Stdin, os.Stdout)
}

// runFile loads and executes one script, resuming across time slices
// until it finishes. Script errors have already been reported through
// the interpreter's error output, so they exit nonzero without another
// message.
func runFile(path string) error {
	resolved, err := file.ResolveScript(path)
	if err != nil {
		return err
	}
	src, err := file.ReadSource(resolved)
	if err != nil {
		return err
	}

	interpreter := interp.NewInterpreter(src,
		func(s string) { fmt.Println(s) },
		func(s string) { redColor.Fprintf(os.Stderr, "%s\n", s) })
	interpreter.ErrorContext = file.ErrorContext(resolved)

	if err := interpreter.Compile(); err != nil {
		os.Exit(1)
	}
	for !interpreter.Done() {
		if err := interpreter.RunUntilDone(timeLimit, false); err != nil {
			os.Exit(1)
		}
	}
	return nil
}
