// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package host

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/z5labs/funcframework/config"
	"github.com/z5labs/funcframework/internal/try"
	"github.com/z5labs/funcframework/target"

	"github.com/spf13/cobra"
)

// LauncherArgsPlaceholder is the literal some IDE launch profiles pass
// through when their argument substitution has not been configured.
const LauncherArgsPlaceholder = "%LAUNCHER_ARGS%"

const launchSettingsDoc = "https://pkg.go.dev/github.com/z5labs/funcframework/host#hdr-Launch_settings"

// PlaceholderArgumentError is returned when [LauncherArgsPlaceholder]
// is passed on the command line.
type PlaceholderArgumentError struct{}

// Error implements the [builtin.error] interface.
func (PlaceholderArgumentError) Error() string {
	return fmt.Sprintf("received the unsubstituted launch argument %s; configure your launch settings, see %s", LauncherArgsPlaceholder, launchSettingsDoc)
}

// DuplicateFlagError is returned when a flag is given more than once.
type DuplicateFlagError struct {
	Flag string
}

// Error implements the [builtin.error] interface.
func (e DuplicateFlagError) Error() string {
	return fmt.Sprintf("flag --%s was specified more than once", e.Flag)
}

// ConflictingTargetError is returned when both a bare target argument
// and the --target flag are given.
type ConflictingTargetError struct {
	Argument string
	Flag     string
}

// Error implements the [builtin.error] interface.
func (e ConflictingTargetError) Error() string {
	return fmt.Sprintf("function target given both as argument %q and as --target %q", e.Argument, e.Flag)
}

// UnexpectedArgumentsError is returned when more than one bare argument is given.
type UnexpectedArgumentsError struct {
	Args []string
}

// Error implements the [builtin.error] interface.
func (e UnexpectedArgumentsError) Error() string {
	return fmt.Sprintf("expected at most one function target argument but got: %s", strings.Join(e.Args, " "))
}

// onceFlag is a string flag which remembers being set more than once.
type onceFlag struct {
	value     string
	set       bool
	duplicate bool
}

func (f *onceFlag) String() string { return f.value }
func (f *onceFlag) Type() string   { return "string" }

func (f *onceFlag) Set(s string) error {
	if f.set {
		f.duplicate = true
	}
	f.value = s
	f.set = true
	return nil
}

type commandLine struct {
	target *onceFlag
	port   *onceFlag
}

// source validates the parsed command line and returns the config
// values it explicitly sets.
func (cl commandLine) source(args []string) (config.Source, error) {
	for _, arg := range append([]string{cl.target.value, cl.port.value}, args...) {
		if arg == LauncherArgsPlaceholder {
			return nil, PlaceholderArgumentError{}
		}
	}
	if cl.target.duplicate {
		return nil, DuplicateFlagError{Flag: "target"}
	}
	if cl.port.duplicate {
		return nil, DuplicateFlagError{Flag: "port"}
	}
	if len(args) > 1 {
		return nil, UnexpectedArgumentsError{Args: args}
	}

	m := config.Map{}
	switch {
	case len(args) == 1 && cl.target.set:
		return nil, ConflictingTargetError{Argument: args[0], Flag: cl.target.value}
	case len(args) == 1:
		m["function"] = map[string]any{"target": args[0]}
	case cl.target.set:
		m["function"] = map[string]any{"target": cl.target.value}
	}
	if cl.port.set {
		m["http"] = map[string]any{"port": cl.port.value}
	}
	return m, nil
}

// Command returns the cobra command which hosts one of types.
func Command(types []*target.Type, opts ...Option) *cobra.Command {
	o := newOptions(opts...)
	cl := commandLine{
		target: &onceFlag{},
		port:   &onceFlag{},
	}

	cmd := &cobra.Command{
		Use:           "function [target]",
		Short:         "Serve a function over HTTP",
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			defer try.Recover(&err)

			flags, err := cl.source(args)
			if err != nil {
				return err
			}
			return run(cmd.Context(), types, o, flags)
		},
	}
	cmd.Flags().Var(cl.target, "target", "name of the function type to serve, overrides "+EnvFunctionTarget)
	cmd.Flags().Var(cl.port, "port", "port to listen on, overrides "+EnvPort)
	return cmd
}

// Main runs [Command] with the process arguments and exits
// with a non-zero status if the host fails.
func Main(types []*target.Type, opts ...Option) {
	cmd := Command(types, opts...)
	cmd.SetArgs(os.Args[1:])

	err := cmd.ExecuteContext(context.Background())
	if err == nil {
		return
	}
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
