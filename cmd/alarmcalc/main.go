// Machinelog - Machine Records and PLC Alarm Tooling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/machinelog

// Command alarmcalc converts Siemens PLC user alarms to DB bit addresses and
// back without running the server.
//
//	alarmcalc to-address 701661
//	alarmcalc to-alarm DB2.DBX319.5
//	alarmcalc --family 828D to-address 700123 700200
//	alarmcalc --json to-alarm DB1600.DBX15.3
//	alarmcalc --brief to-address 700000 700001
//
// Text output prints each conversion followed by its calculation, indented.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/tomtom215/machinelog/internal/alarm"
)

// options holds the persistent flags shared by every subcommand.
type options struct {
	family string
	asJSON bool
	brief  bool
}

func main() {
	os.Exit(execute(newRootCmd()))
}

// execute runs cmd and returns the exit code. Errors already written next
// to their input are not repeated on stderr.
func execute(cmd *cobra.Command) int {
	err := cmd.Execute()
	if err == nil {
		return 0
	}
	var reported *reportedError
	if !errors.As(err, &reported) {
		_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "Error:", err)
	}
	return 1
}

// reportedError marks conversion failures already printed inline.
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "alarmcalc",
		Short:         "Convert SINUMERIK user alarms to and from DB bit addresses",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.family, "family", "f", "840D", "PLC family: 840D or 828D")
	root.PersistentFlags().BoolVar(&opts.asJSON, "json", false, "print results as JSON")
	root.PersistentFlags().BoolVarP(&opts.brief, "brief", "b", false, "omit the calculation in text output")

	root.AddCommand(
		&cobra.Command{
			Use:     "to-address ALARM...",
			Aliases: []string{"addr"},
			Short:   "Convert alarm numbers (70XXXX) to DB addresses",
			Args:    cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return convert(cmd.OutOrStdout(), opts, args, alarm.AlarmToAddress)
			},
		},
		&cobra.Command{
			Use:     "to-alarm ADDRESS...",
			Aliases: []string{"alarm"},
			Short:   "Convert DB addresses (DB2.DBXb.n or DB1600.DBXb.n) to alarm numbers",
			Args:    cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return convert(cmd.OutOrStdout(), opts, args, alarm.AddressToAlarm)
			},
		},
	)
	return root
}

type converter func(string, alarm.Family) (*alarm.Result, error)

// convert runs fn over every input. Failures are reported inline and the
// command fails once all inputs have been processed.
func convert(out io.Writer, opts *options, inputs []string, fn converter) error {
	family, err := alarm.ParseFamily(opts.family)
	if err != nil {
		return err
	}

	var results []*alarm.Result
	var errs []error
	for _, in := range inputs {
		res, err := fn(in, family)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", in, err))
			if !opts.asJSON {
				_, _ = fmt.Fprintf(out, "%s\terror: %v\n", in, err)
			}
			continue
		}
		results = append(results, res)
		if !opts.asJSON {
			_, _ = fmt.Fprintf(out, "%s\t%s\n", res.Alarm, res.AddressText)
			if !opts.brief && res.Calculation != "" {
				for _, line := range strings.Split(res.Calculation, "\n") {
					_, _ = fmt.Fprintf(out, "  %s\n", line)
				}
			}
		}
	}

	if opts.asJSON {
		if results == nil {
			results = []*alarm.Result{}
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			return err
		}
	}
	if len(errs) == 0 {
		return nil
	}
	if opts.asJSON {
		return errors.Join(errs...)
	}
	return &reportedError{err: errors.Join(errs...)}
}
