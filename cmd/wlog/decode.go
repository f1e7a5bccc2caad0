package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/claude/wlog/internal/logging"
	"github.com/claude/wlog/internal/routine"
	"github.com/spf13/cobra"
)

func newDecodeCmd() *cobra.Command {
	var pretty, report bool
	cmd := &cobra.Command{
		Use:   "decode [file]",
		Short: "Decode a stored routine payload and print it in the current format",
		Long: "Decode a stored routine payload (any historical format) read from " +
			"file, or stdin when no file is given, and print the canonical JSON.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if len(args) == 1 {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			log := logging.New(cmd.ErrOrStderr(), "warn", "text")
			var reportTo io.Writer
			if report {
				reportTo = cmd.ErrOrStderr()
			}
			return runDecode(in, cmd.OutOrStdout(), reportTo, pretty, log)
		},
	}
	cmd.Flags().BoolVar(&pretty, "pretty", false, "indent the output")
	cmd.Flags().BoolVar(&report, "report", false, "print the detected format and migration counts to stderr")
	return cmd
}

// runDecode writes the canonical encoding of the payload read from in.
// When report is non-nil a one-line summary is written to it.
func runDecode(in io.Reader, out, report io.Writer, pretty bool, log *slog.Logger) error {
	raw, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("reading payload: %w", err)
	}

	res := routine.NewDecoder(log).Decode(string(bytes.TrimSpace(raw)))
	encoded, err := routine.Encode(res.Items)
	if err != nil {
		return err
	}

	if pretty {
		var buf bytes.Buffer
		if err := json.Indent(&buf, []byte(encoded), "", "  "); err != nil {
			return fmt.Errorf("indenting output: %w", err)
		}
		encoded = buf.String()
	}
	if _, err := fmt.Fprintln(out, encoded); err != nil {
		return err
	}

	if report != nil {
		fmt.Fprintf(report, "format=%s items=%d migrated=%d opaque=%d\n",
			res.Format, len(res.Items), res.Migrated, res.Opaque)
	}
	return nil
}
