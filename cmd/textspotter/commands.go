package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ironsheep/text-spotter/internal/imaging"
	"github.com/ironsheep/text-spotter/internal/version"
)

func newReadCmd(flags *rootFlags) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "read <image>",
		Short: "Detect and read every word in an image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, done, err := flags.start()
			if err != nil {
				return err
			}
			defer done()

			r, err := a.spotter.ReadFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, r)
			}
			for _, res := range r.Results {
				fmt.Fprintf(out, "%-24s (%d, %d, %d, %d)\n", res.Text, res.Box.X, res.Box.Y, res.Box.Width, res.Box.Height)
			}
			fmt.Fprintln(out, timingLine(len(r.Results), r.Elapsed.Seconds()))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the reading as JSON")
	return cmd
}

func newMatchCmd(flags *rootFlags) *cobra.Command {
	var annotate string
	cmd := &cobra.Command{
		Use:   "match <image> <phrase>...",
		Short: "Print the center of the best match for a word or phrase",
		Long: "Print the center of the best match for a word or phrase.\n" +
			"Several arguments are joined into one phrase. Exits non-zero when nothing matches.",
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, done, err := flags.start()
			if err != nil {
				return err
			}
			defer done()

			img, err := a.spotter.LoadImage(args[0])
			if err != nil {
				return err
			}
			rep, err := a.spotter.Match(cmd.Context(), img, strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), foundLine(rep.Match.Point.X, rep.Match.Point.Y))
			if annotate != "" {
				if err := imaging.Save(a.spotter.Annotate(img, rep.Reading, rep.Match.Point), annotate); err != nil {
					return err
				}
			}
			if !rep.Match.Found() {
				return errNoMatch
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&annotate, "annotate", "", "write an annotated copy of the image to this path")
	return cmd
}

func newOCRCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "ocr <image>",
		Short: "Print the whole image as plain text, skipping detection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, done, err := flags.start()
			if err != nil {
				return err
			}
			defer done()

			text, err := a.spotter.TextFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			_, err = io.WriteString(cmd.OutOrStdout(), text)
			return err
		},
	}
}

func newDetectCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "detect <image>",
		Short: "Print candidate text regions without running OCR",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, done, err := flags.start()
			if err != nil {
				return err
			}
			defer done()

			img, err := a.spotter.LoadImage(args[0])
			if err != nil {
				return err
			}
			cs, err := a.spotter.Detect(img)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), cs)
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "textspotter %s\n", version.Version)
			fmt.Fprintf(out, "  Build time: %s\n", version.Date)
			fmt.Fprintf(out, "  Git commit: %s\n", version.Commit)
		},
	}
}

var errNoMatch = errors.New("no match found")

func foundLine(x, y int) string {
	return fmt.Sprintf("Found @ (%d, %d)", x, y)
}

func timingLine(n int, seconds float64) string {
	return fmt.Sprintf("Detect and read %d texts in %.3f seconds", n, seconds)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
