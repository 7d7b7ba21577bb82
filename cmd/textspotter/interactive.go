package main

import (
	"bufio"
	"context"
	"fmt"
	"image"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ironsheep/text-spotter/internal/imaging"
	"github.com/ironsheep/text-spotter/internal/spotter"
)

const quitCommand = `\quit`

func newInteractiveCmd(flags *rootFlags) *cobra.Command {
	var annotate string
	cmd := &cobra.Command{
		Use:   "interactive <image>",
		Short: "Read an image once, then answer phrase queries typed at a prompt",
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
			s := &session{
				spotter:  a.spotter,
				logger:   a.logger,
				annotate: annotate,
			}
			return s.run(cmd.Context(), img, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&annotate, "annotate", "", "after each query, write an annotated copy of the image to this path")
	return cmd
}

// session is one interactive matching run over a single image.
type session struct {
	spotter  *spotter.Spotter
	logger   *zap.Logger
	annotate string
}

// run reads the image once and answers one query per input line until
// `\quit` or end of input.
func (s *session) run(ctx context.Context, img image.Image, in io.Reader, out io.Writer) error {
	reading, err := s.spotter.Read(ctx, img)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, timingLine(len(reading.Results), reading.Elapsed.Seconds()))
	fmt.Fprintln(out, `Start interactive matching: (type \quit to quit)`)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == quitCommand {
			return nil
		}

		m, err := s.spotter.Query(reading, line)
		if err != nil {
			// A rejected search only fails this query.
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}
		fmt.Fprintln(out, foundLine(m.Point.X, m.Point.Y))

		if s.annotate != "" {
			if err := imaging.Save(s.spotter.Annotate(img, reading, m.Point), s.annotate); err != nil {
				s.logger.Warn("failed to write annotated image", zap.String("path", s.annotate), zap.Error(err))
			}
		}
	}
}
