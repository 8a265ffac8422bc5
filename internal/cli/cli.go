package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"msgconv/internal/config"
	"msgconv/internal/format"
	"msgconv/internal/format/android"
	"msgconv/internal/message"
	"msgconv/internal/model"
	"msgconv/internal/textutil"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// Execute runs the CLI application.
func Execute() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	rootCmd := &cobra.Command{
		Use:   "msgconv",
		Short: "Convert localizable messages between serialization formats",
		Long: "Converts single localizable messages between the fluent, mf2, android,\n" +
			"webext and xliff serialization formats through a shared canonical model.",
	}

	rootCmd.AddCommand(convertCmd())
	rootCmd.AddCommand(inspectCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func convertCmd() *cobra.Command {
	cfg := config.Load()

	cmd := &cobra.Command{
		Use:   "convert [file]",
		Short: "Parse a message in one format and serialize it in another",
		Long: `Reads one message value from a file (or stdin when omitted or "-"),
parses it in the source format and writes the target-format rendition
to stdout. In lenient mode defects are logged and conversion continues
with best-effort recovery; otherwise the first defect aborts.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			from, _ := cmd.Flags().GetString("from")
			to, _ := cmd.Flags().GetString("to")
			lenient, _ := cmd.Flags().GetBool("lenient")
			asciiSpaces, _ := cmd.Flags().GetBool("ascii-spaces")
			return runConvert(path, format.Tag(from), format.Tag(to), lenient, asciiSpaces)
		},
	}

	cmd.Flags().String("from", cfg.FromFormat, "Source format: fluent, mf2, android, webext, xliff or plain")
	cmd.Flags().String("to", cfg.ToFormat, "Target format: fluent, mf2, android, webext, xliff or plain")
	cmd.Flags().Bool("lenient", cfg.Lenient, "Log defects and continue instead of aborting on the first one")
	cmd.Flags().Bool("ascii-spaces", cfg.ASCIISpaces, "Collapse only ASCII whitespace in android sources, keeping NBSP")

	return cmd
}

func inspectCmd() *cobra.Command {
	cfg := config.Load()

	cmd := &cobra.Command{
		Use:   "inspect [file]",
		Short: "Parse a message and dump its canonical JSON form",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			from, _ := cmd.Flags().GetString("from")
			lenient, _ := cmd.Flags().GetBool("lenient")
			return runInspect(path, format.Tag(from), lenient)
		},
	}

	cmd.Flags().String("from", cfg.FromFormat, "Source format: fluent, mf2, android, webext, xliff or plain")
	cmd.Flags().Bool("lenient", cfg.Lenient, "Log defects and continue instead of aborting on the first one")

	return cmd
}

// runConvert handles the `convert` command.
func runConvert(path string, from, to format.Tag, lenient, asciiSpaces bool) error {
	source, err := readSource(path)
	if err != nil {
		return err
	}

	sink := newSink(lenient)

	msg, err := parseSource(source, from, asciiSpaces, sinkOf(sink))
	if err != nil {
		return fmt.Errorf("parse %s: %w", from, err)
	}

	out, err := message.Serialize(to, msg, sinkOf(sink))
	if err != nil {
		return fmt.Errorf("serialize %s: %w", to, err)
	}

	logDefects(sink, source)

	fmt.Println(out)
	return nil
}

// runInspect handles the `inspect` command.
func runInspect(path string, from format.Tag, lenient bool) error {
	source, err := readSource(path)
	if err != nil {
		return err
	}

	sink := newSink(lenient)

	msg, err := parseSource(source, from, false, sinkOf(sink))
	if err != nil {
		return fmt.Errorf("parse %s: %w", from, err)
	}

	data, err := model.MarshalMessage(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	logDefects(sink, source)

	fmt.Println(string(data))
	return nil
}

// parseSource routes through the dispatch façade, except for the one
// android parse option the façade's fixed table cannot carry.
func parseSource(source string, from format.Tag, asciiSpaces bool, sink format.Sink) (model.Message, error) {
	if from == format.Android && asciiSpaces {
		return android.ParseASCIISpaces(source, nil, sink)
	}
	return message.Parse(from, source, nil, sink)
}

func newSink(lenient bool) *format.Collector {
	if lenient {
		return &format.Collector{}
	}
	// A nil sink aborts on the first defect.
	return nil
}

// sinkOf converts the optional collector to the Sink interface without
// wrapping a nil pointer in a non-nil interface value.
func sinkOf(c *format.Collector) format.Sink {
	if c == nil {
		return nil
	}
	return c
}

func logDefects(sink *format.Collector, source string) {
	if sink == nil {
		return
	}
	for _, d := range sink.Defects {
		ev := log.Warn().Str("kind", string(d.Kind))
		if d.Kind == format.KindSerialize {
			ev = ev.Int("offset", d.Offset)
		} else {
			ev = ev.Int("start", d.Start).Int("end", d.End)
			if excerpt := textutil.Excerpt(source, d.Start, d.End, 40); excerpt != "" {
				ev = ev.Str("source", excerpt)
			}
		}
		ev.Msg(d.Message)
	}
}

// readSource reads the message value from a file or stdin. A single
// trailing newline is not part of the value and is dropped.
func readSource(path string) (string, error) {
	var data []byte
	var err error
	if path == "" || path == "-" {
		data, err = io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
	} else {
		data, err = os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read input file: %w", err)
		}
	}
	return strings.TrimSuffix(string(data), "\n"), nil
}
