package cmd

import (
	"github.com/go-errors/errors"
	"github.com/minvws/greenpass-hcert/common"
	"github.com/minvws/greenpass-hcert/holder"
	"github.com/minvws/greenpass-hcert/report"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"io"
	"log/slog"
	"os"
	"strings"
)

var decodeCmd = &cobra.Command{
	Use:   "decode [file|-]",
	Short: "Decode a health certificate QR text",
	Long:  "Decodes the text of a health certificate QR code, with or without the HC1: prefix, read from a file or from stdin.",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		config, err := configureDecode(cmd)
		if err != nil {
			exitWithError(err)
		}

		path := "-"
		if len(args) > 0 {
			path = args[0]
		}

		input, err := readInput(path, cmd.InOrStdin())
		if err != nil {
			exitWithError(err)
		}

		err = runDecode(input, cmd.OutOrStdout(), config)
		if err != nil {
			exitWithError(err)
		}
	},
}

type decodeConfiguration struct {
	JSON          bool
	NoColor       bool
	ShowSignature bool
	InflateLimit  int64
}

func init() {
	rootCmd.AddCommand(decodeCmd)
	setDecodeFlags(decodeCmd)
}

func setDecodeFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.SortFlags = false

	flags.String("config", "", "path to configuration file (JSON, TOML, YAML or INI)")
	flags.Bool("json", false, "print the certificate as JSON")
	flags.Bool("no-color", false, "disable colored output")
	flags.Bool("show-signature", false, "print the (unverified) COSE header and signature")
	flags.Int64("inflate-limit", 0, "maximum decompressed certificate size in bytes")
}

func configureDecode(cmd *cobra.Command) (*decodeConfiguration, error) {
	err := viper.BindPFlags(cmd.Flags())
	if err != nil {
		return nil, err
	}

	err = readConfig()
	if err != nil {
		return nil, err
	}

	return &decodeConfiguration{
		JSON:          viper.GetBool("json"),
		NoColor:       viper.GetBool("no-color"),
		ShowSignature: viper.GetBool("show-signature"),
		InflateLimit:  viper.GetInt64("inflate-limit"),
	}, nil
}

// readInput reads QR text from path, or from stdin when path is "-"
func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		input, err := io.ReadAll(stdin)
		if err != nil {
			return nil, errors.WrapPrefix(err, "Could not read stdin", 0)
		}

		return input, nil
	}

	input, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapPrefix(err, "Could not read input file", 0)
	}

	return input, nil
}

func runDecode(input []byte, w io.Writer, config *decodeConfiguration) error {
	// Space is part of the Base45 alphabet, so only line breaks and tabs go
	text := []byte(strings.Trim(string(input), "\r\n\t"))
	if common.HasEUPrefix(text) {
		_, proofEUBase45, err := common.StripPrefix(text)
		if err != nil {
			return common.WithStage(common.STAGE_PREFIX, err)
		}

		text = proofEUBase45
	}

	h := holder.New(holder.WithInflateLimit(config.InflateLimit))
	hcert, sign1, err := h.Inspect(string(text))
	if err != nil {
		slog.Debug("Decode failed", "stage", stageName(err), "error", err.Error())
		return err
	}

	slog.Debug("Decoded certificate", "passes", len(hcert.Passes))

	if config.JSON {
		return report.JSON(w, hcert)
	}

	opts := report.Options{NoColor: config.NoColor}
	if config.ShowSignature {
		opts.Signature = sign1
	}

	return report.Text(w, hcert, opts)
}

func stageName(err error) string {
	stage, ok := common.StageOf(err)
	if !ok {
		return ""
	}

	return string(stage)
}
