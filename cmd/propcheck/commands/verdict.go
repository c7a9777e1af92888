package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/propcheck/pkg/report"
)

var verdictCmd = &cobra.Command{
	Use:   "verdict [FILE|-]",
	Short: "Ask the LLM critic for a recommendation on a saved report",
	Long: `Read a property record and print the critic's verdict.

The input may be a bare record, a report written by "analyse -f json" or
"-f yaml", or an API request body ({"propertyData": ...}). With no file
or "-" the record is read from stdin.`,
	Example: `  propcheck analyse URL -f json -o report.json
  propcheck verdict report.json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runVerdict,
}

func init() {
	rootCmd.AddCommand(verdictCmd)
	verdictCmd.Flags().StringP("format", "f", "text", "output format: text, json, yaml")
}

func runVerdict(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	path := "-"
	if len(args) == 1 {
		path = args[0]
	}
	record, err := readRecordFile(path, cmd.InOrStdin())
	if err != nil {
		logError("%v", err)
		return err
	}

	pc, err := newPropcheck()
	if err != nil {
		logError("%v", err)
		return err
	}
	defer func() { _ = pc.Close() }()

	v, err := pc.Verdict(ctx, record)
	if err != nil {
		logError("%v", err)
		return err
	}

	format, _ := cmd.Flags().GetString("format")
	out := cmd.OutOrStdout()
	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		return yaml.NewEncoder(out).Encode(v)
	case "text", "":
		fmt.Fprintf(out, "%s\n\n%s\n", v.Recommendation, v.OverallVerdict)
		for _, risk := range v.RiskFactors {
			fmt.Fprintf(out, "  - %s\n", risk)
		}
		return nil
	default:
		return fmt.Errorf("unsupported format: %s (use text, json or yaml)", format)
	}
}

func readRecordFile(path string, stdin io.Reader) (*report.PropertyRecord, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path) //#nosec G304 -- CLI tool reads a user-specified file
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read record: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	return decodeRecord(data, ext == ".yaml" || ext == ".yml")
}

// recordEnvelope accepts the shapes a record is usually saved in.
type recordEnvelope struct {
	Record       *report.PropertyRecord `json:"record" yaml:"record"`
	PropertyData *report.PropertyRecord `json:"propertyData" yaml:"propertyData"`
	Address      string                 `json:"address" yaml:"address"`
}

func decodeRecord(data []byte, isYAML bool) (*report.PropertyRecord, error) {
	unmarshal := json.Unmarshal
	if isYAML {
		unmarshal = yaml.Unmarshal
	}

	var env recordEnvelope
	if err := unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to parse record: %w", err)
	}
	switch {
	case env.Record != nil:
		return env.Record, nil
	case env.PropertyData != nil:
		return env.PropertyData, nil
	case env.Address != "":
		var r report.PropertyRecord
		if err := unmarshal(data, &r); err != nil {
			return nil, fmt.Errorf("failed to parse record: %w", err)
		}
		return &r, nil
	}
	return nil, errors.New("no property record found in input")
}
