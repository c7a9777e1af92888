package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jmylchreest/propcheck/internal/logger"
	"github.com/jmylchreest/propcheck/internal/output"
	"github.com/jmylchreest/propcheck/pkg/propcheck"
)

var analyseCmd = &cobra.Command{
	Use:     "analyse URL [URL...]",
	Aliases: []string{"analyze"},
	Short:   "Analyse one or more Rightmove listings",
	Long: `Fetch each listing, extract its facts and build a property report.

Blocked fetches are not fatal: the report is built from whatever the URL
and model can supply, with a lower confidence score.

Examples:
  propcheck analyse https://www.rightmove.co.uk/properties/123456789
  propcheck analyse URL1 URL2 -c 2 -f jsonl
  propcheck analyse URL --verdict -f text`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAnalyse,
}

func init() {
	rootCmd.AddCommand(analyseCmd)

	flags := analyseCmd.Flags()
	flags.StringP("output", "o", "", "output file (default: stdout)")
	flags.StringP("format", "f", "text", "output format: text, json, jsonl, yaml, xlsx")
	flags.Bool("verdict", false, "ask the LLM critic for a recommendation per listing")
	flags.Bool("include-blob", false, "include the text sent to extraction in the output")
	flags.IntP("concurrency", "c", 1, "listings analysed at once")
}

func runAnalyse(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Debug("analyse command starting", "urls", len(args))

	formatStr, _ := cmd.Flags().GetString("format")
	withVerdict, _ := cmd.Flags().GetBool("verdict")
	includeBlob, _ := cmd.Flags().GetBool("include-blob")
	concurrency, _ := cmd.Flags().GetInt("concurrency")

	pc, err := newPropcheck()
	if err != nil {
		logError("%v", err)
		return err
	}
	defer func() { _ = pc.Close() }()

	// Setup output
	var out io.Writer = os.Stdout
	outPath, _ := cmd.Flags().GetString("output")
	var counter *countingWriter
	if outPath != "" {
		f, err := os.Create(outPath) //#nosec G304 -- CLI tool writes to user-specified output file
		if err != nil {
			logError("failed to create output file: %v", err)
			return err
		}
		defer func() { _ = f.Close() }()
		counter = &countingWriter{w: f}
		out = counter
	}

	writer, err := output.NewWriter(out, output.Format(formatStr))
	if err != nil {
		logError("%v", err)
		return err
	}

	logInfo("Analysing %d listing(s) with %s", len(args), pc.Extractor())

	results := collect(pc.AnalyseMany(ctx, args, concurrency), args)

	var failed int
	for _, res := range results {
		report := output.NewReport(res, includeBlob)
		if res.Error != nil {
			failed++
			logError("%s: %v", res.URL, res.Error)
		} else {
			logInfo("  %s  £%s  %.0f%% confidence", res.URL, humanize.Comma(int64(res.Record.Price)), res.Record.Confidence*100)
			if withVerdict {
				v, err := pc.Verdict(ctx, res.Record)
				if err != nil {
					logger.Warn("verdict failed", "url", res.URL, "error", err)
				} else {
					report.Verdict = v
				}
			}
		}
		if err := writer.Write(report); err != nil {
			logError("failed to write report: %v", err)
			return err
		}
	}

	if err := writer.Close(); err != nil {
		logError("failed to write output: %v", err)
		return err
	}
	if counter != nil {
		logInfo("Wrote %s to %s", humanize.Bytes(uint64(counter.n)), outPath)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d listing(s) failed", failed, len(args))
	}
	return nil
}

// collect drains results and restores the order the URLs were given in.
func collect(ch <-chan *propcheck.Result, urls []string) []*propcheck.Result {
	order := make(map[string]int, len(urls))
	for i, u := range urls {
		u = strings.TrimSpace(u)
		if _, ok := order[u]; !ok {
			order[u] = i
		}
	}

	var results []*propcheck.Result
	for res := range ch {
		results = append(results, res)
	}
	sort.SliceStable(results, func(i, j int) bool {
		return order[strings.TrimSpace(results[i].URL)] < order[strings.TrimSpace(results[j].URL)]
	})
	return results
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
