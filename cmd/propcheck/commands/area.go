package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os/signal"
	"strings"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var areaCmd = &cobra.Command{
	Use:   "area ADDRESS|POSTCODE",
	Short: "Look up the average price per square metre for a postcode district",
	Example: `  propcheck area "12 Acacia Avenue, Bristol BS7 8AA"
  propcheck area BS7 --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runArea,
}

func init() {
	rootCmd.AddCommand(areaCmd)
	areaCmd.Flags().Bool("json", false, "print the result as JSON")
}

func runArea(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pc, err := newPropcheck()
	if err != nil {
		logError("%v", err)
		return err
	}
	defer func() { _ = pc.Close() }()

	res, err := pc.AreaAverage(ctx, strings.Join(args, " "))
	if err != nil {
		logError("%v", err)
		return err
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s: £%s/m²\n", res.Postcode, humanize.Comma(int64(math.Round(res.AreaAverage))))
	return nil
}
