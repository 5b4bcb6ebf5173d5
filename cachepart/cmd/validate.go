package cmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/sarchlab/cachepart/internal/config"
	"github.com/sarchlab/cachepart/internal/logging"
	"github.com/sarchlab/cachepart/mem/cache/partitioning"
	"github.com/spf13/cobra"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate CONFIG...",
		Short: "Check configurations and print the resulting quotas.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, path := range args {
				if err := validate(cmd.OutOrStdout(), path); err != nil {
					return err
				}
			}

			return nil
		},
	}
}

func validate(w io.Writer, path string) error {
	c, err := config.LoadConfig(path)
	if err != nil {
		return err
	}

	b := c.PartitioningBuilder()

	specs, err := c.PolicySpecs()
	if err != nil {
		return err
	}

	m, err := b.Build(c.ManagerName(), specs...)
	if err != nil {
		return err
	}

	logging.GetLogger().WithField("config", path).Debug("Configuration is valid")

	fmt.Fprintf(w, "%s: %d sets x %d ways, %d blocks\n",
		c.Name,
		b.TotalBlocks()/uint64(c.Cache.Associativity),
		c.Cache.Associativity,
		b.TotalBlocks())

	return printUsage(w, m.Usage())
}

func printUsage(w io.Writer, rows []partitioning.PartitionUsage) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintln(tw, "POLICY\tPARTITION\tWAYS\tQUOTA\tBLOCKS")

	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%d\n",
			r.Policy, r.Partition, formatWays(r), formatQuota(r), r.Blocks)
	}

	return tw.Flush()
}

func formatWays(r partitioning.PartitionUsage) string {
	if r.Ways == nil {
		return "-"
	}

	ways := make([]string, len(r.Ways))
	for i, w := range r.Ways {
		ways[i] = fmt.Sprint(w)
	}

	return strings.Join(ways, ",")
}

func formatQuota(r partitioning.PartitionUsage) string {
	if !r.HasQuota {
		return "-"
	}

	return fmt.Sprint(r.Quota)
}
