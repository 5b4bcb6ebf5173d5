package cmd

import (
	"fmt"

	"github.com/sarchlab/cachepart/internal/config"
	"github.com/sarchlab/cachepart/mem/cache/partitioning"
	"github.com/sarchlab/cachepart/mem/cache/partitioning/resctrl"
	"github.com/spf13/cobra"
)

func newExportRDTCmd() *cobra.Command {
	exportCmd := &cobra.Command{
		Use:   "export-rdt CONFIG",
		Short: "Print the way policy of a configuration as a resctrl config.",
		Long: "Print the way policy of a configuration as an Intel RDT " +
			"configuration with one class per partition. The ways of each " +
			"partition must be contiguous.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			policyName, _ := cmd.Flags().GetString("policy")
			cacheID, _ := cmd.Flags().GetString("cache-id")

			out, err := exportRDT(args[0], policyName, cacheID)
			if err != nil {
				return err
			}

			_, err = cmd.OutOrStdout().Write(out)

			return err
		},
	}

	exportCmd.Flags().String("policy", "",
		"name of the way policy to export, defaults to the first one")
	exportCmd.Flags().String("cache-id", resctrl.DefaultCacheID,
		"cache instance the allocation applies to")

	return exportCmd
}

func exportRDT(path, policyName, cacheID string) ([]byte, error) {
	c, err := config.LoadConfig(path)
	if err != nil {
		return nil, err
	}

	specs, err := c.PolicySpecs()
	if err != nil {
		return nil, err
	}

	m, err := c.PartitioningBuilder().Build(c.ManagerName(), specs...)
	if err != nil {
		return nil, err
	}

	for _, p := range m.Policies() {
		wayPolicy, ok := p.(*partitioning.WayPolicy)
		if !ok {
			continue
		}

		if policyName == "" ||
			wayPolicy.Name() == policyName ||
			wayPolicy.Name() == m.Name()+"."+policyName {
			return resctrl.MarshalYAML(wayPolicy, cacheID)
		}
	}

	return nil, fmt.Errorf("%s: no way policy named %q", path, policyName)
}
