package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/bft-labs/twitstream/internal/cliconfig"
	"github.com/bft-labs/twitstream/pkg/twitstream"
)

// newRulesCommand builds the "rules" command tree for managing the
// filtered stream rules.
func newRulesCommand(cfg *cliconfig.Config, prepare func(*cobra.Command, []string) error, logger func() twitstream.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage filtered stream rules",
	}

	rulesService := func() (twitstream.RulesService, error) {
		client, err := twitstream.New(cfg.StreamConfig(), twitstream.WithLogger(logger()))
		if err != nil {
			return nil, err
		}
		return client.Rules(), nil
	}

	list := &cobra.Command{
		Use:   "list [ID...]",
		Short: "List rules, optionally only the given ids",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := rulesService()
			if err != nil {
				return err
			}
			return printResponse(svc.ListRules(cmd.Context(), args...))
		},
	}

	var (
		tag    string
		dryRun bool
	)
	add := &cobra.Command{
		Use:   "add VALUE...",
		Short: "Add one rule per VALUE",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := rulesService()
			if err != nil {
				return err
			}
			rules := make([]twitstream.Rule, len(args))
			for i, v := range args {
				rules[i] = twitstream.Rule{Value: v, Tag: tag}
			}
			return printResponse(svc.AddRules(cmd.Context(), rules, twitstream.AddRulesOptions{DryRun: dryRun}))
		},
	}
	add.Flags().StringVar(&tag, "tag", "", "tag applied to every added rule")
	add.Flags().BoolVar(&dryRun, "dry-run", false, "validate the rules without saving them")

	del := &cobra.Command{
		Use:   "delete ID...",
		Short: "Delete rules by id",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := rulesService()
			if err != nil {
				return err
			}
			return printResponse(svc.DeleteRules(cmd.Context(), args))
		},
	}

	clearAll := &cobra.Command{
		Use:   "clear",
		Short: "Delete every rule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := rulesService()
			if err != nil {
				return err
			}
			return printResponse(svc.ClearRules(cmd.Context()))
		},
	}

	for _, c := range []*cobra.Command{list, add, del, clearAll} {
		c.PreRunE = prepare
		cmd.AddCommand(c)
	}
	return cmd
}

func printResponse(resp twitstream.RulesResponse, err error) error {
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}
