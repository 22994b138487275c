package main

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var Version = "dev"

func newRootCmd(connect connectFunc) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "orderctl",
		Short:         "Operator tooling for the order lifecycle service",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(remediationCmd(connect))
	rootCmd.AddCommand(sweepCmd(connect))
	return rootCmd
}

func remediationCmd(connect connectFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remediation",
		Short: "Inspect and resolve failures recorded for manual follow-up",
	}
	cmd.AddCommand(remediationListCmd(connect))
	cmd.AddCommand(remediationResolveCmd(connect))
	return cmd
}

func remediationListCmd(connect connectFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List open remediation entries, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")

			s, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer s.close()

			entries, err := s.hub.OpenRemediations(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No open entries.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tKIND\tORDER\tCREATED\tDETAIL")
			for _, e := range entries {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", e.ID, e.Kind, e.OrderID, e.CreatedAt.UTC().Format(time.RFC3339), e.Detail)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntP("limit", "n", 50, "Maximum entries")
	return cmd
}

func remediationResolveCmd(connect connectFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve [id] [note...]",
		Short: "Close an entry with a resolution note",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid entry id %q", args[0])
			}
			note := strings.Join(args[1:], " ")

			s, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer s.close()

			if err := s.hub.ResolveRemediation(cmd.Context(), id, note); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Resolved entry %d.\n", id)
			return nil
		},
	}
	return cmd
}

func sweepCmd(connect connectFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Run one placement sweep and notify vendors of unclaimed orders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer s.close()

			notified, err := s.sweep.RunOnce(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Notified %d order(s).\n", notified)
			return nil
		},
	}
}
