package main

import "github.com/spf13/cobra"

func newLogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Work with server log archives",
	}
	cmd.AddCommand(newSoaCmd())
	return cmd
}

func newSoaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "soa",
		Short: "Oracle SOA/OSB diagnostic logs (ODL format)",
	}
	cmd.AddCommand(newRangeCmd())
	cmd.AddCommand(newErrorsCmd())
	cmd.AddCommand(newIndexCmd())
	return cmd
}
