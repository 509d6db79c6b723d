// Package app implements the main application commands.
package app

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "opa-permission-api",
	Short: "opa-permission-api is a permission management backend for OPA",
	Long: `opa-permission-api is a permission management backend that maps
Active Directory groups to per-application roles and keeps an Open Policy
Agent server synchronized with the role mapping database.`,
	Args: cobra.OnlyValidArgs,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
