package cli

import (
	"github.com/spf13/cobra"

	"github.com/nickcecere/kb/internal/install"
)

// installCmd represents the install parent command.
var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install kb into AI coding agents",
	Long: `Install kb as an MCP server into AI coding agents.

Supported agents:
  - claude-code: Claude Code (Anthropic)`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// installClaudeCodeCmd installs kb into Claude Code.
var installClaudeCodeCmd = &cobra.Command{
	Use:   "claude-code",
	Short: "Install kb into Claude Code",
	Long: `Install kb as an MCP server into Claude Code.

This adds an entry to ~/.claude.json that starts 'kb mcp' when a session begins.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return install.ClaudeCodeInstall(cmd.OutOrStdout(), install.ClaudeCodeConfigPath())
	},
}

// uninstallCmd represents the uninstall parent command.
var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Uninstall kb from AI coding agents",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// uninstallClaudeCodeCmd uninstalls kb from Claude Code.
var uninstallClaudeCodeCmd = &cobra.Command{
	Use:   "claude-code",
	Short: "Uninstall kb from Claude Code",
	RunE: func(cmd *cobra.Command, args []string) error {
		return install.ClaudeCodeUninstall(cmd.OutOrStdout(), install.ClaudeCodeConfigPath())
	},
}

func init() {
	installCmd.AddCommand(installClaudeCodeCmd)
	uninstallCmd.AddCommand(uninstallClaudeCodeCmd)
}
