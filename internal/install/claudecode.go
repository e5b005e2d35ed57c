// Package install registers the kb MCP server with AI coding agents.
package install

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ServerName is the key of the kb entry in an agent's MCP server list.
const ServerName = "kb"

// ClaudeCodeConfigPath returns the path to the Claude Code config file.
func ClaudeCodeConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".claude.json")
}

// ClaudeCodeInstall adds the kb MCP server to the Claude Code config at configPath,
// keeping every other setting.
func ClaudeCodeInstall(w io.Writer, configPath string) error {
	config, err := readJSON(configPath)
	if err != nil {
		return err
	}

	mcpServers, ok := config["mcpServers"].(map[string]any)
	if !ok {
		mcpServers = make(map[string]any)
	}

	mcpServers[ServerName] = map[string]any{
		"command": "kb",
		"args":    []string{"mcp"},
	}
	config["mcpServers"] = mcpServers

	if err := writeJSON(configPath, config); err != nil {
		return err
	}

	fmt.Fprintln(w, "Successfully installed kb into Claude Code")
	fmt.Fprintf(w, "Config updated: %s\n", configPath)
	printWarning(w, "Claude Code", "claude-code")

	return nil
}

// ClaudeCodeUninstall removes the kb MCP server from the Claude Code config at configPath.
func ClaudeCodeUninstall(w io.Writer, configPath string) error {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		fmt.Fprintln(w, "Claude Code config not found, nothing to uninstall")
		return nil
	}

	config, err := readJSON(configPath)
	if err != nil {
		return err
	}

	if mcpServers, ok := config["mcpServers"].(map[string]any); ok {
		delete(mcpServers, ServerName)
		config["mcpServers"] = mcpServers
	}

	if err := writeJSON(configPath, config); err != nil {
		return err
	}

	fmt.Fprintln(w, "Successfully uninstalled kb from Claude Code")
	return nil
}

// readJSON reads a JSON object, returning an empty one when the file does not exist.
func readJSON(path string) (map[string]any, error) {
	config := make(map[string]any)

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return config, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse existing config: %w", err)
	}
	return config, nil
}

func writeJSON(path string, config map[string]any) error {
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
