package install

import (
	"fmt"
	"io"
)

// printWarning explains what the installed server does and how to remove it.
func printWarning(w io.Writer, agentName, target string) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "══════════════════════════════════════════════════════════════════════")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  EMBEDDING API CALLS")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %s will start 'kb mcp' in each session. Searches and added\n", agentName)
	fmt.Fprintln(w, "  documents are sent to the configured embedding provider, so the")
	fmt.Fprintln(w, "  provider's API key must be available to the agent's environment.")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  To uninstall kb from %s:\n", agentName)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "    kb uninstall %s\n", target)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "══════════════════════════════════════════════════════════════════════")
	fmt.Fprintln(w)
}
