package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// subcommandsHeader starts the generated list in a parent's Long text.
const subcommandsHeader = "Subcommands:"

// walkCommands calls fn on cmd and every descendant, parents first.
func walkCommands(cmd *cobra.Command, fn func(*cobra.Command)) {
	fn(cmd)
	for _, sub := range cmd.Commands() {
		walkCommands(sub, fn)
	}
}

// enrichParentLong lists a parent's visible subcommands at the end of its
// Long text, with names padded to the longest one. Running it twice leaves
// the text unchanged.
func enrichParentLong(cmd *cobra.Command) {
	if strings.Contains(cmd.Long, subcommandsHeader) {
		return
	}

	var subs []*cobra.Command
	width := 0
	for _, sub := range cmd.Commands() {
		if !sub.IsAvailableCommand() {
			continue
		}
		subs = append(subs, sub)
		width = max(width, len(sub.Name()))
	}
	if len(subs) == 0 {
		return
	}

	var sb strings.Builder
	sb.WriteString(strings.TrimRight(cmd.Long, "\n"))
	sb.WriteString("\n\n" + subcommandsHeader + "\n")
	for _, sub := range subs {
		fmt.Fprintf(&sb, "  %-*s  %s\n", width, sub.Name(), sub.Short)
	}
	cmd.Long = sb.String()
}
