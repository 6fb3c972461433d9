package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"
)

// readTimeout bounds commands that only read chain state.
const readTimeout = 30 * time.Second

// contextWithTimeout returns a timeout context rooted in the command context.
// A non-positive d only inherits the command's cancellation, which lets
// confirmation waits run until the configured confirm timeout instead.
func contextWithTimeout(cmd *cobra.Command, d time.Duration) (context.Context, context.CancelFunc) {
	base := cmd.Context()
	if base == nil {
		base = context.Background()
	}
	if d <= 0 {
		return context.WithCancel(base)
	}
	return context.WithTimeout(base, d)
}
