package cli

import (
	"context"
	"fmt"
	"log"
)

// cleanup runs one maintenance pass by hand, in addition to the periodic one.
func (a *App) cleanup(ctx context.Context) {
	if a.engine == nil {
		fmt.Println("No profile yet. Run 'setup' first.")
		return
	}
	stats, err := a.engine.Cleanup(ctx)
	if err != nil {
		log.Printf("error: %v", err)
		return
	}
	fmt.Printf("Removed %d expired connection(s) and %d stale relay(s).\n",
		stats.ExpiredConnections, stats.StaleRelays)
}
