package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/okatenko/beamlink/internal/common"
)

// send queues a message for a known connection. It leaves the device on the
// next exchange, either directly or through the relay queue.
func (a *App) send(ctx context.Context) {
	if !a.hasProfile() {
		fmt.Println("No profile yet. Run 'setup' first.")
		return
	}

	did, err := GetSimpleText(a.reader, "- Recipient id (see 'contacts')", os.Stdout)
	if err != nil {
		log.Printf("error: %v", err)
		return
	}
	content, err := GetMultiline(a.reader, "- Message", os.Stdout)
	if err != nil {
		log.Printf("error: %v", err)
		return
	}
	viaRelay, err := GetSimpleText(a.reader, "- Queue as relay for store-and-forward? (y/n)", os.Stdout)
	if err != nil {
		log.Printf("error: %v", err)
		return
	}

	m, err := a.engine.Queue(ctx, did, content, viaRelay == "y" || viaRelay == "yes")
	if errors.Is(err, common.ErrorNotFound) {
		fmt.Println("No connection with that id. Run 'contacts' to list them.")
		return
	}
	if errors.Is(err, common.ErrorMessageTooLong) {
		fmt.Printf("Message is over %d characters.\n", common.MaxMessageChars)
		return
	}
	if err != nil {
		log.Printf("error: %v", err)
		return
	}

	fmt.Printf("Queued %s for %s.\n", m.ID, m.RecipientName)
}
