package cli

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/okatenko/beamlink/internal/models"
)

func (a *App) contacts(ctx context.Context) {
	conns, err := a.repos.Connections.ListActive(ctx, time.Now())
	if err != nil {
		log.Printf("error: %v", err)
		return
	}
	if len(conns) == 0 {
		fmt.Println("No connections yet.")
		return
	}
	for _, c := range conns {
		fmt.Printf("%s %s  %s  last seen %s  x%d  expires %s\n",
			c.FirstName, c.LastName, c.DID,
			c.LastConnectedAt.Format("2006-01-02"),
			c.ConnectionCount,
			c.ExpiresAt.Format("2006-01-02"))
	}
}

func (a *App) inbox(ctx context.Context) {
	msgs, err := a.repos.Messages.ListReceived(ctx)
	if err != nil {
		log.Printf("error: %v", err)
		return
	}
	if len(msgs) == 0 {
		fmt.Println("Inbox is empty.")
		return
	}
	for _, m := range msgs {
		tag := ""
		if m.IsRelay {
			tag = " (relayed)"
		}
		fmt.Printf("%s  from %s%s\n  %s\n",
			m.CreatedAt.Format("2006-01-02 15:04"), m.SenderName, tag, m.Content)
	}
}

func (a *App) sent(ctx context.Context) {
	msgs, err := a.repos.Messages.ListSent(ctx)
	if err != nil {
		log.Printf("error: %v", err)
		return
	}
	if len(msgs) == 0 {
		fmt.Println("Nothing sent yet.")
		return
	}
	for _, m := range msgs {
		state := "pending"
		if m.Status == models.MessageStatusDelivered {
			state = "delivered"
		}
		fmt.Printf("%s  to %s  [%s]\n  %s\n",
			m.CreatedAt.Format("2006-01-02 15:04"), m.RecipientName, state, m.Content)
	}
}

func (a *App) listRelays(ctx context.Context) {
	rels, err := a.repos.Relays.ListAll(ctx)
	if err != nil {
		log.Printf("error: %v", err)
		return
	}
	if len(rels) == 0 {
		fmt.Println("No queued relays.")
		return
	}
	for _, r := range rels {
		fmt.Printf("%s  for %s  queued %s\n",
			r.MessageID, r.TargetName, r.CreatedAt.Format("2006-01-02"))
	}
}

// expiring lists connections that need a fresh handshake soon.
func (a *App) expiring(ctx context.Context) {
	if a.engine == nil {
		fmt.Println("No profile yet. Run 'setup' first.")
		return
	}
	conns, err := a.engine.NearExpiration(ctx, a.config.NearExpirationWindow)
	if err != nil {
		log.Printf("error: %v", err)
		return
	}
	if len(conns) == 0 {
		fmt.Println("No connections close to expiring.")
		return
	}
	for _, c := range conns {
		fmt.Printf("%s %s  %s  expires %s\n",
			c.FirstName, c.LastName, c.DID, c.ExpiresAt.Format("2006-01-02"))
	}
}
