package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
)

func (a *App) getStatus() string {
	s := ""
	if a.profile != nil {
		s = a.profile.DisplayName()
	}
	if st := a.machine.State(); st != "init" {
		s = s + " " + string(st)
	}
	s = strings.TrimSpace(s)
	if s != "" {
		s = fmt.Sprintf("(%s)", s)
	}
	return s
}

func (a *App) Root(ctx context.Context) {

	fmt.Println("Welcome to beamlink (type 'help' for commands)")
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Printf("beam %s> ", a.getStatus())
		if !scanner.Scan() {
			break
		}
		line := scanner.Text()
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}

		cmd := parts[0]
		args := parts[1:]

		switch cmd {
		case "help":
			if a.hasProfile() {
				fmt.Println("Available commands: offer, scan, send, contacts, inbox, sent, relays, expiring, profile, export, cleanup, exit")
			} else {
				fmt.Println("Available commands: setup, import, exit")
			}

		case "setup":
			a.setup(ctx)
		case "profile":
			a.editProfile(ctx)
		case "offer":
			a.offer(ctx, args)
		case "scan":
			a.scan(ctx)
		case "send":
			a.send(ctx)
		case "contacts":
			a.contacts(ctx)
		case "inbox":
			a.inbox(ctx)
		case "sent":
			a.sent(ctx)
		case "relays":
			a.listRelays(ctx)
		case "expiring":
			a.expiring(ctx)
		case "export":
			a.exportIdentity(ctx, args)
		case "import":
			a.importIdentity(ctx, args)
		case "cleanup":
			a.cleanup(ctx)
		case "exit", "quit":
			fmt.Println("Bye!")
			return
		default:
			fmt.Println("Unknown command:", cmd)
		}
	}

}
