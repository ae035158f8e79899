package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/okatenko/beamlink/internal/exchange"
	"github.com/okatenko/beamlink/internal/handshake"
)

// offer starts the offerer path: creates the connection payload and shows it
// for the peer to scan. An optional argument names a PNG file to render the
// code into.
func (a *App) offer(ctx context.Context, args []string) {
	if !a.hasProfile() {
		fmt.Println("No profile yet. Run 'setup' first.")
		return
	}
	a.machine.Reset()

	payload, err := a.machine.CreateOffer(ctx, a.profile)
	if err != nil {
		log.Printf("error: %v", err)
		return
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		log.Printf("error: %v", err)
		return
	}

	fmt.Println("Let the other person scan this offer:")
	fmt.Println(string(raw))
	if len(args) > 0 {
		if err := writeQRCode(raw, args[0]); err != nil {
			log.Printf("could not write code image: %v", err)
		} else {
			fmt.Printf("Code image written to %s\n", args[0])
		}
	}
	fmt.Println("Then run 'scan' and paste their answer.")
}

// scan consumes one pasted code. Depending on the machine state this is
// either a peer's offer (answerer path) or the answer to an own offer.
func (a *App) scan(ctx context.Context) {
	if !a.hasProfile() {
		fmt.Println("No profile yet. Run 'setup' first.")
		return
	}
	if err := a.armScanner(); err != nil {
		log.Printf("error: %v", err)
		return
	}

	data, err := GetMultiline(a.reader, "- Paste the scanned code", os.Stdout)
	if err != nil {
		log.Printf("error: %v", err)
		return
	}

	scanned, err := a.machine.HandleScanned(ctx, []byte(data))
	if err != nil {
		if handshake.Recoverable(err) {
			fmt.Printf("That code is not usable here: %v\n", err)
			return
		}
		log.Printf("handshake failed: %v", err)
		a.machine.Reset()
		return
	}

	switch scanned.Type {
	case handshake.PayloadTypeOnboarding:
		ob := scanned.Onboarding
		fmt.Printf("Onboarding link from %s (%s).\n", ob.Name, ob.DID)
		if ob.Referrer != "" {
			fmt.Printf("Referred by %s.\n", ob.Referrer)
		}
		fmt.Println("Install links carry no live session; meet in person to connect.")

	case handshake.PayloadTypeConnection:
		a.acceptOrDecline(ctx)

	case handshake.PayloadTypeAnswer:
		// HandleScanned already finalized the channel.
		a.runExchange(ctx, "")
	}
}

// armScanner readies the machine for a scan. A handshake that already ended,
// in either direction, is cleared first so the next scan starts fresh.
func (a *App) armScanner() error {
	switch a.machine.State() {
	case handshake.StateFailed, handshake.StateComplete:
		a.machine.Reset()
	}
	if a.machine.State() == handshake.StateInit {
		return a.machine.StartScanning()
	}
	return nil
}

// acceptOrDecline shows the scanned peer and asks for confirmation before
// answering.
func (a *App) acceptOrDecline(ctx context.Context) {
	peer := a.machine.PeerOffer()
	name := peer.Profile.FirstName + " " + peer.Profile.LastName
	if peer.Profile.Nickname != nil && *peer.Profile.Nickname != "" {
		name = fmt.Sprintf("%s (%s)", name, *peer.Profile.Nickname)
	}
	fmt.Printf("Connection offer from %s, id %s\n", name, peer.DID)
	if peer.Profile.Bio != nil && *peer.Profile.Bio != "" {
		fmt.Printf("  %s\n", *peer.Profile.Bio)
	}

	answer, err := GetSimpleText(a.reader, "- Accept? (y/n)", os.Stdout)
	if err != nil {
		log.Printf("error: %v", err)
		return
	}
	if answer != "y" && answer != "yes" {
		a.machine.Decline()
		fmt.Println("Declined. Nothing was stored.")
		return
	}

	payload, err := a.machine.Accept(ctx, a.profile)
	if err != nil {
		log.Printf("error: %v", err)
		return
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		log.Printf("error: %v", err)
		return
	}

	fmt.Println("Show this answer to the other person:")
	fmt.Println(string(raw))
	if path, err := GetSimpleText(a.reader, "- Write answer code PNG to file (optional)", os.Stdout); err == nil && path != "" {
		if err := writeQRCode(raw, path); err != nil {
			log.Printf("could not write code image: %v", err)
		}
	}

	fmt.Println("Waiting for the channel to open...")
	awaitCtx, cancel := context.WithTimeout(ctx, a.config.ExchangeTimeout)
	defer cancel()
	if err := a.machine.AwaitOpen(awaitCtx); err != nil {
		log.Printf("handshake failed: %v", err)
		return
	}

	a.runExchange(ctx, peer.DID)
}

// runExchange drives the data exchange over the open channel and commits the
// peer as a connection when it completes.
func (a *App) runExchange(ctx context.Context, peerDID string) {
	sess, err := a.machine.BeginExchange()
	if err != nil {
		log.Printf("error: %v", err)
		return
	}

	runner := exchange.NewRunner(a.profile, a.keys,
		a.repos.Connections, a.repos.Messages, a.repos.Relays, a.logger)

	runCtx, cancel := context.WithTimeout(ctx, a.config.ExchangeTimeout)
	defer cancel()

	sum, err := runner.Run(runCtx, sess, peerDID)
	if err != nil {
		a.machine.Fail(err)
		// store failures abort the operation but arm a fresh handshake
		if handshake.IsKind(err, handshake.KindStore) {
			a.machine.Reset()
		}
		log.Printf("exchange failed: %v", err)
		return
	}

	stored, err := a.repos.Connections.Upsert(ctx, sum.Peer, time.Now())
	if err != nil {
		a.machine.Fail(err)
		a.machine.Reset()
		log.Printf("could not store connection: %v", err)
		return
	}
	a.machine.Complete()
	a.machine.Reset()

	fmt.Printf("Connected with %s %s (connection #%d, valid until %s).\n",
		stored.FirstName, stored.LastName, stored.ConnectionCount,
		stored.ExpiresAt.Format("2006-01-02"))
	if sum.MessagesReceived > 0 || sum.RelaysReceived > 0 {
		fmt.Printf("Received %d message(s) and %d relayed message(s).\n",
			sum.MessagesReceived, sum.RelaysReceived)
	}
	if sum.MessagesSent > 0 || sum.RelaysForwarded > 0 {
		fmt.Printf("Delivered %d message(s) and %d relayed message(s).\n",
			sum.MessagesSent, sum.RelaysForwarded)
	}
	if len(sum.PeerContacts) > 0 {
		fmt.Printf("They know %d other people.\n", len(sum.PeerContacts))
	}
}

// writeQRCode renders raw into a PNG file at path.
func writeQRCode(raw []byte, path string) error {
	return qrcode.WriteFile(string(raw), qrcode.Medium, 512, path)
}
