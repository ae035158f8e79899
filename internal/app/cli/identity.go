package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/okatenko/beamlink/internal/common"
	"github.com/okatenko/beamlink/internal/identity"
)

const defaultExportFile = "beamlink-identity.json"

// exportIdentity writes the passphrase-encrypted identity blob to a file.
func (a *App) exportIdentity(ctx context.Context, args []string) {
	if !a.hasProfile() {
		fmt.Println("No profile yet. Run 'setup' first.")
		return
	}

	path := defaultExportFile
	if len(args) > 0 {
		path = args[0]
	}

	pass, err := GetPassphrase(os.Stdout, "Choose an export passphrase")
	if err != nil {
		log.Printf("error: %v", err)
		return
	}
	defer common.WipeByteArray(pass)

	again, err := GetPassphrase(os.Stdout, "Repeat passphrase")
	if err != nil {
		log.Printf("error: %v", err)
		return
	}
	defer common.WipeByteArray(again)
	if string(pass) != string(again) {
		fmt.Println("Passphrases do not match.")
		return
	}

	blob, err := identity.Export(&a.profile.Identity, pass)
	if errors.Is(err, identity.ErrPassphraseTooShort) {
		fmt.Println(err)
		return
	}
	if err != nil {
		log.Printf("error: %v", err)
		return
	}

	if err := os.WriteFile(path, blob, 0o600); err != nil {
		log.Printf("error: %v", err)
		return
	}
	fmt.Printf("Identity exported to %s. Keep the file and passphrase safe.\n", path)
}

// importIdentity replaces the stored identity with one from an export blob.
// The profile must exist; connections made under the old identity stay but
// peers will see the imported did on the next handshake.
func (a *App) importIdentity(ctx context.Context, args []string) {
	if !a.hasProfile() {
		fmt.Println("Run 'setup' first, then import over the fresh profile.")
		return
	}

	path := defaultExportFile
	if len(args) > 0 {
		path = args[0]
	}

	blob, err := os.ReadFile(path)
	if err != nil {
		log.Printf("error: %v", err)
		return
	}

	pass, err := GetPassphrase(os.Stdout, "Export passphrase")
	if err != nil {
		log.Printf("error: %v", err)
		return
	}
	defer common.WipeByteArray(pass)

	id, err := identity.Import(blob, pass)
	if errors.Is(err, common.ErrInvalidPassphrase) {
		fmt.Println("Wrong passphrase.")
		return
	}
	if err != nil {
		log.Printf("error: %v", err)
		return
	}

	if err := a.repos.Profiles.ReplaceIdentity(ctx, id); err != nil {
		log.Printf("error: %v", err)
		return
	}
	if err := a.loadProfile(ctx); err != nil {
		log.Printf("error: %v", err)
		return
	}
	fmt.Printf("Identity imported. Your id: %s\n", id.DID)
}
