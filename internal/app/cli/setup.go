package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/okatenko/beamlink/internal/models"
)

// setup mints a fresh identity and creates the local profile. Refused when a
// profile already exists; identity replacement goes through import.
func (a *App) setup(ctx context.Context) {
	if a.hasProfile() {
		fmt.Println("Profile already exists. Use 'profile' to edit it.")
		return
	}

	firstName, err := GetSimpleText(a.reader, "- First name", os.Stdout)
	if err != nil {
		log.Printf("error: %v", err)
		return
	}
	lastName, err := GetSimpleText(a.reader, "- Last name", os.Stdout)
	if err != nil {
		log.Printf("error: %v", err)
		return
	}
	if firstName == "" || lastName == "" {
		fmt.Println("First and last name are required.")
		return
	}

	id, err := models.NewIdentity()
	if err != nil {
		log.Printf("error: %v", err)
		return
	}

	now := time.Now()
	p := &models.Profile{
		ID:        uuid.NewString(),
		FirstName: firstName,
		LastName:  lastName,
		Identity:  *id,
		CreatedAt: now,
		UpdatedAt: now,
	}
	a.fillOptionalFields(p)

	if err := a.repos.Profiles.Save(ctx, p); err != nil {
		log.Printf("error: %v", err)
		return
	}
	if err := a.loadProfile(ctx); err != nil {
		log.Printf("error: %v", err)
		return
	}

	fmt.Printf("Profile created. Your id: %s\n", id.DID)
}

// editProfile updates the mutable profile fields in place. Identity and did
// are untouched.
func (a *App) editProfile(ctx context.Context) {
	if !a.hasProfile() {
		fmt.Println("No profile yet. Run 'setup' first.")
		return
	}

	p := *a.profile

	firstName, err := GetSimpleText(a.reader, "- First name ["+p.FirstName+"]", os.Stdout)
	if err != nil {
		log.Printf("error: %v", err)
		return
	}
	if firstName != "" {
		p.FirstName = firstName
	}
	lastName, err := GetSimpleText(a.reader, "- Last name ["+p.LastName+"]", os.Stdout)
	if err != nil {
		log.Printf("error: %v", err)
		return
	}
	if lastName != "" {
		p.LastName = lastName
	}
	a.fillOptionalFields(&p)
	p.UpdatedAt = time.Now()

	if err := a.repos.Profiles.Save(ctx, &p); err != nil {
		log.Printf("error: %v", err)
		return
	}
	a.profile = &p
	fmt.Println("Profile updated.")
}

func (a *App) fillOptionalFields(p *models.Profile) {
	nickname, err := GetSimpleText(a.reader, "- Nickname (optional)", os.Stdout)
	if err == nil && nickname != "" {
		p.Nickname = &nickname
	}
	bio, err := GetSimpleText(a.reader, "- Bio (optional)", os.Stdout)
	if err == nil && bio != "" {
		p.Bio = &bio
	}
	picturePath, err := GetSimpleText(a.reader, "- Profile picture file (optional)", os.Stdout)
	if err == nil && picturePath != "" {
		data, err := os.ReadFile(picturePath)
		if err != nil {
			log.Printf("could not read picture: %v", err)
		} else {
			p.Picture = data
		}
	}
}
