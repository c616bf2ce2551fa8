package cli

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/authcore/internal/protocol"
)

func (a *App) UpdateProfile(ctx context.Context) error {

	fullName, err := GetSimpleText(a.reader, "Enter full name", os.Stdout)
	if err != nil {
		log.Printf("error: %v", err)
		return err
	}

	email, err := GetSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		log.Printf("error: %v", err)
		return err
	}

	resp, err := a.api.Do(protocol.ActionUpdateProfile, map[string]string{
		"fullName": fullName,
		"email":    email,
	})
	if err != nil {
		log.Printf("Profile update unsuccessful: %s", err.Error())
		return err
	}

	log.Printf("Profile updated: %s <%s>", resp.Fields["fullName"], resp.Fields["email"])
	return nil
}
