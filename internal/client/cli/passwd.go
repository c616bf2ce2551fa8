package cli

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/authcore/internal/protocol"
)

func (a *App) ChangePassword(ctx context.Context) error {

	oldPassword, err := GetPassword("Enter current password", os.Stdout)
	if err != nil {
		log.Printf("error: %v", err)
		return err
	}

	newPassword, err := GetPassword("Enter new password", os.Stdout)
	if err != nil {
		log.Printf("error: %v", err)
		return err
	}

	_, err = a.api.Do(protocol.ActionChangePassword, map[string]string{
		"oldPassword": oldPassword,
		"newPassword": newPassword,
	})
	if err != nil {
		log.Printf("Password change unsuccessful: %s", err.Error())
		return err
	}

	log.Printf("Password changed")
	return nil
}
