package cli

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/authcore/internal/protocol"
)

func (a *App) Login(ctx context.Context) error {

	username, err := GetSimpleText(a.reader, "Enter username", os.Stdout)
	if err != nil {
		log.Printf("error: %v", err)
		return err
	}

	password, err := GetPassword("Enter password", os.Stdout)
	if err != nil {
		log.Printf("error: %v", err)
		return err
	}

	resp, err := a.api.Do(protocol.ActionLogin, map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		log.Printf("Login unsuccessful: %s", err.Error())
		return err
	}

	a.username = resp.Fields["username"]
	a.role = resp.Fields["role"]
	a.token = resp.Fields["token"]

	log.Printf("Login successful")
	return nil
}

// Resume re-authenticates with the session token from the last login,
// without prompting for a password.
func (a *App) Resume(ctx context.Context) error {

	if a.token == "" {
		printlnFn("No session token, use login")
		return nil
	}

	resp, err := a.api.Do(protocol.ActionLogin, map[string]string{"token": a.token})
	if err != nil {
		log.Printf("Resume unsuccessful: %s", err.Error())
		return err
	}

	a.username = resp.Fields["username"]
	a.role = resp.Fields["role"]
	a.token = resp.Fields["token"]

	log.Printf("Session resumed")
	return nil
}
