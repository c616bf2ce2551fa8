package cli

import (
	"context"
	"encoding/json"
	"log"
	"os"

	"github.com/dmitrijs2005/authcore/internal/protocol"
)

func (a *App) ListUsers(ctx context.Context) error {

	resp, err := a.api.Do(protocol.ActionAdminListUsers, nil)
	if err != nil {
		log.Printf("error: %s", err.Error())
		return err
	}

	var records []protocol.UserRecord
	if err := json.Unmarshal([]byte(resp.Fields["users"]), &records); err != nil {
		log.Printf("error: %v", err)
		return err
	}

	for _, u := range records {
		printlnFn(formatUser(u))
	}
	return nil
}

func formatUser(u protocol.UserRecord) string {
	return "#" + itoa(u.ID) + " " + u.Username + " | " + u.FullName +
		" <" + u.Email + "> | " + u.Role + " | " + u.Status + " | " + u.OnlineState
}

func (a *App) AddUser(ctx context.Context) error {

	username, err := GetSimpleText(a.reader, "Enter username", os.Stdout)
	if err != nil {
		return err
	}
	password, err := GetPassword("Enter password", os.Stdout)
	if err != nil {
		return err
	}
	fullName, err := GetSimpleText(a.reader, "Enter full name", os.Stdout)
	if err != nil {
		return err
	}
	email, err := GetSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		return err
	}
	role, err := GetSimpleText(a.reader, "Enter role (USER or ADMIN)", os.Stdout)
	if err != nil {
		return err
	}

	_, err = a.api.Do(protocol.ActionAdminCreateUser, map[string]string{
		"username": username,
		"password": password,
		"fullName": fullName,
		"email":    email,
		"role":     role,
	})
	if err != nil {
		log.Printf("User creation unsuccessful: %s", err.Error())
		return err
	}

	log.Printf("User %s created", username)
	return nil
}

func (a *App) SetStatus(ctx context.Context) error {

	id, err := GetSimpleText(a.reader, "Enter user id", os.Stdout)
	if err != nil {
		return err
	}
	status, err := GetSimpleText(a.reader, "Enter status (ACTIVE or LOCKED)", os.Stdout)
	if err != nil {
		return err
	}

	_, err = a.api.Do(protocol.ActionAdminSetStatus, map[string]string{
		"id":     id,
		"status": status,
	})
	if err != nil {
		log.Printf("Status change unsuccessful: %s", err.Error())
		return err
	}

	log.Printf("Status updated")
	return nil
}

func (a *App) EditUser(ctx context.Context) error {

	id, err := GetSimpleText(a.reader, "Enter user id", os.Stdout)
	if err != nil {
		return err
	}
	fullName, err := GetSimpleText(a.reader, "Enter full name (empty to keep)", os.Stdout)
	if err != nil {
		return err
	}
	email, err := GetSimpleText(a.reader, "Enter email (empty to keep)", os.Stdout)
	if err != nil {
		return err
	}
	role, err := GetSimpleText(a.reader, "Enter role (empty to keep)", os.Stdout)
	if err != nil {
		return err
	}
	password, err := GetSimpleText(a.reader, "Enter new password (empty to keep)", os.Stdout)
	if err != nil {
		return err
	}

	_, err = a.api.Do(protocol.ActionAdminEditUser, map[string]string{
		"id":       id,
		"fullName": fullName,
		"email":    email,
		"role":     role,
		"password": password,
	})
	if err != nil {
		log.Printf("User edit unsuccessful: %s", err.Error())
		return err
	}

	log.Printf("User updated")
	return nil
}

func (a *App) GetUser(ctx context.Context) error {

	id, err := GetSimpleText(a.reader, "Enter user id", os.Stdout)
	if err != nil {
		return err
	}

	resp, err := a.api.Do(protocol.ActionAdminGetUser, map[string]string{"id": id})
	if err != nil {
		log.Printf("error: %s", err.Error())
		return err
	}

	printlnFn("#" + resp.Fields["id"] + " " + resp.Fields["username"] + " | " +
		resp.Fields["fullName"] + " <" + resp.Fields["email"] + "> | " +
		resp.Fields["role"] + " | " + resp.Fields["status"])
	return nil
}
