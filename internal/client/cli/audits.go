package cli

import (
	"context"
	"encoding/json"
	"log"

	"github.com/dmitrijs2005/authcore/internal/protocol"
)

func (a *App) Audits(ctx context.Context) error {

	resp, err := a.api.Do(protocol.ActionGetAudits, nil)
	if err != nil {
		log.Printf("error: %s", err.Error())
		return err
	}

	var audits []protocol.AuditRecord
	if err := json.Unmarshal([]byte(resp.Fields["audits"]), &audits); err != nil {
		log.Printf("error: %v", err)
		return err
	}

	for _, au := range audits {
		printlnFn(au.CreatedAt + " " + au.Username + " " + au.Action + " " + au.Details)
	}
	return nil
}

func (a *App) Online(ctx context.Context) error {

	resp, err := a.api.Do(protocol.ActionGetOnlineUsers, nil)
	if err != nil {
		log.Printf("error: %s", err.Error())
		return err
	}

	printlnFn("Online user ids: " + resp.Fields["ids"])
	return nil
}

func (a *App) Ping(ctx context.Context) error {

	resp, err := a.api.Do(protocol.ActionPing, nil)
	if err != nil {
		log.Printf("error: %s", err.Error())
		return err
	}

	printlnFn(resp.Message)
	return nil
}
