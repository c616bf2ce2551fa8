package cli

import (
	"context"
	"encoding/json"
	"log"
	"os"

	"github.com/dmitrijs2005/authcore/internal/protocol"
)

func (a *App) History(ctx context.Context) error {

	username, err := GetSimpleText(a.reader, "Enter username", os.Stdout)
	if err != nil {
		return err
	}

	resp, err := a.api.Do(protocol.ActionGetUserHistory, map[string]string{"username": username})
	if err != nil {
		log.Printf("error: %s", err.Error())
		return err
	}

	var history protocol.History
	if err := json.Unmarshal([]byte(resp.Fields["history"]), &history); err != nil {
		log.Printf("error: %v", err)
		return err
	}

	printlnFn("Login attempts:")
	for _, at := range history.Attempts {
		outcome := "FAILED"
		if at.Success {
			outcome = "OK"
		}
		printlnFn("  " + at.AttemptTime + " " + outcome + " from " + at.SourceAddress)
	}

	printlnFn("Audit entries:")
	for _, au := range history.Audits {
		printlnFn("  " + au.CreatedAt + " " + au.Action + " " + au.Details)
	}
	return nil
}
