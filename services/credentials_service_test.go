package services

import (
	"context"
	"database/sql/driver"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"rqc-adapter-api/models"
)

func TestValidateInput(t *testing.T) {
	cases := []struct {
		name       string
		input      CredentialsInput
		wantField  string
		wantErrors int
	}{
		{"valid", CredentialsInput{RQCJournalID: "123", APIKey: "abc123"}, "", 0},
		{"missing journal id", CredentialsInput{APIKey: "abc123"}, "rqc_journal_id", 1},
		{"non-numeric journal id", CredentialsInput{RQCJournalID: "abc", APIKey: "abc123"}, "rqc_journal_id", 1},
		{"missing api key", CredentialsInput{RQCJournalID: "123"}, "api_key", 1},
		{"api key with dash", CredentialsInput{RQCJournalID: "123", APIKey: "abc-123"}, "api_key", 1},
		{"both missing", CredentialsInput{}, "rqc_journal_id", 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, fieldErrors := ValidateInput(&tc.input)
			if len(fieldErrors) != tc.wantErrors {
				t.Fatalf("got %d errors (%v), want %d", len(fieldErrors), fieldErrors, tc.wantErrors)
			}
			if tc.wantField != "" {
				if _, ok := fieldErrors[tc.wantField]; !ok {
					t.Fatalf("expected error on %s, got %v", tc.wantField, fieldErrors)
				}
			}
		})
	}
}

func TestValidateAndSaveRejectedByRemote(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":"unknown journal"}`))
	}))
	defer server.Close()

	gormDB, _, cleanup := newScriptedGormDB(t, nil)
	defer cleanup()

	service := NewCredentialsService(gormDB, &http.Client{Timeout: 2 * time.Second})
	service.client.baseURL = server.URL

	journal := &models.Journal{JournalID: 1, Name: "Test Journal"}
	input := &CredentialsInput{RQCJournalID: "123", APIKey: "abc123"}
	saved, fieldErrors, err := service.ValidateAndSave(context.Background(), journal, 7, input)
	if err != nil {
		t.Fatalf("remote rejection is not a system error: %v", err)
	}
	if saved != nil {
		t.Fatal("nothing must be persisted on rejection")
	}
	if _, ok := fieldErrors["credentials"]; !ok {
		t.Fatalf("expected a credentials error, got %v", fieldErrors)
	}
}

func TestValidateAndSaveStoresVerifiedPair(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"message":"valid"}`))
	}))
	defer server.Close()

	steps := []*queryStep{
		{
			kind:    kindQuery,
			pattern: regexp.MustCompile("SELECT .* FROM `journal_api_credentials`"),
			columns: []string{"credentials_id", "journal_id", "rqc_journal_id", "api_key"},
			rows:    [][]driver.Value{},
		},
		{
			kind:    kindExec,
			pattern: regexp.MustCompile("INSERT INTO `journal_api_credentials`"),
		},
	}
	gormDB, state, cleanup := newScriptedGormDB(t, steps)
	defer cleanup()

	service := NewCredentialsService(gormDB, &http.Client{Timeout: 2 * time.Second})
	service.client.baseURL = server.URL

	journal := &models.Journal{JournalID: 1, Name: "Test Journal"}
	input := &CredentialsInput{RQCJournalID: "123", APIKey: "abc123"}
	saved, fieldErrors, err := service.ValidateAndSave(context.Background(), journal, 7, input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fieldErrors) != 0 {
		t.Fatalf("unexpected field errors: %v", fieldErrors)
	}
	if saved == nil || saved.RQCJournalID != 123 || saved.APIKey != "abc123" {
		t.Fatalf("unexpected saved credentials: %+v", saved)
	}
	if err := state.verifyComplete(); err != nil {
		t.Fatal(err)
	}
}
