package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/winahq/walnut_agent/internal/archive"
	"github.com/winahq/walnut_agent/internal/entry"
)

func registerSessionHandlers(api huma.API, svc Service) {
	type prefsOutput struct {
		Body json.RawMessage
	}
	huma.Register(api, huma.Operation{OperationID: "get-preferences", Method: http.MethodGet, Path: "/api/v1/prefs", Summary: "Current preference document", Tags: []string{"Preferences"}},
		func(ctx context.Context, input *struct{}) (*prefsOutput, error) {
			return &prefsOutput{Body: svc.Preferences()}, nil
		})

	type setPrefInput struct {
		Body struct {
			Key   string `json:"key" doc:"Preference key, e.g. preserve_log.console"`
			Value bool   `json:"value"`
		}
	}
	type setPrefOutput struct {
		Body struct {
			Status string `json:"status"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "set-preference", Method: http.MethodPut, Path: "/api/v1/prefs", Summary: "Set one boolean preference", Tags: []string{"Preferences"}},
		func(ctx context.Context, input *setPrefInput) (*setPrefOutput, error) {
			if err := svc.SetPreference(input.Body.Key, input.Body.Value); err != nil {
				return nil, mapErr(err)
			}
			out := &setPrefOutput{}
			out.Body.Status = "set"
			return out, nil
		})

	type sessionsOutput struct {
		Body struct {
			Sessions []archive.Session `json:"sessions"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "list-sessions", Method: http.MethodGet, Path: "/api/v1/sessions", Summary: "List archived sessions", Tags: []string{"Sessions"}},
		func(ctx context.Context, input *struct{}) (*sessionsOutput, error) {
			sessions, err := svc.Sessions(ctx)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &sessionsOutput{}
			out.Body.Sessions = sessions
			return out, nil
		})

	type archiveOutput struct {
		Body archive.Session
	}
	huma.Register(api, huma.Operation{OperationID: "archive-session", Method: http.MethodPost, Path: "/api/v1/sessions/archive", Summary: "Archive the current collections as a session", Tags: []string{"Sessions"}},
		func(ctx context.Context, input *struct{}) (*archiveOutput, error) {
			sess, err := svc.ArchiveSession(ctx)
			if err != nil {
				return nil, mapErr(err)
			}
			return &archiveOutput{Body: sess}, nil
		})

	type sessionEntriesInput struct {
		SessionID string `path:"session_id"`
		Domain    string `query:"domain" doc:"Restrict to one capture domain"`
	}
	type sessionEntriesOutput struct {
		Body struct {
			Entries []archive.Record `json:"entries"`
			Count   int              `json:"count"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "session-entries", Method: http.MethodGet, Path: "/api/v1/sessions/{session_id}/entries", Summary: "Entries of an archived session", Tags: []string{"Sessions"}},
		func(ctx context.Context, input *sessionEntriesInput) (*sessionEntriesOutput, error) {
			records, err := svc.SessionEntries(ctx, input.SessionID, entry.Domain(input.Domain))
			if err != nil {
				return nil, mapErr(err)
			}
			out := &sessionEntriesOutput{}
			out.Body.Entries = records
			out.Body.Count = len(records)
			return out, nil
		})

	type deleteSessionInput struct {
		SessionID string `path:"session_id"`
	}
	type deleteSessionOutput struct {
		Body struct {
			Status string `json:"status"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "delete-session", Method: http.MethodDelete, Path: "/api/v1/sessions/{session_id}", Summary: "Delete an archived session", Tags: []string{"Sessions"}},
		func(ctx context.Context, input *deleteSessionInput) (*deleteSessionOutput, error) {
			if err := svc.DeleteSession(ctx, input.SessionID); err != nil {
				return nil, mapErr(err)
			}
			out := &deleteSessionOutput{}
			out.Body.Status = "deleted"
			return out, nil
		})
}
