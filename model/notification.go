/*
Copyright 2025 Prodflow Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package model

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/prodflow/jirasync/internal/adf"
)

// ChangeNotification is the normalized form of an inbound webhook payload.
// Jira sends issue snapshots in more than one shape (flat fields, nested
// issue/fields, description as plain string or as a structured document);
// normalization happens exactly once here and the reconciler never branches
// on payload shape again.
//
// Nil field pointers mean the notification did not carry that field at all,
// which is distinct from carrying an empty value.
type ChangeNotification struct {
	RemoteKey   string
	RemoteID    string
	Summary     *string
	Status      *string
	Description *string
}

type rawStatus struct {
	Name string `json:"name"`
}

type rawFields struct {
	Summary     *string         `json:"summary"`
	Status      *rawStatus      `json:"status"`
	Description json.RawMessage `json:"description"`
}

type rawIssue struct {
	ID     json.Number `json:"id"`
	Key    string      `json:"key"`
	Fields *rawFields  `json:"fields"`
}

type rawNotification struct {
	// nested shape: {"issue": {"key": ..., "fields": {...}}}
	Issue *rawIssue `json:"issue"`

	// flat shape: {"key": ..., "summary": ..., "status": ..., "description": ...}
	Key         string          `json:"key"`
	Summary     *string         `json:"summary"`
	Status      json.RawMessage `json:"status"`
	Description json.RawMessage `json:"description"`
}

// ParseChangeNotification resolves the tagged union of webhook payload shapes
// into a ChangeNotification. A payload without a remote key parses
// successfully with an empty RemoteKey; the reconciler treats that as an
// acknowledged no-op.
func ParseChangeNotification(payload []byte) (*ChangeNotification, error) {
	var raw rawNotification
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, errors.Wrap(err, "malformed notification payload")
	}

	n := &ChangeNotification{}
	if raw.Issue != nil {
		n.RemoteKey = raw.Issue.Key
		n.RemoteID = raw.Issue.ID.String()
		if n.RemoteID == "" || n.RemoteID == "0" {
			n.RemoteID = ""
		}
		if raw.Issue.Fields != nil {
			n.Summary = raw.Issue.Fields.Summary
			if raw.Issue.Fields.Status != nil && raw.Issue.Fields.Status.Name != "" {
				status := raw.Issue.Fields.Status.Name
				n.Status = &status
			}
			n.Description = decodeDescription(raw.Issue.Fields.Description)
		}
		return n, nil
	}

	n.RemoteKey = raw.Key
	n.Summary = raw.Summary
	n.Status = decodeStatus(raw.Status)
	n.Description = decodeDescription(raw.Description)
	return n, nil
}

// decodeStatus accepts either a bare string or a {"name": ...} object.
func decodeStatus(raw json.RawMessage) *string {
	if len(raw) == 0 {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return &s
	}
	var obj rawStatus
	if err := json.Unmarshal(raw, &obj); err == nil && obj.Name != "" {
		return &obj.Name
	}
	return nil
}

// decodeDescription accepts either plain text or an Atlassian document and
// returns the plain-text rendering. Unknown document shapes decode to empty
// text rather than failing, so a structurally surprising payload can never
// poison reconciliation.
func decodeDescription(raw json.RawMessage) *string {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return &s
	}
	var doc adf.Document
	if err := json.Unmarshal(raw, &doc); err == nil {
		text := doc.PlainText()
		return &text
	}
	return nil
}
