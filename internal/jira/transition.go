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

package jira

import (
	"context"
	"strings"

	"github.com/prodflow/jirasync/config"
)

// dropKeywords loosely identify the enumeration value that closes out a
// ticket when a transition demands a mandatory resolution-style field.
var dropKeywords = []string{"drop", "cancel", "close"}

// ResolvedTransition is a fully-populated transition request, ready for
// ApplyTransition. Its ID always comes from the live transition list fetched
// in the same resolve call.
type ResolvedTransition struct {
	ID     string
	Name   string
	To     string
	Fields map[string]interface{}
}

// ResolveTransition turns the configured "drop this ticket" outcome into a
// concrete transition Jira will currently accept for the issue. Available
// transitions depend on the issue's live workflow state, so the catalog is
// fetched fresh on every call and never cached.
//
// An explicitly configured transition id that is missing from the live list
// is a contract violation, not a transient fault; the returned error
// enumerates the live alternatives and must not be retried blindly.
func ResolveTransition(ctx context.Context, client Client, key string, conf config.TransitionConfig) (*ResolvedTransition, error) {
	live, err := client.ListTransitions(ctx, key)
	if err != nil {
		return nil, err
	}

	var picked *Transition
	switch {
	case conf.Id != "":
		for i := range live {
			// ids compare as strings so numeric and string encodings of the
			// same transition match
			if live[i].ID == strings.TrimSpace(conf.Id) {
				picked = &live[i]
				break
			}
		}
		if picked == nil {
			return nil, newTransitionUnavailable(key, conf.Id, live)
		}
	case conf.TargetStatus != "":
		target := strings.ToLower(strings.TrimSpace(conf.TargetStatus))
		for i := range live {
			if strings.ToLower(live[i].To) == target || strings.ToLower(live[i].Name) == target {
				picked = &live[i]
				break
			}
		}
		if picked == nil {
			return nil, newTransitionUnavailable(key, conf.TargetStatus, live)
		}
	default:
		return nil, newTransitionUnavailable(key, "", live)
	}

	resolved := &ResolvedTransition{ID: picked.ID, Name: picked.Name, To: picked.To}
	for fieldID, field := range picked.Fields {
		if !field.Required || len(field.AllowedValues) == 0 {
			continue
		}
		if resolved.Fields == nil {
			resolved.Fields = map[string]interface{}{}
		}
		resolved.Fields[fieldID] = fieldValue(pickAllowedValue(field.AllowedValues))
	}
	return resolved, nil
}

// pickAllowedValue selects the enumeration entry whose label loosely matches
// a drop/cancel/close outcome, falling back to the first declared value. A
// value outside the declared enumeration is never invented.
func pickAllowedValue(values []AllowedValue) AllowedValue {
	for _, v := range values {
		label := strings.ToLower(v.Label())
		for _, keyword := range dropKeywords {
			if strings.Contains(label, keyword) {
				return v
			}
		}
	}
	return values[0]
}

func fieldValue(v AllowedValue) map[string]string {
	if v.ID != "" {
		return map[string]string{"id": v.ID}
	}
	if v.Name != "" {
		return map[string]string{"name": v.Name}
	}
	return map[string]string{"value": v.Value}
}
