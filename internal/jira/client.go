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

// Package jira implements the remote issue client and the transition
// resolver against the Jira Cloud v3 REST API.
package jira

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/prodflow/jirasync/config"
	"github.com/prodflow/jirasync/internal/adf"
	"github.com/prodflow/jirasync/internal/request"
)

const (
	retryInterval = 500 * time.Millisecond
	retryAttempts = 2
)

// Issue is the remote snapshot returned by GetIssue.
type Issue struct {
	Key         string
	ID          string
	Status      string
	Summary     string
	Description string
	UpdatedAt   time.Time
	Assignee    string
}

// AllowedValue is one entry of a required field's fixed enumeration.
type AllowedValue struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Label returns the displayable label of the allowed value.
func (v AllowedValue) Label() string {
	if v.Name != "" {
		return v.Name
	}
	return v.Value
}

// TransitionField describes one auxiliary field a transition declares.
type TransitionField struct {
	Required      bool           `json:"required"`
	AllowedValues []AllowedValue `json:"allowedValues"`
}

// Transition is one workflow operation currently offered for an issue.
// Jira serializes ids inconsistently (number vs string across deployments),
// so ID is always normalized to its string form.
type Transition struct {
	ID     string
	Name   string
	To     string
	Fields map[string]TransitionField
}

// Client is the fallible network boundary the sync core depends on. All
// operations surface *RemoteError.
type Client interface {
	CreateIssue(ctx context.Context, summary, description, localID string) (key, id string, err error)
	UpdateIssue(ctx context.Context, key string, summary, description *string) error
	GetIssue(ctx context.Context, key string) (*Issue, error)
	ListTransitions(ctx context.Context, key string) ([]Transition, error)
	ApplyTransition(ctx context.Context, key, transitionID string, fields map[string]interface{}) error
}

type restClient struct {
	conf config.JiraConfig
	http *http.Client
}

// NewClient builds a Jira REST client from an immutable configuration value.
func NewClient(conf config.JiraConfig) Client {
	return &restClient{
		conf: conf,
		http: &http.Client{Timeout: time.Duration(conf.Timeout) * time.Second},
	}
}

// flexString tolerates numeric and string encodings of the same field.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

type issueRef struct {
	ID  flexString `json:"id"`
	Key string     `json:"key"`
}

type createIssueFields struct {
	Project     map[string]string `json:"project"`
	IssueType   map[string]string `json:"issuetype"`
	Summary     string            `json:"summary"`
	Description *adf.Document     `json:"description,omitempty"`
}

type getIssueResponse struct {
	ID     flexString `json:"id"`
	Key    string     `json:"key"`
	Fields struct {
		Summary     string          `json:"summary"`
		Description json.RawMessage `json:"description"`
		Updated     string          `json:"updated"`
		Status      struct {
			Name string `json:"name"`
		} `json:"status"`
		Assignee *struct {
			DisplayName string `json:"displayName"`
		} `json:"assignee"`
	} `json:"fields"`
}

type transitionsResponse struct {
	Transitions []struct {
		ID   flexString `json:"id"`
		Name string     `json:"name"`
		To   struct {
			Name string `json:"name"`
		} `json:"to"`
		Fields map[string]TransitionField `json:"fields"`
	} `json:"transitions"`
}

func (c *restClient) CreateIssue(ctx context.Context, summary, description, localID string) (string, string, error) {
	// Back-reference to the local record for operator correlation.
	if localID != "" {
		description = fmt.Sprintf("%s\n\nSynced from product %s", description, localID)
	}
	payload := map[string]interface{}{
		"fields": createIssueFields{
			Project:     map[string]string{"key": c.conf.ProjectKey},
			IssueType:   map[string]string{"name": c.conf.IssueType},
			Summary:     summary,
			Description: adf.FromText(description),
		},
	}

	var created issueRef
	err := c.call(ctx, "create_issue", "", http.MethodPost, c.url("/rest/api/3/issue"), payload, &created)
	if err != nil {
		return "", "", err
	}
	return created.Key, string(created.ID), nil
}

func (c *restClient) UpdateIssue(ctx context.Context, key string, summary, description *string) error {
	fields := map[string]interface{}{}
	if summary != nil {
		fields["summary"] = *summary
	}
	if description != nil {
		fields["description"] = adf.FromText(*description)
	}
	if len(fields) == 0 {
		return nil
	}
	payload := map[string]interface{}{"fields": fields}
	return c.call(ctx, "update_issue", key, http.MethodPut, c.url("/rest/api/3/issue/"+key), payload, nil)
}

func (c *restClient) GetIssue(ctx context.Context, key string) (*Issue, error) {
	var resp getIssueResponse
	err := c.call(ctx, "get_issue", key, http.MethodGet, c.url("/rest/api/3/issue/"+key), nil, &resp)
	if err != nil {
		return nil, err
	}

	issue := &Issue{
		Key:     resp.Key,
		ID:      string(resp.ID),
		Status:  resp.Fields.Status.Name,
		Summary: resp.Fields.Summary,
	}
	if desc := decodeRemoteDescription(resp.Fields.Description); desc != "" {
		issue.Description = desc
	}
	if resp.Fields.Updated != "" {
		if ts, err := time.Parse("2006-01-02T15:04:05.999-0700", resp.Fields.Updated); err == nil {
			issue.UpdatedAt = ts
		}
	}
	if resp.Fields.Assignee != nil {
		issue.Assignee = resp.Fields.Assignee.DisplayName
	}
	return issue, nil
}

func (c *restClient) ListTransitions(ctx context.Context, key string) ([]Transition, error) {
	var resp transitionsResponse
	url := c.url("/rest/api/3/issue/" + key + "/transitions?expand=transitions.fields")
	err := c.call(ctx, "list_transitions", key, http.MethodGet, url, nil, &resp)
	if err != nil {
		return nil, err
	}

	transitions := make([]Transition, 0, len(resp.Transitions))
	for _, t := range resp.Transitions {
		transitions = append(transitions, Transition{
			ID:     string(t.ID),
			Name:   t.Name,
			To:     t.To.Name,
			Fields: t.Fields,
		})
	}
	return transitions, nil
}

func (c *restClient) ApplyTransition(ctx context.Context, key, transitionID string, fields map[string]interface{}) error {
	payload := map[string]interface{}{
		"transition": map[string]string{"id": transitionID},
	}
	if len(fields) > 0 {
		payload["fields"] = fields
	}
	return c.call(ctx, "apply_transition", key, http.MethodPost, c.url("/rest/api/3/issue/"+key+"/transitions"), payload, nil)
}

func (c *restClient) url(path string) string {
	return c.conf.BaseUrl + path
}

// call performs one remote operation, mapping transport errors and HTTP
// statuses into the RemoteError taxonomy. Transient failures are retried a
// couple of times with a short constant interval; anything permanent aborts
// immediately.
func (c *restClient) call(ctx context.Context, op, key, method, url string, payload, response interface{}) error {
	operation := func() error {
		var reqBody io.Reader
		if payload != nil {
			buf, err := request.ToJsonReq(payload)
			if err != nil {
				return backoff.Permanent(&RemoteError{Kind: KindRejected, Op: op, Key: key, Message: "unencodable payload", Err: err})
			}
			reqBody = buf
		}
		req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
		if err != nil {
			return backoff.Permanent(errors.Wrap(err, "building request"))
		}
		req.Header.Set("Authorization", "Basic "+request.BasicAuth(c.conf.Email, c.conf.ApiToken))

		resp, err := request.Call(c.http, req, response)
		if err != nil {
			if resp == nil {
				return &RemoteError{Kind: KindUnavailable, Op: op, Key: key, Message: "transport failure", Err: err}
			}
			return backoff.Permanent(&RemoteError{Kind: KindRejected, Op: op, Key: key, StatusCode: resp.StatusCode, Message: "undecodable response", Err: err})
		}

		if remoteErr := mapStatus(op, key, resp.StatusCode); remoteErr != nil {
			if remoteErr.Kind == KindUnavailable {
				return remoteErr
			}
			return backoff.Permanent(remoteErr)
		}
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(retryInterval), retryAttempts), ctx)
	err := backoff.Retry(operation, policy)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"operation": op,
			"issue_key": key,
			"url":       url,
		}).WithError(err).Warn("jira call failed")
	}
	return err
}

func mapStatus(op, key string, status int) *RemoteError {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &RemoteError{Kind: KindUnauthorized, Op: op, Key: key, StatusCode: status, Message: "credentials rejected"}
	case status == http.StatusNotFound:
		return &RemoteError{Kind: KindNotFound, Op: op, Key: key, StatusCode: status, Message: "issue not found"}
	case status >= 400 && status < 500:
		return &RemoteError{Kind: KindRejected, Op: op, Key: key, StatusCode: status, Message: "payload rejected"}
	default:
		return &RemoteError{Kind: KindUnavailable, Op: op, Key: key, StatusCode: status, Message: "remote unavailable"}
	}
}

func decodeRemoteDescription(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var doc adf.Document
	if err := json.Unmarshal(raw, &doc); err == nil {
		return doc.PlainText()
	}
	return ""
}
