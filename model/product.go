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
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SyncStatus summarizes the outcome of the most recent outbound sync attempt
// for a product. Every attempt re-evaluates the status; there is no terminal
// state.
type SyncStatus string

const (
	SyncPending SyncStatus = "PENDING" // no outbound attempt has completed yet
	SyncOK      SyncStatus = "OK"      // last attempt succeeded
	SyncFailed  SyncStatus = "FAILED"  // last attempt failed, local state is still durable
)

// Product is the locally owned record kept consistent with a Jira issue.
// RemoteKey and RemoteID are only set once the issue link exists; a product
// without a RemoteKey is never dispatched to the transition resolver.
type Product struct {
	ProductID    string     `json:"product_id"`
	Name         string     `json:"name"`
	Description  string     `json:"description"`
	ExternalRef  string     `json:"external_ref,omitempty"`
	RemoteKey    string     `json:"remote_key,omitempty"`
	RemoteID     string     `json:"remote_id,omitempty"`
	RemoteStatus string     `json:"remote_status,omitempty"`
	SyncStatus   SyncStatus `json:"sync_status"`
	LastSyncAt   *time.Time `json:"last_sync_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`

	// Version is a per-record counter for optimistic concurrency at the
	// storage layer. It never leaves the service boundary.
	Version int64 `json:"-"`
}

// UpdateProduct carries a partial update; nil fields are left untouched.
type UpdateProduct struct {
	Name        *string
	Description *string
	ExternalRef *string
}

// DeleteResult distinguishes "deleted cleanly" from "deleted, manual remote
// cleanup needed". JiraTransitioned reflects the remote outcome only.
type DeleteResult struct {
	Deleted          bool `json:"deleted"`
	JiraTransitioned bool `json:"jiraTransitioned"`
}

// IsLinked reports whether the product has a remote issue attached.
func (p *Product) IsLinked() bool {
	return p.RemoteKey != ""
}

// RecordSyncAttempt stamps the outcome of an outbound attempt. An attempt
// older than the one already recorded is discarded whole: the status always
// describes the attempt LastSyncAt points at, never a stale one that finished
// late. The storage layer enforces the same rule against concurrent writers.
func (p *Product) RecordSyncAttempt(status SyncStatus, at time.Time) {
	if p.LastSyncAt != nil && at.Before(*p.LastSyncAt) {
		return
	}
	p.SyncStatus = status
	t := at
	p.LastSyncAt = &t
}

// GenerateUUIDWithSuffix creates a prefixed unique identifier for a record,
// e.g. "prd_9b1deb4d-...".
func GenerateUUIDWithSuffix(module string) string {
	id := uuid.New()
	return fmt.Sprintf("%s_%s", module, id.String())
}
