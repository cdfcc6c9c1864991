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

package jirasync

import (
	"embed"

	"github.com/prodflow/jirasync/config"
	"github.com/prodflow/jirasync/database"
	"github.com/prodflow/jirasync/internal/jira"
)

//go:embed sql/*.sql
var SQLFiles embed.FS

// Jirasync is the synchronization core: it owns the outbound push flows and
// the inbound reconciliation between local products and their Jira issues.
type Jirasync struct {
	datasource database.IDataSource
	remote     jira.Client
}

// NewJirasync initializes the service with the provided datasource, building
// the Jira client from the loaded configuration.
func NewJirasync(db database.IDataSource) (*Jirasync, error) {
	configuration, err := config.Fetch()
	if err != nil {
		return nil, err
	}
	return &Jirasync{datasource: db, remote: jira.NewClient(configuration.Jira)}, nil
}

// NewJirasyncWithRemote wires an explicit remote client. Used by tests and by
// callers that manage their own client construction.
func NewJirasyncWithRemote(db database.IDataSource, remote jira.Client) *Jirasync {
	return &Jirasync{datasource: db, remote: remote}
}
