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
	"context"
	"sync"

	"github.com/prodflow/jirasync/internal/apierror"
	"github.com/prodflow/jirasync/internal/jira"
	"github.com/prodflow/jirasync/model"
)

// mockDataSource is an in-memory IDataSource with the same compare-and-set
// and monotonic-timestamp semantics as the postgres implementation.
type mockDataSource struct {
	mu          sync.Mutex
	products    map[string]*model.Product
	writeCount  int
	injectedErr error
	// conflictsLeft makes the next n UpdateProduct calls fail with a version
	// conflict, simulating a concurrent writer.
	conflictsLeft int
}

func newMockDataSource() *mockDataSource {
	return &mockDataSource{products: map[string]*model.Product{}}
}

func (m *mockDataSource) CreateProduct(_ context.Context, product *model.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.injectedErr != nil {
		return m.injectedErr
	}
	if _, exists := m.products[product.ProductID]; exists {
		return apierror.NewAPIError(apierror.ErrConflict, "Product with this ID already exists", nil)
	}
	clone := *product
	m.products[product.ProductID] = &clone
	m.writeCount++
	return nil
}

func (m *mockDataSource) GetProductByID(_ context.Context, id string) (*model.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, apierror.NewAPIError(apierror.ErrNotFound, "Product not found", nil)
	}
	clone := *p
	return &clone, nil
}

func (m *mockDataSource) GetProductByRemoteKey(_ context.Context, remoteKey string) (*model.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.products {
		if p.RemoteKey == remoteKey {
			clone := *p
			return &clone, nil
		}
	}
	return nil, apierror.NewAPIError(apierror.ErrNotFound, "Product not found", nil)
}

func (m *mockDataSource) GetAllProducts(_ context.Context, limit, offset int) ([]model.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := []model.Product{}
	for _, p := range m.products {
		if p.DeletedAt == nil {
			all = append(all, *p)
		}
	}
	return all, nil
}

func (m *mockDataSource) UpdateProduct(_ context.Context, product *model.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.injectedErr != nil {
		return m.injectedErr
	}
	stored, ok := m.products[product.ProductID]
	if !ok || stored.Version != product.Version {
		return apierror.NewAPIError(apierror.ErrConflict, "Product was modified concurrently", nil)
	}
	if m.conflictsLeft > 0 {
		m.conflictsLeft--
		stored.Version++
		return apierror.NewAPIError(apierror.ErrConflict, "Product was modified concurrently", nil)
	}

	clone := *product
	// sync bookkeeping only moves forward, like the SQL GREATEST/CASE guards:
	// a stale attempt keeps neither its timestamp nor its status
	if stored.LastSyncAt != nil && (clone.LastSyncAt == nil || clone.LastSyncAt.Before(*stored.LastSyncAt)) {
		t := *stored.LastSyncAt
		clone.LastSyncAt = &t
		clone.SyncStatus = stored.SyncStatus
	}
	clone.Version++
	m.products[product.ProductID] = &clone
	product.Version++
	m.writeCount++
	return nil
}

// put replaces the stored record outright, bypassing versioning. Test setup
// only, for staging the state a concurrent writer left behind.
func (m *mockDataSource) put(p *model.Product) {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *p
	m.products[p.ProductID] = &clone
}

func (m *mockDataSource) stored(id string) *model.Product {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *m.products[id]
	return &clone
}

func (m *mockDataSource) writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writeCount
}

// fakeRemote is a scriptable jira.Client that records every outbound call.
type fakeRemote struct {
	mu sync.Mutex

	createKey string
	createID  string
	createErr error

	updateErr error

	transitions []jira.Transition
	listErr     error
	applyErr    error

	createCalls int
	updateCalls int
	applyCalls  int

	lastSummary     *string
	lastDescription *string
	lastTransition  string
	lastFields      map[string]interface{}
}

func (f *fakeRemote) CreateIssue(_ context.Context, summary, description, localID string) (string, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if f.createErr != nil {
		return "", "", f.createErr
	}
	return f.createKey, f.createID, nil
}

func (f *fakeRemote) UpdateIssue(_ context.Context, key string, summary, description *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCalls++
	f.lastSummary = summary
	f.lastDescription = description
	return f.updateErr
}

func (f *fakeRemote) GetIssue(_ context.Context, key string) (*jira.Issue, error) {
	return &jira.Issue{Key: key}, nil
}

func (f *fakeRemote) ListTransitions(_ context.Context, key string) ([]jira.Transition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.transitions, f.listErr
}

func (f *fakeRemote) ApplyTransition(_ context.Context, key, transitionID string, fields map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.applyCalls++
	f.lastTransition = transitionID
	f.lastFields = fields
	return f.applyErr
}
