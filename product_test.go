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
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"

	"github.com/prodflow/jirasync/config"
	"github.com/prodflow/jirasync/internal/apierror"
	"github.com/prodflow/jirasync/internal/jira"
	"github.com/prodflow/jirasync/model"
)

func setupService(remote *fakeRemote) (*Jirasync, *mockDataSource) {
	config.MockConfig(&config.Configuration{
		DataSource: config.DataSourceConfig{Dns: "postgres://localhost:5432/jirasync"},
		Jira: config.JiraConfig{
			BaseUrl:    "https://example.atlassian.net",
			ProjectKey: "PROJ",
			Transition: config.TransitionConfig{TargetStatus: "Cancelled"},
		},
	})
	ds := newMockDataSource()
	return NewJirasyncWithRemote(ds, remote), ds
}

func TestCreateProductRemoteSuccess(t *testing.T) {
	remote := &fakeRemote{createKey: "PROJ-1", createID: "10001"}
	svc, ds := setupService(remote)

	product, err := svc.CreateProduct(context.Background(), &model.Product{Name: "Widget", Description: "desc"})
	assert.NoError(t, err)
	assert.NotEmpty(t, product.ProductID)
	assert.Equal(t, "PROJ-1", product.RemoteKey)
	assert.Equal(t, "10001", product.RemoteID)
	assert.Equal(t, model.SyncOK, product.SyncStatus)
	assert.NotNil(t, product.LastSyncAt)

	stored := ds.stored(product.ProductID)
	assert.Equal(t, "PROJ-1", stored.RemoteKey)
	assert.Equal(t, model.SyncOK, stored.SyncStatus)
}

func TestCreateProductRemoteFailureKeepsLocalRecord(t *testing.T) {
	remote := &fakeRemote{createErr: &jira.RemoteError{Kind: jira.KindUnavailable, Op: "create_issue"}}
	svc, ds := setupService(remote)

	product, err := svc.CreateProduct(context.Background(), &model.Product{Name: "Widget", Description: "desc"})
	assert.NoError(t, err, "remote failure is not surfaced; local record is durable")

	stored := ds.stored(product.ProductID)
	assert.Equal(t, "Widget", stored.Name)
	assert.Equal(t, "desc", stored.Description)
	assert.Empty(t, stored.RemoteKey)
	assert.Empty(t, stored.RemoteID)
	assert.Equal(t, model.SyncFailed, stored.SyncStatus)
	assert.NotNil(t, stored.LastSyncAt)
}

func TestUpdateProductPushesOnlyChangedFields(t *testing.T) {
	remote := &fakeRemote{createKey: "PROJ-1", createID: "10001"}
	svc, ds := setupService(remote)

	product, err := svc.CreateProduct(context.Background(), &model.Product{Name: "Widget", Description: "desc"})
	assert.NoError(t, err)

	renamed := "Widget v2"
	updated, err := svc.UpdateProduct(context.Background(), product.ProductID, model.UpdateProduct{Name: &renamed})
	assert.NoError(t, err)
	assert.Equal(t, "Widget v2", updated.Name)
	assert.Equal(t, 1, remote.updateCalls)
	assert.NotNil(t, remote.lastSummary)
	assert.Equal(t, "Widget v2", *remote.lastSummary)
	assert.Nil(t, remote.lastDescription, "unchanged description is not pushed")

	stored := ds.stored(product.ProductID)
	assert.Equal(t, "Widget v2", stored.Name)
	assert.Equal(t, model.SyncOK, stored.SyncStatus)
}

func TestUpdateProductRemoteFailureKeepsLocalChanges(t *testing.T) {
	remote := &fakeRemote{createKey: "PROJ-1", createID: "10001"}
	svc, ds := setupService(remote)

	product, err := svc.CreateProduct(context.Background(), &model.Product{Name: "Widget", Description: "desc"})
	assert.NoError(t, err)

	remote.updateErr = &jira.RemoteError{Kind: jira.KindUnavailable, Op: "update_issue"}
	renamed := gofakeit.ProductName()
	updated, err := svc.UpdateProduct(context.Background(), product.ProductID, model.UpdateProduct{Name: &renamed})
	assert.NoError(t, err, "no rollback on remote failure")
	assert.Equal(t, renamed, updated.Name)

	stored := ds.stored(product.ProductID)
	assert.Equal(t, renamed, stored.Name)
	assert.Equal(t, model.SyncFailed, stored.SyncStatus)
}

func TestUpdateProductWithoutLinkFallsThroughToCreate(t *testing.T) {
	remote := &fakeRemote{createErr: &jira.RemoteError{Kind: jira.KindUnavailable, Op: "create_issue"}}
	svc, _ := setupService(remote)

	product, err := svc.CreateProduct(context.Background(), &model.Product{Name: "Widget"})
	assert.NoError(t, err)
	assert.Empty(t, product.RemoteKey)
	assert.Equal(t, 1, remote.createCalls)

	// remote comes back before the next update
	remote.createErr = nil
	remote.createKey = "PROJ-7"
	remote.createID = "10007"

	renamed := "Widget v2"
	updated, err := svc.UpdateProduct(context.Background(), product.ProductID, model.UpdateProduct{Name: &renamed})
	assert.NoError(t, err)
	assert.Equal(t, 2, remote.createCalls, "unlinked update retries issue creation")
	assert.Equal(t, 0, remote.updateCalls)
	assert.Equal(t, "PROJ-7", updated.RemoteKey)
	assert.Equal(t, model.SyncOK, updated.SyncStatus)
}

func TestUpdateProductNoDisplayableChangeSkipsRemote(t *testing.T) {
	remote := &fakeRemote{createKey: "PROJ-1", createID: "10001"}
	svc, _ := setupService(remote)

	product, err := svc.CreateProduct(context.Background(), &model.Product{Name: "Widget", Description: "desc"})
	assert.NoError(t, err)

	ref := "ERP-12"
	_, err = svc.UpdateProduct(context.Background(), product.ProductID, model.UpdateProduct{ExternalRef: &ref})
	assert.NoError(t, err)
	assert.Equal(t, 0, remote.updateCalls, "externalRef is never synced remotely")
}

func TestUpdateProductNotFound(t *testing.T) {
	svc, _ := setupService(&fakeRemote{})

	_, err := svc.UpdateProduct(context.Background(), "prd_missing", model.UpdateProduct{})
	assert.True(t, apierror.IsCode(err, apierror.ErrNotFound))
}

func TestDeleteProductTransitionSucceeds(t *testing.T) {
	remote := &fakeRemote{
		createKey: "PROJ-1", createID: "10001",
		transitions: []jira.Transition{{ID: "31", Name: "Cancel", To: "Cancelled"}},
	}
	svc, ds := setupService(remote)

	product, err := svc.CreateProduct(context.Background(), &model.Product{Name: "Widget"})
	assert.NoError(t, err)

	result, err := svc.DeleteProduct(context.Background(), product.ProductID)
	assert.NoError(t, err)
	assert.True(t, result.Deleted)
	assert.True(t, result.JiraTransitioned)
	assert.Equal(t, "31", remote.lastTransition)

	stored := ds.stored(product.ProductID)
	assert.NotNil(t, stored.DeletedAt)
	assert.Equal(t, model.SyncOK, stored.SyncStatus)
}

func TestDeleteProductTransitionFailsStillSoftDeletes(t *testing.T) {
	remote := &fakeRemote{
		createKey: "PROJ-1", createID: "10001",
		listErr: &jira.RemoteError{Kind: jira.KindUnavailable, Op: "list_transitions"},
	}
	svc, ds := setupService(remote)

	product, err := svc.CreateProduct(context.Background(), &model.Product{Name: "Widget"})
	assert.NoError(t, err)

	result, err := svc.DeleteProduct(context.Background(), product.ProductID)
	assert.NoError(t, err)
	assert.True(t, result.Deleted)
	assert.False(t, result.JiraTransitioned)

	stored := ds.stored(product.ProductID)
	assert.NotNil(t, stored.DeletedAt)
	assert.Equal(t, model.SyncFailed, stored.SyncStatus)
}

func TestDeleteProductUnlinkedSkipsRemote(t *testing.T) {
	remote := &fakeRemote{createErr: &jira.RemoteError{Kind: jira.KindUnavailable, Op: "create_issue"}}
	svc, ds := setupService(remote)

	product, err := svc.CreateProduct(context.Background(), &model.Product{Name: "Widget"})
	assert.NoError(t, err)

	result, err := svc.DeleteProduct(context.Background(), product.ProductID)
	assert.NoError(t, err)
	assert.True(t, result.Deleted)
	assert.False(t, result.JiraTransitioned)
	assert.Equal(t, 0, remote.applyCalls, "unlinked product never reaches the transition resolver")
	assert.NotNil(t, ds.stored(product.ProductID).DeletedAt)
}

func TestDeleteProductNotFound(t *testing.T) {
	svc, _ := setupService(&fakeRemote{})

	_, err := svc.DeleteProduct(context.Background(), "prd_missing")
	assert.True(t, apierror.IsCode(err, apierror.ErrNotFound))
}

func TestDeleteProductAlreadyDeletedIsStable(t *testing.T) {
	remote := &fakeRemote{
		createKey: "PROJ-1", createID: "10001",
		transitions: []jira.Transition{{ID: "31", Name: "Cancel", To: "Cancelled"}},
	}
	svc, ds := setupService(remote)

	product, err := svc.CreateProduct(context.Background(), &model.Product{Name: "Widget"})
	assert.NoError(t, err)
	_, err = svc.DeleteProduct(context.Background(), product.ProductID)
	assert.NoError(t, err)

	before := ds.writes()
	result, err := svc.DeleteProduct(context.Background(), product.ProductID)
	assert.NoError(t, err)
	assert.True(t, result.Deleted)
	assert.Equal(t, before, ds.writes(), "soft-deleted record is not mutated again")
	assert.Equal(t, 1, remote.applyCalls)
}

func TestLastSyncAtIsMonotonic(t *testing.T) {
	remote := &fakeRemote{createKey: "PROJ-1", createID: "10001"}
	svc, ds := setupService(remote)

	product, err := svc.CreateProduct(context.Background(), &model.Product{Name: "Widget", Description: "d"})
	assert.NoError(t, err)

	previous := *ds.stored(product.ProductID).LastSyncAt
	for i := 0; i < 3; i++ {
		name := gofakeit.ProductName()
		_, err := svc.UpdateProduct(context.Background(), product.ProductID, model.UpdateProduct{Name: &name})
		assert.NoError(t, err)
		current := *ds.stored(product.ProductID).LastSyncAt
		assert.False(t, current.Before(previous), "lastSyncAt never decreases")
		previous = current
	}
}

func TestLateFinishingAttemptDoesNotRegressSyncStatus(t *testing.T) {
	remote := &fakeRemote{
		createKey: "PROJ-1",
		createID:  "10001",
		updateErr: &jira.RemoteError{Kind: jira.KindUnavailable, Op: "update_issue"},
	}
	svc, ds := setupService(remote)

	product, err := svc.CreateProduct(context.Background(), &model.Product{Name: "Widget"})
	assert.NoError(t, err)

	// a fresher attempt (an inbound reconciliation, say) recorded OK with a
	// later timestamp before this update's failed outcome lands
	fresher := ds.stored(product.ProductID)
	future := time.Now().Add(time.Minute)
	fresher.SyncStatus = model.SyncOK
	fresher.LastSyncAt = &future
	ds.put(fresher)

	renamed := "Widget v2"
	_, err = svc.UpdateProduct(context.Background(), product.ProductID, model.UpdateProduct{Name: &renamed})
	assert.NoError(t, err)

	stored := ds.stored(product.ProductID)
	assert.Equal(t, "Widget v2", stored.Name, "the business change itself lands")
	assert.Equal(t, model.SyncOK, stored.SyncStatus, "a stale outcome never overwrites the fresher status")
	assert.True(t, stored.LastSyncAt.Equal(future), "the timestamp stays with the fresher attempt")
}

func TestPersistRetriesLocalWriteOnVersionConflict(t *testing.T) {
	remote := &fakeRemote{createKey: "PROJ-1", createID: "10001"}
	svc, ds := setupService(remote)

	product, err := svc.CreateProduct(context.Background(), &model.Product{Name: "Widget"})
	assert.NoError(t, err)

	ds.conflictsLeft = 2
	renamed := "Widget v2"
	updated, err := svc.UpdateProduct(context.Background(), product.ProductID, model.UpdateProduct{Name: &renamed})
	assert.NoError(t, err, "local write retried after version conflicts")
	assert.Equal(t, "Widget v2", updated.Name)
	assert.Equal(t, 1, remote.updateCalls, "the remote call is never repeated on a local conflict")
}
