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
	"time"

	"github.com/sirupsen/logrus"

	"github.com/prodflow/jirasync/config"
	"github.com/prodflow/jirasync/internal/apierror"
	"github.com/prodflow/jirasync/internal/jira"
	"github.com/prodflow/jirasync/internal/notification"
	"github.com/prodflow/jirasync/model"
)

// localWriteRetries caps compare-and-set retries of a local write after a
// version conflict. Only the local write is retried, never the remote call.
const localWriteRetries = 3

// CreateProduct persists the local record first, then attempts to create the
// linked Jira issue. The record exists and is returned regardless of the
// remote outcome; local durability never depends on remote availability.
func (s *Jirasync) CreateProduct(ctx context.Context, product *model.Product) (*model.Product, error) {
	product.ProductID = model.GenerateUUIDWithSuffix("prd")
	product.SyncStatus = model.SyncPending
	product.CreatedAt = time.Now()
	product.Version = 1

	if err := s.datasource.CreateProduct(ctx, product); err != nil {
		return nil, err
	}

	s.linkRemote(ctx, product)
	return product, nil
}

func (s *Jirasync) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	return s.datasource.GetProductByID(ctx, id)
}

func (s *Jirasync) GetAllProducts(ctx context.Context, limit, offset int) ([]model.Product, error) {
	return s.datasource.GetAllProducts(ctx, limit, offset)
}

// UpdateProduct applies the caller's field changes locally first and persists
// them unconditionally, then pushes only the changed displayable fields to
// Jira. A remote failure marks the attempt FAILED but the local changes stay
// in effect. A product without a remote link falls through to the issue
// creation path instead of failing.
func (s *Jirasync) UpdateProduct(ctx context.Context, id string, patch model.UpdateProduct) (*model.Product, error) {
	product, err := s.datasource.GetProductByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if product.DeletedAt != nil {
		return nil, apierror.NewAPIError(apierror.ErrNotFound, "Product has been deleted", nil)
	}

	nameChanged := patch.Name != nil && *patch.Name != product.Name
	descriptionChanged := patch.Description != nil && *patch.Description != product.Description

	err = s.persistProduct(ctx, product, func(p *model.Product) {
		if patch.Name != nil {
			p.Name = *patch.Name
		}
		if patch.Description != nil {
			p.Description = *patch.Description
		}
		if patch.ExternalRef != nil {
			p.ExternalRef = *patch.ExternalRef
		}
	})
	if err != nil {
		return nil, err
	}

	if !product.IsLinked() {
		s.linkRemote(ctx, product)
		return product, nil
	}

	if !nameChanged && !descriptionChanged {
		return product, nil
	}

	var summary, description *string
	if nameChanged {
		summary = &product.Name
	}
	if descriptionChanged {
		description = &product.Description
	}

	remoteErr := s.remote.UpdateIssue(ctx, product.RemoteKey, summary, description)
	status := model.SyncOK
	if remoteErr != nil {
		s.reportSyncFailure(product, "update_issue", remoteErr)
		status = model.SyncFailed
	}

	now := time.Now()
	if err := s.persistProduct(ctx, product, func(p *model.Product) {
		p.RecordSyncAttempt(status, now)
	}); err != nil {
		return nil, err
	}
	return product, nil
}

// DeleteProduct soft-deletes the record. When a remote link exists it first
// resolves and applies the configured drop transition; a remote failure is
// recorded as FAILED but never prevents the soft deletion. The result tells
// the caller whether manual remote cleanup is still needed.
func (s *Jirasync) DeleteProduct(ctx context.Context, id string) (*model.DeleteResult, error) {
	product, err := s.datasource.GetProductByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if product.DeletedAt != nil {
		// already gone; confirm the recorded outcome without another mutation
		return &model.DeleteResult{Deleted: true, JiraTransitioned: product.SyncStatus == model.SyncOK}, nil
	}

	transitioned := false
	attempted := false
	status := model.SyncOK
	if product.IsLinked() {
		attempted = true
		if remoteErr := s.dropRemoteIssue(ctx, product); remoteErr != nil {
			s.reportSyncFailure(product, "drop_issue", remoteErr)
			status = model.SyncFailed
		} else {
			transitioned = true
		}
	}

	now := time.Now()
	err = s.persistProduct(ctx, product, func(p *model.Product) {
		t := now
		p.DeletedAt = &t
		if attempted {
			p.RecordSyncAttempt(status, now)
		}
	})
	if err != nil {
		return nil, err
	}
	return &model.DeleteResult{Deleted: true, JiraTransitioned: transitioned}, nil
}

// dropRemoteIssue resolves the configured drop outcome against the issue's
// live workflow state and applies the resulting transition.
func (s *Jirasync) dropRemoteIssue(ctx context.Context, product *model.Product) error {
	conf, err := config.Fetch()
	if err != nil {
		return err
	}
	resolved, err := jira.ResolveTransition(ctx, s.remote, product.RemoteKey, conf.Jira.Transition)
	if err != nil {
		return err
	}
	return s.remote.ApplyTransition(ctx, product.RemoteKey, resolved.ID, resolved.Fields)
}

// linkRemote attempts remote issue creation for a product that has none and
// records the outcome. On failure the remote fields stay unset and the
// attempt is marked FAILED; the caller's local mutation is already durable.
func (s *Jirasync) linkRemote(ctx context.Context, product *model.Product) {
	key, remoteID, err := s.remote.CreateIssue(ctx, product.Name, product.Description, product.ProductID)
	now := time.Now()
	status := model.SyncOK
	if err != nil {
		s.reportSyncFailure(product, "create_issue", err)
		status = model.SyncFailed
	}

	if perr := s.persistProduct(ctx, product, func(p *model.Product) {
		if err == nil {
			p.RemoteKey = key
			p.RemoteID = remoteID
		}
		p.RecordSyncAttempt(status, now)
	}); perr != nil {
		logrus.WithFields(logrus.Fields{
			"product_id": product.ProductID,
			"remote_key": key,
		}).WithError(perr).Error("failed to record sync outcome")
	}
}

// persistProduct applies the mutation and writes the record. On a version
// conflict the row is re-read, the mutation re-applied on top of the fresh
// state, and the local write retried; the remote call is never repeated.
func (s *Jirasync) persistProduct(ctx context.Context, product *model.Product, apply func(*model.Product)) error {
	apply(product)
	err := s.datasource.UpdateProduct(ctx, product)
	for attempt := 0; attempt < localWriteRetries && apierror.IsCode(err, apierror.ErrConflict); attempt++ {
		fresh, readErr := s.datasource.GetProductByID(ctx, product.ProductID)
		if readErr != nil {
			return readErr
		}
		apply(fresh)
		err = s.datasource.UpdateProduct(ctx, fresh)
		if err == nil {
			*product = *fresh
		}
	}
	return err
}

// reportSyncFailure logs a failed remote attempt with enough context for
// manual retry and fans it out to the operator notification channel.
func (s *Jirasync) reportSyncFailure(product *model.Product, operation string, err error) {
	logrus.WithFields(logrus.Fields{
		"product_id": product.ProductID,
		"remote_key": product.RemoteKey,
		"operation":  operation,
	}).WithError(err).Error("outbound sync attempt failed")
	notification.NotifyError(err)
}
