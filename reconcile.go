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

	"github.com/prodflow/jirasync/internal/apierror"
	"github.com/prodflow/jirasync/model"
)

// ReconcileNotification merges an inbound Jira change notification into the
// matching local product. Only fields that actually differ are written, in a
// single persisted write; a duplicate notification is a no-op, which makes
// at-least-once delivery safe. A notification for an unknown issue key
// back-fills a new local record. Reconciled changes are never pushed back out
// through the outbound flows, so a webhook can never echo into a remote
// write loop.
//
// Errors are returned for logging only; the webhook endpoint acknowledges the
// sender regardless.
func (s *Jirasync) ReconcileNotification(ctx context.Context, payload []byte) error {
	n, err := model.ParseChangeNotification(payload)
	if err != nil {
		logrus.WithError(err).Warn("discarding undecodable notification")
		return err
	}
	if n.RemoteKey == "" {
		logrus.Debug("notification carries no issue key, ignoring")
		return nil
	}

	product, err := s.datasource.GetProductByRemoteKey(ctx, n.RemoteKey)
	if apierror.IsCode(err, apierror.ErrNotFound) {
		return s.backfillProduct(ctx, n)
	}
	if err != nil {
		return err
	}
	if product.DeletedAt != nil {
		logrus.WithField("remote_key", n.RemoteKey).Debug("notification for soft-deleted product, ignoring")
		return nil
	}

	nameChanged := n.Summary != nil && *n.Summary != product.Name
	statusChanged := n.Status != nil && *n.Status != product.RemoteStatus
	descriptionChanged := n.Description != nil && *n.Description != product.Description
	if !nameChanged && !statusChanged && !descriptionChanged {
		// duplicate or stale notification; nothing to write
		return nil
	}

	now := time.Now()
	err = s.persistProduct(ctx, product, func(p *model.Product) {
		if nameChanged {
			p.Name = *n.Summary
		}
		if statusChanged {
			p.RemoteStatus = *n.Status
		}
		if descriptionChanged {
			p.Description = *n.Description
		}
		if n.RemoteID != "" && p.RemoteID == "" {
			p.RemoteID = n.RemoteID
		}
		p.RecordSyncAttempt(model.SyncOK, now)
	})
	if err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"product_id": product.ProductID,
		"remote_key": n.RemoteKey,
	}).Info("reconciled inbound change")
	return nil
}

// backfillProduct creates a local record from a notification that references
// an issue this system has never seen. The remote view is by definition what
// was just stored, so the record starts out synced.
func (s *Jirasync) backfillProduct(ctx context.Context, n *model.ChangeNotification) error {
	now := time.Now()
	product := &model.Product{
		ProductID:  model.GenerateUUIDWithSuffix("prd"),
		RemoteKey:  n.RemoteKey,
		RemoteID:   n.RemoteID,
		SyncStatus: model.SyncOK,
		LastSyncAt: &now,
		CreatedAt:  now,
		Version:    1,
	}
	if n.Summary != nil {
		product.Name = *n.Summary
	}
	if n.Status != nil {
		product.RemoteStatus = *n.Status
	}
	if n.Description != nil {
		product.Description = *n.Description
	}

	if err := s.datasource.CreateProduct(ctx, product); err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{
		"product_id": product.ProductID,
		"remote_key": n.RemoteKey,
	}).Info("back-filled product from notification")
	return nil
}
