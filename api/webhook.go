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
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// ReceiveWebhook ingests a Jira change notification. The endpoint always
// acknowledges with 200 so Jira does not disable the webhook registration;
// reconciliation failures are logged and retried on the next notification.
func (a Api) ReceiveWebhook(c *gin.Context) {
	payload, err := c.GetRawData()
	if err != nil {
		logrus.WithError(err).Warn("failed to read webhook payload")
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	if err := a.service.ReconcileNotification(c.Request.Context(), payload); err != nil {
		logrus.WithError(err).Warn("webhook reconciliation failed")
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
