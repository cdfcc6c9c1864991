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

package config

import (
	"encoding/json"
	"errors"
	"log"
	"os"
	"strings"
	"sync/atomic"

	"github.com/kelseyhightower/envconfig"

	"github.com/sirupsen/logrus"
)

const (
	DEFAULT_PORT = "4100"

	// DefaultTargetStatus is the workflow status a deleted product's issue is
	// moved towards when no explicit transition is configured.
	DefaultTargetStatus = "Cancelled"

	// DefaultRemoteTimeout caps a single Jira call, in seconds.
	DefaultRemoteTimeout = 30
)

var ConfigStore atomic.Value

type ServerConfig struct {
	Secure    bool   `json:"secure" envconfig:"JIRASYNC_SERVER_SECURE"`
	SecretKey string `json:"secret_key" envconfig:"JIRASYNC_SERVER_SECRET_KEY"`
	Port      string `json:"port" envconfig:"JIRASYNC_SERVER_PORT"`
}

type DataSourceConfig struct {
	Dns string `json:"dns" envconfig:"JIRASYNC_DATA_SOURCE_DNS"`
}

// TransitionConfig selects the workflow transition used when a product is
// deleted. Id takes precedence over TargetStatus; when Id is set it must be
// present in the live transition list or the delete flow reports the sync as
// failed.
type TransitionConfig struct {
	Id           string `json:"id" envconfig:"JIRASYNC_JIRA_TRANSITION_ID"`
	TargetStatus string `json:"target_status" envconfig:"JIRASYNC_JIRA_TRANSITION_TARGET_STATUS"`
}

type JiraConfig struct {
	BaseUrl    string           `json:"base_url" envconfig:"JIRASYNC_JIRA_BASE_URL"`
	Email      string           `json:"email" envconfig:"JIRASYNC_JIRA_EMAIL"`
	ApiToken   string           `json:"api_token" envconfig:"JIRASYNC_JIRA_API_TOKEN"`
	ProjectKey string           `json:"project_key" envconfig:"JIRASYNC_JIRA_PROJECT_KEY"`
	IssueType  string           `json:"issue_type" envconfig:"JIRASYNC_JIRA_ISSUE_TYPE"`
	Timeout    int              `json:"timeout" envconfig:"JIRASYNC_JIRA_TIMEOUT"`
	Transition TransitionConfig `json:"transition"`
}

type SlackWebhook struct {
	WebhookUrl string `json:"webhook_url"`
}

type Notification struct {
	Slack SlackWebhook `json:"slack"`
}

type Configuration struct {
	ProjectName  string           `json:"project_name" envconfig:"JIRASYNC_PROJECT_NAME"`
	Server       ServerConfig     `json:"server"`
	DataSource   DataSourceConfig `json:"data_source"`
	Jira         JiraConfig       `json:"jira"`
	Notification Notification     `json:"notification"`
}

func loadConfigFromFile(file string) error {
	var cnf Configuration
	_, err := os.Stat(file)
	if err == nil {
		f, err := os.Open(file)
		if err != nil {
			return err
		}
		err = json.NewDecoder(f).Decode(&cnf)
		if err != nil {
			return err
		}

	} else if errors.Is(err, os.ErrNotExist) {
		log.Println("config json not passed, will use env variables")
	}

	// override config from environment variables
	err = envconfig.Process("jirasync", &cnf)
	if err != nil {
		return err
	}

	err = cnf.validateAndAddDefaults()
	if err != nil {
		return err
	}

	ConfigStore.Store(&cnf)
	return err
}

func InitConfig(configFile string) error {
	logger()
	return loadConfigFromFile(configFile)
}

func Fetch() (*Configuration, error) {
	config := ConfigStore.Load()
	c, ok := config.(*Configuration)
	if !ok {
		return nil, errors.New("config not loaded from file. Create a json file called jirasync.json with your config ❌")
	}
	return c, nil
}

func (cnf *Configuration) validateAndAddDefaults() error {
	if cnf.ProjectName == "" {
		log.Println("Warning: Project name is empty. Setting a default name.")
		cnf.ProjectName = "Jirasync Server"
	}

	if cnf.DataSource.Dns == "" {
		log.Println("Error: Data source DNS is empty. It's a required field.")
		return errors.New("data source DNS is required")
	}

	if cnf.Jira.BaseUrl == "" {
		log.Println("Error: Jira base URL is empty. It's a required field.")
		return errors.New("jira base URL is required")
	}

	// Trim white spaces from fields
	cnf.ProjectName = strings.TrimSpace(cnf.ProjectName)
	cnf.Server.Port = strings.TrimSpace(cnf.Server.Port)
	cnf.DataSource.Dns = strings.TrimSpace(cnf.DataSource.Dns)
	cnf.Jira.BaseUrl = strings.TrimSuffix(strings.TrimSpace(cnf.Jira.BaseUrl), "/")
	cnf.Jira.ProjectKey = strings.TrimSpace(cnf.Jira.ProjectKey)

	// Set default value for Port if it's empty
	if cnf.Server.Port == "" {
		cnf.Server.Port = DEFAULT_PORT
		log.Printf("Warning: Port not specified in config. Setting default port: %s", DEFAULT_PORT)
	}

	if cnf.Jira.IssueType == "" {
		cnf.Jira.IssueType = "Task"
	}

	if cnf.Jira.Timeout <= 0 {
		cnf.Jira.Timeout = DefaultRemoteTimeout
	}

	// A delete needs some way to pick a transition. The target status fallback
	// keeps zero-config installs working against default Jira workflows.
	if cnf.Jira.Transition.Id == "" && cnf.Jira.Transition.TargetStatus == "" {
		cnf.Jira.Transition.TargetStatus = DefaultTargetStatus
		log.Printf("Warning: No delete transition configured. Targeting status: %s", DefaultTargetStatus)
	}

	return nil
}

// MockConfig sets a mock configuration for testing purposes.
func MockConfig(mockConfig *Configuration) {
	ConfigStore.Store(mockConfig)
}

func logger() {
	logger := logrus.New()
	log.SetOutput(logger.Writer())
}
