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

package main

import (
	"fmt"
	"log"
	"os"

	"github.com/prodflow/jirasync"
	"github.com/prodflow/jirasync/config"
	"github.com/prodflow/jirasync/database"
	"github.com/prodflow/jirasync/internal/notification"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// Jirasync represents the CLI application, encapsulating the root Cobra command.
type Jirasync struct {
	cmd *cobra.Command
}

// syncInstance holds the runtime service instance and its configuration,
// shared by the subcommands through the persistent pre-run hook.
type syncInstance struct {
	service *jirasync.Jirasync
	cnf     *config.Configuration
}

// recoverPanic handles any panics during program execution and logs the error.
func recoverPanic() {
	if rec := recover(); rec != nil {
		logrus.Error(rec)
		os.Exit(1)
	}
}

// preRun loads the configuration and initializes the service before any
// subcommand executes.
func preRun(app *syncInstance, configFile *string) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := config.InitConfig(*configFile)
		if err != nil {
			log.Fatal("error loading config", err)
		}

		cnf, err := config.Fetch()
		if err != nil {
			return err
		}

		service, err := setupService(cnf)
		if err != nil {
			notification.NotifyError(err)
			log.Fatal(err)
		}

		app.service = service
		app.cnf = cnf

		return nil
	}
}

// setupService connects the data source and builds the synchronization core.
func setupService(cfg *config.Configuration) (*jirasync.Jirasync, error) {
	db, err := database.NewDataSource(cfg)
	if err != nil {
		return nil, fmt.Errorf("error getting datasource: %v", err)
	}

	service, err := jirasync.NewJirasync(db)
	if err != nil {
		return nil, fmt.Errorf("error creating jirasync: %v", err)
	}
	return service, nil
}

// NewCLI creates the command-line interface for the jirasync application.
func NewCLI() *Jirasync {
	var configFile string
	j := &syncInstance{}

	var rootCmd = &cobra.Command{
		Use:   "jirasync",
		Short: "Product to Jira issue synchronization service",
		Run:   func(cmd *cobra.Command, args []string) {},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "./jirasync.json", "Configuration file for jirasync")

	rootCmd.PersistentPreRunE = preRun(j, &configFile)

	rootCmd.AddCommand(serverCommands(j))
	rootCmd.AddCommand(migrateCommands(j))

	return &Jirasync{cmd: rootCmd}
}

func (j Jirasync) executeCLI() {
	if err := j.cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	defer recoverPanic()

	cli := NewCLI()
	cli.executeCLI()
}
