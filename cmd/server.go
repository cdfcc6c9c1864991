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
	"log"

	"github.com/prodflow/jirasync/api"
	"github.com/spf13/cobra"
)

// serverCommands creates the command that starts the HTTP API, including the
// webhook endpoint Jira posts issue changes to.
func serverCommands(b *syncInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "start jirasync server",
		Run: func(cmd *cobra.Command, args []string) {
			a, err := api.NewAPI(b.service)
			if err != nil {
				log.Fatal(err)
			}
			router := a.Router()

			port := b.cnf.Server.Port
			log.Printf("Starting server on http://localhost:%s", port)
			if err := router.Run(":" + port); err != nil {
				log.Fatal(err)
			}
		},
	}

	return cmd
}
