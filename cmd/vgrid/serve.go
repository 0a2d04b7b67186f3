/*
SPDX-License-Identifier: Apache-2.0

Copyright 2024 The Taxinomia Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    https://www.apache.org/licenses/LICENSE-2.0

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
	"net/http"

	"github.com/spf13/cobra"

	"github.com/google/vgrid/core/server"
)

func newServeCmd(cfg *Config) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the configured data sources as HTML grid pages and a JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := cfg.manager()
			if err != nil {
				return err
			}
			opts, err := cfg.gridOptions()
			if err != nil {
				return err
			}
			srv, err := server.NewServer(m, cfg.logger(), opts...)
			if err != nil {
				return err
			}
			srv.Title = cfg.Title
			srv.Subtitle = fmt.Sprintf("%d data sources", len(m.SourceNames()))

			if addr == "" {
				addr = cfg.Addr
			}
			log.Printf("Server starting on %s", addr)
			return http.ListenAndServe(addr, srv.Echo())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8097)")
	return cmd
}
