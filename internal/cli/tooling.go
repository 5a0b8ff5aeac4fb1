/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"pagebuilder/internal/config"
	"pagebuilder/internal/version"
)

var versionCmd = &cobra.Command{
	Use:     "version",
	Short:   "Print the pagebuilder version",
	Args:    cobra.NoArgs,
	GroupID: "tooling",
	Run: func(cmd *cobra.Command, args []string) {
		PrintInfo(version.String())
	},
}

var configCmd = &cobra.Command{
	Use:     "config",
	Short:   "Inspect the effective configuration",
	GroupID: "tooling",
}

// overridable lists the keys config show annotates with their env source.
var overridable = []string{
	"general.telemetry_opt_in", "general.enable_server",
	"editor.history_max", "editor.coalesce_ms", "editor.canvas_width", "editor.default_breakpoint", "editor.palette_file",
	"storage.keep_revisions",
	"backend.base_url", "backend.timeout_ms", "backend.dsn", "backend.addr",
	"logging.level", "logging.format", "logging.source", "logging.file",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the merged configuration and the env vars overriding it",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if jsonOutput {
			return printJSON(cfg)
		}
		path, err := config.ConfigPath()
		if err != nil {
			return err
		}
		PrintSection("Configuration")
		PrintLabelValue("File", path)
		PrintLabelValue("Token", map[bool]string{true: "stored in keyring", false: "none"}[token != ""])
		b, err := yaml.Marshal(cfg)
		if err != nil {
			return err
		}
		PrintInfo(string(b))
		var env []string
		for _, k := range overridable {
			if name, ok := config.EnvOverrideFor(k); ok {
				env = append(env, fmt.Sprintf("%s <- %s", k, name))
			}
		}
		if len(env) > 0 {
			PrintSection("Environment overrides")
			PrintList(env, 1)
		}
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the current effective configuration to the config file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Save(cfg, ""); err != nil {
			return err
		}
		path, _ := config.ConfigPath()
		PrintSuccess("Wrote " + path)
		return nil
	},
}

var configLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the stored backend token",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.ClearToken(); err != nil {
			return err
		}
		token = ""
		PrintSuccess("Token removed")
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd, configInitCmd, configLogoutCmd)
}
