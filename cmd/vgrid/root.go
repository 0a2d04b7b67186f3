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
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/text/language"

	"github.com/google/vgrid/core/grid"
	"github.com/google/vgrid/core/selection"
	"github.com/google/vgrid/core/virtualization"
	"github.com/google/vgrid/datasources"
)

const (
	configName = "vgrid"
	envPrefix  = "VGRID"
)

// Config is the contents of vgrid.yaml.
type Config struct {
	Title          string  `mapstructure:"title"`
	Addr           string  `mapstructure:"addr"`
	BaseDir        string  `mapstructure:"base_dir"`
	RowHeight      float64 `mapstructure:"row_height"`
	HeaderHeight   float64 `mapstructure:"header_height"`
	BufferCount    int     `mapstructure:"buffer_count"`
	ViewportHeight float64 `mapstructure:"viewport_height"`
	SelectionMode  string  `mapstructure:"selection_mode"`
	NumericFormat  string  `mapstructure:"numeric_format"`
	Language       string  `mapstructure:"language"`
	Verbose        bool    `mapstructure:"verbose"`

	// Annotations are shared column annotations, referenced by id from sources.
	Annotations map[string][]datasources.ColumnAnnotation `mapstructure:"annotations"`
	Sources     []datasources.DataSource                  `mapstructure:"sources"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("title", "vgrid")
	v.SetDefault("addr", ":8097")
	v.SetDefault("row_height", virtualization.DefaultRowHeight)
	v.SetDefault("buffer_count", virtualization.DefaultBufferCount)
	v.SetDefault("viewport_height", 20*virtualization.DefaultRowHeight)
	v.SetDefault("selection_mode", "extended")
	v.SetDefault("language", "en")
}

// loadConfig reads the config file at path, or vgrid.yaml from the working
// directory when path is empty. A missing default file is not an error.
// Settings may be overridden by VGRID_* environment variables.
func loadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(configName)
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.BaseDir == "" && v.ConfigFileUsed() != "" {
		cfg.BaseDir = filepath.Dir(v.ConfigFileUsed())
	}
	return &cfg, nil
}

// gridOptions converts the grid settings of cfg to grid options.
func (cfg *Config) gridOptions() ([]grid.Option, error) {
	mode, err := selection.ParseMode(cfg.SelectionMode)
	if err != nil {
		return nil, err
	}
	opts := []grid.Option{
		grid.WithSelectionMode(mode),
		grid.WithNumericFormat(cfg.NumericFormat),
		grid.WithBufferCount(cfg.BufferCount),
	}
	if cfg.Language != "" {
		tag, err := language.Parse(cfg.Language)
		if err != nil {
			return nil, fmt.Errorf("language %q: %w", cfg.Language, err)
		}
		opts = append(opts, grid.WithLanguage(tag))
	}
	if cfg.RowHeight > 0 {
		opts = append(opts, grid.WithRowHeight(cfg.RowHeight))
	}
	if cfg.HeaderHeight > 0 {
		opts = append(opts, grid.WithHeaderHeight(cfg.HeaderHeight))
	}
	if cfg.ViewportHeight > 0 {
		opts = append(opts, grid.WithViewportHeight(cfg.ViewportHeight))
	}
	return opts, nil
}

// manager builds a data source manager holding the configured sources.
func (cfg *Config) manager() (*datasources.Manager, error) {
	m := datasources.NewManager()
	if cfg.BaseDir != "" {
		m.SetBaseDir(cfg.BaseDir)
	}
	for id, cols := range cfg.Annotations {
		m.AddAnnotations(id, cols)
	}
	for _, src := range cfg.Sources {
		if err := m.AddSource(src); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (cfg *Config) logger() *slog.Logger {
	if !cfg.Verbose {
		return nil
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func newRootCmd() *cobra.Command {
	var configFile string
	cfg := &Config{}

	root := &cobra.Command{
		Use:   "vgrid",
		Short: "vgrid shows tabular data sources in a virtualized grid",
		Long: `vgrid loads CSV, SQLite and textproto data sources and shows them through
a grid with sorting, filtering, grouping and aggregation, either in the
terminal (show) or as HTML pages (serve).`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := loadConfig(configFile)
			if err != nil {
				return err
			}
			*cfg = *loaded
			return nil
		},
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "config file (default: ./vgrid.yaml)")

	root.AddCommand(newShowCmd(cfg))
	root.AddCommand(newServeCmd(cfg))
	root.AddCommand(newSourcesCmd(cfg))
	return root
}
