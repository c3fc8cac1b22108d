// Package configs provides embedded configuration templates for RabbitHole.
//
// Templates are embedded at build time using Go's //go:embed directive so
// they are available in every distribution, source builds included.
//
// Configuration Hierarchy (see internal/config/config.go Load()):
//  1. Hardcoded defaults (internal/config/config.go NewConfig())
//  2. User config (~/.config/rabbithole/config.yaml)
//  3. Project config (.rabbithole.yaml)
//  4. Environment variables (RABBITHOLE_*)
//
// To modify templates, edit the .yaml files in this directory and rebuild.
package configs

import _ "embed"

// UserConfigTemplate is the template for user/machine-level configuration,
// written to ~/.config/rabbithole/config.yaml. It carries machine-specific
// settings: the YouTube API key, logging destination, cache sizing.
//
//go:embed user-config.example.yaml
var UserConfigTemplate string

// ProjectConfigTemplate is the template for project-level configuration,
// written to .rabbithole.yaml in the project root. It carries settings worth
// version-controlling: result limits, timeouts, source tuning.
//
//go:embed project-config.example.yaml
var ProjectConfigTemplate string
