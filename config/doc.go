/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package config loads backend configuration from the environment.
//
// Backends declare plain structs with `env` tags and parse them with ParseEnv
// or ParsePrefixed. LoadDotEnv populates the environment from .env files first,
// which is how local development and the integration tests are set up.
package config
