/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package config

import (
	stderrors "errors"
	"io/fs"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/suparena/objectstore/errors"
)

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	return ParsePrefixed(target, "")
}

// ParsePrefixed loads configuration from environment variables whose names
// start with prefix, e.g. OBJECTS_SQL_.
func ParsePrefixed(target any, prefix string) error {
	if err := env.ParseWithOptions(target, env.Options{Prefix: prefix}); err != nil {
		return errors.NewConfigurationError(prefix, "parse env", err)
	}
	return nil
}

// LoadDotEnv loads variables from the given files into the environment,
// without overriding variables already set. Missing files are skipped.
// With no paths, ".env" in the working directory is tried.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}

	var existing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			if stderrors.Is(err, fs.ErrNotExist) {
				continue
			}
			return errors.NewConfigurationError(p, "stat env file", err)
		}
		existing = append(existing, p)
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return errors.NewConfigurationError("dotenv", "load env file", err)
	}
	return nil
}
