// Package config loads typed configuration structs from environment
// variables, with optional .env support for local development.
//
// Each struct type is parsed once per process and cached, so packages
// can load their own config independently without re-reading the
// environment or racing on godotenv.
package config
