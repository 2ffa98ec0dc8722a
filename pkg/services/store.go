// Package services implements the question pipeline (catalog, context
// builder, synthesizer, executor, narrator) and the ingestion that feeds it.
package services

import (
	"github.com/ekaya-inc/ekaya-ask/pkg/config"
)

// StoreRef names the relational store questions are answered from: an
// adapter type from the datasource registry and the config map its
// factories parse.
type StoreRef struct {
	Type   string
	Config map[string]any
}

// StoreRefFromConfig builds a StoreRef from the store section of the config.
func StoreRefFromConfig(cfg *config.StoreConfig) StoreRef {
	return StoreRef{Type: cfg.Type, Config: cfg.AdapterConfig()}
}

// SQLiteStore is a StoreRef for a SQLite file.
func SQLiteStore(path string) StoreRef {
	return StoreRef{Type: "sqlite", Config: map[string]any{"path": path}}
}
