//go:build duckdb || all_adapters

package main

import _ "github.com/ekaya-inc/ekaya-ask/pkg/adapters/datasource/duckdb"
