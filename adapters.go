package main

// Store adapters register themselves with the datasource registry.
import (
	_ "github.com/ekaya-inc/ekaya-ask/pkg/adapters/datasource/mssql"
	_ "github.com/ekaya-inc/ekaya-ask/pkg/adapters/datasource/mysql"
	_ "github.com/ekaya-inc/ekaya-ask/pkg/adapters/datasource/postgres"
	_ "github.com/ekaya-inc/ekaya-ask/pkg/adapters/datasource/sqlite"
)
