package migrations

import "embed"

// FS 内嵌 goose 迁移脚本，SQLite 与 PostgreSQL 共用
//
//go:embed *.sql
var FS embed.FS
