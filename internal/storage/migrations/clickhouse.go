package migrations

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	chstore "fantasy-alpha-lab/internal/storage/clickhouse"
)

// RunClickhouseMigrations creates the seed metrics database if needed, applies
// the embedded schema one statement at a time and returns a connection to it.
func RunClickhouseMigrations(ctx context.Context, dsn string) (*chstore.Conn, []Migration, error) {
	dbName, err := databaseFromDSN(dsn)
	if err != nil {
		return nil, nil, err
	}
	list, err := List(ClickhouseFS, "clickhouse")
	if err != nil {
		return nil, nil, err
	}

	var stmts [][]string
	for _, m := range list {
		if err := validateNoSemicolonInStrings(m.SQL); err != nil {
			return nil, nil, fmt.Errorf("validate migration %s: %w", m.Name, err)
		}
		stmts = append(stmts, splitStatements(m.SQL))
	}

	adminConn, err := chstore.NewConnWithDatabase(ctx, dsn, "")
	if err != nil {
		return nil, nil, fmt.Errorf("connect clickhouse admin: %w", err)
	}
	if err := adminConn.Exec(ctx, fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", dbName)); err != nil {
		_ = adminConn.Close()
		return nil, nil, fmt.Errorf("create database %s: %w", dbName, err)
	}
	if err := adminConn.Close(); err != nil {
		return nil, nil, fmt.Errorf("close admin connection: %w", err)
	}

	conn, err := chstore.NewConnWithDatabase(ctx, dsn, dbName)
	if err != nil {
		return nil, nil, fmt.Errorf("connect clickhouse db %s: %w", dbName, err)
	}
	for i, m := range list {
		for _, stmt := range stmts[i] {
			if err := conn.Exec(ctx, stmt); err != nil {
				_ = conn.Close()
				return nil, nil, fmt.Errorf("apply migration %s: %w", m.Name, err)
			}
		}
	}
	return conn, list, nil
}

// splitStatements drops blank and -- comment lines and splits on semicolons.
// Migration files must keep semicolons out of string literals and use only
// -- comments; validateNoSemicolonInStrings enforces the first rule.
func splitStatements(input string) []string {
	var kept []string
	for _, line := range strings.Split(input, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		kept = append(kept, line)
	}

	var stmts []string
	for _, part := range strings.Split(strings.Join(kept, "\n"), ";") {
		if stmt := strings.TrimSpace(part); stmt != "" {
			stmts = append(stmts, stmt)
		}
	}
	return stmts
}

// validateNoSemicolonInStrings rejects SQL with a semicolon inside a
// single-quoted literal ('' is an escaped quote).
func validateNoSemicolonInStrings(sql string) error {
	inString := false
	for i := 0; i < len(sql); i++ {
		switch sql[i] {
		case '\'':
			if inString && i+1 < len(sql) && sql[i+1] == '\'' {
				i++
				continue
			}
			inString = !inString
		case ';':
			if inString {
				return fmt.Errorf("semicolon inside string literal at offset %d", i)
			}
		}
	}
	return nil
}

func databaseFromDSN(dsn string) (string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("parse clickhouse dsn: %w", err)
	}
	db := strings.TrimPrefix(u.Path, "/")
	if db == "" {
		return "", fmt.Errorf("clickhouse dsn %q has no database", u.Redacted())
	}
	return db, nil
}
