package migrations

import (
	"io/fs"
	"testing"
	"testing/fstest"
)

func TestEmbeddedMigrations(t *testing.T) {
	for name, fsys := range map[string]fs.FS{"postgres": PostgresFS, "clickhouse": ClickhouseFS} {
		entries, err := fs.ReadDir(fsys, name)
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		if len(entries) == 0 {
			t.Errorf("%s: no embedded migrations", name)
		}
	}
}

func TestClickhouseMigrationsSplit(t *testing.T) {
	entries, err := fs.ReadDir(ClickhouseFS, "clickhouse")
	if err != nil {
		t.Fatal(err)
	}
	for _, entry := range entries {
		data, err := fs.ReadFile(ClickhouseFS, "clickhouse/"+entry.Name())
		if err != nil {
			t.Fatal(err)
		}
		if err := validateNoSemicolonInStrings(string(data)); err != nil {
			t.Errorf("%s: %v", entry.Name(), err)
		}
		if stmts := splitStatements(string(data)); len(stmts) != 1 {
			t.Errorf("%s: got %d statements, want 1", entry.Name(), len(stmts))
		}
	}
}

func TestSplitStatements(t *testing.T) {
	sql := "-- header\nCREATE TABLE a (x Int8);\n\nCREATE TABLE b (y Int8);\n"
	stmts := splitStatements(sql)
	if len(stmts) != 2 {
		t.Fatalf("got %d statements, want 2", len(stmts))
	}
	if stmts[1] != "CREATE TABLE b (y Int8)" {
		t.Errorf("unexpected statement %q", stmts[1])
	}
}

func TestValidateNoSemicolonInStrings(t *testing.T) {
	if err := validateNoSemicolonInStrings("SELECT 'a;b'"); err == nil {
		t.Error("expected error for semicolon in string literal")
	}
	if err := validateNoSemicolonInStrings("SELECT 'it''s'; SELECT 1;"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestDatabaseFromDSN(t *testing.T) {
	db, err := databaseFromDSN("clickhouse://localhost:9000/alpha")
	if err != nil || db != "alpha" {
		t.Errorf("got %q, %v", db, err)
	}
	if _, err := databaseFromDSN("clickhouse://localhost:9000"); err == nil {
		t.Error("expected error for missing database")
	}
}

func TestList_EmbeddedOrder(t *testing.T) {
	list, err := List(PostgresFS, "postgres")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	want := []string{"001_ab_runs.sql", "002_feed_snapshots.sql"}
	if len(list) != len(want) {
		t.Fatalf("got %d migrations, want %d", len(list), len(want))
	}
	for i, m := range list {
		if m.Name != want[i] || m.Version != i+1 {
			t.Errorf("migration %d = %s (v%d), want %s (v%d)", i, m.Name, m.Version, want[i], i+1)
		}
	}
}

func TestList_OrdersAndSkipsBlank(t *testing.T) {
	fsys := fstest.MapFS{
		"m/002_views.sql":  {Data: []byte("CREATE VIEW v AS SELECT 1;")},
		"m/001_tables.sql": {Data: []byte("CREATE TABLE t (x Int8);")},
		"m/003_noop.sql":   {Data: []byte("  \n")},
		"m/README.md":      {Data: []byte("ignored")},
	}
	list, err := List(fsys, "m")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 2 || list[0].Name != "001_tables.sql" || list[1].Name != "002_views.sql" {
		t.Errorf("unexpected migrations: %+v", list)
	}
}

func TestList_RejectsBadVersions(t *testing.T) {
	cases := map[string]fstest.MapFS{
		"gap":       {"m/001_a.sql": {Data: []byte("SELECT 1;")}, "m/003_c.sql": {Data: []byte("SELECT 1;")}},
		"duplicate": {"m/001_a.sql": {Data: []byte("SELECT 1;")}, "m/001_b.sql": {Data: []byte("SELECT 1;")}},
		"no prefix": {"m/tables.sql": {Data: []byte("SELECT 1;")}},
		"not int":   {"m/abc_tables.sql": {Data: []byte("SELECT 1;")}},
	}
	for name, fsys := range cases {
		if _, err := List(fsys, "m"); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}
