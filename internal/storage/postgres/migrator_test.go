package postgres

import (
	"strings"
	"testing"
	"testing/fstest"
)

func migrationFile(body string) *fstest.MapFile {
	return &fstest.MapFile{Data: []byte(body)}
}

func TestLoadMigrationsFromFS(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		fsys    fstest.MapFS
		wantErr string
		want    []int64
	}{
		{
			name: "sorted by version",
			fsys: fstest.MapFS{
				"sql/migrations/0002_index.up.sql":   migrationFile("CREATE INDEX i ON t (v);"),
				"sql/migrations/0002_index.down.sql": migrationFile("DROP INDEX IF EXISTS i;"),
				"sql/migrations/0001_kv.up.sql":      migrationFile("CREATE TABLE t (v INT);"),
				"sql/migrations/0001_kv.down.sql":    migrationFile("DROP TABLE IF EXISTS t;"),
			},
			want: []int64{1, 2},
		},
		{
			name: "missing down",
			fsys: fstest.MapFS{
				"sql/migrations/0001_kv.up.sql": migrationFile("CREATE TABLE t (v INT);"),
			},
			wantErr: "both up and down",
		},
		{
			name: "invalid name",
			fsys: fstest.MapFS{
				"sql/migrations/kv.sql": migrationFile("SELECT 1;"),
			},
			wantErr: "invalid migration file name",
		},
		{
			name: "empty body",
			fsys: fstest.MapFS{
				"sql/migrations/0001_kv.up.sql":   migrationFile("   "),
				"sql/migrations/0001_kv.down.sql": migrationFile("DROP TABLE t;"),
			},
			wantErr: "is empty",
		},
		{
			name: "name mismatch",
			fsys: fstest.MapFS{
				"sql/migrations/0001_kv.up.sql":      migrationFile("CREATE TABLE t (v INT);"),
				"sql/migrations/0001_other.down.sql": migrationFile("DROP TABLE t;"),
			},
			wantErr: "name mismatch",
		},
		{
			name:    "no files",
			fsys:    fstest.MapFS{},
			wantErr: "no migration files",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			migrations, err := loadMigrationsFromFS(tt.fsys)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("loadMigrationsFromFS: %v", err)
			}
			if len(migrations) != len(tt.want) {
				t.Fatalf("expected %d migrations, got %d", len(tt.want), len(migrations))
			}
			for i, version := range tt.want {
				if migrations[i].Version != version {
					t.Fatalf("migration %d: expected version %d, got %d", i, version, migrations[i].Version)
				}
			}
		})
	}
}

func TestEmbeddedMigrationsAreComplete(t *testing.T) {
	t.Parallel()

	migrations, err := loadMigrationsFromFS(migrationsFS)
	if err != nil {
		t.Fatalf("load embedded migrations: %v", err)
	}
	if len(migrations) != 2 {
		t.Fatalf("expected 2 embedded migrations, got %d", len(migrations))
	}
	if migrations[0].Name != "kv_entries" {
		t.Fatalf("unexpected first migration %q", migrations[0].Name)
	}
}
