package postgres

import (
	"strings"
	"testing"
	"testing/fstest"
)

func TestLoadMigrationsFromFS_Success(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"sql/migrations/0002_more.up.sql":   {Data: []byte("CREATE TABLE test_b (id INT);")},
		"sql/migrations/0002_more.down.sql": {Data: []byte("DROP TABLE IF EXISTS test_b;")},
		"sql/migrations/0001_init.up.sql":   {Data: []byte("CREATE TABLE test_a (id INT);")},
		"sql/migrations/0001_init.down.sql": {Data: []byte("DROP TABLE IF EXISTS test_a;")},
	}

	migrations, err := loadMigrationsFromFS(fsys)
	if err != nil {
		t.Fatalf("loadMigrationsFromFS failed: %v", err)
	}
	if len(migrations) != 2 {
		t.Fatalf("expected 2 migrations, got %d", len(migrations))
	}
	if migrations[0].Version != 1 || migrations[0].Name != "init" {
		t.Fatalf("unexpected first migration: %+v", migrations[0])
	}
	if migrations[1].Version != 2 || migrations[1].DownSQL != "DROP TABLE IF EXISTS test_b;" {
		t.Fatalf("unexpected second migration: %+v", migrations[1])
	}
}

func TestLoadMigrationsFromFS_Errors(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		fsys fstest.MapFS
		want string
	}{
		"missing down": {
			fsys: fstest.MapFS{
				"sql/migrations/0001_init.up.sql": {Data: []byte("CREATE TABLE test_a (id INT);")},
			},
			want: "both up and down",
		},
		"invalid filename": {
			fsys: fstest.MapFS{
				"sql/migrations/not_a_migration.sql": {Data: []byte("SELECT 1;")},
			},
			want: "invalid migration file name",
		},
		"empty body": {
			fsys: fstest.MapFS{
				"sql/migrations/0001_init.up.sql":   {Data: []byte("   \n")},
				"sql/migrations/0001_init.down.sql": {Data: []byte("DROP TABLE IF EXISTS test;")},
			},
			want: "empty",
		},
		"name mismatch": {
			fsys: fstest.MapFS{
				"sql/migrations/0001_init.up.sql":    {Data: []byte("SELECT 1;")},
				"sql/migrations/0001_other.down.sql": {Data: []byte("SELECT 1;")},
			},
			want: "name mismatch",
		},
		"no files": {
			fsys: fstest.MapFS{},
			want: "no migration files",
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := loadMigrationsFromFS(tc.fsys)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestEmbeddedMigrations(t *testing.T) {
	t.Parallel()

	migrations, err := loadMigrationsFromFS(migrationsFS)
	if err != nil {
		t.Fatalf("embedded migrations are invalid: %v", err)
	}
	if len(migrations) < 2 {
		t.Fatalf("expected at least 2 migrations, got %d", len(migrations))
	}
	if !strings.Contains(migrations[len(migrations)-1].UpSQL, OrderChangesChannel) {
		t.Fatal("notify trigger must publish to the order changes channel")
	}
}

func TestPlanMigrations(t *testing.T) {
	t.Parallel()

	all := []migration{
		{Version: 1, Name: "a", UpSQL: "1", DownSQL: "-1"},
		{Version: 2, Name: "b", UpSQL: "2", DownSQL: "-2"},
		{Version: 3, Name: "c", UpSQL: "3", DownSQL: "-3"},
	}

	up, err := planMigrations(all, map[int64]bool{1: true}, migrationUp, 0)
	if err != nil {
		t.Fatalf("plan up: %v", err)
	}
	if len(up) != 2 || up[0].Version != 2 || up[1].Version != 3 {
		t.Fatalf("unexpected up plan: %+v", up)
	}

	oneStep, err := planMigrations(all, nil, migrationUp, 1)
	if err != nil {
		t.Fatalf("plan up one step: %v", err)
	}
	if len(oneStep) != 1 || oneStep[0].Version != 1 {
		t.Fatalf("unexpected single step plan: %+v", oneStep)
	}

	down, err := planMigrations(all, map[int64]bool{1: true, 2: true}, migrationDown, 1)
	if err != nil {
		t.Fatalf("plan down: %v", err)
	}
	if len(down) != 1 || down[0].Version != 2 || down[0].body(migrationDown) != "-2" {
		t.Fatalf("unexpected down plan: %+v", down)
	}

	if _, err := planMigrations(all, map[int64]bool{9: true}, migrationDown, 1); err == nil {
		t.Fatal("expected error for unknown applied version")
	}
}
