package pg

import (
	"context"
	"strings"
	"testing"
)

func TestCreateTable(t *testing.T) {
	conn := &fakeConn{}
	client := newTestClient(&fakeDatabase{conn: conn, defaultDB: "app"}, nil)

	result, err := client.CreateTable(context.Background(), CreateTableArgs{
		Query: "CREATE TABLE users (id serial PRIMARY KEY, name text)",
	})
	if err != nil {
		t.Fatalf("CreateTable error: %v", err)
	}
	if !strings.Contains(result.Message, "created") {
		t.Errorf("Message = %q", result.Message)
	}
	if len(conn.execs) != 1 {
		t.Fatalf("execs = %v", conn.execs)
	}
}

func TestCreateTableCrossDatabase(t *testing.T) {
	other := &fakeConn{}
	db := &fakeDatabase{
		conn:       &fakeConn{},
		standalone: map[string]*fakeConn{"reporting": other},
		defaultDB:  "app",
	}
	client := newTestClient(db, nil)

	result, err := client.CreateTable(context.Background(), CreateTableArgs{
		Query:        "CREATE TABLE stats (day date)",
		DatabaseName: "reporting",
	})
	if err != nil {
		t.Fatalf("CreateTable error: %v", err)
	}
	if len(other.execs) != 1 {
		t.Errorf("statement should run on the standalone connection, execs = %v", other.execs)
	}
	if !strings.Contains(result.Message, "reporting") {
		t.Errorf("Message = %q", result.Message)
	}
}

func TestDropTableDefaults(t *testing.T) {
	conn := &fakeConn{}
	client := newTestClient(&fakeDatabase{conn: conn, defaultDB: "app"}, nil)

	if _, err := client.DropTable(context.Background(), DropTableArgs{TableName: "users"}); err != nil {
		t.Fatalf("DropTable error: %v", err)
	}

	got := conn.execs[0]
	if got != `DROP TABLE IF EXISTS "users"` {
		t.Errorf("generated SQL = %q", got)
	}
}

func TestDropTableCascadeNoIfExists(t *testing.T) {
	conn := &fakeConn{}
	client := newTestClient(&fakeDatabase{conn: conn, defaultDB: "app"}, nil)

	ifExists := false
	if _, err := client.DropTable(context.Background(), DropTableArgs{
		TableName: "public.users",
		Cascade:   true,
		IfExists:  &ifExists,
	}); err != nil {
		t.Fatalf("DropTable error: %v", err)
	}

	got := conn.execs[0]
	if got != `DROP TABLE "public"."users" CASCADE` {
		t.Errorf("generated SQL = %q", got)
	}
}

func TestDropIndexDefaults(t *testing.T) {
	conn := &fakeConn{}
	client := newTestClient(&fakeDatabase{conn: conn, defaultDB: "app"}, nil)

	if _, err := client.DropIndex(context.Background(), DropIndexArgs{IndexName: "users_name_idx"}); err != nil {
		t.Fatalf("DropIndex error: %v", err)
	}
	if got := conn.execs[0]; got != `DROP INDEX IF EXISTS "users_name_idx"` {
		t.Errorf("generated SQL = %q", got)
	}
}

func TestAlterTableAndCreateIndex(t *testing.T) {
	conn := &fakeConn{}
	client := newTestClient(&fakeDatabase{conn: conn, defaultDB: "app"}, nil)

	if _, err := client.AlterTable(context.Background(), StatementArgs{Query: "ALTER TABLE t ADD COLUMN x int"}); err != nil {
		t.Fatalf("AlterTable error: %v", err)
	}
	if _, err := client.CreateIndex(context.Background(), StatementArgs{Query: "CREATE INDEX ON t (x)"}); err != nil {
		t.Fatalf("CreateIndex error: %v", err)
	}
	if len(conn.execs) != 2 {
		t.Errorf("execs = %v", conn.execs)
	}
}

func TestQuoteRelation(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"users", `"users"`},
		{"public.users", `"public"."users"`},
		{`odd"name`, `"odd""name"`},
	}
	for _, tt := range tests {
		if got := quoteRelation(tt.in); got != tt.want {
			t.Errorf("quoteRelation(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
