package storage

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/md-rashed-zaman/courtreserve/services/reservation-service/internal/booking"
)

func TestSchemaStatements(t *testing.T) {
	stmts := schemaStatements()
	if len(stmts) < 5 {
		t.Fatalf("expected the full schema, got %d statements", len(stmts))
	}
	if !strings.HasPrefix(stmts[0], "CREATE EXTENSION IF NOT EXISTS btree_gist") {
		t.Fatalf("btree_gist must be created first, got %q", stmts[0])
	}
	var found bool
	for _, s := range stmts {
		if strings.HasSuffix(s, ";") {
			t.Fatalf("statement kept its terminator: %q", s)
		}
		if strings.Contains(s, "EXCLUDE USING gist") {
			found = true
		}
	}
	if !found {
		t.Fatalf("reservations table lost its overlap exclusion constraint")
	}
}

func TestClassify(t *testing.T) {
	if classify("op", nil) != nil {
		t.Fatalf("nil must stay nil")
	}

	overlap := classify("insert", &pgconn.PgError{Code: "23P01"})
	if !errors.Is(overlap, booking.ErrConflict) {
		t.Fatalf("exclusion violation should map to conflict: %v", overlap)
	}
	if errors.Is(overlap, booking.ErrUnavailable) {
		t.Fatalf("conflict is not an availability problem")
	}

	down := classify("list", &pgconn.PgError{Code: "08006"})
	if !errors.Is(down, booking.ErrUnavailable) {
		t.Fatalf("connection failure should map to unavailable: %v", down)
	}

	other := classify("list", errors.New("syntax"))
	if errors.Is(other, booking.ErrConflict) || errors.Is(other, booking.ErrUnavailable) {
		t.Fatalf("plain errors keep no sentinel: %v", other)
	}
	if !strings.HasPrefix(other.Error(), "list: ") {
		t.Fatalf("op prefix missing: %v", other)
	}
}

func TestErrorPredicates(t *testing.T) {
	if !IsNotFound(fmt.Errorf("get: %w", pgx.ErrNoRows)) {
		t.Fatalf("wrapped ErrNoRows should be not found")
	}
	if !IsUniqueViolation(&pgconn.PgError{Code: "23505"}) {
		t.Fatalf("23505 is a unique violation")
	}
	if IsConflict(&pgconn.PgError{Code: "23505"}) {
		t.Fatalf("unique violation is not an overlap")
	}
}
