package pagination

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNormalizeLimit(t *testing.T) {
	if NormalizeLimit(0) != DefaultLimit {
		t.Fatalf("zero should normalize to default")
	}
	if NormalizeLimit(-3) != DefaultLimit {
		t.Fatalf("negative should normalize to default")
	}
	if NormalizeLimit(1000) != MaxLimit {
		t.Fatalf("oversized should clamp to max")
	}
	if NormalizeLimit(10) != 10 {
		t.Fatalf("in-range limit should pass through")
	}
	if LimitWithBuffer(10) != 11 {
		t.Fatalf("buffer limit should add one")
	}
}

func TestCursorRoundTrip(t *testing.T) {
	created := time.Date(2025, 6, 1, 12, 0, 0, 123456789, time.UTC)
	id := uuid.New()

	encoded := EncodeCursor(Cursor{CreatedAt: created, ID: id})
	parsed, err := ParseCursor(encoded)
	if err != nil {
		t.Fatalf("ParseCursor: %v", err)
	}
	if !parsed.CreatedAt.Equal(created) {
		t.Fatalf("timestamp mismatch: %v vs %v", parsed.CreatedAt, created)
	}
	if parsed.ID != id {
		t.Fatalf("id mismatch")
	}
}

func TestParseCursorEmptyAndInvalid(t *testing.T) {
	if c, err := ParseCursor(""); err != nil || c != nil {
		t.Fatalf("empty cursor should be nil, nil")
	}
	if _, err := ParseCursor("not-base64!!"); err == nil {
		t.Fatalf("invalid base64 should error")
	}
	if _, err := ParseCursor("aGVsbG8="); err == nil {
		t.Fatalf("missing separator should error")
	}
}

func TestNextCursorFor(t *testing.T) {
	if NextCursorFor(false, time.Now(), uuid.New()) != "" {
		t.Fatalf("no further page should return empty cursor")
	}
	if NextCursorFor(true, time.Now(), uuid.New()) == "" {
		t.Fatalf("further page should return a cursor")
	}
}
