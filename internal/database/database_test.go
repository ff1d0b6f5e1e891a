package database

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

// TestRecordQuery tests the recordQuery helper function.
func TestRecordQuery(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		operation string
		err       error
	}{
		{name: "successful query", operation: "test_operation"},
		{name: "failed query", operation: "test_operation", err: errors.New("test error")},
		{name: "empty operation name", operation: ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			start := time.Now()
			time.Sleep(1 * time.Millisecond)

			recordQuery(tt.operation, start, tt.err)

			if elapsed := time.Since(start); elapsed < 1*time.Millisecond {
				t.Error("recordQuery should have measured non-zero duration")
			}
		})
	}
}

func TestObserveQuery(t *testing.T) {
	t.Parallel()

	done := observeQuery("test_observe")
	done(nil)

	done = observeQuery("test_observe")
	done(errors.New("boom"))
}

func TestDefaultTimeoutConstant(t *testing.T) {
	if defaultTimeout != 5*time.Second {
		t.Errorf("defaultTimeout = %v, want 5s", defaultTimeout)
	}
}

func TestOptionsDefaults(t *testing.T) {
	var nilOpts *Options
	if got := nilOpts.queryTimeout(); got != defaultTimeout {
		t.Errorf("nil queryTimeout() = %v, want %v", got, defaultTimeout)
	}
	if got := nilOpts.maxOpenConns(); got != 25 {
		t.Errorf("nil maxOpenConns() = %d, want 25", got)
	}

	opts := &Options{QueryTimeout: time.Second, MaxOpenConns: 4}
	if got := opts.queryTimeout(); got != time.Second {
		t.Errorf("queryTimeout() = %v, want 1s", got)
	}
	if got := opts.maxOpenConns(); got != 4 {
		t.Errorf("maxOpenConns() = %d, want 4", got)
	}
}

func TestDataSourceName(t *testing.T) {
	dsn := dataSourceName("/database/catalog.db")
	for _, want := range []string{"_journal_mode=WAL", "_foreign_keys=on", "_txlock=immediate", "_busy_timeout=5000"} {
		if !strings.Contains(dsn, want) {
			t.Errorf("dataSourceName() = %q, missing %q", dsn, want)
		}
	}
}

func TestStatusString(t *testing.T) {
	tests := []struct {
		status   Status
		expected string
		valid    bool
	}{
		{StatusAvailable, "available", true},
		{StatusCreated, "created", true},
		{StatusProcessing, "processing", true},
		{StatusDeleted, "deleted", true},
		{StatusError, "error", true},
		{Status(9), "status(9)", false},
		{Status(-1), "status(-1)", false},
	}

	for _, tt := range tests {
		if got := tt.status.String(); got != tt.expected {
			t.Errorf("Status(%d).String() = %q, want %q", int(tt.status), got, tt.expected)
		}
		if got := tt.status.Valid(); got != tt.valid {
			t.Errorf("Status(%d).Valid() = %v, want %v", int(tt.status), got, tt.valid)
		}
	}
}

func TestParseOrder(t *testing.T) {
	tests := []struct {
		input    string
		expected Order
		ok       bool
	}{
		{"asc", OrderAsc, true},
		{"DESC", OrderDesc, true},
		{" random ", OrderRandom, true},
		{"", "", false},
		{"sideways", "", false},
	}

	for _, tt := range tests {
		got, ok := ParseOrder(tt.input)
		if got != tt.expected || ok != tt.ok {
			t.Errorf("ParseOrder(%q) = (%q, %v), want (%q, %v)", tt.input, got, ok, tt.expected, tt.ok)
		}
	}
}

func TestUserScope(t *testing.T) {
	var nilUser *User
	if !nilUser.IsAnon() {
		t.Error("nil user should be anon")
	}
	if !Anon().IsAnon() || !Anon().Scope().IsAnon() {
		t.Error("Anon() should be anonymous")
	}

	u := &User{ID: 7}
	if u.IsAnon() {
		t.Error("user with id should not be anon")
	}
	if s := u.Scope(); s.IsAnon() || s.UserID() != 7 || s.String() != "user:7" {
		t.Errorf("Scope() = %v, want user:7", s)
	}
	if s := AnonScope(); s.String() != "anon" || s.UserID() != 0 {
		t.Errorf("AnonScope() = %v", s)
	}
}

func TestItemPermittedTo(t *testing.T) {
	item := Item{Permissions: []int64{3, 5}}
	if !item.PermittedTo(5) {
		t.Error("expected user 5 to be permitted")
	}
	if item.PermittedTo(4) {
		t.Error("did not expect user 4 to be permitted")
	}
}

func TestPlaceholders(t *testing.T) {
	tests := []struct {
		n        int
		expected string
	}{
		{0, ""},
		{1, "?"},
		{3, "?, ?, ?"},
	}
	for _, tt := range tests {
		if got := placeholders(tt.n); got != tt.expected {
			t.Errorf("placeholders(%d) = %q, want %q", tt.n, got, tt.expected)
		}
	}
}

func TestDecodeTags(t *testing.T) {
	tests := []struct {
		raw     string
		want    int
		wantErr bool
	}{
		{`[]`, 0, false},
		{`null`, 0, false},
		{`["cats","dogs"]`, 2, false},
		{`{"cats":1}`, 0, true},
		{`not json`, 0, true},
	}

	for _, tt := range tests {
		got, err := decodeTags(tt.raw)
		if (err != nil) != tt.wantErr {
			t.Errorf("decodeTags(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			continue
		}
		if err == nil && (got == nil || len(got) != tt.want) {
			t.Errorf("decodeTags(%q) = %v, want %d tags", tt.raw, got, tt.want)
		}
	}
}

func TestTypedErrors(t *testing.T) {
	nf := notFound("item", 42)
	if !errors.Is(nf, ErrNotFound) {
		t.Error("NotFoundError should match ErrNotFound")
	}
	if nf.Error() != "item 42 not found" {
		t.Errorf("Error() = %q", nf.Error())
	}

	cause := errors.New("disk I/O error")
	infra := wrap("search items", cause)
	if !errors.Is(infra, ErrInfrastructure) {
		t.Error("wrapped driver error should match ErrInfrastructure")
	}
	if !errors.Is(infra, cause) {
		t.Error("InfraError should unwrap to its cause")
	}

	if got := wrap("get item", nf); got != nf {
		t.Error("wrap should pass NotFoundError through unchanged")
	}

	cyclic := fmt.Errorf("%w: item 1", ErrCyclicAncestry)
	if got := wrap("get parents", cyclic); errors.Is(got, ErrInfrastructure) {
		t.Error("wrap should not turn ancestry errors into infrastructure errors")
	}

	if wrap("noop", nil) != nil {
		t.Error("wrap(nil) should be nil")
	}
}

func BenchmarkRecordQuery(b *testing.B) {
	start := time.Now()
	for i := 0; i < b.N; i++ {
		recordQuery("benchmark_operation", start, nil)
	}
}

// fakeRow feeds fixed column values to a scan function.
type fakeRow []any

func (r fakeRow) Scan(dest ...any) error {
	if len(dest) != len(r) {
		return fmt.Errorf("scan: got %d destinations, have %d columns", len(dest), len(r))
	}
	for i, v := range r {
		switch d := dest[i].(type) {
		case *int64:
			*d = v.(int64)
		case *int:
			*d = v.(int)
		case *string:
			*d = v.(string)
		case *bool:
			*d = v.(bool)
		case *sql.NullInt64:
			if v == nil {
				*d = sql.NullInt64{}
			} else {
				*d = sql.NullInt64{Int64: v.(int64), Valid: true}
			}
		default:
			return fmt.Errorf("scan: unsupported destination %T", dest[i])
		}
	}
	return nil
}

func TestScanItem(t *testing.T) {
	const validUUID = "0b6a4f3e-6f58-4c55-9f2b-3d7e8a1c2b4d"

	row := func(id, tags, perms string, status int) fakeRow {
		return fakeRow{int64(1), id, nil, int64(2), "beach.jpg", false, status, tags, perms, int64(0), int64(0)}
	}

	tests := []struct {
		name      string
		row       fakeRow
		malformed bool
	}{
		{"valid row", row(validUUID, `["cats"]`, `[3]`, 0), false},
		{"bad uuid", row("nope", `[]`, `[]`, 0), true},
		{"bad tags json", row(validUUID, `["cats"`, `[]`, 0), true},
		{"tags not an array of strings", row(validUUID, `[1, 2]`, `[]`, 0), true},
		{"bad permissions json", row(validUUID, `[]`, `["x"]`, 0), true},
		{"unknown status", row(validUUID, `[]`, `[]`, 17), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item, err := scanItem(tt.row)
			if tt.malformed {
				if !errors.Is(err, ErrMalformedRow) {
					t.Fatalf("scanItem() error = %v, want ErrMalformedRow", err)
				}
				if item != nil {
					t.Error("scanItem() should not return a partial item")
				}
				return
			}
			if err != nil {
				t.Fatalf("scanItem() error = %v", err)
			}
			if item.UUID.String() != validUUID || item.Tags[0] != "cats" || !item.PermittedTo(3) {
				t.Errorf("scanItem() = %+v", item)
			}
			if item.ParentID != nil {
				t.Error("NULL parent should decode to nil")
			}
		})
	}
}
