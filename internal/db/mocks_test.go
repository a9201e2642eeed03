package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/mock"

	"rooster/internal/types"
)

// --- Mock DBTX ---

type mockDBTX struct {
	mock.Mock
}

func (m *mockDBTX) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	args := m.Called(ctx, sql, arguments)
	return args.Get(0).(pgconn.CommandTag), args.Error(1)
}

func (m *mockDBTX) Query(ctx context.Context, sql string, arguments ...any) (pgx.Rows, error) {
	args := m.Called(ctx, sql, arguments)
	if r := args.Get(0); r != nil {
		return r.(pgx.Rows), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockDBTX) QueryRow(ctx context.Context, sql string, arguments ...any) pgx.Row {
	args := m.Called(ctx, sql, arguments)
	return args.Get(0).(pgx.Row)
}

// --- Mock Row ---

type mockRow struct {
	scanErr error
	scanFn  func(dest ...any) error
}

func (r *mockRow) Scan(dest ...any) error {
	if r.scanFn != nil {
		return r.scanFn(dest...)
	}
	return r.scanErr
}

// --- Event log rows mock ---

// eventLogRowData mirrors the event_logs column list scanned by the
// repository.
type eventLogRowData struct {
	id         string
	userID     string
	eventKind  types.EventKind
	periodYear int
	status     types.EventLogStatus
	sentAt     *time.Time
	retryCount int
	lastError  *string
	metadata   types.EventMetadata
	createdAt  time.Time
	updatedAt  time.Time
}

// eventLogMockRows implements pgx.Rows over a fixed slice of event log rows.
type eventLogMockRows struct {
	data    []eventLogRowData
	idx     int
	closed  bool
	scanErr error
	errVal  error
}

func newEventLogMockRows(data ...eventLogRowData) *eventLogMockRows {
	return &eventLogMockRows{data: data, idx: -1}
}

func (r *eventLogMockRows) Next() bool {
	if r.closed {
		return false
	}
	r.idx++
	return r.idx < len(r.data)
}

func (r *eventLogMockRows) Scan(dest ...any) error {
	if r.scanErr != nil {
		return r.scanErr
	}
	row := r.data[r.idx]
	*dest[0].(*string) = row.id
	*dest[1].(*string) = row.userID
	*dest[2].(*types.EventKind) = row.eventKind
	*dest[3].(*int) = row.periodYear
	*dest[4].(*types.EventLogStatus) = row.status
	*dest[5].(**time.Time) = row.sentAt
	*dest[6].(*int) = row.retryCount
	*dest[7].(**string) = row.lastError
	*dest[8].(*types.EventMetadata) = row.metadata
	*dest[9].(*time.Time) = row.createdAt
	*dest[10].(*time.Time) = row.updatedAt
	return nil
}

func (r *eventLogMockRows) Close()                                       { r.closed = true }
func (r *eventLogMockRows) Err() error                                   { return r.errVal }
func (r *eventLogMockRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *eventLogMockRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *eventLogMockRows) RawValues() [][]byte                          { return nil }
func (r *eventLogMockRows) Values() ([]any, error)                       { return nil, nil }
func (r *eventLogMockRows) Conn() *pgx.Conn                              { return nil }

// --- User rows mock ---

type userRowData struct {
	id         string
	fullName   string
	email      string
	birthDate  time.Time
	hireDate   *time.Time
	timezone   string
	webhookURL *string
	createdAt  time.Time
	updatedAt  time.Time
}

type userMockRows struct {
	data    []userRowData
	idx     int
	closed  bool
	scanErr error
	errVal  error
}

func newUserMockRows(data ...userRowData) *userMockRows {
	return &userMockRows{data: data, idx: -1}
}

func (r *userMockRows) Next() bool {
	if r.closed {
		return false
	}
	r.idx++
	return r.idx < len(r.data)
}

func (r *userMockRows) Scan(dest ...any) error {
	if r.scanErr != nil {
		return r.scanErr
	}
	row := r.data[r.idx]
	*dest[0].(*string) = row.id
	*dest[1].(*string) = row.fullName
	*dest[2].(*string) = row.email
	*dest[3].(*time.Time) = row.birthDate
	*dest[4].(**time.Time) = row.hireDate
	*dest[5].(*string) = row.timezone
	*dest[6].(**string) = row.webhookURL
	*dest[7].(*time.Time) = row.createdAt
	*dest[8].(*time.Time) = row.updatedAt
	return nil
}

func (r *userMockRows) Close()                                       { r.closed = true }
func (r *userMockRows) Err() error                                   { return r.errVal }
func (r *userMockRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *userMockRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *userMockRows) RawValues() [][]byte                          { return nil }
func (r *userMockRows) Values() ([]any, error)                       { return nil, nil }
func (r *userMockRows) Conn() *pgx.Conn                              { return nil }

// --- String rows mock (DISTINCT timezone, stats queries) ---

type stringMockRows struct {
	data   []string
	idx    int
	closed bool
	errVal error
}

func newStringMockRows(data ...string) *stringMockRows {
	return &stringMockRows{data: data, idx: -1}
}

func (r *stringMockRows) Next() bool {
	if r.closed {
		return false
	}
	r.idx++
	return r.idx < len(r.data)
}

func (r *stringMockRows) Scan(dest ...any) error {
	*dest[0].(*string) = r.data[r.idx]
	return nil
}

func (r *stringMockRows) Close()                                       { r.closed = true }
func (r *stringMockRows) Err() error                                   { return r.errVal }
func (r *stringMockRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *stringMockRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *stringMockRows) RawValues() [][]byte                          { return nil }
func (r *stringMockRows) Values() ([]any, error)                       { return nil, nil }
func (r *stringMockRows) Conn() *pgx.Conn                              { return nil }

// --- Stats rows mock ---

type statsRowData struct {
	kind   types.EventKind
	status types.EventLogStatus
	count  int64
}

type statsMockRows struct {
	data   []statsRowData
	idx    int
	closed bool
	errVal error
}

func newStatsMockRows(data ...statsRowData) *statsMockRows {
	return &statsMockRows{data: data, idx: -1}
}

func (r *statsMockRows) Next() bool {
	if r.closed {
		return false
	}
	r.idx++
	return r.idx < len(r.data)
}

func (r *statsMockRows) Scan(dest ...any) error {
	row := r.data[r.idx]
	*dest[0].(*types.EventKind) = row.kind
	*dest[1].(*types.EventLogStatus) = row.status
	*dest[2].(*int64) = row.count
	return nil
}

func (r *statsMockRows) Close()                                       { r.closed = true }
func (r *statsMockRows) Err() error                                   { return r.errVal }
func (r *statsMockRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *statsMockRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *statsMockRows) RawValues() [][]byte                          { return nil }
func (r *statsMockRows) Values() ([]any, error)                       { return nil, nil }
func (r *statsMockRows) Conn() *pgx.Conn                              { return nil }
