package role

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
)

const testTenant = "tenant-1"

// scriptDB answers lookups and statements from a script so a failure can be
// injected partway through a multi-statement cascade. GetTx hands back a
// recording transaction without tagging the context, which routes every
// statement back through the script.
type scriptDB struct {
	lookups   []func(dest any) error
	lookupIdx int
	failExec  int // 1-based statement index that errors, 0 for none
	execCount int
	tx        *recordingTx
}

func newScriptDB(failExec int, lookups ...func(dest any) error) *scriptDB {
	return &scriptDB{lookups: lookups, failExec: failExec, tx: &recordingTx{}}
}

func roleRow(r models.Role) func(dest any) error {
	return func(dest any) error {
		*(dest.(*models.Role)) = r
		return nil
	}
}

func noRow() func(dest any) error {
	return func(any) error { return sql.ErrNoRows }
}

func (d *scriptDB) GetContext(ctx context.Context, dest any, query string, args ...any) error {
	if d.lookupIdx >= len(d.lookups) {
		return sql.ErrNoRows
	}
	fn := d.lookups[d.lookupIdx]
	d.lookupIdx++
	return fn(dest)
}

func (d *scriptDB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	d.execCount++
	if d.failExec > 0 && d.execCount == d.failExec {
		return nil, fmt.Errorf("connection reset")
	}
	return oneRowResult{}, nil
}

func (d *scriptDB) SelectContext(ctx context.Context, dest any, query string, args ...any) error {
	return nil
}

func (d *scriptDB) QueryxContext(ctx context.Context, query string, args ...any) (*sqlx.Rows, error) {
	return nil, fmt.Errorf("not scripted")
}

func (d *scriptDB) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return nil, fmt.Errorf("not scripted")
}

func (d *scriptDB) PingContext(ctx context.Context) error { return nil }
func (d *scriptDB) Close() error                          { return nil }

func (d *scriptDB) GetTx(ctx context.Context, opts *sql.TxOptions) (context.Context, database.Tx, error) {
	return ctx, d.tx, nil
}

type recordingTx struct {
	committed  bool
	rolledBack bool
}

func (t *recordingTx) IsOpen() bool { return !t.committed && !t.rolledBack }

func (t *recordingTx) Commit(ctx context.Context) error {
	t.committed = true
	return nil
}

func (t *recordingTx) Rollback(ctx context.Context) error {
	if t.committed {
		return nil
	}
	t.rolledBack = true
	return nil
}

func (t *recordingTx) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return nil, fmt.Errorf("not scripted")
}

func (t *recordingTx) GetContext(ctx context.Context, dest any, query string, args ...any) error {
	return sql.ErrNoRows
}

func (t *recordingTx) SelectContext(ctx context.Context, dest any, query string, args ...any) error {
	return nil
}

func (t *recordingTx) QueryxContext(ctx context.Context, query string, args ...any) (*sqlx.Rows, error) {
	return nil, fmt.Errorf("not scripted")
}

type oneRowResult struct{}

func (oneRowResult) LastInsertId() (int64, error) { return 0, nil }
func (oneRowResult) RowsAffected() (int64, error) { return 1, nil }

func newTestRepository(db database.DB) *Repository {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	return NewRepository(db, logger)
}

// A rename rewrites the role row, relationship endpoints and function tags.
// When any step of that cascade fails the whole transaction must roll back,
// leaving no partial renames behind.
func TestRename_RollsBackWhenCascadeFails(t *testing.T) {
	source := models.Role{
		ID:             "role-1",
		TenantID:       testTenant,
		NormalizedName: "site maintainer",
		Name:           "Site Maintainer",
		IsActive:       true,
	}

	// Statement 1 is the role row update, statement 2 the relationship
	// source_role rewrite. Fail the rewrite mid-cascade.
	db := newScriptDB(2,
		roleRow(source), // lookup of the old identity
		noRow(),         // no active role holds the new identity
	)
	repo := newTestRepository(db)

	_, err := repo.Rename(context.Background(), testTenant, models.RenameRoleRequest{
		OldName: "Site Maintainer",
		NewName: "Facility Steward",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to rewrite relationship")

	assert.False(t, db.tx.committed, "transaction must not commit after a cascade failure")
	assert.True(t, db.tx.rolledBack, "transaction must roll back after a cascade failure")
	assert.Equal(t, 2, db.execCount, "cascade must stop at the failing statement")
}

func TestRename_MergeRollsBackWhenCascadeFails(t *testing.T) {
	source := models.Role{
		ID:             "role-1",
		TenantID:       testTenant,
		NormalizedName: "site maintainer",
		Name:           "Site Maintainer",
		IsActive:       true,
	}
	target := models.Role{
		ID:             "role-2",
		TenantID:       testTenant,
		NormalizedName: "facility steward",
		Name:           "Facility Steward",
		IsActive:       true,
	}

	// The merge cascade opens with the self-loop edge cleanup. Fail it.
	db := newScriptDB(1,
		roleRow(source),
		roleRow(target),
	)
	repo := newTestRepository(db)

	_, err := repo.Rename(context.Background(), testTenant, models.RenameRoleRequest{
		OldName:    "Site Maintainer",
		NewName:    "Facility Steward",
		AllowMerge: true,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to drop self-loop edges")

	assert.False(t, db.tx.committed)
	assert.True(t, db.tx.rolledBack)
	assert.Equal(t, 1, db.execCount, "merge must stop at the failing statement")
}

func TestRename_CommitsWhenCascadeSucceeds(t *testing.T) {
	source := models.Role{
		ID:             "role-1",
		TenantID:       testTenant,
		NormalizedName: "site maintainer",
		Name:           "Site Maintainer",
		IsActive:       true,
	}
	renamed := source
	renamed.NormalizedName = "facility steward"
	renamed.Name = "Facility Steward"

	db := newScriptDB(0,
		roleRow(source),  // old identity lookup
		noRow(),          // new identity free
		roleRow(renamed), // reload after the cascade
	)
	repo := newTestRepository(db)

	result, err := repo.Rename(context.Background(), testTenant, models.RenameRoleRequest{
		OldName: "Site Maintainer",
		NewName: "Facility Steward",
	})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "facility steward", result.NormalizedName)

	assert.True(t, db.tx.committed)
	assert.False(t, db.tx.rolledBack)
	// Role row update, two relationship endpoint rewrites, tag rewrite.
	assert.Equal(t, 4, db.execCount)
}
