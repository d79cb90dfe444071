package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type queryer interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

type Queries struct {
	db queryer
}

func NewQueries(db queryer) *Queries {
	return &Queries{db: db}
}

// TimestampLayout matches the strftime('%Y-%m-%dT%H:%M:%fZ','now') defaults
// used across the schema, so Go-formatted times compare lexically with
// stored ones.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

func (q *Queries) InsertScript(ctx context.Context, name, content string) (int64, error) {
	res, err := q.db.ExecContext(ctx, `INSERT INTO scripts(name, content) VALUES(?, ?)`, name, content)
	if err != nil {
		return 0, fmt.Errorf("insert script: %w", err)
	}
	return lastInsertID("insert script", res)
}

func (q *Queries) GetScriptByID(ctx context.Context, id int64) (ScriptRow, error) {
	var out ScriptRow
	err := q.db.QueryRowContext(ctx, `SELECT id, name, content, created_at, updated_at FROM scripts WHERE id = ?`, id).
		Scan(&out.ID, &out.Name, &out.Content, &out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		return out, fmt.Errorf("get script by id: %w", err)
	}
	return out, nil
}

func (q *Queries) ListScripts(ctx context.Context) ([]ScriptRow, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT id, name, content, created_at, updated_at FROM scripts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list scripts: %w", err)
	}
	defer rows.Close()

	out := []ScriptRow{}
	for rows.Next() {
		var row ScriptRow
		if err := rows.Scan(&row.ID, &row.Name, &row.Content, &row.CreatedAt, &row.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan script row: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate script rows: %w", err)
	}
	return out, nil
}

func (q *Queries) UpdateScript(ctx context.Context, id int64, name, content string) (bool, error) {
	res, err := q.db.ExecContext(ctx, `
UPDATE scripts
SET name = ?, content = ?, updated_at = strftime('%Y-%m-%dT%H:%M:%fZ','now')
WHERE id = ?
`, name, content, id)
	if err != nil {
		return false, fmt.Errorf("update script: %w", err)
	}
	return rowsAffected("update script", res)
}

func (q *Queries) DeleteScriptByID(ctx context.Context, id int64) (bool, error) {
	res, err := q.db.ExecContext(ctx, `DELETE FROM scripts WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete script: %w", err)
	}
	return rowsAffected("delete script", res)
}

func (q *Queries) InsertSite(ctx context.Context, in SiteRow) (int64, error) {
	res, err := q.db.ExecContext(ctx, `INSERT INTO sites(domain, wildcard, base_domain) VALUES(?, ?, ?)`, in.Domain, in.Wildcard, in.BaseDomain)
	if err != nil {
		return 0, fmt.Errorf("insert site: %w", err)
	}
	return lastInsertID("insert site", res)
}

func (q *Queries) GetSiteByID(ctx context.Context, id int64) (SiteRow, error) {
	var out SiteRow
	err := q.db.QueryRowContext(ctx, `SELECT id, domain, wildcard, base_domain, created_at FROM sites WHERE id = ?`, id).
		Scan(&out.ID, &out.Domain, &out.Wildcard, &out.BaseDomain, &out.CreatedAt)
	if err != nil {
		return out, fmt.Errorf("get site by id: %w", err)
	}
	return out, nil
}

func (q *Queries) GetSiteByDomain(ctx context.Context, domain string) (SiteRow, error) {
	var out SiteRow
	err := q.db.QueryRowContext(ctx, `SELECT id, domain, wildcard, base_domain, created_at FROM sites WHERE domain = ?`, domain).
		Scan(&out.ID, &out.Domain, &out.Wildcard, &out.BaseDomain, &out.CreatedAt)
	if err != nil {
		return out, fmt.Errorf("get site by domain: %w", err)
	}
	return out, nil
}

func (q *Queries) ListSites(ctx context.Context) ([]SiteRow, error) {
	return q.listSites(ctx, `SELECT id, domain, wildcard, base_domain, created_at FROM sites ORDER BY domain`)
}

func (q *Queries) ListWildcardSites(ctx context.Context) ([]SiteRow, error) {
	return q.listSites(ctx, `SELECT id, domain, wildcard, base_domain, created_at FROM sites WHERE wildcard = 1 ORDER BY domain`)
}

func (q *Queries) listSites(ctx context.Context, query string) ([]SiteRow, error) {
	rows, err := q.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list sites: %w", err)
	}
	defer rows.Close()

	out := []SiteRow{}
	for rows.Next() {
		var row SiteRow
		if err := rows.Scan(&row.ID, &row.Domain, &row.Wildcard, &row.BaseDomain, &row.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan site row: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate site rows: %w", err)
	}
	return out, nil
}

func (q *Queries) DeleteSiteByID(ctx context.Context, id int64) (bool, error) {
	res, err := q.db.ExecContext(ctx, `DELETE FROM sites WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete site: %w", err)
	}
	return rowsAffected("delete site", res)
}

// ListSitesForScript returns the sites a script is assigned to, in assignment
// insertion order.
func (q *Queries) ListSitesForScript(ctx context.Context, scriptID int64) ([]SiteRow, error) {
	rows, err := q.db.QueryContext(ctx, `
SELECT s.id, s.domain, s.wildcard, s.base_domain, s.created_at
FROM sites s
JOIN script_sites ss ON ss.site_id = s.id
WHERE ss.script_id = ?
ORDER BY ss.id
`, scriptID)
	if err != nil {
		return nil, fmt.Errorf("list sites for script: %w", err)
	}
	defer rows.Close()

	out := []SiteRow{}
	for rows.Next() {
		var row SiteRow
		if err := rows.Scan(&row.ID, &row.Domain, &row.Wildcard, &row.BaseDomain, &row.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan assigned site row: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate assigned site rows: %w", err)
	}
	return out, nil
}

// ListScriptsForSite returns the scripts assigned to a site, in assignment
// insertion order. This is the delivery order of the bundle.
func (q *Queries) ListScriptsForSite(ctx context.Context, siteID int64) ([]ScriptRow, error) {
	rows, err := q.db.QueryContext(ctx, `
SELECT sc.id, sc.name, sc.content, sc.created_at, sc.updated_at
FROM scripts sc
JOIN script_sites ss ON ss.script_id = sc.id
WHERE ss.site_id = ?
ORDER BY ss.id
`, siteID)
	if err != nil {
		return nil, fmt.Errorf("list scripts for site: %w", err)
	}
	defer rows.Close()

	out := []ScriptRow{}
	for rows.Next() {
		var row ScriptRow
		if err := rows.Scan(&row.ID, &row.Name, &row.Content, &row.CreatedAt, &row.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan assigned script row: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate assigned script rows: %w", err)
	}
	return out, nil
}

func (q *Queries) CountAssignmentsForSite(ctx context.Context, siteID int64) (int64, error) {
	var n int64
	if err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM script_sites WHERE site_id = ?`, siteID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count assignments for site: %w", err)
	}
	return n, nil
}

// ReplaceScriptAssignments swaps a script's full site assignment set inside a
// single transaction, so no request ever observes a half-updated set.
func ReplaceScriptAssignments(ctx context.Context, db *sql.DB, scriptID int64, siteIDs []int64) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin assignment replace: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM script_sites WHERE script_id = ?`, scriptID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("clear script assignments: %w", err)
	}
	for _, siteID := range siteIDs {
		if _, err := tx.ExecContext(ctx, `INSERT INTO script_sites(script_id, site_id) VALUES(?, ?)`, scriptID, siteID); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert assignment script=%d site=%d: %w", scriptID, siteID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit assignment replace: %w", err)
	}
	return nil
}

func (q *Queries) InsertCallLog(ctx context.Context, scriptID int64, timestamp string) (int64, error) {
	res, err := q.db.ExecContext(ctx, `INSERT INTO call_log(script_id, created_at) VALUES(?, ?)`, scriptID, timestamp)
	if err != nil {
		return 0, fmt.Errorf("insert call log: %w", err)
	}
	return lastInsertID("insert call log", res)
}

func (q *Queries) CountCallsSince(ctx context.Context, scriptID int64, since string) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM call_log WHERE script_id = ? AND created_at >= ?`, scriptID, since).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count calls since: %w", err)
	}
	return n, nil
}

// HourlyCallCounts buckets call_log rows for a script by hour, ascending.
func (q *Queries) HourlyCallCounts(ctx context.Context, scriptID int64, since string) ([]HourlyCount, error) {
	rows, err := q.db.QueryContext(ctx, `
SELECT strftime('%Y-%m-%dT%H:00:00Z', created_at) AS hour, COUNT(*)
FROM call_log
WHERE script_id = ? AND created_at >= ?
GROUP BY hour
ORDER BY hour
`, scriptID, since)
	if err != nil {
		return nil, fmt.Errorf("hourly call counts: %w", err)
	}
	defer rows.Close()

	out := []HourlyCount{}
	for rows.Next() {
		var row HourlyCount
		if err := rows.Scan(&row.Hour, &row.Count); err != nil {
			return nil, fmt.Errorf("scan hourly count row: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate hourly count rows: %w", err)
	}
	return out, nil
}

func (q *Queries) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	if err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

func (q *Queries) InsertUser(ctx context.Context, username, passwordHash string) (int64, error) {
	res, err := q.db.ExecContext(ctx, `INSERT INTO users(username, password_hash) VALUES(?, ?)`, username, passwordHash)
	if err != nil {
		return 0, fmt.Errorf("insert user: %w", err)
	}
	return lastInsertID("insert user", res)
}

func (q *Queries) GetUserByUsername(ctx context.Context, username string) (UserRow, error) {
	var out UserRow
	err := q.db.QueryRowContext(ctx, `SELECT id, username, password_hash, created_at, updated_at FROM users WHERE username = ?`, username).
		Scan(&out.ID, &out.Username, &out.PasswordHash, &out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		return out, fmt.Errorf("get user by username: %w", err)
	}
	return out, nil
}

func (q *Queries) UpdateUserCredentials(ctx context.Context, id int64, username, passwordHash string) (bool, error) {
	res, err := q.db.ExecContext(ctx, `
UPDATE users
SET username = ?, password_hash = ?, updated_at = strftime('%Y-%m-%dT%H:%M:%fZ','now')
WHERE id = ?
`, username, passwordHash, id)
	if err != nil {
		return false, fmt.Errorf("update user credentials: %w", err)
	}
	return rowsAffected("update user credentials", res)
}

func lastInsertID(op string, res sql.Result) (int64, error) {
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%s last insert id: %w", op, err)
	}
	return id, nil
}

func rowsAffected(op string, res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s rows affected: %w", op, err)
	}
	return n > 0, nil
}
