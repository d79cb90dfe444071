package db

type ScriptRow struct {
	ID        int64
	Name      string
	Content   string
	CreatedAt string
	UpdatedAt string
}

type SiteRow struct {
	ID         int64
	Domain     string
	Wildcard   bool
	BaseDomain string
	CreatedAt  string
}

type AssignmentRow struct {
	ID       int64
	ScriptID int64
	SiteID   int64
}

type CallLogRow struct {
	ID        int64
	ScriptID  int64
	CreatedAt string
}

type UserRow struct {
	ID           int64
	Username     string
	PasswordHash string
	CreatedAt    string
	UpdatedAt    string
}

// HourlyCount is one aggregation bucket over call_log rows.
type HourlyCount struct {
	Hour  string
	Count int64
}
