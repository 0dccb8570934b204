package repo

import (
	"database/sql"
	"errors"
	"strings"
	"time"
)

var ErrNotFound = errors.New("not found")

// Status da partida que liberam o fallback de resultado
func completedStatus(s string) bool {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "COMPLETED", "FINISHED", "FT", "ENDED":
		return true
	}
	return false
}

func nullInt(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

func intArg(v *int) any {
	if v == nil {
		return nil
	}
	return int64(*v)
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

// SQLite guarda datas como unix millis
func millis(t time.Time) int64 { return t.UTC().UnixMilli() }

func fromMillis(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := time.UnixMilli(n.Int64).UTC()
	return &t
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
