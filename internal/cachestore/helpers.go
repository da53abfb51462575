package cachestore

import (
	"database/sql"
	"time"
)

func nullableString(value *string) any {
	if value == nil {
		return nil
	}
	return *value
}

func toUnix(t time.Time) int64 {
	return t.UTC().UnixNano()
}

func fromUnix(value int64) time.Time {
	return time.Unix(0, value).UTC()
}

func affected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
