package repository

import "time"

// timestampLayout is used for every timestamp column.
const timestampLayout = time.RFC3339Nano

func nowString(now func() time.Time) string {
	return now().UTC().Format(timestampLayout)
}
