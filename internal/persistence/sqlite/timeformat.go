package sqlite

import "time"

// Timestamps are stored as TEXT and compared lexically in SQL, so the layout
// must be fixed width for string order to match chronological order.
// RFC3339Nano trims trailing fraction zeros, which makes "00.5Z" sort before
// "00Z"; the padded layout below keeps every stored value 30 bytes.
const storedTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatStoredTime(t time.Time) string {
	return t.UTC().Format(storedTimeLayout)
}

// parseStoredTime also accepts trimmed fractions so databases written before
// the padded layout still load.
func parseStoredTime(value string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, value)
}
