package bigquery

import (
	"errors"
	"strings"
)

// ErrNotFound is returned when a row does not exist (or belongs to a
// different user, which is indistinguishable by design).
var ErrNotFound = errors.New("not found")

// IsMissingTable reports whether err indicates the backing table has not been
// provisioned yet. Read paths downgrade this to an empty result and write
// paths to a synthetic record so a fresh deployment stays usable before
// cmd/migrate has run. This is demo scaffolding, matched on message text
// because the BigQuery client does not expose a typed error for it.
func IsMissingTable(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "Not found: Table") ||
		strings.Contains(msg, "Not found: Dataset") ||
		strings.Contains(msg, "does not exist")
}
