package deletion

import (
	"fmt"
	"strings"

	"github.com/oklog/ulid/v2"
)

// Identifiers are opaque {prefix}_{ulid} strings; a ULID carries the
// timestamp plus randomness.

// NewOperationID returns an id for a deletion operation.
func NewOperationID() string { return newID("del") }

// NewCleanupID returns an id for an orphan cleanup run.
func NewCleanupID() string { return newID("cln") }

// NewRepairID returns an id for an integrity repair run.
func NewRepairID() string { return newID("rep") }

// NewBackupID returns an id for a database backup.
func NewBackupID() string { return newID("bak") }

// NewIssueID returns an id for an integrity issue.
func NewIssueID() string { return newID("iss") }

func newErrorID() string { return newID("err") }

func newID(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, strings.ToLower(ulid.Make().String()))
}
