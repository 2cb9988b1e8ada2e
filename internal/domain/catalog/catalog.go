// Package catalog defines the closed set of conservatory entity kinds, the
// parent/child relationship tables that seed dependency traversal, and the
// cascade policy applied when an ancestor is deleted.
package catalog

// Kind identifies an entity type in the conservatory domain.
type Kind string

const (
	KindStudents          Kind = "students"
	KindTeachers          Kind = "teachers"
	KindOrchestras        Kind = "orchestras"
	KindRehearsals        Kind = "rehearsals"
	KindPerformances      Kind = "performances"
	KindMembers           Kind = "members"
	KindLessons           Kind = "lessons"
	KindGrades            Kind = "grades"
	KindAttendanceRecords Kind = "attendance_records"
	KindRepertoire        Kind = "repertoire"
	KindScheduleSlots     Kind = "schedule_slots"
)

// Relationship describes how a child kind relates to its parent.
type Relationship string

const (
	Direct   Relationship = "direct"
	Indirect Relationship = "indirect"
)

// Action is the cascade policy outcome for a dependent.
type Action string

const (
	ActionDelete     Action = "delete"
	ActionNullify    Action = "nullify"
	ActionRestrict   Action = "restrict"
	ActionSetDefault Action = "set_default"
)

// Entry describes one entity kind: its backing table, the column that
// references a parent, and its configured child kinds.
type Entry struct {
	Table            string
	ParentColumn     string
	DirectChildren   []Kind
	IndirectChildren []Kind
}

// entries is the fixed entity/relationship catalog. Consumed as read-only
// configuration; traversal is seeded from DirectChildren and, when requested,
// IndirectChildren.
var entries = map[Kind]Entry{
	KindOrchestras: {
		Table:            "orchestras",
		DirectChildren:   []Kind{KindRehearsals, KindPerformances, KindMembers},
		IndirectChildren: []Kind{KindAttendanceRecords, KindRepertoire},
	},
	KindStudents: {
		Table:            "students",
		DirectChildren:   []Kind{KindLessons, KindGrades, KindMembers},
		IndirectChildren: []Kind{KindAttendanceRecords},
	},
	KindTeachers: {
		Table:            "teachers",
		DirectChildren:   []Kind{KindLessons, KindScheduleSlots},
		IndirectChildren: []Kind{KindRehearsals},
	},
	KindRehearsals: {
		Table:          "rehearsals",
		ParentColumn:   "orchestra_id",
		DirectChildren: []Kind{KindAttendanceRecords},
	},
	KindLessons: {
		Table:          "lessons",
		ParentColumn:   "student_id",
		DirectChildren: []Kind{KindAttendanceRecords},
	},
	KindPerformances: {
		Table:          "performances",
		ParentColumn:   "orchestra_id",
		DirectChildren: []Kind{KindRepertoire},
	},
	KindMembers:           {Table: "orchestra_members", ParentColumn: "orchestra_id"},
	KindGrades:            {Table: "grades", ParentColumn: "student_id"},
	KindAttendanceRecords: {Table: "attendance_records", ParentColumn: "session_id"},
	KindRepertoire:        {Table: "repertoire", ParentColumn: "performance_id"},
	KindScheduleSlots:     {Table: "schedule_slots", ParentColumn: "teacher_id"},
}

// criticalKinds are record types that block deletion when directly dependent.
// Graded records must never be cascade-deleted.
var criticalKinds = map[Kind]bool{
	KindGrades: true,
}

// transientKinds are log-like records that are safe to detach from any parent.
var transientKinds = map[Kind]bool{
	KindAttendanceRecords: true,
}

// Lookup returns the catalog entry for a kind.
func Lookup(kind Kind) (Entry, bool) {
	entry, ok := entries[kind]
	return entry, ok
}

// AllKinds returns every kind in the catalog.
func AllKinds() []Kind {
	kinds := make([]Kind, 0, len(entries))
	for kind := range entries {
		kinds = append(kinds, kind)
	}
	return kinds
}

// IsKnown reports whether a kind exists in the catalog.
func IsKnown(kind Kind) bool {
	_, ok := entries[kind]
	return ok
}

// TableFor returns the backing table for a kind, or the empty string when the
// kind is unknown.
func TableFor(kind Kind) string {
	return entries[kind].Table
}

// CascadeActionFor resolves the cascade policy for a dependent kind. It is a
// pure function over the fixed policy table: identical inputs always produce
// identical output.
func CascadeActionFor(kind Kind, relationship Relationship) Action {
	switch {
	case criticalKinds[kind]:
		if relationship == Direct {
			return ActionRestrict
		}
		return ActionNullify
	case transientKinds[kind]:
		return ActionNullify
	case relationship == Direct:
		return ActionDelete
	default:
		return ActionNullify
	}
}
