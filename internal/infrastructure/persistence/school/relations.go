package school

// relation is one foreign-key style reference between collections, used by
// the orphan scanner and the integrity checker. References are not enforced
// by the database so dangling values are representable and must be found by
// scanning.
type relation struct {
	collection  string // referencing table
	field       string // referencing column
	parentTable string // referenced table
	sessionType string // attendance_records discriminator, empty otherwise
	nullable    bool   // true: repair by clearing the field; false: repair by deleting the row
}

var relations = []relation{
	{collection: "rehearsals", field: "orchestra_id", parentTable: "orchestras"},
	{collection: "rehearsals", field: "teacher_id", parentTable: "teachers", nullable: true},
	{collection: "lessons", field: "student_id", parentTable: "students"},
	{collection: "lessons", field: "teacher_id", parentTable: "teachers", nullable: true},
	{collection: "performances", field: "orchestra_id", parentTable: "orchestras"},
	{collection: "orchestra_members", field: "orchestra_id", parentTable: "orchestras"},
	{collection: "orchestra_members", field: "student_id", parentTable: "students"},
	{collection: "grades", field: "student_id", parentTable: "students"},
	{collection: "grades", field: "lesson_id", parentTable: "lessons", nullable: true},
	{collection: "attendance_records", field: "session_id", parentTable: "rehearsals", sessionType: "rehearsal", nullable: true},
	{collection: "attendance_records", field: "session_id", parentTable: "lessons", sessionType: "lesson", nullable: true},
	{collection: "attendance_records", field: "student_id", parentTable: "students", nullable: true},
	{collection: "repertoire", field: "performance_id", parentTable: "performances"},
	{collection: "schedule_slots", field: "teacher_id", parentTable: "teachers"},
	{collection: "orchestras", field: "conductor_id", parentTable: "teachers", nullable: true},
}

// relationsFor filters the relation table to the requested collections; an
// empty filter means every relation.
func relationsFor(collections []string) []relation {
	if len(collections) == 0 {
		return relations
	}

	wanted := make(map[string]bool, len(collections))
	for _, c := range collections {
		wanted[c] = true
	}

	var filtered []relation
	for _, rel := range relations {
		if wanted[rel.collection] {
			filtered = append(filtered, rel)
		}
	}
	return filtered
}

// findRelation locates the relation for a given collection/field pair.
func findRelation(collection, parentTable string) (relation, bool) {
	for _, rel := range relations {
		if rel.collection == collection && rel.parentTable == parentTable {
			return rel, true
		}
	}
	return relation{}, false
}
