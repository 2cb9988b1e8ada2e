// Package database provides schema instantiation
package database

import (
	"database/sql"
	"fmt"
)

// TableCreator handles the creation of the conservatory database schema.
type TableCreator struct{}

// NewTableCreator creates a new TableCreator.
func NewTableCreator() *TableCreator {
	return &TableCreator{}
}

// CreateSchema executes all necessary queries to build the database tables and indexes.
func (tc *TableCreator) CreateSchema(db *sql.DB) error {
	for _, tableSQL := range tables {
		if _, err := db.Exec(tableSQL); err != nil {
			return fmt.Errorf("failed to create table for query [%s]: %w", tableSQL, err)
		}
	}

	for _, indexSQL := range indexes {
		if _, err := db.Exec(indexSQL); err != nil {
			return fmt.Errorf("failed to create index for query [%s]: %w", indexSQL, err)
		}
	}
	return nil
}

// Schema definitions for the conservatory domain. Foreign keys are declared
// for documentation but enforcement stays with the deletion engine, so rows
// orphaned by partial failures remain representable and repairable.
var tables = []string{
	`CREATE TABLE IF NOT EXISTS students (id TEXT PRIMARY KEY, name TEXT NOT NULL, email TEXT, instrument TEXT, enrolled_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP)`,
	`CREATE TABLE IF NOT EXISTS teachers (id TEXT PRIMARY KEY, name TEXT NOT NULL, email TEXT, specialty TEXT, hired_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP)`,
	`CREATE TABLE IF NOT EXISTS orchestras (id TEXT PRIMARY KEY, name TEXT NOT NULL, conductor_id TEXT REFERENCES teachers(id), season TEXT, created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP)`,
	`CREATE TABLE IF NOT EXISTS rehearsals (id TEXT PRIMARY KEY, orchestra_id TEXT NOT NULL REFERENCES orchestras(id), teacher_id TEXT REFERENCES teachers(id), location TEXT, scheduled_at TIMESTAMP NOT NULL)`,
	`CREATE TABLE IF NOT EXISTS lessons (id TEXT PRIMARY KEY, student_id TEXT NOT NULL REFERENCES students(id), teacher_id TEXT NOT NULL REFERENCES teachers(id), subject TEXT, scheduled_at TIMESTAMP NOT NULL)`,
	`CREATE TABLE IF NOT EXISTS performances (id TEXT PRIMARY KEY, orchestra_id TEXT NOT NULL REFERENCES orchestras(id), venue TEXT, performed_at TIMESTAMP)`,
	`CREATE TABLE IF NOT EXISTS orchestra_members (id TEXT PRIMARY KEY, orchestra_id TEXT NOT NULL REFERENCES orchestras(id), student_id TEXT NOT NULL REFERENCES students(id), chair TEXT, joined_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP, UNIQUE(orchestra_id, student_id))`,
	`CREATE TABLE IF NOT EXISTS grades (id TEXT PRIMARY KEY, student_id TEXT NOT NULL REFERENCES students(id), lesson_id TEXT REFERENCES lessons(id), score REAL NOT NULL, graded_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP)`,
	`CREATE TABLE IF NOT EXISTS attendance_records (id TEXT PRIMARY KEY, session_id TEXT NOT NULL, session_type TEXT NOT NULL, student_id TEXT REFERENCES students(id), status TEXT NOT NULL, recorded_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP)`,
	`CREATE TABLE IF NOT EXISTS repertoire (id TEXT PRIMARY KEY, performance_id TEXT NOT NULL REFERENCES performances(id), piece TEXT NOT NULL, composer TEXT, position INTEGER)`,
	`CREATE TABLE IF NOT EXISTS schedule_slots (id TEXT PRIMARY KEY, teacher_id TEXT NOT NULL REFERENCES teachers(id), day_of_week INTEGER NOT NULL, start_minute INTEGER NOT NULL, end_minute INTEGER NOT NULL)`,
}

var indexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_orchestras_conductor_id ON orchestras(conductor_id)`,
	`CREATE INDEX IF NOT EXISTS idx_rehearsals_orchestra_id ON rehearsals(orchestra_id)`,
	`CREATE INDEX IF NOT EXISTS idx_rehearsals_teacher_id ON rehearsals(teacher_id)`,
	`CREATE INDEX IF NOT EXISTS idx_lessons_student_id ON lessons(student_id)`,
	`CREATE INDEX IF NOT EXISTS idx_lessons_teacher_id ON lessons(teacher_id)`,
	`CREATE INDEX IF NOT EXISTS idx_performances_orchestra_id ON performances(orchestra_id)`,
	`CREATE INDEX IF NOT EXISTS idx_orchestra_members_orchestra_id ON orchestra_members(orchestra_id)`,
	`CREATE INDEX IF NOT EXISTS idx_orchestra_members_student_id ON orchestra_members(student_id)`,
	`CREATE INDEX IF NOT EXISTS idx_grades_student_id ON grades(student_id)`,
	`CREATE INDEX IF NOT EXISTS idx_grades_lesson_id ON grades(lesson_id)`,
	`CREATE INDEX IF NOT EXISTS idx_attendance_session ON attendance_records(session_id, session_type)`,
	`CREATE INDEX IF NOT EXISTS idx_attendance_student_id ON attendance_records(student_id)`,
	`CREATE INDEX IF NOT EXISTS idx_repertoire_performance_id ON repertoire(performance_id)`,
	`CREATE INDEX IF NOT EXISTS idx_schedule_slots_teacher_id ON schedule_slots(teacher_id)`,
}
