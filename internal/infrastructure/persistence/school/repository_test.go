package school

import (
	"testing"

	"github.com/JonathanYesh279/tenuto-go/internal/domain/catalog"
	"github.com/JonathanYesh279/tenuto-go/internal/domain/deletion"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseParentRefPlainID(t *testing.T) {
	chain, rootID, err := parseParentRef(deletion.EntityRef{Kind: catalog.KindOrchestras, ID: "orc1"})
	require.NoError(t, err)
	assert.Equal(t, []catalog.Kind{catalog.KindOrchestras}, chain)
	assert.Equal(t, "orc1", rootID)
}

func TestParseParentRefPlaceholder(t *testing.T) {
	ref := deletion.EntityRef{Kind: catalog.KindRehearsals, ID: "rehearsals@orchestras@orc1"}
	chain, rootID, err := parseParentRef(ref)
	require.NoError(t, err)
	assert.Equal(t, []catalog.Kind{catalog.KindRehearsals, catalog.KindOrchestras}, chain)
	assert.Equal(t, "orc1", rootID)
}

func TestParseParentRefErrors(t *testing.T) {
	tests := []struct {
		name string
		ref  deletion.EntityRef
	}{
		{name: "too few segments", ref: deletion.EntityRef{Kind: catalog.KindRehearsals, ID: "rehearsals@orc1"}},
		{name: "unknown kind in chain", ref: deletion.EntityRef{Kind: catalog.KindRehearsals, ID: "rehearsals@conductors@orc1"}},
		{name: "kind mismatch", ref: deletion.EntityRef{Kind: catalog.KindLessons, ID: "rehearsals@orchestras@orc1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := parseParentRef(tt.ref)
			require.Error(t, err)
			var procErr *deletion.ProcessedError
			require.ErrorAs(t, err, &procErr)
			assert.Equal(t, deletion.CodeValidationError, procErr.Code)
		})
	}
}

func TestPredicateDirectEdge(t *testing.T) {
	clause, err := predicate(catalog.KindRehearsals, []catalog.Kind{catalog.KindOrchestras})
	require.NoError(t, err)
	assert.Equal(t, "orchestra_id = ?", clause)
}

func TestPredicateSessionDiscriminator(t *testing.T) {
	clause, err := predicate(catalog.KindAttendanceRecords, []catalog.Kind{catalog.KindLessons})
	require.NoError(t, err)
	assert.Equal(t, "session_id = ? AND session_type = 'lesson'", clause)
}

func TestPredicateNestedChain(t *testing.T) {
	clause, err := predicate(catalog.KindAttendanceRecords, []catalog.Kind{catalog.KindRehearsals, catalog.KindOrchestras})
	require.NoError(t, err)
	assert.Equal(t,
		"session_id IN (SELECT id FROM rehearsals WHERE orchestra_id = ?) AND session_type = 'rehearsal'",
		clause)
}

func TestPredicateViaIntermediate(t *testing.T) {
	clause, err := predicate(catalog.KindRepertoire, []catalog.Kind{catalog.KindOrchestras})
	require.NoError(t, err)
	assert.Equal(t,
		"performance_id IN (SELECT id FROM performances WHERE orchestra_id = ?)",
		clause)
}

func TestPredicateUnknownEdge(t *testing.T) {
	_, err := predicate(catalog.KindGrades, []catalog.Kind{catalog.KindTeachers})
	require.Error(t, err)
	var procErr *deletion.ProcessedError
	require.ErrorAs(t, err, &procErr)
	assert.Equal(t, deletion.CodeValidationError, procErr.Code)
}

func TestRelationsFor(t *testing.T) {
	all := relationsFor(nil)
	assert.Equal(t, relations, all)

	filtered := relationsFor([]string{"grades"})
	require.Len(t, filtered, 2)
	for _, rel := range filtered {
		assert.Equal(t, "grades", rel.collection)
	}

	assert.Empty(t, relationsFor([]string{"no_such_collection"}))
}

func TestFindRelation(t *testing.T) {
	rel, ok := findRelation("orchestras", "teachers")
	require.True(t, ok)
	assert.Equal(t, "conductor_id", rel.field)
	assert.True(t, rel.nullable)

	_, ok = findRelation("grades", "orchestras")
	assert.False(t, ok)
}
