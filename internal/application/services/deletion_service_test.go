package services

import (
	"testing"

	"github.com/JonathanYesh279/tenuto-go/internal/domain/catalog"
	"github.com/JonathanYesh279/tenuto-go/internal/domain/deletion"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func node(kind catalog.Kind, id string, depth int) *deletion.DependentEntity {
	return &deletion.DependentEntity{
		ID:       id,
		Kind:     kind,
		Metadata: deletion.DependentMetadata{Depth: depth},
	}
}

func TestOrderStepsDeepestFirst(t *testing.T) {
	root := deletion.EntityRef{Kind: catalog.KindOrchestras, ID: "orc1"}
	flat := []*deletion.DependentEntity{
		node(catalog.KindRehearsals, "rehearsals@orchestras@orc1", 1),
		node(catalog.KindPerformances, "performances@orchestras@orc1", 1),
		node(catalog.KindAttendanceRecords, "attendance_records@rehearsals@orchestras@orc1", 2),
		node(catalog.KindRepertoire, "repertoire@performances@orchestras@orc1", 2),
	}

	steps := orderSteps(root, flat)
	require.Len(t, steps, 4)

	assert.Equal(t, 2, steps[0].node.Metadata.Depth)
	assert.Equal(t, 2, steps[1].node.Metadata.Depth)
	assert.Equal(t, 1, steps[2].node.Metadata.Depth)
	assert.Equal(t, 1, steps[3].node.Metadata.Depth)

	for _, step := range steps {
		assert.Equal(t, root, step.root)
	}
}

func TestOrderStepsEmpty(t *testing.T) {
	root := deletion.EntityRef{Kind: catalog.KindStudents, ID: "stu1"}
	assert.Empty(t, orderSteps(root, nil))
}

func TestParentRefForFirstLevel(t *testing.T) {
	root := deletion.EntityRef{Kind: catalog.KindOrchestras, ID: "orc1"}
	first := node(catalog.KindRehearsals, "rehearsals@orchestras@orc1", 1)

	assert.Equal(t, root, parentRefFor(first, root))
}

func TestParentRefForDeepNode(t *testing.T) {
	root := deletion.EntityRef{Kind: catalog.KindOrchestras, ID: "orc1"}
	deep := node(catalog.KindAttendanceRecords, "attendance_records@rehearsals@orchestras@orc1", 2)

	parent := parentRefFor(deep, root)
	assert.Equal(t, catalog.KindRehearsals, parent.Kind)
	assert.Equal(t, "rehearsals@orchestras@orc1", parent.ID)
}

func TestParentRefForThirdLevel(t *testing.T) {
	root := deletion.EntityRef{Kind: catalog.KindTeachers, ID: "tea1"}
	deep := node(catalog.KindAttendanceRecords, "attendance_records@lessons@teachers@tea1", 2)

	parent := parentRefFor(deep, root)
	assert.Equal(t, catalog.KindLessons, parent.Kind)
	assert.Equal(t, "lessons@teachers@tea1", parent.ID)
}
