package services_test

import (
	"testing"

	"github.com/JonathanYesh279/tenuto-go/internal/domain/catalog"
	"github.com/JonathanYesh279/tenuto-go/internal/domain/deletion"
	"github.com/JonathanYesh279/tenuto-go/internal/domain/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dependent(kind catalog.Kind, rel catalog.Relationship, count, depth int) *deletion.DependentEntity {
	return &deletion.DependentEntity{
		ID:               string(kind) + "@students@stu1",
		Kind:             kind,
		RelationshipType: rel,
		CascadeAction:    catalog.CascadeActionFor(kind, rel),
		AffectedCount:    count,
		Metadata:         deletion.DependentMetadata{Depth: depth},
	}
}

func TestAnalyzeBlocksOnRestrict(t *testing.T) {
	analyzer := services.NewImpactAnalyzer(services.DefaultImpactThresholds())
	root := deletion.EntityRef{Kind: catalog.KindStudents, ID: "stu1"}

	grades := dependent(catalog.KindGrades, catalog.Direct, 7, 1)
	result := &services.ResolveResult{
		Flat:  []*deletion.DependentEntity{grades},
		Roots: []*deletion.DependentEntity{grades},
	}

	impact := analyzer.Analyze(root, result)
	assert.False(t, impact.CanDelete)
	assert.Equal(t, 7, impact.TotalAffectedCount)

	var blocking *deletion.DeletionWarning
	for i := range impact.Warnings {
		if impact.Warnings[i].Type == deletion.WarningIntegrityRisk {
			blocking = &impact.Warnings[i]
		}
	}
	require.NotNil(t, blocking)
	assert.Equal(t, deletion.SeverityCritical, blocking.Severity)
}

func TestAnalyzeThresholdWarnings(t *testing.T) {
	analyzer := services.NewImpactAnalyzer(services.ImpactThresholds{CriticalCount: 100, HighCount: 50, MediumCount: 10})
	root := deletion.EntityRef{Kind: catalog.KindStudents, ID: "stu1"}

	tests := []struct {
		name         string
		count        int
		wantSeverity deletion.Severity
		wantDataLoss bool
	}{
		{name: "critical volume", count: 150, wantSeverity: deletion.SeverityCritical, wantDataLoss: true},
		{name: "high volume", count: 60, wantSeverity: deletion.SeverityHigh, wantDataLoss: true},
		{name: "below thresholds", count: 5, wantDataLoss: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node := dependent(catalog.KindLessons, catalog.Direct, tt.count, 1)
			impact := analyzer.Analyze(root, &services.ResolveResult{
				Flat:  []*deletion.DependentEntity{node},
				Roots: []*deletion.DependentEntity{node},
			})

			var dataLoss *deletion.DeletionWarning
			for i := range impact.Warnings {
				if impact.Warnings[i].Type == deletion.WarningDataLoss {
					dataLoss = &impact.Warnings[i]
				}
			}
			if tt.wantDataLoss {
				require.NotNil(t, dataLoss)
				assert.Equal(t, tt.wantSeverity, dataLoss.Severity)
			} else {
				assert.Nil(t, dataLoss)
			}
		})
	}
}

func TestAnalyzeRequiresConfirmation(t *testing.T) {
	analyzer := services.NewImpactAnalyzer(services.DefaultImpactThresholds())
	root := deletion.EntityRef{Kind: catalog.KindTeachers, ID: "tea1"}

	// Direct delete of any size requires confirmation.
	small := dependent(catalog.KindScheduleSlots, catalog.Direct, 1, 1)
	impact := analyzer.Analyze(root, &services.ResolveResult{
		Flat:  []*deletion.DependentEntity{small},
		Roots: []*deletion.DependentEntity{small},
	})
	assert.True(t, impact.RequiresConfirmation)
	assert.True(t, impact.CanDelete)

	// A nullify below the medium threshold does not.
	harmless := dependent(catalog.KindRehearsals, catalog.Indirect, 2, 1)
	impact = analyzer.Analyze(root, &services.ResolveResult{
		Flat:  []*deletion.DependentEntity{harmless},
		Roots: []*deletion.DependentEntity{harmless},
	})
	assert.False(t, impact.RequiresConfirmation)
}

func TestAnalyzeCascadeDepth(t *testing.T) {
	analyzer := services.NewImpactAnalyzer(services.DefaultImpactThresholds())
	root := deletion.EntityRef{Kind: catalog.KindOrchestras, ID: "orc1"}

	child := dependent(catalog.KindAttendanceRecords, catalog.Direct, 3, 2)
	parent := dependent(catalog.KindRehearsals, catalog.Direct, 4, 1)
	parent.Children = []*deletion.DependentEntity{child}

	impact := analyzer.Analyze(root, &services.ResolveResult{
		Flat:  []*deletion.DependentEntity{parent, child},
		Roots: []*deletion.DependentEntity{parent},
	})
	assert.Equal(t, 2, impact.CascadeDepth)
	assert.Equal(t, 7, impact.TotalAffectedCount)
}

func TestAnalyzeCarriesIncompleteFlag(t *testing.T) {
	analyzer := services.NewImpactAnalyzer(services.DefaultImpactThresholds())
	root := deletion.EntityRef{Kind: catalog.KindOrchestras, ID: "orc1"}

	impact := analyzer.Analyze(root, &services.ResolveResult{Incomplete: true})
	assert.True(t, impact.Incomplete)
	assert.True(t, impact.CanDelete)
	assert.Zero(t, impact.TotalAffectedCount)
}
