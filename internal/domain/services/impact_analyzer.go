package services

import (
	"fmt"

	"github.com/JonathanYesh279/tenuto-go/internal/domain/catalog"
	"github.com/JonathanYesh279/tenuto-go/internal/domain/deletion"
)

// ImpactThresholds are the affected-count boundaries used when grading
// dependents into warnings.
type ImpactThresholds struct {
	CriticalCount int
	HighCount     int
	MediumCount   int
}

// DefaultImpactThresholds mirror the product defaults.
func DefaultImpactThresholds() ImpactThresholds {
	return ImpactThresholds{CriticalCount: 100, HighCount: 50, MediumCount: 10}
}

// ImpactAnalyzer turns a resolved dependent list into warnings, risk and a
// deletability verdict. Stateless; deterministic for identical input.
type ImpactAnalyzer struct {
	thresholds ImpactThresholds
}

// NewImpactAnalyzer creates an analyzer with the given thresholds.
func NewImpactAnalyzer(thresholds ImpactThresholds) *ImpactAnalyzer {
	if thresholds.MediumCount <= 0 {
		thresholds = DefaultImpactThresholds()
	}
	return &ImpactAnalyzer{thresholds: thresholds}
}

// Analyze derives the DeletionImpact for a resolved dependent set.
func (a *ImpactAnalyzer) Analyze(root deletion.EntityRef, result *ResolveResult) *deletion.DeletionImpact {
	impact := &deletion.DeletionImpact{
		EntityKind: root.Kind,
		EntityID:   root.ID,
		Dependents: result.Roots,
		CanDelete:  true,
		Incomplete: result.Incomplete,
	}

	for _, dep := range result.Flat {
		impact.TotalAffectedCount += dep.AffectedCount

		if dep.CascadeAction == catalog.ActionRestrict {
			impact.CanDelete = false
		}
		if dep.AffectedCount >= a.thresholds.MediumCount || dep.CascadeAction == catalog.ActionDelete {
			impact.RequiresConfirmation = true
		}
		impact.Warnings = append(impact.Warnings, a.warningsFor(dep)...)
	}

	impact.CascadeDepth = maxDepth(result.Roots, map[*deletion.DependentEntity]bool{})
	return impact
}

// warningsFor applies the per-node warning rules.
func (a *ImpactAnalyzer) warningsFor(dep *deletion.DependentEntity) []deletion.DeletionWarning {
	ref := deletion.EntityRef{Kind: dep.Kind, ID: dep.ID}
	var warnings []deletion.DeletionWarning

	switch {
	case dep.AffectedCount >= a.thresholds.CriticalCount:
		warnings = append(warnings, deletion.DeletionWarning{
			Type:           deletion.WarningDataLoss,
			Severity:       deletion.SeverityCritical,
			Message:        fmt.Sprintf("deleting will remove %d %s records", dep.AffectedCount, dep.Kind),
			AffectedEntity: ref,
		})
	case dep.AffectedCount >= a.thresholds.HighCount:
		warnings = append(warnings, deletion.DeletionWarning{
			Type:           deletion.WarningDataLoss,
			Severity:       deletion.SeverityHigh,
			Message:        fmt.Sprintf("deleting will affect %d %s records", dep.AffectedCount, dep.Kind),
			AffectedEntity: ref,
		})
	}

	if dep.CascadeAction == catalog.ActionRestrict {
		warnings = append(warnings, deletion.DeletionWarning{
			Type:           deletion.WarningIntegrityRisk,
			Severity:       deletion.SeverityCritical,
			Message:        fmt.Sprintf("%s records block deletion and must be handled first", dep.Kind),
			AffectedEntity: ref,
		})
	}

	if dep.RelationshipType == catalog.Direct && dep.CascadeAction == catalog.ActionDelete {
		warnings = append(warnings, deletion.DeletionWarning{
			Type:           deletion.WarningActiveDependencies,
			Severity:       deletion.SeverityMedium,
			Message:        fmt.Sprintf("directly dependent %s records will be deleted", dep.Kind),
			AffectedEntity: ref,
		})
	}

	return warnings
}

// maxDepth walks the nested tree depth-first with a cycle guard.
func maxDepth(nodes []*deletion.DependentEntity, seen map[*deletion.DependentEntity]bool) int {
	deepest := 0
	for _, node := range nodes {
		if seen[node] {
			continue
		}
		seen[node] = true
		depth := 1 + maxDepth(node.Children, seen)
		if depth > deepest {
			deepest = depth
		}
	}
	return deepest
}
