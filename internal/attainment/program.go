package attainment

import "github.com/noah-isme/obe-portal-api/internal/models"

// CourseLinkage summarizes one course's contribution to program outcomes: its
// overall student attainment and, per program outcome, the average CO-PO
// mapping strength among the course outcomes actually linked to it.
type CourseLinkage struct {
	CourseID          string
	OverallAttainment float64
	AverageLinkages   map[string]float64
}

// ProgramLinkage evaluates every course in a program against the viewer's
// batch, pairing each course's overall attainment with its average mapping
// strength toward each program outcome.
func ProgramLinkage(snap *Snapshot, programID string, viewer Viewer) []CourseLinkage {
	pos := snap.OutcomesForProgram(programID)
	courses := snap.CoursesForProgram(programID)
	linkages := make([]CourseLinkage, 0, len(courses))
	for _, course := range courses {
		population := ResolveScope(snap, course.ID, viewer, models.ScopeOverall)
		linkages = append(linkages, CourseLinkage{
			CourseID:          course.ID,
			OverallAttainment: overallCourseAttainment(snap, course, population),
			AverageLinkages:   averageLinkages(snap, course.ID, pos),
		})
	}
	return linkages
}

// overallCourseAttainment is a two-level mean: each student's mean attainment
// across all of the course's outcomes, averaged over all students in the
// population. Students average their own outcomes first so a student with
// many graded questions does not outweigh one with few; an outcome a student
// never attempted contributes 0 to that student's mean.
func overallCourseAttainment(snap *Snapshot, course models.Course, population Population) float64 {
	marks := NewMarkIndex(snap.Marks, StudentIDSet(population.Students))
	questions := NewQuestionOutcomeIndex(population.Assessments)
	outcomes := snap.OutcomesForCourse(course.ID)
	if len(population.Students) == 0 || len(outcomes) == 0 {
		return 0
	}

	var sum float64
	for _, student := range population.Students {
		var studentSum float64
		for _, outcome := range outcomes {
			percent, _ := StudentOutcome(marks, questions, student.ID, outcome.ID)
			studentSum += percent
		}
		sum += studentSum / float64(len(outcomes))
	}
	return sum / float64(len(population.Students))
}

// averageLinkages computes, per program outcome, the mean mapping strength
// over the course outcomes that map to it with non-zero strength. Unmapped
// course outcomes do not dilute the average. Every program outcome appears in
// the result; ones no course outcome links to carry 0.
func averageLinkages(snap *Snapshot, courseID string, pos []models.ProgramOutcome) map[string]float64 {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, mapping := range snap.Mappings {
		if mapping.CourseID != courseID || mapping.Strength == 0 {
			continue
		}
		sums[mapping.ProgramOutcomeID] += float64(mapping.Strength)
		counts[mapping.ProgramOutcomeID]++
	}
	averages := make(map[string]float64, len(pos))
	for _, po := range pos {
		if counts[po.ID] > 0 {
			averages[po.ID] = sums[po.ID] / float64(counts[po.ID])
		} else {
			averages[po.ID] = 0
		}
	}
	return averages
}
