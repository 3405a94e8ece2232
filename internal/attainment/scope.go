package attainment

import (
	"sort"

	"github.com/noah-isme/obe-portal-api/internal/models"
)

// Viewer carries the role-dependent context a population is resolved under.
// BatchName selects the cohort for coordinator and admin viewers; teachers
// are never batch-restricted.
type Viewer struct {
	Role      models.UserRole
	UserID    string
	ProgramID string
	BatchName string
}

// Population is the resolved set of eligible students together with the
// sections and assessments relevant to them. An unresolvable course, batch or
// section yields an empty population, never an error.
type Population struct {
	Students    []models.Student
	SectionIDs  []string
	Assessments []models.Assessment
}

type capabilities struct {
	seeAllSections bool
	selectScope    bool
}

func capabilitiesFor(role models.UserRole) capabilities {
	if role == models.RoleTeacher {
		return capabilities{}
	}
	return capabilities{seeAllSections: true, selectScope: true}
}

// ResolveScope determines the eligible student set for a (course, viewer,
// scope) triple.
//
// Teachers ignore the scope parameter entirely: their population is always
// the union of students in "my sections": sections whose per-section teacher
// assignment names them, falling back to the course default teacher only for
// sections with no explicit assignment. Coordinators and admins honor the
// scope parameter directly, with models.ScopeOverall restricted to the batch
// named by the viewer.
//
// Only Active students count. Populations are rebuilt from the snapshot on
// every call; nothing is carried across scope changes.
func ResolveScope(snap *Snapshot, courseID string, viewer Viewer, scope string) Population {
	course, ok := snap.Course(courseID)
	if !ok {
		return Population{}
	}
	enrollments := snap.EnrollmentsForCourse(courseID)

	var sectionSet map[string]struct{}
	caps := capabilitiesFor(viewer.Role)
	switch {
	case !caps.selectScope:
		sectionSet = teacherSections(course, enrollments, viewer.UserID)
	case scope == "" || scope == models.ScopeOverall:
		batch, ok := snap.batchByName(course.ProgramID, viewer.BatchName)
		if !ok {
			return Population{}
		}
		batchSections := snap.sectionIDsInBatch(batch.ID)
		sectionSet = make(map[string]struct{})
		for _, enrollment := range enrollments {
			if enrollment.SectionID == nil {
				continue
			}
			if _, ok := batchSections[*enrollment.SectionID]; ok {
				sectionSet[*enrollment.SectionID] = struct{}{}
			}
		}
	default:
		sectionSet = make(map[string]struct{})
		for _, enrollment := range enrollments {
			if enrollment.SectionID != nil && *enrollment.SectionID == scope {
				sectionSet[scope] = struct{}{}
				break
			}
		}
	}
	if len(sectionSet) == 0 {
		return Population{}
	}

	students := make([]models.Student, 0)
	seen := make(map[string]struct{})
	for _, enrollment := range enrollments {
		if enrollment.SectionID == nil {
			continue
		}
		if _, ok := sectionSet[*enrollment.SectionID]; !ok {
			continue
		}
		if _, dup := seen[enrollment.StudentID]; dup {
			continue
		}
		seen[enrollment.StudentID] = struct{}{}
		student, ok := snap.Student(enrollment.StudentID)
		if !ok || student.Status != models.StudentStatusActive {
			continue
		}
		students = append(students, student)
	}
	sort.Slice(students, func(i, j int) bool { return students[i].ID < students[j].ID })

	sectionIDs := make([]string, 0, len(sectionSet))
	for id := range sectionSet {
		sectionIDs = append(sectionIDs, id)
	}
	sort.Strings(sectionIDs)

	return Population{
		Students:    students,
		SectionIDs:  sectionIDs,
		Assessments: snap.assessmentsForSections(sectionSet),
	}
}

// teacherSections collects the sections taught by the given teacher among the
// course's enrolled sections. An explicit per-section assignment always wins:
// a section assigned to someone else is excluded even when the teacher is the
// course default.
func teacherSections(course models.Course, enrollments []models.Enrollment, teacherID string) map[string]struct{} {
	sections := make(map[string]struct{})
	for _, enrollment := range enrollments {
		if enrollment.SectionID == nil {
			continue
		}
		sectionID := *enrollment.SectionID
		if assigned, ok := course.SectionTeacherIDs[sectionID]; ok {
			if assigned == teacherID {
				sections[sectionID] = struct{}{}
			}
			continue
		}
		if course.TeacherID != nil && *course.TeacherID == teacherID {
			sections[sectionID] = struct{}{}
		}
	}
	return sections
}
