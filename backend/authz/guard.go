// Package authz holds the per-operation access decisions. Guards are called
// explicitly at the top of each handler, after the target resource has been
// loaded: a missing resource is a 404 before any guard runs, so a non-existent
// resource never leaks an authorization verdict. Unknown roles deny.
package authz

import (
	"infoclass/backend/models"

	"gorm.io/gorm"
)

// CanCreateCourse allows teachers and admins.
func CanCreateCourse(actor *models.User) bool {
	return actor != nil && (actor.Role == models.RoleTeacher || actor.Role == models.RoleAdmin)
}

// CanViewCourse allows the owning teacher, an enrolled student, or an admin.
func CanViewCourse(db *gorm.DB, actor *models.User, course *models.Course) bool {
	if actor == nil || course == nil {
		return false
	}
	if actor.Role == models.RoleAdmin || course.TeacherID == actor.ID {
		return true
	}
	return IsEnrolled(db, actor.ID, course.ID)
}

// CanManageCourseContent allows only the owning teacher to create, update,
// archive or delete assignments and announcements of a course.
func CanManageCourseContent(actor *models.User, course *models.Course) bool {
	return actor != nil && course != nil && course.TeacherID == actor.ID
}

// CanEnroll allows only students to join courses by access code.
func CanEnroll(actor *models.User) bool {
	return actor != nil && actor.Role == models.RoleStudent
}

// CanSubmit allows only students to create submissions.
func CanSubmit(actor *models.User) bool {
	return actor != nil && actor.Role == models.RoleStudent
}

// CanGrade allows only the teacher owning the submission's assignment's
// course. A different teacher is denied like anyone else.
func CanGrade(actor *models.User, course *models.Course) bool {
	return actor != nil && course != nil && course.TeacherID == actor.ID
}

// CanViewSubmission allows the submitting student and the course teacher.
func CanViewSubmission(actor *models.User, submission *models.AssignmentSubmission, course *models.Course) bool {
	if actor == nil || submission == nil || course == nil {
		return false
	}
	return submission.StudentID == actor.ID || course.TeacherID == actor.ID
}

// CanAccessFile grants access transitively through the attachment's parent:
// submissions open to the submitting student and the course teacher,
// assignments and announcements to the course teacher and enrolled students.
// An attachment whose parent no longer resolves is treated as inaccessible;
// the caller reports it as not found.
func CanAccessFile(db *gorm.DB, actor *models.User, file *models.FileAttachment) (bool, error) {
	if actor == nil || file == nil {
		return false, nil
	}

	switch file.ParentKind {
	case models.ParentKindSubmission:
		var submission models.AssignmentSubmission
		if err := db.Preload("Assignment.Course").First(&submission, file.ParentID).Error; err != nil {
			return false, err
		}
		return CanViewSubmission(actor, &submission, &submission.Assignment.Course), nil

	case models.ParentKindAssignment:
		var assignment models.Assignment
		if err := db.Preload("Course").First(&assignment, file.ParentID).Error; err != nil {
			return false, err
		}
		return CanViewCourse(db, actor, &assignment.Course), nil

	case models.ParentKindAnnouncement:
		var announcement models.Announcement
		if err := db.Preload("Course").First(&announcement, file.ParentID).Error; err != nil {
			return false, err
		}
		return CanViewCourse(db, actor, &announcement.Course), nil
	}

	return false, nil
}

// CanDeleteFile allows only the uploader, with no admin override.
func CanDeleteFile(actor *models.User, file *models.FileAttachment) bool {
	return actor != nil && file != nil && file.UploadedBy == actor.ID
}

// IsAdmin gates the admin-only user management operations.
func IsAdmin(actor *models.User) bool {
	return actor != nil && actor.Role == models.RoleAdmin
}

// IsEnrolled reports whether the student has an enrollment in the course.
func IsEnrolled(db *gorm.DB, studentID, courseID uint) bool {
	var count int64
	db.Model(&models.CourseEnrollment{}).
		Where("student_id = ? AND course_id = ?", studentID, courseID).
		Count(&count)
	return count > 0
}
