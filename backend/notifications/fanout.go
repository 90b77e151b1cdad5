// Package notifications converts domain events into per-user notifications:
// one persisted row per recipient, a real-time push to the recipient's room,
// and a preference-gated best-effort email. A failure for one recipient never
// aborts processing of the remaining recipients; only the persisted row is
// required for the fan-out to count as done for a recipient.
package notifications

import (
	"fmt"
	"log"
	"time"

	"infoclass/backend/mailer"
	"infoclass/backend/models"
	"infoclass/backend/realtime"

	"gorm.io/gorm"
)

// Publisher is the push channel seam. Publishing to a room with no sessions
// is a no-op, so a Service works with or without a live transport.
type Publisher interface {
	Publish(room, event string, payload interface{})
}

type Service struct {
	db     *gorm.DB
	hub    Publisher
	mail   mailer.Sender
	logger *log.Logger
}

func NewService(db *gorm.DB, hub Publisher, mail mailer.Sender, logger *log.Logger) *Service {
	return &Service{db: db, hub: hub, mail: mail, logger: logger}
}

// notify handles one recipient end to end. The persisted write strictly
// precedes the push; the push payload carries the just-assigned row id.
func (s *Service) notify(user *models.User, notificationType, title, message string, relatedID *uint, emailData map[string]string) {
	notification := models.Notification{
		UserID:    user.ID,
		Type:      notificationType,
		Title:     title,
		Message:   message,
		RelatedID: relatedID,
	}
	if err := s.db.Create(&notification).Error; err != nil {
		s.logger.Printf("notifications: persisting %s notification for user %d failed: %v",
			notificationType, user.ID, err)
		return
	}

	s.hub.Publish(realtime.UserRoom(user.ID), realtime.EventNewNotification, map[string]interface{}{
		"id":         notification.ID,
		"title":      title,
		"message":    message,
		"type":       notificationType,
		"related_id": relatedID,
		"created_at": notification.CreatedAt.Format(time.RFC3339),
	})

	if user.WantsEmail(notificationType) {
		if err := s.mail.SendNotification(user.Email, user.FullName(), notificationType, emailData); err != nil {
			s.logger.Printf("notifications: email to %s failed: %v", user.Email, err)
		}
	}
}

func (s *Service) enrolledStudents(courseID uint) []models.User {
	var students []models.User
	if err := s.db.
		Joins("JOIN course_enrollments ON course_enrollments.student_id = users.id").
		Where("course_enrollments.course_id = ? AND course_enrollments.deleted_at IS NULL", courseID).
		Find(&students).Error; err != nil {
		s.logger.Printf("notifications: loading recipients for course %d failed: %v", courseID, err)
	}
	return students
}

// AssignmentCreated fans out to every student enrolled in the assignment's
// course.
func (s *Service) AssignmentCreated(assignment *models.Assignment, course *models.Course, teacher *models.User) {
	relatedID := assignment.ID
	title := fmt.Sprintf("Nueva tarea: %s", assignment.Title)
	message := fmt.Sprintf("Se ha creado una nueva tarea en %s. Fecha límite: %s",
		course.Name, assignment.DueDate.Format("02/01/2006 15:04"))
	emailData := map[string]string{
		"title":        assignment.Title,
		"description":  assignment.Description,
		"due_date":     assignment.DueDate.Format("02/01/2006 15:04"),
		"course_name":  course.Name,
		"teacher_name": teacher.FullName(),
	}

	students := s.enrolledStudents(course.ID)
	for i := range students {
		s.notify(&students[i], models.NotificationTypeAssignment, title, message, &relatedID, emailData)
	}
}

// SubmissionGraded notifies the single submitting student.
func (s *Service) SubmissionGraded(submission *models.AssignmentSubmission, assignment *models.Assignment) {
	var student models.User
	if err := s.db.First(&student, submission.StudentID).Error; err != nil {
		s.logger.Printf("notifications: loading student %d failed: %v", submission.StudentID, err)
		return
	}

	relatedID := submission.ID
	grade := "N/A"
	if submission.PointsEarned != nil {
		grade = fmt.Sprintf("%.2f/%.2f", *submission.PointsEarned, assignment.MaxPoints)
	}
	comments := submission.Feedback
	if comments == "" {
		comments = "Sin comentarios"
	}

	s.notify(&student, models.NotificationTypeGrade,
		fmt.Sprintf("Nueva calificación: %s", assignment.Title),
		fmt.Sprintf("Tu entrega de %s ha sido calificada: %s", assignment.Title, grade),
		&relatedID,
		map[string]string{
			"assignment_title": assignment.Title,
			"grade":            grade,
			"comments":         comments,
		})
}

// AnnouncementCreated fans out to every student enrolled in the
// announcement's course.
func (s *Service) AnnouncementCreated(announcement *models.Announcement, course *models.Course) {
	relatedID := announcement.ID
	title := fmt.Sprintf("Nuevo anuncio: %s", announcement.Title)
	message := fmt.Sprintf("Se ha publicado un nuevo anuncio en %s", course.Name)
	emailData := map[string]string{
		"title":       announcement.Title,
		"content":     announcement.Content,
		"course_name": course.Name,
	}

	students := s.enrolledStudents(course.ID)
	for i := range students {
		s.notify(&students[i], models.NotificationTypeAnnouncement, title, message, &relatedID, emailData)
	}
}

// MessageReceived notifies the receiver of a direct message.
func (s *Service) MessageReceived(message *models.Message, sender, receiver *models.User) {
	relatedID := message.ID
	subject := message.Subject
	if subject == "" {
		subject = "Nuevo mensaje"
	}

	s.notify(receiver, models.NotificationTypeMessage,
		fmt.Sprintf("Nuevo mensaje de %s", sender.FullName()),
		subject,
		&relatedID,
		map[string]string{
			"sender_name": sender.FullName(),
			"subject":     subject,
			"content":     message.Content,
		})
}

// EnrollmentCreated confirms a self-enrollment to the student.
func (s *Service) EnrollmentCreated(student *models.User, course *models.Course, teacher *models.User) {
	relatedID := course.ID
	s.notify(student, models.NotificationTypeEnrollment,
		fmt.Sprintf("Inscripción a %s", course.Name),
		fmt.Sprintf("Te has inscrito exitosamente al curso %s", course.Name),
		&relatedID,
		map[string]string{
			"course_name":  course.Name,
			"teacher_name": teacher.FullName(),
			"section":      course.Section,
		})
}
