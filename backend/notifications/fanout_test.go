package notifications_test

import (
	"errors"
	"fmt"
	"io"
	"log"
	"testing"
	"time"

	"infoclass/backend/models"
	"infoclass/backend/notifications"
	"infoclass/backend/realtime"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type publishedEvent struct {
	Room    string
	Event   string
	Payload interface{}
}

type recordingPublisher struct {
	events []publishedEvent
}

func (p *recordingPublisher) Publish(room, event string, payload interface{}) {
	p.events = append(p.events, publishedEvent{Room: room, Event: event, Payload: payload})
}

// failingMailer simulates an SMTP outage.
type failingMailer struct{}

func (failingMailer) SendVerification(string, string, string) error {
	return errors.New("smtp unavailable")
}

func (failingMailer) SendNotification(string, string, string, map[string]string) error {
	return errors.New("smtp unavailable")
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Course{},
		&models.CourseEnrollment{},
		&models.Assignment{},
		&models.AssignmentSubmission{},
		&models.Announcement{},
		&models.Notification{},
	))
	return db
}

func seedCourse(t *testing.T, db *gorm.DB, studentCount int) (*models.Course, *models.User, []models.User) {
	t.Helper()

	teacher := models.User{
		Email: "profe@example.com", PasswordHash: "x",
		FirstName: "Profe", LastName: "Sor", Role: models.RoleTeacher, IsActive: true,
	}
	require.NoError(t, db.Create(&teacher).Error)

	course := models.Course{Name: "Historia", AccessCode: "HIST01", TeacherID: teacher.ID, IsActive: true}
	require.NoError(t, db.Create(&course).Error)

	students := make([]models.User, 0, studentCount)
	for i := 0; i < studentCount; i++ {
		student := models.User{
			Email: fmt.Sprintf("alumno%d@example.com", i), PasswordHash: "x",
			FirstName: "Alumno", LastName: fmt.Sprintf("N%d", i),
			Role: models.RoleStudent, IsActive: true,
			EmailNotifications: true, AssignmentReminders: true,
			GradeNotifications: true, AnnouncementNotifications: true,
		}
		require.NoError(t, db.Create(&student).Error)
		require.NoError(t, db.Create(&models.CourseEnrollment{
			StudentID: student.ID, CourseID: course.ID,
		}).Error)
		students = append(students, student)
	}
	return &course, &teacher, students
}

func newService(db *gorm.DB, hub notifications.Publisher) *notifications.Service {
	return notifications.NewService(db, hub, failingMailer{}, log.New(io.Discard, "", 0))
}

func TestAssignmentCreatedFansOutToAllStudents(t *testing.T) {
	db := newTestDB(t)
	course, teacher, students := seedCourse(t, db, 3)

	assignment := models.Assignment{
		Title: "Ensayo", DueDate: time.Now().Add(48 * time.Hour),
		MaxPoints: 100, CourseID: course.ID,
	}
	require.NoError(t, db.Create(&assignment).Error)

	hub := &recordingPublisher{}
	svc := newService(db, hub)
	svc.AssignmentCreated(&assignment, course, teacher)

	// One persisted row per enrolled student, even though every email failed.
	var rows []models.Notification
	require.NoError(t, db.Where("type = ?", models.NotificationTypeAssignment).Find(&rows).Error)
	assert.Len(t, rows, len(students))
	for _, row := range rows {
		assert.Equal(t, assignment.ID, *row.RelatedID)
		assert.Contains(t, row.Title, "Ensayo")
	}

	assert.Len(t, hub.events, len(students))
	for i, event := range hub.events {
		assert.Equal(t, realtime.UserRoom(students[i].ID), event.Room)
		assert.Equal(t, realtime.EventNewNotification, event.Event)

		payload := event.Payload.(map[string]interface{})
		assert.NotZero(t, payload["id"])
	}
}

func TestNoRecipientsIsNoOp(t *testing.T) {
	db := newTestDB(t)
	course, teacher, _ := seedCourse(t, db, 0)

	assignment := models.Assignment{
		Title: "Sin alumnos", DueDate: time.Now().Add(time.Hour),
		MaxPoints: 100, CourseID: course.ID,
	}
	require.NoError(t, db.Create(&assignment).Error)

	hub := &recordingPublisher{}
	svc := newService(db, hub)
	svc.AssignmentCreated(&assignment, course, teacher)

	var count int64
	db.Model(&models.Notification{}).Count(&count)
	assert.Zero(t, count)
	assert.Empty(t, hub.events)
}

func TestSubmissionGradedNotifiesStudent(t *testing.T) {
	db := newTestDB(t)
	course, _, students := seedCourse(t, db, 1)

	assignment := models.Assignment{
		Title: "Parcial", DueDate: time.Now().Add(time.Hour),
		MaxPoints: 100, CourseID: course.ID,
	}
	require.NoError(t, db.Create(&assignment).Error)

	points := 90.0
	submission := models.AssignmentSubmission{
		StudentID: students[0].ID, AssignmentID: assignment.ID,
		Status: models.SubmissionStatusGraded, PointsEarned: &points,
	}
	require.NoError(t, db.Create(&submission).Error)

	hub := &recordingPublisher{}
	svc := newService(db, hub)
	svc.SubmissionGraded(&submission, &assignment)

	var row models.Notification
	require.NoError(t, db.Where("type = ?", models.NotificationTypeGrade).First(&row).Error)
	assert.Equal(t, students[0].ID, row.UserID)
	assert.Equal(t, submission.ID, *row.RelatedID)
	assert.Contains(t, row.Message, "90.00/100.00")

	require.Len(t, hub.events, 1)
	assert.Equal(t, realtime.UserRoom(students[0].ID), hub.events[0].Room)
}

func TestAnnouncementCreatedFansOut(t *testing.T) {
	db := newTestDB(t)
	course, _, students := seedCourse(t, db, 2)

	announcement := models.Announcement{
		Title: "Aviso importante", Content: "Mañana no hay clase",
		CourseID: course.ID, AuthorID: course.TeacherID,
	}
	require.NoError(t, db.Create(&announcement).Error)

	hub := &recordingPublisher{}
	svc := newService(db, hub)
	svc.AnnouncementCreated(&announcement, course)

	var count int64
	db.Model(&models.Notification{}).Where("type = ?", models.NotificationTypeAnnouncement).Count(&count)
	assert.Equal(t, int64(len(students)), count)
}
