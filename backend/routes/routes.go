package routes

import (
	"infoclass/backend/config"
	"infoclass/backend/controllers"
	"infoclass/backend/mailer"
	"infoclass/backend/middleware"
	"infoclass/backend/notifications"
	"infoclass/backend/realtime"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func SetupRoutes(app *fiber.App, db *gorm.DB, cfg *config.Config, notifier *notifications.Service, hub *realtime.Hub, mail mailer.Sender) {
	app.Get("/api/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Auth routes
	authController := controllers.NewAuthController(db, cfg, mail)
	app.Post("/api/auth/register", authController.Register)
	app.Post("/api/auth/login", authController.Login)
	app.Post("/api/auth/verify-email", authController.VerifyEmail)

	// Middleware
	authMiddleware := middleware.AuthMiddleware(db, cfg)

	app.Get("/api/auth/me", authMiddleware, authController.Me)
	app.Post("/api/auth/resend-verification", authMiddleware, authController.ResendVerification)

	// User routes
	usersController := controllers.NewUsersController(db, cfg)
	users := app.Group("/api/users", authMiddleware)
	users.Get("/", usersController.GetUsers)
	users.Put("/", usersController.UpdateProfile)
	users.Get("/notification-settings", usersController.GetNotificationSettings)
	users.Put("/notification-settings", usersController.UpdateNotificationSettings)
	users.Put("/profile", usersController.UpdateProfile)
	users.Put("/password", usersController.UpdatePassword)
	users.Post("/avatar", usersController.UploadAvatar)
	users.Delete("/avatar", usersController.DeleteAvatar)
	users.Get("/stats", usersController.GetStats)
	// Registered after the static paths so they are not captured by :id.
	users.Put("/:id", usersController.UpdateUser)

	// Courses routes
	coursesController := controllers.NewCoursesController(db, cfg, notifier)
	courses := app.Group("/api/courses", authMiddleware)
	courses.Get("/", coursesController.GetCourses)
	courses.Post("/", coursesController.CreateCourse)
	courses.Post("/enroll", coursesController.EnrollByCode)
	courses.Get("/:id", coursesController.GetCourseDetails)
	courses.Post("/:id/enroll", coursesController.EnrollInCourse)
	courses.Get("/:id/students", coursesController.GetCourseStudents)

	// Assignments routes
	assignmentsController := controllers.NewAssignmentsController(db, cfg, notifier)
	app.Get("/api/assignments", authMiddleware, assignmentsController.GetAllAssignments)
	courses.Get("/:id/assignments", assignmentsController.GetCourseAssignments)
	courses.Post("/:id/assignments", assignmentsController.CreateAssignment)

	assignments := app.Group("/api/assignments", authMiddleware)
	assignments.Get("/:id", assignmentsController.GetAssignmentDetail)
	assignments.Put("/:id", assignmentsController.UpdateAssignment)
	assignments.Put("/:id/archive", assignmentsController.ArchiveAssignment)
	assignments.Delete("/:id", assignmentsController.DeleteAssignment)
	assignments.Post("/:id/submissions", assignmentsController.SubmitAssignment)
	assignments.Get("/:id/my-submission", assignmentsController.GetMySubmission)
	assignments.Get("/:id/submissions", assignmentsController.GetAssignmentSubmissions)

	// Submissions routes
	filesController := controllers.NewFilesController(db, cfg)
	submissions := app.Group("/api/submissions", authMiddleware)
	submissions.Post("/:id/grade", assignmentsController.GradeSubmission)
	submissions.Get("/:id/files", filesController.GetSubmissionFiles)
	assignments.Get("/:id/files", filesController.GetAssignmentFiles)

	// Announcements and comments routes
	announcementsController := controllers.NewAnnouncementsController(db, cfg, notifier)
	courses.Get("/:id/announcements", announcementsController.GetCourseAnnouncements)
	courses.Post("/:id/announcements", announcementsController.CreateAnnouncement)
	announcements := app.Group("/api/announcements", authMiddleware)
	announcements.Get("/:id/comments", announcementsController.GetComments)
	announcements.Post("/:id/comments", announcementsController.CreateComment)

	// Messages routes
	messagesController := controllers.NewMessagesController(db, cfg, notifier)
	messages := app.Group("/api/messages", authMiddleware)
	messages.Get("/", messagesController.GetMessages)
	messages.Post("/", messagesController.SendMessage)
	messages.Put("/:id/read", messagesController.MarkMessageRead)

	// Files routes
	files := app.Group("/api/files", authMiddleware)
	files.Post("/upload", filesController.Upload)
	files.Get("/:id", filesController.Download)
	files.Put("/:id", filesController.UpdateFile)
	files.Delete("/:id", filesController.DeleteFile)

	// Notifications routes
	notificationsController := controllers.NewNotificationsController(db, cfg)
	notificationsGroup := app.Group("/api/notifications", authMiddleware)
	notificationsGroup.Get("/", notificationsController.GetNotifications)
	notificationsGroup.Put("/", notificationsController.MarkReadBulk)
	notificationsGroup.Put("/read-all", notificationsController.MarkAllRead)
	notificationsGroup.Put("/:id/read", notificationsController.MarkRead)

	// WebSocket endpoint for realtime notifications
	app.Use("/ws", realtime.UpgradeMiddleware(cfg))
	app.Get("/ws", realtime.Handler(hub))
}
