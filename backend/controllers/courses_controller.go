package controllers

import (
	"errors"
	"math/rand"
	"time"

	"infoclass/backend/authz"
	"infoclass/backend/config"
	"infoclass/backend/middleware"
	"infoclass/backend/models"
	"infoclass/backend/notifications"
	"infoclass/backend/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type CoursesController struct {
	DB       *gorm.DB
	Cfg      *config.Config
	Notifier *notifications.Service
}

func NewCoursesController(db *gorm.DB, cfg *config.Config, notifier *notifications.Service) *CoursesController {
	return &CoursesController{DB: db, Cfg: cfg, Notifier: notifier}
}

const accessCodeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
const accessCodeLength = 6

// generateAccessCode draws random codes until one is globally unique. The
// unique column constraint stays as the safety net against a concurrent draw
// of the same code.
func (cc *CoursesController) generateAccessCode() string {
	for {
		code := make([]byte, accessCodeLength)
		for i := range code {
			code[i] = accessCodeCharset[rand.Intn(len(accessCodeCharset))]
		}

		var count int64
		cc.DB.Model(&models.Course{}).Where("access_code = ?", string(code)).Count(&count)
		if count == 0 {
			return string(code)
		}
	}
}

// GetCourses is role-scoped: teachers see owned courses, students see
// enrolled courses, admins see all. Newest first.
func (cc *CoursesController) GetCourses(c *fiber.Ctx) error {
	user := middleware.Actor(c)

	var courses []models.Course
	query := cc.DB.Preload("Teacher").Order("courses.created_at DESC")

	switch user.Role {
	case models.RoleTeacher:
		query = query.Where("teacher_id = ?", user.ID)
	case models.RoleStudent:
		query = query.
			Joins("JOIN course_enrollments ON course_enrollments.course_id = courses.id").
			Where("course_enrollments.student_id = ? AND course_enrollments.deleted_at IS NULL", user.ID)
	case models.RoleAdmin:
		// no filter
	default:
		return utils.Forbidden(c, "Acceso denegado")
	}

	if err := query.Find(&courses).Error; err != nil {
		return utils.InternalServerError(c, "Error al obtener cursos")
	}

	result := make([]fiber.Map, 0, len(courses))
	for _, course := range courses {
		result = append(result, fiber.Map{
			"id":          course.ID,
			"name":        course.Name,
			"description": course.Description,
			"section":     course.Section,
			"subject":     course.Subject,
			"room":        course.Room,
			"access_code": course.AccessCode,
			"is_active":   course.IsActive,
			"teacher": fiber.Map{
				"id":         course.Teacher.ID,
				"first_name": course.Teacher.FirstName,
				"last_name":  course.Teacher.LastName,
			},
			"created_at": course.CreatedAt.Format(time.RFC3339),
		})
	}
	return c.JSON(result)
}

type createCourseInput struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	Section     string `json:"section"`
	Subject     string `json:"subject"`
	Room        string `json:"room"`
}

func (cc *CoursesController) CreateCourse(c *fiber.Ctx) error {
	user := middleware.Actor(c)
	if !authz.CanCreateCourse(user) {
		return utils.Forbidden(c, "Acceso denegado")
	}

	var input createCourseInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.BadRequest(c, "El nombre del curso es requerido")
	}

	course := models.Course{
		Name:        input.Name,
		Description: input.Description,
		Section:     input.Section,
		Subject:     input.Subject,
		Room:        input.Room,
		AccessCode:  cc.generateAccessCode(),
		TeacherID:   user.ID,
		IsActive:    true,
	}

	if err := cc.DB.Create(&course).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return utils.Conflict(c, "Error al crear curso")
		}
		return utils.InternalServerError(c, "Error al crear curso")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Curso creado exitosamente",
		"course": fiber.Map{
			"id":          course.ID,
			"name":        course.Name,
			"access_code": course.AccessCode,
		},
	})
}

func (cc *CoursesController) GetCourseDetails(c *fiber.Ctx) error {
	user := middleware.Actor(c)

	courseID, err := c.ParamsInt("id")
	if err != nil {
		return utils.BadRequest(c, "ID de curso inválido")
	}

	var course models.Course
	if err := cc.DB.Preload("Teacher").First(&course, courseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "Curso no encontrado")
		}
		return utils.InternalServerError(c, "Error al obtener detalles del curso")
	}

	if !authz.CanViewCourse(cc.DB, user, &course) {
		return utils.Forbidden(c, "No tienes acceso a este curso")
	}

	var studentsCount int64
	cc.DB.Model(&models.CourseEnrollment{}).Where("course_id = ?", course.ID).Count(&studentsCount)

	return c.JSON(fiber.Map{
		"id":          course.ID,
		"name":        course.Name,
		"description": course.Description,
		"section":     course.Section,
		"subject":     course.Subject,
		"room":        course.Room,
		"access_code": course.AccessCode,
		"is_active":   course.IsActive,
		"teacher": fiber.Map{
			"id":         course.Teacher.ID,
			"first_name": course.Teacher.FirstName,
			"last_name":  course.Teacher.LastName,
			"email":      course.Teacher.Email,
		},
		"students_count": studentsCount,
		"created_at":     course.CreatedAt.Format(time.RFC3339),
	})
}

// EnrollByCode lets a student join a course with just the access code.
func (cc *CoursesController) EnrollByCode(c *fiber.Ctx) error {
	user := middleware.Actor(c)
	if !authz.CanEnroll(user) {
		return utils.Forbidden(c, "Acceso denegado")
	}

	var input struct {
		AccessCode string `json:"access_code"`
	}
	if err := c.BodyParser(&input); err != nil || input.AccessCode == "" {
		return utils.BadRequest(c, "El código de acceso es requerido")
	}

	var course models.Course
	if err := cc.DB.Preload("Teacher").Where("access_code = ?", input.AccessCode).First(&course).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.BadRequest(c, "Código de acceso inválido")
		}
		return utils.InternalServerError(c, "Error al inscribirse")
	}

	return cc.enroll(c, user, &course)
}

// EnrollInCourse joins a specific course, still requiring its access code.
func (cc *CoursesController) EnrollInCourse(c *fiber.Ctx) error {
	user := middleware.Actor(c)
	if !authz.CanEnroll(user) {
		return utils.Forbidden(c, "Acceso denegado")
	}

	courseID, err := c.ParamsInt("id")
	if err != nil {
		return utils.BadRequest(c, "ID de curso inválido")
	}

	var course models.Course
	if err := cc.DB.Preload("Teacher").First(&course, courseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "Curso no encontrado")
		}
		return utils.InternalServerError(c, "Error al inscribirse")
	}

	var input struct {
		AccessCode string `json:"access_code"`
	}
	if err := c.BodyParser(&input); err != nil || course.AccessCode != input.AccessCode {
		return utils.BadRequest(c, "Código de acceso inválido")
	}

	return cc.enroll(c, user, &course)
}

func (cc *CoursesController) enroll(c *fiber.Ctx, user *models.User, course *models.Course) error {
	// Fast path for the friendly message; the composite unique index is the
	// authority under concurrency.
	if authz.IsEnrolled(cc.DB, user.ID, course.ID) {
		return utils.BadRequest(c, "Ya estás inscrito en este curso")
	}

	enrollment := models.CourseEnrollment{
		StudentID: user.ID,
		CourseID:  course.ID,
	}
	if err := cc.DB.Create(&enrollment).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return utils.Conflict(c, "Ya estás inscrito en este curso")
		}
		return utils.InternalServerError(c, "Error al inscribirse")
	}

	cc.Notifier.EnrollmentCreated(user, course, &course.Teacher)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":   "Inscripción exitosa",
		"course_id": course.ID,
	})
}

func (cc *CoursesController) GetCourseStudents(c *fiber.Ctx) error {
	user := middleware.Actor(c)

	courseID, err := c.ParamsInt("id")
	if err != nil {
		return utils.BadRequest(c, "ID de curso inválido")
	}

	var course models.Course
	if err := cc.DB.First(&course, courseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "Curso no encontrado")
		}
		return utils.InternalServerError(c, "Error al consultar la base de datos")
	}

	if !authz.CanManageCourseContent(user, &course) {
		return utils.Forbidden(c, "No tienes permisos para ver los estudiantes de este curso")
	}

	var enrollments []models.CourseEnrollment
	if err := cc.DB.Preload("Student").Where("course_id = ?", course.ID).Find(&enrollments).Error; err != nil {
		return utils.InternalServerError(c, "Error al obtener estudiantes")
	}

	result := make([]fiber.Map, 0, len(enrollments))
	for _, enrollment := range enrollments {
		result = append(result, fiber.Map{
			"id":          enrollment.Student.ID,
			"first_name":  enrollment.Student.FirstName,
			"last_name":   enrollment.Student.LastName,
			"email":       enrollment.Student.Email,
			"enrolled_at": enrollment.CreatedAt.Format(time.RFC3339),
		})
	}
	return c.JSON(result)
}
