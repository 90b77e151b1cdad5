package controllers

import (
	"errors"
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

type AssignmentsController struct {
	DB       *gorm.DB
	Cfg      *config.Config
	Notifier *notifications.Service
}

func NewAssignmentsController(db *gorm.DB, cfg *config.Config, notifier *notifications.Service) *AssignmentsController {
	return &AssignmentsController{DB: db, Cfg: cfg, Notifier: notifier}
}

func includeArchived(c *fiber.Ctx) bool {
	return c.Query("include_archived") == "true"
}

// submissionStatusMap loads the student's own submission status/timestamp for
// a set of assignments, keyed by assignment id.
func (ac *AssignmentsController) submissionStatusMap(studentID uint, assignmentIDs []uint) map[uint]fiber.Map {
	subMap := make(map[uint]fiber.Map)
	if len(assignmentIDs) == 0 {
		return subMap
	}

	var submissions []models.AssignmentSubmission
	ac.DB.Where("student_id = ? AND assignment_id IN ?", studentID, assignmentIDs).Find(&submissions)

	for _, sub := range submissions {
		var submittedAt interface{}
		if sub.SubmittedAt != nil {
			submittedAt = sub.SubmittedAt.Format(time.RFC3339)
		}
		subMap[sub.AssignmentID] = fiber.Map{
			"status":       sub.Status,
			"submitted_at": submittedAt,
		}
	}
	return subMap
}

func assignmentMap(a *models.Assignment, submission fiber.Map, withSubmission bool) fiber.Map {
	m := fiber.Map{
		"id":                     a.ID,
		"title":                  a.Title,
		"description":            a.Description,
		"due_date":               a.DueDate.Format(time.RFC3339),
		"max_points":             a.MaxPoints,
		"allow_late_submissions": a.AllowLateSubmissions,
		"is_archived":            a.IsArchived,
		"created_at":             a.CreatedAt.Format(time.RFC3339),
	}
	if withSubmission {
		m["submission"] = submission
	}
	return m
}

// GetAllAssignments lists assignments across all of the actor's courses.
func (ac *AssignmentsController) GetAllAssignments(c *fiber.Ctx) error {
	user := middleware.Actor(c)

	query := ac.DB.Preload("Course")
	switch user.Role {
	case models.RoleTeacher:
		query = query.Where("course_id IN (?)",
			ac.DB.Model(&models.Course{}).Select("id").Where("teacher_id = ?", user.ID))
	case models.RoleStudent:
		query = query.Where("course_id IN (?)",
			ac.DB.Model(&models.CourseEnrollment{}).Select("course_id").Where("student_id = ?", user.ID))
	case models.RoleAdmin:
		// no filter
	default:
		return utils.Forbidden(c, "Acceso denegado")
	}
	if !includeArchived(c) {
		query = query.Where("is_archived = ?", false)
	}

	var assignments []models.Assignment
	if err := query.Find(&assignments).Error; err != nil {
		return utils.InternalServerError(c, "Error al obtener tareas")
	}

	isStudent := user.Role == models.RoleStudent
	var subMap map[uint]fiber.Map
	if isStudent {
		ids := make([]uint, 0, len(assignments))
		for _, a := range assignments {
			ids = append(ids, a.ID)
		}
		subMap = ac.submissionStatusMap(user.ID, ids)
	}

	result := make([]fiber.Map, 0, len(assignments))
	for i := range assignments {
		a := &assignments[i]
		m := assignmentMap(a, subMap[a.ID], isStudent)
		m["course"] = fiber.Map{
			"id":   a.Course.ID,
			"name": a.Course.Name,
		}
		result = append(result, m)
	}
	return c.JSON(result)
}

func (ac *AssignmentsController) GetCourseAssignments(c *fiber.Ctx) error {
	user := middleware.Actor(c)

	courseID, err := c.ParamsInt("id")
	if err != nil {
		return utils.BadRequest(c, "ID de curso inválido")
	}

	var course models.Course
	if err := ac.DB.First(&course, courseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "Curso no encontrado")
		}
		return utils.InternalServerError(c, "Error al obtener tareas")
	}

	if !authz.CanViewCourse(ac.DB, user, &course) {
		return utils.Forbidden(c, "No tienes acceso a este curso")
	}

	query := ac.DB.Where("course_id = ?", course.ID)
	if !includeArchived(c) {
		query = query.Where("is_archived = ?", false)
	}

	var assignments []models.Assignment
	if err := query.Find(&assignments).Error; err != nil {
		return utils.InternalServerError(c, "Error al obtener tareas")
	}

	isStudent := user.Role == models.RoleStudent
	var subMap map[uint]fiber.Map
	if isStudent {
		ids := make([]uint, 0, len(assignments))
		for _, a := range assignments {
			ids = append(ids, a.ID)
		}
		subMap = ac.submissionStatusMap(user.ID, ids)
	}

	result := make([]fiber.Map, 0, len(assignments))
	for i := range assignments {
		a := &assignments[i]
		result = append(result, assignmentMap(a, subMap[a.ID], isStudent))
	}
	return c.JSON(result)
}

type createAssignmentInput struct {
	Title                string   `json:"title" validate:"required"`
	Description          string   `json:"description"`
	DueDate              string   `json:"due_date" validate:"required"`
	MaxPoints            *float64 `json:"max_points"`
	AllowLateSubmissions *bool    `json:"allow_late_submissions"`
}

func (ac *AssignmentsController) CreateAssignment(c *fiber.Ctx) error {
	user := middleware.Actor(c)

	courseID, err := c.ParamsInt("id")
	if err != nil {
		return utils.BadRequest(c, "ID de curso inválido")
	}

	var course models.Course
	if err := ac.DB.First(&course, courseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "Curso no encontrado")
		}
		return utils.InternalServerError(c, "Error al crear tarea")
	}

	if !authz.CanManageCourseContent(user, &course) {
		return utils.Forbidden(c, "No tienes permisos para crear tareas en este curso")
	}

	var input createAssignmentInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.BadRequest(c, "Título y fecha límite son requeridos")
	}

	dueDate, err := time.Parse(time.RFC3339, input.DueDate)
	if err != nil {
		return utils.BadRequest(c, "Fecha límite inválida")
	}

	assignment := models.Assignment{
		Title:                input.Title,
		Description:          input.Description,
		DueDate:              dueDate,
		MaxPoints:            100,
		AllowLateSubmissions: true,
		CourseID:             course.ID,
	}
	if input.MaxPoints != nil {
		assignment.MaxPoints = *input.MaxPoints
	}
	if input.AllowLateSubmissions != nil {
		assignment.AllowLateSubmissions = *input.AllowLateSubmissions
	}

	if err := ac.DB.Create(&assignment).Error; err != nil {
		return utils.InternalServerError(c, "Error al crear tarea")
	}

	// Fan-out runs after the write committed; its failures never reach this
	// response.
	ac.Notifier.AssignmentCreated(&assignment, &course, user)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Tarea creada exitosamente",
		"assignment": fiber.Map{
			"id":    assignment.ID,
			"title": assignment.Title,
		},
	})
}

// loadAssignmentForOwner fetches an assignment and checks the actor owns its
// course. The not-found check runs first so a missing assignment never leaks
// an authorization verdict.
func (ac *AssignmentsController) loadAssignmentForOwner(c *fiber.Ctx, action string) (*models.Assignment, error) {
	assignmentID, err := c.ParamsInt("id")
	if err != nil {
		return nil, utils.BadRequest(c, "ID de tarea inválido")
	}

	var assignment models.Assignment
	if err := ac.DB.Preload("Course").First(&assignment, assignmentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NotFound(c, "Tarea no encontrada")
		}
		return nil, utils.InternalServerError(c, "Error al consultar la base de datos")
	}

	if !authz.CanManageCourseContent(middleware.Actor(c), &assignment.Course) {
		return nil, utils.Forbidden(c, "No tienes permisos para "+action+" esta tarea")
	}
	return &assignment, nil
}

func (ac *AssignmentsController) GetAssignmentDetail(c *fiber.Ctx) error {
	user := middleware.Actor(c)

	assignmentID, err := c.ParamsInt("id")
	if err != nil {
		return utils.BadRequest(c, "ID de tarea inválido")
	}

	var assignment models.Assignment
	if err := ac.DB.Preload("Course").First(&assignment, assignmentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "Tarea no encontrada")
		}
		return utils.InternalServerError(c, "Error al obtener detalles de la tarea")
	}

	if !authz.CanViewCourse(ac.DB, user, &assignment.Course) {
		return utils.Forbidden(c, "No tienes acceso a esta tarea")
	}

	m := assignmentMap(&assignment, nil, false)
	m["course"] = fiber.Map{
		"id":      assignment.Course.ID,
		"name":    assignment.Course.Name,
		"subject": assignment.Course.Subject,
		"section": assignment.Course.Section,
	}
	return c.JSON(m)
}

func (ac *AssignmentsController) UpdateAssignment(c *fiber.Ctx) error {
	assignment, errResp := ac.loadAssignmentForOwner(c, "editar")
	if assignment == nil {
		return errResp
	}

	var input struct {
		Title                *string  `json:"title"`
		Description          *string  `json:"description"`
		DueDate              *string  `json:"due_date"`
		MaxPoints            *float64 `json:"max_points"`
		AllowLateSubmissions *bool    `json:"allow_late_submissions"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	updates := map[string]interface{}{}
	if input.Title != nil {
		updates["title"] = *input.Title
	}
	if input.Description != nil {
		updates["description"] = *input.Description
	}
	if input.DueDate != nil && *input.DueDate != "" {
		dueDate, err := time.Parse(time.RFC3339, *input.DueDate)
		if err != nil {
			return utils.BadRequest(c, "Fecha límite inválida")
		}
		updates["due_date"] = dueDate
	}
	if input.MaxPoints != nil {
		updates["max_points"] = *input.MaxPoints
	}
	if input.AllowLateSubmissions != nil {
		updates["allow_late_submissions"] = *input.AllowLateSubmissions
	}

	if len(updates) > 0 {
		if err := ac.DB.Model(assignment).Updates(updates).Error; err != nil {
			return utils.InternalServerError(c, "Error al actualizar tarea")
		}
	}
	return c.JSON(fiber.Map{"message": "Tarea actualizada"})
}

func (ac *AssignmentsController) ArchiveAssignment(c *fiber.Ctx) error {
	assignment, errResp := ac.loadAssignmentForOwner(c, "archivar")
	if assignment == nil {
		return errResp
	}

	input := struct {
		IsArchived *bool `json:"is_archived"`
	}{}
	c.BodyParser(&input) // empty body means archive

	isArchived := true
	if input.IsArchived != nil {
		isArchived = *input.IsArchived
	}

	if err := ac.DB.Model(assignment).Update("is_archived", isArchived).Error; err != nil {
		return utils.InternalServerError(c, "Error al actualizar estado de archivo")
	}

	return c.JSON(fiber.Map{
		"message":     "Estado de archivo actualizado",
		"is_archived": isArchived,
	})
}

// DeleteAssignment removes the assignment with its submissions and any
// comments or attachments hanging off them, all in one transaction.
func (ac *AssignmentsController) DeleteAssignment(c *fiber.Ctx) error {
	assignment, errResp := ac.loadAssignmentForOwner(c, "borrar")
	if assignment == nil {
		return errResp
	}

	err := ac.DB.Transaction(func(tx *gorm.DB) error {
		var submissionIDs []uint
		if err := tx.Model(&models.AssignmentSubmission{}).
			Where("assignment_id = ?", assignment.ID).
			Pluck("id", &submissionIDs).Error; err != nil {
			return err
		}

		if len(submissionIDs) > 0 {
			if err := tx.Where("parent_kind = ? AND parent_id IN ?", models.ParentKindSubmission, submissionIDs).
				Delete(&models.Comment{}).Error; err != nil {
				return err
			}
			if err := tx.Where("parent_kind = ? AND parent_id IN ?", models.ParentKindSubmission, submissionIDs).
				Delete(&models.FileAttachment{}).Error; err != nil {
				return err
			}
			if err := tx.Where("assignment_id = ?", assignment.ID).
				Delete(&models.AssignmentSubmission{}).Error; err != nil {
				return err
			}
		}

		if err := tx.Where("parent_kind = ? AND parent_id = ?", models.ParentKindAssignment, assignment.ID).
			Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("parent_kind = ? AND parent_id = ?", models.ParentKindAssignment, assignment.ID).
			Delete(&models.FileAttachment{}).Error; err != nil {
			return err
		}

		return tx.Delete(assignment).Error
	})
	if err != nil {
		return utils.InternalServerError(c, "Error al eliminar tarea")
	}

	return c.JSON(fiber.Map{"message": "Tarea eliminada"})
}

// SubmitAssignment creates or updates the student's single submission row for
// the assignment. Late iff submitted strictly after the due date.
func (ac *AssignmentsController) SubmitAssignment(c *fiber.Ctx) error {
	user := middleware.Actor(c)
	if !authz.CanSubmit(user) {
		return utils.Forbidden(c, "Acceso denegado")
	}

	assignmentID, err := c.ParamsInt("id")
	if err != nil {
		return utils.BadRequest(c, "ID de tarea inválido")
	}

	var assignment models.Assignment
	if err := ac.DB.First(&assignment, assignmentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "Tarea no encontrada")
		}
		return utils.InternalServerError(c, "Error al enviar entrega")
	}

	var input struct {
		Content string `json:"content"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	now := time.Now().UTC()
	status := models.SubmittedStatus(now, assignment.DueDate)
	if status == models.SubmissionStatusLate && !assignment.AllowLateSubmissions {
		return utils.BadRequest(c, "Esta tarea no acepta entregas tardías")
	}

	var submission models.AssignmentSubmission
	err = ac.DB.Where("student_id = ? AND assignment_id = ?", user.ID, assignment.ID).
		First(&submission).Error
	switch {
	case err == nil:
		// Resubmission overwrites in place.
		updates := map[string]interface{}{
			"content":      input.Content,
			"status":       status,
			"submitted_at": now,
		}
		if err := ac.DB.Model(&submission).Updates(updates).Error; err != nil {
			return utils.InternalServerError(c, "Error al enviar entrega")
		}
		submission.Content = input.Content
		submission.Status = status
		submission.SubmittedAt = &now
	case errors.Is(err, gorm.ErrRecordNotFound):
		submission = models.AssignmentSubmission{
			StudentID:    user.ID,
			AssignmentID: assignment.ID,
			Content:      input.Content,
			Status:       status,
			SubmittedAt:  &now,
		}
		if err := ac.DB.Create(&submission).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return utils.Conflict(c, "Ya existe una entrega para esta tarea")
			}
			return utils.InternalServerError(c, "Error al enviar entrega")
		}
	default:
		return utils.InternalServerError(c, "Error al enviar entrega")
	}

	return c.Status(fiber.StatusCreated).JSON(submissionMap(&submission))
}

func (ac *AssignmentsController) GetMySubmission(c *fiber.Ctx) error {
	user := middleware.Actor(c)
	if !authz.CanSubmit(user) {
		return utils.Forbidden(c, "Acceso denegado")
	}

	assignmentID, err := c.ParamsInt("id")
	if err != nil {
		return utils.BadRequest(c, "ID de tarea inválido")
	}

	var assignment models.Assignment
	if err := ac.DB.First(&assignment, assignmentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "Tarea no encontrada")
		}
		return utils.InternalServerError(c, "Error al consultar la base de datos")
	}

	var submission models.AssignmentSubmission
	if err := ac.DB.Where("student_id = ? AND assignment_id = ?", user.ID, assignment.ID).
		First(&submission).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(nil)
		}
		return utils.InternalServerError(c, "Error al consultar la base de datos")
	}

	return c.JSON(submissionMap(&submission))
}

func (ac *AssignmentsController) GetAssignmentSubmissions(c *fiber.Ctx) error {
	user := middleware.Actor(c)

	assignmentID, err := c.ParamsInt("id")
	if err != nil {
		return utils.BadRequest(c, "ID de tarea inválido")
	}

	var assignment models.Assignment
	if err := ac.DB.Preload("Course").First(&assignment, assignmentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "Tarea no encontrada")
		}
		return utils.InternalServerError(c, "Error al consultar la base de datos")
	}

	if !authz.CanManageCourseContent(user, &assignment.Course) {
		return utils.Forbidden(c, "No tienes permisos para ver las entregas de esta tarea")
	}

	var submissions []models.AssignmentSubmission
	if err := ac.DB.Preload("Student").Where("assignment_id = ?", assignment.ID).
		Find(&submissions).Error; err != nil {
		return utils.InternalServerError(c, "Error al obtener entregas")
	}

	result := make([]fiber.Map, 0, len(submissions))
	for i := range submissions {
		sub := &submissions[i]
		m := submissionMap(sub)
		m["student"] = fiber.Map{
			"id":         sub.Student.ID,
			"first_name": sub.Student.FirstName,
			"last_name":  sub.Student.LastName,
			"email":      sub.Student.Email,
		}
		result = append(result, m)
	}
	return c.JSON(result)
}

// GradeSubmission atomically stamps points, feedback, grader and timestamp.
func (ac *AssignmentsController) GradeSubmission(c *fiber.Ctx) error {
	user := middleware.Actor(c)

	submissionID, err := c.ParamsInt("id")
	if err != nil {
		return utils.BadRequest(c, "ID de entrega inválido")
	}

	var submission models.AssignmentSubmission
	if err := ac.DB.Preload("Assignment.Course").First(&submission, submissionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "Entrega no encontrada")
		}
		return utils.InternalServerError(c, "Error al consultar la base de datos")
	}

	if !authz.CanGrade(user, &submission.Assignment.Course) {
		return utils.Forbidden(c, "No tienes permisos para calificar esta entrega")
	}

	var input struct {
		PointsEarned *float64 `json:"points_earned"`
		Feedback     string   `json:"feedback"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if input.PointsEarned == nil {
		return utils.BadRequest(c, "La calificación es requerida")
	}

	now := time.Now().UTC()
	updates := map[string]interface{}{
		"points_earned": *input.PointsEarned,
		"feedback":      input.Feedback,
		"graded_by":     user.ID,
		"graded_at":     now,
		"status":        models.SubmissionStatusGraded,
	}
	if err := ac.DB.Model(&submission).Updates(updates).Error; err != nil {
		return utils.InternalServerError(c, "Error al guardar calificación")
	}
	submission.PointsEarned = input.PointsEarned
	submission.Feedback = input.Feedback
	submission.Status = models.SubmissionStatusGraded

	ac.Notifier.SubmissionGraded(&submission, &submission.Assignment)

	return c.JSON(fiber.Map{"message": "Calificación guardada exitosamente"})
}

func submissionMap(sub *models.AssignmentSubmission) fiber.Map {
	var submittedAt, gradedAt interface{}
	if sub.SubmittedAt != nil {
		submittedAt = sub.SubmittedAt.Format(time.RFC3339)
	}
	if sub.GradedAt != nil {
		gradedAt = sub.GradedAt.Format(time.RFC3339)
	}

	return fiber.Map{
		"id":            sub.ID,
		"student_id":    sub.StudentID,
		"assignment_id": sub.AssignmentID,
		"content":       sub.Content,
		"status":        sub.Status,
		"submitted_at":  submittedAt,
		"points_earned": sub.PointsEarned,
		"feedback":      sub.Feedback,
		"graded_at":     gradedAt,
		"created_at":    sub.CreatedAt.Format(time.RFC3339),
	}
}
