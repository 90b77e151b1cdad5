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

type AnnouncementsController struct {
	DB       *gorm.DB
	Cfg      *config.Config
	Notifier *notifications.Service
}

func NewAnnouncementsController(db *gorm.DB, cfg *config.Config, notifier *notifications.Service) *AnnouncementsController {
	return &AnnouncementsController{DB: db, Cfg: cfg, Notifier: notifier}
}

func (ann *AnnouncementsController) GetCourseAnnouncements(c *fiber.Ctx) error {
	user := middleware.Actor(c)

	courseID, err := c.ParamsInt("id")
	if err != nil {
		return utils.BadRequest(c, "ID de curso inválido")
	}

	var course models.Course
	if err := ann.DB.First(&course, courseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "Curso no encontrado")
		}
		return utils.InternalServerError(c, "Error al obtener anuncios")
	}

	if !authz.CanViewCourse(ann.DB, user, &course) {
		return utils.Forbidden(c, "No tienes acceso a este curso")
	}

	var announcements []models.Announcement
	if err := ann.DB.Preload("Author").Where("course_id = ?", course.ID).
		Order("created_at DESC").Find(&announcements).Error; err != nil {
		return utils.InternalServerError(c, "Error al obtener anuncios")
	}

	result := make([]fiber.Map, 0, len(announcements))
	for i := range announcements {
		a := &announcements[i]
		result = append(result, fiber.Map{
			"id":        a.ID,
			"title":     a.Title,
			"content":   a.Content,
			"is_pinned": a.IsPinned,
			"author": fiber.Map{
				"id":         a.Author.ID,
				"first_name": a.Author.FirstName,
				"last_name":  a.Author.LastName,
			},
			"created_at": a.CreatedAt.Format(time.RFC3339),
		})
	}
	return c.JSON(result)
}

type createAnnouncementInput struct {
	Title    string `json:"title" validate:"required"`
	Content  string `json:"content" validate:"required"`
	IsPinned bool   `json:"is_pinned"`
}

func (ann *AnnouncementsController) CreateAnnouncement(c *fiber.Ctx) error {
	user := middleware.Actor(c)

	courseID, err := c.ParamsInt("id")
	if err != nil {
		return utils.BadRequest(c, "ID de curso inválido")
	}

	var course models.Course
	if err := ann.DB.First(&course, courseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "Curso no encontrado")
		}
		return utils.InternalServerError(c, "Error al crear anuncio")
	}

	if !authz.CanManageCourseContent(user, &course) {
		return utils.Forbidden(c, "No tienes permisos para crear anuncios en este curso")
	}

	var input createAnnouncementInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.BadRequest(c, "Título y contenido son requeridos")
	}

	announcement := models.Announcement{
		Title:    input.Title,
		Content:  input.Content,
		IsPinned: input.IsPinned,
		CourseID: course.ID,
		AuthorID: user.ID,
	}
	if err := ann.DB.Create(&announcement).Error; err != nil {
		return utils.InternalServerError(c, "Error al crear anuncio")
	}

	ann.Notifier.AnnouncementCreated(&announcement, &course)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Anuncio creado exitosamente",
		"announcement": fiber.Map{
			"id":    announcement.ID,
			"title": announcement.Title,
		},
	})
}

// loadAnnouncementForViewer fetches an announcement and verifies course
// access; comments inherit the parent announcement's visibility.
func (ann *AnnouncementsController) loadAnnouncementForViewer(c *fiber.Ctx) (*models.Announcement, error) {
	announcementID, err := c.ParamsInt("id")
	if err != nil {
		return nil, utils.BadRequest(c, "ID de anuncio inválido")
	}

	var announcement models.Announcement
	if err := ann.DB.Preload("Course").First(&announcement, announcementID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NotFound(c, "Anuncio no encontrado")
		}
		return nil, utils.InternalServerError(c, "Error al consultar la base de datos")
	}

	if !authz.CanViewCourse(ann.DB, middleware.Actor(c), &announcement.Course) {
		return nil, utils.Forbidden(c, "No tienes acceso a este anuncio")
	}
	return &announcement, nil
}

func (ann *AnnouncementsController) GetComments(c *fiber.Ctx) error {
	announcement, errResp := ann.loadAnnouncementForViewer(c)
	if announcement == nil {
		return errResp
	}

	var comments []models.Comment
	if err := ann.DB.Preload("Author").
		Where("parent_kind = ? AND parent_id = ?", models.ParentKindAnnouncement, announcement.ID).
		Order("created_at ASC").Find(&comments).Error; err != nil {
		return utils.InternalServerError(c, "Error al obtener comentarios")
	}

	result := make([]fiber.Map, 0, len(comments))
	for i := range comments {
		comment := &comments[i]
		result = append(result, fiber.Map{
			"id":      comment.ID,
			"content": comment.Content,
			"author": fiber.Map{
				"id":         comment.Author.ID,
				"first_name": comment.Author.FirstName,
				"last_name":  comment.Author.LastName,
			},
			"created_at": comment.CreatedAt.Format(time.RFC3339),
		})
	}
	return c.JSON(result)
}

func (ann *AnnouncementsController) CreateComment(c *fiber.Ctx) error {
	announcement, errResp := ann.loadAnnouncementForViewer(c)
	if announcement == nil {
		return errResp
	}

	var input struct {
		Content string `json:"content"`
	}
	if err := c.BodyParser(&input); err != nil || input.Content == "" {
		return utils.BadRequest(c, "El contenido es requerido")
	}

	comment := models.Comment{
		Content:    input.Content,
		AuthorID:   middleware.Actor(c).ID,
		ParentKind: models.ParentKindAnnouncement,
		ParentID:   announcement.ID,
	}
	if err := ann.DB.Create(&comment).Error; err != nil {
		return utils.InternalServerError(c, "Error al crear comentario")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Comentario creado exitosamente",
		"comment": fiber.Map{
			"id":      comment.ID,
			"content": comment.Content,
		},
	})
}
