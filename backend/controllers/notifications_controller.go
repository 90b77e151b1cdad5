package controllers

import (
	"errors"
	"time"

	"infoclass/backend/config"
	"infoclass/backend/middleware"
	"infoclass/backend/models"
	"infoclass/backend/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type NotificationsController struct {
	DB  *gorm.DB
	Cfg *config.Config
}

func NewNotificationsController(db *gorm.DB, cfg *config.Config) *NotificationsController {
	return &NotificationsController{DB: db, Cfg: cfg}
}

func (nc *NotificationsController) GetNotifications(c *fiber.Ctx) error {
	user := middleware.Actor(c)

	var notifications []models.Notification
	if err := nc.DB.Where("user_id = ?", user.ID).
		Order("created_at DESC").Limit(50).Find(&notifications).Error; err != nil {
		return utils.InternalServerError(c, "Error al obtener notificaciones")
	}

	result := make([]fiber.Map, 0, len(notifications))
	for i := range notifications {
		n := &notifications[i]
		result = append(result, fiber.Map{
			"id":         n.ID,
			"title":      n.Title,
			"message":    n.Message,
			"type":       n.Type,
			"is_read":    n.IsRead,
			"related_id": n.RelatedID,
			"created_at": n.CreatedAt.Format(time.RFC3339),
		})
	}
	return c.JSON(result)
}

// MarkRead flips is_read on one of the actor's own notifications.
func (nc *NotificationsController) MarkRead(c *fiber.Ctx) error {
	user := middleware.Actor(c)

	notificationID, err := c.ParamsInt("id")
	if err != nil {
		return utils.BadRequest(c, "ID de notificación inválido")
	}

	var notification models.Notification
	if err := nc.DB.Where("id = ? AND user_id = ?", notificationID, user.ID).
		First(&notification).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "Notificación no encontrada")
		}
		return utils.InternalServerError(c, "Error al marcar notificación")
	}

	if err := nc.DB.Model(&notification).Update("is_read", true).Error; err != nil {
		return utils.InternalServerError(c, "Error al marcar notificación")
	}

	return c.JSON(fiber.Map{"message": "Notificación marcada como leída"})
}

// MarkReadBulk marks a list of the actor's notifications as read.
func (nc *NotificationsController) MarkReadBulk(c *fiber.Ctx) error {
	user := middleware.Actor(c)

	var input struct {
		IDs []uint `json:"ids"`
	}
	if err := c.BodyParser(&input); err != nil || len(input.IDs) == 0 {
		return utils.BadRequest(c, "No hay notificaciones para actualizar")
	}

	if err := nc.DB.Model(&models.Notification{}).
		Where("user_id = ? AND id IN ?", user.ID, input.IDs).
		Update("is_read", true).Error; err != nil {
		return utils.InternalServerError(c, "Error al marcar notificaciones")
	}

	return c.JSON(fiber.Map{"message": "Notificaciones marcadas como leídas"})
}

func (nc *NotificationsController) MarkAllRead(c *fiber.Ctx) error {
	user := middleware.Actor(c)

	if err := nc.DB.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", user.ID, false).
		Update("is_read", true).Error; err != nil {
		return utils.InternalServerError(c, "Error al marcar notificaciones")
	}

	return c.JSON(fiber.Map{"message": "Todas las notificaciones marcadas como leídas"})
}
