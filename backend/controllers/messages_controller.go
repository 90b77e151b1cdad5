package controllers

import (
	"errors"
	"time"

	"infoclass/backend/config"
	"infoclass/backend/middleware"
	"infoclass/backend/models"
	"infoclass/backend/notifications"
	"infoclass/backend/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type MessagesController struct {
	DB       *gorm.DB
	Cfg      *config.Config
	Notifier *notifications.Service
}

func NewMessagesController(db *gorm.DB, cfg *config.Config, notifier *notifications.Service) *MessagesController {
	return &MessagesController{DB: db, Cfg: cfg, Notifier: notifier}
}

func (mc *MessagesController) GetMessages(c *fiber.Ctx) error {
	user := middleware.Actor(c)

	var messages []models.Message
	if err := mc.DB.Preload("Sender").Preload("Receiver").
		Where("sender_id = ? OR receiver_id = ?", user.ID, user.ID).
		Order("created_at DESC").Find(&messages).Error; err != nil {
		return utils.InternalServerError(c, "Error al obtener mensajes")
	}

	result := make([]fiber.Map, 0, len(messages))
	for i := range messages {
		message := &messages[i]
		result = append(result, fiber.Map{
			"id": message.ID,
			"sender": fiber.Map{
				"id":         message.Sender.ID,
				"first_name": message.Sender.FirstName,
				"last_name":  message.Sender.LastName,
			},
			"receiver": fiber.Map{
				"id":         message.Receiver.ID,
				"first_name": message.Receiver.FirstName,
				"last_name":  message.Receiver.LastName,
			},
			"subject":    message.Subject,
			"content":    message.Content,
			"is_read":    message.IsRead,
			"created_at": message.CreatedAt.Format(time.RFC3339),
		})
	}
	return c.JSON(result)
}

type sendMessageInput struct {
	ReceiverID uint   `json:"receiver_id" validate:"required"`
	Subject    string `json:"subject"`
	Content    string `json:"content" validate:"required"`
}

func (mc *MessagesController) SendMessage(c *fiber.Ctx) error {
	user := middleware.Actor(c)

	var input sendMessageInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.BadRequest(c, "Destinatario y contenido son requeridos")
	}

	var receiver models.User
	if err := mc.DB.First(&receiver, input.ReceiverID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "Destinatario no encontrado")
		}
		return utils.InternalServerError(c, "Error al enviar mensaje")
	}

	message := models.Message{
		SenderID:   user.ID,
		ReceiverID: receiver.ID,
		Subject:    input.Subject,
		Content:    input.Content,
	}
	if err := mc.DB.Create(&message).Error; err != nil {
		return utils.InternalServerError(c, "Error al enviar mensaje")
	}

	mc.Notifier.MessageReceived(&message, user, &receiver)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":    "Mensaje enviado exitosamente",
		"message_id": message.ID,
	})
}

// MarkMessageRead flips is_read; only the receiver may do it.
func (mc *MessagesController) MarkMessageRead(c *fiber.Ctx) error {
	user := middleware.Actor(c)

	messageID, err := c.ParamsInt("id")
	if err != nil {
		return utils.BadRequest(c, "ID de mensaje inválido")
	}

	var message models.Message
	if err := mc.DB.Where("id = ? AND receiver_id = ?", messageID, user.ID).
		First(&message).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "Mensaje no encontrado")
		}
		return utils.InternalServerError(c, "Error al actualizar mensaje")
	}

	if err := mc.DB.Model(&message).Update("is_read", true).Error; err != nil {
		return utils.InternalServerError(c, "Error al actualizar mensaje")
	}

	return c.JSON(fiber.Map{"message": "Mensaje marcado como leído"})
}
