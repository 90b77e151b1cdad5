package middleware

import (
	"errors"

	"infoclass/backend/config"
	"infoclass/backend/models"
	"infoclass/backend/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

const actorKey = "actor"

// AuthMiddleware verifies the bearer token and resolves the actor's current
// role and active flag from the database on every request. Role is mutable by
// admin action, so it is never cached across requests. A token whose user id
// no longer resolves (deleted between token issuance and request) is a 404.
func AuthMiddleware(db *gorm.DB, cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := utils.ExtractUserIDFromToken(c, cfg)
		if err != nil {
			return utils.Unauthorized(c, "Unauthorized")
		}

		var user models.User
		if err := db.First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return utils.NotFound(c, "Usuario no encontrado")
			}
			return utils.InternalServerError(c, "Error al consultar la base de datos")
		}

		if !user.IsActive {
			return utils.Forbidden(c, "Cuenta desactivada")
		}

		c.Locals(actorKey, &user)
		return c.Next()
	}
}

// Actor returns the authenticated user resolved by AuthMiddleware.
func Actor(c *fiber.Ctx) *models.User {
	user, _ := c.Locals(actorKey).(*models.User)
	return user
}
