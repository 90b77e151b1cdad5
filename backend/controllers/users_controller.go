package controllers

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"infoclass/backend/authz"
	"infoclass/backend/config"
	"infoclass/backend/middleware"
	"infoclass/backend/models"
	"infoclass/backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type UsersController struct {
	DB  *gorm.DB
	Cfg *config.Config
}

func NewUsersController(db *gorm.DB, cfg *config.Config) *UsersController {
	return &UsersController{DB: db, Cfg: cfg}
}

func (uc *UsersController) GetUsers(c *fiber.Ctx) error {
	if !authz.IsAdmin(middleware.Actor(c)) {
		return utils.Forbidden(c, "Acceso denegado")
	}

	var users []models.User
	if err := uc.DB.Find(&users).Error; err != nil {
		return utils.InternalServerError(c, "Error al obtener usuarios")
	}

	result := make([]fiber.Map, 0, len(users))
	for _, user := range users {
		result = append(result, fiber.Map{
			"id":         user.ID,
			"email":      user.Email,
			"first_name": user.FirstName,
			"last_name":  user.LastName,
			"role":       user.Role,
			"is_active":  user.IsActive,
			"created_at": user.CreatedAt.Format(time.RFC3339),
		})
	}
	return c.JSON(result)
}

// UpdateUser lets an admin change another user's role or active flag.
func (uc *UsersController) UpdateUser(c *fiber.Ctx) error {
	if !authz.IsAdmin(middleware.Actor(c)) {
		return utils.Forbidden(c, "Acceso denegado")
	}

	userID, err := c.ParamsInt("id")
	if err != nil {
		return utils.BadRequest(c, "ID de usuario inválido")
	}

	var user models.User
	if err := uc.DB.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "Usuario no encontrado")
		}
		return utils.InternalServerError(c, "Error al consultar la base de datos")
	}

	var input struct {
		IsActive *bool   `json:"is_active"`
		Role     *string `json:"role"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	updates := map[string]interface{}{}
	if input.IsActive != nil {
		updates["is_active"] = *input.IsActive
	}
	if input.Role != nil {
		switch *input.Role {
		case models.RoleStudent, models.RoleTeacher, models.RoleAdmin:
			updates["role"] = *input.Role
		default:
			return utils.BadRequest(c, "Rol inválido")
		}
	}

	if len(updates) > 0 {
		if err := uc.DB.Model(&user).Updates(updates).Error; err != nil {
			return utils.InternalServerError(c, "Error al actualizar usuario")
		}
	}

	return c.JSON(fiber.Map{"message": "Usuario actualizado exitosamente"})
}

func (uc *UsersController) GetNotificationSettings(c *fiber.Ctx) error {
	user := middleware.Actor(c)

	return c.JSON(fiber.Map{
		"email_notifications":        user.EmailNotifications,
		"assignment_reminders":       user.AssignmentReminders,
		"grade_notifications":        user.GradeNotifications,
		"announcement_notifications": user.AnnouncementNotifications,
	})
}

func (uc *UsersController) UpdateNotificationSettings(c *fiber.Ctx) error {
	user := middleware.Actor(c)

	var input struct {
		EmailNotifications        *bool `json:"email_notifications"`
		AssignmentReminders       *bool `json:"assignment_reminders"`
		GradeNotifications        *bool `json:"grade_notifications"`
		AnnouncementNotifications *bool `json:"announcement_notifications"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	updates := map[string]interface{}{}
	if input.EmailNotifications != nil {
		updates["email_notifications"] = *input.EmailNotifications
	}
	if input.AssignmentReminders != nil {
		updates["assignment_reminders"] = *input.AssignmentReminders
	}
	if input.GradeNotifications != nil {
		updates["grade_notifications"] = *input.GradeNotifications
	}
	if input.AnnouncementNotifications != nil {
		updates["announcement_notifications"] = *input.AnnouncementNotifications
	}

	if len(updates) == 0 {
		return utils.BadRequest(c, "No hay campos para actualizar")
	}

	if err := uc.DB.Model(user).Updates(updates).Error; err != nil {
		return utils.InternalServerError(c, "Error al actualizar configuración")
	}

	return c.JSON(fiber.Map{"message": "Configuración actualizada exitosamente"})
}

func (uc *UsersController) UpdateProfile(c *fiber.Ctx) error {
	user := middleware.Actor(c)

	var input struct {
		FirstName *string `json:"first_name"`
		LastName  *string `json:"last_name"`
		Bio       *string `json:"bio"`
		Phone     *string `json:"phone"`
		Website   *string `json:"website"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	updates := map[string]interface{}{}
	if input.FirstName != nil {
		updates["first_name"] = *input.FirstName
	}
	if input.LastName != nil {
		updates["last_name"] = *input.LastName
	}
	if input.Bio != nil {
		updates["bio"] = *input.Bio
	}
	if input.Phone != nil {
		updates["phone"] = *input.Phone
	}
	if input.Website != nil {
		updates["website"] = *input.Website
	}

	if len(updates) == 0 {
		return utils.BadRequest(c, "No hay campos para actualizar")
	}

	if err := uc.DB.Model(user).Updates(updates).Error; err != nil {
		return utils.InternalServerError(c, "Error al actualizar perfil")
	}

	var updated models.User
	if err := uc.DB.First(&updated, user.ID).Error; err != nil {
		return utils.InternalServerError(c, "Error al actualizar perfil")
	}

	return c.JSON(fiber.Map{
		"message": "Perfil actualizado exitosamente",
		"user":    profileMap(&updated),
	})
}

func (uc *UsersController) UpdatePassword(c *fiber.Ctx) error {
	user := middleware.Actor(c)

	var input struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if input.CurrentPassword == "" || input.NewPassword == "" {
		return utils.BadRequest(c, "Contraseña actual y nueva contraseña son requeridas")
	}
	if len(input.NewPassword) < 6 {
		return utils.BadRequest(c, "La nueva contraseña debe tener al menos 6 caracteres")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.CurrentPassword)); err != nil {
		return utils.BadRequest(c, "Contraseña actual incorrecta")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return utils.InternalServerError(c, "Error al actualizar contraseña")
	}

	if err := uc.DB.Model(user).Update("password_hash", string(hashed)).Error; err != nil {
		return utils.InternalServerError(c, "Error al actualizar contraseña")
	}

	return c.JSON(fiber.Map{"message": "Contraseña actualizada exitosamente"})
}

func (uc *UsersController) UploadAvatar(c *fiber.Ctx) error {
	user := middleware.Actor(c)

	fileHeader, err := c.FormFile("avatar")
	if err != nil {
		return utils.BadRequest(c, "No se encontró archivo de avatar")
	}
	if !allowedFile(fileHeader.Filename) {
		return utils.BadRequest(c, "Tipo de archivo no permitido")
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	storedName := fmt.Sprintf("avatar_%d_%s%s", user.ID, strings.ReplaceAll(uuid.New().String(), "-", ""), ext)

	avatarDir := filepath.Join(uc.Cfg.UploadDir, "avatars")
	if err := os.MkdirAll(avatarDir, 0o755); err != nil {
		return utils.InternalServerError(c, "Error al subir avatar")
	}
	if err := c.SaveFile(fileHeader, filepath.Join(avatarDir, storedName)); err != nil {
		return utils.InternalServerError(c, "Error al subir avatar")
	}

	avatarURL := "/uploads/avatars/" + storedName
	if err := uc.DB.Model(user).Update("avatar", avatarURL).Error; err != nil {
		return utils.InternalServerError(c, "Error al subir avatar")
	}
	user.Avatar = avatarURL

	return c.JSON(fiber.Map{
		"message": "Avatar actualizado exitosamente",
		"user":    profileMap(user),
	})
}

func (uc *UsersController) DeleteAvatar(c *fiber.Ctx) error {
	user := middleware.Actor(c)

	if user.Avatar != "" {
		avatarPath := filepath.Join(uc.Cfg.UploadDir, strings.TrimPrefix(user.Avatar, "/uploads/"))
		if _, err := os.Stat(avatarPath); err == nil {
			os.Remove(avatarPath)
		}
	}

	if err := uc.DB.Model(user).Update("avatar", "").Error; err != nil {
		return utils.InternalServerError(c, "Error al eliminar avatar")
	}
	user.Avatar = ""

	return c.JSON(fiber.Map{
		"message": "Avatar eliminado exitosamente",
		"user":    profileMap(user),
	})
}

// GetStats aggregates the current user's enrollment, assignment and grading
// numbers.
func (uc *UsersController) GetStats(c *fiber.Ctx) error {
	user := middleware.Actor(c)

	var courses, submissions, assignments int64
	uc.DB.Model(&models.CourseEnrollment{}).Where("student_id = ?", user.ID).Count(&courses)
	uc.DB.Model(&models.AssignmentSubmission{}).Where("student_id = ?", user.ID).Count(&submissions)
	uc.DB.Model(&models.Assignment{}).
		Joins("JOIN course_enrollments ON course_enrollments.course_id = assignments.course_id").
		Where("course_enrollments.student_id = ? AND course_enrollments.deleted_at IS NULL", user.ID).
		Count(&assignments)

	var average float64
	uc.DB.Model(&models.AssignmentSubmission{}).
		Where("student_id = ? AND points_earned IS NOT NULL", user.ID).
		Select("COALESCE(AVG(points_earned), 0)").
		Scan(&average)

	return c.JSON(fiber.Map{
		"courses":     courses,
		"assignments": assignments,
		"submissions": submissions,
		"average":     average,
	})
}

func profileMap(user *models.User) fiber.Map {
	return fiber.Map{
		"id":             user.ID,
		"email":          user.Email,
		"first_name":     user.FirstName,
		"last_name":      user.LastName,
		"role":           user.Role,
		"bio":            user.Bio,
		"phone":          user.Phone,
		"website":        user.Website,
		"avatar":         user.Avatar,
		"email_verified": user.EmailVerified,
		"created_at":     user.CreatedAt.Format(time.RFC3339),
	}
}
