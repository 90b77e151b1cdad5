package controllers

import (
	"errors"
	"mime"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"infoclass/backend/authz"
	"infoclass/backend/config"
	"infoclass/backend/middleware"
	"infoclass/backend/models"
	"infoclass/backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MaxFileSize caps uploads at 10MB, matching the server-wide body limit.
const MaxFileSize = 10 * 1024 * 1024

var allowedExtensions = map[string]bool{
	"txt": true, "pdf": true, "png": true, "jpg": true, "jpeg": true,
	"gif": true, "doc": true, "docx": true, "xls": true, "xlsx": true,
	"ppt": true, "pptx": true, "zip": true, "rar": true,
}

func allowedFile(filename string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	return ext != "" && allowedExtensions[ext]
}

type FilesController struct {
	DB  *gorm.DB
	Cfg *config.Config
}

func NewFilesController(db *gorm.DB, cfg *config.Config) *FilesController {
	return &FilesController{DB: db, Cfg: cfg}
}

// resolveParent maps the exactly-one-of parent form fields to the tagged
// (kind, id) pair and checks the actor may attach files there.
func (fc *FilesController) resolveParent(c *fiber.Ctx, actor *models.User) (string, uint, error) {
	parents := []struct {
		kind  string
		value string
	}{
		{models.ParentKindSubmission, c.FormValue("submission_id")},
		{models.ParentKindAssignment, c.FormValue("assignment_id")},
		{models.ParentKindAnnouncement, c.FormValue("announcement_id")},
	}

	kind, raw := "", ""
	for _, p := range parents {
		if p.value == "" {
			continue
		}
		if kind != "" {
			return "", 0, utils.BadRequest(c, "El archivo debe asociarse a un solo recurso")
		}
		kind, raw = p.kind, p.value
	}
	if kind == "" {
		return "", 0, utils.BadRequest(c, "El archivo debe asociarse a un recurso")
	}

	id64, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id64 == 0 {
		return "", 0, utils.BadRequest(c, "ID de recurso inválido")
	}

	probe := models.FileAttachment{ParentKind: kind, ParentID: uint(id64)}
	ok, err := authz.CanAccessFile(fc.DB, actor, &probe)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", 0, utils.NotFound(c, "Recurso no encontrado")
		}
		return "", 0, utils.InternalServerError(c, "Error al consultar la base de datos")
	}
	if !ok {
		return "", 0, utils.Forbidden(c, "No tienes permisos para adjuntar archivos a este recurso")
	}

	return kind, uint(id64), nil
}

func (fc *FilesController) Upload(c *fiber.Ctx) error {
	user := middleware.Actor(c)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return utils.BadRequest(c, "No se encontró archivo")
	}

	// Rejections happen before anything touches storage.
	if !allowedFile(fileHeader.Filename) {
		return utils.BadRequest(c, "Tipo de archivo no permitido")
	}
	if fileHeader.Size > MaxFileSize {
		return utils.BadRequest(c, "El archivo excede el tamaño máximo permitido")
	}

	parentKind, parentID, errResp := fc.resolveParent(c, user)
	if parentKind == "" {
		return errResp
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	storedName := strings.ReplaceAll(uuid.New().String(), "-", "") + ext
	storedPath := filepath.Join(fc.Cfg.UploadDir, storedName)

	if err := os.MkdirAll(fc.Cfg.UploadDir, 0o755); err != nil {
		return utils.InternalServerError(c, "Error al guardar archivo")
	}
	if err := c.SaveFile(fileHeader, storedPath); err != nil {
		return utils.InternalServerError(c, "Error al guardar archivo")
	}

	mimeType := mime.TypeByExtension(ext)
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	attachment := models.FileAttachment{
		Filename:         storedName,
		OriginalFilename: fileHeader.Filename,
		FilePath:         storedPath,
		FileSize:         fileHeader.Size,
		MimeType:         mimeType,
		ParentKind:       parentKind,
		ParentID:         parentID,
		UploadedBy:       user.ID,
	}
	if err := fc.DB.Create(&attachment).Error; err != nil {
		os.Remove(storedPath)
		return utils.InternalServerError(c, "Error al guardar archivo")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Archivo subido exitosamente",
		"file":    fileMap(&attachment),
	})
}

// loadFileForAccess fetches the attachment and applies the transitive parent
// access rule.
func (fc *FilesController) loadFileForAccess(c *fiber.Ctx) (*models.FileAttachment, error) {
	fileID, err := c.ParamsInt("id")
	if err != nil {
		return nil, utils.BadRequest(c, "ID de archivo inválido")
	}

	var file models.FileAttachment
	if err := fc.DB.First(&file, fileID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NotFound(c, "Archivo no encontrado")
		}
		return nil, utils.InternalServerError(c, "Error al consultar la base de datos")
	}

	ok, err := authz.CanAccessFile(fc.DB, middleware.Actor(c), &file)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NotFound(c, "Archivo no encontrado")
		}
		return nil, utils.InternalServerError(c, "Error al consultar la base de datos")
	}
	if !ok {
		return nil, utils.Forbidden(c, "No tienes permisos para ver este archivo")
	}
	return &file, nil
}

func (fc *FilesController) Download(c *fiber.Ctx) error {
	file, errResp := fc.loadFileForAccess(c)
	if file == nil {
		return errResp
	}
	return c.Download(file.FilePath, file.OriginalFilename)
}

// UpdateFile renames the user-visible filename; only the uploader may do it.
func (fc *FilesController) UpdateFile(c *fiber.Ctx) error {
	file, errResp := fc.loadFileForAccess(c)
	if file == nil {
		return errResp
	}
	if !authz.CanDeleteFile(middleware.Actor(c), file) {
		return utils.Forbidden(c, "No tienes permisos para modificar este archivo")
	}

	var input struct {
		OriginalFilename string `json:"original_filename"`
	}
	if err := c.BodyParser(&input); err != nil || input.OriginalFilename == "" {
		return utils.BadRequest(c, "El nombre de archivo es requerido")
	}
	if filepath.Ext(input.OriginalFilename) != filepath.Ext(file.OriginalFilename) {
		return utils.BadRequest(c, "No se puede cambiar la extensión del archivo")
	}

	if err := fc.DB.Model(file).Update("original_filename", input.OriginalFilename).Error; err != nil {
		return utils.InternalServerError(c, "Error al actualizar archivo")
	}
	file.OriginalFilename = input.OriginalFilename

	return c.JSON(fiber.Map{
		"message": "Archivo actualizado exitosamente",
		"file":    fileMap(file),
	})
}

// DeleteFile is uploader-only, with no admin override.
func (fc *FilesController) DeleteFile(c *fiber.Ctx) error {
	fileID, err := c.ParamsInt("id")
	if err != nil {
		return utils.BadRequest(c, "ID de archivo inválido")
	}

	var file models.FileAttachment
	if err := fc.DB.First(&file, fileID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "Archivo no encontrado")
		}
		return utils.InternalServerError(c, "Error al consultar la base de datos")
	}

	if !authz.CanDeleteFile(middleware.Actor(c), &file) {
		return utils.Forbidden(c, "No tienes permisos para eliminar este archivo")
	}

	if err := fc.DB.Delete(&file).Error; err != nil {
		return utils.InternalServerError(c, "Error al eliminar archivo")
	}
	if _, err := os.Stat(file.FilePath); err == nil {
		os.Remove(file.FilePath)
	}

	return c.JSON(fiber.Map{"message": "Archivo eliminado exitosamente"})
}

func (fc *FilesController) GetSubmissionFiles(c *fiber.Ctx) error {
	user := middleware.Actor(c)

	submissionID, err := c.ParamsInt("id")
	if err != nil {
		return utils.BadRequest(c, "ID de entrega inválido")
	}

	var submission models.AssignmentSubmission
	if err := fc.DB.Preload("Assignment.Course").First(&submission, submissionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "Entrega no encontrada")
		}
		return utils.InternalServerError(c, "Error al consultar la base de datos")
	}

	if !authz.CanViewSubmission(user, &submission, &submission.Assignment.Course) {
		return utils.Forbidden(c, "No tienes permisos para ver estos archivos")
	}

	return fc.listFiles(c, models.ParentKindSubmission, submission.ID)
}

func (fc *FilesController) GetAssignmentFiles(c *fiber.Ctx) error {
	user := middleware.Actor(c)

	assignmentID, err := c.ParamsInt("id")
	if err != nil {
		return utils.BadRequest(c, "ID de tarea inválido")
	}

	var assignment models.Assignment
	if err := fc.DB.Preload("Course").First(&assignment, assignmentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "Tarea no encontrada")
		}
		return utils.InternalServerError(c, "Error al consultar la base de datos")
	}

	if !authz.CanViewCourse(fc.DB, user, &assignment.Course) {
		return utils.Forbidden(c, "No tienes permisos para ver estos archivos")
	}

	return fc.listFiles(c, models.ParentKindAssignment, assignment.ID)
}

func (fc *FilesController) listFiles(c *fiber.Ctx, parentKind string, parentID uint) error {
	var files []models.FileAttachment
	if err := fc.DB.Where("parent_kind = ? AND parent_id = ?", parentKind, parentID).
		Find(&files).Error; err != nil {
		return utils.InternalServerError(c, "Error al obtener archivos")
	}

	result := make([]fiber.Map, 0, len(files))
	for i := range files {
		result = append(result, fileMap(&files[i]))
	}
	return c.JSON(result)
}

func fileMap(file *models.FileAttachment) fiber.Map {
	return fiber.Map{
		"id":          file.ID,
		"filename":    file.OriginalFilename,
		"size":        file.FileSize,
		"mime_type":   file.MimeType,
		"uploaded_at": file.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}
