package controllers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http/httptest"
	"testing"
	"time"

	"infoclass/backend/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
)

func createSubmission(t *testing.T, student *models.User, assignment *models.Assignment) *models.AssignmentSubmission {
	t.Helper()

	now := time.Now().UTC()
	submission := models.AssignmentSubmission{
		StudentID:    student.ID,
		AssignmentID: assignment.ID,
		Content:      "Entrega",
		Status:       models.SubmissionStatusSubmitted,
		SubmittedAt:  &now,
	}
	if err := db.Create(&submission).Error; err != nil {
		t.Fatal(err)
	}
	return &submission
}

func doUpload(t *testing.T, token, filename string, fields map[string]string) (int, map[string]interface{}) {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	part.Write([]byte("contenido de prueba"))
	for key, value := range fields {
		writer.WriteField(key, value)
	}
	writer.Close()

	req := httptest.NewRequest("POST", "/api/files/upload", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	return resp.StatusCode, result
}

func TestUploadToOwnSubmission(t *testing.T) {
	teacher, _ := createUser(t, models.RoleTeacher)
	course := createCourse(t, teacher)
	student, studentToken := createUser(t, models.RoleStudent)
	enrollStudent(t, student, course)
	assignment := createAssignment(t, course, time.Now().Add(24*time.Hour), true)
	submission := createSubmission(t, student, assignment)

	status, result := doUpload(t, studentToken, "tarea.pdf", map[string]string{
		"submission_id": fmt.Sprintf("%d", submission.ID),
	})
	assert.Equal(t, fiber.StatusCreated, status)

	file := result["file"].(map[string]interface{})
	assert.Equal(t, "tarea.pdf", file["filename"])

	var stored models.FileAttachment
	assert.NoError(t, db.First(&stored, uint(file["id"].(float64))).Error)
	assert.Equal(t, models.ParentKindSubmission, stored.ParentKind)
	assert.Equal(t, submission.ID, stored.ParentID)
	assert.NotEqual(t, "tarea.pdf", stored.Filename)
}

func TestUploadRejectsDisallowedExtension(t *testing.T) {
	teacher, _ := createUser(t, models.RoleTeacher)
	course := createCourse(t, teacher)
	student, studentToken := createUser(t, models.RoleStudent)
	enrollStudent(t, student, course)
	assignment := createAssignment(t, course, time.Now().Add(24*time.Hour), true)
	submission := createSubmission(t, student, assignment)

	status, result := doUpload(t, studentToken, "malware.exe", map[string]string{
		"submission_id": fmt.Sprintf("%d", submission.ID),
	})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "Tipo de archivo no permitido", result["message"])

	var count int64
	db.Model(&models.FileAttachment{}).
		Where("parent_kind = ? AND parent_id = ?", models.ParentKindSubmission, submission.ID).
		Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestUploadRequiresExactlyOneParent(t *testing.T) {
	_, studentToken := createUser(t, models.RoleStudent)

	status, _ := doUpload(t, studentToken, "notas.txt", nil)
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestUploadForeignSubmissionForbidden(t *testing.T) {
	teacher, _ := createUser(t, models.RoleTeacher)
	course := createCourse(t, teacher)
	student, _ := createUser(t, models.RoleStudent)
	enrollStudent(t, student, course)
	assignment := createAssignment(t, course, time.Now().Add(24*time.Hour), true)
	submission := createSubmission(t, student, assignment)

	other, otherToken := createUser(t, models.RoleStudent)
	enrollStudent(t, other, course)

	status, _ := doUpload(t, otherToken, "intruso.txt", map[string]string{
		"submission_id": fmt.Sprintf("%d", submission.ID),
	})
	assert.Equal(t, fiber.StatusForbidden, status)
}

func TestDeleteFileUploaderOnly(t *testing.T) {
	teacher, teacherToken := createUser(t, models.RoleTeacher)
	course := createCourse(t, teacher)
	student, studentToken := createUser(t, models.RoleStudent)
	enrollStudent(t, student, course)
	assignment := createAssignment(t, course, time.Now().Add(24*time.Hour), true)
	submission := createSubmission(t, student, assignment)

	status, result := doUpload(t, studentToken, "borrable.txt", map[string]string{
		"submission_id": fmt.Sprintf("%d", submission.ID),
	})
	assert.Equal(t, fiber.StatusCreated, status)
	fileID := uint(result["file"].(map[string]interface{})["id"].(float64))

	// The course teacher can see the file but not delete it.
	resp := doJSON(t, "DELETE", fmt.Sprintf("/api/files/%d", fileID), teacherToken, nil)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp = doJSON(t, "DELETE", fmt.Sprintf("/api/files/%d", fileID), studentToken, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
