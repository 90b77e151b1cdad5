package controllers_test

import (
	"fmt"
	"testing"
	"time"

	"infoclass/backend/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
)

func TestCreateAssignment(t *testing.T) {
	teacher, teacherToken := createUser(t, models.RoleTeacher)
	course := createCourse(t, teacher)

	dueDate := time.Now().Add(7 * 24 * time.Hour).UTC().Format(time.RFC3339)
	resp := doJSON(t, "POST", fmt.Sprintf("/api/courses/%d/assignments", course.ID), teacherToken, map[string]interface{}{
		"title":    "Tarea 1",
		"due_date": dueDate,
	})
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	result := decodeMap(t, resp)
	assignmentID := result["assignment"].(map[string]interface{})["id"]

	var assignment models.Assignment
	db.First(&assignment, uint(assignmentID.(float64)))
	assert.Equal(t, float64(100), assignment.MaxPoints)
	assert.True(t, assignment.AllowLateSubmissions)
}

func TestCreateAssignmentNotOwner(t *testing.T) {
	teacher, _ := createUser(t, models.RoleTeacher)
	course := createCourse(t, teacher)
	_, otherToken := createUser(t, models.RoleTeacher)

	resp := doJSON(t, "POST", fmt.Sprintf("/api/courses/%d/assignments", course.ID), otherToken, map[string]interface{}{
		"title":    "Tarea ajena",
		"due_date": time.Now().Add(time.Hour).UTC().Format(time.RFC3339),
	})
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "No tienes permisos para crear tareas en este curso", decodeMap(t, resp)["message"])
}

func TestSubmitAssignment(t *testing.T) {
	teacher, _ := createUser(t, models.RoleTeacher)
	course := createCourse(t, teacher)
	student, studentToken := createUser(t, models.RoleStudent)
	enrollStudent(t, student, course)
	assignment := createAssignment(t, course, time.Now().Add(24*time.Hour), true)

	resp := doJSON(t, "POST", fmt.Sprintf("/api/assignments/%d/submissions", assignment.ID), studentToken, map[string]string{
		"content": "Mi respuesta",
	})
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	result := decodeMap(t, resp)
	assert.Equal(t, models.SubmissionStatusSubmitted, result["status"])
	assert.Equal(t, "Mi respuesta", result["content"])
}

func TestSubmitAssignmentLate(t *testing.T) {
	teacher, _ := createUser(t, models.RoleTeacher)
	course := createCourse(t, teacher)
	student, studentToken := createUser(t, models.RoleStudent)
	enrollStudent(t, student, course)

	// Due date already passed, late submissions allowed.
	assignment := createAssignment(t, course, time.Now().Add(-time.Second), true)

	resp := doJSON(t, "POST", fmt.Sprintf("/api/assignments/%d/submissions", assignment.ID), studentToken, map[string]string{
		"content": "Tarde pero seguro",
	})
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
	assert.Equal(t, models.SubmissionStatusLate, decodeMap(t, resp)["status"])
}

func TestSubmitAssignmentLateRejected(t *testing.T) {
	teacher, _ := createUser(t, models.RoleTeacher)
	course := createCourse(t, teacher)
	student, studentToken := createUser(t, models.RoleStudent)
	enrollStudent(t, student, course)

	assignment := createAssignment(t, course, time.Now().Add(-time.Second), false)

	resp := doJSON(t, "POST", fmt.Sprintf("/api/assignments/%d/submissions", assignment.ID), studentToken, map[string]string{
		"content": "Demasiado tarde",
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Esta tarea no acepta entregas tardías", decodeMap(t, resp)["message"])
}

func TestResubmissionKeepsSingleRow(t *testing.T) {
	teacher, _ := createUser(t, models.RoleTeacher)
	course := createCourse(t, teacher)
	student, studentToken := createUser(t, models.RoleStudent)
	enrollStudent(t, student, course)
	assignment := createAssignment(t, course, time.Now().Add(24*time.Hour), true)

	path := fmt.Sprintf("/api/assignments/%d/submissions", assignment.ID)

	resp := doJSON(t, "POST", path, studentToken, map[string]string{"content": "Primera versión"})
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	resp = doJSON(t, "POST", path, studentToken, map[string]string{"content": "Versión corregida"})
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
	assert.Equal(t, "Versión corregida", decodeMap(t, resp)["content"])

	var count int64
	db.Model(&models.AssignmentSubmission{}).
		Where("student_id = ? AND assignment_id = ?", student.ID, assignment.ID).
		Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestGradeSubmission(t *testing.T) {
	teacher, teacherToken := createUser(t, models.RoleTeacher)
	course := createCourse(t, teacher)
	student, studentToken := createUser(t, models.RoleStudent)
	enrollStudent(t, student, course)
	assignment := createAssignment(t, course, time.Now().Add(24*time.Hour), true)

	resp := doJSON(t, "POST", fmt.Sprintf("/api/assignments/%d/submissions", assignment.ID), studentToken, map[string]string{
		"content": "Entrega",
	})
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
	submissionID := uint(decodeMap(t, resp)["id"].(float64))

	resp = doJSON(t, "POST", fmt.Sprintf("/api/submissions/%d/grade", submissionID), teacherToken, map[string]interface{}{
		"points_earned": 85.5,
		"feedback":      "Buen trabajo",
	})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "Calificación guardada exitosamente", decodeMap(t, resp)["message"])

	var submission models.AssignmentSubmission
	db.First(&submission, submissionID)
	assert.Equal(t, models.SubmissionStatusGraded, submission.Status)
	assert.Equal(t, 85.5, *submission.PointsEarned)
	assert.Equal(t, teacher.ID, *submission.GradedBy)
}

func TestGradeSubmissionWrongTeacher(t *testing.T) {
	teacher, _ := createUser(t, models.RoleTeacher)
	course := createCourse(t, teacher)
	student, studentToken := createUser(t, models.RoleStudent)
	enrollStudent(t, student, course)
	assignment := createAssignment(t, course, time.Now().Add(24*time.Hour), true)

	resp := doJSON(t, "POST", fmt.Sprintf("/api/assignments/%d/submissions", assignment.ID), studentToken, map[string]string{
		"content": "Entrega",
	})
	submissionID := uint(decodeMap(t, resp)["id"].(float64))

	_, otherToken := createUser(t, models.RoleTeacher)
	resp = doJSON(t, "POST", fmt.Sprintf("/api/submissions/%d/grade", submissionID), otherToken, map[string]interface{}{
		"points_earned": 50,
	})
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "No tienes permisos para calificar esta entrega", decodeMap(t, resp)["message"])
}

func TestArchiveScoping(t *testing.T) {
	teacher, teacherToken := createUser(t, models.RoleTeacher)
	course := createCourse(t, teacher)
	active := createAssignment(t, course, time.Now().Add(24*time.Hour), true)
	archived := createAssignment(t, course, time.Now().Add(24*time.Hour), true)

	resp := doJSON(t, "PUT", fmt.Sprintf("/api/assignments/%d/archive", archived.ID), teacherToken, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, true, decodeMap(t, resp)["is_archived"])

	listPath := fmt.Sprintf("/api/courses/%d/assignments", course.ID)

	resp = doJSON(t, "GET", listPath, teacherToken, nil)
	assignments := decodeList(t, resp)
	assert.Len(t, assignments, 1)
	assert.Equal(t, float64(active.ID), assignments[0]["id"])

	resp = doJSON(t, "GET", listPath+"?include_archived=true", teacherToken, nil)
	assignments = decodeList(t, resp)
	assert.Len(t, assignments, 2)
}

func TestGetMySubmissionEmpty(t *testing.T) {
	teacher, _ := createUser(t, models.RoleTeacher)
	course := createCourse(t, teacher)
	student, studentToken := createUser(t, models.RoleStudent)
	enrollStudent(t, student, course)
	assignment := createAssignment(t, course, time.Now().Add(24*time.Hour), true)

	resp := doJSON(t, "GET", fmt.Sprintf("/api/assignments/%d/my-submission", assignment.ID), studentToken, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var result interface{}
	assert.NoError(t, jsonDecode(resp, &result))
	assert.Nil(t, result)
}

func TestDeleteAssignmentCascades(t *testing.T) {
	teacher, teacherToken := createUser(t, models.RoleTeacher)
	course := createCourse(t, teacher)
	student, studentToken := createUser(t, models.RoleStudent)
	enrollStudent(t, student, course)
	assignment := createAssignment(t, course, time.Now().Add(24*time.Hour), true)

	resp := doJSON(t, "POST", fmt.Sprintf("/api/assignments/%d/submissions", assignment.ID), studentToken, map[string]string{
		"content": "Entrega a borrar",
	})
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	resp = doJSON(t, "DELETE", fmt.Sprintf("/api/assignments/%d", assignment.ID), teacherToken, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var count int64
	db.Model(&models.AssignmentSubmission{}).Where("assignment_id = ?", assignment.ID).Count(&count)
	assert.Equal(t, int64(0), count)
}
