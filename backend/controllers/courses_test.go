package controllers_test

import (
	"fmt"
	"regexp"
	"testing"

	"infoclass/backend/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
)

var accessCodePattern = regexp.MustCompile(`^[A-Z0-9]{6}$`)

func TestCreateCourse(t *testing.T) {
	_, token := createUser(t, models.RoleTeacher)

	resp := doJSON(t, "POST", "/api/courses", token, map[string]string{
		"name":    "Matemáticas",
		"section": "A",
	})
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	result := decodeMap(t, resp)
	course := result["course"].(map[string]interface{})
	assert.Equal(t, "Matemáticas", course["name"])
	assert.Regexp(t, accessCodePattern, course["access_code"])
}

func TestCreateCourseStudentForbidden(t *testing.T) {
	_, token := createUser(t, models.RoleStudent)

	resp := doJSON(t, "POST", "/api/courses", token, map[string]string{"name": "Curso"})
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestEnrollByCode(t *testing.T) {
	teacher, _ := createUser(t, models.RoleTeacher)
	course := createCourse(t, teacher)
	_, studentToken := createUser(t, models.RoleStudent)

	resp := doJSON(t, "POST", "/api/courses/enroll", studentToken, map[string]string{
		"access_code": course.AccessCode,
	})
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
	assert.Equal(t, "Inscripción exitosa", decodeMap(t, resp)["message"])
}

func TestEnrollDuplicate(t *testing.T) {
	teacher, _ := createUser(t, models.RoleTeacher)
	course := createCourse(t, teacher)
	_, studentToken := createUser(t, models.RoleStudent)

	resp := doJSON(t, "POST", "/api/courses/enroll", studentToken, map[string]string{
		"access_code": course.AccessCode,
	})
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	resp = doJSON(t, "POST", "/api/courses/enroll", studentToken, map[string]string{
		"access_code": course.AccessCode,
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Ya estás inscrito en este curso", decodeMap(t, resp)["message"])

	var count int64
	db.Model(&models.CourseEnrollment{}).Where("course_id = ?", course.ID).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestEnrollInvalidCode(t *testing.T) {
	_, studentToken := createUser(t, models.RoleStudent)

	resp := doJSON(t, "POST", "/api/courses/enroll", studentToken, map[string]string{
		"access_code": "NOPE99",
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Código de acceso inválido", decodeMap(t, resp)["message"])
}

func TestEnrollTeacherForbidden(t *testing.T) {
	teacher, _ := createUser(t, models.RoleTeacher)
	course := createCourse(t, teacher)
	_, otherTeacherToken := createUser(t, models.RoleTeacher)

	resp := doJSON(t, "POST", "/api/courses/enroll", otherTeacherToken, map[string]string{
		"access_code": course.AccessCode,
	})
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestGetCourseDetails(t *testing.T) {
	teacher, teacherToken := createUser(t, models.RoleTeacher)
	course := createCourse(t, teacher)
	student, _ := createUser(t, models.RoleStudent)
	enrollStudent(t, student, course)

	resp := doJSON(t, "GET", fmt.Sprintf("/api/courses/%d", course.ID), teacherToken, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	result := decodeMap(t, resp)
	assert.Equal(t, course.Name, result["name"])
	assert.Equal(t, float64(1), result["students_count"])
}

func TestGetCourseDetailsStrangerForbidden(t *testing.T) {
	teacher, _ := createUser(t, models.RoleTeacher)
	course := createCourse(t, teacher)
	_, strangerToken := createUser(t, models.RoleStudent)

	resp := doJSON(t, "GET", fmt.Sprintf("/api/courses/%d", course.ID), strangerToken, nil)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestGetCoursesRoleScoped(t *testing.T) {
	teacher, teacherToken := createUser(t, models.RoleTeacher)
	course := createCourse(t, teacher)
	student, studentToken := createUser(t, models.RoleStudent)
	enrollStudent(t, student, course)

	resp := doJSON(t, "GET", "/api/courses", teacherToken, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	courses := decodeList(t, resp)
	assert.Len(t, courses, 1)
	assert.Equal(t, course.Name, courses[0]["name"])

	resp = doJSON(t, "GET", "/api/courses", studentToken, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	courses = decodeList(t, resp)
	assert.Len(t, courses, 1)
}

func TestGetCourseStudentsOwnerOnly(t *testing.T) {
	teacher, teacherToken := createUser(t, models.RoleTeacher)
	course := createCourse(t, teacher)
	student, _ := createUser(t, models.RoleStudent)
	enrollStudent(t, student, course)

	resp := doJSON(t, "GET", fmt.Sprintf("/api/courses/%d/students", course.ID), teacherToken, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	students := decodeList(t, resp)
	assert.Len(t, students, 1)
	assert.Equal(t, student.Email, students[0]["email"])

	_, otherToken := createUser(t, models.RoleTeacher)
	resp = doJSON(t, "GET", fmt.Sprintf("/api/courses/%d/students", course.ID), otherToken, nil)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "No tienes permisos para ver los estudiantes de este curso", decodeMap(t, resp)["message"])
}
