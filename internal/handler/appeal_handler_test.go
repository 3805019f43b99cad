package handler_test

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gradeflow-api/internal/dto"
	"github.com/noah-isme/gradeflow-api/internal/handler"
)

type mockAppealService struct {
	lastReason    string
	lastStudentID uint
	lastDocCount  int
	submitResp    dto.AppealResponse
	getResp       dto.AppealResponse
}

func (m *mockAppealService) Submit(_ context.Context, _, studentID uint, payload dto.AppealCreateRequest, documents []*multipart.FileHeader) (dto.AppealResponse, error) {
	m.lastReason = payload.Reason
	m.lastStudentID = studentID
	m.lastDocCount = len(documents)
	return m.submitResp, nil
}

func (m *mockAppealService) Approve(_ context.Context, _, _ uint) (dto.AppealResponse, error) {
	return dto.AppealResponse{Status: "approved"}, nil
}

func (m *mockAppealService) Deny(_ context.Context, _, _ uint, _ dto.AppealDecisionRequest) (dto.AppealResponse, error) {
	return dto.AppealResponse{Status: "denied"}, nil
}

func (m *mockAppealService) Get(_ context.Context, _ uint) (dto.AppealResponse, error) {
	return m.getResp, nil
}

func (m *mockAppealService) ListPending(_ context.Context, _, _ int) ([]dto.AppealResponse, int64, error) {
	return nil, 0, nil
}

func appealApp(svc *mockAppealService, role string) *fiber.App {
	app := fiber.New()
	group := app.Group("/", func(c *fiber.Ctx) error {
		c.Locals("user_id", uint(7))
		c.Locals("user_role", role)
		return c.Next()
	})
	handler.NewAppealHandler(svc, zerolog.New(io.Discard)).Register(group)
	return app
}

func TestAppealHandler_SubmitMultipart(t *testing.T) {
	svc := &mockAppealService{submitResp: dto.AppealResponse{ID: 1, Status: "pending"}}
	app := appealApp(svc, "student")

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	require.NoError(t, writer.WriteField("reason", "my connection dropped right before the deadline"))
	part, err := writer.CreateFormFile("documents", "evidence.txt")
	require.NoError(t, err)
	_, err = part.Write([]byte("screenshot of the outage"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/submissions/9/appeal", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	require.Equal(t, "my connection dropped right before the deadline", svc.lastReason)
	require.Equal(t, uint(7), svc.lastStudentID)
	require.Equal(t, 1, svc.lastDocCount)
}

func TestAppealHandler_GetHidesForeignAppeals(t *testing.T) {
	svc := &mockAppealService{getResp: dto.AppealResponse{ID: 3, StudentID: 99}}
	app := appealApp(svc, "student")

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/appeals/3", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestAppealHandler_GetAllowsOwner(t *testing.T) {
	svc := &mockAppealService{getResp: dto.AppealResponse{ID: 3, StudentID: 7}}
	app := appealApp(svc, "student")

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/appeals/3", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}
