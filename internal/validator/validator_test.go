package validator

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/cat-backend/internal/model"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
	Setup()
}

func bindBody(t *testing.T, body string, dst any) map[string]string {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))
	c.Request.Header.Set("Content-Type", "application/json")
	return Bind(c, dst)
}

func TestBind(t *testing.T) {
	t.Run("valid question payload", func(t *testing.T) {
		var req model.QuestionRequest
		fields := bindBody(t, `{
			"text": "What is two plus two?",
			"difficulty": "EASY",
			"category": "Math",
			"answers": [{"text": "3"}, {"text": "4", "isCorrect": true}]
		}`, &req)
		assert.Nil(t, fields)
		assert.Len(t, req.Answers, 2)
	})

	t.Run("fields are keyed by json name", func(t *testing.T) {
		var req model.RegisterRequest
		fields := bindBody(t, `{"name": "A", "email": "not-an-email", "password": "123"}`, &req)
		assert.Contains(t, fields, "name")
		assert.Contains(t, fields, "email")
		assert.Contains(t, fields, "password")
	})

	t.Run("answers without a correct option", func(t *testing.T) {
		var req model.QuestionRequest
		fields := bindBody(t, `{
			"text": "What is two plus two?",
			"difficulty": "EASY",
			"category": "Math",
			"answers": [{"text": "3"}, {"text": "5"}]
		}`, &req)
		assert.Equal(t, "answers must contain at least one correct answer", fields["answers"])
	})

	t.Run("malformed json", func(t *testing.T) {
		var req model.LoginRequest
		fields := bindBody(t, `{"email":`, &req)
		assert.Contains(t, fields, "detail")
	})
}
