package router

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/associacao-ensino/inscricoes-backend/internal/config"
	"github.com/associacao-ensino/inscricoes-backend/internal/middleware"
	"github.com/associacao-ensino/inscricoes-backend/internal/model"
	"github.com/associacao-ensino/inscricoes-backend/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestUploadsRequireStaff(t *testing.T) {
	dir := t.TempDir()
	docPath := filepath.Join(dir, "documentos", "u1")
	require.NoError(t, os.MkdirAll(docPath, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(docPath, "1767225600000_copia_bi.pdf"), []byte("%PDF-1.4"), 0o644))

	cfg := &config.Config{StorageDriver: config.StorageDriverLocal, UploadDir: dir, JWTSecret: "test-secret", JWTExpiry: time.Hour}
	auth := service.NewAuthService(cfg, nil, nil)
	r := gin.New()
	registerUploads(r, cfg, []gin.HandlerFunc{middleware.RequireJWT(auth)})

	token := func(roles ...model.Role) string {
		tok, err := auth.GenerateToken(&model.UserProfile{ID: uuid.New(), Email: "staff@example.org", Roles: roles})
		require.NoError(t, err)
		return tok
	}
	get := func(bearer string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/uploads/documentos/u1/1767225600000_copia_bi.pdf", nil)
		if bearer != "" {
			req.Header.Set("Authorization", "Bearer "+bearer)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := get("")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.NotContains(t, w.Body.String(), "%PDF")

	w = get(token(model.RoleGestorTurmas))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = get(token(model.RoleFinanceiro))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "%PDF-1.4", w.Body.String())
	assert.Equal(t, "private, no-store", w.Header().Get("Cache-Control"))
}

func TestUploadsNotServedForRemoteStorage(t *testing.T) {
	r := gin.New()
	registerUploads(r, &config.Config{StorageDriver: config.StorageDriverSupabase, UploadDir: t.TempDir()}, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/uploads/x.pdf", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
