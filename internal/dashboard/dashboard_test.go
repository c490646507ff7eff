package dashboard

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"academy-backend/internal/platform/db/dbtest"
)

func TestDashboard(t *testing.T) {
	conn := dbtest.Open(t)
	active := dbtest.InsertBatch(t, conn, "B1", "active")
	dbtest.InsertBatch(t, conn, "B2", "archived")
	dbtest.Enroll(t, conn, active, "Ada", "ada@academy.io")
	dbtest.Enroll(t, conn, active, "Bob", "bob@academy.io")
	dbtest.InsertUser(t, conn, "Tess", "tess@academy.io", "teacher")
	dbtest.InsertUser(t, conn, "Root", "root@academy.io", "admin")

	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r, NewService(conn))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var got struct {
		Success bool `json:"success"`
		Counts
	}
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	want := Counts{Students: 2, Teachers: 1, ActiveBatches: 1}
	if !got.Success || got.Counts != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestDashboard_StorageFailure(t *testing.T) {
	conn := dbtest.Open(t)
	conn.Close()

	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r, NewService(conn))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}
