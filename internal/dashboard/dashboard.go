package dashboard

import (
	"context"
	"database/sql"
	"net/http"

	"github.com/gin-gonic/gin"

	"academy-backend/internal/platform/apperr"
	"academy-backend/internal/platform/db"
)

type Counts struct {
	Students      int `json:"students"`
	Teachers      int `json:"teachers"`
	ActiveBatches int `json:"active_batches"`
}

type Service struct{ db *sql.DB }

func NewService(conn *sql.DB) *Service { return &Service{db: conn} }

// Counts reads all three totals from one snapshot.
func (s *Service) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	err := db.ReadOnly(ctx, s.db, func(ctx context.Context, tx db.DBTX) error {
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE role = 'student'`).Scan(&c.Students); err != nil {
			return err
		}
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE role = 'teacher'`).Scan(&c.Teachers); err != nil {
			return err
		}
		return tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM batches WHERE status = 'active'`).Scan(&c.ActiveBatches)
	})
	if err != nil {
		return Counts{}, apperr.Internal("Failed to load dashboard", err)
	}
	return c, nil
}

func RegisterRoutes(r gin.IRoutes, svc *Service) {
	r.GET("/dashboard", func(c *gin.Context) {
		counts, err := svc.Counts(c.Request.Context())
		if err != nil {
			apperr.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success":        true,
			"students":       counts.Students,
			"teachers":       counts.Teachers,
			"active_batches": counts.ActiveBatches,
		})
	})
}
