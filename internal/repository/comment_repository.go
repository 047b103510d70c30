package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ravirajbabasomane202/PCMCApp/internal/models"
)

// CommentRepository stores grievance comment threads.
type CommentRepository struct {
	db *sqlx.DB
}

// NewCommentRepository constructs the repository.
func NewCommentRepository(db *sqlx.DB) *CommentRepository {
	return &CommentRepository{db: db}
}

// Create appends a comment inside the caller's transaction when exec is set.
func (r *CommentRepository) Create(ctx context.Context, exec sqlx.ExtContext, c *models.GrievanceComment) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	target := exec
	if target == nil {
		target = r.db
	}
	const query = `INSERT INTO grievance_comments (id, grievance_id, user_id, comment_text, created_at)
VALUES ($1, $2, $3, $4, $5)`
	if _, err := target.ExecContext(ctx, query, c.ID, c.GrievanceID, c.UserID, c.Comment, c.CreatedAt); err != nil {
		return fmt.Errorf("create grievance comment: %w", err)
	}
	return nil
}

// ListByGrievance returns the thread oldest first.
func (r *CommentRepository) ListByGrievance(ctx context.Context, grievanceID string) ([]models.GrievanceComment, error) {
	const query = `SELECT id, grievance_id, user_id, comment_text, created_at
FROM grievance_comments WHERE grievance_id = $1 ORDER BY created_at ASC, id ASC`
	var comments []models.GrievanceComment
	if err := r.db.SelectContext(ctx, &comments, query, grievanceID); err != nil {
		return nil, fmt.Errorf("list grievance comments: %w", err)
	}
	return comments, nil
}
