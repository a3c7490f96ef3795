package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"quiz-progress-service/internal/domain"

	"github.com/uptrace/bun"
)

type progressRow struct {
	bun.BaseModel `bun:"table:user_progress"`

	UserID    string      `bun:"user_id,pk"`
	Version   int64       `bun:"version,notnull"`
	Doc       domain.User `bun:"doc,type:jsonb,notnull"`
	UpdatedAt time.Time   `bun:"updated_at,notnull"`
}

// ProgressStore persists user documents in user_progress with a version
// column guarding concurrent writers.
type ProgressStore struct {
	db  *bun.DB
	now func() time.Time
}

func NewProgressStore(db *bun.DB) *ProgressStore {
	return &ProgressStore{db: db, now: time.Now}
}

func (s *ProgressStore) Load(ctx context.Context, userID string) (domain.User, error) {
	var row progressRow
	err := s.db.NewSelect().Model(&row).Where("user_id = ?", userID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("load progress: %w", err)
	}
	user := row.Doc
	user.ID = row.UserID
	user.Version = row.Version
	return user, nil
}

func (s *ProgressStore) Save(ctx context.Context, user domain.User) (domain.User, error) {
	saved := user.Clone()
	saved.Version = user.Version + 1
	row := progressRow{
		UserID:    saved.ID,
		Version:   saved.Version,
		Doc:       saved,
		UpdatedAt: s.now().UTC(),
	}

	var (
		res sql.Result
		err error
	)
	if user.Version == 0 {
		res, err = s.db.NewInsert().
			Model(&row).
			On("CONFLICT (user_id) DO NOTHING").
			Exec(ctx)
	} else {
		res, err = s.db.NewUpdate().
			Model(&row).
			Column("version", "doc", "updated_at").
			WherePK().
			Where("version = ?", user.Version).
			Exec(ctx)
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("save progress: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return domain.User{}, fmt.Errorf("save progress: %w", err)
	}
	if n == 0 {
		return domain.User{}, domain.ErrVersionConflict
	}
	return saved, nil
}
