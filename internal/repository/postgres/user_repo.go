package postgres

import (
	"context"
	"strings"

	"github.com/iamasit07/sessionbridge/internal/domain"
	"github.com/pkg/errors"
)

type UserRepo struct {
	DB DBTX
}

func NewUserRepo(db DBTX) *UserRepo {
	return &UserRepo{DB: db}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// SearchProfiles returns players whose username contains query
// (case-insensitive), excluding the caller.
func (r *UserRepo) SearchProfiles(ctx context.Context, query string, excludeUserID int64, limit int) ([]domain.Profile, error) {
	sqlQuery := `
	SELECT id, username, COALESCE(name, '') AS name, COALESCE(avatar_url, '') AS avatar_url
	FROM players
	WHERE username ILIKE $1 ESCAPE '\' AND id <> $2
	ORDER BY username ASC
	LIMIT $3;
	`
	pattern := "%" + likeEscaper.Replace(query) + "%"

	rows, err := r.DB.QueryContext(ctx, sqlQuery, pattern, excludeUserID, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to search profiles")
	}
	defer rows.Close()

	profiles := make([]domain.Profile, 0)
	for rows.Next() {
		var p domain.Profile
		if err := rows.Scan(&p.ID, &p.Username, &p.Name, &p.AvatarURL); err != nil {
			return nil, errors.Wrap(err, "failed to scan profile row")
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate profile rows")
	}
	return profiles, nil
}
