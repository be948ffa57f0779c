package sqlite

import "context"

// Pragma reads the current value of a PRAGMA on the repository's database.
func (r *Repository) Pragma(ctx context.Context, name string) (string, error) {
	var v string
	err := r.db.QueryRowContext(ctx, "PRAGMA "+name).Scan(&v)
	return v, err
}
