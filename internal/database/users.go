package database

import "context"

const getUserByUsername = `
SELECT id, username, password_hash, full_name, role, is_active, created_at
FROM users
WHERE username = $1 AND is_active
`

func (q *Queries) GetUserByUsername(ctx context.Context, username string) (User, error) {
	var u User
	err := q.db.QueryRow(ctx, getUserByUsername, username).
		Scan(&u.ID, &u.Username, &u.PasswordHash, &u.FullName, &u.Role, &u.IsActive, &u.CreatedAt)
	return u, err
}

const createUser = `
INSERT INTO users (username, password_hash, full_name, role)
VALUES ($1, $2, $3, $4)
RETURNING id, username, password_hash, full_name, role, is_active, created_at
`

type CreateUserParams struct {
	Username     string
	PasswordHash string
	FullName     string
	Role         string
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	var u User
	err := q.db.QueryRow(ctx, createUser, arg.Username, arg.PasswordHash, arg.FullName, arg.Role).
		Scan(&u.ID, &u.Username, &u.PasswordHash, &u.FullName, &u.Role, &u.IsActive, &u.CreatedAt)
	return u, err
}
