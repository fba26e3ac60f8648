package queries

const (
	QueryCreateUserIfNotExists = `
		INSERT INTO users (id, name, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO NOTHING
		RETURNING created_at;
	`
	QueryGetUserByID = `
		SELECT id, name, created_at
		FROM users
		WHERE id = $1;
	`
	// latest message per user via LATERAL; users without messages sort by their own creation time
	QueryListChats = `
		SELECT u.id, u.name, u.created_at,
		       m.id, m.content, m.sender, m.created_at, m.user_id
		FROM users AS u
		LEFT JOIN LATERAL (
			SELECT id, content, sender, created_at, user_id
			FROM messages
			WHERE user_id = u.id
			ORDER BY created_at DESC, seq DESC
			LIMIT 1
		) AS m ON TRUE
		ORDER BY COALESCE(m.created_at, u.created_at) DESC, u.id ASC;
	`
	QueryDeleteAllUsers = `DELETE FROM users;`
)
