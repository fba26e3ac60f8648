package queries

const (
	// GREATEST skips the NULL of a first message and keeps created_at monotonic per user otherwise.
	QueryCreateMessage = `
		INSERT INTO messages (id, content, sender, user_id, created_at)
		VALUES ($1, $2, $3, $4, GREATEST(
			clock_timestamp(),
			(SELECT max(created_at) FROM messages WHERE user_id = $4)
		))
		RETURNING created_at;
	`
	QueryListMessagesByUser = `
		SELECT id, content, sender, created_at, user_id
		FROM messages
		WHERE user_id = $1
		ORDER BY created_at ASC, seq ASC;
	`
	QueryDeleteAllMessages = `DELETE FROM messages;`
)
