package db

import (
	"context"
	"database/sql"
	"errors"

	"medichat/internal/core"
	"medichat/pkg"
)

// Repository wraps database operations for conversations, doctors and the
// triage log. It implements core.ConversationStore, core.DoctorDirectory and
// core.TriageLog over a single Postgres database.
type Repository struct {
	DB *sql.DB
}

// NewRepository constructs a Repository from an existing sql.DB. The caller
// is responsible for managing the connection lifecycle.
func NewRepository(db *sql.DB) *Repository { return &Repository{DB: db} }

// Get loads a conversation with its doctor references and full transcript.
func (r *Repository) Get(ctx context.Context, id string) (*pkg.Conversation, error) {
	var (
		conv       pkg.Conversation
		assignedID sql.NullString
		pendingID  sql.NullString
	)
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, user_id, mode, assigned_doctor_id, pending_doctor_id, created_at, updated_at
         FROM conversations
         WHERE id = $1`, id,
	).Scan(&conv.ID, &conv.UserID, &conv.Mode, &assignedID, &pendingID, &conv.CreatedAt, &conv.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		return nil, err
	}
	if assignedID.Valid {
		if conv.AssignedDoctor, err = r.getDoctor(ctx, assignedID.String); err != nil {
			return nil, err
		}
	}
	if pendingID.Valid {
		if conv.PendingDoctor, err = r.getDoctor(ctx, pendingID.String); err != nil {
			return nil, err
		}
	}
	if conv.Messages, err = r.listMessages(ctx, conv.ID); err != nil {
		return nil, err
	}
	return &conv, nil
}

// Save upserts the conversation row and inserts transcript messages that
// have not been persisted yet (ID == 0). Message IDs are backfilled from the
// database so a saved conversation can be saved again safely.
func (r *Repository) Save(ctx context.Context, conv *pkg.Conversation) error {
	var assignedID, pendingID interface{}
	if conv.AssignedDoctor != nil {
		assignedID = conv.AssignedDoctor.ID
	}
	if conv.PendingDoctor != nil {
		pendingID = conv.PendingDoctor.ID
	}
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO conversations (id, user_id, mode, assigned_doctor_id, pending_doctor_id)
         VALUES ($1, $2, $3, $4, $5)
         ON CONFLICT (id) DO UPDATE
         SET mode = EXCLUDED.mode,
             assigned_doctor_id = EXCLUDED.assigned_doctor_id,
             pending_doctor_id = EXCLUDED.pending_doctor_id,
             updated_at = NOW()`,
		conv.ID, conv.UserID, conv.Mode, assignedID, pendingID,
	)
	if err != nil {
		return err
	}
	for i := range conv.Messages {
		m := &conv.Messages[i]
		if m.ID != 0 {
			continue
		}
		err := r.DB.QueryRowContext(ctx,
			`INSERT INTO messages (conversation_id, role, content)
             VALUES ($1, $2, $3)
             RETURNING id, created_at`,
			conv.ID, m.Role, m.Content,
		).Scan(&m.ID, &m.CreatedAt)
		if err != nil {
			return err
		}
	}
	return nil
}

// Delete removes a conversation and, via ON DELETE CASCADE, its messages.
func (r *Repository) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM conversations WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// ListByUser returns a user's conversations, newest first, each carrying at
// most its first message (enough for list previews).
func (r *Repository) ListByUser(ctx context.Context, userID string) ([]pkg.Conversation, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT c.id, c.user_id, c.mode, c.created_at, c.updated_at, f.content
         FROM conversations c
         LEFT JOIN (
             SELECT DISTINCT ON (conversation_id) conversation_id, content
             FROM messages
             ORDER BY conversation_id, id ASC
         ) f ON f.conversation_id = c.id
         WHERE c.user_id = $1
         ORDER BY c.created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var convs []pkg.Conversation
	for rows.Next() {
		var (
			c     pkg.Conversation
			first sql.NullString
		)
		if err := rows.Scan(&c.ID, &c.UserID, &c.Mode, &c.CreatedAt, &c.UpdatedAt, &first); err != nil {
			return nil, err
		}
		if first.Valid {
			c.Messages = []pkg.Message{{Role: pkg.RoleUser, Content: first.String}}
		}
		convs = append(convs, c)
	}
	return convs, rows.Err()
}

// DeleteEmpty purges conversations that have no messages and reports the
// number of rows removed.
func (r *Repository) DeleteEmpty(ctx context.Context) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		`DELETE FROM conversations c
         WHERE NOT EXISTS (
             SELECT 1 FROM messages m WHERE m.conversation_id = c.id
         )`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// FindBySpecialty returns the most experienced doctor for a specialty, or
// (nil, nil) when none is on record.
func (r *Repository) FindBySpecialty(ctx context.Context, specialty pkg.Specialty) (*pkg.Doctor, error) {
	var d pkg.Doctor
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, name, specialty, hospital, years_experience
         FROM doctors
         WHERE specialty = $1
         ORDER BY years_experience DESC
         LIMIT 1`, specialty,
	).Scan(&d.ID, &d.Name, &d.Specialty, &d.Hospital, &d.YearsExperience)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// FindAny returns any doctor on record, or (nil, nil) when the directory is
// empty.
func (r *Repository) FindAny(ctx context.Context) (*pkg.Doctor, error) {
	var d pkg.Doctor
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, name, specialty, hospital, years_experience
         FROM doctors
         ORDER BY years_experience DESC
         LIMIT 1`,
	).Scan(&d.ID, &d.Name, &d.Specialty, &d.Hospital, &d.YearsExperience)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// Append writes a triage record and backfills its ID and timestamp.
func (r *Repository) Append(ctx context.Context, rec *pkg.TriageRecord) error {
	return r.DB.QueryRowContext(ctx,
		`INSERT INTO triage_log (user_id, symptoms, suggested_specialty)
         VALUES ($1, $2, $3)
         RETURNING id, created_at`,
		rec.UserID, rec.Symptoms, rec.Specialty,
	).Scan(&rec.ID, &rec.CreatedAt)
}

// History returns a user's triage history, most recent first.
func (r *Repository) History(ctx context.Context, userID string) ([]pkg.TriageRecord, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, user_id, symptoms, suggested_specialty, created_at
         FROM triage_log
         WHERE user_id = $1
         ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var records []pkg.TriageRecord
	for rows.Next() {
		var rec pkg.TriageRecord
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Symptoms, &rec.Specialty, &rec.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *Repository) getDoctor(ctx context.Context, id string) (*pkg.Doctor, error) {
	var d pkg.Doctor
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, name, specialty, hospital, years_experience
         FROM doctors
         WHERE id = $1`, id,
	).Scan(&d.ID, &d.Name, &d.Specialty, &d.Hospital, &d.YearsExperience)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *Repository) listMessages(ctx context.Context, conversationID string) ([]pkg.Message, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, role, content, created_at
         FROM messages
         WHERE conversation_id = $1
         ORDER BY id ASC`, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var msgs []pkg.Message
	for rows.Next() {
		var m pkg.Message
		if err := rows.Scan(&m.ID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}
