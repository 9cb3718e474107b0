package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/taskhive/dispatch/core/model"
	corestore "github.com/taskhive/dispatch/core/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS bookings (
    id TEXT PRIMARY KEY,
    category TEXT NOT NULL,
    customer_id TEXT NOT NULL,
    customer_name TEXT,
    lat REAL, lng REAL,
    scheduled_time INTEGER,
    status TEXT NOT NULL,
    provider_id TEXT,
    notified TEXT NOT NULL DEFAULT '[]',
    rating REAL,
    feedback TEXT,
    created_at INTEGER
);
CREATE INDEX IF NOT EXISTS bookings_status ON bookings(status, scheduled_time);

CREATE TABLE IF NOT EXISTS providers (
    id TEXT PRIMARY KEY,
    name TEXT,
    category TEXT NOT NULL,
    lat REAL, lng REAL,
    rating REAL NOT NULL DEFAULT 0,
    last_active INTEGER,
    available INTEGER NOT NULL DEFAULT 0,
    approved INTEGER NOT NULL DEFAULT 0,
    skills TEXT NOT NULL DEFAULT '[]'
);
CREATE INDEX IF NOT EXISTS providers_category ON providers(category, available, approved);

CREATE TABLE IF NOT EXISTS notifications (
    id TEXT PRIMARY KEY,
    recipient_id TEXT NOT NULL,
    audience TEXT NOT NULL,
    type TEXT NOT NULL,
    message TEXT,
    related_type TEXT NOT NULL DEFAULT '',
    related_id TEXT NOT NULL DEFAULT '',
    read_flag INTEGER NOT NULL DEFAULT 0,
    created_at INTEGER
);
CREATE UNIQUE INDEX IF NOT EXISTS notifications_dedup
    ON notifications(recipient_id, type, related_type, related_id)
    WHERE type IN ('review_prompt', 'booking_reminder');
`

// SQLiteStore implements the booking store, provider directory and
// notification store on a single SQLite database. The pending->confirmed
// transition is a single conditional UPDATE, so the at-most-one-winner
// guarantee holds across every process sharing the file.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens or creates the database at path and ensures schema.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite allows one writer; serializing on a single connection avoids
	// SQLITE_BUSY under concurrent accepts.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, fmt.Errorf("close db: %v (schema err: %w)", cerr, err)
		}
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error { return s.db.Close() }

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", corestore.ErrUnavailable, err)
}

func (s *SQLiteStore) CreatePending(ctx context.Context, req model.BookingRequest, notified []string) (model.Booking, error) {
	b := model.Booking{
		ID:                uuid.NewString(),
		Category:          req.Category,
		CustomerID:        req.CustomerID,
		CustomerName:      req.CustomerName,
		Location:          req.Location,
		ScheduledTime:     req.ScheduledTime,
		Status:            model.StatusPending,
		NotifiedProviders: append([]string(nil), notified...),
		CreatedAt:         time.Now().UTC(),
	}
	notifiedJSON, err := json.Marshal(b.NotifiedProviders)
	if err != nil {
		return model.Booking{}, err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO bookings (id, category, customer_id, customer_name, lat, lng, scheduled_time, status, notified, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.Category, b.CustomerID, b.CustomerName, b.Location.Lat, b.Location.Lng,
		b.ScheduledTime.Unix(), string(b.Status), string(notifiedJSON), b.CreatedAt.Unix())
	if err != nil {
		return model.Booking{}, unavailable(err)
	}
	return b, nil
}

const bookingColumns = `id, category, customer_id, customer_name, lat, lng, scheduled_time, status, provider_id, notified, rating, feedback, created_at`

func scanBooking(row interface{ Scan(...any) error }) (model.Booking, error) {
	var (
		b          model.Booking
		scheduled  int64
		created    int64
		providerID sql.NullString
		rating     sql.NullFloat64
		feedback   sql.NullString
		notified   string
	)
	err := row.Scan(&b.ID, &b.Category, &b.CustomerID, &b.CustomerName, &b.Location.Lat, &b.Location.Lng,
		&scheduled, &b.Status, &providerID, &notified, &rating, &feedback, &created)
	if err != nil {
		return model.Booking{}, err
	}
	b.ScheduledTime = time.Unix(scheduled, 0).UTC()
	b.CreatedAt = time.Unix(created, 0).UTC()
	b.ProviderID = providerID.String
	b.Rating = rating.Float64
	b.Feedback = feedback.String
	if err := json.Unmarshal([]byte(notified), &b.NotifiedProviders); err != nil {
		return model.Booking{}, fmt.Errorf("unmarshal notified providers: %w", err)
	}
	return b, nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (model.Booking, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id)
	b, err := scanBooking(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Booking{}, corestore.ErrNotFound
	}
	if err != nil {
		return model.Booking{}, unavailable(err)
	}
	return b, nil
}

func (s *SQLiteStore) CompareAndSetConfirmed(ctx context.Context, id, providerID string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE bookings SET status = ?, provider_id = ? WHERE id = ? AND status = ?`,
		string(model.StatusConfirmed), providerID, id, string(model.StatusPending))
	if err != nil {
		return false, unavailable(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, unavailable(err)
	}
	if n == 1 {
		return true, nil
	}
	// Lost the race, or the booking does not exist at all.
	if _, err := s.Get(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

func (s *SQLiteStore) SetStatus(ctx context.Context, id string, status model.BookingStatus) (model.Booking, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE bookings SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return model.Booking{}, unavailable(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return model.Booking{}, corestore.ErrNotFound
	}
	return s.Get(ctx, id)
}

func (s *SQLiteStore) AssignProvider(ctx context.Context, id, providerID string) (model.Booking, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE bookings SET provider_id = ? WHERE id = ?`, providerID, id)
	if err != nil {
		return model.Booking{}, unavailable(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return model.Booking{}, corestore.ErrNotFound
	}
	return s.Get(ctx, id)
}

func (s *SQLiteStore) queryBookings(ctx context.Context, query string, args ...any) ([]model.Booking, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, unavailable(err)
	}
	defer func() { _ = rows.Close() }()
	var res []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, unavailable(err)
		}
		res = append(res, b)
	}
	return res, rows.Err()
}

func (s *SQLiteStore) ListByStatus(ctx context.Context, status model.BookingStatus) ([]model.Booking, error) {
	return s.queryBookings(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE status = ? ORDER BY created_at DESC`, string(status))
}

func (s *SQLiteStore) ConfirmedBetween(ctx context.Context, from, to time.Time) ([]model.Booking, error) {
	return s.queryBookings(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE status = ? AND scheduled_time >= ? AND scheduled_time <= ? ORDER BY scheduled_time`,
		string(model.StatusConfirmed), from.Unix(), to.Unix())
}

func (s *SQLiteStore) CountByStatus(ctx context.Context) (map[model.BookingStatus]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM bookings GROUP BY status`)
	if err != nil {
		return nil, unavailable(err)
	}
	defer func() { _ = rows.Close() }()
	res := make(map[model.BookingStatus]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, unavailable(err)
		}
		res[model.BookingStatus(status)] = count
	}
	return res, rows.Err()
}

var _ corestore.BookingStore = (*SQLiteStore)(nil)

// UpsertProvider adds or replaces a provider directory entry.
func (s *SQLiteStore) UpsertProvider(ctx context.Context, p model.Provider) error {
	skills, err := json.Marshal(p.Skills)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO providers (id, name, category, lat, lng, rating, last_active, available, approved, skills)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(id) DO UPDATE SET name=excluded.name, category=excluded.category, lat=excluded.lat,
             lng=excluded.lng, rating=excluded.rating, last_active=excluded.last_active,
             available=excluded.available, approved=excluded.approved, skills=excluded.skills`,
		p.ID, p.Name, p.Category, p.Location.Lat, p.Location.Lng, p.Rating,
		p.LastActiveAt.Unix(), boolToInt(p.Available), boolToInt(p.Approved), string(skills))
	if err != nil {
		return unavailable(err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (s *SQLiteStore) FindCandidates(ctx context.Context, q corestore.CandidateQuery) ([]model.Provider, error) {
	query := `SELECT id, name, category, lat, lng, rating, last_active, available, approved, skills FROM providers WHERE rating >= ?`
	args := []any{q.MinRating}
	if q.Category != "" {
		query += ` AND category = ?`
		args = append(args, q.Category)
	}
	if q.AvailableOnly {
		query += ` AND available = 1`
	}
	if q.ApprovedOnly {
		query += ` AND approved = 1`
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, unavailable(err)
	}
	defer func() { _ = rows.Close() }()
	var res []model.Provider
	for rows.Next() {
		var (
			p          model.Provider
			lastActive int64
			available  int
			approved   int
			skills     string
		)
		if err := rows.Scan(&p.ID, &p.Name, &p.Category, &p.Location.Lat, &p.Location.Lng,
			&p.Rating, &lastActive, &available, &approved, &skills); err != nil {
			return nil, unavailable(err)
		}
		p.LastActiveAt = time.Unix(lastActive, 0).UTC()
		p.Available = available == 1
		p.Approved = approved == 1
		if err := json.Unmarshal([]byte(skills), &p.Skills); err != nil {
			return nil, fmt.Errorf("unmarshal skills: %w", err)
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

var _ corestore.ProviderDirectory = (*SQLiteStore)(nil)

func (s *SQLiteStore) Create(ctx context.Context, n model.Notification) (model.Notification, error) {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO notifications (id, recipient_id, audience, type, message, related_type, related_id, read_flag, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.RecipientID, string(n.Audience), string(n.Type), n.Message,
		n.RelatedType, n.RelatedID, boolToInt(n.Read), n.CreatedAt.Unix())
	if err != nil {
		return model.Notification{}, unavailable(err)
	}
	return n, nil
}

// CreateUnique relies on the partial unique index: INSERT OR IGNORE reports
// zero affected rows when a duplicate exists, which makes the dedup atomic
// under concurrent scheduler instances.
func (s *SQLiteStore) CreateUnique(ctx context.Context, n model.Notification) (model.Notification, bool, error) {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO notifications (id, recipient_id, audience, type, message, related_type, related_id, read_flag, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT DO NOTHING`,
		n.ID, n.RecipientID, string(n.Audience), string(n.Type), n.Message,
		n.RelatedType, n.RelatedID, boolToInt(n.Read), n.CreatedAt.Unix())
	if err != nil {
		return model.Notification{}, false, unavailable(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return model.Notification{}, false, unavailable(err)
	}
	if affected == 0 {
		return model.Notification{}, false, nil
	}
	return n, true, nil
}

func (s *SQLiteStore) Exists(ctx context.Context, recipientID string, typ model.NotificationType, relatedType, relatedID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM notifications WHERE recipient_id = ? AND type = ? AND related_type = ? AND related_id = ? LIMIT 1`,
		recipientID, string(typ), relatedType, relatedID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, unavailable(err)
	}
	return true, nil
}

func (s *SQLiteStore) ListByRecipient(ctx context.Context, recipientID string) ([]model.Notification, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, recipient_id, audience, type, message, related_type, related_id, read_flag, created_at
         FROM notifications WHERE recipient_id = ? ORDER BY created_at DESC`, recipientID)
	if err != nil {
		return nil, unavailable(err)
	}
	defer func() { _ = rows.Close() }()
	var res []model.Notification
	for rows.Next() {
		var (
			n       model.Notification
			read    int
			created int64
		)
		if err := rows.Scan(&n.ID, &n.RecipientID, &n.Audience, &n.Type, &n.Message,
			&n.RelatedType, &n.RelatedID, &read, &created); err != nil {
			return nil, unavailable(err)
		}
		n.Read = read == 1
		n.CreatedAt = time.Unix(created, 0).UTC()
		res = append(res, n)
	}
	return res, rows.Err()
}

var _ corestore.NotificationStore = (*SQLiteStore)(nil)
