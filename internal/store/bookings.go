package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/christopherklint97/bookr/internal/calendar"
)

const StatusBooked = "booked"

// Record is a booking row.
type Record struct {
	ID            int
	Title         string
	Description   string
	AttendeeEmail string
	StartTime     time.Time
	EndTime       time.Time
	Backend       string
	Status        string
	CreatedAt     time.Time
}

var _ calendar.Recorder = (*DB)(nil)

// InsertBooking stores a created booking and returns its row id.
func (db *DB) InsertBooking(b *calendar.Booking) (int64, error) {
	result, err := db.Exec(
		`INSERT INTO bookings (title, description, attendee_email, start_time, end_time, backend, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		b.Title, b.Description, b.AttendeeEmail,
		b.StartTime.UTC().Format(time.RFC3339),
		b.EndTime.UTC().Format(time.RFC3339),
		b.Backend, StatusBooked,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting booking: %w", err)
	}
	return result.LastInsertId()
}

// RecentBookings returns up to limit bookings, newest first.
func (db *DB) RecentBookings(limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}
	return db.queryBookings(
		`SELECT id, title, description, attendee_email, start_time, end_time, backend, status, created_at
		 FROM bookings
		 ORDER BY id DESC
		 LIMIT ?`,
		limit,
	)
}

// BookingsBetween returns bookings starting in [start, end), by start time.
func (db *DB) BookingsBetween(start, end time.Time) ([]Record, error) {
	return db.queryBookings(
		`SELECT id, title, description, attendee_email, start_time, end_time, backend, status, created_at
		 FROM bookings
		 WHERE start_time >= ? AND start_time < ?
		 ORDER BY start_time ASC`,
		start.UTC().Format(time.RFC3339),
		end.UTC().Format(time.RFC3339),
	)
}

func (db *DB) queryBookings(query string, args ...any) ([]Record, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying bookings: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		var startStr, endStr string
		var createdAt sql.NullString

		if err := rows.Scan(&r.ID, &r.Title, &r.Description, &r.AttendeeEmail,
			&startStr, &endStr, &r.Backend, &r.Status, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning booking: %w", err)
		}

		r.StartTime, _ = time.Parse(time.RFC3339, startStr)
		r.EndTime, _ = time.Parse(time.RFC3339, endStr)
		if createdAt.Valid {
			r.CreatedAt, _ = time.Parse("2006-01-02 15:04:05", createdAt.String)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
