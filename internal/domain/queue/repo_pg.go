package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinidesk/clinidesk/internal/platform/db"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

func (r *repoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const entryCols = `id, patient_id, doctor_id, arrival_time, current_status, queue_type, created_at, updated_at`

const listCols = `q.id, q.arrival_time, q.current_status, q.queue_type, q.created_at, q.updated_at,
	p.id, p.name, p.email, p.age, p.gender,
	d.id, d.name, d.specialization`

// uniqueViolation is the Postgres error code raised by the partial unique
// index on (doctor_id, day) for active consultations. It backstops the
// advisory-lock check against writers that bypass InTx.
const uniqueViolation = "23505"

func (r *repoPG) Create(ctx context.Context, entry *Entry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	// The day bucket is derived from the arrival time's local calendar
	// day, the same convention DayBounds uses, so the partial unique
	// index and the service guard cannot disagree near midnight.
	dayStart, _ := DayBounds(entry.ArrivalTime)
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO queue_entry (id, patient_id, doctor_id, arrival_time, current_status, queue_type, day)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`,
		entry.ID, entry.PatientID, entry.DoctorID, entry.ArrivalTime, entry.CurrentStatus, entry.QueueType, dayStart,
	).Scan(&entry.CreatedAt, &entry.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrDoctorBusy
	}
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Entry, error) {
	row := r.conn(ctx).QueryRow(ctx, `SELECT `+entryCols+` FROM queue_entry WHERE id = $1`, id)
	return scanEntry(row)
}

func (r *repoPG) Update(ctx context.Context, entry *Entry) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE queue_entry
		SET doctor_id = $2, current_status = $3, queue_type = $4, updated_at = NOW()
		WHERE id = $1`,
		entry.ID, entry.DoctorID, entry.CurrentStatus, entry.QueueType,
	)
	if isUniqueViolation(err) {
		return ErrDoctorBusy
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM queue_entry WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) ListDay(ctx context.Context, dayStart, dayEnd time.Time) ([]ListItem, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+listCols+`
		FROM queue_entry q
		JOIN patient p ON p.id = q.patient_id
		LEFT JOIN doctor d ON d.id = q.doctor_id
		WHERE q.created_at >= $1 AND q.created_at < $2
		ORDER BY q.arrival_time ASC`,
		dayStart, dayEnd,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectItems(rows)
}

func (r *repoPG) ListBefore(ctx context.Context, dayStart time.Time) ([]ListItem, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+listCols+`
		FROM queue_entry q
		JOIN patient p ON p.id = q.patient_id
		LEFT JOIN doctor d ON d.id = q.doctor_id
		WHERE q.created_at < $1
		ORDER BY q.arrival_time DESC`,
		dayStart,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectItems(rows)
}

func (r *repoPG) DoctorBusy(ctx context.Context, doctorID uuid.UUID, dayStart, dayEnd time.Time, excludeID uuid.UUID) (bool, error) {
	var busy bool
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM queue_entry
			WHERE doctor_id = $1
			  AND current_status = $2
			  AND created_at >= $3 AND created_at < $4
			  AND id <> $5
		)`,
		doctorID, StatusWithDoctor, dayStart, dayEnd, excludeID,
	).Scan(&busy)
	return busy, err
}

func (r *repoPG) LockDoctorDay(ctx context.Context, doctorID uuid.UUID, day time.Time) error {
	key := fmt.Sprintf("doctor:%s:%s", doctorID, day.Format("2006-01-02"))
	_, err := r.conn(ctx).Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, key)
	return err
}

func (r *repoPG) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return db.RunInTx(ctx, r.pool, fn)
}

func (r *repoPG) Stats(ctx context.Context, dayStart, dayEnd time.Time) (Stats, error) {
	var s Stats
	q := r.conn(ctx)
	base := ` FROM queue_entry WHERE created_at >= $1 AND created_at < $2`
	if err := q.QueryRow(ctx, `SELECT COUNT(*)`+base, dayStart, dayEnd).Scan(&s.Total); err != nil {
		return Stats{}, err
	}
	if err := q.QueryRow(ctx, `SELECT COUNT(*)`+base+` AND current_status = $3`, dayStart, dayEnd, StatusDone).Scan(&s.Done); err != nil {
		return Stats{}, err
	}
	if err := q.QueryRow(ctx, `SELECT COUNT(*)`+base+` AND current_status = $3`, dayStart, dayEnd, StatusWaiting).Scan(&s.Waiting); err != nil {
		return Stats{}, err
	}
	if err := q.QueryRow(ctx, `SELECT COUNT(*)`+base+` AND queue_type = $3`, dayStart, dayEnd, TypeEmergency).Scan(&s.Emergency); err != nil {
		return Stats{}, err
	}
	return s, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func scanEntry(row pgx.Row) (*Entry, error) {
	var e Entry
	err := row.Scan(&e.ID, &e.PatientID, &e.DoctorID, &e.ArrivalTime, &e.CurrentStatus, &e.QueueType, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func collectItems(rows pgx.Rows) ([]ListItem, error) {
	items := []ListItem{}
	for rows.Next() {
		var (
			item   ListItem
			docID  *uuid.UUID
			docNm  *string
			docSpc *string
		)
		if err := rows.Scan(
			&item.ID, &item.ArrivalTime, &item.CurrentStatus, &item.QueueType, &item.CreatedAt, &item.UpdatedAt,
			&item.Patient.ID, &item.Patient.Name, &item.Patient.Email, &item.Patient.Age, &item.Patient.Gender,
			&docID, &docNm, &docSpc,
		); err != nil {
			return nil, err
		}
		if docID != nil {
			item.Doctor = &DoctorInfo{ID: *docID}
			if docNm != nil {
				item.Doctor.Name = *docNm
			}
			if docSpc != nil {
				item.Doctor.Specialization = *docSpc
			}
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
