// Package patientdata provides read-only lookups over the patient tables
// that back the assistant's tool calls. Every query is scoped to a single
// owner id; callers never pass table or column input through from the model.
package patientdata

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// Store reads patient data from PostgreSQL.
type Store struct {
	db *sql.DB
}

// NewStore creates a patient data store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Prescription is one prescription row with its medicine and prescriber
// resolved.
type Prescription struct {
	Medicine     string `json:"medicine,omitempty"`
	Dosage       string `json:"dosage,omitempty"`
	Frequency    string `json:"frequency,omitempty"`
	Instructions string `json:"instructions,omitempty"`
	StartDate    string `json:"start_date,omitempty"`
	EndDate      string `json:"end_date,omitempty"`
	Doctor       string `json:"doctor,omitempty"`
}

// ActivePrescriptions returns prescriptions that are still running or ended
// within the last 30 days, newest first.
func (s *Store) ActivePrescriptions(ctx context.Context, ownerID int64) ([]Prescription, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT m.name, p.dosage, p.frequency, p.instructions, p.start_date, p.end_date, d.name
		FROM prescriptions p
		LEFT JOIN medicines m ON m.medicine_id = p.medicine_id
		LEFT JOIN doctors d ON d.doctor_id = p.doctor_id
		WHERE p.user_id = $1
		  AND (p.end_date IS NULL OR p.end_date >= NOW() - INTERVAL '30 days')
		ORDER BY p.start_date DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query prescriptions: %w", err)
	}
	defer rows.Close()

	var out []Prescription
	for rows.Next() {
		var (
			p                  Prescription
			medicine, dosage   sql.NullString
			frequency, instr   sql.NullString
			startDate, endDate sql.NullTime
			doctor             sql.NullString
		)
		if err := rows.Scan(&medicine, &dosage, &frequency, &instr, &startDate, &endDate, &doctor); err != nil {
			return nil, fmt.Errorf("failed to scan prescription: %w", err)
		}
		p.Medicine = medicine.String
		p.Dosage = dosage.String
		p.Frequency = frequency.String
		p.Instructions = instr.String
		if startDate.Valid {
			p.StartDate = startDate.Time.Format(dateLayout)
		}
		if endDate.Valid {
			p.EndDate = endDate.Time.Format(dateLayout)
		}
		p.Doctor = doctor.String
		out = append(out, p)
	}
	return out, rows.Err()
}

// Reminder is one medication reminder.
type Reminder struct {
	Datetime time.Time `json:"datetime"`
	Status   string    `json:"status"`
	Medicine string    `json:"medicine,omitempty"`
	Dosage   string    `json:"dosage,omitempty"`
}

// UpcomingReminders returns the next reminders from now on, soonest first,
// capped at limit.
func (s *Store) UpcomingReminders(ctx context.Context, ownerID int64, limit int) ([]Reminder, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.reminder_datetime, r.status, m.name, p.dosage
		FROM reminders r
		LEFT JOIN prescriptions p ON p.prescription_id = r.prescription_id
		LEFT JOIN medicines m ON m.medicine_id = p.medicine_id
		WHERE r.user_id = $1 AND r.reminder_datetime >= NOW()
		ORDER BY r.reminder_datetime ASC
		LIMIT $2`, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query reminders: %w", err)
	}
	defer rows.Close()

	var out []Reminder
	for rows.Next() {
		var (
			datetime         time.Time
			status           string
			medicine, dosage sql.NullString
		)
		if err := rows.Scan(&datetime, &status, &medicine, &dosage); err != nil {
			return nil, fmt.Errorf("failed to scan reminder: %w", err)
		}
		out = append(out, Reminder{
			Datetime: datetime,
			Status:   status,
			Medicine: medicine.String,
			Dosage:   dosage.String,
		})
	}
	return out, rows.Err()
}

// HealthRecord is one self-reported measurement entry.
type HealthRecord struct {
	Date          time.Time `json:"date"`
	HeartRate     *int64    `json:"heart_rate,omitempty"`
	BloodPressure string    `json:"blood_pressure,omitempty"`
	BloodSugar    *float64  `json:"blood_sugar,omitempty"`
	Temperature   *float64  `json:"temperature,omitempty"`
	Notes         string    `json:"notes,omitempty"`
}

// RecentHealthRecords returns the latest measurements, newest first, capped
// at limit.
func (s *Store) RecentHealthRecords(ctx context.Context, ownerID int64, limit int) ([]HealthRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT date_time, heart_rate, blood_pressure, blood_sugar, temperature, notes
		FROM health_records
		WHERE user_id = $1
		ORDER BY date_time DESC
		LIMIT $2`, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query health records: %w", err)
	}
	defer rows.Close()

	var out []HealthRecord
	for rows.Next() {
		var (
			rec           HealthRecord
			heartRate     sql.NullInt64
			bloodPressure sql.NullString
			bloodSugar    sql.NullFloat64
			temperature   sql.NullFloat64
			notes         sql.NullString
		)
		if err := rows.Scan(&rec.Date, &heartRate, &bloodPressure, &bloodSugar, &temperature, &notes); err != nil {
			return nil, fmt.Errorf("failed to scan health record: %w", err)
		}
		if heartRate.Valid {
			rec.HeartRate = &heartRate.Int64
		}
		rec.BloodPressure = bloodPressure.String
		if bloodSugar.Valid {
			rec.BloodSugar = &bloodSugar.Float64
		}
		if temperature.Valid {
			rec.Temperature = &temperature.Float64
		}
		rec.Notes = notes.String
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Medication is an active prescription in compact form for schedules.
type Medication struct {
	Medicine  string `json:"medicine,omitempty"`
	Dosage    string `json:"dosage,omitempty"`
	Frequency string `json:"frequency,omitempty"`
}

// Schedule is the owner's day at a glance.
type Schedule struct {
	TodaysReminders   []Reminder   `json:"todays_reminders"`
	ActiveMedications []Medication `json:"active_medications"`
}

// TodaysSchedule returns today's reminders together with the currently
// active medications.
func (s *Store) TodaysSchedule(ctx context.Context, ownerID int64) (Schedule, error) {
	schedule := Schedule{
		TodaysReminders:   []Reminder{},
		ActiveMedications: []Medication{},
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT r.reminder_datetime, r.status, m.name, p.dosage
		FROM reminders r
		LEFT JOIN prescriptions p ON p.prescription_id = r.prescription_id
		LEFT JOIN medicines m ON m.medicine_id = p.medicine_id
		WHERE r.user_id = $1
		  AND r.reminder_datetime >= date_trunc('day', NOW())
		  AND r.reminder_datetime < date_trunc('day', NOW()) + INTERVAL '1 day'
		ORDER BY r.reminder_datetime ASC`, ownerID)
	if err != nil {
		return schedule, fmt.Errorf("failed to query today's reminders: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			datetime         time.Time
			status           string
			medicine, dosage sql.NullString
		)
		if err := rows.Scan(&datetime, &status, &medicine, &dosage); err != nil {
			return schedule, fmt.Errorf("failed to scan today's reminder: %w", err)
		}
		schedule.TodaysReminders = append(schedule.TodaysReminders, Reminder{
			Datetime: datetime,
			Status:   status,
			Medicine: medicine.String,
			Dosage:   dosage.String,
		})
	}
	if err := rows.Err(); err != nil {
		return schedule, err
	}

	medRows, err := s.db.QueryContext(ctx, `
		SELECT m.name, p.dosage, p.frequency
		FROM prescriptions p
		LEFT JOIN medicines m ON m.medicine_id = p.medicine_id
		WHERE p.user_id = $1
		  AND (p.end_date IS NULL OR p.end_date >= NOW())`, ownerID)
	if err != nil {
		return schedule, fmt.Errorf("failed to query active medications: %w", err)
	}
	defer medRows.Close()

	for medRows.Next() {
		var medicine, dosage, frequency sql.NullString
		if err := medRows.Scan(&medicine, &dosage, &frequency); err != nil {
			return schedule, fmt.Errorf("failed to scan medication: %w", err)
		}
		schedule.ActiveMedications = append(schedule.ActiveMedications, Medication{
			Medicine:  medicine.String,
			Dosage:    dosage.String,
			Frequency: frequency.String,
		})
	}
	return schedule, medRows.Err()
}

// Doctor is a member of the owner's care team.
type Doctor struct {
	Name       string `json:"name"`
	Speciality string `json:"speciality,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Email      string `json:"email,omitempty"`
	Hospital   string `json:"hospital,omitempty"`
	Primary    bool   `json:"-"`
}

// CareTeam returns the owner's primary doctor plus the distinct doctors who
// have prescribed for them, primary first.
func (s *Store) CareTeam(ctx context.Context, ownerID int64) ([]Doctor, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT d.name, d.speciality, d.phone, d.email, d.hospital,
		       (d.doctor_id = u.primary_doctor_id) AS is_primary
		FROM doctors d
		JOIN users u ON u.user_id = $1
		WHERE d.doctor_id = u.primary_doctor_id
		   OR d.doctor_id IN (SELECT doctor_id FROM prescriptions WHERE user_id = $1)
		ORDER BY is_primary DESC, d.name ASC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query care team: %w", err)
	}
	defer rows.Close()

	var out []Doctor
	for rows.Next() {
		var (
			doc               Doctor
			speciality, phone sql.NullString
			email, hospital   sql.NullString
			isPrimary         sql.NullBool
		)
		if err := rows.Scan(&doc.Name, &speciality, &phone, &email, &hospital, &isPrimary); err != nil {
			return nil, fmt.Errorf("failed to scan doctor: %w", err)
		}
		doc.Speciality = speciality.String
		doc.Phone = phone.String
		doc.Email = email.String
		doc.Hospital = hospital.String
		doc.Primary = isPrimary.Bool
		out = append(out, doc)
	}
	return out, rows.Err()
}
