package directory

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/pranhealth/drai/pkg/logging"
)

const queryTimeout = 3 * time.Second

// PostgresSource reads the hospital schema over database/sql. Every query is
// bounded by a short per-call timeout so a slow database degrades a single
// topic instead of stalling the pipeline.
type PostgresSource struct {
	db     *sql.DB
	logger *logging.Logger
}

// NewPostgresSource creates a Source over the supplied database handle.
func NewPostgresSource(db *sql.DB, logger *logging.Logger) *PostgresSource {
	if db == nil {
		panic("directory: db cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &PostgresSource{db: db, logger: logger}
}

// Doctors returns active doctors, optionally filtered by specialty. A
// "general medicine" filter also matches family/primary-care rows, as those
// appear under several labels in the source data.
func (s *PostgresSource) Doctors(ctx context.Context, specialty string, limit int) ([]DoctorRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `SELECT doctor_id, name, specialty, department, email, phone,
	                 COALESCE(experience_years, 0), COALESCE(rating, 0)
	          FROM doctors`
	var args []any
	switch {
	case strings.EqualFold(specialty, "general medicine"):
		query += ` WHERE specialty ILIKE ANY(ARRAY['%general%', '%family%', '%primary%'])`
	case specialty != "":
		query += ` WHERE specialty ILIKE $1 OR department ILIKE $1`
		args = append(args, "%"+specialty+"%")
	}
	query += fmt.Sprintf(" ORDER BY name LIMIT %d", boundedLimit(limit))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("directory: doctors query failed: %w", err)
	}
	defer rows.Close()

	var out []DoctorRecord
	for rows.Next() {
		var rec DoctorRecord
		if err := rows.Scan(&rec.DoctorID, &rec.Name, &rec.Specialty, &rec.Department,
			&rec.Email, &rec.Phone, &rec.ExperienceYears, &rec.Rating); err != nil {
			return nil, fmt.Errorf("directory: doctors scan failed: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// InsurancePlans returns active plans ordered by premium.
func (s *PostgresSource) InsurancePlans(ctx context.Context, limit int) ([]PlanRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := fmt.Sprintf(`SELECT plan_id, plan_name, monthly_premium, deductible,
	                             coverage_percentage, COALESCE(features, '')
	                      FROM insurance_plans
	                      WHERE is_active = true
	                      ORDER BY monthly_premium
	                      LIMIT %d`, boundedLimit(limit))

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("directory: insurance query failed: %w", err)
	}
	defer rows.Close()

	var out []PlanRecord
	for rows.Next() {
		var rec PlanRecord
		var premium, deductible float64
		var coverage int
		var features string
		if err := rows.Scan(&rec.PlanID, &rec.Name, &premium, &deductible, &coverage, &features); err != nil {
			return nil, fmt.Errorf("directory: insurance scan failed: %w", err)
		}
		rec.MonthlyPremium = fmt.Sprintf("$%.2f", premium)
		rec.Deductible = fmt.Sprintf("$%.2f", deductible)
		rec.Coverage = fmt.Sprintf("%d%%", coverage)
		rec.Features = splitFeatures(features)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// AvailableSlots returns open slots over the next seven days, optionally
// filtered by doctor specialty.
func (s *PostgresSource) AvailableSlots(ctx context.Context, specialty string, limit int) ([]AppointmentRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `SELECT s.slot_id, s.doctor_id, COALESCE(d.name, ''), COALESCE(d.specialty, ''),
	                 COALESCE(d.department, ''), s.date::text, s.start_time::text, s.end_time::text
	          FROM availability_slots s
	          LEFT JOIN doctors d ON s.doctor_id = d.doctor_id
	          WHERE s.available = true
	            AND s.date >= CURRENT_DATE
	            AND s.date <= CURRENT_DATE + INTERVAL '7 days'`
	var args []any
	if specialty != "" {
		query += ` AND (d.specialty ILIKE $1 OR d.department ILIKE $1)`
		args = append(args, "%"+specialty+"%")
	}
	query += fmt.Sprintf(" ORDER BY s.date, s.start_time LIMIT %d", boundedLimit(limit))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("directory: slots query failed: %w", err)
	}
	defer rows.Close()

	var out []AppointmentRecord
	for rows.Next() {
		var rec AppointmentRecord
		if err := rows.Scan(&rec.SlotID, &rec.DoctorID, &rec.DoctorName, &rec.Specialty,
			&rec.Department, &rec.Date, &rec.StartTime, &rec.EndTime); err != nil {
			return nil, fmt.Errorf("directory: slots scan failed: %w", err)
		}
		rec.Status = "available"
		out = append(out, rec)
	}
	return out, rows.Err()
}

// MedicalRecords returns a patient's records, most recent first. An empty
// patient ID yields no rows; records are never listed without a patient.
func (s *PostgresSource) MedicalRecords(ctx context.Context, patientID string, limit int) ([]RecordEntry, error) {
	if strings.TrimSpace(patientID) == "" {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := fmt.Sprintf(`SELECT record_id, patient_id, record_type, record_date::text,
	                             COALESCE(diagnosis, ''), COALESCE(treatment, ''), COALESCE(notes, '')
	                      FROM medical_records
	                      WHERE patient_id = $1
	                      ORDER BY record_date DESC
	                      LIMIT %d`, boundedLimit(limit))

	rows, err := s.db.QueryContext(ctx, query, patientID)
	if err != nil {
		return nil, fmt.Errorf("directory: records query failed: %w", err)
	}
	defer rows.Close()

	var out []RecordEntry
	for rows.Next() {
		var rec RecordEntry
		if err := rows.Scan(&rec.RecordID, &rec.PatientID, &rec.RecordType, &rec.RecordDate,
			&rec.Diagnosis, &rec.Treatment, &rec.Notes); err != nil {
			return nil, fmt.Errorf("directory: records scan failed: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func boundedLimit(limit int) int {
	if limit <= 0 || limit > 20 {
		return 10
	}
	return limit
}

func splitFeatures(raw string) []string {
	raw = strings.Trim(raw, "{}")
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(strings.Trim(p, `"`)); p != "" {
			out = append(out, p)
		}
	}
	return out
}
