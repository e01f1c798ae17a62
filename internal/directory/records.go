// Package directory exposes read-only views of the operational hospital
// database: the doctor directory, the insurance catalog, appointment
// availability, and patient medical records. Each source maps its own schema
// onto one normalized record type per topic at this boundary, so downstream
// consumers never deal with optional fields.
package directory

// Topic names the four queryable data domains.
type Topic string

const (
	TopicDoctors        Topic = "doctors"
	TopicInsurancePlans Topic = "insurance_plans"
	TopicAppointments   Topic = "availability_slots"
	TopicMedicalRecords Topic = "medical_records"
)

// KnownTopic reports whether t is one of the four queryable topics.
func KnownTopic(t Topic) bool {
	switch t {
	case TopicDoctors, TopicInsurancePlans, TopicAppointments, TopicMedicalRecords:
		return true
	}
	return false
}

// DoctorRecord is an immutable snapshot of a doctor directory row.
type DoctorRecord struct {
	DoctorID        string
	Name            string
	Specialty       string
	Department      string
	Email           string
	Phone           string
	ExperienceYears int
	Rating          float64
}

// PlanRecord is an immutable snapshot of an insurance catalog row.
type PlanRecord struct {
	PlanID         string
	Name           string
	MonthlyPremium string
	Deductible     string
	Coverage       string
	Features       []string
}

// AppointmentRecord is an immutable snapshot of an open availability slot.
type AppointmentRecord struct {
	SlotID     string
	DoctorID   string
	DoctorName string
	Specialty  string
	Department string
	Date       string
	StartTime  string
	EndTime    string
	Status     string
}

// RecordEntry is an immutable snapshot of a medical record row.
type RecordEntry struct {
	RecordID   string
	PatientID  string
	RecordType string
	RecordDate string
	Diagnosis  string
	Treatment  string
	Notes      string
}
