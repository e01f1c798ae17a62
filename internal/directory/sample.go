package directory

import (
	"context"
	"strings"
)

// SampleSource serves the fixed sample dataset used when the database is
// unreachable or empty. The pipeline's rule templates also reach for this
// data directly, so the user never sees a bare "no data" answer.
type SampleSource struct{}

// NewSampleSource returns the fallback Source.
func NewSampleSource() *SampleSource {
	return &SampleSource{}
}

var sampleDoctors = []DoctorRecord{
	{DoctorID: "DR001", Name: "Sarah Johnson", Specialty: "General Medicine", Department: "General Medicine", Email: "sarah.johnson@hospital.com", Phone: "(555) 123-4567", ExperienceYears: 15, Rating: 4.8},
	{DoctorID: "DR002", Name: "Emily Williams", Specialty: "Gynecology", Department: "Women's Health", Email: "emily.williams@hospital.com", Phone: "(555) 123-4568", ExperienceYears: 12, Rating: 4.9},
	{DoctorID: "DR003", Name: "Michael Chen", Specialty: "Cardiology", Department: "Cardiology", Email: "michael.chen@hospital.com", Phone: "(555) 123-4569", ExperienceYears: 20, Rating: 4.7},
	{DoctorID: "DR004", Name: "Lisa Anderson", Specialty: "Pediatrics", Department: "Pediatrics", Email: "lisa.anderson@hospital.com", Phone: "(555) 123-4570", ExperienceYears: 10, Rating: 4.9},
	{DoctorID: "DR005", Name: "David Martinez", Specialty: "Neurology", Department: "Neurology", Email: "david.martinez@hospital.com", Phone: "(555) 123-4571", ExperienceYears: 18, Rating: 4.6},
	{DoctorID: "DR006", Name: "Jessica Taylor", Specialty: "Dermatology", Department: "Dermatology", Email: "jessica.taylor@hospital.com", Phone: "(555) 123-4572", ExperienceYears: 8, Rating: 4.8},
	{DoctorID: "DR007", Name: "Robert Brown", Specialty: "Orthopedics", Department: "Orthopedics", Email: "robert.brown@hospital.com", Phone: "(555) 123-4573", ExperienceYears: 22, Rating: 4.7},
	{DoctorID: "DR008", Name: "Amanda Garcia", Specialty: "Psychiatry", Department: "Mental Health", Email: "amanda.garcia@hospital.com", Phone: "(555) 123-4574", ExperienceYears: 14, Rating: 4.9},
}

var samplePlans = []PlanRecord{
	{PlanID: "PL001", Name: "Basic Health Plan", MonthlyPremium: "$150.00", Deductible: "$1000.00", Coverage: "80%", Features: []string{"Primary care", "Emergency visits", "Basic prescriptions"}},
	{PlanID: "PL002", Name: "Premium Health Plan", MonthlyPremium: "$300.00", Deductible: "$500.00", Coverage: "90%", Features: []string{"All basic features", "Specialist visits", "Mental health", "Dental & Vision"}},
	{PlanID: "PL003", Name: "Family Health Plan", MonthlyPremium: "$450.00", Deductible: "$750.00", Coverage: "85%", Features: []string{"All premium features", "Family coverage", "Maternity care", "Pediatric care"}},
}

var sampleSlots = []AppointmentRecord{
	{SlotID: "SL001", DoctorID: "DR001", DoctorName: "Sarah Johnson", Specialty: "General Medicine", Department: "General Medicine", Date: "tomorrow", StartTime: "09:00", EndTime: "09:30", Status: "available"},
	{SlotID: "SL002", DoctorID: "DR003", DoctorName: "Michael Chen", Specialty: "Cardiology", Department: "Cardiology", Date: "tomorrow", StartTime: "11:00", EndTime: "11:30", Status: "available"},
	{SlotID: "SL003", DoctorID: "DR002", DoctorName: "Emily Williams", Specialty: "Gynecology", Department: "Women's Health", Date: "in 2 days", StartTime: "14:00", EndTime: "14:30", Status: "available"},
}

// Doctors filters the sample list by case-insensitive containment against
// specialty and department. When the filter matches nothing the full list is
// returned, mirroring the degrade behavior of the original dataset.
func (s *SampleSource) Doctors(_ context.Context, specialty string, limit int) ([]DoctorRecord, error) {
	if specialty == "" {
		return truncate(sampleDoctors, limit), nil
	}
	needle := strings.ToLower(specialty)
	var out []DoctorRecord
	for _, d := range sampleDoctors {
		if strings.Contains(strings.ToLower(d.Specialty), needle) ||
			strings.Contains(strings.ToLower(d.Department), needle) {
			out = append(out, d)
		}
	}
	if len(out) == 0 {
		out = sampleDoctors
	}
	return truncate(out, limit), nil
}

// InsurancePlans returns the sample plan catalog.
func (s *SampleSource) InsurancePlans(_ context.Context, limit int) ([]PlanRecord, error) {
	return truncate(samplePlans, limit), nil
}

// AvailableSlots returns sample open slots, filtered by specialty when given.
func (s *SampleSource) AvailableSlots(_ context.Context, specialty string, limit int) ([]AppointmentRecord, error) {
	if specialty == "" {
		return truncate(sampleSlots, limit), nil
	}
	needle := strings.ToLower(specialty)
	var out []AppointmentRecord
	for _, slot := range sampleSlots {
		if strings.Contains(strings.ToLower(slot.Specialty), needle) {
			out = append(out, slot)
		}
	}
	if len(out) == 0 {
		out = sampleSlots
	}
	return truncate(out, limit), nil
}

// MedicalRecords returns nothing: sample data never fabricates patient
// history.
func (s *SampleSource) MedicalRecords(_ context.Context, _ string, _ int) ([]RecordEntry, error) {
	return nil, nil
}

func truncate[T any](in []T, limit int) []T {
	if limit <= 0 || limit >= len(in) {
		return append([]T(nil), in...)
	}
	return append([]T(nil), in[:limit]...)
}
