package directory

import "context"

// Source is the read-only adapter contract the retrieval pipeline depends on.
// Implementations apply their own query timeouts; a failed lookup returns an
// error rather than partial data, and callers degrade that topic to empty.
type Source interface {
	Doctors(ctx context.Context, specialty string, limit int) ([]DoctorRecord, error)
	InsurancePlans(ctx context.Context, limit int) ([]PlanRecord, error)
	AvailableSlots(ctx context.Context, specialty string, limit int) ([]AppointmentRecord, error)
	MedicalRecords(ctx context.Context, patientID string, limit int) ([]RecordEntry, error)
}
