package assistant

import (
	"context"
	"errors"

	"github.com/pranhealth/drai/internal/directory"
	"github.com/pranhealth/drai/internal/history"
)

// fakeLLM returns canned responses, optionally per call.
type fakeLLM struct {
	responses []LLMResponse
	err       error
	calls     int
	requests  []LLMRequest
}

func (f *fakeLLM) Complete(_ context.Context, req LLMRequest) (LLMResponse, error) {
	f.requests = append(f.requests, req)
	f.calls++
	if f.err != nil {
		return LLMResponse{}, f.err
	}
	if len(f.responses) == 0 {
		return LLMResponse{Text: "ok"}, nil
	}
	idx := f.calls - 1
	if idx >= len(f.responses) {
		idx = len(f.responses) - 1
	}
	return f.responses[idx], nil
}

// fakeSource serves fixed records with per-topic error injection.
type fakeSource struct {
	doctors []directory.DoctorRecord
	plans   []directory.PlanRecord
	slots   []directory.AppointmentRecord
	records []directory.RecordEntry

	doctorsErr error
	plansErr   error
	slotsErr   error
	recordsErr error

	lastSpecialty string
	lastPatientID string
}

func (f *fakeSource) Doctors(_ context.Context, specialty string, _ int) ([]directory.DoctorRecord, error) {
	f.lastSpecialty = specialty
	if f.doctorsErr != nil {
		return nil, f.doctorsErr
	}
	return f.doctors, nil
}

func (f *fakeSource) InsurancePlans(_ context.Context, _ int) ([]directory.PlanRecord, error) {
	if f.plansErr != nil {
		return nil, f.plansErr
	}
	return f.plans, nil
}

func (f *fakeSource) AvailableSlots(_ context.Context, specialty string, _ int) ([]directory.AppointmentRecord, error) {
	f.lastSpecialty = specialty
	if f.slotsErr != nil {
		return nil, f.slotsErr
	}
	return f.slots, nil
}

func (f *fakeSource) MedicalRecords(_ context.Context, patientID string, _ int) ([]directory.RecordEntry, error) {
	f.lastPatientID = patientID
	if f.recordsErr != nil {
		return nil, f.recordsErr
	}
	return f.records, nil
}

// memHistory keeps turns in memory for pipeline tests.
type memHistory struct {
	turns     []history.Turn
	appendErr error
}

func (m *memHistory) Append(_ context.Context, turn history.Turn) error {
	if m.appendErr != nil {
		return m.appendErr
	}
	m.turns = append(m.turns, turn)
	return nil
}

func (m *memHistory) Recent(_ context.Context, senderID string, limit int) ([]history.Turn, error) {
	var out []history.Turn
	for _, t := range m.turns {
		if t.SenderID == senderID {
			out = append(out, t)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

var errSourceDown = errors.New("source down")

func testDoctors() []directory.DoctorRecord {
	return []directory.DoctorRecord{
		{DoctorID: "DR003", Name: "Michael Chen", Specialty: "Cardiology", Department: "Cardiology", Phone: "(555) 123-4569", ExperienceYears: 20, Rating: 4.7},
	}
}

func testPlans() []directory.PlanRecord {
	return []directory.PlanRecord{
		{PlanID: "PL001", Name: "Basic Health Plan", MonthlyPremium: "$150.00", Deductible: "$1000.00", Coverage: "80%", Features: []string{"Primary care"}},
	}
}
