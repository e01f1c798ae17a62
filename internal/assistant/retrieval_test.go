package assistant

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pranhealth/drai/internal/directory"
	"github.com/pranhealth/drai/internal/history"
)

func TestRetrieveFieldsAlwaysNonNil(t *testing.T) {
	r := NewRetriever(&fakeSource{}, nil, nil)

	rctx := r.Retrieve(context.Background(), "completely unrelated message", "", Classification{}, nil)
	require.NotNil(t, rctx.Doctors)
	require.NotNil(t, rctx.InsurancePlans)
	require.NotNil(t, rctx.Appointments)
	require.NotNil(t, rctx.MedicalRecords)
	assert.Empty(t, rctx.Doctors)
}

func TestRetrieveTopicSelection(t *testing.T) {
	tests := []struct {
		name    string
		message string
		check   func(t *testing.T, rctx RetrievalContext)
	}{
		{
			name:    "doctor words select doctors",
			message: "can you find me a doctor",
			check: func(t *testing.T, rctx RetrievalContext) {
				assert.NotEmpty(t, rctx.Doctors)
				assert.Empty(t, rctx.InsurancePlans)
			},
		},
		{
			name:    "insurance words select plans",
			message: "what insurance coverage do you offer",
			check: func(t *testing.T, rctx RetrievalContext) {
				assert.NotEmpty(t, rctx.InsurancePlans)
				assert.Empty(t, rctx.Doctors)
			},
		},
		{
			name:    "appointment words select slots",
			message: "I want to book a visit",
			check: func(t *testing.T, rctx RetrievalContext) {
				assert.NotEmpty(t, rctx.Appointments)
			},
		},
		{
			name:    "record words select records",
			message: "show my lab results",
			check: func(t *testing.T, rctx RetrievalContext) {
				assert.NotEmpty(t, rctx.MedicalRecords)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &fakeSource{
				doctors: testDoctors(),
				plans:   testPlans(),
				slots:   []directory.AppointmentRecord{{SlotID: "SL001", DoctorName: "Michael Chen"}},
				records: []directory.RecordEntry{{RecordID: "RC001", PatientID: "PT001"}},
			}
			r := NewRetriever(src, nil, nil)
			rctx := r.Retrieve(context.Background(), tt.message, "PT001", Classification{}, nil)
			tt.check(t, rctx)
		})
	}
}

func TestRetrieveConfidentSpecialtyForcesDoctors(t *testing.T) {
	src := &fakeSource{doctors: testDoctors()}
	r := NewRetriever(src, nil, nil)

	cls := Classification{Specialty: SpecialtyCardiology, Confidence: 0.8}
	rctx := r.Retrieve(context.Background(), "my chest hurts", "", cls, nil)
	assert.NotEmpty(t, rctx.Doctors)
	assert.Equal(t, "cardiology", src.lastSpecialty)
}

func TestRetrieveLowConfidenceDoesNotForceDoctors(t *testing.T) {
	src := &fakeSource{doctors: testDoctors()}
	r := NewRetriever(src, nil, nil)

	cls := Classification{Specialty: SpecialtyCardiology, Confidence: 0.5}
	rctx := r.Retrieve(context.Background(), "something vague", "", cls, nil)
	assert.Empty(t, rctx.Doctors)
}

func TestRetrieveTopicFailureIsIsolated(t *testing.T) {
	src := &fakeSource{
		doctorsErr: errSourceDown,
		plans:      testPlans(),
	}
	r := NewRetriever(src, nil, nil)

	rctx := r.Retrieve(context.Background(), "find a doctor with insurance coverage", "", Classification{}, nil)
	assert.Empty(t, rctx.Doctors, "failed topic stays empty")
	require.NotNil(t, rctx.Doctors)
	assert.NotEmpty(t, rctx.InsurancePlans, "other topics are unaffected")
}

func TestRetrieveFollowUpInheritsTopic(t *testing.T) {
	src := &fakeSource{plans: testPlans()}
	r := NewRetriever(src, nil, nil)

	recent := []history.Turn{
		{SenderID: "user1", Text: "what insurance do you have", IsUser: true},
		{SenderID: "user1", Text: "Here are our insurance plans: Basic, Premium, Family.", IsUser: false},
	}
	rctx := r.Retrieve(context.Background(), "yes please", "", Classification{}, recent)
	assert.NotEmpty(t, rctx.InsurancePlans, "bare follow-up inherits the previous topic")
}

func TestFormatForPromptDeterministicAndCapped(t *testing.T) {
	rctx := NewRetrievalContext()
	for i := 0; i < 8; i++ {
		rctx.Doctors = append(rctx.Doctors, directory.DoctorRecord{
			DoctorID: "DR00" + string(rune('1'+i)), Name: "Doc", Specialty: "Cardiology", Rating: 4.5,
		})
	}
	rctx.InsurancePlans = testPlans()

	out := FormatForPrompt(rctx)
	assert.Equal(t, out, FormatForPrompt(rctx), "pure function")
	assert.Contains(t, out, "DOCTORS (8):")
	assert.Equal(t, 5, strings.Count(out, "  - Doc"), "at most five items per topic")
	assert.Less(t, strings.Index(out, "DOCTORS"), strings.Index(out, "INSURANCE PLANS"), "fixed topic order")
}

func TestFormatForPromptEmpty(t *testing.T) {
	assert.Equal(t, "No context available", FormatForPrompt(NewRetrievalContext()))
}
