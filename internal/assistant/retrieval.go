package assistant

import (
	"context"
	"fmt"
	"strings"

	"github.com/pranhealth/drai/internal/directory"
	"github.com/pranhealth/drai/internal/history"
	"github.com/pranhealth/drai/internal/observability/metrics"
	"github.com/pranhealth/drai/pkg/logging"
)

// RetrievalContext is the aggregated context handed to response generation.
// All four fields are always non-nil; an empty slice means "nothing found or
// the source failed", which downstream code treats identically.
type RetrievalContext struct {
	Doctors        []directory.DoctorRecord
	InsurancePlans []directory.PlanRecord
	Appointments   []directory.AppointmentRecord
	MedicalRecords []directory.RecordEntry
}

// NewRetrievalContext returns an empty context with all fields allocated.
func NewRetrievalContext() RetrievalContext {
	return RetrievalContext{
		Doctors:        []directory.DoctorRecord{},
		InsurancePlans: []directory.PlanRecord{},
		Appointments:   []directory.AppointmentRecord{},
		MedicalRecords: []directory.RecordEntry{},
	}
}

// Clone returns a deep-enough copy: slices are copied so the caller can
// append without touching the original.
func (c RetrievalContext) Clone() RetrievalContext {
	return RetrievalContext{
		Doctors:        append([]directory.DoctorRecord{}, c.Doctors...),
		InsurancePlans: append([]directory.PlanRecord{}, c.InsurancePlans...),
		Appointments:   append([]directory.AppointmentRecord{}, c.Appointments...),
		MedicalRecords: append([]directory.RecordEntry{}, c.MedicalRecords...),
	}
}

// Topic keyword vocabularies. A hit opts the topic into the retrieval union.
var (
	doctorTopicWords = []string{
		"doctor", "physician", "specialist", "dr.", "find", "recommend",
		"cardiologist", "neurologist", "dermatologist", "pediatrician",
		"gynecologist", "psychiatrist", "available doctor", "any doctor",
	}
	insuranceTopicWords = []string{
		"insurance", "plan", "coverage", "benefit", "premium", "deductible", "policy",
	}
	appointmentTopicWords = []string{
		"appointment", "book", "schedule", "slot", "visit", "availability", "available time",
	}
	recordTopicWords = []string{
		"lab", "test", "result", "report", "medical record", "diagnosis",
		"treatment", "prescription", "history", "blood test", "x-ray", "scan",
	}
)

const (
	retrievalLimit = 10
	// Below this confidence a specialty guess does not force doctor retrieval.
	specialtyConfidenceFloor = 0.6
	// How many prior assistant turns the follow-up scan inspects.
	followUpScanDepth = 2
)

// Retriever aggregates per-topic context from the data source adapters.
type Retriever struct {
	source  directory.Source
	logger  *logging.Logger
	metrics *metrics.PipelineMetrics
}

// NewRetriever creates a Retriever over the supplied source.
func NewRetriever(source directory.Source, logger *logging.Logger, m *metrics.PipelineMetrics) *Retriever {
	if source == nil {
		panic("assistant: source cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Retriever{source: source, logger: logger, metrics: m}
}

// Retrieve selects topics from the message, the classification and the recent
// history, then queries each selected adapter. A failing topic leaves its
// field empty and never affects the other topics.
func (r *Retriever) Retrieve(ctx context.Context, message, patientID string, cls Classification, recent []history.Turn) RetrievalContext {
	out := NewRetrievalContext()
	msgLower := strings.ToLower(message)

	wantDoctors := containsAny(msgLower, doctorTopicWords)
	wantInsurance := containsAny(msgLower, insuranceTopicWords)
	wantAppointments := containsAny(msgLower, appointmentTopicWords)
	wantRecords := containsAny(msgLower, recordTopicWords)

	// A confident symptom classification forces the doctor topic so the
	// generator can name concrete specialists.
	specialtyFilter := ""
	if cls.Confidence >= specialtyConfidenceFloor && cls.Specialty != "" {
		wantDoctors = true
		specialtyFilter = specialtyFilterName(cls.Specialty)
	}

	// Short follow-ups ("yes", "the second one") carry no topic words of
	// their own; inherit the topic the assistant last talked about.
	switch previousTopic(recent) {
	case directory.TopicDoctors:
		wantDoctors = true
	case directory.TopicInsurancePlans:
		wantInsurance = true
	case directory.TopicAppointments:
		wantAppointments = true
	case directory.TopicMedicalRecords:
		wantRecords = true
	}

	if wantDoctors {
		doctors, err := r.source.Doctors(ctx, specialtyFilter, retrievalLimit)
		if err != nil {
			r.failTopic(directory.TopicDoctors, err)
		} else if doctors != nil {
			out.Doctors = doctors
		}
	}
	if wantInsurance {
		plans, err := r.source.InsurancePlans(ctx, retrievalLimit)
		if err != nil {
			r.failTopic(directory.TopicInsurancePlans, err)
		} else if plans != nil {
			out.InsurancePlans = plans
		}
	}
	if wantAppointments {
		slots, err := r.source.AvailableSlots(ctx, specialtyFilter, retrievalLimit)
		if err != nil {
			r.failTopic(directory.TopicAppointments, err)
		} else if slots != nil {
			out.Appointments = slots
		}
	}
	if wantRecords {
		records, err := r.source.MedicalRecords(ctx, patientID, retrievalLimit)
		if err != nil {
			r.failTopic(directory.TopicMedicalRecords, err)
		} else if records != nil {
			out.MedicalRecords = records
		}
	}

	return out
}

func (r *Retriever) failTopic(topic directory.Topic, err error) {
	r.logger.Warn("retrieval topic failed", "topic", string(topic), "error", err.Error())
	r.metrics.ObserveAdapterFailure(string(topic))
}

// previousTopic scans the most recent assistant turns for the topic they
// covered, newest first.
func previousTopic(recent []history.Turn) directory.Topic {
	seen := 0
	for i := len(recent) - 1; i >= 0 && seen < followUpScanDepth; i-- {
		if recent[i].IsUser {
			continue
		}
		seen++
		text := strings.ToLower(recent[i].Text)
		switch {
		case strings.Contains(text, "insurance") || strings.Contains(text, "plan"):
			return directory.TopicInsurancePlans
		case strings.Contains(text, "appointment") || strings.Contains(text, "slot"):
			return directory.TopicAppointments
		case strings.Contains(text, "record") || strings.Contains(text, "diagnosis"):
			return directory.TopicMedicalRecords
		case strings.Contains(text, "doctor") || strings.Contains(text, "dr."):
			return directory.TopicDoctors
		}
	}
	return ""
}

// specialtyFilterName converts a specialty key into the containment filter
// the adapters match against ("general_medicine" -> "general medicine").
func specialtyFilterName(s Specialty) string {
	return strings.ReplaceAll(string(s), "_", " ")
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

// FormatForPrompt renders the context as the plain-text block embedded in the
// generation prompt. It is pure: same context in, same string out. At most
// five items per topic are listed.
func FormatForPrompt(c RetrievalContext) string {
	const perTopic = 5
	var parts []string

	if len(c.Doctors) > 0 {
		parts = append(parts, fmt.Sprintf("DOCTORS (%d):", len(c.Doctors)))
		for _, d := range capN(c.Doctors, perTopic) {
			parts = append(parts, fmt.Sprintf("  - %s (%s, %d yrs, rating %.1f)", d.Name, d.Specialty, d.ExperienceYears, d.Rating))
		}
	}
	if len(c.InsurancePlans) > 0 {
		parts = append(parts, fmt.Sprintf("INSURANCE PLANS (%d):", len(c.InsurancePlans)))
		for _, p := range capN(c.InsurancePlans, perTopic) {
			parts = append(parts, fmt.Sprintf("  - %s (%s/month, %s coverage)", p.Name, p.MonthlyPremium, p.Coverage))
		}
	}
	if len(c.Appointments) > 0 {
		parts = append(parts, fmt.Sprintf("AVAILABLE SLOTS (%d):", len(c.Appointments)))
		for _, a := range capN(c.Appointments, perTopic) {
			parts = append(parts, fmt.Sprintf("  - %s with %s (%s) at %s", a.Date, a.DoctorName, a.Specialty, a.StartTime))
		}
	}
	if len(c.MedicalRecords) > 0 {
		parts = append(parts, fmt.Sprintf("MEDICAL RECORDS (%d):", len(c.MedicalRecords)))
		for _, rec := range capN(c.MedicalRecords, perTopic) {
			parts = append(parts, fmt.Sprintf("  - %s %s: %s", rec.RecordDate, rec.RecordType, rec.Diagnosis))
		}
	}

	if len(parts) == 0 {
		return "No context available"
	}
	return strings.Join(parts, "\n")
}

func capN[T any](in []T, n int) []T {
	if len(in) > n {
		return in[:n]
	}
	return in
}
