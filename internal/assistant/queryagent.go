package assistant

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/pranhealth/drai/internal/directory"
	"github.com/pranhealth/drai/internal/observability/metrics"
	"github.com/pranhealth/drai/pkg/logging"
)

// QueryPlan is a constrained, parameterized read against exactly one
// allow-listed topic. The model never emits SQL that gets executed; it emits
// a plan, and the adapters own the queries.
type QueryPlan struct {
	Topic     directory.Topic `json:"table"`
	Specialty string          `json:"specialty"`
	PatientID string          `json:"patient_id"`
	Limit     int             `json:"limit"`
	Intent    string          `json:"intent"`
}

// writeVerbs are rejected wherever they appear in a plan.
var writeVerbs = []string{
	"insert", "update", "delete", "drop", "alter", "truncate", "create", "grant",
}

const queryAgentTimeout = 5 * time.Second

const queryAgentSchema = `TOPICS (PostgreSQL-backed, read-only):

1. doctors: doctor_id, name, specialty, department, email, phone, experience_years, rating
2. insurance_plans: plan_id, plan_name, monthly_premium, deductible, coverage_percentage, features (active plans only)
3. availability_slots: slot_id, doctor_id, date, start_time, end_time (open slots in the next 7 days, joined with doctors)
4. medical_records: record_id, patient_id, record_type, record_date, diagnosis, treatment, notes (requires patient_id)`

const queryAgentPrompt = `You are a query planner for a hospital assistant. Convert the user's question into a read plan against exactly one topic.

%SCHEMA%

USER QUERY: %QUERY%
DETECTED SPECIALTY: %SPECIALTY% (confidence %CONFIDENCE%)

RESPOND IN JSON FORMAT:
{"table": "topic_name", "specialty": "filter or empty", "patient_id": "id or empty", "limit": 10, "intent": "short description"}

EXAMPLES:

User: "find gynecologists"
Response: {"table": "doctors", "specialty": "gynecology", "patient_id": "", "limit": 10, "intent": "find doctors by specialty"}

User: "show me all insurance plans"
Response: {"table": "insurance_plans", "specialty": "", "patient_id": "", "limit": 10, "intent": "list insurance plans"}

User: "available appointment slots for a cardiologist next week"
Response: {"table": "availability_slots", "specialty": "cardiology", "patient_id": "", "limit": 20, "intent": "find open slots"}

User: "show my lab results"
Response: {"table": "medical_records", "specialty": "", "patient_id": "PATIENT_ID", "limit": 10, "intent": "patient record lookup"}

If the question cannot be answered by one of these topics respond with: {"table": ""}

Now plan the query:`

// QueryAgent plans and executes constrained reads for data-seeking questions.
type QueryAgent struct {
	llm     LLMClient
	model   string
	source  directory.Source
	logger  *logging.Logger
	metrics *metrics.PipelineMetrics
}

// NewQueryAgent creates a QueryAgent. A nil llm disables planning entirely.
func NewQueryAgent(llm LLMClient, model string, source directory.Source, logger *logging.Logger, m *metrics.PipelineMetrics) *QueryAgent {
	if source == nil {
		panic("assistant: source cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &QueryAgent{llm: llm, model: model, source: source, logger: logger, metrics: m}
}

// Plan asks the model for a read plan. A nil return with no error means the
// agent declined: the question is out of scope, the model drifted, or the
// plan failed validation. Declining is not an error; the cascade moves on.
func (a *QueryAgent) Plan(ctx context.Context, query string, cls Classification) *QueryPlan {
	if a.llm == nil {
		return nil
	}

	prompt := strings.NewReplacer(
		"%SCHEMA%", queryAgentSchema,
		"%QUERY%", query,
		"%SPECIALTY%", string(cls.Specialty),
		"%CONFIDENCE%", formatConfidence(cls.Confidence),
	).Replace(queryAgentPrompt)

	resp, err := a.llm.Complete(ctx, LLMRequest{
		Model:       a.model,
		System:      []string{"You plan read-only queries for a hospital database. Always respond with valid JSON only."},
		Messages:    []ChatMessage{{Role: ChatRoleUser, Content: prompt}},
		MaxTokens:   300,
		Temperature: 0,
	})
	if err != nil {
		a.logger.Warn("query planning failed", "error", err.Error(),
			"error_kind", string(ClassifyLLMError(err).Kind))
		return nil
	}

	content := extractJSONObject(resp.Text)
	if content == "" {
		return nil
	}
	var plan QueryPlan
	if err := json.Unmarshal([]byte(content), &plan); err != nil {
		a.logger.Warn("query plan was not valid JSON", "error", err.Error())
		return nil
	}

	if !validPlan(&plan) {
		a.logger.Warn("query plan rejected", "table", string(plan.Topic))
		return nil
	}
	return &plan
}

func validPlan(plan *QueryPlan) bool {
	if !directory.KnownTopic(plan.Topic) {
		return false
	}
	if plan.Topic == directory.TopicMedicalRecords && strings.TrimSpace(plan.PatientID) == "" {
		return false
	}
	for _, field := range []string{string(plan.Topic), plan.Specialty, plan.PatientID, plan.Intent} {
		lower := strings.ToLower(field)
		for _, verb := range writeVerbs {
			if strings.Contains(lower, verb) {
				return false
			}
		}
	}
	return true
}

// Execute runs the plan against the matching adapter and folds the rows into
// a retrieval context. Timeouts and adapter errors yield an empty context;
// the caller treats that as "the agent found nothing".
func (a *QueryAgent) Execute(ctx context.Context, plan *QueryPlan) RetrievalContext {
	out := NewRetrievalContext()
	if plan == nil {
		return out
	}

	ctx, cancel := context.WithTimeout(ctx, queryAgentTimeout)
	defer cancel()

	limit := plan.Limit
	if limit <= 0 || limit > 20 {
		limit = 10
	}

	switch plan.Topic {
	case directory.TopicDoctors:
		doctors, err := a.source.Doctors(ctx, plan.Specialty, limit)
		if err != nil {
			a.executeFailed(plan.Topic, err)
		} else if doctors != nil {
			out.Doctors = doctors
		}
	case directory.TopicInsurancePlans:
		plans, err := a.source.InsurancePlans(ctx, limit)
		if err != nil {
			a.executeFailed(plan.Topic, err)
		} else if plans != nil {
			out.InsurancePlans = plans
		}
	case directory.TopicAppointments:
		slots, err := a.source.AvailableSlots(ctx, plan.Specialty, limit)
		if err != nil {
			a.executeFailed(plan.Topic, err)
		} else if slots != nil {
			out.Appointments = slots
		}
	case directory.TopicMedicalRecords:
		records, err := a.source.MedicalRecords(ctx, plan.PatientID, limit)
		if err != nil {
			a.executeFailed(plan.Topic, err)
		} else if records != nil {
			out.MedicalRecords = records
		}
	}
	return out
}

func (a *QueryAgent) executeFailed(topic directory.Topic, err error) {
	a.logger.Warn("query plan execution failed", "topic", string(topic), "error", err.Error())
	a.metrics.ObserveAdapterFailure(string(topic))
}

func formatConfidence(c float64) string {
	switch {
	case c >= 0.8:
		return "high"
	case c >= 0.6:
		return "medium"
	default:
		return "low"
	}
}
