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

// errorMarkers are phrases that mean an upstream component leaked an internal
// failure into response text. Such a response must never reach a patient.
var errorMarkers = []string{
	"trouble connecting to my AI brain",
	"AWS credentials are configured",
	"configuration issue",
	"encountered a technical issue",
}

// Strategy names recorded in metrics and logs.
const (
	strategyAgentRAG  = "agent_rag"
	strategyRAG       = "rag"
	strategyTemplates = "templates"
	strategyGeneric   = "generic"
)

const genericResponse = "I'm here to help with all your healthcare needs! I can assist with booking appointments, insurance information, finding doctors and specialists, symptom assessment, and accessing your medical records. What can I help you with today?"

const historyTurnBudget = 10

// Generator produces the patient-facing response through a cascade of
// strategies: structured-query agent, RAG completion, rule templates, and a
// terminal generic reply. Generate never returns an empty string and never
// surfaces an error.
type Generator struct {
	llm     LLMClient
	model   string
	agent   *QueryAgent
	sample  directory.Source
	logger  *logging.Logger
	metrics *metrics.PipelineMetrics
}

// NewGenerator creates a Generator. llm and agent may be nil; the cascade
// then starts at the template strategy.
func NewGenerator(llm LLMClient, model string, agent *QueryAgent, logger *logging.Logger, m *metrics.PipelineMetrics) *Generator {
	if logger == nil {
		logger = logging.Default()
	}
	return &Generator{
		llm:     llm,
		model:   model,
		agent:   agent,
		sample:  directory.NewSampleSource(),
		logger:  logger,
		metrics: m,
	}
}

// Generate runs the cascade. The agent's rows, when any, are folded into a
// copy of the retrieval context so the RAG strategy always sees at least what
// retrieval found.
func (g *Generator) Generate(ctx context.Context, query string, cls Classification, rctx RetrievalContext, recent []history.Turn) string {
	enriched := rctx
	agentContributed := false

	if g.agent != nil {
		if plan := g.agent.Plan(ctx, query, cls); plan != nil {
			rows := g.agent.Execute(ctx, plan)
			merged := mergeContexts(rctx, rows)
			if contextSize(merged) > contextSize(rctx) {
				enriched = merged
				agentContributed = true
			}
		}
	}

	if g.llm != nil {
		if text, ok := g.generateWithLLM(ctx, query, enriched, recent); ok {
			strategy := strategyRAG
			if agentContributed {
				strategy = strategyAgentRAG
			}
			g.metrics.ObserveStrategy(strategy)
			return text
		}
	}

	if text := g.generateFromTemplates(ctx, query, cls, enriched, recent); text != "" {
		g.metrics.ObserveStrategy(strategyTemplates)
		return text
	}

	g.metrics.ObserveStrategy(strategyGeneric)
	return genericResponse
}

func (g *Generator) generateWithLLM(ctx context.Context, query string, rctx RetrievalContext, recent []history.Turn) (string, bool) {
	prompt := strings.NewReplacer(
		"%QUERY%", query,
		"%CONTEXT%", FormatForPrompt(rctx),
	).Replace(generationPromptTemplate)

	messages := make([]ChatMessage, 0, historyTurnBudget+1)
	turns := recent
	if len(turns) > historyTurnBudget {
		turns = turns[len(turns)-historyTurnBudget:]
	}
	for _, turn := range turns {
		role := ChatRoleAssistant
		if turn.IsUser {
			role = ChatRoleUser
		}
		messages = append(messages, ChatMessage{Role: role, Content: turn.Text})
	}
	messages = append(messages, ChatMessage{Role: ChatRoleUser, Content: prompt})

	resp, err := g.llm.Complete(ctx, LLMRequest{
		Model:       g.model,
		System:      []string{systemPrompt},
		Messages:    messages,
		MaxTokens:   1000,
		Temperature: 0.7,
	})
	if err != nil {
		g.logger.Warn("rag completion failed, cascading to templates",
			"error", err.Error(),
			"error_kind", string(ClassifyLLMError(err).Kind))
		return "", false
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", false
	}
	if marker := matchErrorMarker(text); marker != "" {
		g.logger.Warn("rag completion leaked an internal error phrase, cascading", "marker", marker)
		return "", false
	}
	return text, true
}

func matchErrorMarker(text string) string {
	lower := strings.ToLower(text)
	for _, marker := range errorMarkers {
		if strings.Contains(lower, strings.ToLower(marker)) {
			return marker
		}
	}
	return ""
}

// fallbackRule pairs a predicate with a deterministic handler. The first
// matching rule wins; the last rule matches everything.
type fallbackRule struct {
	name    string
	match   func(msgLower string, cls Classification) bool
	respond func(ctx context.Context, g *Generator, query string, cls Classification, rctx RetrievalContext) string
}

var fallbackRules = []fallbackRule{
	{
		name: "urgency_override",
		match: func(_ string, cls Classification) bool {
			return cls.Urgency == UrgencyEmergency || cls.Urgency == UrgencyUrgent
		},
		respond: func(ctx context.Context, g *Generator, _ string, cls Classification, rctx RetrievalContext) string {
			return g.urgencyResponse(ctx, cls, rctx)
		},
	},
	{
		name: "doctor_search",
		match: func(msgLower string, _ Classification) bool {
			return containsAny(msgLower, doctorTopicWords)
		},
		respond: func(ctx context.Context, g *Generator, _ string, cls Classification, rctx RetrievalContext) string {
			return g.doctorListResponse(ctx, cls, rctx)
		},
	},
	{
		name: "insurance",
		match: func(msgLower string, _ Classification) bool {
			return containsAny(msgLower, insuranceTopicWords)
		},
		respond: func(ctx context.Context, g *Generator, _ string, _ Classification, rctx RetrievalContext) string {
			return g.insuranceResponse(ctx, rctx)
		},
	},
	{
		name: "symptom_specialty",
		match: func(_ string, cls Classification) bool {
			return cls.Confidence >= specialtyConfidenceFloor
		},
		respond: func(ctx context.Context, g *Generator, _ string, cls Classification, rctx RetrievalContext) string {
			return g.specialtyResponse(ctx, cls, rctx)
		},
	},
	{
		name: "booking",
		match: func(msgLower string, _ Classification) bool {
			return containsAny(msgLower, appointmentTopicWords)
		},
		respond: func(_ context.Context, _ *Generator, _ string, _ Classification, rctx RetrievalContext) string {
			return bookingResponse(rctx)
		},
	},
	{
		name: "greeting",
		match: func(msgLower string, _ Classification) bool {
			return containsAny(msgLower, []string{"hi", "hello", "hey", "greetings", "good morning", "good afternoon", "good evening", "what can you", "help"})
		},
		respond: func(context.Context, *Generator, string, Classification, RetrievalContext) string {
			return greetingResponse
		},
	},
	{
		name: "thanks",
		match: func(msgLower string, _ Classification) bool {
			return containsAny(msgLower, []string{"thanks", "thank you", "bye", "goodbye", "see you"})
		},
		respond: func(context.Context, *Generator, string, Classification, RetrievalContext) string {
			return "You're welcome! Take care, and reach out anytime you need help with doctors, appointments, or insurance. Stay healthy!"
		},
	},
	{
		name: "catch_all",
		match: func(string, Classification) bool { return true },
		respond: func(_ context.Context, _ *Generator, _ string, _ Classification, rctx RetrievalContext) string {
			return catchAllResponse(rctx)
		},
	},
}

const greetingResponse = "Hello! I'm Dr. AI, your healthcare assistant. I can help you with:\n\n" +
	"- Symptom assessment and finding the right specialist\n" +
	"- Booking appointments and checking doctor availability\n" +
	"- Insurance plans, coverage and benefits\n" +
	"- Accessing your lab results and medical records\n\n" +
	"How can I help you today?"

func (g *Generator) generateFromTemplates(ctx context.Context, query string, cls Classification, rctx RetrievalContext, _ []history.Turn) string {
	msgLower := strings.ToLower(query)
	for _, rule := range fallbackRules {
		if rule.match(msgLower, cls) {
			g.logger.Debug("template rule matched", "rule", rule.name)
			return rule.respond(ctx, g, query, cls, rctx)
		}
	}
	return ""
}

func (g *Generator) urgencyResponse(ctx context.Context, cls Classification, rctx RetrievalContext) string {
	var b strings.Builder
	if cls.Urgency == UrgencyEmergency {
		b.WriteString("This sounds like it could be a medical emergency. Please call 911 or go to your nearest emergency room immediately.\n\n")
	} else {
		b.WriteString("Your symptoms should be looked at soon. I can help you find an urgent care facility or get you an appointment quickly.\n\n")
	}
	b.WriteString(fmt.Sprintf("Based on your symptoms, the right specialist is a %s.", strings.ToLower(cls.SpecialtyDisplayName)))

	doctors := g.doctorsOrSample(ctx, cls, rctx)
	if len(doctors) > 0 {
		b.WriteString(" Here are doctors who can see you:\n\n")
		writeDoctorList(&b, doctors)
		b.WriteString("\nOnce you are safe, I can help you book with any of them.")
	}
	return b.String()
}

func (g *Generator) doctorListResponse(ctx context.Context, cls Classification, rctx RetrievalContext) string {
	doctors := g.doctorsOrSample(ctx, cls, rctx)
	if len(doctors) == 0 {
		return "I couldn't find doctors matching your request right now, but I can still help you book an appointment. Tell me your symptoms or the specialty you need and I'll take it from there."
	}

	noun := "doctor"
	if cls.Confidence >= specialtyConfidenceFloor {
		noun = strings.ToLower(cls.SpecialtyDisplayName)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "I found %d %s%s for you:\n\n", len(doctors), noun, plural(len(doctors)))
	writeDoctorList(&b, doctors)
	b.WriteString("\nWould you like to book an appointment with any of these doctors? Just tell me the doctor's name or number!")
	return b.String()
}

func (g *Generator) insuranceResponse(ctx context.Context, rctx RetrievalContext) string {
	plans := rctx.InsurancePlans
	if len(plans) == 0 {
		if fallback, err := g.sample.InsurancePlans(ctx, 5); err == nil {
			plans = fallback
		}
	}
	if len(plans) == 0 {
		return "I can help you with insurance! I can show available plans, check coverage and benefits, and explain costs. What would you like to know?"
	}

	var b strings.Builder
	b.WriteString("Available Insurance Plans:\n\n")
	for i, plan := range capN(plans, 5) {
		fmt.Fprintf(&b, "%d. %s\n", i+1, plan.Name)
		fmt.Fprintf(&b, "   Monthly Premium: %s\n", plan.MonthlyPremium)
		fmt.Fprintf(&b, "   Deductible: %s\n", plan.Deductible)
		fmt.Fprintf(&b, "   Coverage: %s\n", plan.Coverage)
		if len(plan.Features) > 0 {
			fmt.Fprintf(&b, "   Features: %s\n", strings.Join(plan.Features, ", "))
		}
		b.WriteString("\n")
	}
	b.WriteString("Would you like more details about any specific plan, or personalized recommendations based on your needs?")
	return b.String()
}

func (g *Generator) specialtyResponse(ctx context.Context, cls Classification, rctx RetrievalContext) string {
	var b strings.Builder
	b.WriteString(cls.Explanation)

	doctors := g.doctorsOrSample(ctx, cls, rctx)
	if len(doctors) > 0 {
		fmt.Fprintf(&b, "\n\nI found %d %s%s:\n\n", len(doctors), strings.ToLower(cls.SpecialtyDisplayName), plural(len(doctors)))
		writeDoctorList(&b, doctors)
		b.WriteString("\nWould you like to book an appointment with any of these doctors?")
	}
	return b.String()
}

func bookingResponse(rctx RetrievalContext) string {
	if len(rctx.Appointments) > 0 {
		var b strings.Builder
		b.WriteString("Here are the next available slots:\n\n")
		for i, slot := range capN(rctx.Appointments, 5) {
			fmt.Fprintf(&b, "%d. %s at %s with %s (%s)\n", i+1, slot.Date, slot.StartTime, slot.DoctorName, slot.Specialty)
		}
		b.WriteString("\nTell me the slot number you'd like and I'll book it for you.")
		return b.String()
	}
	return "I can help you book an appointment! Tell me your symptoms or preferred specialty, and I'll find the right doctor and show available times. Would you like to book an appointment now?"
}

func catchAllResponse(rctx RetrievalContext) string {
	enhanced := ""
	if n := len(rctx.Doctors); n > 0 {
		enhanced += fmt.Sprintf(" I found %d doctor(s) that might help.", n)
	}
	if n := len(rctx.InsurancePlans); n > 0 {
		enhanced += fmt.Sprintf(" I have %d insurance plan(s) available.", n)
	}
	if n := len(rctx.Appointments); n > 0 {
		enhanced += fmt.Sprintf(" There are %d open appointment slot(s).", n)
	}
	return "I'm here to help with all your healthcare needs! I can assist with booking appointments, insurance information, finding doctors and specialists, symptom assessment, and accessing medical records." + enhanced + " Try asking \"I need a cardiologist\", \"What insurance plans are available?\", or describe your symptoms. What can I help you with today?"
}

// doctorsOrSample prefers retrieved doctors and degrades to the sample roster
// filtered by the classified specialty.
func (g *Generator) doctorsOrSample(ctx context.Context, cls Classification, rctx RetrievalContext) []directory.DoctorRecord {
	if len(rctx.Doctors) > 0 {
		return rctx.Doctors
	}
	filter := ""
	if cls.Confidence >= specialtyConfidenceFloor {
		filter = specialtyFilterName(cls.Specialty)
	}
	doctors, err := g.sample.Doctors(ctx, filter, 5)
	if err != nil {
		return nil
	}
	return doctors
}

func writeDoctorList(b *strings.Builder, doctors []directory.DoctorRecord) {
	for i, doc := range capN(doctors, 5) {
		fmt.Fprintf(b, "%d. Dr. %s\n", i+1, doc.Name)
		fmt.Fprintf(b, "   Specialty: %s\n", doc.Specialty)
		fmt.Fprintf(b, "   Department: %s\n", doc.Department)
		if doc.Phone != "" {
			fmt.Fprintf(b, "   Phone: %s\n", doc.Phone)
		}
		if doc.ExperienceYears > 0 {
			fmt.Fprintf(b, "   Experience: %d years\n", doc.ExperienceYears)
		}
		if doc.Rating > 0 {
			fmt.Fprintf(b, "   Rating: %.1f/5\n", doc.Rating)
		}
	}
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

// mergeContexts folds b into a copy of a without dropping anything already
// retrieved, deduplicating by record ID.
func mergeContexts(a, b RetrievalContext) RetrievalContext {
	out := a.Clone()

	seenDoctors := make(map[string]bool, len(out.Doctors))
	for _, d := range out.Doctors {
		seenDoctors[d.DoctorID] = true
	}
	for _, d := range b.Doctors {
		if !seenDoctors[d.DoctorID] {
			out.Doctors = append(out.Doctors, d)
		}
	}

	seenPlans := make(map[string]bool, len(out.InsurancePlans))
	for _, p := range out.InsurancePlans {
		seenPlans[p.PlanID] = true
	}
	for _, p := range b.InsurancePlans {
		if !seenPlans[p.PlanID] {
			out.InsurancePlans = append(out.InsurancePlans, p)
		}
	}

	seenSlots := make(map[string]bool, len(out.Appointments))
	for _, s := range out.Appointments {
		seenSlots[s.SlotID] = true
	}
	for _, s := range b.Appointments {
		if !seenSlots[s.SlotID] {
			out.Appointments = append(out.Appointments, s)
		}
	}

	seenRecords := make(map[string]bool, len(out.MedicalRecords))
	for _, r := range out.MedicalRecords {
		seenRecords[r.RecordID] = true
	}
	for _, r := range b.MedicalRecords {
		if !seenRecords[r.RecordID] {
			out.MedicalRecords = append(out.MedicalRecords, r)
		}
	}

	return out
}

func contextSize(c RetrievalContext) int {
	return len(c.Doctors) + len(c.InsurancePlans) + len(c.Appointments) + len(c.MedicalRecords)
}
