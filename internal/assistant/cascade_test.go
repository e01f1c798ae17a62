package assistant

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateNeverEmpty(t *testing.T) {
	g := NewGenerator(nil, "", nil, nil, nil)
	c := NewClassifier(nil, "", nil)

	inputs := []string{"", "   ", "asdkjhaskdjh", "je ne comprends pas", "hello", "I have chest pain"}
	for _, input := range inputs {
		t.Run("input "+input, func(t *testing.T) {
			cls := c.Classify(context.Background(), input)
			out := g.Generate(context.Background(), input, cls, NewRetrievalContext(), nil)
			assert.NotEmpty(t, strings.TrimSpace(out))
		})
	}
}

func TestGenerateRAGStrategy(t *testing.T) {
	llm := &fakeLLM{responses: []LLMResponse{{Text: "Dr. Michael Chen is our cardiologist; would you like me to book you in?"}}}
	g := NewGenerator(llm, "model-id", nil, nil, nil)

	rctx := NewRetrievalContext()
	rctx.Doctors = testDoctors()

	out := g.Generate(context.Background(), "who is your cardiologist", Classification{}, rctx, nil)
	assert.Contains(t, out, "Michael Chen")
	require.Len(t, llm.requests, 1)
	assert.Contains(t, llm.requests[0].Messages[len(llm.requests[0].Messages)-1].Content, "Michael Chen",
		"retrieved context is embedded in the prompt")
}

func TestGenerateRejectsErrorMarkers(t *testing.T) {
	markers := []string{
		"I'm having trouble connecting to my AI brain right now.",
		"Please check that your AWS credentials are configured.",
		"There is a configuration issue on our side.",
		"I encountered a technical issue, try again later.",
	}
	for _, marker := range markers {
		t.Run(marker, func(t *testing.T) {
			llm := &fakeLLM{responses: []LLMResponse{{Text: marker}}}
			g := NewGenerator(llm, "model-id", nil, nil, nil)

			out := g.Generate(context.Background(), "hello", Classification{}, NewRetrievalContext(), nil)
			assert.NotContains(t, out, "AI brain")
			assert.NotContains(t, out, "AWS")
			assert.NotContains(t, out, "technical issue")
			assert.NotEmpty(t, out, "cascade falls to templates instead")
		})
	}
}

func TestGenerateAgentEnrichesRAGContext(t *testing.T) {
	// First call is the planner, second is the RAG completion.
	llm := &fakeLLM{responses: []LLMResponse{
		{Text: `{"table": "doctors", "specialty": "cardiology", "limit": 10, "intent": "find doctors"}`},
		{Text: "Dr. Michael Chen can see you."},
	}}
	agent := NewQueryAgent(llm, "model-id", &fakeSource{doctors: testDoctors()}, nil, nil)
	g := NewGenerator(llm, "model-id", agent, nil, nil)

	out := g.Generate(context.Background(), "find me a cardiologist", Classification{}, NewRetrievalContext(), nil)
	assert.Contains(t, out, "Michael Chen")
	require.Len(t, llm.requests, 2)
	ragPrompt := llm.requests[1].Messages[len(llm.requests[1].Messages)-1].Content
	assert.Contains(t, ragPrompt, "Michael Chen", "agent rows reach the RAG prompt")
}

func TestGenerateEmergencyTemplate(t *testing.T) {
	g := NewGenerator(nil, "", nil, nil, nil)
	cls := Classification{
		Specialty:            SpecialtyCardiology,
		SpecialtyDisplayName: "Cardiologist",
		Urgency:              UrgencyEmergency,
		Confidence:           0.7,
		Explanation:          "Based on your symptoms, I recommend seeing a cardiologist.",
	}

	out := g.Generate(context.Background(), "I have chest pain", cls, NewRetrievalContext(), nil)
	assert.Contains(t, out, "911")
	assert.Contains(t, out, "cardiologist")
	assert.Contains(t, out, "Michael Chen", "sample roster fills in when retrieval is empty")
}

func TestGenerateDoctorTemplateUsesRetrievedDoctors(t *testing.T) {
	g := NewGenerator(nil, "", nil, nil, nil)
	rctx := NewRetrievalContext()
	rctx.Doctors = testDoctors()

	out := g.Generate(context.Background(), "find me a doctor", Classification{}, rctx, nil)
	assert.Contains(t, out, "Dr. Michael Chen")
	assert.Contains(t, out, "book an appointment")
}

func TestGenerateDoctorTemplateDegradesToSample(t *testing.T) {
	g := NewGenerator(nil, "", nil, nil, nil)

	out := g.Generate(context.Background(), "find me a doctor", Classification{}, NewRetrievalContext(), nil)
	assert.Contains(t, out, "Dr. ", "sample doctors are listed")
}

func TestGenerateInsuranceTemplate(t *testing.T) {
	g := NewGenerator(nil, "", nil, nil, nil)

	out := g.Generate(context.Background(), "what insurance plans do you have", Classification{}, NewRetrievalContext(), nil)
	assert.Contains(t, out, "Basic Health Plan")
	assert.Contains(t, out, "$150.00")
}

func TestGenerateGreetingTemplate(t *testing.T) {
	g := NewGenerator(nil, "", nil, nil, nil)
	c := NewClassifier(nil, "", nil)

	cls := c.Classify(context.Background(), "Hello")
	out := g.Generate(context.Background(), "Hello", cls, NewRetrievalContext(), nil)
	assert.Contains(t, out, "Dr. AI")
	assert.Contains(t, out, "How can I help you today?")
}

func TestGenerateThanksTemplate(t *testing.T) {
	g := NewGenerator(nil, "", nil, nil, nil)

	out := g.Generate(context.Background(), "thanks, goodbye", Classification{}, NewRetrievalContext(), nil)
	assert.Contains(t, out, "You're welcome")
}

func TestGenerateCatchAll(t *testing.T) {
	g := NewGenerator(nil, "", nil, nil, nil)

	out := g.Generate(context.Background(), "xyzzy", Classification{}, NewRetrievalContext(), nil)
	assert.Contains(t, out, "healthcare needs")
}

func TestMergeContextsSuperset(t *testing.T) {
	base := NewRetrievalContext()
	base.InsurancePlans = testPlans()

	extra := NewRetrievalContext()
	extra.Doctors = testDoctors()

	merged := mergeContexts(base, extra)
	assert.Len(t, merged.InsurancePlans, 1, "nothing already retrieved is dropped")
	assert.Len(t, merged.Doctors, 1)

	// Duplicate IDs are folded, and the originals are untouched.
	again := mergeContexts(merged, extra)
	assert.Len(t, again.Doctors, 1)
	assert.Empty(t, base.Doctors)
}
