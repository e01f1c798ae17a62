package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pranhealth/drai/pkg/logging"
)

// Specialty is one of the fixed medical specialty keys the hospital routes to.
type Specialty string

const (
	SpecialtyGeneralMedicine  Specialty = "general_medicine"
	SpecialtyCardiology       Specialty = "cardiology"
	SpecialtyGynecology       Specialty = "gynecology"
	SpecialtyNeurology        Specialty = "neurology"
	SpecialtyDermatology      Specialty = "dermatology"
	SpecialtyPediatrics       Specialty = "pediatrics"
	SpecialtyOrthopedics      Specialty = "orthopedics"
	SpecialtyPsychiatry       Specialty = "psychiatry"
	SpecialtyGastroenterology Specialty = "gastroenterology"
	SpecialtyEndocrinology    Specialty = "endocrinology"
	SpecialtyUrology          Specialty = "urology"
	SpecialtyENT              Specialty = "ent"
	SpecialtyOphthalmology    Specialty = "ophthalmology"
	SpecialtyPulmonology      Specialty = "pulmonology"
)

// specialtyOrder fixes scoring tie-breaks; map iteration order must never
// decide a recommendation.
var specialtyOrder = []Specialty{
	SpecialtyGeneralMedicine,
	SpecialtyCardiology,
	SpecialtyGynecology,
	SpecialtyNeurology,
	SpecialtyDermatology,
	SpecialtyPediatrics,
	SpecialtyOrthopedics,
	SpecialtyPsychiatry,
	SpecialtyGastroenterology,
	SpecialtyEndocrinology,
	SpecialtyUrology,
	SpecialtyENT,
	SpecialtyOphthalmology,
	SpecialtyPulmonology,
}

var symptomVocabulary = map[Specialty][]string{
	SpecialtyGeneralMedicine: {
		"fever", "cold", "cough", "flu", "viral", "infection", "headache", "body ache",
		"fatigue", "weakness", "nausea", "vomiting", "diarrhea", "constipation",
		"common cold", "sore throat", "runny nose", "congestion",
	},
	SpecialtyCardiology: {
		"chest pain", "heart pain", "palpitations", "irregular heartbeat", "shortness of breath",
		"high blood pressure", "hypertension", "low blood pressure", "hypotension",
		"heart attack", "cardiac", "heart disease", "chest discomfort", "dizziness",
		"swollen ankles", "heart murmur", "arrhythmia",
	},
	SpecialtyGynecology: {
		"menstrual", "period", "pregnancy", "pregnant", "maternity", "gynecological",
		"pelvic pain", "vaginal", "ovarian", "uterine", "menopause", "fertility",
		"prenatal", "postnatal", "breast", "pap smear", "contraception",
	},
	SpecialtyNeurology: {
		"headache", "migraine", "severe headache", "dizziness", "vertigo", "seizure",
		"epilepsy", "tremor", "parkinson", "alzheimer", "memory loss", "confusion",
		"numbness", "tingling", "weakness in limbs", "stroke", "brain", "neurological",
	},
	SpecialtyDermatology: {
		"rash", "skin", "acne", "eczema", "psoriasis", "dermatitis", "mole", "wart",
		"itching", "hives", "allergy", "skin infection", "fungal", "bacterial skin",
		"hair loss", "alopecia", "nail", "dermatological",
	},
	SpecialtyPediatrics: {
		"child", "baby", "infant", "toddler", "pediatric", "children", "kids",
		"childhood", "vaccination", "immunization", "growth", "development",
		"newborn", "teenager", "adolescent",
	},
	SpecialtyOrthopedics: {
		"bone", "fracture", "broken bone", "joint pain", "arthritis", "back pain",
		"spine", "knee pain", "hip pain", "shoulder pain", "elbow pain", "wrist pain",
		"sports injury", "orthopedic", "musculoskeletal", "ligament", "tendon",
	},
	SpecialtyPsychiatry: {
		"depression", "anxiety", "stress", "mental health", "psychiatric", "therapy",
		"counseling", "panic attack", "phobia", "bipolar", "schizophrenia", "suicidal",
		"emotional", "mood", "behavioral", "addiction", "substance abuse",
	},
	SpecialtyGastroenterology: {
		"stomach pain", "abdominal pain", "acid reflux", "gerd", "ulcer", "indigestion",
		"bloating", "gas", "ibs", "crohn", "colitis", "liver", "gallbladder",
		"pancreas", "digestive", "gastrointestinal",
	},
	SpecialtyEndocrinology: {
		"diabetes", "blood sugar", "glucose", "thyroid", "hormone", "metabolism",
		"weight gain", "weight loss", "insulin", "diabetic", "hypothyroidism",
		"hyperthyroidism", "adrenal", "pituitary",
	},
	SpecialtyUrology: {
		"urinary", "bladder", "kidney", "prostate", "uti", "urinary tract infection",
		"kidney stone", "incontinence", "erectile", "urological",
	},
	SpecialtyENT: {
		"ear pain", "hearing loss", "ear infection", "sinus", "sinusitis", "nasal",
		"nose", "throat", "tonsil", "laryngitis", "hoarse voice", "ear nose throat",
	},
	SpecialtyOphthalmology: {
		"eye", "vision", "blurred vision", "eye pain", "red eye", "cataract",
		"glaucoma", "retina", "ophthalmic", "ophthalmological",
	},
	SpecialtyPulmonology: {
		"asthma", "copd", "breathing", "lung", "pneumonia", "bronchitis", "respiratory",
		"shortness of breath", "wheezing", "cough", "pulmonary",
	},
}

var specialtyDisplayNames = map[Specialty]string{
	SpecialtyGeneralMedicine:  "General Physician",
	SpecialtyCardiology:       "Cardiologist",
	SpecialtyGynecology:       "Gynecologist",
	SpecialtyNeurology:        "Neurologist",
	SpecialtyDermatology:      "Dermatologist",
	SpecialtyPediatrics:       "Pediatrician",
	SpecialtyOrthopedics:      "Orthopedic Surgeon",
	SpecialtyPsychiatry:       "Psychiatrist",
	SpecialtyGastroenterology: "Gastroenterologist",
	SpecialtyEndocrinology:    "Endocrinologist",
	SpecialtyUrology:          "Urologist",
	SpecialtyENT:              "ENT Specialist",
	SpecialtyOphthalmology:    "Ophthalmologist",
	SpecialtyPulmonology:      "Pulmonologist",
}

// KnownSpecialty reports whether key is one of the fixed specialty keys.
func KnownSpecialty(key string) bool {
	_, ok := symptomVocabulary[Specialty(key)]
	return ok
}

// DisplayName returns the patient-facing name for a specialty key.
func DisplayName(s Specialty) string {
	if name, ok := specialtyDisplayNames[s]; ok {
		return name
	}
	return specialtyDisplayNames[SpecialtyGeneralMedicine]
}

// Urgency is the triage level attached to a classification.
type Urgency string

const (
	UrgencyRoutine   Urgency = "routine"
	UrgencyUrgent    Urgency = "urgent"
	UrgencyEmergency Urgency = "emergency"
)

var emergencyPhrases = []string{
	"chest pain", "difficulty breathing", "severe", "emergency", "can't breathe", "unconscious",
}

var urgentPhrases = []string{
	"high fever", "persistent", "severe pain", "worsening",
}

// commonSymptoms is scanned when no richer symptom extraction is available.
var commonSymptoms = []string{
	"fever", "cough", "headache", "pain", "nausea", "vomiting", "diarrhea",
}

// Classification is the classifier output consumed by retrieval and the
// response cascade.
type Classification struct {
	Symptoms             []string `json:"symptoms"`
	Specialty            Specialty `json:"recommended_specialty"`
	SpecialtyDisplayName string    `json:"specialty_display_name"`
	Urgency              Urgency   `json:"urgency"`
	Confidence           float64   `json:"confidence"`
	Explanation          string    `json:"explanation"`
}

// Classifier maps a raw patient message to symptoms, a specialty and an
// urgency level. The LLM path is attempted first when a client is configured;
// the vocabulary rule path is both the fallback and the validator of last
// resort. Classify never returns an error.
type Classifier struct {
	llm    LLMClient
	model  string
	logger *logging.Logger
}

// NewClassifier creates a Classifier. A nil llm disables the LLM path.
func NewClassifier(llm LLMClient, model string, logger *logging.Logger) *Classifier {
	if logger == nil {
		logger = logging.Default()
	}
	return &Classifier{llm: llm, model: model, logger: logger}
}

// Classify analyzes the message. Urgency detection runs on the raw message
// and is never demoted by the specialty score or by the LLM.
func (c *Classifier) Classify(ctx context.Context, message string) Classification {
	urgency := detectUrgency(message)

	if c.llm != nil {
		if result, ok := c.classifyWithLLM(ctx, message); ok {
			if urgencyRank(urgency) > urgencyRank(result.Urgency) {
				result.Urgency = urgency
			}
			return result
		}
	}

	return ruleClassify(message)
}

func (c *Classifier) classifyWithLLM(ctx context.Context, message string) (Classification, bool) {
	prompt := buildClassifyPrompt(message)

	resp, err := c.llm.Complete(ctx, LLMRequest{
		Model:       c.model,
		System:      []string{"You are a medical AI assistant. Analyze symptoms and recommend appropriate medical specialties. Always respond with valid JSON only."},
		Messages:    []ChatMessage{{Role: ChatRoleUser, Content: prompt}},
		MaxTokens:   1000,
		Temperature: 0,
	})
	if err != nil {
		c.logger.Warn("llm classification failed, using rules",
			"error", err.Error(),
			"error_kind", string(ClassifyLLMError(err).Kind))
		return Classification{}, false
	}

	var result Classification
	content := extractJSONObject(resp.Text)
	if content == "" {
		return Classification{}, false
	}
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		c.logger.Warn("llm classification returned unparseable JSON, using rules", "error", err.Error())
		return Classification{}, false
	}

	// Out-of-range output means the model drifted; the rule path is
	// authoritative then.
	if !KnownSpecialty(string(result.Specialty)) {
		return Classification{}, false
	}
	switch result.Urgency {
	case UrgencyRoutine, UrgencyUrgent, UrgencyEmergency:
	default:
		return Classification{}, false
	}
	if result.Confidence < 0 || result.Confidence > 1 {
		return Classification{}, false
	}
	if result.SpecialtyDisplayName == "" {
		result.SpecialtyDisplayName = DisplayName(result.Specialty)
	}
	if result.Symptoms == nil {
		result.Symptoms = []string{}
	}
	return result, true
}

func ruleClassify(message string) Classification {
	msgLower := strings.ToLower(message)

	var best Specialty
	bestScore := 0
	for _, specialty := range specialtyOrder {
		score := 0
		for _, symptom := range symptomVocabulary[specialty] {
			if strings.Contains(msgLower, symptom) {
				score++
			}
		}
		if score > bestScore {
			best = specialty
			bestScore = score
		}
	}

	specialty := SpecialtyGeneralMedicine
	confidence := 0.5
	if bestScore > 0 {
		specialty = best
		confidence = min(0.9, 0.5+float64(bestScore)*0.1)
	}

	urgency := detectUrgency(message)

	symptoms := []string{}
	for _, s := range commonSymptoms {
		if strings.Contains(msgLower, s) {
			symptoms = append(symptoms, s)
		}
	}
	if len(symptoms) == 0 {
		symptoms = []string{"symptoms mentioned"}
	}

	display := DisplayName(specialty)
	explanation := fmt.Sprintf("Based on your symptoms, I recommend seeing a %s. ", strings.ToLower(display))
	switch urgency {
	case UrgencyEmergency:
		explanation += "This appears to be an emergency - please seek immediate medical care or call 911."
	case UrgencyUrgent:
		explanation += "This should be addressed soon - I can help you find an urgent care facility or schedule an appointment."
	default:
		explanation += "I can help you find a doctor and book an appointment."
	}

	return Classification{
		Symptoms:             symptoms,
		Specialty:            specialty,
		SpecialtyDisplayName: display,
		Urgency:              urgency,
		Confidence:           confidence,
		Explanation:          explanation,
	}
}

func detectUrgency(message string) Urgency {
	msgLower := strings.ToLower(message)
	for _, phrase := range emergencyPhrases {
		if strings.Contains(msgLower, phrase) {
			return UrgencyEmergency
		}
	}
	for _, phrase := range urgentPhrases {
		if strings.Contains(msgLower, phrase) {
			return UrgencyUrgent
		}
	}
	return UrgencyRoutine
}

func urgencyRank(u Urgency) int {
	switch u {
	case UrgencyEmergency:
		return 2
	case UrgencyUrgent:
		return 1
	default:
		return 0
	}
}

func buildClassifyPrompt(message string) string {
	var b strings.Builder
	b.WriteString("Analyze these symptoms and recommend the appropriate medical specialty:\n\n")
	b.WriteString("USER MESSAGE: ")
	b.WriteString(message)
	b.WriteString("\n\nSYMPTOM TO SPECIALTY MAPPING:\n")
	for _, specialty := range specialtyOrder {
		fmt.Fprintf(&b, "- %s: %s\n", specialty, strings.Join(symptomVocabulary[specialty], ", "))
	}
	b.WriteString(`
Analyze the symptoms and determine:
1. What symptoms are mentioned?
2. Which medical specialty is most appropriate?
3. What is the urgency level? (routine, urgent, emergency)
4. Why this specialty was recommended?

Respond in JSON format:
{
  "symptoms": ["symptom1", "symptom2"],
  "recommended_specialty": "specialty_key",
  "specialty_display_name": "Display Name",
  "urgency": "routine|urgent|emergency",
  "confidence": 0.0-1.0,
  "explanation": "Brief explanation"
}

SPECIALTY KEYS: `)
	keys := make([]string, len(specialtyOrder))
	for i, s := range specialtyOrder {
		keys[i] = string(s)
	}
	b.WriteString(strings.Join(keys, ", "))
	b.WriteString(`

URGENCY GUIDELINES:
- emergency: chest pain, difficulty breathing, severe trauma, loss of consciousness, severe allergic reaction
- urgent: high fever (>103F), severe pain, persistent vomiting, signs of infection
- routine: common cold, mild symptoms, checkups, non-urgent concerns

Now analyze the symptoms:`)
	return b.String()
}

// extractJSONObject pulls the outermost {...} from an LLM reply, which may
// surround the JSON with prose.
func extractJSONObject(content string) string {
	content = strings.TrimSpace(content)
	startIdx := strings.Index(content, "{")
	endIdx := strings.LastIndex(content, "}")
	if startIdx >= 0 && endIdx > startIdx {
		return content[startIdx : endIdx+1]
	}
	return ""
}
