package domain

// Advisor is an immutable persona descriptor generated per consultation.
// IDs are only unique within one candidate set; there is no shared advisor
// identity across consultations.
type Advisor struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"` // short relevance note for this situation
	Style       string `json:"style"`
	Principles  string `json:"principles"`
	Tone        string `json:"tone"`
}

// AdvisorAdvice is one advisor's contribution to an advice panel.
type AdvisorAdvice struct {
	AdvisorID string `json:"advisor_id"`
	Text      string `json:"text"`
}

// AdvicePanel is the combined output of an advice generation round:
// per-advisor advice plus a cross-advisor synthesis.
type AdvicePanel struct {
	Advices   []AdvisorAdvice `json:"advices"`
	Synthesis string          `json:"synthesis"`
}

// AdviceFor returns the advice text for the given advisor id.
func (p *AdvicePanel) AdviceFor(advisorID string) (string, bool) {
	for _, a := range p.Advices {
		if a.AdvisorID == advisorID {
			return a.Text, true
		}
	}
	return "", false
}
