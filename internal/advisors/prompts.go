package advisors

import (
	"fmt"
	"strings"

	"github.com/boardview-ai/boardview/internal/domain"
)

const selectAdvisorsSystem = `You are an expert at assembling personal advisory boards. You CREATE advisors who would be most valuable for the user's specific situation. You may pick real historical or contemporary figures. Ensure diversity of fields, thinking styles, and perspectives. Make every profile rich and authentic.`

func selectAdvisorsPrompt(situation string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "USER'S SITUATION:\n%q\n\n", situation)
	fmt.Fprintf(&b, "Create exactly %d advisors for THIS situation. For each advisor provide:\n", domain.CandidateCount)
	b.WriteString(`- id: lowercase name without spaces (e.g. "mariecurie")
- name: full name or title
- description: very brief (3-5 words) why they are relevant to this situation
- style: how they think and communicate
- principles: their core philosophies and approaches
- tone: how they typically advise
`)
	return b.String()
}

const advicePanelSystem = `You are the facilitator of a personal advisory board. For each listed advisor, give advice on the user's situation in that advisor's authentic voice, grounded in their stated style, principles and tone. Then provide a synthesis that combines all perspectives into concrete recommendations. Echo each advisor's id back exactly as given; never invent new ids.`

func advicePanelPrompt(situation string, selected []domain.Advisor) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The user's situation:\n%s\n\nThe selected advisors:\n", situation)
	for _, a := range selected {
		fmt.Fprintf(&b, "\nAdvisor id: %s\nName: %s\nStyle: %s\nPrinciples: %s\nTone: %s\n",
			a.ID, a.Name, a.Style, a.Principles, a.Tone)
	}
	b.WriteString("\nProvide advice from each advisor, then a synthesis of their advice.")
	return b.String()
}

const continueDialogueSystem = `You are the facilitator of a personal advisory board answering a follow-up question. If the question addresses one advisor by name, answer ONLY from that advisor's perspective and start the answer with their name. Otherwise answer as the facilitator. Be concise and address the question directly.`

func continueDialoguePrompt(history []domain.Turn, question string) string {
	var b strings.Builder
	b.WriteString("Conversation history:\n")
	for _, t := range history {
		fmt.Fprintf(&b, "- %s: %s\n", t.Role, t.Content)
	}
	fmt.Fprintf(&b, "\nUser's new question: %s\n", question)
	return b.String()
}

const analyzeSituationSystem = `You are an expert in analyzing user situations. Identify the key aspects of the described life, work, or business situation and provide a concise summary.`

func analyzeSituationPrompt(situation string) string {
	return fmt.Sprintf("Situation: %s", situation)
}
