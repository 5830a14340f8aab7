package stages

import (
	"strings"

	statex "github.com/techflow/careflow/agent/state"
)

// Cheap lexical signals backing the classification guards. The models carry
// the same rules in their instructions; these keep the routing honest when a
// model drifts.

var hardwareSignals = []string{
	"overheat",
	"not working",
	"won't charge",
	"wont charge",
	"won't turn on",
	"wont turn on",
	"broken",
	"cracked",
	"battery",
	"screen",
	"keeps crashing",
	"keeps restarting",
}

var cancellationSignals = []string{
	"cancel",
	"cancle",
	"terminate my",
	"end my subscription",
	"end my plan",
	"stop my subscription",
	"close my account",
	"unsubscribe",
}

var serviceValueSignals = []string{
	"don't use",
	"dont use",
	"never used",
	"never needed",
	"not worth",
	"no value",
}

var hardshipSignals = []string{
	"can't afford",
	"cant afford",
	"too expensive",
	"financial",
	"lost my job",
	"tight on money",
}

var escalationSignals = []string{
	"replacement",
	"replace",
	"repair",
	"hardware",
}

func mentionsHardware(text string) bool {
	return containsAny(text, hardwareSignals)
}

func mentionsCancellation(text string) bool {
	return containsAny(text, cancellationSignals)
}

func mentionsEscalation(text string) bool {
	return containsAny(text, escalationSignals)
}

// inferReason maps the reason keywords of the triage rules onto the enum.
// Returns ReasonUnset when nothing matches.
func inferReason(text string) statex.Reason {
	switch {
	case containsAny(text, serviceValueSignals):
		return statex.ReasonServiceValue
	case containsAny(text, hardshipSignals):
		return statex.ReasonFinancialHardship
	case mentionsHardware(text):
		return statex.ReasonProductIssues
	}
	return statex.ReasonUnset
}

func containsAny(text string, signals []string) bool {
	lowered := strings.ToLower(text)
	for _, signal := range signals {
		if strings.Contains(lowered, signal) {
			return true
		}
	}
	return false
}

// customerText concatenates every customer entry, oldest first.
func customerText(st *statex.ConversationState) string {
	var b strings.Builder
	for _, turn := range st.Transcript {
		if turn.Speaker != statex.SpeakerCustomer {
			continue
		}
		b.WriteString(turn.Text)
		b.WriteString("\n")
	}
	return b.String()
}
