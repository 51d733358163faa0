package prompt

import (
	"strings"

	"swimcoach-be/pkg/store"
)

// DefaultPersona frames every system message.
const DefaultPersona = "You are a swimming trainer assistant. Summarize swimmer performances warmly and professionally."

// Messages is the (system, user) pair sent to the language model.
type Messages struct {
	System string
	User   string
}

// ContextualBuilder renders one prompt. Sections with no content are omitted.
type ContextualBuilder struct {
	persona   string
	query     string
	situation store.SituationalContext
	passages  []store.ScoredPassage
	session   store.SessionSnapshot
	history   string
}

func NewContextualBuilder(persona, query string) *ContextualBuilder {
	if persona == "" {
		persona = DefaultPersona
	}
	return &ContextualBuilder{persona: persona, query: query}
}

func (b *ContextualBuilder) WithSituation(sc store.SituationalContext) *ContextualBuilder {
	b.situation = sc
	return b
}

// WithPassages sets retrieved passages, already in rank order.
func (b *ContextualBuilder) WithPassages(passages []store.ScoredPassage) *ContextualBuilder {
	b.passages = passages
	return b
}

func (b *ContextualBuilder) WithSession(s store.SessionSnapshot) *ContextualBuilder {
	b.session = s
	return b
}

// WithHistory sets caller-supplied history, which replaces the session log.
func (b *ContextualBuilder) WithHistory(history string) *ContextualBuilder {
	b.history = strings.TrimSpace(history)
	return b
}

func (b *ContextualBuilder) Build() Messages {
	var system strings.Builder
	b.writeTask(&system)
	b.writeSituation(&system)
	b.writeReferenceMaterial(&system)
	b.writeHistory(&system)
	b.writeGuidelines(&system)

	var user strings.Builder
	b.writeUserEntry(&user)

	return Messages{
		System: strings.TrimRight(system.String(), "\n"),
		User:   user.String(),
	}
}

// RetrievedContext joins passage texts in rank order, separated by a blank line.
func RetrievedContext(passages []store.ScoredPassage) string {
	texts := make([]string, 0, len(passages))
	for _, p := range passages {
		texts = append(texts, p.Passage.Text)
	}
	return strings.Join(texts, "\n\n")
}

func (b *ContextualBuilder) writeTask(prompt *strings.Builder) {
	prompt.WriteString("<task>\n")
	prompt.WriteString(b.persona)
	prompt.WriteString("\n</task>\n\n")
}

func (b *ContextualBuilder) writeSituation(prompt *strings.Builder) {
	var lines []string
	if b.situation.CurrentDate != "" {
		lines = append(lines, "Today's date: "+b.situation.CurrentDate)
	}
	if b.situation.LocationName != "" {
		lines = append(lines, "Location: "+b.situation.LocationName)
	}
	if b.situation.WeatherSummary != "" {
		lines = append(lines, "Weather: "+b.situation.WeatherSummary)
	}
	if len(lines) == 0 {
		return
	}

	prompt.WriteString("<situation>\n")
	prompt.WriteString(strings.Join(lines, "\n"))
	prompt.WriteString("\n</situation>\n\n")
}

func (b *ContextualBuilder) writeReferenceMaterial(prompt *strings.Builder) {
	retrieved := RetrievedContext(b.passages)
	if retrieved == "" {
		return
	}

	prompt.WriteString("<reference_material>\n")
	prompt.WriteString("Use this past context if relevant:\n")
	prompt.WriteString(retrieved)
	prompt.WriteString("\n</reference_material>\n\n")
}

func (b *ContextualBuilder) writeHistory(prompt *strings.Builder) {
	switch {
	case b.history != "":
		prompt.WriteString("<conversation_history>\n")
		prompt.WriteString(b.history)
		prompt.WriteString("\n</conversation_history>\n\n")
	case len(b.session.Turns) > 0:
		prompt.WriteString("<conversation_history>\n")
		for _, t := range b.session.Turns {
			prompt.WriteString(speakerLabel(t.Speaker))
			prompt.WriteString(": ")
			prompt.WriteString(t.Text)
			prompt.WriteString("\n")
		}
		prompt.WriteString("</conversation_history>\n\n")
	case len(b.session.RecentEntries) > 0:
		prompt.WriteString("<recent_entries>\n")
		for _, e := range b.session.RecentEntries {
			prompt.WriteString("- ")
			prompt.WriteString(e)
			prompt.WriteString("\n")
		}
		prompt.WriteString("</recent_entries>\n\n")
	}
}

func (b *ContextualBuilder) writeGuidelines(prompt *strings.Builder) {
	prompt.WriteString("<guidelines>\n")
	prompt.WriteString("- Ground comparisons in the reference material and history when they mention the same swimmer or set\n")
	prompt.WriteString("- Mention the conditions (date, location, weather) only when they help explain the performance\n")
	prompt.WriteString("- If nothing relevant is known, summarize the entry on its own without inventing past results\n")
	prompt.WriteString("</guidelines>\n")
}

func (b *ContextualBuilder) writeUserEntry(prompt *strings.Builder) {
	prompt.WriteString("Summarize the following swimmer performance:\n")
	prompt.WriteString(b.query)
}

func speakerLabel(s store.Speaker) string {
	if s == store.SpeakerAssistant {
		return "Assistant"
	}
	return "User"
}
