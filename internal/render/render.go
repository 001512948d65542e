package render

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/roach88/kickoff/internal/submission"
)

// TimeLayout formats timestamps shown to moderators.
const TimeLayout = "15:04 02.01.2006"

// IsDuplicateKey reports whether key names a per-option sub-field.
func IsDuplicateKey(key string) bool {
	return strings.Count(key, "_") > 1
}

// Visible drops duplicate sub-fields, keeping order.
func Visible(fields []submission.DisplayField) []submission.DisplayField {
	out := make([]submission.DisplayField, 0, len(fields))
	for _, f := range fields {
		if IsDuplicateKey(f.Key) {
			continue
		}
		out = append(out, f)
	}
	return out
}

// ModeratorPrompt renders the review request for a new submission.
func ModeratorPrompt(sub submission.Submission) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📋 <b>New submission #%s</b>\n\n", html.EscapeString(sub.ID))
	fmt.Fprintf(&b, "📝 <b>Form:</b> %s\n", categoryText(sub.Category))
	fmt.Fprintf(&b, "🕐 <b>Received:</b> %s\n\n", sub.CreatedAt.UTC().Format(TimeLayout))

	writeFields(&b, sub)

	fmt.Fprintf(&b, "\n⚡ Approve: /approve %s", sub.ID)
	fmt.Fprintf(&b, "\n❌ Reject: /reject %s", sub.ID)
	return b.String()
}

// Details renders the full record for the details button.
func Details(sub submission.Submission) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 <b>Submission #%s</b>\n\n", html.EscapeString(sub.ID))
	fmt.Fprintf(&b, "📝 <b>Form:</b> %s\n", categoryText(sub.Category))
	fmt.Fprintf(&b, "📅 <b>Received:</b> %s\n", sub.CreatedAt.UTC().Format(TimeLayout))
	fmt.Fprintf(&b, "📊 <b>Status:</b> %s\n", sub.Status)
	if sub.DecidedAt != nil {
		fmt.Fprintf(&b, "🏁 <b>Decided:</b> %s\n", sub.DecidedAt.UTC().Format(TimeLayout))
	}
	b.WriteString("\n")

	writeFields(&b, sub)
	return strings.TrimRight(b.String(), "\n")
}

func writeFields(b *strings.Builder, sub submission.Submission) {
	p, err := sub.Parsed()
	if err != nil {
		b.WriteString("❌ <i>Payload could not be read</i>\n")
		return
	}

	fields := Visible(p.DisplayFields())
	if len(fields) == 0 {
		b.WriteString("⚠️ <i>No answers found</i>\n")
		return
	}
	for _, f := range fields {
		fmt.Fprintf(b, "%s <b>%s:</b> %s\n", Icon(f.Label), html.EscapeString(f.Label), html.EscapeString(f.Value))
	}
}

// PublicMessage renders an approved submission for the public channel.
//
// Categories with a registered Template get its curated layout; any
// other category lists every visible field under a generic headline.
func PublicMessage(pub submission.Publication) string {
	fields := Visible(pub.Fields)

	tmpl, ok := TemplateFor(pub.Category)
	if !ok {
		var b strings.Builder
		b.WriteString(DefaultHeadline)
		b.WriteString("\n\n")
		for _, f := range fields {
			fmt.Fprintf(&b, "%s <b>%s:</b> %s\n", Icon(f.Label), html.EscapeString(f.Label), html.EscapeString(f.Value))
		}
		return strings.TrimRight(b.String(), "\n")
	}

	byLabel := make(map[string]string, len(fields))
	for _, f := range fields {
		byLabel[foldLabel(f.Label)] = f.Value
	}

	var body, contacts strings.Builder
	for _, row := range tmpl.Rows {
		v, ok := lookup(byLabel, row.Labels)
		if !ok {
			continue
		}
		line := fmt.Sprintf("%s <b>%s:</b> %s", row.Icon, row.Title, html.EscapeString(v))
		if row.Contact {
			contacts.WriteString("\n" + line)
		} else {
			body.WriteString(line + "\n")
		}
	}

	return strings.TrimRight(tmpl.Headline+"\n\n"+body.String()+contacts.String(), "\n")
}

func lookup(byLabel map[string]string, labels []string) (string, bool) {
	for _, l := range labels {
		if v, ok := byLabel[foldLabel(l)]; ok {
			return v, true
		}
	}
	return "", false
}

// DecisionStamp is appended to a moderator prompt once it is decided.
func DecisionStamp(status submission.Status, at time.Time) string {
	mark := "❌ <b>REJECTED</b>"
	if status == submission.StatusApproved {
		mark = "✅ <b>APPROVED</b>"
	}
	return fmt.Sprintf("\n\n%s (%s)", mark, at.UTC().Format(TimeLayout))
}

func categoryText(category string) string {
	if category == "" {
		return "<i>unknown form</i>"
	}
	return html.EscapeString(category)
}
