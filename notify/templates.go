package notify

import (
	"fmt"
	"html/template"
	"strings"
)

type messageTemplate struct {
	title string
	body  string
	level string
}

var templates = map[string]messageTemplate{
	ManuscriptSubmitted: {
		title: "Manuscript received: {{title}}",
		body:  "Your manuscript \"{{title}}\" was received on {{date}} and is awaiting editorial screening.",
		level: LevelSuccess,
	},
	EditorAssigned: {
		title: "You are handling \"{{title}}\"",
		body:  "{{actor}} assigned you as handling editor of manuscript #{{manuscriptId}} \"{{title}}\".",
		level: LevelInfo,
	},
	ReviewerAssigned: {
		title: "Review invitation: {{title}}",
		body:  "You have been invited to review \"{{title}}\" (round {{round}}). Please accept or decline the invitation. The review is due on {{dueDate}}.",
		level: LevelInfo,
	},
	AssignmentAccepted: {
		title: "Reviewer accepted: {{title}}",
		body:  "{{reviewer}} accepted the invitation to review \"{{title}}\" (round {{round}}).",
		level: LevelInfo,
	},
	AssignmentDeclined: {
		title: "Reviewer declined: {{title}}",
		body:  "{{reviewer}} declined the invitation to review \"{{title}}\" (round {{round}}). Reason: {{reason}}",
		level: LevelWarning,
	},
	ReviewSubmitted: {
		title: "Review submitted: {{title}}",
		body:  "{{reviewer}} submitted a review of \"{{title}}\" (round {{round}}) recommending {{recommendation}}.",
		level: LevelInfo,
	},
	RoundCompleted: {
		title: "All reviews received: {{title}}",
		body:  "Every reviewer of round {{round}} for \"{{title}}\" has submitted. The manuscript is ready for a decision.",
		level: LevelSuccess,
	},
	ReviewReminder: {
		title: "Review overdue: {{title}}",
		body:  "Your review of \"{{title}}\" (round {{round}}) was due on {{dueDate}}. Please submit it as soon as possible.",
		level: LevelWarning,
	},
	DecisionRecorded: {
		title: "Editorial decision: {{title}}",
		body:  "The editor recorded the decision \"{{decision}}\" for your manuscript \"{{title}}\".\n{{comments}}",
		level: LevelInfo,
	},
	RevisionSubmitted: {
		title: "Revision received: {{title}}",
		body:  "A revised version of \"{{title}}\" was submitted for round {{round}}.",
		level: LevelInfo,
	},
	PaymentRequested: {
		title: "Publication charge: {{title}}",
		body:  "Your accepted manuscript \"{{title}}\" has a publication charge of {{amount}} {{currency}}. Publication follows once payment is confirmed.",
		level: LevelInfo,
	},
	PaymentConfirmed: {
		title: "Payment confirmed: {{title}}",
		body:  "We received your payment of {{amount}} {{currency}} for \"{{title}}\".",
		level: LevelSuccess,
	},
	ManuscriptPublished: {
		title: "Published: {{title}}",
		body:  "Your manuscript \"{{title}}\" has been published.",
		level: LevelSuccess,
	},
	SelectionChanged: {
		title: "Selected articles: {{title}}",
		body:  "Your manuscript \"{{title}}\" {{selection}}.",
		level: LevelInfo,
	},
	QueryReceived: {
		title: "New query: {{subject}}",
		body:  "{{name}} <{{email}}> wrote:\n{{message}}",
		level: LevelInfo,
	},
	QueryAnswered: {
		title: "Re: {{subject}}",
		body:  "{{reply}}",
		level: LevelInfo,
	},
}

func applyPlaceholders(text string, data map[string]string) string {
	result := text
	for key, value := range data {
		result = strings.ReplaceAll(result, "{{"+key+"}}", value)
	}
	return result
}

func render(key string, data map[string]string) (string, string, string) {
	tmpl, ok := templates[key]
	if !ok {
		return key, "", LevelInfo
	}
	return applyPlaceholders(tmpl.title, data), strings.TrimSpace(applyPlaceholders(tmpl.body, data)), tmpl.level
}

func buildEmailHTML(subject, recipientName, message, link string) string {
	name := strings.TrimSpace(recipientName)
	if name == "" {
		name = "colleague"
	}

	escapedSubject := template.HTMLEscapeString(subject)
	escapedGreeting := template.HTMLEscapeString(fmt.Sprintf("Dear %s,", name))
	escapedMessage := template.HTMLEscapeString(strings.TrimSpace(message))
	escapedMessage = strings.ReplaceAll(strings.ReplaceAll(escapedMessage, "\r\n", "\n"), "\r", "\n")
	escapedMessage = strings.ReplaceAll(escapedMessage, "\n", "<br />")

	buttonSection := ""
	if strings.TrimSpace(link) != "" {
		buttonSection = fmt.Sprintf(`<div style="text-align:center;margin:24px 0 0 0;">
<a href="%s" style="display:inline-block;padding:12px 28px;background-color:#2563eb;color:#ffffff;text-decoration:none;border-radius:999px;font-weight:600;">Open manuscript</a>
</div>`, template.HTMLEscapeString(link))
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>%s</title>
</head>
<body style="margin:0;padding:0;background-color:#f9fafb;font-family:'Segoe UI',Tahoma,Arial,sans-serif;">
<div style="max-width:640px;margin:0 auto;padding:24px 20px;">
  <div style="background-color:#ffffff;border:1px solid #e5e7eb;border-radius:12px;padding:24px 24px 28px 24px;">
    <p style="margin:0 0 16px 0;font-size:16px;line-height:1.7;color:#111827;">%s</p>
    <p style="margin:0 0 0 0;font-size:16px;line-height:1.7;color:#111827;word-break:break-word;">%s</p>
    %s
  </div>
</div>
</body>
</html>`, escapedSubject, escapedGreeting, escapedMessage, buttonSection)
}
