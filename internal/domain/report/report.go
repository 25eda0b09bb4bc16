// Package report turns a participant and a ranking into the flat,
// channel-agnostic parameter set handed to every delivery channel.
package report

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/okian/dons/internal/domain/model"
	"github.com/okian/dons/internal/domain/scoring"
)

const (
	// DefaultSenderLabel is used when no sender label is configured.
	DefaultSenderLabel = "Gifts Assessment"
	// DefaultReplyTo is the placeholder reply address for participants
	// without an email.
	DefaultReplyTo = "no-reply@example.com"

	notProvided  = "Not provided"
	notAvailable = "N/A"

	dateLayout = "02/01/2006"
	timeLayout = "15:04:05"
)

// Options controls the addressing of one delivery leg. Empty fields fall
// back to safe defaults.
type Options struct {
	ToEmail     string
	ToName      string
	FromName    string
	Subject     string
	SenderLabel string
	ReplyTo     string // fallback when the participant has no email
}

// Params is the parameter set understood by every channel. Field names are
// the template variables of the outgoing message.
type Params struct {
	FromName                string `json:"from_name"`
	ReplyTo                 string `json:"reply_to"`
	Message                 string `json:"message"`
	ResultsJSON             string `json:"results_json"`
	ParticipantName         string `json:"participant_name"`
	ParticipantOrganization string `json:"participant_organization"`
	ParticipantEmail        string `json:"participant_email"`
	TestDate                string `json:"test_date"`
	TestTime                string `json:"test_time"`
	TopCategory             string `json:"top_category"`
	TopScore                int    `json:"top_score"`
	ToEmail                 string `json:"to_email"`
	ToName                  string `json:"to_name"`
	Subject                 string `json:"subject"`

	Top1Name    string `json:"top1_name"`
	Top1Score   int    `json:"top1_score"`
	Top1Percent int    `json:"top1_percent"`
	Top2Name    string `json:"top2_name"`
	Top2Score   int    `json:"top2_score"`
	Top2Percent int    `json:"top2_percent"`
	Top3Name    string `json:"top3_name"`
	Top3Score   int    `json:"top3_score"`
	Top3Percent int    `json:"top3_percent"`

	ResultsTableHTML string `json:"results_table_html"`
}

// Build assembles the parameter set. It has no side effects and never fails;
// missing optional values are replaced by defaults.
func Build(p model.Participant, ranking scoring.Ranking, opts Options, now time.Time) Params {
	label := firstNonEmpty(opts.SenderLabel, DefaultSenderLabel)
	org := strings.TrimSpace(p.Organization)

	params := Params{
		FromName:                firstNonEmpty(opts.FromName, joinNonEmpty(" - ", org, label)),
		ReplyTo:                 firstNonEmpty(p.Email, opts.ReplyTo, DefaultReplyTo),
		Message:                 Text(p, ranking, now),
		ResultsJSON:             ranking.JSON(),
		ParticipantName:         p.Name,
		ParticipantOrganization: p.Organization,
		ParticipantEmail:        firstNonEmpty(p.Email, notProvided),
		TestDate:                now.Format(dateLayout),
		TestTime:                now.Format(timeLayout),
		TopCategory:             notAvailable,
		ToEmail:                 opts.ToEmail,
		ToName:                  opts.ToName,
		Subject:                 firstNonEmpty(opts.Subject, "Assessment results - "+p.Name),
		ResultsTableHTML:        Table(ranking),
	}
	if len(ranking) > 0 {
		params.TopCategory = ranking[0].Name
		params.TopScore = ranking[0].Total
	}

	top := ranking.Top(3)
	at := func(i int) scoring.Entry {
		if i < len(top) {
			return top[i]
		}
		return scoring.Entry{}
	}
	params.Top1Name, params.Top1Score, params.Top1Percent = at(0).Name, at(0).Total, at(0).Percent
	params.Top2Name, params.Top2Score, params.Top2Percent = at(1).Name, at(1).Total, at(1).Percent
	params.Top3Name, params.Top3Score, params.Top3Percent = at(2).Name, at(2).Total, at(2).Percent

	return params
}

// ForCoordinator returns the options for the coordinator copy.
func ForCoordinator(p model.Participant, address, senderLabel string) Options {
	label := firstNonEmpty(senderLabel, DefaultSenderLabel)
	return Options{
		ToEmail:     address,
		ToName:      "Coordinator " + p.Organization,
		FromName:    label,
		Subject:     "New assessment - " + p.Name,
		SenderLabel: label,
	}
}

// ForParticipant returns the options for the participant's own copy.
func ForParticipant(p model.Participant, address, senderLabel string) Options {
	label := firstNonEmpty(senderLabel, DefaultSenderLabel)
	return Options{
		ToEmail:     address,
		ToName:      p.Name,
		FromName:    joinNonEmpty(" - ", strings.TrimSpace(p.Organization), label),
		Subject:     "Your assessment results - " + p.Name,
		SenderLabel: label,
	}
}

// Text renders the human-readable report: header, top three, the full
// ranking and the interpretation legend.
func Text(p model.Participant, ranking scoring.Ranking, now time.Time) string {
	var b strings.Builder

	b.WriteString("=== GIFTS ASSESSMENT ===\n\n")
	b.WriteString("PARTICIPANT:\n")
	fmt.Fprintf(&b, "Name: %s\n", p.Name)
	fmt.Fprintf(&b, "Organization: %s\n", p.Organization)
	fmt.Fprintf(&b, "Email: %s\n", firstNonEmpty(p.Email, notProvided))
	fmt.Fprintf(&b, "Date: %s at %s\n\n", now.Format(dateLayout), now.Format(timeLayout))

	b.WriteString("=== TOP 3 ===\n")
	for i, e := range ranking.Top(3) {
		fmt.Fprintf(&b, "%s place: %s\n", ordinal(i+1), firstNonEmpty(e.Name, notAvailable))
		fmt.Fprintf(&b, "Score: %d points (%d%% of maximum)\n", e.Total, e.Percent)
	}

	b.WriteString("\n=== FULL RANKING ===\n")
	for i, e := range ranking {
		fmt.Fprintf(&b, "%d. %s: %d pts (%d%%)\n", i+1, firstNonEmpty(e.Name, notAvailable), e.Total, e.Percent)
	}

	b.WriteString("\n=== INTERPRETATION ===\n")
	b.WriteString("- High score (200+ points): primary gift, look for opportunities to develop it\n")
	b.WriteString("- Medium score (100-199 points): potential for development\n")
	b.WriteString("- Low score (0-99 points): not necessarily an area of weakness\n\n")
	b.WriteString("This report was generated automatically.\n")

	return b.String()
}

var tableTmpl = template.Must(template.New("table").Parse(`{{range .}}
<tr>
  <td style="font:12px Arial,Helvetica,sans-serif;color:#333;padding:8px;border-bottom:1px solid #f2f2f2;">{{.Rank}}</td>
  <td style="font:600 13px Arial,Helvetica,sans-serif;color:#111;padding:8px;border-bottom:1px solid #f2f2f2;">{{.Name}}</td>
  <td style="padding:8px;border-bottom:1px solid #f2f2f2;">
    <div style="width:160px;max-width:100%;height:8px;background:#eee;border-radius:6px;overflow:hidden;">
      <div style="height:8px;width:{{.Bar}}%;background:#6b5cf6;"></div>
    </div>
  </td>
  <td style="font:600 12px Arial,Helvetica,sans-serif;color:#2b2b2b;padding:8px;border-bottom:1px solid #f2f2f2;text-align:right;">{{.Total}} pts &nbsp;|&nbsp; {{.Bar}}%</td>
</tr>{{end}}`))

type tableRow struct {
	Rank  int
	Name  string
	Total int
	Bar   int
}

// Table renders the ranking as HTML table rows. The bar width is clamped to
// 0..100 for display; ranking percentages are left untouched.
func Table(ranking scoring.Ranking) string {
	rows := make([]tableRow, len(ranking))
	for i, e := range ranking {
		rows[i] = tableRow{Rank: i + 1, Name: e.Name, Total: e.Total, Bar: clamp(e.Percent, 0, 100)}
	}
	var buf bytes.Buffer
	if err := tableTmpl.Execute(&buf, rows); err != nil {
		return ""
	}
	return buf.String()
}

func clamp(v, lo, hi int) int {
	return max(lo, min(hi, v))
}

func ordinal(n int) string {
	switch n {
	case 1:
		return "1st"
	case 2:
		return "2nd"
	case 3:
		return "3rd"
	default:
		return fmt.Sprintf("%dth", n)
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

func joinNonEmpty(sep string, vals ...string) string {
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		if v != "" {
			out = append(out, v)
		}
	}
	return strings.Join(out, sep)
}
