package services

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/jordan-wright/email"

	"fare-tracker/models"
	"fare-tracker/utils"
)

// Notifier is told about a finished run that found new lows or new entries.
type Notifier interface {
	Notify(ctx context.Context, r *models.Report) error
}

// LogNotifier writes the headline of a report to the log.
type LogNotifier struct {
	logger *utils.Logger
}

func NewLogNotifier(logger *utils.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, r *models.Report) error {
	subject, _ := composeMessage(r)
	n.logger.Info("[notify] %s", subject)
	return nil
}

type SMTPConfig struct {
	Server   string
	Port     int
	User     string
	Password string
	To       []string
}

// EmailNotifier mails the report to a fixed list of recipients.
type EmailNotifier struct {
	cfg SMTPConfig
}

func NewEmailNotifier(cfg SMTPConfig) *EmailNotifier {
	return &EmailNotifier{cfg: cfg}
}

func (n *EmailNotifier) Notify(_ context.Context, r *models.Report) error {
	subject, body := composeMessage(r)

	mail := email.NewEmail()
	mail.From = fmt.Sprintf("Fare Tracker <%s>", n.cfg.User)
	mail.To = n.cfg.To
	mail.Subject = subject
	mail.Text = []byte(body)

	addr := fmt.Sprintf("%s:%d", n.cfg.Server, n.cfg.Port)
	err := mail.Send(addr, smtp.PlainAuth("", n.cfg.User, n.cfg.Password, n.cfg.Server))
	if err != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		err = mail.Send(addr, nil)
	}
	if err != nil {
		return fmt.Errorf("send report email: %w", err)
	}
	return nil
}

func composeMessage(r *models.Report) (subject, body string) {
	subject = fmt.Sprintf("[%s] %d new low price(s), %d new entr%s",
		r.Trip, len(r.NewLows), len(r.NewEntries), plural(len(r.NewEntries), "y", "ies"))

	var b strings.Builder
	if len(r.NewLows) > 0 {
		b.WriteString("New low prices:\n")
		for _, d := range r.NewLows {
			fmt.Fprintf(&b, "  %s  $%d (was $%d, last seen $%d)\n",
				describe(d.ItineraryKey), d.BestPrice, d.PreviousBest, d.LastSeen)
		}
		b.WriteString("\n")
	}
	if len(r.NewEntries) > 0 {
		b.WriteString("New entries:\n")
		for _, o := range r.NewEntries {
			fmt.Fprintf(&b, "  %s  $%d\n", describe(o.ItineraryKey), o.BestPrice)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "%d searches, %d itineraries seen, %d rows in %s\n",
		r.Queries, r.BatchSize, r.LogSize, r.LogPath)
	return subject, b.String()
}

func describe(k models.ItineraryKey) string {
	return fmt.Sprintf("%s %s→%s %s–%s (%s)",
		k.Date, k.DepartCity, k.ArriveCity, k.DepartTime, k.ArriveTime, k.Duration)
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
