// Package reminders turns due medication reminders into chat messages from
// the assistant, so the user sees them in the same conversation thread.
package reminders

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"healthworks/api_assistant/internal/chat"
	"healthworks/api_assistant/pkg/logging"
)

const reminderIntent = "reminder"

type dueReminder struct {
	ID        int64
	OwnerID   int64
	Medicine  string
	Dosage    string
	Frequency string
}

// Dispatcher sweeps pending reminders whose time has come, posts each as a
// Bot chat turn and marks it sent. Failures are isolated per reminder so
// one bad row never blocks the rest of the sweep.
type Dispatcher struct {
	db       *sql.DB
	messages *chat.MessageStore
	logger   logging.Logger
	interval time.Duration
}

// NewDispatcher creates a dispatcher. interval <= 0 selects one minute.
func NewDispatcher(db *sql.DB, messages *chat.MessageStore, logger logging.Logger, interval time.Duration) *Dispatcher {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Dispatcher{
		db:       db,
		messages: messages,
		logger:   logger,
		interval: interval,
	}
}

// Run performs one sweep and returns how many reminders were sent and how
// many failed.
func (d *Dispatcher) Run(ctx context.Context) (sent, failed int, err error) {
	due, err := d.fetchDue(ctx)
	if err != nil {
		return 0, 0, err
	}

	for _, reminder := range due {
		if err := d.dispatch(ctx, reminder); err != nil {
			d.logger.WithField("reminder_id", reminder.ID).WithError(err).
				Error("Failed to dispatch reminder")
			failed++
			continue
		}
		sent++
	}
	if sent > 0 || failed > 0 {
		d.logger.WithFields(map[string]interface{}{
			"sent":   sent,
			"failed": failed,
		}).Info("Reminder sweep completed")
	}
	return sent, failed, nil
}

func (d *Dispatcher) fetchDue(ctx context.Context) ([]dueReminder, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT r.reminder_id, r.user_id, m.name, p.dosage, p.frequency
		FROM reminders r
		LEFT JOIN prescriptions p ON p.prescription_id = r.prescription_id
		LEFT JOIN medicines m ON m.medicine_id = p.medicine_id
		WHERE r.status = 'Pending' AND r.reminder_datetime <= NOW()
		ORDER BY r.reminder_datetime ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query due reminders: %w", err)
	}
	defer rows.Close()

	var due []dueReminder
	for rows.Next() {
		var (
			r                           dueReminder
			medicine, dosage, frequency sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.OwnerID, &medicine, &dosage, &frequency); err != nil {
			return nil, fmt.Errorf("failed to scan due reminder: %w", err)
		}
		r.Medicine = medicine.String
		r.Dosage = dosage.String
		r.Frequency = frequency.String
		due = append(due, r)
	}
	return due, rows.Err()
}

func (d *Dispatcher) dispatch(ctx context.Context, reminder dueReminder) error {
	text := reminderText(reminder)
	if _, err := d.messages.Insert(ctx, reminder.OwnerID, text, chat.SenderBot, reminderIntent); err != nil {
		return err
	}

	result, err := d.db.ExecContext(ctx,
		`UPDATE reminders SET status = 'Sent' WHERE reminder_id = $1 AND status = 'Pending'`,
		reminder.ID)
	if err != nil {
		return fmt.Errorf("failed to mark reminder sent: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("reminder %d was no longer pending", reminder.ID)
	}
	return nil
}

func reminderText(reminder dueReminder) string {
	var b strings.Builder
	b.WriteString("Reminder: time to take ")
	if reminder.Medicine != "" {
		b.WriteString(reminder.Medicine)
	} else {
		b.WriteString("your medication")
	}
	if reminder.Dosage != "" {
		fmt.Fprintf(&b, " (%s)", reminder.Dosage)
	}
	b.WriteString(".")
	if reminder.Frequency != "" {
		fmt.Fprintf(&b, " Frequency: %s.", reminder.Frequency)
	}
	return b.String()
}

// Start sweeps on a ticker until the context ends.
func (d *Dispatcher) Start(ctx context.Context) {
	d.logger.WithField("interval", d.interval.String()).Info("Reminder dispatcher started")
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			d.logger.Info("Reminder dispatcher stopped")
			return
		case <-ticker.C:
			if _, _, err := d.Run(ctx); err != nil {
				d.logger.WithError(err).Error("Reminder sweep failed")
			}
		}
	}
}

// Handler serves POST /reminders/run for manual or cron-driven sweeps.
func (d *Dispatcher) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		sent, failed, err := d.Run(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error":   "reminder sweep failed",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"sent":    sent,
			"failed":  failed,
		})
	}
}
