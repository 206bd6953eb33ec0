package reminders

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sirupsen/logrus"

	"healthworks/api_assistant/internal/chat"
	"healthworks/api_assistant/pkg/logging"
)

func testLogger() logging.Logger {
	logger := logging.NewLogger()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func newMockDispatcher(t *testing.T) (*Dispatcher, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewDispatcher(db, chat.NewMessageStore(db), testLogger(), 0), mock
}

func TestRunDispatchesDueReminders(t *testing.T) {
	d, mock := newMockDispatcher(t)

	due := sqlmock.NewRows([]string{"reminder_id", "user_id", "name", "dosage", "frequency"}).
		AddRow(int64(11), int64(7), "Metformin", "500mg", "twice daily")
	mock.ExpectQuery(regexp.QuoteMeta("FROM reminders r")).WillReturnRows(due)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO chat_messages")).
		WithArgs(int64(7), "Reminder: time to take Metformin (500mg). Frequency: twice daily.", chat.SenderBot, "reminder").
		WillReturnRows(sqlmock.NewRows([]string{"message_id"}).AddRow(int64(99)))

	mock.ExpectExec(regexp.QuoteMeta("UPDATE reminders SET status = 'Sent'")).
		WithArgs(int64(11)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	sent, failed, err := d.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sent != 1 || failed != 0 {
		t.Errorf("expected 1 sent / 0 failed, got %d / %d", sent, failed)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestRunIsolatesPerReminderFailures(t *testing.T) {
	d, mock := newMockDispatcher(t)

	due := sqlmock.NewRows([]string{"reminder_id", "user_id", "name", "dosage", "frequency"}).
		AddRow(int64(11), int64(7), "Metformin", "500mg", "twice daily").
		AddRow(int64(12), int64(8), "Lisinopril", nil, nil)
	mock.ExpectQuery(regexp.QuoteMeta("FROM reminders r")).WillReturnRows(due)

	// First reminder fails at the chat insert.
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO chat_messages")).
		WillReturnError(errors.New("connection reset"))

	// Second one goes through.
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO chat_messages")).
		WithArgs(int64(8), "Reminder: time to take Lisinopril.", chat.SenderBot, "reminder").
		WillReturnRows(sqlmock.NewRows([]string{"message_id"}).AddRow(int64(100)))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE reminders SET status = 'Sent'")).
		WithArgs(int64(12)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	sent, failed, err := d.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sent != 1 || failed != 1 {
		t.Errorf("expected 1 sent / 1 failed, got %d / %d", sent, failed)
	}
}

func TestRunCountsRacedReminderAsFailed(t *testing.T) {
	d, mock := newMockDispatcher(t)

	due := sqlmock.NewRows([]string{"reminder_id", "user_id", "name", "dosage", "frequency"}).
		AddRow(int64(11), int64(7), "Metformin", "500mg", "twice daily")
	mock.ExpectQuery(regexp.QuoteMeta("FROM reminders r")).WillReturnRows(due)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO chat_messages")).
		WillReturnRows(sqlmock.NewRows([]string{"message_id"}).AddRow(int64(99)))

	// Another instance already marked it sent.
	mock.ExpectExec(regexp.QuoteMeta("UPDATE reminders SET status = 'Sent'")).
		WithArgs(int64(11)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	sent, failed, err := d.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sent != 0 || failed != 1 {
		t.Errorf("expected 0 sent / 1 failed, got %d / %d", sent, failed)
	}
}

func TestReminderTextWithoutPrescription(t *testing.T) {
	text := reminderText(dueReminder{OwnerID: 7})
	if text != "Reminder: time to take your medication." {
		t.Errorf("unexpected text: %q", text)
	}
}
