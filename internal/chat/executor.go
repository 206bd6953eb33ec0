package chat

import (
	"context"
	"encoding/json"
	"fmt"

	"healthworks/api_assistant/internal/patientdata"
	"healthworks/api_assistant/pkg/logging"
)

// PatientData is the read surface the tool handlers need.
type PatientData interface {
	ActivePrescriptions(ctx context.Context, ownerID int64) ([]patientdata.Prescription, error)
	UpcomingReminders(ctx context.Context, ownerID int64, limit int) ([]patientdata.Reminder, error)
	RecentHealthRecords(ctx context.Context, ownerID int64, limit int) ([]patientdata.HealthRecord, error)
	TodaysSchedule(ctx context.Context, ownerID int64) (patientdata.Schedule, error)
	CareTeam(ctx context.Context, ownerID int64) ([]patientdata.Doctor, error)
}

const toolResultLimit = 10

type toolHandler struct {
	// summary is the user-facing error text when the handler fails.
	summary string
	run     func(ctx context.Context, ownerID int64) (any, error)
}

// Executor runs tool calls against patient data. Every outcome, including
// unknown names and handler failures, is returned as a JSON payload string
// so the model can react to it; Execute never fails upward.
type Executor struct {
	handlers map[string]toolHandler
	logger   logging.Logger
}

// NewExecutor builds the executor with one handler per registered tool.
func NewExecutor(data PatientData, logger logging.Logger) *Executor {
	e := &Executor{
		handlers: make(map[string]toolHandler),
		logger:   logger,
	}

	e.handlers["get_prescriptions"] = toolHandler{
		summary: "Could not retrieve prescriptions.",
		run: func(ctx context.Context, ownerID int64) (any, error) {
			prescriptions, err := data.ActivePrescriptions(ctx, ownerID)
			if err != nil {
				return nil, err
			}
			message := "No active prescriptions found."
			if len(prescriptions) > 0 {
				message = fmt.Sprintf("Found %d active prescription(s).", len(prescriptions))
			}
			return map[string]any{
				"message":       message,
				"prescriptions": emptyIfNil(prescriptions),
			}, nil
		},
	}

	e.handlers["get_reminders"] = toolHandler{
		summary: "Could not retrieve reminders.",
		run: func(ctx context.Context, ownerID int64) (any, error) {
			reminders, err := data.UpcomingReminders(ctx, ownerID, toolResultLimit)
			if err != nil {
				return nil, err
			}
			message := "No upcoming reminders found."
			if len(reminders) > 0 {
				message = fmt.Sprintf("Found %d upcoming reminder(s).", len(reminders))
			}
			return map[string]any{
				"message":   message,
				"reminders": emptyIfNil(reminders),
			}, nil
		},
	}

	e.handlers["get_health_records"] = toolHandler{
		summary: "Could not retrieve health records.",
		run: func(ctx context.Context, ownerID int64) (any, error) {
			records, err := data.RecentHealthRecords(ctx, ownerID, toolResultLimit)
			if err != nil {
				return nil, err
			}
			payload := map[string]any{
				"message":        "No health records found.",
				"health_records": emptyIfNil(records),
			}
			if len(records) > 0 {
				payload["message"] = fmt.Sprintf("Found %d recent health record(s).", len(records))
				payload["latest"] = records[0]
			}
			return payload, nil
		},
	}

	e.handlers["get_todays_schedule"] = toolHandler{
		summary: "Could not retrieve today's schedule.",
		run: func(ctx context.Context, ownerID int64) (any, error) {
			schedule, err := data.TodaysSchedule(ctx, ownerID)
			if err != nil {
				return nil, err
			}
			return map[string]any{
				"message":            "Here is today's schedule.",
				"todays_reminders":   schedule.TodaysReminders,
				"active_medications": schedule.ActiveMedications,
			}, nil
		},
	}

	e.handlers["get_doctors"] = toolHandler{
		summary: "Could not retrieve doctors.",
		run: func(ctx context.Context, ownerID int64) (any, error) {
			team, err := data.CareTeam(ctx, ownerID)
			if err != nil {
				return nil, err
			}
			payload := map[string]any{
				"message": "No doctors found.",
				"doctors": emptyIfNil(team),
			}
			if len(team) > 0 {
				payload["message"] = fmt.Sprintf("Found %d doctor(s).", len(team))
				if team[0].Primary {
					payload["primary_doctor"] = team[0]
				}
			}
			return payload, nil
		},
	}

	return e
}

// Execute runs the named tool for the owner and returns its JSON payload.
func (e *Executor) Execute(ctx context.Context, name string, ownerID int64) (result string) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.WithField("tool", name).Errorf("Tool handler panicked: %v", r)
			result = errorPayload("tool execution failed", fmt.Sprintf("%v", r))
		}
	}()

	handler, ok := e.handlers[name]
	if !ok {
		e.logger.WithField("tool", name).Warn("Unknown tool requested")
		return errorPayload(fmt.Sprintf("unknown function: %s", name), "")
	}

	payload, err := handler.run(ctx, ownerID)
	if err != nil {
		e.logger.WithField("tool", name).WithError(err).Error("Tool execution failed")
		return errorPayload(handler.summary, err.Error())
	}

	encoded, err := json.Marshal(payload)
	if err != nil {
		e.logger.WithField("tool", name).WithError(err).Error("Failed to encode tool result")
		return errorPayload(handler.summary, err.Error())
	}
	return string(encoded)
}

func errorPayload(message, details string) string {
	payload := map[string]string{"error": message}
	if details != "" {
		payload["details"] = details
	}
	encoded, _ := json.Marshal(payload)
	return string(encoded)
}

// emptyIfNil keeps empty result sets as [] instead of null in the JSON the
// model sees.
func emptyIfNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
