package scheduler

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const TaskGenerateReminders = "reminders.generate"

const TaskDispatchNotifications = "notifications.dispatch"

const TaskAppointmentReminder = "leads.appointment.reminder"

type GenerateRemindersPayload struct {
	TriggeredAt time.Time `json:"triggeredAt"`
}

type DispatchNotificationsPayload struct {
	TriggeredAt time.Time `json:"triggeredAt"`
}

// AppointmentReminderPayload carries the lead data the day-before reminder
// needs, so the worker can write it without a round trip to the API process.
type AppointmentReminderPayload struct {
	LeadID          int64     `json:"leadId"`
	UserID          int64     `json:"userId"`
	PatientName     string    `json:"patientName"`
	AppointmentDate time.Time `json:"appointmentDate"`
}

func NewGenerateRemindersTask(payload GenerateRemindersPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskGenerateReminders, data), nil
}

func ParseGenerateRemindersPayload(task *asynq.Task) (GenerateRemindersPayload, error) {
	var payload GenerateRemindersPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return GenerateRemindersPayload{}, err
	}
	return payload, nil
}

func NewDispatchNotificationsTask(payload DispatchNotificationsPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDispatchNotifications, data), nil
}

func ParseDispatchNotificationsPayload(task *asynq.Task) (DispatchNotificationsPayload, error) {
	var payload DispatchNotificationsPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return DispatchNotificationsPayload{}, err
	}
	return payload, nil
}

func NewAppointmentReminderTask(payload AppointmentReminderPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAppointmentReminder, data), nil
}

func ParseAppointmentReminderPayload(task *asynq.Task) (AppointmentReminderPayload, error) {
	var payload AppointmentReminderPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return AppointmentReminderPayload{}, err
	}
	return payload, nil
}
