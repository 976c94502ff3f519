package config

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// ReminderSlot is a time-of-day slot at which an appointment reminder fires.
// Slots are explicit hour/minute pairs rather than decimal hours so conversion
// cannot lose minutes to floating-point rounding.
type ReminderSlot struct {
	Hour   int `yaml:"hour"`
	Minute int `yaml:"minute"`
}

// String renders the slot as HH:MM.
func (s ReminderSlot) String() string {
	return fmt.Sprintf("%02d:%02d", s.Hour, s.Minute)
}

// DefaultReminderSlots returns the built-in reminder schedule:
// 08:00, 09:40, 11:30, 13:00, 14:00, 16:30, 17:30.
func DefaultReminderSlots() []ReminderSlot {
	return []ReminderSlot{
		{Hour: 8, Minute: 0},
		{Hour: 9, Minute: 40},
		{Hour: 11, Minute: 30},
		{Hour: 13, Minute: 0},
		{Hour: 14, Minute: 0},
		{Hour: 16, Minute: 30},
		{Hour: 17, Minute: 30},
	}
}

type reminderSlotsFile struct {
	Slots []ReminderSlot `yaml:"slots"`
}

// LoadReminderSlots reads a YAML file overriding the reminder schedule.
// The file holds a `slots` list of {hour, minute} entries; slots are
// validated and returned sorted by time of day.
func LoadReminderSlots(path string) ([]ReminderSlot, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var parsed reminderSlotsFile
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	if len(parsed.Slots) == 0 {
		return nil, fmt.Errorf("%s: no slots defined", path)
	}

	for _, slot := range parsed.Slots {
		if slot.Hour < 0 || slot.Hour > 23 || slot.Minute < 0 || slot.Minute > 59 {
			return nil, fmt.Errorf("%s: invalid slot %02d:%02d", path, slot.Hour, slot.Minute)
		}
	}

	slots := make([]ReminderSlot, len(parsed.Slots))
	copy(slots, parsed.Slots)
	sort.Slice(slots, func(i, j int) bool {
		if slots[i].Hour != slots[j].Hour {
			return slots[i].Hour < slots[j].Hour
		}
		return slots[i].Minute < slots[j].Minute
	})

	return slots, nil
}
