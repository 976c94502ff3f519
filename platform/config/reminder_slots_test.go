package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultReminderSlots(t *testing.T) {
	slots := DefaultReminderSlots()

	want := []string{"08:00", "09:40", "11:30", "13:00", "14:00", "16:30", "17:30"}
	if len(slots) != len(want) {
		t.Fatalf("got %d slots, want %d", len(slots), len(want))
	}
	for i, slot := range slots {
		if slot.String() != want[i] {
			t.Errorf("slot %d = %s, want %s", i, slot, want[i])
		}
	}
}

func TestLoadReminderSlotsSortsByTimeOfDay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "slots.yaml")
	content := `slots:
  - hour: 14
    minute: 0
  - hour: 8
    minute: 30
  - hour: 8
    minute: 0
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write temp file: %v", err)
	}

	slots, err := LoadReminderSlots(path)
	if err != nil {
		t.Fatalf("LoadReminderSlots returned error: %v", err)
	}

	want := []string{"08:00", "08:30", "14:00"}
	if len(slots) != len(want) {
		t.Fatalf("got %d slots, want %d", len(slots), len(want))
	}
	for i, slot := range slots {
		if slot.String() != want[i] {
			t.Errorf("slot %d = %s, want %s", i, slot, want[i])
		}
	}
}

func TestLoadReminderSlotsRejectsInvalid(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"empty list", "slots: []\n"},
		{"hour out of range", "slots:\n  - hour: 24\n    minute: 0\n"},
		{"minute out of range", "slots:\n  - hour: 8\n    minute: 61\n"},
		{"not yaml", "{{{{\n"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "slots.yaml")
			if err := os.WriteFile(path, []byte(tc.content), 0o600); err != nil {
				t.Fatalf("write temp file: %v", err)
			}
			if _, err := LoadReminderSlots(path); err == nil {
				t.Error("invalid slots file accepted")
			}
		})
	}
}

func TestLoadReminderSlotsMissingFile(t *testing.T) {
	if _, err := LoadReminderSlots(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("missing file must error")
	}
}
