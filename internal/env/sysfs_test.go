package env

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sweeney/garage-door/internal/logic"
)

// writeDevice creates a fake IIO device directory with the given files.
func writeDevice(t *testing.T, root, name string, files map[string]string) string {
	t.Helper()
	dir := filepath.Join(root, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	for f, content := range files {
		if err := os.WriteFile(filepath.Join(dir, f), []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", f, err)
		}
	}
	return dir
}

func TestSysfsReaderRead(t *testing.T) {
	dir := writeDevice(t, t.TempDir(), "iio:device0", map[string]string{
		"in_temp_input":             "22500\n",
		"in_humidityrelative_input": "45000\n",
	})

	r := NewSysfsReader(dir)
	got, err := r.Read()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(got.TemperatureF-72.5) > 1e-9 {
		t.Errorf("TemperatureF: got %v, want 72.5", got.TemperatureF)
	}
	if math.Abs(got.Humidity-45.0) > 1e-9 {
		t.Errorf("Humidity: got %v, want 45.0", got.Humidity)
	}
}

func TestSysfsReaderMissingChannel(t *testing.T) {
	dir := writeDevice(t, t.TempDir(), "iio:device0", map[string]string{
		"in_humidityrelative_input": "51200",
	})

	got, err := NewSysfsReader(dir).Read()
	if err == nil {
		t.Fatal("expected error for missing temperature channel")
	}
	if !math.IsNaN(got.TemperatureF) {
		t.Errorf("TemperatureF: got %v, want NaN", got.TemperatureF)
	}
	if math.Abs(got.Humidity-51.2) > 1e-9 {
		t.Errorf("Humidity: got %v, want 51.2", got.Humidity)
	}
}

func TestSysfsReaderGarbage(t *testing.T) {
	dir := writeDevice(t, t.TempDir(), "iio:device0", map[string]string{
		"in_temp_input":             "not-a-number",
		"in_humidityrelative_input": "",
	})

	got, err := NewSysfsReader(dir).Read()
	if err == nil {
		t.Fatal("expected parse error")
	}
	if !math.IsNaN(got.TemperatureF) || !math.IsNaN(got.Humidity) {
		t.Errorf("expected NaN reading, got %+v", got)
	}

	// NaN still formats into publishable values.
	events := logic.FormatReading(got, testTime)
	if events[0].Value != "NaN" || events[1].Value != "NaN" {
		t.Errorf("unexpected values %q, %q", events[0].Value, events[1].Value)
	}
}

func TestFindDevice(t *testing.T) {
	root := t.TempDir()
	writeDevice(t, root, "iio:device0", map[string]string{"name": "ads1015\n"})
	want := writeDevice(t, root, "iio:device1", map[string]string{"name": "dht11\n"})

	got, err := FindDevice(root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != want {
		t.Errorf("FindDevice: got %q, want %q", got, want)
	}
}

func TestFindDeviceNone(t *testing.T) {
	root := t.TempDir()
	writeDevice(t, root, "iio:device0", map[string]string{"name": "ads1015"})

	_, err := FindDevice(root)
	if !errors.Is(err, ErrNoDevice) {
		t.Errorf("expected ErrNoDevice, got %v", err)
	}
}

func TestFindDeviceMissingRoot(t *testing.T) {
	_, err := FindDevice(filepath.Join(t.TempDir(), "missing"))
	if err == nil {
		t.Error("expected error for missing root")
	}
}

func TestFakeReader(t *testing.T) {
	f := NewFakeReader(logic.Reading{TemperatureF: 70, Humidity: 40}, logic.Reading{TemperatureF: 71, Humidity: 41})

	first, _ := f.Read()
	second, _ := f.Read()
	third, _ := f.Read()

	if first.TemperatureF != 70 || second.TemperatureF != 71 || third.TemperatureF != 71 {
		t.Errorf("unexpected sequence: %v %v %v", first, second, third)
	}
	if f.Calls != 3 {
		t.Errorf("Calls: got %d, want 3", f.Calls)
	}
}

var testTime = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
