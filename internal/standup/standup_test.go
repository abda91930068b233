package standup

import (
	"reflect"
	"testing"
	"time"
)

func TestClassify(t *testing.T) {
	tasks := []Task{
		{Name: "ship parser", Status: StatusDone},
		{Name: "review PR", Status: StatusInProgress},
		{Name: "write docs", Status: StatusToDo},
		{Name: "fix flaky test", Status: StatusDone},
	}

	got := Classify(tasks)
	want := Classified{
		Today:    []string{"ship parser", "WIP review PR", "fix flaky test"},
		Tomorrow: []string{"write docs"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Classify() = %+v, want %+v", got, want)
	}
}

func TestRender(t *testing.T) {
	day := time.Date(2024, time.January, 22, 9, 0, 0, 0, time.UTC)
	c := Classified{
		Today:    []string{"ship parser", "WIP review PR"},
		Tomorrow: []string{"write docs"},
	}

	got, err := Render(day, c)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	want := "Stand-up Jan 22nd\n" +
		"Today\n" +
		" • ship parser\n" +
		" • WIP review PR\n" +
		"Tomorrow\n" +
		" • write docs\n" +
		"Blocker\n" +
		" • None"
	if got != want {
		t.Errorf("Render() =\n%s\nwant\n%s", got, want)
	}
}

func TestFormatDay(t *testing.T) {
	tests := []struct {
		day  int
		want string
	}{
		{1, "Mar 1st"},
		{2, "Mar 2nd"},
		{3, "Mar 3rd"},
		{4, "Mar 4th"},
		{11, "Mar 11th"},
		{12, "Mar 12th"},
		{13, "Mar 13th"},
		{21, "Mar 21st"},
		{22, "Mar 22nd"},
		{23, "Mar 23rd"},
		{31, "Mar 31st"},
	}

	for _, tt := range tests {
		got := FormatDay(time.Date(2024, time.March, tt.day, 0, 0, 0, 0, time.UTC))
		if got != tt.want {
			t.Errorf("FormatDay(%d) = %q, want %q", tt.day, got, tt.want)
		}
	}
}

func TestTimelogTasks(t *testing.T) {
	got := TimelogTasks(Classified{Today: []string{"a", "WIP b"}, Tomorrow: []string{"c"}})
	if got != " • a\n • WIP b" {
		t.Errorf("TimelogTasks() = %q", got)
	}
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in      string
		want    Status
		wantErr bool
	}{
		{"done", StatusDone, false},
		{"IN PROGRESS", StatusInProgress, false},
		{" to do ", StatusToDo, false},
		{"blocked", "", true},
	}

	for _, tt := range tests {
		got, err := ParseStatus(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseStatus(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseStatus(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
