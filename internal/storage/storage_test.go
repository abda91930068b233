package storage

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"testing"
)

func TestCSVStoreLoad(t *testing.T) {
	tests := []struct {
		name     string
		csv      string
		wantErr  bool
		wantLine int
		wantLen  int
	}{
		{
			name:    "valid reading list",
			csv:     "id,url,read,weight\na,https://example.com/a,false,100\nb,https://example.com/b,true,50\n",
			wantLen: 2,
		},
		{
			name:    "header only",
			csv:     "id,url,read,weight\n",
			wantLen: 0,
		},
		{
			name:    "quoted url with comma",
			csv:     "id,url,read,weight\na,\"https://example.com/?q=a,b\",false,7\n",
			wantLen: 1,
		},
		{
			name:    "negative weight is still parseable",
			csv:     "id,url,read,weight\na,https://example.com/a,false,-3\n",
			wantLen: 1,
		},
		{
			name:     "invalid read flag",
			csv:      "id,url,read,weight\na,https://example.com/a,false,100\nb,https://example.com/b,maybe,50\n",
			wantErr:  true,
			wantLine: 3,
		},
		{
			name:     "invalid weight",
			csv:      "id,url,read,weight\na,https://example.com/a,false,heavy\n",
			wantErr:  true,
			wantLine: 2,
		},
		{
			name:     "weight above range",
			csv:      "id,url,read,weight\na,https://example.com/a,false,2147483648\n",
			wantErr:  true,
			wantLine: 2,
		},
		{
			name:     "weight overflowing int",
			csv:      "id,url,read,weight\na,https://example.com/a,false,9223372036854775807\nb,https://example.com/b,false,99999999999999999999\n",
			wantErr:  true,
			wantLine: 2,
		},
		{
			name:    "weight at max",
			csv:     "id,url,read,weight\na,https://example.com/a,false,2147483647\n",
			wantLen: 1,
		},
		{
			name:     "missing field",
			csv:      "id,url,read,weight\na,https://example.com/a,false\n",
			wantErr:  true,
			wantLine: 2,
		},
		{
			name:     "empty id",
			csv:      "id,url,read,weight\n,https://example.com/a,false,100\n",
			wantErr:  true,
			wantLine: 2,
		},
		{
			name:     "duplicate id",
			csv:      "id,url,read,weight\na,https://example.com/a,false,100\na,https://example.com/a2,true,50\n",
			wantErr:  true,
			wantLine: 3,
		},
		{
			name:     "wrong header",
			csv:      "priority,url,did_i_read_it,id\n",
			wantErr:  true,
			wantLine: 1,
		},
		{
			name:     "empty file",
			csv:      "",
			wantErr:  true,
			wantLine: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storePath := filepath.Join(t.TempDir(), "reading_list.csv")
			if err := os.WriteFile(storePath, []byte(tt.csv), 0600); err != nil {
				t.Fatalf("Failed to write test file: %v", err)
			}

			records, err := NewCSVStore(storePath).Load()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Load() error = %v, wantErr %v", err, tt.wantErr)
			}

			if tt.wantErr {
				var malformed *MalformedRecordError
				if !errors.As(err, &malformed) {
					t.Fatalf("Load() error = %T, want *MalformedRecordError", err)
				}
				if malformed.Line != tt.wantLine {
					t.Errorf("MalformedRecordError.Line = %d, want %d", malformed.Line, tt.wantLine)
				}
				if !errors.Is(err, ErrMalformedRecord) {
					t.Error("errors.Is(err, ErrMalformedRecord) = false")
				}
				return
			}

			if len(records) != tt.wantLen {
				t.Errorf("Load() records len = %d, want %d", len(records), tt.wantLen)
			}
		})
	}
}

func TestCSVStoreLoadNonExistent(t *testing.T) {
	store := NewCSVStore(filepath.Join(t.TempDir(), "missing.csv"))

	_, err := store.Load()
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("Load() error = %v, want ErrStoreUnavailable", err)
	}
}

func TestCSVStoreSaveRoundTrip(t *testing.T) {
	storePath := filepath.Join(t.TempDir(), "reading_list.csv")
	store := NewCSVStore(storePath)

	want := []Record{
		{ID: "a", URL: "https://example.com/a", Read: false, Weight: 100},
		{ID: "b", URL: "https://example.com/b?x=1,2", Read: true, Weight: 50},
		{ID: "c", URL: `https://example.com/"quoted"`, Read: true, Weight: 0},
	}

	if err := store.Save(want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load() after Save() error = %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Load() after Save() = %+v, want %+v", got, want)
	}

	before, err := os.ReadFile(storePath)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if err := store.Save(got); err != nil {
		t.Fatalf("second Save() error = %v", err)
	}
	after, err := os.ReadFile(storePath)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(before) != string(after) {
		t.Errorf("save(load()) changed content:\nbefore:\n%s\nafter:\n%s", before, after)
	}
}

func TestCSVStoreRoundTripIgnoresRowOrder(t *testing.T) {
	storePath := filepath.Join(t.TempDir(), "reading_list.csv")
	content := "id,url,read,weight\nz,u3,false,1\nm,u2,true,50\na,u1,false,100\n"
	if err := os.WriteFile(storePath, []byte(content), 0600); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}

	store := NewCSVStore(storePath)
	first, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := store.Save(first); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	second, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	byID := func(rs []Record) []Record {
		out := append([]Record(nil), rs...)
		sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
		return out
	}
	if !reflect.DeepEqual(byID(first), byID(second)) {
		t.Errorf("records changed across round trip: %+v vs %+v", first, second)
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("disk full")
}

func TestCSVStoreSaveFailureKeepsOriginal(t *testing.T) {
	dir := t.TempDir()
	storePath := filepath.Join(dir, "reading_list.csv")
	store := NewCSVStore(storePath)

	original := []Record{{ID: "a", URL: "https://example.com/a", Weight: 100}}
	if err := store.Save(original); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	store.wrap = func(io.Writer) io.Writer { return failingWriter{} }
	err := store.Save([]Record{
		{ID: "a", URL: "https://example.com/a", Weight: 99},
		{ID: "b", URL: "https://example.com/b", Weight: 100},
	})
	if !errors.Is(err, ErrPersistence) {
		t.Fatalf("Save() error = %v, want ErrPersistence", err)
	}

	store.wrap = nil
	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load() after failed Save() error = %v", err)
	}
	if !reflect.DeepEqual(got, original) {
		t.Errorf("Load() after failed Save() = %+v, want %+v", got, original)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 1 {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("directory has leftover files: %v", names)
	}
}

func TestCSVStoreSaveIntoMissingDirectory(t *testing.T) {
	store := NewCSVStore(filepath.Join(t.TempDir(), "nope", "reading_list.csv"))

	err := store.Save([]Record{{ID: "a", URL: "u", Weight: 1}})
	if !errors.Is(err, ErrPersistence) {
		t.Errorf("Save() error = %v, want ErrPersistence", err)
	}
}

func TestCSVStoreInit(t *testing.T) {
	storePath := filepath.Join(t.TempDir(), "data", "reading_list.csv")
	store := NewCSVStore(storePath)

	created, err := store.Init()
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if !created {
		t.Error("Init() created = false on a fresh path")
	}

	records, err := store.Load()
	if err != nil {
		t.Fatalf("Load() after Init() error = %v", err)
	}
	if len(records) != 0 {
		t.Errorf("Load() after Init() len = %d, want 0", len(records))
	}

	if err := store.Save([]Record{{ID: "a", URL: "u", Weight: 100}}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	created, err = store.Init()
	if err != nil {
		t.Fatalf("second Init() error = %v", err)
	}
	if created {
		t.Error("Init() overwrote an existing store")
	}
	records, _ = store.Load()
	if len(records) != 1 {
		t.Errorf("records after second Init() = %d, want 1", len(records))
	}
}

func TestMarshal(t *testing.T) {
	data, err := Marshal([]Record{{ID: "a", URL: "u", Read: true, Weight: 50}})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	want := "id,url,read,weight\na,u,true,50\n"
	if string(data) != want {
		t.Errorf("Marshal() = %q, want %q", data, want)
	}
}

func TestCSVStoreSaveRejectsEmptyID(t *testing.T) {
	storePath := filepath.Join(t.TempDir(), "reading_list.csv")
	store := NewCSVStore(storePath)
	if err := store.Save([]Record{{ID: "a", URL: "u", Weight: 100}}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	err := store.Save([]Record{{ID: "a", URL: "u", Weight: 100}, {ID: "", URL: "orphan", Weight: 100}})
	if !errors.Is(err, ErrPersistence) {
		t.Fatalf("Save() error = %v, want ErrPersistence", err)
	}

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load() after rejected Save() error = %v", err)
	}
	if len(got) != 1 || got[0].ID != "a" {
		t.Errorf("Load() = %+v, want the earlier content", got)
	}
}
