package backup

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

type fakeS3 struct {
	in   *s3.PutObjectInput
	body string
	err  error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.in = in
	data, _ := io.ReadAll(in.Body)
	f.body = string(data)
	if f.err != nil {
		return nil, f.err
	}
	return &s3.PutObjectOutput{}, nil
}

func TestKey(t *testing.T) {
	tests := []struct {
		prefix string
		want   string
	}{
		{"", "reading_list.csv"},
		{"backups", "backups/reading_list.csv"},
		{"backups/", "backups/reading_list.csv"},
		{"daily/dayflow/", "daily/dayflow/reading_list.csv"},
	}

	for _, tt := range tests {
		if got := Key(tt.prefix); got != tt.want {
			t.Errorf("Key(%q) = %q, want %q", tt.prefix, got, tt.want)
		}
	}
}

func TestUpload(t *testing.T) {
	fake := &fakeS3{}
	b := newS3Backup(fake, Config{Bucket: "dayflow", Prefix: "me"}, nil)

	data := "id,url,read,weight\na,https://a.example,false,100\n"
	if err := b.Upload(context.Background(), []byte(data)); err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	if aws.ToString(fake.in.Bucket) != "dayflow" {
		t.Errorf("Bucket = %q", aws.ToString(fake.in.Bucket))
	}
	if aws.ToString(fake.in.Key) != "me/reading_list.csv" {
		t.Errorf("Key = %q", aws.ToString(fake.in.Key))
	}
	if aws.ToString(fake.in.ContentType) != "text/csv" {
		t.Errorf("ContentType = %q", aws.ToString(fake.in.ContentType))
	}
	if fake.body != data {
		t.Errorf("body = %q, want %q", fake.body, data)
	}
}

func TestUpload_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{
			name:     "api error",
			err:      &smithy.GenericAPIError{Code: "AccessDenied", Message: "denied"},
			wantCode: "AccessDenied",
		},
		{
			name: "transport error",
			err:  errors.New("connection refused"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newS3Backup(&fakeS3{err: tt.err}, Config{Bucket: "dayflow"}, nil)

			err := b.Upload(context.Background(), []byte("x"))
			if !errors.Is(err, tt.err) {
				t.Fatalf("Upload() error = %v, want wrapping %v", err, tt.err)
			}
			if tt.wantCode != "" && !strings.Contains(err.Error(), tt.wantCode) {
				t.Errorf("Upload() error = %v, want code %s", err, tt.wantCode)
			}
		})
	}
}

func TestNewS3Backup_RequiresBucket(t *testing.T) {
	if _, err := NewS3Backup(context.Background(), Config{}, nil); err == nil {
		t.Error("NewS3Backup() should fail without a bucket")
	}
}
