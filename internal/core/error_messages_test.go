package core

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{
			name:     "nil error returns empty",
			err:      nil,
			wantCode: "",
		},
		{
			name:     "retrieval timeout sentinel",
			err:      Fail(KindRetrieval, "retrieve", fmt.Errorf("wait: %w", ErrRetrievalTimeout)),
			wantCode: "RET001",
		},
		{
			name:     "retrieval kind without sentinel",
			err:      Fail(KindRetrieval, "retrieve", errors.New("navigate: net::ERR_NAME_NOT_RESOLVED")),
			wantCode: "RET002",
		},
		{
			name:     "bad zip archive",
			err:      Fail(KindConversion, "decode", errors.New("open archive: zip: not a valid zip file")),
			wantCode: "CNV001",
		},
		{
			name:     "archive without region files",
			err:      Fail(KindConversion, "decode", errors.New("archive holds no .csv region files")),
			wantCode: "CNV003",
		},
		{
			name:     "conversion kind",
			err:      Fail(KindConversion, "decode", errors.New("2 of 17 regions failed")),
			wantCode: "CNV002",
		},
		{
			name:     "publish kind",
			err:      Fail(KindPublish, "publish", errors.New("put: access denied")),
			wantCode: "PUB001",
		},
		{
			name:     "missing input sentinel",
			err:      Fail(KindMissingInput, "merge", ErrMissingInput),
			wantCode: "MRG001",
		},
		{
			name:     "persist kind",
			err:      Fail(KindPersist, "merge", errors.New("write output: no space left on device")),
			wantCode: "MRG002",
		},
		{
			name:     "lock held",
			err:      Fail(KindLock, "lock", ErrLockHeld),
			wantCode: "RUN001",
		},
		{
			name:     "cancelled context",
			err:      Fail(KindPublish, "publish", context.Canceled),
			wantCode: "RUN002",
		},
		{
			name:     "unknown error returns default",
			err:      errors.New("some random internal error"),
			wantCode: "ERR000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
		})
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"config", Fail(KindConfig, "config", errors.New("bad")), ExitConfig},
		{"retrieval", Fail(KindRetrieval, "retrieve", ErrRetrievalTimeout), ExitRetrieval},
		{"conversion", Fail(KindConversion, "decode", errors.New("bad")), ExitConversion},
		{"publish", Fail(KindPublish, "publish", errors.New("bad")), ExitPublish},
		{"missing input", Fail(KindMissingInput, "merge", ErrMissingInput), ExitMissingInput},
		{"lock", Fail(KindLock, "lock", ErrLockHeld), ExitLock},
		{"cancelled", Fail(KindConversion, "decode", context.Canceled), ExitCancelled},
		{"untyped", errors.New("boom"), ExitPersist},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestFail_PreservesCause(t *testing.T) {
	cause := errors.New("root cause")
	err := Fail(KindPublish, "publish", fmt.Errorf("rename: %w", cause))

	if !errors.Is(err, cause) {
		t.Fatal("errors.Is should find the wrapped cause")
	}
	var se *StageError
	if !errors.As(err, &se) {
		t.Fatal("errors.As should find *StageError")
	}
	if se.Stage != "publish" || se.Kind != KindPublish {
		t.Errorf("StageError = {%q, %v}, want {publish, publish}", se.Stage, se.Kind)
	}
	if Fail(KindPublish, "publish", nil) != nil {
		t.Error("Fail(nil) should return nil")
	}
}

func TestFormatUserError(t *testing.T) {
	got := FormatUserError(Fail(KindLock, "lock", ErrLockHeld))
	want := "[RUN001] " + msgLock.Message + ". " + msgLock.Action
	if got != want {
		t.Errorf("FormatUserError() = %q, want %q", got, want)
	}
}
