package assert

import (
	"errors"
	"strings"
	"testing"

	"github.com/forkchoice/beacon/testing/assertions"
	"github.com/sirupsen/logrus/hooks/test"
)

func TestAssert_Equal(t *testing.T) {
	type args struct {
		tb       *assertions.TBMock
		expected interface{}
		actual   interface{}
		msgs     []interface{}
	}
	tests := []struct {
		name        string
		args        args
		expectedErr string
	}{
		{
			name: "equal values",
			args: args{
				tb:       &assertions.TBMock{},
				expected: 42,
				actual:   42,
			},
		},
		{
			name: "non-equal values",
			args: args{
				tb:       &assertions.TBMock{},
				expected: 42,
				actual:   41,
			},
			expectedErr: "Values are not equal, got: 41, want: 42",
		},
		{
			name: "custom error message",
			args: args{
				tb:       &assertions.TBMock{},
				expected: 42,
				actual:   41,
				msgs:     []interface{}{"Custom values are not equal"},
			},
			expectedErr: "Custom values are not equal, got: 41, want: 42",
		},
		{
			name: "custom error message with params",
			args: args{
				tb:       &assertions.TBMock{},
				expected: 42,
				actual:   41,
				msgs:     []interface{}{"Custom values are not equal (for slot %d)", 12},
			},
			expectedErr: "Custom values are not equal (for slot 12), got: 41, want: 42",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Equal(tt.args.tb, tt.args.expected, tt.args.actual, tt.args.msgs...)
			if !strings.Contains(tt.args.tb.ErrorfMsg, tt.expectedErr) {
				t.Errorf("got: %q, want: %q", tt.args.tb.ErrorfMsg, tt.expectedErr)
			}
		})
	}
}

func TestAssert_DeepEqual(t *testing.T) {
	type s struct{ i int }
	tb := &assertions.TBMock{}
	DeepEqual(tb, s{42}, s{42})
	if tb.ErrorfMsg != "" {
		t.Errorf("Unexpected error: %q", tb.ErrorfMsg)
	}
	DeepEqual(tb, []uint64{1, 2}, []uint64{1, 3})
	if !strings.Contains(tb.ErrorfMsg, "Values are not equal") {
		t.Errorf("Expected mismatch, got: %q", tb.ErrorfMsg)
	}
}

func TestAssert_NoError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		msgs        []interface{}
		expectedErr string
	}{
		{
			name: "nil error",
		},
		{
			name:        "non-nil error",
			err:         errors.New("failed"),
			expectedErr: "Unexpected error: failed",
		},
		{
			name:        "custom non-nil error",
			err:         errors.New("failed"),
			msgs:        []interface{}{"Custom error message"},
			expectedErr: "Custom error message: failed",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tb := &assertions.TBMock{}
			NoError(tb, tt.err, tt.msgs...)
			if !strings.Contains(tb.ErrorfMsg, tt.expectedErr) {
				t.Errorf("got: %q, want: %q", tb.ErrorfMsg, tt.expectedErr)
			}
		})
	}
}

func TestAssert_ErrorContains(t *testing.T) {
	tests := []struct {
		name        string
		want        string
		err         error
		expectedErr string
	}{
		{
			name:        "nil error",
			want:        "some error",
			expectedErr: "Expected error not returned, got: <nil>, want: some error",
		},
		{
			name:        "unexpected error",
			want:        "another error",
			err:         errors.New("failed"),
			expectedErr: "Expected error not returned, got: failed, want: another error",
		},
		{
			name: "expected error",
			want: "failed",
			err:  errors.New("failed"),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tb := &assertions.TBMock{}
			ErrorContains(tb, tt.want, tt.err)
			if !strings.Contains(tb.ErrorfMsg, tt.expectedErr) {
				t.Errorf("got: %q, want: %q", tb.ErrorfMsg, tt.expectedErr)
			}
		})
	}
}

func TestAssert_NotNil(t *testing.T) {
	tb := &assertions.TBMock{}
	var p *int
	NotNil(tb, p)
	if !strings.Contains(tb.ErrorfMsg, "Unexpected nil value") {
		t.Errorf("Expected nil pointer to be reported, got: %q", tb.ErrorfMsg)
	}
	tb = &assertions.TBMock{}
	NotNil(tb, p, "This should not be nil")
	if !strings.Contains(tb.ErrorfMsg, "This should not be nil") {
		t.Errorf("Expected custom message, got: %q", tb.ErrorfMsg)
	}
}

func TestAssert_LogsContain(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.WithField("root", "0x01").Info("Head changed")
	tb := &assertions.TBMock{}
	LogsContain(tb, hook, "Head changed")
	if tb.ErrorfMsg != "" {
		t.Errorf("Unexpected error: %q", tb.ErrorfMsg)
	}
	LogsDoNotContain(tb, hook, "Head changed")
	if !strings.Contains(tb.ErrorfMsg, "Unexpected log found") {
		t.Errorf("Expected unwanted log to be reported, got: %q", tb.ErrorfMsg)
	}
}
