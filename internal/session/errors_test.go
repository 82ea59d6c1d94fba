package session

import (
	"errors"
	"testing"
)

func TestErrorMatchesKindSentinels(t *testing.T) {
	cause := errors.New("cause")
	tests := []struct {
		name string
		err  *Error
		want error
		not  error
		msg  string
	}{
		{"fetch", &Error{Kind: KindSelectionFetch, Op: "list commits", Err: cause}, ErrSelectionFetch, ErrWrite, "list commits: cause"},
		{"write", &Error{Kind: KindWrite, Op: "write", Path: "a.txt", Err: cause}, ErrWrite, ErrMutation, "write a.txt: cause"},
		{"mutation", &Error{Kind: KindMutation, Op: "commit", Err: cause}, ErrMutation, ErrValidation, "commit: cause"},
		{"validation", &Error{Kind: KindValidation, Op: "select file", Err: ErrNoCommit}, ErrValidation, ErrSelectionFetch, "select file: no commit selected"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.want) {
				t.Fatalf("expected %v to match %v", tt.err, tt.want)
			}
			if errors.Is(tt.err, tt.not) {
				t.Fatalf("did not expect %v to match %v", tt.err, tt.not)
			}
			if got := tt.err.Error(); got != tt.msg {
				t.Fatalf("Error() = %q, want %q", got, tt.msg)
			}
		})
	}
	if !errors.Is(&Error{Kind: KindWrite, Err: cause}, cause) {
		t.Fatal("wrapped cause should be reachable")
	}
}

func TestMutationRequestValidate(t *testing.T) {
	tests := []struct {
		name string
		req  MutationRequest
		want error
	}{
		{"commit ok", MutationRequest{Kind: MutationCommit, Targets: []string{"a"}, Message: "m"}, nil},
		{"rollback without message", MutationRequest{Kind: MutationRollback, Targets: []string{"a"}}, nil},
		{"no targets", MutationRequest{Kind: MutationRollback}, ErrNoTargets},
		{"blank message", MutationRequest{Kind: MutationCommit, Targets: []string{"a"}, Message: " \n"}, ErrEmptyMessage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.want == nil {
				if err != nil {
					t.Fatalf("unexpected error %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
		})
	}
	if err := (MutationRequest{Kind: "merge", Targets: []string{"a"}}).Validate(); err == nil {
		t.Fatal("unknown kind should be rejected")
	}
}
