package validation

import (
	"errors"
	"testing"
	"time"

	"kindergarten/internal/models"
)

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		name    string
		email   string
		wantErr bool
	}{
		{
			name:    "valid email",
			email:   "test@example.com",
			wantErr: false,
		},
		{
			name:    "valid email with subdomain",
			email:   "staff@mail.silelis.lt",
			wantErr: false,
		},
		{
			name:    "missing @",
			email:   "testexample.com",
			wantErr: true,
		},
		{
			name:    "missing local part",
			email:   "@example.com",
			wantErr: true,
		},
		{
			name:    "empty string",
			email:   "",
			wantErr: true,
		},
		{
			name:    "spaces in email",
			email:   "test @example.com",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEmail(tt.email)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateEmail(%q) error = %v, wantErr %v", tt.email, err, tt.wantErr)
			}
		})
	}
}

func TestValidateRegistration(t *testing.T) {
	tests := []struct {
		name    string
		reg     models.Registration
		wantMsg string
	}{
		{
			name:    "valid",
			reg:     models.Registration{Email: "a@silelis.lt", Password: "pw", ConfirmPassword: "pw"},
			wantMsg: "",
		},
		{
			name:    "missing confirmation",
			reg:     models.Registration{Email: "a@silelis.lt", Password: "pw"},
			wantMsg: MsgAllRequired,
		},
		{
			name:    "mismatch",
			reg:     models.Registration{Email: "a@silelis.lt", Password: "pw", ConfirmPassword: "wp"},
			wantMsg: MsgPasswordMatch,
		},
		{
			name:    "bad email",
			reg:     models.Registration{Email: "nope", Password: "pw", ConfirmPassword: "pw"},
			wantMsg: "invalid email format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRegistration(tt.reg)
			if tt.wantMsg == "" {
				if err != nil {
					t.Fatalf("ValidateRegistration() unexpected error: %v", err)
				}
				return
			}
			var verr ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("ValidateRegistration() error = %v, want ValidationError", err)
			}
			if verr.Message != tt.wantMsg {
				t.Errorf("message = %q, want %q", verr.Message, tt.wantMsg)
			}
		})
	}
}

func TestValidateChild(t *testing.T) {
	today := time.Date(2025, time.June, 15, 14, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		first, last string
		dob         string
		want        FieldErrors
	}{
		{
			name:  "valid",
			first: "Ana", last: "Ana", dob: "2020-01-01",
			want: nil,
		},
		{
			name:  "lithuanian letters and symbols",
			first: "Žemyna", last: "Šimkutė-O'Neil", dob: "2021-12-31",
			want: nil,
		},
		{
			name:  "born today",
			first: "Ana", last: "Ana", dob: "2025-06-15",
			want: nil,
		},
		{
			name:  "digits in name",
			first: "Ana2", last: "Ana", dob: "2020-01-01",
			want: FieldErrors{"name": MsgName},
		},
		{
			name:  "empty surname",
			first: "Ana", last: "", dob: "2020-01-01",
			want: FieldErrors{"surname": MsgSurname},
		},
		{
			name:  "missing date",
			first: "Ana", last: "Ana", dob: "",
			want: FieldErrors{"dateOfBirth": MsgDOBRequired},
		},
		{
			name:  "wrong format",
			first: "Ana", last: "Ana", dob: "01/01/2020",
			want: FieldErrors{"dateOfBirth": MsgDOBFormat},
		},
		{
			name:  "impossible date",
			first: "Ana", last: "Ana", dob: "2021-02-30",
			want: FieldErrors{"dateOfBirth": MsgDOBInvalid},
		},
		{
			name:  "future date",
			first: "Ana", last: "Ana", dob: "2025-06-16",
			want: FieldErrors{"dateOfBirth": MsgDOBFuture},
		},
		{
			name:  "everything wrong",
			first: "", last: "1", dob: "x",
			want: FieldErrors{"name": MsgName, "surname": MsgSurname, "dateOfBirth": MsgDOBFormat},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ValidateChild(tt.first, tt.last, tt.dob, today)
			if len(got) != len(tt.want) {
				t.Fatalf("ValidateChild() = %v, want %v", got, tt.want)
			}
			for field, msg := range tt.want {
				if got[field] != msg {
					t.Errorf("ValidateChild()[%s] = %q, want %q", field, got[field], msg)
				}
			}
		})
	}
}

func TestFieldErrors(t *testing.T) {
	var none FieldErrors
	if none.Err() != nil {
		t.Error("empty FieldErrors should not be an error")
	}

	errs := FieldErrors{"surname": "b", "name": "a"}
	if got := errs.Error(); got != "name: a; surname: b" {
		t.Errorf("Error() = %q", got)
	}
	if errs.Err() == nil {
		t.Error("non-empty FieldErrors should be an error")
	}
}

func TestValidateGroupName(t *testing.T) {
	if err := ValidateGroupName("Bitutės"); err != nil {
		t.Errorf("ValidateGroupName() unexpected error: %v", err)
	}
	if err := ValidateGroupName("   "); err == nil {
		t.Error("ValidateGroupName() expected error for blank name")
	}
}
