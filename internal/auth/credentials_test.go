package auth_test

import (
	"context"
	"errors"
	"testing"

	"github.com/pamperspets/petshaus/internal/auth"
	"github.com/pamperspets/petshaus/internal/domain/user"
	"github.com/pamperspets/petshaus/internal/repo/postgres"
	"github.com/pamperspets/petshaus/internal/security"
)

type fakeUserReader struct {
	users map[string]user.User
}

func (f *fakeUserReader) GetByEmail(_ context.Context, email string) (user.User, error) {
	u, ok := f.users[email]
	if !ok {
		return user.User{}, postgres.ErrUserNotFound
	}
	return u, nil
}

func newReaderWith(t *testing.T, email, password string) *fakeUserReader {
	t.Helper()

	hash, err := security.HashPassword(password, 4)
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}

	return &fakeUserReader{users: map[string]user.User{
		email: {
			ID:           "u-1",
			Email:        email,
			Name:         "Ana",
			PasswordHash: hash,
		},
	}}
}

func TestVerify_Success(t *testing.T) {
	v := auth.NewCredentialVerifier(newReaderWith(t, "ana@x.com", "secret1"))

	id, err := v.Verify(context.Background(), "ana@x.com", "secret1")

	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}

	want := user.Identity{ID: "u-1", Name: "Ana", Email: "ana@x.com"}
	if id != want {
		t.Fatalf("identity mismatch: got %+v want %+v", id, want)
	}
}

func TestVerify_UnknownEmailAndWrongPasswordIndistinguishable(t *testing.T) {
	v := auth.NewCredentialVerifier(newReaderWith(t, "ana@x.com", "secret1"))

	_, errUnknown := v.Verify(context.Background(), "nobody@x.com", "secret1")
	_, errWrong := v.Verify(context.Background(), "ana@x.com", "wrong")

	if !errors.Is(errUnknown, auth.ErrInvalidCredentials) {
		t.Fatalf("unknown email: got %v, want ErrInvalidCredentials", errUnknown)
	}

	if !errors.Is(errWrong, auth.ErrInvalidCredentials) {
		t.Fatalf("wrong password: got %v, want ErrInvalidCredentials", errWrong)
	}

	if errUnknown.Error() != errWrong.Error() {
		t.Fatalf("error messages differ: %q vs %q", errUnknown, errWrong)
	}
}

func TestVerify_MissingFields(t *testing.T) {
	v := auth.NewCredentialVerifier(newReaderWith(t, "ana@x.com", "secret1"))

	cases := []struct {
		name            string
		email, password string
	}{
		{"missing email", "", "secret1"},
		{"missing password", "ana@x.com", ""},
		{"both missing", "", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := v.Verify(context.Background(), tc.email, tc.password)
			if !errors.Is(err, auth.ErrInvalidCredentials) {
				t.Fatalf("got %v, want ErrInvalidCredentials", err)
			}
		})
	}
}
