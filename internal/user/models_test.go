package user

import "testing"

func TestSafeUserStripsSecrets(t *testing.T) {
	token := "refresh"
	avatar := "avatars/1/a"
	u := User{ID: 1, Email: "a@example.com", PasswordHash: "digest", RefreshToken: &token, Avatar: &avatar}

	safe := u.SafeUser()

	if safe.PasswordHash != "" || safe.RefreshToken != nil {
		t.Fatalf("expected secrets to be cleared, got %+v", safe)
	}
	if safe.Email != u.Email || safe.Avatar != u.Avatar {
		t.Fatalf("expected public fields to survive")
	}
	if u.PasswordHash != "digest" {
		t.Fatalf("SafeUser must not mutate the receiver")
	}
}
