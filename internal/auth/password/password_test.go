package password

import (
	"strings"
	"testing"
)

func TestHashAndVerify(t *testing.T) {
	encoded, err := Hash("correct horse battery staple")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !strings.HasPrefix(encoded, "$argon2id$v=19$") {
		t.Fatalf("encoded = %q", encoded)
	}

	if !Verify("correct horse battery staple", encoded) {
		t.Fatal("correct password must verify")
	}
	if Verify("wrong password", encoded) {
		t.Fatal("wrong password must not verify")
	}
}

func TestHashIsSalted(t *testing.T) {
	a, err := Hash("same input")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	b, err := Hash("same input")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if a == b {
		t.Fatal("two hashes of the same password must differ")
	}
	if !Verify("same input", a) || !Verify("same input", b) {
		t.Fatal("both salted hashes must verify")
	}
}

func TestVerifyRejectsMalformed(t *testing.T) {
	cases := []string{
		"",
		"plaintext",
		"$argon2i$v=19$m=65536,t=1,p=4$c2FsdA$aGFzaA",
		"$argon2id$v=18$m=65536,t=1,p=4$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=65536,t=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=65536,t=1,p=4$!!$aGFzaA",
	}
	for _, encoded := range cases {
		if Verify("whatever", encoded) {
			t.Fatalf("malformed hash verified: %q", encoded)
		}
	}
}
