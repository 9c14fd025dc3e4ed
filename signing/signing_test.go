package signing

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/rentdynamics/rd-client-go/payload"
)

func expectedNonce(secret, message string) string {
	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}

func mustParse(t *testing.T, s string) payload.Value {
	t.Helper()
	v, err := payload.Parse([]byte(s))
	if err != nil {
		t.Fatalf("parse %s: %v", s, err)
	}
	return v
}

// --- Nonce Tests ---

func TestBuildNonce_WithPayload(t *testing.T) {
	secret := uuid.NewString()
	timestamp := time.Now().UnixMilli()
	endpoint := "/someUrlolz"

	canonical, err := payload.CanonicalJSON(payload.Normalize(mustParse(t, `{"orange":1,"blue":{"red":"a  f  g","pink":"b  t  g"}}`)))
	if err != nil {
		t.Fatalf("canonical json: %v", err)
	}
	if string(canonical) != `{"blue":{"pink":"btg","red":"afg"},"orange":1}` {
		t.Fatalf("unexpected canonical payload: %s", canonical)
	}

	want := expectedNonce(secret, strconv.FormatInt(timestamp, 10)+endpoint+string(canonical))
	got := BuildNonce(secret, timestamp, endpoint, string(canonical))
	if got != want {
		t.Errorf("nonce mismatch\n  got:  %s\n  want: %s", got, want)
	}
}

func TestBuildNonce_ArrayOfPrimitives(t *testing.T) {
	secret := uuid.NewString()
	timestamp := int64(1530000000000)
	endpoint := "/someUrlolz"

	canonical, err := payload.CanonicalJSON(payload.Normalize(mustParse(t, `{"orange":5,"blue":[1,5,2]}`)))
	if err != nil {
		t.Fatalf("canonical json: %v", err)
	}

	want := expectedNonce(secret, "1530000000000/someUrlolz"+`{"blue":[1,5,2],"orange":5}`)
	if got := BuildNonce(secret, timestamp, endpoint, string(canonical)); got != want {
		t.Errorf("nonce mismatch\n  got:  %s\n  want: %s", got, want)
	}
}

func TestBuildNonce_NoPayload(t *testing.T) {
	secret := uuid.NewString()
	timestamp := time.Now().UnixMilli()
	endpoint := "/someUrlolz"

	want := expectedNonce(secret, strconv.FormatInt(timestamp, 10)+endpoint)
	if got := BuildNonce(secret, timestamp, endpoint, ""); got != want {
		t.Errorf("nonce mismatch\n  got:  %s\n  want: %s", got, want)
	}
}

func TestBuildNonce_NullPayloadIsSigned(t *testing.T) {
	secret := "secret"
	withNull := BuildNonce(secret, 1, "/u", "null")
	without := BuildNonce(secret, 1, "/u", "")
	if withNull == without {
		t.Fatal("explicit null payload should change the nonce")
	}
	if withNull != expectedNonce(secret, "1/unull") {
		t.Errorf("unexpected nonce for null payload: %s", withNull)
	}
}

func TestBuildNonce_MissingSecret(t *testing.T) {
	if got := BuildNonce("", time.Now().UnixMilli(), "/u", `{"a":1}`); got != "" {
		t.Errorf("expected empty nonce without secret, got %q", got)
	}
}

func TestBuildNonce_Deterministic(t *testing.T) {
	a := BuildNonce("k", 42, "/units", `{"a":1}`)
	b := BuildNonce("k", 42, "/units", `{"a":1}`)
	if a != b {
		t.Errorf("nonce not deterministic: %s != %s", a, b)
	}
	if len(a) != 40 {
		t.Errorf("expected 40 hex chars, got %d: %s", len(a), a)
	}
}

func TestHashPassword(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "da39a3ee5e6b4b0d3255bfef95601890afd80709"},
		{"password", "5baa61e4c9b93f3f0682250b6cf8331b7ee68fd8"},
		{"abc", "a9993e364706816aba3e25717850c26c9cd0d89d"},
	}
	for _, tt := range tests {
		if got := HashPassword(tt.in); got != tt.want {
			t.Errorf("HashPassword(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

// --- Header Tests ---

func TestBuildHeaders_AllPresent(t *testing.T) {
	creds := Credentials{
		APIKey:       uuid.NewString(),
		APISecretKey: uuid.NewString(),
		AuthToken:    uuid.NewString(),
	}

	h, err := BuildHeaders(creds, "/units", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	requiredHeaders := []string{HeaderAuthorization, HeaderAPIKey, HeaderNonce, HeaderTimestamp, HeaderContentType}
	for _, name := range requiredHeaders {
		if h.Get(name) == "" {
			t.Errorf("missing required header: %s", name)
		}
	}

	if got := h.Get(HeaderAPIKey); got != creds.APIKey {
		t.Errorf("api key header mismatch\n  got:  %s\n  want: %s", got, creds.APIKey)
	}
	if got := h.Get(HeaderAuthorization); got != "TOKEN "+creds.AuthToken {
		t.Errorf("authorization header mismatch\n  got:  %s\n  want: %s", got, "TOKEN "+creds.AuthToken)
	}
	if got := h.Get(HeaderContentType); got != "application/json" {
		t.Errorf("content type mismatch: %s", got)
	}
}

func TestBuildHeaders_NoAuthToken(t *testing.T) {
	creds := Credentials{APIKey: "key", APISecretKey: "secret"}

	h, err := BuildHeaders(creds, "/units", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := h[HeaderAuthorization]; ok {
		t.Errorf("expected no Authorization header, got %q", h.Get(HeaderAuthorization))
	}
}

func TestBuildHeaders_MissingCredentials(t *testing.T) {
	tests := []struct {
		name  string
		creds Credentials
	}{
		{"none", Credentials{AuthToken: "token"}},
		{"key only", Credentials{APIKey: "key", AuthToken: "token"}},
		{"secret only", Credentials{APISecretKey: "secret"}},
	}
	body := mustParse(t, `{"a":1}`)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := BuildHeaders(tt.creds, "/units", &body)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(h) != 0 {
				t.Errorf("expected empty headers, got %d entries: %v", len(h), h)
			}
		})
	}
}

func TestBuildHeadersAt_TimestampMatchesNonce(t *testing.T) {
	creds := Credentials{APIKey: "key", APISecretKey: "secret"}
	now := time.UnixMilli(1700000000123)
	body := mustParse(t, `{"username":"jo smith","unit":{"id":4,"name":"A 1"}}`)

	h, err := BuildHeadersAt(creds, "/auth/login", &body, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := h.Get(HeaderTimestamp); got != "1700000000123" {
		t.Errorf("timestamp header mismatch: %s", got)
	}

	want := expectedNonce("secret", `1700000000123/auth/login{"unit":{"id":4,"name":"A1"},"username":"josmith"}`)
	if got := h.Get(HeaderNonce); got != want {
		t.Errorf("nonce mismatch\n  got:  %s\n  want: %s", got, want)
	}
}

func TestBuildHeadersAt_NilBodyVersusNull(t *testing.T) {
	creds := Credentials{APIKey: "key", APISecretKey: "secret"}
	now := time.UnixMilli(1000)
	null := payload.Null()

	absent, err := BuildHeadersAt(creds, "/u", nil, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	explicit, err := BuildHeadersAt(creds, "/u", &null, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := absent.Get(HeaderNonce); got != expectedNonce("secret", "1000/u") {
		t.Errorf("absent payload nonce mismatch: %s", got)
	}
	if got := explicit.Get(HeaderNonce); got != expectedNonce("secret", "1000/unull") {
		t.Errorf("null payload nonce mismatch: %s", got)
	}
}

func TestBuildHeadersAt_OutOfRangeNumber(t *testing.T) {
	creds := Credentials{APIKey: "key", APISecretKey: "secret"}
	now := time.UnixMilli(1000)
	body := mustParse(t, `{"n":1e400}`)

	h, err := BuildHeadersAt(creds, "/u", &body, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := h.Get(HeaderNonce); got != expectedNonce("secret", `1000/u{"n":null}`) {
		t.Errorf("nonce mismatch: %s", got)
	}
}
