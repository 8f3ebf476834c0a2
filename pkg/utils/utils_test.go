package utils

import (
	"crypto/rand"
	"encoding/base64"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHashPassword_RoundTrip(t *testing.T) {
	t.Parallel()

	for _, pw := range []string{"longenough1", "p@ss wörd", ""} {
		digest, salt, err := HashPassword(pw)
		require.NoError(t, err)
		require.Len(t, salt, 32, "16 salt bytes, hex encoded")
		require.Len(t, digest, 128, "64 key bytes, hex encoded")

		require.True(t, VerifyPassword(pw, digest, salt))
		require.False(t, VerifyPassword(pw+"x", digest, salt))
	}
}

func TestHashPassword_FreshSaltEachTime(t *testing.T) {
	t.Parallel()

	d1, s1, err := HashPassword("same")
	require.NoError(t, err)
	d2, s2, err := HashPassword("same")
	require.NoError(t, err)

	require.NotEqual(t, s1, s2)
	require.NotEqual(t, d1, d2)
}

func TestVerifyPassword_RejectsEmptyRecord(t *testing.T) {
	t.Parallel()

	require.False(t, VerifyPassword("password", "", ""))
	require.False(t, VerifyPassword("password", "password", ""))
}

func testKey(t *testing.T) []byte {
	t.Helper()
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	return key
}

func TestSealOpen(t *testing.T) {
	t.Parallel()

	key := testKey(t)
	sealed, err := Seal([]byte(`{"id":"u1"}`), key)
	require.NoError(t, err)
	require.NotContains(t, sealed, "u1")

	plain, err := Open(sealed, key)
	require.NoError(t, err)
	require.Equal(t, `{"id":"u1"}`, string(plain))

	// Same plaintext, different nonce.
	again, err := Seal([]byte(`{"id":"u1"}`), key)
	require.NoError(t, err)
	require.NotEqual(t, sealed, again)
}

func TestOpen_Tampered(t *testing.T) {
	t.Parallel()

	key := testKey(t)
	sealed, err := Seal([]byte("payload"), key)
	require.NoError(t, err)

	raw, err := base64.RawURLEncoding.DecodeString(sealed)
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0xff
	_, err = Open(base64.RawURLEncoding.EncodeToString(raw), key)
	require.Error(t, err)

	_, err = Open(sealed, testKey(t))
	require.Error(t, err)

	_, err = Open("%%%", key)
	require.Error(t, err)

	_, err = Open("AAAA", key)
	require.Error(t, err)
}

func TestParseEncryptionKey(t *testing.T) {
	t.Parallel()

	good := base64.StdEncoding.EncodeToString(make([]byte, 32))
	key, err := ParseEncryptionKey(good)
	require.NoError(t, err)
	require.Len(t, key, 32)

	_, err = ParseEncryptionKey("")
	require.Error(t, err)
	_, err = ParseEncryptionKey("not base64!")
	require.Error(t, err)
	_, err = ParseEncryptionKey(base64.StdEncoding.EncodeToString(make([]byte, 16)))
	require.Error(t, err)
}

func TestNewOrderID_Format(t *testing.T) {
	t.Parallel()

	now := time.UnixMilli(1700000123456)
	id := NewOrderID(now)
	require.Regexp(t, regexp.MustCompile(`^LD-\d{9}$`), id)
	require.True(t, strings.HasPrefix(id, "LD-3456"))
}

func TestDigitsOnly(t *testing.T) {
	t.Parallel()

	require.Equal(t, "12345", DigitsOnly("LD-12345"))
	require.Equal(t, "12345", DigitsOnly("ord12345"))
	require.Equal(t, "", DigitsOnly("ORD-abc"))
}

func TestSwapOrderIDPrefix(t *testing.T) {
	t.Parallel()

	got, ok := SwapOrderIDPrefix("LD-12345")
	require.True(t, ok)
	require.Equal(t, "ORD12345", got)

	got, ok = SwapOrderIDPrefix("ord12345")
	require.True(t, ok)
	require.Equal(t, "LD-12345", got)

	_, ok = SwapOrderIDPrefix("12345")
	require.False(t, ok)
}
