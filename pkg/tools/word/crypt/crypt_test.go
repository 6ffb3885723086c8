package crypt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"office_word_mcp_server/pkg/tools/word/ooxml"
)

func plainDocx(t *testing.T) []byte {
	t.Helper()
	d, err := ooxml.New()
	require.NoError(t, err)
	_, err = d.AddParagraph("secret text", "")
	require.NoError(t, err)
	data, err := d.Bytes()
	require.NoError(t, err)
	return data
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	plain := plainDocx(t)
	assert.False(t, IsEncrypted(plain))

	enc, err := Encrypt(plain, "s3cret")
	require.NoError(t, err)
	assert.True(t, IsEncrypted(enc))

	_, err = Encrypt(enc, "again")
	require.ErrorIs(t, err, ErrAlreadyEncrypted)

	_, err = Decrypt(enc, "wrong")
	require.ErrorIs(t, err, ErrWrongPassword)

	dec, err := Decrypt(enc, "s3cret")
	require.NoError(t, err)
	doc, err := ooxml.Load(dec)
	require.NoError(t, err)
	assert.Equal(t, "secret text", doc.Text())
}

func TestDecryptPlain(t *testing.T) {
	_, err := Decrypt(plainDocx(t), "x")
	require.ErrorIs(t, err, ErrNotEncrypted)
}

func TestEncryptValidation(t *testing.T) {
	_, err := Encrypt(plainDocx(t), "")
	require.Error(t, err)
	_, err = Encrypt([]byte("plain text file"), "pw")
	require.Error(t, err)
}
