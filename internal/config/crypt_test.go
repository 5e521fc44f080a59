package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecrypt(t *testing.T) {
	encrypted, err := Encrypt([]byte("zabbix"), []byte("seckey"))
	require.NoError(t, err)

	decrypted, err := Decrypt(encrypted, []byte("seckey"))
	require.NoError(t, err)
	assert.Equal(t, "zabbix", string(decrypted))

	_, err = Decrypt(encrypted, []byte("wrong"))
	assert.ErrorIs(t, err, ErrDecrypt)

	_, err = Decrypt([]byte("short"), []byte("seckey"))
	assert.ErrorIs(t, err, ErrDecrypt)
	assert.Contains(t, err.Error(), "too short")
}

func TestEncryptPassword(t *testing.T) {
	encrypted, err := EncryptPassword("zabbix", "seckey")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(encrypted, SecVerPrefix))
	assert.NotContains(t, encrypted, "zabbix")

	again, err := EncryptPassword("zabbix", "seckey")
	require.NoError(t, err)
	assert.NotEqual(t, encrypted, again, "nonce must differ between calls")

	decrypted, err := DecryptPassword(encrypted, "seckey")
	require.NoError(t, err)
	assert.Equal(t, "zabbix", decrypted)
}

func TestEncryptPassword_NoKey(t *testing.T) {
	_, err := EncryptPassword("zabbix", "")
	assert.ErrorIs(t, err, ErrNoSecretKey)

	_, err = DecryptPassword(SecVerPrefix+"00", "")
	assert.ErrorIs(t, err, ErrNoSecretKey)
}

func TestDecryptPassword_BadHex(t *testing.T) {
	_, err := DecryptPassword(SecVerPrefix+"zz", "seckey")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "decoding")
}
