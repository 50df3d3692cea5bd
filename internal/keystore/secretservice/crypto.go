// SPDX-License-Identifier: Apache-2.0

package secretservice

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hkdf"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"math/big"
)

// ietf1024Prime is the 1024-bit prime for the IETF DH group (RFC 2409 Group 2).
// This is the group used by dh-ietf1024-sha256-aes128-cbc-pkcs7.
var ietf1024Prime, _ = new(big.Int).SetString(
	"FFFFFFFFFFFFFFFFC90FDAA22168C234C4C6628B80DC1CD1"+
		"29024E088A67CC74020BBEA63B139B22514A08798E3404DD"+
		"EF9519B3CD3A431B302B0A6DF25F14374FE1356D6D51C245"+
		"E485B576625E7EC6F44C42E9A637ED6B0BFF5CB6F406B7ED"+
		"EE386BFB5A899FA5AE9F24117C4B1FE649286651ECE65381"+
		"FFFFFFFFFFFFFFFF",
	16,
)

const dhGroupSize = 128

var ietf1024Generator = big.NewInt(2)

// dhKeyPair generates our half of the session key exchange. The private
// exponent is 256 random bits reduced into [2, p-2].
func dhKeyPair() (priv, pub *big.Int, err error) {
	privBytes := make([]byte, 32)
	if _, err = rand.Read(privBytes); err != nil {
		return nil, nil, err
	}
	priv = new(big.Int).SetBytes(privBytes)
	pMinus2 := new(big.Int).Sub(ietf1024Prime, big.NewInt(2))
	priv.Mod(priv, pMinus2)
	priv.Add(priv, big.NewInt(2))

	pub = new(big.Int).Exp(ietf1024Generator, priv, ietf1024Prime)
	return priv, pub, nil
}

// sessionKey derives the AES-128 key from the service's public key:
// HKDF-SHA256 over the group-size shared secret with no salt and no info,
// as gnome-keyring and KeePassXC do.
func sessionKey(priv *big.Int, servicePub []byte) ([]byte, error) {
	peer := new(big.Int).SetBytes(servicePub)
	if peer.Cmp(big.NewInt(1)) <= 0 || peer.Cmp(ietf1024Prime) >= 0 {
		return nil, errors.New("service public key out of range")
	}
	shared := new(big.Int).Exp(peer, priv, ietf1024Prime)
	return hkdf.Key(sha256.New, groupBytes(shared), nil, "", 16)
}

// groupBytes serializes n big-endian, left-padded to the group size.
func groupBytes(n *big.Int) []byte {
	buf := make([]byte, dhGroupSize)
	n.FillBytes(buf)
	return buf
}

// encrypt returns (iv, ciphertext) for plaintext under AES-128-CBC with
// PKCS7 padding and a random IV.
func encrypt(key, plaintext []byte) (iv, ciphertext []byte, err error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, nil, err
	}
	iv = make([]byte, aes.BlockSize)
	if _, err = rand.Read(iv); err != nil {
		return nil, nil, err
	}
	padded := pkcs7Pad(plaintext, aes.BlockSize)
	ciphertext = make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)
	return iv, ciphertext, nil
}

func decrypt(key, iv, ciphertext []byte) ([]byte, error) {
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, errors.New("ciphertext length is not a multiple of AES block size")
	}
	if len(iv) != aes.BlockSize {
		return nil, errors.New("invalid IV length")
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)
	return pkcs7Unpad(plaintext)
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padding := blockSize - len(data)%blockSize
	out := make([]byte, len(data)+padding)
	copy(out, data)
	for i := len(data); i < len(out); i++ {
		out[i] = byte(padding)
	}
	return out
}

func pkcs7Unpad(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, errors.New("empty padded data")
	}
	padding := int(data[len(data)-1])
	if padding == 0 || padding > aes.BlockSize || padding > len(data) {
		return nil, errors.New("invalid PKCS7 padding")
	}
	for i := len(data) - padding; i < len(data); i++ {
		if data[i] != byte(padding) {
			return nil, errors.New("invalid PKCS7 padding byte")
		}
	}
	return data[:len(data)-padding], nil
}
