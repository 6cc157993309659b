package notify

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"io"
	"time"

	"github.com/skip2/go-qrcode"
)

// PassGenerator renders a check-in pass QR for a committed registration.
// The payload is AES-encrypted so the barn-door scanner can verify it was
// issued by this service.
type PassGenerator struct {
	secret []byte
}

func NewPassGenerator(secret string) *PassGenerator {
	hashed := sha256.Sum256([]byte(secret)) // normalize to 32 bytes
	return &PassGenerator{secret: hashed[:]}
}

type passPayload struct {
	EventID  string    `json:"event_id"`
	UserID   string    `json:"user_id"`
	Role     string    `json:"role"`
	IssuedAt time.Time `json:"issued_at"`
}

// BuildPass returns a QR PNG encoding the encrypted registration payload.
func (g *PassGenerator) BuildPass(eventID, userID, role string) ([]byte, error) {
	data, err := json.Marshal(passPayload{
		EventID:  eventID,
		UserID:   userID,
		Role:     role,
		IssuedAt: time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}

	encrypted, err := encryptAES(data, g.secret)
	if err != nil {
		return nil, err
	}

	return qrcode.Encode(encrypted, qrcode.Medium, 256)
}

func encryptAES(data []byte, key []byte) (string, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}

	ciphertext := make([]byte, aes.BlockSize+len(data))
	iv := ciphertext[:aes.BlockSize]

	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", err
	}

	stream := cipher.NewCFBEncrypter(block, iv)
	stream.XORKeyStream(ciphertext[aes.BlockSize:], data)

	return base64.URLEncoding.EncodeToString(ciphertext), nil
}
