package utils

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/validtech/valid_backend/config"
)

// DocumentClaim authorizes one download of a stored pricing document.
type DocumentClaim struct {
	Object      string `json:"obj"`
	ContentType string `json:"ct"`
	jwt.RegisteredClaims
}

const DocumentLinkLifespan = 15 * time.Minute

var errDocumentSecretMissing = errors.New("DOCUMENT_LINK_SECRET or API_SECRET must be set in production")

// documentSecret falls back to a development key outside production only.
func documentSecret() ([]byte, error) {
	secret := os.Getenv("DOCUMENT_LINK_SECRET")
	if secret == "" {
		secret = os.Getenv("API_SECRET")
	}
	if secret == "" {
		if config.IsProduction() {
			return nil, errDocumentSecretMissing
		}
		return []byte("valid-document-secret"), nil
	}
	return []byte(secret), nil
}

func DocumentLinkGenerate(object, contentType string, now time.Time) (string, error) {
	if object == "" {
		return "", errors.New("object is required")
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, &DocumentClaim{
		Object:      object,
		ContentType: contentType,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(DocumentLinkLifespan)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	})
	secret, err := documentSecret()
	if err != nil {
		return "", err
	}
	return t.SignedString(secret)
}

func DocumentLinkValidate(token string) (*DocumentClaim, error) {
	claim := &DocumentClaim{}
	_, err := jwt.ParseWithClaims(token, claim, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("there's a problem with the signing method")
		}
		return documentSecret()
	})
	if err != nil {
		return nil, err
	}
	return claim, nil
}
