package security

import (
	"crypto/rsa"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/zingsocial/social-core/internal/core/domain"
)

// UserClaims étend les claims standards JWT
type UserClaims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// JWTVerifier valide les tokens émis par le service d'auth externe.
// Vérification seule : ce core ne signe rien (l'émission, le refresh et la
// ré-authentification restent chez le fournisseur d'identité).
type JWTVerifier struct {
	publicKey *rsa.PublicKey
}

func NewJWTVerifier(publicKeyPEM []byte) (*JWTVerifier, error) {
	pubKey, err := jwt.ParseRSAPublicKeyFromPEM(publicKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}
	return &JWTVerifier{publicKey: pubKey}, nil
}

// Validate vérifie la signature et retourne l'UID (Subject)
func (j *JWTVerifier) Validate(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &UserClaims{}, func(token *jwt.Token) (interface{}, error) {
		// Sécurité critique : vérifier que l'alg est bien RS256.
		// Empêche les attaques où l'attaquant force l'algo à "None" ou "HS256"
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.publicKey, nil
	})
	if err != nil {
		return "", errors.Join(domain.ErrUnauthorized, err) // Token expiré ou signature invalide
	}

	if claims, ok := token.Claims.(*UserClaims); ok && token.Valid && claims.Subject != "" {
		return claims.Subject, nil
	}
	return "", domain.ErrUnauthorized
}
