// Command gensecret prints a fresh JWT_SECRET and, when given a password,
// the ADMIN_PASSWORD_HASH used to bootstrap the admin account.
package main

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	secret := make([]byte, 48)
	if _, err := rand.Read(secret); err != nil {
		log.Fatal().Err(err).Msg("Failed to generate secret")
	}

	fmt.Println("========================================")
	fmt.Println("Add this to your .env file:")
	fmt.Println("JWT_SECRET=" + base64.RawURLEncoding.EncodeToString(secret))

	if len(os.Args) > 1 {
		hash, err := bcrypt.GenerateFromPassword([]byte(os.Args[1]), bcrypt.DefaultCost)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to hash password")
		}
		// single quotes stop godotenv from expanding the $ fields of the hash
		fmt.Println("ADMIN_PASSWORD_HASH='" + string(hash) + "'")
		fmt.Println("ADMIN_BOOTSTRAP_EMAIL=admin@example.com")
	}
	fmt.Println("========================================")
}
