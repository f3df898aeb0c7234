// Command admintoken prints a bearer token for the storefront admin routes.
//
//	JWT_SECRET=... go run ./cmd/admintoken -sub ops@example.com -ttl 12h
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"storefront/internal/services"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

func main() {
	subject := flag.String("sub", "operator", "token subject")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: could not read .env file: %v", err)
	}
	viper.AutomaticEnv()

	secret := viper.GetString("JWT_SECRET")
	if secret == "" {
		log.Fatal("JWT_SECRET must be set")
	}

	token, err := services.NewAuthService(secret, *ttl).IssueAdminToken(*subject)
	if err != nil {
		log.Fatalf("Failed to issue token: %v", err)
	}
	fmt.Println(token)
}
