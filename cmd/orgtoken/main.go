// Command orgtoken prints a signed organizer token for the PartyStacker API.
//
//	orgtoken -address SP2... -name "Night Owls" -ttl 120
//
// The signing secret is read from JWT_SECRET (a .env file is honoured).
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/iliyamo/partystacker/internal/middleware"
	"github.com/iliyamo/partystacker/internal/utils"
)

func main() {
	_ = godotenv.Load()

	address := flag.String("address", "", "organizer wallet address (token subject)")
	name := flag.String("name", "", "organizer display name")
	ttl := flag.Int("ttl", 60, "token lifetime in minutes")
	flag.Parse()

	tok, err := utils.NewAccessToken(os.Getenv("JWT_SECRET"), *address, *name, middleware.RoleOrganizer, *ttl)
	if err != nil {
		log.Fatalf("orgtoken: %v (set JWT_SECRET and -address)", err)
	}
	fmt.Println(tok.Token)
	fmt.Fprintf(os.Stderr, "expires %s\n", tok.Exp.Format("2006-01-02 15:04:05 MST"))
}
