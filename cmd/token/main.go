// token emite un JWT para operar la API. No hay endpoint de login: los tokens se
// generan con el mismo JWT_SECRET que usa el servidor.
//
// Uso: go run ./cmd/token -issuer <uuid-emisor> -role operator [-user <id>] [-minutes 60]
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/jhoicas/sri-facturacion/pkg/config"
	"github.com/jhoicas/sri-facturacion/pkg/jwt"
)

func main() {
	issuerID := flag.String("issuer", "", "ID del emisor al que se acota el token (vacío solo para admin)")
	role := flag.String("role", jwt.RoleOperator, "rol: admin | operator | viewer")
	userID := flag.String("user", "", "ID del usuario (vacío = uno nuevo)")
	minutes := flag.Int("minutes", 0, "vigencia en minutos (0 = JWT_EXPIRATION_MINUTES)")
	flag.Parse()

	switch *role {
	case jwt.RoleAdmin, jwt.RoleOperator, jwt.RoleViewer:
	default:
		exit("rol desconocido %q", *role)
	}
	if *issuerID == "" && *role != jwt.RoleAdmin {
		exit("-issuer es obligatorio para el rol %s", *role)
	}
	if *userID == "" {
		*userID = uuid.NewString()
	}

	cfg, err := config.Load()
	if err != nil {
		exit("configuración: %v", err)
	}
	exp := cfg.JWT.Expiration
	if *minutes > 0 {
		exp = *minutes
	}

	tok, err := jwt.Generate(cfg.JWT.Secret, *userID, *issuerID, *role, cfg.JWT.Issuer, exp)
	if err != nil {
		exit("generar token: %v", err)
	}
	fmt.Println(tok)
}

func exit(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
