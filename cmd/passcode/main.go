package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/hugh/metricdeck/internal/auth"
	"github.com/hugh/metricdeck/internal/database"
	"github.com/hugh/metricdeck/internal/database/models"
	"github.com/hugh/metricdeck/pkg/config"
	"github.com/hugh/metricdeck/pkg/util"
	"github.com/joho/godotenv"
)

const usage = `Usage: passcode <command> [flags]

Commands:
  generate  -email <email> [-name <label>] [-admin]   issue a passcode
  list      -email <email>                            list a user's passcodes
  delete    -id <uuid>                                revoke a passcode
`

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}

	logger := util.NewLogger(cfg.Server.Env)
	slog.SetDefault(logger)

	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to connect to database:", err)
		os.Exit(1)
	}

	service := auth.NewService(db, cfg.Org.EmailDomain, cfg.Auth.SessionTTL(), cfg.Auth.PasscodeCost)
	ctx := context.Background()

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	switch os.Args[1] {
	case "generate":
		fs := flag.NewFlagSet("generate", flag.ExitOnError)
		email := fs.String("email", "", "user email")
		name := fs.String("name", "", "passcode label")
		admin := fs.Bool("admin", false, "grant the user the admin flag")
		_ = fs.Parse(os.Args[2:])
		if *email == "" {
			fmt.Fprint(os.Stderr, usage)
			os.Exit(2)
		}
		generate(ctx, service, *email, *name, *admin)

	case "list":
		fs := flag.NewFlagSet("list", flag.ExitOnError)
		email := fs.String("email", "", "user email")
		_ = fs.Parse(os.Args[2:])
		if *email == "" {
			fmt.Fprint(os.Stderr, usage)
			os.Exit(2)
		}
		list(ctx, service, *email)

	case "delete":
		fs := flag.NewFlagSet("delete", flag.ExitOnError)
		id := fs.String("id", "", "passcode ID")
		_ = fs.Parse(os.Args[2:])
		if *id == "" {
			fmt.Fprint(os.Stderr, usage)
			os.Exit(2)
		}
		remove(ctx, service, *id)

	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
}

func generate(ctx context.Context, service *auth.Service, email, name string, admin bool) {
	user, err := service.GetOrCreateUser(ctx, email, "")
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	if admin && !user.IsAdmin {
		if err := service.PromoteToAdmin(ctx, user.ID); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
	}

	code, passcode, err := service.CreatePasscode(ctx, user.ID, name)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	fmt.Printf("Passcode for %s\n", email)
	fmt.Printf("  ID:   %s\n", passcode.ID)
	fmt.Printf("  Code: %s\n", code)
	fmt.Printf("  Hint: ...%s\n", passcode.CodeHint)
	fmt.Println("Store the code now; it is not shown again.")
}

func list(ctx context.Context, service *auth.Service, email string) {
	user, err := service.GetUserByEmail(ctx, email)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	passcodes, err := service.ListPasscodes(ctx, user.ID)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	if len(passcodes) == 0 {
		fmt.Println("No passcodes.")
		return
	}
	for _, p := range passcodes {
		lastUsed := "never"
		if p.LastUsedAt != nil {
			lastUsed = p.LastUsedAt.Format("2006-01-02 15:04")
		}
		fmt.Printf("%s  hint=...%s  name=%q  created=%s  last_used=%s\n",
			p.ID, p.CodeHint, p.Name, p.CreatedAt.Format("2006-01-02"), lastUsed)
	}
}

func remove(ctx context.Context, service *auth.Service, id string) {
	passcodeID, err := uuid.Parse(id)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error: invalid passcode ID")
		os.Exit(1)
	}

	// Operator CLI runs with full access.
	admin := &models.User{IsAdmin: true}
	if err := service.DeletePasscode(ctx, admin, passcodeID); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	fmt.Println("Passcode deleted.")
}
