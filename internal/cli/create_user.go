package cli

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mrlokans/librarian/internal/auth"
	"github.com/mrlokans/librarian/internal/config"
	"github.com/mrlokans/librarian/internal/database"
	"github.com/mrlokans/librarian/internal/entities"
)

// CreateUserCommand creates a reader or librarian account. Librarians can
// only be created this way; the sign-up form always creates readers.
type CreateUserCommand struct {
	Username     string
	Email        string
	Password     string
	FirstName    string
	LastName     string
	Role         string
	DatabasePath string

	// BcryptCost overrides the configured cost when set
	BcryptCost int
}

func NewCreateUserCommand() *CreateUserCommand {
	return &CreateUserCommand{}
}

func (cmd *CreateUserCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("create-user", flag.ExitOnError)

	fs.StringVar(&cmd.Username, "username", "", "Login name (required)")
	fs.StringVar(&cmd.Email, "email", "", "Email address (required)")
	fs.StringVar(&cmd.Password, "password", "", "Password (required)")
	fs.StringVar(&cmd.FirstName, "first-name", "", "First name")
	fs.StringVar(&cmd.LastName, "last-name", "", "Last name")
	fs.StringVar(&cmd.Role, "role", string(entities.UserRoleReader), "Account role: reader or librarian")
	fs.StringVar(&cmd.DatabasePath, "db", config.DefaultDatabasePath, "Path to the library database file")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s create-user -username <name> -email <email> -password <password> [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Create a library account.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  # Create the first librarian:\n")
		fmt.Fprintf(os.Stderr, "  %s create-user -username admin -email admin@example.com -password secret -role librarian\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if cmd.Username == "" {
		return fmt.Errorf("required flag -username not provided")
	}
	if cmd.Email == "" {
		return fmt.Errorf("required flag -email not provided")
	}
	if cmd.Password == "" {
		return fmt.Errorf("required flag -password not provided")
	}
	switch entities.UserRole(cmd.Role) {
	case entities.UserRoleReader, entities.UserRoleLibrarian:
	default:
		return fmt.Errorf("unknown role %q: use reader or librarian", cmd.Role)
	}

	return nil
}

func (cmd *CreateUserCommand) Run() error {
	absDBPath, err := filepath.Abs(cmd.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to get absolute path for database: %w", err)
	}

	db, err := database.NewDatabase(absDBPath)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	authCfg := config.NewConfig().Auth
	if cmd.BcryptCost > 0 {
		authCfg.BcryptCost = cmd.BcryptCost
	}

	user, err := auth.NewService(db.DB, authCfg).CreateUser(auth.NewUser{
		Username:  cmd.Username,
		Email:     cmd.Email,
		Password:  cmd.Password,
		FirstName: cmd.FirstName,
		LastName:  cmd.LastName,
		Role:      entities.UserRole(cmd.Role),
	})
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	fmt.Printf("Created %s %q (id %d) in %s\n", user.Role, user.Username, user.ID, absDBPath)
	return nil
}
