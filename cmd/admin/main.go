package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/kevin07696/paygo-service/internal/adapters/postgres"
	"github.com/kevin07696/paygo-service/internal/domain"
	domainports "github.com/kevin07696/paygo-service/internal/domain/ports"
	serviceports "github.com/kevin07696/paygo-service/internal/services/ports"
	terminalService "github.com/kevin07696/paygo-service/internal/services/terminal"
	userService "github.com/kevin07696/paygo-service/internal/services/user"
	"github.com/kevin07696/paygo-service/pkg/security"
	"golang.org/x/term"
)

// AdminCLI bootstraps a fresh deployment: the first staff accounts and the
// terminal fleet, which the API only lets existing staff create.
type AdminCLI struct {
	ctx       context.Context
	users     domainports.UserRepository
	userSvc   *userService.Service
	terminals *terminalService.Service
	in        *bufio.Reader
}

func main() {
	_ = godotenv.Load()

	var (
		dbURL  = flag.String("db", os.Getenv("DATABASE_URL"), "Database URL (default: $DATABASE_URL)")
		action = flag.String("action", "", "Action to perform: create-staff, promote, create-terminal, list-terminals")
		email  = flag.String("email", "", "Account email for create-staff and promote")
		role   = flag.String("role", string(domain.UserRoleAdmin), "Role for create-staff and promote: admin or operator")
	)
	flag.Parse()

	if *action == "" {
		fmt.Println("Usage: admin -action=<action> [options]")
		fmt.Println("Actions:")
		fmt.Println("  create-staff    - Register an account and grant it a staff role")
		fmt.Println("  promote         - Grant a staff role to an existing account")
		fmt.Println("  create-terminal - Register a terminal")
		fmt.Println("  list-terminals  - List all terminals")
		os.Exit(1)
	}
	if *dbURL == "" {
		log.Fatal("Database URL is required (-db or DATABASE_URL)")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, *dbURL)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer pool.Close()

	exec := postgres.NewDBExecutor(pool)
	users := postgres.NewUserRepository(exec)
	zapLogger, err := security.NewLogger("development", "warn")
	if err != nil {
		log.Fatal(err)
	}
	logger := security.NewZapLogger(zapLogger)
	cli := &AdminCLI{
		ctx:       ctx,
		users:     users,
		userSvc:   userService.NewService(userService.Dependencies{Users: users, Logger: logger}),
		terminals: terminalService.NewService(postgres.NewTerminalRepository(exec), logger, nil, 0),
		in:        bufio.NewReader(os.Stdin),
	}

	switch *action {
	case "create-staff":
		err = cli.createStaff(*email, domain.UserRole(*role))
	case "promote":
		err = cli.promote(*email, domain.UserRole(*role))
	case "create-terminal":
		err = cli.createTerminal()
	case "list-terminals":
		err = cli.listTerminals()
	default:
		err = fmt.Errorf("unknown action: %s", *action)
	}
	if err != nil {
		log.Fatal(err)
	}
}

func (cli *AdminCLI) prompt(label, def string) string {
	if def != "" {
		fmt.Printf("%s [%s]: ", label, def)
	} else {
		fmt.Printf("%s: ", label)
	}
	line, _ := cli.in.ReadString('\n')
	line = strings.TrimSpace(line)
	if line == "" {
		return def
	}
	return line
}

func readPassword() (string, error) {
	if pw := os.Getenv("PAYGO_ADMIN_PASSWORD"); pw != "" {
		return pw, nil
	}
	fmt.Print("Password: ")
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(password), nil
}

func staffRole(role domain.UserRole) error {
	if role != domain.UserRoleAdmin && role != domain.UserRoleOperator {
		return fmt.Errorf("role must be admin or operator, got %q", role)
	}
	return nil
}

func (cli *AdminCLI) createStaff(email string, role domain.UserRole) error {
	if err := staffRole(role); err != nil {
		return err
	}
	if email == "" {
		email = cli.prompt("Email", "")
	}
	phone := cli.prompt("Phone (7XXXXXXXXXX)", "")
	name := cli.prompt("Full name", "")
	password, err := readPassword()
	if err != nil {
		return err
	}

	u, err := cli.userSvc.Register(cli.ctx, serviceports.RegisterRequest{
		Email:    email,
		Phone:    phone,
		FullName: name,
		Password: password,
	})
	if err != nil {
		return fmt.Errorf("register %s: %w", email, err)
	}
	if err := cli.grant(u, role); err != nil {
		return err
	}
	fmt.Printf("Created %s account %s (ID: %s)\n", role, u.Email, u.ID)
	return nil
}

func (cli *AdminCLI) promote(email string, role domain.UserRole) error {
	if err := staffRole(role); err != nil {
		return err
	}
	if email == "" {
		return errors.New("-email is required")
	}
	u, err := cli.users.GetByEmail(cli.ctx, strings.ToLower(email))
	if err != nil {
		return fmt.Errorf("find %s: %w", email, err)
	}
	if err := cli.grant(u, role); err != nil {
		return err
	}
	fmt.Printf("%s is now %s\n", u.Email, role)
	return nil
}

func (cli *AdminCLI) grant(u *domain.User, role domain.UserRole) error {
	u.Role = role
	u.IsVerified = true
	if err := cli.users.Update(cli.ctx, u); err != nil {
		return fmt.Errorf("update role: %w", err)
	}
	return nil
}

func (cli *AdminCLI) createTerminal() error {
	req := serviceports.CreateTerminalRequest{
		TerminalID:   cli.prompt("Terminal ID", ""),
		Name:         cli.prompt("Name", ""),
		Location:     cli.prompt("Location", ""),
		Description:  cli.prompt("Description", ""),
		TerminalType: domain.TerminalType(cli.prompt("Type (payment/self_service/kiosk)", string(domain.TerminalTypePayment))),
	}
	yes := func(label string) bool {
		return strings.HasPrefix(strings.ToLower(cli.prompt(label+"? (y/n)", "y")), "y")
	}
	req.SupportsNFC = yes("Supports NFC")
	req.SupportsQR = yes("Supports QR")
	req.SupportsBiometry = yes("Supports biometry")

	t, err := cli.terminals.Create(cli.ctx, req)
	if err != nil {
		return fmt.Errorf("create terminal: %w", err)
	}
	fmt.Printf("Created terminal %s (%s) at %s\n", t.TerminalID, t.Name, t.Location)
	return nil
}

func (cli *AdminCLI) listTerminals() error {
	terminals, err := cli.terminals.List(cli.ctx, domainports.TerminalFilter{Limit: 1000})
	if err != nil {
		return fmt.Errorf("list terminals: %w", err)
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tTYPE\tSTATUS\tLOCATION")
	for _, t := range terminals {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", t.TerminalID, t.Name, t.TerminalType, t.Status, t.Location)
	}
	return w.Flush()
}
