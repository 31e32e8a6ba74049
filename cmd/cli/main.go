package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/aryan0dhankhar/leadintake/internal/domain"
	"github.com/aryan0dhankhar/leadintake/internal/infrastructure/logger"
	"github.com/aryan0dhankhar/leadintake/internal/leadclient"
	"github.com/aryan0dhankhar/leadintake/internal/validation"
)

const requestTimeout = 30 * time.Second

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	var err error
	switch command {
	case "auth":
		err = handleAuth(args)
	case "leads":
		err = handleLeads(args)
	case "users":
		err = listUsers()
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "✗ %s\n", describe(err))
		os.Exit(1)
	}
}

func handleAuth(args []string) error {
	if len(args) < 1 {
		fmt.Println("Usage: leadintake auth <register|login|logout|who>")
		return nil
	}

	subCmd := args[0]
	switch subCmd {
	case "register":
		return registerUser(args[1:])
	case "login":
		return loginUser(args[1:])
	case "logout":
		return logoutUser()
	case "who":
		return whoAmI()
	default:
		return fmt.Errorf("unknown auth command: %s", subCmd)
	}
}

func handleLeads(args []string) error {
	if len(args) < 1 {
		fmt.Println("Usage: leadintake leads <list|submit|reach|delete>")
		return nil
	}

	subCmd := args[0]
	switch subCmd {
	case "list":
		return listLeads(args[1:])
	case "submit":
		return submitLead(args[1:])
	case "reach":
		return reachOut(args[1:])
	case "delete":
		return deleteLead(args[1:])
	default:
		return fmt.Errorf("unknown leads command: %s", subCmd)
	}
}

// Auth commands
func registerUser(args []string) error {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	email := fs.String("email", "", "user email")
	password := fs.String("password", "", "password (at least 6 characters)")
	firstName := fs.String("first", "", "first name")
	lastName := fs.String("last", "", "last name")
	_ = fs.Parse(args)

	if *email == "" || *password == "" || *firstName == "" || *lastName == "" {
		fs.PrintDefaults()
		return errors.New("email, password, first and last name are required")
	}

	ctx, cancel := commandContext()
	defer cancel()

	c := newClient()
	result, err := c.Register(ctx, *email, *password, *firstName, *lastName)
	if err != nil {
		return err
	}
	if err := saveToken(result.Token); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	fmt.Printf("✓ User registered: %s\n", result.User.Email)
	return nil
}

func loginUser(args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "user email")
	password := fs.String("password", "", "password")
	_ = fs.Parse(args)

	if *email == "" || *password == "" {
		fs.PrintDefaults()
		return errors.New("email and password are required")
	}

	ctx, cancel := commandContext()
	defer cancel()

	c := newClient()
	result, err := c.Login(ctx, *email, *password)
	if err != nil {
		return err
	}
	if err := saveToken(result.Token); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	fmt.Printf("✓ Logged in as: %s (%s)\n", result.User.Email, result.User.Role)
	return nil
}

func logoutUser() error {
	if err := os.Remove(tokenFile()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	fmt.Println("✓ Logged out")
	return nil
}

func whoAmI() error {
	c := newClient()
	if c.Token() == "" {
		fmt.Println("Not logged in")
		return nil
	}

	ctx, cancel := commandContext()
	defer cancel()

	user, err := c.Me(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("✓ Logged in as: %s %s <%s> (%s)\n", user.FirstName, user.LastName, user.Email, user.Role)
	return nil
}

func listUsers() error {
	ctx, cancel := commandContext()
	defer cancel()

	users, err := newClient().ListUsers(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tEMAIL\tROLE\tCREATED")
	for _, u := range users {
		fmt.Fprintf(w, "%s\t%s %s\t%s\t%s\t%s\n",
			u.ID, u.FirstName, u.LastName, u.Email, u.Role,
			u.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	return w.Flush()
}

// Lead commands
func listLeads(args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	page := fs.Int("page", 1, "page number, starting at 1")
	size := fs.String("size", strconv.Itoa(leadclient.DefaultPageSize), "rows per page: 5, 10, 25 or all")
	_ = fs.Parse(args)

	pageSize, err := parsePageSize(*size)
	if err != nil {
		return err
	}

	ctx, cancel := commandContext()
	defer cancel()

	list := leadclient.NewLeadList(newClient(), nil)
	if err := list.Load(ctx); err != nil {
		return err
	}
	if err := list.SetPageSize(pageSize); err != nil {
		return err
	}
	list.SetPage(*page - 1)

	state := list.State()
	if state.Phase == leadclient.PhaseEmpty {
		fmt.Println("No leads yet")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tEMAIL\tVISAS\tSTATUS\tSUBMITTED")
	for _, l := range list.Page() {
		fmt.Fprintf(w, "%s\t%s %s\t%s\t%s\t%s\t%s\n",
			l.ID,
			l.FirstName, l.LastName,
			l.Email,
			strings.Join(l.VisasOfInterest, ", "),
			l.Status,
			l.CreatedAt.Local().Format("2006-01-02 15:04"),
		)
	}
	w.Flush()

	window := list.PageWindow()
	labels := make([]string, len(window))
	for i, p := range window {
		labels[i] = strconv.Itoa(p + 1)
		if p == list.CurrentPage() {
			labels[i] = "[" + labels[i] + "]"
		}
	}
	fmt.Printf("\npage %d of %d (%d leads)  %s\n",
		list.CurrentPage()+1, list.PageCount(), len(state.Leads), strings.Join(labels, " "))
	return nil
}

func submitLead(args []string) error {
	fs := flag.NewFlagSet("submit", flag.ExitOnError)
	firstName := fs.String("first", "", "first name")
	lastName := fs.String("last", "", "last name")
	email := fs.String("email", "", "email address")
	linkedin := fs.String("linkedin", "", "LinkedIn profile URL")
	resume := fs.String("resume", "", "path to a .pdf, .doc or .docx resume")
	info := fs.String("info", "", "additional information")
	var visas stringList
	fs.Var(&visas, "visa", "visa of interest, repeatable: "+strings.Join(validation.VisaOptions, ", "))
	_ = fs.Parse(args)

	form := leadclient.LeadForm{
		FirstName:       *firstName,
		LastName:        *lastName,
		Email:           *email,
		LinkedInProfile: *linkedin,
		VisasOfInterest: visas,
		AdditionalInfo:  *info,
	}
	if *resume != "" {
		data, err := os.ReadFile(*resume)
		if err != nil {
			return fmt.Errorf("failed to read resume: %w", err)
		}
		form.Resume = &leadclient.Resume{FileName: filepath.Base(*resume), Data: data}
	}

	ctx, cancel := commandContext()
	defer cancel()

	result, err := newClient().SubmitLead(ctx, form)
	if err != nil {
		return err
	}
	fmt.Printf("✓ %s (id: %s)\n", result.Message, result.ID)
	return nil
}

func reachOut(args []string) error {
	if len(args) < 1 {
		fmt.Println("Usage: leadintake leads reach <lead-id>")
		return nil
	}

	ctx, cancel := commandContext()
	defer cancel()

	if err := newClient().UpdateLeadStatus(ctx, args[0], domain.LeadStatusReachedOut); err != nil {
		return err
	}
	fmt.Printf("✓ Lead %s marked as reached out\n", args[0])
	return nil
}

func deleteLead(args []string) error {
	if len(args) < 1 {
		fmt.Println("Usage: leadintake leads delete <lead-id>")
		return nil
	}

	ctx, cancel := commandContext()
	defer cancel()

	if err := newClient().DeleteLead(ctx, args[0]); err != nil {
		return err
	}
	fmt.Printf("✓ Lead %s deleted\n", args[0])
	return nil
}

// Helper functions

// stringList collects a repeatable flag
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func parsePageSize(v string) (int, error) {
	if strings.EqualFold(v, "all") {
		return leadclient.PageSizeAll, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid page size %q", v)
	}
	return n, nil
}

// describe renders API validation details one per line
func describe(err error) string {
	var apiErr *leadclient.APIError
	if !errors.As(err, &apiErr) || len(apiErr.Details) == 0 {
		return err.Error()
	}

	var b strings.Builder
	b.WriteString(apiErr.Message)
	for _, d := range apiErr.Details {
		fmt.Fprintf(&b, "\n  %s: %s", d.Field, d.Message)
	}
	return b.String()
}

func commandContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), requestTimeout)
}

func newClient() *leadclient.Client {
	c := leadclient.New(leadclient.Config{
		BaseURL: getAPIURL(),
		Logger:  logger.NewLogger(getEnv("LEADINTAKE_LOG_LEVEL", "error")),
	})
	c.SetToken(loadToken())
	return c
}

func getAPIURL() string {
	return getEnv("LEADINTAKE_API", "http://localhost:8080")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func tokenFile() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".leadintake", "token")
}

func saveToken(token string) error {
	if err := os.MkdirAll(filepath.Dir(tokenFile()), 0o700); err != nil {
		return err
	}
	return os.WriteFile(tokenFile(), []byte(token), 0o600)
}

func loadToken() string {
	data, _ := os.ReadFile(tokenFile())
	return strings.TrimSpace(string(data))
}

func printUsage() {
	fmt.Print(`Lead Intake CLI

Usage:
  leadintake <command> [options]

Commands:
  auth       Operator authentication (register, login, logout, who)
  leads      Lead operations (list, submit, reach, delete)
  users      List operator accounts (ADMIN only)
  help       Show this help message

Environment Variables:
  LEADINTAKE_API        API endpoint (default: http://localhost:8080)
  LEADINTAKE_LOG_LEVEL  Client log level (default: error)

Examples:
  leadintake auth login -email ops@example.com -password secret
  leadintake leads list -size 10 -page 2
  leadintake leads submit -first Ada -last Lovelace -email ada@example.com \
      -linkedin https://linkedin.com/in/ada -visa "Work Visa" -resume cv.pdf
  leadintake leads reach <lead-id>
  leadintake leads delete <lead-id>
`)
}
