// petctl es la CLI de administración del API: aprobar veterinarios y ver
// estadísticas. Habla HTTP contra el API con un bearer token de admin.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"pet-health-api/internal/platform/httpclient"

	"github.com/fatih/color"
)

const defaultURL = "http://localhost:8080"

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stdout)
		os.Exit(1)
	}

	if err := run(os.Args[1:], os.Getenv, os.Stdout); err != nil {
		color.Red("Error: %v\n", err)
		os.Exit(1)
	}
}

var errUsage = errors.New("unknown command (try: petctl help)")

// run separa el dispatch de os.Exit para poder testearlo.
func run(args []string, getenv func(string) string, out io.Writer) error {
	if len(args) == 0 {
		printUsage(out)
		return errUsage
	}

	baseURL := strings.TrimSpace(getenv("PETCTL_URL"))
	if baseURL == "" {
		baseURL = defaultURL
	}
	client, err := httpclient.New(baseURL, getenv("PETCTL_TOKEN"), 0)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "login":
		return cmdLogin(ctx, client, rest, getenv, out)
	case "vets":
		return cmdVets(ctx, client, rest, out)
	case "approve":
		return cmdDecideVet(ctx, client, rest, "approve", out)
	case "reject":
		return cmdDecideVet(ctx, client, rest, "reject", out)
	case "stats":
		return cmdStats(ctx, client, out)
	case "health":
		return cmdHealth(ctx, client, out)
	case "help", "-h", "--help":
		printUsage(out)
		return nil
	default:
		fmt.Fprintf(out, "Unknown command: %s\n", cmd)
		printUsage(out)
		return errUsage
	}
}

func printUsage(out io.Writer) {
	yellow := color.New(color.FgYellow)

	fmt.Fprintln(out, "Usage: petctl <command> [args]")
	fmt.Fprintln(out)
	yellow.Fprintln(out, "Commands:")
	fmt.Fprintln(out, "  login <email> [password]   Get a token (password from PETCTL_PASSWORD if omitted)")
	fmt.Fprintln(out, "  vets [pending|approved|all] List veterinarians (default: pending)")
	fmt.Fprintln(out, "  approve <vet-id>           Approve a veterinarian")
	fmt.Fprintln(out, "  reject <vet-id>            Reject a veterinarian")
	fmt.Fprintln(out, "  stats                      Show account counters")
	fmt.Fprintln(out, "  health                     Check the API")
	fmt.Fprintln(out)
	yellow.Fprintln(out, "Environment:")
	fmt.Fprintln(out, "  PETCTL_URL     API base URL (default: "+defaultURL+")")
	fmt.Fprintln(out, "  PETCTL_TOKEN   Admin bearer token")
	fmt.Fprintln(out)
	yellow.Fprintln(out, "Example:")
	fmt.Fprintln(out, "  export PETCTL_TOKEN=$(petctl login admin@example.com secret)")
	fmt.Fprintln(out, "  petctl vets pending")
}

func requireToken(c *httpclient.Client) error {
	if c.Token == "" {
		return errors.New("PETCTL_TOKEN environment variable is required")
	}
	return nil
}

// cmdLogin imprime solo el token para poder usarlo en $(...).
func cmdLogin(ctx context.Context, c *httpclient.Client, args []string, getenv func(string) string, out io.Writer) error {
	if len(args) < 1 {
		return errors.New("usage: petctl login <email> [password]")
	}
	password := getenv("PETCTL_PASSWORD")
	if len(args) > 1 {
		password = args[1]
	}
	if password == "" {
		return errors.New("password is required (argument or PETCTL_PASSWORD)")
	}

	var resp struct {
		Token     string    `json:"token"`
		ExpiresAt time.Time `json:"expires_at"`
	}
	err := c.DoJSON(ctx, "POST", "/auth/login", map[string]string{
		"email":    args[0],
		"password": password,
	}, &resp)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}

	fmt.Fprintln(out, resp.Token)
	return nil
}

type vetRow struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	Name           string    `json:"name"`
	Approved       bool      `json:"approved"`
	License        string    `json:"license"`
	Clinic         string    `json:"clinic"`
	Specialization string    `json:"specialization"`
	CreatedAt      time.Time `json:"created_at"`
}

func cmdVets(ctx context.Context, c *httpclient.Client, args []string, out io.Writer) error {
	if err := requireToken(c); err != nil {
		return err
	}

	status := "pending"
	if len(args) > 0 {
		status = strings.ToLower(strings.TrimSpace(args[0]))
	}
	switch status {
	case "pending", "approved", "all":
	default:
		return fmt.Errorf("invalid status %q (pending|approved|all)", status)
	}

	var vets []vetRow
	if err := c.DoJSON(ctx, "GET", "/admin/vets?status="+status, nil, &vets); err != nil {
		return fmt.Errorf("listing vets: %w", err)
	}

	if len(vets) == 0 {
		fmt.Fprintf(out, "No %s veterinarians.\n", status)
		return nil
	}

	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tEMAIL\tNAME\tLICENSE\tCLINIC\tSTATUS\tCREATED")
	for _, v := range vets {
		st := yellow("pending")
		if v.Approved {
			st = green("approved")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			v.ID, v.Email, v.Name, v.License, v.Clinic, st, v.CreatedAt.Format("2006-01-02"))
	}
	return w.Flush()
}

func cmdDecideVet(ctx context.Context, c *httpclient.Client, args []string, action string, out io.Writer) error {
	if err := requireToken(c); err != nil {
		return err
	}
	if len(args) < 1 || strings.TrimSpace(args[0]) == "" {
		return fmt.Errorf("usage: petctl %s <vet-id>", action)
	}

	var vet vetRow
	if err := c.DoJSON(ctx, "PUT", "/admin/vets/"+strings.TrimSpace(args[0])+"/"+action, nil, &vet); err != nil {
		return fmt.Errorf("%s vet: %w", action, err)
	}

	if vet.Approved {
		color.New(color.FgGreen).Fprintf(out, "Approved %s (%s)\n", vet.Email, vet.ID)
	} else {
		color.New(color.FgYellow).Fprintf(out, "Rejected %s (%s)\n", vet.Email, vet.ID)
	}
	return nil
}

func cmdStats(ctx context.Context, c *httpclient.Client, out io.Writer) error {
	if err := requireToken(c); err != nil {
		return err
	}

	var s struct {
		TotalVets    int `json:"total_vets"`
		ApprovedVets int `json:"approved_vets"`
		PendingVets  int `json:"pending_vets"`
		TotalOwners  int `json:"total_owners"`
	}
	if err := c.DoJSON(ctx, "GET", "/admin/stats", nil, &s); err != nil {
		return fmt.Errorf("stats: %w", err)
	}

	cyan := color.New(color.FgCyan)
	cyan.Fprintln(out, "  Accounts")
	cyan.Fprintln(out, "  --------")
	fmt.Fprintf(out, "  Owners:         %d\n", s.TotalOwners)
	fmt.Fprintf(out, "  Vets:           %d\n", s.TotalVets)
	fmt.Fprintf(out, "  Approved vets:  %d\n", s.ApprovedVets)
	if s.PendingVets > 0 {
		color.New(color.FgYellow).Fprintf(out, "  Pending vets:   %d\n", s.PendingVets)
	} else {
		fmt.Fprintf(out, "  Pending vets:   %d\n", s.PendingVets)
	}
	return nil
}

func cmdHealth(ctx context.Context, c *httpclient.Client, out io.Writer) error {
	body, err := c.GetText(ctx, "/health")
	if err != nil {
		fmt.Fprint(out, "  API:  ")
		color.New(color.FgRed).Fprintf(out, "UNHEALTHY (%v)\n", err)
		return err
	}
	fmt.Fprint(out, "  API:  ")
	color.New(color.FgGreen).Fprintf(out, "%s (%s)\n", body, c.BaseURL)
	return nil
}
