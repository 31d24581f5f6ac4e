package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/peterbourgon/ff/v4"
	"github.com/shopspring/decimal"

	"github.com/Ginzoh/bill-app-MK/internal/bill"
	"github.com/Ginzoh/bill-app-MK/internal/session"
	"github.com/Ginzoh/bill-app-MK/internal/store"
)

// clientFlags are shared by every command that talks to the API
type clientFlags struct {
	session *string
	apiURL  *string
	apiUser *string
	apiPass *string
}

func addClientFlags(fs *ff.FlagSet) clientFlags {
	return clientFlags{
		session: fs.StringLong("session", "bill-app-session.db", "Session file path"),
		apiURL:  fs.StringLong("api-url", "http://localhost:5678", "Bill API base URL"),
		apiUser: fs.StringLong("api-user", "", "Basic auth username (optional)"),
		apiPass: fs.StringLong("api-pass", "", "Basic auth password (optional)"),
	}
}

func (f clientFlags) openSession() (*session.BoltStorage, *session.Identity, error) {
	storage, err := session.NewBoltStorage(*f.session)
	if err != nil {
		return nil, nil, fmt.Errorf("opening session: %w", err)
	}
	return storage, session.NewIdentity(storage), nil
}

func (f clientFlags) client() *store.Client {
	return store.NewClient(*f.apiURL, *f.apiUser, *f.apiPass)
}

func loginCommand() *ff.Command {
	fs := ff.NewFlagSet("login")
	cf := addClientFlags(fs)
	email := fs.StringLong("email", "", "Employee email")
	userType := fs.StringLong("type", session.TypeEmployee, "User type: 'Employee' or 'Admin'")

	return &ff.Command{
		Name:      "login",
		Usage:     "bill-app login --email <email> [flags]",
		ShortHelp: "Store the user in the session",
		Flags:     fs,
		Exec: func(ctx context.Context, args []string) error {
			if *email == "" {
				return errors.New("--email is required")
			}
			storage, identity, err := cf.openSession()
			if err != nil {
				return err
			}
			defer storage.Close()

			if err := identity.Login(session.User{Type: *userType, Email: *email}); err != nil {
				return err
			}
			slog.Info("Logged in", "email", *email, "type", *userType)
			return nil
		},
	}
}

func logoutCommand() *ff.Command {
	fs := ff.NewFlagSet("logout")
	cf := addClientFlags(fs)

	return &ff.Command{
		Name:      "logout",
		Usage:     "bill-app logout [flags]",
		ShortHelp: "Clear the session",
		Flags:     fs,
		Exec: func(ctx context.Context, args []string) error {
			storage, identity, err := cf.openSession()
			if err != nil {
				return err
			}
			defer storage.Close()

			if err := identity.Logout(); err != nil {
				return err
			}
			slog.Info("Logged out")
			return nil
		},
	}
}

func listCommand() *ff.Command {
	fs := ff.NewFlagSet("list")
	cf := addClientFlags(fs)

	return &ff.Command{
		Name:      "list",
		Usage:     "bill-app list [flags]",
		ShortHelp: "List the bills of the logged-in employee",
		Flags:     fs,
		Exec: func(ctx context.Context, args []string) error {
			storage, identity, err := cf.openSession()
			if err != nil {
				return err
			}
			defer storage.Close()

			email, err := identity.CurrentEmail()
			if err != nil {
				return fmt.Errorf("resolving session: %w", err)
			}
			return printBills(ctx, os.Stdout, cf.client(), email)
		},
	}
}

func newCommand() *ff.Command {
	fs := ff.NewFlagSet("new")
	cf := addClientFlags(fs)
	var (
		file       = fs.StringLong("file", "", "Receipt image (.jpg, .jpeg or .png)")
		billType   = fs.StringLong("type", "", "Expense type")
		name       = fs.StringLong("name", "", "Expense name")
		date       = fs.StringLong("date", "", "Expense date (YYYY-MM-DD)")
		amount     = fs.StringLong("amount", "", "Amount including taxes")
		vat        = fs.StringLong("vat", "", "VAT amount")
		pct        = fs.StringLong("pct", "", "VAT percentage (default 20)")
		commentary = fs.StringLong("commentary", "", "Commentary")
	)

	return &ff.Command{
		Name:      "new",
		Usage:     "bill-app new --file <receipt> [flags]",
		ShortHelp: "Submit a new bill",
		LongHelp:  "Uploads the receipt, then submits the bill. Fields left empty are filled from the receipt scan when the server provides one.",
		Flags:     fs,
		Exec: func(ctx context.Context, args []string) error {
			form := bill.FormValues{
				Type:       *billType,
				Name:       *name,
				Date:       *date,
				Amount:     *amount,
				VAT:        *vat,
				Pct:        *pct,
				Commentary: *commentary,
			}
			// Same checks the form inputs apply before they can be submitted
			if err := bill.ValidateForm(form); err != nil {
				return err
			}

			storage, identity, err := cf.openSession()
			if err != nil {
				return err
			}
			defer storage.Close()

			client := cf.client()
			nav := &cliNavigator{}
			controller := bill.NewController(client, identity, nav, &cliView{out: os.Stderr})

			if *file != "" {
				data, err := os.ReadFile(*file)
				if err != nil {
					return fmt.Errorf("reading receipt: %w", err)
				}
				v, task := controller.HandleChangeFile(ctx, bill.Attachment{
					Name: filepath.Base(*file),
					Data: data,
				})
				if !v.Accepted {
					return fmt.Errorf("receipt %s: %w", v.Name, bill.ErrUnsupportedType)
				}
				if _, err := task.Wait(ctx); err != nil {
					// The bill is still submitted, without a receipt
					slog.Warn("Receipt upload failed", "error", err)
				}
			}

			if p := controller.PendingUpload(); p != nil && p.Scan != nil {
				form = fillFromScan(form, p.Scan)
			}

			b, err := controller.HandleSubmit(ctx, form)
			if err != nil {
				return err
			}
			slog.Info("Bill submitted", "id", b.ID, "name", b.Name, "amount", b.Amount.String())

			if nav.route == bill.RouteBills {
				return printBills(ctx, os.Stdout, client, b.Email)
			}
			return nil
		},
	}
}

// fillFromScan fills the fields the user left empty with the scanned values
func fillFromScan(form bill.FormValues, scan *bill.ScanSuggestion) bill.FormValues {
	if form.Name == "" {
		form.Name = scan.Title
	}
	if form.Date == "" {
		form.Date = scan.Date
	}
	if form.Amount == "" && scan.Amount > 0 {
		form.Amount = decimal.NewFromFloat(scan.Amount).String()
	}
	if form.Type == "" {
		form.Type = scan.Type
	}
	return form
}

func printBills(ctx context.Context, out io.Writer, client *store.Client, email string) error {
	bills, err := client.List(ctx, email)
	if err != nil {
		return fmt.Errorf("listing bills: %w", err)
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDATE\tTYPE\tNAME\tAMOUNT\tSTATUS")
	for _, b := range bills {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", b.ID, b.Date, b.Type, b.Name, b.Amount.StringFixed(2), b.Status)
	}
	return w.Flush()
}

// cliNavigator remembers where the controller sent the user
type cliNavigator struct {
	route string
}

func (n *cliNavigator) GoTo(route string) {
	n.route = route
}

// cliView reports file errors on the terminal
type cliView struct {
	out io.Writer
}

func (v *cliView) ClearFileInput() {}

func (v *cliView) ShowFileError(reason string) {
	fmt.Fprintf(v.out, "error: %s: only .jpg, .jpeg and .png receipts are accepted\n", reason)
}

func (v *cliView) HideFileError() {}
