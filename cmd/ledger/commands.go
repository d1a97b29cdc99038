package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/lgndcraft2/ledger/internal/apiclient"
	"github.com/lgndcraft2/ledger/internal/authflow"
	"github.com/lgndcraft2/ledger/internal/dashboard"
	"github.com/lgndcraft2/ledger/internal/ledger"
	"github.com/lgndcraft2/ledger/internal/money"
)

var (
	errNotSignedIn    = errors.New("not signed in, run `ledger login` first")
	errSessionExpired = errors.New("session expired, run `ledger login` again")
)

func (c *cli) requireSession(*cobra.Command, []string) error {
	if !c.sess.Authenticated() {
		return errNotSignedIn
	}
	return nil
}

// expired drops a token the API no longer accepts so the next command
// starts from login.
func (c *cli) expired(ctx context.Context, err error) error {
	var he *apiclient.HTTPError
	if !errors.As(err, &he) || he.Status != http.StatusUnauthorized {
		return err
	}
	if endErr := c.sess.End(ctx); endErr != nil {
		c.log.Warn().Err(endErr).Msg("clear expired session")
	}
	return errSessionExpired
}

func (c *cli) loginCmd() *cobra.Command {
	var (
		phone       string
		requestOnly bool
	)
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Request a code for a phone number and sign in",
		Long: "Request a one-time code and sign in. At the code prompt, type b to go back\n" +
			"and change the phone number; pressing enter at the phone prompt keeps it.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.login(cmd.Context(), phone, requestOnly)
		},
	}
	cmd.Flags().StringVar(&phone, "phone", "", "phone number")
	cmd.Flags().BoolVar(&requestOnly, "request-only", false, "only send the code; finish with `ledger verify`")
	return cmd
}

func (c *cli) login(ctx context.Context, phone string, requestOnly bool) error {
	flow := authflow.New(c.api, c.sess, c.log)
	if flow.Step() == authflow.Authenticated {
		fmt.Fprintln(c.out, "Already signed in.")
		return nil
	}

	sc := bufio.NewScanner(c.in)
	prompt := func(label string) (string, bool) {
		fmt.Fprint(c.out, label)
		if !sc.Scan() {
			return "", false
		}
		return strings.TrimSpace(sc.Text()), true
	}

	flow.SetPhone(phone)
	askPhone := phone == ""
	for flow.Step() != authflow.Authenticated {
		switch flow.Step() {
		case authflow.PhoneEntry:
			if askPhone || !flow.CanRequestCode() {
				label := "Phone number: "
				if cur := flow.Phone(); cur != "" {
					label = fmt.Sprintf("Phone number [%s]: ", cur)
				}
				p, ok := prompt(label)
				if !ok {
					return io.ErrUnexpectedEOF
				}
				if p != "" {
					flow.SetPhone(p)
				}
				askPhone = false
				if !flow.CanRequestCode() {
					fmt.Fprintf(c.out, "Enter at least %d digits.\n", authflow.MinPhoneLen)
					askPhone = true
					continue
				}
			}
			if err := flow.RequestCode(ctx); err != nil {
				fmt.Fprintln(c.out, authflow.Message(err))
				return err
			}
			fmt.Fprintf(c.out, "Code sent to %s.\n", flow.Phone())
			if requestOnly {
				return nil
			}

		case authflow.CodeEntry:
			code, ok := prompt("6-digit code (b to go back): ")
			if !ok {
				return io.ErrUnexpectedEOF
			}
			if strings.EqualFold(code, "b") {
				flow.Back()
				askPhone = true
				continue
			}
			flow.SetCode(code)
			if !flow.CanVerify() {
				fmt.Fprintf(c.out, "The code has %d digits.\n", authflow.CodeLen)
				continue
			}
			if err := flow.Verify(ctx); err != nil {
				fmt.Fprintln(c.out, authflow.Message(err))
			}
		}
	}

	fmt.Fprintln(c.out, "Signed in.")
	return nil
}

func (c *cli) verifyCmd() *cobra.Command {
	var phone, code string
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Finish signing in with a code requested earlier",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			flow := authflow.New(c.api, c.sess, c.log)
			if flow.Step() == authflow.Authenticated {
				fmt.Fprintln(c.out, "Already signed in.")
				return nil
			}
			if err := flow.ResumeCodeEntry(phone); err != nil {
				return fmt.Errorf("--phone needs at least %d characters", authflow.MinPhoneLen)
			}
			flow.SetCode(code)
			if err := flow.Verify(ctx); err != nil {
				fmt.Fprintln(c.out, authflow.Message(err))
				return err
			}
			fmt.Fprintln(c.out, "Signed in.")
			return nil
		},
	}
	cmd.Flags().StringVar(&phone, "phone", "", "phone number the code was sent to")
	cmd.Flags().StringVar(&code, "code", "", "6-digit code")
	_ = cmd.MarkFlagRequired("phone")
	_ = cmd.MarkFlagRequired("code")
	return cmd
}

func (c *cli) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.sess.End(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(c.out, "Signed out.")
			return nil
		},
	}
}

func (c *cli) newModel() *dashboard.Model {
	return dashboard.New(c.api, c.summarizer(), c.log)
}

func (c *cli) dashboardCmd() *cobra.Command {
	var tab, filter string
	cmd := &cobra.Command{
		Use:     "dashboard",
		Short:   "Show stats and transactions",
		Args:    cobra.NoArgs,
		PreRunE: c.requireSession,
		RunE: func(cmd *cobra.Command, _ []string) error {
			t, err := parseTab(tab)
			if err != nil {
				return err
			}
			ft, err := parseFilter(filter)
			if err != nil {
				return err
			}
			return c.dashboard(cmd.Context(), t, ft)
		},
	}
	cmd.Flags().StringVar(&tab, "tab", string(ledger.TabHome), "home, transactions or debts")
	cmd.Flags().StringVar(&filter, "filter", string(ledger.FilterAll), "ALL, SALE or PURCHASE")
	return cmd
}

func (c *cli) dashboard(ctx context.Context, t ledger.Tab, ft ledger.FilterType) error {
	m := c.newModel()
	defer m.Close()
	m.Load(ctx)
	if err := m.Err(); err != nil {
		if errors.Is(c.expired(ctx, err), errSessionExpired) {
			return errSessionExpired
		}
		c.log.Debug().Err(err).Msg("dashboard unavailable")
		fmt.Fprintln(c.out, "Could not load the dashboard; showing nothing.")
	}
	m.SetTab(t)
	m.SetFilter(ft)

	stats := m.Stats()
	fmt.Fprintf(c.out, "Total sales:  %s\nActive debts: %s\n\n", money.Format(stats.TotalSales), money.Format(stats.ActiveDebts))

	rows := m.Visible()
	if t == ledger.TabHome {
		rows = m.Recent(dashboard.HomePreview)
	}
	printTransactions(c.out, rows)
	return nil
}

func (c *cli) addCmd() *cobra.Command {
	f := dashboard.NewForm()
	typ := string(f.Type)
	cmd := &cobra.Command{
		Use:     "add",
		Short:   "Record a sale or purchase",
		Args:    cobra.NoArgs,
		PreRunE: c.requireSession,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			f.Type = ledger.TransactionType(typ)

			m := c.newModel()
			defer m.Close()
			if err := m.Submit(ctx, f); err != nil {
				fmt.Fprintln(c.out, dashboard.SaveFailedMessage)
				return c.expired(ctx, err)
			}

			stats := m.Stats()
			fmt.Fprintf(c.out, "Saved. Total sales %s, active debts %s.\n", money.Format(stats.TotalSales), money.Format(stats.ActiveDebts))
			return nil
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&typ, "type", typ, "SALE or PURCHASE")
	fl.StringVar(&f.Party, "party", "", "customer or supplier name")
	fl.StringVar(&f.Item, "item", "", "item name")
	fl.StringVar(&f.Quantity, "qty", f.Quantity, "quantity")
	fl.StringVar(&f.Total, "total", "", "total amount")
	fl.StringVar(&f.Paid, "paid", "", "amount paid (blank means paid in full)")
	return cmd
}

func (c *cli) payCmd() *cobra.Command {
	var party, typ, amount string
	cmd := &cobra.Command{
		Use:   "pay",
		Short: "Record money collected from a customer or paid to a supplier",
		Long: "Record a payment against an open debt. Use --type SALE when a customer pays\n" +
			"you and --type PURCHASE when you pay a supplier. Oldest debts are settled first.",
		Args:    cobra.NoArgs,
		PreRunE: c.requireSession,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			amt, err := money.FromInput(amount)
			if err != nil {
				return err
			}
			req := ledger.PaymentRequest{
				Party:  strings.TrimSpace(party),
				Type:   ledger.TransactionType(strings.ToUpper(strings.TrimSpace(typ))),
				Amount: amt,
			}
			p, err := c.api.PayDebt(ctx, req)
			if err != nil {
				return c.expired(ctx, err)
			}
			if p.Type == ledger.Purchase {
				fmt.Fprintf(c.out, "Recorded. You still owe %s %s.\n", p.Party, money.Format(p.Remaining))
			} else {
				fmt.Fprintf(c.out, "Recorded. %s still owes %s.\n", p.Party, money.Format(p.Remaining))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&party, "party", "", "customer or supplier name")
	cmd.Flags().StringVar(&typ, "type", string(ledger.Sale), "SALE (customer pays you) or PURCHASE (you pay a supplier)")
	cmd.Flags().StringVar(&amount, "amount", "", "amount paid")
	return cmd
}

func (c *cli) insightCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "insight",
		Short:   "Summarise the business",
		Args:    cobra.NoArgs,
		PreRunE: c.requireSession,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			m := c.newModel()
			defer m.Close()
			m.Load(ctx)

			fmt.Fprintln(c.out, "Analyzing your business...")
			s, err := m.Insight(ctx)
			if err != nil {
				return c.expired(ctx, fmt.Errorf("insight: %w", err))
			}
			fmt.Fprintln(c.out, s)
			return nil
		},
	}
}

func (c *cli) debtsCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "debts",
		Short:   "List who owes you and whom you owe",
		Args:    cobra.NoArgs,
		PreRunE: c.requireSession,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := c.api.Debts(cmd.Context())
			if err != nil {
				return c.expired(cmd.Context(), err)
			}
			printParties(c.out, "Customers who owe you", d.Customers)
			fmt.Fprintln(c.out)
			printParties(c.out, "Suppliers you owe", d.Suppliers)
			return nil
		},
	}
}

func (c *cli) statementCmd() *cobra.Command {
	var from, to, outPath string
	cmd := &cobra.Command{
		Use:     "statement",
		Short:   "Download a PDF statement",
		Args:    cobra.NoArgs,
		PreRunE: c.requireSession,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pdf, err := c.api.Statement(cmd.Context(), from, to)
			if err != nil {
				return c.expired(cmd.Context(), err)
			}
			if err := os.WriteFile(outPath, pdf, 0o600); err != nil {
				return err
			}
			fmt.Fprintf(c.out, "Statement saved to %s\n", outPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "first day, YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "last day, YYYY-MM-DD")
	cmd.Flags().StringVarP(&outPath, "out", "o", "statement.pdf", "where to write the PDF")
	return cmd
}

func parseTab(s string) (ledger.Tab, error) {
	switch t := ledger.Tab(strings.ToLower(strings.TrimSpace(s))); t {
	case ledger.TabHome, ledger.TabTransactions, ledger.TabDebts:
		return t, nil
	default:
		return "", fmt.Errorf("unknown tab %q", s)
	}
}

func parseFilter(s string) (ledger.FilterType, error) {
	switch f := ledger.FilterType(strings.ToUpper(strings.TrimSpace(s))); f {
	case ledger.FilterAll, ledger.FilterSale, ledger.FilterPurchase:
		return f, nil
	default:
		return "", fmt.Errorf("unknown filter %q", s)
	}
}

func printTransactions(w io.Writer, txns []ledger.Transaction) {
	if len(txns) == 0 {
		fmt.Fprintln(w, "No transactions.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tTYPE\tPARTY\tITEM\tAMOUNT\tSTATUS")
	for _, t := range txns {
		status := "Paid"
		if t.IsDebt() {
			status = "Owes " + money.Format(t.Balance)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", t.DisplayDate(), t.Type, t.Party, t.Item, money.Format(t.Amount), status)
	}
	tw.Flush()
}

func printParties(w io.Writer, title string, parties []ledger.PartyBalance) {
	fmt.Fprintln(w, title+":")
	if len(parties) == 0 {
		fmt.Fprintln(w, "  none")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, p := range parties {
		fmt.Fprintf(tw, "  %s\t%s\n", p.Party, money.Format(p.Balance))
	}
	tw.Flush()
}
