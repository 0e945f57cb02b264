package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	cl "empire/internal/cli"
	"empire/internal/config"
	"empire/internal/game"
	"empire/internal/saves"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func main() {
	cfg := config.LoadCLIFromEnv()
	apiBase := cfg.APIBaseURL

	root := &cobra.Command{
		Use:          "emp",
		Short:        "Entrepreneur Empire CLI game client",
		SilenceUsage: true,
	}

	root.AddCommand(
		newSignupCmd(&apiBase),
		newLoginCmd(&apiBase),
		newLogoutCmd(),
		newDashCmd(&apiBase),
		newLoansCmd(&apiBase),
		newCompanyCmd(&apiBase),
		newMarketCmd(&apiBase),
		newStudioCmd(&apiBase),
		newSavesCmd(&apiBase),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newClient(apiBase *string) *cl.Client {
	return cl.NewClient(strings.TrimRight(strings.TrimSpace(*apiBase), "/"))
}

func newSignupCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "signup",
		Short: "Create an Empire account",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, err := promptRequired("Email")
			if err != nil {
				return err
			}
			password, err := promptRequired("Password")
			if err != nil {
				return err
			}
			username, err := promptOptional("Username (optional)")
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			client := newClient(apiBase)
			out, err := client.Signup(ctx, email, password, username)
			if err != nil {
				return err
			}
			token, _ := out["access_token"].(string)
			userID, _ := out["user_id"].(string)
			if strings.TrimSpace(token) == "" {
				printWarn("Signup created but no token returned. Run `emp login`.")
				return nil
			}
			if err := cl.SaveSession(cl.Session{
				AccessToken: token,
				Email:       email,
				UserID:      userID,
			}); err != nil {
				return err
			}
			printSuccess("Signup complete. Session saved.")
			return nil
		},
	}
}

func newLoginCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Login to Empire",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, err := promptRequired("Email")
			if err != nil {
				return err
			}
			password, err := promptRequired("Password")
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			client := newClient(apiBase)
			out, err := client.Login(ctx, email, password)
			if err != nil {
				return err
			}
			token, _ := out["access_token"].(string)
			userID, _ := out["user_id"].(string)
			if err := cl.SaveSession(cl.Session{
				AccessToken: token,
				Email:       email,
				UserID:      userID,
			}); err != nil {
				return err
			}
			printSuccess("Login successful.")
			return nil
		},
	}
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear local session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cl.ClearSession(); err != nil {
				return err
			}
			printSuccess("Logged out.")
			return nil
		},
	}
}

func newDashCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "dash",
		Short: "Show your empire dashboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			client := newClient(apiBase)
			out, err := client.Dashboard(ctx, sess.AccessToken)
			if err != nil {
				return err
			}
			return renderDashboard(out)
		},
	}
}

func newLoansCmd(apiBase *string) *cobra.Command {
	loans := &cobra.Command{
		Use:     "loans",
		Short:   "Loan commands",
		Aliases: []string{"loan"},
	}
	loans.AddCommand(&cobra.Command{
		Use:   "offers",
		Short: "Show the loan offer catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).LoanOffers(ctx, sess.AccessToken)
			if err != nil {
				return err
			}
			return renderLoanOffers(out)
		},
	})
	loans.AddCommand(&cobra.Command{
		Use:   "list [all]",
		Short: "List your loans (active by default)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			all := len(args) > 0 && strings.EqualFold(strings.TrimSpace(args[0]), "all")
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).ListLoans(ctx, sess.AccessToken, all)
			if err != nil {
				return err
			}
			return renderLoans(out)
		},
	})
	loans.AddCommand(&cobra.Command{
		Use:   "quote [type] [amount]",
		Short: "Price a loan against your credit score",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			loanType, amountCents, err := loanArgsOrPrompt(args)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).QuoteLoan(ctx, sess.AccessToken, loanType, amountCents)
			if err != nil {
				return err
			}
			return renderLoanQuote(out)
		},
	})
	loans.AddCommand(&cobra.Command{
		Use:   "take [type] [amount]",
		Short: "Take a loan and receive the cash",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			loanType, amountCents, err := loanArgsOrPrompt(args)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).TakeLoan(ctx, sess.AccessToken, loanType, amountCents, uuid.NewString())
			if err != nil {
				return err
			}
			return renderLoanTaken(out)
		},
	})
	loans.AddCommand(&cobra.Command{
		Use:   "repay [loan_id] [amount]",
		Short: "Repay a loan (omit amount for one monthly payment)",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			loanID, err := int64FromArgOrPrompt(args, 0, "Loan ID")
			if err != nil {
				return err
			}
			var amountCents int64
			if len(args) > 1 {
				dollars, err := strconv.ParseFloat(strings.TrimSpace(args[1]), 64)
				if err != nil || dollars <= 0 {
					return fmt.Errorf("invalid repay amount")
				}
				amountCents = game.DollarsToCents(dollars)
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).RepayLoan(ctx, sess.AccessToken, loanID, amountCents, uuid.NewString())
			if err != nil {
				return err
			}
			return renderLoanRepaid(out)
		},
	})
	return loans
}

func newCompanyCmd(apiBase *string) *cobra.Command {
	company := &cobra.Command{
		Use:     "company",
		Short:   "Venture company commands",
		Aliases: []string{"companies"},
	}
	company.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List your companies",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).ListCompanies(ctx, sess.AccessToken)
			if err != nil {
				return err
			}
			return renderCompanies(out)
		},
	})
	company.AddCommand(&cobra.Command{
		Use:   "create [name]",
		Short: "Found a new company",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			name := ""
			if len(args) > 0 {
				name = strings.TrimSpace(args[0])
			} else {
				name, err = promptRequired("Company name")
				if err != nil {
					return err
				}
			}
			industry, err := promptChoice("Industry", []string{"film", "television", "streaming", "media"}, "film")
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).CreateCompany(ctx, sess.AccessToken, name, industry, uuid.NewString())
			if err != nil {
				return err
			}
			return renderCompanyCreated(out, name, industry)
		},
	})
	company.AddCommand(&cobra.Command{
		Use:   "upgrade [company_id]",
		Short: "Upgrade a company to the next level",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			id, err := int64FromArgOrPrompt(args, 0, "Company ID")
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			if _, err := newClient(apiBase).UpgradeCompany(ctx, sess.AccessToken, id, uuid.NewString()); err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Company %d upgraded.", id))
			return nil
		},
	})
	company.AddCommand(&cobra.Command{
		Use:   "trade [company_id] [buy|sell] [pct]",
		Short: "Buy back or sell company shares",
		Args:  cobra.MaximumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			id, err := int64FromArgOrPrompt(args, 0, "Company ID")
			if err != nil {
				return err
			}
			side, err := sideFromArgOrPrompt(args, 1)
			if err != nil {
				return err
			}
			pct, err := stepFromArgOrPrompt(args, 2, game.VentureTradeSteps)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).TradeVentureShares(ctx, sess.AccessToken, id, side, pct, uuid.NewString())
			if err != nil {
				return err
			}
			return renderTradeResult(out, side, fmt.Sprintf("company %d", id))
		},
	})
	return company
}

func newMarketCmd(apiBase *string) *cobra.Command {
	market := &cobra.Command{
		Use:   "market",
		Short: "Real-company market commands",
	}
	market.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List real companies and your stakes",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).ListMarket(ctx, sess.AccessToken)
			if err != nil {
				return err
			}
			return renderMarketList(out)
		},
	})
	market.AddCommand(&cobra.Command{
		Use:   "show [ticker]",
		Short: "Inspect one real company with its value history",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			ticker, err := tickerFromArgsOrPrompt(args)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).MarketDetail(ctx, sess.AccessToken, ticker)
			if err != nil {
				return err
			}
			return renderMarketDetail(out)
		},
	})
	market.AddCommand(&cobra.Command{
		Use:   "trade [ticker] [buy|sell] [pct]",
		Short: "Trade real-company shares",
		Args:  cobra.MaximumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			ticker := ""
			if len(args) > 0 {
				ticker = strings.ToUpper(strings.TrimSpace(args[0]))
			} else {
				ticker, err = tickerFromArgsOrPrompt(nil)
				if err != nil {
					return err
				}
			}
			side, err := sideFromArgOrPrompt(args, 1)
			if err != nil {
				return err
			}
			pct, err := stepFromArgOrPrompt(args, 2, game.RealCompanyTradeSteps)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).TradeRealShares(ctx, sess.AccessToken, ticker, side, pct, uuid.NewString())
			if err != nil {
				return err
			}
			return renderTradeResult(out, side, ticker)
		},
	})
	return market
}

func newStudioCmd(apiBase *string) *cobra.Command {
	studio := &cobra.Command{
		Use:   "studio",
		Short: "Production studio commands",
	}
	studio.AddCommand(&cobra.Command{
		Use:   "catalog",
		Short: "Show production types and budget bands",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).StudioCatalog(ctx, sess.AccessToken)
			if err != nil {
				return err
			}
			return renderStudioCatalog(out)
		},
	})
	studio.AddCommand(&cobra.Command{
		Use:   "projects",
		Short: "List your productions",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).ListProjects(ctx, sess.AccessToken)
			if err != nil {
				return err
			}
			return renderProjects(out)
		},
	})
	studio.AddCommand(&cobra.Command{
		Use:   "start [company_id]",
		Short: "Start a new production",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			companyID, err := int64FromArgOrPrompt(args, 0, "Company ID")
			if err != nil {
				return err
			}
			title, err := promptRequired("Title")
			if err != nil {
				return err
			}
			genre, err := promptChoice("Genre", []string{"action", "comedy", "drama", "horror", "scifi", "documentary"}, "drama")
			if err != nil {
				return err
			}
			projectType, err := promptChoice("Type", []string{"movie", "series", "documentary"}, "movie")
			if err != nil {
				return err
			}
			dollars, err := promptFloat("Budget (dollars)", 0)
			if err != nil {
				return err
			}
			budgetCents := game.DollarsToCents(dollars)
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).StartProduction(ctx, sess.AccessToken, companyID, title, genre, projectType, budgetCents, uuid.NewString())
			if err != nil {
				return err
			}
			return renderProjectStarted(out)
		},
	})
	studio.AddCommand(&cobra.Command{
		Use:   "auto",
		Short: "Show or edit auto-production settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
			defer cancel()
			client := newClient(apiBase)
			out, err := client.AutoSettings(ctx, sess.AccessToken)
			if err != nil {
				return err
			}
			if err := renderAutoSettings(out); err != nil {
				return err
			}
			edit, err := promptChoice("Edit settings", []string{"yes", "no"}, "no")
			if err != nil {
				return err
			}
			if edit != "yes" {
				return nil
			}
			settings, err := promptAutoSettings()
			if err != nil {
				return err
			}
			saved, err := client.SaveAutoSettings(ctx, sess.AccessToken, settings)
			if err != nil {
				return err
			}
			printSuccess("Auto-production settings saved.")
			return renderAutoSettings(saved)
		},
	})
	studio.AddCommand(&cobra.Command{
		Use:   "plan",
		Short: "Preview what the auto-planner would produce next",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).AutoPlan(ctx, sess.AccessToken)
			if err != nil {
				return err
			}
			return renderAutoPlan(out)
		},
	})
	return studio
}

func newSavesCmd(apiBase *string) *cobra.Command {
	savesCmd := &cobra.Command{
		Use:   "saves",
		Short: "Manage save slots",
	}
	savesCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List save slots",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).ListSaves(ctx, sess.AccessToken)
			if err != nil {
				return renderLocalSaves()
			}
			return renderSaves(out)
		},
	})
	savesCmd.AddCommand(&cobra.Command{
		Use:   "write [slot_id]",
		Short: "Snapshot current progress into a slot",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			slotID := saves.MainSlotID
			if len(args) > 0 {
				slotID = strings.ToLower(strings.TrimSpace(args[0]))
			}
			name, err := promptOptional("Slot name (optional)")
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).WriteSave(ctx, sess.AccessToken, slotID, name)
			if err != nil {
				return err
			}
			mirrorSlotLocally(out)
			return renderSaveWritten(out)
		},
	})
	savesCmd.AddCommand(&cobra.Command{
		Use:   "delete [slot_id]",
		Short: "Delete a save slot (main is protected)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			slotID := ""
			if len(args) > 0 {
				slotID = strings.ToLower(strings.TrimSpace(args[0]))
			} else {
				slotID, err = promptRequired("Slot ID")
				if err != nil {
					return err
				}
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			if _, err := newClient(apiBase).DeleteSave(ctx, sess.AccessToken, slotID); err != nil {
				return err
			}
			if dir, err := cl.SavesDir(); err == nil {
				if store, err := saves.NewStore(dir); err == nil {
					_ = store.Delete(slotID)
				}
			}
			printSuccess(fmt.Sprintf("Deleted slot %s.", slotID))
			return nil
		},
	})
	return savesCmd
}

// mirrorSlotLocally keeps an offline copy of the latest snapshot so `saves
// list` still works when the API is unreachable.
func mirrorSlotLocally(raw map[string]any) {
	view, err := decodeInto[game.SaveSlotView](raw)
	if err != nil {
		return
	}
	dir, err := cl.SavesDir()
	if err != nil {
		return
	}
	store, err := saves.NewStore(dir)
	if err != nil {
		return
	}
	_ = store.Write(saves.Slot{
		ID:            view.ID,
		Name:          view.Name,
		LastPlayed:    view.LastPlayed,
		NetWorthCents: view.NetWorthCents,
		Companies:     view.Companies,
		PlaySeconds:   view.PlaySeconds,
	})
}

func loanArgsOrPrompt(args []string) (loanType string, amountCents int64, err error) {
	if len(args) > 0 {
		loanType = strings.ToLower(strings.TrimSpace(args[0]))
	} else {
		loanType, err = promptChoice("Loan type", []string{"small", "medium", "large", "emergency"}, "small")
		if err != nil {
			return "", 0, err
		}
	}
	if len(args) > 1 {
		dollars, perr := strconv.ParseFloat(strings.TrimSpace(args[1]), 64)
		if perr != nil || dollars <= 0 {
			return "", 0, fmt.Errorf("invalid loan amount")
		}
		amountCents = game.DollarsToCents(dollars)
		return loanType, amountCents, nil
	}
	dollars, err := promptFloat("Amount (dollars)", 0)
	if err != nil {
		return "", 0, err
	}
	return loanType, game.DollarsToCents(dollars), nil
}

func sideFromArgOrPrompt(args []string, idx int) (string, error) {
	if len(args) > idx {
		side := strings.ToLower(strings.TrimSpace(args[idx]))
		if side != "buy" && side != "sell" {
			return "", fmt.Errorf("side must be buy or sell")
		}
		return side, nil
	}
	return promptChoice("Side", []string{"buy", "sell"}, "buy")
}

func stepFromArgOrPrompt(args []string, idx int, steps []float64) (float64, error) {
	options := make([]string, 0, len(steps))
	for _, s := range steps {
		options = append(options, strconv.FormatFloat(s, 'f', -1, 64))
	}
	if len(args) > idx {
		pct, err := strconv.ParseFloat(strings.TrimSpace(args[idx]), 64)
		if err != nil || !game.AllowedTradeStep(pct, steps) {
			return 0, fmt.Errorf("pct must be one of %s", strings.Join(options, "/"))
		}
		return pct, nil
	}
	choice, err := promptChoice("Percent", options, options[0])
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(choice, 64)
}

func tickerFromArgsOrPrompt(args []string) (string, error) {
	if len(args) > 0 {
		return strings.ToUpper(strings.TrimSpace(args[0])), nil
	}
	ticker, err := promptRequired("Ticker")
	if err != nil {
		return "", err
	}
	return strings.ToUpper(strings.TrimSpace(ticker)), nil
}

func int64FromArgOrPrompt(args []string, idx int, label string) (int64, error) {
	if len(args) > idx {
		v, err := strconv.ParseInt(strings.TrimSpace(args[idx]), 10, 64)
		if err != nil || v <= 0 {
			return 0, fmt.Errorf("invalid %s", strings.ToLower(label))
		}
		return v, nil
	}
	return promptInt64(label, 1)
}
