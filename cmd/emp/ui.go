package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	cl "empire/internal/cli"
	"empire/internal/game"
	"empire/internal/saves"

	"github.com/fatih/color"
)

var (
	stdinReader = bufio.NewReader(os.Stdin)
	accent      = color.New(color.FgCyan, color.Bold)
	success     = color.New(color.FgGreen, color.Bold)
	warn        = color.New(color.FgYellow, color.Bold)
	danger      = color.New(color.FgRed, color.Bold)
	neutral     = color.New(color.FgHiWhite)
)

type offersPayload struct {
	Offers []game.LoanOffer `json:"offers"`
}

type loansPayload struct {
	Loans []game.LoanView `json:"loans"`
}

type companiesPayload struct {
	Companies []game.CompanyView `json:"companies"`
}

type marketPayload struct {
	Companies []game.RealCompanyView `json:"companies"`
}

type projectsPayload struct {
	Projects []game.ProjectView `json:"projects"`
}

type catalogPayload struct {
	Projects []catalogSpec `json:"projects"`
}

// ProjectSpec serializes with Go field names; ProductionTime arrives as
// nanoseconds.
type catalogSpec struct {
	Type           string `json:"Type"`
	DisplayName    string `json:"DisplayName"`
	MinBudgetCents int64  `json:"MinBudgetCents"`
	MaxBudgetCents int64  `json:"MaxBudgetCents"`
	ProductionTime int64  `json:"ProductionTime"`
}

type slotsPayload struct {
	Slots []game.SaveSlotView `json:"slots"`
}

type createCompanyPayload struct {
	ID int64 `json:"id"`
}

func printSuccess(msg string) {
	success.Println(msg)
}

func printWarn(msg string) {
	warn.Println(msg)
}

func printInfo(msg string) {
	neutral.Println(msg)
}

func promptRequired(label string) (string, error) {
	for {
		fmt.Printf("%s: ", label)
		text, err := stdinReader.ReadString('\n')
		if err != nil {
			return "", err
		}
		text = strings.TrimSpace(text)
		if text != "" {
			return text, nil
		}
		printWarn(label + " is required.")
	}
}

func promptOptional(label string) (string, error) {
	fmt.Printf("%s: ", label)
	text, err := stdinReader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func promptChoice(label string, options []string, defaultValue string) (string, error) {
	normalized := make(map[string]struct{}, len(options))
	for _, opt := range options {
		normalized[strings.ToLower(strings.TrimSpace(opt))] = struct{}{}
	}
	for {
		fmt.Printf("%s (%s) [%s]: ", label, strings.Join(options, "/"), defaultValue)
		text, err := stdinReader.ReadString('\n')
		if err != nil {
			return "", err
		}
		text = strings.ToLower(strings.TrimSpace(text))
		if text == "" {
			text = strings.ToLower(strings.TrimSpace(defaultValue))
		}
		if _, ok := normalized[text]; ok {
			return text, nil
		}
		printWarn("Invalid option. Please pick one of the listed values.")
	}
}

func promptFloat(label string, min float64) (float64, error) {
	for {
		text, err := promptRequired(label)
		if err != nil {
			return 0, err
		}
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			printWarn("Enter a valid number.")
			continue
		}
		if v <= min {
			printWarn(fmt.Sprintf("Value must be > %.4f", min))
			continue
		}
		return v, nil
	}
}

func promptInt64(label string, min int64) (int64, error) {
	for {
		text, err := promptRequired(label)
		if err != nil {
			return 0, err
		}
		v, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			printWarn("Enter a whole number.")
			continue
		}
		if v < min {
			printWarn(fmt.Sprintf("Value must be >= %d", min))
			continue
		}
		return v, nil
	}
}

func promptAutoSettings() (map[string]any, error) {
	enabled, err := promptChoice("Enabled", []string{"yes", "no"}, "yes")
	if err != nil {
		return nil, err
	}
	reserve, err := promptFloat("Min cash reserve (dollars)", -1)
	if err != nil {
		return nil, err
	}
	pct, err := promptFloat("Max investment fraction (0.05-0.50)", 0)
	if err != nil {
		return nil, err
	}
	preferred, err := promptChoice("Preferred type", []string{"auto", "movie", "series", "documentary"}, "auto")
	if err != nil {
		return nil, err
	}
	aggr, err := promptChoice("Aggressiveness", []string{"conservative", "balanced", "aggressive"}, "balanced")
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"enabled":                enabled == "yes",
		"min_cash_reserve_cents": game.DollarsToCents(reserve),
		"max_investment_pct":     pct,
		"preferred_type":         preferred,
		"aggressiveness":         aggr,
	}, nil
}

func renderDashboard(raw map[string]any) error {
	d, err := decodeInto[game.Dashboard](raw)
	if err != nil {
		return err
	}

	accent.Println("\n== EMPIRE DASHBOARD ==")
	fmt.Printf("Cash:         %s\n", formatCents(d.CashCents))
	fmt.Printf("Net Worth:    %s\n", formatCents(d.NetWorthCents))
	fmt.Printf("Credit Score: %d (%s)\n", d.CreditScore, d.CreditLabel)
	fmt.Printf("Play Time:    %s\n", (time.Duration(d.PlaySeconds) * time.Second).String())
	fmt.Printf("Productions:  %d active, %d released\n", d.ActiveProjects, d.ReleasedProjects)

	fmt.Println()
	accent.Println("Loans")
	if len(d.Loans) == 0 {
		printInfo("No active loans.")
	} else {
		printLoanTable(d.Loans)
	}

	fmt.Println()
	accent.Println("Companies")
	if len(d.Companies) == 0 {
		printInfo("No companies founded yet.")
	} else {
		printCompanyTable(d.Companies)
	}

	fmt.Println()
	accent.Println("Market Holdings")
	if len(d.Holdings) == 0 {
		printInfo("No real-company stakes yet.")
	} else {
		fmt.Printf("%-8s %-22s %9s %14s %14s\n", "TICKER", "NAME", "OWNED", "MKT VALUE", "STAKE")
		for _, h := range d.Holdings {
			fmt.Printf("%-8s %-22s %8.2f%% %14s %14s\n",
				h.Ticker,
				truncate(h.Name, 22),
				h.SharesOwnedPct,
				formatCents(h.MarketValueCents),
				formatCents(h.StakeValueCents),
			)
		}
	}
	fmt.Println()
	return nil
}

func renderLoanOffers(raw map[string]any) error {
	payload, err := decodeInto[offersPayload](raw)
	if err != nil {
		return err
	}
	accent.Println("\n== LOAN OFFERS ==")
	fmt.Printf("%-10s %-16s %14s %14s %7s %6s %7s\n", "TYPE", "NAME", "MIN", "MAX", "RATE", "TERM", "SCORE")
	for _, o := range payload.Offers {
		fmt.Printf("%-10s %-16s %14s %14s %6.2f%% %4dmo %7d\n",
			o.Type,
			truncate(o.Name, 16),
			formatCents(o.MinAmountCents),
			formatCents(o.MaxAmountCents),
			o.BaseAnnualRate*100,
			o.TermMonths,
			o.CreditScoreRequired,
		)
	}
	fmt.Println()
	return nil
}

func renderLoans(raw map[string]any) error {
	payload, err := decodeInto[loansPayload](raw)
	if err != nil {
		return err
	}
	accent.Println("\n== LOANS ==")
	if len(payload.Loans) == 0 {
		printInfo("No loans found.")
		return nil
	}
	printLoanTable(payload.Loans)
	fmt.Println()
	return nil
}

func printLoanTable(loans []game.LoanView) {
	fmt.Printf("%-4s %-10s %14s %14s %7s %12s %6s %7s %-10s\n",
		"ID", "TYPE", "BALANCE", "ORIGINAL", "RATE", "MONTHLY", "LEFT", "MISSED", "STATUS")
	for _, l := range loans {
		fmt.Printf("%-4d %-10s %14s %14s %6.2f%% %12s %6d %7d %-10s\n",
			l.ID,
			l.Type,
			formatCents(l.BalanceCents),
			formatCents(l.OriginalCents),
			l.AnnualRate*100,
			formatCents(l.MonthlyPaymentCents),
			l.RemainingPayments,
			l.MissedPayments,
			l.Status,
		)
	}
}

func renderLoanQuote(raw map[string]any) error {
	q, err := decodeInto[game.LoanQuote](raw)
	if err != nil {
		return err
	}
	accent.Printf("\n== LOAN QUOTE: %s ==\n", strings.ToUpper(string(q.Offer.Type)))
	fmt.Printf("Amount:          %s\n", formatCents(q.AmountCents))
	fmt.Printf("Adjusted Rate:   %.2f%%\n", q.AdjustedRate*100)
	fmt.Printf("Term:            %d months\n", q.Offer.TermMonths)
	fmt.Printf("Monthly Payment: %s\n", formatCents(q.MonthlyPaymentCents))
	fmt.Printf("Total Repayment: %s\n", formatCents(q.TotalRepaymentCents))
	fmt.Println()
	return nil
}

func renderLoanTaken(raw map[string]any) error {
	l, err := decodeInto[game.LoanView](raw)
	if err != nil {
		return err
	}
	printSuccess(fmt.Sprintf("Loan #%d disbursed: %s at %.2f%%, %s monthly for %d months.",
		l.ID, formatCents(l.OriginalCents), l.AnnualRate*100, formatCents(l.MonthlyPaymentCents), l.TotalPayments))
	return nil
}

func renderLoanRepaid(raw map[string]any) error {
	l, err := decodeInto[game.LoanView](raw)
	if err != nil {
		return err
	}
	if l.Status == "paid_off" {
		printSuccess(fmt.Sprintf("Loan #%d paid off.", l.ID))
		return nil
	}
	printSuccess(fmt.Sprintf("Payment applied to loan #%d. Balance %s, %d payments left.",
		l.ID, formatCents(l.BalanceCents), l.RemainingPayments))
	return nil
}

func renderCompanies(raw map[string]any) error {
	payload, err := decodeInto[companiesPayload](raw)
	if err != nil {
		return err
	}
	accent.Println("\n== COMPANIES ==")
	if len(payload.Companies) == 0 {
		printInfo("No companies founded yet.")
		return nil
	}
	printCompanyTable(payload.Companies)
	fmt.Println()
	return nil
}

func printCompanyTable(companies []game.CompanyView) {
	fmt.Printf("%-4s %-20s %-12s %5s %14s %10s %7s %12s %6s %14s\n",
		"ID", "NAME", "INDUSTRY", "LVL", "VALUE", "INC/TICK", "OWNED", "UPGRADE", "MOVIES", "BOX OFFICE")
	for _, c := range companies {
		fmt.Printf("%-4d %-20s %-12s %5d %14s %10s %6.1f%% %12s %6d %14s\n",
			c.ID,
			truncate(c.Name, 20),
			truncate(c.Industry, 12),
			c.Level,
			formatCents(c.MarketValueCents),
			formatCents(c.IncomePerTickCents),
			c.SharesOwnedPct,
			formatCents(c.UpgradeCostCents),
			c.MoviesProduced,
			formatCents(c.TotalBoxOfficeCents),
		)
	}
}

func renderCompanyCreated(raw map[string]any, name, industry string) error {
	out, err := decodeInto[createCompanyPayload](raw)
	if err != nil {
		return err
	}
	printSuccess(fmt.Sprintf("Company founded: #%d %s (%s)", out.ID, name, industry))
	return nil
}

func renderTradeResult(raw map[string]any, side, target string) error {
	q, err := decodeInto[game.TradeQuote](raw)
	if err != nil {
		return err
	}
	accent.Printf("\n== TRADE %s: %s ==\n", strings.ToUpper(side), strings.ToUpper(target))
	fmt.Printf("Shares:    %.2f%%\n", q.Pct)
	fmt.Printf("Gross:     %s\n", formatCents(q.GrossCents))
	fmt.Printf("Fee:       %s\n", formatCents(q.FeeCents))
	fmt.Printf("Net:       %s\n", formatCents(q.NetCents))
	fmt.Printf("Now owned: %.2f%%\n", q.NewOwnershipPct)
	fmt.Println()
	return nil
}

func renderMarketList(raw map[string]any) error {
	payload, err := decodeInto[marketPayload](raw)
	if err != nil {
		return err
	}
	accent.Println("\n== REAL COMPANY MARKET ==")
	if len(payload.Companies) == 0 {
		printInfo("Market not seeded yet.")
		return nil
	}
	fmt.Printf("%-8s %-24s %-8s %16s %9s\n", "TICKER", "NAME", "VOLAT.", "MKT VALUE", "OWNED")
	for _, c := range payload.Companies {
		fmt.Printf("%-8s %-24s %-8s %16s %8.2f%%\n",
			c.Ticker,
			truncate(c.Name, 24),
			c.Volatility,
			formatCents(c.MarketValueCents),
			c.SharesOwnedPct,
		)
	}
	fmt.Println()
	return nil
}

func renderMarketDetail(raw map[string]any) error {
	detail, err := decodeInto[game.RealCompanyDetail](raw)
	if err != nil {
		return err
	}
	accent.Printf("\n== %s (%s) ==\n", detail.Ticker, detail.Name)
	fmt.Printf("Market Value: %s\n", formatCents(detail.MarketValueCents))
	fmt.Printf("Volatility:   %s\n", detail.Volatility)
	fmt.Printf("You Own:      %.2f%%\n", detail.SharesOwnedPct)

	if len(detail.Series) > 1 {
		latest := detail.Series[0].ValueCents
		oldest := detail.Series[len(detail.Series)-1].ValueCents
		fmt.Printf("Trend:        %s\n", colorizeCents(latest-oldest))
	}

	if len(detail.Series) > 0 {
		fmt.Println()
		accent.Println("Recent Ticks")
		fmt.Printf("%-20s %16s\n", "TIME", "VALUE")
		limit := len(detail.Series)
		if limit > 8 {
			limit = 8
		}
		for i := 0; i < limit; i++ {
			point := detail.Series[i]
			fmt.Printf("%-20s %16s\n", point.TickAt.Local().Format("2006-01-02 15:04"), formatCents(point.ValueCents))
		}
	}
	fmt.Println()
	return nil
}

func renderStudioCatalog(raw map[string]any) error {
	payload, err := decodeInto[catalogPayload](raw)
	if err != nil {
		return err
	}
	accent.Println("\n== PRODUCTION CATALOG ==")
	fmt.Printf("%-14s %-16s %16s %16s %10s\n", "TYPE", "NAME", "MIN BUDGET", "MAX BUDGET", "DURATION")
	for _, p := range payload.Projects {
		fmt.Printf("%-14s %-16s %16s %16s %10s\n",
			p.Type,
			truncate(p.DisplayName, 16),
			formatCents(p.MinBudgetCents),
			formatCents(p.MaxBudgetCents),
			time.Duration(p.ProductionTime).String(),
		)
	}
	fmt.Println()
	return nil
}

func renderProjects(raw map[string]any) error {
	payload, err := decodeInto[projectsPayload](raw)
	if err != nil {
		return err
	}
	accent.Println("\n== PRODUCTIONS ==")
	if len(payload.Projects) == 0 {
		printInfo("No productions yet.")
		return nil
	}
	fmt.Printf("%-4s %-22s %-12s %-13s %14s %-12s %14s %-16s %5s\n",
		"ID", "TITLE", "TYPE", "CATEGORY", "BUDGET", "STATUS", "GROSS", "OUTCOME", "AUTO")
	for _, p := range payload.Projects {
		auto := ""
		if p.AutoGenerated {
			auto = "yes"
		}
		fmt.Printf("%-4d %-22s %-12s %-13s %14s %-12s %14s %-16s %5s\n",
			p.ID,
			truncate(p.Title, 22),
			p.Type,
			truncate(p.BudgetCategory, 13),
			formatCents(p.BudgetCents),
			p.Status,
			formatCents(p.GrossCents),
			truncate(p.Outcome, 16),
			auto,
		)
	}
	fmt.Println()
	return nil
}

func renderProjectStarted(raw map[string]any) error {
	p, err := decodeInto[game.ProjectView](raw)
	if err != nil {
		return err
	}
	printSuccess(fmt.Sprintf("Production started: #%d %q (%s, %s, %s budget). Releases %s.",
		p.ID, p.Title, p.Type, p.BudgetCategory, formatCents(p.BudgetCents),
		p.ReleaseAt.Local().Format("15:04:05")))
	return nil
}

func renderAutoSettings(raw map[string]any) error {
	s, err := decodeInto[game.AutoProductionSettings](raw)
	if err != nil {
		return err
	}
	accent.Println("\n== AUTO-PRODUCTION SETTINGS ==")
	enabled := "no"
	if s.Enabled {
		enabled = "yes"
	}
	fmt.Printf("Enabled:        %s\n", enabled)
	fmt.Printf("Cash Reserve:   %s\n", formatCents(s.MinCashReserveCents))
	fmt.Printf("Max Investment: %.0f%% of free cash\n", s.MaxInvestmentPct*100)
	fmt.Printf("Preferred Type: %s\n", s.PreferredType)
	fmt.Printf("Aggressiveness: %s\n", s.Aggressiveness)
	fmt.Println()
	return nil
}

func renderAutoPlan(raw map[string]any) error {
	p, err := decodeInto[game.AutoPlan](raw)
	if err != nil {
		return err
	}
	accent.Println("\n== AUTO-PRODUCTION PLAN ==")
	fmt.Printf("Estimated Budget: %s\n", formatCents(p.EstimatedBudgetCents))
	if !p.CanAfford {
		printWarn("Not enough free cash for a viable production this cycle.")
		fmt.Println()
		return nil
	}
	fmt.Printf("Recommended:      %s\n", p.RecommendedType)
	fmt.Printf("Planned Spend:    %s\n", formatCents(p.ScaledBudgetCents))
	fmt.Println()
	return nil
}

func renderSaves(raw map[string]any) error {
	payload, err := decodeInto[slotsPayload](raw)
	if err != nil {
		return err
	}
	accent.Println("\n== SAVE SLOTS ==")
	if len(payload.Slots) == 0 {
		printInfo("No save slots yet.")
		return nil
	}
	fmt.Printf("%-12s %-20s %-16s %16s %6s %10s\n", "ID", "NAME", "LAST PLAYED", "NET WORTH", "COS", "PLAYED")
	for _, s := range payload.Slots {
		fmt.Printf("%-12s %-20s %-16s %16s %6d %10s\n",
			s.ID,
			truncate(s.Name, 20),
			s.LastPlayed.Local().Format("2006-01-02 15:04"),
			formatCents(s.NetWorthCents),
			s.Companies,
			(time.Duration(s.PlaySeconds) * time.Second).String(),
		)
	}
	fmt.Println()
	return nil
}

// renderLocalSaves is the offline fallback when the API cannot be reached.
func renderLocalSaves() error {
	dir, err := cl.SavesDir()
	if err != nil {
		return err
	}
	store, err := saves.NewStore(dir)
	if err != nil {
		return err
	}
	slots, err := store.List()
	if err != nil {
		return err
	}
	accent.Println("\n== SAVE SLOTS (local mirror) ==")
	if len(slots) == 0 {
		printInfo("No local save slots.")
		return nil
	}
	for _, s := range slots {
		fmt.Printf("%-12s %-20s %16s\n", s.ID, truncate(s.Name, 20), formatCents(s.NetWorthCents))
	}
	fmt.Println()
	return nil
}

func renderSaveWritten(raw map[string]any) error {
	s, err := decodeInto[game.SaveSlotView](raw)
	if err != nil {
		return err
	}
	printSuccess(fmt.Sprintf("Saved slot %s (%s): net worth %s, %d companies.",
		s.ID, s.Name, formatCents(s.NetWorthCents), s.Companies))
	return nil
}

func decodeInto[T any](in any) (T, error) {
	var out T
	raw, err := json.Marshal(in)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, err
	}
	return out, nil
}

func colorizeCents(v int64) string {
	text := formatCents(v)
	if v > 0 {
		text = "+" + text
	}
	switch {
	case v > 0:
		return success.Sprint(text)
	case v < 0:
		return danger.Sprint(text)
	default:
		return neutral.Sprint(text)
	}
}

func formatCents(v int64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s$%s.%02d", sign, comma(v/game.CentsPerDollar), v%game.CentsPerDollar)
}

func comma(v int64) string {
	s := strconv.FormatInt(v, 10)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	pre := len(s) % 3
	if pre > 0 {
		b.WriteString(s[:pre])
		if len(s) > pre {
			b.WriteByte(',')
		}
	}
	for i := pre; i < len(s); i += 3 {
		b.WriteString(s[i : i+3])
		if i+3 < len(s) {
			b.WriteByte(',')
		}
	}
	return b.String()
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
